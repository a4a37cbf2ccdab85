package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LanguageInfo holds details about a specific programming/markup language.
// Only the fields relevant for file detection are kept.
type LanguageInfo struct {
	Type       string   `yaml:"type"` // e.g., programming, data, markup
	Extensions []string `yaml:"extensions"`
	Filenames  []string `yaml:"filenames"`
}

// LanguageMap maps language names (e.g., "Go") to their details.
type LanguageMap map[string]LanguageInfo

// builtinLanguages labels the extensions the extractor handles by default,
// plus the common programming languages, so summaries and PDF rendering work
// without an external catalog file.
var builtinLanguages = LanguageMap{
	"C":          {Type: "programming", Extensions: []string{".c", ".h"}},
	"C++":        {Type: "programming", Extensions: []string{".cc", ".cpp", ".cxx", ".hpp"}},
	"CSS":        {Type: "markup", Extensions: []string{".css"}},
	"CSV":        {Type: "data", Extensions: []string{".csv"}},
	"Dockerfile": {Type: "programming", Filenames: []string{"Dockerfile"}},
	"Go":         {Type: "programming", Extensions: []string{".go"}},
	"HTML":       {Type: "markup", Extensions: []string{".html", ".htm"}},
	"INI":        {Type: "data", Extensions: []string{".ini", ".cfg"}},
	"Java":       {Type: "programming", Extensions: []string{".java"}},
	"JavaScript": {Type: "programming", Extensions: []string{".js", ".mjs", ".cjs"}},
	"JSON":       {Type: "data", Extensions: []string{".json"}},
	"Makefile":   {Type: "programming", Extensions: []string{".mk"}, Filenames: []string{"Makefile", "makefile", "GNUmakefile"}},
	"Markdown":   {Type: "prose", Extensions: []string{".md", ".markdown"}},
	"Python":     {Type: "programming", Extensions: []string{".py", ".pyi"}},
	"Ruby":       {Type: "programming", Extensions: []string{".rb"}, Filenames: []string{"Rakefile", "Gemfile"}},
	"Rust":       {Type: "programming", Extensions: []string{".rs"}},
	"SQL":        {Type: "data", Extensions: []string{".sql"}},
	"Shell":      {Type: "programming", Extensions: []string{".sh", ".bash", ".zsh"}},
	"TOML":       {Type: "data", Extensions: []string{".toml"}},
	"Text":       {Type: "prose", Extensions: []string{".txt", ".log"}},
	"TypeScript": {Type: "programming", Extensions: []string{".ts", ".tsx"}},
	"XML":        {Type: "data", Extensions: []string{".xml"}},
	"YAML":       {Type: "data", Extensions: []string{".yaml", ".yml"}},
}

// LanguageCatalog holds the merged language map and provides lookup helpers.
type LanguageCatalog struct {
	Langs  LanguageMap
	Source string // path of the override file, empty when built-ins only

	extensionMap map[string]string // ".go" -> "Go"
	filenameMap  map[string]string // "Makefile" -> "Makefile"
}

// loadLanguageCatalog builds the catalog from the built-in map, merged with
// an optional languages.yml override from the config directory or the current
// directory. A missing override is not an error; an unreadable or malformed
// one is reported alongside the built-in catalog so callers can warn and
// carry on.
func loadLanguageCatalog() (*LanguageCatalog, error) {
	merged := make(LanguageMap, len(builtinLanguages))
	for name, info := range builtinLanguages {
		merged[name] = info
	}

	configPaths := []string{}
	if home, err := os.UserHomeDir(); err == nil {
		configPaths = append(configPaths, filepath.Join(home, ".config", "fxp"))
	}
	configPaths = append(configPaths, ".")

	var overridePath string
	for _, p := range configPaths {
		testPath := filepath.Join(p, "languages.yml")
		if _, err := os.Stat(testPath); err == nil {
			overridePath = testPath
			break
		}
	}

	var loadErr error
	if overridePath != "" {
		yamlFile, err := os.ReadFile(overridePath)
		if err != nil {
			loadErr = fmt.Errorf("reading language file %s: %w", overridePath, err)
		} else {
			var overrides LanguageMap
			if err := yaml.Unmarshal(yamlFile, &overrides); err != nil {
				loadErr = fmt.Errorf("parsing language file %s: %w", overridePath, err)
			} else {
				for name, info := range overrides {
					merged[name] = info
				}
			}
		}
	}

	catalog := &LanguageCatalog{
		Langs:        merged,
		extensionMap: make(map[string]string),
		filenameMap:  make(map[string]string),
	}
	if loadErr == nil {
		catalog.Source = overridePath
	}

	for langName, info := range merged {
		for _, ext := range info.Extensions {
			// Extensions are matched lowercase with the dot included.
			lowerExt := strings.ToLower(ext)
			if catalog.extensionMap[lowerExt] == "" {
				catalog.extensionMap[lowerExt] = langName
			}
		}
		for _, fname := range info.Filenames {
			if catalog.filenameMap[fname] == "" {
				catalog.filenameMap[fname] = langName
			}
		}
	}

	return catalog, loadErr
}

// LanguageForFile determines the language for a given path. Exact filename
// matches take precedence over extension matches.
func (lc *LanguageCatalog) LanguageForFile(filePath string) (string, bool) {
	if lc == nil {
		return "", false
	}

	baseName := filepath.Base(filePath)
	if lang, ok := lc.filenameMap[baseName]; ok {
		return lang, true
	}

	if ext := strings.ToLower(filepath.Ext(baseName)); ext != "" {
		if lang, ok := lc.extensionMap[ext]; ok {
			return lang, true
		}
	}

	return "", false
}

// LanguageForExtension resolves a lowercase dotted extension to a language
// name.
func (lc *LanguageCatalog) LanguageForExtension(ext string) (string, bool) {
	if lc == nil || ext == "" {
		return "", false
	}
	lang, ok := lc.extensionMap[strings.ToLower(ext)]
	return lang, ok
}

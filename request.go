package main

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Mode selects how the extensions set is interpreted by the filter.
type Mode string

const (
	ModeInclusion Mode = "inclusion"
	ModeExclusion Mode = "exclusion"
)

// ParseMode validates a mode string from flags or config.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeInclusion:
		return ModeInclusion, nil
	case ModeExclusion:
		return ModeExclusion, nil
	default:
		return "", fmt.Errorf("unknown mode %q: use %q or %q", s, ModeInclusion, ModeExclusion)
	}
}

// CommonExtensions is the inclusion-mode default applied when the caller
// supplies no extensions at all.
var CommonExtensions = []string{
	".css", ".csv", ".db", ".html", ".ini", ".js", ".json",
	".log", ".md", ".py", ".txt", ".xml", ".yaml", ".yml",
}

// DefaultExcludeFolders is applied when no folder excludes are given.
var DefaultExcludeFolders = []string{
	".git", ".vscode", "__pycache__", "venv", "node_modules", ".venv", ".pytest_cache",
}

// SpecificationFiles are transferred first from the root folder, bypassing
// all filters. They never count toward the progress total.
var SpecificationFiles = []string{"README.md", "SPECIFICATIONS.md"}

const (
	DefaultChunkSize     = 8192
	DefaultQueueCapacity = 256

	wildcardAll    = "*"
	wildcardDotAll = "*.*"
)

// ExtractionRequest is the immutable per-run input to the engine. Callers
// build it through NewExtractionRequest so extensions arrive canonicalized
// and the empty-inclusion case is already resolved.
type ExtractionRequest struct {
	FolderPath     string
	Mode           Mode
	IncludeHidden  bool
	Extensions     []string // canonical dotted lower-case, or wildcard sentinels
	ExcludeFiles   []string // file-name glob patterns
	ExcludeFolders []string // folder-name glob patterns
	OutputPath     string

	// SizeWarnBytes is the soft per-file threshold. Files above it emit a
	// warning and are still processed. Zero disables the warning.
	SizeWarnBytes int64
	ChunkSize     int
	QueueCapacity int

	// RespectIgnore consults the root .gitignore when present.
	RespectIgnore bool
	// TrackedOnly restricts candidates to paths in the repository HEAD.
	TrackedOnly bool
}

// NewExtractionRequest canonicalizes raw inputs into a validated request.
// Raw extension tokens may be comma-separated and undotted; empty-under-
// inclusion resolves to CommonExtensions. Empty folder excludes resolve to
// DefaultExcludeFolders.
func NewExtractionRequest(folder string, mode Mode, rawExtensions, excludeFiles, excludeFolders []string, outputPath string) (ExtractionRequest, error) {
	req := ExtractionRequest{
		FolderPath:     filepath.Clean(folder),
		Mode:           mode,
		Extensions:     NormalizeExtensions(splitCSV(rawExtensions)),
		ExcludeFiles:   splitCSV(excludeFiles),
		ExcludeFolders: splitCSV(excludeFolders),
		OutputPath:     outputPath,
		ChunkSize:      DefaultChunkSize,
		QueueCapacity:  DefaultQueueCapacity,
		RespectIgnore:  true,
	}
	if mode == ModeInclusion && len(req.Extensions) == 0 {
		req.Extensions = append([]string(nil), CommonExtensions...)
	}
	if len(req.ExcludeFolders) == 0 {
		req.ExcludeFolders = append([]string(nil), DefaultExcludeFolders...)
	}
	if err := req.Validate(); err != nil {
		return ExtractionRequest{}, err
	}
	return req, nil
}

// Validate checks structural invariants the engine relies on.
func (r ExtractionRequest) Validate() error {
	if strings.TrimSpace(r.FolderPath) == "" {
		return fmt.Errorf("folder path is required")
	}
	if strings.TrimSpace(r.OutputPath) == "" {
		return fmt.Errorf("output path is required")
	}
	if r.Mode != ModeInclusion && r.Mode != ModeExclusion {
		return fmt.Errorf("unknown mode %q", r.Mode)
	}
	if r.Mode == ModeInclusion && len(r.Extensions) == 0 {
		return fmt.Errorf("inclusion mode requires a non-empty extensions set")
	}
	if r.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", r.ChunkSize)
	}
	if r.QueueCapacity <= 0 {
		return fmt.Errorf("queue capacity must be positive, got %d", r.QueueCapacity)
	}
	if r.SizeWarnBytes < 0 {
		return fmt.Errorf("size warning threshold must not be negative, got %d", r.SizeWarnBytes)
	}
	for _, p := range r.ExcludeFiles {
		if _, err := filepath.Match(p, "probe"); err != nil {
			return fmt.Errorf("invalid file exclude pattern %q: %w", p, err)
		}
	}
	for _, p := range r.ExcludeFolders {
		if _, err := filepath.Match(p, "probe"); err != nil {
			return fmt.Errorf("invalid folder exclude pattern %q: %w", p, err)
		}
	}
	return nil
}

// HasWildcard reports whether the extensions set contains a sentinel that
// matches every extension under inclusion mode.
func (r ExtractionRequest) HasWildcard() bool {
	for _, ext := range r.Extensions {
		if ext == wildcardAll || ext == wildcardDotAll {
			return true
		}
	}
	return false
}

// splitCSV flattens raw values, splitting on commas, trimming whitespace and
// dropping empties, preserving first-seen order without duplicates.
func splitCSV(values []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if _, dup := seen[trimmed]; dup {
				continue
			}
			seen[trimmed] = struct{}{}
			out = append(out, trimmed)
		}
	}
	return out
}

// NormalizeExtensions canonicalizes extension tokens: lower-case, leading
// dot enforced, "*.ext" collapsed to ".ext", the "*" and "*.*" wildcard
// sentinels preserved as-is, order-preserving dedupe.
func NormalizeExtensions(raw []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, extension := range raw {
		token := strings.ToLower(strings.TrimSpace(extension))
		if token == "" {
			continue
		}
		if token != wildcardAll && token != wildcardDotAll {
			if strings.HasPrefix(token, "*.") {
				token = token[1:]
			}
			if !strings.HasPrefix(token, ".") {
				token = "." + token
			}
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}

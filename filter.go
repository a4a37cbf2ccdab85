package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/monochromegane/go-gitignore"
)

// fileFilter is the compiled filter predicate for one request. Both the
// metadata scan and the processing pass share one instance, so the counted
// total and the processed set always agree.
type fileFilter struct {
	mode          Mode
	includeHidden bool
	extensions    map[string]struct{}
	wildcard      bool
	excludeFiles  []string
	excludeDirs   []string
	outputAbs     string

	ignoreMatcher gitignore.IgnoreMatcher // nil unless a root .gitignore applies
	tracked       map[string]struct{}     // nil unless TrackedOnly is set
}

// newFileFilter compiles the request's filtering rules. Loading the
// .gitignore matcher and the tracked-path set happens once here, keeping the
// per-candidate predicate pure.
func newFileFilter(req ExtractionRequest) (*fileFilter, error) {
	outputAbs, err := filepath.Abs(req.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("resolving output path %s: %w", req.OutputPath, err)
	}

	f := &fileFilter{
		mode:          req.Mode,
		includeHidden: req.IncludeHidden,
		extensions:    make(map[string]struct{}, len(req.Extensions)),
		wildcard:      req.HasWildcard(),
		excludeFiles:  req.ExcludeFiles,
		excludeDirs:   req.ExcludeFolders,
		outputAbs:     outputAbs,
	}
	for _, ext := range req.Extensions {
		f.extensions[ext] = struct{}{}
	}

	if req.RespectIgnore {
		gitIgnorePath := filepath.Join(req.FolderPath, ".gitignore")
		if _, err := os.Stat(gitIgnorePath); err == nil {
			matcher, err := gitignore.NewGitIgnore(gitIgnorePath)
			if err != nil {
				return nil, fmt.Errorf("parsing %s: %w", gitIgnorePath, err)
			}
			f.ignoreMatcher = matcher
		}
	}

	if req.TrackedOnly {
		tracked, err := trackedPaths(req.FolderPath)
		if err != nil {
			return nil, fmt.Errorf("resolving tracked files: %w", err)
		}
		f.tracked = tracked
	}

	return f, nil
}

// SkipDir reports whether the walk should prune the directory entirely.
// Pruned directories are never descended into. path is the as-walked
// directory path; the ignore matcher resolves it against the .gitignore
// location itself.
func (f *fileFilter) SkipDir(name, path string) bool {
	if !f.includeHidden && isHidden(name) {
		return true
	}
	if matchesAny(name, f.excludeDirs) {
		return true
	}
	if f.ignoreMatcher != nil && f.ignoreMatcher.Match(path, true) {
		return true
	}
	return false
}

// MatchFile applies the full rule chain to one candidate: ancestor folder
// excludes, hidden convention, file-name excludes, gitignore, tracked set,
// then the mode/extension rule. The output destination is always rejected.
func (f *fileFilter) MatchFile(cand FileCandidate) bool {
	if abs, err := filepath.Abs(cand.Path); err == nil && abs == f.outputAbs {
		return false
	}

	name := filepath.Base(cand.Path)
	for _, segment := range ancestorSegments(cand.RelPath) {
		if matchesAny(segment, f.excludeDirs) {
			return false
		}
		if !f.includeHidden && isHidden(segment) {
			return false
		}
	}
	if !f.includeHidden && isHidden(name) {
		return false
	}
	if matchesAny(name, f.excludeFiles) {
		return false
	}
	if f.ignoreMatcher != nil && f.ignoreMatcher.Match(cand.Path, false) {
		return false
	}
	if f.tracked != nil {
		if _, ok := f.tracked[cand.RelPath]; !ok {
			return false
		}
	}

	return f.matchExtension(cand.Ext)
}

func (f *fileFilter) matchExtension(ext string) bool {
	switch f.mode {
	case ModeInclusion:
		if f.wildcard {
			return true
		}
		_, ok := f.extensions[ext]
		return ok
	case ModeExclusion:
		_, ok := f.extensions[ext]
		return !ok
	default:
		return false
	}
}

// matchesAny checks the name against glob patterns. Patterns are validated
// when the request is built, so Match cannot fail here.
func matchesAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

// ancestorSegments returns the directory names above a slash-relative file
// path, outermost first. "a/b/c.txt" yields ["a", "b"].
func ancestorSegments(relPath string) []string {
	relPath = strings.Trim(filepath.ToSlash(relPath), "/")
	segments := strings.Split(relPath, "/")
	if len(segments) <= 1 {
		return nil
	}
	return segments[:len(segments)-1]
}

// isHidden reports the dot-prefix hidden convention for a single name.
func isHidden(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return len(name) > 0 && name[0] == '.'
}

// canonicalExt returns the canonical dotted lower-case extension of a file
// name, or "" when it has none.
func canonicalExt(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

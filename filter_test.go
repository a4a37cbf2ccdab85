package main

import (
	"os"
	"path/filepath"
	"testing"
)

func newFilterForTest(t *testing.T, req ExtractionRequest) *fileFilter {
	t.Helper()
	f, err := newFileFilter(req)
	if err != nil {
		t.Fatalf("newFileFilter failed: %v", err)
	}
	return f
}

func candidateIn(root, rel string) FileCandidate {
	return FileCandidate{
		Path:    filepath.Join(root, filepath.FromSlash(rel)),
		RelPath: rel,
		Ext:     canonicalExt(rel),
	}
}

func TestFileFilter_ExtensionModes(t *testing.T) {
	root := t.TempDir()
	base := ExtractionRequest{
		FolderPath:    root,
		Mode:          ModeInclusion,
		Extensions:    []string{".txt", ".md"},
		OutputPath:    filepath.Join(root, "out.txt"),
		ChunkSize:     DefaultChunkSize,
		QueueCapacity: DefaultQueueCapacity,
	}

	f := newFilterForTest(t, base)
	if !f.MatchFile(candidateIn(root, "notes.txt")) {
		t.Error("inclusion mode should accept a listed extension")
	}
	if f.MatchFile(candidateIn(root, "image.png")) {
		t.Error("inclusion mode should reject an unlisted extension")
	}
	if f.MatchFile(candidateIn(root, "README")) {
		t.Error("inclusion mode should reject a file without extension")
	}

	wild := base
	wild.Extensions = []string{"*"}
	f = newFilterForTest(t, wild)
	if !f.MatchFile(candidateIn(root, "anything.xyz")) {
		t.Error("wildcard inclusion should accept any extension")
	}
	if !f.MatchFile(candidateIn(root, "no_extension")) {
		t.Error("wildcard inclusion should accept files without extension")
	}

	excl := base
	excl.Mode = ModeExclusion
	excl.Extensions = []string{".log"}
	f = newFilterForTest(t, excl)
	if f.MatchFile(candidateIn(root, "trace.log")) {
		t.Error("exclusion mode should reject a listed extension")
	}
	if !f.MatchFile(candidateIn(root, "notes.txt")) {
		t.Error("exclusion mode should accept an unlisted extension")
	}
	if !f.MatchFile(candidateIn(root, "README")) {
		t.Error("exclusion mode should accept files without extension")
	}
}

func TestFileFilter_RejectsOutputFile(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out.txt")
	req := ExtractionRequest{
		FolderPath:    root,
		Mode:          ModeInclusion,
		Extensions:    []string{".txt"},
		OutputPath:    out,
		ChunkSize:     DefaultChunkSize,
		QueueCapacity: DefaultQueueCapacity,
	}

	f := newFilterForTest(t, req)
	if f.MatchFile(candidateIn(root, "out.txt")) {
		t.Error("the output destination must never match")
	}
	if !f.MatchFile(candidateIn(root, "other.txt")) {
		t.Error("sibling files should still match")
	}
}

func TestFileFilter_HiddenFilesAndAncestors(t *testing.T) {
	root := t.TempDir()
	req := ExtractionRequest{
		FolderPath:    root,
		Mode:          ModeInclusion,
		Extensions:    []string{"*"},
		OutputPath:    filepath.Join(root, "out.txt"),
		ChunkSize:     DefaultChunkSize,
		QueueCapacity: DefaultQueueCapacity,
	}

	f := newFilterForTest(t, req)
	if f.MatchFile(candidateIn(root, ".env")) {
		t.Error("hidden file should be rejected by default")
	}
	if f.MatchFile(candidateIn(root, ".config/settings.toml")) {
		t.Error("file under a hidden ancestor should be rejected")
	}
	if !f.MatchFile(candidateIn(root, "plain/settings.toml")) {
		t.Error("file under a plain ancestor should be accepted")
	}

	req.IncludeHidden = true
	f = newFilterForTest(t, req)
	if !f.MatchFile(candidateIn(root, ".env")) {
		t.Error("hidden file should be accepted with IncludeHidden")
	}
	if !f.MatchFile(candidateIn(root, ".config/settings.toml")) {
		t.Error("hidden ancestor should be accepted with IncludeHidden")
	}
}

func TestFileFilter_ExcludePatterns(t *testing.T) {
	root := t.TempDir()
	req := ExtractionRequest{
		FolderPath:     root,
		Mode:           ModeInclusion,
		Extensions:     []string{"*"},
		ExcludeFiles:   []string{"*.tmp", "secret*"},
		ExcludeFolders: []string{"node_modules", "build*"},
		OutputPath:     filepath.Join(root, "out.txt"),
		ChunkSize:      DefaultChunkSize,
		QueueCapacity:  DefaultQueueCapacity,
	}

	f := newFilterForTest(t, req)
	if f.MatchFile(candidateIn(root, "scratch.tmp")) {
		t.Error("file matching an exclude glob should be rejected")
	}
	if f.MatchFile(candidateIn(root, "secret_key.txt")) {
		t.Error("file matching a prefix glob should be rejected")
	}
	if f.MatchFile(candidateIn(root, "node_modules/pkg/index.js")) {
		t.Error("file under an excluded folder should be rejected")
	}
	if f.MatchFile(candidateIn(root, "build-arm64/main.go")) {
		t.Error("file under a glob-excluded folder should be rejected")
	}
	if !f.MatchFile(candidateIn(root, "src/main.go")) {
		t.Error("file outside all excludes should be accepted")
	}

	if !f.SkipDir("node_modules", filepath.Join(root, "node_modules")) {
		t.Error("excluded folder should be pruned")
	}
	if !f.SkipDir(".git", filepath.Join(root, ".git")) {
		t.Error("hidden folder should be pruned by default")
	}
	if f.SkipDir("src", filepath.Join(root, "src")) {
		t.Error("plain folder should not be pruned")
	}
}

func TestFileFilter_GitignoreRules(t *testing.T) {
	root := t.TempDir()
	gitignore := "ignored/\n*.secret\n"
	if err := os.WriteFile(filepath.Join(root, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		t.Fatalf("writing .gitignore: %v", err)
	}

	req := ExtractionRequest{
		FolderPath:    root,
		Mode:          ModeInclusion,
		Extensions:    []string{"*"},
		OutputPath:    filepath.Join(root, "out.txt"),
		RespectIgnore: true,
		ChunkSize:     DefaultChunkSize,
		QueueCapacity: DefaultQueueCapacity,
	}

	f := newFilterForTest(t, req)
	if f.ignoreMatcher == nil {
		t.Fatal("expected a gitignore matcher to be loaded")
	}
	if !f.SkipDir("ignored", filepath.Join(root, "ignored")) {
		t.Error("gitignored directory should be pruned")
	}
	if f.MatchFile(candidateIn(root, "token.secret")) {
		t.Error("gitignored file should be rejected")
	}
	if !f.MatchFile(candidateIn(root, "kept.txt")) {
		t.Error("non-ignored file should be accepted")
	}

	req.RespectIgnore = false
	f = newFilterForTest(t, req)
	if f.ignoreMatcher != nil {
		t.Error("gitignore matcher should not load when RespectIgnore is off")
	}
	if !f.MatchFile(candidateIn(root, "token.secret")) {
		t.Error("gitignore rules should not apply when RespectIgnore is off")
	}
}

func TestFileFilter_TrackedOnly(t *testing.T) {
	root := t.TempDir()
	req := ExtractionRequest{
		FolderPath:    root,
		Mode:          ModeInclusion,
		Extensions:    []string{"*"},
		OutputPath:    filepath.Join(root, "out.txt"),
		ChunkSize:     DefaultChunkSize,
		QueueCapacity: DefaultQueueCapacity,
	}

	f := newFilterForTest(t, req)
	f.tracked = map[string]struct{}{"src/main.go": {}}

	if !f.MatchFile(candidateIn(root, "src/main.go")) {
		t.Error("tracked file should be accepted")
	}
	if f.MatchFile(candidateIn(root, "src/untracked.go")) {
		t.Error("untracked file should be rejected")
	}
}

func TestAncestorSegments(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"c.txt", nil},
		{"a/c.txt", []string{"a"}},
		{"a/b/c.txt", []string{"a", "b"}},
	}
	for _, tc := range cases {
		got := ancestorSegments(tc.in)
		if len(got) != len(tc.want) {
			t.Errorf("ancestorSegments(%q) = %v, want %v", tc.in, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("ancestorSegments(%q) = %v, want %v", tc.in, got, tc.want)
				break
			}
		}
	}
}

func TestIsHidden(t *testing.T) {
	if !isHidden(".git") {
		t.Error(".git should be hidden")
	}
	if isHidden("main.go") {
		t.Error("main.go should not be hidden")
	}
	if isHidden(".") || isHidden("..") {
		t.Error("dot and dot-dot are not hidden names")
	}
}

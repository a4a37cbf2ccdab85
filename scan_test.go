package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// writeTestFile creates rel under root, making parent directories as needed,
// and returns the absolute path.
func writeTestFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
	return path
}

func scanRequest(t *testing.T, root string) ExtractionRequest {
	t.Helper()
	req, err := NewExtractionRequest(root, ModeInclusion, []string{".txt,.md"}, nil, nil, filepath.Join(root, "out.txt"))
	if err != nil {
		t.Fatalf("NewExtractionRequest: %v", err)
	}
	return req
}

func populateScanTree(t *testing.T, root string) {
	t.Helper()
	writeTestFile(t, root, "a.txt", "alpha")
	writeTestFile(t, root, "b.md", "bravo")
	writeTestFile(t, root, "binary.bin", "\x00\x01")
	writeTestFile(t, root, ".hiddenfile.txt", "secret")
	writeTestFile(t, root, "sub/c.txt", "charlie")
	writeTestFile(t, root, "sub/skipme.log", "noise")
	writeTestFile(t, root, ".hidden/d.txt", "dot")
	writeTestFile(t, root, "node_modules/e.txt", "vendored")
}

func TestScanTotal_CountsMatchingFiles(t *testing.T) {
	root := t.TempDir()
	populateScanTree(t, root)
	req := scanRequest(t, root)
	filter := newFilterForTest(t, req)

	total, traversalErrs, err := scanTotal(context.Background(), req, filter, nil)
	if err != nil {
		t.Fatalf("scanTotal: %v", err)
	}
	if len(traversalErrs) != 0 {
		t.Errorf("unexpected traversal errors: %v", traversalErrs)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
}

func TestScanTotal_HonorsSkipSet(t *testing.T) {
	root := t.TempDir()
	populateScanTree(t, root)
	req := scanRequest(t, root)
	filter := newFilterForTest(t, req)

	skip := map[string]struct{}{
		filepath.Join(root, "a.txt"): {},
	}
	total, _, err := scanTotal(context.Background(), req, filter, skip)
	if err != nil {
		t.Fatalf("scanTotal: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
}

func TestWalkCandidates_DeterministicOrder(t *testing.T) {
	root := t.TempDir()
	populateScanTree(t, root)
	req := scanRequest(t, root)
	filter := newFilterForTest(t, req)

	var got []string
	err := walkCandidates(context.Background(), root, filter, nil, nil, func(cand FileCandidate) error {
		got = append(got, cand.RelPath)
		return nil
	})
	if err != nil {
		t.Fatalf("walkCandidates: %v", err)
	}
	want := []string{"a.txt", "b.md", "sub/c.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("candidates = %v, want %v", got, want)
	}
}

func TestWalkCandidates_PopulatesCandidateMetadata(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "sub/c.txt", "charlie")
	req := scanRequest(t, root)
	filter := newFilterForTest(t, req)

	var cands []FileCandidate
	err := walkCandidates(context.Background(), root, filter, nil, nil, func(cand FileCandidate) error {
		cands = append(cands, cand)
		return nil
	})
	if err != nil {
		t.Fatalf("walkCandidates: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
	cand := cands[0]
	if cand.Path != filepath.Join(root, "sub", "c.txt") {
		t.Errorf("Path = %q", cand.Path)
	}
	if cand.RelPath != "sub/c.txt" {
		t.Errorf("RelPath = %q, want sub/c.txt", cand.RelPath)
	}
	if cand.Size != int64(len("charlie")) {
		t.Errorf("Size = %d, want %d", cand.Size, len("charlie"))
	}
	if cand.Ext != ".txt" {
		t.Errorf("Ext = %q, want .txt", cand.Ext)
	}
}

func TestScanTotal_MissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "does-not-exist")
	req := ExtractionRequest{
		FolderPath:    root,
		Mode:          ModeInclusion,
		Extensions:    []string{".txt"},
		OutputPath:    "out.txt",
		ChunkSize:     DefaultChunkSize,
		QueueCapacity: DefaultQueueCapacity,
	}
	filter := newFilterForTest(t, req)

	_, _, err := scanTotal(context.Background(), req, filter, nil)
	if err == nil {
		t.Fatal("expected an error for a missing root")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want wrapped fs.ErrNotExist", err)
	}
}

func TestWalkCandidates_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.txt", "alpha")
	req := scanRequest(t, root)
	filter := newFilterForTest(t, req)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := walkCandidates(ctx, root, filter, nil, nil, func(FileCandidate) error {
		t.Fatal("callback must not run after cancellation")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestClassifyAccessError(t *testing.T) {
	if kind := classifyAccessError(os.ErrPermission); kind != ErrKindPermission {
		t.Errorf("permission error classified as %v", kind)
	}
	if kind := classifyAccessError(os.ErrNotExist); kind != ErrKindIO {
		t.Errorf("not-exist error classified as %v", kind)
	}
}

package main

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseMode(t *testing.T) {
	cases := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"inclusion", ModeInclusion, false},
		{"exclusion", ModeExclusion, false},
		{" Inclusion ", ModeInclusion, false},
		{"EXCLUSION", ModeExclusion, false},
		{"include", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ParseMode(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseMode(%q) expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMode(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeExtensions(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, nil},
		{"dotted stays", []string{".go"}, []string{".go"}},
		{"dot added", []string{"go"}, []string{".go"}},
		{"star prefix collapsed", []string{"*.go"}, []string{".go"}},
		{"lowercased", []string{".GO", "Md"}, []string{".go", ".md"}},
		{"wildcard preserved", []string{"*"}, []string{"*"}},
		{"dot wildcard preserved", []string{"*.*"}, []string{"*.*"}},
		{"duplicates keep first", []string{".go", "go", "*.go"}, []string{".go"}},
		{"blanks dropped", []string{"", "  "}, nil},
		{"mixed forms", []string{"py", ".md", "*.txt", "*"}, []string{".py", ".md", ".txt", "*"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeExtensions(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("NormalizeExtensions(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV([]string{" .go, .md ,,", ".go", "a,b"})
	want := []string{".go", ".md", "a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitCSV = %v, want %v", got, want)
	}

	if out := splitCSV(nil); out != nil {
		t.Errorf("splitCSV(nil) = %v, want nil", out)
	}
}

func TestNewExtractionRequest_Defaults(t *testing.T) {
	req, err := NewExtractionRequest("src", ModeInclusion, nil, nil, nil, "out.txt")
	if err != nil {
		t.Fatalf("NewExtractionRequest failed: %v", err)
	}

	if !reflect.DeepEqual(req.Extensions, CommonExtensions) {
		t.Errorf("empty inclusion extensions = %v, want common defaults", req.Extensions)
	}
	if !reflect.DeepEqual(req.ExcludeFolders, DefaultExcludeFolders) {
		t.Errorf("empty folder excludes = %v, want defaults", req.ExcludeFolders)
	}
	if req.ChunkSize != DefaultChunkSize {
		t.Errorf("chunk size = %d, want %d", req.ChunkSize, DefaultChunkSize)
	}
	if req.QueueCapacity != DefaultQueueCapacity {
		t.Errorf("queue capacity = %d, want %d", req.QueueCapacity, DefaultQueueCapacity)
	}
	if !req.RespectIgnore {
		t.Error("RespectIgnore should default to true")
	}
	if req.IncludeHidden {
		t.Error("IncludeHidden should default to false")
	}
}

func TestNewExtractionRequest_ExclusionKeepsEmptyExtensions(t *testing.T) {
	req, err := NewExtractionRequest("src", ModeExclusion, nil, nil, nil, "out.txt")
	if err != nil {
		t.Fatalf("NewExtractionRequest failed: %v", err)
	}
	if len(req.Extensions) != 0 {
		t.Errorf("exclusion mode with no extensions should stay empty, got %v", req.Extensions)
	}
}

func TestNewExtractionRequest_SplitsAndNormalizes(t *testing.T) {
	req, err := NewExtractionRequest("src", ModeInclusion,
		[]string{"go, *.md , PY"}, []string{"*.tmp,*.bak"}, []string{"build, dist"}, "out.txt")
	if err != nil {
		t.Fatalf("NewExtractionRequest failed: %v", err)
	}

	if want := []string{".go", ".md", ".py"}; !reflect.DeepEqual(req.Extensions, want) {
		t.Errorf("extensions = %v, want %v", req.Extensions, want)
	}
	if want := []string{"*.tmp", "*.bak"}; !reflect.DeepEqual(req.ExcludeFiles, want) {
		t.Errorf("exclude files = %v, want %v", req.ExcludeFiles, want)
	}
	if want := []string{"build", "dist"}; !reflect.DeepEqual(req.ExcludeFolders, want) {
		t.Errorf("exclude folders = %v, want %v", req.ExcludeFolders, want)
	}
}

func TestExtractionRequest_Validate(t *testing.T) {
	valid := ExtractionRequest{
		FolderPath:    "src",
		Mode:          ModeInclusion,
		Extensions:    []string{".go"},
		OutputPath:    "out.txt",
		ChunkSize:     DefaultChunkSize,
		QueueCapacity: DefaultQueueCapacity,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	cases := []struct {
		name    string
		mutate  func(*ExtractionRequest)
		wantSub string
	}{
		{"empty folder", func(r *ExtractionRequest) { r.FolderPath = " " }, "folder path"},
		{"empty output", func(r *ExtractionRequest) { r.OutputPath = "" }, "output path"},
		{"bad mode", func(r *ExtractionRequest) { r.Mode = "include" }, "unknown mode"},
		{"inclusion without extensions", func(r *ExtractionRequest) { r.Extensions = nil }, "non-empty extensions"},
		{"zero chunk", func(r *ExtractionRequest) { r.ChunkSize = 0 }, "chunk size"},
		{"zero queue", func(r *ExtractionRequest) { r.QueueCapacity = 0 }, "queue capacity"},
		{"negative warn", func(r *ExtractionRequest) { r.SizeWarnBytes = -1 }, "size warning"},
		{"bad file glob", func(r *ExtractionRequest) { r.ExcludeFiles = []string{"["} }, "invalid file exclude"},
		{"bad folder glob", func(r *ExtractionRequest) { r.ExcludeFolders = []string{"["} }, "invalid folder exclude"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)
			err := req.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestExtractionRequest_HasWildcard(t *testing.T) {
	req := ExtractionRequest{Extensions: []string{".go"}}
	if req.HasWildcard() {
		t.Error("plain extension set should not report a wildcard")
	}
	req.Extensions = []string{".go", "*"}
	if !req.HasWildcard() {
		t.Error("set containing * should report a wildcard")
	}
	req.Extensions = []string{"*.*"}
	if !req.HasWildcard() {
		t.Error("set containing *.* should report a wildcard")
	}
}

package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"
)

// pickSourceFolder walks the current directory and offers its subdirectories
// in a fuzzy finder so the extraction folder can be chosen interactively.
// A graceful abort (Esc or Ctrl+C) returns an empty path with a nil error.
func pickSourceFolder(includeHidden bool) (string, error) {
	candidates := []string{"."}
	root := "."

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries just stay out of the candidate list.
			return nil
		}

		if path == root || !d.IsDir() {
			return nil
		}

		if !includeHidden && isHidden(d.Name()) {
			return fs.SkipDir
		}

		candidates = append(candidates, path)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("error scanning for directories: %w", err)
	}

	idx, err := fuzzyfinder.Find(
		candidates,
		func(i int) string {
			return candidates[i]
		},
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return "Select the folder to extract from. Press Enter to confirm, Esc to abort."
			}
			return previewFolder(candidates[i])
		}),
	)
	if err != nil {
		if err == fuzzyfinder.ErrAbort {
			fmt.Println("Interactive selection aborted.")
			return "", nil
		}
		return "", fmt.Errorf("fuzzy finder error: %w", err)
	}

	return candidates[idx], nil
}

// previewFolder summarizes a directory for the finder's preview pane.
func previewFolder(path string) string {
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Sprintf("Path: %s\nError reading directory: %v", path, err)
	}

	dirs, files := 0, 0
	names := make([]string, 0, 8)
	for _, entry := range entries {
		if entry.IsDir() {
			dirs++
		} else {
			files++
		}
		if len(names) < 8 {
			name := entry.Name()
			if entry.IsDir() {
				name += "/"
			}
			names = append(names, name)
		}
	}

	preview := fmt.Sprintf("Path: %s\nSubdirectories: %d\nFiles: %d", path, dirs, files)
	if len(names) > 0 {
		preview += "\n\n" + strings.Join(names, "\n")
		if len(entries) > len(names) {
			preview += "\n..."
		}
	}
	return preview
}

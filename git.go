package main

import (
	"fmt"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// trackedPaths lists every file tracked in the repository HEAD at root,
// keyed by slash-relative path. Used by the tracked-only filter; resolved
// once per run from the on-disk repository, never over the network.
func trackedPaths(root string) (map[string]struct{}, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", root, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("reading HEAD commit %s: %w", head.Hash(), err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("reading HEAD tree: %w", err)
	}

	tracked := make(map[string]struct{})
	err = tree.Files().ForEach(func(f *object.File) error {
		tracked[f.Name] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing tracked files: %w", err)
	}

	return tracked, nil
}

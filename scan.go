package main

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
)

// walkCandidates walks the tree under root in deterministic order, pruning
// directories per the filter, and calls fn for every qualifying candidate.
// Both the metadata scan and the processing pass run through here with the
// same filter, which is what keeps the counted total exact.
//
// Paths in skip (already-transferred specification files) are passed over.
// Directory read failures are reported through onDirError and the subtree is
// skipped; they never abort the walk. Context cancellation aborts the walk
// with the context's error.
func walkCandidates(ctx context.Context, root string, filter *fileFilter, skip map[string]struct{}, onDirError func(TraversalError), fn func(FileCandidate) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		if err != nil {
			if path == root && d == nil {
				// Root itself is unreadable or gone; nothing to salvage.
				return err
			}
			if onDirError != nil {
				onDirError(TraversalError{Path: path, Kind: classifyAccessError(err), Err: err})
			}
			return nil
		}

		if path == root {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		name := d.Name()

		if d.IsDir() {
			if filter.SkipDir(name, path) {
				return fs.SkipDir
			}
			return nil
		}

		// Sockets, devices and symlinks are not text sources.
		if !d.Type().IsRegular() {
			return nil
		}

		if _, done := skip[path]; done {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			if onDirError != nil {
				onDirError(TraversalError{Path: path, Kind: classifyAccessError(infoErr), Err: infoErr})
			}
			return nil
		}

		cand := FileCandidate{
			Path:    path,
			RelPath: rel,
			Size:    info.Size(),
			Ext:     canonicalExt(name),
		}
		if !filter.MatchFile(cand) {
			return nil
		}
		return fn(cand)
	})
}

// scanTotal is the metadata pre-pass: it counts qualifying files without
// reading any content, fixing the run's progress total. Unreadable
// directories are recorded and skipped, never fatal.
func scanTotal(ctx context.Context, req ExtractionRequest, filter *fileFilter, skip map[string]struct{}) (int, []TraversalError, error) {
	total := 0
	var traversalErrs []TraversalError
	err := walkCandidates(ctx, req.FolderPath, filter, skip,
		func(te TraversalError) {
			traversalErrs = append(traversalErrs, te)
		},
		func(FileCandidate) error {
			total++
			return nil
		})
	if err != nil {
		return 0, traversalErrs, err
	}
	return total, traversalErrs, nil
}

// classifyAccessError maps filesystem access failures onto the error
// taxonomy used in run reports.
func classifyAccessError(err error) ErrorKind {
	if errors.Is(err, fs.ErrPermission) {
		return ErrKindPermission
	}
	return ErrKindIO
}

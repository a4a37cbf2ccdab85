package main

import "time"

// FileCandidate describes a file accepted by the filter during traversal.
// Candidates are derived transiently and never persisted.
type FileCandidate struct {
	Path    string // root-joined path as walked
	RelPath string // path relative to the request root, slash-separated
	Size    int64
	Ext     string // canonical dotted lower-case extension, "" if none
}

// ErrorKind classifies per-file and run-level failures.
type ErrorKind string

const (
	ErrKindPermission     ErrorKind = "permission_denied"
	ErrKindDecode         ErrorKind = "decode_error"
	ErrKindIO             ErrorKind = "io_error"
	ErrKindFolderNotFound ErrorKind = "folder_not_found"
	ErrKindCancelled      ErrorKind = "cancelled"
)

// FileError records a single per-file failure for the run's error list.
type FileError struct {
	Path    string    `json:"path"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// TraversalError records a directory the scanner could not descend into.
type TraversalError struct {
	Path string
	Kind ErrorKind
	Err  error
}

// OutcomeKind tags the result of a single file transfer.
type OutcomeKind int

const (
	OutcomeOK OutcomeKind = iota
	OutcomeDecodeError
	OutcomeIOError
	OutcomePermissionDenied
	OutcomeCancelled
	// OutcomeDestinationError means the shared output stream itself failed;
	// the run escalates to Failed instead of skipping the file.
	OutcomeDestinationError
)

// TransferOutcome is returned by the streaming transfer for one file.
type TransferOutcome struct {
	Kind         OutcomeKind
	BytesWritten int64
	Hash         string // SHA-256 hex digest of the content, empty on failure
	Tokens       int    // counted tokens when a tokenizer is configured
	Err          error
}

// FileRecord is the per-file entry carried into the run report.
type FileRecord struct {
	Path          string    `json:"-"`
	Size          int64     `json:"size"`
	Hash          string    `json:"hash"`
	Extension     string    `json:"extension"`
	Tokens        int       `json:"tokens,omitempty"`
	ProcessedTime time.Time `json:"processed_time"`
}

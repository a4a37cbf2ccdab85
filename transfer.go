package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"
)

// destinationFile is the shared output stream contract. The orchestrator
// opens one per run; Seek and Truncate implement the restore-on-failure
// policy, so the stream must not be wrapped in a buffer.
type destinationFile interface {
	io.Writer
	io.Seeker
	Truncate(size int64) error
}

// transferFile streams one source file into the shared destination:
// normalized-path header, content in fixed-size chunks, blank-line
// separator. Content must be valid UTF-8; a multi-byte rune split across
// chunks is carried, not an error. On any failure or cancellation the
// destination is rewound and truncated to its pre-file offset, so the
// output never holds a torn section.
func transferFile(ctx context.Context, dest destinationFile, path string, req ExtractionRequest, q *StatusQueue, tk Tokenizer) TransferOutcome {
	info, err := os.Stat(path)
	if err != nil {
		return TransferOutcome{Kind: classifyFileError(err), Err: fmt.Errorf("stat %s: %w", path, err)}
	}

	if req.SizeWarnBytes > 0 && info.Size() > req.SizeWarnBytes {
		q.PushLog(LevelWarning, fmt.Sprintf("Processing large file beyond configured threshold: %s", path))
	}

	src, err := os.Open(path)
	if err != nil {
		return TransferOutcome{Kind: classifyFileError(err), Err: fmt.Errorf("open %s: %w", path, err)}
	}
	defer src.Close()

	startPos, err := dest.Seek(0, io.SeekCurrent)
	if err != nil {
		return TransferOutcome{Kind: OutcomeDestinationError, Err: fmt.Errorf("locating output position: %w", err)}
	}

	normalized := filepath.ToSlash(filepath.Clean(path))
	digest := sha256.New()

	outcome := copyChunks(ctx, dest, src, normalized, req.ChunkSize, digest, tk)
	if outcome.Kind != OutcomeOK {
		if restoreErr := restoreDestination(dest, startPos); restoreErr != nil {
			return TransferOutcome{Kind: OutcomeDestinationError, Err: restoreErr}
		}
		return outcome
	}

	outcome.Hash = hex.EncodeToString(digest.Sum(nil))
	return outcome
}

// copyChunks runs the chunk loop for one file. Cancellation is checked
// before every read so a large file responds well inside the per-file
// bound.
func copyChunks(ctx context.Context, dest destinationFile, src io.Reader, normalized string, chunkSize int, digest hash.Hash, tk Tokenizer) TransferOutcome {
	buf := make([]byte, chunkSize)
	carry := make([]byte, 0, utf8.UTFMax)
	headerWritten := false
	var written int64
	var tokens int

	writeHeader := func() TransferOutcome {
		n, err := io.WriteString(dest, normalized+":\n")
		if err != nil {
			return TransferOutcome{Kind: OutcomeDestinationError, Err: fmt.Errorf("writing header for %s: %w", normalized, err)}
		}
		written += int64(n)
		headerWritten = true
		return TransferOutcome{Kind: OutcomeOK}
	}

	for {
		if err := ctx.Err(); err != nil {
			return TransferOutcome{Kind: OutcomeCancelled, Err: err}
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			data := buf[:n]
			if len(carry) > 0 {
				joined := make([]byte, 0, len(carry)+n)
				joined = append(joined, carry...)
				joined = append(joined, data...)
				data = joined
				carry = carry[:0]
			}

			keep := completeRunePrefix(data)
			if !utf8.Valid(data[:keep]) {
				return TransferOutcome{Kind: OutcomeDecodeError, Err: fmt.Errorf("invalid UTF-8 in %s", normalized)}
			}
			carry = append(carry, data[keep:]...)

			if !headerWritten {
				if out := writeHeader(); out.Kind != OutcomeOK {
					return out
				}
			}
			if keep > 0 {
				wn, err := dest.Write(data[:keep])
				if err != nil {
					return TransferOutcome{Kind: OutcomeDestinationError, Err: fmt.Errorf("writing %s: %w", normalized, err)}
				}
				written += int64(wn)
				digest.Write(data[:keep])
				if tk != nil {
					// Counted per chunk; a token split at a chunk edge
					// makes the total approximate.
					tokens += tk.CountTokens(string(data[:keep]))
				}
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return TransferOutcome{Kind: classifyFileError(readErr), Err: fmt.Errorf("reading %s: %w", normalized, readErr)}
		}
	}

	if len(carry) > 0 {
		// The file ended inside a multi-byte rune.
		return TransferOutcome{Kind: OutcomeDecodeError, Err: fmt.Errorf("invalid UTF-8 in %s: truncated rune at end of file", normalized)}
	}

	// An empty file still gets its header and separator.
	if !headerWritten {
		if out := writeHeader(); out.Kind != OutcomeOK {
			return out
		}
	}
	n, err := io.WriteString(dest, "\n\n\n")
	if err != nil {
		return TransferOutcome{Kind: OutcomeDestinationError, Err: fmt.Errorf("writing separator for %s: %w", normalized, err)}
	}
	written += int64(n)

	return TransferOutcome{Kind: OutcomeOK, BytesWritten: written, Tokens: tokens}
}

// restoreDestination rewinds the shared stream to the offset recorded
// before the failed file and truncates everything after it.
func restoreDestination(dest destinationFile, startPos int64) error {
	if _, err := dest.Seek(startPos, io.SeekStart); err != nil {
		return fmt.Errorf("restoring output position: %w", err)
	}
	if err := dest.Truncate(startPos); err != nil {
		return fmt.Errorf("truncating output: %w", err)
	}
	return nil
}

// completeRunePrefix returns the length of the longest prefix of p that does
// not end inside a multi-byte rune. At most UTFMax-1 trailing bytes are held
// back; anything outright invalid is left in place for utf8.Valid to reject.
func completeRunePrefix(p []byte) int {
	end := len(p)
	i := end - 1
	for i >= 0 && end-i < utf8.UTFMax && !utf8.RuneStart(p[i]) {
		i--
	}
	if i < 0 || end-i >= utf8.UTFMax {
		return end
	}
	if expected := runeLength(p[i]); expected > end-i {
		return i
	}
	return end
}

// runeLength decodes the declared length of a UTF-8 sequence from its first
// byte. Continuation or illegal lead bytes report 1 so validation fails on
// them instead of carrying them forever.
func runeLength(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	default:
		return 1
	}
}

// classifyFileError maps per-file read failures onto the error taxonomy.
func classifyFileError(err error) OutcomeKind {
	if errors.Is(err, fs.ErrPermission) {
		return OutcomePermissionDenied
	}
	return OutcomeIOError
}

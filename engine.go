package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RunState tracks the orchestrator lifecycle for one run.
type RunState int

const (
	StateIdle RunState = iota
	StateScanning
	StateProcessing
	StateCompleted
	StateCancelled
	StateFailed
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateProcessing:
		return "processing"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// destinationError marks a failure of the shared output stream itself, which
// escalates to a Failed run instead of a skipped file.
type destinationError struct{ err error }

func (e destinationError) Error() string { return fmt.Sprintf("output stream failure: %v", e.err) }
func (e destinationError) Unwrap() error { return e.err }

// Engine drives one extraction run at a time: specification files first,
// then the metadata scan that fixes the progress total, then the sequential
// processing pass. All communication with the consumer flows through the
// status queue; exactly one terminal State message is pushed per run.
type Engine struct {
	queue     *StatusQueue
	tokenizer Tokenizer
	logger    *slog.Logger

	mu           sync.Mutex
	state        RunState
	runID        string
	records      []FileRecord
	fileErrors   []FileError
	errorPaths   map[string]struct{}
	processed    int
	total        int
	skipped      int
	bytesWritten int64
	tokens       int
	lastResult   *TerminalResult
}

// NewEngine wires an engine to its status queue. The tokenizer may be nil
// (token counting disabled); a nil logger falls back to slog.Default.
func NewEngine(queue *StatusQueue, tokenizer Tokenizer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		queue:     queue,
		tokenizer: tokenizer,
		logger:    logger,
		state:     StateIdle,
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LastResult returns the terminal result of the most recently finished run.
func (e *Engine) LastResult() (TerminalResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastResult == nil {
		return TerminalResult{}, false
	}
	return *e.lastResult, true
}

// Records returns the per-file records accumulated by the last run, in
// processing order.
func (e *Engine) Records() []FileRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]FileRecord(nil), e.records...)
}

// Run executes one extraction. The context is the run's cancellation token:
// cancelling it stops the run cooperatively at the next chunk or file
// boundary. Run always pushes exactly one terminal State message and
// returns the same result.
func (e *Engine) Run(ctx context.Context, runID string, req ExtractionRequest) TerminalResult {
	e.reset(runID)
	start := time.Now()
	e.setState(StateScanning)

	info, err := os.Stat(req.FolderPath)
	if err != nil || !info.IsDir() {
		reason := fmt.Sprintf("Folder not found: %s", req.FolderPath)
		e.logger.Error("extraction aborted", "folder", req.FolderPath, "reason", reason)
		return e.finish(start, RunFailed, reason)
	}

	filter, err := newFileFilter(req)
	if err != nil {
		reason := fmt.Sprintf("Error preparing filters: %v", err)
		e.logger.Error("extraction aborted", "reason", reason)
		return e.finish(start, RunFailed, reason)
	}

	dest, err := os.OpenFile(req.OutputPath, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		reason := fmt.Sprintf("Cannot open output file %s: %v", req.OutputPath, err)
		e.logger.Error("extraction aborted", "reason", reason)
		return e.finish(start, RunFailed, reason)
	}

	runErr := e.process(ctx, req, filter, dest)
	closeErr := dest.Close()

	switch {
	case runErr == nil && closeErr != nil:
		reason := fmt.Sprintf("Closing output file %s: %v", req.OutputPath, closeErr)
		e.queue.PushLog(LevelError, reason)
		return e.finish(start, RunFailed, reason)
	case runErr == nil:
		e.queue.PushLog(LevelInfo, fmt.Sprintf(
			"Extraction complete. Processed %d files. Results written to %s.",
			e.snapshotProcessed(), req.OutputPath))
		e.pushMetrics(start)
		return e.finish(start, RunCompleted, "")
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		e.logger.Info("extraction cancelled", "run_id", runID)
		return e.finish(start, RunCancelled, "")
	default:
		reason := fmt.Sprintf("Error during extraction: %v", runErr)
		e.queue.PushLog(LevelError, reason)
		return e.finish(start, RunFailed, reason)
	}
}

// process performs the specification-file pass, the scan, and the main
// loop. A nil return means the run completed; context errors mean
// cancellation; a destinationError or any other error fails the run.
func (e *Engine) process(ctx context.Context, req ExtractionRequest, filter *fileFilter, dest destinationFile) error {
	specSkip, err := e.processSpecifications(ctx, req, dest)
	if err != nil {
		return err
	}

	total, traversalErrs, err := scanTotal(ctx, req, filter, specSkip)
	if err != nil {
		return err
	}
	for _, te := range traversalErrs {
		e.recordTraversalError(te)
	}

	e.mu.Lock()
	e.total = total
	e.mu.Unlock()
	e.queue.PushProgress(ProgressSnapshot{Processed: 0, Total: total})
	e.setState(StateProcessing)

	return walkCandidates(ctx, req.FolderPath, filter, specSkip,
		func(te TraversalError) {
			// Directories already recorded by the scan pass are not
			// duplicated; a failure new to this pass still surfaces.
			e.recordTraversalError(te)
		},
		func(cand FileCandidate) error {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			return e.handleCandidate(ctx, req, dest, cand)
		})
}

// handleCandidate transfers one qualifying file and applies the per-file
// failure policy: errors are recorded and the run moves on.
func (e *Engine) handleCandidate(ctx context.Context, req ExtractionRequest, dest destinationFile, cand FileCandidate) error {
	outcome := transferFile(ctx, dest, cand.Path, req, e.queue, e.tokenizer)
	switch outcome.Kind {
	case OutcomeOK:
		e.recordSuccess(cand.Path, cand.Size, cand.Ext, outcome, true)
		e.queue.PushProgress(ProgressSnapshot{
			Processed:   e.snapshotProcessed(),
			Total:       e.snapshotTotal(),
			CurrentPath: cand.Path,
		})
		e.logger.Debug("processed file", "path", cand.Path, "bytes", outcome.BytesWritten)
		return nil
	case OutcomeCancelled:
		return outcome.Err
	case OutcomeDestinationError:
		return destinationError{err: outcome.Err}
	default:
		e.recordFailure(cand.Path, outcome)
		return nil
	}
}

// processSpecifications transfers README.md and SPECIFICATIONS.md from the
// root before anything else, bypassing all filters. The returned set keeps
// the traversal passes from visiting them again.
func (e *Engine) processSpecifications(ctx context.Context, req ExtractionRequest, dest destinationFile) (map[string]struct{}, error) {
	skip := make(map[string]struct{}, len(SpecificationFiles))
	for _, name := range SpecificationFiles {
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}

		path := filepath.Join(req.FolderPath, name)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		e.logger.Info("processing specification file", "path", path)
		outcome := transferFile(ctx, dest, path, req, e.queue, e.tokenizer)
		switch outcome.Kind {
		case OutcomeOK:
			e.recordSuccess(path, info.Size(), canonicalExt(name), outcome, false)
		case OutcomeCancelled:
			return nil, outcome.Err
		case OutcomeDestinationError:
			return nil, destinationError{err: outcome.Err}
		default:
			e.recordFailure(path, outcome)
		}
		skip[path] = struct{}{}
	}
	return skip, nil
}

// recordSuccess books a transferred file into report state. Specification
// files pass countProgress=false: they appear in the report and the byte
// totals but never in the progress counters.
func (e *Engine) recordSuccess(path string, size int64, ext string, outcome TransferOutcome, countProgress bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if countProgress {
		e.processed++
	}
	e.bytesWritten += outcome.BytesWritten
	e.tokens += outcome.Tokens
	e.records = append(e.records, FileRecord{
		Path:          filepath.ToSlash(filepath.Clean(path)),
		Size:          size,
		Hash:          outcome.Hash,
		Extension:     ext,
		Tokens:        outcome.Tokens,
		ProcessedTime: time.Now(),
	})
}

// recordFailure books a per-file error and emits the matching Log message.
func (e *Engine) recordFailure(path string, outcome TransferOutcome) {
	kind := errorKindFor(outcome.Kind)
	var text string
	if kind == ErrKindDecode {
		text = fmt.Sprintf("Cannot decode file %s: %v", path, outcome.Err)
	} else {
		text = fmt.Sprintf("Error processing %s: %v", path, outcome.Err)
	}

	e.mu.Lock()
	e.skipped++
	e.fileErrors = append(e.fileErrors, FileError{Path: path, Kind: kind, Message: text})
	e.mu.Unlock()

	e.logger.Warn("file skipped", "path", path, "kind", string(kind))
	e.queue.PushLog(LevelError, text)
}

// recordTraversalError books an unreadable directory once per path.
func (e *Engine) recordTraversalError(te TraversalError) {
	e.mu.Lock()
	if _, seen := e.errorPaths[te.Path]; seen {
		e.mu.Unlock()
		return
	}
	e.errorPaths[te.Path] = struct{}{}
	text := fmt.Sprintf("Cannot access %s: %v", te.Path, te.Err)
	e.fileErrors = append(e.fileErrors, FileError{Path: te.Path, Kind: te.Kind, Message: text})
	e.mu.Unlock()

	e.logger.Warn("subtree skipped", "path", te.Path, "kind", string(te.Kind))
	e.queue.PushLog(LevelWarning, text)
}

// pushMetrics emits the end-of-run instrumentation line.
func (e *Engine) pushMetrics(start time.Time) {
	elapsed := time.Since(start).Seconds()
	processed := e.snapshotProcessed()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(processed) / elapsed
	}
	e.queue.PushLog(LevelInfo, fmt.Sprintf(
		"Extraction metrics: processed=%d, elapsed=%.2fs, rate=%.2f files/s, max_queue_depth=%d",
		processed, elapsed, rate, e.queue.MaxDepth()))
}

// finish assembles the terminal result, moves to the terminal state, and
// pushes the single State message for the run.
func (e *Engine) finish(start time.Time, outcome Outcome, reason string) TerminalResult {
	elapsed := time.Since(start)

	e.mu.Lock()
	result := TerminalResult{
		Outcome:        outcome,
		RunID:          e.runID,
		Processed:      e.processed,
		Total:          e.total,
		Skipped:        e.skipped,
		BytesWritten:   e.bytesWritten,
		Tokens:         e.tokens,
		Elapsed:        elapsed,
		ElapsedSeconds: elapsed.Seconds(),
		Reason:         reason,
		Errors:         append([]FileError(nil), e.fileErrors...),
	}
	if result.ElapsedSeconds > 0 {
		result.FilesPerSecond = float64(result.Processed) / result.ElapsedSeconds
	}

	switch outcome {
	case RunCompleted:
		e.state = StateCompleted
	case RunCancelled:
		e.state = StateCancelled
	default:
		e.state = StateFailed
	}
	e.mu.Unlock()

	// PushState stamps the final dropped/depth counters into the result.
	e.queue.PushState(result)
	result.DroppedMessages = e.queue.Dropped()
	result.MaxQueueDepth = e.queue.MaxDepth()

	e.mu.Lock()
	e.lastResult = &result
	e.mu.Unlock()
	return result
}

func (e *Engine) reset(runID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateIdle
	e.runID = runID
	e.records = nil
	e.fileErrors = nil
	e.errorPaths = make(map[string]struct{})
	e.processed = 0
	e.total = 0
	e.skipped = 0
	e.bytesWritten = 0
	e.tokens = 0
	e.lastResult = nil
}

func (e *Engine) setState(s RunState) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) snapshotProcessed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.processed
}

func (e *Engine) snapshotTotal() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.total
}

// errorKindFor maps transfer outcomes onto the report error taxonomy.
func errorKindFor(kind OutcomeKind) ErrorKind {
	switch kind {
	case OutcomeDecodeError:
		return ErrKindDecode
	case OutcomePermissionDenied:
		return ErrKindPermission
	case OutcomeCancelled:
		return ErrKindCancelled
	default:
		return ErrKindIO
	}
}

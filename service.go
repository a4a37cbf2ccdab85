package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ErrExtractionInProgress is returned by Start while a run is active.
var ErrExtractionInProgress = errors.New("extraction already in progress")

// ErrNoReport is returned by Report before any run has finished.
var ErrNoReport = errors.New("no extraction data available")

// Service owns run lifecycle around one Engine: a single run at a time on a
// background goroutine, cooperative cancellation, and report access after
// the run ends. Consumers drain the status queue directly.
type Service struct {
	queue  *StatusQueue
	engine *Engine
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	runID   string
	lastReq *ExtractionRequest
}

// NewService wires a service around an engine and its queue. A nil logger
// falls back to slog.Default.
func NewService(queue *StatusQueue, engine *Engine, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{queue: queue, engine: engine, logger: logger}
}

// Queue exposes the status queue for consumers to drain.
func (s *Service) Queue() *StatusQueue { return s.queue }

// Start launches a background extraction run and returns its run ID. A
// second Start while one is active returns ErrExtractionInProgress. The
// supplied context is the parent of the run's cancellation token; Cancel
// and parent cancellation both stop the run.
func (s *Service) Start(ctx context.Context, req ExtractionRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return "", ErrExtractionInProgress
	}

	runID := uuid.NewString()
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.running = true
	s.cancel = cancel
	s.done = done
	s.runID = runID
	reqCopy := req
	s.lastReq = &reqCopy

	s.logger.Info("extraction started", "run_id", runID, "folder", req.FolderPath)

	go func() {
		defer close(done)
		defer cancel()
		s.engine.Run(runCtx, runID, req)
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	return runID, nil
}

// Cancel requests cooperative cancellation of the active run. Safe to call
// repeatedly and when nothing is running.
func (s *Service) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	running := s.running
	s.mu.Unlock()

	if !running || cancel == nil {
		return
	}
	s.queue.PushLog(LevelInfo, "Extraction cancellation requested")
	s.logger.Info("extraction cancellation requested")
	cancel()
}

// Running reports whether a run is currently active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Wait blocks until the current run's goroutine exits. Returns immediately
// when no run was ever started.
func (s *Service) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Report assembles the run report of the most recently finished run.
func (s *Service) Report() (RunReport, error) {
	result, ok := s.engine.LastResult()
	if !ok {
		return RunReport{}, ErrNoReport
	}

	s.mu.Lock()
	req := s.lastReq
	s.mu.Unlock()
	if req == nil {
		return RunReport{}, ErrNoReport
	}

	return buildRunReport(*req, result, s.engine.Records()), nil
}

package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v2"
	"golang.org/x/term"
)

// DefaultPollInterval is how long the drain loop waits on an empty queue
// before checking again.
const DefaultPollInterval = 100 * time.Millisecond

// StatusReporter renders status messages for one consumer surface.
type StatusReporter interface {
	ReportLog(level LogLevel, text string)
	ReportProgress(snapshot ProgressSnapshot)
	ReportResult(result TerminalResult)
}

// drainStatus consumes the queue until the terminal State message arrives,
// forwarding every message to the reporter. It returns the terminal result.
// The engine always pushes exactly one State per run, so the loop terminates.
func drainStatus(q *StatusQueue, reporter StatusReporter, poll time.Duration) TerminalResult {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	for {
		msg, ok := q.Pop(poll)
		if !ok {
			continue
		}
		switch msg.Class {
		case ClassLog:
			reporter.ReportLog(msg.Level, msg.Text)
		case ClassProgress:
			reporter.ReportProgress(msg.Progress)
		case ClassState:
			reporter.ReportResult(msg.Result)
			return msg.Result
		}
	}
}

// ConsoleReporter renders status for humans: logs through the structured
// logger, progress as a terminal bar on stderr when stderr is a TTY.
type ConsoleReporter struct {
	logger      *slog.Logger
	interactive bool

	bar   *progressbar.ProgressBar
	total int
}

// NewConsoleReporter builds a console reporter. showProgress disables the bar
// when false regardless of the terminal; the bar is also suppressed when
// stderr is not a terminal.
func NewConsoleReporter(logger *slog.Logger, showProgress bool) *ConsoleReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsoleReporter{
		logger:      logger,
		interactive: showProgress && term.IsTerminal(int(os.Stderr.Fd())),
	}
}

func (r *ConsoleReporter) ReportLog(level LogLevel, text string) {
	switch level {
	case LevelDebug:
		r.logger.Debug(text)
	case LevelWarning:
		r.logger.Warn(text)
	case LevelError:
		r.logger.Error(text)
	default:
		r.logger.Info(text)
	}
}

func (r *ConsoleReporter) ReportProgress(snapshot ProgressSnapshot) {
	if !r.interactive || snapshot.Total <= 0 {
		return
	}
	if r.bar == nil || snapshot.Total != r.total {
		r.total = snapshot.Total
		r.bar = progressbar.NewOptions(snapshot.Total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("extracting"),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = r.bar.Set(snapshot.Processed)
}

func (r *ConsoleReporter) ReportResult(result TerminalResult) {
	if r.bar != nil {
		_ = r.bar.Finish()
		r.bar = nil
	}
}

// JSONEvent is the structured event format for machine-readable output.
type JSONEvent struct {
	Type      string      `json:"type"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// JSONLogData carries one log message in structured form.
type JSONLogData struct {
	Level   LogLevel `json:"level"`
	Message string   `json:"message"`
}

// JSONReporter outputs machine-readable JSON lines for scripting/automation.
type JSONReporter struct {
	encoder *json.Encoder
}

func NewJSONReporter() *JSONReporter {
	return &JSONReporter{
		encoder: json.NewEncoder(os.Stdout),
	}
}

func (r *JSONReporter) emit(eventType string, data interface{}) {
	event := JSONEvent{
		Type:      eventType,
		Timestamp: time.Now().Format(time.RFC3339Nano),
		Data:      data,
	}
	_ = r.encoder.Encode(event)
}

func (r *JSONReporter) ReportLog(level LogLevel, text string) {
	r.emit(ClassLog.String(), JSONLogData{Level: level, Message: text})
}

func (r *JSONReporter) ReportProgress(snapshot ProgressSnapshot) {
	r.emit(ClassProgress.String(), snapshot)
}

func (r *JSONReporter) ReportResult(result TerminalResult) {
	r.emit(ClassState.String(), result)
}

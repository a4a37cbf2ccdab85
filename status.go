package main

import (
	"container/list"
	"sync"
	"time"
)

// LogLevel labels Log status messages.
type LogLevel string

const (
	LevelDebug   LogLevel = "debug"
	LevelInfo    LogLevel = "info"
	LevelWarning LogLevel = "warning"
	LevelError   LogLevel = "error"
)

// MessageClass discriminates the StatusMessage union.
type MessageClass int

const (
	ClassLog MessageClass = iota
	ClassProgress
	ClassState
)

// String returns the wire name of the class, used by the JSON event stream.
func (c MessageClass) String() string {
	switch c {
	case ClassLog:
		return "log"
	case ClassProgress:
		return "progress"
	case ClassState:
		return "state"
	default:
		return "unknown"
	}
}

// ProgressSnapshot is the payload of a Progress message. Total is fixed
// before the first snapshot of a run and never changes; Processed never
// decreases and never exceeds Total.
type ProgressSnapshot struct {
	Processed   int    `json:"processed"`
	Total       int    `json:"total"`
	CurrentPath string `json:"current_path,omitempty"`
}

// Outcome tags the terminal result of a run.
type Outcome string

const (
	RunCompleted Outcome = "completed"
	RunCancelled Outcome = "cancelled"
	RunFailed    Outcome = "failed"
)

// TerminalResult is the payload of the single State message of a run.
type TerminalResult struct {
	Outcome         Outcome       `json:"outcome"`
	RunID           string        `json:"run_id"`
	Processed       int           `json:"processed"`
	Total           int           `json:"total"`
	Skipped         int           `json:"skipped"`
	BytesWritten    int64         `json:"bytes_written"`
	Tokens          int           `json:"tokens,omitempty"`
	Elapsed         time.Duration `json:"-"`
	ElapsedSeconds  float64       `json:"elapsed_seconds"`
	FilesPerSecond  float64       `json:"files_per_second"`
	DroppedMessages int           `json:"dropped_messages"`
	MaxQueueDepth   int           `json:"max_queue_depth"`
	Reason          string        `json:"reason,omitempty"`
	Errors          []FileError   `json:"errors,omitempty"`
}

// StatusMessage is the tagged union flowing through the status queue.
// Exactly one of the payload fields is meaningful, selected by Class.
type StatusMessage struct {
	Class     MessageClass
	Timestamp time.Time

	Level LogLevel
	Text  string

	Progress ProgressSnapshot
	Result   TerminalResult
}

// StatusQueue is the bounded multi-class FIFO between the engine and its
// consumer. Push never blocks: when full it evicts by class priority. A
// State message is never lost; Progress coalesces; only Log messages are
// ever dropped, and every dropped Log is counted.
//
// Eviction on push while full:
//   - State evicts the oldest Log, else the oldest Progress.
//   - Progress evicts the oldest Log, else the oldest Progress.
//   - Log evicts the oldest Log, else the incoming Log is dropped.
//
// Safe for one producer and one consumer without external locking.
type StatusQueue struct {
	mu       sync.Mutex
	items    *list.List
	capacity int
	dropped  int
	maxDepth int
	notify   chan struct{}
}

// NewStatusQueue returns a queue with the given capacity. Capacity must be
// positive; DefaultQueueCapacity is the conventional size.
func NewStatusQueue(capacity int) *StatusQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &StatusQueue{
		items:    list.New(),
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

// PushLog enqueues a Log message, subject to the eviction policy.
func (q *StatusQueue) PushLog(level LogLevel, text string) {
	q.push(StatusMessage{Class: ClassLog, Timestamp: time.Now(), Level: level, Text: text})
}

// PushProgress enqueues a Progress snapshot, subject to the eviction policy.
func (q *StatusQueue) PushProgress(snapshot ProgressSnapshot) {
	q.push(StatusMessage{Class: ClassProgress, Timestamp: time.Now(), Progress: snapshot})
}

// PushState enqueues the terminal State. It always succeeds, and it stamps
// the final droppedMessages and maxQueueDepth counters into the result under
// the queue lock so the surfaced numbers include its own eviction.
func (q *StatusQueue) PushState(result TerminalResult) {
	q.push(StatusMessage{Class: ClassState, Timestamp: time.Now(), Result: result})
}

func (q *StatusQueue) push(msg StatusMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.Len() >= q.capacity {
		if !q.evictFor(msg.Class) {
			// Nothing evictable for this class: a Log is dropped and
			// counted, a Progress is superseded by what is already queued.
			if msg.Class == ClassLog {
				q.dropped++
			}
			if msg.Class != ClassState {
				return
			}
			// A queue of nothing but State messages cannot occur in a
			// single run, but the policy stays total: make room anyway.
			if front := q.items.Front(); front != nil {
				q.items.Remove(front)
			}
		}
	}

	if depth := q.items.Len() + 1; depth > q.maxDepth {
		q.maxDepth = depth
	}
	if msg.Class == ClassState {
		msg.Result.DroppedMessages = q.dropped
		msg.Result.MaxQueueDepth = q.maxDepth
	}

	q.items.PushBack(msg)

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// evictFor removes the oldest message sacrificable to an incoming message of
// the given class and reports whether room was made.
func (q *StatusQueue) evictFor(incoming MessageClass) bool {
	if e := q.oldestOf(ClassLog); e != nil {
		q.items.Remove(e)
		q.dropped++
		return true
	}
	if incoming == ClassLog {
		return false
	}
	if e := q.oldestOf(ClassProgress); e != nil {
		q.items.Remove(e)
		return true
	}
	return false
}

func (q *StatusQueue) oldestOf(class MessageClass) *list.Element {
	for e := q.items.Front(); e != nil; e = e.Next() {
		if e.Value.(StatusMessage).Class == class {
			return e
		}
	}
	return nil
}

// Pop removes the oldest message, waiting up to timeout for one to arrive.
// The second return is false when the wait expired empty.
func (q *StatusQueue) Pop(timeout time.Duration) (StatusMessage, bool) {
	deadline := time.Now().Add(timeout)
	for {
		if msg, ok := q.TryPop(); ok {
			return msg, true
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return StatusMessage{}, false
		}
		timer := time.NewTimer(remaining)
		select {
		case <-q.notify:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// TryPop removes the oldest message without waiting.
func (q *StatusQueue) TryPop() (StatusMessage, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	front := q.items.Front()
	if front == nil {
		return StatusMessage{}, false
	}
	return q.items.Remove(front).(StatusMessage), true
}

// Len reports the current queue depth.
func (q *StatusQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Dropped reports how many Log messages have been lost so far.
func (q *StatusQueue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// MaxDepth reports the deepest the queue has been during the run.
func (q *StatusQueue) MaxDepth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.maxDepth
}

// Package trace is the Chrome-tracing JSON sink (spec.md §6): an
// incremental writer that emits one event object per line, opening with
// `[` and closing with the documented `{}` EOF placeholder so a trailing
// comma after the last real event stays legal JSON.
//
// Adapted from the teacher's tracing.JSONTracer incremental-write idiom
// (open bracket up front, one Marshal-and-write per event, finish on
// close) generalized from task Start/End pairs to the engine's begin/end
// event pairs.
package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/tebeka/atexit"
)

// Category discriminates the three event categories the engine emits.
type Category string

const (
	// CategoryOperation marks an op's begin/end pair on its launcher's pid.
	CategoryOperation Category = "operation"
	// CategoryMemory marks a memory device's begin/end pair, tid = device UID.
	CategoryMemory Category = "memory"
	// CategoryEqueue marks a launcher's stall interval (queue-ready to
	// actually-started), per spec.md §8-S6.
	CategoryEqueue Category = "equeue"
)

// Phase discriminates begin vs. end events.
type Phase string

const (
	// PhaseBegin opens an interval.
	PhaseBegin Phase = "B"
	// PhaseEnd closes an interval.
	PhaseEnd Phase = "E"
)

// Event is the documented Chrome-tracing JSON shape (spec.md §6): name,
// cat, ph, ts (virtual cycles), pid, tid, args.
type Event struct {
	Name string         `json:"name"`
	Cat  Category       `json:"cat"`
	Ph   Phase          `json:"ph"`
	TS   uint64         `json:"ts"`
	PID  int            `json:"pid"`
	TID  uint64         `json:"tid"`
	Args map[string]any `json:"args"`
}

// Sink streams events incrementally to an io.Writer. Safe for concurrent
// Emit calls — the only goroutine that shares a Sink with the single-
// threaded engine is the optional monitor sampler, and even that one
// never calls Emit, but the lock keeps the type safe to reuse elsewhere.
type Sink struct {
	w        io.Writer
	mu       sync.Mutex
	wroteOne bool
	closed   bool
}

// NewSink opens the trace document on w (writes the leading `[`) and
// registers Close with atexit so a fatal diagnostic still flushes the
// trace prefix emitted so far (spec.md §7).
func NewSink(w io.Writer) (*Sink, error) {
	if _, err := io.WriteString(w, "[\n"); err != nil {
		return nil, fmt.Errorf("trace: writing opening bracket: %w", err)
	}

	s := &Sink{w: w}
	atexit.Register(func() { _ = s.Close() })

	return s, nil
}

// Emit writes one event as a JSON object line, per spec.md §6's "one
// event per line as an object".
func (s *Sink) Emit(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("trace: emit on closed sink")
	}

	if s.wroteOne {
		if _, err := io.WriteString(s.w, ",\n"); err != nil {
			return err
		}
	}
	s.wroteOne = true

	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("trace: marshaling event: %w", err)
	}
	_, err = s.w.Write(b)
	return err
}

// Close writes the `{}` EOF placeholder and the closing `]`, per spec.md
// §9's "preserve this exactly" note. Idempotent: a second Close is a
// no-op, since atexit.Register may fire it after an explicit call.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.wroteOne {
		if _, err := io.WriteString(s.w, ",\n"); err != nil {
			return err
		}
	}
	_, err := io.WriteString(s.w, "{}\n]\n")
	return err
}

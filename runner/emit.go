package runner

import (
	"github.com/sarchlab/irsim/gir"
	"github.com/sarchlab/irsim/launcher"
	"github.com/sarchlab/irsim/trace"
)

// emitBegin emits the begin half of an op's trace interval: a stall
// ("equeue") pair if the op sat ready-but-unscheduled since before
// start_time (spec.md §8-S6), then an "operation" begin (skipped for
// structural/control ops, per spec.md §4.4's zero-cost row), then one
// "memory" begin per device the op touches.
func (r *Runner) emitBegin(t *launcher.Table, op *gir.Op, entry *launcher.OpEntry) error {
	if entry.QueueReadyTime < entry.StartTime {
		if err := r.sink.Emit(trace.Event{
			Name: "stall", Cat: trace.CategoryEqueue, Ph: trace.PhaseBegin,
			TS: entry.QueueReadyTime, PID: t.PID,
		}); err != nil {
			return err
		}
		if err := r.sink.Emit(trace.Event{
			Name: "stall", Cat: trace.CategoryEqueue, Ph: trace.PhaseEnd,
			TS: entry.StartTime, PID: t.PID,
		}); err != nil {
			return err
		}
	}

	if op.Kind.IsStructural() {
		return nil
	}

	if err := r.sink.Emit(trace.Event{
		Name: op.Kind.String(), Cat: trace.CategoryOperation, Ph: trace.PhaseBegin,
		TS: entry.StartTime, PID: t.PID,
		Args: map[string]any{"op": int(op.ID)},
	}); err != nil {
		return err
	}

	for _, tid := range entry.MemTIDs {
		if err := r.sink.Emit(trace.Event{
			Name: op.Kind.String(), Cat: trace.CategoryMemory, Ph: trace.PhaseBegin,
			TS: entry.StartTime, PID: t.PID, TID: tid,
		}); err != nil {
			return err
		}
	}

	return nil
}

// emitEnd emits the matched "operation"/"memory" end events for a
// retiring op, mirroring emitBegin's begins.
func (r *Runner) emitEnd(t *launcher.Table, op *gir.Op, entry *launcher.OpEntry) error {
	if op.Kind.IsStructural() {
		return nil
	}

	if err := r.sink.Emit(trace.Event{
		Name: op.Kind.String(), Cat: trace.CategoryOperation, Ph: trace.PhaseEnd,
		TS: entry.EndTime, PID: t.PID,
		Args: map[string]any{"op": int(op.ID)},
	}); err != nil {
		return err
	}

	for _, tid := range entry.MemTIDs {
		if err := r.sink.Emit(trace.Event{
			Name: op.Kind.String(), Cat: trace.CategoryMemory, Ph: trace.PhaseEnd,
			TS: entry.EndTime, PID: t.PID, TID: tid,
		}); err != nil {
			return err
		}
	}

	return nil
}

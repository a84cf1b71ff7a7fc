package runner

import (
	"fmt"

	"github.com/sarchlab/irsim/gir"
	"github.com/sarchlab/irsim/launcher"
	"github.com/sarchlab/irsim/signal"
)

// advanceCursor implements spec.md §4.3's advance_cursor: while current
// is empty and the cursor has more ops, classify the next op and either
// hand it to a target launcher's event queue (async), descend into a
// nested region (for-loop), reposition the cursor (yield), or take it as
// current directly (everything else).
func (r *Runner) advanceCursor(t *launcher.Table) (bool, error) {
	progressed := false

	for t.Current() == nil {
		if t.AtEnd(r.g) {
			if t.Depth() > 1 {
				t.Ascend()
				progressed = true
				continue
			}
			return progressed, nil
		}

		opID := t.PeekOp(r.g)
		op := r.g.Op(opID)

		switch {
		case op.Kind.IsAsync():
			target, err := r.resolveTarget(op)
			if err != nil {
				return progressed, err
			}
			target.Enqueue(opID)
			t.StepCursor()
			progressed = true

		case op.Kind == gir.OpFor:
			t.SetCurrent(&launcher.OpEntry{Op: opID, QueueReadyTime: r.time})
			t.StepCursor()
			t.Descend(op.Region)
			progressed = true

		case op.Kind == gir.OpYield:
			forOpID, ok := r.g.ParentOp(op.Block)
			if !ok {
				return progressed, fmt.Errorf("runner: yield op %d is not inside a for-loop body", opID)
			}
			r.identity.OpConsumed[opID]++
			if r.isFinalYield(forOpID, opID) {
				t.Ascend()
			} else {
				t.RestartTop()
			}
			t.SetCurrent(&launcher.OpEntry{Op: opID, QueueReadyTime: r.time})
			progressed = true

		default:
			t.SetCurrent(&launcher.OpEntry{Op: opID, QueueReadyTime: r.time})
			t.StepCursor()
			progressed = true
		}
	}

	return progressed, nil
}

// isFinalYield reports whether op_consumed[yield] (already incremented
// for this attempt) lands on the for-loop's last iteration, per spec.md
// §4.5's "op_consumed % trip_count == 0" rule. A zero-trip loop has no
// body to yield from, so it is vacuously never reached.
func (r *Runner) isFinalYield(forOpID, yieldOpID gir.OpID) bool {
	trips := r.identity.TripCount(forOpID)
	if trips == 0 {
		return true
	}
	return r.identity.OpConsumed[yieldOpID]%trips == 0
}

// drainEventQueue implements spec.md §4.3's drain_event_queue: repeatedly
// inspect the head of the event queue, resolving a pure control signal
// inline (no OpEntry, it never occupies current) and otherwise installing
// a ready launch/memcopy as current, one admission per tick.
func (r *Runner) drainEventQueue(t *launcher.Table) (bool, error) {
	progressed := false

	for !t.QueueEmpty() {
		opID := t.QueueHead()
		op := r.g.Op(opID)

		if op.Kind.IsControlSignal() {
			if !signal.OpReady(r.identity, op) {
				t.MarkHeadSeen(opID, r.time)
				break
			}
			r.identity.OpConsumed[opID]++
			for _, res := range op.Results {
				if res.Type.Signal {
					r.identity.Bump(res.ID)
				}
			}
			t.PopQueueHead()
			progressed = true
			continue
		}

		if !signal.OpReady(r.identity, op) {
			t.MarkHeadSeen(opID, r.time)
			break
		}

		if t.Current() != nil {
			break // one new in-flight at a time
		}

		readyAt := t.MarkHeadSeen(opID, r.time)
		r.identity.OpConsumed[opID]++
		entry := &launcher.OpEntry{Op: opID, QueueReadyTime: readyAt}
		t.SetCurrent(entry)
		if op.Kind == gir.OpLaunch {
			t.Descend(op.Region)
		}
		t.PopQueueHead()
		progressed = true
		break
	}

	return progressed, nil
}

// scheduleOne implements spec.md §4.3's schedule: if current is empty or
// already started, do nothing. Otherwise gate on its signal operands
// (skipped for for, yield, launch and memcopy, which are never gated
// here), compute its cost via the built-in rules or the Device Registry,
// and emit begin trace events.
func (r *Runner) scheduleOne(t *launcher.Table) (bool, error) {
	entry := t.Current()
	if entry == nil || entry.Started {
		return false, nil
	}

	op := r.g.Op(entry.Op)

	switch op.Kind {
	case gir.OpFor, gir.OpYield, gir.OpLaunch, gir.OpMemCopy:
		// launch/memcopy were gated and op_consumed-bumped by
		// drainEventQueue, yield was bumped (not gated) by advanceCursor,
		// and for is neither gated nor bumped; schedule only times and
		// costs them.
	default:
		if !signal.OpReady(r.identity, op) {
			return false, nil
		}
		r.identity.OpConsumed[entry.Op]++
	}

	entry.StartTime = r.time
	entry.Started = true

	cost, memTIDs, err := r.costOf(op)
	if err != nil {
		return false, err
	}
	entry.EndTime = r.time + cost
	entry.MemTIDs = memTIDs

	if err := r.emitBegin(t, op, entry); err != nil {
		return false, err
	}

	return true, nil
}

// retireOne implements spec.md §4.3's retire: if the current op's
// end_time has been reached, emit end events, propagate signals per
// spec.md §4.5, and clear current.
func (r *Runner) retireOne(t *launcher.Table) (bool, error) {
	entry := t.Current()
	if entry == nil || !entry.Started || entry.EndTime > r.time {
		return false, nil
	}

	op := r.g.Op(entry.Op)

	if err := r.emitEnd(t, op, entry); err != nil {
		return false, err
	}

	if r.recorder != nil {
		deviceUID := int64(0)
		if len(entry.MemTIDs) > 0 {
			deviceUID = int64(entry.MemTIDs[0])
		}
		r.recorder.RecordOp(int64(op.ID), op.Kind.String(), int64(t.PID), deviceUID, int64(entry.StartTime), int64(entry.EndTime))
	}

	if err := r.propagate(t, op); err != nil {
		return false, err
	}

	t.ClearCurrent()
	return true, nil
}

// propagate implements spec.md §4.5's per-kind signal-propagation rules.
func (r *Runner) propagate(t *launcher.Table, op *gir.Op) error {
	switch op.Kind {
	case gir.OpMemCopy:
		for _, res := range op.Results {
			if res.Type.Signal {
				r.identity.Bump(res.ID)
			}
		}

	case gir.OpLaunch:
		region := r.g.Block(op.Region)
		for i, arg := range region.Args {
			r.identity.Bind(arg.ID, op.Operands[i+1].Value)
		}

	case gir.OpReturn:
		launchOpID, ok := r.g.ParentOp(op.Block)
		if !ok {
			// Top-level return terminating the graph function itself —
			// no enclosing launch to bind results into.
			return nil
		}
		launchOp := r.g.Op(launchOpID)
		r.identity.Bump(launchOp.Results[0].ID)
		for i, operand := range op.Operands {
			r.identity.Bind(launchOp.Results[i+1].ID, operand.Value)
		}

	case gir.OpFor:
		region := r.g.Block(op.Region)
		for i, arg := range region.Args {
			r.identity.Bind(arg.ID, op.Operands[i].Value)
		}

	case gir.OpYield:
		forOpID, ok := r.g.ParentOp(op.Block)
		if !ok {
			return fmt.Errorf("runner: yield op %d is not inside a for-loop body", op.ID)
		}
		forOp := r.g.Op(forOpID)
		if r.isFinalYield(forOpID, op.ID) {
			for i, res := range forOp.Results {
				r.identity.Bind(res.ID, op.Operands[i].Value)
			}
		} else {
			region := r.g.Block(forOp.Region)
			for i, arg := range region.Args {
				r.identity.Bind(arg.ID, op.Operands[i].Value)
			}
		}

	case gir.OpCreateMem:
		handle := op.Results[0].ID
		kind := op.AttrString("kind")
		lines := op.AttrInt64("lines")
		elemBytes := op.AttrInt64("elemBytes")
		if _, err := r.devices.CreateMemory(handle, kind, lines, elemBytes); err != nil {
			return &UnknownMemoryKindError{Op: op.ID, Err: err}
		}

	case gir.OpCreateDMA:
		handle := op.Results[0].ID
		r.devices.CreateDMA(handle)
		r.registerLauncher(handle, "dma")

	case gir.OpCreateProc:
		handle := op.Results[0].ID
		r.registerLauncher(handle, "proc")

	case gir.OpMemRead, gir.OpMemWrite, gir.OpCompute:
		for _, res := range op.Results {
			if res.Type.Signal {
				r.identity.Bump(res.ID)
			}
		}

	case gir.OpConst, gir.OpAwait:
		// No signal results to propagate.
	}

	return nil
}

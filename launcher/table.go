// Package launcher implements the Launcher Table (spec.md §3, §4.3): the
// per-dispatch-target state machine holding a cursor into the block
// currently being unrolled, a FIFO of async ops awaiting this launcher's
// attention, and at most one in-flight op. Table itself stays free of
// identity/signal/device knowledge — those cross-cutting concerns are
// orchestrated by the runner package's event loop, which calls these
// primitives in the order spec.md §4.7 describes.
package launcher

import "github.com/sarchlab/irsim/gir"

// OpEntry is a launcher's record of its current in-flight op and its
// timing window (spec.md §3). QueueReadyTime is, for an op taken from the
// cursor, the time it became current, and for an op admitted from the
// event queue, the first tick it was found not ready at the queue head
// (see MarkHeadSeen). Whenever QueueReadyTime is earlier than StartTime,
// that gap is the stall spec.md §8-S6 expects traced on the "equeue"
// category.
type OpEntry struct {
	Op             gir.OpID
	QueueReadyTime uint64
	StartTime      uint64
	Started        bool
	EndTime        uint64
	MemTIDs        []uint64
}

// frame is one level of a Table's block/cursor stack. Descending into a
// launch body or a for-loop body pushes a frame; ascending back out pops
// it, restoring the enclosing block's cursor position exactly where it
// left off (spec.md §4.3's "new block/cursor").
type frame struct {
	block  gir.BlockID
	cursor int
}

// Table is one launcher (the host, or a processor/DMA created during
// simulated execution) per spec.md §3's Launcher Table.
type Table struct {
	// Name identifies the launcher for trace args and diagnostics.
	Name string
	// PID is the trace pid this launcher occupies (spec.md §6).
	PID int

	stack   []frame
	queue   []gir.OpID
	headAt  map[gir.OpID]uint64
	current *OpEntry
}

// NewTable creates a launcher positioned at the start of root.
func NewTable(name string, pid int, root gir.BlockID) *Table {
	return &Table{
		Name:   name,
		PID:    pid,
		stack:  []frame{{block: root, cursor: 0}},
		headAt: make(map[gir.OpID]uint64),
	}
}

// Block returns the block the cursor currently points into.
func (t *Table) Block() gir.BlockID { return t.stack[len(t.stack)-1].block }

// Depth reports how many nested regions the cursor is inside (1 at the
// launcher's root block).
func (t *Table) Depth() int { return len(t.stack) }

// AtEnd reports whether the cursor has exhausted every op in its current
// block.
func (t *Table) AtEnd(g gir.Reader) bool {
	top := t.stack[len(t.stack)-1]
	if top.block == gir.NoBlock {
		// A launcher created by create_proc/create_dma has no body of its
		// own to walk — it only ever receives work through Descend, when
		// an async launch/memcopy is installed from its event queue.
		return true
	}
	return top.cursor >= len(g.Block(top.block).Ops)
}

// PeekOp returns the op the cursor currently points at. Callers must
// check AtEnd first.
func (t *Table) PeekOp(g gir.Reader) gir.OpID {
	top := t.stack[len(t.stack)-1]
	return g.Block(top.block).Ops[top.cursor]
}

// StepCursor advances the cursor past the op it currently points at,
// within the current block, without changing block nesting.
func (t *Table) StepCursor() {
	t.stack[len(t.stack)-1].cursor++
}

// Descend pushes a new frame for block, positioned at its first op
// (spec.md §4.3's "new block/cursor" for a launch or for-loop body).
func (t *Table) Descend(block gir.BlockID) {
	t.stack = append(t.stack, frame{block: block, cursor: 0})
}

// RestartTop resets the current (top) frame's cursor to the start of its
// own block — used by a non-final Yield to loop the body again.
func (t *Table) RestartTop() {
	t.stack[len(t.stack)-1].cursor = 0
}

// Ascend pops the current frame, returning control to the enclosing
// block exactly where its cursor left off. Must not be called at the
// root frame.
func (t *Table) Ascend() {
	t.stack = t.stack[:len(t.stack)-1]
}

// Current returns the launcher's in-flight op entry, or nil if empty
// (spec.md invariant 2).
func (t *Table) Current() *OpEntry { return t.current }

// SetCurrent installs e as the launcher's in-flight op. Callers must
// first confirm Current() is nil.
func (t *Table) SetCurrent(e *OpEntry) { t.current = e }

// ClearCurrent empties the in-flight slot, called on retirement.
func (t *Table) ClearCurrent() { t.current = nil }

// Enqueue appends op to this launcher's event queue (spec.md §4.3's
// "hand it to the target launcher's event queue" — queues are unbounded,
// so acceptance is always true).
func (t *Table) Enqueue(op gir.OpID) {
	t.queue = append(t.queue, op)
}

// QueueEmpty reports whether the event queue has no pending ops.
func (t *Table) QueueEmpty() bool { return len(t.queue) == 0 }

// QueueHead returns the op at the head of the event queue. Callers must
// check QueueEmpty first.
func (t *Table) QueueHead() gir.OpID { return t.queue[0] }

// MarkHeadSeen records now as the first tick the head-of-queue op was
// found not-yet-ready, returning the (possibly earlier) recorded time —
// this is the op's queue_ready_time once it is eventually admitted.
func (t *Table) MarkHeadSeen(op gir.OpID, now uint64) uint64 {
	if ts, ok := t.headAt[op]; ok {
		return ts
	}
	t.headAt[op] = now
	return now
}

// PopQueueHead removes the head-of-queue op, having admitted it
// elsewhere, and clears any recorded head-seen time for it.
func (t *Table) PopQueueHead() {
	delete(t.headAt, t.queue[0])
	t.queue = t.queue[1:]
}

// Idle reports whether this launcher has nothing left to do: no in-flight
// op, an empty event queue, and a cursor that has run off the end of its
// root block (spec.md §4.7 phase 3's termination check).
func (t *Table) Idle(g gir.Reader) bool {
	return t.current == nil && len(t.queue) == 0 && len(t.stack) == 1 && t.AtEnd(g)
}

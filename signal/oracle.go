// Package signal implements the Signal Readiness Oracle (spec.md §4.6):
// a pure, side-effect-free function deciding whether an operand signal is
// ready for its current iteration. It reads identity.Tables but never
// mutates it — callers that find readiness true are responsible for
// bumping op_consumed and value_count themselves.
package signal

import (
	"github.com/sarchlab/irsim/gir"
	"github.com/sarchlab/irsim/identity"
)

// Ready decides whether signal s is ready to be consumed for the k-th time
// by an op living in block b (spec.md §4.6's formula). k is normally
// identity.Tables.OpConsumed for the consuming op, supplied by the caller
// rather than looked up here, so this function stays a pure query over
// (t, s, k, b).
func Ready(t *identity.Tables, s gir.ValueID, k uint64, b gir.BlockID) bool {
	if !t.HasProducer(s) {
		_, hasDefiningOp := t.DefiningOp(s)
		return !hasDefiningOp
	}

	mo := t.Multiplier(b)
	m := t.Multiplier(t.DefiningBlock(s))

	if _, isIterArg := t.IsIterArg(s); isIterArg {
		init := t.IterInit[s]
		if !boundToInitial(t, s, init) {
			if t.Produced(init) == 0 {
				return false
			}
			return k < mo*(t.Produced(s)+1)/m
		}
	}

	return k < mo*t.Produced(s)/m
}

// boundToInitial reports whether s's current dynamic producer binding is
// still the loop's initial value, as opposed to a previous iteration's
// yield (spec.md §4.6's "or is the loop's initial value binding" clause).
func boundToInitial(t *identity.Tables, s, init gir.ValueID) bool {
	bound, ok := t.ProducedBy[t.Canon(s)]
	if !ok {
		return true
	}
	return t.Canon(bound) == t.Canon(init)
}

// OpReady reports whether every signal-typed operand of op is ready,
// reading k = op_consumed[op] fresh on each call (spec.md §4.3's
// "consult Signal Oracle" step, shared by drain_event_queue and
// schedule). A launch's only signal operand is its start signal — the
// gir builder never marks its plain (device-handle, data) operands as
// signals, so no launch-specific special case is needed here.
func OpReady(t *identity.Tables, op *gir.Op) bool {
	k := t.OpConsumed[op.ID]
	for _, s := range op.SignalOperands() {
		if !Ready(t, s, k, op.Block) {
			return false
		}
	}
	return true
}

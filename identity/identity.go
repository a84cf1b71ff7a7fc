// Package identity implements the Identity & Iteration Map (spec.md §3,
// §4.2): canonicalization of values across region boundaries, the
// produced-by / value-count / op-consumed bookkeeping the Signal
// Readiness Oracle reads, and the per-block iteration multipliers that
// let the oracle reason about nested loops.
package identity

import (
	"fmt"

	"github.com/sarchlab/irsim/gir"
)

// Tables is the single mutable identity/iteration state the engine
// threads through every phase, per spec.md §9's "keep that shape: one
// engine struct holding all maps" note — applied here at the component
// level rather than duplicated per package.
type Tables struct {
	graph gir.Reader

	// alias is the static (built once) region-arg canonicalization map:
	// a launch's region argument aliases to the canonical identity of its
	// corresponding launch operand. Block arguments that are not launch
	// region arguments (top-level inputs, for-loop iter-args) are absent
	// here and canonicalize to themselves.
	alias map[gir.ValueID]gir.ValueID

	// valueOp maps every op result to the op that produced it.
	valueOp map[gir.ValueID]gir.OpID

	// IterInit maps a for-loop iter-arg to the canonical identity of the
	// loop's initial signal (spec.md §3).
	IterInit map[gir.ValueID]gir.ValueID

	// iterArgOwner maps a for-loop iter-arg to the OpFor that owns it, so
	// the oracle can tell an iter-arg operand apart from an ordinary one.
	iterArgOwner map[gir.ValueID]gir.OpID

	// BlockMultiplier is the number of dynamic executions of a block
	// relative to the top-level (spec.md §3, §4.2).
	BlockMultiplier map[gir.BlockID]uint64

	// ProducedBy is the dynamic produced_by map: canonical_value ->
	// defining_value, mutated on launch-bind / return / for-entry / yield
	// (spec.md §4.5).
	ProducedBy map[gir.ValueID]gir.ValueID

	// ValueCount is value_count: canonical_value -> production count.
	// Monotonically non-decreasing (spec.md invariant 4).
	ValueCount map[gir.ValueID]uint64

	// OpConsumed is op_consumed: operation -> consumption attempt count.
	OpConsumed map[gir.OpID]uint64

	// tripCounts caches each OpFor's statically-folded trip count, computed
	// once during buildExMap so the runner's yield handling never needs to
	// re-fold constants at run time.
	tripCounts map[gir.OpID]uint64
}

// Build runs buildIdMap and buildExMap over the whole graph (spec.md
// §4.2) and returns the resulting Tables, or an error if a for-loop bound
// is not a compile-time constant.
func Build(g gir.Reader) (*Tables, error) {
	t := &Tables{
		graph:           g,
		alias:           make(map[gir.ValueID]gir.ValueID),
		valueOp:         make(map[gir.ValueID]gir.OpID),
		IterInit:        make(map[gir.ValueID]gir.ValueID),
		iterArgOwner:    make(map[gir.ValueID]gir.OpID),
		BlockMultiplier: make(map[gir.BlockID]uint64),
		ProducedBy:      make(map[gir.ValueID]gir.ValueID),
		ValueCount:      make(map[gir.ValueID]uint64),
		OpConsumed:      make(map[gir.OpID]uint64),
		tripCounts:      make(map[gir.OpID]uint64),
	}

	t.buildIdMap(g.Top())
	if err := t.buildExMap(g.Top(), 1); err != nil {
		return nil, err
	}

	return t, nil
}

// buildIdMap is the first pass of spec.md §4.2: canonicalize region
// arguments and record for-loop iteration-init bindings, recursing into
// every region in containment order.
func (t *Tables) buildIdMap(b gir.BlockID) {
	block := t.graph.Block(b)

	if parentOp, ok := t.graph.ParentOp(b); ok {
		op := t.graph.Op(parentOp)
		if op.Kind == gir.OpLaunch {
			// Operands[0] is the start signal; Operands[1:] align 1:1
			// with the region's block arguments.
			for i, arg := range block.Args {
				launchOperand := op.Operands[i+1].Value
				t.alias[arg.ID] = t.Canon(launchOperand)
			}
		}
		// For-loop bodies, and any other block kind, map block args to
		// themselves: no alias entry needed, Canon already defaults to
		// identity for unknown values.
	}

	for _, opID := range block.Ops {
		op := t.graph.Op(opID)
		for _, r := range op.Results {
			t.valueOp[r.ID] = opID
		}

		if op.Kind == gir.OpFor {
			body := t.graph.Block(op.Region)
			for i, iterArg := range body.Args {
				init := op.Operands[i].Value
				t.IterInit[iterArg.ID] = t.Canon(init)
				t.iterArgOwner[iterArg.ID] = opID
			}
		}

		if op.Region != gir.NoBlock {
			t.buildIdMap(op.Region)
		}
	}
}

// buildExMap is the second pass of spec.md §4.2: compute each block's
// iteration multiplier as the product of enclosing for-loop trip counts.
func (t *Tables) buildExMap(b gir.BlockID, multiplier uint64) error {
	t.BlockMultiplier[b] = multiplier

	block := t.graph.Block(b)
	for _, opID := range block.Ops {
		op := t.graph.Op(opID)
		if op.Region == gir.NoBlock {
			continue
		}

		childMultiplier := multiplier
		if op.Kind == gir.OpFor {
			trips, err := t.tripCount(op)
			if err != nil {
				return err
			}
			t.tripCounts[op.ID] = trips
			childMultiplier *= trips
		}

		if err := t.buildExMap(op.Region, childMultiplier); err != nil {
			return err
		}
	}

	return nil
}

func (t *Tables) tripCount(op *gir.Op) (uint64, error) {
	lb, err := t.graph.FoldConstI64(op.Bounds.Lower)
	if err != nil {
		return 0, fmt.Errorf("for-loop lower bound: %w", err)
	}
	ub, err := t.graph.FoldConstI64(op.Bounds.Upper)
	if err != nil {
		return 0, fmt.Errorf("for-loop upper bound: %w", err)
	}
	step, err := t.graph.FoldConstI64(op.Bounds.Step)
	if err != nil {
		return 0, fmt.Errorf("for-loop step: %w", err)
	}
	if step <= 0 {
		return 0, fmt.Errorf("for-loop step must be positive, got %d", step)
	}
	if ub <= lb {
		return 0, nil
	}
	return uint64((ub - lb + step - 1) / step), nil
}

// Canon resolves v through the static region-arg alias chain. Values
// with no alias entry (op results, top-level inputs, for-loop iter-args)
// canonicalize to themselves.
func (t *Tables) Canon(v gir.ValueID) gir.ValueID {
	seen := map[gir.ValueID]bool{}
	for {
		if seen[v] {
			return v // defensive: alias cycle, treat as fixed point
		}
		seen[v] = true
		next, ok := t.alias[v]
		if !ok {
			return v
		}
		v = next
	}
}

// IsIterArg reports whether v is a for-loop iteration argument, and
// returns the owning OpFor's ID.
func (t *Tables) IsIterArg(v gir.ValueID) (gir.OpID, bool) {
	op, ok := t.iterArgOwner[v]
	return op, ok
}

// DefiningOp returns the op that produced result value v, if any. Block
// arguments (region args, iter-args, top-level inputs) have no defining
// op — only values populated by buildIdMap's "map every result to itself"
// pass do.
func (t *Tables) DefiningOp(v gir.ValueID) (gir.OpID, bool) {
	op, ok := t.valueOp[t.Canon(v)]
	return op, ok
}

// producer resolves produced_by[canon(v)], per spec.md §3's definition
// that it is "updated when launches bind, when return surfaces results,
// when a for-loop iteration starts or yields" — i.e. only rebound by
// those explicit retirement rules. A value with no such rebinding but with
// a defining op of its own (an ordinary op result, never a region-arg or
// iter-arg) defaults to being its own producer: it is produced exactly
// when that defining op retires and bumps its own value_count. An
// explicit binding is followed to the end of its chain, so an inner
// loop's iter-arg bound to an outer loop's iter-arg resolves to whatever
// the outer iter-arg is currently bound to.
func (t *Tables) producer(v gir.ValueID) (gir.ValueID, bool) {
	c := t.Canon(v)
	p, ok := t.ProducedBy[c]
	if !ok {
		if _, ok := t.valueOp[c]; ok {
			return c, true
		}
		return 0, false
	}
	seen := map[gir.ValueID]bool{c: true}
	for !seen[p] {
		next, ok := t.ProducedBy[p]
		if !ok {
			break
		}
		seen[p] = true
		p = next
	}
	return p, true
}

// DefiningBlock returns M(x)'s block: the block of the op currently
// producing canonical value v. Returns NoBlock (treated as multiplier 1)
// if v has no current producer.
func (t *Tables) DefiningBlock(v gir.ValueID) gir.BlockID {
	producer, ok := t.producer(v)
	if !ok {
		return gir.NoBlock
	}
	opID, ok := t.valueOp[producer]
	if !ok {
		return gir.NoBlock
	}
	return t.graph.ParentBlock(opID)
}

// Multiplier returns block_multiplier[b], defaulting to 1 for NoBlock or
// any block not reached by buildExMap.
func (t *Tables) Multiplier(b gir.BlockID) uint64 {
	if b == gir.NoBlock {
		return 1
	}
	m, ok := t.BlockMultiplier[b]
	if !ok {
		return 1
	}
	return m
}

// Produced returns P(x) = value_count[produced_by[canon(x)]], 0 if x has
// no recorded producer at all.
func (t *Tables) Produced(v gir.ValueID) uint64 {
	producer, ok := t.producer(v)
	if !ok {
		return 0
	}
	return t.ValueCount[producer]
}

// HasProducer reports whether v has a producer to wait on at all — either
// an explicit dynamic binding, or (for an ordinary op result) the implicit
// self-producer default. A bare block argument that nothing has bound yet
// has none.
func (t *Tables) HasProducer(v gir.ValueID) bool {
	_, ok := t.producer(v)
	return ok
}

// TripCount returns the statically-folded trip count of for-loop op,
// cached during Build. Panics if op is not an OpFor or was not reached by
// buildExMap — both are implementation bugs, not spec-anticipated errors.
func (t *Tables) TripCount(op gir.OpID) uint64 {
	trips, ok := t.tripCounts[op]
	if !ok {
		panic(fmt.Sprintf("identity: no cached trip count for op %d", op))
	}
	return trips
}

// Bind sets produced_by[canon(dst)] = canon(src), the operation every
// retirement rule in spec.md §4.5 performs.
func (t *Tables) Bind(dst, src gir.ValueID) {
	t.ProducedBy[t.Canon(dst)] = t.Canon(src)
}

// Bump increments value_count[canon(v)] by one (invariant 4: monotonic).
func (t *Tables) Bump(v gir.ValueID) {
	t.ValueCount[t.Canon(v)]++
}

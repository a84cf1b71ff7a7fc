package gir

// Builder provides an ergonomic, stack-of-current-blocks API for
// constructing a Graph programmatically. It stands in for the real IR
// parser, which is out of scope for this module (spec.md §1); every
// sample graph the CLI and the test suites exercise is built with it.
type Builder struct {
	g      *Graph
	blocks []BlockID // stack; top is the block new ops append to
}

// NewBuilder creates a Builder over a fresh Graph, positioned at the
// top-level block.
func NewBuilder() *Builder {
	g := NewGraph()
	return &Builder{g: g, blocks: []BlockID{g.Top()}}
}

// Graph returns the graph built so far.
func (b *Builder) Graph() *Graph { return b.g }

func (b *Builder) cur() BlockID { return b.blocks[len(b.blocks)-1] }

func (b *Builder) push(block BlockID) { b.blocks = append(b.blocks, block) }

func (b *Builder) pop() { b.blocks = b.blocks[:len(b.blocks)-1] }

// Const appends a 0-cycle constant-producing op and returns its result.
func (b *Builder) Const(value int64) Value {
	res := b.g.NewValue(false, "i64")
	b.g.AppendOp(b.cur(), Op{
		Kind:    OpConst,
		Results: []Value{res},
		Attrs:   map[string]any{"value": value},
	})
	return res
}

// CreateMem appends a device-installing op and returns the device-handle
// value.
func (b *Builder) CreateMem(kind string, lines, elemBytes int64) Value {
	res := b.g.NewValue(false, "mem")
	b.g.AppendOp(b.cur(), Op{
		Kind:    OpCreateMem,
		Results: []Value{res},
		Attrs: map[string]any{
			"kind":      kind,
			"lines":     lines,
			"elemBytes": elemBytes,
		},
	})
	return res
}

// CreateDMA appends a device-and-launcher-installing op and returns the
// device/launcher handle value.
func (b *Builder) CreateDMA() Value {
	res := b.g.NewValue(false, "dma")
	b.g.AppendOp(b.cur(), Op{Kind: OpCreateDMA, Results: []Value{res}})
	return res
}

// CreateProc appends a launcher-installing op and returns the launcher
// handle value.
func (b *Builder) CreateProc() Value {
	res := b.g.NewValue(false, "proc")
	b.g.AppendOp(b.cur(), Op{Kind: OpCreateProc, Results: []Value{res}})
	return res
}

// MemRead appends a synchronous read. offset, if non-nil, marks the access
// as a single-line strided read (volume=1); a nil offset reads the full
// allocation.
func (b *Builder) MemRead(mem Value, offset *Value) Value {
	res := b.g.NewValue(true, "signal")
	operands := []Operand{{Value: mem.ID}}
	attrs := map[string]any{"hasOffset": false}
	if offset != nil {
		operands = append(operands, Operand{Value: offset.ID})
		attrs["hasOffset"] = true
	}
	b.g.AppendOp(b.cur(), Op{
		Kind:     OpMemRead,
		Operands: operands,
		Results:  []Value{res},
		Attrs:    attrs,
	})
	return res
}

// MemWrite appends a synchronous full-allocation write.
func (b *Builder) MemWrite(mem Value) Value {
	res := b.g.NewValue(true, "signal")
	b.g.AppendOp(b.cur(), Op{
		Kind:     OpMemWrite,
		Operands: []Operand{{Value: mem.ID}},
		Results:  []Value{res},
	})
	return res
}

// MemCopy appends an async DMA transfer from src to dst over a DMA
// launcher/device, gated on an optional upstream signal. The transfer
// volume is not supplied by the caller — the Device Registry derives it
// from the two memories' own shapes when the op is costed.
func (b *Builder) MemCopy(dma, src, dst Value, dep *Value) Value {
	res := b.g.NewValue(true, "signal")
	operands := []Operand{{Value: src.ID}, {Value: dst.ID}, {Value: dma.ID}}
	if dep != nil {
		operands = append(operands, Operand{Value: dep.ID, Signal: true})
	}
	b.g.AppendOp(b.cur(), Op{
		Kind:     OpMemCopy,
		Operands: operands,
		Results:  []Value{res},
		Target:   dma.ID,
	})
	return res
}

// Await appends a pure control-signal relay: once in is ready, out becomes
// ready with the same count. Always queued on the host regardless of
// which launcher's cursor reaches it.
func (b *Builder) Await(in Value) Value {
	out := b.g.NewValue(true, "signal")
	b.g.AppendOp(b.cur(), Op{
		Kind:     OpAwait,
		Operands: []Operand{{Value: in.ID, Signal: true}},
		Results:  []Value{out},
	})
	return out
}

// Compute appends a generic 1-cycle op occupying whichever launcher's
// cursor reaches it, gated on the given (possibly empty) signal operands.
func (b *Builder) Compute(deps ...Value) Value {
	res := b.g.NewValue(true, "signal")
	var operands []Operand
	for _, d := range deps {
		operands = append(operands, Operand{Value: d.ID, Signal: true})
	}
	b.g.AppendOp(b.cur(), Op{
		Kind:     OpCompute,
		Operands: operands,
		Results:  []Value{res},
	})
	return res
}

// Launch appends an async launch of body onto target, gated on start. The
// operands slice is bound 1:1 to the region's block arguments, which body
// receives and must use in place of the outer operands (spec.md §4.2's
// region-arg aliasing). body should append a Return as its last op.
// numResults is the launch's result arity, including the implicit
// completion signal at index 0.
func (b *Builder) Launch(
	target, start Value, operands []Value, numResults int,
	body func(args []Value),
) []Value {
	opID := OpID(len(b.g.ops))
	region := b.g.NewRegion(opID)

	args := make([]Value, len(operands))
	for i, o := range operands {
		args[i] = b.g.NewValue(o.Type.Signal, o.Type.Name)
	}
	b.g.blocks[region].Args = args

	results := make([]Value, numResults)
	for i := range results {
		results[i] = b.g.NewValue(true, "signal")
	}

	launchOperands := make([]Operand, 0, len(operands)+1)
	launchOperands = append(launchOperands, Operand{Value: start.ID, Signal: true})
	for _, o := range operands {
		launchOperands = append(launchOperands, Operand{Value: o.ID})
	}

	got := b.g.AppendOp(b.cur(), Op{
		Kind:     OpLaunch,
		Operands: launchOperands,
		Results:  results,
		Region:   region,
		Target:   target.ID,
	})
	if got != opID {
		panic("gir: builder op-id bookkeeping out of sync")
	}

	b.push(region)
	body(args)
	b.pop()

	return results
}

// Return appends a return terminator inside a launch body. operands must
// align with the enclosing launch's Results[1:] — Results[0] is the
// implicit completion signal, bumped on retirement without a binding.
func (b *Builder) Return(operands ...Value) {
	ops := make([]Operand, len(operands))
	for i, o := range operands {
		ops[i] = Operand{Value: o.ID, Signal: o.Type.Signal}
	}
	b.g.AppendOp(b.cur(), Op{Kind: OpReturn, Operands: ops})
}

// For appends a statically-bounded for loop. lower/upper/step must be
// values produced by Const. iterInits seeds the loop-carried signals;
// body receives the current iteration's values (aliased to iterInits on
// entry, to the previous Yield's operands thereafter) and must end with a
// Yield call. For returns the loop's final values, one per iterInit.
func (b *Builder) For(lower, upper, step Value, iterInits []Value, body func(iterArgs []Value) []Value) []Value {
	opID := OpID(len(b.g.ops))
	region := b.g.NewRegion(opID)

	iterArgs := make([]Value, len(iterInits))
	for i, v := range iterInits {
		iterArgs[i] = b.g.NewValue(true, "signal")
		_ = v
	}
	b.g.blocks[region].Args = iterArgs

	results := make([]Value, len(iterInits))
	for i := range results {
		results[i] = b.g.NewValue(true, "signal")
	}

	operands := make([]Operand, len(iterInits))
	for i, v := range iterInits {
		operands[i] = Operand{Value: v.ID, Signal: true}
	}

	got := b.g.AppendOp(b.cur(), Op{
		Kind:     OpFor,
		Operands: operands,
		Results:  results,
		Region:   region,
		Bounds:   ForBounds{Lower: lower.ID, Upper: upper.ID, Step: step.ID},
	})
	if got != opID {
		panic("gir: builder op-id bookkeeping out of sync")
	}

	b.push(region)
	yielded := body(iterArgs)
	b.pop()

	if len(yielded) != len(iterInits) {
		panic("gir: For body must Yield exactly len(iterInits) values")
	}

	return results
}

// Yield appends a for-loop body terminator.
func (b *Builder) Yield(operands ...Value) []Value {
	ops := make([]Operand, len(operands))
	for i, o := range operands {
		ops[i] = Operand{Value: o.ID, Signal: true}
	}
	b.g.AppendOp(b.cur(), Op{Kind: OpYield, Operands: ops})
	return operands
}

package identity_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/irsim/gir"
	"github.com/sarchlab/irsim/identity"
)

// findOp returns the first op of kind in g's top-level block, for tests
// that need an OpID to hand to TripCount but have no other way to learn
// it back from the Builder.
func findOp(g *gir.Graph, kind gir.OpKind) gir.OpID {
	top := g.Block(g.Top())
	for _, opID := range top.Ops {
		if g.Op(opID).Kind == kind {
			return opID
		}
	}
	panic("identity_test: no op of the requested kind in the top-level block")
}

var _ = Describe("Build", func() {
	It("canonicalizes a launch region argument to its operand's identity", func() {
		b := gir.NewBuilder()
		proc := b.CreateProc()
		start := b.Compute()
		operand := b.Compute()

		var argVal gir.Value
		b.Launch(proc, start, []gir.Value{operand}, 1, func(args []gir.Value) {
			argVal = args[0]
			b.Return()
		})

		tables, err := identity.Build(b.Graph())
		Expect(err).NotTo(HaveOccurred())

		Expect(tables.Canon(argVal.ID)).To(Equal(tables.Canon(operand.ID)))
	})

	It("leaves a for-loop iter-arg canonicalizing to itself, with its init recorded separately", func() {
		b := gir.NewBuilder()
		lower := b.Const(0)
		upper := b.Const(4)
		step := b.Const(1)
		init := b.Compute()

		var iterArg gir.Value
		b.For(lower, upper, step, []gir.Value{init}, func(iterArgs []gir.Value) []gir.Value {
			iterArg = iterArgs[0]
			return b.Yield(iterArgs[0])
		})

		tables, err := identity.Build(b.Graph())
		Expect(err).NotTo(HaveOccurred())

		Expect(tables.Canon(iterArg.ID)).To(Equal(iterArg.ID),
			"an iter-arg is not a launch region arg, so it has no static alias entry")

		forOpID, isIterArg := tables.IsIterArg(iterArg.ID)
		Expect(isIterArg).To(BeTrue())
		Expect(forOpID).To(Equal(findOp(b.Graph(), gir.OpFor)))
	})

	It("folds a constant-bounded for-loop's trip count", func() {
		b := gir.NewBuilder()
		lower := b.Const(0)
		upper := b.Const(6)
		step := b.Const(2)
		init := b.Compute()

		b.For(lower, upper, step, []gir.Value{init}, func(iterArgs []gir.Value) []gir.Value {
			return b.Yield(iterArgs[0])
		})

		tables, err := identity.Build(b.Graph())
		Expect(err).NotTo(HaveOccurred())

		forOpID := findOp(b.Graph(), gir.OpFor)
		Expect(tables.TripCount(forOpID)).To(Equal(uint64(3)))
	})

	It("rejects a non-positive for-loop step", func() {
		b := gir.NewBuilder()
		lower := b.Const(0)
		upper := b.Const(4)
		step := b.Const(0)
		init := b.Compute()

		b.For(lower, upper, step, []gir.Value{init}, func(iterArgs []gir.Value) []gir.Value {
			return b.Yield(iterArgs[0])
		})

		_, err := identity.Build(b.Graph())
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("step must be positive"))
	})
})

var _ = Describe("Produced and producer's one-hop fallback", func() {
	It("reports no producer at all for a bare top-level input", func() {
		b := gir.NewBuilder()
		input := b.Graph().NewValue(true, "signal")

		tables, err := identity.Build(b.Graph())
		Expect(err).NotTo(HaveOccurred())

		Expect(tables.HasProducer(input.ID)).To(BeFalse())
		Expect(tables.Produced(input.ID)).To(Equal(uint64(0)))
	})

	It("defaults an ordinary op result to being its own producer", func() {
		b := gir.NewBuilder()
		produced := b.Compute()

		tables, err := identity.Build(b.Graph())
		Expect(err).NotTo(HaveOccurred())

		Expect(tables.HasProducer(produced.ID)).To(BeTrue())
		Expect(tables.Produced(produced.ID)).To(Equal(uint64(0)),
			"has a producer but it hasn't fired yet")

		definingOp, ok := tables.DefiningOp(produced.ID)
		Expect(ok).To(BeTrue())
		Expect(definingOp).To(Equal(findOp(b.Graph(), gir.OpCompute)))

		tables.Bump(produced.ID)
		Expect(tables.Produced(produced.ID)).To(Equal(uint64(1)))
	})

	It("prefers an explicit dynamic binding over the one-hop fallback once bound", func() {
		b := gir.NewBuilder()
		a := b.Compute()
		c := b.Compute()

		tables, err := identity.Build(b.Graph())
		Expect(err).NotTo(HaveOccurred())

		tables.Bump(a.ID)
		tables.Bump(a.ID)
		Expect(tables.Produced(c.ID)).To(Equal(uint64(0)))

		tables.Bind(c.ID, a.ID)
		Expect(tables.Produced(c.ID)).To(Equal(uint64(2)),
			"once bound, c's production count tracks a's, not c's own (never-bumped) count")
	})
})

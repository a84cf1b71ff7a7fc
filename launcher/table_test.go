package launcher_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/irsim/gir"
	"github.com/sarchlab/irsim/launcher"
)

var _ = Describe("Table", func() {
	var (
		b   *gir.Builder
		tbl *launcher.Table
	)

	BeforeEach(func() {
		b = gir.NewBuilder()
		b.Const(5)
		b.Const(7)
		tbl = launcher.NewTable("host", 0, b.Graph().Top())
	})

	It("starts empty, at depth 1, not at end", func() {
		Expect(tbl.Current()).To(BeNil())
		Expect(tbl.Depth()).To(Equal(1))
		Expect(tbl.AtEnd(b.Graph())).To(BeFalse())
	})

	It("steps the cursor through a flat block", func() {
		Expect(tbl.PeekOp(b.Graph())).To(Equal(gir.OpID(0)))
		tbl.StepCursor()
		Expect(tbl.PeekOp(b.Graph())).To(Equal(gir.OpID(1)))
		tbl.StepCursor()
		Expect(tbl.AtEnd(b.Graph())).To(BeTrue())
	})

	It("descends into and ascends back out of a nested region", func() {
		tbl.StepCursor()
		region := b.Graph().NewRegion(gir.OpID(1))

		tbl.Descend(region)
		Expect(tbl.Depth()).To(Equal(2))
		Expect(tbl.Block()).To(Equal(region))

		tbl.Ascend()
		Expect(tbl.Depth()).To(Equal(1))
		Expect(tbl.PeekOp(b.Graph())).To(Equal(gir.OpID(1)))
	})

	It("is idle only once current is empty, queue empty, and cursor exhausted", func() {
		tbl.StepCursor()
		tbl.StepCursor()
		Expect(tbl.Idle(b.Graph())).To(BeTrue())

		tbl.Enqueue(gir.OpID(0))
		Expect(tbl.Idle(b.Graph())).To(BeFalse())
		tbl.PopQueueHead()
		Expect(tbl.Idle(b.Graph())).To(BeTrue())

		tbl.SetCurrent(&launcher.OpEntry{Op: gir.OpID(0)})
		Expect(tbl.Idle(b.Graph())).To(BeFalse())
		tbl.ClearCurrent()
		Expect(tbl.Idle(b.Graph())).To(BeTrue())
	})

	It("remembers the first tick a queue head was seen not-ready", func() {
		op := gir.OpID(0)
		first := tbl.MarkHeadSeen(op, 10)
		Expect(first).To(BeNumerically("==", 10))

		again := tbl.MarkHeadSeen(op, 15)
		Expect(again).To(BeNumerically("==", 10), "head-seen time must not move once recorded")
	})
})

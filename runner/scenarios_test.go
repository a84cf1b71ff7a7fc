package runner

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/irsim/device"
	"github.com/sarchlab/irsim/gir"
	"github.com/sarchlab/irsim/trace"
)

// decodeEvents unmarshals a Sink's written bytes back into the real
// events it emitted, dropping the trailing "{}" EOF placeholder. The
// sink's newline-and-comma-separated writes are, taken together, one
// valid JSON array, so a single Unmarshal does the whole job.
func decodeEvents(buf *bytes.Buffer) []trace.Event {
	var raw []json.RawMessage
	Expect(json.Unmarshal(buf.Bytes(), &raw)).To(Succeed())
	Expect(raw).NotTo(BeEmpty())

	events := make([]trace.Event, 0, len(raw)-1)
	for _, r := range raw[:len(raw)-1] {
		var ev trace.Event
		Expect(json.Unmarshal(r, &ev)).To(Succeed())
		events = append(events, ev)
	}
	return events
}

func withEvents(cat trace.Category, events []trace.Event) []trace.Event {
	var out []trace.Event
	for _, ev := range events {
		if ev.Cat == cat {
			out = append(out, ev)
		}
	}
	return out
}

// onLauncher keeps only the events on launcher pid. The DMA launcher is
// the first one a graph creates, so it takes pid 1 (the host is pid 0,
// where the create_mem/create_dma/compute setup ops trace their own
// operation events).
func onLauncher(pid int, events []trace.Event) []trace.Event {
	var out []trace.Event
	for _, ev := range events {
		if ev.PID == pid {
			out = append(out, ev)
		}
	}
	return out
}

var memCost = device.DefaultMemoryCostModel{LineBytes: 1, ReadCyclesPerLine: 3, WriteCyclesPerLine: 5}
var dmaCost = device.DefaultDMACostModel{BytesPerCycle: 2}

func newSink() (*trace.Sink, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	sink, err := trace.NewSink(buf)
	Expect(err).NotTo(HaveOccurred())
	return sink, buf
}

var _ = Describe("Event loop scenarios (spec.md §8)", func() {

	It("S1: a bare const+return terminates with no operation or memory events", func() {
		b := gir.NewBuilder()
		b.Const(5)
		b.Return()

		sink, buf := newSink()
		r, err := New(b.Graph(), sink, memCost, dmaCost)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Run()).To(Succeed())

		events := decodeEvents(buf)
		Expect(withEvents(trace.CategoryOperation, events)).To(BeEmpty())
		Expect(withEvents(trace.CategoryMemory, events)).To(BeEmpty())
		Expect(withEvents(trace.CategoryEqueue, events)).To(BeEmpty())
	})

	It("S2: a single memcopy charges max(write, read, transfer) and traces one op pair and two memory pairs", func() {
		b := gir.NewBuilder()
		sram := b.CreateMem("SRAM", 4, 4)
		dram := b.CreateMem("DRAM", 4, 4)
		dma := b.CreateDMA()
		b.MemCopy(dma, dram, sram, nil)
		b.Return()

		sink, buf := newSink()
		r, err := New(b.Graph(), sink, memCost, dmaCost)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Run()).To(Succeed())

		events := decodeEvents(buf)
		ops := onLauncher(1, withEvents(trace.CategoryOperation, events))
		Expect(ops).To(HaveLen(2)) // one B, one E on the DMA launcher
		Expect(ops[0].Ph).To(Equal(trace.PhaseBegin))
		Expect(ops[1].Ph).To(Equal(trace.PhaseEnd))

		// dram.read(4) = 12, sram.write(4) = 20, dma.transfer(16) = 8; max = 20.
		Expect(ops[1].TS - ops[0].TS).To(Equal(uint64(20)))

		mem := withEvents(trace.CategoryMemory, events)
		Expect(mem).To(HaveLen(4)) // src B/E, dst B/E
	})

	It("S3: a 3-iteration loop of memcopies schedules 3 non-overlapping transfers on the DMA device", func() {
		b := gir.NewBuilder()
		sram := b.CreateMem("SRAM", 4, 4)
		dram := b.CreateMem("DRAM", 4, 4)
		dma := b.CreateDMA()
		lower := b.Const(0)
		upper := b.Const(3)
		step := b.Const(1)
		token := b.Compute()

		b.For(lower, upper, step, []gir.Value{token}, func(iterArgs []gir.Value) []gir.Value {
			dep := iterArgs[0]
			res := b.MemCopy(dma, dram, sram, &dep)
			return b.Yield(res)
		})
		b.Return()

		sink, buf := newSink()
		r, err := New(b.Graph(), sink, memCost, dmaCost)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Run()).To(Succeed())

		events := decodeEvents(buf)
		copies := onLauncher(1, withEvents(trace.CategoryOperation, events))
		Expect(copies).To(HaveLen(6)) // 3 iterations x (B, E)

		for i := 0; i < len(copies); i += 2 {
			begin, end := copies[i], copies[i+1]
			Expect(begin.Ph).To(Equal(trace.PhaseBegin))
			Expect(end.Ph).To(Equal(trace.PhaseEnd))
			Expect(end.TS).To(BeNumerically(">", begin.TS))
			if i > 0 {
				Expect(begin.TS).To(BeNumerically(">=", copies[i-1].TS))
			}
		}
	})

	It("S4: a launch gated on a signal never starts before the producing op retires", func() {
		b := gir.NewBuilder()
		proc := b.CreateProc()
		dram := b.CreateMem("DRAM", 4, 4)
		s := b.MemWrite(dram)
		// Launch carries no observable "operation" event of its own (it is
		// structural); a Compute inside the body is what lets the test see
		// when the body actually started running.
		b.Launch(proc, s, nil, 1, func(_ []gir.Value) {
			b.Compute()
			b.Return()
		})
		b.Return()

		sink, buf := newSink()
		r, err := New(b.Graph(), sink, memCost, dmaCost)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Run()).To(Succeed())

		events := decodeEvents(buf)
		ops := withEvents(trace.CategoryOperation, events)

		var writeEnd, bodyStart uint64
		for _, ev := range ops {
			if ev.Name == "mem_write" && ev.Ph == trace.PhaseEnd {
				writeEnd = ev.TS
			}
			if ev.Name == "compute" && ev.Ph == trace.PhaseBegin {
				bodyStart = ev.TS
			}
		}
		Expect(bodyStart).To(BeNumerically(">=", writeEnd))
	})

	It("S5: a nested loop (outer 2, inner 3) schedules 6 memcopies on the DMA device", func() {
		b := gir.NewBuilder()
		sram := b.CreateMem("SRAM", 4, 4)
		dram := b.CreateMem("DRAM", 4, 4)
		dma := b.CreateDMA()
		outerLower, outerUpper, outerStep := b.Const(0), b.Const(2), b.Const(1)
		innerLower, innerUpper, innerStep := b.Const(0), b.Const(3), b.Const(1)
		token := b.Compute()

		b.For(outerLower, outerUpper, outerStep, []gir.Value{token}, func(outerArgs []gir.Value) []gir.Value {
			outerTok := outerArgs[0]
			results := b.For(innerLower, innerUpper, innerStep, []gir.Value{outerTok}, func(innerArgs []gir.Value) []gir.Value {
				dep := innerArgs[0]
				res := b.MemCopy(dma, dram, sram, &dep)
				return b.Yield(res)
			})
			return b.Yield(results[0])
		})
		b.Return()

		sink, buf := newSink()
		r, err := New(b.Graph(), sink, memCost, dmaCost)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Run()).To(Succeed())

		events := decodeEvents(buf)
		copies := onLauncher(1, withEvents(trace.CategoryOperation, events))
		Expect(copies).To(HaveLen(12)) // 6 iterations x (B, E)
	})

	It("S6: a launch that sits queued-but-not-ready traces a stall interval from queue-ready time to start time", func() {
		b := gir.NewBuilder()

		sram := b.CreateMem("SRAM", 4, 4)
		dram := b.CreateMem("DRAM", 4, 4)
		dma := b.CreateDMA()
		producer := b.MemCopy(dma, dram, sram, nil) // the slow producer of the start signal

		proc := b.CreateProc()
		var blockers []gir.Value
		for i := 0; i < 6; i++ {
			blockers = append(blockers, b.Compute())
		}
		_ = blockers

		b.Launch(proc, producer, nil, 1, func(_ []gir.Value) {
			b.Return()
		})
		b.Return()

		sink, buf := newSink()
		r, err := New(b.Graph(), sink, memCost, dmaCost)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Run()).To(Succeed())

		events := decodeEvents(buf)
		stalls := withEvents(trace.CategoryEqueue, events)
		Expect(stalls).To(HaveLen(2))
		Expect(stalls[0].Ph).To(Equal(trace.PhaseBegin))
		Expect(stalls[1].Ph).To(Equal(trace.PhaseEnd))
		Expect(stalls[1].TS).To(BeNumerically(">", stalls[0].TS))

		// The stall's end timestamp is, by construction, the launch's
		// actual start_time (launcher/table.go's QueueReadyTime vs.
		// StartTime gap); it must not precede the producing memcopy's
		// own retirement.
		ops := withEvents(trace.CategoryOperation, events)
		var producerEnd uint64
		for _, ev := range ops {
			if ev.Name == "mem_copy" && ev.Ph == trace.PhaseEnd {
				producerEnd = ev.TS
			}
		}
		Expect(stalls[1].TS).To(BeNumerically(">=", producerEnd))
	})
})

// Package device implements the Device Registry (spec.md §4.1): it owns
// simulated Memory and DMA devices, each serializing its own accesses on
// a local schedule, and answers "when would an access of this many
// cycles finish if it could start no earlier than time T?"
//
// Cost models are opaque pure functions per spec.md — this package only
// supplies concrete default implementations; the engine never assumes a
// particular formula.
package device

import (
	"fmt"

	"github.com/sarchlab/irsim/gir"
)

// Kind distinguishes the recognized memory kinds.
type Kind int

const (
	// DRAM is off-chip, higher-latency memory.
	DRAM Kind = iota
	// SRAM is on-chip, lower-latency memory.
	SRAM
)

func (k Kind) String() string {
	switch k {
	case DRAM:
		return "DRAM"
	case SRAM:
		return "SRAM"
	default:
		return "unknown"
	}
}

// ParseKind maps the IR's textual memory-kind attribute onto Kind,
// failing loudly (per spec.md §6's "unknown memory kind" exit) rather
// than defaulting silently.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "DRAM":
		return DRAM, nil
	case "SRAM":
		return SRAM, nil
	default:
		return 0, fmt.Errorf("device: unknown memory kind %q", s)
	}
}

// MemoryCostModel computes read/write cycle counts for a volume of
// elements. Opaque per spec.md — the engine calls through the interface
// only.
type MemoryCostModel interface {
	ReadCycles(volumeElems uint64) uint64
	WriteCycles(volumeElems uint64) uint64
}

// DMACostModel computes the transfer cycle count for a volume of bytes.
type DMACostModel interface {
	TransferCycles(volumeBytes uint64) uint64
}

// Memory is a simulated memory bank. It tracks its own busy schedule so
// that overlapping accesses serialize FIFO on arrival order (spec.md §4.1,
// §5).
type Memory struct {
	UID       uint64
	Handle    gir.ValueID
	DeviceKind Kind
	Lines     int64
	ElemBytes int64
	Cost      MemoryCostModel

	nextFree uint64
}

// AllocationVolume is the element count of the whole allocation, used for
// mem_write and for mem_read with no explicit offset.
func (m *Memory) AllocationVolume() uint64 {
	return uint64(m.Lines)
}

// reserve books cycles starting no earlier than time on this device's
// local schedule and returns the completion time.
func (m *Memory) reserve(time uint64, cycles uint64) uint64 {
	start := time
	if m.nextFree > start {
		start = m.nextFree
	}
	end := start + cycles
	m.nextFree = end
	return end
}

// DMA is a simulated DMA engine. Like Memory, it serializes its own
// transfers FIFO on arrival order.
type DMA struct {
	UID    uint64
	Handle gir.ValueID
	Cost   DMACostModel

	nextFree uint64
}

func (d *DMA) reserve(time uint64, cycles uint64) uint64 {
	start := time
	if d.nextFree > start {
		start = d.nextFree
	}
	end := start + cycles
	d.nextFree = end
	return end
}

// Registry owns every simulated device created during a run (spec.md
// §4.1, §3 Lifecycle).
type Registry struct {
	memories map[gir.ValueID]*Memory
	dmas     map[gir.ValueID]*DMA

	memCost MemoryCostModel
	dmaCost DMACostModel
	nextUID uint64
}

// NewRegistry creates an empty registry using the given default cost
// models for every device it creates.
func NewRegistry(memCost MemoryCostModel, dmaCost DMACostModel) *Registry {
	return &Registry{
		memories: make(map[gir.ValueID]*Memory),
		dmas:     make(map[gir.ValueID]*DMA),
		memCost:  memCost,
		dmaCost:  dmaCost,
	}
}

// CreateMemory installs a new Memory device keyed by its IR handle value.
// Fails if kind is unrecognized (spec.md §6 structural failure).
func (r *Registry) CreateMemory(handle gir.ValueID, kindAttr string, lines, elemBytes int64) (*Memory, error) {
	kind, err := ParseKind(kindAttr)
	if err != nil {
		return nil, err
	}

	r.nextUID++
	m := &Memory{
		UID:        r.nextUID,
		Handle:     handle,
		DeviceKind: kind,
		Lines:      lines,
		ElemBytes:  elemBytes,
		Cost:       r.memCost,
	}
	r.memories[handle] = m

	return m, nil
}

// CreateDMA installs a new DMA device keyed by its IR handle value.
func (r *Registry) CreateDMA(handle gir.ValueID) *DMA {
	r.nextUID++
	d := &DMA{UID: r.nextUID, Handle: handle, Cost: r.dmaCost}
	r.dmas[handle] = d
	return d
}

// Memory looks up a previously created Memory device.
func (r *Registry) Memory(handle gir.ValueID) (*Memory, bool) {
	m, ok := r.memories[handle]
	return m, ok
}

// DMA looks up a previously created DMA device.
func (r *Registry) DMA(handle gir.ValueID) (*DMA, bool) {
	d, ok := r.dmas[handle]
	return d, ok
}

// ScheduleMemoryAccess reserves cycles worth of m's memory port starting
// no earlier than time and returns the completion time (spec.md §4.1).
func (r *Registry) ScheduleMemoryAccess(m *Memory, time uint64, cycles uint64) uint64 {
	return m.reserve(time, cycles)
}

// ScheduleMemCopy reserves src's read port, dst's write port, and dma's
// transfer channel for a copy sized to min(src.Lines, dst.Lines) elements
// — the largest transfer both ends can actually hold — each serialized
// independently on its own device, and returns the slowest leg's
// completion time (spec.md §4.1, §4.4).
func (r *Registry) ScheduleMemCopy(time uint64, src, dst *Memory, dma *DMA) uint64 {
	volumeElems := src.AllocationVolume()
	if dst.AllocationVolume() < volumeElems {
		volumeElems = dst.AllocationVolume()
	}

	srcCycles := src.Cost.ReadCycles(volumeElems)
	dstCycles := dst.Cost.WriteCycles(volumeElems)
	dmaCycles := dma.Cost.TransferCycles(volumeElems * uint64(src.ElemBytes))

	srcEnd := src.reserve(time, srcCycles)
	dstEnd := dst.reserve(time, dstCycles)
	dmaEnd := dma.reserve(time, dmaCycles)

	end := srcEnd
	if dstEnd > end {
		end = dstEnd
	}
	if dmaEnd > end {
		end = dmaEnd
	}
	return end
}

package runner

import (
	"fmt"

	"github.com/sarchlab/irsim/gir"
)

// costOf implements spec.md §4.4's cost table: structural/control ops
// cost 0, create_mem/create_dma/create_proc cost 1, mem_read/mem_write/
// mem_copy cost whatever the Device Registry's cost models compute for
// the reservation, and everything else costs 1. It also reserves the
// devices it touches (mem_read/mem_write/mem_copy), returning their UIDs
// so the caller can emit matched "memory" trace events.
func (r *Runner) costOf(op *gir.Op) (cost uint64, memTIDs []uint64, err error) {
	switch op.Kind {
	case gir.OpConst, gir.OpAwait, gir.OpLaunch, gir.OpReturn, gir.OpFor, gir.OpYield:
		return 0, nil, nil

	case gir.OpCreateMem, gir.OpCreateDMA, gir.OpCreateProc:
		return 1, nil, nil

	case gir.OpMemRead:
		mem, ok := r.devices.Memory(op.Operands[0].Value)
		if !ok {
			return 0, nil, fmt.Errorf("runner: mem_read op %d references an unknown memory device", op.ID)
		}
		volume := mem.AllocationVolume()
		if hasOffset, ok := op.Attr("hasOffset"); ok && hasOffset.(bool) {
			volume = 1
		}
		end := r.devices.ScheduleMemoryAccess(mem, r.time, mem.Cost.ReadCycles(volume))
		return end - r.time, []uint64{mem.UID}, nil

	case gir.OpMemWrite:
		mem, ok := r.devices.Memory(op.Operands[0].Value)
		if !ok {
			return 0, nil, fmt.Errorf("runner: mem_write op %d references an unknown memory device", op.ID)
		}
		volume := mem.AllocationVolume()
		end := r.devices.ScheduleMemoryAccess(mem, r.time, mem.Cost.WriteCycles(volume))
		return end - r.time, []uint64{mem.UID}, nil

	case gir.OpMemCopy:
		src, ok1 := r.devices.Memory(op.Operands[0].Value)
		dst, ok2 := r.devices.Memory(op.Operands[1].Value)
		dma, ok3 := r.devices.DMA(op.Operands[2].Value)
		if !ok1 || !ok2 || !ok3 {
			return 0, nil, fmt.Errorf("runner: mem_copy op %d references an unknown device", op.ID)
		}
		end := r.devices.ScheduleMemCopy(r.time, src, dst, dma)
		return end - r.time, []uint64{src.UID, dst.UID}, nil

	default: // OpCompute and any other domain-specific 1-cycle op.
		return 1, nil, nil
	}
}

package main

import (
	"github.com/sarchlab/irsim/device"
	"github.com/sarchlab/irsim/gir"
)

// sample bundles a built-in graph with the cost models the scenario it
// demonstrates was designed around (spec.md §8's S1-S6).
type sample struct {
	name        string
	description string
	build       func() *gir.Graph
	memCost     device.MemoryCostModel
	dmaCost     device.DMACostModel
}

var defaultMemCost = device.DefaultMemoryCostModel{LineBytes: 1, ReadCyclesPerLine: 3, WriteCyclesPerLine: 5}
var defaultDMACost = device.DefaultDMACostModel{BytesPerCycle: 2}

var samples = []sample{
	{
		name:        "s1",
		description: "a bare const + return, no devices at all",
		build: func() *gir.Graph {
			b := gir.NewBuilder()
			b.Const(5)
			b.Return()
			return b.Graph()
		},
		memCost: defaultMemCost, dmaCost: defaultDMACost,
	},
	{
		name:        "s2",
		description: "one DRAM-to-SRAM memcopy over a DMA engine",
		build: func() *gir.Graph {
			b := gir.NewBuilder()
			sram := b.CreateMem("SRAM", 4, 4)
			dram := b.CreateMem("DRAM", 4, 4)
			dma := b.CreateDMA()
			b.MemCopy(dma, dram, sram, nil)
			b.Return()
			return b.Graph()
		},
		memCost: defaultMemCost, dmaCost: defaultDMACost,
	},
	{
		name:        "s3",
		description: "a 3-iteration loop of chained memcopies",
		build: func() *gir.Graph {
			b := gir.NewBuilder()
			sram := b.CreateMem("SRAM", 4, 4)
			dram := b.CreateMem("DRAM", 4, 4)
			dma := b.CreateDMA()
			lower, upper, step := b.Const(0), b.Const(3), b.Const(1)
			token := b.Compute()
			b.For(lower, upper, step, []gir.Value{token}, func(iterArgs []gir.Value) []gir.Value {
				dep := iterArgs[0]
				res := b.MemCopy(dma, dram, sram, &dep)
				return b.Yield(res)
			})
			b.Return()
			return b.Graph()
		},
		memCost: defaultMemCost, dmaCost: defaultDMACost,
	},
	{
		name:        "s4",
		description: "a processor launch gated on a host-produced signal",
		build: func() *gir.Graph {
			b := gir.NewBuilder()
			proc := b.CreateProc()
			dram := b.CreateMem("DRAM", 4, 4)
			s := b.MemWrite(dram)
			b.Launch(proc, s, nil, 1, func(_ []gir.Value) {
				b.Compute()
				b.Return()
			})
			b.Return()
			return b.Graph()
		},
		memCost: defaultMemCost, dmaCost: defaultDMACost,
	},
	{
		name:        "s5",
		description: "a nested loop (outer trip 2, inner trip 3) around a memcopy",
		build: func() *gir.Graph {
			b := gir.NewBuilder()
			sram := b.CreateMem("SRAM", 4, 4)
			dram := b.CreateMem("DRAM", 4, 4)
			dma := b.CreateDMA()
			outerLower, outerUpper, outerStep := b.Const(0), b.Const(2), b.Const(1)
			innerLower, innerUpper, innerStep := b.Const(0), b.Const(3), b.Const(1)
			token := b.Compute()
			b.For(outerLower, outerUpper, outerStep, []gir.Value{token}, func(outerArgs []gir.Value) []gir.Value {
				results := b.For(innerLower, innerUpper, innerStep, []gir.Value{outerArgs[0]}, func(innerArgs []gir.Value) []gir.Value {
					dep := innerArgs[0]
					res := b.MemCopy(dma, dram, sram, &dep)
					return b.Yield(res)
				})
				return b.Yield(results[0])
			})
			b.Return()
			return b.Graph()
		},
		memCost: defaultMemCost, dmaCost: defaultDMACost,
	},
	{
		name:        "s6",
		description: "a launch that stalls, queued long before its start signal is ready",
		build: func() *gir.Graph {
			b := gir.NewBuilder()
			sram := b.CreateMem("SRAM", 4, 4)
			dram := b.CreateMem("DRAM", 4, 4)
			dma := b.CreateDMA()
			producer := b.MemCopy(dma, dram, sram, nil)
			proc := b.CreateProc()
			for i := 0; i < 6; i++ {
				b.Compute()
			}
			b.Launch(proc, producer, nil, 1, func(_ []gir.Value) {
				b.Return()
			})
			b.Return()
			return b.Graph()
		},
		memCost: defaultMemCost, dmaCost: defaultDMACost,
	},
}

func findSample(name string) (sample, bool) {
	for _, s := range samples {
		if s.name == name {
			return s, true
		}
	}
	return sample{}, false
}

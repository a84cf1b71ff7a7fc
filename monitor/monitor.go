// Package monitor periodically samples the running process's resource
// usage while a long simulation executes, adapted from the teacher's
// monitoring.Monitor.listResources handler: same gopsutil process.
// CPUPercent/MemoryInfo calls, reduced from an HTTP endpoint to a
// ticker-driven background sampler that logs through the standard log
// package (spec.md §5's "monitor never mutates engine state" is honored
// by reading only Runner.CurrentTime under that mutex).
package monitor

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Clock is the minimal view of the engine a Sampler logs alongside
// resource usage — satisfied by *runner.Runner, kept narrow so this
// package never imports runner.
type Clock interface {
	CurrentTime() uint64
}

// Sampler logs CPU/RSS usage and the engine's virtual clock every
// Interval ticks of a time.Ticker, until its context is canceled.
type Sampler struct {
	Interval time.Duration
	Clock    Clock

	proc *process.Process
}

// NewSampler creates a Sampler over the current process.
func NewSampler(interval time.Duration, clock Clock) (*Sampler, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Sampler{Interval: interval, Clock: clock, proc: p}, nil
}

// Run logs one sample immediately and then every Interval until ctx is
// canceled. Intended to run in its own goroutine alongside Runner.Run.
func (s *Sampler) Run(ctx context.Context) {
	s.logSample()

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.logSample()
		}
	}
}

func (s *Sampler) logSample() {
	cpuPercent, err := s.proc.CPUPercent()
	if err != nil {
		log.Printf("monitor: reading CPU usage: %v", err)
		return
	}

	mem, err := s.proc.MemoryInfo()
	if err != nil {
		log.Printf("monitor: reading memory usage: %v", err)
		return
	}

	log.Printf("monitor: sim_time=%d cpu=%.1f%% rss=%dMiB",
		s.Clock.CurrentTime(), cpuPercent, mem.RSS/(1<<20))
}

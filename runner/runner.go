// Package runner implements the Event Loop (spec.md §4.7): the
// top-level six-phase tick that advances cursors, drains event queues,
// checks for termination, starts newly-ready ops, jumps virtual time to
// the next completion, and retires completed ops, emitting trace events
// along the way. It is the single long-lived engine struct spec.md §9 asks
// for, threading the identity/iteration tables, device registry, and
// launcher tables explicitly through each phase.
package runner

import (
	"fmt"

	"github.com/sarchlab/irsim/device"
	"github.com/sarchlab/irsim/gir"
	"github.com/sarchlab/irsim/identity"
	"github.com/sarchlab/irsim/launcher"
	"github.com/sarchlab/irsim/trace"
)

// Runner is the engine: one struct holding every mutable map the six
// phases read and write, per spec.md §9's "keep that shape" note.
type Runner struct {
	g        gir.Reader
	identity *identity.Tables
	devices  *device.Registry
	sink     *trace.Sink

	host      *launcher.Table
	launchers []*launcher.Table
	byHandle  map[gir.ValueID]*launcher.Table

	recorder OpRecorder

	time uint64
}

// New builds a Runner over g's top-level function body, using memCost
// and dmaCost as the default cost models every create_mem/create_dma op
// installs (spec.md §4.1's opaque cost-model functions), emitting trace
// events to sink.
func New(
	g gir.Reader,
	sink *trace.Sink,
	memCost device.MemoryCostModel,
	dmaCost device.DMACostModel,
) (*Runner, error) {
	tables, err := identity.Build(g)
	if err != nil {
		return nil, err
	}

	host := launcher.NewTable("host", 0, g.Top())

	return &Runner{
		g:         g,
		identity:  tables,
		devices:   device.NewRegistry(memCost, dmaCost),
		sink:      sink,
		host:      host,
		launchers: []*launcher.Table{host},
		byHandle:  make(map[gir.ValueID]*launcher.Table),
	}, nil
}

// CurrentTime returns the engine's virtual clock, safe to read from the
// optional monitor sampler between ticks.
func (r *Runner) CurrentTime() uint64 { return r.time }

// Run drives the event loop to termination (spec.md §4.7) and flushes
// the trace sink. A structural, semantic, or deadlock error aborts the
// run after the trace prefix emitted so far is preserved (spec.md §7).
func (r *Runner) Run() error {
	for {
		halted, err := r.Tick()
		if err != nil {
			return err
		}
		if halted {
			return r.sink.Close()
		}
	}
}

// Tick runs one pass of the six-phase loop (spec.md §4.7) and reports
// whether every launcher is now idle.
func (r *Runner) Tick() (halted bool, err error) {
	var progressed bool

	for _, t := range r.launchers {
		p, err := r.advanceCursor(t)
		if err != nil {
			return false, err
		}
		progressed = progressed || p
	}

	for _, t := range r.launchers {
		p, err := r.drainEventQueue(t)
		if err != nil {
			return false, err
		}
		progressed = progressed || p
	}

	if r.allIdle() {
		return true, nil
	}

	for _, t := range r.launchers {
		p, err := r.scheduleOne(t)
		if err != nil {
			return false, err
		}
		progressed = progressed || p
	}

	advanced := r.jumpTime()

	var retired bool
	for _, t := range r.launchers {
		p, err := r.retireOne(t)
		if err != nil {
			return false, err
		}
		if p {
			retired = true
		}
	}

	if !progressed && !advanced && !retired {
		return false, &DeadlockError{State: r.snapshot()}
	}

	return false, nil
}

func (r *Runner) allIdle() bool {
	for _, t := range r.launchers {
		if !t.Idle(r.g) {
			return false
		}
	}
	return true
}

// jumpTime implements spec.md §4.7 phase 5: advance the virtual clock to
// the minimum end_time across every in-flight, started op. If nothing is
// in flight, time is left unchanged — progress must then come from a
// newly-drainable control signal on a later tick.
func (r *Runner) jumpTime() bool {
	var min uint64
	found := false

	for _, t := range r.launchers {
		e := t.Current()
		if e == nil || !e.Started {
			continue
		}
		if !found || e.EndTime < min {
			min = e.EndTime
			found = true
		}
	}

	if found && min > r.time {
		r.time = min
		return true
	}
	return false
}

func (r *Runner) registerLauncher(handle gir.ValueID, kind string) *launcher.Table {
	t := launcher.NewTable(fmt.Sprintf("%s%d", kind, len(r.launchers)), len(r.launchers), gir.NoBlock)
	r.launchers = append(r.launchers, t)
	r.byHandle[handle] = t
	return t
}

func (r *Runner) resolveTarget(op *gir.Op) (*launcher.Table, error) {
	switch {
	case op.Kind.IsControlSignal():
		return r.host, nil
	case op.Kind == gir.OpLaunch || op.Kind == gir.OpMemCopy:
		t, ok := r.byHandle[op.Target]
		if !ok {
			return nil, fmt.Errorf("runner: op %d targets a launcher that has not been created yet", op.ID)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("runner: op %d is not an async op", op.ID)
	}
}

func (r *Runner) snapshot() State {
	s := State{Time: r.time}
	for _, t := range r.launchers {
		ls := LauncherState{
			Name:        t.Name,
			PID:         t.PID,
			QueueLen:    0,
			CursorDepth: t.Depth(),
		}
		if e := t.Current(); e != nil {
			ls.HasCurrent = true
			ls.CurrentOp = e.Op
		}
		if !t.Idle(r.g) {
			s.ActiveLaunchers++
		}
		s.Launchers = append(s.Launchers, ls)
	}
	return s
}

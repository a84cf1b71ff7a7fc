package runner

import (
	"fmt"

	"github.com/sarchlab/irsim/gir"
)

// ErrNoTopLevelFunction reports that the driver could not locate a
// function named `graph` (spec.md §6, §7 structural failure). The runner
// never returns it, since it is handed a gir.Reader that already is the
// top-level function body, and the CLI driver, which always runs one of
// its built-in sample graphs, does not return it either.
var ErrNoTopLevelFunction = fmt.Errorf("irsim: no top-level function named \"graph\"")

// UnknownMemoryKindError wraps device.ParseKind's failure with the
// op that triggered it, for the structural-failure diagnostic spec.md §6
// and §7 require.
type UnknownMemoryKindError struct {
	Op  gir.OpID
	Err error
}

func (e *UnknownMemoryKindError) Error() string {
	return fmt.Sprintf("irsim: op %d: %v", e.Op, e.Err)
}

func (e *UnknownMemoryKindError) Unwrap() error { return e.Err }

// NonConstantBoundError wraps a for-loop's bound-folding failure
// (spec.md §7 semantic failure).
type NonConstantBoundError struct {
	Op  gir.OpID
	Err error
}

func (e *NonConstantBoundError) Error() string {
	return fmt.Sprintf("irsim: for-loop op %d has a non-constant bound: %v", e.Op, e.Err)
}

func (e *NonConstantBoundError) Unwrap() error { return e.Err }

// UnresolvedProducerError reports that an operand's signal has no
// producer at all to wait on and is not a legitimate top-level input
// (spec.md §7 semantic failure) — e.g. a dangling reference the IR
// builder mis-wired.
type UnresolvedProducerError struct {
	Op    gir.OpID
	Value gir.ValueID
}

func (e *UnresolvedProducerError) Error() string {
	return fmt.Sprintf("irsim: op %d: operand %d has no resolvable signal producer", e.Op, e.Value)
}

// DeadlockError reports that a full tick produced neither a retirement
// nor a time advance while launchers remain non-idle (spec.md §5, §7).
// It carries a State snapshot for the diagnostic.
type DeadlockError struct {
	State State
}

func (e *DeadlockError) Error() string {
	return fmt.Sprintf(
		"irsim: deadlock at time %d: no launcher made progress this tick (%d launchers still active)",
		e.State.Time, e.State.ActiveLaunchers,
	)
}

// State is a snapshot of the engine's last-known state, attached to
// fatal diagnostics per spec.md §7's "report last state".
type State struct {
	Time            uint64
	ActiveLaunchers int
	Launchers       []LauncherState
}

// LauncherState summarizes one launcher for a diagnostic snapshot.
type LauncherState struct {
	Name        string
	PID         int
	QueueLen    int
	HasCurrent  bool
	CurrentOp   gir.OpID
	CursorDepth int
}

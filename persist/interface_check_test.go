package persist

import "github.com/sarchlab/irsim/runner"

// If this compiles, *Recorder satisfies runner.OpRecorder.
var _ runner.OpRecorder = (*Recorder)(nil)

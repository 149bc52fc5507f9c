// Package stopflag implements the graph-level cooperative-stop flag: a
// shared boolean any node's Stop() call may set to signal the executor to
// exit after the current pass completes.
package stopflag

import "sync/atomic"

// Flag is safe for concurrent use by many nodes and one executor.
type Flag struct {
	stopped atomic.Bool
}

// New returns a flag in the "keep running" state.
func New() *Flag {
	return &Flag{}
}

// Stop sets the flag. Idempotent.
func (f *Flag) Stop() {
	f.stopped.Store(true)
}

// Stopped reports whether Stop has been called since the last Reset.
func (f *Flag) Stopped() bool {
	return f.stopped.Load()
}

// Reset clears the flag, as done by GraphAssembler.Reset.
func (f *Flag) Reset() {
	f.stopped.Store(false)
}

package depth

import (
	"sync/atomic"
)

// Provider holds the latest depth frame. Frames are replaced wholesale, so a
// caller that took a Snapshot keeps a consistent frame for its whole pass.
type Provider struct {
	frame      atomic.Pointer[Frame]
	generation atomic.Uint64
}

// Set publishes a new frame and returns its generation.
func (p *Provider) Set(f *Frame) uint64 {
	p.frame.Store(f)
	return p.generation.Add(1)
}

// Snapshot returns the current frame, or nil when no frame was received yet.
func (p *Provider) Snapshot() *Frame {
	return p.frame.Load()
}

// Ready reports whether a frame has been received.
func (p *Provider) Ready() bool {
	return p.frame.Load() != nil
}

// Generation returns the number of frames published so far.
func (p *Provider) Generation() uint64 {
	return p.generation.Load()
}

// Reset drops the current frame.
func (p *Provider) Reset() {
	p.frame.Store(nil)
}

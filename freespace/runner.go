package freespace

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/aukilabs/depthlab/collision"
	"github.com/aukilabs/depthlab/depth"
	"github.com/aukilabs/depthlab/geometry"
	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	ErrTypeBusy = "exploration-busy"
)

// Policy decides what happens when an exploration is requested while another
// one is running.
type Policy int

const (
	// The running exploration is cancelled and its result dropped.
	PolicySupersede Policy = iota

	// The new request is rejected.
	PolicyIgnoreWhileBusy
)

// GenerationSink receives the free points of the exploration with the given
// generation.
type GenerationSink func(generation uint64, point geometry.Vector3f, depthToCamera float32)

// Request describes an exploration to run.
type Request struct {
	// Identifies the exploration and whoever requested it. Both are recorded
	// when the exploration starts.
	ID    string
	Owner uint32

	Frame  *depth.Frame
	Camera collision.Camera
	Anchor geometry.Vector3f

	// Called from the exploration goroutine for each free point. Points of
	// superseded explorations are not forwarded. A point may still race with
	// a new Start, so consumers buffering points check IsCurrent before
	// publishing them.
	Sink GenerationSink

	// Called from the exploration goroutine when the exploration ends,
	// unless it was superseded.
	Done func(generation uint64, r Result)
}

// Runner runs at most one exploration at a time. Each started exploration
// gets a new generation; results and points from older generations are
// dropped.
type Runner struct {
	Explorer Explorer
	Policy   Policy

	generation atomic.Uint64

	mutex    sync.Mutex
	cancel   context.CancelFunc
	finished chan struct{}
	id       string
	owner    uint32
}

// Start launches an exploration in a new goroutine and returns its
// generation.
func (r *Runner) Start(ctx context.Context, req Request) (uint64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.busy() {
		if r.Policy == PolicyIgnoreWhileBusy {
			instrumentIgnoredExploration()
			return 0, errors.New("an exploration is already running").
				WithType(ErrTypeBusy).
				WithTag("generation", r.generation.Load())
		}
		r.cancel()
	}

	generation := r.generation.Add(1)
	ctx, cancel := context.WithCancel(ctx)
	finished := make(chan struct{})
	r.cancel = cancel
	r.finished = finished
	r.id = req.ID
	r.owner = req.Owner

	sink := func(p geometry.Vector3f, depthToCamera float32) {
		if req.Sink != nil && r.IsCurrent(generation) {
			req.Sink(generation, p, depthToCamera)
		}
	}

	go func() {
		defer close(finished)
		defer cancel()

		res := r.Explorer.Explore(ctx, req.Frame, req.Camera, req.Anchor, sink)
		if !r.IsCurrent(generation) {
			instrumentDroppedExploration()
			return
		}
		if req.Done != nil {
			req.Done(generation, res)
		}
	}()

	return generation, nil
}

// Cancel cancels the running exploration. Its result is still reported with
// the cancelled status.
func (r *Runner) Cancel() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.busy() {
		return false
	}
	r.cancel()
	return true
}

// CancelOwnedBy cancels the running exploration when it was requested by
// owner.
func (r *Runner) CancelOwnedBy(owner uint32) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.busy() || r.owner != owner {
		return false
	}
	r.cancel()
	return true
}

// Current returns the id and the owner of the latest started exploration.
func (r *Runner) Current() (id string, owner uint32) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.id, r.owner
}

// Busy reports whether an exploration is running.
func (r *Runner) Busy() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.busy()
}

// Wait blocks until the running exploration, if any, ends.
func (r *Runner) Wait() {
	r.mutex.Lock()
	finished := r.finished
	r.mutex.Unlock()

	if finished != nil {
		<-finished
	}
}

// Generation returns the generation of the latest started exploration.
func (r *Runner) Generation() uint64 {
	return r.generation.Load()
}

func (r *Runner) busy() bool {
	if r.finished == nil {
		return false
	}

	select {
	case <-r.finished:
		return false
	default:
		return true
	}
}

// IsCurrent reports whether generation is the latest started exploration.
func (r *Runner) IsCurrent(generation uint64) bool {
	return r.generation.Load() == generation
}

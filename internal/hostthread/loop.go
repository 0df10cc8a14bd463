// Package hostthread models the host's single privileged thread. Preference
// flags and the project directory live on a Loop and can only be read or
// changed from callbacks the Loop runs; everything else works on a Snapshot
// captured there.
package hostthread

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

var (
	// ErrLoopStopped is returned when work is submitted to a stopped Loop.
	ErrLoopStopped = errors.New("host loop stopped")
	// ErrNotPrivileged is the panic value raised when a Handle is used
	// outside the callback it was issued for.
	ErrNotPrivileged = errors.New("privileged state accessed outside the host loop")
)

// Loop executes submitted callbacks one at a time on a single goroutine
// locked to its OS thread.
type Loop struct {
	queue    chan func()
	stopOnce sync.Once
	stopped  chan struct{}
	done     chan struct{}

	// state is only touched by callbacks running on the loop.
	state Snapshot
}

// New creates a Loop holding the initial privileged state. Call Run to start
// processing.
func New(initial Snapshot) *Loop {
	return &Loop{
		queue:   make(chan func()),
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
		state:   initial,
	}
}

// Run processes callbacks on the calling goroutine until ctx is cancelled or
// Stop is called.
func (l *Loop) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(l.done)

	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return
		case <-l.stopped:
			return
		case fn := <-l.queue:
			fn()
		}
	}
}

// Start runs the loop on a new goroutine.
func (l *Loop) Start(ctx context.Context) {
	go l.Run(ctx)
}

// Stop ends Run. Pending Do calls return ErrLoopStopped.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stopped) })
}

// Wait blocks until Run has returned.
func (l *Loop) Wait() {
	<-l.done
}

// Do runs fn on the loop and waits for it to finish. The Handle passed to fn
// is only valid for the duration of the call.
func (l *Loop) Do(ctx context.Context, fn func(h *Handle) error) error {
	result := make(chan error, 1)
	task := func() {
		h := newHandle(l)
		defer h.expire()
		defer func() {
			if r := recover(); r != nil {
				result <- &PanicError{Value: r}
			}
		}()
		result <- fn(h)
	}

	select {
	case l.queue <- task:
	case <-l.stopped:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Capture is a convenience for Do that only snapshots the privileged state.
func (l *Loop) Capture(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := l.Do(ctx, func(h *Handle) error {
		snap = h.Capture()
		return nil
	})
	return snap, err
}

// PanicError wraps a panic raised inside a loop callback.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return "host loop callback panicked: " + err.Error()
	}
	if s, ok := e.Value.(string); ok {
		return "host loop callback panicked: " + s
	}
	return "host loop callback panicked"
}

func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

package modkit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Status is a lifecycle state. Transitions are linearized per
// instance via compare-and-swap on an atomic int32.
type Status int32

const (
	StatusStopped Status = iota
	StatusStarting
	StatusRunning
	StatusStopping
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// StopReason reports how a lifecycle's entry actually ended.
type StopReason int

const (
	// StopFinished means the entry had already returned before Stop
	// cancelled it (or the lifecycle was never started).
	StopFinished StopReason = iota
	// StopCancelled means the entry returned during the stop wait, after
	// cancellation was requested. Stop does not tell apart an entry that
	// observed the cancellation from one that happened to return on its
	// own during the wait; both are reported as StopCancelled.
	StopCancelled
	// StopTimeout means the stop wait expired before the entry returned; the
	// lifecycle forces state back to Stopped and abandons the running goroutine.
	StopTimeout
)

func (r StopReason) String() string {
	switch r {
	case StopFinished:
		return "finished"
	case StopCancelled:
		return "cancelled"
	case StopTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// RunFunc is a stateful module's entry point. It must return promptly
// once cancel is cancelled. If ready is non-nil, the entry must call
// ready.Notify() once it is actually serving, before doing its main
// blocking work.
type RunFunc func(cancel Token, ready *ReadySignal) error

// Runnable is the capability a module implements to opt into the
// generated lifecycle wrapper instead of hand-writing Start/Stop.
type Runnable interface {
	Run(cancel Token, ready *ReadySignal) error
}

// Lifecycle drives a single RunFunc through Stopped -> Starting ->
// Running -> Stopping -> Stopped, per spec.md §4.2.
type Lifecycle struct {
	name        string
	run         RunFunc
	awaitReady  bool
	stopTimeout time.Duration

	status atomic.Int32

	mu        sync.Mutex
	cancel    Token
	done      chan struct{}
	runErr    error
	cancelled atomic.Bool
}

// NewLifecycle builds a Lifecycle around run. If awaitReady is true,
// the Starting -> Running transition happens only when the entry
// calls ready.Notify(); otherwise it happens implicitly right after
// spawn. stopTimeout bounds how long Stop waits for the entry to
// return after cancellation.
func NewLifecycle(name string, run RunFunc, awaitReady bool, stopTimeout time.Duration) *Lifecycle {
	l := &Lifecycle{name: name, run: run, awaitReady: awaitReady, stopTimeout: stopTimeout}
	l.status.Store(int32(StatusStopped))
	return l
}

// Status returns the current lifecycle state.
func (l *Lifecycle) Status() Status {
	return Status(l.status.Load())
}

// Start transitions Stopped -> Starting (then -> Running per the
// awaitReady rule). A second call while not Stopped fails with
// ErrInvalidState.
func (l *Lifecycle) Start() error {
	if !l.status.CompareAndSwap(int32(StatusStopped), int32(StatusStarting)) {
		return fmt.Errorf("%w: lifecycle %q start from %s", ErrInvalidState, l.name, l.Status())
	}

	l.mu.Lock()
	token := NewToken()
	l.cancel = token
	l.done = make(chan struct{})
	l.mu.Unlock()

	ready := NewReadySignal()
	go func() {
		err := l.run(token, ready)
		l.mu.Lock()
		l.runErr = err
		l.mu.Unlock()
		close(l.done)
	}()

	if !l.awaitReady {
		l.status.CompareAndSwap(int32(StatusStarting), int32(StatusRunning))
		return nil
	}

	select {
	case <-ready.Wait():
		l.status.CompareAndSwap(int32(StatusStarting), int32(StatusRunning))
		return nil
	case <-l.done:
		// Entry returned before signalling ready; surface its error,
		// since this is the only chance the caller gets to see it
		// (e.g. BindFailure from a Run that never reaches ready.Notify).
		l.status.Store(int32(StatusStopped))
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.runErr
	}
}

// Stop cancels the token and awaits the entry's completion up to
// stopTimeout. It neither logs nor returns the entry's own failure;
// that failure is available via LastError after Stop returns.
func (l *Lifecycle) Stop() StopReason {
	l.mu.Lock()
	done := l.done
	cancel := l.cancel
	l.mu.Unlock()

	if done == nil {
		// Never started; nothing to do.
		return StopFinished
	}

	select {
	case <-done:
		// Already finished on its own before Stop was even called.
		l.status.Store(int32(StatusStopped))
		return StopFinished
	default:
	}

	l.status.Store(int32(StatusStopping))
	l.cancelled.Store(true)
	cancel.Cancel()

	timer := time.NewTimer(l.stopTimeout)
	defer timer.Stop()

	select {
	case <-done:
		l.status.Store(int32(StatusStopped))
		return StopCancelled
	case <-timer.C:
		// Force Stopped; the goroutine is abandoned, the caller is
		// responsible for releasing any resources it holds.
		l.status.Store(int32(StatusStopped))
		return StopTimeout
	}
}

// LastError returns the error the entry returned, if any, after it
// has completed.
func (l *Lifecycle) LastError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.runErr
}

// WithLifecycle adapts a Runnable into the StatefulModule capability
// (Start/Stop), generalizing the teacher's pattern of wrapping a
// user-supplied entry point with generated lifecycle plumbing.
type WithLifecycle struct {
	lc *Lifecycle
}

// NewWithLifecycle wraps r as a StatefulModule.
func NewWithLifecycle(name string, r Runnable, awaitReady bool, stopTimeout time.Duration) *WithLifecycle {
	return &WithLifecycle{lc: NewLifecycle(name, r.Run, awaitReady, stopTimeout)}
}

func (w *WithLifecycle) Start(cancel Token) error {
	_ = cancel          // unused: the entry runs under the lifecycle's own root token, which only Stop cancels
	return w.lc.Start() // propagates a run error that arrived before ready.Notify, e.g. ErrBindFailure
}

func (w *WithLifecycle) Stop(cancel Token) error {
	_ = cancel
	reason := w.lc.Stop()
	if reason == StopTimeout {
		return fmt.Errorf("%w: stop timed out", ErrInvalidState)
	}
	return nil
}

// Status exposes the wrapped lifecycle's state, for tests and health checks.
func (w *WithLifecycle) Status() Status { return w.lc.Status() }

package busybee

import (
	"context"
	"sync"

	"github.com/cybozu-go/log"
)

// Environment implements context-based goroutine management.
//
// The HTTP server and the traffic generator both run as goroutines
// managed by a single Environment so that shutdown can observe and
// join them together.
type Environment struct {
	ctx    context.Context
	cancel context.CancelFunc
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
	err     error
}

// NewEnvironment creates a new Environment whose base context is
// derived from ctx.
func NewEnvironment(ctx context.Context) *Environment {
	ctx, cancel := context.WithCancel(ctx)
	return &Environment{
		ctx:    ctx,
		cancel: cancel,
		stopCh: make(chan struct{}),
	}
}

// Context returns the base context of the environment.
func (e *Environment) Context() context.Context {
	return e.ctx
}

func (e *Environment) stop(err error) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return false
	}

	e.stopped = true
	e.err = err
	close(e.stopCh) // unleash Wait()
	return true
}

// Stop just declares no further Go is called.
//
// This returns true if the caller is the first that calls Stop
// or Cancel.
func (e *Environment) Stop() bool {
	return e.stop(nil)
}

// Cancel cancels the base context.
//
// Passed err will be returned by Wait().
// Once canceled, Go() will not start new goroutines.
//
// This returns true if the caller is the first that calls Stop
// or Cancel.  For second and later calls, Cancel does nothing
// and returns false.
func (e *Environment) Cancel(err error) bool {
	e.cancel()
	return e.stop(err)
}

// Wait waits for Stop or Cancel being called.
//
// The returned err is the one passed to Cancel.
// err can be tested by IsSignaled to determine whether the
// program got SIGINT or SIGTERM.
func (e *Environment) Wait() error {
	<-e.stopCh
	log.Debug("busybee: waiting for all goroutines to complete", nil)
	e.wg.Wait()
	e.cancel() // in case of Stop

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.err
}

// Go starts a goroutine that executes f.
//
// f takes a derived context from the base context.  The context
// will be canceled when f returns.
//
// Goroutines started by this function will be waited for by
// Wait until all such goroutines return.
//
// If f returns non-nil error, Cancel is called immediately
// with that error.
//
// f should watch ctx.Done() channel and return quickly when the
// channel is closed.
func (e *Environment) Go(f func(ctx context.Context) error) {
	e.mu.RLock()
	if e.stopped {
		e.mu.RUnlock()
		return
	}
	e.wg.Add(1)
	e.mu.RUnlock()

	go func() {
		ctx, cancel := context.WithCancel(e.ctx)
		defer cancel()
		err := f(ctx)
		if err != nil {
			e.Cancel(err)
		}
		e.wg.Done()
	}()
}

package ingest

import (
	"context"
	"sync"
)

// Initializer is a one-shot readiness promise. Start launches the given
// function exactly once; every waiter observes the same outcome.
type Initializer struct {
	once sync.Once
	done chan struct{}
	err  error
}

// NewInitializer creates an unstarted initializer.
func NewInitializer() *Initializer {
	return &Initializer{done: make(chan struct{})}
}

// Start runs fn in the background. Later calls are no-ops.
func (i *Initializer) Start(fn func() error) {
	i.once.Do(func() {
		go func() {
			i.err = fn()
			close(i.done)
		}()
	})
}

// Ready reports whether initialization finished successfully.
func (i *Initializer) Ready() bool {
	select {
	case <-i.done:
		return i.err == nil
	default:
		return false
	}
}

// Err returns the initialization error once finished, nil before.
func (i *Initializer) Err() error {
	select {
	case <-i.done:
		return i.err
	default:
		return nil
	}
}

// Wait blocks until initialization finishes or ctx is done.
func (i *Initializer) Wait(ctx context.Context) error {
	select {
	case <-i.done:
		return i.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

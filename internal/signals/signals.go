// Package signals provides the shell's signal utility.
//
// Go delivers signals to channels rather than interrupting the main flow, so
// "blocking" a signal here means holding its Mask: a handler installed with
// Handle runs only while it holds the same Mask, which gives the single
// writer discipline a C shell gets from sigprocmask.
package signals

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
)

// Mask serializes a signal handler against the main control flow. It is not
// reentrant.
type Mask struct {
	mu      sync.Mutex
	blocked atomic.Bool
}

func (m *Mask) Block() {
	m.mu.Lock()
	m.blocked.Store(true)
}

func (m *Mask) Unblock() {
	m.blocked.Store(false)
	m.mu.Unlock()
}

// IsBlocked reports whether the mask is held. It does not say by whom: a
// caller that has not blocked the mask itself sees true while the handler
// runs. Guards built on it catch a missing Block in the main flow only when
// no handler is running at the same time.
func (m *Mask) IsBlocked() bool {
	return m.blocked.Load()
}

// Handle runs fn for every delivery of sigs until ctx is done. Each call to
// fn holds m, so fn never overlaps with a blocked section of the main flow or
// with another invocation of itself. The returned channel is closed once the
// handler goroutine has exited.
func Handle(ctx context.Context, m *Mask, fn func(os.Signal), sigs ...os.Signal) <-chan struct{} {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-ch:
				m.Block()
				fn(sig)
				m.Unblock()
			}
		}
	}()
	return done
}

// Catch installs a handler that discards sigs until ctx is done. Unlike
// signal.Ignore, caught signals are reset to their default disposition in
// exec'd children.
func Catch(ctx context.Context, sigs ...os.Signal) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
			}
		}
	}()
}

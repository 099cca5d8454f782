// Package signal cancels the command context on SIGINT or SIGTERM. Code that must
// not be interrupted halfway, such as a schema migration, holds off the
// cancellation until it is done.
package signal

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// guard defers cancellation while any hold is outstanding.
type guard struct {
	mu      sync.Mutex
	holds   int
	pending context.CancelFunc
}

var interrupts guard

// WithCancel returns a context that is cancelled when SIGINT or SIGTERM arrives.
// Call the returned cancel function when the command finishes.
func WithCancel(parent context.Context) (context.Context, context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	return interrupts.cancelOn(parent, sigs, func() { signal.Stop(sigs) })
}

// Hold delays signal cancellation until the returned release function is called.
// Holds nest; a signal received while held cancels on the last release.
func Hold() (release func()) {
	return interrupts.hold()
}

func (g *guard) cancelOn(parent context.Context, sigs <-chan os.Signal, stop func()) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		defer stop()
		select {
		case <-sigs:
			g.mu.Lock()
			if g.holds > 0 {
				g.pending = cancel
				g.mu.Unlock()
				return
			}
			g.mu.Unlock()
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func (g *guard) hold() func() {
	g.mu.Lock()
	g.holds++
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(g.release)
	}
}

func (g *guard) release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.holds--
	if g.holds == 0 && g.pending != nil {
		g.pending()
		g.pending = nil
	}
}

// Package refresh runs a task on a fixed interval for the lifetime of the
// process, replacing the ad hoc background scheduler thread approach.
package refresh

import (
	"context"
	"log"
	"sync"
	"time"
)

// Runner invokes fn every interval until Stop is called or the context is
// cancelled. A run in progress always completes; there is no mid-task
// cancellation.
type Runner struct {
	interval time.Duration
	fn       func(context.Context)

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewRunner(interval time.Duration, fn func(context.Context)) *Runner {
	return &Runner{
		interval: interval,
		fn:       fn,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the ticker loop. It returns immediately.
func (r *Runner) Start(ctx context.Context) {
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.fn(context.WithoutCancel(ctx))
			case <-ctx.Done():
				log.Printf("refresh runner stopping: %v", ctx.Err())
				return
			case <-r.stop:
				return
			}
		}
	}()
}

// Stop ends the loop and waits for it to exit. Safe to call more than once.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

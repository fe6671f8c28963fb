/*
Copyright 2026 The CSE-Core Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package worker is the CSE's background worker pool: a registry of
// named, interval-scheduled tasks with cooperative cancellation (spec.md
// §5, §9). Workers are singletons by name; starting a second worker under
// a name already in use is a logic error, not a runtime one.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/onem2m-labs/cse-core/internal/logging"
)

// A Func is the body of a scheduled task. It receives the context the
// Pool was stopped with, and should return promptly once ctx is done.
type Func func(ctx context.Context)

type worker struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Pool is a registry of named interval-scheduled workers.
type Pool struct {
	log logging.Logger

	mu      sync.Mutex
	workers map[string]*worker
}

// NewPool returns an empty Pool.
func NewPool(log logging.Logger) *Pool {
	return &Pool{log: log, workers: make(map[string]*worker)}
}

// Start launches fn on a goroutine, invoking it once every interval
// (after an initial delay of offset) until the pool is stopped or the
// worker is individually stopped. Starting a worker under a name that is
// already running panics: per spec.md §5, "Workers are singletons by
// name; creating a worker with an already-used name is a logic error."
func (p *Pool) Start(name string, interval, offset time.Duration, fn Func) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.workers[name]; exists {
		panic(fmt.Sprintf("worker: a worker named %q is already running", name))
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &worker{cancel: cancel, done: make(chan struct{})}
	p.workers[name] = w

	go p.run(ctx, w, name, interval, offset, fn)
}

func (p *Pool) run(ctx context.Context, w *worker, name string, interval, offset time.Duration, fn Func) {
	defer close(w.done)

	if offset > 0 {
		t := time.NewTimer(offset)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}

	if interval <= 0 {
		// A non-positive interval runs fn exactly once, immediately
		// (after the offset), rather than on a repeating schedule; this
		// is how the expiration monitor is disabled per spec.md §4.2's
		// "checkExpirationsInterval seconds (0 disables)".
		p.invoke(ctx, name, fn)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.invoke(ctx, name, fn)
		}
	}
}

func (p *Pool) invoke(ctx context.Context, name string, fn Func) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Info("recovered panic in background worker", "worker", name, "panic", r)
		}
	}()
	fn(ctx)
}

// Stop cancels the worker named name and waits for it to return. Stopping
// a worker that is not running is a no-op.
func (p *Pool) Stop(name string) {
	p.mu.Lock()
	w, exists := p.workers[name]
	if exists {
		delete(p.workers, name)
	}
	p.mu.Unlock()

	if !exists {
		return
	}
	w.cancel()
	<-w.done
}

// StopAll cancels every running worker and waits for each to return,
// giving up and returning false after timeout if any worker has not
// stopped by then.
func (p *Pool) StopAll(timeout time.Duration) bool {
	p.mu.Lock()
	names := make([]string, 0, len(p.workers))
	for name := range p.workers {
		names = append(names, name)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		for _, name := range names {
			p.Stop(name)
		}
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Limiter returns a token-bucket rate limiter suitable for bounding
// remote delivery concurrency (subscription notifications, announcement
// POSTs) — spec.md §5's "dedicated background pool with bounded fan-out
// concurrency".
func Limiter(ratePerSecond float64, burst int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(ratePerSecond), burst)
}

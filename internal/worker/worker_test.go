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

package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/onem2m-labs/cse-core/internal/logging"
)

func TestStartRunsRepeatedly(t *testing.T) {
	p := NewPool(logging.NopLogger())
	var calls int64

	p.Start("ticker", 5*time.Millisecond, 0, func(context.Context) {
		atomic.AddInt64(&calls, 1)
	})
	defer p.Stop("ticker")

	time.Sleep(40 * time.Millisecond)
	if atomic.LoadInt64(&calls) < 2 {
		t.Errorf("want at least 2 invocations in 40ms at a 5ms interval, got %d", atomic.LoadInt64(&calls))
	}
}

func TestStartDuplicateNamePanics(t *testing.T) {
	p := NewPool(logging.NopLogger())
	p.Start("dup", time.Hour, 0, func(context.Context) {})
	defer p.Stop("dup")

	defer func() {
		if r := recover(); r == nil {
			t.Error("want Start to panic on a duplicate worker name")
		}
	}()
	p.Start("dup", time.Hour, 0, func(context.Context) {})
}

func TestStopIsIdempotentForUnknownName(t *testing.T) {
	p := NewPool(logging.NopLogger())
	p.Stop("never-started") // must not panic or block
}

func TestStopAllWaitsForWorkers(t *testing.T) {
	p := NewPool(logging.NopLogger())
	var running int64

	p.Start("w1", time.Millisecond, 0, func(ctx context.Context) {
		atomic.StoreInt64(&running, 1)
		<-ctx.Done()
		atomic.StoreInt64(&running, 0)
	})

	time.Sleep(10 * time.Millisecond)
	if !p.StopAll(time.Second) {
		t.Fatal("StopAll: want true before timeout")
	}
}

func TestInvokeRecoversPanic(t *testing.T) {
	p := NewPool(logging.NopLogger())
	var calls int64

	p.Start("panicker", 5*time.Millisecond, 0, func(context.Context) {
		atomic.AddInt64(&calls, 1)
		panic("boom")
	})
	defer p.Stop("panicker")

	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt64(&calls) < 2 {
		t.Errorf("want the worker to keep ticking after a panic, got %d calls", atomic.LoadInt64(&calls))
	}
}

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

// Package eventbus provides the CSE's in-process publish/subscribe hub for
// resource lifecycle hooks. It replaces module-global callback attachment
// with an explicit bus of typed event kinds, each with a listener set
// indexed by name so registration is idempotent and unregistration by name
// is safe even if the caller never kept a handle.
package eventbus

import (
	"sync"

	"github.com/onem2m-labs/cse-core/internal/logging"
	"github.com/onem2m-labs/cse-core/internal/resource"
)

// A Kind names one lifecycle event the bus carries. Payloads are always
// resources, per spec.md §6.
type Kind string

// Event kinds the bus carries, per spec.md §6.
const (
	KindCreatedResource       Kind = "createdResource"
	KindUpdatedResource       Kind = "updatedResource"
	KindDeletedResource       Kind = "deletedResource"
	KindExpireResource        Kind = "expireResource"
	KindRemoteCSERegistered   Kind = "remoteCSEHasRegistered"
	KindRemoteCSEDeregistered Kind = "remoteCSEHasDeregistered"
	KindRemoteCSEUpdate       Kind = "remoteCSEUpdate"
)

// An Event carries a lifecycle occurrence. Patch is only populated for
// KindUpdatedResource and KindRemoteCSEUpdate, holding the patch that was
// applied (the Open Question in spec.md §9 is resolved by internal/resource:
// Resource is the post-update state throughout, see DESIGN.md).
type Event struct {
	Kind     Kind
	Resource *resource.Resource
	Patch    map[string]interface{}
}

// A Listener receives events it is subscribed to. Implementations must
// not block for long: the bus delivers to local listeners synchronously,
// per spec.md §5 ("Event-bus delivery is synchronous for local
// listeners").
type Listener func(Event)

// A Bus is the CSE's event hub. The zero value is not usable; use New.
type Bus struct {
	log logging.Logger

	mu        sync.RWMutex
	listeners map[Kind]map[string]Listener
}

// New returns an empty Bus.
func New(log logging.Logger) *Bus {
	return &Bus{
		log:       log,
		listeners: make(map[Kind]map[string]Listener),
	}
}

// Subscribe registers fn under name for events of kind. Subscribing again
// under the same (kind, name) pair replaces the previous listener —
// registration is idempotent.
func (b *Bus) Subscribe(kind Kind, name string, fn Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.listeners[kind] == nil {
		b.listeners[kind] = make(map[string]Listener)
	}
	b.listeners[kind][name] = fn
}

// Unsubscribe removes the listener registered under name for kind, if any.
// Unsubscribing a name that was never registered is a no-op.
func (b *Bus) Unsubscribe(kind Kind, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.listeners[kind], name)
}

// UnsubscribeAll removes every listener registered under name, across all
// event kinds. Used when a subscription resource is deleted: its
// event-bus registrations are keyed by the subscription's ri regardless of
// which kinds it listens for.
func (b *Bus) UnsubscribeAll(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for kind := range b.listeners {
		delete(b.listeners[kind], name)
	}
}

// Publish delivers evt to every listener subscribed to evt.Kind,
// synchronously and in no particular order across listeners (spec.md §5:
// "Across subscriptions, no inter-subscription ordering is guaranteed").
// A listener that panics is recovered and logged so one bad subscriber
// cannot take down the dispatcher operation that published the event.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	fns := make([]Listener, 0, len(b.listeners[evt.Kind]))
	for _, fn := range b.listeners[evt.Kind] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		b.deliver(fn, evt)
	}
}

func (b *Bus) deliver(fn Listener, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Info("recovered panic in event listener", "kind", evt.Kind, "panic", r)
		}
	}()
	fn(evt)
}

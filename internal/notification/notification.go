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

// Package notification is the Subscription & Notification Manager
// (spec.md §4.4): subscription bookkeeping, event-filter evaluation, and
// notification fan-out including the verification handshake and
// deregistration notices.
package notification

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/onem2m-labs/cse-core/apis/onem2m"
	"github.com/onem2m-labs/cse-core/internal/eventbus"
	"github.com/onem2m-labs/cse-core/internal/logging"
	"github.com/onem2m-labs/cse-core/internal/oerrors"
	"github.com/onem2m-labs/cse-core/internal/resource"
	"github.com/onem2m-labs/cse-core/internal/storage"
	"github.com/onem2m-labs/cse-core/internal/transport"
)

// listenerName is the bus registration this manager uses for every event
// kind it subscribes to.
const listenerName = "notification-manager"

// KindSubscriptionNotificationFailed is raised when a nu URI is dropped
// after exhausting its retry budget (spec.md §4.4's "implementation
// decision; the repository does not retry further"). It is not one of
// the seven events spec.md §6 enumerates by name, so it is defined here
// rather than in package eventbus.
const KindSubscriptionNotificationFailed eventbus.Kind = "subscriptionNotificationFailed"

// maxDeliveryAttempts bounds the retry budget for a single notification
// POST before the target URI is dropped.
const maxDeliveryAttempts = 3

// A ReachabilityChecker reports whether an AE resolved from a nu entry is
// currently reachable (its rr attribute), per the rr-gating supplemented
// feature. A nil entry, or an entry that does not resolve to a local AE,
// is always considered reachable at this layer — the real-world check is
// the verification POST itself.
type ReachabilityChecker interface {
	IsReachable(ctx context.Context, nuEntry string) (known, reachable bool)
}

// subscriptionState is a subscription's live bookkeeping, separate from
// its on-disk resource.Resource representation.
type subscriptionState struct {
	ri       string
	pi       string
	nu       []string
	net      map[onem2m.NetType]bool
	nct      onem2m.NotificationContentType
	exc      int
	su       string
	verified bool
}

// deliveryRecorder is the subset of internal/metrics.Recorder this package
// depends on; declared locally to avoid a hard dependency edge for
// callers that never wire metrics in.
type deliveryRecorder interface {
	RecordNotification(delivered bool)
}

// Manager is the Subscription & Notification Manager.
type Manager struct {
	store   storage.Store
	bus     *eventbus.Bus
	poster  transport.Poster
	limiter *rate.Limiter
	reach   ReachabilityChecker
	log     logging.Logger

	mu      sync.Mutex
	subs    map[string]*subscriptionState
	metrics deliveryRecorder
}

// SetMetrics wires a delivery-outcome recorder. Optional; a nil recorder
// (the default) simply skips instrumentation.
func (m *Manager) SetMetrics(r deliveryRecorder) { m.metrics = r }

// New returns a Manager and registers its event-bus listeners. reach may
// be nil, in which case rr-gating is skipped.
func New(store storage.Store, bus *eventbus.Bus, poster transport.Poster, limiter *rate.Limiter, reach ReachabilityChecker, log logging.Logger) *Manager {
	m := &Manager{
		store:   store,
		bus:     bus,
		poster:  poster,
		limiter: limiter,
		reach:   reach,
		log:     log,
		subs:    make(map[string]*subscriptionState),
	}

	bus.Subscribe(eventbus.KindCreatedResource, listenerName, m.onEvent(eventbus.KindCreatedResource))
	bus.Subscribe(eventbus.KindUpdatedResource, listenerName, m.onEvent(eventbus.KindUpdatedResource))
	bus.Subscribe(eventbus.KindDeletedResource, listenerName, m.onEvent(eventbus.KindDeletedResource))
	return m
}

// netTypesFromAttr decodes a subscription's enc.net attribute
// ({net: [1,3,...]}) into a set of NetTypes.
func netTypesFromAttr(v interface{}) map[onem2m.NetType]bool {
	out := make(map[onem2m.NetType]bool)
	m, ok := v.(map[string]interface{})
	if !ok {
		return out
	}
	nets, ok := m["net"].([]interface{})
	if !ok {
		return out
	}
	for _, n := range nets {
		switch t := n.(type) {
		case float64:
			out[onem2m.NetType(t)] = true
		case int:
			out[onem2m.NetType(t)] = true
		}
	}
	return out
}

// OnCreate runs the verification handshake (spec.md §4.4 step 2) before
// the subscription is persisted. It is invoked synchronously by the
// dispatcher as part of creating a Subscription resource; a non-nil
// return aborts the create and the subscription is never stored.
func (m *Manager) OnCreate(ctx context.Context, sub *resource.Resource) error {
	nu := sub.StringArrayAttr("nu")
	if len(nu) == 0 {
		return oerrors.Status(onem2m.BadRequest, "subscription nu must be non-empty")
	}

	targets := nu
	su := sub.Attr("su")
	if s, ok := su.(string); ok && s != "" {
		targets = []string{s}
	}

	for _, target := range targets {
		if m.reach != nil {
			if known, reachable := m.reach.IsReachable(ctx, target); known && !reachable {
				return oerrors.Statusf(onem2m.TargetNotReachable, "verification target %q is not reachable (rr=false)", target)
			}
		}

		vrq := true
		body := signalNotification{Sgn: signalBody{VRQ: &vrq, SUR: sub.RI()}}
		if err := m.poster.Post(ctx, target, body); err != nil {
			return oerrors.WithStatus(onem2m.SubscriptionVerificationInitFailed, oerrors.Wrapf(err, "verification POST to %q failed", target))
		}
	}
	return nil
}

// AfterPersist registers sub for event filtering, after the dispatcher
// has successfully stored it.
func (m *Manager) AfterPersist(sub *resource.Resource) {
	st := stateFromResourceAttrs(sub)
	st.verified = true

	m.mu.Lock()
	m.subs[st.ri] = st
	m.mu.Unlock()
}

func stateFromResourceAttrs(sub *resource.Resource) *subscriptionState {
	nct := onem2m.NCTAllAttributes
	if v, ok := sub.Attr("nct").(float64); ok {
		nct = onem2m.NotificationContentType(v)
	}
	exc := -1
	if v, ok := sub.Attr("exc").(float64); ok {
		exc = int(v)
	}
	su := ""
	if s, ok := sub.Attr("su").(string); ok {
		su = s
	}
	return &subscriptionState{
		ri:  sub.RI(),
		pi:  sub.PI(),
		nu:  sub.StringArrayAttr("nu"),
		net: netTypesFromAttr(sub.Attr("enc")),
		nct: nct,
		exc: exc,
		su:  su,
	}
}

// OnDelete sends the subscription-deletion notice (sud=true) to every
// live nu URI, then forgets sub. Invoked by the dispatcher as part of
// deleting the Subscription resource itself.
func (m *Manager) OnDelete(ctx context.Context, sub *resource.Resource) {
	m.mu.Lock()
	st, ok := m.subs[sub.RI()]
	delete(m.subs, sub.RI())
	m.mu.Unlock()

	if !ok || !st.verified {
		return
	}

	sud := true
	body := signalNotification{Sgn: signalBody{SUD: &sud, SUR: st.ri}}

	m.mu.Lock()
	live := append([]string(nil), st.nu...)
	m.mu.Unlock()

	for _, uri := range live {
		if err := m.poster.Post(ctx, uri, body); err != nil {
			m.log.Info("deregistration notice delivery failed", "subscription", st.ri, "target", uri, "error", err.Error())
		}
	}
}

// onEvent returns the bus listener for one lifecycle event kind.
func (m *Manager) onEvent(kind eventbus.Kind) eventbus.Listener {
	net, ofParent := netTypeFor(kind)
	return func(evt eventbus.Event) {
		m.fanOut(context.Background(), evt, net, ofParent)
	}
}

// netTypeFor maps a bus Kind to the NetType a directly-monitored resource
// sees (ofParent=false) vs. the NetType a parent's subscription sees for
// a child event (ofParent=true).
func netTypeFor(kind eventbus.Kind) (onem2m.NetType, bool) {
	switch kind {
	case eventbus.KindCreatedResource:
		return onem2m.NetCreateDirectChild, true
	case eventbus.KindUpdatedResource:
		return onem2m.NetUpdateResource, false
	case eventbus.KindDeletedResource:
		return onem2m.NetDeleteDirectChild, true
	default:
		return 0, false
	}
}

func (m *Manager) fanOut(ctx context.Context, evt eventbus.Event, net onem2m.NetType, ofParent bool) {
	if evt.Resource == nil {
		return
	}

	var monitoredBy string
	if ofParent {
		monitoredBy = evt.Resource.PI()
	} else {
		monitoredBy = evt.Resource.RI()
	}

	m.mu.Lock()
	var matched []*subscriptionState
	for _, st := range m.subs {
		if st.pi == monitoredBy && st.net[net] {
			matched = append(matched, st)
		}
	}
	m.mu.Unlock()

	for _, st := range matched {
		m.deliverTo(ctx, st, evt)
	}
}

func (m *Manager) deliverTo(ctx context.Context, st *subscriptionState, evt eventbus.Event) {
	body := m.buildNotification(st, evt)

	m.mu.Lock()
	live := append([]string(nil), st.nu...)
	m.mu.Unlock()

	var failed []string
	for _, uri := range live {
		err := m.deliverWithRetry(ctx, uri, body)
		if m.metrics != nil {
			m.metrics.RecordNotification(err == nil)
		}
		if err != nil {
			m.log.Info("notification delivery exhausted retries, dropping target", "subscription", st.ri, "target", uri)
			failed = append(failed, uri)
		}
	}

	if len(failed) > 0 {
		m.dropTargets(st, failed)
	}

	m.decrementAndMaybeExpire(ctx, st)
}

func (m *Manager) deliverWithRetry(ctx context.Context, uri string, body interface{}) error {
	var err error
	backoff := 10 * time.Millisecond
	for attempt := 0; attempt < maxDeliveryAttempts; attempt++ {
		if m.limiter != nil {
			if werr := m.limiter.Wait(ctx); werr != nil {
				return werr
			}
		}
		if err = m.poster.Post(ctx, uri, body); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

func (m *Manager) dropTargets(st *subscriptionState, dropped []string) {
	dropSet := make(map[string]bool, len(dropped))
	for _, d := range dropped {
		dropSet[d] = true
	}

	m.mu.Lock()
	remaining := st.nu[:0]
	for _, uri := range st.nu {
		if !dropSet[uri] {
			remaining = append(remaining, uri)
		}
	}
	st.nu = remaining
	m.mu.Unlock()

	m.bus.Publish(eventbus.Event{Kind: KindSubscriptionNotificationFailed})
}

func (m *Manager) decrementAndMaybeExpire(ctx context.Context, st *subscriptionState) {
	m.mu.Lock()
	noLimit := st.exc < 0
	if !noLimit {
		st.exc--
	}
	exhausted := !noLimit && st.exc <= 0
	m.mu.Unlock()

	if exhausted {
		m.mu.Lock()
		delete(m.subs, st.ri)
		m.mu.Unlock()
		if err := m.store.Delete(ctx, st.ri); err != nil {
			m.log.Info("failed to delete exhausted subscription", "subscription", st.ri, "error", err.Error())
		}
	}
}

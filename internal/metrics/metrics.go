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

// Package metrics exposes the CSE's Prometheus instrumentation: resource
// lifecycle counters recorded by subscribing to the event bus, plus
// counters the Notification and Announcement managers update directly
// for delivery outcomes the bus does not carry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/onem2m-labs/cse-core/internal/eventbus"
)

const subSystem = "csecore"

const listenerName = "metrics"

// A Recorder holds every Prometheus collector this package registers. The
// zero value is not usable; use New.
type Recorder struct {
	resourceOps       *prometheus.CounterVec
	expirySweeps      prometheus.Counter
	expiredResources  prometheus.Counter
	remoteCSEEvents   *prometheus.CounterVec
	notificationsSent *prometheus.CounterVec
	announcementsSent *prometheus.CounterVec
}

// New returns a Recorder, registers its collectors with reg, and
// subscribes it to bus for the resource-lifecycle and expiry events
// (spec.md §4.1, §4.2) so callers never need to instrument the
// dispatcher or registration manager directly.
func New(reg prometheus.Registerer, bus *eventbus.Bus) *Recorder {
	r := &Recorder{
		resourceOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subSystem,
			Name:      "resource_operations_total",
			Help:      "Count of resource lifecycle events by kind and resource type.",
		}, []string{"kind", "type"}),
		expirySweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subSystem,
			Name:      "expiry_sweeps_total",
			Help:      "Count of resources removed by the expiration monitor.",
		}),
		expiredResources: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: subSystem,
			Name:      "expired_resources_total",
			Help:      "Count of resources removed because their et elapsed.",
		}),
		remoteCSEEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subSystem,
			Name:      "remote_cse_events_total",
			Help:      "Count of RemoteCSE registration/update/deregistration events.",
		}, []string{"event"}),
		notificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subSystem,
			Name:      "notifications_sent_total",
			Help:      "Count of subscription notification deliveries by outcome.",
		}, []string{"outcome"}),
		announcementsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subSystem,
			Name:      "announcements_sent_total",
			Help:      "Count of resource-announcement deliveries by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(r.resourceOps, r.expirySweeps, r.expiredResources, r.remoteCSEEvents, r.notificationsSent, r.announcementsSent)

	bus.Subscribe(eventbus.KindCreatedResource, listenerName, r.onResourceEvent("created"))
	bus.Subscribe(eventbus.KindUpdatedResource, listenerName, r.onResourceEvent("updated"))
	bus.Subscribe(eventbus.KindDeletedResource, listenerName, r.onResourceEvent("deleted"))
	bus.Subscribe(eventbus.KindExpireResource, listenerName, r.onExpireEvent)
	bus.Subscribe(eventbus.KindRemoteCSERegistered, listenerName, r.onRemoteCSEEvent("registered"))
	bus.Subscribe(eventbus.KindRemoteCSEDeregistered, listenerName, r.onRemoteCSEEvent("deregistered"))
	bus.Subscribe(eventbus.KindRemoteCSEUpdate, listenerName, r.onRemoteCSEEvent("updated"))

	return r
}

func (r *Recorder) onResourceEvent(kind string) eventbus.Listener {
	return func(evt eventbus.Event) {
		r.resourceOps.WithLabelValues(kind, evt.Resource.Type().String()).Inc()
	}
}

func (r *Recorder) onExpireEvent(evt eventbus.Event) {
	r.expirySweeps.Inc()
	r.expiredResources.Inc()
	r.resourceOps.WithLabelValues("expired", evt.Resource.Type().String()).Inc()
}

func (r *Recorder) onRemoteCSEEvent(event string) eventbus.Listener {
	return func(eventbus.Event) {
		r.remoteCSEEvents.WithLabelValues(event).Inc()
	}
}

// RecordNotification records the outcome of one subscription notification
// delivery attempt. The Notification Manager calls this directly, since
// individual delivery attempts (as opposed to the subscription's own
// create/delete) have no event-bus representation.
func (r *Recorder) RecordNotification(delivered bool) {
	r.notificationsSent.WithLabelValues(outcome(delivered)).Inc()
}

// RecordAnnouncement records the outcome of one announcement delivery
// attempt, for the same reason as RecordNotification.
func (r *Recorder) RecordAnnouncement(delivered bool) {
	r.announcementsSent.WithLabelValues(outcome(delivered)).Inc()
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

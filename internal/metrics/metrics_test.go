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

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/onem2m-labs/cse-core/apis/onem2m"
	"github.com/onem2m-labs/cse-core/internal/eventbus"
	"github.com/onem2m-labs/cse-core/internal/logging"
	"github.com/onem2m-labs/cse-core/internal/resource"
)

func TestRecorderCountsResourceLifecycleEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	bus := eventbus.New(logging.NopLogger())
	r := New(reg, bus)

	cnt := resource.New(onem2m.TypeContainer)
	bus.Publish(eventbus.Event{Kind: eventbus.KindCreatedResource, Resource: cnt})
	bus.Publish(eventbus.Event{Kind: eventbus.KindUpdatedResource, Resource: cnt})
	bus.Publish(eventbus.Event{Kind: eventbus.KindDeletedResource, Resource: cnt})

	if got := testutil.ToFloat64(r.resourceOps.WithLabelValues("created", onem2m.TypeContainer.String())); got != 1 {
		t.Errorf("created count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.resourceOps.WithLabelValues("updated", onem2m.TypeContainer.String())); got != 1 {
		t.Errorf("updated count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.resourceOps.WithLabelValues("deleted", onem2m.TypeContainer.String())); got != 1 {
		t.Errorf("deleted count = %v, want 1", got)
	}
}

func TestRecorderCountsExpiry(t *testing.T) {
	reg := prometheus.NewRegistry()
	bus := eventbus.New(logging.NopLogger())
	r := New(reg, bus)

	bus.Publish(eventbus.Event{Kind: eventbus.KindExpireResource, Resource: resource.New(onem2m.TypeContentInstance)})
	bus.Publish(eventbus.Event{Kind: eventbus.KindExpireResource, Resource: resource.New(onem2m.TypeContentInstance)})

	if got := testutil.ToFloat64(r.expirySweeps); got != 2 {
		t.Errorf("expirySweeps = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.expiredResources); got != 2 {
		t.Errorf("expiredResources = %v, want 2", got)
	}
}

func TestRecorderCountsRemoteCSEEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	bus := eventbus.New(logging.NopLogger())
	r := New(reg, bus)

	bus.Publish(eventbus.Event{Kind: eventbus.KindRemoteCSERegistered, Resource: resource.New(onem2m.TypeRemoteCSE)})
	bus.Publish(eventbus.Event{Kind: eventbus.KindRemoteCSEDeregistered, Resource: resource.New(onem2m.TypeRemoteCSE)})
	bus.Publish(eventbus.Event{Kind: eventbus.KindRemoteCSEUpdate, Resource: resource.New(onem2m.TypeRemoteCSE)})

	if got := testutil.ToFloat64(r.remoteCSEEvents.WithLabelValues("registered")); got != 1 {
		t.Errorf("registered count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.remoteCSEEvents.WithLabelValues("deregistered")); got != 1 {
		t.Errorf("deregistered count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.remoteCSEEvents.WithLabelValues("updated")); got != 1 {
		t.Errorf("updated count = %v, want 1", got)
	}
}

func TestRecordNotificationAndAnnouncement(t *testing.T) {
	reg := prometheus.NewRegistry()
	bus := eventbus.New(logging.NopLogger())
	r := New(reg, bus)

	r.RecordNotification(true)
	r.RecordNotification(false)
	r.RecordAnnouncement(true)

	if got := testutil.ToFloat64(r.notificationsSent.WithLabelValues("success")); got != 1 {
		t.Errorf("notification success count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.notificationsSent.WithLabelValues("failure")); got != 1 {
		t.Errorf("notification failure count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.announcementsSent.WithLabelValues("success")); got != 1 {
		t.Errorf("announcement success count = %v, want 1", got)
	}
}

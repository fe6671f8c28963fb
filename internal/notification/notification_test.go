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

package notification

import (
	"context"
	"sync"
	"testing"

	"github.com/onem2m-labs/cse-core/apis/onem2m"
	"github.com/onem2m-labs/cse-core/internal/eventbus"
	"github.com/onem2m-labs/cse-core/internal/logging"
	"github.com/onem2m-labs/cse-core/internal/oerrors"
	"github.com/onem2m-labs/cse-core/internal/resource"
	"github.com/onem2m-labs/cse-core/internal/storage/memstore"
)

// fakePoster records every POST it receives and can be told to fail for a
// given target URI.
type fakePoster struct {
	mu      sync.Mutex
	posts   []postedRequest
	failFor map[string]bool
}

type postedRequest struct {
	uri  string
	body interface{}
}

func newFakePoster(failFor ...string) *fakePoster {
	fp := &fakePoster{failFor: make(map[string]bool)}
	for _, f := range failFor {
		fp.failFor[f] = true
	}
	return fp
}

func (f *fakePoster) Post(ctx context.Context, uri string, body interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, postedRequest{uri: uri, body: body})
	if f.failFor[uri] {
		return oerrors.Statusf(onem2m.TargetNotReachable, "fake failure for %q", uri)
	}
	return nil
}

func (f *fakePoster) countTo(uri string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.posts {
		if p.uri == uri {
			n++
		}
	}
	return n
}

// fakeReachability reports rr=false for every URI in unreachable.
type fakeReachability struct {
	unreachable map[string]bool
}

func (f *fakeReachability) IsReachable(ctx context.Context, nuEntry string) (known, reachable bool) {
	if f.unreachable[nuEntry] {
		return true, false
	}
	return false, false
}

func subscriptionResource(ri, pi string, nu []string) *resource.Resource {
	sub := resource.New(onem2m.TypeSubscription)
	sub.SetRI(ri)
	sub.SetPI(pi)
	sub.SetAttr("nu", nu)
	return sub
}

func TestOnCreate(t *testing.T) {
	cases := map[string]struct {
		reason  string
		sub     *resource.Resource
		reach   ReachabilityChecker
		wantErr bool
		wantSt  onem2m.ResponseStatusCode
	}{
		"Success": {
			reason: "a reachable nu target receives a verification POST and OnCreate succeeds",
			sub:    subscriptionResource("sub-1", "cnt-1", []string{"http://ae.example/notify"}),
		},
		"EmptyNu": {
			reason:  "a subscription with no nu is rejected before any POST is attempted",
			sub:     subscriptionResource("sub-2", "cnt-1", nil),
			wantErr: true,
			wantSt:  onem2m.BadRequest,
		},
		"UnreachableTarget": {
			reason:  "rr-gating rejects a target known to be unreachable",
			sub:     subscriptionResource("sub-3", "cnt-1", []string{"http://ae.example/notify"}),
			reach:   &fakeReachability{unreachable: map[string]bool{"http://ae.example/notify": true}},
			wantErr: true,
			wantSt:  onem2m.TargetNotReachable,
		},
		"VerificationPostFails": {
			reason:  "a failed verification POST surfaces as subscriptionVerificationInitFailed",
			sub:     subscriptionResource("sub-4", "cnt-1", []string{"http://down.example/notify"}),
			wantErr: true,
			wantSt:  onem2m.SubscriptionVerificationInitFailed,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var poster *fakePoster
			if name == "VerificationPostFails" {
				poster = newFakePoster("http://down.example/notify")
			} else {
				poster = newFakePoster()
			}

			store := memstore.New()
			bus := eventbus.New(logging.NopLogger())
			m := New(store, bus, poster, nil, tc.reach, logging.NopLogger())

			err := m.OnCreate(context.Background(), tc.sub)
			if (err != nil) != tc.wantErr {
				t.Fatalf("\n%s\nOnCreate(...): wantErr %v, got %v", tc.reason, tc.wantErr, err)
			}
			if tc.wantErr && oerrors.StatusCode(err) != tc.wantSt {
				t.Errorf("\n%s\nOnCreate(...): want status %v, got %v", tc.reason, tc.wantSt, oerrors.StatusCode(err))
			}
			if !tc.wantErr && poster.countTo(tc.sub.StringArrayAttr("nu")[0]) != 1 {
				t.Errorf("\n%s\nOnCreate(...): want exactly one verification POST", tc.reason)
			}
		})
	}
}

func TestFanOutMatching(t *testing.T) {
	cases := map[string]struct {
		reason   string
		subPI    string
		net      onem2m.NetType
		evtKind  eventbus.Kind
		evtRI    string
		evtPI    string
		wantHits int
	}{
		"SelfUpdateMatches": {
			reason:   "a subscription on the monitored resource sees its own update events",
			subPI:    "cnt-1",
			net:      onem2m.NetUpdateResource,
			evtKind:  eventbus.KindUpdatedResource,
			evtRI:    "cnt-1",
			evtPI:    "cse-in",
			wantHits: 1,
		},
		"ChildCreateMatches": {
			reason:   "a subscription on a container sees a direct child's creation",
			subPI:    "cnt-1",
			net:      onem2m.NetCreateDirectChild,
			evtKind:  eventbus.KindCreatedResource,
			evtRI:    "cin-1",
			evtPI:    "cnt-1",
			wantHits: 1,
		},
		"ChildDeleteMatches": {
			reason:   "a subscription on a container sees a direct child's deletion",
			subPI:    "cnt-1",
			net:      onem2m.NetDeleteDirectChild,
			evtKind:  eventbus.KindDeletedResource,
			evtRI:    "cin-1",
			evtPI:    "cnt-1",
			wantHits: 1,
		},
		"UnrelatedResourceDoesNotMatch": {
			reason:   "an event under a different parent does not trigger the subscription",
			subPI:    "cnt-1",
			net:      onem2m.NetCreateDirectChild,
			evtKind:  eventbus.KindCreatedResource,
			evtRI:    "cin-1",
			evtPI:    "cnt-2",
			wantHits: 0,
		},
		"WrongNetDoesNotMatch": {
			reason:   "a subscription only watching updates does not fire on a child create",
			subPI:    "cnt-1",
			net:      onem2m.NetUpdateResource,
			evtKind:  eventbus.KindCreatedResource,
			evtRI:    "cin-1",
			evtPI:    "cnt-1",
			wantHits: 0,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			poster := newFakePoster()
			store := memstore.New()
			bus := eventbus.New(logging.NopLogger())
			m := New(store, bus, poster, nil, nil, logging.NopLogger())

			sub := subscriptionResource("sub-1", tc.subPI, []string{"http://ae.example/notify"})
			sub.SetAttr("enc", map[string]interface{}{"net": []interface{}{float64(tc.net)}})
			m.AfterPersist(sub)

			evtResource := resource.New(onem2m.TypeContentInstance)
			evtResource.SetRI(tc.evtRI)
			evtResource.SetPI(tc.evtPI)

			bus.Publish(eventbus.Event{Kind: tc.evtKind, Resource: evtResource})

			if got := poster.countTo("http://ae.example/notify"); got != tc.wantHits {
				t.Errorf("\n%s\nfan-out: want %d notification(s), got %d", tc.reason, tc.wantHits, got)
			}
		})
	}
}

func TestBuildNotificationContentTypes(t *testing.T) {
	res := resource.New(onem2m.TypeContentInstance)
	res.SetRI("cin-1")
	res.SetPI("cnt-1")
	res.SetAttr("con", "hello")

	evt := eventbus.Event{
		Kind:     eventbus.KindUpdatedResource,
		Resource: res,
		Patch:    map[string]interface{}{"con": "hello", "ty": float64(onem2m.TypeContentInstance)},
	}

	cases := map[string]struct {
		reason    string
		nct       onem2m.NotificationContentType
		checkBody func(t *testing.T, rep map[string]interface{})
	}{
		"AllAttributes": {
			reason: "nct=allAttributes includes the full representation",
			nct:    onem2m.NCTAllAttributes,
			checkBody: func(t *testing.T, rep map[string]interface{}) {
				if rep["con"] != "hello" {
					t.Errorf("want con in full representation, got %v", rep)
				}
			},
		},
		"ModifiedAttributesExcludesTy": {
			reason: "nct=modifiedAttributes never includes ty even when ty is in the patch",
			nct:    onem2m.NCTModifiedAttributes,
			checkBody: func(t *testing.T, rep map[string]interface{}) {
				if _, ok := rep["ty"]; ok {
					t.Errorf("ty must never appear in a modifiedAttributes notification, got %v", rep)
				}
				if rep["con"] != "hello" {
					t.Errorf("want con (a patched attribute) present, got %v", rep)
				}
			},
		},
		"RIOnly": {
			reason: "nct=riOnly reports only the resource's ri under m2m:uri",
			nct:    onem2m.NCTRIOnly,
			checkBody: func(t *testing.T, rep map[string]interface{}) {
				if rep["m2m:uri"] != "cin-1" {
					t.Errorf("want m2m:uri=cin-1, got %v", rep)
				}
			},
		},
		"Trigger": {
			reason: "nct=trigger carries no representation at all",
			nct:    onem2m.NCTTrigger,
			checkBody: func(t *testing.T, rep map[string]interface{}) {
				if rep != nil {
					t.Errorf("want nil rep for trigger, got %v", rep)
				}
			},
		},
	}

	m := &Manager{}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			st := &subscriptionState{ri: "sub-1", nct: tc.nct}
			body := m.buildNotification(st, evt)
			tc.checkBody(t, body.Sgn.NEV.Rep)
		})
	}
}

func TestOnDeleteSendsDeregistrationNotice(t *testing.T) {
	poster := newFakePoster()
	store := memstore.New()
	bus := eventbus.New(logging.NopLogger())
	m := New(store, bus, poster, nil, nil, logging.NopLogger())

	sub := subscriptionResource("sub-1", "cnt-1", []string{"http://ae.example/notify"})
	m.AfterPersist(sub)

	m.OnDelete(context.Background(), sub)

	if got := poster.countTo("http://ae.example/notify"); got != 1 {
		t.Fatalf("OnDelete(...): want one deregistration POST, got %d", got)
	}
	m.mu.Lock()
	_, stillTracked := m.subs["sub-1"]
	m.mu.Unlock()
	if stillTracked {
		t.Errorf("OnDelete(...): subscription state must be forgotten after delete")
	}
}

func TestOnDeleteIgnoresUnverifiedSubscription(t *testing.T) {
	poster := newFakePoster()
	store := memstore.New()
	bus := eventbus.New(logging.NopLogger())
	m := New(store, bus, poster, nil, nil, logging.NopLogger())

	sub := subscriptionResource("sub-1", "cnt-1", []string{"http://ae.example/notify"})
	// Deliberately not calling AfterPersist: the subscription was never
	// tracked, e.g. because OnCreate failed before persistence.
	m.OnDelete(context.Background(), sub)

	if got := poster.countTo("http://ae.example/notify"); got != 0 {
		t.Errorf("OnDelete(...): want no POST for an untracked subscription, got %d", got)
	}
}

// TestConcurrentDeliveryAndDropDoesNotRace exercises deliverTo and
// dropTargets concurrently on the same subscriptionState, the way two
// overlapping creates under the same parent container do in production
// (the dispatcher's lockTable only serializes operations sharing a ri).
// It must pass under -race.
func TestConcurrentDeliveryAndDropDoesNotRace(t *testing.T) {
	poster := newFakePoster("http://down.example/notify")
	store := memstore.New()
	bus := eventbus.New(logging.NopLogger())
	m := New(store, bus, poster, nil, nil, logging.NopLogger())

	sub := subscriptionResource("sub-1", "cnt-1", []string{"http://down.example/notify", "http://ae.example/notify"})
	sub.SetAttr("enc", map[string]interface{}{"net": []interface{}{float64(onem2m.NetCreateDirectChild)}})
	m.AfterPersist(sub)

	m.mu.Lock()
	st := m.subs["sub-1"]
	m.mu.Unlock()

	evt := eventbus.Event{Kind: eventbus.KindCreatedResource, Resource: subscriptionResource("cin-1", "cnt-1", nil)}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.deliverTo(context.Background(), st, evt)
		}()
	}
	wg.Wait()
}

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

// Package announcement is the Announcement Manager (spec.md §4.5):
// replication of selected resources and attributes from this CSE to
// remote CSEs, keeping announced shadows in sync with their originals as
// at/aa change and tearing them down when the original is deleted.
package announcement

import (
	"context"
	"reflect"
	"strings"
	"sync"

	"github.com/onem2m-labs/cse-core/apis/onem2m"
	"github.com/onem2m-labs/cse-core/internal/idgen"
	"github.com/onem2m-labs/cse-core/internal/logging"
	"github.com/onem2m-labs/cse-core/internal/oerrors"
	"github.com/onem2m-labs/cse-core/internal/resource"
	"github.com/onem2m-labs/cse-core/internal/storage"
	"github.com/onem2m-labs/cse-core/internal/transport"
	"github.com/onem2m-labs/cse-core/internal/typeregistry"
)

// deliveryRecorder is the subset of internal/metrics.Recorder this package
// depends on; declared locally to avoid a hard dependency edge for
// callers that never wire metrics in.
type deliveryRecorder interface {
	RecordAnnouncement(delivered bool)
}

// Manager is the Announcement Manager.
type Manager struct {
	store  storage.Store
	poster transport.Poster
	log    logging.Logger

	mu sync.Mutex
	// shadows[originalRI][remoteCSEID] is the ri this CSE assigned to the
	// announced twin it POSTed to that remote CSE.
	shadows map[string]map[string]string
	metrics deliveryRecorder
}

// SetMetrics wires a delivery-outcome recorder. Optional; a nil recorder
// (the default) simply skips instrumentation.
func (m *Manager) SetMetrics(r deliveryRecorder) { m.metrics = r }

// New returns a Manager.
func New(store storage.Store, poster transport.Poster, log logging.Logger) *Manager {
	return &Manager{
		store:   store,
		poster:  poster,
		log:     log,
		shadows: make(map[string]map[string]string),
	}
}

// bareRemoteIDs returns the entries of at that are still plain remote CSE
// identifiers — announcement targets not yet (or no longer) confirmed.
// A confirmed entry has the "<remoteCseId>/<annc-ri>" shape spec.md §4.5
// describes and is skipped here.
func bareRemoteIDs(at []string) []string {
	out := make([]string, 0, len(at))
	for _, a := range at {
		if !strings.Contains(a, "/") {
			out = append(out, a)
		}
	}
	return out
}

func setDiff(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, v := range b {
		inB[v] = true
	}
	var out []string
	for _, v := range a {
		if !inB[v] {
			out = append(out, v)
		}
	}
	return out
}

func (m *Manager) track(originalRI, remoteCSEID, shadowRI string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shadows[originalRI] == nil {
		m.shadows[originalRI] = make(map[string]string)
	}
	m.shadows[originalRI][remoteCSEID] = shadowRI
}

func (m *Manager) forget(originalRI, remoteCSEID string) (shadowRI string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	shadows := m.shadows[originalRI]
	shadowRI, ok = shadows[remoteCSEID]
	delete(shadows, remoteCSEID)
	return shadowRI, ok
}

func (m *Manager) forgetAll(originalRI string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	shadows := m.shadows[originalRI]
	delete(m.shadows, originalRI)
	return shadows
}

func (m *Manager) shadowsOf(originalRI string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.shadows[originalRI]))
	for k, v := range m.shadows[originalRI] {
		out[k] = v
	}
	return out
}

// resolveRemoteCSE looks up the locally-registered RemoteCSE descriptor
// for a remote CSE identifier, and returns its first point-of-access
// entry as the POST target.
func (m *Manager) resolveRemoteCSE(ctx context.Context, remoteCSEID string) (poa string, remoteRI string, err error) {
	matches, err := m.store.SearchByValueInField(ctx, "csi", remoteCSEID)
	if err != nil {
		return "", "", err
	}
	for _, r := range matches {
		if r.Type() != onem2m.TypeRemoteCSE {
			continue
		}
		poas := r.StringArrayAttr("poa")
		if len(poas) == 0 {
			return "", "", oerrors.Statusf(onem2m.TargetNotReachable, "remote CSE %q has no point of access", remoteCSEID)
		}
		return poas[0], r.RI(), nil
	}
	return "", "", oerrors.Statusf(onem2m.NotFound, "no registered RemoteCSE descriptor for %q", remoteCSEID)
}

// buildShadow constructs the announced twin of original, carrying the
// always-announced attribute set plus every attribute aa names.
func buildShadow(original *resource.Resource, aa []string) (*resource.Resource, error) {
	annTy, ok := typeregistry.AnnouncedType(original.Type())
	if !ok {
		return nil, oerrors.Statusf(onem2m.BadRequest, "resource type %v has no announced variant", original.Type())
	}

	shadow := resource.New(annTy)
	shadow.SetRI(idgen.ResourceID("annc"))
	shadow.SetCT(idgen.Now())
	shadow.SetLT(idgen.Now())
	shadow.SetLnk(original.RI())

	for _, attr := range typeregistry.AnnouncedAttributes(original.Type(), aa) {
		if v := original.Attr(attr); v != nil {
			shadow.SetAttr(attr, v)
		}
	}
	return shadow, nil
}

// announcePayload is the wire envelope for an announced-shadow create.
type announcePayload struct {
	Annc map[string]interface{} `json:"m2m:annc"`
}

// announceDeletePayload is the wire envelope for tearing down a shadow.
// The transport collaborator is POST-only (spec.md §6 names it as an
// out-of-scope collaborator exposing just delivery, not a full CRUD
// client), so deletion reuses Post with an explicit delete-intent body,
// the same way the notification manager reuses Post for its sud=true
// deregistration notice rather than a separate DELETE call.
type announceDeletePayload struct {
	AnncDelete struct {
		RI string `json:"ri"`
	} `json:"m2m:annc-delete"`
}

// announceUpdatePayload propagates an attribute change to an existing
// shadow.
type announceUpdatePayload struct {
	AnncUpdate struct {
		RI    string                 `json:"ri"`
		Set   map[string]interface{} `json:"set,omitempty"`
		Unset []string               `json:"unset,omitempty"`
	} `json:"m2m:annc-update"`
}

// OnCreate runs the announce-on-create step (spec.md §4.5) after the
// dispatcher has persisted r. It is a no-op if r carries no at entries.
// Successful announcements are appended to r.At() and the resource is
// re-persisted directly; this mirrors the notification manager's
// auto-expiry shortcut (see DESIGN.md) rather than routing back through
// the dispatcher, since no further cascade applies to an at-list append.
func (m *Manager) OnCreate(ctx context.Context, r *resource.Resource) error {
	targets := bareRemoteIDs(r.At())
	if len(targets) == 0 {
		return nil
	}

	confirmations := m.announceTo(ctx, r, targets, r.Aa())
	if len(confirmations) == 0 {
		return nil
	}

	r.SetAt(append(append([]string{}, r.At()...), confirmations...))
	return m.store.Update(ctx, r.RI(), r)
}

// announceTo POSTs a fresh shadow of original to each remote CSE id in
// targets and returns the "<remoteCseId>/<annc-ri>" confirmation strings
// for the ones that succeeded. Failures are logged, per spec.md §4.5's
// "remote failures are logged and the shadow ID is not appended".
func (m *Manager) announceTo(ctx context.Context, original *resource.Resource, targets, aa []string) []string {
	var confirmations []string
	for _, remoteCSEID := range targets {
		shadow, err := buildShadow(original, aa)
		if err != nil {
			m.log.Info("cannot build announced shadow", "resource", original.RI(), "remote", remoteCSEID, "error", err.Error())
			continue
		}

		poa, remoteRI, err := m.resolveRemoteCSE(ctx, remoteCSEID)
		if err != nil {
			m.log.Info("cannot resolve remote CSE", "resource", original.RI(), "remote", remoteCSEID, "error", err.Error())
			continue
		}
		shadow.SetPI(remoteRI)

		err = m.poster.Post(ctx, poa, announcePayload{Annc: shadow.AsMap()})
		if m.metrics != nil {
			m.metrics.RecordAnnouncement(err == nil)
		}
		if err != nil {
			m.log.Info("announcement delivery failed", "resource", original.RI(), "remote", remoteCSEID, "error", err.Error())
			continue
		}

		m.track(original.RI(), remoteCSEID, shadow.RI())
		confirmations = append(confirmations, remoteCSEID+"/"+shadow.RI())
	}
	return confirmations
}

// OnUpdate runs the reconcile-on-update step: additions to at announce
// new shadows, removals delete them, and changes to an announced
// attribute propagate to every still-live shadow.
func (m *Manager) OnUpdate(ctx context.Context, old, updated *resource.Resource) error {
	oldTargets := bareRemoteIDs(old.At())
	newTargets := bareRemoteIDs(updated.At())

	for _, remoteCSEID := range setDiff(oldTargets, newTargets) {
		m.deleteShadow(ctx, updated.RI(), remoteCSEID)
	}

	added := setDiff(newTargets, oldTargets)
	confirmations := m.announceTo(ctx, updated, added, updated.Aa())

	m.propagateAttributeChanges(ctx, old, updated)

	if len(confirmations) == 0 {
		return nil
	}
	updated.SetAt(append(append([]string{}, updated.At()...), confirmations...))
	return m.store.Update(ctx, updated.RI(), updated)
}

// propagateAttributeChanges pushes changes to the announced attribute
// set (always-announced attributes plus whatever aa currently lists) to
// every shadow this manager currently tracks for updated, including any
// announced earlier in the same OnUpdate; shadows deleted there are no
// longer tracked and receive nothing.
func (m *Manager) propagateAttributeChanges(ctx context.Context, old, updated *resource.Resource) {
	oldAttrs := typeregistry.AnnouncedAttributes(old.Type(), old.Aa())
	newAttrs := typeregistry.AnnouncedAttributes(updated.Type(), updated.Aa())

	newSet := make(map[string]bool, len(newAttrs))
	for _, a := range newAttrs {
		newSet[a] = true
	}
	oldSet := make(map[string]bool, len(oldAttrs))
	for _, a := range oldAttrs {
		oldSet[a] = true
	}

	set := map[string]interface{}{}
	for _, a := range newAttrs {
		nv, ov := updated.Attr(a), old.Attr(a)
		if !oldSet[a] || !reflect.DeepEqual(nv, ov) {
			set[a] = nv
		}
	}
	var unset []string
	for _, a := range oldAttrs {
		if !newSet[a] {
			unset = append(unset, a)
		}
	}
	if len(set) == 0 && len(unset) == 0 {
		return
	}

	for remoteCSEID, shadowRI := range m.shadowsOf(updated.RI()) {
		poa, _, err := m.resolveRemoteCSE(ctx, remoteCSEID)
		if err != nil {
			m.log.Info("cannot resolve remote CSE for attribute propagation", "resource", updated.RI(), "remote", remoteCSEID, "error", err.Error())
			continue
		}
		payload := announceUpdatePayload{}
		payload.AnncUpdate.RI = shadowRI
		payload.AnncUpdate.Set = set
		payload.AnncUpdate.Unset = unset
		if err := m.poster.Post(ctx, poa, payload); err != nil {
			m.log.Info("announcement attribute propagation failed", "resource", updated.RI(), "remote", remoteCSEID, "error", err.Error())
		}
	}
}

func (m *Manager) deleteShadow(ctx context.Context, originalRI, remoteCSEID string) {
	shadowRI, ok := m.forget(originalRI, remoteCSEID)
	if !ok {
		return
	}
	poa, _, err := m.resolveRemoteCSE(ctx, remoteCSEID)
	if err != nil {
		m.log.Info("cannot resolve remote CSE for shadow teardown", "resource", originalRI, "remote", remoteCSEID, "error", err.Error())
		return
	}
	payload := announceDeletePayload{}
	payload.AnncDelete.RI = shadowRI
	if err := m.poster.Post(ctx, poa, payload); err != nil {
		m.log.Info("announcement teardown delivery failed", "resource", originalRI, "remote", remoteCSEID, "error", err.Error())
	}
}

// OnDelete tears down every shadow still tracked for r, per spec.md
// §4.5's "deletion of the original deletes every shadow enumerated in
// its at".
func (m *Manager) OnDelete(ctx context.Context, r *resource.Resource) {
	for remoteCSEID, shadowRI := range m.forgetAll(r.RI()) {
		poa, _, err := m.resolveRemoteCSE(ctx, remoteCSEID)
		if err != nil {
			m.log.Info("cannot resolve remote CSE for shadow teardown", "resource", r.RI(), "remote", remoteCSEID, "error", err.Error())
			continue
		}
		payload := announceDeletePayload{}
		payload.AnncDelete.RI = shadowRI
		if err := m.poster.Post(ctx, poa, payload); err != nil {
			m.log.Info("announcement teardown delivery failed", "resource", r.RI(), "remote", remoteCSEID, "error", err.Error())
		}
	}
}

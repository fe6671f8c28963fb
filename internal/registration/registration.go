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

// Package registration is the Registration Manager (spec.md §4.2):
// admission and identity assignment for AE, RemoteCSE (CSR), and Request
// resources, the creator-attribute policy shared by every creatable
// type, internal access-control-policy management, and the expiration
// monitor.
package registration

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"github.com/onem2m-labs/cse-core/apis/onem2m"
	"github.com/onem2m-labs/cse-core/internal/config"
	"github.com/onem2m-labs/cse-core/internal/eventbus"
	"github.com/onem2m-labs/cse-core/internal/fieldpath"
	"github.com/onem2m-labs/cse-core/internal/idgen"
	"github.com/onem2m-labs/cse-core/internal/logging"
	"github.com/onem2m-labs/cse-core/internal/oerrors"
	"github.com/onem2m-labs/cse-core/internal/resource"
	"github.com/onem2m-labs/cse-core/internal/storage"
	"github.com/onem2m-labs/cse-core/internal/typeregistry"
	"github.com/onem2m-labs/cse-core/internal/worker"
)

// Dispatcher is the subset of dispatcher operations the registration
// manager needs: internal ACP management persists through create/delete,
// and the expiration monitor drives deletion of expired resources.
// internal/dispatcher implements this interface; it is injected after
// construction via SetDispatcher to avoid an import cycle (the
// dispatcher in turn holds a *Manager directly).
type Dispatcher interface {
	Create(ctx context.Context, parentRI string, child *resource.Resource, originator string) (*resource.Resource, error)
	Retrieve(ctx context.Context, id, originator string) (*resource.Resource, error)
	Delete(ctx context.Context, ri, originator string, withDeregistration bool) error
}

// Manager is the Registration Manager.
type Manager struct {
	store storage.Store
	bus   *eventbus.Bus
	log   logging.Logger

	cseOriginator string
	cseRn         string
	cseType       onem2m.CSEType
	pvsAcop       onem2m.Permission

	allowedAE  []glob.Glob
	allowedCSR []glob.Glob

	mu         sync.RWMutex
	dispatcher Dispatcher
}

// New compiles cfg's allowlists and returns a Manager. pvsAcop is the
// default self-permission mask for internally created ACPs
// (cse.acp.pvs.acop, per the original implementation's configuration
// key).
func New(store storage.Store, bus *eventbus.Bus, log logging.Logger, cfg config.Registration, cseOriginator, cseRn string, cseType onem2m.CSEType, pvsAcop onem2m.Permission) (*Manager, error) {
	ae, err := compileGlobs(cfg.AllowedAEOriginators)
	if err != nil {
		return nil, oerrors.Wrap(err, "cannot compile allowedAEOriginators")
	}
	csr, err := compileGlobs(cfg.AllowedCSROriginators)
	if err != nil {
		return nil, oerrors.Wrap(err, "cannot compile allowedCSROriginators")
	}
	return &Manager{
		store:         store,
		bus:           bus,
		log:           log,
		cseOriginator: cseOriginator,
		cseRn:         cseRn,
		cseType:       cseType,
		pvsAcop:       pvsAcop,
		allowedAE:     ae,
		allowedCSR:    csr,
	}, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// SetDispatcher wires the dispatcher this manager persists internal ACPs
// and expired resources through. It must be called once, after both the
// dispatcher and this Manager have been constructed.
func (m *Manager) SetDispatcher(d Dispatcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatcher = d
}

func (m *Manager) dispatcherRef() Dispatcher {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dispatcher
}

func allowedOriginator(originator string, allowlist []glob.Glob) bool {
	if len(allowlist) == 0 {
		return true
	}
	for _, g := range allowlist {
		if g.Match(originator) {
			return true
		}
	}
	return false
}

// OnCreate runs admission for child before the dispatcher persists it,
// returning the originator to record as the create's effective
// originator (AE admission may replace it with a freshly assigned aei).
// It is invoked for every create, not just AE/RemoteCSE/Request: the
// creator-attribute policy applies uniformly across types.
func (m *Manager) OnCreate(ctx context.Context, child, parent *resource.Resource, originator string) (string, error) {
	switch child.Type() {
	case onem2m.TypeAE:
		assigned, err := m.handleAERegistration(ctx, child, parent, originator)
		if err != nil {
			return "", err
		}
		originator = assigned
	case onem2m.TypeRemoteCSE:
		if m.cseType == onem2m.CSETypeASN {
			return "", oerrors.Status(onem2m.OperationNotAllowed, "cannot register a RemoteCSE to an ASN CSE")
		}
		m.bus.Publish(eventbus.Event{Kind: eventbus.KindRemoteCSERegistered, Resource: child})
	case onem2m.TypeRequest:
		// No additional admission beyond the creator policy below.
	}

	if err := m.handleCreatorPolicy(child, originator); err != nil {
		return "", err
	}
	return originator, nil
}

func (m *Manager) handleAERegistration(ctx context.Context, ae, parent *resource.Resource, originator string) (string, error) {
	if parent == nil || parent.Type() != onem2m.TypeCSEBase {
		return "", oerrors.Status(onem2m.InvalidChildResourceType, "an AE's parent must be the CSEBase")
	}

	if originator == "" {
		originator = "C"
	}
	if !allowedOriginator(originator, m.allowedAE) {
		return "", oerrors.Statusf(onem2m.AppRuleValidationFailed, "originator %q is not allowed to register", originator)
	}

	switch originator {
	case "C":
		originator = idgen.Unique("C")
	case "S":
		originator = idgen.Unique("S")
	default:
		originator = strings.TrimPrefix(originator, "/")
	}

	existing, err := m.store.SearchByValueInField(ctx, "aei", originator)
	if err != nil {
		return "", err
	}
	if len(existing) > 0 {
		return "", oerrors.Statusf(onem2m.OriginatorHasAlreadyRegistered, "originator %q has already registered", originator)
	}

	ae.SetAttr("aei", originator)
	ae.SetRI(originator)
	return originator, nil
}

// handleCreatorPolicy enforces spec.md §4.2's creator-attribute policy:
// cr may only appear on a creator-bearing type, and the caller may never
// supply its value — the server always assigns cr = originator.
func (m *Manager) handleCreatorPolicy(r *resource.Resource, originator string) error {
	p := typeregistry.Lookup(r.Type())
	bearing := p != nil && p.CreatorBearing

	if !r.HasAttr(resource.AttrCR) {
		if bearing {
			r.SetCreator(originator)
		}
		return nil
	}
	if !bearing {
		return oerrors.Statusf(onem2m.BadRequest, `"cr" attribute is not allowed on %v`, r.Type())
	}
	if r.Creator() != "" {
		return oerrors.Status(onem2m.BadRequest, `setting the "cr" attribute is not allowed`)
	}
	r.SetCreator(originator)
	return nil
}

// OnUpdate runs update-time admission. Only RemoteCSE updates carry
// registration-manager semantics: the update is reported as a
// remoteCSEUpdate event so interested listeners can react to a peer's
// changed descriptor.
func (m *Manager) OnUpdate(ctx context.Context, old, updated *resource.Resource) error {
	if updated.Type() != onem2m.TypeRemoteCSE {
		return nil
	}
	patch, err := fieldpath.DiffKeys(old.AsMap(), updated.AsMap())
	if err != nil {
		return err
	}
	patchMap := make(map[string]interface{}, len(patch))
	for _, k := range patch {
		patchMap[k] = updated.Attr(k)
	}
	m.bus.Publish(eventbus.Event{Kind: eventbus.KindRemoteCSEUpdate, Resource: updated, Patch: patchMap})
	return nil
}

// OnDelete runs deregistration teardown. Type-specific child cleanup
// (e.g. removing an AE's internally created ACP) happens here; the
// cascading removal of descendants and announced shadows themselves is
// the dispatcher's own responsibility.
func (m *Manager) OnDelete(ctx context.Context, r *resource.Resource) {
	switch r.Type() {
	case onem2m.TypeAE:
		m.RemoveDefaultACP(ctx, r)
	case onem2m.TypeRemoteCSE:
		m.bus.Publish(eventbus.Event{Kind: eventbus.KindRemoteCSEDeregistered, Resource: r})
	}
}

// CreateDefaultACP creates an access-control policy on behalf of
// createdBy (e.g. a freshly registered AE), granting originators
// permission on the protected resource and the CSE's own originator
// self-permission with the configured pvsAcop mask, per spec.md §4.2's
// "internal ACP management".
// Any existing ACP with the same structured name is removed first.
func (m *Manager) CreateDefaultACP(ctx context.Context, parent *resource.Resource, rn string, createdBy *resource.Resource, originators []string, permission onem2m.Permission) (*resource.Resource, error) {
	d := m.dispatcherRef()
	if d == nil {
		return nil, oerrors.Status(onem2m.InternalServerError, "registration manager has no dispatcher wired")
	}

	srn := m.cseRn + "/" + rn
	if existing, err := d.Retrieve(ctx, srn, m.cseOriginator); err == nil {
		_ = d.Delete(ctx, existing.RI(), m.cseOriginator, false)
	}

	acp := resource.New(onem2m.TypeAccessControlPolicy)
	acp.SetRN(rn)
	acp.SetCreatedInternally(createdBy.RI())

	origs := append(append([]string{}, originators...), m.cseOriginator)
	acp.SetAttr("pv", map[string]interface{}{"acr": []interface{}{
		map[string]interface{}{"acor": toInterfaceSlice(origs), "acop": float64(permission)},
	}})
	acp.SetAttr("pvs", map[string]interface{}{"acr": []interface{}{
		map[string]interface{}{"acor": toInterfaceSlice([]string{m.cseOriginator}), "acop": float64(m.pvsAcop)},
	}})

	return d.Create(ctx, parent.RI(), acp, m.cseOriginator)
}

// RemoveDefaultACP removes the access-control policy at srn, but only if
// it was created internally on behalf of createdBy — never an ACP a
// client manages itself under the same name.
func (m *Manager) RemoveDefaultACP(ctx context.Context, createdBy *resource.Resource) {
	d := m.dispatcherRef()
	if d == nil {
		return
	}
	srn := m.cseRn + "/" + createdBy.RN() + "ACP"
	acp, err := d.Retrieve(ctx, srn, m.cseOriginator)
	if err != nil {
		return
	}
	if acp.CreatedInternally() != createdBy.RI() {
		return
	}
	if err := d.Delete(ctx, acp.RI(), m.cseOriginator, false); err != nil {
		m.log.Info("failed to remove internally created ACP", "acp", acp.RI(), "owner", createdBy.RI(), "error", err.Error())
	}
}

func toInterfaceSlice(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// StartExpirationMonitor registers the singleton expiration-sweep worker
// on pool. interval<=0 disables the sweep, per spec.md §4.2.
func (m *Manager) StartExpirationMonitor(pool *worker.Pool, interval time.Duration) {
	if interval <= 0 {
		return
	}
	pool.Start("expirationMonitor", interval, 0, m.sweepExpired)
}

func (m *Manager) sweepExpired(ctx context.Context) {
	now := idgen.Now()
	expired, err := m.store.SearchByFilter(ctx, func(r *resource.Resource) bool {
		et := r.ET()
		return et != "" && et < now
	})
	if err != nil {
		m.log.Info("expiration sweep failed to query storage", "error", err.Error())
		return
	}

	d := m.dispatcherRef()
	if d == nil {
		return
	}

	for _, r := range expired {
		exists, err := m.store.HasResource(ctx, r.RI())
		if err != nil || !exists {
			continue
		}
		if err := d.Delete(ctx, r.RI(), m.cseOriginator, true); err != nil {
			m.log.Info("failed to delete expired resource", "resource", r.RI(), "error", err.Error())
			continue
		}
		m.bus.Publish(eventbus.Event{Kind: eventbus.KindExpireResource, Resource: r})
	}
}

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

// Package dispatcher orchestrates create/retrieve/update/delete against
// the resource tree (spec.md §4.1): it is the single point where
// admission checks, access control, persistence, and the Registration,
// Subscription, and Announcement managers' hooks are composed, and the
// single point where errors are mapped to a response status code.
package dispatcher

import (
	"context"
	"strings"
	"sync"

	"github.com/onem2m-labs/cse-core/apis/onem2m"
	"github.com/onem2m-labs/cse-core/internal/accesscontrol"
	"github.com/onem2m-labs/cse-core/internal/announcement"
	"github.com/onem2m-labs/cse-core/internal/eventbus"
	"github.com/onem2m-labs/cse-core/internal/idgen"
	"github.com/onem2m-labs/cse-core/internal/logging"
	"github.com/onem2m-labs/cse-core/internal/notification"
	"github.com/onem2m-labs/cse-core/internal/oerrors"
	"github.com/onem2m-labs/cse-core/internal/registration"
	"github.com/onem2m-labs/cse-core/internal/resource"
	"github.com/onem2m-labs/cse-core/internal/storage"
	"github.com/onem2m-labs/cse-core/internal/typeregistry"
	"github.com/onem2m-labs/cse-core/pkg/feature"
)

const (
	errGetParent    = "cannot retrieve parent resource"
	errPersist      = "cannot persist resource"
	errRegistration = "registration manager rejected the request"
	errNotification = "subscription manager rejected the request"
)

// fullPermission grants every operation; it is the permission mask an
// internally created ACP grants its owning AE over itself.
const fullPermission = onem2m.PermissionCreate | onem2m.PermissionRetrieve | onem2m.PermissionUpdate | onem2m.PermissionDelete | onem2m.PermissionNotify | onem2m.PermissionDiscovery

// Dispatcher is the CSE's create/retrieve/update/delete orchestrator.
type Dispatcher struct {
	store storage.Store
	bus   *eventbus.Bus
	ac    *accesscontrol.Evaluator
	reg   *registration.Manager
	notif *notification.Manager
	annc  *announcement.Manager
	log   logging.Logger

	cseRI string
	cseRn string

	locks lockTable
	flags *feature.Flags
}

// New returns a Dispatcher. reg, notif, and annc may be nil in tests that
// only exercise the subset of behavior not requiring them; a nil
// collaborator's hook is simply skipped.
func New(store storage.Store, bus *eventbus.Bus, ac *accesscontrol.Evaluator, reg *registration.Manager, notif *notification.Manager, annc *announcement.Manager, log logging.Logger, cseRI, cseRn string) *Dispatcher {
	return &Dispatcher{
		store: store,
		bus:   bus,
		ac:    ac,
		reg:   reg,
		notif: notif,
		annc:  annc,
		log:   log,
		cseRI: cseRI,
		cseRn: cseRn,
		flags: feature.Defaults(),
	}
}

// SetFeatures overrides the Dispatcher's default feature.Flags (every
// optional behavior enabled). Passing nil restores the default.
func (d *Dispatcher) SetFeatures(flags *feature.Flags) {
	if flags == nil {
		flags = feature.Defaults()
	}
	d.flags = flags
}

var _ registration.Dispatcher = (*Dispatcher)(nil)

// typePrefix is the short lowercase token ResourceID uses to build a
// generated ri/rn for a type whose create request omitted rn.
func typePrefix(ty onem2m.ResourceType) string {
	switch ty {
	case onem2m.TypeAE:
		return "ae"
	case onem2m.TypeContainer:
		return "cnt"
	case onem2m.TypeContentInstance:
		return "cin"
	case onem2m.TypeSubscription:
		return "sub"
	case onem2m.TypeAccessControlPolicy:
		return "acp"
	case onem2m.TypeNode:
		return "nod"
	case onem2m.TypeMgmtObj:
		return "mgo"
	case onem2m.TypeRemoteCSE:
		return "csr"
	case onem2m.TypeRequest:
		return "req"
	default:
		return "res"
	}
}

// Create implements spec.md §4.1's create operation, and satisfies
// registration.Dispatcher for the registration manager's internal ACP
// management.
//
// The internal-ACP follow-up (spec.md §4.2) runs after the parent lock
// below is released, not inside createLocked: CreateDefaultACP itself
// calls back into Create with the CSEBase as parent, and the CSEBase is
// also an AE's parent, so running it under the same held lock would
// deadlock against the non-reentrant per-ri mutex.
func (d *Dispatcher) Create(ctx context.Context, parentRI string, child *resource.Resource, originator string) (*resource.Resource, error) {
	created, err := d.createLocked(ctx, parentRI, child, originator)
	if err != nil {
		return nil, err
	}

	if created.Type() == onem2m.TypeAE && d.reg != nil && d.flags.Enabled(feature.EnableInternalACP) {
		cseBase, err := d.store.Retrieve(ctx, d.cseRI)
		if err == nil {
			acp, err := d.reg.CreateDefaultACP(ctx, cseBase, created.RN()+"ACP", created, []string{created.RI()}, fullPermission)
			if err != nil {
				d.log.Info("internal ACP creation failed", "ae", created.RI(), "error", err.Error())
			} else {
				created.SetACPI([]string{acp.RI()})
				_ = d.store.Update(ctx, created.RI(), created)
			}
		}
	}

	return created, nil
}

func (d *Dispatcher) createLocked(ctx context.Context, parentRI string, child *resource.Resource, originator string) (*resource.Resource, error) {
	d.locks.Lock(parentRI)
	defer d.locks.Unlock(parentRI)

	parent, err := d.store.Retrieve(ctx, parentRI)
	if err != nil {
		return nil, oerrors.Wrap(err, errGetParent)
	}

	if !typeregistry.AllowsChild(parent.Type(), child.Type()) {
		return nil, oerrors.Statusf(onem2m.InvalidChildResourceType, "%v may not parent a %v", parent.Type(), child.Type())
	}

	allowed, err := d.ac.Allowed(ctx, parent, originator, onem2m.PermissionCreate, parent.ACPI())
	if !allowed {
		return nil, err
	}

	if child.RN() == "" {
		child.SetRN(idgen.ResourceID(typePrefix(child.Type())))
	}
	if existing, _ := d.store.Children(ctx, parentRI); rnTaken(existing, child.RN()) {
		return nil, oerrors.Statusf(onem2m.NameAlreadyPresent, "a resource named %q already exists under this parent", child.RN())
	}

	if err := typeregistry.ValidateAttributes(child.Type(), child); err != nil {
		return nil, err
	}

	now := idgen.Now()
	if child.RI() == "" {
		child.SetRI(idgen.ResourceID(typePrefix(child.Type())))
	}
	child.SetPI(parentRI)
	child.SetCT(now)
	child.SetLT(now)
	if child.ET() == "" && parent.ET() != "" {
		child.SetET(parent.ET())
	}

	if d.reg != nil {
		newOriginator, err := d.reg.OnCreate(ctx, child, parent, originator)
		if err != nil {
			return nil, oerrors.Wrap(err, errRegistration)
		}
		originator = newOriginator
	}

	if child.Type() == onem2m.TypeSubscription && d.notif != nil {
		if err := d.notif.OnCreate(ctx, child); err != nil {
			return nil, oerrors.Wrap(err, errNotification)
		}
	}

	if err := d.store.Create(ctx, child); err != nil {
		return nil, oerrors.Wrap(err, errPersist)
	}

	if child.Type() == onem2m.TypeSubscription && d.notif != nil {
		d.notif.AfterPersist(child)
	}

	if d.annc != nil && len(child.At()) > 0 {
		if err := d.annc.OnCreate(ctx, child); err != nil {
			d.log.Info("announcement on create failed", "resource", child.RI(), "error", err.Error())
		}
	}

	d.bus.Publish(eventbus.Event{Kind: eventbus.KindCreatedResource, Resource: child})
	return child, nil
}

func rnTaken(siblings []*resource.Resource, rn string) bool {
	for _, s := range siblings {
		if s.RN() == rn {
			return true
		}
	}
	return false
}

// Retrieve implements spec.md §4.1's retrieve operation. id is either a
// bare ri or a structured path "<cseRn>/<rn>/<rn>/...".
func (d *Dispatcher) Retrieve(ctx context.Context, id, originator string) (*resource.Resource, error) {
	r, err := d.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	ancestorACPI, err := d.nearestAncestorACPI(ctx, r)
	if err != nil {
		return nil, err
	}
	allowed, err := d.ac.Allowed(ctx, r, originator, onem2m.PermissionRetrieve, ancestorACPI)
	if !allowed {
		return nil, err
	}
	return r, nil
}

// resolve looks up id by ri first, falling back to structured-path
// traversal "<cseRn>/<rn>/<rn>/...". The first missing path segment
// yields notFound (spec.md §4.1's tie-break: traversal through a deleted
// ancestor is impossible).
func (d *Dispatcher) resolve(ctx context.Context, id string) (*resource.Resource, error) {
	if r, err := d.store.Retrieve(ctx, id); err == nil {
		return r, nil
	}

	segments := strings.Split(id, "/")
	if len(segments) == 0 || segments[0] != d.cseRn {
		return nil, oerrors.Statusf(onem2m.NotFound, "no resource at path %q", id)
	}

	current := d.cseRI
	for _, rn := range segments[1:] {
		children, err := d.store.Children(ctx, current)
		if err != nil {
			return nil, err
		}
		var next *resource.Resource
		for _, c := range children {
			if c.RN() == rn {
				next = c
				break
			}
		}
		if next == nil {
			return nil, oerrors.Statusf(onem2m.NotFound, "no resource at path %q", id)
		}
		current = next.RI()
	}
	return d.store.Retrieve(ctx, current)
}

func (d *Dispatcher) nearestAncestorACPI(ctx context.Context, r *resource.Resource) ([]string, error) {
	if len(r.ACPI()) > 0 {
		return nil, nil
	}
	pi := r.PI()
	for pi != "" {
		parent, err := d.store.Retrieve(ctx, pi)
		if err != nil {
			return nil, nil
		}
		if len(parent.ACPI()) > 0 {
			return parent.ACPI(), nil
		}
		pi = parent.PI()
	}
	return nil, nil
}

// Update implements spec.md §4.1's update operation: a shallow merge of
// patch onto the stored resource, with immutable/read-only attributes
// rejected up front.
func (d *Dispatcher) Update(ctx context.Context, id string, patch map[string]interface{}, originator string) (*resource.Resource, error) {
	r, err := d.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	d.locks.Lock(r.RI())
	defer d.locks.Unlock(r.RI())

	ancestorACPI, err := d.nearestAncestorACPI(ctx, r)
	if err != nil {
		return nil, err
	}
	allowed, err := d.ac.Allowed(ctx, r, originator, onem2m.PermissionUpdate, ancestorACPI)
	if !allowed {
		return nil, err
	}

	for attr := range patch {
		if typeregistry.IsImmutable(r.Type(), attr) || typeregistry.IsReadOnly(r.Type(), attr) {
			return nil, oerrors.Statusf(onem2m.BadRequest, "attribute %q is not mutable on %v", attr, r.Type())
		}
	}

	old, err := r.Clone()
	if err != nil {
		return nil, err
	}

	r.ApplyPatch(patch)
	r.SetLT(idgen.Now())

	if err := typeregistry.ValidateAttributes(r.Type(), r); err != nil {
		return nil, err
	}

	if d.reg != nil {
		if err := d.reg.OnUpdate(ctx, old, r); err != nil {
			return nil, oerrors.Wrap(err, errRegistration)
		}
	}

	if err := d.store.Update(ctx, r.RI(), r); err != nil {
		return nil, oerrors.Wrap(err, errPersist)
	}

	if d.annc != nil {
		if err := d.annc.OnUpdate(ctx, old, r); err != nil {
			d.log.Info("announcement reconciliation on update failed", "resource", r.RI(), "error", err.Error())
		}
	}

	d.bus.Publish(eventbus.Event{Kind: eventbus.KindUpdatedResource, Resource: r, Patch: patch})
	return r, nil
}

// Delete implements spec.md §4.1's cascading delete operation.
func (d *Dispatcher) Delete(ctx context.Context, id, originator string, withDeregistration bool) error {
	r, err := d.resolve(ctx, id)
	if err != nil {
		return err
	}

	d.locks.Lock(r.RI())
	defer d.locks.Unlock(r.RI())

	ancestorACPI, err := d.nearestAncestorACPI(ctx, r)
	if err != nil {
		return err
	}
	allowed, err := d.ac.Allowed(ctx, r, originator, onem2m.PermissionDelete, ancestorACPI)
	if !allowed {
		return err
	}

	descendants, err := d.collectDescendants(ctx, r.RI())
	if err != nil {
		return err
	}
	// Leaves before parents: descendants were collected depth-first and
	// are deleted in reverse discovery order, then the subtree root last.
	ordered := append([]*resource.Resource{r}, descendants...)
	for i := len(ordered) - 1; i >= 0; i-- {
		d.deleteOne(ctx, ordered[i], withDeregistration)
	}

	owned, err := d.store.SearchByValueInField(ctx, resource.AttrCreatedInternally, r.RI())
	if err == nil {
		for _, o := range owned {
			d.deleteOne(ctx, o, withDeregistration)
		}
	}

	return nil
}

func (d *Dispatcher) collectDescendants(ctx context.Context, ri string) ([]*resource.Resource, error) {
	children, err := d.store.Children(ctx, ri)
	if err != nil {
		return nil, err
	}
	var out []*resource.Resource
	for _, c := range children {
		out = append(out, c)
		grand, err := d.collectDescendants(ctx, c.RI())
		if err != nil {
			return nil, err
		}
		out = append(out, grand...)
	}
	return out, nil
}

func (d *Dispatcher) deleteOne(ctx context.Context, r *resource.Resource, withDeregistration bool) {
	if r.Type() == onem2m.TypeSubscription && d.notif != nil {
		d.notif.OnDelete(ctx, r)
	}
	if d.annc != nil {
		d.annc.OnDelete(ctx, r)
	}
	if withDeregistration && d.reg != nil {
		d.reg.OnDelete(ctx, r)
	}

	if err := d.store.Delete(ctx, r.RI()); err != nil {
		d.log.Info("failed to delete resource during cascade", "resource", r.RI(), "error", err.Error())
		return
	}
	d.bus.Publish(eventbus.Event{Kind: eventbus.KindDeletedResource, Resource: r})
}

// lockTable is the per-resource advisory lock keyed by ri (spec.md §5,
// §9): one mutex per ri, acquired in parent-before-child order by every
// caller above, released as soon as the sub-operation completes rather
// than held across remote I/O. Mutexes are never evicted — a bounded
// amount of long-lived bookkeeping per distinct ri that has ever been
// locked, traded for never needing a reference count.
type lockTable struct {
	mu    sync.Mutex
	perRI map[string]*sync.Mutex
}

func (t *lockTable) Lock(ri string) {
	t.mu.Lock()
	if t.perRI == nil {
		t.perRI = make(map[string]*sync.Mutex)
	}
	m, ok := t.perRI[ri]
	if !ok {
		m = &sync.Mutex{}
		t.perRI[ri] = m
	}
	t.mu.Unlock()
	m.Lock()
}

func (t *lockTable) Unlock(ri string) {
	t.mu.Lock()
	m := t.perRI[ri]
	t.mu.Unlock()
	if m != nil {
		m.Unlock()
	}
}

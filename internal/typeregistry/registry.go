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

// Package typeregistry replaces runtime attribute lookup on loosely typed
// resource bags with a declared schema per resource type: the mandatory,
// optional, announced, read-only, and immutable attribute sets, the
// allowed-child-type table, and a per-type validator. The dispatcher
// dispatches on the ty tag, never on a polymorphic resource object.
package typeregistry

import (
	"github.com/onem2m-labs/cse-core/apis/onem2m"
	"github.com/onem2m-labs/cse-core/internal/oerrors"
	"github.com/onem2m-labs/cse-core/internal/resource"
)

// A Policy declares one resource type's attribute schema.
type Policy struct {
	Type onem2m.ResourceType

	// Mandatory attributes a create request must supply (beyond the
	// common attributes the dispatcher always assigns).
	Mandatory []string

	// Optional attributes a create or update request may supply.
	Optional []string

	// Immutable attributes may be supplied at create time but never
	// changed by a later update.
	Immutable []string

	// ReadOnly attributes are entirely server-assigned; supplying them in
	// a create or update request is a badRequest.
	ReadOnly []string

	// AnnouncedMandatory attributes are always replicated to an announced
	// shadow of this type, regardless of the aa attribute.
	AnnouncedMandatory []string

	// AllowedChildren lists the resource types this type may parent.
	AllowedChildren []onem2m.ResourceType

	// CreatorBearing reports whether a cr attribute is meaningful for this
	// type (spec.md §4.2's creator-attribute policy).
	CreatorBearing bool

	// Validate runs type-specific attribute validation beyond the
	// mandatory/optional/read-only tables, e.g. "nu must be non-empty".
	// It may be nil.
	Validate func(r *resource.Resource) error

	// Announced is the announced-shadow type this type replicates to, if
	// any (spec.md §4.5). Zero (onem2m.TypeUnknown) if this type is never
	// announced.
	Announced onem2m.ResourceType
}

var registry = map[onem2m.ResourceType]*Policy{}

func register(p *Policy) { registry[p.Type] = p }

// Lookup returns the Policy for ty, or nil if ty is unknown to the
// registry.
func Lookup(ty onem2m.ResourceType) *Policy { return registry[ty] }

// AllowsChild reports whether a resource of type parent may have a child
// of type child.
func AllowsChild(parent, child onem2m.ResourceType) bool {
	p := Lookup(parent)
	if p == nil {
		return false
	}
	for _, t := range p.AllowedChildren {
		if t == child {
			return true
		}
	}
	return false
}

// IsImmutable reports whether attr may not be changed by update() once
// ty has been created.
func IsImmutable(ty onem2m.ResourceType, attr string) bool {
	for _, a := range commonImmutable {
		if a == attr {
			return true
		}
	}
	p := Lookup(ty)
	if p == nil {
		return false
	}
	for _, a := range p.Immutable {
		if a == attr {
			return true
		}
	}
	return false
}

// IsReadOnly reports whether attr is entirely server-assigned for ty.
func IsReadOnly(ty onem2m.ResourceType, attr string) bool {
	p := Lookup(ty)
	if p == nil {
		return false
	}
	for _, a := range p.ReadOnly {
		if a == attr {
			return true
		}
	}
	return false
}

// AnnouncedAttributes returns the union of ty's always-announced
// mandatory attributes and the caller-supplied aa list, deduplicated.
func AnnouncedAttributes(ty onem2m.ResourceType, aa []string) []string {
	p := Lookup(ty)
	seen := make(map[string]bool)
	out := make([]string, 0, len(aa)+4)
	if p != nil {
		for _, a := range p.AnnouncedMandatory {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	for _, a := range aa {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

// AnnouncedType returns the announced-shadow resource type for ty, and
// false if ty is never announced.
func AnnouncedType(ty onem2m.ResourceType) (onem2m.ResourceType, bool) {
	p := Lookup(ty)
	if p == nil || p.Announced == onem2m.TypeUnknown {
		return onem2m.TypeUnknown, false
	}
	return p.Announced, true
}

// commonAttrs are present on every resource type regardless of policy.
var commonAttrs = []string{
	resource.AttrRI, resource.AttrRN, resource.AttrPI, resource.AttrTy,
	resource.AttrCT, resource.AttrLT, resource.AttrET, resource.AttrLbl,
	resource.AttrACPI, resource.AttrCR, resource.AttrCreatedInternally,
	resource.AttrAt, resource.AttrAa,
}

// commonImmutable are never mutable via update(), for every resource type.
var commonImmutable = []string{
	resource.AttrRI, resource.AttrCT, resource.AttrCR, resource.AttrTy, resource.AttrPI,
}

// ValidateAttributes rejects any attribute on r that is neither a common
// attribute nor listed as mandatory or optional by ty's Policy.
func ValidateAttributes(ty onem2m.ResourceType, r *resource.Resource) error {
	p := Lookup(ty)
	if p == nil {
		return oerrors.Statusf(onem2m.BadRequest, "unknown resource type %v", ty)
	}

	known := make(map[string]bool, len(commonAttrs)+len(p.Mandatory)+len(p.Optional)+len(p.ReadOnly))
	for _, a := range commonAttrs {
		known[a] = true
	}
	for _, a := range p.Mandatory {
		known[a] = true
	}
	for _, a := range p.Optional {
		known[a] = true
	}
	for _, a := range p.ReadOnly {
		known[a] = true
	}
	if p.CreatorBearing {
		known[resource.AttrCR] = true
	}

	for attr := range r.AsMap() {
		if !known[attr] {
			return oerrors.Statusf(onem2m.BadRequest, "attribute %q is not allowed on %v", attr, ty)
		}
	}
	for _, m := range p.Mandatory {
		if !r.HasAttr(m) {
			return oerrors.Statusf(onem2m.BadRequest, "missing mandatory attribute %q on %v", m, ty)
		}
	}
	if p.Validate != nil {
		if err := p.Validate(r); err != nil {
			return err
		}
	}
	return nil
}

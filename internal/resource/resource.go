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

// Package resource models a node of the oneM2M resource tree: a "paved"
// attribute bag (common attributes plus type-specific ones) that the
// dispatcher, registration manager, subscription manager, and
// announcement manager all read and write by field name.
package resource

import (
	"github.com/onem2m-labs/cse-core/apis/onem2m"
	"github.com/onem2m-labs/cse-core/internal/fieldpath"
)

// Well-known top-level attribute names, per spec.md §3.
const (
	AttrRI                = "ri"
	AttrRN                = "rn"
	AttrPI                = "pi"
	AttrTy                = "ty"
	AttrCT                = "ct"
	AttrLT                = "lt"
	AttrET                = "et"
	AttrLbl               = "lbl"
	AttrACPI              = "acpi"
	AttrCR                = "cr"
	AttrCreatedInternally = "createdInternally"
	AttrAt                = "at"
	AttrAa                = "aa"
	AttrLnk               = "lnk"
)

// A Resource is a node in the CSE's resource tree.
type Resource struct {
	paved *fieldpath.Paved
}

// New returns an empty Resource of the supplied type.
func New(ty onem2m.ResourceType) *Resource {
	r := &Resource{paved: fieldpath.Pave(nil)}
	r.SetType(ty)
	return r
}

// FromMap wraps an existing attribute bag (e.g. one just loaded from
// storage) as a Resource.
func FromMap(m map[string]interface{}) *Resource {
	return &Resource{paved: fieldpath.Pave(m)}
}

// AsMap returns the underlying attribute bag.
func (r *Resource) AsMap() map[string]interface{} { return r.paved.AsMap() }

// Clone returns a deep copy of r.
func (r *Resource) Clone() (*Resource, error) {
	p, err := r.paved.Clone()
	if err != nil {
		return nil, err
	}
	return &Resource{paved: p}, nil
}

func (r *Resource) getString(attr string) string {
	s, err := r.paved.GetString(attr)
	if err != nil {
		return ""
	}
	return s
}

func (r *Resource) getStringArray(attr string) []string {
	a, err := r.paved.GetStringArray(attr)
	if err != nil {
		return nil
	}
	return a
}

// RI returns the resource identifier.
func (r *Resource) RI() string { return r.getString(AttrRI) }

// SetRI sets the resource identifier.
func (r *Resource) SetRI(ri string) { _ = r.paved.SetValue(AttrRI, ri) }

// RN returns the resource name.
func (r *Resource) RN() string { return r.getString(AttrRN) }

// SetRN sets the resource name.
func (r *Resource) SetRN(rn string) { _ = r.paved.SetValue(AttrRN, rn) }

// PI returns the parent identifier, empty for the CSEBase.
func (r *Resource) PI() string { return r.getString(AttrPI) }

// SetPI sets the parent identifier.
func (r *Resource) SetPI(pi string) { _ = r.paved.SetValue(AttrPI, pi) }

// Type returns the resource's type tag.
func (r *Resource) Type() onem2m.ResourceType {
	v, err := r.paved.GetNumber(AttrTy)
	if err != nil {
		return onem2m.TypeUnknown
	}
	return onem2m.ResourceType(v)
}

// SetType sets the resource's type tag.
func (r *Resource) SetType(ty onem2m.ResourceType) { _ = r.paved.SetValue(AttrTy, int(ty)) }

// CT returns the creation time, in the CSE's compact timestamp form.
func (r *Resource) CT() string { return r.getString(AttrCT) }

// SetCT sets the creation time.
func (r *Resource) SetCT(ts string) { _ = r.paved.SetValue(AttrCT, ts) }

// LT returns the last-modified time.
func (r *Resource) LT() string { return r.getString(AttrLT) }

// SetLT sets the last-modified time.
func (r *Resource) SetLT(ts string) { _ = r.paved.SetValue(AttrLT, ts) }

// ET returns the expiration time, or "" if the resource never expires.
func (r *Resource) ET() string { return r.getString(AttrET) }

// SetET sets the expiration time.
func (r *Resource) SetET(ts string) { _ = r.paved.SetValue(AttrET, ts) }

// Labels returns the resource's lbl attribute.
func (r *Resource) Labels() []string { return r.getStringArray(AttrLbl) }

// ACPI returns the access-control-policy references attached directly to
// this resource.
func (r *Resource) ACPI() []string { return r.getStringArray(AttrACPI) }

// SetACPI sets the access-control-policy references attached directly to
// this resource.
func (r *Resource) SetACPI(acpi []string) {
	if len(acpi) == 0 {
		r.paved.DeleteField(AttrACPI)
		return
	}
	_ = r.paved.SetValue(AttrACPI, acpi)
}

// Creator returns the cr (creator originator) attribute.
func (r *Resource) Creator() string { return r.getString(AttrCR) }

// SetCreator sets the cr attribute. cr is immutable once a resource is
// created; callers must only call this during creation.
func (r *Resource) SetCreator(originator string) { _ = r.paved.SetValue(AttrCR, originator) }

// CreatedInternally returns the ri of the resource that caused this one to
// be created as an internal side effect (e.g. an ACP created for an AE),
// or "" if this resource was created directly by a client request.
func (r *Resource) CreatedInternally() string { return r.getString(AttrCreatedInternally) }

// SetCreatedInternally sets the owner-link edge.
func (r *Resource) SetCreatedInternally(ownerRI string) {
	_ = r.paved.SetValue(AttrCreatedInternally, ownerRI)
}

// At returns the announcement target list.
func (r *Resource) At() []string { return r.getStringArray(AttrAt) }

// SetAt sets the announcement target list. A nil/empty slice clears it.
func (r *Resource) SetAt(at []string) {
	if len(at) == 0 {
		r.paved.DeleteField(AttrAt)
		return
	}
	_ = r.paved.SetValue(AttrAt, at)
}

// Aa returns the additional-announced-attributes list.
func (r *Resource) Aa() []string { return r.getStringArray(AttrAa) }

// SetAa sets the additional-announced-attributes list.
func (r *Resource) SetAa(aa []string) {
	if len(aa) == 0 {
		r.paved.DeleteField(AttrAa)
		return
	}
	_ = r.paved.SetValue(AttrAa, aa)
}

// Lnk returns the original resource's ri, for an announced shadow.
func (r *Resource) Lnk() string { return r.getString(AttrLnk) }

// SetLnk sets the lnk attribute.
func (r *Resource) SetLnk(ri string) { _ = r.paved.SetValue(AttrLnk, ri) }

// Attr returns the raw value of an arbitrary attribute, or nil if unset.
func (r *Resource) Attr(name string) interface{} {
	v, err := r.paved.GetValue(name)
	if err != nil {
		return nil
	}
	return v
}

// SetAttr sets an arbitrary attribute. Setting a nil value removes it.
func (r *Resource) SetAttr(name string, value interface{}) {
	if value == nil {
		r.paved.DeleteField(name)
		return
	}
	_ = r.paved.SetValue(name, value)
}

// StringArrayAttr returns an arbitrary string-array attribute, or nil if
// unset or not a string array.
func (r *Resource) StringArrayAttr(name string) []string { return r.getStringArray(name) }

// HasAttr reports whether the attribute is present.
func (r *Resource) HasAttr(name string) bool {
	_, ok := r.AsMap()[name]
	return ok
}

// ApplyPatch shallow-merges patch onto r's top-level attributes: a
// non-nil value replaces the existing attribute, a nil value removes it.
// It returns the set of attribute names that changed, for building
// modified-attributes notification content (spec.md §4.4).
func (r *Resource) ApplyPatch(patch map[string]interface{}) []string {
	return r.paved.ApplyPatch(patch)
}

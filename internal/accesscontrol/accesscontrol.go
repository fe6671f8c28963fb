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

// Package accesscontrol evaluates oneM2M access-control-policy resources
// against (resource, originator, operation) triples, per spec.md §4.3.
package accesscontrol

import (
	"context"

	"github.com/onem2m-labs/cse-core/apis/onem2m"
	"github.com/onem2m-labs/cse-core/internal/oerrors"
	"github.com/onem2m-labs/cse-core/internal/resource"
	"github.com/onem2m-labs/cse-core/internal/storage"
)

const originatorAll = "all"

// A Rule is one entry of an ACP's pv or pvs attribute: a set of
// originators granted a permission bitmask.
type Rule struct {
	Originators []string
	Permissions onem2m.Permission
}

func (r Rule) matchesOriginator(originator string) bool {
	for _, o := range r.Originators {
		if o == originatorAll || o == originator {
			return true
		}
	}
	return false
}

// rulesFromAttr decodes the pv/pvs attribute shape {acr: [{acor: [...],
// acop: N}, ...]} into Rules. Malformed entries are skipped rather than
// treated as a fatal error: a malformed rule simply never matches.
func rulesFromAttr(v interface{}) []Rule {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := m["acr"].([]interface{})
	if !ok {
		return nil
	}

	rules := make([]Rule, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		rule := Rule{}
		if originators, ok := entry["acor"].([]interface{}); ok {
			for _, o := range originators {
				if s, ok := o.(string); ok {
					rule.Originators = append(rule.Originators, s)
				}
			}
		}
		switch n := entry["acop"].(type) {
		case float64:
			rule.Permissions = onem2m.Permission(n)
		case int:
			rule.Permissions = onem2m.Permission(n)
		}
		rules = append(rules, rule)
	}
	return rules
}

// Evaluator checks operations against ACP resources loaded from storage.
type Evaluator struct {
	store         storage.Store
	cseOriginator string
}

// New returns an Evaluator. cseOriginator is the CSE's own originator
// identifier, which always passes every check (spec.md §4.3 rule 1).
func New(store storage.Store, cseOriginator string) *Evaluator {
	return &Evaluator{store: store, cseOriginator: cseOriginator}
}

// Allowed evaluates whether originator may perform op against r, walking
// the rules of spec.md §4.3 in order. ancestorACPI, if non-empty, is the
// acpi of the nearest ancestor carrying one, used when r itself has no
// acpi (rule 3's inheritance).
func (e *Evaluator) Allowed(ctx context.Context, r *resource.Resource, originator string, op onem2m.Permission, ancestorACPI []string) (bool, error) {
	if originator == e.cseOriginator {
		return true, nil
	}

	if r.Type() == onem2m.TypeAccessControlPolicy {
		return e.allowedBySelf(ctx, r, originator, op)
	}

	acpi := r.ACPI()
	if len(acpi) == 0 {
		acpi = ancestorACPI
	}
	if len(acpi) == 0 {
		return false, oerrors.Status(onem2m.OriginatorHasNoPrivilege, "resource has no applicable access-control policy")
	}

	for _, ri := range acpi {
		acp, err := e.store.Retrieve(ctx, ri)
		if err != nil {
			continue
		}
		for _, rule := range rulesFromAttr(acp.Attr("pv")) {
			if rule.matchesOriginator(originator) && rule.Permissions.Has(op) {
				return true, nil
			}
		}
	}
	return false, oerrors.Statusf(onem2m.OriginatorHasNoPrivilege, "originator %q lacks permission for this operation", originator)
}

func (e *Evaluator) allowedBySelf(_ context.Context, acp *resource.Resource, originator string, op onem2m.Permission) (bool, error) {
	for _, rule := range rulesFromAttr(acp.Attr("pvs")) {
		if rule.matchesOriginator(originator) && rule.Permissions.Has(op) {
			return true, nil
		}
	}
	return false, oerrors.Statusf(onem2m.OriginatorHasNoPrivilege, "originator %q lacks self-privilege on this access-control policy", originator)
}

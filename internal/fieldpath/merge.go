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

package fieldpath

import (
	"encoding/json"
	"reflect"

	"dario.cat/mergo"
	jsonpatch "github.com/evanphx/json-patch"
	"github.com/pkg/errors"
)

const errInvalidMerge = "failed to merge values"

// MergeOptions specifies merge behavior for a single field path.
type MergeOptions struct {
	// KeepMapValues preserves already-existing values in a merged map
	// rather than letting the incoming value override them.
	KeepMapValues bool
	// AppendSlice appends incoming slice elements to an existing slice
	// rather than replacing it outright.
	AppendSlice bool
}

// MergoConfiguration returns the mergo options implied by mo. The default
// behavior (a nil MergeOptions) replaces maps and slices outright.
func (mo *MergeOptions) MergoConfiguration() []func(*mergo.Config) {
	config := []func(*mergo.Config){mergo.WithOverride}
	if mo == nil {
		return config
	}
	if mo.KeepMapValues {
		config = config[:0]
	}
	if mo.AppendSlice {
		config = append(config, mergo.WithAppendSlice)
	}
	return config
}

// merge merges src onto dst using the supplied options. If either side is
// nil, or dst is not itself a map, src simply replaces dst.
func merge(dst, src interface{}, mo *MergeOptions) (interface{}, error) {
	if dst == nil || src == nil {
		return src, nil
	}

	m, ok := dst.(map[string]interface{})
	if reflect.TypeOf(src).Kind() != reflect.Map || !ok {
		return src, nil
	}

	if err := mergo.Merge(&m, src, mo.MergoConfiguration()...); err != nil {
		return nil, errors.Wrap(err, errInvalidMerge)
	}
	return m, nil
}

// MergeValue merges value into the field at path using the supplied
// options, creating the path if it does not yet exist.
func (p *Paved) MergeValue(path string, value interface{}, mo *MergeOptions) error {
	dst, err := p.GetValue(path)
	if IsNotFound(err) {
		dst = nil
	} else if err != nil {
		return err
	}

	merged, err := merge(dst, value, mo)
	if err != nil {
		return err
	}

	return p.SetValue(path, merged)
}

// ApplyPatch shallow-merges patch onto the receiver's top-level fields: a
// non-nil patch value replaces the existing field wholesale (nested maps
// are not merged); a patch value of nil deletes the field entirely. It returns the set of top-level field names
// that were changed (added, replaced, or removed) so callers can compute
// "modified attributes" notification content.
func (p *Paved) ApplyPatch(patch map[string]interface{}) []string {
	changed := make([]string, 0, len(patch))
	for k, v := range patch {
		if v == nil {
			if _, existed := p.object[k]; existed {
				p.DeleteField(k)
				changed = append(changed, k)
			}
			continue
		}
		p.object[k] = v
		changed = append(changed, k)
	}
	return changed
}

// DiffKeys returns the top-level attribute names that differ between old
// and new, computed via a JSON merge patch (RFC 7396) between the two
// representations. Used where the caller holds two full resource
// snapshots rather than the patch that produced the second from the
// first — the registration manager computes the changed-attribute set of
// a RemoteCSE update this way.
func DiffKeys(old, updated map[string]interface{}) ([]string, error) {
	oldJSON, err := json.Marshal(old)
	if err != nil {
		return nil, errors.Wrap(err, "cannot marshal old representation")
	}
	newJSON, err := json.Marshal(updated)
	if err != nil {
		return nil, errors.Wrap(err, "cannot marshal new representation")
	}

	patch, err := jsonpatch.CreateMergePatch(oldJSON, newJSON)
	if err != nil {
		return nil, errors.Wrap(err, "cannot diff representations")
	}

	var m map[string]interface{}
	if err := json.Unmarshal(patch, &m); err != nil {
		return nil, errors.Wrap(err, "cannot unmarshal merge patch")
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys, nil
}

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

// Package storage declares the document-store interface the dispatcher
// depends on (spec.md §6's "storage collaborator"), and provides an
// in-memory implementation suitable for tests and for single-process
// deployments of the CSE.
package storage

import (
	"context"

	"github.com/onem2m-labs/cse-core/internal/resource"
)

// Predicate is a scan filter used by SearchByFilter.
type Predicate func(r *resource.Resource) bool

// A Store is any document store the dispatcher can persist resources to.
// Implementations must be safe for concurrent use; the dispatcher itself
// serializes mutations of a single resource with a per-ri advisory lock
// (spec.md §5), but concurrent operations on different resources are not
// serialized by the caller.
type Store interface {
	// Create persists r. It returns an error tagged onem2m.NameAlreadyPresent
	// if a resource with the same ri already exists.
	Create(ctx context.Context, r *resource.Resource) error

	// Retrieve returns the resource with the given ri, or an error tagged
	// onem2m.NotFound if none exists.
	Retrieve(ctx context.Context, ri string) (*resource.Resource, error)

	// Update replaces the stored resource with the given ri by r in its
	// entirety (the dispatcher computes the merged attribute set before
	// calling Update; Store itself performs no merging).
	Update(ctx context.Context, ri string, r *resource.Resource) error

	// Delete removes the resource with the given ri. Deleting a ri that
	// does not exist is not an error.
	Delete(ctx context.Context, ri string) error

	// HasResource reports whether ri currently exists.
	HasResource(ctx context.Context, ri string) (bool, error)

	// SearchByValueInField returns every resource whose attribute field
	// exactly equals value.
	SearchByValueInField(ctx context.Context, field string, value interface{}) ([]*resource.Resource, error)

	// SearchByFilter returns every resource matching pred.
	SearchByFilter(ctx context.Context, pred Predicate) ([]*resource.Resource, error)

	// Children returns the direct children of the resource with parent
	// identifier pi.
	Children(ctx context.Context, pi string) ([]*resource.Resource, error)
}

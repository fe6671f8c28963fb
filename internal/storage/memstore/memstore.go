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

// Package memstore is an in-memory storage.Store, the reference
// implementation of the storage collaborator named in spec.md §6. It
// backs the test suite and is suitable as the sole store for a
// single-process CSE deployment.
package memstore

import (
	"context"
	"sync"

	"github.com/onem2m-labs/cse-core/apis/onem2m"
	"github.com/onem2m-labs/cse-core/internal/oerrors"
	"github.com/onem2m-labs/cse-core/internal/resource"
	"github.com/onem2m-labs/cse-core/internal/storage"
)

// Store is a goroutine-safe, in-memory storage.Store.
type Store struct {
	mu        sync.RWMutex
	resources map[string]*resource.Resource
}

// New returns an empty Store.
func New() *Store {
	return &Store{resources: make(map[string]*resource.Resource)}
}

var _ storage.Store = (*Store)(nil)

// Create implements storage.Store.
func (s *Store) Create(_ context.Context, r *resource.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ri := r.RI()
	if _, ok := s.resources[ri]; ok {
		return oerrors.Statusf(onem2m.NameAlreadyPresent, "resource %q already exists", ri)
	}
	s.resources[ri] = r
	return nil
}

// Retrieve implements storage.Store.
func (s *Store) Retrieve(_ context.Context, ri string) (*resource.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.resources[ri]
	if !ok {
		return nil, oerrors.Statusf(onem2m.NotFound, "resource %q not found", ri)
	}
	return r, nil
}

// Update implements storage.Store.
func (s *Store) Update(_ context.Context, ri string, r *resource.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[ri]; !ok {
		return oerrors.Statusf(onem2m.NotFound, "resource %q not found", ri)
	}
	s.resources[ri] = r
	return nil
}

// Delete implements storage.Store.
func (s *Store) Delete(_ context.Context, ri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.resources, ri)
	return nil
}

// HasResource implements storage.Store.
func (s *Store) HasResource(_ context.Context, ri string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.resources[ri]
	return ok, nil
}

// SearchByValueInField implements storage.Store.
func (s *Store) SearchByValueInField(_ context.Context, field string, value interface{}) ([]*resource.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*resource.Resource
	for _, r := range s.resources {
		if r.Attr(field) == value {
			out = append(out, r)
		}
	}
	return out, nil
}

// SearchByFilter implements storage.Store.
func (s *Store) SearchByFilter(_ context.Context, pred storage.Predicate) ([]*resource.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*resource.Resource
	for _, r := range s.resources {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Children implements storage.Store.
func (s *Store) Children(_ context.Context, pi string) ([]*resource.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*resource.Resource
	for _, r := range s.resources {
		if r.PI() == pi {
			out = append(out, r)
		}
	}
	return out, nil
}

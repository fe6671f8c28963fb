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

package memstore

import (
	"context"
	"testing"

	"github.com/onem2m-labs/cse-core/apis/onem2m"
	"github.com/onem2m-labs/cse-core/internal/oerrors"
	"github.com/onem2m-labs/cse-core/internal/resource"
)

func TestCreateRetrieveDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	r := resource.New(onem2m.TypeContainer)
	r.SetRI("cnt-1")

	if err := s.Create(ctx, r); err != nil {
		t.Fatalf("Create: unexpected error %v", err)
	}

	got, err := s.Retrieve(ctx, "cnt-1")
	if err != nil {
		t.Fatalf("Retrieve: unexpected error %v", err)
	}
	if got.RI() != "cnt-1" {
		t.Errorf("Retrieve: want ri cnt-1, got %q", got.RI())
	}

	if err := s.Delete(ctx, "cnt-1"); err != nil {
		t.Fatalf("Delete: unexpected error %v", err)
	}
	if _, err := s.Retrieve(ctx, "cnt-1"); oerrors.StatusCode(err) != onem2m.NotFound {
		t.Errorf("Retrieve after Delete: want NotFound, got %v", err)
	}
}

func TestCreateDuplicateRIFails(t *testing.T) {
	ctx := context.Background()
	s := New()

	r := resource.New(onem2m.TypeContainer)
	r.SetRI("cnt-1")
	if err := s.Create(ctx, r); err != nil {
		t.Fatalf("first Create: unexpected error %v", err)
	}

	if err := s.Create(ctx, r); oerrors.StatusCode(err) != onem2m.NameAlreadyPresent {
		t.Errorf("second Create: want NameAlreadyPresent, got %v", err)
	}
}

func TestSearchByValueInField(t *testing.T) {
	ctx := context.Background()
	s := New()

	ae1 := resource.New(onem2m.TypeAE)
	ae1.SetRI("ae-1")
	ae1.SetAttr("aei", "Cfoo")
	ae2 := resource.New(onem2m.TypeAE)
	ae2.SetRI("ae-2")
	ae2.SetAttr("aei", "Cbar")

	_ = s.Create(ctx, ae1)
	_ = s.Create(ctx, ae2)

	got, err := s.SearchByValueInField(ctx, "aei", "Cfoo")
	if err != nil {
		t.Fatalf("SearchByValueInField: unexpected error %v", err)
	}
	if len(got) != 1 || got[0].RI() != "ae-1" {
		t.Errorf("SearchByValueInField: want [ae-1], got %v", got)
	}
}

func TestChildren(t *testing.T) {
	ctx := context.Background()
	s := New()

	parent := resource.New(onem2m.TypeAE)
	parent.SetRI("ae-1")
	_ = s.Create(ctx, parent)

	child := resource.New(onem2m.TypeContainer)
	child.SetRI("cnt-1")
	child.SetPI("ae-1")
	_ = s.Create(ctx, child)

	other := resource.New(onem2m.TypeContainer)
	other.SetRI("cnt-2")
	other.SetPI("ae-2")
	_ = s.Create(ctx, other)

	got, err := s.Children(ctx, "ae-1")
	if err != nil {
		t.Fatalf("Children: unexpected error %v", err)
	}
	if len(got) != 1 || got[0].RI() != "cnt-1" {
		t.Errorf("Children: want [cnt-1], got %v", got)
	}
}

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

package oerrors

import (
	"testing"

	"github.com/onem2m-labs/cse-core/apis/onem2m"
)

func TestStatusCode(t *testing.T) {
	cases := map[string]struct {
		reason string
		err    error
		want   onem2m.ResponseStatusCode
	}{
		"NilError": {
			reason: "A nil error has nothing to report; it maps to OK",
			err:    nil,
			want:   onem2m.OK,
		},
		"Untagged": {
			reason: "An error with no tagged status defaults to internalServerError",
			err:    New("boom"),
			want:   onem2m.InternalServerError,
		},
		"TaggedDirect": {
			reason: "A directly tagged status is returned",
			err:    Status(onem2m.NotFound, "no such resource"),
			want:   onem2m.NotFound,
		},
		"TaggedThenWrapped": {
			reason: "A tagged status survives further wrapping",
			err:    Wrap(Status(onem2m.NameAlreadyPresent, "dup"), "create failed"),
			want:   onem2m.NameAlreadyPresent,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := StatusCode(tc.err); got != tc.want {
				t.Errorf("\n%s\nStatusCode(...): want %v, got %v", tc.reason, tc.want, got)
			}
		})
	}
}

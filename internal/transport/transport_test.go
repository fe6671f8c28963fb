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

package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/onem2m-labs/cse-core/apis/onem2m"
	"github.com/onem2m-labs/cse-core/internal/oerrors"
)

func TestValidateReleaseVersion(t *testing.T) {
	cases := map[string]struct {
		reason  string
		rvi     string
		wantErr bool
	}{
		"Supported": {
			reason: "3.x is within the supported range",
			rvi:    "3.0.0",
		},
		"TooOld": {
			reason:  "1.x predates the supported range",
			rvi:     "1.0.0",
			wantErr: true,
		},
		"Malformed": {
			reason:  "a non-semver string is rejected",
			rvi:     "not-a-version",
			wantErr: true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidateReleaseVersion(tc.rvi)
			if (err != nil) != tc.wantErr {
				t.Errorf("\n%s\nValidateReleaseVersion(%q): wantErr %v, got %v", tc.reason, tc.rvi, tc.wantErr, err)
			}
			if err != nil && oerrors.StatusCode(err) != onem2m.BadRequest {
				t.Errorf("\n%s\nValidateReleaseVersion(%q): want BadRequest, got %v", tc.reason, tc.rvi, oerrors.StatusCode(err))
			}
		})
	}
}

func TestHTTPPosterPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewHTTPPoster(time.Second)
	if err := p.Post(context.Background(), srv.URL, map[string]string{"hello": "world"}); err != nil {
		t.Errorf("Post: unexpected error %v", err)
	}
}

func TestHTTPPosterNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewHTTPPoster(time.Second)
	err := p.Post(context.Background(), srv.URL, map[string]string{})
	if oerrors.StatusCode(err) != onem2m.TargetNotReachable {
		t.Errorf("Post: want TargetNotReachable, got %v", oerrors.StatusCode(err))
	}
}

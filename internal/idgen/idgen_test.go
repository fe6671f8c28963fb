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

package idgen

import (
	"strings"
	"testing"
)

func TestUnique(t *testing.T) {
	cases := map[string]struct {
		reason string
		prefix string
	}{
		"CPrefix": {
			reason: "A 'C' prefix is used for client-assigned AE originators",
			prefix: "C",
		},
		"SPrefix": {
			reason: "An 'S' prefix is used for infrastructure-assigned AE originators",
			prefix: "S",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := Unique(tc.prefix)
			if !strings.HasPrefix(got, tc.prefix) {
				t.Errorf("\n%s\nUnique(%q): want prefix %q, got %q", tc.reason, tc.prefix, tc.prefix, got)
			}
			if len(got) > MaxIDLength {
				t.Errorf("\n%s\nUnique(%q): want len <= %d, got %d (%q)", tc.reason, tc.prefix, MaxIDLength, len(got), got)
			}
		})
	}
}

func TestUniqueIsUnique(t *testing.T) {
	a, b := Unique("C"), Unique("C")
	if a == b {
		t.Errorf("Unique(\"C\") returned the same id twice: %q", a)
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	now := Now()
	parsed, err := ParseTime(now)
	if err != nil {
		t.Fatalf("ParseTime(%q): unexpected error %v", now, err)
	}
	if got := FormatTime(parsed); got != now {
		t.Errorf("FormatTime(ParseTime(%q)): want %q, got %q", now, now, got)
	}
}

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

// Package idgen generates oneM2M resource identifiers and timestamps: the
// identifier and time utilities the dispatcher and registration manager
// call on every create.
package idgen

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxIDLength is the configuration-independent ceiling on any CSE-assigned
// identifier, per spec.md §6.
const MaxIDLength = 10

// TimestampLayout is the CSE's compact ISO-like timestamp form,
// YYYYMMDDTHHMMSS, sortable as a plain string and free of separators that
// would need escaping in a resource path.
const TimestampLayout = "20060102T150405"

// Now returns the current time formatted as the CSE's compact timestamp.
func Now() string { return time.Now().UTC().Format(TimestampLayout) }

// FormatTime formats an arbitrary time.Time in the CSE's compact form.
func FormatTime(t time.Time) string { return t.UTC().Format(TimestampLayout) }

// ParseTime parses a CSE compact timestamp.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

// suffix returns a short, URL-safe unique token derived from a random
// UUIDv4, trimmed to fit MaxIDLength once combined with prefix.
func suffix(prefix string) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	room := MaxIDLength - len(prefix)
	if room <= 0 {
		return ""
	}
	if len(id) > room {
		id = id[:room]
	}
	return id
}

// Unique returns a fresh identifier with the given single-character
// prefix (e.g. "C" or "S" for AE originator assignment), capped at
// MaxIDLength.
func Unique(prefix string) string { return prefix + suffix(prefix) }

// ResourceID returns a fresh resource identifier for a resource of the
// given type prefix (e.g. "cnt" for Container, "sub" for Subscription).
// Unlike Unique, the type-prefix form is not length-capped: only
// originator identifiers (aei, csi) are subject to MaxIDLength.
func ResourceID(typePrefix string) string {
	return typePrefix + strings.ReplaceAll(uuid.New().String(), "-", "")
}

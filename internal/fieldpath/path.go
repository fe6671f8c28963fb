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

// Package fieldpath supports getting and setting values within a
// map[string]interface{} (a "paved" object) by dotted, bracket-indexed
// field path, e.g. "enc.net[0]".
package fieldpath

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// SegmentType is the kind of a path Segment.
type SegmentType int

// Segment kinds.
const (
	SegmentField SegmentType = iota
	SegmentIndex
)

// A Segment is either a field name or an array index.
type Segment struct {
	Type  SegmentType
	Field string
	Index uint
}

func (s Segment) String() string {
	if s.Type == SegmentIndex {
		return "[" + strconv.FormatUint(uint64(s.Index), 10) + "]"
	}
	return s.Field
}

// Segments is a parsed field path.
type Segments []Segment

func (s Segments) String() string {
	var b strings.Builder
	for i, seg := range s {
		if seg.Type == SegmentIndex {
			b.WriteString(seg.String())
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg.Field)
	}
	return b.String()
}

// Parse the supplied field path into Segments, e.g. "a.b[0].c".
func Parse(path string) (Segments, error) {
	if path == "" {
		return nil, errors.New("empty path")
	}

	var segments Segments
	var field strings.Builder

	flushField := func() {
		if field.Len() > 0 {
			segments = append(segments, Segment{Type: SegmentField, Field: field.String()})
			field.Reset()
		}
	}

	runes := []rune(path)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.':
			flushField()
		case '[':
			flushField()
			j := i + 1
			for j < len(runes) && runes[j] != ']' {
				j++
			}
			if j >= len(runes) {
				return nil, errors.Errorf("%s: unterminated index", path)
			}
			n, err := strconv.ParseUint(string(runes[i+1:j]), 10, 32)
			if err != nil {
				return nil, errors.Wrapf(err, "%s: invalid index", path)
			}
			segments = append(segments, Segment{Type: SegmentIndex, Index: uint(n)})
			i = j
		default:
			field.WriteRune(runes[i])
		}
	}
	flushField()

	if len(segments) == 0 {
		return nil, errors.Errorf("%s: empty path", path)
	}

	return segments, nil
}

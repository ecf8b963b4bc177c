// Package content holds the pure transforms over page documents: field
// path parsing, batch operation application, and diff summarization.
// Nothing in this package performs I/O.
package content

import (
	"fmt"
	"strconv"
	"strings"
)

// PathStep is one step of a parsed field path: either a field name into
// an object or an explicit index into an array.
type PathStep struct {
	Field   string
	Index   int
	IsIndex bool
}

func (s PathStep) String() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Field
}

// FieldPath is the typed representation of a dotted path under a
// section's props. Dotted strings stay the wire format; parsing happens
// once at operation decode time so invalid paths are rejected before
// anything touches a document.
type FieldPath []PathStep

func (p FieldPath) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// Leaf returns the final step of the path
func (p FieldPath) Leaf() PathStep {
	return p[len(p)-1]
}

// ParsePath parses a dotted path like "props.headline" or
// "props.testimonials.0.name" into a FieldPath. The leading "props"
// segment is optional and stripped; all paths address under props.
func ParsePath(raw string) (FieldPath, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("empty path")
	}

	segments := strings.Split(trimmed, ".")
	if segments[0] == "props" {
		segments = segments[1:]
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("path %q has no field after props", raw)
	}

	path := make(FieldPath, 0, len(segments))
	for i, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("path %q has an empty segment", raw)
		}
		if isDigits(seg) {
			if i == 0 {
				return nil, fmt.Errorf("path %q cannot start with an array index", raw)
			}
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("path %q has an invalid index %q", raw, seg)
			}
			path = append(path, PathStep{Index: idx, IsIndex: true})
			continue
		}
		if strings.ContainsAny(seg, " \t") {
			return nil, fmt.Errorf("path %q has whitespace in segment %q", raw, seg)
		}
		path = append(path, PathStep{Field: seg})
	}

	return path, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// RESULT RECORD
// =============================================================================

// ResultRecord is one search hit returned by the assistant.
//
// Records come from several unrelated notice kinds, so the shape is a sparse
// mapping. Only "id" is expected; every other field is optional and must be
// probed rather than assumed.
type ResultRecord map[string]any

// IDKeys are the keys probed, in order, for a record identifier.
var IDKeys = []string{"id", "_id", "notice_id", "gazette_id"}

// DefaultHeadlineFields are the fields rendered in previews when present.
var DefaultHeadlineFields = []string{
	"title",
	"notice_type",
	"person_name",
	"old_name",
	"new_name",
	"gazette_number",
	"published_at",
	"location",
	"authority",
}

// Field is a single rendered key/value pair.
type Field struct {
	Key   string
	Label string
	Value string
}

// ID returns the record identifier, or "" when none of IDKeys is present.
func (r ResultRecord) ID() string {
	for _, k := range IDKeys {
		if v, ok := r.String(k); ok {
			return v
		}
	}
	return ""
}

// Has reports whether key is present with a non-empty value.
func (r ResultRecord) Has(key string) bool {
	_, ok := r.String(key)
	return ok
}

// String returns the value at key formatted for display.
// Missing keys, nil values and blank strings report false.
func (r ResultRecord) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	s := formatValue(v)
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// Headline returns the present fields among keys, in the order given.
func (r ResultRecord) Headline(keys []string) []Field {
	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		if v, ok := r.String(k); ok {
			fields = append(fields, Field{Key: k, Label: Label(k), Value: v})
		}
	}
	return fields
}

// Secondary returns the present fields not listed in exclude and not an ID
// key, sorted by key.
func (r ResultRecord) Secondary(exclude []string) []Field {
	skip := make(map[string]bool, len(exclude)+len(IDKeys))
	for _, k := range exclude {
		skip[k] = true
	}
	for _, k := range IDKeys {
		skip[k] = true
	}

	keys := make([]string, 0, len(r))
	for k := range r {
		if !skip[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		if v, ok := r.String(k); ok {
			fields = append(fields, Field{Key: k, Label: Label(k), Value: v})
		}
	}
	return fields
}

// Title returns the best single-line label for the record: the first present
// headline field, falling back to the ID.
func (r ResultRecord) Title(keys []string) string {
	for _, k := range keys {
		if v, ok := r.String(k); ok {
			return v
		}
	}
	if id := r.ID(); id != "" {
		return id
	}
	return "(untitled)"
}

// CloneBatch returns a shallow copy of a batch so callers cannot mutate the
// presenter's slice.
func CloneBatch(batch []ResultRecord) []ResultRecord {
	if batch == nil {
		return nil
	}
	out := make([]ResultRecord, len(batch))
	copy(out, batch)
	return out
}

// Label turns a snake_case or camelCase key into a display label.
func Label(key string) string {
	var b strings.Builder
	prevLower := false
	for i, r := range key {
		switch {
		case r == '_' || r == '-':
			b.WriteByte(' ')
			prevLower = false
			continue
		case r >= 'A' && r <= 'Z' && prevLower:
			b.WriteByte(' ')
			r = r + ('a' - 'A')
		case i == 0 && r >= 'a' && r <= 'z':
			r = r - ('a' - 'A')
		}
		b.WriteRune(r)
		prevLower = r >= 'a' && r <= 'z'
	}
	return b.String()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format("2006-01-02")
	case []any:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			if s := formatValue(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}

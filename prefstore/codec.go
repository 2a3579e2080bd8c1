package prefstore

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// The preference store's document model prefers scalars, so composite
// values are flattened on the way in: arrays become sorted, de-duplicated,
// comma-joined strings, recursively through nested maps. Existing stored
// data follows this convention, so it must be replicated exactly.

// Flatten converts a value to its wire shape. Maps are walked recursively,
// lists are joined, strings are re-normalized as lists (split on commas,
// de-duplicated, sorted), other scalars are stringified.
func Flatten(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = Flatten(val)
		}
		return out
	case []string:
		return joinSorted(v)
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, fmt.Sprint(item))
		}
		return joinSorted(items)
	case string:
		return joinSorted(SplitList(v))
	default:
		return fmt.Sprint(v)
	}
}

// SplitList is the read-side inverse of the list flattening: a comma
// separated string becomes a slice of trimmed, non-blank items. A value
// stored from a single-element list comes back as a plain string, so reads
// must always go through here.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Read-side coercions. Everything crossing the wire is stringified by
// Flatten, so typed reads go through these instead of type asserts.

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false
		}
		return b
	default:
		return false
	}
}

func asList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		return SplitList(t)
	default:
		return SplitList(fmt.Sprint(t))
	}
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// joinSorted trims items before joining. Pre-existing data was written
// with inner whitespace intact; SplitList trims on read, so both shapes
// decode to the same lists.
func joinSorted(items []string) string {
	seen := make(map[string]struct{}, len(items))
	uniq := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		uniq = append(uniq, item)
	}
	sort.Strings(uniq)
	return strings.Join(uniq, ",")
}

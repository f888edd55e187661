// Package search implements the in-memory filtering used by list endpoints and view controllers:
// case-insensitive substring search plus facet selection.
package search

import (
	"strings"
)

// Matches reports whether any field contains query, ignoring case.
// An empty (or blank) query matches everything.
func Matches(query string, fields ...string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// Filter returns the items for which keep is true, preserving order.
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// Facet is a set of selected values. An empty facet selects everything.
type Facet[K comparable] map[K]struct{}

func NewFacet[K comparable](values ...K) Facet[K] {
	f := Facet[K]{}
	for _, v := range values {
		f[v] = struct{}{}
	}
	return f
}

// Allows reports whether v passes the facet.
func (f Facet[K]) Allows(v K) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[v]
	return ok
}

// ParseList splits a comma separated query parameter, dropping blanks.
func ParseList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GroupBy buckets items by key, preserving the input order inside each bucket.
func GroupBy[T any, K comparable](items []T, key func(T) K) map[K][]T {
	out := make(map[K][]T)
	for _, it := range items {
		k := key(it)
		out[k] = append(out[k], it)
	}
	return out
}

// Package service holds the business rules of the dashboard: credential
// verification, uploads, vehicles, bookings and business profiles.
// Handlers translate the errors declared here into HTTP responses.
package service

import (
	"sort"
	"strings"
)

// FieldErrors maps input field names to validation messages.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

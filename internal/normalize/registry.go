// =============================================================================
// Ledger Reconciler - Normalization Registry
// =============================================================================
//
// This package holds the fixed set of named string transforms that the schema
// can attach to key fields via the sheet "normalizations" map:
//
//   normalize_policy    "OIGM202300135224 (EBP)"          -> "OIGM202300135224"
//                       "OIGM202400150383 - CAT B"        -> "OIGM202400150383"
//   extract_document    "DNMD001224838/SHMIU25000012942"  -> "SHMIU25000012942"
//                       "A/B/C"                           -> "B"
//   normalize_document  "SHMOU21000023491/1"              -> "SHMOU21000023491"
//
// The set is closed. A name that is not registered is NOT an error: the value
// passes through unchanged.
//
// =============================================================================

package normalize

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ginjaninja78/ledger-reconciler/internal/types"
)

// Registered normalization names.
const (
	NormalizePolicy   = "normalize_policy"
	ExtractDocument   = "extract_document"
	NormalizeDocument = "normalize_document"
)

// Func is a single normalization. The boolean result is false when the
// normalized value is absent rather than empty.
type Func func(value types.Value) (string, bool)

// bracketed matches "(...)" groups anywhere in a policy number.
var bracketed = regexp.MustCompile(`\([^)]*\)`)

// registry is the closed lookup table of named strategies.
var registry = map[string]Func{
	NormalizePolicy:   normalizePolicy,
	ExtractDocument:   extractDocument,
	NormalizeDocument: normalizeDocument,
}

// Apply runs the normalization registered under name.
//
// PARAMETERS:
//   - name: The registry name from the schema.
//   - value: The raw cell value.
//
// RETURNS:
//   - The normalized text.
//   - false when the result is absent (extract_document on empty input, or
//     an absent value passed through an unknown name).
func Apply(name string, value types.Value) (string, bool) {
	if fn, ok := registry[name]; ok {
		return fn(value)
	}
	// Unknown names are the identity.
	if value == nil {
		return "", false
	}
	return types.Text(value), true
}

// Known reports whether name is a registered normalization.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

// Names returns the registered normalization names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// STRATEGIES
// =============================================================================

// normalizePolicy trims, discards everything from the first '-' onward and
// strips bracketed groups.
func normalizePolicy(value types.Value) (string, bool) {
	s := strings.TrimSpace(types.Text(value))
	if s == "" {
		return "", true
	}

	if i := strings.Index(s, "-"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}

	s = bracketed.ReplaceAllString(s, "")
	return strings.TrimSpace(s), true
}

// extractDocument returns the second '/'-separated segment, trimmed, or the
// whole trimmed value when there is no '/'. Always segment index 1, even
// when there are three or more segments.
func extractDocument(value types.Value) (string, bool) {
	if types.IsEmpty(value) {
		return "", false
	}

	s := strings.TrimSpace(types.Text(value))
	parts := strings.Split(s, "/")
	if len(parts) >= 2 {
		return strings.TrimSpace(parts[1]), true
	}
	return s, true
}

// normalizeDocument keeps the part before the first '/', trimmed.
func normalizeDocument(value types.Value) (string, bool) {
	s := strings.TrimSpace(types.Text(value))
	if i := strings.Index(s, "/"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s, true
}

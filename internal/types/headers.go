package types

import "regexp"

// duplicateSuffix matches the ".N" suffix spreadsheet tools append to
// repeated header names ("Amount.1").
var duplicateSuffix = regexp.MustCompile(`\.\d+$`)

// CleanHeaders selects the usable columns of a header row.
//
// Dropped:
//   - blank headers (unnamed columns)
//   - repeats of a header already kept
//   - headers ending in ".<digits>"
//
// RETURNS:
//   - The indices of the kept headers, in order.
func CleanHeaders(headers []string) []int {
	seen := make(map[string]struct{}, len(headers))
	kept := make([]int, 0, len(headers))

	for i, h := range headers {
		if h == "" || duplicateSuffix.MatchString(h) {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		kept = append(kept, i)
	}

	return kept
}

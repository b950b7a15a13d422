// Package keys builds composite "{policy}|{document}" keys from rows and
// indexes rows by those keys.
//
// A row yields one key per configured document column whose normalized value
// is non-empty, in the declared column order. That order is significant:
// matching consults keys in priority order.
package keys

import (
	"strings"

	"github.com/ginjaninja78/ledger-reconciler/internal/config"
	"github.com/ginjaninja78/ledger-reconciler/internal/normalize"
	"github.com/ginjaninja78/ledger-reconciler/internal/types"
)

// Separator joins the policy and document components.
const Separator = "|"

// Key is a composite key and the actual document column it was built from.
type Key struct {
	Composite string
	Column    string
}

// Compose joins normalized policy and document components.
func Compose(policy, document string) string {
	return policy + Separator + document
}

// Generate returns the ordered composite keys for row. It is a pure
// function of (row, sheet).
func Generate(row types.Row, sheet *config.SheetConfig) []Key {
	if sheet == nil {
		return nil
	}

	policy := field(row, sheet, sheet.KeyFields.PolicyColumn)

	var out []Key
	for _, logical := range sheet.KeyFields.DocumentColumns {
		doc := field(row, sheet, logical)
		if doc == "" {
			continue
		}
		out = append(out, Key{
			Composite: Compose(policy, doc),
			Column:    sheet.ColumnName(logical),
		})
	}
	return out
}

// field resolves and normalizes one key component. Without a configured
// normalization the value is only trimmed.
func field(row types.Row, sheet *config.SheetConfig, logical string) string {
	value := row[sheet.ColumnName(logical)]

	if name, ok := sheet.Normalization(logical); ok {
		s, _ := normalize.Apply(name, value)
		return s
	}
	return strings.TrimSpace(types.Text(value))
}

// Set returns the union of every key produced by every row of t.
func Set(t *types.Table, sheet *config.SheetConfig) map[string]struct{} {
	set := make(map[string]struct{}, t.Len())
	for _, row := range t.Rows {
		for _, k := range Generate(row, sheet) {
			set[k.Composite] = struct{}{}
		}
	}
	return set
}

// =============================================================================
// INDEX
// =============================================================================

// Index maps composite keys to rows. The first row to claim a key keeps it;
// later rows with the same key are counted as duplicates, never stored.
type Index struct {
	rows       map[string]types.Row
	duplicates int
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{rows: make(map[string]types.Row)}
}

// BuildIndex indexes every row of t in source order.
func BuildIndex(t *types.Table, sheet *config.SheetConfig) *Index {
	idx := NewIndex()
	for _, row := range t.Rows {
		for _, k := range Generate(row, sheet) {
			idx.Add(k.Composite, row)
		}
	}
	return idx
}

// Add stores row under key unless the key is already taken. It reports
// whether the row was stored.
func (i *Index) Add(key string, row types.Row) bool {
	if _, taken := i.rows[key]; taken {
		i.duplicates++
		return false
	}
	i.rows[key] = row
	return true
}

// Lookup returns the row stored under key.
func (i *Index) Lookup(key string) (types.Row, bool) {
	row, ok := i.rows[key]
	return row, ok
}

// Len returns the number of distinct keys.
func (i *Index) Len() int {
	return len(i.rows)
}

// Duplicates returns how many Add calls hit an existing key.
func (i *Index) Duplicates() int {
	return i.duplicates
}


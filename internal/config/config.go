// =============================================================================
// Ledger Reconciler - Configuration Module
// =============================================================================
//
// This module loads the reconciliation schema: the declarative description of
// every sheet, how its composite keys are built, which sheets are matched
// against which, and the ordered remarks rules for each sheet.
//
// SCHEMA LAYOUT (JSON or YAML):
//   sheets:
//     <name>:
//       columns:                   {logical: actual}
//       key_fields:                {policy_column, document_columns: [...]}
//       normalizations:            {logical: registry_name}
//       trans_type_column_labels:  {actual_doc_col: label}
//   matching:
//     primary_sheet:   <name>
//     secondary_sheets: [<name>, ...]
//     output_columns:  {<secondary>: {availability: col, trans_type: col}}
//   remarks_rules:
//     <sheet>:
//       output_column:  col
//       default_remark: label
//       rules: [{conditions: [...], condition_logic: AND|OR, remark: label}]
//
// The three top-level sections are required. A missing section is a fatal
// configuration error raised before any sheet is read.
//
// =============================================================================

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/ledger-reconciler/internal/types"
	"github.com/ginjaninja78/ledger-reconciler/pkg/errors"
)

// Required top-level schema sections, in the order they are checked.
var requiredSections = []string{"sheets", "matching", "remarks_rules"}

// Defaults used when a rule set or rule leaves a field unset.
const (
	DefaultOutputColumn = "Remarks"
	DefaultRemark       = "Not Reconciled"
	DefaultTolerance    = 0.01
)

// =============================================================================
// SCHEMA STRUCTURE
// =============================================================================

// Schema is the parsed reconciliation configuration.
type Schema struct {
	// Sheets maps a sheet name to its column and key configuration.
	Sheets map[string]*SheetConfig `yaml:"sheets"`

	// Matching describes which sheet is primary and which are secondary.
	Matching Matching `yaml:"matching"`

	// RemarksRules maps a sheet name to its ordered rule set.
	RemarksRules map[string]*RuleSet `yaml:"remarks_rules"`
}

// SheetConfig describes one sheet.
type SheetConfig struct {
	// Name is the sheet name (the key under "sheets"). Filled in on load.
	Name string `yaml:"-"`

	// Columns maps logical column names to the actual header text.
	Columns map[string]string `yaml:"columns"`

	// KeyFields names the columns the composite key is built from.
	KeyFields KeyFields `yaml:"key_fields"`

	// Normalizations maps a logical field to a normalization registry name.
	Normalizations map[string]string `yaml:"normalizations"`

	// TransTypeColumnLabels maps an actual document column to the label
	// reported as the matched transaction type.
	TransTypeColumnLabels map[string]string `yaml:"trans_type_column_labels"`
}

// KeyFields names the policy column and the ordered document columns.
type KeyFields struct {
	// PolicyColumn is the logical name of the policy column.
	PolicyColumn string `yaml:"policy_column"`

	// DocumentColumns are logical document column names in priority order.
	DocumentColumns []string `yaml:"document_columns"`
}

// Matching holds the matching parameters.
type Matching struct {
	PrimarySheet    string                   `yaml:"primary_sheet"`
	SecondarySheets []string                 `yaml:"secondary_sheets"`
	OutputColumns   map[string]OutputColumns `yaml:"output_columns"`
}

// OutputColumns names the primary-sheet columns written for one secondary sheet.
// An empty name means that column is not written.
type OutputColumns struct {
	Availability string `yaml:"availability"`
	TransType    string `yaml:"trans_type"`
}

// =============================================================================
// RULE STRUCTURES
// =============================================================================

// RuleSet is the ordered rule list for one sheet. The first rule whose
// conditions hold assigns its remark; DefaultRemark applies otherwise.
type RuleSet struct {
	OutputColumn  string `yaml:"output_column"`
	DefaultRemark string `yaml:"default_remark"`
	Rules         []Rule `yaml:"rules"`
}

// Logic combines the conditions of a rule.
type Logic string

// Supported rule combinators. Anything else behaves as AND.
const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Rule is a single remarks rule.
type Rule struct {
	Conditions     []Condition `yaml:"conditions"`
	ConditionLogic Logic       `yaml:"condition_logic"`
	Remark         string      `yaml:"remark"`
}

// ConditionKind tags a Condition.
type ConditionKind string

// The closed set of condition kinds.
const (
	KindEquals       ConditionKind = "equals"
	KindApproxEquals ConditionKind = "approx_equals"
	KindLessThan     ConditionKind = "less_than"
	KindGreaterThan  ConditionKind = "greater_than"
	KindEmpty        ConditionKind = "empty"
	KindNotEmpty     ConditionKind = "not_empty"
	KindKeyExistsIn  ConditionKind = "key_exists_in"
	KindHasMatch     ConditionKind = "has_match"
	KindNoMatch      ConditionKind = "no_match"
	KindCrossSheetOr ConditionKind = "cross_sheet_or"
)

// ConditionKinds lists every supported kind.
var ConditionKinds = []ConditionKind{
	KindEquals, KindApproxEquals, KindLessThan, KindGreaterThan,
	KindEmpty, KindNotEmpty, KindKeyExistsIn, KindHasMatch, KindNoMatch,
	KindCrossSheetOr,
}

// Known reports whether k is one of the supported kinds.
func (k ConditionKind) Known() bool {
	for _, known := range ConditionKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Condition is one predicate. Which fields are used depends on Type:
//   - equals, approx_equals, less_than, greater_than: Left, Right
//   - approx_equals also reads Tolerance
//   - empty, not_empty: Left
//   - cross_sheet_or: Conditions
//   - key_exists_in, has_match, no_match: nothing
type Condition struct {
	Type       ConditionKind `yaml:"type"`
	Left       *Operand      `yaml:"left,omitempty"`
	Right      *Operand      `yaml:"right,omitempty"`
	Tolerance  *float64      `yaml:"tolerance,omitempty"`
	Conditions []Condition   `yaml:"conditions,omitempty"`

	// Sheet names the counterpart sheet of key_exists_in. The check itself
	// only asks whether a counterpart row was resolved.
	Sheet string `yaml:"sheet,omitempty"`
}

// ToleranceOrDefault returns the configured tolerance or DefaultTolerance.
func (c Condition) ToleranceOrDefault() float64 {
	if c.Tolerance == nil {
		return DefaultTolerance
	}
	return *c.Tolerance
}

// Operand is either a literal ({"value": ...}) or a column reference
// ({"sheet": ..., "column": ...}). An empty Sheet means the current sheet.
type Operand struct {
	Literal    types.Value
	HasLiteral bool
	Sheet      string
	Column     string
}

// UnmarshalYAML decodes an operand. A "value" key makes the operand a
// literal even when its value is null. Integer literals become float64.
func (o *Operand) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("operand must be a mapping: %w", err)
	}

	if v, ok := raw["value"]; ok {
		o.HasLiteral = true
		o.Literal = normalizeLiteral(v)
		return nil
	}

	o.Sheet = types.Text(normalizeLiteral(raw["sheet"]))
	o.Column = types.Text(normalizeLiteral(raw["column"]))
	return nil
}

// MarshalYAML encodes the operand back to its schema form.
func (o Operand) MarshalYAML() (any, error) {
	if o.HasLiteral {
		return map[string]any{"value": o.Literal}, nil
	}
	out := map[string]any{"column": o.Column}
	if o.Sheet != "" {
		out["sheet"] = o.Sheet
	}
	return out, nil
}

// normalizeLiteral maps YAML scalar types onto the cell value model.
func normalizeLiteral(v any) types.Value {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case uint64:
		return float64(val)
	default:
		return val
	}
}

// =============================================================================
// SCHEMA LOADING
// =============================================================================

// LoadSchema loads the reconciliation schema from a JSON or YAML file.
//
// PARAMETERS:
//   - path: The path to the schema file.
//
// RETURNS:
//   - The parsed schema with defaults applied.
//   - A *errors.ConfigError if the file cannot be read, parsed, or is
//     missing a required section.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError(path, "failed to read schema file", err)
	}

	schema, err := ParseSchema(data)
	if err != nil {
		if errors.IsConfigError(err) {
			return nil, err
		}
		return nil, errors.NewConfigError(path, "invalid schema", err)
	}

	return schema, nil
}

// ParseSchema parses schema bytes (JSON or YAML).
func ParseSchema(data []byte) (*Schema, error) {
	// Check section presence before decoding into the typed structure so
	// that a present-but-empty section is distinguishable from a missing one.
	var sections map[string]any
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return nil, errors.NewConfigError("schema", "failed to parse schema", err)
	}
	for _, section := range requiredSections {
		if _, ok := sections[section]; !ok {
			return nil, errors.MissingSection(section)
		}
	}

	var schema Schema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, errors.NewConfigError("schema", "failed to parse schema", err)
	}

	applySchemaDefaults(&schema)

	return &schema, nil
}

// applySchemaDefaults fills in names and unset rule fields.
func applySchemaDefaults(schema *Schema) {
	if schema.Sheets == nil {
		schema.Sheets = make(map[string]*SheetConfig)
	}
	for name, sheet := range schema.Sheets {
		if sheet == nil {
			sheet = &SheetConfig{}
			schema.Sheets[name] = sheet
		}
		sheet.Name = name
	}

	if schema.RemarksRules == nil {
		schema.RemarksRules = make(map[string]*RuleSet)
	}
	for name, rs := range schema.RemarksRules {
		// An empty rule set entry means "no remarks for this sheet".
		if rs == nil || (len(rs.Rules) == 0 && rs.OutputColumn == "" && rs.DefaultRemark == "") {
			delete(schema.RemarksRules, name)
			continue
		}
		if rs.OutputColumn == "" {
			rs.OutputColumn = DefaultOutputColumn
		}
		if rs.DefaultRemark == "" {
			rs.DefaultRemark = DefaultRemark
		}
		for i := range rs.Rules {
			if rs.Rules[i].ConditionLogic == "" {
				rs.Rules[i].ConditionLogic = LogicAnd
			}
		}
	}
}

// Marshal encodes the schema as YAML.
func (s *Schema) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// =============================================================================
// SCHEMA METHODS
// =============================================================================

// Sheet returns the configuration for a sheet.
func (s *Schema) Sheet(name string) (*SheetConfig, bool) {
	sheet, ok := s.Sheets[name]
	return sheet, ok
}

// RuleSet returns the remarks rule set for a sheet, if any.
func (s *Schema) RuleSet(name string) (*RuleSet, bool) {
	rs, ok := s.RemarksRules[name]
	return rs, ok
}

// Output returns the configured output columns for a secondary sheet.
func (s *Schema) Output(secondary string) OutputColumns {
	return s.Matching.OutputColumns[secondary]
}

// ColumnName resolves a logical column name to its actual header, falling
// back to treating the name as already actual. This lets rules address
// generated columns that have no logical alias.
func (c *SheetConfig) ColumnName(logical string) string {
	if c == nil {
		return logical
	}
	if actual, ok := c.Columns[logical]; ok {
		return actual
	}
	return logical
}

// Normalization returns the registry name configured for a logical field.
func (c *SheetConfig) Normalization(logical string) (string, bool) {
	if c == nil {
		return "", false
	}
	name, ok := c.Normalizations[logical]
	return name, ok
}

// TransTypeLabel returns the label for an actual document column, falling
// back to the column name itself.
func (c *SheetConfig) TransTypeLabel(actualColumn string) string {
	if c != nil {
		if label, ok := c.TransTypeColumnLabels[actualColumn]; ok {
			return label
		}
	}
	return actualColumn
}

// =============================================================================
// Ledger Reconciler - Schema Validation
// =============================================================================
//
// This module checks a reconciliation schema before any file is read. The
// run itself is permissive (an unknown condition kind evaluates false, an
// unknown normalization is the identity), so typos would otherwise surface
// only as odd remarks. Validation reports them up front.
//
// SEVERITY:
//   - error:   the run cannot proceed (e.g. the primary sheet is not defined)
//   - warning: the run proceeds with the permissive default
//
// Every finding carries a path into the schema, for example
//   remarks_rules.faeu.rules[2].conditions[0].type
//
// =============================================================================

package validation

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ginjaninja78/ledger-reconciler/internal/config"
	"github.com/ginjaninja78/ledger-reconciler/internal/normalize"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single schema finding.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Path locates the offending value in the schema.
	Path string

	// Rule names the check that failed.
	Rule string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", strings.ToUpper(e.Severity), e.Path, e.Message)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no error-severity findings.
	IsValid bool

	// Errors contains all findings, errors and warnings, in schema order.
	Errors []*ValidationError

	// ErrorCount is the number of error-severity findings.
	ErrorCount int

	// WarningCount is the number of warnings.
	WarningCount int

	// RulesValidated is the total number of remarks rules checked.
	RulesValidated int
}

// FirstError returns the first error-severity finding, or nil.
func (r *ValidationResult) FirstError() *ValidationError {
	for _, e := range r.Errors {
		if e.Severity == SeverityError {
			return e
		}
	}
	return nil
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// TreatWarningsAsErrors makes any warning invalidate the schema.
	// Default: false
	TreatWarningsAsErrors bool
}

// Validator checks a schema.
type Validator struct {
	schema  *config.Schema
	options ValidationOptions
	result  *ValidationResult
}

// DefaultValidationOptions returns the default validation options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{TreatWarningsAsErrors: false}
}

// NewValidator creates a new Validator instance.
func NewValidator(schema *config.Schema) *Validator {
	return NewValidatorWithOptions(schema, DefaultValidationOptions())
}

// NewValidatorWithOptions creates a new Validator with custom options.
func NewValidatorWithOptions(schema *config.Schema, options ValidationOptions) *Validator {
	return &Validator{schema: schema, options: options}
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// ValidateAll runs every check and returns a detailed result.
func (v *Validator) ValidateAll() *ValidationResult {
	v.result = &ValidationResult{IsValid: true}

	v.validateMatching()
	for _, name := range sortedKeys(v.schema.Sheets) {
		v.validateSheet(name, v.schema.Sheets[name])
	}
	for _, name := range sortedKeys(v.schema.RemarksRules) {
		v.validateRuleSet(name, v.schema.RemarksRules[name])
	}

	return v.result
}

// validateMatching checks the matching section.
func (v *Validator) validateMatching() {
	m := v.schema.Matching

	if m.PrimarySheet == "" {
		v.add(SeverityError, "matching.primary_sheet", "required", "primary sheet is not set")
	} else if !v.defined(m.PrimarySheet) {
		v.add(SeverityError, "matching.primary_sheet", "defined_sheet",
			fmt.Sprintf("primary sheet %q is not defined in sheets", m.PrimarySheet))
	}

	seen := make(map[string]bool, len(m.SecondarySheets))
	for i, name := range m.SecondarySheets {
		path := fmt.Sprintf("matching.secondary_sheets[%d]", i)
		switch {
		case name == m.PrimarySheet:
			v.add(SeverityError, path, "distinct_sheet",
				fmt.Sprintf("sheet %q is both primary and secondary", name))
		case !v.defined(name):
			v.add(SeverityError, path, "defined_sheet",
				fmt.Sprintf("secondary sheet %q is not defined in sheets", name))
		case seen[name]:
			v.add(SeverityWarning, path, "duplicate_sheet",
				fmt.Sprintf("secondary sheet %q is listed more than once", name))
		}
		seen[name] = true
	}

	for _, name := range sortedKeys(m.OutputColumns) {
		if !seen[name] {
			v.add(SeverityWarning, "matching.output_columns."+name, "unused",
				fmt.Sprintf("output columns configured for %q, which is not a secondary sheet", name))
		}
	}
}

// validateSheet checks one sheet definition.
func (v *Validator) validateSheet(name string, sheet *config.SheetConfig) {
	base := "sheets." + name

	if sheet.KeyFields.PolicyColumn == "" {
		v.add(SeverityWarning, base+".key_fields.policy_column", "required",
			"policy column is not set; keys of this sheet use an empty policy component")
	}
	if len(sheet.KeyFields.DocumentColumns) == 0 {
		v.add(SeverityWarning, base+".key_fields.document_columns", "required",
			"no document columns; rows of this sheet never produce keys")
	}

	for _, field := range sortedKeys(sheet.Normalizations) {
		fn := sheet.Normalizations[field]
		if !normalize.Known(fn) {
			v.add(SeverityWarning, base+".normalizations."+field, "known_normalization",
				fmt.Sprintf("unknown normalization %q (values pass through unchanged; known: %s)",
					fn, strings.Join(normalize.Names(), ", ")))
		}
	}
}

// validateRuleSet checks one sheet's remarks rules.
func (v *Validator) validateRuleSet(name string, rs *config.RuleSet) {
	base := "remarks_rules." + name

	if !v.defined(name) {
		v.add(SeverityWarning, base, "defined_sheet",
			fmt.Sprintf("rules for %q, which is not defined in sheets, are never applied", name))
	}

	for i, rule := range rs.Rules {
		path := fmt.Sprintf("%s.rules[%d]", base, i)
		v.result.RulesValidated++

		if rule.Remark == "" {
			v.add(SeverityWarning, path+".remark", "required", "rule assigns an empty remark")
		}
		if rule.ConditionLogic != config.LogicAnd && rule.ConditionLogic != config.LogicOr {
			v.add(SeverityWarning, path+".condition_logic", "known_logic",
				fmt.Sprintf("unknown condition logic %q is treated as AND", rule.ConditionLogic))
		}
		for j, cond := range rule.Conditions {
			v.validateCondition(fmt.Sprintf("%s.conditions[%d]", path, j), cond)
		}
	}
}

// validateCondition checks one condition and its nested conditions.
func (v *Validator) validateCondition(path string, c config.Condition) {
	if !c.Type.Known() {
		v.add(SeverityWarning, path+".type", "known_kind",
			fmt.Sprintf("unknown condition type %q always evaluates false", c.Type))
		return
	}

	switch c.Type {
	case config.KindEquals, config.KindApproxEquals, config.KindLessThan, config.KindGreaterThan:
		v.validateOperand(path+".left", c.Left)
		v.validateOperand(path+".right", c.Right)
	case config.KindEmpty, config.KindNotEmpty:
		v.validateOperand(path+".left", c.Left)
	case config.KindKeyExistsIn:
		if c.Sheet != "" && !v.defined(c.Sheet) {
			v.add(SeverityWarning, path+".sheet", "defined_sheet",
				fmt.Sprintf("sheet %q is not defined in sheets", c.Sheet))
		}
	case config.KindCrossSheetOr:
		if len(c.Conditions) == 0 {
			v.add(SeverityWarning, path+".conditions", "required",
				"cross_sheet_or without conditions always evaluates false")
		}
		for i, sub := range c.Conditions {
			v.validateCondition(fmt.Sprintf("%s.conditions[%d]", path, i), sub)
		}
	}

	if c.Tolerance != nil && *c.Tolerance <= 0 {
		v.add(SeverityWarning, path+".tolerance", "positive",
			"a tolerance of zero or less never matches")
	}
}

// validateOperand checks a literal or column reference.
func (v *Validator) validateOperand(path string, op *config.Operand) {
	switch {
	case op == nil:
		v.add(SeverityWarning, path, "required", "operand is missing and resolves to an absent value")
	case op.HasLiteral:
	case op.Column == "":
		v.add(SeverityWarning, path+".column", "required", "column reference without a column name")
	case op.Sheet != "" && !v.defined(op.Sheet):
		v.add(SeverityError, path+".sheet", "defined_sheet",
			fmt.Sprintf("operand references undefined sheet %q", op.Sheet))
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func (v *Validator) add(severity, path, rule, message string) {
	v.result.Errors = append(v.result.Errors, &ValidationError{
		Severity: severity,
		Path:     path,
		Rule:     rule,
		Message:  message,
	})

	if severity == SeverityError {
		v.result.ErrorCount++
		v.result.IsValid = false
		return
	}

	v.result.WarningCount++
	if v.options.TreatWarningsAsErrors {
		v.result.IsValid = false
	}
}

func (v *Validator) defined(sheet string) bool {
	_, ok := v.schema.Sheet(sheet)
	return ok
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// =============================================================================
// ERROR REPORTING
// =============================================================================

// FormatErrors formats validation findings for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d finding(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}

// WriteErrorLog writes the formatted findings to filePath.
func WriteErrorLog(errors []*ValidationError, filePath string) error {
	if err := os.WriteFile(filePath, []byte(FormatErrors(errors)), 0o644); err != nil {
		return fmt.Errorf("failed to write validation log: %w", err)
	}
	return nil
}

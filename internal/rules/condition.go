// Package rules evaluates declarative conditions against table rows and
// assigns remarks from ordered rule sets.
//
// Conditions form a closed set of kinds (see config.ConditionKinds). An
// operand is either a literal or a column reference; a reference to another
// sheet is read from the matched counterpart row, which the remarks engine
// resolves through composite keys before evaluating a row's rules.
package rules

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/ledger-reconciler/internal/config"
	"github.com/ginjaninja78/ledger-reconciler/internal/matching"
	"github.com/ginjaninja78/ledger-reconciler/internal/types"
)

// Context is the data a condition is evaluated against.
type Context struct {
	// Row is the row being classified.
	Row types.Row

	// Matched is the counterpart row from another sheet, or nil.
	Matched types.Row
}

// Evaluator evaluates conditions for rows of one sheet.
type Evaluator struct {
	schema *config.Schema
	sheet  string
}

// NewEvaluator returns an evaluator for rows of sheet.
func NewEvaluator(schema *config.Schema, sheet string) *Evaluator {
	return &Evaluator{schema: schema, sheet: sheet}
}

// EvaluateAll combines conditions with logic. An empty list is true; OR
// requires any condition to hold, every other logic value requires all.
func (e *Evaluator) EvaluateAll(conds []config.Condition, logic config.Logic, ctx Context) bool {
	if len(conds) == 0 {
		return true
	}

	if logic == config.LogicOr {
		for _, c := range conds {
			if e.Evaluate(c, ctx) {
				return true
			}
		}
		return false
	}

	for _, c := range conds {
		if !e.Evaluate(c, ctx) {
			return false
		}
	}
	return true
}

// Evaluate evaluates a single condition. Unknown kinds are false.
func (e *Evaluator) Evaluate(c config.Condition, ctx Context) bool {
	switch c.Type {
	case config.KindEquals:
		left, right := e.resolve(c.Left, ctx), e.resolve(c.Right, ctx)
		if types.IsNumeric(right) {
			return parseDecimal(left).Equal(parseDecimal(right))
		}
		return rawEqual(left, right)

	case config.KindApproxEquals:
		diff := e.number(c.Left, ctx).Sub(e.number(c.Right, ctx)).Abs()
		return diff.LessThan(decimal.NewFromFloat(c.ToleranceOrDefault()))

	case config.KindLessThan:
		return e.number(c.Left, ctx).LessThan(e.number(c.Right, ctx))

	case config.KindGreaterThan:
		return e.number(c.Left, ctx).GreaterThan(e.number(c.Right, ctx))

	case config.KindEmpty:
		return types.IsEmpty(e.resolve(c.Left, ctx))

	case config.KindNotEmpty:
		return !types.IsEmpty(e.resolve(c.Left, ctx))

	case config.KindKeyExistsIn:
		return ctx.Matched != nil

	case config.KindHasMatch:
		return types.Truthy(ctx.Row[matching.HasMatchColumn])

	case config.KindNoMatch:
		return !types.Truthy(ctx.Row[matching.HasMatchColumn])

	case config.KindCrossSheetOr:
		for _, sub := range c.Conditions {
			if e.Evaluate(sub, ctx) {
				return true
			}
		}
		return false
	}

	return false
}

func (e *Evaluator) number(op *config.Operand, ctx Context) decimal.Decimal {
	return parseDecimal(e.resolve(op, ctx))
}

// resolve reads an operand's value. A reference to another sheet reads the
// matched row whichever sheet it came from; without one it is absent.
func (e *Evaluator) resolve(op *config.Operand, ctx Context) types.Value {
	if op == nil {
		return nil
	}
	if op.HasLiteral {
		return op.Literal
	}

	sheet := op.Sheet
	if sheet == "" {
		sheet = e.sheet
	}

	row := ctx.Row
	if sheet != e.sheet {
		if ctx.Matched == nil {
			return nil
		}
		row = ctx.Matched
	}

	var cfg *config.SheetConfig
	if e.schema != nil {
		cfg, _ = e.schema.Sheet(sheet)
	}

	// The mapped name wins; the raw name reaches generated columns.
	if v, ok := row[cfg.ColumnName(op.Column)]; ok {
		return v
	}
	return row[op.Column]
}

// rawEqual compares two cell values without coercion. b is never numeric
// here; values of different kinds are never equal.
func rawEqual(a, b types.Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	}
	return false
}

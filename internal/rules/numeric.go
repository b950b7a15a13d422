package rules

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/ledger-reconciler/internal/types"
)

// numberCleaner strips thousands separators and blanks before parsing.
var numberCleaner = strings.NewReplacer(",", "", " ", "")

// ParseNumeric parses a cell value as a number. It never fails: absent,
// empty, "-" and unparsable values all read as 0.
//
//	ParseNumeric("1,234.50") == 1234.5
//	ParseNumeric("")         == 0
//	ParseNumeric("-")        == 0
//	ParseNumeric("abc")      == 0
func ParseNumeric(v types.Value) float64 {
	f, _ := parseDecimal(v).Float64()
	return f
}

// parseDecimal is ParseNumeric in decimal arithmetic. All numeric
// conditions compare decimals.
func parseDecimal(v types.Value) decimal.Decimal {
	switch val := v.(type) {
	case nil:
		return decimal.Zero
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(val)
	case float32:
		return parseDecimal(float64(val))
	case int:
		return decimal.NewFromInt(int64(val))
	case int64:
		return decimal.NewFromInt(val)
	case int32:
		return decimal.NewFromInt32(val)
	}

	s := strings.TrimSpace(numberCleaner.Replace(types.Text(v)))
	if s == "" || s == "-" {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

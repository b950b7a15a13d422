package rules

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/ledger-reconciler/internal/config"
	"github.com/ginjaninja78/ledger-reconciler/internal/matching"
	"github.com/ginjaninja78/ledger-reconciler/internal/types"
	"github.com/ginjaninja78/ledger-reconciler/pkg/errors"
)

const engineSchema = `
sheets:
  faeu:
    columns: {policy: Policy, invoice_a: InvoiceA, invoice_b: InvoiceB, premium: Premium}
    key_fields: {policy_column: policy, document_columns: [invoice_a, invoice_b]}
    normalizations: {policy: normalize_policy, invoice_a: extract_document, invoice_b: extract_document}
  insurer:
    columns: {policy: Policy, doc: Doc, amount: TransAmt}
    key_fields: {policy_column: policy, document_columns: [doc]}
    normalizations: {doc: normalize_document}
matching:
  primary_sheet: faeu
  secondary_sheets: [insurer]
  output_columns:
    insurer: {availability: Available, trans_type: Matched Via}
remarks_rules:
  insurer:
    output_column: Status
    default_remark: Unmatched
    rules:
      - remark: Matched
        conditions:
          - {type: key_exists_in, sheet: faeu}
          - {type: equals, left: {sheet: faeu, column: Available}, right: {value: "Yes"}}
  faeu:
    default_remark: Not Available
    rules:
      - remark: Reconciled
        conditions:
          - type: approx_equals
            left: {sheet: insurer, column: amount}
            right: {column: premium}
`

type fixture struct {
	schema  *config.Schema
	primary *types.Table
	insurer *types.Table
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	schema, err := config.ParseSchema([]byte(engineSchema))
	require.NoError(t, err)

	primary := types.NewTable("faeu", "Policy", "InvoiceA", "InvoiceB", "Premium")
	primary.Append("OIGM2024-X", "DN1/SH100", "", 1000.0)
	primary.Append("P2", "", "", 500.0)
	primary.Append("P3 (EBP)", "DN/SH300", "", 10.0)

	insurer := types.NewTable("insurer", "Policy", "Doc", "TransAmt")
	insurer.Append("OIGM2024", "SH100/1", 1000.0)
	insurer.Append("P3", "SH300/2", "25")
	insurer.Append("P9", "SH900", 1.0)

	return &fixture{schema: schema, primary: primary, insurer: insurer}
}

// run performs matching and both remarks passes in phase order.
func (f *fixture) run(t *testing.T) (Stats, Stats) {
	t.Helper()

	faeuCfg, _ := f.schema.Sheet("faeu")
	insurerCfg, _ := f.schema.Sheet("insurer")

	res, err := matching.Match(f.primary, faeuCfg, []matching.Source{
		{Name: "insurer", Table: f.insurer, Config: insurerCfg},
	})
	require.NoError(t, err)
	res.Apply(f.primary, f.schema.Matching.OutputColumns)

	sheets := []Sheet{{Name: "faeu", Table: f.primary}, {Name: "insurer", Table: f.insurer}}

	secStats, err := ApplyRemarks(f.insurer, "insurer", f.schema, sheets, zerolog.Nop())
	require.NoError(t, err)

	primStats, err := ApplyRemarks(f.primary, "faeu", f.schema, sheets, zerolog.Nop())
	require.NoError(t, err)

	return secStats, primStats
}

func TestApplyRemarks_EndToEnd(t *testing.T) {
	f := newFixture(t)
	secStats, primStats := f.run(t)

	assert.Equal(t, []types.Value{"Yes", "No", "Yes"}, f.primary.Column("Available"))
	assert.Equal(t, []types.Value{"InvoiceA", "", "InvoiceA"}, f.primary.Column("Matched Via"))

	assert.Equal(t, []types.Value{"Reconciled", "Not Available", "Not Available"},
		f.primary.Column(config.DefaultOutputColumn))
	assert.Equal(t, []types.Value{"Matched", "Matched", "Unmatched"}, f.insurer.Column("Status"))

	assert.True(t, primStats.Applied)
	assert.Equal(t, 3, primStats.Rows)
	assert.Equal(t, 2, primStats.Matched)
	assert.Equal(t, map[string]int{"Reconciled": 1, "Not Available": 2}, primStats.ByRemark)

	assert.Equal(t, "Status", secStats.OutputColumn)
	assert.Equal(t, 2, secStats.Matched)
}

func TestApplyRemarks_NoRuleSet(t *testing.T) {
	f := newFixture(t)
	delete(f.schema.RemarksRules, "insurer")

	before := f.insurer.Clone()
	stats, err := ApplyRemarks(f.insurer, "insurer", f.schema,
		[]Sheet{{Name: "faeu", Table: f.primary}, {Name: "insurer", Table: f.insurer}}, zerolog.Nop())
	require.NoError(t, err)

	assert.False(t, stats.Applied)
	assert.Equal(t, before, f.insurer)
}

func TestApplyRemarks_FirstRuleWins(t *testing.T) {
	f := newFixture(t)
	rs := f.schema.RemarksRules["faeu"]
	broad := config.Rule{
		Remark:         "Has Premium",
		ConditionLogic: config.LogicAnd,
		Conditions:     []config.Condition{{Type: config.KindNotEmpty, Left: &config.Operand{Column: "premium"}}},
	}
	rs.Rules = append([]config.Rule{broad}, rs.Rules...)

	f.run(t)

	assert.Equal(t, []types.Value{"Has Premium", "Has Premium", "Has Premium"},
		f.primary.Column(config.DefaultOutputColumn))
}

func TestApplyRemarks_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.run(t)
	first := f.primary.Column(config.DefaultOutputColumn)

	sheets := []Sheet{{Name: "faeu", Table: f.primary}, {Name: "insurer", Table: f.insurer}}
	_, err := ApplyRemarks(f.primary, "faeu", f.schema, sheets, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, first, f.primary.Column(config.DefaultOutputColumn))
}

func TestApplyRemarks_NoKeysGetsDefault(t *testing.T) {
	f := newFixture(t)
	// Add an insurer row unrelated to the keyless primary row.
	f.insurer.Append("P2", "SH777", 500.0)

	f.run(t)

	assert.Equal(t, "No", f.primary.Get(1, "Available"))
	assert.Equal(t, false, f.primary.Get(1, matching.HasMatchColumn))
	assert.Equal(t, "Not Available", f.primary.Get(1, config.DefaultOutputColumn))
}

func TestApplyRemarks_MatchedKeyFallback(t *testing.T) {
	schema, err := config.ParseSchema([]byte(engineSchema))
	require.NoError(t, err)

	// The primary row has no document columns of its own, only the key
	// recorded by the matching engine.
	primary := types.NewTable("faeu", "Policy", "Premium", matching.MatchedKeyColumn)
	primary.Append("OIGM2024", 1000.0, "OIGM2024|SH100")

	insurer := types.NewTable("insurer", "Policy", "Doc", "TransAmt")
	insurer.Append("OIGM2024", "SH100", 1000.0)

	sheets := []Sheet{{Name: "faeu", Table: primary}, {Name: "insurer", Table: insurer}}
	stats, err := ApplyRemarks(primary, "faeu", schema, sheets, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Matched)
	assert.Equal(t, "Reconciled", primary.Get(0, config.DefaultOutputColumn))
}

func TestApplyRemarks_SelfDuplicates(t *testing.T) {
	f := newFixture(t)
	f.insurer.Append("OIGM2024", "SH100/2", 3.0)

	secStats, _ := f.run(t)
	assert.Equal(t, 1, secStats.SelfDuplicates)
}

func TestApplyRemarks_UndefinedSheet(t *testing.T) {
	f := newFixture(t)
	sheets := []Sheet{{Name: "faeu", Table: f.primary}, {Name: "ghost", Table: types.NewTable("ghost")}}

	_, err := ApplyRemarks(f.primary, "faeu", f.schema, sheets, zerolog.Nop())
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}

func TestApplyRemarks_Preset(t *testing.T) {
	schema, err := config.LoadPreset("faeu-insurer")
	require.NoError(t, err)

	faeu := types.NewTable("faeu",
		"Policy No", "Ins Tax Invoice", "Tax.Invoice No(Broker)",
		"Total Premium(AED)", "Total Commission(AED)",
		"Customer Settled (AED)", "Commission Colleted (AED)")
	faeu.Append("POL1 - CAT B", "DN1/SH1", "", 1000.0, 100.0, 1000.0, 100.0)
	faeu.Append("POL2", "DN2/SH2", "", 500.0, 50.0, 0.0, 0.0)
	faeu.Append("POL3", "DN3/SH3", "", 200.0, 20.0, 0.0, 20.0)
	faeu.Append("POL4", "DN4/SH4", "", 300.0, 30.0, 300.0, 10.0)
	faeu.Append("POL5", "DN5/SH5", "", nil, 30.0, 300.0, 10.0)
	faeu.Append("POL6", "DN6/SH6", "", 1000.0, 100.0, 10.0, 100.0)
	faeu.Append("POL7", "", "BRK/SH7", 1.0, 1.0, 1.0, 1.0)

	insurer := types.NewTable("insurer", "Policy Number", "Doc Number", "Trans Amt Local")
	insurer.Append("POL1", "SH1/1", 1000.0)
	insurer.Append("POL2", "SH2/1", 50.0)
	insurer.Append("POL3", "SH3/1", 7.0)
	insurer.Append("POL4", "SH4/1", 300.0)
	insurer.Append("POL5", "SH5/1", 30.0)
	insurer.Append("POL6", "SH6/1", 100.0)
	insurer.Append("POL8", "SH8/1", 1.0)

	faeuCfg, _ := schema.Sheet("faeu")
	insurerCfg, _ := schema.Sheet("insurer")
	res, err := matching.Match(faeu, faeuCfg, []matching.Source{{Name: "insurer", Table: insurer, Config: insurerCfg}})
	require.NoError(t, err)
	res.Apply(faeu, schema.Matching.OutputColumns)

	sheets := []Sheet{{Name: "faeu", Table: faeu}, {Name: "insurer", Table: insurer}}
	_, err = ApplyRemarks(insurer, "insurer", schema, sheets, zerolog.Nop())
	require.NoError(t, err)
	_, err = ApplyRemarks(faeu, "faeu", schema, sheets, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, []types.Value{
		"Reconciled",
		"Premium and Commission outstanding",
		"DS_PENDING",
		"Reconciled and Comm Receivable",
		"Prem Missing",
		"Not Reconciled",
		"Not Available in Insurer",
	}, faeu.Column("Remarks"))

	assert.Equal(t, []types.Value{
		"Reconciled",
		"Reconciled",
		"Not Reconciled",
		"Reconciled",
		"Reconciled",
		"Reconciled",
		"Not Reconciled",
	}, insurer.Column("Remarks"))

	assert.Equal(t, "Insurer Invoice", faeu.Get(0, "Matched Via"))
}

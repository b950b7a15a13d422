package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/ledger-reconciler/internal/config"
	"github.com/ginjaninja78/ledger-reconciler/internal/types"
	"github.com/ginjaninja78/ledger-reconciler/pkg/errors"
)

const testSchema = `
sheets:
  faeu:
    columns: {policy: Policy, invoice: Invoice, premium: Premium}
    key_fields: {policy_column: policy, document_columns: [invoice]}
    normalizations: {policy: normalize_policy}
    trans_type_column_labels: {Invoice: Insurer Invoice}
  insurer:
    columns: {policy: Policy, doc: Doc, amount: Amount}
    key_fields: {policy_column: policy, document_columns: [doc]}
    normalizations: {policy: normalize_policy}
  broker:
    key_fields: {policy_column: policy, document_columns: [doc]}
matching:
  primary_sheet: faeu
  secondary_sheets: [insurer, broker]
  output_columns:
    insurer: {availability: Available, trans_type: Matched Via}
remarks_rules:
  insurer:
    default_remark: Unmatched
    rules:
      - remark: Matched
        conditions: [{type: key_exists_in, sheet: faeu}]
  faeu:
    default_remark: Not Available
    rules:
      - remark: Reconciled
        conditions:
          - {type: approx_equals, left: {sheet: insurer, column: amount}, right: {column: premium}}
      - remark: Amount Differs
        conditions:
          - {type: equals, left: {column: Available}, right: {value: "Yes"}}
`

func writeWorkbook(t *testing.T, path string, rows [][]any) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
}

type fixture struct {
	dir      string
	schema   *config.Schema
	settings *config.Settings
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	schema, err := config.ParseSchema([]byte(testSchema))
	require.NoError(t, err)

	writeWorkbook(t, filepath.Join(dir, "faeu.xlsx"), [][]any{
		{"Policy", "Invoice", "Premium"},
		{"P1-2024", "D1", 1000},
		{"P2", "D2", 500},
		{"P3", "D3", 200},
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "insurer.csv"),
		[]byte("Policy,Doc,Amount\nP1,D1,1000\nP2,D2,450\nP9,D9,10\n"), 0o644))

	return &fixture{
		dir:    dir,
		schema: schema,
		settings: &config.Settings{
			PrimaryPath:    filepath.Join(dir, "faeu.xlsx"),
			SecondaryPaths: map[string]string{},
			InputDir:       dir,
			Output:         filepath.Join(dir, "out", "recon_{uuid}"),
			CSVEncoding:    "UTF-8",
		},
	}
}

func (f *fixture) run(t *testing.T) (*Result, error) {
	t.Helper()
	return New(f.schema, f.settings, zerolog.Nop()).Run(context.Background())
}

func column(tbl *types.Table, name string) []string {
	out := make([]string, tbl.Len())
	for i, v := range tbl.Column(name) {
		out[i] = types.Text(v)
	}
	return out
}

func TestRun(t *testing.T) {
	f := newFixture(t)

	result, err := f.run(t)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, []string{"broker"}, result.Skipped)
	assert.Equal(t, filepath.Join(f.dir, "insurer.csv"), result.Stats.Sources["insurer"])
	assert.Equal(t, 2, result.Stats.MatchedRows["insurer"])
	assert.Equal(t, 1, result.Stats.UnmatchedRows)

	primary := result.Primary.Table
	assert.Equal(t, []string{"Policy", "Invoice", "Premium", "Available", "Matched Via", "Remarks"}, primary.Columns)
	assert.Equal(t, []string{"Yes", "Yes", "No"}, column(primary, "Available"))
	assert.Equal(t, []string{"Insurer Invoice", "Insurer Invoice", ""}, column(primary, "Matched Via"))
	assert.Equal(t, []string{"Reconciled", "Amount Differs", "Not Available"}, column(primary, "Remarks"))

	require.Len(t, result.Secondaries, 1)
	assert.Equal(t, []string{"Matched", "Matched", "Unmatched"}, column(result.Secondaries[0].Table, "Remarks"))

	assert.Equal(t, 3, result.Stats.Remarks["faeu"].Rows)
	assert.Equal(t, 2, result.Stats.Remarks["insurer"].Matched)

	// Output workbook
	require.NotEmpty(t, result.OutputFile)
	assert.True(t, strings.HasSuffix(result.OutputFile, "recon_"+result.RunID+".xlsx"))

	wb, err := excelize.OpenFile(result.OutputFile)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"FAEU", "Insurer"}, wb.GetSheetList())
	rows, err := wb.GetRows("FAEU")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Policy", "Invoice", "Premium", "Available", "Matched Via", "Remarks"}, rows[0])
	assert.Equal(t, "Reconciled", rows[1][5])

	// Summary
	require.NotNil(t, result.Summary)
	assert.Equal(t, result.RunID, result.Summary.RunID)
	assert.Equal(t, result.OutputFile, result.Summary.Output)
	require.Len(t, result.Summary.Sheets, 2)
	assert.Equal(t, 3, result.Summary.Sheets[0].Rows)
}

func TestRun_DryRun(t *testing.T) {
	f := newFixture(t)
	f.settings.DryRun = true

	result, err := f.run(t)
	require.NoError(t, err)
	assert.Empty(t, result.OutputFile)
	assert.True(t, result.Summary.DryRun)

	_, err = os.Stat(filepath.Join(f.dir, "out"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_ExplicitSecondaryPath(t *testing.T) {
	f := newFixture(t)

	other := filepath.Join(f.dir, "statement.csv")
	require.NoError(t, os.WriteFile(other, []byte("Policy,Doc,Amount\nP3,D3,200\n"), 0o644))
	f.settings.SecondaryPaths["insurer"] = other
	f.settings.DryRun = true

	result, err := f.run(t)
	require.NoError(t, err)
	assert.Equal(t, other, result.Stats.Sources["insurer"])
	assert.Equal(t, []string{"Not Available", "Not Available", "Reconciled"}, column(result.Primary.Table, "Remarks"))
}

func TestRun_UnusedSecondaryPath(t *testing.T) {
	f := newFixture(t)
	f.settings.SecondaryPaths["tpa"] = filepath.Join(f.dir, "tpa.csv")
	f.settings.SecondaryPaths["insurer"] = filepath.Join(f.dir, "insurer.csv")
	f.settings.DryRun = true

	r := New(f.schema, f.settings, zerolog.Nop())
	assert.Equal(t, []string{"tpa"}, r.unusedSecondaryPaths())

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, result.Stats.Sources, "tpa")
}

func TestRun_NoSecondarySources(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(filepath.Join(f.dir, "insurer.csv")))
	f.settings.DryRun = true

	result, err := f.run(t)
	require.NoError(t, err)
	assert.Equal(t, []string{"insurer", "broker"}, result.Skipped)
	assert.Empty(t, result.Secondaries)
	assert.Equal(t, []string{"Not Available", "Not Available", "Not Available"}, column(result.Primary.Table, "Remarks"))
}

func TestRun_LoadError(t *testing.T) {
	f := newFixture(t)
	f.settings.PrimaryPath = filepath.Join(f.dir, "missing.xlsx")

	_, err := f.run(t)
	require.Error(t, err)
	assert.True(t, errors.IsLoadError(err))

	f = newFixture(t)
	f.settings.PrimaryPath = filepath.Join(f.dir, "faeu.pdf")
	_, err = f.run(t)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestRun_InvalidSchema(t *testing.T) {
	f := newFixture(t)
	f.schema.Matching.PrimarySheet = "ghost"

	_, err := f.run(t)
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
	assert.Contains(t, err.Error(), "ghost")

	_, statErr := os.Stat(filepath.Join(f.dir, "out"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(f.schema, f.settings, zerolog.Nop()).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

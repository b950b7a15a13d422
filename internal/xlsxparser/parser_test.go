package xlsxparser

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/ledger-reconciler/internal/types"
)

// writeWorkbook saves rows to a new workbook's first sheet.
func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}

	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoad(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Policy No", "Doc", "", "Amount", "Amount", "Amount.1", "Paid"},
		{"OIGM2024 (EBP)", "SH1/1", "junk", 1250.5, 1, 2, true},
		{nil, nil, nil, nil, nil, nil, nil},
		{"P2", "0012", "", 0, nil, nil, false},
	})

	table, err := Load(path, "insurer")
	require.NoError(t, err)

	assert.Equal(t, "insurer", table.Name)
	assert.Equal(t, path, table.SourceFile)
	assert.Equal(t, []string{"Policy No", "Doc", "Amount", "Paid"}, table.Columns)
	require.Equal(t, 2, table.Len())

	assert.Equal(t, types.Row{
		"Policy No": "OIGM2024 (EBP)",
		"Doc":       "SH1/1",
		"Amount":    1250.5,
		"Paid":      true,
	}, table.Rows[0])

	// Text cells keep leading zeros; numeric zero is a number.
	assert.Equal(t, "0012", table.Get(1, "Doc"))
	assert.Equal(t, 0.0, table.Get(1, "Amount"))
	assert.Equal(t, false, table.Get(1, "Paid"))
}

func TestLoad_TrailingEmptyCells(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"A", "B", "C"},
		{"x"},
	})

	table, err := Load(path, "s")
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "x", table.Get(0, "A"))
	assert.Nil(t, table.Get(0, "C"))
	assert.True(t, table.HasColumn("C"))
}

func TestLoad_HeaderOnly(t *testing.T) {
	path := writeWorkbook(t, [][]any{{"A", "B"}})

	table, err := Load(path, "s")
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, []string{"A", "B"}, table.Columns)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.xlsx"), "s")
	assert.Error(t, err)
}

func TestLoadWithOptions_Sheet(t *testing.T) {
	f := excelize.NewFile()
	_, err := f.NewSheet("Data")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Data", "A1", &[]any{"K"}))
	require.NoError(t, f.SetSheetRow("Data", "A2", &[]any{"v"}))
	path := filepath.Join(t.TempDir(), "multi.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := LoadWithOptions(path, "data", Options{Sheet: "Data"})
	require.NoError(t, err)
	assert.Equal(t, "v", table.Get(0, "K"))

	_, err = LoadWithOptions(path, "data", Options{Sheet: "Missing"})
	assert.Error(t, err)
}

func TestLoad_Dates(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Policy", "Issued", "Posted", "Premium", "Serial"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"P1", 45366, 45366, 1250.5, 45366}))

	builtin, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	require.NoError(t, err)
	dayFirst := "dd/mm/yyyy"
	custom, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dayFirst})
	require.NoError(t, err)
	money := "#,##0.00"
	amount, err := f.NewStyle(&excelize.Style{CustomNumFmt: &money})
	require.NoError(t, err)

	require.NoError(t, f.SetCellStyle("Sheet1", "B2", "B2", builtin))
	require.NoError(t, f.SetCellStyle("Sheet1", "C2", "C2", custom))
	require.NoError(t, f.SetCellStyle("Sheet1", "D2", "D2", amount))

	path := filepath.Join(t.TempDir(), "dates.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := Load(path, "faeu")
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())

	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	for _, column := range []string{"Issued", "Posted"} {
		got, ok := table.Get(0, column).(time.Time)
		require.True(t, ok, column)
		assert.True(t, want.Equal(got), "%s: got %s", column, got)
	}

	// Numbers without a date format stay numbers.
	assert.Equal(t, 1250.5, table.Get(0, "Premium"))
	assert.Equal(t, 45366.0, table.Get(0, "Serial"))
}

func TestIsDateFormat(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"yyyy-mm-dd", true},
		{"dd/mm/yyyy hh:mm", true},
		{"[$-409]d-mmm-yy;@", true},
		{"mmm yyyy", true},
		{"#,##0.00", false},
		{"0.00%", false},
		{`#,##0 "days"`, false},
		{"[Red]#,##0.00", false},
		{"General", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, isDateFormat(tt.code))
		})
	}
}

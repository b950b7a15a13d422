package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  bool
	}{
		{"nil", nil, true},
		{"empty string", "", true},
		{"whitespace", " ", false},
		{"zero", 0.0, false},
		{"text", "abc", false},
		{"false flag", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEmpty(tt.value))
		})
	}
}

func TestText(t *testing.T) {
	assert.Equal(t, "", Text(nil))
	assert.Equal(t, "1000", Text(1000.0))
	assert.Equal(t, "1234.5", Text(1234.5))
	assert.Equal(t, "42", Text(42))
	assert.Equal(t, "OIGM", Text("OIGM"))
	assert.Equal(t, "true", Text(true))
	assert.Equal(t, "2024-03-15", Text(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-03-15 09:30:00", Text(time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)))
}

func TestCapitalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"sukoon", "Sukoon"},
		{"SUKOON", "Sukoon"},
		{"abc insurer", "Abc insurer"},
		{"élan", "Élan"},
		{"ǆemal", "ǅemal"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Capitalize(tt.in))
		})
	}
}

func TestTruthy(t *testing.T) {
	assert.True(t, Truthy(true))
	assert.True(t, Truthy("TRUE"))
	assert.True(t, Truthy(1.0))
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy("yes"))
	assert.False(t, Truthy(false))
}

func TestTable_SetColumnAndDrop(t *testing.T) {
	tbl := NewTable("faeu", "Policy No", "Premium")
	tbl.Append("P1", 100.0)
	tbl.Append("P2")

	require.Equal(t, 2, tbl.Len())
	assert.Nil(t, tbl.Get(1, "Premium"))
	assert.Nil(t, tbl.Get(5, "Premium"))

	tbl.SetColumn("Available", []Value{"Yes", "No"})
	assert.Equal(t, []string{"Policy No", "Premium", "Available"}, tbl.Columns)
	assert.Equal(t, "No", tbl.Get(1, "Available"))

	// Re-setting an existing column keeps the header stable.
	tbl.SetColumn("Available", []Value{"No", "No"})
	assert.Equal(t, []string{"Policy No", "Premium", "Available"}, tbl.Columns)
	assert.Equal(t, []Value{"No", "No"}, tbl.Column("Available"))

	tbl.DropColumns("Premium", "missing")
	assert.Equal(t, []string{"Policy No", "Available"}, tbl.Columns)
	_, ok := tbl.Rows[0].Get("Premium")
	assert.False(t, ok)
}

func TestTable_Clone(t *testing.T) {
	tbl := NewTable("insurer", "Doc")
	tbl.Append("SH1")

	clone := tbl.Clone()
	clone.Rows[0]["Doc"] = "SH2"
	clone.SetColumn("Remarks", []Value{"Reconciled"})

	assert.Equal(t, "SH1", tbl.Get(0, "Doc"))
	assert.False(t, tbl.HasColumn("Remarks"))
	assert.True(t, clone.HasColumn("Remarks"))
}

func TestCleanHeaders(t *testing.T) {
	headers := []string{"Policy", "", "Amount", "Amount", "Amount.1", "Tax.Invoice No(Broker)", "Note"}
	assert.Equal(t, []int{0, 2, 5, 6}, CleanHeaders(headers))
	assert.Empty(t, CleanHeaders(nil))
}

package csvexport

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"njcrashes/internal/domain"
)

func TestTable(t *testing.T) {
	cols := domain.NewColumns([]string{"Crash Location", "Cross Street Name"})
	records := []domain.RawRecord{
		domain.NewRawRecord(cols, []string{"BROAD ST", `O"Neil, Ave`}, 0, 1),
		domain.NewRawRecord(cols, []string{"Market St", ""}, 1, 2),
	}

	var buf bytes.Buffer
	require.NoError(t, Table(&buf, records, cols.Names()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Crash Location", "Cross Street Name"},
		{"BROAD ST", `O"Neil, Ave`},
		{"Market St", ""},
	}, rows)
}

func TestConflicts(t *testing.T) {
	dist := 512.34
	in := []domain.MergeConflictRow{
		{
			PrimaryKey: "07|14|2019-00042",
			GroupIndex: 3,
			Position:   0,
			SourceLine: 12,
			CaseClass:  domain.CaseUpper,
			Strategy:   domain.StrategyFallback,
			LLDist:     &dist,
			Provenance: []byte(`{"Latitude":"conflict"}`),
			Record:     []byte(`{"Latitude":"40.1"}`),
		},
		{
			PrimaryKey: "07|14|2019-00042",
			GroupIndex: 3,
			Position:   -1,
			Strategy:   domain.StrategyFallback,
			Provenance: []byte(`{}`),
			Record:     []byte(`{}`),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Conflicts(&buf, in))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ConflictColumns, rows[0])
	assert.Equal(t, []string{
		"07|14|2019-00042", "3", "0", "12", "upper", "fallback", "false", "512.3",
		`{"Latitude":"conflict"}`, `{"Latitude":"40.1"}`,
	}, rows[1])
	assert.Equal(t, "-1", rows[2][2])
	assert.Equal(t, "", rows[2][7])
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Accidents_2019", "Accidents_2019"},
		{"My Collection", "My_Collection"},
		{"a//b..c", "a_b_c"},
		{"__leading", "leading"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
		})
	}
}

func TestBuildFilename(t *testing.T) {
	assert.Equal(t, "Accidents_2019.csv", BuildFilename(domain.KindCrash, 2019, false))
	assert.Equal(t, "Vehicles_2021_conflicts.csv", BuildFilename(domain.KindVehicle, 2021, true))
}

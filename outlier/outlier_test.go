package outlier

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/activecm/netgauge/constants"
	"github.com/activecm/netgauge/table"

	"github.com/stretchr/testify/require"
)

func groupedTable(t *testing.T, values ...float64) *table.Table {
	t.Helper()
	tbl := table.New(constants.AgentsPairColumn, constants.AvgColumn)
	for i, v := range values {
		require.NoError(t, tbl.Append(fmt.Sprintf("pair-%d", i), v))
	}
	return tbl
}

func flagsOf(t *testing.T, tbl *table.Table) []float64 {
	t.Helper()
	flags, err := tbl.Column(constants.IsAnomalyColumn)
	require.NoError(t, err)
	return flags
}

func TestComputeFences(t *testing.T) {
	fences, err := ComputeFences([]float64{1, 2, 3, 4, 5, 100})
	require.NoError(t, err)
	require.InDelta(t, 2.25, fences.Q1, 1e-12)
	require.InDelta(t, 4.75, fences.Q3, 1e-12)
	require.InDelta(t, 2.5, fences.IQR, 1e-12)
	require.InDelta(t, -1.5, fences.Lower, 1e-12)
	require.InDelta(t, 8.5, fences.Upper, 1e-12)

	_, err = ComputeFences(nil)
	require.ErrorIs(t, err, table.ErrNoValues)
}

func TestIdentifyAnomalies(t *testing.T) {
	tests := []struct {
		name          string
		values        []float64
		expected      []float64
		expectedError error
	}{
		{
			name:     "Single Large Outlier",
			values:   []float64{1, 2, 3, 4, 5, 100},
			expected: []float64{0, 0, 0, 0, 0, 1},
		},
		{
			name:     "Low And High Outliers",
			values:   []float64{-50, 10, 11, 12, 13, 14, 15, 90},
			expected: []float64{1, 0, 0, 0, 0, 0, 0, 1},
		},
		{
			name:     "No Outliers",
			values:   []float64{5, 6, 7, 8},
			expected: []float64{0, 0, 0, 0},
		},
		{
			// Q1 = Q3 = 10, so both fences collapse onto 10
			name:     "Zero IQR Flags Every Other Value",
			values:   []float64{10, 10, 10, 10, 10, 11, 9},
			expected: []float64{0, 0, 0, 0, 0, 1, 1},
		},
		{
			name:     "Missing Values Are Not Flagged",
			values:   []float64{1, math.NaN(), 2, 3, 4, 5, 100},
			expected: []float64{0, 0, 0, 0, 0, 0, 1},
		},
		{
			name:          "No Values",
			values:        []float64{math.NaN(), math.NaN()},
			expectedError: table.ErrNoValues,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tbl := groupedTable(t, test.values...)
			flagged, _, err := IdentifyAnomalies(tbl, constants.AvgColumn)
			if test.expectedError != nil {
				require.ErrorIs(t, err, test.expectedError)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.expected, flagsOf(t, flagged))
			require.False(t, tbl.HasColumn(constants.IsAnomalyColumn), "input table must not be modified")
		})
	}
}

func TestIdentifyAnomaliesMissingColumn(t *testing.T) {
	_, _, err := IdentifyAnomalies(groupedTable(t, 1, 2, 3), "bytes")
	require.ErrorIs(t, err, table.ErrColumnNotFound)
}

func TestIdentifyAnomaliesFenceValuesAreNormal(t *testing.T) {
	// quartiles 2.25 and 4.75 put the fences at exactly -1.5 and 8.5
	tbl := groupedTable(t, 1, 2, 3, 4, 5, 100)
	_, fences, err := IdentifyAnomalies(tbl, constants.AvgColumn)
	require.NoError(t, err)

	require.False(t, fences.IsAnomaly(fences.Upper), "a value on the upper fence is normal")
	require.False(t, fences.IsAnomaly(fences.Lower), "a value on the lower fence is normal")
	require.True(t, fences.IsAnomaly(math.Nextafter(fences.Upper, math.Inf(1))))
	require.True(t, fences.IsAnomaly(math.Nextafter(fences.Lower, math.Inf(-1))))
	require.False(t, fences.IsAnomaly(math.NaN()))

	// 5 values of 0 and 5 of 4 put Q1 at 0, Q3 at 4 and the fences at -6 and 10
	tbl = groupedTable(t, 0, 0, 0, 0, 0, 4, 4, 4, 4, 4, -6, 10)
	flagged, fences, err := IdentifyAnomalies(tbl, constants.AvgColumn)
	require.NoError(t, err)
	require.InDelta(t, -6.0, fences.Lower, 1e-12)
	require.InDelta(t, 10.0, fences.Upper, 1e-12)
	require.Equal(t, make([]float64, 12), flagsOf(t, flagged), "values on the fences must not be flagged")
}

func TestIdentifyAnomaliesIsIdempotent(t *testing.T) {
	tbl := groupedTable(t, 3, 8, 1, 44, 2, 9, 7, -20, 5)

	first, _, err := IdentifyAnomalies(tbl, constants.AvgColumn)
	require.NoError(t, err)
	second, _, err := IdentifyAnomalies(first, constants.AvgColumn)
	require.NoError(t, err)

	require.Equal(t, flagsOf(t, first), flagsOf(t, second))
	require.Equal(t, first.Columns(), second.Columns(), "reapplying replaces the flag column")
}

func TestIdentifyAnomaliesFlagsExactlyValuesOutsideFences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		values := make([]float64, 5+rng.Intn(60))
		for i := range values {
			values[i] = rng.ExpFloat64() * 1000
		}

		tbl := groupedTable(t, values...)
		flagged, fences, err := IdentifyAnomalies(tbl, constants.AvgColumn)
		require.NoError(t, err)

		for i, flag := range flagsOf(t, flagged) {
			outside := values[i] < fences.Lower || values[i] > fences.Upper
			require.Equal(t, outside, flag == 1, "round %d value %v", round, values[i])
		}
	}
}

func TestPartition(t *testing.T) {
	flagged, _, err := IdentifyAnomalies(groupedTable(t, 1, 2, 3, 4, 5, 100), constants.AvgColumn)
	require.NoError(t, err)

	normal, anomalous, err := Partition(flagged)
	require.NoError(t, err)
	require.Equal(t, 5, normal.Len())
	require.Equal(t, []string{"pair-5"}, anomalous.Keys())

	keys, err := AnomalousKeys(flagged)
	require.NoError(t, err)
	require.Equal(t, []string{"pair-5"}, keys)

	_, _, err = Partition(groupedTable(t, 1, 2))
	require.ErrorIs(t, err, ErrNotFlagged)
}

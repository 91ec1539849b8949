// Package outlier flags grouped aggregates that fall outside the Tukey fences of their column
// and measures how much of a dataset would be excluded by dropping the flagged groups.
package outlier

import (
	"errors"
	"fmt"

	"github.com/activecm/netgauge/constants"
	"github.com/activecm/netgauge/table"
)

// TukeyMultiplier scales the interquartile range when deriving the fences
const TukeyMultiplier = 1.5

var ErrNotFlagged = errors.New("table has not been checked for anomalies")

// Fences are the Tukey outlier bounds of one column
type Fences struct {
	Q1    float64 `json:"q1"`
	Q3    float64 `json:"q3"`
	IQR   float64 `json:"iqr"`
	Lower float64 `json:"lower_limit"`
	Upper float64 `json:"upper_limit"`
}

// ComputeFences derives the Tukey fences from the quartiles of the non-missing values
func ComputeFences(values []float64) (Fences, error) {
	q1, err := table.Quantile(values, 0.25)
	if err != nil {
		return Fences{}, err
	}
	q3, err := table.Quantile(values, 0.75)
	if err != nil {
		return Fences{}, err
	}

	iqr := q3 - q1
	return Fences{
		Q1:    q1,
		Q3:    q3,
		IQR:   iqr,
		Lower: q1 - TukeyMultiplier*iqr,
		Upper: q3 + TukeyMultiplier*iqr,
	}, nil
}

// IsAnomaly reports whether v lies strictly outside the fences.
// Values on a fence and missing values are not anomalies.
func (f Fences) IsAnomaly(v float64) bool {
	return v > f.Upper || v < f.Lower
}

// IdentifyAnomalies returns a copy of t with an is_anomaly column set to 1 for every row whose
// value in column lies outside the Tukey fences of that column, and 0 otherwise.
// An IQR of zero is valid and flags every value that differs from the quartiles.
func IdentifyAnomalies(t *table.Table, column string) (*table.Table, Fences, error) {
	values, err := t.Column(column)
	if err != nil {
		return nil, Fences{}, err
	}

	fences, err := ComputeFences(values)
	if err != nil {
		return nil, Fences{}, fmt.Errorf("unable to compute fences for %s: %w", column, err)
	}

	flags := make([]float64, len(values))
	for i, v := range values {
		if fences.IsAnomaly(v) {
			flags[i] = 1
		}
	}

	out := t.Clone()
	if err := out.SetColumn(constants.IsAnomalyColumn, flags); err != nil {
		return nil, Fences{}, err
	}
	return out, fences, nil
}

// Partition splits a flagged table into its normal and anomalous rows
func Partition(flagged *table.Table) (*table.Table, *table.Table, error) {
	if !flagged.HasColumn(constants.IsAnomalyColumn) {
		return nil, nil, ErrNotFlagged
	}

	normal, err := flagged.Where(constants.IsAnomalyColumn, func(v float64) bool { return v == 0 })
	if err != nil {
		return nil, nil, err
	}
	anomalous, err := flagged.Where(constants.IsAnomalyColumn, func(v float64) bool { return v == 1 })
	if err != nil {
		return nil, nil, err
	}
	return normal, anomalous, nil
}

// AnomalousKeys returns the keys of the flagged rows in row order
func AnomalousKeys(flagged *table.Table) ([]string, error) {
	_, anomalous, err := Partition(flagged)
	if err != nil {
		return nil, err
	}
	return anomalous.Keys(), nil
}

package table

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var ErrNoValues = errors.New("column has no non-missing values")
var ErrInvalidQuantile = errors.New("quantile must be between 0 and 1")

// Summary holds the descriptive statistics of one column, computed over non-missing values
type Summary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// Quantile returns the q-th quantile of the non-missing values, linearly interpolating
// between the two closest ranks at position (n-1)*q
func Quantile(values []float64, q float64) (float64, error) {
	if q < 0 || q > 1 || math.IsNaN(q) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidQuantile, q)
	}

	sorted := DropNaN(values)
	if len(sorted) == 0 {
		return 0, ErrNoValues
	}
	slices.Sort(sorted)

	pos := float64(len(sorted)-1) * q
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo], nil
	}
	return sorted[lo] + (pos-float64(lo))*(sorted[hi]-sorted[lo]), nil
}

// Describe summarizes the given columns, or every column if none are given.
// Columns without any non-missing value are reported with a zero count and NaN statistics.
func Describe(t *Table, columns ...string) ([]Summary, error) {
	if len(columns) == 0 {
		columns = t.Columns()
	}

	summaries := make([]Summary, 0, len(columns))
	for _, c := range columns {
		values, err := t.Column(c)
		if err != nil {
			return nil, err
		}
		summary, err := Summarize(c, values)
		if err != nil {
			return nil, fmt.Errorf("unable to describe column %s: %w", c, err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Summarize describes a single column of values
func Summarize(column string, values []float64) (Summary, error) {
	data := stats.Float64Data(DropNaN(values))
	nan := math.NaN()
	summary := Summary{Column: column, Count: len(data), Mean: nan, Std: nan, Min: nan, Q1: nan, Median: nan, Q3: nan, Max: nan}
	if len(data) == 0 {
		return summary, nil
	}

	var err error
	if summary.Mean, err = stats.Mean(data); err != nil {
		return summary, err
	}
	// a single value has no sample deviation
	if len(data) > 1 {
		if summary.Std, err = stats.StandardDeviationSample(data); err != nil {
			return summary, err
		}
	}
	if summary.Min, err = stats.Min(data); err != nil {
		return summary, err
	}
	if summary.Max, err = stats.Max(data); err != nil {
		return summary, err
	}
	if summary.Median, err = stats.Median(data); err != nil {
		return summary, err
	}
	if summary.Q1, err = Quantile(data, 0.25); err != nil {
		return summary, err
	}
	if summary.Q3, err = Quantile(data, 0.75); err != nil {
		return summary, err
	}
	return summary, nil
}

// Skew returns the adjusted Fisher-Pearson skewness of the non-missing values.
// Fewer than three values yield NaN.
func Skew(values []float64) (float64, error) {
	data := DropNaN(values)
	if len(data) == 0 {
		return 0, ErrNoValues
	}
	if len(data) < 3 {
		return math.NaN(), nil
	}
	// constant data is perfectly symmetric
	if stat.StdDev(data, nil) == 0 {
		return 0, nil
	}
	return stat.Skew(data, nil), nil
}

// Correlation returns the Pearson correlation matrix of the given columns
func Correlation(t *Table, columns ...string) (*mat.SymDense, error) {
	m, err := t.Matrix(columns...)
	if err != nil {
		return nil, err
	}
	var corr mat.SymDense
	stat.CorrelationMatrix(&corr, m, nil)
	return &corr, nil
}

// DropNaN returns a copy of values without missing entries
func DropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

package util

import "errors"

// ErrDivisionByZero is returned whenever a ratio is requested over a zero denominator.
// Callers that have a domain default for the missing ratio must apply it themselves.
var ErrDivisionByZero = errors.New("division by zero")

// Ratio returns num / den, or ErrDivisionByZero if den is zero
func Ratio(num, den float64) (float64, error) {
	if den == 0 {
		return 0, ErrDivisionByZero
	}
	return num / den, nil
}

// DropPercent returns the percentage of records lost when only remaining of total records are kept
func DropPercent(total, remaining uint64) (float64, error) {
	if remaining > total {
		return 0, errors.New("remaining records cannot exceed total records")
	}

	ratio, err := Ratio(float64(total-remaining), float64(total))
	if err != nil {
		return 0, err
	}

	return ratio * 100, nil
}

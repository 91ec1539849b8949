package outlier

import (
	"fmt"
	"math"

	"github.com/activecm/netgauge/table"
	"github.com/activecm/netgauge/util"
)

// Impact describes what dropping every anomalous group would do to the record count
type Impact struct {
	BigKeys     []string `json:"big_keys"`
	Groups      int      `json:"groups"`
	Total       uint64   `json:"total_records"`
	Remaining   uint64   `json:"remaining_records"`
	Dropped     uint64   `json:"dropped_records"`
	DropPercent float64  `json:"drop_percent"`
}

// AssessImpact sums the record counts per group in counts and reports how many records
// belong to the groups flagged in flagged. An empty dataset has no defined drop ratio
// and fails with util.ErrDivisionByZero.
func AssessImpact(counts *table.Table, countColumn string, flagged *table.Table) (Impact, error) {
	bigKeys, err := AnomalousKeys(flagged)
	if err != nil {
		return Impact{}, err
	}

	values, err := counts.Column(countColumn)
	if err != nil {
		return Impact{}, err
	}

	big := make(map[string]struct{}, len(bigKeys))
	for _, k := range bigKeys {
		big[k] = struct{}{}
	}

	var total, remaining uint64
	for i, key := range counts.Keys() {
		v := values[i]
		if math.IsNaN(v) || v < 0 {
			return Impact{}, fmt.Errorf("invalid record count %v for %s", v, key)
		}
		n := uint64(v)
		total += n
		if _, ok := big[key]; !ok {
			remaining += n
		}
	}

	percent, err := util.DropPercent(total, remaining)
	if err != nil {
		return Impact{}, fmt.Errorf("unable to compute drop percentage: %w", err)
	}

	return Impact{
		BigKeys:     bigKeys,
		Groups:      counts.Len(),
		Total:       total,
		Remaining:   remaining,
		Dropped:     total - remaining,
		DropPercent: percent,
	}, nil
}

package viewer

import (
	"encoding/csv"
	"math"
	"strconv"
	"strings"

	"github.com/activecm/netgauge/table"
)

// FormatToCSV formats every row of t as CSV, key first, with a header row.
// Missing values are left empty.
func FormatToCSV(t *table.Table) (string, error) {
	columns := t.Columns()
	data := make([][]float64, len(columns))
	for i, c := range columns {
		values, err := t.Column(c)
		if err != nil {
			return "", err
		}
		data[i] = values
	}

	var b strings.Builder
	w := csv.NewWriter(&b)

	if err := w.Write(append([]string{t.KeyName()}, columns...)); err != nil {
		return "", err
	}

	for r, key := range t.Keys() {
		fields := make([]string, 0, len(columns)+1)
		fields = append(fields, key)
		for i := range columns {
			v := data[i][r]
			if math.IsNaN(v) {
				fields = append(fields, "")
				continue
			}
			fields = append(fields, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := w.Write(fields); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return b.String(), nil
}

package viewer

import (
	"fmt"
	"math"
	"strconv"

	"github.com/activecm/netgauge/analysis"
	"github.com/activecm/netgauge/cluster"
	"github.com/activecm/netgauge/database"
	"github.com/activecm/netgauge/table"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
)

// Fact is a labelled value shown in a two column table
type Fact struct {
	Label string
	Value string
}

func newTable(re *lipgloss.Renderer, headers []string, rows [][]string, highlight func(row, col int) bool) *lgtable.Table {
	baseStyle := re.NewStyle().Padding(0, 1)
	headerStyle := baseStyle.Foreground(lavender).Bold(true)
	highlightStyle := baseStyle.Foreground(peach).Bold(true)

	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(re.NewStyle().Foreground(surface0)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == 0 {
				return headerStyle
			}
			if highlight != nil && highlight(row, col) {
				return highlightStyle
			}
			if row%2 == 0 {
				return baseStyle.Foreground(subduedTextColor)
			}
			return baseStyle.Foreground(defaultTextColor)
		})
}

// FormatTitle renders a section title
func FormatTitle(re *lipgloss.Renderer, title string) string {
	return re.NewStyle().Foreground(mauve).Bold(true).MarginTop(1).Render(title)
}

// FormatFactsTable renders labelled values
func FormatFactsTable(re *lipgloss.Renderer, facts []Fact) *lgtable.Table {
	rows := make([][]string, 0, len(facts))
	for _, f := range facts {
		rows = append(rows, []string{f.Label, f.Value})
	}
	return newTable(re, []string{"", "Value"}, rows, nil)
}

// FormatDuplicatesTable renders the row counts of every table
func FormatDuplicatesTable(re *lipgloss.Renderer, counts []database.RowCounts) *lgtable.Table {
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{c.Table, printer.Sprint(c.Total), printer.Sprint(c.Unique), printer.Sprint(c.Duplicates())})
	}
	return newTable(re, []string{"Table", "Rows", "Unique Rows", "Duplicates"}, rows, func(row, col int) bool {
		return col == 3 && counts[row-1].Duplicates() > 0
	})
}

// FormatSummaryTable renders the descriptive statistics of one or more sets of values
func FormatSummaryTable(re *lipgloss.Renderer, stats ...analysis.ByteStats) *lgtable.Table {
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			s.Column, printer.Sprint(s.Count), formatNumber(s.Mean), formatNumber(s.Std), formatNumber(s.Min),
			formatNumber(s.Q1), formatNumber(s.Median), formatNumber(s.Q3), formatNumber(s.Max), formatNumber(s.Skew),
		})
	}
	return newTable(re, []string{"", "Count", "Mean", "Std", "Min", "25%", "50%", "75%", "Max", "Skew"}, rows, nil)
}

// FormatKeyedTable renders up to limit rows of t, or every row if limit is not positive.
// Long keys are truncated.
func FormatKeyedTable(re *lipgloss.Renderer, t *table.Table, limit int) (*lgtable.Table, error) {
	columns := t.Columns()
	data := make([][]float64, len(columns))
	for i, c := range columns {
		values, err := t.Column(c)
		if err != nil {
			return nil, err
		}
		data[i] = values
	}

	n := t.Len()
	if limit > 0 {
		n = min(n, limit)
	}

	keyStyle := re.NewStyle().Width(keyWidth)
	keys := t.Keys()
	rows := make([][]string, 0, n)
	for r := 0; r < n; r++ {
		row := []string{Truncate(keys[r], &keyStyle)}
		for i := range columns {
			row = append(row, formatNumber(data[i][r]))
		}
		rows = append(rows, row)
	}

	return newTable(re, append([]string{t.KeyName()}, columns...), rows, nil), nil
}

// FormatCorrelationTable renders a correlation matrix, highlighting every pair of
// distinct features whose correlation exceeds analysis.CorrelationThreshold in magnitude
func FormatCorrelationTable(re *lipgloss.Renderer, report *analysis.CorrelationReport) *lgtable.Table {
	rows := make([][]string, 0, len(report.Columns))
	for i, c := range report.Columns {
		row := []string{c}
		for j := range report.Columns {
			row = append(row, formatNumber(report.Matrix.At(i, j)))
		}
		rows = append(rows, row)
	}

	return newTable(re, append([]string{""}, report.Columns...), rows, func(row, col int) bool {
		i, j := row-1, col-1
		if j < 0 || i == j {
			return false
		}
		return math.Abs(report.Matrix.At(i, j)) > analysis.CorrelationThreshold
	})
}

// FormatElbowTable renders the inertia of each cluster count
func FormatElbowTable(re *lipgloss.Renderer, points []cluster.ElbowPoint) *lgtable.Table {
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{strconv.Itoa(p.Clusters), formatNumber(p.Inertia)})
	}
	return newTable(re, []string{"Clusters", "Inertia"}, rows, nil)
}

// ClusterName names a cluster. Cluster 0 holds the most entities, so with two clusters
// it is the usual behaviour and the other is the unusual one.
func ClusterName(c, clusters int) string {
	if clusters != 2 {
		return strconv.Itoa(c)
	}
	if c == 0 {
		return "0 (good)"
	}
	return fmt.Sprintf("%d (bad)", c)
}

// FormatCountsTable renders how many entities each method put in each cluster
func FormatCountsTable(re *lipgloss.Renderer, counts []cluster.Count, clusters int) *lgtable.Table {
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{ClusterName(c.Cluster, clusters), printer.Sprint(c.KNN), printer.Sprint(c.PCA), printer.Sprint(c.Agreed)})
	}
	return newTable(re, []string{"Cluster", "KNN", "PCA", "Agreed"}, rows, nil)
}

// FormatPeerMetricsTable renders peer_metrics rows
func FormatPeerMetricsTable(re *lipgloss.Renderer, metrics []database.PeerMetric) *lgtable.Table {
	rows := make([][]string, 0, len(metrics))
	for _, m := range metrics {
		rows = append(rows, []string{
			m.SDN1Path, m.SDN2Path, m.SDN3Path,
			formatNumber(m.SDN1PacketLoss), formatNumber(m.SDN2PacketLoss), formatNumber(m.SDN3PacketLoss),
		})
	}
	return newTable(re, []string{"SDN1 Path", "SDN2 Path", "SDN3 Path", "SDN1 Loss", "SDN2 Loss", "SDN3 Loss"}, rows, func(row, col int) bool {
		if col < 3 {
			return false
		}
		m := metrics[row-1]
		loss := [3]float64{m.SDN1PacketLoss, m.SDN2PacketLoss, m.SDN3PacketLoss}[col-3]
		return loss < 0 || loss > 1
	})
}

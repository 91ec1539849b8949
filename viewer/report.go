package viewer

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/activecm/netgauge/analysis"
	"github.com/activecm/netgauge/cluster"
	"github.com/activecm/netgauge/constants"
	"github.com/activecm/netgauge/database"
	zlog "github.com/activecm/netgauge/logger"
	"github.com/activecm/netgauge/outlier"
	"github.com/activecm/netgauge/table"

	"github.com/charmbracelet/lipgloss"
)

// DefaultMaxRows is the number of table rows printed per section unless configured otherwise
const DefaultMaxRows = 20

// Printer writes every analysis result to w as it arrives
type Printer struct {
	mu sync.Mutex
	w  io.Writer
	re *lipgloss.Renderer

	// MaxRows limits the rows printed for per entity tables, 0 prints every row
	MaxRows int
}

var _ analysis.Reporter = (*Printer)(nil)

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, re: lipgloss.NewRenderer(w), MaxRows: DefaultMaxRows}
}

// print writes a titled section, holding the lock so concurrent sections never interleave
func (p *Printer) print(title string, parts ...fmt.Stringer) {
	sections := []string{FormatTitle(p.re, title)}
	for _, part := range parts {
		sections = append(sections, part.String())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (p *Printer) facts(facts ...Fact) fmt.Stringer {
	return FormatFactsTable(p.re, facts)
}

// keyed renders t, noting how many rows were left out
func (p *Printer) keyed(t *table.Table) fmt.Stringer {
	rendered, err := FormatKeyedTable(p.re, t, p.MaxRows)
	if err != nil {
		logger := zlog.GetLogger()
		logger.Err(err).Str("key", t.KeyName()).Msg("could not render table")
		return text("")
	}
	if p.MaxRows <= 0 || t.Len() <= p.MaxRows {
		return rendered
	}
	more := p.re.NewStyle().Foreground(subtext0).PaddingLeft(1).Render(printer.Sprintf("… %d more rows", t.Len()-p.MaxRows))
	return text(lipgloss.JoinVertical(lipgloss.Left, rendered.String(), more))
}

type text string

func (t text) String() string { return string(t) }

func (p *Printer) Duplicates(counts []database.RowCounts) {
	p.print("Duplicate Rows", FormatDuplicatesTable(p.re, counts))
}

func (p *Printer) RawBytes(stats analysis.ByteStats) {
	p.print("SDN Bytes", FormatSummaryTable(p.re, stats))
}

func (p *Printer) Anomalies(report *analysis.AnomalyReport) {
	parts := []fmt.Stringer{
		p.facts(
			Fact{"Grouped By", report.Column},
			Fact{"Groups", printer.Sprint(report.Groups.Len())},
			Fact{"Anomalous Groups", printer.Sprint(len(report.BigKeys))},
			Fact{"Q1", formatNumber(report.Fences.Q1)},
			Fact{"Q3", formatNumber(report.Fences.Q3)},
			Fact{"IQR", formatNumber(report.Fences.IQR)},
			Fact{"Lower Fence", formatNumber(report.Fences.Lower)},
			Fact{"Upper Fence", formatNumber(report.Fences.Upper)},
		),
		FormatSummaryTable(p.re, report.Averages, report.Normal, report.Anomalous),
	}

	anomalous, err := report.Groups.Where(constants.IsAnomalyColumn, func(v float64) bool { return v == 1 })
	if err == nil && anomalous.Len() > 0 {
		parts = append(parts, p.keyed(anomalous))
	}

	p.print("Average Bytes by "+report.Column, parts...)
}

func (p *Printer) Impact(impact outlier.Impact) {
	p.print("Impact of Dropping Anomalous Groups", p.facts(
		Fact{"Total Records", printer.Sprint(impact.Total)},
		Fact{"Remaining Records", printer.Sprint(impact.Remaining)},
		Fact{"Dropped Records", printer.Sprint(impact.Dropped)},
		Fact{"Dropped", formatPercent(impact.DropPercent)},
	))
}

func (p *Printer) UsualBytes(report *analysis.UsualBytesReport) {
	check := p.re.NewStyle().Foreground(green).Render("ok")
	if report.BigAgentRecords != report.Impact.Dropped {
		check = p.re.NewStyle().Foreground(red).Render("mismatch")
	}
	p.print("Usual Bytes per Server",
		p.facts(
			Fact{"Servers", printer.Sprint(report.Servers.Len())},
			Fact{"Servers With Big Agents", printer.Sprint(report.ServersWithBigAgents)},
			Fact{"Big Agent Records", printer.Sprint(report.BigAgentRecords)},
			Fact{"Double Check", check},
		),
		FormatSummaryTable(p.re, report.Summary...),
		p.keyed(report.Servers),
	)
}

func (p *Printer) Interfaces(report *analysis.InterfaceReport) {
	p.print("Assigned SDN Interfaces",
		p.facts(
			Fact{"Servers", printer.Sprint(report.Servers.Len())},
			Fact{"Servers Without Interfaces", printer.Sprint(report.Unassigned)},
		),
		FormatSummaryTable(p.re, report.Summary...),
		p.keyed(report.Servers),
	)
}

func (p *Printer) PacketLoss(report *analysis.PacketLossReport) {
	exceptions := report.Exceptions
	facts := []Fact{{"Rows Out Of Range", printer.Sprint(exceptions.Rows)}}
	for i, values := range exceptions.AboveOne {
		formatted := make([]string, 0, len(values))
		for _, v := range values {
			formatted = append(formatted, formatNumber(v))
		}
		value := missing
		if len(formatted) > 0 {
			value = strings.Join(formatted, ", ")
		}
		facts = append(facts, Fact{fmt.Sprintf("SDN%d Losses Above 1", i+1), value})
	}

	parts := []fmt.Stringer{p.facts(facts...)}
	if len(exceptions.Sample) > 0 {
		parts = append(parts, FormatPeerMetricsTable(p.re, exceptions.Sample))
	}
	parts = append(parts, FormatSummaryTable(p.re, report.Summary...), p.keyed(report.Servers))

	p.print("Packet Loss", parts...)
}

func (p *Printer) Correlation(report *analysis.CorrelationReport) {
	p.print("Feature Correlation", FormatCorrelationTable(p.re, report))
}

func (p *Printer) Elbow(points []cluster.ElbowPoint) {
	p.print("Elbow", FormatElbowTable(p.re, points))
}

func (p *Printer) Clusters(report *analysis.ClusterReport) {
	p.print("Clusters",
		FormatCountsTable(p.re, report.Counts, report.Clusters),
		p.facts(
			Fact{"Grey Area", printer.Sprint(report.Grey)},
			Fact{"Grey Area Code", printer.Sprint(report.Result.Reconciliation.Sentinel)},
		),
		p.keyed(report.Labels),
	)
}

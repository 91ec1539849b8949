package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/activecm/netgauge/constants"
	"github.com/activecm/netgauge/database"
	zlog "github.com/activecm/netgauge/logger"
	"github.com/activecm/netgauge/outlier"
	"github.com/activecm/netgauge/table"
	"github.com/activecm/netgauge/util"

	"golang.org/x/sync/errgroup"
)

var ErrBigAgentMismatch = errors.New("big agent records do not match the records dropped by the impact assessment")

// AnomalyReport holds the sdn_metrics byte averages per group and which groups are outliers
type AnomalyReport struct {
	Column string `json:"column"`

	// keyed by Column, with avg and is_anomaly columns
	Groups    *table.Table   `json:"-"`
	Fences    outlier.Fences `json:"fences"`
	BigKeys   []string       `json:"big_keys"`
	Averages  ByteStats      `json:"averages"`
	Normal    ByteStats      `json:"normal"`
	Anomalous ByteStats      `json:"anomalous"`
}

// UsualBytesReport holds per server byte features computed without the big groups
type UsualBytesReport struct {
	// keyed by server id with total_sdn_reports, big_conn_reports, big_agent_proc and avg_bytes columns
	Servers              *table.Table   `json:"-"`
	Impact               outlier.Impact `json:"impact"`
	ServersWithBigAgents int            `json:"servers_with_big_agents"`
	BigAgentRecords      uint64         `json:"big_agent_records"`

	// avg_bytes, total_sdn_reports and big_agent_proc
	Summary []ByteStats `json:"summary"`
}

// GroupedByteAnomalies averages the sdn_metrics bytes per value of column and flags
// the groups whose average lies outside the Tukey fences
func (analyzer *Analyzer) GroupedByteAnomalies(ctx context.Context, column string) (*AnomalyReport, error) {
	logger := zlog.GetLogger()

	if err := database.ValidateGroupColumn(column); err != nil {
		return nil, err
	}

	averages, err := analyzer.Source.AverageBytesBy(ctx, column)
	if err != nil {
		return nil, fmt.Errorf("could not average bytes by %s: %w", column, err)
	}

	flagged, fences, err := outlier.IdentifyAnomalies(averages, constants.AvgColumn)
	if err != nil {
		return nil, fmt.Errorf("could not identify anomalous %s groups: %w", column, err)
	}

	report := &AnomalyReport{Column: column, Groups: flagged, Fences: fences}

	if report.BigKeys, err = outlier.AnomalousKeys(flagged); err != nil {
		return nil, err
	}

	normal, anomalous, err := outlier.Partition(flagged)
	if err != nil {
		return nil, err
	}

	for _, part := range []struct {
		name  string
		t     *table.Table
		stats *ByteStats
	}{
		{"all", flagged, &report.Averages},
		{"normal", normal, &report.Normal},
		{"anomalous", anomalous, &report.Anomalous},
	} {
		values, err := part.t.Column(constants.AvgColumn)
		if err != nil {
			return nil, err
		}
		if *part.stats, err = describeBytes(part.name, values); err != nil {
			return nil, err
		}
	}

	logger.Debug().
		Str("run_id", analyzer.RunID.String()).
		Str("column", column).
		Int("groups", flagged.Len()).
		Int("anomalous_groups", len(report.BigKeys)).
		Float64("upper_fence", fences.Upper).
		Msg("identified anomalous byte averages")

	analyzer.Reporter.Anomalies(report)
	return report, nil
}

// BigByteImpact reports how many sdn_metrics records would be dropped along with the
// anomalous groups in report
func (analyzer *Analyzer) BigByteImpact(ctx context.Context, report *AnomalyReport) (outlier.Impact, error) {
	counts, err := analyzer.Source.CountBy(ctx, report.Column)
	if err != nil {
		return outlier.Impact{}, fmt.Errorf("could not count records by %s: %w", report.Column, err)
	}

	impact, err := outlier.AssessImpact(counts, constants.CountColumn, report.Groups)
	if err != nil {
		return outlier.Impact{}, fmt.Errorf("could not assess impact of dropping anomalous %s groups: %w", report.Column, err)
	}

	analyzer.Reporter.Impact(impact)
	return impact, nil
}

// UsualBytes computes the byte features of every server: its usual average bytes once
// the big groups are excluded, its report counts, and the share of its reports that
// belong to big groups
func (analyzer *Analyzer) UsualBytes(ctx context.Context, column string) (*UsualBytesReport, error) {
	logger := zlog.GetLogger()

	anomalies, err := analyzer.GroupedByteAnomalies(ctx, column)
	if err != nil {
		return nil, err
	}

	var impact outlier.Impact
	var usual, reports *table.Table

	errGroup, ctx := errgroup.WithContext(ctx)
	errGroup.Go(func() error {
		var err error
		impact, err = analyzer.BigByteImpact(ctx, anomalies)
		return err
	})
	errGroup.Go(func() error {
		var err error
		usual, err = analyzer.Source.UsualServerBytes(ctx, column, anomalies.BigKeys)
		if err != nil {
			return fmt.Errorf("could not average usual server bytes: %w", err)
		}
		return nil
	})
	errGroup.Go(func() error {
		var err error
		reports, err = analyzer.Source.ServerReports(ctx, column, anomalies.BigKeys)
		if err != nil {
			return fmt.Errorf("could not count server reports: %w", err)
		}
		return nil
	})
	if err := errGroup.Wait(); err != nil {
		return nil, err
	}

	servers, err := serverByteFeatures(reports, usual)
	if err != nil {
		return nil, err
	}

	report := &UsualBytesReport{Servers: servers, Impact: impact}
	bigReports, err := servers.Column(constants.BigConnReportsColumn)
	if err != nil {
		return nil, err
	}
	var bigRecords float64
	for _, v := range bigReports {
		if v > 0 {
			report.ServersWithBigAgents++
			bigRecords += v
		}
	}
	report.BigAgentRecords = uint64(bigRecords)

	report.Summary, err = describeColumns(servers, constants.AvgBytesColumn, constants.TotalSDNReportsColumn, constants.BigAgentProcColumn)
	if err != nil {
		return nil, err
	}

	// every dropped record is attributed to exactly one server
	if report.BigAgentRecords != impact.Dropped {
		logger.Warn().
			Str("run_id", analyzer.RunID.String()).
			Uint64("big_agent_records", report.BigAgentRecords).
			Uint64("dropped_records", impact.Dropped).
			Msg(ErrBigAgentMismatch.Error())
	}

	analyzer.Reporter.UsualBytes(report)
	return report, nil
}

// serverByteFeatures joins the server report counts with the usual byte averages and
// derives big_agent_proc. A server without usual records averages 0 bytes and a server
// without reports has a big_agent_proc of 0.
func serverByteFeatures(reports, usual *table.Table) (*table.Table, error) {
	servers, err := reports.Join(usual)
	if err != nil {
		return nil, fmt.Errorf("could not join server reports with usual bytes: %w", err)
	}
	if err := servers.FillNaN(constants.AvgBytesColumn, constants.MissingAvgBytes); err != nil {
		return nil, err
	}
	for _, c := range []string{constants.TotalSDNReportsColumn, constants.BigConnReportsColumn} {
		if err := servers.FillNaN(c, 0); err != nil {
			return nil, err
		}
	}

	total, err := servers.Column(constants.TotalSDNReportsColumn)
	if err != nil {
		return nil, err
	}
	big, err := servers.Column(constants.BigConnReportsColumn)
	if err != nil {
		return nil, err
	}

	proc := make([]float64, len(total))
	for i := range total {
		proc[i], err = util.Ratio(big[i], total[i])
		if errors.Is(err, util.ErrDivisionByZero) {
			proc[i] = constants.MissingBigAgentProc
		} else if err != nil {
			return nil, err
		}
	}
	if err := servers.SetColumn(constants.BigAgentProcColumn, proc); err != nil {
		return nil, err
	}

	return servers.Select(constants.TotalSDNReportsColumn, constants.BigConnReportsColumn, constants.BigAgentProcColumn, constants.AvgBytesColumn)
}

// sumColumns adds the given columns row by row, treating missing values as 0
func sumColumns(t *table.Table, columns ...string) ([]float64, error) {
	sums := make([]float64, t.Len())
	for _, c := range columns {
		values, err := t.Column(c)
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			if !math.IsNaN(v) {
				sums[i] += v
			}
		}
	}
	return sums, nil
}

package viewer_test

import (
	"bytes"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/activecm/netgauge/analysis"
	"github.com/activecm/netgauge/cluster"
	"github.com/activecm/netgauge/constants"
	"github.com/activecm/netgauge/database"
	"github.com/activecm/netgauge/outlier"
	"github.com/activecm/netgauge/table"
	"github.com/activecm/netgauge/viewer"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func serverTable(t *testing.T) *table.Table {
	t.Helper()
	servers := table.New(constants.ServerIDColumn, constants.AvgBytesColumn, constants.SDN1PacketLossColumn)
	require.NoError(t, servers.Append("1", 3, 0.25))
	require.NoError(t, servers.Append("2", 1500, math.NaN()))
	require.NoError(t, servers.Append("pair,with,commas", 0, 1))
	return servers
}

func TestFormatToCSV(t *testing.T) {
	csv, err := viewer.FormatToCSV(serverTable(t))
	require.NoError(t, err)

	expected := "server_id,avg_bytes,sdn1_pl_avg\n" +
		"1,3,0.25\n" +
		"2,1500,\n" +
		"\"pair,with,commas\",0,1\n"
	require.Equal(t, expected, csv, "missing values should be empty and keys with commas quoted")

	empty, err := viewer.FormatToCSV(table.New(constants.ServerIDColumn, constants.AvgBytesColumn))
	require.NoError(t, err)
	require.Equal(t, "server_id,avg_bytes\n", empty, "an empty table should still have a header")
}

func TestFormatToJSON(t *testing.T) {
	out, err := viewer.FormatToJSON(serverTable(t))
	require.NoError(t, err)

	require.JSONEq(t, `[
		{"server_id": "1", "avg_bytes": 3, "sdn1_pl_avg": 0.25},
		{"server_id": "2", "avg_bytes": 1500, "sdn1_pl_avg": null},
		{"server_id": "pair,with,commas", "avg_bytes": 0, "sdn1_pl_avg": 1}
	]`, out)

	// columns keep their table order
	require.Less(t, strings.Index(out, "avg_bytes"), strings.Index(out, "sdn1_pl_avg"))

	empty, err := viewer.FormatToJSON(table.New(constants.ServerIDColumn))
	require.NoError(t, err)
	require.JSONEq(t, `[]`, empty)
}

func TestFormatKeyedTable(t *testing.T) {
	re := lipgloss.NewRenderer(&bytes.Buffer{})

	long := table.New(constants.AgentsPairColumn, constants.AvgColumn)
	require.NoError(t, long.Append(strings.Repeat("x", 40), 1234567))
	require.NoError(t, long.Append("short", 1.5))

	rendered, err := viewer.FormatKeyedTable(re, long, 0)
	require.NoError(t, err)
	out := rendered.String()
	require.Contains(t, out, "agents_pair")
	require.Contains(t, out, "…", "long keys should be truncated")
	require.NotContains(t, out, strings.Repeat("x", 40))
	require.Contains(t, out, "1,234,567", "whole numbers should be grouped")
	require.Contains(t, out, "1.50")

	limited, err := viewer.FormatKeyedTable(re, long, 1)
	require.NoError(t, err)
	require.NotContains(t, limited.String(), "short")
}

func TestFormatCorrelationTable(t *testing.T) {
	re := lipgloss.NewRenderer(&bytes.Buffer{})
	report := &analysis.CorrelationReport{
		Columns: []string{constants.AvgBytesColumn, constants.TotalSDNReportsColumn},
		Matrix:  mat.NewSymDense(2, []float64{1, -0.75, -0.75, 1}),
	}

	out := viewer.FormatCorrelationTable(re, report).String()
	require.Contains(t, out, constants.AvgBytesColumn)
	require.Contains(t, out, constants.TotalSDNReportsColumn)
	require.Contains(t, out, "-0.75")
}

func TestClusterName(t *testing.T) {
	tests := []struct {
		cluster  int
		clusters int
		expected string
	}{
		{cluster: 0, clusters: 2, expected: "0 (good)"},
		{cluster: 1, clusters: 2, expected: "1 (bad)"},
		{cluster: 3, clusters: 2, expected: "3 (bad)"},
		{cluster: 0, clusters: 3, expected: "0"},
		{cluster: 2, clusters: 3, expected: "2"},
	}
	for _, test := range tests {
		require.Equal(t, test.expected, viewer.ClusterName(test.cluster, test.clusters))
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := viewer.NewPrinter(&buf)
	p.MaxRows = 2

	servers := serverTable(t)
	groups := table.New(constants.AgentsPairColumn, constants.AvgColumn, constants.IsAnomalyColumn)
	require.NoError(t, groups.Append("a", 1, 0))
	require.NoError(t, groups.Append("big", 100, 1))

	reconciliation, err := cluster.Reconcile(
		cluster.Labels{{Key: "1", Cluster: 0}, {Key: "2", Cluster: 1}},
		cluster.Labels{{Key: "1", Cluster: 0}, {Key: "2", Cluster: 0}},
	)
	require.NoError(t, err)
	labels, err := reconciliation.Table(constants.ServerIDColumn)
	require.NoError(t, err)

	summary := func(column string) []analysis.ByteStats {
		return []analysis.ByteStats{{Summary: table.Summary{Column: column, Count: 3, Mean: 1}, Skew: -0.5}}
	}

	exceptions := &database.PacketLossReport{}
	exceptions.Add(database.PeerMetric{SDN1Path: "1", SDN2PacketLoss: 12})

	// sections are written from several goroutines at once during an analysis
	var wg sync.WaitGroup
	for _, report := range []func(){
		func() { p.Duplicates([]database.RowCounts{{Table: "sdn_metrics", Total: 1000, Unique: 990}}) },
		func() { p.RawBytes(analysis.ByteStats{Summary: table.Summary{Column: "bytes", Count: 3}}) },
		func() {
			p.Anomalies(&analysis.AnomalyReport{Column: constants.AgentsPairColumn, Groups: groups, BigKeys: []string{"big"}})
		},
		func() { p.Impact(outlier.Impact{Total: 1000, Remaining: 900, Dropped: 100, DropPercent: 10}) },
		func() {
			p.UsualBytes(&analysis.UsualBytesReport{Servers: servers, BigAgentRecords: 5, Summary: summary(constants.BigAgentProcColumn)})
		},
		func() {
			p.Interfaces(&analysis.InterfaceReport{Servers: servers, Unassigned: 1, Summary: summary(constants.TotalSDNIntfCountColumn)})
		},
		func() {
			p.PacketLoss(&analysis.PacketLossReport{Exceptions: exceptions, Servers: servers, Summary: summary(constants.AllPacketLossColumn)})
		},
		func() { p.Elbow([]cluster.ElbowPoint{{Clusters: 1, Inertia: 4}}) },
		func() {
			p.Clusters(&analysis.ClusterReport{
				Result:   &cluster.Result{Reconciliation: reconciliation},
				Labels:   labels,
				Clusters: 2,
				Counts:   reconciliation.Counts(),
				Grey:     reconciliation.Grey(),
			})
		},
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report()
		}()
	}
	wg.Wait()

	out := buf.String()
	for _, expected := range []string{
		"Duplicate Rows", "SDN Bytes", "Average Bytes by agents_pair", "Impact of Dropping Anomalous Groups",
		"Usual Bytes per Server", "Assigned SDN Interfaces", "Packet Loss", "Elbow", "Clusters",
		constants.BigAgentProcColumn, constants.TotalSDNIntfCountColumn, constants.AllPacketLossColumn,
		"10.00%", "mismatch", "… 1 more rows", "0 (good)", "Grey Area",
	} {
		require.Contains(t, out, expected)
	}
}

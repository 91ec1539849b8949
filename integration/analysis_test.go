package integration_test

import (
	"context"

	"github.com/activecm/netgauge/cluster"
	"github.com/activecm/netgauge/constants"
	"github.com/activecm/netgauge/database"
	"github.com/activecm/netgauge/table"

	"github.com/stretchr/testify/require"
)

// requireColumn checks every value of column in key order
func requireColumn(it *SourceTestSuite, t *table.Table, column string, expected []float64) {
	it.T().Helper()
	values, err := t.Column(column)
	require.NoError(it.T(), err, "column %s should exist", column)
	require.InDeltaSlice(it.T(), expected, values, 1e-9, "column %s", column)
}

func (it *SourceTestSuite) TestDuplicateCheck() {
	t := it.T()

	counts, err := it.analyzer.DuplicateCheck(context.Background())
	require.NoError(t, err)
	require.Equal(t, []database.RowCounts{
		{Table: constants.PeerMetricsTable, Total: 3, Unique: 2},
		{Table: constants.SDNMetricsTable, Total: 10, Unique: 10},
		{Table: constants.ServersTable, Total: 3, Unique: 3},
	}, counts)
}

func (it *SourceTestSuite) TestRawBytes() {
	t := it.T()

	stats, err := it.analyzer.RawBytes(context.Background())
	require.NoError(t, err)
	require.Equal(t, 10, stats.Count)
	require.InDelta(t, 51.5, stats.Mean, 1e-9)
	require.InDelta(t, 1, stats.Min, 1e-9)
	require.InDelta(t, 100, stats.Max, 1e-9)
}

func (it *SourceTestSuite) TestGroupedByteAnomalies() {
	tests := []struct {
		name    string
		column  string
		groups  int
		bigKeys []string
	}{
		{name: "Agents Pair", column: constants.AgentsPairColumn, groups: 6, bigKeys: []string{"f"}},
		// half of the connections send 100 bytes, which moves the upper quartile onto them
		{name: "Connection", column: constants.ConnectionIDColumn, groups: 10},
		// the third server has no records
		{name: "Server", column: constants.ServerIDColumn, groups: 2},
	}

	for _, test := range tests {
		it.Run(test.name, func() {
			t := it.T()

			report, err := it.analyzer.GroupedByteAnomalies(context.Background(), test.column)
			require.NoError(t, err)
			require.Equal(t, test.column, report.Column)
			require.Equal(t, test.groups, report.Groups.Len())
			if test.bigKeys == nil {
				require.Empty(t, report.BigKeys)
				return
			}
			require.Equal(t, test.bigKeys, report.BigKeys)
		})
	}

	it.Run("Fences", func() {
		t := it.T()

		report, err := it.analyzer.GroupedByteAnomalies(context.Background(), constants.AgentsPairColumn)
		require.NoError(t, err)
		require.InDelta(t, 2.25, report.Fences.Q1, 1e-9)
		require.InDelta(t, 4.75, report.Fences.Q3, 1e-9)
		require.InDelta(t, -1.5, report.Fences.Lower, 1e-9)
		require.InDelta(t, 8.5, report.Fences.Upper, 1e-9)
		require.Equal(t, 5, report.Normal.Count)
		require.Equal(t, 1, report.Anomalous.Count)
	})
}

func (it *SourceTestSuite) TestUsualBytes() {
	t := it.T()

	report, err := it.analyzer.UsualBytes(context.Background(), constants.AgentsPairColumn)
	require.NoError(t, err)

	require.EqualValues(t, 10, report.Impact.Total)
	require.EqualValues(t, 5, report.Impact.Dropped)
	require.EqualValues(t, 5, report.Impact.Remaining)
	require.InDelta(t, 50, report.Impact.DropPercent, 1e-9)

	// every dropped record belongs to a server
	require.Equal(t, 2, report.ServersWithBigAgents)
	require.EqualValues(t, report.Impact.Dropped, report.BigAgentRecords)

	require.Equal(t, []string{"1", "2", "3"}, report.Servers.Keys())
	requireColumn(it, report.Servers, constants.TotalSDNReportsColumn, []float64{4, 6, 0})
	requireColumn(it, report.Servers, constants.BigConnReportsColumn, []float64{2, 3, 0})
	requireColumn(it, report.Servers, constants.BigAgentProcColumn, []float64{0.5, 0.5, 0})
	requireColumn(it, report.Servers, constants.AvgBytesColumn, []float64{1.5, 4, 0})
}

func (it *SourceTestSuite) TestInterfaces() {
	t := it.T()

	report, err := it.analyzer.Interfaces(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{"1", "2", "3"}, report.Servers.Keys())
	requireColumn(it, report.Servers, constants.SDN1IntfCountColumn, []float64{2, 1, 0})
	requireColumn(it, report.Servers, constants.SDN2IntfCountColumn, []float64{1, 2, 0})
	requireColumn(it, report.Servers, constants.SDN3IntfCountColumn, []float64{2, 1, 0})
	requireColumn(it, report.Servers, constants.TotalSDNIntfCountColumn, []float64{5, 4, 0})
	require.Equal(t, 1, report.Unassigned)
}

func (it *SourceTestSuite) TestPacketLoss() {
	t := it.T()

	report, err := it.analyzer.PacketLoss(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, report.Exceptions.Rows)
	require.Len(t, report.Exceptions.Sample, 1)
	require.Equal(t, "2", report.Exceptions.Sample[0].SDN1Path)
	require.Equal(t, []float64{7}, report.Exceptions.AboveOne[1])
	require.Empty(t, report.Exceptions.AboveOne[0])

	// out of range losses are left out of the averages, missing averages read as full loss
	requireColumn(it, report.Servers, constants.SDN1PacketLossColumn, []float64{0.1, 0.5, 1})
	requireColumn(it, report.Servers, constants.SDN2PacketLossColumn, []float64{1, 0.2, 1})
	requireColumn(it, report.Servers, constants.SDN3PacketLossColumn, []float64{0.3, 0.4, 1})
	requireColumn(it, report.Servers, constants.AllPacketLossColumn, []float64{0.2, 1.1 / 3, 1})
}

func (it *SourceTestSuite) TestCorrelation() {
	t := it.T()

	report, err := it.analyzer.Correlation(context.Background(), constants.AgentsPairColumn)
	require.NoError(t, err)
	require.Equal(t, it.cfg.Clustering.Features, report.Columns)

	var found bool
	for _, pair := range report.Strong {
		if pair.A == constants.TotalSDNReportsColumn && pair.B == constants.BigConnReportsColumn {
			found = true
			require.InDelta(t, 1, pair.Correlation, 1e-9)
		}
	}
	require.True(t, found, "the report counts should be strongly correlated")
}

func (it *SourceTestSuite) TestElbow() {
	t := it.T()

	var steps []cluster.ElbowPoint
	points, err := it.analyzer.Elbow(context.Background(), constants.AgentsPairColumn, func(p cluster.ElbowPoint) {
		steps = append(steps, p)
	})
	require.NoError(t, err)
	require.Len(t, points, 3)
	require.Equal(t, points, steps)
	for i, p := range points {
		require.Equal(t, i+1, p.Clusters)
	}
	require.InDelta(t, 0, points[2].Inertia, 1e-9, "one cluster per server leaves no inertia")
}

func (it *SourceTestSuite) TestCluster() {
	t := it.T()

	report, err := it.analyzer.Cluster(context.Background(), constants.AgentsPairColumn)
	require.NoError(t, err)
	require.Equal(t, 3, report.Labels.Len())
	require.Equal(t, []string{"1", "2", "3"}, report.Features.Keys())

	var knn, pca int
	for _, c := range report.Counts {
		knn += c.KNN
		pca += c.PCA
	}
	require.Equal(t, 3, knn)
	require.Equal(t, 3, pca)

	// the clustering is seeded, so a second run labels the servers the same way
	again, err := it.analyzer.Cluster(context.Background(), constants.AgentsPairColumn)
	require.NoError(t, err)
	require.Equal(t, report.Result.Reconciliation, again.Result.Reconciliation)
}

package analysis

import (
	"github.com/activecm/netgauge/cluster"
	"github.com/activecm/netgauge/database"
	"github.com/activecm/netgauge/outlier"
)

// Reporter receives the results of each analysis step as soon as they are available.
// Steps run concurrently, so implementations must be safe for concurrent use.
type Reporter interface {
	Duplicates(counts []database.RowCounts)
	RawBytes(stats ByteStats)
	Anomalies(report *AnomalyReport)
	Impact(impact outlier.Impact)
	UsualBytes(report *UsualBytesReport)
	Interfaces(report *InterfaceReport)
	PacketLoss(report *PacketLossReport)
	Correlation(report *CorrelationReport)
	Elbow(points []cluster.ElbowPoint)
	Clusters(report *ClusterReport)
}

// NopReporter discards every result
type NopReporter struct{}

func (NopReporter) Duplicates([]database.RowCounts) {}
func (NopReporter) RawBytes(ByteStats) {}
func (NopReporter) Anomalies(*AnomalyReport) {}
func (NopReporter) Impact(outlier.Impact) {}
func (NopReporter) UsualBytes(*UsualBytesReport) {}
func (NopReporter) Interfaces(*InterfaceReport) {}
func (NopReporter) PacketLoss(*PacketLossReport) {}
func (NopReporter) Correlation(*CorrelationReport) {}
func (NopReporter) Elbow([]cluster.ElbowPoint) {}
func (NopReporter) Clusters(*ClusterReport) {}

package constants

// column and table names are in their own constants package to avoid import cycles across the different packages that need them

// telemetry tables
const ServersTable = "servers"
const SDNMetricsTable = "sdn_metrics"
const PeerMetricsTable = "peer_metrics"

// grouping keys
const ServerIDColumn = "server_id"
const AgentsPairColumn = "agents_pair"
const ConnectionIDColumn = "connection_id"

// grouped aggregates
const AvgColumn = "avg"
const CountColumn = "count"
const IsAnomalyColumn = "is_anomaly"

// server features
const AvgBytesColumn = "avg_bytes"
const TotalSDNReportsColumn = "total_sdn_reports"
const BigConnReportsColumn = "big_conn_reports"
const BigAgentProcColumn = "big_agent_proc"
const SDN1IntfCountColumn = "sdn1_intf_c"
const SDN2IntfCountColumn = "sdn2_intf_c"
const SDN3IntfCountColumn = "sdn3_intf_c"
const TotalSDNIntfCountColumn = "total_sdn_int_count"
const SDN1PacketLossColumn = "sdn1_pl_avg"
const SDN2PacketLossColumn = "sdn2_pl_avg"
const SDN3PacketLossColumn = "sdn3_pl_avg"
const AllPacketLossColumn = "all_packet_loss_avg"

// cluster labels
const KNNClusterColumn = "knn_cluster"
const PCAClusterColumn = "pca_cluster"
const GlobalClusterColumn = "global_cluster"

// domain defaults for missing aggregates
const MissingAvgBytes = 0
const MissingPacketLoss = 1
const MissingBigAgentProc = 0

// GroupColumns are the sdn_metrics columns byte averages may be grouped by
var GroupColumns = []string{AgentsPairColumn, ServerIDColumn, ConnectionIDColumn}

// FeatureColumns are the server feature columns available for clustering
var FeatureColumns = []string{
	TotalSDNReportsColumn,
	BigConnReportsColumn,
	BigAgentProcColumn,
	AvgBytesColumn,
	SDN1IntfCountColumn,
	SDN2IntfCountColumn,
	SDN3IntfCountColumn,
	TotalSDNIntfCountColumn,
	SDN1PacketLossColumn,
	SDN2PacketLossColumn,
	SDN3PacketLossColumn,
	AllPacketLossColumn,
}

package analysis

import (
	"context"
	"fmt"

	"github.com/activecm/netgauge/cluster"
	zlog "github.com/activecm/netgauge/logger"
	"github.com/activecm/netgauge/table"

	"gonum.org/v1/gonum/mat"
)

// CorrelationThreshold is the absolute correlation above which two features are reported as related
const CorrelationThreshold = 0.6

// CorrelationReport holds the Pearson correlation between every pair of clustering features
type CorrelationReport struct {
	Columns []string      `json:"columns"`
	Matrix  *mat.SymDense `json:"-"`
	Strong  []FeaturePair `json:"strong"`
}

// FeaturePair is a pair of strongly correlated features
type FeaturePair struct {
	A           string  `json:"a"`
	B           string  `json:"b"`
	Correlation float64 `json:"correlation"`
}

// ClusterReport holds the server features, both clusterings and their reconciliation
type ClusterReport struct {
	Features *table.Table    `json:"-"`
	Result   *cluster.Result `json:"-"`

	// keyed by server id with knn_cluster, pca_cluster and global_cluster columns
	Labels   *table.Table    `json:"-"`
	Clusters int             `json:"clusters"`
	Counts   []cluster.Count `json:"counts"`
	Grey     int             `json:"grey_area"`
}

// Correlation measures the correlation between the configured clustering features
func (analyzer *Analyzer) Correlation(ctx context.Context, column string) (*CorrelationReport, error) {
	features, err := analyzer.ServerFeatures(ctx, column)
	if err != nil {
		return nil, err
	}

	columns := analyzer.Config.Clustering.Features
	corr, err := table.Correlation(features, columns...)
	if err != nil {
		return nil, fmt.Errorf("could not correlate server features: %w", err)
	}

	report := &CorrelationReport{Columns: columns, Matrix: corr}
	for i := range columns {
		for j := i + 1; j < len(columns); j++ {
			r := corr.At(i, j)
			if r > CorrelationThreshold || r < -CorrelationThreshold {
				report.Strong = append(report.Strong, FeaturePair{A: columns[i], B: columns[j], Correlation: r})
			}
		}
	}

	analyzer.Reporter.Correlation(report)
	return report, nil
}

// Elbow measures the KMeans inertia of the scaled server features for every cluster
// count up to the configured maximum. step is called after each count, and may be nil.
func (analyzer *Analyzer) Elbow(ctx context.Context, column string, step func(cluster.ElbowPoint)) ([]cluster.ElbowPoint, error) {
	features, err := analyzer.ServerFeatures(ctx, column)
	if err != nil {
		return nil, err
	}
	return analyzer.FeatureElbow(features, step)
}

// FeatureElbow measures the elbow of features already collected by ServerFeatures
func (analyzer *Analyzer) FeatureElbow(features *table.Table, step func(cluster.ElbowPoint)) ([]cluster.ElbowPoint, error) {
	data, err := features.Matrix(analyzer.Config.Clustering.Features...)
	if err != nil {
		return nil, fmt.Errorf("could not build feature matrix: %w", err)
	}

	points, err := cluster.Elbow(data, analyzer.Config.Clustering.MaxElbowClusters, analyzer.clusterOptions().Options, step)
	if err != nil {
		return nil, fmt.Errorf("could not compute elbow inertia: %w", err)
	}

	analyzer.Reporter.Elbow(points)
	return points, nil
}

// Cluster partitions the servers with both clustering methods and reconciles the labels
func (analyzer *Analyzer) Cluster(ctx context.Context, column string) (*ClusterReport, error) {
	features, err := analyzer.ServerFeatures(ctx, column)
	if err != nil {
		return nil, err
	}
	return analyzer.ClusterFeatures(features)
}

// ClusterFeatures clusters features already collected by ServerFeatures
func (analyzer *Analyzer) ClusterFeatures(features *table.Table) (*ClusterReport, error) {
	logger := zlog.GetLogger()

	data, err := features.Matrix(analyzer.Config.Clustering.Features...)
	if err != nil {
		return nil, fmt.Errorf("could not build feature matrix: %w", err)
	}

	result, err := cluster.Run(features.Keys(), data, analyzer.clusterOptions())
	if err != nil {
		return nil, fmt.Errorf("could not cluster servers: %w", err)
	}

	labels, err := result.Reconciliation.Table(features.KeyName())
	if err != nil {
		return nil, err
	}

	report := &ClusterReport{
		Features: features,
		Result:   result,
		Labels:   labels,
		Clusters: analyzer.Config.Clustering.Clusters,
		Counts:   result.Reconciliation.Counts(),
		Grey:     result.Reconciliation.Grey(),
	}

	logger.Info().
		Str("run_id", analyzer.RunID.String()).
		Int("servers", features.Len()).
		Int("clusters", analyzer.Config.Clustering.Clusters).
		Int("grey_area", report.Grey).
		Msg("clustered servers")

	analyzer.Reporter.Clusters(report)
	return report, nil
}

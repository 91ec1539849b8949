package cmd

import (
	"context"
	"strconv"

	"github.com/activecm/netgauge/analysis"
	"github.com/activecm/netgauge/cluster"
	"github.com/activecm/netgauge/database"
	"github.com/activecm/netgauge/progressbar"
	"github.com/activecm/netgauge/table"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

// analysisCommand builds a command that parses the analysis flags and hands them to run
func analysisCommand(name, usage, description string, clusters bool, run func(afs afero.Fs, opts Options) error) *cli.Command {
	return &cli.Command{
		Name:        name,
		Usage:       usage,
		UsageText:   name + " [--config FILE] [options]",
		Description: description,
		Args:        false,
		Flags:       analysisFlags(clusters),
		Action: func(cCtx *cli.Context) error {
			opts, err := ParseOptions(cCtx)
			if err != nil {
				return err
			}

			// set up file system interface
			afs := afero.NewOsFs()

			return run(afs, opts)
		},
	}
}

var DuplicatesCommand = analysisCommand("duplicates", "count duplicate rows",
	"compares the total and distinct number of rows of every table in the database", false, RunDuplicatesCommand)

var BytesCommand = analysisCommand("bytes", "find groups with anomalous byte averages",
	"describes the sdn_metrics bytes, flags the groups whose average bytes lie outside the Tukey fences and reports how many records they hold", false, RunBytesCommand)

var ServersCommand = analysisCommand("servers", "compute the usual bytes of every server",
	"averages the bytes of every server without the anomalous groups and measures how many of its reports belong to them", false, RunServersCommand)

var InterfacesCommand = analysisCommand("interfaces", "count the SDN interfaces assigned to every server",
	"counts the peer_metrics paths routed through every server, per SDN", false, RunInterfacesCommand)

var PacketLossCommand = analysisCommand("packet-loss", "average the packet loss of every server",
	"reports packet losses outside [0, 1] and averages the in range packet loss of every server", false, RunPacketLossCommand)

var CorrelateCommand = analysisCommand("correlate", "correlate the server features",
	"computes the Pearson correlation between every pair of clustering features", false, RunCorrelateCommand)

var ElbowCommand = analysisCommand("elbow", "measure the KMeans inertia per cluster count",
	"fits KMeans on the scaled server features for every cluster count up to the configured maximum to help choose the number of clusters", true, RunElbowCommand)

var ClusterCommand = withFlags(analysisCommand("cluster", "cluster the servers",
	"clusters the servers with KMeans on min-max scaled features and on principal components, and reports where the two agree", true, RunClusterCommand),
	PickFlag())

func withFlags(command *cli.Command, flags ...cli.Flag) *cli.Command {
	command.Flags = append(command.Flags, flags...)
	return command
}

func RunDuplicatesCommand(afs afero.Fs, opts Options) error {
	return runAnalysis(afs, opts, func(ctx context.Context, analyzer *analysis.Analyzer) error {
		var counts []database.RowCounts
		err := opts.spin(ctx, "Counting duplicate rows...", func(ctx context.Context) error {
			var err error
			counts, err = analyzer.DuplicateCheck(ctx)
			return err
		})
		if err != nil {
			return err
		}

		t := table.New("table", "total_rows", "unique_rows", "duplicate_rows")
		for _, c := range counts {
			if err := t.Append(c.Table, float64(c.Total), float64(c.Unique), float64(c.Duplicates())); err != nil {
				return err
			}
		}
		return opts.writeTable(t)
	})
}

func RunBytesCommand(afs afero.Fs, opts Options) error {
	return runAnalysis(afs, opts, func(ctx context.Context, analyzer *analysis.Analyzer) error {
		var report *analysis.AnomalyReport
		err := opts.spin(ctx, "Looking for anomalous byte averages...", func(ctx context.Context) error {
			if _, err := analyzer.RawBytes(ctx); err != nil {
				return err
			}
			var err error
			report, err = analyzer.GroupedByteAnomalies(ctx, analyzer.Config.Anomaly.GroupBy)
			if err != nil {
				return err
			}
			_, err = analyzer.BigByteImpact(ctx, report)
			return err
		})
		if err != nil {
			return err
		}
		return opts.writeTable(report.Groups)
	})
}

func RunServersCommand(afs afero.Fs, opts Options) error {
	return runAnalysis(afs, opts, func(ctx context.Context, analyzer *analysis.Analyzer) error {
		var report *analysis.UsualBytesReport
		err := opts.spin(ctx, "Computing usual server bytes...", func(ctx context.Context) error {
			var err error
			report, err = analyzer.UsualBytes(ctx, analyzer.Config.Anomaly.GroupBy)
			return err
		})
		if err != nil {
			return err
		}
		return opts.writeTable(report.Servers)
	})
}

func RunInterfacesCommand(afs afero.Fs, opts Options) error {
	return runAnalysis(afs, opts, func(ctx context.Context, analyzer *analysis.Analyzer) error {
		var report *analysis.InterfaceReport
		err := opts.spin(ctx, "Counting assigned interfaces...", func(ctx context.Context) error {
			var err error
			report, err = analyzer.Interfaces(ctx)
			return err
		})
		if err != nil {
			return err
		}
		return opts.writeTable(report.Servers)
	})
}

func RunPacketLossCommand(afs afero.Fs, opts Options) error {
	return runAnalysis(afs, opts, func(ctx context.Context, analyzer *analysis.Analyzer) error {
		var report *analysis.PacketLossReport
		err := opts.spin(ctx, "Averaging packet loss...", func(ctx context.Context) error {
			var err error
			report, err = analyzer.PacketLoss(ctx)
			return err
		})
		if err != nil {
			return err
		}
		return opts.writeTable(report.Servers)
	})
}

func RunCorrelateCommand(afs afero.Fs, opts Options) error {
	return runAnalysis(afs, opts, func(ctx context.Context, analyzer *analysis.Analyzer) error {
		var report *analysis.CorrelationReport
		err := opts.spin(ctx, "Correlating server features...", func(ctx context.Context) error {
			var err error
			report, err = analyzer.Correlation(ctx, analyzer.Config.Anomaly.GroupBy)
			return err
		})
		if err != nil {
			return err
		}

		t := table.New("feature", report.Columns...)
		row := make([]float64, len(report.Columns))
		for i, c := range report.Columns {
			for j := range report.Columns {
				row[j] = report.Matrix.At(i, j)
			}
			if err := t.Append(c, row...); err != nil {
				return err
			}
		}
		return opts.writeTable(t)
	})
}

func RunElbowCommand(afs afero.Fs, opts Options) error {
	return runAnalysis(afs, opts, func(ctx context.Context, analyzer *analysis.Analyzer) error {
		var step func(cluster.ElbowPoint)
		if opts.Format != FormatTable && opts.Progress != nil {
			bar := progressbar.NewElbowBar(opts.Progress, analyzer.Config.Clustering.MaxElbowClusters)
			defer bar.Done()
			step = bar.Step
		}

		points, err := analyzer.Elbow(ctx, analyzer.Config.Anomaly.GroupBy, step)
		if err != nil {
			return err
		}

		t := table.New("clusters", "inertia")
		for _, p := range points {
			if err := t.Append(strconv.Itoa(p.Clusters), p.Inertia); err != nil {
				return err
			}
		}
		return opts.writeTable(t)
	})
}

func RunClusterCommand(afs afero.Fs, opts Options) error {
	return runAnalysis(afs, opts, func(ctx context.Context, analyzer *analysis.Analyzer) error {
		var report *analysis.ClusterReport
		if opts.Pick {
			var err error
			report, err = pickAndCluster(ctx, analyzer)
			if err != nil {
				return err
			}
		} else {
			err := opts.spin(ctx, "Clustering servers...", func(ctx context.Context) error {
				var err error
				report, err = analyzer.Cluster(ctx, analyzer.Config.Anomaly.GroupBy)
				return err
			})
			if err != nil {
				return err
			}
		}

		labelled, err := report.Features.Join(report.Labels)
		if err != nil {
			return err
		}
		return opts.writeTable(labelled)
	})
}

// pickAndCluster reports the elbow of the server features, asks for the cluster count and
// clusters the same features with it
func pickAndCluster(ctx context.Context, analyzer *analysis.Analyzer) (*analysis.ClusterReport, error) {
	features, err := analyzer.ServerFeatures(ctx, analyzer.Config.Anomaly.GroupBy)
	if err != nil {
		return nil, err
	}

	points, err := analyzer.FeatureElbow(features, nil)
	if err != nil {
		return nil, err
	}

	clusters, err := promptClusters(analyzer.Config.Clustering.Clusters, len(points))
	if err != nil {
		return nil, err
	}
	analyzer.Config.Clustering.Clusters = clusters

	return analyzer.ClusterFeatures(features)
}

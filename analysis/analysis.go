package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/activecm/netgauge/cluster"
	"github.com/activecm/netgauge/config"
	"github.com/activecm/netgauge/database"
	zlog "github.com/activecm/netgauge/logger"
	"github.com/activecm/netgauge/table"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var ErrInvalidSource = errors.New("analyzer requires a telemetry source")
var ErrInvalidConfig = errors.New("analyzer requires a config")

// maximum number of row count queries in flight during the duplicate check
const duplicateCheckWorkers = 4

type Analyzer struct {
	Source   database.Source
	Config   *config.Config
	Reporter Reporter
	RunID    uuid.UUID

	limiter *rate.Limiter
}

// ByteStats describes a set of values, usually bytes, with their skew
type ByteStats struct {
	table.Summary
	Skew float64 `json:"skew"`
}

// NewAnalyzer returns a new Analyzer reading from src. A nil reporter discards the
// intermediate results.
func NewAnalyzer(src database.Source, cfg *config.Config, reporter Reporter) (*Analyzer, error) {
	if src == nil {
		return nil, ErrInvalidSource
	}
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if reporter == nil {
		reporter = NopReporter{}
	}

	// create a rate limiter to control the rate of row count queries
	limiter := rate.NewLimiter(rate.Limit(cfg.DuplicateChecksPerSec), 1)

	return &Analyzer{
		Source:   src,
		Config:   cfg,
		Reporter: reporter,
		RunID:    uuid.New(),
		limiter:  limiter,
	}, nil
}

// DuplicateCheck compares the total and distinct row counts of every table in the database
func (analyzer *Analyzer) DuplicateCheck(ctx context.Context) ([]database.RowCounts, error) {
	logger := zlog.GetLogger()
	start := time.Now()

	tables, err := analyzer.Source.TableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list tables: %w", err)
	}

	counts := make([]database.RowCounts, len(tables))

	errGroup, ctx := errgroup.WithContext(ctx)
	errGroup.SetLimit(duplicateCheckWorkers)
	for i, name := range tables {
		errGroup.Go(func() error {
			// counting distinct rows scans the whole table, so pace the queries
			if err := analyzer.limiter.Wait(ctx); err != nil {
				return err
			}
			c, err := analyzer.Source.RowCounts(ctx, name)
			if err != nil {
				return fmt.Errorf("could not count rows of %s: %w", name, err)
			}
			counts[i] = c
			return nil
		})
	}
	if err := errGroup.Wait(); err != nil {
		return nil, err
	}

	logger.Debug().Str("run_id", analyzer.RunID.String()).Int("tables", len(counts)).Str("elapsed_time", time.Since(start).String()).Msg("finished duplicate check")
	analyzer.Reporter.Duplicates(counts)
	return counts, nil
}

// RawBytes describes every sdn_metrics byte value
func (analyzer *Analyzer) RawBytes(ctx context.Context) (ByteStats, error) {
	values, err := analyzer.Source.SDNBytes(ctx)
	if err != nil {
		return ByteStats{}, fmt.Errorf("could not read sdn bytes: %w", err)
	}

	stats, err := describeBytes("bytes", values)
	if err != nil {
		return ByteStats{}, err
	}

	analyzer.Reporter.RawBytes(stats)
	return stats, nil
}

// describeBytes summarizes values and measures their skew. An empty set of values
// has a NaN skew.
func describeBytes(name string, values []float64) (ByteStats, error) {
	summary, err := table.Summarize(name, values)
	if err != nil {
		return ByteStats{}, fmt.Errorf("could not describe %s: %w", name, err)
	}
	stats := ByteStats{Summary: summary, Skew: math.NaN()}
	if summary.Count == 0 {
		return stats, nil
	}
	stats.Skew, err = table.Skew(values)
	if err != nil {
		return ByteStats{}, fmt.Errorf("could not measure skew of %s: %w", name, err)
	}
	return stats, nil
}

// describeColumns describes each of the given columns of t along with its skew
func describeColumns(t *table.Table, columns ...string) ([]ByteStats, error) {
	stats := make([]ByteStats, 0, len(columns))
	for _, c := range columns {
		values, err := t.Column(c)
		if err != nil {
			return nil, err
		}
		described, err := describeBytes(c, values)
		if err != nil {
			return nil, err
		}
		stats = append(stats, described)
	}
	return stats, nil
}

func (analyzer *Analyzer) clusterOptions() cluster.RunOptions {
	c := analyzer.Config.Clustering
	return cluster.RunOptions{
		Options: cluster.Options{
			Clusters:      c.Clusters,
			Seed:          c.Seed,
			Inits:         c.Inits,
			MaxIterations: c.MaxIterations,
			Tolerance:     c.Tolerance,
		},
		Components:  c.PCAComponents,
		AlignLabels: c.AlignLabels,
	}
}

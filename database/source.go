package database

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/activecm/netgauge/config"
	"github.com/activecm/netgauge/constants"
	"github.com/activecm/netgauge/table"
)

var ErrInvalidDatabaseConnection = errors.New("database connection is nil")
var ErrInvalidGroupColumn = fmt.Errorf("column must be one of %s", strings.Join(constants.GroupColumns, ", "))

// PacketLossSampleSize is the number of out of range peer_metrics rows kept for display
const PacketLossSampleSize = 10

// Source is a database holding SDN telemetry.
// Server keyed tables are keyed by constants.ServerIDColumn and hold one row per row of the
// servers table. Missing aggregates are NaN.
type Source interface {
	// Name returns the name of the connected database
	Name() string
	// TableNames lists the tables of the connected database
	TableNames(ctx context.Context) ([]string, error)
	// RowCounts counts all rows and distinct rows of a table
	RowCounts(ctx context.Context, tableName string) (RowCounts, error)
	// SDNBytes returns every sdn_metrics byte value
	SDNBytes(ctx context.Context) ([]float64, error)
	// AverageBytesBy returns the average sdn_metrics bytes per value of column, in an avg column
	AverageBytesBy(ctx context.Context, column string) (*table.Table, error)
	// CountBy returns the number of sdn_metrics records per value of column, in a count column
	CountBy(ctx context.Context, column string) (*table.Table, error)
	// UsualServerBytes returns the average bytes per server over the records whose column value is not in bigKeys
	UsualServerBytes(ctx context.Context, column string, bigKeys []string) (*table.Table, error)
	// ServerReports returns the number of records per server and how many of those have a column value in bigKeys
	ServerReports(ctx context.Context, column string, bigKeys []string) (*table.Table, error)
	// AssignedInterfaces counts the peer_metrics rows routed through each server, per SDN
	AssignedInterfaces(ctx context.Context) (*table.Table, error)
	// PacketLossExceptions collects the peer_metrics rows with a packet loss outside [0, 1]
	PacketLossExceptions(ctx context.Context) (*PacketLossReport, error)
	// PacketLossAverages averages the in range packet loss per server, per SDN
	PacketLossAverages(ctx context.Context) (*table.Table, error)
	Close() error
}

// RowCounts compares the total and distinct number of rows of a table
type RowCounts struct {
	Table  string `json:"table"`
	Total  uint64 `json:"total_rows"`
	Unique uint64 `json:"unique_rows"`
}

// Duplicates returns the number of rows that repeat another row
func (r RowCounts) Duplicates() uint64 {
	if r.Unique > r.Total {
		return 0
	}
	return r.Total - r.Unique
}

// PeerMetric is one row of the peer_metrics table
type PeerMetric struct {
	SDN1Path       string  `ch:"sdn1_path" json:"sdn1_path"`
	SDN2Path       string  `ch:"sdn2_path" json:"sdn2_path"`
	SDN3Path       string  `ch:"sdn3_path" json:"sdn3_path"`
	SDN1PacketLoss float64 `ch:"sdn1_packet_loss" json:"sdn1_packet_loss"`
	SDN2PacketLoss float64 `ch:"sdn2_packet_loss" json:"sdn2_packet_loss"`
	SDN3PacketLoss float64 `ch:"sdn3_packet_loss" json:"sdn3_packet_loss"`
}

func (m PeerMetric) packetLosses() [3]float64 {
	return [3]float64{m.SDN1PacketLoss, m.SDN2PacketLoss, m.SDN3PacketLoss}
}

// PacketLossReport summarizes the peer_metrics rows whose packet loss is not a ratio
type PacketLossReport struct {
	Rows   int          `json:"rows"`
	Sample []PeerMetric `json:"sample"`
	// distinct packet losses above 1 for each SDN, ascending
	AboveOne [3][]float64 `json:"above_one"`
}

// Add records an out of range row
func (r *PacketLossReport) Add(m PeerMetric) {
	r.Rows++
	if len(r.Sample) < PacketLossSampleSize {
		r.Sample = append(r.Sample, m)
	}
	for i, loss := range m.packetLosses() {
		if loss > 1 && !slices.Contains(r.AboveOne[i], loss) {
			r.AboveOne[i] = append(r.AboveOne[i], loss)
		}
	}
}

func (r *PacketLossReport) sort() {
	for i := range r.AboveOne {
		slices.Sort(r.AboveOne[i])
	}
}

// ValidateGroupColumn checks that column may be used to group sdn_metrics records
func ValidateGroupColumn(column string) error {
	if !slices.Contains(constants.GroupColumns, column) {
		return fmt.Errorf("%w, got %q", ErrInvalidGroupColumn, column)
	}
	return nil
}

// Connect opens the telemetry database selected by the config
func Connect(ctx context.Context, cfg *config.Config) (Source, error) {
	switch cfg.Database.Driver {
	case config.PostgresDriver:
		db, err := ConnectToPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		db, err := ConnectToDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
}

// nullFloat maps a missing SQL value to NaN
func nullFloat(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

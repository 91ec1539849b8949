package analysis

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/activecm/netgauge/constants"
	"github.com/activecm/netgauge/database"
	zlog "github.com/activecm/netgauge/logger"
	"github.com/activecm/netgauge/table"

	"golang.org/x/sync/errgroup"
)

var interfaceColumns = []string{constants.SDN1IntfCountColumn, constants.SDN2IntfCountColumn, constants.SDN3IntfCountColumn}
var packetLossColumns = []string{constants.SDN1PacketLossColumn, constants.SDN2PacketLossColumn, constants.SDN3PacketLossColumn}

// InterfaceReport holds the number of SDN interfaces assigned to each server
type InterfaceReport struct {
	// keyed by server id with sdn1_intf_c, sdn2_intf_c, sdn3_intf_c and total_sdn_int_count columns
	Servers    *table.Table `json:"-"`
	Unassigned int          `json:"servers_without_interfaces"`
	Summary    []ByteStats  `json:"summary"`
}

// PacketLossReport holds the packet loss exceptions and the average packet loss of each server
type PacketLossReport struct {
	Exceptions *database.PacketLossReport `json:"exceptions"`

	// keyed by server id with sdn1_pl_avg, sdn2_pl_avg, sdn3_pl_avg and all_packet_loss_avg columns
	Servers *table.Table `json:"-"`
	Summary []ByteStats  `json:"summary"`
}

// Interfaces counts the peer_metrics paths routed through each server
func (analyzer *Analyzer) Interfaces(ctx context.Context) (*InterfaceReport, error) {
	servers, err := analyzer.Source.AssignedInterfaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not count assigned interfaces: %w", err)
	}
	for _, c := range interfaceColumns {
		if err := servers.FillNaN(c, 0); err != nil {
			return nil, err
		}
	}

	total, err := sumColumns(servers, interfaceColumns...)
	if err != nil {
		return nil, err
	}
	if err := servers.SetColumn(constants.TotalSDNIntfCountColumn, total); err != nil {
		return nil, err
	}

	report := &InterfaceReport{Servers: servers}
	for _, v := range total {
		if v == 0 {
			report.Unassigned++
		}
	}
	report.Summary, err = describeColumns(servers, servers.Columns()...)
	if err != nil {
		return nil, err
	}

	analyzer.Reporter.Interfaces(report)
	return report, nil
}

// PacketLoss collects the out of range packet losses and averages the in range packet
// loss of each server. all_packet_loss_avg is the mean over the SDNs a server has data
// for, and a server without any data gets the worst packet loss of 1.
func (analyzer *Analyzer) PacketLoss(ctx context.Context) (*PacketLossReport, error) {
	report := &PacketLossReport{}

	errGroup, ctx := errgroup.WithContext(ctx)
	errGroup.Go(func() error {
		var err error
		report.Exceptions, err = analyzer.Source.PacketLossExceptions(ctx)
		if err != nil {
			return fmt.Errorf("could not collect packet loss exceptions: %w", err)
		}
		return nil
	})
	errGroup.Go(func() error {
		var err error
		report.Servers, err = analyzer.Source.PacketLossAverages(ctx)
		if err != nil {
			return fmt.Errorf("could not average packet loss: %w", err)
		}
		return nil
	})
	if err := errGroup.Wait(); err != nil {
		return nil, err
	}

	// the overall mean must be taken before the per SDN defaults are applied
	all, err := report.Servers.RowMean(packetLossColumns...)
	if err != nil {
		return nil, err
	}
	if err := report.Servers.SetColumn(constants.AllPacketLossColumn, all); err != nil {
		return nil, err
	}
	columns := slices.Concat(packetLossColumns, []string{constants.AllPacketLossColumn})
	for _, c := range columns {
		if err := report.Servers.FillNaN(c, constants.MissingPacketLoss); err != nil {
			return nil, err
		}
	}
	if report.Summary, err = describeColumns(report.Servers, columns...); err != nil {
		return nil, err
	}

	analyzer.Reporter.PacketLoss(report)
	return report, nil
}

// ServerFeatures assembles the server feature table from the byte, interface and packet
// loss features. Byte averages are grouped by column to find the big groups.
func (analyzer *Analyzer) ServerFeatures(ctx context.Context, column string) (*table.Table, error) {
	logger := zlog.GetLogger()
	start := time.Now()

	var bytes *UsualBytesReport
	var interfaces *InterfaceReport
	var packetLoss *PacketLossReport

	errGroup, ctx := errgroup.WithContext(ctx)
	errGroup.Go(func() error {
		var err error
		bytes, err = analyzer.UsualBytes(ctx, column)
		return err
	})
	errGroup.Go(func() error {
		var err error
		interfaces, err = analyzer.Interfaces(ctx)
		return err
	})
	errGroup.Go(func() error {
		var err error
		packetLoss, err = analyzer.PacketLoss(ctx)
		return err
	})
	if err := errGroup.Wait(); err != nil {
		return nil, err
	}

	features, err := bytes.Servers.Join(interfaces.Servers)
	if err != nil {
		return nil, fmt.Errorf("could not join interface counts: %w", err)
	}
	features, err = features.Join(packetLoss.Servers)
	if err != nil {
		return nil, fmt.Errorf("could not join packet loss averages: %w", err)
	}

	logger.Debug().
		Str("run_id", analyzer.RunID.String()).
		Int("servers", features.Len()).
		Str("elapsed_time", time.Since(start).String()).
		Msg("assembled server features")

	return features, nil
}

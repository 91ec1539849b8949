package database

import (
	"context"
	"fmt"

	"github.com/activecm/netgauge/constants"
	zlog "github.com/activecm/netgauge/logger"
	"github.com/activecm/netgauge/table"

	clickhouse "github.com/ClickHouse/clickhouse-go/v2"
)

// TableNames lists the tables of the selected database
func (db *DB) TableNames(ctx context.Context) ([]string, error) {
	logger := zlog.GetLogger()

	rows, err := db.Conn.Query(ctx, `--sql
		SELECT name FROM system.tables
		WHERE database = currentDatabase() AND NOT is_temporary
		ORDER BY name
	`)
	if err != nil {
		logger.Err(err).Str("database", db.selected).Msg("failed to list tables")
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// RowCounts counts every row and every distinct row of tableName
func (db *DB) RowCounts(ctx context.Context, tableName string) (RowCounts, error) {
	logger := zlog.GetLogger()

	counts := RowCounts{Table: tableName}
	chCtx := db.QueryParameters(ctx, clickhouse.Parameters{"table": tableName})
	err := db.Conn.QueryRow(chCtx, `--sql
		SELECT
			(SELECT count() FROM {table:Identifier}) AS total,
			(SELECT count() FROM (SELECT DISTINCT * FROM {table:Identifier})) AS uniq
	`).Scan(&counts.Total, &counts.Unique)
	if err != nil {
		logger.Err(err).Str("database", db.selected).Str("table", tableName).Msg("failed to count rows")
		return counts, err
	}
	return counts, nil
}

// SDNBytes returns the bytes of every sdn_metrics record in ascending order
func (db *DB) SDNBytes(ctx context.Context) ([]float64, error) {
	logger := zlog.GetLogger()

	rows, err := db.Conn.Query(ctx, `--sql
		SELECT toFloat64(bytes) FROM sdn_metrics
		ORDER BY bytes
	`)
	if err != nil {
		logger.Err(err).Str("database", db.selected).Msg("failed to read sdn_metrics bytes")
		return nil, err
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// AverageBytesBy returns the average bytes of the sdn_metrics records grouped by column
func (db *DB) AverageBytesBy(ctx context.Context, column string) (*table.Table, error) {
	if err := ValidateGroupColumn(column); err != nil {
		return nil, err
	}

	chCtx := db.QueryParameters(ctx, clickhouse.Parameters{"column": column})
	return db.keyedQuery(chCtx, "average bytes", column, []string{constants.AvgColumn}, `--sql
		SELECT toString({column:Identifier}) AS key, toFloat64(avg(bytes)) AS avg_bytes
		FROM sdn_metrics
		GROUP BY key
		ORDER BY avg_bytes
	`)
}

// CountBy returns the number of sdn_metrics records grouped by column
func (db *DB) CountBy(ctx context.Context, column string) (*table.Table, error) {
	if err := ValidateGroupColumn(column); err != nil {
		return nil, err
	}

	chCtx := db.QueryParameters(ctx, clickhouse.Parameters{"column": column})
	return db.keyedQuery(chCtx, "record count", column, []string{constants.CountColumn}, `--sql
		SELECT toString({column:Identifier}) AS key, toFloat64(count()) AS records
		FROM sdn_metrics
		GROUP BY key
		ORDER BY records
	`)
}

// UsualServerBytes returns the average bytes per server, leaving out the records whose column value is a big key
func (db *DB) UsualServerBytes(ctx context.Context, column string, bigKeys []string) (*table.Table, error) {
	if err := ValidateGroupColumn(column); err != nil {
		return nil, err
	}

	chCtx := db.QueryParameters(ctx, clickhouse.Parameters{
		"column": column,
		"big":    arrayParam(bigKeys),
	})
	return db.keyedQuery(chCtx, "usual server bytes", constants.ServerIDColumn, []string{constants.AvgBytesColumn}, `--sql
		SELECT toString(s.server_id) AS id, ifNull(toFloat64(avg(sm.bytes)), nan) AS avg_bytes
		FROM servers s
		LEFT JOIN (
			SELECT server_id, bytes FROM sdn_metrics
			WHERE NOT has({big:Array(String)}, toString({column:Identifier}))
		) sm ON s.server_id = sm.server_id
		GROUP BY id
		ORDER BY id
		SETTINGS join_use_nulls = 1
	`)
}

// ServerReports returns the number of records per server, and the number of those whose column value is a big key
func (db *DB) ServerReports(ctx context.Context, column string, bigKeys []string) (*table.Table, error) {
	if err := ValidateGroupColumn(column); err != nil {
		return nil, err
	}

	chCtx := db.QueryParameters(ctx, clickhouse.Parameters{
		"column": column,
		"big":    arrayParam(bigKeys),
	})
	return db.keyedQuery(chCtx, "server reports", constants.ServerIDColumn, []string{constants.TotalSDNReportsColumn, constants.BigConnReportsColumn}, `--sql
		SELECT toString(s.server_id) AS id,
			toFloat64(count(sm.server_id)) AS total_sdn_reports,
			toFloat64(countIf(sm.big = 1)) AS big_conn_reports
		FROM servers s
		LEFT JOIN (
			SELECT server_id, has({big:Array(String)}, toString({column:Identifier})) AS big
			FROM sdn_metrics
		) sm ON s.server_id = sm.server_id
		GROUP BY id
		ORDER BY id
		SETTINGS join_use_nulls = 1
	`)
}

// AssignedInterfaces counts, per server, the peer_metrics rows whose sdnN_path is that server
func (db *DB) AssignedInterfaces(ctx context.Context) (*table.Table, error) {
	return db.keyedQuery(ctx, "assigned interfaces", constants.ServerIDColumn, []string{constants.SDN1IntfCountColumn, constants.SDN2IntfCountColumn, constants.SDN3IntfCountColumn}, `--sql
		SELECT toString(s.server_id) AS id,
			toFloat64(countIf(pm.sdn = 1)) AS sdn1_intf_c,
			toFloat64(countIf(pm.sdn = 2)) AS sdn2_intf_c,
			toFloat64(countIf(pm.sdn = 3)) AS sdn3_intf_c
		FROM servers s
		LEFT JOIN (
			SELECT toInt64OrNull(path.1) AS server_id, path.2 AS sdn
			FROM peer_metrics
			ARRAY JOIN [(sdn1_path, 1), (sdn2_path, 2), (sdn3_path, 3)] AS path
		) pm ON s.server_id = pm.server_id
		GROUP BY id
		ORDER BY id
		SETTINGS join_use_nulls = 1
	`)
}

// PacketLossExceptions collects the peer_metrics rows where any packet loss is outside [0, 1]
func (db *DB) PacketLossExceptions(ctx context.Context) (*PacketLossReport, error) {
	logger := zlog.GetLogger()

	rows, err := db.Conn.Query(ctx, `--sql
		SELECT sdn1_path, sdn2_path, sdn3_path, sdn1_packet_loss, sdn2_packet_loss, sdn3_packet_loss
		FROM peer_metrics
		WHERE NOT (sdn1_packet_loss BETWEEN 0 AND 1)
			OR NOT (sdn2_packet_loss BETWEEN 0 AND 1)
			OR NOT (sdn3_packet_loss BETWEEN 0 AND 1)
	`)
	if err != nil {
		logger.Err(err).Str("database", db.selected).Msg("failed to query packet loss exceptions")
		return nil, err
	}
	defer rows.Close()

	report := &PacketLossReport{}
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
			var m PeerMetric
			if err := rows.ScanStruct(&m); err != nil {
				return nil, fmt.Errorf("could not read peer_metrics row: %w", err)
			}
			report.Add(m)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	report.sort()
	return report, nil
}

// PacketLossAverages averages, per server and per SDN, the packet losses within [0, 1]
// of the peer_metrics rows routed through the server
func (db *DB) PacketLossAverages(ctx context.Context) (*table.Table, error) {
	return db.keyedQuery(ctx, "packet loss averages", constants.ServerIDColumn, []string{constants.SDN1PacketLossColumn, constants.SDN2PacketLossColumn, constants.SDN3PacketLossColumn}, `--sql
		SELECT toString(s.server_id) AS id,
			ifNull(toFloat64(avgIf(pm.loss, pm.sdn = 1)), nan) AS sdn1_pl_avg,
			ifNull(toFloat64(avgIf(pm.loss, pm.sdn = 2)), nan) AS sdn2_pl_avg,
			ifNull(toFloat64(avgIf(pm.loss, pm.sdn = 3)), nan) AS sdn3_pl_avg
		FROM servers s
		LEFT JOIN (
			SELECT toInt64OrNull(path.1) AS server_id, path.2 AS sdn, path.3 AS loss
			FROM peer_metrics
			ARRAY JOIN [(sdn1_path, 1, sdn1_packet_loss), (sdn2_path, 2, sdn2_packet_loss), (sdn3_path, 3, sdn3_packet_loss)] AS path
			WHERE loss BETWEEN 0 AND 1
		) pm ON s.server_id = pm.server_id
		GROUP BY id
		ORDER BY id
		SETTINGS join_use_nulls = 1
	`)
}

// keyedQuery runs a query whose first column is a string key followed by one Float64 per column
func (db *DB) keyedQuery(ctx context.Context, name string, keyName string, columns []string, query string) (*table.Table, error) {
	logger := zlog.GetLogger()

	rows, err := db.Conn.Query(ctx, query)
	if err != nil {
		logger.Err(err).Str("database", db.selected).Str("query", name).Msg("failed to run query")
		return nil, err
	}
	defer rows.Close()

	t := table.New(keyName, columns...)
	var key string
	values := make([]float64, len(columns))
	dest := make([]any, 0, len(columns)+1)
	dest = append(dest, &key)
	for i := range values {
		dest = append(dest, &values[i])
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("could not read %s row: %w", name, err)
		}
		if err := t.Append(key, values...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

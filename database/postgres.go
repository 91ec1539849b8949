package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/activecm/netgauge/config"
	"github.com/activecm/netgauge/constants"
	zlog "github.com/activecm/netgauge/logger"
	"github.com/activecm/netgauge/table"

	"github.com/jackc/pgx/v5"
	// registers the pgx database/sql driver
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresDB is a PostgreSQL telemetry database laid out like the ClickHouse one.
// Path columns of peer_metrics hold server ids as text.
type PostgresDB struct {
	Conn     *sql.DB
	selected string
}

// ConnectToPostgres sets up a new connection to the PostgreSQL database named in the config
func ConnectToPostgres(ctx context.Context, cfg *config.Config) (*PostgresDB, error) {
	conn, err := sql.Open("pgx", PostgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(10)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to connect to database %s: %w", cfg.Database.Name, err)
	}

	return &PostgresDB{Conn: conn, selected: cfg.Database.Name}, nil
}

// PostgresDSN builds the connection URL for the configured database
func PostgresDSN(cfg *config.Config) string {
	dsn := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Env.DBUsername, cfg.Env.DBPassword),
		Host:   cfg.Env.DBConnection,
		Path:   "/" + cfg.Database.Name,
	}
	params := url.Values{}
	if cfg.Database.SSLMode != "" {
		params.Set("sslmode", cfg.Database.SSLMode)
	}
	// pgx passes unknown parameters on as session settings
	params.Set("statement_timeout", strconv.FormatInt(int64(cfg.MaxQueryExecutionTime)*1000, 10))
	dsn.RawQuery = params.Encode()
	return dsn.String()
}

func (db *PostgresDB) Name() string {
	return db.selected
}

func (db *PostgresDB) Close() error {
	if db.Conn == nil {
		return ErrInvalidDatabaseConnection
	}
	return db.Conn.Close()
}

func (db *PostgresDB) TableNames(ctx context.Context) ([]string, error) {
	logger := zlog.GetLogger()

	rows, err := db.Conn.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name
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

func (db *PostgresDB) RowCounts(ctx context.Context, tableName string) (RowCounts, error) {
	logger := zlog.GetLogger()

	ident := pgx.Identifier{tableName}.Sanitize()
	counts := RowCounts{Table: tableName}
	err := db.Conn.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT
			(SELECT count(*) FROM %[1]s),
			(SELECT count(*) FROM (SELECT DISTINCT * FROM %[1]s) AS temp)
	`, ident)).Scan(&counts.Total, &counts.Unique)
	if err != nil {
		logger.Err(err).Str("database", db.selected).Str("table", tableName).Msg("failed to count rows")
		return counts, err
	}
	return counts, nil
}

func (db *PostgresDB) SDNBytes(ctx context.Context) ([]float64, error) {
	logger := zlog.GetLogger()

	rows, err := db.Conn.QueryContext(ctx, `SELECT bytes::float8 FROM sdn_metrics ORDER BY bytes`)
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

func (db *PostgresDB) AverageBytesBy(ctx context.Context, column string) (*table.Table, error) {
	if err := ValidateGroupColumn(column); err != nil {
		return nil, err
	}
	ident := pgx.Identifier{column}.Sanitize()

	return db.keyedQuery(ctx, "average bytes", column, []string{constants.AvgColumn}, fmt.Sprintf(`
		SELECT %[1]s::text AS key, AVG(bytes)::float8 AS avg
		FROM sdn_metrics
		GROUP BY %[1]s
		ORDER BY avg
	`, ident))
}

func (db *PostgresDB) CountBy(ctx context.Context, column string) (*table.Table, error) {
	if err := ValidateGroupColumn(column); err != nil {
		return nil, err
	}
	ident := pgx.Identifier{column}.Sanitize()

	return db.keyedQuery(ctx, "record count", column, []string{constants.CountColumn}, fmt.Sprintf(`
		SELECT %[1]s::text AS key, count(*)::float8 AS count
		FROM sdn_metrics
		GROUP BY %[1]s
		ORDER BY count
	`, ident))
}

func (db *PostgresDB) UsualServerBytes(ctx context.Context, column string, bigKeys []string) (*table.Table, error) {
	if err := ValidateGroupColumn(column); err != nil {
		return nil, err
	}
	ident := pgx.Identifier{"sm", column}.Sanitize()

	return db.keyedQuery(ctx, "usual server bytes", constants.ServerIDColumn, []string{constants.AvgBytesColumn}, fmt.Sprintf(`
		SELECT s.server_id::text AS id, AVG(sm.bytes)::float8 AS avg_bytes
		FROM servers s
		LEFT JOIN sdn_metrics sm
			ON s.server_id = sm.server_id
			AND NOT (%s::text = ANY($1::text[]))
		GROUP BY s.server_id
		ORDER BY id
	`, ident), keyList(bigKeys))
}

func (db *PostgresDB) ServerReports(ctx context.Context, column string, bigKeys []string) (*table.Table, error) {
	if err := ValidateGroupColumn(column); err != nil {
		return nil, err
	}
	ident := pgx.Identifier{"sm", column}.Sanitize()

	return db.keyedQuery(ctx, "server reports", constants.ServerIDColumn, []string{constants.TotalSDNReportsColumn, constants.BigConnReportsColumn}, fmt.Sprintf(`
		SELECT s.server_id::text AS id,
			count(sm.server_id)::float8 AS total_sdn_reports,
			count(*) FILTER (WHERE %s::text = ANY($1::text[]))::float8 AS big_conn_reports
		FROM servers s
		LEFT JOIN sdn_metrics sm
			ON s.server_id = sm.server_id
		GROUP BY s.server_id
		ORDER BY id
	`, ident), keyList(bigKeys))
}

func (db *PostgresDB) AssignedInterfaces(ctx context.Context) (*table.Table, error) {
	return db.keyedQuery(ctx, "assigned interfaces", constants.ServerIDColumn, []string{constants.SDN1IntfCountColumn, constants.SDN2IntfCountColumn, constants.SDN3IntfCountColumn}, `
		SELECT s.server_id::text AS id,
			count(*) FILTER (WHERE pm.sdn = 1)::float8 AS sdn1_intf_c,
			count(*) FILTER (WHERE pm.sdn = 2)::float8 AS sdn2_intf_c,
			count(*) FILTER (WHERE pm.sdn = 3)::float8 AS sdn3_intf_c
		FROM servers s
		LEFT JOIN (
			SELECT p.path, p.sdn
			FROM peer_metrics,
			LATERAL (VALUES (sdn1_path, 1), (sdn2_path, 2), (sdn3_path, 3)) AS p(path, sdn)
		) pm ON pm.path = s.server_id::text
		GROUP BY s.server_id
		ORDER BY id
	`)
}

func (db *PostgresDB) PacketLossExceptions(ctx context.Context) (*PacketLossReport, error) {
	logger := zlog.GetLogger()

	rows, err := db.Conn.QueryContext(ctx, `
		SELECT sdn1_path, sdn2_path, sdn3_path, sdn1_packet_loss, sdn2_packet_loss, sdn3_packet_loss
		FROM peer_metrics
		WHERE sdn1_packet_loss NOT BETWEEN 0 AND 1
			OR sdn2_packet_loss NOT BETWEEN 0 AND 1
			OR sdn3_packet_loss NOT BETWEEN 0 AND 1
	`)
	if err != nil {
		logger.Err(err).Str("database", db.selected).Msg("failed to query packet loss exceptions")
		return nil, err
	}
	defer rows.Close()

	report := &PacketLossReport{}
	for rows.Next() {
		var paths [3]sql.NullString
		var losses [3]*float64
		if err := rows.Scan(&paths[0], &paths[1], &paths[2], &losses[0], &losses[1], &losses[2]); err != nil {
			return nil, fmt.Errorf("could not read peer_metrics row: %w", err)
		}
		report.Add(PeerMetric{
			SDN1Path:       paths[0].String,
			SDN2Path:       paths[1].String,
			SDN3Path:       paths[2].String,
			SDN1PacketLoss: nullFloat(losses[0]),
			SDN2PacketLoss: nullFloat(losses[1]),
			SDN3PacketLoss: nullFloat(losses[2]),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	report.sort()
	return report, nil
}

func (db *PostgresDB) PacketLossAverages(ctx context.Context) (*table.Table, error) {
	return db.keyedQuery(ctx, "packet loss averages", constants.ServerIDColumn, []string{constants.SDN1PacketLossColumn, constants.SDN2PacketLossColumn, constants.SDN3PacketLossColumn}, `
		SELECT s.server_id::text AS id,
			AVG(pm.loss) FILTER (WHERE pm.sdn = 1)::float8 AS sdn1_pl_avg,
			AVG(pm.loss) FILTER (WHERE pm.sdn = 2)::float8 AS sdn2_pl_avg,
			AVG(pm.loss) FILTER (WHERE pm.sdn = 3)::float8 AS sdn3_pl_avg
		FROM servers s
		LEFT JOIN (
			SELECT p.path, p.sdn, p.loss
			FROM peer_metrics,
			LATERAL (VALUES
				(sdn1_path, 1, sdn1_packet_loss::float8),
				(sdn2_path, 2, sdn2_packet_loss::float8),
				(sdn3_path, 3, sdn3_packet_loss::float8)
			) AS p(path, sdn, loss)
			WHERE p.loss BETWEEN 0 AND 1
		) pm ON pm.path = s.server_id::text
		GROUP BY s.server_id
		ORDER BY id
	`)
}

// keyList keeps an empty key list from being sent as NULL
func keyList(keys []string) []string {
	if keys == nil {
		return []string{}
	}
	return keys
}

// keyedQuery runs a query whose first column is a text key followed by one nullable float8 per column
func (db *PostgresDB) keyedQuery(ctx context.Context, name string, keyName string, columns []string, query string, args ...any) (*table.Table, error) {
	logger := zlog.GetLogger()

	rows, err := db.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Err(err).Str("database", db.selected).Str("query", name).Msg("failed to run query")
		return nil, err
	}
	defer rows.Close()

	t := table.New(keyName, columns...)
	var key string
	nullable := make([]*float64, len(columns))
	dest := make([]any, 0, len(columns)+1)
	dest = append(dest, &key)
	for i := range nullable {
		dest = append(dest, &nullable[i])
	}

	values := make([]float64, len(columns))
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("could not read %s row: %w", name, err)
		}
		for i, v := range nullable {
			values[i] = nullFloat(v)
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

package database

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/activecm/netgauge/config"

	clickhouse "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// DB is a ClickHouse telemetry database
type DB struct {
	Conn     driver.Conn
	selected string
}

// Name returns the name of the target database of db connection
func (db *DB) Name() string {
	return db.selected
}

// QueryParameters generates ClickHouse query parameters by creating a context with the specified parameters in it
func (db *DB) QueryParameters(ctx context.Context, params clickhouse.Parameters) context.Context {
	return clickhouse.Context(ctx, clickhouse.WithParameters(params))
}

// Close closes the connection
func (db *DB) Close() error {
	if db.Conn == nil {
		return ErrInvalidDatabaseConnection
	}
	return db.Conn.Close()
}

// ConnectToDB sets up a new connection to the ClickHouse database named in the config
func ConnectToDB(ctx context.Context, cfg *config.Config) (*DB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Env.DBConnection},
		Auth: clickhouse.Auth{
			Database: cfg.Database.Name,
			Username: cfg.Env.DBUsername,
			Password: cfg.Env.DBPassword,
		},
		DialContext: func(ctx context.Context, addr string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "tcp", addr)
		},
		Debug: false,
		Debugf: func(format string, v ...any) {
			log.Println(format, v)
		},
		Settings: clickhouse.Settings{
			"max_execution_time": cfg.MaxQueryExecutionTime,
			// unmatched rows of a LEFT JOIN must read as NULL, not as the column default
			"join_use_nulls": 1,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout:      time.Second * 30,
		MaxOpenConns:     10,
		MaxIdleConns:     10,
		ConnMaxLifetime:  time.Duration(1) * time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
		BlockBufferSize:  10,

		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{
				{Name: "netgauge", Version: config.Version},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	// check if the connection is valid
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to connect to database %s: %w", cfg.Database.Name, err)
	}

	return &DB{
		Conn:     conn,
		selected: cfg.Database.Name,
	}, nil
}

var arrayEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// arrayParam formats keys as the value of an Array(String) query parameter.
// The server parses the value as a literal, so every key is quoted and escaped.
func arrayParam(keys []string) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('\'')
		b.WriteString(arrayEscaper.Replace(k))
		b.WriteByte('\'')
	}
	b.WriteByte(']')
	return b.String()
}

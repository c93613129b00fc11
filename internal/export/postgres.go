// Package export materializes the gold table into PostgreSQL.
//
// Each export replaces the target table's contents in a single transaction:
// the table is created if missing, truncated, and refilled with COPY. Readers
// of the table see either the previous run's rows or the new ones.
package export

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/medallion/internal/core"
	"github.com/JonMunkholm/medallion/internal/logging"
)

// identifierPattern accepts unquoted PostgreSQL identifiers.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// TxBeginner starts a transaction. Satisfied by *pgxpool.Pool and *pgx.Conn.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	URL             string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// Connect opens and verifies a connection pool.
func Connect(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.URL); err == nil {
		logging.FromContext(ctx).Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}

// Postgres exports the gold table to a fixed target table.
type Postgres struct {
	db    TxBeginner
	table string
}

// NewPostgres validates the target table name.
func NewPostgres(db TxBeginner, table string) (*Postgres, error) {
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid export table name %q", table)
	}
	return &Postgres{db: db, table: table}, nil
}

// Table returns the target table name.
func (p *Postgres) Table() string { return p.table }

// ExportGold replaces the target table's rows with gold and returns the number
// of rows copied.
func (p *Postgres) ExportGold(ctx context.Context, gold *core.Table) (int64, error) {
	logger := logging.WithFields(ctx, "stage", "export", "target", p.table)
	start := time.Now()

	for _, c := range gold.Columns {
		if !identifierPattern.MatchString(c.Name) {
			return 0, fmt.Errorf("column %q is not a valid identifier", c.Name)
		}
	}

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, createTableSQL(p.table, gold.Columns)); err != nil {
		return 0, fmt.Errorf("create table: %w", err)
	}
	if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+quoteIdentifier(p.table)); err != nil {
		return 0, fmt.Errorf("truncate: %w", err)
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{p.table},
		gold.ColumnNames(),
		pgx.CopyFromSlice(gold.Len(), func(i int) ([]any, error) {
			return pgRow(gold.Rows[i]), nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	logger.Info("gold exported", "rows", n, "duration_ms", time.Since(start).Milliseconds())
	return n, nil
}

// createTableSQL builds the DDL for a table with the given columns.
func createTableSQL(table string, cols []core.Column) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = quoteIdentifier(c.Name) + " " + sqlType(c.Type)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdentifier(table), strings.Join(defs, ", "))
}

func sqlType(t core.ColumnType) string {
	switch t {
	case core.TypeInt64:
		return "BIGINT"
	case core.TypeFloat64:
		return "DOUBLE PRECISION"
	case core.TypeTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

// pgRow converts a row to pgtype values. Nulls become invalid pgtype values.
func pgRow(row []core.Value) []any {
	out := make([]any, len(row))
	for i, v := range row {
		switch v.Type {
		case core.TypeInt64:
			out[i] = pgtype.Int8{Int64: v.Int, Valid: v.Valid}
		case core.TypeFloat64:
			out[i] = pgtype.Float8{Float64: v.Float, Valid: v.Valid}
		case core.TypeTimestamp:
			out[i] = pgtype.Timestamp{Time: v.Time, Valid: v.Valid}
		default:
			out[i] = pgtype.Text{String: v.Str, Valid: v.Valid}
		}
	}
	return out
}

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

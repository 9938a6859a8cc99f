package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DBConfig configures the relational read client.
type DBConfig struct {
	DSN             string
	Timeout         time.Duration
	MaxConnections  int
	ConnMaxLifetime time.Duration
}

// DB is the read-only Postgres client collectors query. Connection
// pooling is bounded; acquisition beyond the per-call timeout surfaces
// as ErrUnavailable.
type DB struct {
	db      *sql.DB
	timeout time.Duration
}

// OpenDB opens the connection pool. The pool connects lazily, so an
// unreachable database is not an open error; use Ping to probe.
func OpenDB(cfg DBConfig) (*DB, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", classify(err))
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return &DB{db: db, timeout: cfg.Timeout}, nil
}

// Ping probes connectivity within the client timeout.
func (d *DB) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("pinging postgres: %w", classify(err))
	}
	return nil
}

// NewDBFromHandle wraps an existing handle. Used by tests.
func NewDBFromHandle(db *sql.DB, timeout time.Duration) *DB {
	return &DB{db: db, timeout: timeout}
}

// Close releases the connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}

// Row is one result row with every column rendered as a string.
// NULL columns render as "".
type Row map[string]string

// Query runs a parameterized read-only query within the client timeout.
func (d *DB) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	queryCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	rows, err := d.db.QueryContext(queryCtx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer func() { _ = rows.Close() }()

	result, err := readRows(rows)
	if err != nil {
		return nil, classify(err)
	}
	return result, nil
}

// QueryFloat runs a single-value query and scans the result as float64.
func (d *DB) QueryFloat(ctx context.Context, query string, args ...any) (float64, error) {
	queryCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var v sql.NullFloat64
	if err := d.db.QueryRowContext(queryCtx, query, args...).Scan(&v); err != nil {
		return 0, classify(err)
	}
	return v.Float64, nil
}

func readRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []Row
	values := make([]any, len(columns))
	for i := range values {
		values[i] = &sql.NullString{}
	}

	for rows.Next() {
		if err := rows.Scan(values...); err != nil {
			return nil, err
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = nullToString(values[i])
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func nullToString(value any) string {
	v, ok := value.(*sql.NullString)
	if !ok || !v.Valid {
		return ""
	}
	return v.String
}

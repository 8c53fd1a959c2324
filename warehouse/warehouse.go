// Package warehouse is the thin database/sql adapter statement.Run executes
// against. It registers driver side effects for the three warehouses
// spec.md's Connection.driver can name and exposes the minimal Exec/Close
// surface the engine needs; it is not a query builder or pooling layer.
// Column names are returned exactly as the driver reports them — lowercasing
// is the caller's opt-in (RunOptions.Lower), not this package's decision.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sqlscript-io/sqlscript/config"
	"github.com/sqlscript-io/sqlscript/tabular"
)

// Conn is the capability a Statement needs from its warehouse: run a
// statement and, if it produced rows, materialize them into a Table.
type Conn interface {
	Exec(ctx context.Context, sql string) (*tabular.Table, error)
	Close() error
}

// SQLConn wraps *sql.DB.
type SQLConn struct {
	db     *sql.DB
	schema string
}

// Open dials the connection profile's driver/DSN. driver must be one of
// "mysql", "postgres"/"pgx", or "sqlite3"/"sqlite".
func Open(c config.Connection) (*SQLConn, error) {
	driverName, err := normalizeDriver(c.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, c.DSN)
	if err != nil {
		return nil, fmt.Errorf("warehouse: open %s: %w", c.Driver, err)
	}

	db.SetConnMaxLifetime(30 * time.Minute)

	return &SQLConn{db: db, schema: c.Schema}, nil
}

func normalizeDriver(driver string) (string, error) {
	switch driver {
	case "mysql":
		return "mysql", nil
	case "postgres", "pgx", "postgresql":
		return "pgx", nil
	case "sqlite", "sqlite3":
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("warehouse: unsupported driver %q", driver)
	}
}

// Exec runs sql and, when it produced a result set, materializes every row
// into a tabular.Table. Statements with no result set (DDL/DML) return a nil
// Table and nil error.
func (c *SQLConn) Exec(ctx context.Context, query string) (*tabular.Table, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		if res, execErr := c.db.ExecContext(ctx, query); execErr == nil {
			_ = res
			return nil, nil
		}

		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var tableRows []map[string]any

	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))

		for i := range vals {
			ptrs[i] = &vals[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = vals[i]
		}

		tableRows = append(tableRows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(cols) == 0 {
		return nil, nil
	}

	return tabular.New(cols, tableRows), nil
}

// Close releases the underlying pool.
func (c *SQLConn) Close() error { return c.db.Close() }

// Loader is the bulk-loading capability spec.md names as out of scope
// (§Non-goals: "no bulk-loading utility"). The seam is declared so a future
// warehouse-specific implementation has a contract to satisfy, but no type
// in this package implements it.
type Loader interface {
	Load(ctx context.Context, table string, rows *tabular.Table) error
}

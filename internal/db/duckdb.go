// Package db mirrors the annotated parcel and block attributes into an
// in-memory DuckDB for ad-hoc SQL.
package db

import (
	"context"
	"database/sql"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-rezone/internal/attrs"
	"github.com/joeblew999/plat-rezone/internal/zoning"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS parcels (
	id           INTEGER NOT NULL,
	zonedist     VARCHAR,
	prior_zoning VARCHAR,
	neighborhood VARCHAR,
	use_category VARCHAR NOT NULL,
	far_before   DOUBLE,
	far_after    DOUBLE,
	far_change   DOUBLE
)`, `
CREATE TABLE IF NOT EXISTS blocks (
	id           INTEGER NOT NULL,
	block        VARCHAR,
	value_2004   DOUBLE,
	value_2025   DOUBLE,
	value_change DOUBLE,
	far_2004     DOUBLE,
	far_2025     DOUBLE,
	far_change   DOUBLE
)`}

// Open returns a fresh in-memory database with the parcels and blocks
// tables created.
func Open(ctx context.Context) (*sql.DB, error) {
	conn, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, eris.Wrap(err, "db: open duckdb")
	}
	for _, stmt := range schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			_ = conn.Close()
			return nil, eris.Wrap(err, "db: create schema")
		}
	}
	return conn, nil
}

// Store writes and summarizes the attribute tables.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying connection.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// LoadParcels replaces the parcels table with the attributes of fc.
func (s *Store) LoadParcels(ctx context.Context, fc *geojson.FeatureCollection) (int, error) {
	return s.replace(ctx, "parcels",
		`INSERT INTO parcels VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		fc, func(id int, p geojson.Properties) []any {
			return []any{
				id,
				text(p, zoning.KeyZoneDist),
				text(p, zoning.KeyPriorZoning),
				text(p, zoning.KeyNeighborhood),
				attrs.String(p, zoning.KeyUseCategory),
				number(p, zoning.KeyFARBefore),
				number(p, zoning.KeyFARAfter),
				number(p, zoning.KeyFARChange),
			}
		})
}

// LoadBlocks replaces the blocks table with the attributes of fc.
func (s *Store) LoadBlocks(ctx context.Context, fc *geojson.FeatureCollection) (int, error) {
	return s.replace(ctx, "blocks",
		`INSERT INTO blocks VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		fc, func(id int, p geojson.Properties) []any {
			return []any{
				id,
				text(p, zoning.KeyBlock),
				number(p, zoning.KeyValue2004),
				number(p, zoning.KeyValue2025),
				number(p, zoning.KeyValueChange),
				number(p, zoning.KeyFAR2004),
				number(p, zoning.KeyFAR2025),
				number(p, zoning.KeyBlockFAR),
			}
		})
}

func (s *Store) replace(ctx context.Context, table, insert string, fc *geojson.FeatureCollection, row func(int, geojson.Properties) []any) (int, error) {
	if fc == nil {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrapf(err, "db: begin %s", table)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return 0, eris.Wrapf(err, "db: clear %s", table)
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, eris.Wrapf(err, "db: prepare %s", table)
	}
	defer stmt.Close() //nolint:errcheck

	for i, f := range fc.Features {
		if _, err := stmt.ExecContext(ctx, row(i, f.Properties)...); err != nil {
			return 0, eris.Wrapf(err, "db: insert %s row %d", table, i)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "db: commit %s", table)
	}
	zap.L().Debug("db: table loaded", zap.String("table", table), zap.Int("rows", len(fc.Features)))
	return len(fc.Features), nil
}

// CategorySummary aggregates parcels of one use category.
type CategorySummary struct {
	Category       string   `json:"category"`
	Parcels        int      `json:"parcels"`
	Adjusted       int      `json:"adjusted" doc:"Parcels with a FAR after rezoning"`
	MeanFARChange  *float64 `json:"mean_far_change,omitempty"`
	TotalFARChange float64  `json:"total_far_change"`
}

// Categories summarizes the parcels table by use category.
func (s *Store) Categories(ctx context.Context) ([]CategorySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT use_category,
		       count(*),
		       count(far_after),
		       avg(far_change),
		       coalesce(sum(far_change), 0)
		FROM parcels
		GROUP BY use_category
		ORDER BY use_category`)
	if err != nil {
		return nil, eris.Wrap(err, "db: summarize categories")
	}
	defer rows.Close() //nolint:errcheck

	out := []CategorySummary{}
	for rows.Next() {
		var (
			c    CategorySummary
			mean sql.NullFloat64
		)
		if err := rows.Scan(&c.Category, &c.Parcels, &c.Adjusted, &mean, &c.TotalFARChange); err != nil {
			return nil, eris.Wrap(err, "db: scan category")
		}
		if mean.Valid {
			v := mean.Float64
			c.MeanFARChange = &v
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "db: iterate categories")
}

// Tables lists the tables in the database.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, eris.Wrap(err, "db: list tables")
	}
	defer rows.Close() //nolint:errcheck

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			tables = append(tables, name)
		}
	}
	return tables, eris.Wrap(rows.Err(), "db: iterate tables")
}

// Result is a generic query result.
type Result struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// Query runs a read query and returns every row keyed by column.
func (s *Store) Query(ctx context.Context, query string, args ...any) (Result, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Result{}, eris.Wrap(err, "db: query")
	}
	defer rows.Close() //nolint:errcheck

	columns, err := rows.Columns()
	if err != nil {
		return Result{}, eris.Wrap(err, "db: columns")
	}

	res := Result{Columns: columns, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return Result{}, eris.Wrap(err, "db: scan row")
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		res.Rows = append(res.Rows, row)
	}
	return res, eris.Wrap(rows.Err(), "db: iterate rows")
}

func text(p geojson.Properties, key string) any {
	if s := attrs.String(p, key); s != "" {
		return s
	}
	return nil
}

func number(p geojson.Properties, key string) any {
	if v, ok := attrs.Number(p, key); ok {
		return v
	}
	return nil
}

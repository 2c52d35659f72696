// Package db provides the narrow pgx pool interface and row helpers shared by
// Postgres-backed data sources.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the query layer depends on. pgxmock
// satisfies it too, which keeps source tests off a live database.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// CollectMaps drains rows into column-name keyed maps, one per row. The
// result is the introspectable row shape the record normalizer consumes.
func CollectMaps(rows pgx.Rows) ([]map[string]any, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, eris.Wrap(err, "db: read row values")
		}
		m := make(map[string]any, len(fields))
		for i, f := range fields {
			m[f.Name] = values[i]
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "db: iterate rows")
	}
	return out, nil
}

// Package loader imports point datasets into SQLite snapshots the serving
// path can register as collections. It is offline tooling; the serving path
// itself never writes.
package loader

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Options configures one shapefile import.
type Options struct {
	// Table receives the rows; created if absent. Defaults to "places".
	Table string
	// KeyField is the DBF attribute used as the record key.
	KeyField string
	// NameField is the DBF attribute used as the display name.
	NameField string
}

// placeRow is one point feature flattened for insertion.
type placeRow struct {
	key, name string
	lat, lng  float64
	attrs     map[string]string
}

// LoadShapefile reads point features from shpPath and writes them into the
// SQLite snapshot at dbPath with the id/name/latitude/longitude layout the
// overture column mapping expects. Returns the number of rows written.
// Non-point shapes and features missing the key field are skipped.
func LoadShapefile(ctx context.Context, dbPath, shpPath string, opts Options) (int, error) {
	if opts.Table == "" {
		opts.Table = "places"
	}
	if opts.KeyField == "" || opts.NameField == "" {
		return 0, eris.New("loader: key and name fields are required")
	}

	rows, extraFields, err := parsePoints(shpPath, opts)
	if err != nil {
		return 0, err
	}

	n, err := writeSnapshot(ctx, dbPath, opts.Table, extraFields, rows)
	if err != nil {
		return 0, err
	}
	zap.L().Info("loaded shapefile",
		zap.String("shapefile", shpPath),
		zap.String("db", dbPath),
		zap.Int("rows", n),
	)
	return n, nil
}

func parsePoints(shpPath string, opts Options) ([]placeRow, []string, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "loader: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	var extraFields []string
	for i, f := range fields {
		name := strings.ToLower(strings.TrimRight(f.String(), "\x00"))
		fieldIdx[name] = i
		if name != strings.ToLower(opts.KeyField) && name != strings.ToLower(opts.NameField) {
			extraFields = append(extraFields, name)
		}
	}
	keyIdx, ok := fieldIdx[strings.ToLower(opts.KeyField)]
	if !ok {
		return nil, nil, eris.Errorf("loader: shapefile has no field %q", opts.KeyField)
	}
	nameIdx := fieldIdx[strings.ToLower(opts.NameField)]

	var rows []placeRow
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		point, ok := shape.(*shp.Point)
		if !ok {
			skipped++
			continue
		}

		key := attribute(reader, keyIdx)
		if key == "" {
			skipped++
			continue
		}

		row := placeRow{
			key:   key,
			name:  attribute(reader, nameIdx),
			lat:   point.Y,
			lng:   point.X,
			attrs: make(map[string]string, len(extraFields)),
		}
		for _, f := range extraFields {
			row.attrs[f] = attribute(reader, fieldIdx[f])
		}
		rows = append(rows, row)
	}

	if skipped > 0 {
		zap.L().Debug("loader: skipped shapefile records",
			zap.String("shapefile", shpPath),
			zap.Int("skipped", skipped),
		)
	}
	return rows, extraFields, nil
}

func attribute(reader *shp.Reader, idx int) string {
	return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
}

func writeSnapshot(ctx context.Context, dbPath, table string, extraFields []string, rows []placeRow) (int, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, eris.Wrapf(err, "loader: open sqlite %s", dbPath)
	}
	defer db.Close()

	cols := []string{"id text primary key", "name text", "latitude real", "longitude real"}
	insertCols := []string{"id", "name", "latitude", "longitude"}
	for _, f := range extraFields {
		cols = append(cols, quoteIdent(f)+" text")
		insertCols = append(insertCols, quoteIdent(f))
	}
	createSQL := "create table if not exists " + table + " (" + strings.Join(cols, ", ") + ")"
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "loader: create table %s", table)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "loader: begin tx")
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(insertCols)), ", ")
	insertSQL := "insert or replace into " + table + " (" + strings.Join(insertCols, ", ") +
		") values (" + placeholders + ")"
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return 0, eris.Wrap(err, "loader: prepare insert")
	}
	defer stmt.Close()

	for _, row := range rows {
		args := []any{row.key, row.name, row.lat, row.lng}
		for _, f := range extraFields {
			args = append(args, row.attrs[f])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, eris.Wrapf(err, "loader: insert %s", row.key)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "loader: commit")
	}
	return len(rows), nil
}

// quoteIdent quotes DBF field names that can collide with SQL keywords.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, ``) + `"`
}

package gazetteer

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"math"

	"github.com/rotisserie/eris"
	sqlite "modernc.org/sqlite"
)

// earthRadiusMeters is the IUGG mean Earth radius.
const earthRadiusMeters = 6371008.8

func init() {
	// SQLite has no spherical distance built in; expose the haversine as a
	// query-time function so the shared control structure stays identical
	// across dialects.
	sqlite.MustRegisterDeterministicScalarFunction(
		"distance_sphere", 4,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			coords := make([]float64, 4)
			for i, a := range args {
				switch v := a.(type) {
				case float64:
					coords[i] = v
				case int64:
					coords[i] = float64(v)
				default:
					return nil, eris.Errorf("distance_sphere: argument %d has type %T", i, a)
				}
			}
			return haversineMeters(coords[0], coords[1], coords[2], coords[3]), nil
		},
	)
}

// haversineMeters computes the great-circle distance between two WGS-84
// points.
func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	const degToRad = math.Pi / 180
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lng2 - lng1) * degToRad

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(a))
}

// SQLiteSource serves a collection from a local SQLite snapshot via
// modernc.org/sqlite. The bounding box degrades to plain coordinate range
// predicates and distance comes from the registered haversine function.
type SQLiteSource struct {
	db   *sql.DB
	spec SourceSpec
	frag dialectFragments
}

// NewSQLiteSource opens the snapshot read-only and builds a source over it.
func NewSQLiteSource(path string, spec SourceSpec) (*SQLiteSource, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	sdb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrapf(err, "gazetteer: open sqlite %s", path)
	}
	for _, pragma := range []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA query_only=ON",
	} {
		if _, err := sdb.Exec(pragma); err != nil {
			sdb.Close()
			return nil, eris.Wrapf(err, "gazetteer: exec %s", pragma)
		}
	}
	return &SQLiteSource{
		db:   sdb,
		spec: spec,
		frag: dialectFragments{
			CoordText: func(expr string) string {
				return "printf('%.6f', " + expr + ")"
			},
			Distance: "cast(round(distance_sphere(" + spec.Latitude + ", " + spec.Longitude + ", @lat, @lng)) as integer)",
			Spatial: "(" + spec.Latitude + " between @ymin and @ymax and " +
				spec.Longitude + " between @xmin and @xmax)",
			Text: "(lower(" + spec.Name + ") like '%' || lower(@q) || '%')",
		},
	}, nil
}

func (s *SQLiteSource) Collection() string { return s.spec.Collection }

func (s *SQLiteSource) Close() error { return s.db.Close() }

func (s *SQLiteSource) FetchByKey(ctx context.Context, rkey string) (*PlaceRecord, error) {
	maps, err := s.query(ctx, keyQuery(s.spec, s.frag), []any{sql.Named("rkey", rkey)})
	if err != nil {
		return nil, err
	}
	if len(maps) == 0 {
		return nil, ErrNotFound
	}
	return normalizeRow(s.spec.Collection, maps[0])
}

func (s *SQLiteSource) FetchNearest(ctx context.Context, p SearchParams) ([]PlaceRecord, error) {
	args := []any{sql.Named("limit", p.Limit)}
	if p.Centroid != nil {
		args = append(args,
			sql.Named("lat", p.Centroid.Latitude),
			sql.Named("lng", p.Centroid.Longitude),
			sql.Named("xmin", p.Box.MinLng),
			sql.Named("ymin", p.Box.MinLat),
			sql.Named("xmax", p.Box.MaxLng),
			sql.Named("ymax", p.Box.MaxLat),
		)
	}
	if p.Query != "" {
		args = append(args, sql.Named("q", p.Query))
	}

	maps, err := s.query(ctx, nearestQuery(s.spec, p, s.frag), args)
	if err != nil {
		return nil, err
	}

	records := make([]PlaceRecord, 0, len(maps))
	for _, row := range maps {
		rec, err := normalizeRow(s.spec.Collection, row)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

func (s *SQLiteSource) query(ctx context.Context, query string, args []any) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &DataSourceError{Collection: s.spec.Collection, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &DataSourceError{Collection: s.spec.Collection, Err: err}
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &DataSourceError{Collection: s.spec.Collection, Err: err}
		}
		m := make(map[string]any, len(cols))
		for i, c := range cols {
			m[c] = values[i]
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &DataSourceError{Collection: s.spec.Collection, Err: err}
	}
	return out, nil
}

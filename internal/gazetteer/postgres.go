package gazetteer

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/sells-group/gazetteer/internal/db"
)

// PostgresSource serves a collection from a PostGIS-enabled Postgres
// database. Spatial filtering uses the geometry column named by the spec;
// distance comes from ST_DistanceSphere.
type PostgresSource struct {
	pool db.Pool
	spec SourceSpec
	frag dialectFragments
}

// NewPostgresSource builds a source over an existing pool. The pool is owned
// by the source afterwards and closed with it.
func NewPostgresSource(pool db.Pool, spec SourceSpec) (*PostgresSource, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	geom := spec.Geometry
	if geom == "" {
		geom = "geom"
	}
	return &PostgresSource{
		pool: pool,
		spec: spec,
		frag: dialectFragments{
			CoordText: func(expr string) string {
				return expr + "::numeric(10,6)::varchar"
			},
			Distance: "ST_DistanceSphere(" + geom + ", ST_GeomFromText(@centroid, 4326))::integer",
			Spatial:  geom + " && ST_MakeEnvelope(@xmin, @ymin, @xmax, @ymax, 4326)",
			Text:     "(" + spec.Name + " ilike '%' || @q || '%')",
		},
	}, nil
}

func (s *PostgresSource) Collection() string { return s.spec.Collection }

func (s *PostgresSource) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresSource) FetchByKey(ctx context.Context, rkey string) (*PlaceRecord, error) {
	rows, err := s.pool.Query(ctx, keyQuery(s.spec, s.frag), pgx.NamedArgs{"rkey": rkey})
	if err != nil {
		return nil, &DataSourceError{Collection: s.spec.Collection, Err: err}
	}
	maps, err := db.CollectMaps(rows)
	if err != nil {
		return nil, &DataSourceError{Collection: s.spec.Collection, Err: err}
	}
	if len(maps) == 0 {
		return nil, ErrNotFound
	}
	return normalizeRow(s.spec.Collection, maps[0])
}

func (s *PostgresSource) FetchNearest(ctx context.Context, p SearchParams) ([]PlaceRecord, error) {
	args := pgx.NamedArgs{"limit": p.Limit}
	if p.Centroid != nil {
		args["centroid"] = p.CentroidWKT
		args["xmin"] = p.Box.MinLng
		args["ymin"] = p.Box.MinLat
		args["xmax"] = p.Box.MaxLng
		args["ymax"] = p.Box.MaxLat
	}
	if p.Query != "" {
		args["q"] = p.Query
	}

	rows, err := s.pool.Query(ctx, nearestQuery(s.spec, p, s.frag), args)
	if err != nil {
		return nil, &DataSourceError{Collection: s.spec.Collection, Err: err}
	}
	maps, err := db.CollectMaps(rows)
	if err != nil {
		return nil, &DataSourceError{Collection: s.spec.Collection, Err: err}
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

package gazetteer

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPGSource(t *testing.T) (*PostgresSource, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	src, err := NewPostgresSource(mock, FoursquareSpec)
	require.NoError(t, err)
	return src, mock
}

var fsqColumns = []string{
	"rkey", "latitude", "longitude", "name",
	"fsq_place_id", "address", "locality", "postcode", "region", "country",
	"date_created", "date_refreshed", "fsq_category_labels",
}

func fsqRow(rows *pgxmock.Rows, key, lat, lng, name string) *pgxmock.Rows {
	return rows.AddRow(
		key, lat, lng, name,
		key, "123 Main St", "San Francisco", "94117", "CA", "US",
		"2019-01-01", "2024-06-01", "Park",
	)
}

// ---------------------------------------------------------------------------
// FetchByKey
// ---------------------------------------------------------------------------

func TestPostgresSource_FetchByKey(t *testing.T) {
	src, mock := newPGSource(t)

	mock.ExpectQuery(`select fsq_place_id as rkey, latitude::numeric\(10,6\)::varchar as latitude`).
		WithArgs(pgx.NamedArgs{"rkey": "4sq123"}).
		WillReturnRows(fsqRow(pgxmock.NewRows(fsqColumns), "4sq123", "37.776145", "-122.433898", "Alamo Square"))

	rec, err := src.FetchByKey(context.Background(), "4sq123")
	require.NoError(t, err)
	assert.Equal(t, "4sq123", rec.RecordKey)
	assert.Equal(t, "Alamo Square", rec.DisplayName)
	assert.InDelta(t, 37.776145, rec.Location.Latitude, 1e-9)
	assert.Nil(t, rec.DistanceMeters)
	assert.Equal(t, "San Francisco", rec.Attributes["locality"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_FetchByKey_NotFound(t *testing.T) {
	src, mock := newPGSource(t)

	mock.ExpectQuery(`select fsq_place_id as rkey`).
		WithArgs(pgx.NamedArgs{"rkey": "absent"}).
		WillReturnRows(pgxmock.NewRows(fsqColumns))

	_, err := src.FetchByKey(context.Background(), "absent")
	require.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_FetchByKey_StoreFault(t *testing.T) {
	src, mock := newPGSource(t)

	mock.ExpectQuery(`select fsq_place_id as rkey`).
		WithArgs(pgx.NamedArgs{"rkey": "x"}).
		WillReturnError(fmt.Errorf("connection refused"))

	_, err := src.FetchByKey(context.Background(), "x")
	require.Error(t, err)
	var dsErr *DataSourceError
	require.ErrorAs(t, err, &dsErr)
	assert.Equal(t, "com.foursquare.places", dsErr.Collection)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// FetchNearest
// ---------------------------------------------------------------------------

func TestPostgresSource_FetchNearest(t *testing.T) {
	src, mock := newPGSource(t)

	p, err := NewSearchParams(&Point{Latitude: 37.776145, Longitude: -122.433898}, "", 5000, 5)
	require.NoError(t, err)

	cols := append(append([]string{}, fsqColumns...), "distance_m")
	rows := pgxmock.NewRows(cols).
		AddRow("near", "37.786937", "-122.433898", "Panhandle",
			"near", "1 Fell St", "San Francisco", "94117", "CA", "US",
			"2019-01-01", "2024-06-01", "Park", int32(1200)).
		AddRow("far", "37.812000", "-122.433898", "Marina Green",
			"far", "2 Marina Blvd", "San Francisco", "94123", "CA", "US",
			"2019-01-01", "2024-06-01", "Park", int32(3987))

	mock.ExpectQuery(`ST_DistanceSphere\(geom, ST_GeomFromText\(@centroid, 4326\)\)::integer as distance_m`).
		WithArgs(pgx.NamedArgs{
			"limit":    5,
			"centroid": p.CentroidWKT,
			"xmin":     p.Box.MinLng,
			"ymin":     p.Box.MinLat,
			"xmax":     p.Box.MaxLng,
			"ymax":     p.Box.MaxLat,
		}).
		WillReturnRows(rows)

	records, err := src.FetchNearest(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.NotNil(t, records[0].DistanceMeters)
	assert.Equal(t, int64(1200), *records[0].DistanceMeters)
	require.NotNil(t, records[1].DistanceMeters)
	assert.LessOrEqual(t, *records[0].DistanceMeters, *records[1].DistanceMeters)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_FetchNearest_TextFilterBindsParameter(t *testing.T) {
	src, mock := newPGSource(t)

	p, err := NewSearchParams(nil, "Alamo", 0, 10)
	require.NoError(t, err)

	// The filter references a bound parameter; the query text never carries
	// the user's input.
	mock.ExpectQuery(`\(name ilike '%' \|\| @q \|\| '%'\)`).
		WithArgs(pgx.NamedArgs{"limit": 10, "q": "Alamo"}).
		WillReturnRows(fsqRow(pgxmock.NewRows(fsqColumns), "4sq123", "37.776145", "-122.433898", "Alamo Square"))

	records, err := src.FetchNearest(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].DistanceMeters)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_FetchNearest_SchemaFault(t *testing.T) {
	src, mock := newPGSource(t)

	p, err := NewSearchParams(nil, "Alamo", 0, 10)
	require.NoError(t, err)

	// A row without the latitude column indicates a stale dataset.
	mock.ExpectQuery(`select fsq_place_id as rkey`).
		WithArgs(pgx.NamedArgs{"limit": 10, "q": "Alamo"}).
		WillReturnRows(pgxmock.NewRows([]string{"rkey", "name"}).AddRow("k", "n"))

	_, err = src.FetchNearest(context.Background(), p)
	require.Error(t, err)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "latitude", schemaErr.Column)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package gazetteer

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fixture rows due north of the test centroid (37.776145, -122.433898):
// one ~1200 m away, one ~2224 m away, one ~8000 m away.
func newSQLiteFixture(t *testing.T) *SQLiteSource {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overture.sqlite")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`
		create table places (
			id text primary key,
			name text,
			latitude real,
			longitude real,
			categories text,
			addresses text,
			websites text,
			socials text,
			phones text,
			brand text,
			confidence real
		)`)
	require.NoError(t, err)

	for _, row := range [][]any{
		{"pl-near", "Panhandle", 37.786937, -122.433898, "park", "1 Fell St", "", "", "", "", 0.95},
		{"pl-mid", "Alamo Square Park", 37.796145, -122.433898, "park", "Hayes St", "", "", "", "", 0.98},
		{"pl-far", "Marina Green", 37.848091, -122.433898, "park", "2 Marina Blvd", "", "", "", "", 0.91},
	} {
		_, err = db.Exec(
			`insert into places values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row...,
		)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	src, err := NewSQLiteSource(path, OvertureSpec)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func TestSQLiteSource_FetchByKey(t *testing.T) {
	src := newSQLiteFixture(t)

	rec, err := src.FetchByKey(context.Background(), "pl-near")
	require.NoError(t, err)

	assert.Equal(t, "pl-near", rec.RecordKey)
	assert.Equal(t, "Panhandle", rec.DisplayName)
	assert.InDelta(t, 37.786937, rec.Location.Latitude, 1e-6)
	assert.InDelta(t, -122.433898, rec.Location.Longitude, 1e-6)
	assert.Nil(t, rec.DistanceMeters)
	assert.Equal(t, "park", rec.Attributes["categories"])
	assert.Equal(t, "pl-near", rec.Attributes["id"])
}

func TestSQLiteSource_FetchByKey_NotFound(t *testing.T) {
	src := newSQLiteFixture(t)

	_, err := src.FetchByKey(context.Background(), "absent")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteSource_FetchNearest_RadiusScenario(t *testing.T) {
	src := newSQLiteFixture(t)

	// 5 km radius from the centroid: the 1200 m and 2224 m rows are inside
	// the bounding box, the 8000 m row is not.
	p, err := NewSearchParams(&Point{Latitude: 37.776145, Longitude: -122.433898}, "", 5000, 5)
	require.NoError(t, err)

	records, err := src.FetchNearest(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "pl-near", records[0].RecordKey)
	require.NotNil(t, records[0].DistanceMeters)
	assert.InDelta(t, 1200, float64(*records[0].DistanceMeters), 1)

	assert.Equal(t, "pl-mid", records[1].RecordKey)
	require.NotNil(t, records[1].DistanceMeters)
	assert.InDelta(t, 2224, float64(*records[1].DistanceMeters), 1)

	// Ascending by distance.
	assert.LessOrEqual(t, *records[0].DistanceMeters, *records[1].DistanceMeters)
}

func TestSQLiteSource_FetchNearest_TextFilter(t *testing.T) {
	src := newSQLiteFixture(t)

	p, err := NewSearchParams(nil, "alamo", 0, 10)
	require.NoError(t, err)

	records, err := src.FetchNearest(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Alamo Square Park", records[0].DisplayName)
	assert.Nil(t, records[0].DistanceMeters)
}

func TestSQLiteSource_FetchNearest_TextAndCentroid(t *testing.T) {
	src := newSQLiteFixture(t)

	p, err := NewSearchParams(&Point{Latitude: 37.776145, Longitude: -122.433898}, "park", 5000, 10)
	require.NoError(t, err)

	records, err := src.FetchNearest(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Alamo Square Park", records[0].DisplayName)
	require.NotNil(t, records[0].DistanceMeters)
}

func TestSQLiteSource_FetchNearest_Unconstrained(t *testing.T) {
	src := newSQLiteFixture(t)

	p, err := NewSearchParams(nil, "", 0, 50)
	require.NoError(t, err)

	records, err := src.FetchNearest(context.Background(), p)
	require.NoError(t, err)
	assert.Len(t, records, 3)
	for _, rec := range records {
		assert.Nil(t, rec.DistanceMeters)
	}

	// The limit still caps the arbitrary slice.
	p.Limit = 2
	records, err = src.FetchNearest(context.Background(), p)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestSQLiteSource_RoundTrip(t *testing.T) {
	src := newSQLiteFixture(t)

	p, err := NewSearchParams(&Point{Latitude: 37.776145, Longitude: -122.433898}, "", 5000, 5)
	require.NoError(t, err)

	records, err := src.FetchNearest(context.Background(), p)
	require.NoError(t, err)
	require.NotEmpty(t, records)

	byKey, err := src.FetchByKey(context.Background(), records[0].RecordKey)
	require.NoError(t, err)
	assert.Equal(t, records[0].Location, byKey.Location)
	assert.Equal(t, records[0].DisplayName, byKey.DisplayName)
}

func TestHaversineMeters(t *testing.T) {
	// Due-north displacement of one mean meridional degree.
	d := haversineMeters(0, 0, 1, 0)
	assert.InDelta(t, 111194.9, d, 1)

	// Symmetry and zero distance.
	assert.InDelta(t, haversineMeters(37.7, -122.4, 37.8, -122.5), haversineMeters(37.8, -122.5, 37.7, -122.4), 1e-6)
	assert.InDelta(t, 0, haversineMeters(37.7, -122.4, 37.7, -122.4), 1e-9)
}

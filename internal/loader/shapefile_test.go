package loader

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// writeTestShapefile builds a small point shapefile with PLACE_ID, NAME and
// CATEGORY attributes. The second feature has an empty key so imports can
// verify it is skipped.
func writeTestShapefile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "places.shp")

	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	w.SetFields([]shp.Field{
		shp.StringField("PLACE_ID", 25),
		shp.StringField("NAME", 50),
		shp.StringField("CATEGORY", 25),
	})

	features := []struct {
		point shp.Point
		attrs []string
	}{
		{shp.Point{X: -122.433898, Y: 37.776145}, []string{"pl-1", "Panhandle", "park"}},
		{shp.Point{X: -122.434000, Y: 37.780000}, []string{"", "No Key", "park"}},
		{shp.Point{X: -122.433898, Y: 37.786937}, []string{"pl-2", "Alamo Square", "park"}},
	}
	for i, f := range features {
		w.Write(&f.point)
		for j, v := range f.attrs {
			require.NoError(t, w.WriteAttribute(i, j, v))
		}
	}
	w.Close()
	return path
}

func TestLoadShapefile(t *testing.T) {
	dir := t.TempDir()
	shpPath := writeTestShapefile(t, dir)
	dbPath := filepath.Join(dir, "places.sqlite")

	n, err := LoadShapefile(context.Background(), dbPath, shpPath, Options{
		KeyField:  "place_id",
		NameField: "name",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var name, category string
	var lat, lng float64
	err = db.QueryRow(
		`select name, latitude, longitude, category from places where id = ?`, "pl-1",
	).Scan(&name, &lat, &lng, &category)
	require.NoError(t, err)
	assert.Equal(t, "Panhandle", name)
	assert.InDelta(t, 37.776145, lat, 1e-6)
	assert.InDelta(t, -122.433898, lng, 1e-6)
	assert.Equal(t, "park", category)

	// The keyless feature was skipped.
	var count int
	require.NoError(t, db.QueryRow(`select count(*) from places`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestLoadShapefile_CustomTable(t *testing.T) {
	dir := t.TempDir()
	shpPath := writeTestShapefile(t, dir)
	dbPath := filepath.Join(dir, "custom.sqlite")

	n, err := LoadShapefile(context.Background(), dbPath, shpPath, Options{
		Table:     "poi",
		KeyField:  "PLACE_ID",
		NameField: "NAME",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`select count(*) from poi`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestLoadShapefile_Reimport(t *testing.T) {
	dir := t.TempDir()
	shpPath := writeTestShapefile(t, dir)
	dbPath := filepath.Join(dir, "places.sqlite")
	opts := Options{KeyField: "place_id", NameField: "name"}

	_, err := LoadShapefile(context.Background(), dbPath, shpPath, opts)
	require.NoError(t, err)

	// Loading the same file again replaces rows instead of duplicating them.
	n, err := LoadShapefile(context.Background(), dbPath, shpPath, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`select count(*) from places`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestLoadShapefile_MissingFields(t *testing.T) {
	dir := t.TempDir()
	shpPath := writeTestShapefile(t, dir)
	dbPath := filepath.Join(dir, "places.sqlite")

	_, err := LoadShapefile(context.Background(), dbPath, shpPath, Options{})
	require.Error(t, err)

	_, err = LoadShapefile(context.Background(), dbPath, shpPath, Options{
		KeyField:  "nonexistent",
		NameField: "name",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no field")
}

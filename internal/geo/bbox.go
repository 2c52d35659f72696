// Package geo provides the bounding-box planner used to turn a point and a
// search radius into a rectangular spatial prefilter.
package geo

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// metersPerDegreeLat is the mean meridional degree length. It is not
// geodetically exact, but adequate for radius-bounded prefiltering.
const metersPerDegreeLat = 111194.927

// BBox represents a geographic bounding box in decimal degrees.
type BBox struct {
	MinLng float64 `json:"min_lng"`
	MinLat float64 `json:"min_lat"`
	MaxLng float64 `json:"max_lng"`
	MaxLat float64 `json:"max_lat"`
}

// Expand computes the bounding box that encloses a circle of radiusMeters
// around (lat, lng). The longitude delta is widened by 1/cos(lat) to correct
// for the narrowing of longitude lines away from the equator. At |lat| >= 90
// the cosine correction is skipped and the longitude delta equals the
// latitude delta; such input is otherwise invalid but must not divide by
// zero. The result is clamped to the valid coordinate domain and passed
// through even when degenerate: the store's spatial filter simply matches
// zero rows.
func Expand(lat, lng, radiusMeters float64) BBox {
	dLat := radiusMeters / metersPerDegreeLat
	dLng := dLat
	if math.Abs(lat) < 90 {
		dLng = dLat / math.Cos(lat*math.Pi/180)
	}
	return BBox{
		MinLng: math.Max(lng-dLng, -180),
		MinLat: math.Max(lat-dLat, -90),
		MaxLng: math.Min(lng+dLng, 180),
		MaxLat: math.Min(lat+dLat, 90),
	}
}

// WKTPoint encodes (lat, lng) as a WKT point, x before y.
func WKTPoint(lat, lng float64) (string, error) {
	p := geom.NewPointFlat(geom.XY, []float64{lng, lat})
	s, err := wkt.Marshal(p)
	if err != nil {
		return "", eris.Wrap(err, "geo: encode wkt point")
	}
	return s, nil
}

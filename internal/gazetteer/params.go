package gazetteer

import (
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/gazetteer/internal/geo"
)

// DefaultRadiusMeters bounds a nearest search when the caller does not
// override it.
const DefaultRadiusMeters = 5000

// Point is a query centroid in decimal degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// SearchParams holds the derived inputs for one nearest search. It is
// constructed per request and discarded after query execution. The bounding
// box is always derived from the centroid and radius, never supplied by the
// client.
type SearchParams struct {
	Centroid    *Point
	CentroidWKT string
	Box         geo.BBox
	Query       string
	Limit       int
}

// NewSearchParams derives a SearchParams from raw inputs. A nil centroid
// yields a purely textual (or unconstrained) search. The free-text query is
// NFC-normalized so that composed and decomposed spellings of the same place
// name match identically.
func NewSearchParams(centroid *Point, query string, radiusMeters float64, limit int) (SearchParams, error) {
	p := SearchParams{
		Centroid: centroid,
		Query:    norm.NFC.String(query),
		Limit:    limit,
	}
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}
	if centroid != nil {
		p.Box = geo.Expand(centroid.Latitude, centroid.Longitude, radiusMeters)
		wkt, err := geo.WKTPoint(centroid.Latitude, centroid.Longitude)
		if err != nil {
			return SearchParams{}, err
		}
		p.CentroidWKT = wkt
	}
	return p, nil
}

// Unconstrained reports whether the search carries neither a centroid nor a
// text filter. Such a query is legal at this layer and selects without a
// WHERE clause; callers that require distance ranking are expected to reject
// it upstream (see the require_criteria config gate).
func (p SearchParams) Unconstrained() bool {
	return p.Centroid == nil && p.Query == ""
}

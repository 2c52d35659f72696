// Package gazetteer implements the multi-source geospatial query engine:
// pluggable data sources over incompatible native schemas, normalized into
// one canonical place-record shape with stable identifiers.
package gazetteer

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
)

// Lexicon type identifiers carried in the JSON form of every record.
const (
	LexiconPlace = "community.lexicon.location.place"
	LexiconGeo   = "community.lexicon.location.geo"
)

// Location is a WGS-84 point in decimal degrees, 6-decimal precision.
type Location struct {
	Type      string  `json:"$type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PlaceRecord is the canonical record returned to clients, normalized from
// whatever shape the backing dataset uses. Location is always present;
// DisplayName and Attributes degrade gracefully. DistanceMeters is nil
// whenever no centroid was supplied to the search, never a zero sentinel.
type PlaceRecord struct {
	Type        string         `json:"$type"`
	RecordKey   string         `json:"recordKey"`
	Location    Location       `json:"location"`
	DisplayName string         `json:"displayName"`
	Attributes  map[string]any `json:"attributes"`

	// DistanceMeters is per-query metadata, not part of the record value;
	// the response envelope carries it alongside the record.
	DistanceMeters *int64 `json:"-"`
}

// Reserved column aliases every source query projects its native schema onto.
const (
	colKey       = "rkey"
	colLatitude  = "latitude"
	colLongitude = "longitude"
	colName      = "name"
	colDistance  = "distance_m"
)

// normalizeRow maps one raw store row into a PlaceRecord. The identifier,
// coordinate and display-name columns are popped into named fields; every
// remaining column passes through verbatim as an attribute. Coordinates
// arrive from the store as decimal-formatted strings and are parsed here, at
// the boundary. A missing name is an empty string; a missing key or
// coordinate is a SchemaError.
func normalizeRow(collection string, row map[string]any) (*PlaceRecord, error) {
	rec := &PlaceRecord{Type: LexiconPlace}

	key, ok := row[colKey]
	if !ok || key == nil {
		return nil, &SchemaError{Collection: collection, Column: colKey}
	}
	rec.RecordKey = fmt.Sprint(key)
	delete(row, colKey)

	lat, err := popCoordinate(collection, row, colLatitude)
	if err != nil {
		return nil, err
	}
	lng, err := popCoordinate(collection, row, colLongitude)
	if err != nil {
		return nil, err
	}
	rec.Location = Location{Type: LexiconGeo, Latitude: lat, Longitude: lng}

	if name, ok := row[colName]; ok {
		if name != nil {
			rec.DisplayName = fmt.Sprint(name)
		}
		delete(row, colName)
	}

	if dist, ok := row[colDistance]; ok {
		delete(row, colDistance)
		d, err := coerceInt64(dist)
		if err != nil {
			return nil, eris.Wrapf(err, "gazetteer: %s: distance column", collection)
		}
		rec.DistanceMeters = &d
	}

	rec.Attributes = row
	return rec, nil
}

func popCoordinate(collection string, row map[string]any, column string) (float64, error) {
	v, ok := row[column]
	if !ok || v == nil {
		return 0, &SchemaError{Collection: collection, Column: column}
	}
	delete(row, column)

	switch t := v.(type) {
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, eris.Wrapf(err, "gazetteer: %s: parse %s", collection, column)
		}
		return f, nil
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	default:
		return 0, eris.Errorf("gazetteer: %s: %s has unexpected type %T", collection, column, v)
	}
}

func coerceInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int32:
		return int64(t), nil
	case int:
		return int64(t), nil
	case float64:
		return int64(t), nil
	default:
		return 0, eris.Errorf("unexpected integer type %T", v)
	}
}

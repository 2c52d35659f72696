package gazetteer

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// SourceSpec is the column mapping for one backing dataset: which native
// columns supply the record key, the coordinates and the display name, and
// which pass through as attributes. The mapping is configuration data; the
// query control structure is shared across all sources. Latitude and
// Longitude are numeric SQL expressions in the source's dialect; the dialect
// formats them to decimal(10,6) text for the normalization boundary.
type SourceSpec struct {
	Collection string   `yaml:"collection"`
	Table      string   `yaml:"table"`
	Key        string   `yaml:"key"`
	Name       string   `yaml:"name"`
	Latitude   string   `yaml:"latitude"`
	Longitude  string   `yaml:"longitude"`
	Geometry   string   `yaml:"geometry"`
	Columns    []string `yaml:"columns"`
	Predicates []string `yaml:"predicates"`
}

// Validate checks that the mapping names everything the normalizer needs.
func (s SourceSpec) Validate() error {
	switch {
	case s.Collection == "":
		return eris.New("gazetteer: spec missing collection")
	case s.Table == "":
		return eris.Errorf("gazetteer: spec %s missing table", s.Collection)
	case s.Key == "":
		return eris.Errorf("gazetteer: spec %s missing key column", s.Collection)
	case s.Name == "":
		return eris.Errorf("gazetteer: spec %s missing name column", s.Collection)
	case s.Latitude == "" || s.Longitude == "":
		return eris.Errorf("gazetteer: spec %s missing coordinate expressions", s.Collection)
	}
	return nil
}

// FoursquareSpec maps the commercial places dataset (Postgres/PostGIS). The
// freshness predicates exclude records that predate the dataset's 2020
// refresh cut or have since closed.
var FoursquareSpec = SourceSpec{
	Collection: "com.foursquare.places",
	Table:      "places",
	Key:        "fsq_place_id",
	Name:       "name",
	Latitude:   "latitude",
	Longitude:  "longitude",
	Geometry:   "geom",
	Columns: []string{
		"fsq_place_id",
		"address",
		"locality",
		"postcode",
		"region",
		"country",
		"date_created",
		"date_refreshed",
		"fsq_category_labels",
	},
	Predicates: []string{
		"date_refreshed > '2020-03-15'",
		"date_closed is null",
	},
}

// OvertureSpec maps the open map places dataset (SQLite snapshot).
var OvertureSpec = SourceSpec{
	Collection: "org.overturemaps.places",
	Table:      "places",
	Key:        "id",
	Name:       "name",
	Latitude:   "latitude",
	Longitude:  "longitude",
	Columns: []string{
		"id",
		"categories",
		"addresses",
		"websites",
		"socials",
		"phones",
		"brand",
		"confidence",
	},
}

// builtinSpecs are the mappings selectable by name from configuration.
var builtinSpecs = map[string]SourceSpec{
	"foursquare": FoursquareSpec,
	"overture":   OvertureSpec,
}

// BuiltinSpec returns a named built-in column mapping.
func BuiltinSpec(name string) (SourceSpec, bool) {
	s, ok := builtinSpecs[name]
	return s, ok
}

// LoadSpec reads a custom column mapping from a YAML file.
func LoadSpec(path string) (SourceSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SourceSpec{}, eris.Wrapf(err, "gazetteer: read spec %s", path)
	}
	var s SourceSpec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return SourceSpec{}, eris.Wrapf(err, "gazetteer: parse spec %s", path)
	}
	if err := s.Validate(); err != nil {
		return SourceSpec{}, err
	}
	return s, nil
}

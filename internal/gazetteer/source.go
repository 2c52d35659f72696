package gazetteer

import "context"

// Source is the capability one backing dataset exposes: single-record lookup
// and nearest search, both returning canonical PlaceRecords. Implementations
// own their column mapping and SQL dialect exclusively and must be safe for
// concurrent read-only use.
type Source interface {
	// Collection returns the stable collection identifier this source backs.
	Collection() string

	// FetchByKey looks up a single record by its source-scoped key. Zero
	// rows is ErrNotFound, not a failure.
	FetchByKey(ctx context.Context, rkey string) (*PlaceRecord, error)

	// FetchNearest runs a bounded nearest search. Results are ordered by
	// ascending distance when the params carry a centroid; without one the
	// result set is an arbitrary slice of the dataset with nil distances.
	FetchNearest(ctx context.Context, p SearchParams) ([]PlaceRecord, error)

	// Close releases the source's store handle.
	Close() error
}

package gazetteer

import (
	"context"
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// uriScheme prefixes every record URI.
const uriScheme = "at"

// Hit pairs a normalized record with the collection it came from, so
// federated results keep their provenance for URI construction.
type Hit struct {
	Collection string
	Record     PlaceRecord
}

// Registry holds the fixed set of data sources keyed by collection
// identifier. Registration is immutable after construction; concurrent
// requests read it without locking.
type Registry struct {
	repo        string
	sources     map[string]Source
	collections []string
}

// NewRegistry builds a registry over the given sources. Collection
// identifiers must be unique.
func NewRegistry(repo string, sources ...Source) (*Registry, error) {
	if repo == "" {
		return nil, eris.New("gazetteer: registry repo identifier is empty")
	}
	r := &Registry{
		repo:    repo,
		sources: make(map[string]Source, len(sources)),
	}
	for _, src := range sources {
		c := src.Collection()
		if _, dup := r.sources[c]; dup {
			return nil, eris.Errorf("gazetteer: duplicate collection %q", c)
		}
		r.sources[c] = src
		r.collections = append(r.collections, c)
	}
	sort.Strings(r.collections)
	return r, nil
}

// Resolve routes a collection identifier to its source.
func (r *Registry) Resolve(collection string) (Source, error) {
	src, ok := r.sources[collection]
	if !ok {
		return nil, &UnknownCollectionError{Collection: collection}
	}
	return src, nil
}

// Collections returns the registered collection identifiers in stable order.
func (r *Registry) Collections() []string {
	return r.collections
}

// RecordURI gives a record its stable external reference.
func (r *Registry) RecordURI(collection, rkey string) string {
	return fmt.Sprintf("%s://%s/%s/%s", uriScheme, r.repo, collection, rkey)
}

// NearestAll fans the same nearest search out to every registered source
// concurrently and merges the results ascending by distance, capped at the
// params limit. Records without a computed distance sort last; ties break on
// collection then key so the merge is deterministic.
func (r *Registry) NearestAll(ctx context.Context, p SearchParams) ([]Hit, error) {
	g, ctx := errgroup.WithContext(ctx)
	perSource := make([][]Hit, len(r.collections))

	for i, collection := range r.collections {
		src := r.sources[collection]
		g.Go(func() error {
			records, err := src.FetchNearest(ctx, p)
			if err != nil {
				return err
			}
			hits := make([]Hit, len(records))
			for j, rec := range records {
				hits[j] = Hit{Collection: collection, Record: rec}
			}
			perSource[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []Hit
	for _, hits := range perSource {
		merged = append(merged, hits...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		di, dj := hitDistance(merged[i]), hitDistance(merged[j])
		if di != dj {
			return di < dj
		}
		if merged[i].Collection != merged[j].Collection {
			return merged[i].Collection < merged[j].Collection
		}
		return merged[i].Record.RecordKey < merged[j].Record.RecordKey
	})
	if p.Limit > 0 && len(merged) > p.Limit {
		merged = merged[:p.Limit]
	}
	return merged, nil
}

// Close closes every source, returning the first failure.
func (r *Registry) Close() error {
	var first error
	for _, c := range r.collections {
		if err := r.sources[c].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func hitDistance(h Hit) int64 {
	if h.Record.DistanceMeters == nil {
		return int64(^uint64(0) >> 1)
	}
	return *h.Record.DistanceMeters
}

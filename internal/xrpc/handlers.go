package xrpc

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gazetteer/internal/gazetteer"
)

// Envelope error identifiers. These are data-level outcomes: the XRPC call
// itself succeeds and the envelope carries the error field.
const (
	errInvalidQuery       = "InvalidQuery"
	errInvalidCoordinates = "InvalidCoordinates"
	errUnknownCollection  = "UnknownCollection"
	errRecordNotFound     = "RecordNotFound"
)

type queryMeta struct {
	Parameters map[string]string `json:"parameters"`
	ElapsedMS  int64             `json:"elapsed_ms"`
}

type recordEnvelope struct {
	URI       string                 `json:"uri"`
	DistanceM *int64                 `json:"distance_m,omitempty"`
	Value     *gazetteer.PlaceRecord `json:"value"`
}

type searchEnvelope struct {
	Records []recordEnvelope `json:"records"`
	Query   queryMeta        `json:"_query"`
}

type getEnvelope struct {
	URI   string                 `json:"uri"`
	Value *gazetteer.PlaceRecord `json:"value"`
	Query queryMeta              `json:"_query"`
}

type errorEnvelope struct {
	Error string    `json:"error"`
	Query queryMeta `json:"_query"`
}

// searchRecords finds the records nearest a point, optionally filtered by a
// case-insensitive substring of the display name. Without a collection
// parameter the search federates across every registered collection.
func (s *Server) searchRecords(ctx context.Context, params url.Values) (int, any) {
	start := time.Now()
	meta := func() queryMeta {
		return queryMeta{Parameters: echoParams(params), ElapsedMS: time.Since(start).Milliseconds()}
	}

	collection := params.Get("collection")
	latStr := params.Get("latitude")
	lngStr := params.Get("longitude")
	text := params.Get("q")

	// At least one search criterion is required before any store is touched.
	if latStr == "" && lngStr == "" && text == "" {
		return http.StatusOK, errorEnvelope{Error: errInvalidQuery, Query: meta()}
	}

	var centroid *gazetteer.Point
	if latStr != "" || lngStr != "" {
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lng, errLng := strconv.ParseFloat(lngStr, 64)
		if errLat != nil || errLng != nil {
			return http.StatusOK, errorEnvelope{Error: errInvalidCoordinates, Query: meta()}
		}
		centroid = &gazetteer.Point{Latitude: lat, Longitude: lng}
	}
	if centroid == nil && text == "" {
		return http.StatusOK, errorEnvelope{Error: errInvalidQuery, Query: meta()}
	}

	searchParams, err := gazetteer.NewSearchParams(centroid, text, s.query.RadiusMeters, s.limit(params))
	if err != nil {
		return s.fail(err, meta())
	}

	var hits []gazetteer.Hit
	if collection == "" {
		hits, err = s.registry.NearestAll(ctx, searchParams)
	} else {
		var src gazetteer.Source
		src, err = s.registry.Resolve(collection)
		if err == nil {
			var records []gazetteer.PlaceRecord
			records, err = src.FetchNearest(ctx, searchParams)
			hits = make([]gazetteer.Hit, len(records))
			for i, rec := range records {
				hits[i] = gazetteer.Hit{Collection: collection, Record: rec}
			}
		}
	}
	if err != nil {
		var unknown *gazetteer.UnknownCollectionError
		if errors.As(err, &unknown) {
			return http.StatusOK, errorEnvelope{Error: errUnknownCollection, Query: meta()}
		}
		return s.fail(err, meta())
	}

	records := make([]recordEnvelope, len(hits))
	for i, h := range hits {
		rec := h.Record
		records[i] = recordEnvelope{
			URI:       s.registry.RecordURI(h.Collection, rec.RecordKey),
			DistanceM: rec.DistanceMeters,
			Value:     &rec,
		}
	}
	return http.StatusOK, searchEnvelope{Records: records, Query: meta()}
}

// getRecord looks up a single record by collection and key.
func (s *Server) getRecord(ctx context.Context, params url.Values) (int, any) {
	start := time.Now()
	meta := func() queryMeta {
		return queryMeta{Parameters: echoParams(params), ElapsedMS: time.Since(start).Milliseconds()}
	}

	collection := params.Get("collection")
	rkey := params.Get("rkey")
	if collection == "" || rkey == "" {
		return http.StatusOK, errorEnvelope{Error: errInvalidQuery, Query: meta()}
	}

	src, err := s.registry.Resolve(collection)
	if err != nil {
		var unknown *gazetteer.UnknownCollectionError
		if errors.As(err, &unknown) {
			return http.StatusOK, errorEnvelope{Error: errUnknownCollection, Query: meta()}
		}
		return s.fail(err, meta())
	}

	rec, err := src.FetchByKey(ctx, rkey)
	if err != nil {
		if eris.Is(err, gazetteer.ErrNotFound) {
			return http.StatusOK, errorEnvelope{Error: errRecordNotFound, Query: meta()}
		}
		return s.fail(err, meta())
	}

	return http.StatusOK, getEnvelope{
		URI:   s.registry.RecordURI(collection, rec.RecordKey),
		Value: rec,
		Query: meta(),
	}
}

// fail maps execution and schema faults to a method-level failure; the RPC
// layer's own fault reporting takes over from here.
func (s *Server) fail(err error, meta queryMeta) (int, any) {
	zap.L().Error("xrpc method failed",
		zap.Any("parameters", meta.Parameters),
		zap.Error(err),
	)
	return http.StatusInternalServerError, xrpcError{
		Error:   "InternalError",
		Message: err.Error(),
	}
}

// limit resolves the requested result cap against the configured default and
// ceiling. Unparseable or non-positive values fall back to the default.
func (s *Server) limit(params url.Values) int {
	limit := s.query.DefaultLimit
	if raw := params.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if s.query.MaxLimit > 0 && limit > s.query.MaxLimit {
		limit = s.query.MaxLimit
	}
	return limit
}

func echoParams(params url.Values) map[string]string {
	echo := make(map[string]string, len(params))
	for k := range params {
		echo[k] = params.Get(k)
	}
	return echo
}

package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/gazetteer/internal/gazetteer"
)

var (
	nearestCollection string
	nearestLat        float64
	nearestLng        float64
	nearestQuery      string
	nearestRadius     float64
	nearestLimit      int
)

var nearestCmd = &cobra.Command{
	Use:   "nearest",
	Short: "Query the records nearest a point",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		registry, err := initRegistry(ctx)
		if err != nil {
			return err
		}
		defer registry.Close()

		var centroid *gazetteer.Point
		if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
			if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
				return eris.New("both --lat and --lng are required for a spatial search")
			}
			centroid = &gazetteer.Point{Latitude: nearestLat, Longitude: nearestLng}
		}
		if centroid == nil && nearestQuery == "" && cfg.Query.RequireCriteria {
			return eris.New("unconstrained search rejected: supply --lat/--lng or --q, or disable query.require_criteria")
		}

		limit := nearestLimit
		if limit <= 0 {
			limit = cfg.Query.DefaultLimit
		}
		radius := nearestRadius
		if radius <= 0 {
			radius = cfg.Query.RadiusMeters
		}

		params, err := gazetteer.NewSearchParams(centroid, nearestQuery, radius, limit)
		if err != nil {
			return err
		}

		var hits []gazetteer.Hit
		if nearestCollection == "" {
			hits, err = registry.NearestAll(ctx, params)
		} else {
			src, rerr := registry.Resolve(nearestCollection)
			if rerr != nil {
				return rerr
			}
			var records []gazetteer.PlaceRecord
			records, err = src.FetchNearest(ctx, params)
			for _, rec := range records {
				hits = append(hits, gazetteer.Hit{Collection: nearestCollection, Record: rec})
			}
		}
		if err != nil {
			return err
		}

		type result struct {
			URI       string                 `json:"uri"`
			DistanceM *int64                 `json:"distance_m,omitempty"`
			Value     *gazetteer.PlaceRecord `json:"value"`
		}
		results := make([]result, len(hits))
		for i, h := range hits {
			rec := h.Record
			results[i] = result{
				URI:       registry.RecordURI(h.Collection, rec.RecordKey),
				DistanceM: rec.DistanceMeters,
				Value:     &rec,
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

func init() {
	nearestCmd.Flags().StringVar(&nearestCollection, "collection", "", "collection to search (default all)")
	nearestCmd.Flags().Float64Var(&nearestLat, "lat", 0, "centroid latitude")
	nearestCmd.Flags().Float64Var(&nearestLng, "lng", 0, "centroid longitude")
	nearestCmd.Flags().StringVar(&nearestQuery, "q", "", "display-name substring filter")
	nearestCmd.Flags().Float64Var(&nearestRadius, "radius", 0, "search radius in meters (default from config)")
	nearestCmd.Flags().IntVar(&nearestLimit, "limit", 0, "maximum results (default from config)")
	rootCmd.AddCommand(nearestCmd)
}

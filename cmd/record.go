package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/gazetteer/internal/gazetteer"
)

var recordCollection string

var recordCmd = &cobra.Command{
	Use:   "record <rkey>",
	Short: "Look up a single record by key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rkey := args[0]

		registry, err := initRegistry(ctx)
		if err != nil {
			return err
		}
		defer registry.Close()

		src, err := registry.Resolve(recordCollection)
		if err != nil {
			return err
		}

		rec, err := src.FetchByKey(ctx, rkey)
		if err != nil {
			return err
		}

		out := struct {
			URI   string                 `json:"uri"`
			Value *gazetteer.PlaceRecord `json:"value"`
		}{
			URI:   registry.RecordURI(recordCollection, rec.RecordKey),
			Value: rec,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	recordCmd.Flags().StringVar(&recordCollection, "collection", "", "collection the record belongs to")
	recordCmd.MarkFlagRequired("collection")
	rootCmd.AddCommand(recordCmd)
}

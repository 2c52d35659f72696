package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/gazetteer/internal/loader"
)

var (
	loadDB        string
	loadTable     string
	loadKeyField  string
	loadNameField string
)

var loadCmd = &cobra.Command{
	Use:   "load <shapefile>",
	Short: "Import a point shapefile into a SQLite snapshot",
	Long:  "Reads point features from a shapefile and writes them into a SQLite snapshot with the layout the overture column mapping expects, so the result can be served as a collection.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := loader.LoadShapefile(cmd.Context(), loadDB, args[0], loader.Options{
			Table:     loadTable,
			KeyField:  loadKeyField,
			NameField: loadNameField,
		})
		if err != nil {
			return err
		}
		fmt.Printf("loaded %d records into %s\n", n, loadDB)
		return nil
	},
}

func init() {
	loadCmd.Flags().StringVar(&loadDB, "db", "", "target SQLite snapshot path")
	loadCmd.Flags().StringVar(&loadTable, "table", "places", "target table")
	loadCmd.Flags().StringVar(&loadKeyField, "key-field", "id", "DBF attribute used as record key")
	loadCmd.Flags().StringVar(&loadNameField, "name-field", "name", "DBF attribute used as display name")
	loadCmd.MarkFlagRequired("db")
	rootCmd.AddCommand(loadCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gazetteer/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "gazetteer",
	Short: "Geospatial place record service",
	Long:  "Serves place records from heterogeneous backing datasets over a namespaced XRPC method space: nearest search, text filtering, and single-record lookup with stable at:// URIs.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

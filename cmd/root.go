package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/addrmap/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "addrmap",
	Short: "Geocode Korean addresses and aggregate them into map markers",
	Long:  "Normalizes Korean addresses, resolves them through the VWorld geocoder (road first, then parcel), and groups repeated locations into counted markers for the map view.",
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

package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "tilecat",
		Short: "Tile catalog tool for airborne lidar point clouds",
		Long: `Tilecat builds and transforms virtual point cloud catalogs of airborne
lidar tiles.

It resolves point cloud files, directories, and catalog documents into one
deduplicated catalog, groups tiles on the survey grid to find repeat
acquisitions, selects and filters observations, validates canonical tile
names, and exports catalogs as documents, GeoPackage layers, or attribute
tables.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			logLevel := slog.LevelInfo
			if verbose {
				logLevel = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
			slog.SetDefault(logger)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// Add subcommands
	cmd.AddCommand(newResolveCmd())
	cmd.AddCommand(newClassifyCmd())
	cmd.AddCommand(newSelectCmd())
	cmd.AddCommand(newFilterCmd())
	cmd.AddCommand(newDatesCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newRenameCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

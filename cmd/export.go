package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lidar-tools/tilecat/internal/gpkg"
	"github.com/lidar-tools/tilecat/internal/report"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var output string
	var layer string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "export [inputs...]",
		Short: "Export a catalog as a GeoPackage layer or attribute table",
		Long: `Export writes the resolved catalog in the format named by the output
extension: a GeoPackage with tile footprint polygons for .gpkg, or a flat
attribute table for .parquet and .csv.`,
		Example: `  # Tile footprints for a desktop GIS
  tilecat export survey.vpc --output tiles.gpkg

  # Attribute table for further analysis
  tilecat export ./tiles --output tiles.parquet`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeExport(cmd.Context(), args, output, layer, overwrite)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, .gpkg, .parquet, or .csv (required)")
	cmd.Flags().StringVar(&layer, "layer", "tiles", "Layer name for GeoPackage output")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace the output file if it exists")

	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func executeExport(ctx context.Context, args []string, output, layer string, overwrite bool) error {
	catalog, err := resolveCatalog(ctx, args)
	if err != nil {
		return err
	}
	if catalog.IsEmpty() {
		slog.Warn("No catalog entries resolved", "inputs", len(args))
		return nil
	}

	switch strings.ToLower(filepath.Ext(output)) {
	case ".gpkg":
		if err := gpkg.Write(output, catalog, layer, overwrite); err != nil {
			return err
		}
	case ".parquet":
		if err := checkOverwrite(output, overwrite); err != nil {
			return err
		}
		if err := report.WriteCatalogParquet(output, catalog); err != nil {
			return err
		}
	case ".csv":
		if err := checkOverwrite(output, overwrite); err != nil {
			return err
		}
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		if err := report.WriteCatalogCSV(f, catalog); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported export format: %s (expected .gpkg, .parquet, or .csv)", output)
	}

	fmt.Printf("Exported %d entries to %s\n", catalog.Len(), output)
	return nil
}

func checkOverwrite(path string, overwrite bool) error {
	if overwrite {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("output path already exists: %s", path)
	}
	return nil
}

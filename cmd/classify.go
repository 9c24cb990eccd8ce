package cmd

import (
	"context"

	"github.com/lidar-tools/tilecat/internal/grid"
	"github.com/lidar-tools/tilecat/internal/multitemp"
	"github.com/lidar-tools/tilecat/internal/report"
	"github.com/spf13/cobra"
)

func newClassifyCmd() *cobra.Command {
	var cell float64
	var tolerance float64
	var partial bool
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "classify [inputs...]",
		Short: "Group tiles by grid cell and report repeat acquisitions",
		Long: `Classify snaps every tile onto the survey grid and groups entries that
cover the same cell. A cell observed in more than one acquisition is
multi-temporal.

Entries whose bounding box does not cover exactly one grid cell are dropped
unless --partial keeps them bucketed by their lower-left corner.`,
		Example: `  # Summarize a survey as text
  tilecat classify ./tiles

  # Tile rows as CSV on a 2 km grid
  tilecat classify survey.vpc --cell 2000 --format csv --output tiles.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeClassify(cmd.Context(), args, classifyOptions(cell, tolerance, partial), format, output)
		},
	}

	cmd.Flags().Float64Var(&cell, "cell", grid.DefaultCellSize, "Grid cell size in CRS units")
	cmd.Flags().Float64Var(&tolerance, "tolerance", grid.DefaultTolerance, "Snap tolerance for tile corners in CRS units")
	cmd.Flags().BoolVar(&partial, "partial", false, "Keep entries that do not cover exactly one grid cell")
	cmd.Flags().StringVar(&format, "format", report.FormatText, "Report format (text, csv, json, yaml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the report to a file instead of stdout")

	return cmd
}

func classifyOptions(cell, tolerance float64, partial bool) multitemp.Options {
	return multitemp.Options{
		CellSize:        cell,
		Tolerance:       tolerance,
		EntireTilesOnly: !partial,
	}
}

func executeClassify(ctx context.Context, args []string, opts multitemp.Options, format, output string) error {
	catalog, err := resolveCatalog(ctx, args)
	if err != nil {
		return err
	}
	cls, err := multitemp.Classify(catalog, opts)
	if err != nil {
		return err
	}

	out, err := openOutput(output)
	if err != nil {
		return err
	}
	defer out.Close()
	return report.WriteClassification(out, cls, format)
}

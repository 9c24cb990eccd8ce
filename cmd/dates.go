package cmd

import (
	"context"
	"fmt"

	"github.com/lidar-tools/tilecat/internal/grid"
	"github.com/lidar-tools/tilecat/internal/refdates"
	"github.com/lidar-tools/tilecat/internal/vpc"
	"github.com/spf13/cobra"
)

func newDatesCmd() *cobra.Command {
	var table string
	var cell float64
	var tolerance float64
	var output string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "dates [inputs...]",
		Short: "Fill in acquisition times from a reference date table",
		Long: `Dates assigns acquisition times from a per-tile reference table to
entries whose own time is missing or only taken from file metadata.

The table is a CSV or parquet file with minx, miny, and date columns, keyed
by the tile's lower-left corner in kilometres. Entries dated from per-point
GPS time are left untouched. Entries dated from file metadata get the latest
reference date not after their current one; undated entries get the latest
reference date for their tile.`,
		Example: `  # Backfill survey dates from the producer's flight log
  tilecat dates survey.vpc --table flights.csv --output dated.vpc

  # Reference dates shipped as parquet
  tilecat dates ./tiles --table flights.parquet --output dated.vpc`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeDates(cmd.Context(), args, table, cell, tolerance, output, overwrite)
		},
	}

	cmd.Flags().StringVar(&table, "table", "", "Reference date table, .csv or .parquet (required)")
	cmd.Flags().Float64Var(&cell, "cell", grid.DefaultCellSize, "Grid cell size in CRS units")
	cmd.Flags().Float64Var(&tolerance, "tolerance", grid.DefaultTolerance, "Snap tolerance for tile corners in CRS units")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Path of the catalog document to write (required)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace the output file if it exists")

	_ = cmd.MarkFlagRequired("table")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func executeDates(ctx context.Context, args []string, table string, cell, tolerance float64, output string, overwrite bool) error {
	ref, err := refdates.Load(table)
	if err != nil {
		return err
	}
	catalog, err := resolveCatalog(ctx, args)
	if err != nil {
		return err
	}

	dated, reassigned := refdates.Apply(catalog, ref, cell, tolerance)
	if err := vpc.WriteDocument(output, dated, overwrite); err != nil {
		return err
	}
	fmt.Printf("Assigned reference dates to %d of %d entries in %s\n", reassigned, dated.Len(), output)
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/lidar-tools/tilecat/internal/grid"
	"github.com/lidar-tools/tilecat/internal/multitemp"
	"github.com/lidar-tools/tilecat/internal/vpc"
	"github.com/spf13/cobra"
)

func newSelectCmd() *cobra.Command {
	var mode string
	var rank int
	var count string
	var cell float64
	var tolerance float64
	var partial bool
	var output string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "select [inputs...]",
		Short: "Select observations per grid tile from a multi-temporal catalog",
		Long: `Select classifies the inputs on the survey grid and keeps a subset of
observations per tile.

Modes:
  first    the earliest dated observation of every tile
  latest   the most recent dated observation of every tile
  nth      the observation with the given rank (1 = first), skipping tiles
           with fewer dated observations
  count    every observation of tiles with exactly --count observations,
           or of multi-temporal tiles when --count is "multi"

Selected entries keep the order of the source catalog. Tiles without any
dated observation are skipped by first, latest, and nth.`,
		Example: `  # Most recent acquisition of every tile
  tilecat select ./tiles --mode latest --output latest.vpc

  # Second observation of tiles surveyed at least twice
  tilecat select survey.vpc --mode nth --rank 2 --output second.vpc

  # All observations of tiles surveyed exactly three times
  tilecat select survey.vpc --mode count --count 3 --output three.vpc`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeSelect(cmd.Context(), args, mode, rank, count,
				classifyOptions(cell, tolerance, partial), output, overwrite)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "latest", "Selection mode (first, latest, nth, count)")
	cmd.Flags().IntVar(&rank, "rank", 1, "Observation rank for --mode nth (1 = first)")
	cmd.Flags().StringVar(&count, "count", "multi", `Observation count for --mode count (a number or "multi")`)
	cmd.Flags().Float64Var(&cell, "cell", grid.DefaultCellSize, "Grid cell size in CRS units")
	cmd.Flags().Float64Var(&tolerance, "tolerance", grid.DefaultTolerance, "Snap tolerance for tile corners in CRS units")
	cmd.Flags().BoolVar(&partial, "partial", false, "Keep entries that do not cover exactly one grid cell")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Path of the catalog document to write (required)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace the output file if it exists")

	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func executeSelect(ctx context.Context, args []string, mode string, rank int, count string, opts multitemp.Options, output string, overwrite bool) error {
	catalog, err := resolveCatalog(ctx, args)
	if err != nil {
		return err
	}
	cls, err := multitemp.Classify(catalog, opts)
	if err != nil {
		return err
	}
	selected, err := selectObservations(cls, mode, rank, count)
	if err != nil {
		return err
	}
	if selected.IsEmpty() {
		slog.Warn("No observations matched the selection", "mode", mode)
	}
	if err := vpc.WriteDocument(output, selected, overwrite); err != nil {
		return err
	}
	fmt.Printf("Selected %d of %d entries into %s\n", selected.Len(), catalog.Len(), output)
	return nil
}

func selectObservations(cls *multitemp.Classification, mode string, rank int, count string) (*vpc.Catalog, error) {
	switch mode {
	case "first":
		return cls.First(), nil
	case "latest":
		return cls.Latest(), nil
	case "nth":
		return cls.Nth(rank)
	case "count":
		if count == "" || count == "multi" {
			return cls.ByCount(nil), nil
		}
		n, err := strconv.Atoi(count)
		if err != nil {
			return nil, fmt.Errorf("invalid --count value %q: expected a number or \"multi\"", count)
		}
		return cls.ByCount(&n), nil
	default:
		return nil, fmt.Errorf("unknown selection mode: %q", mode)
	}
}

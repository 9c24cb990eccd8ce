package cmd

import (
	"context"

	"github.com/lidar-tools/tilecat/internal/naming"
	"github.com/lidar-tools/tilecat/internal/report"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	params := naming.DefaultParams()
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "check [inputs...]",
		Short: "Validate tile file names against the canonical pattern",
		Long: `Check compares every entry's file name against the canonical form
prefix_zone_minx_miny_size_region_year, with coordinates and size in
kilometres on the survey grid.

The UTM zone comes from the catalog CRS and the year from each entry's
acquisition time. The region code is looked up in the boundary dataset named
by ` + regionsEnvVar + ` unless --region pins one.`,
		Example: `  # Report mismatches for a directory of tiles
  tilecat check ./tiles

  # Machine-readable report with a pinned region
  tilecat check survey.vpc --region ni --format csv --output names.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeCheck(cmd.Context(), args, params, format, output)
		},
	}

	cmd.Flags().StringVar(&params.Prefix, "prefix", naming.DefaultPrefix, "Product prefix of canonical names")
	cmd.Flags().IntVar(&params.Zone, "zone", 0, "UTM zone (default: derived from the catalog CRS)")
	cmd.Flags().StringVar(&params.Region, "region", "", "Region code (default: looked up per tile)")
	cmd.Flags().IntVar(&params.Year, "year", 0, "Acquisition year (default: per entry)")
	cmd.Flags().BoolVar(&params.COPC, "copc", false, "Expect cloud-optimized names (.copc.laz)")
	cmd.Flags().Float64Var(&params.CellSize, "cell", params.CellSize, "Grid cell size in CRS units")
	cmd.Flags().Float64Var(&params.Tolerance, "tolerance", params.Tolerance, "Snap tolerance for tile corners in CRS units")
	cmd.Flags().StringVar(&format, "format", report.FormatText, "Report format (text, csv, json, yaml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the report to a file instead of stdout")

	return cmd
}

func executeCheck(ctx context.Context, args []string, params naming.Params, format, output string) error {
	catalog, err := resolveCatalog(ctx, args)
	if err != nil {
		return err
	}
	checks, err := naming.Check(ctx, catalog, params, regionLookup())
	if err != nil {
		return err
	}

	out, err := openOutput(output)
	if err != nil {
		return err
	}
	defer out.Close()
	return report.WriteNameChecks(out, checks, format)
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lidar-tools/tilecat/internal/filter"
	"github.com/lidar-tools/tilecat/internal/vpc"
	"github.com/spf13/cobra"
)

func newFilterCmd() *cobra.Command {
	var extent string
	var extentEPSG int
	var start string
	var end string
	var output string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "filter [inputs...]",
		Short: "Narrow a catalog by extent or acquisition time",
		Long: `Filter keeps the entries whose footprint intersects the given extent
and whose acquisition time falls inside the given range.

The extent is a point "x,y", a box "xmin,ymin,xmax,ymax", or "@file.geojson"
for an arbitrary geometry. When --extent-epsg names a CRS different from the
catalog's, the extent is reprojected before testing. Time bounds accept a
year, month, day, or RFC 3339 instant; both ends are inclusive, and entries
without an acquisition time never match.`,
		Example: `  # Tiles around one coordinate
  tilecat filter survey.vpc --extent "547500,5724500" --output aoi.vpc

  # Tiles inside a WGS 84 polygon, flown in spring 2024
  tilecat filter survey.vpc --extent @aoi.geojson --extent-epsg 4326 \
    --start 2024-03 --end 2024-05 --output spring.vpc`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if extent == "" && start == "" && end == "" {
				return fmt.Errorf("nothing to filter: give --extent, --start, or --end")
			}
			return executeFilter(cmd.Context(), args, extent, extentEPSG, start, end, output, overwrite)
		},
	}

	cmd.Flags().StringVar(&extent, "extent", "", `Spatial filter: "x,y", "xmin,ymin,xmax,ymax", or @file.geojson`)
	cmd.Flags().IntVar(&extentEPSG, "extent-epsg", 0, "EPSG code of the extent coordinates (default: catalog CRS)")
	cmd.Flags().StringVar(&start, "start", "", "Earliest acquisition time (YYYY, YYYY-MM, YYYY-MM-DD, or RFC 3339)")
	cmd.Flags().StringVar(&end, "end", "", "Latest acquisition time (YYYY, YYYY-MM, YYYY-MM-DD, or RFC 3339)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Path of the catalog document to write (required)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace the output file if it exists")

	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func executeFilter(ctx context.Context, args []string, extent string, extentEPSG int, start, end, output string, overwrite bool) error {
	catalog, err := resolveCatalog(ctx, args)
	if err != nil {
		return err
	}
	total := catalog.Len()

	if extent != "" {
		ext, err := filter.ParseExtent(extent, extentEPSG)
		if err != nil {
			return err
		}
		catalog, err = filter.Spatial(catalog, ext)
		if err != nil {
			return err
		}
	}

	if start != "" || end != "" {
		kept, undated, err := filter.Temporal(catalog, start, end)
		if err != nil {
			return err
		}
		if undated > 0 {
			slog.Warn("Entries without acquisition time never match a time range", "skipped", undated)
		}
		catalog = kept
	}

	if catalog.IsEmpty() {
		slog.Warn("No entries matched the filters")
	}
	if err := vpc.WriteDocument(output, catalog, overwrite); err != nil {
		return err
	}
	fmt.Printf("Kept %d of %d entries in %s\n", catalog.Len(), total, output)
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lidar-tools/tilecat/internal/naming"
	"github.com/spf13/cobra"
)

func newRenameCmd() *cobra.Command {
	params := naming.DefaultParams()
	var apply bool

	cmd := &cobra.Command{
		Use:   "rename [inputs...]",
		Short: "Rename tile files to their canonical names",
		Long: `Rename plans a move to the canonical name for every file whose current
name does not match, keeping each file in its directory.

By default the plan is only printed. --apply executes it; a rename that
would overwrite an existing file aborts the run.`,
		Example: `  # Show what would be renamed
  tilecat rename ./tiles --region ni

  # Execute the plan
  tilecat rename ./tiles --region ni --apply`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRename(cmd.Context(), args, params, apply)
		},
	}

	cmd.Flags().StringVar(&params.Prefix, "prefix", naming.DefaultPrefix, "Product prefix of canonical names")
	cmd.Flags().IntVar(&params.Zone, "zone", 0, "UTM zone (default: derived from the catalog CRS)")
	cmd.Flags().StringVar(&params.Region, "region", "", "Region code (default: looked up per tile)")
	cmd.Flags().IntVar(&params.Year, "year", 0, "Acquisition year (default: per entry)")
	cmd.Flags().BoolVar(&params.COPC, "copc", false, "Produce cloud-optimized names (.copc.laz)")
	cmd.Flags().Float64Var(&params.CellSize, "cell", params.CellSize, "Grid cell size in CRS units")
	cmd.Flags().Float64Var(&params.Tolerance, "tolerance", params.Tolerance, "Snap tolerance for tile corners in CRS units")
	cmd.Flags().BoolVar(&apply, "apply", false, "Execute the renames instead of printing the plan")

	return cmd
}

func executeRename(ctx context.Context, args []string, params naming.Params, apply bool) error {
	catalog, err := resolveCatalog(ctx, args)
	if err != nil {
		return err
	}
	checks, err := naming.Check(ctx, catalog, params, regionLookup())
	if err != nil {
		return err
	}

	planned := 0
	for _, c := range checks {
		if c.Matches {
			continue
		}
		target := filepath.Join(filepath.Dir(c.Href), c.Expected)
		exists := false
		if _, err := os.Stat(target); err == nil {
			exists = true
		}

		if !apply {
			note := ""
			if exists {
				note = " (target exists)"
			}
			fmt.Printf("%s -> %s%s\n", c.Href, target, note)
			planned++
			continue
		}
		if exists {
			return fmt.Errorf("refusing to overwrite existing file: %s", target)
		}
		if err := os.Rename(c.Href, target); err != nil {
			return fmt.Errorf("failed to rename %s: %w", c.Href, err)
		}
		slog.Info("Renamed tile", "from", c.Href, "to", target)
		planned++
	}

	switch {
	case planned == 0:
		fmt.Println("All files already carry their canonical name")
	case apply:
		fmt.Printf("Renamed %d files\n", planned)
	default:
		fmt.Printf("%d files would be renamed, re-run with --apply to execute\n", planned)
	}
	return nil
}

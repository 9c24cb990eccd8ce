package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lidar-tools/tilecat/internal/vpc"
	"github.com/spf13/cobra"
)

func newResolveCmd() *cobra.Command {
	var output string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "resolve [inputs...]",
		Short: "Fold point cloud files and catalogs into one catalog document",
		Long: `Resolve folds point cloud files, directories, and existing catalog
documents into a single deduplicated catalog document.

Raw .las, .laz, and .copc.laz files are probed for extent, CRS, point count,
and acquisition time. When the same storage location appears more than once,
the first occurrence wins and later duplicates are dropped.`,
		Example: `  # Catalog a directory of tiles
  tilecat resolve ./tiles --output survey.vpc

  # Merge two catalogs, replacing an earlier result
  tilecat resolve north.vpc south.vpc --output merged.vpc --overwrite`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeResolve(cmd.Context(), args, output, overwrite)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Path of the catalog document to write (required)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace the output file if it exists")

	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func executeResolve(ctx context.Context, args []string, output string, overwrite bool) error {
	catalog, err := resolveCatalog(ctx, args)
	if err != nil {
		return err
	}
	if catalog.IsEmpty() {
		slog.Warn("No catalog entries resolved", "inputs", len(args))
		return nil
	}
	if err := vpc.WriteDocument(output, catalog, overwrite); err != nil {
		return err
	}
	fmt.Printf("Resolved %d entries into %s\n", catalog.Len(), output)
	return nil
}

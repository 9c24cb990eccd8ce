package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/lidar-tools/tilecat/internal/engine"
	"github.com/lidar-tools/tilecat/internal/naming"
	"github.com/lidar-tools/tilecat/internal/regions"
	"github.com/lidar-tools/tilecat/internal/vpc"
)

// regionsEnvVar points at the administrative boundary dataset (URL or file
// path) used to derive region codes when --region is not pinned.
const regionsEnvVar = "TILECAT_REGIONS_URL"

// resolveCatalog folds command line inputs into one deduplicated catalog.
func resolveCatalog(ctx context.Context, args []string) (*vpc.Catalog, error) {
	resolver := vpc.NewResolver(engine.Default())
	catalog, err := resolver.ResolveArgs(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve inputs: %w", err)
	}
	return catalog, nil
}

// regionLookup wires the boundary dataset from the environment. Returns nil
// when none is configured.
func regionLookup() naming.RegionLookup {
	source := os.Getenv(regionsEnvVar)
	if source == "" {
		return nil
	}
	return regions.NewLookup(source)
}

// openOutput returns the report destination, stdout for "" or "-".
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

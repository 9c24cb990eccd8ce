// Package naming assembles and checks canonical tile file names of the form
// prefix_zone_minx_miny_tilesize_region_year[.copc].ext.
package naming

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"

	"github.com/lidar-tools/tilecat/internal/grid"
	"github.com/lidar-tools/tilecat/internal/proj"
	"github.com/lidar-tools/tilecat/internal/vpc"
)

// DefaultPrefix is the survey product code carried by canonical names.
const DefaultPrefix = "3dm"

// RegionLookup resolves a bounding box to an administrative region code.
type RegionLookup interface {
	Region(ctx context.Context, bound orb.Bound, epsg int) (string, error)
}

// Params pin the name components that are not derived per entry. Zero
// values mean "derive": the zone from the entry's CRS, the region from the
// lookup, the year from the entry's datetime.
type Params struct {
	Prefix    string
	Zone      int
	Region    string
	Year      int
	COPC      bool
	CellSize  float64
	Tolerance float64
}

// DefaultParams derive everything per entry on the 1 km grid.
func DefaultParams() Params {
	return Params{
		Prefix:    DefaultPrefix,
		CellSize:  grid.DefaultCellSize,
		Tolerance: grid.DefaultTolerance,
	}
}

// NameCheck is one entry's naming verdict.
type NameCheck struct {
	Href     string `json:"href" yaml:"href"`
	Actual   string `json:"actual" yaml:"actual"`
	Expected string `json:"expected" yaml:"expected"`
	Matches  bool   `json:"matches" yaml:"matches"`
}

// ExpectedName assembles the canonical file name for one entry. The region
// must already be pinned in params; Check derives it per entry when needed.
func ExpectedName(e vpc.Entry, params Params) (string, error) {
	prefix := params.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	cell := params.CellSize
	if cell == 0 {
		cell = grid.DefaultCellSize
	}

	zone := params.Zone
	if zone == 0 {
		z, ok := proj.UTMZone(e.EPSG)
		if !ok {
			return "", fmt.Errorf("cannot derive a UTM zone from EPSG %d for %s", e.EPSG, e.Href)
		}
		zone = z
	}

	if params.Region == "" {
		return "", fmt.Errorf("no region code for %s", e.Href)
	}

	year := params.Year
	if year == 0 {
		if !e.HasDatetime() {
			return "", fmt.Errorf("cannot derive a year for undated entry %s", e.Href)
		}
		year = e.Datetime.UTC().Year()
	}

	snapped := grid.SnapBound(e.Bound, cell, params.Tolerance)
	minx := int(snapped.Min[0] / cell)
	miny := int(snapped.Min[1] / cell)

	size := int((snapped.Max[0] - snapped.Min[0]) / cell)
	if int((snapped.Max[1]-snapped.Min[1])/cell) > size {
		size = int((snapped.Max[1] - snapped.Min[1]) / cell)
	}
	if size < 1 {
		size = 1
	}

	name := fmt.Sprintf("%s_%d_%d_%d_%d_%s_%d", prefix, zone, minx, miny, size, params.Region, year)
	if params.COPC {
		name += ".copc"
	}
	return name + extensionOf(e.Href), nil
}

// extensionOf keeps the entry's extension, normalizing the copc marker out
// of it; the marker is appended separately. Entries without a recognizable
// extension default to .laz.
func extensionOf(href string) string {
	lower := strings.ToLower(filepath.Base(href))
	switch {
	case strings.HasSuffix(lower, ".copc.laz"):
		return ".laz"
	case strings.HasSuffix(lower, ".laz"):
		return ".laz"
	case strings.HasSuffix(lower, ".las"):
		return ".las"
	default:
		return ".laz"
	}
}

// Check compares every entry's file name against its canonical form. The
// catalog must be in a single CRS; the region lookup is consulted only for
// entries when params do not pin a region.
func Check(ctx context.Context, c *vpc.Catalog, params Params, lookup RegionLookup) ([]NameCheck, error) {
	if c.IsEmpty() {
		return nil, nil
	}
	epsg, err := c.SingleEPSG()
	if err != nil {
		return nil, err
	}

	checks := make([]NameCheck, 0, c.Len())
	for _, e := range c.Entries {
		p := params
		if p.Region == "" {
			if lookup == nil {
				return nil, fmt.Errorf("no region given and no region lookup configured")
			}
			region, err := lookup.Region(ctx, e.Bound, epsg)
			if err != nil {
				return nil, fmt.Errorf("region lookup for %s: %w", e.Href, err)
			}
			p.Region = region
		}

		expected, err := ExpectedName(e, p)
		if err != nil {
			return nil, err
		}
		actual := filepath.Base(e.Href)
		checks = append(checks, NameCheck{
			Href:     e.Href,
			Actual:   actual,
			Expected: expected,
			Matches:  actual == expected,
		})
	}
	return checks, nil
}

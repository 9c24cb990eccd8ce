package filter

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/lidar-tools/tilecat/internal/proj"
	"github.com/lidar-tools/tilecat/internal/vpc"
)

// Spatial keeps the entries whose bounding box intersects the extent. The
// extent is reprojected into the catalog's CRS when the two differ; the
// result preserves entry order and an extent matching nothing yields an
// empty catalog.
func Spatial(c *vpc.Catalog, ext Extent) (*vpc.Catalog, error) {
	if ext.Geometry == nil {
		return nil, fmt.Errorf("spatial filter needs an extent geometry")
	}
	if c.IsEmpty() {
		return vpc.New(), nil
	}
	epsg, err := c.SingleEPSG()
	if err != nil {
		return nil, err
	}

	geom := ext.Geometry
	if ext.EPSG != 0 && ext.EPSG != epsg {
		t, err := proj.Transform(ext.EPSG, epsg)
		if err != nil {
			return nil, fmt.Errorf("cannot reproject extent into the catalog CRS: %w", err)
		}
		geom = project.Geometry(orb.Clone(geom), proj.Point(t))
	}

	return c.Filter(func(e vpc.Entry) bool {
		return boundIntersects(e.Bound, geom)
	}), nil
}

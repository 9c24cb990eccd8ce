// Package filter narrows catalogs by spatial extent and acquisition time.
package filter

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Extent is a filter geometry together with the CRS its coordinates are
// expressed in. EPSG 0 means "same as the catalog".
type Extent struct {
	Geometry orb.Geometry
	EPSG     int
}

// ParseExtent reads an extent argument: "x,y" for a point,
// "xmin,ymin,xmax,ymax" for a box, or "@path" naming a GeoJSON file holding
// a geometry, feature, or feature collection.
func ParseExtent(arg string, epsg int) (Extent, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return Extent{}, fmt.Errorf("empty extent")
	}

	if path, ok := strings.CutPrefix(arg, "@"); ok {
		geom, err := readGeoJSON(path)
		if err != nil {
			return Extent{}, err
		}
		return Extent{Geometry: geom, EPSG: epsg}, nil
	}

	parts := strings.Split(arg, ",")
	coords := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Extent{}, fmt.Errorf("invalid extent coordinate %q: %w", strings.TrimSpace(p), err)
		}
		coords[i] = v
	}

	switch len(coords) {
	case 2:
		return Extent{Geometry: orb.Point{coords[0], coords[1]}, EPSG: epsg}, nil
	case 4:
		if coords[2] < coords[0] || coords[3] < coords[1] {
			return Extent{}, fmt.Errorf("extent box %q has max before min", arg)
		}
		b := orb.Bound{
			Min: orb.Point{coords[0], coords[1]},
			Max: orb.Point{coords[2], coords[3]},
		}
		return Extent{Geometry: b, EPSG: epsg}, nil
	default:
		return Extent{}, fmt.Errorf("extent %q has %d coordinates, want 2 (point) or 4 (box)", arg, len(coords))
	}
}

func readGeoJSON(path string) (orb.Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read extent geometry: %w", err)
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("invalid extent geometry %s: %w", path, err)
	}

	switch probe.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("invalid extent geometry %s: %w", path, err)
		}
		if len(fc.Features) == 0 {
			return nil, fmt.Errorf("extent geometry %s has no features", path)
		}
		if len(fc.Features) == 1 {
			return fc.Features[0].Geometry, nil
		}
		all := make(orb.Collection, 0, len(fc.Features))
		for _, f := range fc.Features {
			all = append(all, f.Geometry)
		}
		return all, nil
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("invalid extent geometry %s: %w", path, err)
		}
		return f.Geometry, nil
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("invalid extent geometry %s: %w", path, err)
		}
		return g.Geometry(), nil
	}
}

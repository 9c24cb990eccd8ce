// Package multitemp groups catalog entries onto the tiling grid and answers
// which tiles were observed more than once.
package multitemp

import (
	"sort"

	"github.com/lidar-tools/tilecat/internal/grid"
	"github.com/lidar-tools/tilecat/internal/vpc"
)

// Options control the grid a catalog is classified against.
type Options struct {
	CellSize  float64
	Tolerance float64
	// EntireTilesOnly drops entries whose bounding box is not exactly one
	// grid cell. Partial tiles would otherwise be bucketed by their
	// lower-left corner.
	EntireTilesOnly bool
}

// DefaultOptions returns the 1 km grid defaults.
func DefaultOptions() Options {
	return Options{
		CellSize:        grid.DefaultCellSize,
		Tolerance:       grid.DefaultTolerance,
		EntireTilesOnly: true,
	}
}

// Group holds every observation of one grid tile, ordered by acquisition
// time ascending with ties broken by href. Undated entries sort first.
type Group struct {
	Tile          grid.TileKey
	Entries       []vpc.Entry
	Observations  int
	Multitemporal bool
}

// Dated returns the group's entries that carry an acquisition time, in the
// group's time order.
func (g Group) Dated() []vpc.Entry {
	dated := make([]vpc.Entry, 0, len(g.Entries))
	for _, e := range g.Entries {
		if e.HasDatetime() {
			dated = append(dated, e)
		}
	}
	return dated
}

// Classification is the grid-grouped view of a catalog. It keeps the source
// catalog so selections can preserve the original entry order.
type Classification struct {
	Source   *vpc.Catalog
	CellSize float64
	EPSG     int
	Groups   []Group
	// Dropped counts entries rejected by the entire-tiles rule.
	Dropped int
}

// Classify groups the catalog's entries by their snapped grid cell. The
// catalog must be in a single CRS; an empty or nil catalog classifies to an
// empty result without error.
func Classify(c *vpc.Catalog, opts Options) (*Classification, error) {
	cls := &Classification{Source: c, CellSize: opts.CellSize}
	if c.IsEmpty() {
		return cls, nil
	}

	epsg, err := c.SingleEPSG()
	if err != nil {
		return nil, err
	}
	cls.EPSG = epsg

	buckets := make(map[grid.TileKey][]vpc.Entry)
	for _, e := range c.Entries {
		if opts.EntireTilesOnly && !grid.ValidateBound(e.Bound, opts.CellSize, opts.Tolerance).Valid {
			cls.Dropped++
			continue
		}
		key, _ := grid.KeyFor(e.Bound, opts.CellSize, opts.Tolerance)
		buckets[key] = append(buckets[key], e)
	}

	cls.Groups = make([]Group, 0, len(buckets))
	for key, entries := range buckets {
		sort.Slice(entries, func(i, j int) bool {
			if !entries[i].Datetime.Equal(entries[j].Datetime) {
				return entries[i].Datetime.Before(entries[j].Datetime)
			}
			return entries[i].Href < entries[j].Href
		})
		cls.Groups = append(cls.Groups, Group{
			Tile:          key,
			Entries:       entries,
			Observations:  len(entries),
			Multitemporal: len(entries) > 1,
		})
	}
	sort.Slice(cls.Groups, func(i, j int) bool {
		if cls.Groups[i].Tile.X != cls.Groups[j].Tile.X {
			return cls.Groups[i].Tile.X < cls.Groups[j].Tile.X
		}
		return cls.Groups[i].Tile.Y < cls.Groups[j].Tile.Y
	})
	return cls, nil
}

// Summary aggregates a classification for reporting.
type Summary struct {
	Tiles         int         `json:"tiles" yaml:"tiles"`
	Multitemporal int         `json:"multitemporal" yaml:"multitemporal"`
	Entries       int         `json:"entries" yaml:"entries"`
	Dropped       int         `json:"dropped" yaml:"dropped"`
	UndatedGroups int         `json:"undated_groups" yaml:"undated_groups"`
	Histogram     map[int]int `json:"histogram" yaml:"histogram"`
}

// Summary counts tiles by observation count. UndatedGroups counts tiles with
// no dated observation at all, which temporal selection skips entirely.
func (c *Classification) Summary() Summary {
	s := Summary{Histogram: map[int]int{}}
	if c == nil {
		return s
	}
	s.Dropped = c.Dropped
	for _, g := range c.Groups {
		s.Tiles++
		s.Entries += g.Observations
		s.Histogram[g.Observations]++
		if g.Multitemporal {
			s.Multitemporal++
		}
		if len(g.Dated()) == 0 {
			s.UndatedGroups++
		}
	}
	return s
}

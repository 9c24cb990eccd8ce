// Package grid snaps near-grid coordinates onto a regular tiling grid and
// classifies tile bounding boxes against it.
package grid

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Default parameters for the 1 km lidar tiling grid.
const (
	DefaultCellSize  = 1000.0
	DefaultTolerance = 1.0
)

// Snap moves coord onto the nearest multiple of cell when it lies within
// tolerance, absorbing sub-unit drift introduced by reprojection. A
// coordinate further away than tolerance is genuinely off-grid and is only
// truncated to a whole unit.
func Snap(coord, cell, tolerance float64) float64 {
	mustValidCell(cell)
	nearest := math.Round(coord/cell) * cell
	if math.Abs(coord-nearest) <= tolerance {
		return nearest
	}
	return math.Trunc(coord)
}

// SnapBound applies Snap to all four corners of b.
func SnapBound(b orb.Bound, cell, tolerance float64) orb.Bound {
	return orb.Bound{
		Min: orb.Point{Snap(b.Min[0], cell, tolerance), Snap(b.Min[1], cell, tolerance)},
		Max: orb.Point{Snap(b.Max[0], cell, tolerance), Snap(b.Max[1], cell, tolerance)},
	}
}

// Validity classifies a tile bounding box against the grid.
type Validity struct {
	SizeOK bool `json:"size_ok"` // spans exactly one cell in x and y
	GridOK bool `json:"grid_ok"` // all four corners sit on cell boundaries
	Valid  bool `json:"valid"`
}

// ValidateBound reports whether b is a correctly sized and aligned grid tile
// after snapping.
func ValidateBound(b orb.Bound, cell, tolerance float64) Validity {
	s := SnapBound(b, cell, tolerance)
	v := Validity{
		SizeOK: s.Max[0]-s.Min[0] == cell && s.Max[1]-s.Min[1] == cell,
		GridOK: onGrid(s.Min[0], cell) && onGrid(s.Min[1], cell) &&
			onGrid(s.Max[0], cell) && onGrid(s.Max[1], cell),
	}
	v.Valid = v.SizeOK && v.GridOK
	return v
}

func onGrid(coord, cell float64) bool {
	return math.Mod(coord, cell) == 0
}

// TileKey identifies a grid cell by its lower-left corner in cell units,
// kilometres on the default grid.
type TileKey struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// KeyFor derives the tile key for b. The boolean is false when the snapped
// lower-left corner is off-grid; the key is then a floor-division bucket for
// partial or irregular tiles rather than a canonical cell.
func KeyFor(b orb.Bound, cell, tolerance float64) (TileKey, bool) {
	minx := Snap(b.Min[0], cell, tolerance)
	miny := Snap(b.Min[1], cell, tolerance)
	key := TileKey{
		X: int(math.Floor(minx / cell)),
		Y: int(math.Floor(miny / cell)),
	}
	return key, onGrid(minx, cell) && onGrid(miny, cell)
}

// String renders the key as "minx_miny" in cell units.
func (k TileKey) String() string {
	return fmt.Sprintf("%d_%d", k.X, k.Y)
}

// Bound reconstructs the cell's bounding box from the key.
func (k TileKey) Bound(cell float64) orb.Bound {
	mustValidCell(cell)
	return orb.Bound{
		Min: orb.Point{float64(k.X) * cell, float64(k.Y) * cell},
		Max: orb.Point{float64(k.X)*cell + cell, float64(k.Y)*cell + cell},
	}
}

func mustValidCell(cell float64) {
	if cell <= 0 {
		panic(fmt.Sprintf("grid: cell size must be positive, got %v", cell))
	}
}

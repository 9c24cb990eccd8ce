// Package vpc models virtual point cloud catalogs: ordered, href-unique
// collections of tile metadata, their on-disk feature-collection documents,
// and the resolver that folds heterogeneous inputs into one catalog.
package vpc

import (
	"time"

	"github.com/paulmach/orb"
)

// DatetimeSource records where an entry's acquisition time came from.
type DatetimeSource string

const (
	// SourceData marks times derived from per-point GPS time, the most
	// reliable acquisition signal.
	SourceData DatetimeSource = "data"
	// SourceCSV marks times matched from an external reference table.
	SourceCSV DatetimeSource = "csv"
	// SourceHeader marks times taken from file processing metadata, which
	// may be much later than the actual survey flight.
	SourceHeader DatetimeSource = "header"
)

// Entry is one tile's catalog record. Href is the identity key; no catalog
// holds two entries with the same href.
type Entry struct {
	Href           string
	Bound          orb.Bound
	ZMin, ZMax     float64
	EPSG           int
	Datetime       time.Time // zero when unknown
	DatetimeSource DatetimeSource
	Geometry       orb.Polygon // optional footprint, nil means rectangular
	PointCount     int64
}

// HasDatetime reports whether the entry carries an acquisition time.
func (e Entry) HasDatetime() bool {
	return !e.Datetime.IsZero()
}

// Footprint returns the entry's polygon, falling back to the bbox rectangle
// when no explicit geometry was cataloged.
func (e Entry) Footprint() orb.Polygon {
	if e.Geometry != nil {
		return e.Geometry
	}
	return e.Bound.ToPolygon()
}

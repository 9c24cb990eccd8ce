package vpc

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Document mirrors the virtual point cloud interchange format: a GeoJSON
// feature collection with one feature per tile. The structs are spelled out
// instead of reusing geojson.FeatureCollection because the per-feature assets
// block must survive a round trip.
type Document struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is one cataloged tile in a document.
type Feature struct {
	Type       string            `json:"type"`
	ID         string            `json:"id,omitempty"`
	Geometry   *geojson.Geometry `json:"geometry"`
	BBox       []float64         `json:"bbox,omitempty"`
	Properties Properties        `json:"properties"`
	Assets     map[string]Asset  `json:"assets,omitempty"`
}

// Properties carries the per-tile metadata block.
type Properties struct {
	Datetime       *string `json:"datetime"`
	EPSG           int     `json:"proj:epsg,omitempty"`
	DatetimeSource string  `json:"datetime_source,omitempty"`
	PointCount     int64   `json:"pc:count,omitempty"`
}

// Asset points at the backing storage of a feature.
type Asset struct {
	Href string `json:"href"`
}

const dataAssetKey = "data"

// NewDocument converts a catalog into its interchange representation.
func NewDocument(c *Catalog) *Document {
	doc := &Document{Type: "FeatureCollection", Features: []Feature{}}
	if c == nil {
		return doc
	}
	for _, e := range c.Entries {
		doc.Features = append(doc.Features, featureFromEntry(e))
	}
	return doc
}

func featureFromEntry(e Entry) Feature {
	f := Feature{
		Type:     "Feature",
		ID:       featureID(e.Href),
		Geometry: geojson.NewGeometry(e.Footprint()),
		BBox: []float64{
			e.Bound.Min[0], e.Bound.Min[1], e.ZMin,
			e.Bound.Max[0], e.Bound.Max[1], e.ZMax,
		},
		Properties: Properties{
			EPSG:           e.EPSG,
			DatetimeSource: string(e.DatetimeSource),
			PointCount:     e.PointCount,
		},
		Assets: map[string]Asset{dataAssetKey: {Href: e.Href}},
	}
	if e.HasDatetime() {
		s := e.Datetime.UTC().Format(time.RFC3339)
		f.Properties.Datetime = &s
	}
	return f
}

// featureID derives a stable feature id from the file name, with the
// point-cloud extensions stripped.
func featureID(href string) string {
	base := filepath.Base(href)
	lower := strings.ToLower(base)
	for _, ext := range []string{".copc.laz", ".laz", ".las"} {
		if strings.HasSuffix(lower, ext) {
			return base[:len(base)-len(ext)]
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Catalog converts the document back into a catalog. Features without a data
// asset href are rejected; the document is the canonical carrier of entry
// identity.
func (d *Document) Catalog() (*Catalog, error) {
	entries := make([]Entry, 0, len(d.Features))
	for i, f := range d.Features {
		e, err := f.entry()
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		entries = append(entries, e)
	}
	return &Catalog{Entries: entries}, nil
}

func (f Feature) entry() (Entry, error) {
	asset, ok := f.Assets[dataAssetKey]
	if !ok || asset.Href == "" {
		return Entry{}, fmt.Errorf("missing data asset href")
	}

	e := Entry{
		Href:       asset.Href,
		EPSG:       f.Properties.EPSG,
		PointCount: f.Properties.PointCount,
	}

	switch len(f.BBox) {
	case 6:
		e.Bound = orb.Bound{
			Min: orb.Point{f.BBox[0], f.BBox[1]},
			Max: orb.Point{f.BBox[3], f.BBox[4]},
		}
		e.ZMin, e.ZMax = f.BBox[2], f.BBox[5]
	case 4:
		e.Bound = orb.Bound{
			Min: orb.Point{f.BBox[0], f.BBox[1]},
			Max: orb.Point{f.BBox[2], f.BBox[3]},
		}
	case 0:
		if f.Geometry == nil {
			return Entry{}, fmt.Errorf("feature has neither bbox nor geometry")
		}
		e.Bound = f.Geometry.Geometry().Bound()
	default:
		return Entry{}, fmt.Errorf("bbox has %d elements, want 4 or 6", len(f.BBox))
	}

	if f.Geometry != nil {
		if poly, ok := f.Geometry.Geometry().(orb.Polygon); ok {
			e.Geometry = poly
		}
	}

	if f.Properties.Datetime != nil && *f.Properties.Datetime != "" {
		dt, err := time.Parse(time.RFC3339, *f.Properties.Datetime)
		if err != nil {
			return Entry{}, fmt.Errorf("invalid datetime %q: %w", *f.Properties.Datetime, err)
		}
		e.Datetime = dt
	}

	e.DatetimeSource = DatetimeSource(f.Properties.DatetimeSource)
	if e.DatetimeSource == "" && e.HasDatetime() {
		e.DatetimeSource = SourceData
	}

	return e, nil
}

// ReadDocument loads a catalog from a document file.
func ReadDocument(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog document %s: %w", path, err)
	}
	if doc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("catalog document %s has type %q, want FeatureCollection", path, doc.Type)
	}
	cat, err := doc.Catalog()
	if err != nil {
		return nil, fmt.Errorf("invalid catalog document %s: %w", path, err)
	}
	return cat, nil
}

// WriteDocument saves the catalog as a document file. An existing path is an
// input error unless overwrite is set.
func WriteDocument(path string, c *Catalog, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("output path already exists: %s", path)
		}
	}
	data, err := json.MarshalIndent(NewDocument(c), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog document: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write catalog document: %w", err)
	}
	return nil
}

// Package regions resolves tile bounding boxes to administrative region
// codes using a GeoJSON boundary dataset.
package regions

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/lidar-tools/tilecat/internal/proj"
)

// OffshoreCode marks a bound that matches no region in the dataset.
const OffshoreCode = "xx"

// Boundary datasets ship in geographic coordinates.
const datasetEPSG = 4326

// Lookup resolves region codes against a boundary dataset fetched once per
// process from a URL or local file.
type Lookup struct {
	// Source is an http(s) URL or a file path of a GeoJSON feature
	// collection of region polygons.
	Source string
	// CodeProperty names the feature property holding the region code.
	CodeProperty string

	httpClient *http.Client

	mu       sync.RWMutex
	features *geojson.FeatureCollection
}

// NewLookup creates a lookup reading from source, using the "code" property.
func NewLookup(source string) *Lookup {
	return &Lookup{
		Source:       source,
		CodeProperty: "code",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Refresh drops the cached dataset and fetches it again.
func (l *Lookup) Refresh(ctx context.Context) error {
	fc, err := l.fetch(ctx)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.features = fc
	l.mu.Unlock()
	return nil
}

func (l *Lookup) dataset(ctx context.Context) (*geojson.FeatureCollection, error) {
	l.mu.RLock()
	fc := l.features
	l.mu.RUnlock()
	if fc != nil {
		return fc, nil
	}
	if err := l.Refresh(ctx); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.features, nil
}

func (l *Lookup) fetch(ctx context.Context) (*geojson.FeatureCollection, error) {
	if l.Source == "" {
		return nil, fmt.Errorf("no region dataset configured")
	}

	var data []byte
	if strings.HasPrefix(l.Source, "http://") || strings.HasPrefix(l.Source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.Source, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build region dataset request: %w", err)
		}
		resp, err := l.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch region dataset: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("region dataset returned status %d: %s", resp.StatusCode, string(body))
		}
		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read region dataset: %w", err)
		}
	} else {
		var err error
		data, err = os.ReadFile(l.Source)
		if err != nil {
			return nil, fmt.Errorf("failed to read region dataset: %w", err)
		}
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode region dataset %s: %w", l.Source, err)
	}
	return fc, nil
}

// Region resolves the region code for a bounding box in the given CRS. The
// box centre decides; when it sits in no region the corners are tried before
// falling back to OffshoreCode.
func (l *Lookup) Region(ctx context.Context, bound orb.Bound, epsg int) (string, error) {
	fc, err := l.dataset(ctx)
	if err != nil {
		return "", err
	}

	toGeographic, err := proj.Transform(epsg, datasetEPSG)
	if err != nil {
		return "", fmt.Errorf("cannot reproject bound for region lookup: %w", err)
	}
	transform := proj.Point(toGeographic)

	candidates := []orb.Point{
		bound.Center(),
		bound.Min,
		{bound.Max[0], bound.Min[1]},
		bound.Max,
		{bound.Min[0], bound.Max[1]},
	}
	for _, p := range candidates {
		if code, ok := l.codeAt(fc, transform(p)); ok {
			return code, nil
		}
	}
	return OffshoreCode, nil
}

func (l *Lookup) codeAt(fc *geojson.FeatureCollection, p orb.Point) (string, bool) {
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		if !geometryContains(f.Geometry, p) {
			continue
		}
		if code := f.Properties.MustString(l.CodeProperty, ""); code != "" {
			return code, true
		}
	}
	return "", false
}

func geometryContains(g orb.Geometry, p orb.Point) bool {
	switch g := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, p)
	default:
		return false
	}
}

// Package proj converts coordinates between the planar and geographic
// reference systems used by national lidar tiling schemes: ETRS89 / UTM
// (EPSG 25828-25838), WGS 84 / UTM (EPSG 326xx, 327xx) and the geographic
// systems EPSG 4326 and 4258.
package proj

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// TransformFunc maps a coordinate pair from one CRS to another.
type TransformFunc func(x, y float64) (float64, float64)

type ellipsoid struct {
	a float64 // semi-major axis
	f float64 // flattening
}

var (
	grs80 = ellipsoid{a: 6378137, f: 1 / 298.257222101}
	wgs84 = ellipsoid{a: 6378137, f: 1 / 298.257223563}
)

type crs struct {
	geographic bool
	zone       int
	south      bool
	ellipsoid  ellipsoid
}

// lookup resolves an EPSG code into its CRS parameters. ETRS89 and WGS 84 are
// treated as coincident datums; their offset is far below the grid snapping
// tolerance.
func lookup(epsg int) (crs, bool) {
	switch {
	case epsg == 4326:
		return crs{geographic: true, ellipsoid: wgs84}, true
	case epsg == 4258:
		return crs{geographic: true, ellipsoid: grs80}, true
	case epsg >= 25828 && epsg <= 25838:
		return crs{zone: epsg - 25800, ellipsoid: grs80}, true
	case epsg >= 32601 && epsg <= 32660:
		return crs{zone: epsg - 32600, ellipsoid: wgs84}, true
	case epsg >= 32701 && epsg <= 32760:
		return crs{zone: epsg - 32700, south: true, ellipsoid: wgs84}, true
	}
	return crs{}, false
}

// Supported reports whether the EPSG code is known to this package.
func Supported(epsg int) bool {
	_, ok := lookup(epsg)
	return ok
}

// IsGeographic reports whether the EPSG code denotes a geographic
// (longitude/latitude) system.
func IsGeographic(epsg int) bool {
	c, ok := lookup(epsg)
	return ok && c.geographic
}

// UTMZone returns the UTM zone number encoded in a projected EPSG code.
func UTMZone(epsg int) (int, bool) {
	c, ok := lookup(epsg)
	if !ok || c.geographic {
		return 0, false
	}
	return c.zone, true
}

// Transform builds a conversion between two EPSG codes. Unsupported codes or
// pairs yield an error naming them.
func Transform(from, to int) (TransformFunc, error) {
	if from == to {
		return func(x, y float64) (float64, float64) { return x, y }, nil
	}
	src, ok := lookup(from)
	if !ok {
		return nil, fmt.Errorf("unsupported CRS: EPSG:%d", from)
	}
	dst, ok := lookup(to)
	if !ok {
		return nil, fmt.Errorf("unsupported CRS: EPSG:%d", to)
	}

	switch {
	case src.geographic && dst.geographic:
		return func(x, y float64) (float64, float64) { return x, y }, nil
	case src.geographic:
		return func(x, y float64) (float64, float64) {
			return utmForward(dst, x, y)
		}, nil
	case dst.geographic:
		return func(x, y float64) (float64, float64) {
			return utmInverse(src, x, y)
		}, nil
	default:
		return func(x, y float64) (float64, float64) {
			lon, lat := utmInverse(src, x, y)
			return utmForward(dst, lon, lat)
		}, nil
	}
}

// Point applies a transform to an orb point, keeping the x/y convention of
// lon/lat for geographic systems and easting/northing for projected ones.
func Point(t TransformFunc) orb.Projection {
	return func(p orb.Point) orb.Point {
		x, y := t(p[0], p[1])
		return orb.Point{x, y}
	}
}

const (
	scale        = 0.9996
	falseEasting = 500000.0
	falseNorth   = 10000000.0
)

// kruegerCoefficients returns the series terms used by the transverse
// Mercator forward and inverse mappings.
func kruegerCoefficients(e ellipsoid) (n, radius float64, alpha, beta, delta [3]float64) {
	n = e.f / (2 - e.f)
	n2, n3 := n*n, n*n*n
	radius = e.a / (1 + n) * (1 + n2/4 + n2*n2/64)

	alpha = [3]float64{
		n/2 - 2*n2/3 + 5*n3/16,
		13*n2/48 - 3*n3/5,
		61 * n3 / 240,
	}
	beta = [3]float64{
		n/2 - 2*n2/3 + 37*n3/96,
		n2/48 + n3/15,
		17 * n3 / 480,
	}
	delta = [3]float64{
		2*n - 2*n2/3 - 2*n3,
		7*n2/3 - 8*n3/5,
		56 * n3 / 15,
	}
	return n, radius, alpha, beta, delta
}

func centralMeridian(zone int) float64 {
	return float64(zone*6 - 183)
}

func utmForward(c crs, lon, lat float64) (easting, northing float64) {
	n, radius, alpha, _, _ := kruegerCoefficients(c.ellipsoid)

	phi := lat * math.Pi / 180
	lambda := (lon - centralMeridian(c.zone)) * math.Pi / 180

	s := 2 * math.Sqrt(n) / (1 + n)
	t := math.Sinh(math.Atanh(math.Sin(phi)) - s*math.Atanh(s*math.Sin(phi)))
	xiP := math.Atan2(t, math.Cos(lambda))
	etaP := math.Atanh(math.Sin(lambda) / math.Sqrt(1+t*t))

	xi, eta := xiP, etaP
	for j, a := range alpha {
		k := float64(2 * (j + 1))
		xi += a * math.Sin(k*xiP) * math.Cosh(k*etaP)
		eta += a * math.Cos(k*xiP) * math.Sinh(k*etaP)
	}

	easting = falseEasting + scale*radius*eta
	northing = scale * radius * xi
	if c.south {
		northing += falseNorth
	}
	return easting, northing
}

func utmInverse(c crs, easting, northing float64) (lon, lat float64) {
	_, radius, _, beta, delta := kruegerCoefficients(c.ellipsoid)

	if c.south {
		northing -= falseNorth
	}
	xi := northing / (scale * radius)
	eta := (easting - falseEasting) / (scale * radius)

	xiP, etaP := xi, eta
	for j, b := range beta {
		k := float64(2 * (j + 1))
		xiP -= b * math.Sin(k*xi) * math.Cosh(k*eta)
		etaP -= b * math.Cos(k*xi) * math.Sinh(k*eta)
	}

	chi := math.Asin(math.Sin(xiP) / math.Cosh(etaP))
	phi := chi
	for j, d := range delta {
		k := float64(2 * (j + 1))
		phi += d * math.Sin(k*chi)
	}

	lambda := math.Atan2(math.Sinh(etaP), math.Cos(xiP))
	lon = centralMeridian(c.zone) + lambda*180/math.Pi
	lat = phi * 180 / math.Pi
	return lon, lat
}

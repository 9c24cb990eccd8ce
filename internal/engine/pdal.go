package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"time"

	"github.com/paulmach/orb"

	"github.com/lidar-tools/tilecat/internal/vpc"
)

// PDALEnvVar overrides the pdal binary location.
const PDALEnvVar = "TILECAT_PDAL_BIN"

var gpsEpoch = time.Date(1980, 1, 6, 0, 0, 0, 0, time.UTC)

const (
	// Adjusted standard GPS time is GPS seconds shifted down by 1e9. Values
	// below the threshold are GPS week seconds, which carry no absolute
	// date.
	adjustedGPSOffset    = 1e9
	adjustedGPSThreshold = 1e6
)

var epsgPattern = regexp.MustCompile(`(?:AUTHORITY|ID)\["EPSG",\s*"?(\d+)"?\]`)

// PDAL probes single files with pdal info.
type PDAL struct {
	Bin string
}

// NewPDAL reads the binary location from the environment.
func NewPDAL() *PDAL {
	return &PDAL{Bin: binaryFromEnv(PDALEnvVar, "pdal")}
}

type pdalInfo struct {
	Metadata pdalMetadata `json:"metadata"`
	Stats    pdalStats    `json:"stats"`
}

type pdalMetadata struct {
	MinX         float64 `json:"minx"`
	MinY         float64 `json:"miny"`
	MinZ         float64 `json:"minz"`
	MaxX         float64 `json:"maxx"`
	MaxY         float64 `json:"maxy"`
	MaxZ         float64 `json:"maxz"`
	Count        int64   `json:"count"`
	CreationYear int     `json:"creation_year"`
	CreationDOY  int     `json:"creation_doy"`
	SRS          pdalSRS `json:"srs"`
}

type pdalSRS struct {
	CompoundWKT string `json:"compoundwkt"`
	WKT         string `json:"wkt"`
	Horizontal  string `json:"horizontal"`
}

type pdalStats struct {
	Statistic []pdalStatistic `json:"statistic"`
}

type pdalStatistic struct {
	Name    string  `json:"name"`
	Minimum float64 `json:"minimum"`
	Maximum float64 `json:"maximum"`
}

// Probe runs pdal info and turns its report into a catalog entry.
func (p *PDAL) Probe(ctx context.Context, path string) (vpc.Entry, error) {
	cmd := exec.CommandContext(ctx, p.Bin, "info", "--stats", "--metadata", path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return vpc.Entry{}, fmt.Errorf("%s info failed for %s: %w: %s",
			p.Bin, path, err, bytes.TrimSpace(stderr.Bytes()))
	}

	var info pdalInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return vpc.Entry{}, fmt.Errorf("failed to parse pdal info for %s: %w", path, err)
	}

	entry := vpc.Entry{
		Href: path,
		Bound: orb.Bound{
			Min: orb.Point{info.Metadata.MinX, info.Metadata.MinY},
			Max: orb.Point{info.Metadata.MaxX, info.Metadata.MaxY},
		},
		ZMin:       info.Metadata.MinZ,
		ZMax:       info.Metadata.MaxZ,
		EPSG:       info.Metadata.SRS.epsg(),
		PointCount: info.Metadata.Count,
	}
	if entry.EPSG == 0 {
		slog.Warn("No EPSG code in file metadata", "path", path)
	}

	if dt, source, ok := acquisitionTime(info); ok {
		entry.Datetime = dt
		entry.DatetimeSource = source
	}
	return entry, nil
}

// epsg pulls the code out of whichever WKT variant the file carries, taking
// the last (outermost) authority.
func (s pdalSRS) epsg() int {
	for _, wkt := range []string{s.Horizontal, s.CompoundWKT, s.WKT} {
		matches := epsgPattern.FindAllStringSubmatch(wkt, -1)
		if len(matches) == 0 {
			continue
		}
		code, err := strconv.Atoi(matches[len(matches)-1][1])
		if err == nil && code > 0 {
			return code
		}
	}
	return 0
}

// acquisitionTime prefers the per-point GPS time range over the processing
// date in the file header.
func acquisitionTime(info pdalInfo) (time.Time, vpc.DatetimeSource, bool) {
	for _, s := range info.Stats.Statistic {
		if s.Name != "GpsTime" {
			continue
		}
		if s.Maximum > adjustedGPSThreshold {
			secs := s.Maximum + adjustedGPSOffset
			dt := gpsEpoch.Add(time.Duration(secs) * time.Second)
			return dt.UTC(), vpc.SourceData, true
		}
		break
	}

	m := info.Metadata
	if m.CreationYear > 0 {
		doy := m.CreationDOY
		if doy < 1 {
			doy = 1
		}
		dt := time.Date(m.CreationYear, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, doy-1)
		return dt, vpc.SourceHeader, true
	}
	return time.Time{}, "", false
}

// Default picks the batch engine when its binary is on PATH, falling back
// to per-file probing.
func Default() vpc.Engine {
	w := NewWrench()
	if _, err := exec.LookPath(w.Bin); err == nil {
		return w
	}
	slog.Debug("Batch engine not found, probing per file", "bin", w.Bin)
	return NewProbeEngine(NewPDAL())
}

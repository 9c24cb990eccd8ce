// Package report renders classification and naming results as text, CSV,
// JSON, or YAML, and writes catalog attribute tables for export.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lidar-tools/tilecat/internal/grid"
	"github.com/lidar-tools/tilecat/internal/multitemp"
	"github.com/lidar-tools/tilecat/internal/naming"
	"github.com/lidar-tools/tilecat/internal/vpc"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// Formats accepted by the report writers.
const (
	FormatText = "text"
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

const bannerWidth = 70

// TileRow is one grid tile in a classification report.
type TileRow struct {
	TileX         int      `json:"tile_x" yaml:"tile_x"`
	TileY         int      `json:"tile_y" yaml:"tile_y"`
	Observations  int      `json:"observations" yaml:"observations"`
	Multitemporal bool     `json:"multitemporal" yaml:"multitemporal"`
	Dates         []string `json:"dates,omitempty" yaml:"dates,omitempty"`
	Hrefs         []string `json:"hrefs" yaml:"hrefs"`
}

// ClassificationReport is the serializable view of a classification.
type ClassificationReport struct {
	CellSize float64           `json:"cell_size" yaml:"cell_size"`
	EPSG     int               `json:"epsg,omitempty" yaml:"epsg,omitempty"`
	Summary  multitemp.Summary `json:"summary" yaml:"summary"`
	Tiles    []TileRow         `json:"tiles" yaml:"tiles"`
}

// NewClassification converts a classification into its report form.
func NewClassification(cls *multitemp.Classification) ClassificationReport {
	rep := ClassificationReport{Summary: cls.Summary()}
	if cls == nil {
		return rep
	}
	rep.CellSize = cls.CellSize
	rep.EPSG = cls.EPSG
	rep.Tiles = make([]TileRow, 0, len(cls.Groups))
	for _, g := range cls.Groups {
		row := TileRow{
			TileX:         g.Tile.X,
			TileY:         g.Tile.Y,
			Observations:  g.Observations,
			Multitemporal: g.Multitemporal,
			Hrefs:         make([]string, 0, len(g.Entries)),
		}
		for _, e := range g.Entries {
			row.Hrefs = append(row.Hrefs, e.Href)
			if e.HasDatetime() {
				row.Dates = append(row.Dates, e.Datetime.Format(time.RFC3339))
			}
		}
		rep.Tiles = append(rep.Tiles, row)
	}
	return rep
}

// WriteClassification renders a classification in the requested format.
func WriteClassification(w io.Writer, cls *multitemp.Classification, format string) error {
	rep := NewClassification(cls)
	switch format {
	case FormatText:
		return writeClassificationText(w, rep)
	case FormatCSV:
		return writeClassificationCSV(w, rep)
	case FormatJSON:
		return writeJSON(w, rep)
	case FormatYAML:
		return writeYAML(w, rep)
	default:
		return fmt.Errorf("unsupported report format: %q", format)
	}
}

func writeClassificationText(w io.Writer, rep ClassificationReport) error {
	fmt.Fprintln(w, strings.Repeat("=", bannerWidth))
	fmt.Fprintln(w, "TILE CLASSIFICATION SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", bannerWidth))
	fmt.Fprintf(w, "Cell Size: %g m\n", rep.CellSize)
	if rep.EPSG != 0 {
		fmt.Fprintf(w, "CRS: EPSG:%d\n", rep.EPSG)
	}
	fmt.Fprintln(w)

	s := rep.Summary
	fmt.Fprintln(w, "TILE STATISTICS")
	fmt.Fprintln(w, strings.Repeat("-", bannerWidth))
	fmt.Fprintf(w, "Tiles: %d\n", s.Tiles)
	fmt.Fprintf(w, "Entries: %d\n", s.Entries)
	if s.Tiles > 0 {
		fmt.Fprintf(w, "Multitemporal: %d (%.1f%%)\n", s.Multitemporal, float64(s.Multitemporal)/float64(s.Tiles)*100)
	} else {
		fmt.Fprintf(w, "Multitemporal: %d\n", s.Multitemporal)
	}
	fmt.Fprintf(w, "Undated Tiles: %d\n", s.UndatedGroups)
	fmt.Fprintf(w, "Dropped Entries: %d\n", s.Dropped)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "OBSERVATION HISTOGRAM")
	fmt.Fprintln(w, strings.Repeat("-", bannerWidth))
	counts := make([]int, 0, len(s.Histogram))
	for n := range s.Histogram {
		counts = append(counts, n)
	}
	sort.Ints(counts)
	for _, n := range counts {
		noun := "observations"
		if n == 1 {
			noun = "observation"
		}
		fmt.Fprintf(w, "%d %s: %d tiles\n", n, noun, s.Histogram[n])
	}
	fmt.Fprintln(w, strings.Repeat("=", bannerWidth))
	return nil
}

func writeClassificationCSV(w io.Writer, rep ClassificationReport) error {
	cw := csv.NewWriter(w)
	header := []string{"tile_x", "tile_y", "observations", "multitemporal", "dates", "hrefs"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rep.Tiles {
		record := []string{
			strconv.Itoa(row.TileX),
			strconv.Itoa(row.TileY),
			strconv.Itoa(row.Observations),
			strconv.FormatBool(row.Multitemporal),
			strings.Join(row.Dates, ";"),
			strings.Join(row.Hrefs, ";"),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// NameReport is the serializable view of a naming validation run.
type NameReport struct {
	Checked    int                `json:"checked" yaml:"checked"`
	Mismatches int                `json:"mismatches" yaml:"mismatches"`
	Checks     []naming.NameCheck `json:"checks" yaml:"checks"`
}

// NewNameReport wraps name checks with their mismatch count.
func NewNameReport(checks []naming.NameCheck) NameReport {
	rep := NameReport{Checked: len(checks), Checks: checks}
	for _, c := range checks {
		if !c.Matches {
			rep.Mismatches++
		}
	}
	return rep
}

// WriteNameChecks renders naming validation results in the requested format.
func WriteNameChecks(w io.Writer, checks []naming.NameCheck, format string) error {
	rep := NewNameReport(checks)
	switch format {
	case FormatText:
		return writeNameText(w, rep)
	case FormatCSV:
		return writeNameCSV(w, rep)
	case FormatJSON:
		return writeJSON(w, rep)
	case FormatYAML:
		return writeYAML(w, rep)
	default:
		return fmt.Errorf("unsupported report format: %q", format)
	}
}

func writeNameText(w io.Writer, rep NameReport) error {
	fmt.Fprintln(w, strings.Repeat("=", bannerWidth))
	fmt.Fprintln(w, "TILE NAMING REPORT")
	fmt.Fprintln(w, strings.Repeat("=", bannerWidth))
	fmt.Fprintf(w, "Checked: %d files\n", rep.Checked)
	fmt.Fprintf(w, "Mismatches: %d\n", rep.Mismatches)
	if rep.Mismatches == 0 {
		fmt.Fprintln(w, strings.Repeat("=", bannerWidth))
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "MISMATCHES")
	fmt.Fprintln(w, strings.Repeat("-", bannerWidth))
	for _, c := range rep.Checks {
		if c.Matches {
			continue
		}
		fmt.Fprintf(w, "%s\n", c.Href)
		fmt.Fprintf(w, "  actual:   %s\n", c.Actual)
		fmt.Fprintf(w, "  expected: %s\n", c.Expected)
	}
	fmt.Fprintln(w, strings.Repeat("=", bannerWidth))
	return nil
}

func writeNameCSV(w io.Writer, rep NameReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"href", "actual", "expected", "matches"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, c := range rep.Checks {
		record := []string{c.Href, c.Actual, c.Expected, strconv.FormatBool(c.Matches)}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode report to JSON: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal report to YAML: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// attributeRecord is one catalog entry flattened for tabular export.
type attributeRecord struct {
	Href           string  `parquet:"href"`
	EPSG           int32   `parquet:"epsg"`
	MinX           float64 `parquet:"minx"`
	MinY           float64 `parquet:"miny"`
	MaxX           float64 `parquet:"maxx"`
	MaxY           float64 `parquet:"maxy"`
	MinZ           float64 `parquet:"minz"`
	MaxZ           float64 `parquet:"maxz"`
	Datetime       string  `parquet:"datetime,optional"`
	DatetimeSource string  `parquet:"datetime_source,optional"`
	PointCount     int64   `parquet:"point_count"`
	TileX          int32   `parquet:"tile_x"`
	TileY          int32   `parquet:"tile_y"`
}

func attributeRecords(c *vpc.Catalog) []attributeRecord {
	if c == nil {
		return nil
	}
	records := make([]attributeRecord, 0, len(c.Entries))
	for _, e := range c.Entries {
		key, _ := grid.KeyFor(e.Bound, grid.DefaultCellSize, grid.DefaultTolerance)
		rec := attributeRecord{
			Href:           e.Href,
			EPSG:           int32(e.EPSG),
			MinX:           e.Bound.Min[0],
			MinY:           e.Bound.Min[1],
			MaxX:           e.Bound.Max[0],
			MaxY:           e.Bound.Max[1],
			MinZ:           e.ZMin,
			MaxZ:           e.ZMax,
			DatetimeSource: string(e.DatetimeSource),
			PointCount:     e.PointCount,
			TileX:          int32(key.X),
			TileY:          int32(key.Y),
		}
		if e.HasDatetime() {
			rec.Datetime = e.Datetime.Format(time.RFC3339)
		}
		records = append(records, rec)
	}
	return records
}

// WriteCatalogParquet writes the catalog attribute table as a parquet file.
func WriteCatalogParquet(path string, c *vpc.Catalog) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer f.Close()

	pw := parquet.NewGenericWriter[attributeRecord](f)
	if _, err := pw.Write(attributeRecords(c)); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// WriteCatalogCSV writes the catalog attribute table as CSV.
func WriteCatalogCSV(w io.Writer, c *vpc.Catalog) error {
	cw := csv.NewWriter(w)
	header := []string{
		"href", "epsg", "minx", "miny", "maxx", "maxy", "minz", "maxz",
		"datetime", "datetime_source", "point_count", "tile_x", "tile_y",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, rec := range attributeRecords(c) {
		record := []string{
			rec.Href,
			strconv.Itoa(int(rec.EPSG)),
			formatCoord(rec.MinX),
			formatCoord(rec.MinY),
			formatCoord(rec.MaxX),
			formatCoord(rec.MaxY),
			formatCoord(rec.MinZ),
			formatCoord(rec.MaxZ),
			rec.Datetime,
			rec.DatetimeSource,
			strconv.FormatInt(rec.PointCount, 10),
			strconv.Itoa(int(rec.TileX)),
			strconv.Itoa(int(rec.TileY)),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

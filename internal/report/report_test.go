package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/lidar-tools/tilecat/internal/multitemp"
	"github.com/lidar-tools/tilecat/internal/naming"
	"github.com/lidar-tools/tilecat/internal/vpc"
	"github.com/parquet-go/parquet-go"
	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"
)

func tileEntry(href string, kmx, kmy int, date string) vpc.Entry {
	e := vpc.Entry{
		Href: href,
		Bound: orb.Bound{
			Min: orb.Point{float64(kmx) * 1000, float64(kmy) * 1000},
			Max: orb.Point{float64(kmx)*1000 + 1000, float64(kmy)*1000 + 1000},
		},
		EPSG: 25832,
	}
	if date != "" {
		ts, err := time.Parse("2006-01-02", date)
		if err != nil {
			panic(err)
		}
		e.Datetime = ts.UTC()
		e.DatetimeSource = vpc.SourceData
	}
	return e
}

func fixtureClassification(t *testing.T) *multitemp.Classification {
	t.Helper()
	c := vpc.New(
		tileEntry("a_2020.laz", 547, 5724, "2020-04-01"),
		tileEntry("a_2024.laz", 547, 5724, "2024-03-14"),
		tileEntry("b.laz", 548, 5724, "2021-07-15"),
		tileEntry("c.laz", 549, 5724, ""),
	)
	cls, err := multitemp.Classify(c, multitemp.DefaultOptions())
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	return cls
}

func TestWriteClassificationText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteClassification(&buf, fixtureClassification(t), FormatText); err != nil {
		t.Fatalf("WriteClassification() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"TILE CLASSIFICATION SUMMARY",
		"Cell Size: 1000 m",
		"CRS: EPSG:25832",
		"Tiles: 3",
		"Entries: 4",
		"Multitemporal: 1 (33.3%)",
		"Undated Tiles: 1",
		"Dropped Entries: 0",
		"1 observation: 2 tiles",
		"2 observations: 1 tiles",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteClassificationCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteClassification(&buf, fixtureClassification(t), FormatCSV); err != nil {
		t.Fatalf("WriteClassification() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d CSV records, want 4", len(records))
	}

	wantHeader := []string{"tile_x", "tile_y", "observations", "multitemporal", "dates", "hrefs"}
	if diff := cmp.Diff(wantHeader, records[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	wantRow := []string{
		"547", "5724", "2", "true",
		"2020-04-01T00:00:00Z;2024-03-14T00:00:00Z",
		"a_2020.laz;a_2024.laz",
	}
	if diff := cmp.Diff(wantRow, records[1]); diff != "" {
		t.Errorf("first row mismatch (-want +got):\n%s", diff)
	}
	if got := records[3][4]; got != "" {
		t.Errorf("undated tile dates = %q, want empty", got)
	}
}

func TestWriteClassificationJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteClassification(&buf, fixtureClassification(t), FormatJSON); err != nil {
		t.Fatalf("WriteClassification() error = %v", err)
	}

	var rep ClassificationReport
	if err := json.Unmarshal(buf.Bytes(), &rep); err != nil {
		t.Fatalf("failed to parse JSON report: %v", err)
	}
	if rep.CellSize != 1000 || rep.EPSG != 25832 {
		t.Errorf("got cell %g EPSG %d, want 1000 and 25832", rep.CellSize, rep.EPSG)
	}
	if rep.Summary.Tiles != 3 || rep.Summary.Multitemporal != 1 {
		t.Errorf("summary = %+v, want 3 tiles and 1 multitemporal", rep.Summary)
	}
	if len(rep.Tiles) != 3 {
		t.Fatalf("got %d tile rows, want 3", len(rep.Tiles))
	}
	first := rep.Tiles[0]
	if first.TileX != 547 || first.TileY != 5724 || !first.Multitemporal {
		t.Errorf("first row = %+v, want multitemporal tile 547/5724", first)
	}
	if len(rep.Tiles[2].Dates) != 0 {
		t.Errorf("undated tile has dates %v", rep.Tiles[2].Dates)
	}
}

func TestWriteClassificationYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteClassification(&buf, fixtureClassification(t), FormatYAML); err != nil {
		t.Fatalf("WriteClassification() error = %v", err)
	}

	var rep ClassificationReport
	if err := yaml.Unmarshal(buf.Bytes(), &rep); err != nil {
		t.Fatalf("failed to parse YAML report: %v", err)
	}
	if rep.Summary.Entries != 4 || rep.Summary.UndatedGroups != 1 {
		t.Errorf("summary = %+v, want 4 entries and 1 undated group", rep.Summary)
	}
	if rep.Summary.Histogram[2] != 1 {
		t.Errorf("histogram = %v, want one tile with 2 observations", rep.Summary.Histogram)
	}
}

func TestWriteClassificationBadFormat(t *testing.T) {
	err := WriteClassification(&bytes.Buffer{}, fixtureClassification(t), "xml")
	if err == nil || !strings.Contains(err.Error(), "unsupported report format") {
		t.Errorf("got error %v, want unsupported format", err)
	}
}

func fixtureChecks() []naming.NameCheck {
	return []naming.NameCheck{
		{
			Href:     "tiles/3dm_32_547_5724_1_ni_2024.laz",
			Actual:   "3dm_32_547_5724_1_ni_2024.laz",
			Expected: "3dm_32_547_5724_1_ni_2024.laz",
			Matches:  true,
		},
		{
			Href:     "tiles/old_tile.laz",
			Actual:   "old_tile.laz",
			Expected: "3dm_32_548_5724_1_ni_2024.laz",
			Matches:  false,
		},
	}
}

func TestWriteNameChecksText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteNameChecks(&buf, fixtureChecks(), FormatText); err != nil {
		t.Fatalf("WriteNameChecks() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"TILE NAMING REPORT",
		"Checked: 2 files",
		"Mismatches: 1",
		"tiles/old_tile.laz",
		"expected: 3dm_32_548_5724_1_ni_2024.laz",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "tiles/3dm_32_547_5724_1_ni_2024.laz") {
		t.Error("matching file listed under mismatches")
	}
}

func TestWriteNameChecksTextAllMatch(t *testing.T) {
	checks := fixtureChecks()[:1]

	var buf bytes.Buffer
	if err := WriteNameChecks(&buf, checks, FormatText); err != nil {
		t.Fatalf("WriteNameChecks() error = %v", err)
	}
	if strings.Contains(buf.String(), "MISMATCHES") {
		t.Errorf("clean report lists mismatch section:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "Mismatches: 0") {
		t.Errorf("clean report missing zero count:\n%s", buf.String())
	}
}

func TestWriteNameChecksCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteNameChecks(&buf, fixtureChecks(), FormatCSV); err != nil {
		t.Fatalf("WriteNameChecks() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d CSV records, want 3", len(records))
	}
	wantRow := []string{"tiles/old_tile.laz", "old_tile.laz", "3dm_32_548_5724_1_ni_2024.laz", "false"}
	if diff := cmp.Diff(wantRow, records[2]); diff != "" {
		t.Errorf("mismatch row (-want +got):\n%s", diff)
	}
}

func TestWriteNameChecksJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteNameChecks(&buf, fixtureChecks(), FormatJSON); err != nil {
		t.Fatalf("WriteNameChecks() error = %v", err)
	}

	var rep NameReport
	if err := json.Unmarshal(buf.Bytes(), &rep); err != nil {
		t.Fatalf("failed to parse JSON report: %v", err)
	}
	if rep.Checked != 2 || rep.Mismatches != 1 {
		t.Errorf("got checked %d mismatches %d, want 2 and 1", rep.Checked, rep.Mismatches)
	}
	if len(rep.Checks) != 2 || rep.Checks[1].Expected != "3dm_32_548_5724_1_ni_2024.laz" {
		t.Errorf("checks = %+v", rep.Checks)
	}
}

func exportCatalog() *vpc.Catalog {
	dated := tileEntry("tiles/a.laz", 547, 5724, "2024-03-14")
	dated.ZMin = 101.5
	dated.ZMax = 204.25
	dated.PointCount = 14500000
	undated := tileEntry("tiles/b.laz", 548, 5724, "")
	return vpc.New(dated, undated)
}

func TestWriteCatalogParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.parquet")
	if err := WriteCatalogParquet(path, exportCatalog()); err != nil {
		t.Fatalf("WriteCatalogParquet() error = %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		t.Fatal(err)
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		t.Fatalf("failed to open parquet output: %v", err)
	}

	reader := parquet.NewGenericReader[attributeRecord](pf)
	defer reader.Close()
	rows := make([]attributeRecord, 4)
	n, _ := reader.Read(rows)
	if n != 2 {
		t.Fatalf("got %d rows, want 2", n)
	}

	got := rows[0]
	if got.Href != "tiles/a.laz" || got.EPSG != 25832 {
		t.Errorf("row = %+v, want tiles/a.laz in EPSG 25832", got)
	}
	if got.MinX != 547000 || got.MaxY != 5725000 || got.MinZ != 101.5 {
		t.Errorf("extent = (%g %g %g), want 547000, 5725000, 101.5", got.MinX, got.MaxY, got.MinZ)
	}
	if got.Datetime != "2024-03-14T00:00:00Z" || got.DatetimeSource != "data" {
		t.Errorf("datetime = %q source %q", got.Datetime, got.DatetimeSource)
	}
	if got.PointCount != 14500000 || got.TileX != 547 || got.TileY != 5724 {
		t.Errorf("attributes = %+v", got)
	}
	if rows[1].Datetime != "" {
		t.Errorf("undated datetime = %q, want empty", rows[1].Datetime)
	}
}

func TestWriteCatalogCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCatalogCSV(&buf, exportCatalog()); err != nil {
		t.Fatalf("WriteCatalogCSV() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d CSV records, want 3", len(records))
	}
	wantRow := []string{
		"tiles/a.laz", "25832",
		"547000", "5724000", "548000", "5725000", "101.5", "204.25",
		"2024-03-14T00:00:00Z", "data", "14500000", "547", "5724",
	}
	if diff := cmp.Diff(wantRow, records[1]); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
	if records[2][8] != "" || records[2][10] != "0" {
		t.Errorf("undated row = %v, want empty datetime and zero count", records[2])
	}
}

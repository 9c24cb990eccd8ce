package gpkg

import (
	"database/sql"
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"

	"github.com/lidar-tools/tilecat/internal/vpc"
)

func testCatalog() *vpc.Catalog {
	return vpc.New(
		vpc.Entry{
			Href:           "tiles/3dm_32_547_5724_1_ni_2024.laz",
			Bound:          orb.Bound{Min: orb.Point{547000, 5724000}, Max: orb.Point{548000, 5725000}},
			EPSG:           25832,
			Datetime:       time.Date(2024, 3, 14, 10, 30, 0, 0, time.UTC),
			DatetimeSource: vpc.SourceData,
			PointCount:     14500000,
		},
		vpc.Entry{
			Href:  "tiles/3dm_32_548_5724_1_ni_2024.laz",
			Bound: orb.Bound{Min: orb.Point{548000, 5724000}, Max: orb.Point{549000, 5725000}},
			EPSG:  25832,
		},
	)
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiles.gpkg")
	if err := Write(path, testCatalog(), "tiles", false); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var appID, version int
	if err := db.QueryRow("PRAGMA application_id").Scan(&appID); err != nil {
		t.Fatal(err)
	}
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatal(err)
	}
	if appID != applicationID || version != userVersion {
		t.Errorf("pragmas = (%d, %d), want (%d, %d)", appID, version, applicationID, userVersion)
	}

	var srsCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM gpkg_spatial_ref_sys").Scan(&srsCount); err != nil {
		t.Fatal(err)
	}
	if srsCount != 4 {
		t.Errorf("spatial_ref_sys has %d rows, want 4 (undefined x2, 4326, 25832)", srsCount)
	}

	var tableName string
	var srsID int
	if err := db.QueryRow(
		"SELECT table_name, srs_id FROM gpkg_contents WHERE data_type = 'features'").
		Scan(&tableName, &srsID); err != nil {
		t.Fatal(err)
	}
	if tableName != "tiles" || srsID != 25832 {
		t.Errorf("contents row = (%s, %d), want (tiles, 25832)", tableName, srsID)
	}

	rows, err := db.Query("SELECT geom, href, datetime, tile_x, tile_y FROM tiles ORDER BY fid")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()

	type row struct {
		geom         []byte
		href         string
		datetime     sql.NullString
		tileX, tileY int
	}
	var got []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.geom, &r.href, &r.datetime, &r.tileX, &r.tileY); err != nil {
			t.Fatal(err)
		}
		got = append(got, r)
	}
	if err := rows.Err(); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("feature table has %d rows, want 2", len(got))
	}

	first := got[0]
	if first.href != "tiles/3dm_32_547_5724_1_ni_2024.laz" {
		t.Errorf("href = %q", first.href)
	}
	if !first.datetime.Valid || first.datetime.String != "2024-03-14T10:30:00Z" {
		t.Errorf("datetime = %v, want 2024-03-14T10:30:00Z", first.datetime)
	}
	if got[1].datetime.Valid {
		t.Errorf("undated entry datetime = %v, want NULL", got[1].datetime)
	}
	if first.tileX != 547 || first.tileY != 5724 {
		t.Errorf("tile = (%d, %d), want (547, 5724)", first.tileX, first.tileY)
	}

	checkGeometryBlob(t, first.geom)
}

func checkGeometryBlob(t *testing.T, blob []byte) {
	t.Helper()
	if len(blob) < 40 {
		t.Fatalf("geometry blob is %d bytes, too short for header and envelope", len(blob))
	}
	if string(blob[:2]) != "GP" || blob[2] != 0 {
		t.Errorf("blob magic/version = % x, want GP 00", blob[:3])
	}
	if blob[3] != 0x03 {
		t.Errorf("flags = %#x, want 0x03 (little-endian, xy envelope)", blob[3])
	}
	if srs := int32(binary.LittleEndian.Uint32(blob[4:8])); srs != 25832 {
		t.Errorf("blob srs_id = %d, want 25832", srs)
	}

	envelope := make([]float64, 4)
	for i := range envelope {
		bits := binary.LittleEndian.Uint64(blob[8+i*8 : 16+i*8])
		envelope[i] = math.Float64frombits(bits)
	}
	want := []float64{547000, 548000, 5724000, 5725000}
	for i := range want {
		if envelope[i] != want[i] {
			t.Errorf("envelope[%d] = %v, want %v (minx,maxx,miny,maxy)", i, envelope[i], want[i])
		}
	}

	geom, err := wkb.Unmarshal(blob[40:])
	if err != nil {
		t.Fatalf("geometry body is not WKB: %v", err)
	}
	poly, ok := geom.(orb.Polygon)
	if !ok {
		t.Fatalf("geometry is %T, want orb.Polygon", geom)
	}
	b := poly.Bound()
	if b.Min[0] != 547000 || b.Max[1] != 5725000 {
		t.Errorf("polygon bound = %v", b)
	}
}

func TestWriteRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiles.gpkg")
	if err := Write(path, testCatalog(), "tiles", false); err != nil {
		t.Fatalf("first Write() error = %v", err)
	}
	if err := Write(path, testCatalog(), "tiles", false); err == nil {
		t.Error("Write() should refuse an existing path without overwrite")
	}
	if err := Write(path, testCatalog(), "tiles", true); err != nil {
		t.Errorf("Write() with overwrite error = %v", err)
	}
}

func TestWriteValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiles.gpkg")

	if err := Write(path, testCatalog(), "bad name; DROP TABLE", false); err == nil {
		t.Error("Write() should reject layer names that are not identifiers")
	}

	mixed := vpc.New(
		vpc.Entry{Href: "a.laz", EPSG: 25832},
		vpc.Entry{Href: "b.laz", EPSG: 25833},
	)
	if err := Write(path, mixed, "tiles", false); err == nil {
		t.Error("Write() should reject mixed-CRS catalogs")
	}
}

// Package gpkg writes catalogs as GeoPackage feature layers: tile footprint
// polygons with the catalog attributes.
package gpkg

import (
	"bytes"
	"database/sql"
	"encoding/binary"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/paulmach/orb/encoding/wkb"
	_ "modernc.org/sqlite"

	"github.com/lidar-tools/tilecat/internal/grid"
	"github.com/lidar-tools/tilecat/internal/proj"
	"github.com/lidar-tools/tilecat/internal/vpc"
)

// GeoPackage file identification pragmas: "GPKG" and format version 1.3.
const (
	applicationID = 1196444487
	userVersion   = 10300
)

var layerNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Write exports the catalog into a new GeoPackage at path. An existing path
// is an input error unless overwrite is set.
func Write(path string, c *vpc.Catalog, layer string, overwrite bool) error {
	if !layerNamePattern.MatchString(layer) {
		return fmt.Errorf("invalid layer name %q", layer)
	}
	if _, err := os.Stat(path); err == nil {
		if !overwrite {
			return fmt.Errorf("output path already exists: %s", path)
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to replace %s: %w", path, err)
		}
	}

	epsg := 0
	if !c.IsEmpty() {
		var err error
		epsg, err = c.SingleEPSG()
		if err != nil {
			return err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open geopackage: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(fmt.Sprintf(
		"PRAGMA application_id = %d; PRAGMA user_version = %d;", applicationID, userVersion)); err != nil {
		return fmt.Errorf("set geopackage pragmas: %w", err)
	}

	if err := createSchema(db, layer); err != nil {
		return err
	}
	if err := insertSRS(db, epsg); err != nil {
		return err
	}
	if err := insertContents(db, layer, c, epsg); err != nil {
		return err
	}
	return insertFeatures(db, layer, c, epsg)
}

func createSchema(db *sql.DB, layer string) error {
	schema := `
		CREATE TABLE gpkg_spatial_ref_sys (
			srs_name TEXT NOT NULL,
			srs_id INTEGER PRIMARY KEY,
			organization TEXT NOT NULL,
			organization_coordsys_id INTEGER NOT NULL,
			definition TEXT NOT NULL,
			description TEXT
		);

		CREATE TABLE gpkg_contents (
			table_name TEXT PRIMARY KEY,
			data_type TEXT NOT NULL,
			identifier TEXT UNIQUE,
			description TEXT DEFAULT '',
			last_change TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
			min_x REAL, min_y REAL, max_x REAL, max_y REAL,
			srs_id INTEGER,
			FOREIGN KEY (srs_id) REFERENCES gpkg_spatial_ref_sys(srs_id)
		);

		CREATE TABLE gpkg_geometry_columns (
			table_name TEXT NOT NULL,
			column_name TEXT NOT NULL,
			geometry_type_name TEXT NOT NULL,
			srs_id INTEGER NOT NULL,
			z TINYINT NOT NULL,
			m TINYINT NOT NULL,
			PRIMARY KEY (table_name, column_name)
		);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create geopackage schema: %w", err)
	}

	table := fmt.Sprintf(`
		CREATE TABLE %s (
			fid INTEGER PRIMARY KEY AUTOINCREMENT,
			geom BLOB,
			href TEXT NOT NULL,
			epsg INTEGER,
			datetime TEXT,
			datetime_source TEXT,
			tile_x INTEGER,
			tile_y INTEGER,
			point_count INTEGER
		);`, layer)
	if _, err := db.Exec(table); err != nil {
		return fmt.Errorf("create feature table: %w", err)
	}
	return nil
}

func insertSRS(db *sql.DB, epsg int) error {
	rows := [][]any{
		{"Undefined Cartesian", -1, "NONE", -1, "undefined", nil},
		{"Undefined Geographic", 0, "NONE", 0, "undefined", nil},
	}
	if epsg != 4326 {
		rows = append(rows, []any{"WGS 84", 4326, "EPSG", 4326, srsDefinition(4326), nil})
	}
	if epsg != 0 {
		rows = append(rows, []any{fmt.Sprintf("EPSG:%d", epsg), epsg, "EPSG", epsg, srsDefinition(epsg), nil})
	}
	for _, row := range rows {
		if _, err := db.Exec(`
			INSERT INTO gpkg_spatial_ref_sys
			(srs_name, srs_id, organization, organization_coordsys_id, definition, description)
			VALUES (?, ?, ?, ?, ?, ?)`, row...); err != nil {
			return fmt.Errorf("insert spatial reference: %w", err)
		}
	}
	return nil
}

// srsDefinition renders WKT for the CRS codes the toolkit works in. Codes
// outside that set keep the file valid but leave interpretation to the
// reader's own EPSG registry.
func srsDefinition(epsg int) string {
	const (
		etrs89 = `GEOGCS["ETRS89",DATUM["European_Terrestrial_Reference_System_1989",SPHEROID["GRS 1980",6378137,298.257222101]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433],AUTHORITY["EPSG","4258"]]`
		wgs84  = `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433],AUTHORITY["EPSG","4326"]]`
	)
	switch {
	case epsg == 4326:
		return wgs84
	case epsg == 4258:
		return etrs89
	default:
		zone, ok := proj.UTMZone(epsg)
		if !ok {
			return "undefined"
		}
		base, datum := wgs84, "WGS 84"
		if epsg >= 25800 && epsg < 25900 {
			base, datum = etrs89, "ETRS89"
		}
		south := ""
		falseNorthing := 0
		if epsg >= 32700 && epsg < 32800 {
			south = "S"
			falseNorthing = 10000000
		}
		return fmt.Sprintf(
			`PROJCS["%s / UTM zone %d%s",%s,PROJECTION["Transverse_Mercator"],PARAMETER["latitude_of_origin",0],PARAMETER["central_meridian",%d],PARAMETER["scale_factor",0.9996],PARAMETER["false_easting",500000],PARAMETER["false_northing",%d],UNIT["metre",1],AUTHORITY["EPSG","%d"]]`,
			datum, zone, south, base, zone*6-183, falseNorthing, epsg)
	}
}

func insertContents(db *sql.DB, layer string, c *vpc.Catalog, epsg int) error {
	var minX, minY, maxX, maxY any
	if !c.IsEmpty() {
		b := c.Bound()
		minX, minY, maxX, maxY = b.Min[0], b.Min[1], b.Max[0], b.Max[1]
	}
	if _, err := db.Exec(`
		INSERT INTO gpkg_contents
		(table_name, data_type, identifier, description, last_change, min_x, min_y, max_x, max_y, srs_id)
		VALUES (?, 'features', ?, 'lidar tile catalog', ?, ?, ?, ?, ?, ?)`,
		layer, layer, time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		minX, minY, maxX, maxY, epsg); err != nil {
		return fmt.Errorf("insert contents row: %w", err)
	}
	if _, err := db.Exec(`
		INSERT INTO gpkg_geometry_columns (table_name, column_name, geometry_type_name, srs_id, z, m)
		VALUES (?, 'geom', 'POLYGON', ?, 0, 0)`, layer, epsg); err != nil {
		return fmt.Errorf("insert geometry column row: %w", err)
	}
	return nil
}

func insertFeatures(db *sql.DB, layer string, c *vpc.Catalog, epsg int) error {
	if c.IsEmpty() {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO %s (geom, href, epsg, datetime, datetime_source, tile_x, tile_y, point_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, layer))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range c.Entries {
		geom, err := gpkgGeometry(e, epsg)
		if err != nil {
			return fmt.Errorf("encode geometry for %s: %w", e.Href, err)
		}
		var datetime any
		if e.HasDatetime() {
			datetime = e.Datetime.UTC().Format(time.RFC3339)
		}
		key, _ := grid.KeyFor(e.Bound, grid.DefaultCellSize, grid.DefaultTolerance)
		if _, err := stmt.Exec(geom, e.Href, e.EPSG, datetime, string(e.DatetimeSource),
			key.X, key.Y, e.PointCount); err != nil {
			return fmt.Errorf("insert %s: %w", e.Href, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

// gpkgGeometry encodes the standard GeoPackage binary header (magic,
// version, little-endian flags with an xy envelope) followed by the WKB
// polygon.
func gpkgGeometry(e vpc.Entry, srsID int) ([]byte, error) {
	body, err := wkb.Marshal(e.Footprint(), binary.LittleEndian)
	if err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	buf.WriteString("GP")
	buf.WriteByte(0)
	buf.WriteByte(0x03)
	binary.Write(buf, binary.LittleEndian, int32(srsID))
	for _, v := range []float64{e.Bound.Min[0], e.Bound.Max[0], e.Bound.Min[1], e.Bound.Max[1]} {
		binary.Write(buf, binary.LittleEndian, v)
	}
	buf.Write(body)
	return buf.Bytes(), nil
}

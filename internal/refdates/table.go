// Package refdates loads reference acquisition-date tables and applies them
// to catalog entries whose embedded timing is missing or unreliable.
package refdates

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/lidar-tools/tilecat/internal/grid"
	"github.com/lidar-tools/tilecat/internal/vpc"
)

const dateLayout = "2006-01-02"

// Table maps tile keys to their known acquisition dates, ascending.
type Table map[grid.TileKey][]time.Time

// refRecord is one parquet table row; columns mirror the CSV schema.
type refRecord struct {
	MinX int32  `parquet:"minx"`
	MinY int32  `parquet:"miny"`
	Date string `parquet:"date"`
}

// Load reads a reference-date table from a CSV or parquet file.
func Load(path string) (Table, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return loadCSV(path)
	case ".parquet":
		return loadParquet(path)
	default:
		return nil, fmt.Errorf("unsupported reference table format: %s (supported: .csv, .parquet)", ext)
	}
}

// loadCSV reads columns minx, miny (kilometres) and date (YYYY-MM-DD). The
// header row decides column positions.
func loadCSV(path string) (Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference table: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read reference table header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"minx", "miny", "date"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("reference table %s is missing column %q", path, required)
		}
	}

	table := Table{}
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reference table %s line %d: %w", path, line, err)
		}
		if err := table.add(record[cols["minx"]], record[cols["miny"]], record[cols["date"]]); err != nil {
			return nil, fmt.Errorf("reference table %s line %d: %w", path, line, err)
		}
	}
	table.sortDates()
	return table, nil
}

func loadParquet(path string) (Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference table: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat reference table: %w", err)
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet reference table: %w", err)
	}

	reader := parquet.NewGenericReader[refRecord](pf)
	defer reader.Close()

	table := Table{}
	rows := make([]refRecord, 128)
	row := 0
	for {
		n, err := reader.Read(rows)
		for _, rec := range rows[:n] {
			row++
			date, perr := time.Parse(dateLayout, rec.Date)
			if perr != nil {
				return nil, fmt.Errorf("reference table %s row %d: invalid date %q", path, row, rec.Date)
			}
			key := grid.TileKey{X: int(rec.MinX), Y: int(rec.MinY)}
			table[key] = append(table[key], date)
		}
		if err != nil {
			break
		}
	}
	table.sortDates()
	slog.Debug("Loaded reference dates", "path", path, "tiles", len(table), "rows", row)
	return table, nil
}

func (t Table) add(minx, miny, date string) error {
	x, err := strconv.Atoi(strings.TrimSpace(minx))
	if err != nil {
		return fmt.Errorf("invalid minx %q", minx)
	}
	y, err := strconv.Atoi(strings.TrimSpace(miny))
	if err != nil {
		return fmt.Errorf("invalid miny %q", miny)
	}
	d, err := time.Parse(dateLayout, strings.TrimSpace(date))
	if err != nil {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
	}
	key := grid.TileKey{X: x, Y: y}
	t[key] = append(t[key], d)
	return nil
}

func (t Table) sortDates() {
	for _, dates := range t {
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	}
}

// DateFor returns the tile's latest reference date not later than notAfter.
// A zero notAfter lifts the upper bound.
func (t Table) DateFor(tile grid.TileKey, notAfter time.Time) (time.Time, bool) {
	dates := t[tile]
	for i := len(dates) - 1; i >= 0; i-- {
		if notAfter.IsZero() || !dates[i].After(notAfter) {
			return dates[i], true
		}
	}
	return time.Time{}, false
}

// Apply reassigns acquisition dates from the table. Entries dated from
// per-point timing keep their datetime; entries with processing-header dates
// get the latest reference date not later than that header date; undated
// entries get the tile's latest reference date. Returns the updated catalog
// and the number of reassigned entries.
func Apply(c *vpc.Catalog, table Table, cell, tolerance float64) (*vpc.Catalog, int) {
	if c.IsEmpty() || len(table) == 0 {
		return c, 0
	}

	reassigned := 0
	entries := make([]vpc.Entry, 0, c.Len())
	for _, e := range c.Entries {
		if e.DatetimeSource == vpc.SourceData && e.HasDatetime() {
			entries = append(entries, e)
			continue
		}
		key, _ := grid.KeyFor(e.Bound, cell, tolerance)
		date, ok := table.DateFor(key, e.Datetime)
		if !ok {
			entries = append(entries, e)
			continue
		}
		e.Datetime = date
		e.DatetimeSource = vpc.SourceCSV
		entries = append(entries, e)
		reassigned++
	}
	return vpc.New(entries...), reassigned
}

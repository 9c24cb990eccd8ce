package vpc

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
)

// Catalog is an ordered collection of entries, unique by href. Operations
// never mutate a catalog in place; every transformation returns a new value,
// so catalogs can be shared freely between pipeline stages.
type Catalog struct {
	Entries []Entry
}

// New builds a catalog from entries without deduplicating them.
func New(entries ...Entry) *Catalog {
	return &Catalog{Entries: entries}
}

// Len returns the number of entries. Safe on a nil catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Entries)
}

// IsEmpty reports whether the catalog is nil or has no entries.
func (c *Catalog) IsEmpty() bool {
	return c.Len() == 0
}

// Hrefs lists the entry storage locations in catalog order.
func (c *Catalog) Hrefs() []string {
	if c == nil {
		return nil
	}
	hrefs := make([]string, 0, len(c.Entries))
	for _, e := range c.Entries {
		hrefs = append(hrefs, e.Href)
	}
	return hrefs
}

// Filter returns a new catalog holding the entries for which keep is true,
// preserving order. Safe on a nil catalog.
func (c *Catalog) Filter(keep func(Entry) bool) *Catalog {
	if c == nil {
		return New()
	}
	out := make([]Entry, 0, len(c.Entries))
	for _, e := range c.Entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return &Catalog{Entries: out}
}

// Dedup removes entries whose href was already seen, keeping the first
// occurrence. The receiver is returned unchanged when it is already unique.
func (c *Catalog) Dedup() *Catalog {
	if c == nil {
		return New()
	}
	seen := make(map[string]struct{}, len(c.Entries))
	unique := true
	for _, e := range c.Entries {
		if _, dup := seen[e.Href]; dup {
			unique = false
			break
		}
		seen[e.Href] = struct{}{}
	}
	if unique {
		return c
	}

	seen = make(map[string]struct{}, len(c.Entries))
	out := make([]Entry, 0, len(c.Entries))
	for _, e := range c.Entries {
		if _, dup := seen[e.Href]; dup {
			continue
		}
		seen[e.Href] = struct{}{}
		out = append(out, e)
	}
	return &Catalog{Entries: out}
}

// Merge concatenates catalogs and deduplicates by href, first seen wins.
// Merge order therefore decides which duplicate's fields survive, never the
// final membership.
func Merge(catalogs ...*Catalog) *Catalog {
	var total int
	for _, c := range catalogs {
		total += c.Len()
	}
	merged := make([]Entry, 0, total)
	for _, c := range catalogs {
		if c == nil {
			continue
		}
		merged = append(merged, c.Entries...)
	}
	return (&Catalog{Entries: merged}).Dedup()
}

// DistinctEPSG lists the CRS codes present in the catalog, ascending.
func (c *Catalog) DistinctEPSG() []int {
	if c == nil {
		return nil
	}
	set := make(map[int]struct{})
	for _, e := range c.Entries {
		set[e.EPSG] = struct{}{}
	}
	codes := make([]int, 0, len(set))
	for code := range set {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

// SingleEPSG returns the catalog's CRS code. A catalog mixing several codes
// cannot be analyzed as one tiling scheme and yields an error naming every
// code found.
func (c *Catalog) SingleEPSG() (int, error) {
	codes := c.DistinctEPSG()
	switch len(codes) {
	case 0:
		return 0, fmt.Errorf("catalog has no entries")
	case 1:
		return codes[0], nil
	default:
		return 0, fmt.Errorf("catalog mixes coordinate reference systems: EPSG codes %v", codes)
	}
}

// Bound returns the union of all entry bounding boxes.
func (c *Catalog) Bound() orb.Bound {
	var b orb.Bound
	if c == nil {
		return b
	}
	for i, e := range c.Entries {
		if i == 0 {
			b = e.Bound
			continue
		}
		b = b.Union(e.Bound)
	}
	return b
}

// Undated counts entries without an acquisition time.
func (c *Catalog) Undated() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, e := range c.Entries {
		if !e.HasDatetime() {
			n++
		}
	}
	return n
}

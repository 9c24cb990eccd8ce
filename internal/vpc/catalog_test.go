package vpc

import (
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
)

func testEntry(href string, epsg int) Entry {
	return Entry{
		Href:  href,
		Bound: orb.Bound{Min: orb.Point{547000, 5724000}, Max: orb.Point{548000, 5725000}},
		EPSG:  epsg,
	}
}

func TestDedupFirstSeenWins(t *testing.T) {
	first := testEntry("a.laz", 25832)
	first.Datetime = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	shadow := testEntry("a.laz", 25832)
	shadow.Datetime = time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

	c := New(first, testEntry("b.laz", 25832), shadow)
	got := c.Dedup()

	if got.Len() != 2 {
		t.Fatalf("Dedup() kept %d entries, want 2", got.Len())
	}
	if !got.Entries[0].Datetime.Equal(first.Datetime) {
		t.Errorf("Dedup() kept datetime %v, want first occurrence %v",
			got.Entries[0].Datetime, first.Datetime)
	}
	if gotHrefs := got.Hrefs(); gotHrefs[0] != "a.laz" || gotHrefs[1] != "b.laz" {
		t.Errorf("Dedup() order = %v, want [a.laz b.laz]", gotHrefs)
	}
}

func TestDedupUniqueReturnsReceiver(t *testing.T) {
	c := New(testEntry("a.laz", 25832), testEntry("b.laz", 25832))
	if got := c.Dedup(); got != c {
		t.Error("Dedup() on a unique catalog should return the receiver")
	}
}

func TestMergeFirstSeenWins(t *testing.T) {
	newer := testEntry("a.laz", 25832)
	newer.PointCount = 100
	older := testEntry("a.laz", 25832)
	older.PointCount = 50

	merged := Merge(New(newer, testEntry("b.laz", 25832)), New(older, testEntry("c.laz", 25832)))

	if merged.Len() != 3 {
		t.Fatalf("Merge() has %d entries, want 3", merged.Len())
	}
	if merged.Entries[0].PointCount != 100 {
		t.Errorf("Merge() kept point count %d for a.laz, want 100 from the first catalog",
			merged.Entries[0].PointCount)
	}
	want := []string{"a.laz", "b.laz", "c.laz"}
	for i, href := range merged.Hrefs() {
		if href != want[i] {
			t.Errorf("Merge() order[%d] = %s, want %s", i, href, want[i])
		}
	}
}

func TestMergeSkipsNil(t *testing.T) {
	merged := Merge(nil, New(testEntry("a.laz", 25832)), nil)
	if merged.Len() != 1 {
		t.Errorf("Merge() with nil catalogs has %d entries, want 1", merged.Len())
	}
}

func TestFilterPreservesOrder(t *testing.T) {
	c := New(testEntry("a.laz", 25832), testEntry("b.laz", 4326), testEntry("c.laz", 25832))
	got := c.Filter(func(e Entry) bool { return e.EPSG == 25832 })
	if got.Len() != 2 || got.Entries[0].Href != "a.laz" || got.Entries[1].Href != "c.laz" {
		t.Errorf("Filter() = %v, want [a.laz c.laz]", got.Hrefs())
	}
}

func TestDistinctEPSGSorted(t *testing.T) {
	c := New(testEntry("a.laz", 25833), testEntry("b.laz", 25832), testEntry("c.laz", 25833))
	got := c.DistinctEPSG()
	if len(got) != 2 || got[0] != 25832 || got[1] != 25833 {
		t.Errorf("DistinctEPSG() = %v, want [25832 25833]", got)
	}
}

func TestSingleEPSG(t *testing.T) {
	c := New(testEntry("a.laz", 25832), testEntry("b.laz", 25832))
	epsg, err := c.SingleEPSG()
	if err != nil {
		t.Fatalf("SingleEPSG() error = %v", err)
	}
	if epsg != 25832 {
		t.Errorf("SingleEPSG() = %d, want 25832", epsg)
	}
}

func TestSingleEPSGMixed(t *testing.T) {
	c := New(testEntry("a.laz", 25832), testEntry("b.laz", 25833))
	_, err := c.SingleEPSG()
	if err == nil {
		t.Fatal("SingleEPSG() on a mixed catalog should fail")
	}
	for _, code := range []string{"25832", "25833"} {
		if !strings.Contains(err.Error(), code) {
			t.Errorf("SingleEPSG() error %q should name EPSG %s", err, code)
		}
	}
}

func TestUndated(t *testing.T) {
	dated := testEntry("a.laz", 25832)
	dated.Datetime = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	c := New(dated, testEntry("b.laz", 25832), testEntry("c.laz", 25832))
	if got := c.Undated(); got != 2 {
		t.Errorf("Undated() = %d, want 2", got)
	}
}

func TestNilCatalogSafety(t *testing.T) {
	var c *Catalog
	if c.Len() != 0 {
		t.Error("nil catalog Len() should be 0")
	}
	if !c.IsEmpty() {
		t.Error("nil catalog IsEmpty() should be true")
	}
	if c.Hrefs() != nil {
		t.Error("nil catalog Hrefs() should be nil")
	}
	if got := c.Filter(func(Entry) bool { return true }); got.Len() != 0 {
		t.Error("nil catalog Filter() should be empty")
	}
	if got := c.Dedup(); got.Len() != 0 {
		t.Error("nil catalog Dedup() should be empty")
	}
	if got := c.DistinctEPSG(); got != nil {
		t.Error("nil catalog DistinctEPSG() should be nil")
	}
	if c.Undated() != 0 {
		t.Error("nil catalog Undated() should be 0")
	}
}

func TestBoundUnion(t *testing.T) {
	a := testEntry("a.laz", 25832)
	b := Entry{
		Href:  "b.laz",
		Bound: orb.Bound{Min: orb.Point{549000, 5726000}, Max: orb.Point{550000, 5727000}},
		EPSG:  25832,
	}
	got := New(a, b).Bound()
	want := orb.Bound{Min: orb.Point{547000, 5724000}, Max: orb.Point{550000, 5727000}}
	if got != want {
		t.Errorf("Bound() = %v, want %v", got, want)
	}
}

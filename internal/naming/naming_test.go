package naming

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/lidar-tools/tilecat/internal/vpc"
)

func entry(href string, kmx, kmy int, year int) vpc.Entry {
	e := vpc.Entry{
		Href: href,
		Bound: orb.Bound{
			Min: orb.Point{float64(kmx) * 1000, float64(kmy) * 1000},
			Max: orb.Point{float64(kmx)*1000 + 1000, float64(kmy)*1000 + 1000},
		},
		EPSG: 25832,
	}
	if year != 0 {
		e.Datetime = time.Date(year, 3, 14, 10, 30, 0, 0, time.UTC)
	}
	return e
}

type stubLookup struct {
	code  string
	err   error
	calls int
}

func (s *stubLookup) Region(ctx context.Context, bound orb.Bound, epsg int) (string, error) {
	s.calls++
	return s.code, s.err
}

func TestExpectedName(t *testing.T) {
	tests := []struct {
		name   string
		entry  vpc.Entry
		params Params
		want   string
	}{
		{
			name:   "canonical tile",
			entry:  entry("tiles/whatever.laz", 547, 5724, 2024),
			params: Params{Region: "ni"},
			want:   "3dm_32_547_5724_1_ni_2024.laz",
		},
		{
			name:   "copc flag",
			entry:  entry("tiles/whatever.copc.laz", 547, 5724, 2024),
			params: Params{Region: "ni", COPC: true},
			want:   "3dm_32_547_5724_1_ni_2024.copc.laz",
		},
		{
			name:   "las keeps its extension",
			entry:  entry("scan.las", 547, 5724, 2024),
			params: Params{Region: "ni"},
			want:   "3dm_32_547_5724_1_ni_2024.las",
		},
		{
			name:   "pinned zone region and year win",
			entry:  entry("x.laz", 547, 5724, 2024),
			params: Params{Prefix: "dgm", Zone: 33, Region: "bb", Year: 2019},
			want:   "dgm_33_547_5724_1_bb_2019.laz",
		},
		{
			name: "snapped drift",
			entry: func() vpc.Entry {
				e := entry("x.laz", 547, 5724, 2024)
				e.Bound = orb.Bound{
					Min: orb.Point{546999.62, 5724000.4},
					Max: orb.Point{548000.31, 5724999.8},
				}
				return e
			}(),
			params: Params{Region: "ni"},
			want:   "3dm_32_547_5724_1_ni_2024.laz",
		},
		{
			name: "two kilometre tile",
			entry: func() vpc.Entry {
				e := entry("x.laz", 547, 5724, 2024)
				e.Bound.Max = orb.Point{549000, 5726000}
				return e
			}(),
			params: Params{Region: "ni"},
			want:   "3dm_32_547_5724_2_ni_2024.laz",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpectedName(tt.entry, tt.params)
			if err != nil {
				t.Fatalf("ExpectedName() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ExpectedName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpectedNameErrors(t *testing.T) {
	undated := entry("x.laz", 547, 5724, 0)
	if _, err := ExpectedName(undated, Params{Region: "ni"}); err == nil {
		t.Error("ExpectedName() on an undated entry without a pinned year should fail")
	}

	weird := entry("x.laz", 547, 5724, 2024)
	weird.EPSG = 4326
	if _, err := ExpectedName(weird, Params{Region: "ni"}); err == nil {
		t.Error("ExpectedName() should fail when no UTM zone derives from the CRS")
	}

	if _, err := ExpectedName(entry("x.laz", 547, 5724, 2024), Params{}); err == nil {
		t.Error("ExpectedName() without a region should fail")
	}
}

func TestCheck(t *testing.T) {
	cat := vpc.New(
		entry("tiles/3dm_32_547_5724_1_ni_2024.laz", 547, 5724, 2024),
		entry("tiles/lidar_export_0042.laz", 548, 5724, 2024),
	)
	lookup := &stubLookup{code: "ni"}

	checks, err := Check(context.Background(), cat, DefaultParams(), lookup)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if len(checks) != 2 {
		t.Fatalf("Check() returned %d results, want 2", len(checks))
	}

	if !checks[0].Matches {
		t.Errorf("%q should match its canonical name %q", checks[0].Actual, checks[0].Expected)
	}
	if checks[1].Matches {
		t.Errorf("%q should not match %q", checks[1].Actual, checks[1].Expected)
	}
	if checks[1].Expected != "3dm_32_548_5724_1_ni_2024.laz" {
		t.Errorf("expected name = %q, want 3dm_32_548_5724_1_ni_2024.laz", checks[1].Expected)
	}
	if lookup.calls != 2 {
		t.Errorf("region lookup consulted %d times, want 2", lookup.calls)
	}
}

func TestCheckPinnedRegionSkipsLookup(t *testing.T) {
	cat := vpc.New(entry("x.laz", 547, 5724, 2024))
	lookup := &stubLookup{code: "ni"}

	params := DefaultParams()
	params.Region = "he"
	checks, err := Check(context.Background(), cat, params, lookup)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if lookup.calls != 0 {
		t.Errorf("pinned region should skip the lookup, it was consulted %d times", lookup.calls)
	}
	if checks[0].Expected != "3dm_32_547_5724_1_he_2024.laz" {
		t.Errorf("expected name = %q, want the pinned region he", checks[0].Expected)
	}
}

func TestCheckErrors(t *testing.T) {
	cat := vpc.New(entry("x.laz", 547, 5724, 2024))

	if _, err := Check(context.Background(), cat, DefaultParams(), nil); err == nil {
		t.Error("Check() without a lookup or pinned region should fail")
	}

	failing := &stubLookup{err: fmt.Errorf("boundary service down")}
	if _, err := Check(context.Background(), cat, DefaultParams(), failing); err == nil {
		t.Error("Check() should surface lookup failures")
	}

	if checks, err := Check(context.Background(), nil, DefaultParams(), nil); err != nil || checks != nil {
		t.Errorf("Check(nil catalog) = (%v, %v), want (nil, nil)", checks, err)
	}
}

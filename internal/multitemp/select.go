package multitemp

import (
	"fmt"

	"github.com/lidar-tools/tilecat/internal/vpc"
)

// pick filters the source catalog down to the hrefs chosen per group, so the
// selection keeps the source catalog's entry order.
func (c *Classification) pick(choose func(Group) (string, bool)) *vpc.Catalog {
	if c == nil {
		return vpc.New()
	}
	chosen := make(map[string]struct{}, len(c.Groups))
	for _, g := range c.Groups {
		if href, ok := choose(g); ok {
			chosen[href] = struct{}{}
		}
	}
	return c.Source.Filter(func(e vpc.Entry) bool {
		_, ok := chosen[e.Href]
		return ok
	})
}

// First selects each tile's earliest dated observation. Tiles without any
// dated observation contribute nothing.
func (c *Classification) First() *vpc.Catalog {
	return c.pick(func(g Group) (string, bool) {
		dated := g.Dated()
		if len(dated) == 0 {
			return "", false
		}
		return dated[0].Href, true
	})
}

// Latest selects each tile's most recent dated observation.
func (c *Classification) Latest() *vpc.Catalog {
	return c.pick(func(g Group) (string, bool) {
		dated := g.Dated()
		if len(dated) == 0 {
			return "", false
		}
		return dated[len(dated)-1].Href, true
	})
}

// Nth selects each tile's rank-th dated observation in time order, rank 1
// being the earliest. Tiles with fewer dated observations are skipped.
func (c *Classification) Nth(rank int) (*vpc.Catalog, error) {
	if rank < 1 {
		return nil, fmt.Errorf("observation rank must be at least 1, got %d", rank)
	}
	return c.pick(func(g Group) (string, bool) {
		dated := g.Dated()
		if len(dated) < rank {
			return "", false
		}
		return dated[rank-1].Href, true
	}), nil
}

// ByCount keeps every observation of tiles with exactly n observations, or
// of multi-temporal tiles when n is nil.
func (c *Classification) ByCount(n *int) *vpc.Catalog {
	if c == nil {
		return vpc.New()
	}
	keep := make(map[string]struct{})
	for _, g := range c.Groups {
		match := g.Multitemporal
		if n != nil {
			match = g.Observations == *n
		}
		if !match {
			continue
		}
		for _, e := range g.Entries {
			keep[e.Href] = struct{}{}
		}
	}
	return c.Source.Filter(func(e vpc.Entry) bool {
		_, ok := keep[e.Href]
		return ok
	})
}

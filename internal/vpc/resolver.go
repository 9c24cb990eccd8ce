package vpc

import (
	"context"
	"fmt"
	"log/slog"
)

// Engine builds a catalog from raw point-cloud files. Implementations probe
// file headers or shell out to external tooling.
type Engine interface {
	Build(ctx context.Context, files []string) (*Catalog, error)
}

// Resolver turns a heterogeneous list of sources into one deduplicated
// catalog.
type Resolver struct {
	Engine Engine
}

// NewResolver returns a resolver backed by the given engine. The engine may
// be nil when only document and in-memory sources are expected.
func NewResolver(engine Engine) *Resolver {
	return &Resolver{Engine: engine}
}

// Resolve merges every source into a single catalog. Raw files and directory
// contents are batched into one engine call so the engine can parallelize.
// Documents that fail to load are skipped with a warning; if nothing at all
// resolves, the result is nil with no error.
func (r *Resolver) Resolve(ctx context.Context, sources []Source) (*Catalog, error) {
	var catalogs []*Catalog
	var files []string

	for _, src := range sources {
		switch s := src.(type) {
		case CatalogSource:
			if s.Catalog != nil && !s.Catalog.IsEmpty() {
				catalogs = append(catalogs, s.Catalog)
			}
		case DocumentSource:
			cat, err := ReadDocument(s.Path)
			if err != nil {
				slog.Warn("skipping unreadable catalog document", "path", s.Path, "err", err)
				continue
			}
			catalogs = append(catalogs, cat)
		case FileSource:
			files = append(files, s.Path)
		case DirSource:
			expanded, err := expandDir(s.Path)
			if err != nil {
				return nil, err
			}
			if len(expanded) == 0 {
				slog.Warn("directory contains no point-cloud files", "path", s.Path)
				continue
			}
			files = append(files, expanded...)
		default:
			return nil, fmt.Errorf("unknown source type %T", src)
		}
	}

	if len(files) > 0 {
		if r.Engine == nil {
			return nil, fmt.Errorf("raw point-cloud inputs need a catalog engine")
		}
		built, err := r.Engine.Build(ctx, files)
		if err != nil {
			return nil, fmt.Errorf("failed to catalog %d point-cloud files: %w", len(files), err)
		}
		if built != nil && !built.IsEmpty() {
			catalogs = append(catalogs, built)
		}
	}

	switch len(catalogs) {
	case 0:
		return nil, nil
	case 1:
		return catalogs[0].Dedup(), nil
	}

	merged := Merge(catalogs...)
	slog.Debug("merged catalogs", "sources", len(catalogs), "entries", merged.Len())
	return merged, nil
}

// ResolveArgs classifies the arguments and resolves them in one step.
func (r *Resolver) ResolveArgs(ctx context.Context, args []string) (*Catalog, error) {
	sources, err := SourcesFromArgs(args)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, sources)
}

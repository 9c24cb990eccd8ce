package vpc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Source is one input the resolver can draw entries from. The concrete types
// cover catalog documents, single point-cloud files, and directories of them.
type Source interface {
	sourceLabel() string
}

// DocumentSource is an existing catalog document on disk.
type DocumentSource struct {
	Path string
}

// FileSource is a single point-cloud file that needs probing.
type FileSource struct {
	Path string
}

// DirSource is a directory whose point-cloud files need probing. Expansion is
// not recursive.
type DirSource struct {
	Path string
}

// CatalogSource is an already resolved in-memory catalog.
type CatalogSource struct {
	Catalog *Catalog
}

func (s DocumentSource) sourceLabel() string { return s.Path }
func (s FileSource) sourceLabel() string     { return s.Path }
func (s DirSource) sourceLabel() string      { return s.Path }
func (s CatalogSource) sourceLabel() string  { return "in-memory catalog" }

// IsPointCloudFile reports whether the file name carries one of the supported
// point-cloud extensions.
func IsPointCloudFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".las") ||
		strings.HasSuffix(lower, ".laz") ||
		strings.HasSuffix(lower, ".copc.laz")
}

// IsDocumentFile reports whether the file name looks like a catalog document.
func IsDocumentFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".vpc") || strings.HasSuffix(lower, ".json")
}

// ClassifySource turns one path argument into a Source. Directories expand
// later; files classify by extension.
func ClassifySource(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access input %s: %w", path, err)
	}
	if info.IsDir() {
		return DirSource{Path: path}, nil
	}
	switch {
	case IsDocumentFile(path):
		return DocumentSource{Path: path}, nil
	case IsPointCloudFile(path):
		return FileSource{Path: path}, nil
	default:
		return nil, fmt.Errorf("unsupported input type: %s", path)
	}
}

// SourcesFromArgs classifies every argument, failing on the first one that
// cannot be handled.
func SourcesFromArgs(args []string) ([]Source, error) {
	sources := make([]Source, 0, len(args))
	for _, arg := range args {
		src, err := ClassifySource(arg)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// expandDir lists the point-cloud files directly inside dir, sorted by name.
func expandDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if IsPointCloudFile(entry.Name()) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

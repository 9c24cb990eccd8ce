package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/lidar-tools/tilecat/internal/vpc"
)

// WrenchEnvVar overrides the pdal_wrench binary location.
const WrenchEnvVar = "TILECAT_WRENCH_BIN"

// Wrench builds catalogs with one pdal_wrench build_vpc run per batch, so
// the external tool does its own parallel header reads.
type Wrench struct {
	Bin string
	// TempDir overrides where the intermediate document lands, mainly for
	// tests. Empty means the system temp directory.
	TempDir string
}

// NewWrench reads the binary location from the environment.
func NewWrench() *Wrench {
	return &Wrench{Bin: binaryFromEnv(WrenchEnvVar, "pdal_wrench")}
}

// Build runs build_vpc over the whole batch and loads the resulting
// document.
func (w *Wrench) Build(ctx context.Context, files []string) (*vpc.Catalog, error) {
	if len(files) == 0 {
		return nil, nil
	}

	dir := w.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	tmp := filepath.Join(dir, fmt.Sprintf("tilecat-%s.vpc", uuid.NewString()))
	defer os.Remove(tmp)

	args := append([]string{"build_vpc", "--output=" + tmp}, files...)
	slog.Debug("Running catalog engine", "bin", w.Bin, "files", len(files))

	cmd := exec.CommandContext(ctx, w.Bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s build_vpc failed: %w: %s", w.Bin, err, bytes.TrimSpace(stderr.Bytes()))
	}

	cat, err := vpc.ReadDocument(tmp)
	if err != nil {
		return nil, fmt.Errorf("engine produced an unreadable document: %w", err)
	}
	return cat, nil
}

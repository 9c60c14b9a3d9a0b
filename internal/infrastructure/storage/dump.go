package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"WallRelay/internal/ports"
)

// DumpDir writes unparseable upstream payloads to uniquely named files.
type DumpDir struct {
	dir string
	now func() time.Time
}

var _ ports.DiagnosticSink = (*DumpDir)(nil)

// NewDumpDir stores dumps under dir ("." when empty).
func NewDumpDir(dir string, now func() time.Time) *DumpDir {
	if dir == "" {
		dir = "."
	}
	if now == nil {
		now = time.Now
	}
	return &DumpDir{dir: dir, now: now}
}

// Dump saves body as <reason>_<unix>_<uuid>.txt and returns the file path.
func (d *DumpDir) Dump(reason string, body []byte) (string, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("create diagnostics dir: %w", err)
	}

	name := fmt.Sprintf("%s_%d_%s.txt", reason, d.now().Unix(), uuid.NewString())
	path := filepath.Join(d.dir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write dump: %w", err)
	}
	return path, nil
}

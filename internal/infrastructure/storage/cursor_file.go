package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"WallRelay/internal/domain"
	"WallRelay/internal/ports"
)

const (
	cursorFormat  = "wallrelay.cursor"
	cursorVersion = 1
)

// CursorFile persists the relay cursor as a single JSON document.
type CursorFile struct {
	path     string
	capacity int
	now      func() time.Time
	logger   *slog.Logger
}

var _ ports.CursorStore = (*CursorFile)(nil)

type cursorDocument struct {
	Format        string  `json:"format"`
	Version       int     `json:"version"`
	LastWatermark int64   `json:"last_watermark"`
	Capacity      int     `json:"capacity"`
	RecentIDs     []int64 `json:"recent_ids"`
	SavedAt       string  `json:"saved_at"`
}

// NewCursorFile binds the store to path. capacity sizes the recency set of
// cursors it creates or loads.
func NewCursorFile(path string, capacity int, now func() time.Time, log *slog.Logger) *CursorFile {
	if capacity <= 0 {
		capacity = domain.DefaultRecentCapacity
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CursorFile{path: path, capacity: capacity, now: now, logger: log}
}

// Load reads the stored cursor. Anything missing, empty or malformed yields
// a fresh cursor starting at the current time.
func (s *CursorFile) Load() *domain.Cursor {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("cannot read cursor, starting fresh", "path", s.path, "error", err)
		}
		return s.fresh()
	}
	if len(raw) == 0 {
		return s.fresh()
	}

	var doc cursorDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.logger.Warn("cursor file is corrupted, starting fresh", "path", s.path, "error", err)
		return s.fresh()
	}
	if doc.Format != cursorFormat || doc.Version != cursorVersion || doc.LastWatermark <= 0 {
		s.logger.Warn("cursor file is not recognised, starting fresh", "path", s.path,
			"format", doc.Format, "version", doc.Version)
		return s.fresh()
	}

	cursor := domain.NewCursor(doc.LastWatermark, s.capacity)
	ids := doc.RecentIDs
	if len(ids) > s.capacity {
		ids = ids[len(ids)-s.capacity:]
	}
	for _, id := range ids {
		cursor.Recent.Push(id)
	}
	return cursor
}

// Save replaces the file atomically: the document is written to a temporary
// file in the same directory and renamed over the target.
func (s *CursorFile) Save(cursor *domain.Cursor) error {
	if cursor == nil {
		return fmt.Errorf("cursor is nil")
	}

	doc := cursorDocument{
		Format:        cursorFormat,
		Version:       cursorVersion,
		LastWatermark: cursor.LastWatermark,
		Capacity:      cursor.Recent.Capacity(),
		RecentIDs:     cursor.Recent.IDs(),
		SavedAt:       s.now().UTC().Format(time.RFC3339),
	}
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cursor: %w", err)
	}

	return writeFileAtomic(s.path, payload)
}

func (s *CursorFile) fresh() *domain.Cursor {
	return domain.NewCursor(s.now().Unix(), s.capacity)
}

func writeFileAtomic(path string, payload []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	tmpName = ""

	return nil
}

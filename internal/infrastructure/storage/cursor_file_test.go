package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"WallRelay/internal/domain"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestCursorFileRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "storage.json")
	store := NewCursorFile(path, 3, fixedClock, nil)

	cursor := domain.NewCursor(1_700_000_000, 3)
	for _, id := range []int64{10, 11, 12, 13} {
		cursor.Recent.Push(id)
	}
	if err := store.Save(cursor); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	loaded := store.Load()
	if loaded.LastWatermark != 1_700_000_000 {
		t.Fatalf("unexpected watermark %d", loaded.LastWatermark)
	}
	if got := loaded.Recent.IDs(); !slices.Equal(got, []int64{11, 12, 13}) {
		t.Fatalf("unexpected recent ids %v", got)
	}

	var doc map[string]any
	raw, _ := os.ReadFile(path)
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("stored file is not json: %v", err)
	}
	if doc["format"] != "wallrelay.cursor" || doc["saved_at"] != "2024-03-01T12:00:00Z" {
		t.Fatalf("unexpected document %v", doc)
	}
}

func TestCursorFileFallsBackToNow(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cases := map[string]string{
		"empty":   "",
		"corrupt": "{not json",
		"foreign": `{"format":"other","version":1,"last_watermark":5}`,
		"zero":    `{"format":"wallrelay.cursor","version":1,"last_watermark":0}`,
	}

	for name, content := range cases {
		path := filepath.Join(dir, name+".json")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}

		cursor := NewCursorFile(path, 0, fixedClock, nil).Load()
		if cursor.LastWatermark != fixedClock().Unix() {
			t.Fatalf("%s: expected watermark at now, got %d", name, cursor.LastWatermark)
		}
		if cursor.Recent.Len() != 0 || cursor.Recent.Capacity() != domain.DefaultRecentCapacity {
			t.Fatalf("%s: expected empty default recency set", name)
		}
	}

	missing := NewCursorFile(filepath.Join(dir, "missing.json"), 0, fixedClock, nil).Load()
	if missing.LastWatermark != fixedClock().Unix() {
		t.Fatalf("missing file: unexpected watermark %d", missing.LastWatermark)
	}
}

func TestCursorFileTrimsToCapacity(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "storage.json")
	content := `{"format":"wallrelay.cursor","version":1,"last_watermark":100,"capacity":5,"recent_ids":[1,2,3,4,5]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cursor := NewCursorFile(path, 2, fixedClock, nil).Load()
	if got := cursor.Recent.IDs(); !slices.Equal(got, []int64{4, 5}) {
		t.Fatalf("expected newest ids kept, got %v", got)
	}
}

func TestCursorFileSaveLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested")
	store := NewCursorFile(filepath.Join(dir, "storage.json"), 0, fixedClock, nil)

	for i := int64(1); i <= 3; i++ {
		if err := store.Save(domain.NewCursor(i, 0)); err != nil {
			t.Fatalf("Save error: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "storage.json" {
		t.Fatalf("unexpected directory contents: %v", entries)
	}
	if store.Load().LastWatermark != 3 {
		t.Fatalf("last save did not win")
	}
}

func TestCursorFileSaveNil(t *testing.T) {
	t.Parallel()

	if err := NewCursorFile(filepath.Join(t.TempDir(), "s.json"), 0, nil, nil).Save(nil); err == nil {
		t.Fatalf("expected error for nil cursor")
	}
}

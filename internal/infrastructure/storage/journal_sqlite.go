package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "embed"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"WallRelay/internal/domain"
	"WallRelay/internal/ports"
)

//go:embed schema.sql
var schemaSQL string

const journalSchemaVersion = 1

// SQLiteJournal keeps an append-only history of delivery attempts.
type SQLiteJournal struct {
	db *sql.DB
}

var _ ports.DeliveryJournal = (*SQLiteJournal)(nil)

// OpenJournal opens (creating when needed) the journal database at path.
func OpenJournal(ctx context.Context, path string) (*SQLiteJournal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal path is required")
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrateJournal(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func migrateJournal(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("apply schema: %w", err)
	}

	var version string
	err = sq.Select("value").From("metadata").Where(sq.Eq{"key": "schema_version"}).
		RunWith(tx).QueryRowContext(ctx).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = sq.Insert("metadata").Columns("key", "value").
			Values("schema_version", strconv.Itoa(journalSchemaVersion)).
			RunWith(tx).ExecContext(ctx)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert schema version: %w", err)
		}
	case err != nil:
		_ = tx.Rollback()
		return fmt.Errorf("read schema version: %w", err)
	case version != strconv.Itoa(journalSchemaVersion):
		_ = tx.Rollback()
		return fmt.Errorf("unsupported journal schema version %s", version)
	}

	return tx.Commit()
}

// Record appends one delivery attempt.
func (j *SQLiteJournal) Record(ctx context.Context, d domain.Delivery) error {
	if j == nil || j.db == nil {
		return nil
	}
	recordedAt := d.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	_, err := sq.Insert("deliveries").
		Columns("post_id", "posted_at", "kind", "attempted", "delivered", "error", "recorded_at").
		Values(d.PostID, d.PostedAt, string(d.Kind), d.Attempted, d.Delivered, d.Error, recordedAt.Unix()).
		RunWith(j.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// Recent returns up to limit deliveries, newest first.
func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]domain.Delivery, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := sq.Select("post_id", "posted_at", "kind", "attempted", "delivered", "error", "recorded_at").
		From("deliveries").
		OrderBy("id DESC").
		Limit(uint64(limit)).
		RunWith(j.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	var result []domain.Delivery
	for rows.Next() {
		var (
			d          domain.Delivery
			kind       string
			recordedAt int64
		)
		if err := rows.Scan(&d.PostID, &d.PostedAt, &kind, &d.Attempted, &d.Delivered, &d.Error, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		d.Kind = domain.DeliveryKind(kind)
		d.RecordedAt = time.Unix(recordedAt, 0).UTC()
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

func (j *SQLiteJournal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

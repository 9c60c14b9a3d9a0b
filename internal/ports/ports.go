package ports

import (
	"context"
	"time"

	"WallRelay/internal/domain"
)

// WallSource pulls the latest page of wall posts, newest first.
type WallSource interface {
	FetchWall(ctx context.Context) ([]domain.Post, error)
}

// PageFetcher downloads a raw HTML page (video pages with embedded players).
type PageFetcher interface {
	FetchPage(ctx context.Context, pageURL string) ([]byte, error)
}

// PlayerResolver finds a direct player URL inside a video page.
type PlayerResolver interface {
	ResolvePlayerURL(page []byte) (string, bool)
}

// Publisher delivers rendered messages to the destination channel.
type Publisher interface {
	SendPhoto(ctx context.Context, photoURL string) error
	SendText(ctx context.Context, html string) error
}

// CursorStore persists the relay cursor between restarts.
type CursorStore interface {
	Load() *domain.Cursor
	Save(cursor *domain.Cursor) error
}

// DiagnosticSink keeps raw upstream payloads that could not be parsed.
type DiagnosticSink interface {
	Dump(reason string, body []byte) (string, error)
}

// DeliveryJournal records publish attempts for later inspection.
type DeliveryJournal interface {
	Record(ctx context.Context, delivery domain.Delivery) error
}

// Scheduler controls when relay cycles execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

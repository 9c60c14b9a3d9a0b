package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"WallRelay/internal/content"
	"WallRelay/internal/domain"
	"WallRelay/internal/ports"
)

// RelayDeps wires all driven adapters into the relay cycle.
type RelayDeps struct {
	Source      ports.WallSource
	Publisher   ports.Publisher
	Store       ports.CursorStore
	Diagnostics ports.DiagnosticSink
	Journal     ports.DeliveryJournal
	Extractor   *content.Extractor
	Classifier  *Classifier
	Cursor      *domain.Cursor
	Logger      *slog.Logger
	Now         func() time.Time
}

// Relay implements the fetch → classify → extract → render → publish → persist cycle.
// It owns the cursor; cycles must not run concurrently.
type Relay struct {
	source      ports.WallSource
	publisher   ports.Publisher
	store       ports.CursorStore
	diagnostics ports.DiagnosticSink
	journal     ports.DeliveryJournal
	extractor   *content.Extractor
	classifier  *Classifier
	cursor      *domain.Cursor
	logger      *slog.Logger
	now         func() time.Time
}

// CycleReport summarises one relay cycle.
type CycleReport struct {
	Fetched   int
	Accepted  int
	Skipped   int
	Published int
	Failed    int
	Watermark int64
	Stopped   bool
}

// NewRelay constructs the relay. When deps.Cursor is nil the cursor is
// loaded from deps.Store.
func NewRelay(deps RelayDeps) *Relay {
	r := &Relay{
		source:      deps.Source,
		publisher:   deps.Publisher,
		store:       deps.Store,
		diagnostics: deps.Diagnostics,
		journal:     deps.Journal,
		extractor:   deps.Extractor,
		classifier:  deps.Classifier,
		cursor:      deps.Cursor,
		logger:      deps.Logger,
		now:         deps.Now,
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.extractor == nil {
		r.extractor = content.NewExtractor(nil, nil, r.logger)
	}
	if r.cursor == nil && r.store != nil {
		r.cursor = r.store.Load()
	}
	if r.cursor == nil {
		r.cursor = domain.NewCursor(r.now().Unix(), domain.DefaultRecentCapacity)
	}
	return r
}

// Cursor exposes the current relay position.
func (r *Relay) Cursor() *domain.Cursor {
	return r.cursor
}

// RunCycle executes one polling cycle. A failed fetch leaves the cursor
// untouched and is returned; publish, journal and persistence failures are
// logged and do not stop the cycle.
func (r *Relay) RunCycle(ctx context.Context) (CycleReport, error) {
	var report CycleReport
	if r.source == nil || r.classifier == nil {
		return report, fmt.Errorf("relay is not configured")
	}

	r.logger.Debug("request posts")
	posts, err := r.source.FetchWall(ctx)
	if err != nil {
		r.reportFetchError(err)
		return report, fmt.Errorf("fetch wall: %w", err)
	}
	report.Fetched = len(posts)

	result := r.classifier.Classify(r.cursor, posts)
	report.Accepted = len(result.Accepted)
	report.Skipped = len(result.Skipped)
	report.Stopped = result.StoppedAt >= 0

	for _, post := range result.Accepted {
		sent, failed := r.relayPost(ctx, post)
		report.Published += sent
		report.Failed += failed
	}

	if result.HasCandidate {
		r.cursor.Advance(result.Candidate)
	}
	report.Watermark = r.cursor.LastWatermark

	if r.store != nil {
		if err := r.store.Save(r.cursor); err != nil {
			r.logger.Error("save cursor", "error", err)
		}
	}

	return report, nil
}

func (r *Relay) reportFetchError(err error) {
	var malformed *domain.MalformedFeedError
	if !errors.As(err, &malformed) {
		r.logger.Error("fetch wall", "error", err)
		return
	}

	if r.diagnostics == nil {
		r.logger.Error(malformed.Reason, "detail", malformed.Detail)
		return
	}

	file, dumpErr := r.diagnostics.Dump(malformed.Reason, malformed.Body)
	if dumpErr != nil {
		r.logger.Error(malformed.Reason, "detail", malformed.Detail, "dump_error", dumpErr)
		return
	}
	r.logger.Error(malformed.Reason, "detail", malformed.Detail, "file", file)
}

// relayPost publishes a single accepted post and returns how many messages
// were delivered and how many failed.
func (r *Relay) relayPost(ctx context.Context, post domain.Post) (int, int) {
	extracted := r.extractor.Extract(ctx, post)

	msg, ok := content.Render(extracted)
	if !ok {
		r.logger.Debug("nothing to send", "id", post.ID)
		return 0, 0
	}

	delivery := domain.Delivery{PostID: post.ID, PostedAt: post.CreatedAt}

	switch m := msg.(type) {
	case domain.PhotoBurst:
		r.logger.Info("send new post", "id", post.ID, "photos", m.URLs, "videos", extracted.Videos)
		delivery.Kind = domain.DeliveryPhotos
		for _, photo := range m.URLs {
			delivery.Attempted++
			if err := r.sendPhoto(ctx, photo); err != nil {
				r.logger.Error("send photo", "id", post.ID, "photo", photo, "error", err)
				delivery.Error = err.Error()
				continue
			}
			delivery.Delivered++
		}
	case domain.TextMessage:
		r.logger.Info("send new post", "id", post.ID, "text", m.HTML)
		delivery.Kind = domain.DeliveryText
		delivery.Attempted = 1
		if err := r.sendText(ctx, m.HTML); err != nil {
			r.logger.Error("send message", "id", post.ID, "error", err)
			delivery.Error = err.Error()
		} else {
			delivery.Delivered = 1
		}
	}

	r.record(ctx, delivery)
	return delivery.Delivered, delivery.Attempted - delivery.Delivered
}

func (r *Relay) sendPhoto(ctx context.Context, photo string) error {
	if r.publisher == nil {
		return fmt.Errorf("publisher is not configured")
	}
	return r.publisher.SendPhoto(ctx, photo)
}

func (r *Relay) sendText(ctx context.Context, html string) error {
	if r.publisher == nil {
		return fmt.Errorf("publisher is not configured")
	}
	return r.publisher.SendText(ctx, html)
}

func (r *Relay) record(ctx context.Context, delivery domain.Delivery) {
	if r.journal == nil {
		return
	}
	delivery.RecordedAt = r.now().UTC()
	if err := r.journal.Record(ctx, delivery); err != nil {
		r.logger.Warn("record delivery", "id", delivery.PostID, "error", err)
	}
}

package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"WallRelay/internal/config"
	"WallRelay/internal/content"
	"WallRelay/internal/infrastructure/scheduler"
	"WallRelay/internal/infrastructure/storage"
	"WallRelay/internal/infrastructure/telegram"
	"WallRelay/internal/infrastructure/vk"
	"WallRelay/internal/logging"
	"WallRelay/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	relay     *usecase.Relay
	scheduler *usecase.Scheduler
	journal   *storage.SQLiteJournal
}

// New builds the relay and its adapters. The journal database is opened
// here, so Close must be called when Run is not.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	wall := vk.NewClient(vk.Options{
		BaseURL:    cfg.VK.APIURL,
		APIVersion: cfg.VK.APIVersion,
		Token:      cfg.VK.Token,
		GroupID:    cfg.VK.GroupID,
		Count:      cfg.VK.FetchCount,
		Timeout:    cfg.RequestTimeout(),
	})

	notifier, err := telegram.NewNotifier(telegram.Options{
		BaseURL:  cfg.Telegram.APIURL,
		BotToken: cfg.Telegram.BotToken,
		ChatID:   cfg.Telegram.ChannelID,
		Proxy:    cfg.Telegram.Proxy,
		Timeout:  cfg.RequestTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}

	store := storage.NewCursorFile(cfg.Storage.Path, cfg.Storage.RecentCapacity, time.Now,
		baseLogger.With("component", "storage.cursor"))

	deps := usecase.RelayDeps{
		Source:      wall,
		Publisher:   notifier,
		Store:       store,
		Diagnostics: storage.NewDumpDir(cfg.Storage.DiagnosticsDir, time.Now),
		Extractor:   content.NewExtractor(wall, vk.NewPlayerResolver(), baseLogger.With("component", "extractor")),
		Classifier:  usecase.NewClassifier(cfg.VK.GroupID, baseLogger.With("component", "classifier")),
		Logger:      baseLogger.With("component", "relay"),
	}

	application := &Application{cfg: cfg, logger: baseLogger}

	if cfg.Storage.JournalPath != "" {
		journal, err := storage.OpenJournal(ctx, cfg.Storage.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
		deps.Journal = journal
		application.journal = journal
		application.logLastDelivery(ctx)
	}

	application.relay = usecase.NewRelay(deps)
	application.scheduler = usecase.NewScheduler(
		scheduler.NewCronScheduler(cfg.PollInterval(), baseLogger.With("component", "scheduler.cron")),
		application.relay,
		baseLogger.With("component", "scheduler"),
	)

	return application, nil
}

// Run starts polling and blocks until ctx is cancelled, then waits for the
// running cycle and releases resources.
func (a *Application) Run(ctx context.Context) error {
	cursor := a.relay.Cursor()
	a.logger.Info("relay starting",
		"group_id", a.cfg.VK.GroupID,
		"channel", a.cfg.Telegram.ChannelID,
		"interval", a.cfg.PollInterval(),
		"watermark", cursor.LastWatermark,
		"recent", cursor.Recent.Len(),
	)

	if err := a.scheduler.Start(ctx); err != nil {
		_ = a.Close()
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()
	a.logger.Info("shutdown requested")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	stopErr := a.scheduler.Stop(stopCtx)
	closeErr := a.Close()
	if stopErr != nil {
		return fmt.Errorf("stop scheduler: %w", stopErr)
	}
	return closeErr
}

// Close releases the journal database.
func (a *Application) Close() error {
	if a.journal == nil {
		return nil
	}
	journal := a.journal
	a.journal = nil
	if err := journal.Close(); err != nil {
		return fmt.Errorf("close journal: %w", err)
	}
	return nil
}

func (a *Application) logLastDelivery(ctx context.Context) {
	recent, err := a.journal.Recent(ctx, 1)
	if err != nil {
		a.logger.Warn("cannot read delivery journal", "error", err)
		return
	}
	if len(recent) == 0 {
		a.logger.Info("delivery journal is empty", "path", a.cfg.Storage.JournalPath)
		return
	}
	last := recent[0]
	a.logger.Info("last delivery",
		"post_id", last.PostID,
		"kind", last.Kind,
		"delivered", last.Delivered,
		"attempted", last.Attempted,
		"at", last.RecordedAt,
	)
}

// Package bot wires the quest platform together: it runs the platform
// adapter loops, the HTTP API, and the scheduled jobs (quest generation,
// expired-quest archiving, daily stats).
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"openquest/internal/platform"
	"openquest/internal/quest"
)

// Adapter is a long-running platform listener loop.
type Adapter interface {
	Name() string
	Run(ctx context.Context) error
}

// Announcer publishes new quests to a platform.
type Announcer interface {
	AnnounceQuest(ctx context.Context, q quest.Quest) error
}

// StatsPublisher posts the daily platform digest.
type StatsPublisher interface {
	TweetDailyStats(ctx context.Context, stats platform.DailyStats) error
}

// QuestStore is the quest persistence the orchestrator drives.
type QuestStore interface {
	Add(ctx context.Context, q quest.Quest) error
	ListActive(ctx context.Context) ([]quest.Quest, error)
	ArchiveExpired(ctx context.Context) (int, error)
}

// Generator produces new quests.
type Generator interface {
	Generate(ctx context.Context, previousTitles []string) (quest.Quest, error)
}

// HTTPServer is the API surface lifecycle.
type HTTPServer interface {
	ListenAndServe(ctx context.Context, addr string) error
}

// Options configures the orchestrator.
type Options struct {
	// AutoGenerate enables the scheduled quest generation job.
	AutoGenerate bool
	// GenerateInterval is the period between generated quests.
	GenerateInterval time.Duration
	// ServerAddr enables the HTTP API when non-empty.
	ServerAddr string
}

// Bot runs all long-lived pieces of the quest platform.
type Bot struct {
	opts       Options
	store      QuestStore
	generator  Generator
	adapters   []Adapter
	announcers []Announcer
	stats      StatsPublisher
	server     HTTPServer
	logger     *zap.Logger
}

// New creates an orchestrator. generator, stats, and server may be nil when
// the corresponding feature is disabled.
func New(opts Options, store QuestStore, gen Generator, adapters []Adapter, announcers []Announcer, stats StatsPublisher, srv HTTPServer, logger *zap.Logger) *Bot {
	if opts.GenerateInterval <= 0 {
		opts.GenerateInterval = 24 * time.Hour
	}
	return &Bot{
		opts:       opts,
		store:      store,
		generator:  gen,
		adapters:   adapters,
		announcers: announcers,
		stats:      stats,
		server:     srv,
		logger:     logger,
	}
}

// Run starts everything and blocks until the context is canceled or a
// component fails fatally. Adapter loops ending with context.Canceled are a
// normal shutdown, not an error.
func (b *Bot) Run(ctx context.Context) error {
	sched, err := b.startScheduler(ctx)
	if err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer func() {
		if err := sched.Shutdown(); err != nil {
			b.logger.Warn("scheduler shutdown failed", zap.Error(err))
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	for _, a := range b.adapters {
		g.Go(func() error {
			b.logger.Info("starting platform adapter", zap.String("platform", a.Name()))
			if err := a.Run(gctx); err != nil && gctx.Err() == nil {
				return fmt.Errorf("%s adapter failed: %w", a.Name(), err)
			}
			return nil
		})
	}

	if b.server != nil && b.opts.ServerAddr != "" {
		g.Go(func() error {
			if err := b.server.ListenAndServe(gctx, b.opts.ServerAddr); err != nil && gctx.Err() == nil {
				return fmt.Errorf("http api failed: %w", err)
			}
			return nil
		})
	}

	b.logger.Info("bot running",
		zap.Int("adapters", len(b.adapters)),
		zap.Bool("auto_generate", b.opts.AutoGenerate && b.generator != nil))

	<-gctx.Done()
	return g.Wait()
}

func (b *Bot) startScheduler(ctx context.Context) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	if b.opts.AutoGenerate && b.generator != nil {
		_, err = sched.NewJob(
			gocron.DurationJob(b.opts.GenerateInterval),
			gocron.NewTask(func() {
				if err := b.generateAndAnnounce(ctx); err != nil {
					b.logger.Error("quest generation job failed", zap.Error(err))
				}
			}),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			return nil, err
		}
	}

	_, err = sched.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(func() {
			n, err := b.store.ArchiveExpired(ctx)
			if err != nil {
				b.logger.Error("quest archiving job failed", zap.Error(err))
				return
			}
			if n > 0 {
				b.logger.Info("expired quests archived", zap.Int("count", n))
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	if b.stats != nil {
		_, err = sched.NewJob(
			gocron.DurationJob(24*time.Hour),
			gocron.NewTask(func() {
				if err := b.publishDailyStats(ctx); err != nil {
					b.logger.Error("daily stats job failed", zap.Error(err))
				}
			}),
		)
		if err != nil {
			return nil, err
		}
	}

	sched.Start()
	return sched, nil
}

// generateAndAnnounce creates one quest, persists it, and announces it on
// every enabled platform. Announcement failures are logged per platform; a
// stored quest is never rolled back because a post failed.
func (b *Bot) generateAndAnnounce(ctx context.Context) error {
	active, err := b.store.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active quests: %w", err)
	}
	titles := make([]string, 0, len(active))
	for _, q := range active {
		titles = append(titles, q.Title)
	}

	q, err := b.generator.Generate(ctx, titles)
	if err != nil {
		return fmt.Errorf("failed to generate quest: %w", err)
	}

	if err := b.store.Add(ctx, q); err != nil {
		return fmt.Errorf("failed to store quest %q: %w", q.Title, err)
	}
	b.logger.Info("new quest generated",
		zap.String("id", q.ID),
		zap.String("title", q.Title),
		zap.String("difficulty", string(q.Difficulty)))

	for _, a := range b.announcers {
		if err := a.AnnounceQuest(ctx, q); err != nil {
			b.logger.Warn("quest announcement failed",
				zap.String("quest", q.ID), zap.Error(err))
		}
	}
	return nil
}

// publishDailyStats computes the digest from the quest store and posts it.
func (b *Bot) publishDailyStats(ctx context.Context) error {
	active, err := b.store.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active quests: %w", err)
	}

	stats := platform.DailyStats{HottestQuest: "none yet"}
	hottest := -1
	for _, q := range active {
		stats.QuestsCompleted += q.CompletedCount
		stats.RewardsClaimed += q.CompletedCount
		if q.CompletedCount > hottest {
			hottest = q.CompletedCount
			stats.HottestQuest = q.Title
		}
	}
	stats.ActiveUsers = stats.QuestsCompleted

	return b.stats.TweetDailyStats(ctx, stats)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"openquest/internal/bot"
	"openquest/internal/config"
	"openquest/internal/grader"
	"openquest/internal/ledger"
	"openquest/internal/llm"
	"openquest/internal/platform"
	"openquest/internal/quest"
	"openquest/internal/router"
	"openquest/internal/server"
	"openquest/internal/session"
	"openquest/internal/trading"
)

var (
	configPath string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "questd",
	Short: "OpenQuest - the quest bot for the Base ecosystem",
	Long: `questd runs the OpenQuest bot: it listens for mentions on Twitter and
Farcaster, routes chat commands (quests, stats, link, submit, claim,
leaderboard, trade), grades quest submissions with AI, and generates new
quests on a schedule.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is a developer convenience; absence is fine.
		_ = godotenv.Load()

		zapConfig := zap.NewProductionConfig()
		if verbose {
			zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot with all enabled platforms",
	RunE:  runBot,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one quest and store it, without starting the bot",
	RunE:  generateOnce,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "questd.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(generateCmd)
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := quest.NewStore(cfg.Quests.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open quest store: %w", err)
	}
	defer store.Close()

	chat, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: config.ParseDuration(cfg.LLM.Timeout, 30*time.Second),
	})
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	rewards, err := ledger.NewClient(ledger.Config{
		BaseURL: cfg.Ledger.BaseURL,
		APIKey:  cfg.Ledger.APIKey,
		Timeout: config.ParseDuration(cfg.Ledger.Timeout, 15*time.Second),
	})
	if err != nil {
		return fmt.Errorf("failed to create ledger client: %w", err)
	}

	bankr := trading.NewBankrClient(trading.Config{
		BaseURL: cfg.Trading.BaseURL,
		APIKey:  cfg.Trading.APIKey,
		Timeout: config.ParseDuration(cfg.Trading.Timeout, 30*time.Second),
	})

	sessions := session.NewMemoryStore(cfg.Router.HistoryLimit)
	judge := grader.New(chat, cfg.Router.ApprovalThreshold, logger)

	rt := router.New(sessions, store, rewards, judge, chat, bankr,
		router.Config{DashboardURL: cfg.Router.DashboardURL}, logger)

	var (
		adapters   []bot.Adapter
		announcers []bot.Announcer
		stats      bot.StatsPublisher
		caster     server.Caster
	)

	if cfg.Twitter.Enabled {
		tw := platform.NewTwitter(platform.TwitterOptions{
			BearerToken:  cfg.Twitter.BearerToken,
			BotUsername:  cfg.Twitter.BotUsername,
			PollInterval: config.ParseDuration(cfg.Twitter.PollInterval, 30*time.Second),
		}, rt.Handle, logger)
		adapters = append(adapters, tw)
		announcers = append(announcers, tw)
		rt.AddCelebrant(tw)
		stats = tw
	}

	var fc *platform.Farcaster
	if cfg.Farcaster.Enabled {
		fc = platform.NewFarcaster(platform.FarcasterOptions{
			APIKey:       cfg.Farcaster.APIKey,
			SignerUUID:   cfg.Farcaster.SignerUUID,
			PollInterval: config.ParseDuration(cfg.Farcaster.PollInterval, 30*time.Second),
		}, rt.Handle, logger)
		adapters = append(adapters, fc)
		announcers = append(announcers, fc)
		rt.AddCelebrant(fc)
		caster = fc
	}

	var gen bot.Generator
	if cfg.Quests.AutoGenerate {
		g, err := quest.NewGenerator(ctx, cfg.LLM.APIKey, cfg.LLM.Model,
			config.ParseDuration(cfg.Quests.QuestDuration, 24*time.Hour), logger)
		if err != nil {
			return fmt.Errorf("failed to create quest generator: %w", err)
		}
		gen = g
	}

	var api bot.HTTPServer
	addr := ""
	if cfg.Server.Enabled {
		srv := server.New(store, rt.Handle, caster, logger)
		if fc != nil {
			// Webhook and poller must agree on which casts were answered.
			srv.UseSeenSet(fc.Seen())
		}
		api = srv
		addr = cfg.Server.Addr
	}

	b := bot.New(bot.Options{
		AutoGenerate:     cfg.Quests.AutoGenerate,
		GenerateInterval: config.ParseDuration(cfg.Quests.GenerateInterval, 24*time.Hour),
		ServerAddr:       addr,
	}, store, gen, adapters, announcers, stats, api, logger)

	logger.Info("questd starting",
		zap.String("version", cfg.Version),
		zap.Bool("twitter", cfg.Twitter.Enabled),
		zap.Bool("farcaster", cfg.Farcaster.Enabled),
		zap.Bool("api", cfg.Server.Enabled))

	if err := b.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("questd stopped")
	return nil
}

func generateOnce(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()

	store, err := quest.NewStore(cfg.Quests.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open quest store: %w", err)
	}
	defer store.Close()

	gen, err := quest.NewGenerator(ctx, cfg.LLM.APIKey, cfg.LLM.Model,
		config.ParseDuration(cfg.Quests.QuestDuration, 24*time.Hour), logger)
	if err != nil {
		return fmt.Errorf("failed to create quest generator: %w", err)
	}

	active, err := store.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active quests: %w", err)
	}
	titles := make([]string, 0, len(active))
	for _, q := range active {
		titles = append(titles, q.Title)
	}

	q, err := gen.Generate(ctx, titles)
	if err != nil {
		return fmt.Errorf("failed to generate quest: %w", err)
	}
	if err := store.Add(ctx, q); err != nil {
		return fmt.Errorf("failed to store quest: %w", err)
	}

	fmt.Printf("Generated quest %s: %s (%s %s, reward %s)\n",
		q.ID, q.Title, q.Difficulty, q.Category, q.RewardAmount)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

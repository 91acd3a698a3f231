// Package router is the core of the quest bot: it classifies free-text chat
// messages into commands and dispatches them to operation handlers backed by
// the quest store, reward ledger, AI grader, LLM chat client, and trading
// proxy. Handle never fails; every error path degrades to a user-facing
// reply string.
package router

import (
	"context"
	"time"

	"go.uber.org/zap"

	"openquest/internal/grader"
	"openquest/internal/ledger"
	"openquest/internal/llm"
	"openquest/internal/quest"
	"openquest/internal/session"
	"openquest/internal/trading"
)

// QuestStore is the quest data boundary the router reads.
type QuestStore interface {
	ListActive(ctx context.Context) ([]quest.Quest, error)
	GetByID(ctx context.Context, id string) (*quest.Quest, error)
	MostRecent(ctx context.Context) (*quest.Quest, error)
	IncrementCompleted(ctx context.Context, id string) error
}

// RewardLedger is the system of record for completions and standings.
type RewardLedger interface {
	GetUserStats(ctx context.Context, address string) (ledger.UserStats, error)
	RecordCompletion(ctx context.Context, questID, address, proofHash string) (string, error)
	GetLeaderboard(ctx context.Context, limit int) ([]ledger.LeaderboardEntry, error)
}

// Grader scores quest submissions.
type Grader interface {
	Evaluate(ctx context.Context, submission, questTitle, questRequirement string) (grader.Evaluation, error)
}

// Celebrant posts a public shoutout when a completion is recorded.
type Celebrant interface {
	CelebrateCompletion(ctx context.Context, username, questTitle string) error
}

// Config holds router behavior knobs.
type Config struct {
	DashboardURL string
	// HandlerTimeout bounds one message's outbound calls.
	HandlerTimeout time.Duration
}

// Router dispatches inbound messages to operation handlers.
type Router struct {
	sessions session.Store
	quests   QuestStore
	ledger   RewardLedger
	grader   Grader
	chat     llm.Client
	trading  trading.Proxy
	cfg      Config
	logger   *zap.Logger

	celebrants []Celebrant
}

// AddCelebrant registers a platform to shout out recorded completions on.
func (r *Router) AddCelebrant(c Celebrant) {
	r.celebrants = append(r.celebrants, c)
}

// New creates a Router. All collaborators are required except trading, which
// may be an unconfigured proxy.
func New(sessions session.Store, quests QuestStore, rl RewardLedger, g Grader, chat llm.Client, tp trading.Proxy, cfg Config, logger *zap.Logger) *Router {
	if cfg.DashboardURL == "" {
		cfg.DashboardURL = "https://openquest.app"
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 60 * time.Second
	}
	return &Router{
		sessions: sessions,
		quests:   quests,
		ledger:   rl,
		grader:   g,
		chat:     chat,
		trading:  tp,
		cfg:      cfg,
		logger:   logger,
	}
}

// Handle processes one inbound message and returns the reply text. It never
// panics and never returns an empty string; processing for one sender is
// serialized so concurrent messages cannot corrupt the transcript.
func (r *Router) Handle(ctx context.Context, message, senderID, platform, senderName string) (reply string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("handler panic recovered",
				zap.Any("panic", rec),
				zap.String("platform", platform),
				zap.String("sender", senderID))
			reply = msgGenericFailure
		}
	}()

	release := r.sessions.Acquire(platform, senderID)
	defer release()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.HandlerTimeout)
	defer cancel()

	cmd := Classify(message)
	r.logger.Debug("routing message",
		zap.String("command", cmd.String()),
		zap.String("platform", platform),
		zap.String("sender", senderID))

	switch cmd {
	case CmdLinkWallet:
		reply = r.handleLinkWallet(message, senderID, platform)
	case CmdListQuests:
		reply = r.handleListQuests(ctx, senderID, platform)
	case CmdStats:
		reply = r.handleStats(ctx, senderID, platform)
	case CmdClaim:
		reply = r.handleClaim(ctx, message, senderID, platform)
	case CmdSubmit:
		reply = r.handleSubmit(ctx, message, senderID, platform, senderName)
	case CmdHelp:
		reply = helpMessage
	case CmdLeaderboard:
		reply = r.handleLeaderboard(ctx)
	case CmdTrade:
		reply = r.handleTrade(ctx, message)
	default:
		reply = r.handleConversation(ctx, message, senderID, platform)
	}

	if reply == "" {
		reply = msgGenericFailure
	}
	return reply
}

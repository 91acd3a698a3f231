package router

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"openquest/internal/grader"
	"openquest/internal/session"
)

// activeQuestWindow caps how many quests the list reply shows.
const activeQuestWindow = 5

// leaderboardLimit is the ranked window shown for "leaderboard".
const leaderboardLimit = 10

func (r *Router) handleLinkWallet(message, senderID, platform string) string {
	address := extractAddress(message)
	if address == "" {
		return msgInvalidLinkFormat
	}
	if !validAddress(address) {
		return msgInvalidAddress
	}

	r.sessions.LinkWallet(platform, senderID, address)
	r.logger.Info("wallet linked",
		zap.String("platform", platform),
		zap.String("sender", senderID),
		zap.String("address", shortAddress(address)))

	return formatWalletLinked(address)
}

func (r *Router) handleListQuests(ctx context.Context, senderID, platform string) string {
	quests, err := r.quests.ListActive(ctx)
	if err != nil {
		r.logger.Warn("quest store lookup failed", zap.Error(err))
		return "❌ Error fetching quests. Please try again in a moment."
	}
	if len(quests) == 0 {
		return msgNoActiveQuests
	}
	if len(quests) > activeQuestWindow {
		quests = quests[:activeQuestWindow]
	}

	_, linked := r.sessions.Wallet(platform, senderID)
	return formatQuestList(quests, linked)
}

func (r *Router) handleStats(ctx context.Context, senderID, platform string) string {
	address, ok := r.sessions.Wallet(platform, senderID)
	if !ok {
		return "❌ Wallet not linked!\n\nSend \"link 0xYourAddress\" first to track your stats."
	}

	stats, err := r.ledger.GetUserStats(ctx, address)
	if err != nil {
		r.logger.Warn("stats lookup failed", zap.String("address", shortAddress(address)), zap.Error(err))
		return "❌ Error fetching stats. Please try again in a moment."
	}

	return formatStats(address, stats)
}

func (r *Router) handleClaim(ctx context.Context, message, senderID, platform string) string {
	_, ok := r.sessions.Wallet(platform, senderID)
	if !ok {
		return msgNotLinked
	}

	// Claiming is never inferred; the id must be explicit.
	fields := strings.Fields(strings.TrimSpace(message))
	if len(fields) < 2 {
		return "❌ Please specify the quest to claim:\nclaim <quest id>\n\nSend \"quests\" to see ids."
	}
	questID := fields[1]

	q, err := r.quests.GetByID(ctx, questID)
	if err != nil {
		r.logger.Warn("claim quest lookup failed", zap.String("quest", questID), zap.Error(err))
		return "❌ Error looking up that quest. Please try again in a moment."
	}
	if q == nil {
		return fmt.Sprintf("❌ Quest %q not found. Send \"quests\" to see active quests.", questID)
	}

	// Reward claims need the user's own signature, so the bot cannot submit
	// the transaction. Point at the dashboard instead.
	return fmt.Sprintf(`🎁 Ready to claim: %s

Reward: %s

Claims need your wallet signature, so finish on the dashboard:
👉 %s/claim/%s`, q.Title, q.RewardAmount, r.cfg.DashboardURL, q.ID)
}

func (r *Router) handleSubmit(ctx context.Context, message, senderID, platform, senderName string) string {
	address, ok := r.sessions.Wallet(platform, senderID)
	if !ok {
		return msgNotLinked
	}

	// The command token matches case-insensitively, so it must be stripped
	// the same way or "Submit ..." would grade text containing the token.
	content := strings.TrimSpace(message)
	if fields := strings.Fields(content); len(fields) > 0 && strings.EqualFold(fields[0], "submit") {
		content = strings.TrimSpace(content[len(fields[0]):])
	}
	if content == "" {
		return "❌ Nothing to grade. Send:\nsubmit <link or text>"
	}

	q, err := r.quests.MostRecent(ctx)
	if err != nil {
		r.logger.Warn("submit quest lookup failed", zap.Error(err))
		return "❌ Error looking up the current quest. Please try again in a moment."
	}
	if q == nil {
		return msgNoActiveQuests
	}

	ev, err := r.grader.Evaluate(ctx, content, q.Title, q.Description)
	if err != nil {
		if errors.Is(err, grader.ErrContentUnreadable) {
			return "❌ I couldn't read that link. Make sure it's public and try again."
		}
		r.logger.Warn("grading failed", zap.String("quest", q.ID), zap.Error(err))
		return "❌ I couldn't review your submission right now. Please try again later."
	}

	if !ev.IsApproved {
		return fmt.Sprintf(`📝 Submission reviewed

Quest: %s
Score: %d/100

%s

Not quite there yet - revise and submit again!`, q.Title, ev.Score, ev.Feedback)
	}

	// Decide, then act: the approved evaluation yields an intended ledger
	// write that is applied separately.
	action := completionAction{
		QuestID:   q.ID,
		Address:   address,
		ProofHash: contentHash(content),
	}
	txRef, err := r.applyCompletion(ctx, action)
	if err != nil {
		r.logger.Error("completion write failed", zap.String("quest", q.ID), zap.Error(err))
		return fmt.Sprintf(`✅ Approved (%d/100): %s

But recording your completion failed. Please try submitting again shortly.`, ev.Score, ev.Feedback)
	}

	// Public shoutouts are best-effort and never affect the reply.
	for _, c := range r.celebrants {
		if err := c.CelebrateCompletion(ctx, senderName, q.Title); err != nil {
			r.logger.Warn("completion celebration failed",
				zap.String("quest", q.ID), zap.Error(err))
		}
	}

	return fmt.Sprintf(`🎉 Submission approved!

Quest: %s
Score: %d/100

%s

Completion recorded: %s
Send "claim %s" when you're ready for your reward!`, q.Title, ev.Score, ev.Feedback, txRef, q.ID)
}

// completionAction is the intended side effect of an approved submission.
type completionAction struct {
	QuestID   string
	Address   string
	ProofHash string
}

// applyCompletion writes an approved completion to the ledger and bumps the
// quest's counter. The counter bump is best-effort; the ledger is the source
// of truth.
func (r *Router) applyCompletion(ctx context.Context, a completionAction) (string, error) {
	txRef, err := r.ledger.RecordCompletion(ctx, a.QuestID, a.Address, a.ProofHash)
	if err != nil {
		return "", err
	}
	if err := r.quests.IncrementCompleted(ctx, a.QuestID); err != nil {
		r.logger.Warn("completion counter update failed", zap.String("quest", a.QuestID), zap.Error(err))
	}
	return txRef, nil
}

// contentHash produces the tamper-evident proof recorded with a completion.
func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func (r *Router) handleLeaderboard(ctx context.Context) string {
	entries, err := r.ledger.GetLeaderboard(ctx, leaderboardLimit)
	if err != nil {
		r.logger.Warn("leaderboard lookup failed", zap.Error(err))
		return "❌ Error fetching the leaderboard. Please try again in a moment."
	}
	if len(entries) == 0 {
		return "🏆 The leaderboard is empty - be the first to complete a quest!"
	}
	return formatLeaderboard(entries)
}

func (r *Router) handleTrade(ctx context.Context, message string) string {
	if r.trading == nil || !r.trading.Available() {
		return tradeSetupMessage
	}

	command := strings.TrimSpace(message)
	lower := strings.ToLower(command)
	for _, p := range []string{"bankr ", "trade "} {
		if strings.HasPrefix(lower, p) {
			command = strings.TrimSpace(command[len(p):])
			break
		}
	}

	result, err := r.trading.Execute(ctx, command)
	if err != nil {
		r.logger.Warn("trading proxy call failed", zap.Error(err))
		return fmt.Sprintf("❌ Failed to execute trading command: %v", err)
	}
	return result
}

const conversationPreamble = `You are OpenQuest, an autonomous AI agent on the Base blockchain.

You help users:
- Discover onchain quests on Base
- Complete DeFi, NFT, Social, and Governance actions
- Earn rewards (tokens and soulbound badges)
- Track their progress and compete on leaderboards

Base Ecosystem Protocols:
- DeFi: Uniswap, Aerodrome, Aave, Moonwell, Morpho
- NFT: BasePaint, Zora, Coinbase NFT
- Social: Farcaster, Base Names, Friend.tech
- Governance: Various DAO proposals

Be friendly, enthusiastic, and helpful. Keep responses concise for chat.

Available Commands:
- "quests" - View active quests
- "stats" - See user statistics
- "link 0x..." - Link wallet address
- "submit <link or text>" - Submit content for grading
- "claim <quest id>" - Claim quest rewards
- "leaderboard" - See top users
- "help" - Show all commands`

func (r *Router) handleConversation(ctx context.Context, message, senderID, platform string) string {
	r.sessions.AppendTurn(platform, senderID, session.Turn{Role: session.RoleUser, Content: message})

	var sb strings.Builder
	sb.WriteString(conversationPreamble)
	sb.WriteString("\n\nConversation:\n")
	for _, turn := range r.sessions.History(platform, senderID) {
		speaker := "User"
		if turn.Role == session.RoleAssistant {
			speaker = "OpenQuest"
		}
		fmt.Fprintf(&sb, "%s: %s\n", speaker, turn.Content)
	}
	sb.WriteString("\nOpenQuest:")

	reply, err := r.chat.Complete(ctx, sb.String())
	if err != nil {
		r.logger.Warn("conversation completion failed", zap.Error(err))
		return msgConversationFallback
	}

	r.sessions.AppendTurn(platform, senderID, session.Turn{Role: session.RoleAssistant, Content: reply})
	return reply
}

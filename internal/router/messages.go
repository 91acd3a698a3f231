package router

import (
	"fmt"
	"strings"
	"time"

	"openquest/internal/ledger"
	"openquest/internal/quest"
)

const msgGenericFailure = `Something went wrong on my end. Send "help" to see available commands.`

const msgConversationFallback = `I'm having trouble processing that. Try sending "help" to see available commands!`

const msgInvalidLinkFormat = "❌ Invalid format. Please send:\nlink 0xYourWalletAddress"

const msgInvalidAddress = "❌ Invalid Ethereum address. Please check and try again."

const msgNotLinked = "❌ Wallet not linked!\n\nSend \"link 0xYourAddress\" first."

const msgNoActiveQuests = "🎯 No quests are active right now. New quests drop regularly - check back soon!"

const helpMessage = `📖 OpenQuest Commands

🔗 Wallet
• link 0x... - Link your wallet address

🎯 Quests
• quests - View active quests
• submit <link or text> - Submit content for the latest quest
• claim <quest id> - Claim quest rewards

📊 Stats
• stats - Your quest statistics
• leaderboard - Top completers

🪙 Trading
• bankr <command> - Trade via Bankr (buy/sell/swap/portfolio)

💬 Chat
• Ask me anything about Base quests!

Get started: Send "quests" to see what's available!`

const tradeSetupMessage = `⚠️ Bankr trading is not configured.

Visit https://bankr.bot/api to create an API key, then set BANKR_API_KEY.`

var difficultyEmoji = map[quest.Difficulty]string{
	quest.DifficultyEasy:   "🟢",
	quest.DifficultyMedium: "🟡",
	quest.DifficultyHard:   "🔴",
}

var categoryEmoji = map[quest.Category]string{
	quest.CategoryDeFi:       "💱",
	quest.CategoryNFT:        "🖼️",
	quest.CategorySocial:     "👥",
	quest.CategoryGovernance: "🗳️",
}

// formatQuestList renders the active quest digest shown for "quests".
func formatQuestList(quests []quest.Quest, walletLinked bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🎯 Active Quests on Base (%d)\n\n", len(quests))

	now := time.Now()
	for i, q := range quests {
		fmt.Fprintf(&sb, "%d. %s\n\n", i+1, q.Title)
		fmt.Fprintf(&sb, "%s %s | %s %s\n", difficultyEmoji[q.Difficulty], q.Difficulty, categoryEmoji[q.Category], q.Category)
		fmt.Fprintf(&sb, "🏛️ Protocol: %s\n", q.Protocol)
		fmt.Fprintf(&sb, "🎁 Reward: %s\n", q.RewardAmount)
		fmt.Fprintf(&sb, "⏰ %s\n", q.TimeRemaining(now))
		fmt.Fprintf(&sb, "👥 %d completed\n\n", q.CompletedCount)
	}

	if !walletLinked {
		sb.WriteString("\n💡 Link your wallet to start:\nSend \"link 0xYourAddress\"")
	} else {
		sb.WriteString("\n✅ Complete any quest, then send \"submit <link or text>\" to get verified!")
	}
	return sb.String()
}

// formatWalletLinked confirms a successful link and lists capabilities.
func formatWalletLinked(address string) string {
	return fmt.Sprintf(`✅ Wallet linked successfully!

Address: %s

You can now:
• Complete quests and get auto-verified
• Claim rewards
• Track your stats
• Compete on the leaderboard

Send "quests" to see active quests!`, address)
}

// formatStats renders a wallet's ledger record.
func formatStats(address string, stats ledger.UserStats) string {
	return fmt.Sprintf(`📊 Your OpenQuest Stats

Wallet: %s

✅ Quests Completed: %d
🎁 Rewards Claimed: %d
🔥 Current Streak: %d days
🏅 Badges Earned: %d

Keep crushing it! 💪

Send "quests" to see what's active!`,
		shortAddress(address), stats.Completed, stats.Claimed, stats.Streak, stats.BadgeCount)
}

// formatLeaderboard renders the ranked top completers.
func formatLeaderboard(entries []ledger.LeaderboardEntry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🏆 OpenQuest Leaderboard\n\nTop %d Quest Completers:\n\n", len(entries))

	medals := []string{"🥇", "🥈", "🥉"}
	for i, e := range entries {
		if i < len(medals) {
			fmt.Fprintf(&sb, "%d. %s %s - %d quests\n", i+1, medals[i], shortAddress(e.Address), e.Count)
		} else {
			fmt.Fprintf(&sb, "%d. %s - %d quests\n", i+1, shortAddress(e.Address), e.Count)
		}
	}

	sb.WriteString("\nKeep completing quests to climb! 🚀")
	return sb.String()
}

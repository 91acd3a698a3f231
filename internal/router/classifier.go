package router

import "strings"

// Command is the tagged result of classifying a raw message.
type Command int

const (
	// CmdConversation is the fallback when no command rule matches.
	CmdConversation Command = iota
	CmdLinkWallet
	CmdListQuests
	CmdStats
	CmdClaim
	CmdSubmit
	CmdHelp
	CmdLeaderboard
	CmdTrade
)

// String returns the command name for logging.
func (c Command) String() string {
	switch c {
	case CmdLinkWallet:
		return "LINK_WALLET"
	case CmdListQuests:
		return "LIST_QUESTS"
	case CmdStats:
		return "STATS"
	case CmdClaim:
		return "CLAIM"
	case CmdSubmit:
		return "SUBMIT"
	case CmdHelp:
		return "HELP"
	case CmdLeaderboard:
		return "LEADERBOARD"
	case CmdTrade:
		return "TRADE"
	default:
		return "CONVERSATION"
	}
}

// tradePrefixes are the leading keywords that route to the trading proxy.
var tradePrefixes = []string{"bankr ", "trade ", "buy ", "sell ", "swap "}

// Classify maps a raw message to a command tag. Rules run in priority order
// against the lower-cased, trimmed message; the first match wins. The order
// is a behavioral contract: "submit quests please" must resolve to CmdSubmit,
// never CmdListQuests.
func Classify(message string) Command {
	m := strings.ToLower(strings.TrimSpace(message))

	switch {
	case strings.HasPrefix(m, "link 0x"):
		return CmdLinkWallet
	case m == "quests" || m == "active quests":
		return CmdListQuests
	case m == "stats" || m == "my stats" || m == "profile":
		return CmdStats
	case strings.HasPrefix(m, "claim"):
		return CmdClaim
	case strings.HasPrefix(m, "submit"):
		return CmdSubmit
	case m == "help" || m == "how":
		return CmdHelp
	case m == "leaderboard" || m == "top":
		return CmdLeaderboard
	case hasTradePrefix(m) || m == "portfolio" || m == "balance":
		return CmdTrade
	default:
		return CmdConversation
	}
}

func hasTradePrefix(m string) bool {
	for _, p := range tradePrefixes {
		if strings.HasPrefix(m, p) {
			return true
		}
	}
	return false
}

// Package quest defines the quest entity and its SQLite-backed store, plus
// the AI quest generator.
package quest

import (
	"fmt"
	"time"
)

// RewardType enumerates how a quest pays out.
type RewardType string

const (
	RewardSoulbound RewardType = "SOULBOUND"
	RewardERC20     RewardType = "ERC20"
	RewardNative    RewardType = "NATIVE"
)

// Difficulty buckets quests by effort.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Category groups quests by ecosystem vertical.
type Category string

const (
	CategoryDeFi       Category = "DEFI"
	CategoryNFT        Category = "NFT"
	CategorySocial     Category = "SOCIAL"
	CategoryGovernance Category = "GOVERNANCE"
)

// Status is the quest lifecycle state. ACTIVE quests become EXPIRED by the
// scheduled archiving job once EndTime passes; the router only reads status.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusVerifying Status = "VERIFYING"
	StatusCompleted Status = "COMPLETED"
	StatusExpired   Status = "EXPIRED"
)

// Quest is a defined onchain or social task with a reward, difficulty,
// category, and time window. Invariant: StartTime <= EndTime.
type Quest struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Protocol          string     `json:"protocol"`
	ProtocolURL       string     `json:"protocolUrl,omitempty"`
	ActionRequired    string     `json:"actionRequired"`
	TargetContract    string     `json:"targetContract"`
	RewardType        RewardType `json:"rewardType"`
	RewardAmount      string     `json:"rewardAmount"`
	Difficulty        Difficulty `json:"difficulty"`
	Category          Category   `json:"category"`
	StartTime         time.Time  `json:"startTime"`
	EndTime           time.Time  `json:"endTime"`
	Status            Status     `json:"status"`
	VerificationLogic string     `json:"verificationLogic,omitempty"`
	CompletedCount    int        `json:"completedCount"`
}

// TimeRemaining renders the time left until EndTime in the "2d 5h left" /
// "5h left" form used across announcements and chat replies.
func (q Quest) TimeRemaining(now time.Time) string {
	remaining := q.EndTime.Sub(now)
	if remaining <= 0 {
		return "ended"
	}
	hours := int(remaining.Hours())
	if hours > 24 {
		return fmt.Sprintf("%dd %dh left", hours/24, hours%24)
	}
	return fmt.Sprintf("%dh left", hours)
}

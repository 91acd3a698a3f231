package quest

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Generator produces new quests with the Gemini API, falling back to fixed
// templates when the API call or parse fails. Generation must never leave
// the platform without a fresh quest.
type Generator struct {
	client   *genai.Client
	model    string
	duration time.Duration
	logger   *zap.Logger
}

// NewGenerator creates a quest generator. duration is the active window each
// generated quest gets.
func NewGenerator(ctx context.Context, apiKey, model string, duration time.Duration, logger *zap.Logger) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-3-flash-preview"
	}
	if duration <= 0 {
		duration = 24 * time.Hour
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Generator{
		client:   client,
		model:    model,
		duration: duration,
		logger:   logger,
	}, nil
}

// generatedQuest is the JSON shape the model is asked to return.
type generatedQuest struct {
	Title             string `json:"title"`
	Description       string `json:"description"`
	Protocol          string `json:"protocol"`
	ProtocolURL       string `json:"protocolUrl"`
	ActionRequired    string `json:"actionRequired"`
	TargetContract    string `json:"targetContract"`
	RewardType        string `json:"rewardType"`
	RewardAmount      string `json:"rewardAmount"`
	Difficulty        string `json:"difficulty"`
	Category          string `json:"category"`
	VerificationLogic string `json:"verificationLogic"`
}

var generatedQuestSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title":             {Type: genai.TypeString, Description: "Engaging quest title (max 60 chars)"},
		"description":       {Type: genai.TypeString, Description: "Clear quest description explaining value proposition"},
		"protocol":          {Type: genai.TypeString, Description: "Protocol name"},
		"protocolUrl":       {Type: genai.TypeString, Description: "Official website or documentation URL"},
		"actionRequired":    {Type: genai.TypeString, Description: "Specific action the user must complete"},
		"targetContract":    {Type: genai.TypeString, Description: "Base mainnet contract address (0x...)"},
		"rewardType":        {Type: genai.TypeString, Enum: []string{"SOULBOUND", "ERC20"}},
		"rewardAmount":      {Type: genai.TypeString, Description: "Reward quantity and denomination"},
		"difficulty":        {Type: genai.TypeString, Enum: []string{"EASY", "MEDIUM", "HARD"}},
		"category":          {Type: genai.TypeString, Enum: []string{"DEFI", "NFT", "SOCIAL", "GOVERNANCE"}},
		"verificationLogic": {Type: genai.TypeString, Description: "Technical verification method (events, function calls)"},
	},
	Required: []string{"title", "description", "protocol", "protocolUrl", "actionRequired",
		"targetContract", "rewardType", "rewardAmount", "difficulty", "category", "verificationLogic"},
}

// Generate creates one new quest. previousTitles are passed to the model to
// avoid repetition. API failures degrade to a fallback template quest.
func (g *Generator) Generate(ctx context.Context, previousTitles []string) (Quest, error) {
	// Difficulty distribution: 60% easy, 30% medium, 10% hard.
	r := rand.Float64()
	var difficulty Difficulty
	switch {
	case r < 0.6:
		difficulty = DifficultyEasy
	case r < 0.9:
		difficulty = DifficultyMedium
	default:
		difficulty = DifficultyHard
	}

	categories := []Category{CategoryDeFi, CategoryNFT, CategorySocial, CategoryGovernance}
	category := categories[rand.Intn(len(categories))]

	prompt := fmt.Sprintf(`You are OpenQuest, an autonomous agent on the Base network.
Generate a new onchain quest for real users on the Base blockchain.

PREVIOUS QUESTS (avoid repetition): %s

TARGET DIFFICULTY: %s
TARGET CATEGORY: %s

QUEST REQUIREMENTS:
1. Must target a real Base protocol from this list:
   - DeFi: Uniswap, Aerodrome, Aave, Moonwell, Morpho, BaseSwap, Velodrome
   - NFT: BasePaint, Zora, Unlock Protocol, Coinbase NFT
   - Social: Friend.tech, Farcaster, Lens Protocol, Base Names
   - Governance: Base DAO proposals, Protocol governance votes

2. Action must be quantifiable onchain and verifiable through smart contract events

3. Difficulty guidelines:
   - EASY: Simple actions (single swap <$10, NFT mint, social follow)
   - MEDIUM: Multi-step or moderate value ($10-100 volume, LP provision)
   - HARD: Complex strategies, governance participation, high value ($100+)

4. Include accurate contract addresses for Base mainnet

5. Reward should match difficulty:
   - EASY: 10-25 points or basic badge
   - MEDIUM: 50-100 points or silver badge
   - HARD: 200+ points or gold badge

Return a complete quest as JSON.`,
		strings.Join(previousTitles, ", "), difficulty, category)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   generatedQuestSchema,
		})
	if err != nil {
		g.logger.Warn("quest generation failed, using fallback", zap.Error(err))
		return g.fallbackQuest(), nil
	}

	var gen generatedQuest
	if err := json.Unmarshal([]byte(resp.Text()), &gen); err != nil {
		g.logger.Warn("quest generation returned unparsable JSON, using fallback", zap.Error(err))
		return g.fallbackQuest(), nil
	}

	now := time.Now().UTC()
	return Quest{
		ID:                "q-" + uuid.NewString()[:8],
		Title:             gen.Title,
		Description:       gen.Description,
		Protocol:          gen.Protocol,
		ProtocolURL:       gen.ProtocolURL,
		ActionRequired:    gen.ActionRequired,
		TargetContract:    gen.TargetContract,
		RewardType:        RewardType(gen.RewardType),
		RewardAmount:      gen.RewardAmount,
		Difficulty:        Difficulty(gen.Difficulty),
		Category:          Category(gen.Category),
		StartTime:         now,
		EndTime:           now.Add(g.duration),
		Status:            StatusActive,
		VerificationLogic: gen.VerificationLogic,
	}, nil
}

// fallbackQuests are used when the Gemini API is unavailable.
var fallbackQuests = []Quest{
	{
		Title:             "Swap on Uniswap Base",
		Description:       "Complete your first swap on Uniswap's Base deployment. Join millions of users trading on the world's leading DEX.",
		Protocol:          "Uniswap",
		ProtocolURL:       "https://app.uniswap.org",
		ActionRequired:    "Swap any amount of tokens",
		TargetContract:    "0x4752ba5dbc23f44d87826276bf6fd6b1c372ad24",
		RewardType:        RewardERC20,
		RewardAmount:      "25 QUEST",
		Difficulty:        DifficultyEasy,
		Category:          CategoryDeFi,
		VerificationLogic: "Check for Swap event emission from user address on Uniswap V3 Router",
	},
	{
		Title:             "Provide Liquidity on Aerodrome",
		Description:       "Become a liquidity provider on Aerodrome Finance. Earn trading fees while supporting the Base DeFi ecosystem.",
		Protocol:          "Aerodrome",
		ProtocolURL:       "https://aerodrome.finance",
		ActionRequired:    "Add liquidity to any pool",
		TargetContract:    "0xcF77a3Ba9A5CA399B7c97c74d54e5b1Beb874E43",
		RewardType:        RewardSoulbound,
		RewardAmount:      "LP Badge #001",
		Difficulty:        DifficultyMedium,
		Category:          CategoryDeFi,
		VerificationLogic: "Verify Mint event from Aerodrome pools with user as recipient",
	},
	{
		Title:             "Create on BasePaint",
		Description:       "Express your creativity on BasePaint. Contribute to the collaborative canvas and become part of Base's creative community.",
		Protocol:          "BasePaint",
		ProtocolURL:       "https://basepaint.xyz",
		ActionRequired:    "Mint a BasePaint NFT",
		TargetContract:    "0xBa5e05cb26b78eDa3A2f8e3b3814726305dcAc83",
		RewardType:        RewardSoulbound,
		RewardAmount:      "Creator Badge",
		Difficulty:        DifficultyEasy,
		Category:          CategoryNFT,
		VerificationLogic: "Check Transfer event from BasePaint contract to user address",
	},
}

func (g *Generator) fallbackQuest() Quest {
	q := fallbackQuests[rand.Intn(len(fallbackQuests))]
	now := time.Now().UTC()
	q.ID = "q-fallback-" + uuid.NewString()[:8]
	q.StartTime = now
	q.EndTime = now.Add(g.duration)
	q.Status = StatusActive
	return q
}

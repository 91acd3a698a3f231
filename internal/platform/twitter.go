package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"openquest/internal/quest"
)

const (
	twitterAPIURL = "https://api.twitter.com"

	// tweetMaxLen is the hard platform limit for one tweet.
	tweetMaxLen = 280

	defaultTwitterPoll = 30 * time.Second
)

// Twitter polls the v2 search API for mentions of the bot account and replies
// through the handler. Outbound posts (announcements, celebrations, daily
// stats) go through the same client.
type Twitter struct {
	baseURL      string
	bearerToken  string
	botUsername  string
	pollInterval time.Duration
	httpClient   *http.Client
	handler      Handler
	seen         *SeenSet
	logger       *zap.Logger
}

// TwitterOptions configures a Twitter adapter.
type TwitterOptions struct {
	BearerToken  string
	BotUsername  string
	PollInterval time.Duration
	// BaseURL overrides the API endpoint, for tests.
	BaseURL string
}

// NewTwitter creates a Twitter adapter.
func NewTwitter(opts TwitterOptions, handler Handler, logger *zap.Logger) *Twitter {
	if opts.BaseURL == "" {
		opts.BaseURL = twitterAPIURL
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultTwitterPoll
	}
	return &Twitter{
		baseURL:      opts.BaseURL,
		bearerToken:  opts.BearerToken,
		botUsername:  opts.BotUsername,
		pollInterval: opts.PollInterval,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		handler:      handler,
		seen:         NewSeenSet(),
		logger:       logger,
	}
}

// Name identifies the adapter in session keys and logs.
func (t *Twitter) Name() string { return "twitter" }

// Run polls for mentions until the context is canceled. Poll errors are
// logged and the loop continues; rate limiting is expected on the free tier.
func (t *Twitter) Run(ctx context.Context) error {
	t.logger.Info("twitter mention listener started",
		zap.String("bot", t.botUsername),
		zap.Duration("interval", t.pollInterval))

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := t.pollMentions(ctx); err != nil {
				t.logger.Warn("twitter mention poll failed", zap.Error(err))
			}
		}
	}
}

type tweetSearchResponse struct {
	Data []struct {
		ID       string `json:"id"`
		Text     string `json:"text"`
		AuthorID string `json:"author_id"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"users"`
	} `json:"includes"`
}

func (t *Twitter) pollMentions(ctx context.Context) error {
	q := url.Values{}
	q.Set("query", "@"+t.botUsername)
	q.Set("max_results", "10")
	q.Set("tweet.fields", "author_id,created_at")
	q.Set("expansions", "author_id")

	var resp tweetSearchResponse
	if err := t.get(ctx, "/2/tweets/search/recent?"+q.Encode(), &resp); err != nil {
		return err
	}

	usernames := make(map[string]string, len(resp.Includes.Users))
	for _, u := range resp.Includes.Users {
		usernames[u.ID] = u.Username
	}

	for _, tw := range resp.Data {
		if t.seen.MarkSeen(tw.ID) {
			continue
		}
		username := usernames[tw.AuthorID]
		if username == "" {
			username = "user"
		}
		if username == t.botUsername {
			continue
		}

		message := StripMentions(tw.Text)
		if message == "" {
			message = "help"
		}

		t.logger.Info("twitter mention received",
			zap.String("from", username),
			zap.String("tweet", tw.ID))

		reply := t.handler(ctx, message, tw.AuthorID, t.Name(), username)
		if err := t.reply(ctx, fmt.Sprintf("@%s %s", username, reply), tw.ID); err != nil {
			t.logger.Warn("twitter reply failed",
				zap.String("tweet", tw.ID), zap.Error(err))
		}
	}
	return nil
}

// AnnounceQuest tweets a new quest.
func (t *Twitter) AnnounceQuest(ctx context.Context, q quest.Quest) error {
	text := fmt.Sprintf(`🎯 NEW QUEST LIVE ON BASE

%s

%s | %s
🏛️ %s
🎁 %s
⏰ %s

Complete & submit via chat!

#OpenQuest #Base #Onchain`,
		q.Title, q.Difficulty, q.Category, q.Protocol, q.RewardAmount, q.TimeRemaining(time.Now()))
	return t.tweet(ctx, text)
}

// CelebrateCompletion tweets a quest completion shoutout.
func (t *Twitter) CelebrateCompletion(ctx context.Context, username, questTitle string) error {
	text := fmt.Sprintf(`🎉 QUEST COMPLETED!

@%s just crushed: "%s"

Keep building on Base! 🔵

#OpenQuest #Base`, username, questTitle)
	return t.tweet(ctx, text)
}

// DailyStats holds the figures for the scheduled stats tweet.
type DailyStats struct {
	QuestsCompleted int
	ActiveUsers     int
	RewardsClaimed  int
	HottestQuest    string
}

// TweetDailyStats posts the daily platform digest.
func (t *Twitter) TweetDailyStats(ctx context.Context, stats DailyStats) error {
	text := fmt.Sprintf(`📊 OpenQuest Daily Stats

🎯 Quests Completed: %d
👥 Active Users: %d
🎁 Rewards Claimed: %d
🔥 Hottest Quest: %s

Keep building onchain! 🚀

#Base #OpenQuest`,
		stats.QuestsCompleted, stats.ActiveUsers, stats.RewardsClaimed, stats.HottestQuest)
	return t.tweet(ctx, text)
}

func (t *Twitter) tweet(ctx context.Context, text string) error {
	return t.postTweet(ctx, map[string]any{"text": truncate(text, tweetMaxLen)})
}

func (t *Twitter) reply(ctx context.Context, text, inReplyTo string) error {
	return t.postTweet(ctx, map[string]any{
		"text": truncate(text, tweetMaxLen),
		"reply": map[string]string{
			"in_reply_to_tweet_id": inReplyTo,
		},
	})
}

func (t *Twitter) postTweet(ctx context.Context, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode tweet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.bearerToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tweet request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("tweet rejected with status %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

func (t *Twitter) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.bearerToken)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("rate limited")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

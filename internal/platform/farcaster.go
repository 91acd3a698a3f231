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
	neynarAPIURL = "https://api.neynar.com"

	defaultFarcasterPoll = 30 * time.Second
)

// Farcaster polls Neynar for mention notifications and replies with casts.
// The signer UUID must belong to an approved signer; its FID is resolved once
// at startup.
type Farcaster struct {
	baseURL      string
	apiKey       string
	signerUUID   string
	pollInterval time.Duration
	httpClient   *http.Client
	handler      Handler
	seen         *SeenSet
	logger       *zap.Logger

	fid int64
}

// FarcasterOptions configures a Farcaster adapter.
type FarcasterOptions struct {
	APIKey       string
	SignerUUID   string
	PollInterval time.Duration
	// BaseURL overrides the Neynar endpoint, for tests.
	BaseURL string
}

// NewFarcaster creates a Farcaster adapter.
func NewFarcaster(opts FarcasterOptions, handler Handler, logger *zap.Logger) *Farcaster {
	if opts.BaseURL == "" {
		opts.BaseURL = neynarAPIURL
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultFarcasterPoll
	}
	return &Farcaster{
		baseURL:      opts.BaseURL,
		apiKey:       opts.APIKey,
		signerUUID:   opts.SignerUUID,
		pollInterval: opts.PollInterval,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		handler:      handler,
		seen:         NewSeenSet(),
		logger:       logger,
	}
}

// Name identifies the adapter in session keys and logs.
func (f *Farcaster) Name() string { return "farcaster" }

// Seen exposes the processed-cast set so the webhook route and the poller
// dedupe against the same state.
func (f *Farcaster) Seen() *SeenSet { return f.seen }

// Run resolves the signer's FID, then polls for mention notifications until
// the context is canceled.
func (f *Farcaster) Run(ctx context.Context) error {
	fid, err := f.resolveFID(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve signer fid: %w", err)
	}
	f.fid = fid
	f.logger.Info("farcaster mention listener started",
		zap.Int64("fid", fid),
		zap.Duration("interval", f.pollInterval))

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := f.pollMentions(ctx); err != nil {
				f.logger.Warn("farcaster mention poll failed", zap.Error(err))
			}
		}
	}
}

// resolveFID looks up the FID behind the configured signer. An approved
// signer always has one; a missing FID means the signer was never approved.
func (f *Farcaster) resolveFID(ctx context.Context) (int64, error) {
	var out struct {
		FID int64 `json:"fid"`
	}
	path := "/v2/farcaster/signer?signer_uuid=" + url.QueryEscape(f.signerUUID)
	if err := f.get(ctx, path, &out); err != nil {
		return 0, err
	}
	if out.FID == 0 {
		return 0, fmt.Errorf("signer has no fid; is it approved?")
	}
	return out.FID, nil
}

type neynarCast struct {
	Hash   string `json:"hash"`
	Text   string `json:"text"`
	Author struct {
		FID      int64  `json:"fid"`
		Username string `json:"username"`
	} `json:"author"`
}

type notificationsResponse struct {
	Notifications []struct {
		Cast *neynarCast `json:"cast"`
	} `json:"notifications"`
}

func (f *Farcaster) pollMentions(ctx context.Context) error {
	path := fmt.Sprintf("/v2/farcaster/notifications?fid=%d&type=mentions", f.fid)

	var resp notificationsResponse
	if err := f.get(ctx, path, &resp); err != nil {
		return err
	}

	for _, n := range resp.Notifications {
		cast := n.Cast
		if cast == nil || f.seen.MarkSeen(cast.Hash) {
			continue
		}

		message := StripMentions(cast.Text)
		if message == "" {
			message = "help"
		}
		senderID := fmt.Sprintf("%d", cast.Author.FID)

		f.logger.Info("farcaster mention received",
			zap.String("from", cast.Author.Username),
			zap.String("cast", cast.Hash))

		reply := f.handler(ctx, message, senderID, f.Name(), cast.Author.Username)
		text := fmt.Sprintf("@%s %s", cast.Author.Username, reply)
		if err := f.PostCast(ctx, text, cast.Hash); err != nil {
			f.logger.Warn("farcaster reply failed",
				zap.String("cast", cast.Hash), zap.Error(err))
		}
	}
	return nil
}

// PostCast publishes a cast. A non-empty parent makes it a reply.
func (f *Farcaster) PostCast(ctx context.Context, text, parent string) error {
	payload := map[string]any{
		"signer_uuid": f.signerUUID,
		"text":        text,
	}
	if parent != "" {
		payload["parent"] = parent
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode cast: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/v2/farcaster/cast", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("api_key", f.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cast request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("cast rejected with status %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

// AnnounceQuest casts a new quest announcement.
func (f *Farcaster) AnnounceQuest(ctx context.Context, q quest.Quest) error {
	text := fmt.Sprintf(`🎯 NEW QUEST LIVE

%s

%s

📊 Difficulty: %s
🏷️ Category: %s
🎁 Reward: %s

Join & earn on Base! 🚀
#Base #OpenQuest #Onchain`,
		q.Title, q.Description, q.Difficulty, q.Category, q.RewardAmount)
	return f.PostCast(ctx, text, "")
}

// CelebrateCompletion casts a quest completion shoutout.
func (f *Farcaster) CelebrateCompletion(ctx context.Context, username, questTitle string) error {
	text := fmt.Sprintf(`🎉 QUEST COMPLETED!

@%s just finished: "%s"

Keep building on @base! 🔵
#OpenQuest #Base #Onchain`, username, questTitle)
	return f.PostCast(ctx, text, "")
}

func (f *Farcaster) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("api_key", f.apiKey)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPaymentRequired {
		return fmt.Errorf("neynar tier does not allow notifications polling")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Package ledger is the client for the reward ledger service, the system of
// record for quest completions, claims, and leaderboard standing (backed by
// the OpenQuest contract via an indexer).
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// UserStats summarizes a wallet's quest record.
type UserStats struct {
	Completed  int `json:"completed"`
	Claimed    int `json:"claimed"`
	Streak     int `json:"streak"`
	BadgeCount int `json:"badgeCount"`
}

// LeaderboardEntry is one ranked wallet.
type LeaderboardEntry struct {
	Address string `json:"address"`
	Count   int    `json:"count"`
}

// Client talks to the reward ledger HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Config holds ledger client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewClient creates a ledger client.
func NewClient(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("ledger base URL is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ledger request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read ledger response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("ledger returned status %d: %s", resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse ledger response: %w", err)
		}
	}
	return nil
}

// GetUserStats returns completion/claim/streak/badge counts for an address.
func (c *Client) GetUserStats(ctx context.Context, address string) (UserStats, error) {
	var stats UserStats
	err := c.do(ctx, http.MethodGet, "/v1/users/"+address+"/stats", nil, &stats)
	return stats, err
}

// RecordCompletion writes a verified completion for a wallet against a quest,
// with a content hash as tamper-evident proof. Returns a transaction
// reference from the ledger.
func (c *Client) RecordCompletion(ctx context.Context, questID, address, proofHash string) (string, error) {
	req := struct {
		QuestID   string `json:"questId"`
		Address   string `json:"address"`
		ProofHash string `json:"proofHash"`
	}{questID, address, proofHash}

	var resp struct {
		TxRef string `json:"txRef"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/completions", req, &resp); err != nil {
		return "", err
	}
	if resp.TxRef == "" {
		return "", fmt.Errorf("ledger accepted completion but returned no transaction reference")
	}
	return resp.TxRef, nil
}

// GetLeaderboard returns the top wallets by completion count.
func (c *Client) GetLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	var resp struct {
		Entries []LeaderboardEntry `json:"entries"`
	}
	path := fmt.Sprintf("/v1/leaderboard?limit=%d", limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

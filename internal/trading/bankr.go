// Package trading proxies natural-language trading commands to the Bankr
// agent API. The bot never executes trades itself; it forwards the user's
// instruction and relays Bankr's answer.
package trading

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Proxy is the trading-agent boundary the router depends on.
type Proxy interface {
	Available() bool
	Execute(ctx context.Context, command string) (string, error)
}

// BankrClient implements Proxy against the Bankr HTTP API.
type BankrClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Config holds Bankr client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewBankrClient creates a Bankr proxy client. An empty API key yields a
// client that reports itself unavailable rather than failing calls.
func NewBankrClient(config Config) *BankrClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.bankr.bot"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &BankrClient{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Available reports whether the proxy is configured.
func (c *BankrClient) Available() bool {
	return c.apiKey != ""
}

// Execute forwards a trading instruction and returns Bankr's reply text.
func (c *BankrClient) Execute(ctx context.Context, command string) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("Bankr API key not configured")
	}

	payload, err := json.Marshal(struct {
		Prompt string `json:"prompt"`
	}{command})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/jobs", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("Bankr request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read Bankr response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Bankr returned status %d: %s", resp.StatusCode, body)
	}

	var out struct {
		Status string `json:"status"`
		Result string `json:"result"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to parse Bankr response: %w", err)
	}
	if out.Status == "failed" {
		return "", fmt.Errorf("Bankr job failed: %s", out.Error)
	}
	return out.Result, nil
}

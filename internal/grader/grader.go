// Package grader evaluates user quest submissions with an LLM judge.
// Submissions may be raw text or a URL; URLs are fetched and reduced to
// plain text before grading.
package grader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"openquest/internal/llm"
)

// maxContentChars bounds how much submission text reaches the judge.
const maxContentChars = 10000

// Evaluation is the judge's verdict on a submission.
type Evaluation struct {
	Score      int    `json:"score"`
	Feedback   string `json:"feedback"`
	IsApproved bool   `json:"isApproved"`
}

// Grader scores submissions against quest requirements.
type Grader struct {
	llm        llm.Client
	httpClient *http.Client
	threshold  int
	logger     *zap.Logger
}

// New creates a Grader. threshold is the minimum approving score.
func New(client llm.Client, threshold int, logger *zap.Logger) *Grader {
	if threshold <= 0 {
		threshold = 70
	}
	return &Grader{
		llm:        client,
		httpClient: &http.Client{Timeout: fetchTimeout},
		threshold:  threshold,
		logger:     logger,
	}
}

// Evaluate grades a submission against a quest's title and requirement.
// URL submissions are fetched first; a fetch failure surfaces as
// ErrContentUnreadable, never as a rejection.
func (g *Grader) Evaluate(ctx context.Context, submission, questTitle, questRequirement string) (Evaluation, error) {
	content := submission
	if strings.HasPrefix(submission, "http://") || strings.HasPrefix(submission, "https://") {
		g.logger.Debug("extracting submission content", zap.String("url", submission))
		extracted, err := extractURLContent(ctx, g.httpClient, submission)
		if err != nil {
			return Evaluation{}, err
		}
		content = extracted
	}

	if len(content) > maxContentChars {
		// Back up to a rune boundary so the cut never leaves a split
		// multi-byte sequence in the judge prompt.
		cut := maxContentChars
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		content = content[:cut]
	}

	prompt := fmt.Sprintf(`You are an expert content judge for OpenQuest, an autonomous onchain quest platform on the Base blockchain.

Quest Title: %q
Quest Requirement: %q

User Submission Content:
"""
%s
"""

Evaluate the submission based on:
1. Relevance: Is it actually about the quest topic?
2. Quality: Is it reasonably high quality (not spam, not low effort)?
3. Originality: Does it look like original work or just a copied snippet?

Return a JSON object with:
- score: (0-100)
- feedback: (Short 1-sentence explanation)`, questTitle, questRequirement, content)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	raw, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		return Evaluation{}, fmt.Errorf("judge call failed: %w", err)
	}

	ev, err := parseEvaluation(raw)
	if err != nil {
		return Evaluation{}, fmt.Errorf("judge returned unparsable verdict: %w", err)
	}

	ev.IsApproved = ev.Score >= g.threshold
	return ev, nil
}

// parseEvaluation decodes the judge's JSON, tolerating markdown fences the
// model sometimes wraps around it.
func parseEvaluation(raw string) (Evaluation, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var ev Evaluation
	if err := json.Unmarshal([]byte(cleaned), &ev); err != nil {
		return Evaluation{}, err
	}
	if ev.Score < 0 || ev.Score > 100 {
		return Evaluation{}, fmt.Errorf("score %d out of range", ev.Score)
	}
	return ev, nil
}

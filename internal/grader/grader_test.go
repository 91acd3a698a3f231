package grader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLLM struct {
	response   string
	err        error
	lastPrompt string
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	return f.response, f.err
}

func (f *fakeLLM) CompleteWithSystem(ctx context.Context, _, prompt string) (string, error) {
	return f.Complete(ctx, prompt)
}

func TestEvaluate_ApprovalThreshold(t *testing.T) {
	cases := []struct {
		score    int
		approved bool
	}{
		{69, false},
		{70, true},
		{100, true},
		{0, false},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("score_%d", tc.score), func(t *testing.T) {
			f := &fakeLLM{response: fmt.Sprintf(`{"score": %d, "feedback": "ok"}`, tc.score)}
			g := New(f, 70, zap.NewNop())

			ev, err := g.Evaluate(context.Background(), "my article text", "Quest", "Write about Base")
			require.NoError(t, err)
			assert.Equal(t, tc.score, ev.Score)
			assert.Equal(t, tc.approved, ev.IsApproved)
		})
	}
}

func TestEvaluate_MarkdownFencedJSON(t *testing.T) {
	f := &fakeLLM{response: "```json\n{\"score\": 85, \"feedback\": \"solid\"}\n```"}
	g := New(f, 70, zap.NewNop())

	ev, err := g.Evaluate(context.Background(), "text", "Quest", "req")
	require.NoError(t, err)
	assert.Equal(t, 85, ev.Score)
	assert.True(t, ev.IsApproved)
	assert.Equal(t, "solid", ev.Feedback)
}

func TestEvaluate_JudgeFailure(t *testing.T) {
	f := &fakeLLM{err: errors.New("network down")}
	g := New(f, 70, zap.NewNop())

	_, err := g.Evaluate(context.Background(), "text", "Quest", "req")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrContentUnreadable)
}

func TestEvaluate_ScoreOutOfRange(t *testing.T) {
	f := &fakeLLM{response: `{"score": 250, "feedback": "??"}`}
	g := New(f, 70, zap.NewNop())

	_, err := g.Evaluate(context.Background(), "text", "Quest", "req")
	assert.Error(t, err)
}

func TestEvaluate_URLSubmission(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><head><script>evil()</script><style>.x{}</style></head>
			<body><nav>menu</nav><p>A thoughtful piece about Base DeFi.</p><footer>foot</footer></body></html>`)
	}))
	defer srv.Close()

	f := &fakeLLM{response: `{"score": 90, "feedback": "great"}`}
	g := New(f, 70, zap.NewNop())

	ev, err := g.Evaluate(context.Background(), srv.URL, "Quest", "req")
	require.NoError(t, err)
	assert.True(t, ev.IsApproved)

	assert.Contains(t, f.lastPrompt, "A thoughtful piece about Base DeFi.")
	assert.NotContains(t, f.lastPrompt, "evil()")
	assert.NotContains(t, f.lastPrompt, "menu")
	assert.NotContains(t, f.lastPrompt, "foot")
}

func TestEvaluate_URLFetchFailureIsContentUnreadable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := &fakeLLM{response: `{"score": 90, "feedback": "unused"}`}
	g := New(f, 70, zap.NewNop())

	_, err := g.Evaluate(context.Background(), srv.URL, "Quest", "req")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrContentUnreadable)
	assert.Empty(t, f.lastPrompt, "judge must not be called when content is unreadable")
}

func TestEvaluate_ContentBounded(t *testing.T) {
	long := make([]byte, 3*maxContentChars)
	for i := range long {
		long[i] = 'a'
	}

	f := &fakeLLM{response: `{"score": 75, "feedback": "ok"}`}
	g := New(f, 70, zap.NewNop())

	_, err := g.Evaluate(context.Background(), string(long), "Quest", "req")
	require.NoError(t, err)
	assert.Less(t, len(f.lastPrompt), 2*maxContentChars)
}

func TestEvaluate_TruncationKeepsValidUTF8(t *testing.T) {
	// The leading ASCII byte shifts every two-byte rune off the limit, so a
	// plain byte cut at maxContentChars would land mid-sequence.
	content := "a" + strings.Repeat("é", maxContentChars)

	f := &fakeLLM{response: `{"score": 75, "feedback": "ok"}`}
	g := New(f, 70, zap.NewNop())

	_, err := g.Evaluate(context.Background(), content, "Quest", "req")
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(f.lastPrompt))
	assert.NotContains(t, f.lastPrompt, string(utf8.RuneError))
}

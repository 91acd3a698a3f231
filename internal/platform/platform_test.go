package platform

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripMentions(t *testing.T) {
	assert.Equal(t, "quests", StripMentions("@OpenQuestBot quests"))
	assert.Equal(t, "link 0xabc", StripMentions("hey @bot link 0xabc"))
	assert.Equal(t, "", StripMentions("@OpenQuestBot @someone"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 280))
	long := strings.Repeat("a", 300)
	got := truncate(long, 280)
	assert.Len(t, []rune(got), 280)
	assert.True(t, strings.HasSuffix(got, "..."))

	// Rune-aware: multi-byte characters are not split.
	emoji := strings.Repeat("🎯", 300)
	got = truncate(emoji, 280)
	assert.Len(t, []rune(got), 280)
}

func TestSeenSet(t *testing.T) {
	s := NewSeenSet()
	assert.False(t, s.MarkSeen("a"))
	assert.True(t, s.MarkSeen("a"))
	assert.False(t, s.MarkSeen("b"))
}

func TestHandlerSignatureMatchesRouter(t *testing.T) {
	// Compile-time shape check: a Handler can be built from any function with
	// the router's Handle signature.
	var h Handler = func(_ context.Context, message, _, _, _ string) string {
		return message
	}
	assert.Equal(t, "hi", h(context.Background(), "hi", "u", "p", "n"))
}

// Package platform connects the quest bot to social platforms. Each adapter
// polls its platform for mentions, normalizes them into (message, senderID,
// platform, senderName), hands them to the message handler, and posts the
// reply back. Adapters also publish outbound announcements (new quests,
// completion celebrations, daily stats).
package platform

import (
	"context"
	"regexp"
	"strings"
	"sync"
)

// Handler processes one normalized inbound message and returns the reply.
// The router satisfies this.
type Handler func(ctx context.Context, message, senderID, platform, senderName string) string

var mentionPattern = regexp.MustCompile(`@\w+`)

// StripMentions removes @handles so the router sees only the command text.
func StripMentions(text string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
}

// truncate bounds text to max runes, ending with "..." when cut.
func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-3]) + "..."
}

// SeenSet tracks processed post IDs so a message is delivered to the router
// at most once, whether it arrives via polling or a retried webhook.
type SeenSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewSeenSet() *SeenSet {
	return &SeenSet{ids: make(map[string]struct{})}
}

// MarkSeen records an id and reports whether it was already present.
func (s *SeenSet) MarkSeen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return true
	}
	s.ids[id] = struct{}{}
	return false
}

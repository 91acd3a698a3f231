package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"openquest/internal/quest"
)

type castRequest struct {
	SignerUUID string `json:"signer_uuid"`
	Text       string `json:"text"`
	Parent     string `json:"parent"`
}

const notificationsBody = `{
	"notifications": [
		{"cast": {"hash": "0xc1", "text": "@openquest stats", "author": {"fid": 42, "username": "alice"}}},
		{"cast": null}
	]
}`

func newNeynarServer(t *testing.T, posted *[]castRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "neynar-key", r.Header.Get("api_key"))
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v2/farcaster/signer":
			assert.Equal(t, "signer-1", r.URL.Query().Get("signer_uuid"))
			w.Write([]byte(`{"fid": 777}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v2/farcaster/notifications":
			assert.Equal(t, "777", r.URL.Query().Get("fid"))
			assert.Equal(t, "mentions", r.URL.Query().Get("type"))
			w.Write([]byte(notificationsBody))
		case r.Method == http.MethodPost && r.URL.Path == "/v2/farcaster/cast":
			var req castRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			*posted = append(*posted, req)
			w.Write([]byte(`{"success": true}`))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestFarcaster(url string, handler Handler) *Farcaster {
	return NewFarcaster(FarcasterOptions{
		APIKey:     "neynar-key",
		SignerUUID: "signer-1",
		BaseURL:    url,
	}, handler, zap.NewNop())
}

func TestFarcasterResolveFID(t *testing.T) {
	var posted []castRequest
	srv := newNeynarServer(t, &posted)
	defer srv.Close()

	fc := newTestFarcaster(srv.URL, nil)
	fid, err := fc.resolveFID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(777), fid)
}

func TestFarcasterResolveFIDUnapprovedSigner(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	fc := newTestFarcaster(srv.URL, nil)
	_, err := fc.resolveFID(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "approved")
}

func TestFarcasterPollMentions(t *testing.T) {
	var posted []castRequest
	srv := newNeynarServer(t, &posted)
	defer srv.Close()

	var handled []string
	fc := newTestFarcaster(srv.URL, func(_ context.Context, message, senderID, platform, senderName string) string {
		handled = append(handled, message)
		assert.Equal(t, "farcaster", platform)
		assert.Equal(t, "42", senderID)
		assert.Equal(t, "alice", senderName)
		return "your stats"
	})
	fc.fid = 777

	require.NoError(t, fc.pollMentions(context.Background()))
	assert.Equal(t, []string{"stats"}, handled)

	require.Len(t, posted, 1)
	assert.Equal(t, "signer-1", posted[0].SignerUUID)
	assert.Equal(t, "@alice your stats", posted[0].Text)
	assert.Equal(t, "0xc1", posted[0].Parent, "reply carries the parent cast hash")

	// Second poll sees the same cast hash; no new reply.
	require.NoError(t, fc.pollMentions(context.Background()))
	assert.Len(t, posted, 1)
}

func TestFarcasterAnnounceQuestIsTopLevel(t *testing.T) {
	var posted []castRequest
	srv := newNeynarServer(t, &posted)
	defer srv.Close()

	fc := newTestFarcaster(srv.URL, nil)
	q := quest.Quest{
		Title:        "Mint on BasePaint",
		Description:  "Mint today's canvas",
		RewardAmount: "Creator Badge",
		Difficulty:   quest.DifficultyEasy,
		Category:     quest.CategoryNFT,
	}
	require.NoError(t, fc.AnnounceQuest(context.Background(), q))

	require.Len(t, posted, 1)
	assert.Contains(t, posted[0].Text, "Mint on BasePaint")
	assert.Empty(t, posted[0].Parent)
}

func TestFarcasterPaymentRequiredIsExplained(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer srv.Close()

	fc := newTestFarcaster(srv.URL, nil)
	fc.fid = 777
	err := fc.pollMentions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tier")
}

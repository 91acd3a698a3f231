package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"openquest/internal/platform"
	"openquest/internal/quest"
)

type fakeQuests struct {
	quests []quest.Quest
	err    error
}

func (f *fakeQuests) ListActive(context.Context) ([]quest.Quest, error) {
	return f.quests, f.err
}

type fakeCaster struct {
	texts   []string
	parents []string
	err     error
}

func (f *fakeCaster) PostCast(_ context.Context, text, parent string) error {
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, text)
	f.parents = append(f.parents, parent)
	return nil
}

func testQuest(id string) quest.Quest {
	now := time.Now()
	return quest.Quest{
		ID:             id,
		Title:          "Swap on Uniswap Base",
		RewardType:     quest.RewardERC20,
		RewardAmount:   "25 QUEST",
		Difficulty:     quest.DifficultyEasy,
		Category:       quest.CategoryDeFi,
		StartTime:      now.Add(-time.Hour),
		EndTime:        now.Add(time.Hour),
		Status:         quest.StatusActive,
		CompletedCount: 3,
	}
}

func echoHandler(_ context.Context, message, _, _, _ string) string {
	return "echo: " + message
}

func TestQuestsEndpoint(t *testing.T) {
	t.Run("returns active quests", func(t *testing.T) {
		s := New(&fakeQuests{quests: []quest.Quest{testQuest("q-1")}}, echoHandler, nil, zap.NewNop())

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quests", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var got []quest.Quest
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "q-1", got[0].ID)
	})

	t.Run("empty store yields empty array, not null", func(t *testing.T) {
		s := New(&fakeQuests{}, echoHandler, nil, zap.NewNop())

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quests", nil))

		assert.Equal(t, "[]\n", rec.Body.String())
	})

	t.Run("store failure is 500", func(t *testing.T) {
		s := New(&fakeQuests{err: errors.New("db closed")}, echoHandler, nil, zap.NewNop())

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quests", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestStatsEndpoint(t *testing.T) {
	s := New(&fakeQuests{quests: []quest.Quest{testQuest("q-1"), testQuest("q-2")}}, echoHandler, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got PlatformStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.QuestsDeployed)
	assert.Equal(t, 6, got.TotalParticipants)
}

func TestFarcasterWebhook(t *testing.T) {
	castEvent := `{
		"data": {
			"type": "cast",
			"cast": {
				"hash": "0xc1",
				"text": "@openquest quests",
				"author": {"fid": 42, "username": "alice"}
			}
		}
	}`

	t.Run("routes mention and replies", func(t *testing.T) {
		caster := &fakeCaster{}
		s := New(&fakeQuests{}, echoHandler, caster, zap.NewNop())

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/farcaster", strings.NewReader(castEvent)))

		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, caster.texts, 1)
		assert.Equal(t, "@alice echo: quests", caster.texts[0])
		assert.Equal(t, "0xc1", caster.parents[0])
	})

	t.Run("non-cast events are acknowledged and dropped", func(t *testing.T) {
		caster := &fakeCaster{}
		s := New(&fakeQuests{}, echoHandler, caster, zap.NewNop())

		rec := httptest.NewRecorder()
		body := `{"data": {"type": "reaction"}}`
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/farcaster", strings.NewReader(body)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, caster.texts)
	})

	t.Run("malformed payload is 400", func(t *testing.T) {
		s := New(&fakeQuests{}, echoHandler, nil, zap.NewNop())

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/farcaster", strings.NewReader("{not json")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("nil caster still processes", func(t *testing.T) {
		var handled string
		h := func(_ context.Context, message, _, _, _ string) string {
			handled = message
			return "ok"
		}
		s := New(&fakeQuests{}, h, nil, zap.NewNop())

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/farcaster", strings.NewReader(castEvent)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "quests", handled)
	})

	t.Run("retried delivery of the same cast is processed once", func(t *testing.T) {
		caster := &fakeCaster{}
		var invocations int
		h := func(_ context.Context, _, _, _, _ string) string {
			invocations++
			return "ok"
		}
		s := New(&fakeQuests{}, h, caster, zap.NewNop())

		for i := 0; i < 3; i++ {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/farcaster", strings.NewReader(castEvent)))
			assert.Equal(t, http.StatusOK, rec.Code)
		}

		assert.Equal(t, 1, invocations)
		assert.Len(t, caster.texts, 1)
	})

	t.Run("cast answered by the poller is skipped", func(t *testing.T) {
		seen := platform.NewSeenSet()
		seen.MarkSeen("0xc1")

		var invocations int
		h := func(_ context.Context, _, _, _, _ string) string {
			invocations++
			return "ok"
		}
		s := New(&fakeQuests{}, h, &fakeCaster{}, zap.NewNop())
		s.UseSeenSet(seen)

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/farcaster", strings.NewReader(castEvent)))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Zero(t, invocations)
	})

	t.Run("cast failure is 500", func(t *testing.T) {
		caster := &fakeCaster{err: errors.New("neynar down")}
		s := New(&fakeQuests{}, echoHandler, caster, zap.NewNop())

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/farcaster", strings.NewReader(castEvent)))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHealthz(t *testing.T) {
	s := New(&fakeQuests{}, echoHandler, nil, zap.NewNop())
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

package quest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testQuest(id string, status Status, end time.Time) Quest {
	return Quest{
		ID:             id,
		Title:          "Swap on Uniswap Base",
		Description:    "Complete a swap",
		Protocol:       "Uniswap",
		ActionRequired: "Swap any amount",
		RewardType:     RewardERC20,
		RewardAmount:   "25 QUEST",
		Difficulty:     DifficultyEasy,
		Category:       CategoryDeFi,
		StartTime:      time.Now().Add(-time.Hour).UTC(),
		EndTime:        end,
		Status:         status,
	}
}

func TestAddAndGetByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	q := testQuest("q-1", StatusActive, time.Now().Add(24*time.Hour))
	require.NoError(t, s.Add(ctx, q))

	got, err := s.GetByID(ctx, "q-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Swap on Uniswap Base", got.Title)
	assert.Equal(t, RewardERC20, got.RewardType)

	missing, err := s.GetByID(ctx, "q-nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAddRejectsInvertedWindow(t *testing.T) {
	s := newTestStore(t)

	q := testQuest("q-bad", StatusActive, time.Now().Add(-2*time.Hour))
	err := s.Add(context.Background(), q)
	assert.Error(t, err)
}

func TestListActiveOrderingAndFiltering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := testQuest("q-old", StatusActive, time.Now().Add(24*time.Hour))
	older.StartTime = time.Now().Add(-3 * time.Hour).UTC()
	newer := testQuest("q-new", StatusActive, time.Now().Add(24*time.Hour))
	expired := testQuest("q-expired", StatusExpired, time.Now().Add(24*time.Hour))
	ended := testQuest("q-ended", StatusActive, time.Now().Add(-time.Minute))
	ended.StartTime = time.Now().Add(-2 * time.Hour).UTC()

	for _, q := range []Quest{older, newer, expired, ended} {
		require.NoError(t, s.Add(ctx, q))
	}

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "q-new", active[0].ID, "most recent first")
	assert.Equal(t, "q-old", active[1].ID)
}

func TestMostRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	q, err := s.MostRecent(ctx)
	require.NoError(t, err)
	assert.Nil(t, q, "no active quests yet")

	require.NoError(t, s.Add(ctx, testQuest("q-1", StatusActive, time.Now().Add(24*time.Hour))))
	q, err = s.MostRecent(ctx)
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, "q-1", q.ID)
}

func TestIncrementCompleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, testQuest("q-1", StatusActive, time.Now().Add(24*time.Hour))))
	require.NoError(t, s.IncrementCompleted(ctx, "q-1"))
	require.NoError(t, s.IncrementCompleted(ctx, "q-1"))

	got, err := s.GetByID(ctx, "q-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.CompletedCount)

	assert.Error(t, s.IncrementCompleted(ctx, "q-nope"))
}

func TestArchiveExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	live := testQuest("q-live", StatusActive, time.Now().Add(24*time.Hour))
	dead := testQuest("q-dead", StatusActive, time.Now().Add(-time.Minute))
	dead.StartTime = time.Now().Add(-2 * time.Hour).UTC()
	require.NoError(t, s.Add(ctx, live))
	require.NoError(t, s.Add(ctx, dead))

	n, err := s.ArchiveExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.GetByID(ctx, "q-dead")
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, got.Status)

	got, err = s.GetByID(ctx, "q-live")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
}

func TestTimeRemaining(t *testing.T) {
	now := time.Now()
	q := Quest{EndTime: now.Add(30 * time.Hour)}
	assert.Equal(t, "1d 6h left", q.TimeRemaining(now))

	q.EndTime = now.Add(5*time.Hour + 30*time.Minute)
	assert.Equal(t, "5h left", q.TimeRemaining(now))

	q.EndTime = now.Add(-time.Second)
	assert.Equal(t, "ended", q.TimeRemaining(now))
}

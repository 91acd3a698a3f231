package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWalletLinkOverwrites(t *testing.T) {
	s := NewMemoryStore(10)

	_, ok := s.Wallet("telegram", "u1")
	assert.False(t, ok)

	s.LinkWallet("telegram", "u1", "0xaaaa")
	addr, ok := s.Wallet("telegram", "u1")
	assert.True(t, ok)
	assert.Equal(t, "0xaaaa", addr)

	s.LinkWallet("telegram", "u1", "0xbbbb")
	addr, _ = s.Wallet("telegram", "u1")
	assert.Equal(t, "0xbbbb", addr)
}

func TestSessionIsolation(t *testing.T) {
	s := NewMemoryStore(10)

	s.LinkWallet("telegram", "u1", "0xaaaa")
	s.AppendTurn("telegram", "u1", Turn{Role: RoleUser, Content: "hi"})

	// Same sender id on a different platform is a distinct session.
	_, ok := s.Wallet("twitter", "u1")
	assert.False(t, ok)
	assert.Empty(t, s.History("twitter", "u1"))

	_, ok = s.Wallet("telegram", "u2")
	assert.False(t, ok)
}

func TestHistoryBounded(t *testing.T) {
	s := NewMemoryStore(10)

	for i := 1; i <= 11; i++ {
		s.AppendTurn("telegram", "u1", Turn{Role: RoleUser, Content: fmt.Sprintf("turn %d", i)})
	}

	h := s.History("telegram", "u1")
	assert.Len(t, h, 10)
	assert.Equal(t, "turn 2", h[0].Content, "oldest turn must be evicted")
	assert.Equal(t, "turn 11", h[9].Content)
}

func TestHistoryReturnsCopy(t *testing.T) {
	s := NewMemoryStore(10)
	s.AppendTurn("telegram", "u1", Turn{Role: RoleUser, Content: "hi"})

	h := s.History("telegram", "u1")
	h[0].Content = "mutated"

	assert.Equal(t, "hi", s.History("telegram", "u1")[0].Content)
}

func TestConcurrentSenders(t *testing.T) {
	s := NewMemoryStore(10)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("u%d", n%5)
			release := s.Acquire("telegram", id)
			s.AppendTurn("telegram", id, Turn{Role: RoleUser, Content: "m"})
			s.LinkWallet("telegram", id, "0xcafe")
			release()
		}(i)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("u%d", i)
		assert.Len(t, s.History("telegram", id), 10)
		addr, ok := s.Wallet("telegram", id)
		assert.True(t, ok)
		assert.Equal(t, "0xcafe", addr)
	}
}

// Package session holds per-sender state for the quest bot: the linked
// wallet address and a bounded rolling conversation transcript. Sessions are
// a non-durable convenience cache keyed by (platform, senderID); they live
// for the process lifetime and are never a source of truth.
package session

import (
	"fmt"
	"sync"
)

// Role identifies who produced a transcript turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry in a conversation transcript.
type Turn struct {
	Role    Role
	Content string
}

// Store is the session state abstraction the router depends on. An in-memory
// map serves production today; a durable implementation can be substituted
// without touching handler logic.
type Store interface {
	// Acquire serializes processing for one sender. The returned release
	// function must be called when message handling completes. Two
	// concurrent messages from the same sender would otherwise race on
	// transcript append order.
	Acquire(platform, senderID string) (release func())

	// LinkWallet stores the wallet address for a sender, overwriting any
	// prior value.
	LinkWallet(platform, senderID, address string)

	// Wallet returns the linked wallet address, if any.
	Wallet(platform, senderID string) (string, bool)

	// AppendTurn appends a transcript turn, evicting the oldest entry once
	// the history limit is exceeded.
	AppendTurn(platform, senderID string, turn Turn)

	// History returns a copy of the sender's transcript, oldest first.
	History(platform, senderID string) []Turn
}

type entry struct {
	// procMu serializes message handling for one sender (held via Acquire).
	// dataMu guards the fields; it is separate so state reads and writes
	// remain safe even while procMu is held by the router.
	procMu  sync.Mutex
	dataMu  sync.Mutex
	wallet  string
	history []Turn
}

// MemoryStore is the in-memory Store implementation.
type MemoryStore struct {
	mu           sync.RWMutex
	sessions     map[string]*entry
	historyLimit int
}

// NewMemoryStore creates a MemoryStore with the given transcript bound.
func NewMemoryStore(historyLimit int) *MemoryStore {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	return &MemoryStore{
		sessions:     make(map[string]*entry),
		historyLimit: historyLimit,
	}
}

func key(platform, senderID string) string {
	return fmt.Sprintf("%s:%s", platform, senderID)
}

// get returns the entry for a sender, creating it on first contact.
func (s *MemoryStore) get(platform, senderID string) *entry {
	k := key(platform, senderID)

	s.mu.RLock()
	e, ok := s.sessions[k]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[k]; ok {
		return e
	}
	e = &entry{}
	s.sessions[k] = e
	return e
}

// Acquire locks the sender's entry for the duration of one message.
func (s *MemoryStore) Acquire(platform, senderID string) func() {
	e := s.get(platform, senderID)
	e.procMu.Lock()
	return e.procMu.Unlock
}

// LinkWallet stores the wallet address for a sender.
func (s *MemoryStore) LinkWallet(platform, senderID, address string) {
	e := s.get(platform, senderID)
	e.dataMu.Lock()
	defer e.dataMu.Unlock()
	e.wallet = address
}

// Wallet returns the linked wallet address, if any.
func (s *MemoryStore) Wallet(platform, senderID string) (string, bool) {
	e := s.get(platform, senderID)
	e.dataMu.Lock()
	defer e.dataMu.Unlock()
	if e.wallet == "" {
		return "", false
	}
	return e.wallet, true
}

// AppendTurn appends a transcript turn, evicting oldest-first past the bound.
func (s *MemoryStore) AppendTurn(platform, senderID string, turn Turn) {
	e := s.get(platform, senderID)
	e.dataMu.Lock()
	defer e.dataMu.Unlock()
	e.history = append(e.history, turn)
	if len(e.history) > s.historyLimit {
		e.history = e.history[len(e.history)-s.historyLimit:]
	}
}

// History returns a copy of the sender's transcript, oldest first.
func (s *MemoryStore) History(platform, senderID string) []Turn {
	e := s.get(platform, senderID)
	e.dataMu.Lock()
	defer e.dataMu.Unlock()
	out := make([]Turn, len(e.history))
	copy(out, e.history)
	return out
}

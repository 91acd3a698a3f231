package quest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS quests (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	protocol TEXT NOT NULL,
	protocol_url TEXT NOT NULL DEFAULT '',
	action_required TEXT NOT NULL DEFAULT '',
	target_contract TEXT NOT NULL DEFAULT '',
	reward_type TEXT NOT NULL,
	reward_amount TEXT NOT NULL DEFAULT '',
	difficulty TEXT NOT NULL,
	category TEXT NOT NULL,
	start_time INTEGER NOT NULL,
	end_time INTEGER NOT NULL,
	status TEXT NOT NULL,
	verification_logic TEXT NOT NULL DEFAULT '',
	completed_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_quests_status ON quests(status, start_time DESC);
`

// Store persists quests in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore opens (creating if needed) the quest database at path.
// Use ":memory:" for tests.
func NewStore(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open quest database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy_timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil && path != ":memory:" {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

const questColumns = `id, title, description, protocol, protocol_url, action_required,
	target_contract, reward_type, reward_amount, difficulty, category,
	start_time, end_time, status, verification_logic, completed_count`

func scanQuest(row interface{ Scan(...any) error }) (Quest, error) {
	var q Quest
	var start, end int64
	err := row.Scan(&q.ID, &q.Title, &q.Description, &q.Protocol, &q.ProtocolURL,
		&q.ActionRequired, &q.TargetContract, &q.RewardType, &q.RewardAmount,
		&q.Difficulty, &q.Category, &start, &end, &q.Status,
		&q.VerificationLogic, &q.CompletedCount)
	if err != nil {
		return Quest{}, err
	}
	q.StartTime = time.Unix(start, 0).UTC()
	q.EndTime = time.Unix(end, 0).UTC()
	return q, nil
}

// Add inserts a quest.
func (s *Store) Add(ctx context.Context, q Quest) error {
	if q.EndTime.Before(q.StartTime) {
		return fmt.Errorf("quest %s: end time precedes start time", q.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quests (`+questColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.Title, q.Description, q.Protocol, q.ProtocolURL,
		q.ActionRequired, q.TargetContract, string(q.RewardType), q.RewardAmount,
		string(q.Difficulty), string(q.Category),
		q.StartTime.Unix(), q.EndTime.Unix(), string(q.Status),
		q.VerificationLogic, q.CompletedCount)
	if err != nil {
		return fmt.Errorf("failed to insert quest: %w", err)
	}
	return nil
}

// ListActive returns ACTIVE, unexpired quests, most recent first.
func (s *Store) ListActive(ctx context.Context) ([]Quest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+questColumns+` FROM quests
		WHERE status = ? AND end_time > ?
		ORDER BY start_time DESC`,
		string(StatusActive), time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query active quests: %w", err)
	}
	defer rows.Close()

	var quests []Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quest: %w", err)
		}
		quests = append(quests, q)
	}
	return quests, rows.Err()
}

// GetByID returns the quest with the given id, or (nil, nil) if absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Quest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+questColumns+` FROM quests WHERE id = ?`, id)
	q, err := scanQuest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load quest %s: %w", id, err)
	}
	return &q, nil
}

// MostRecent returns the most recently started active quest, or (nil, nil)
// when none are active.
func (s *Store) MostRecent(ctx context.Context) (*Quest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+questColumns+` FROM quests
		WHERE status = ? AND end_time > ?
		ORDER BY start_time DESC LIMIT 1`,
		string(StatusActive), time.Now().Unix())
	q, err := scanQuest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load most recent quest: %w", err)
	}
	return &q, nil
}

// IncrementCompleted bumps a quest's completion counter.
func (s *Store) IncrementCompleted(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE quests SET completed_count = completed_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to increment completion count: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("quest %s not found", id)
	}
	return nil
}

// ArchiveExpired flips ACTIVE quests past their end time to EXPIRED and
// returns how many were archived. Run on a schedule.
func (s *Store) ArchiveExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE quests SET status = ? WHERE status = ? AND end_time <= ?`,
		string(StatusExpired), string(StatusActive), time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to archive expired quests: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

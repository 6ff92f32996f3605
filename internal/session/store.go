package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Querier defines the database operations Store depends on. The interface is
// defined here, by the consumer, so unit tests can substitute a mock and the
// production implementation (PGQuerier) stays swappable.
//
// Message-returning methods yield rows newest-first as the database sorts
// them; Store is responsible for restoring chronological order.
type Querier interface {
	// Session rows
	InsertSession(ctx context.Context, s Summary) error
	SelectSession(ctx context.Context, id uuid.UUID) (Summary, error)
	SelectSessions(ctx context.Context, limit, offset int32) ([]Summary, error)
	UpdateSessionMeta(ctx context.Context, s Summary) (int64, error)
	TouchSession(ctx context.Context, id uuid.UUID, at time.Time) error
	DeleteSessionRow(ctx context.Context, id uuid.UUID) error

	// Message rows
	InsertMessage(ctx context.Context, m Message) error
	SelectRecentMessages(ctx context.Context, sessionID uuid.UUID, limit int32) ([]Message, error)
	SelectMessagesBefore(ctx context.Context, sessionID uuid.UUID, before time.Time, limit int32) ([]Message, error)
	DeleteMessages(ctx context.Context, sessionID uuid.UUID) (int64, error)
	DeleteMessage(ctx context.Context, id uuid.UUID) error
}

// Store manages session and message persistence.
//
// The backing schema has no referential-integrity cascade between sessions and
// messages, so Store owns the ordering invariants itself: dependent messages
// are always deleted before their session row, and appending a message bumps
// the parent's updated_at in a second write. The two writes of AddMessage are
// deliberately not wrapped in a transaction; a crash between them leaves a
// stale updated_at but never an orphaned reference.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	querier         Querier
	initialLoadSize int32
	logger          *slog.Logger
}

// New creates a Store. initialLoadSize bounds how many recent messages
// GetSession hydrates; values below 1 fall back to 30.
func New(querier Querier, initialLoadSize int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if initialLoadSize < 1 {
		initialLoadSize = 30
	}
	return &Store{
		querier:         querier,
		initialLoadSize: int32(initialLoadSize),
		logger:          logger,
	}
}

// CreateSession persists a new session with summary metadata only.
func (s *Store) CreateSession(ctx context.Context, title string) (Summary, error) {
	if title == "" {
		title = DefaultTitle
	}
	now := time.Now().UTC()
	summary := Summary{
		ID:        uuid.New(),
		Title:     title,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.querier.InsertSession(ctx, summary); err != nil {
		return Summary{}, fmt.Errorf("creating session: %w", err)
	}
	s.logger.Debug("created session", "id", summary.ID, "title", summary.Title)
	return summary, nil
}

// GetSession returns the full aggregate: summary plus the most recent
// initialLoadSize messages in chronological order. Long conversations are
// never hydrated whole.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	summary, err := s.querier.SelectSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}

	recent, err := s.querier.SelectRecentMessages(ctx, id, s.initialLoadSize)
	if err != nil {
		return nil, fmt.Errorf("hydrating session %s: %w", id, err)
	}

	return &Session{Summary: summary, Messages: reverseChronological(recent)}, nil
}

// GetHistory pages backwards through a session's messages. olderThan is the
// cursor: only messages created strictly before it are returned, newest page
// first but chronological within the page. A zero olderThan means "from the
// end".
func (s *Store) GetHistory(ctx context.Context, id uuid.UUID, limit int, olderThan time.Time) ([]Message, error) {
	if limit < 1 {
		limit = 20
	}

	var (
		rows []Message
		err  error
	)
	if olderThan.IsZero() {
		rows, err = s.querier.SelectRecentMessages(ctx, id, int32(limit))
	} else {
		rows, err = s.querier.SelectMessagesBefore(ctx, id, olderThan, int32(limit))
	}
	if err != nil {
		return nil, fmt.Errorf("getting history for session %s: %w", id, err)
	}
	return reverseChronological(rows), nil
}

// ListSessions returns summaries ordered by most recently updated first.
func (s *Store) ListSessions(ctx context.Context, limit, offset int) ([]Summary, error) {
	if limit < 1 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	summaries, err := s.querier.SelectSessions(ctx, int32(limit), int32(offset))
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	s.logger.Debug("listed sessions", "count", len(summaries), "limit", limit, "offset", offset)
	return summaries, nil
}

// UpdateSession mutates session metadata (title, status, updated_at). It
// accepts the summary shape; callers holding a full Session pass its Summary.
// Returns ErrNotFound when the session does not exist.
func (s *Store) UpdateSession(ctx context.Context, summary Summary) error {
	affected, err := s.querier.UpdateSessionMeta(ctx, summary)
	if err != nil {
		return fmt.Errorf("updating session %s: %w", summary.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("updating session %s: %w", summary.ID, ErrNotFound)
	}
	return nil
}

// DeleteSession removes a session and all its messages. The schema has no
// cascade, so messages go first; if the second delete fails the retry sees
// zero messages and proceeds, making the operation idempotent. Deleting an
// unknown id is a no-op.
func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.querier.DeleteMessages(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting messages for session %s: %w", id, err)
	}
	if err := s.querier.DeleteSessionRow(ctx, id); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	s.logger.Debug("deleted session", "id", id, "messages_deleted", deleted)
	return nil
}

// AddMessage appends a message and bumps the parent session's updated_at to
// the message's timestamp so the session sorts first in ListSessions. Two
// physical writes, no transaction: see the Store doc comment.
func (s *Store) AddMessage(ctx context.Context, m Message) error {
	if err := s.querier.InsertMessage(ctx, m); err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	if err := s.querier.TouchSession(ctx, m.SessionID, m.CreatedAt); err != nil {
		return fmt.Errorf("touching session %s: %w", m.SessionID, err)
	}
	s.logger.Debug("added message", "session_id", m.SessionID, "role", m.Role)
	return nil
}

// GetLastMessages returns the most recent limit messages in chronological
// order. This is the orchestrator's context-window fetch, distinct from the
// cursor pagination GetHistory offers UI scroll-back.
func (s *Store) GetLastMessages(ctx context.Context, id uuid.UUID, limit int) ([]Message, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := s.querier.SelectRecentMessages(ctx, id, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("getting last messages for session %s: %w", id, err)
	}
	return reverseChronological(rows), nil
}

// DeleteLastMessage removes the newest message of a session. Used by
// regeneration to discard a rejected assistant reply. Returns ErrNoMessages
// when the session is empty.
func (s *Store) DeleteLastMessage(ctx context.Context, id uuid.UUID) error {
	rows, err := s.querier.SelectRecentMessages(ctx, id, 1)
	if err != nil {
		return fmt.Errorf("finding last message for session %s: %w", id, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNoMessages)
	}
	if err := s.querier.DeleteMessage(ctx, rows[0].ID); err != nil {
		return fmt.Errorf("deleting message %s: %w", rows[0].ID, err)
	}
	s.logger.Debug("deleted last message", "session_id", id, "message_id", rows[0].ID)
	return nil
}

// reverseChronological flips a newest-first database page into oldest-first
// domain order.
func reverseChronological(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[len(msgs)-1-i] = m
	}
	return out
}

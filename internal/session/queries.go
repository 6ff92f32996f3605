package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGQuerier is the production Querier backed by a pgx connection pool.
type PGQuerier struct {
	pool *pgxpool.Pool
}

// NewPGQuerier creates a PGQuerier.
func NewPGQuerier(pool *pgxpool.Pool) *PGQuerier {
	return &PGQuerier{pool: pool}
}

const insertSessionSQL = `
INSERT INTO sessions (id, title, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)`

// InsertSession writes a new session row.
func (q *PGQuerier) InsertSession(ctx context.Context, s Summary) error {
	_, err := q.pool.Exec(ctx, insertSessionSQL,
		pgUUID(s.ID), s.Title, string(s.Status),
		pgTimestamptz(s.CreatedAt), pgTimestamptz(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

const selectSessionSQL = `
SELECT id, title, status, created_at, updated_at
FROM sessions
WHERE id = $1`

// SelectSession fetches one session summary. A missing row maps to
// ErrNotFound.
func (q *PGQuerier) SelectSession(ctx context.Context, id uuid.UUID) (Summary, error) {
	row := q.pool.QueryRow(ctx, selectSessionSQL, pgUUID(id))
	s, err := scanSummary(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Summary{}, ErrNotFound
		}
		return Summary{}, fmt.Errorf("select session: %w", err)
	}
	return s, nil
}

const selectSessionsSQL = `
SELECT id, title, status, created_at, updated_at
FROM sessions
ORDER BY updated_at DESC
LIMIT $1 OFFSET $2`

// SelectSessions lists session summaries newest-activity first.
func (q *PGQuerier) SelectSessions(ctx context.Context, limit, offset int32) ([]Summary, error) {
	rows, err := q.pool.Query(ctx, selectSessionsSQL, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("select sessions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

const updateSessionSQL = `
UPDATE sessions
SET title = $2, status = $3, updated_at = $4
WHERE id = $1`

// UpdateSessionMeta updates the mutable metadata of a session and reports how
// many rows matched.
func (q *PGQuerier) UpdateSessionMeta(ctx context.Context, s Summary) (int64, error) {
	tag, err := q.pool.Exec(ctx, updateSessionSQL,
		pgUUID(s.ID), s.Title, string(s.Status), pgTimestamptz(s.UpdatedAt))
	if err != nil {
		return 0, fmt.Errorf("update session: %w", err)
	}
	return tag.RowsAffected(), nil
}

const touchSessionSQL = `
UPDATE sessions
SET updated_at = $2
WHERE id = $1`

// TouchSession bumps a session's updated_at.
func (q *PGQuerier) TouchSession(ctx context.Context, id uuid.UUID, at time.Time) error {
	if _, err := q.pool.Exec(ctx, touchSessionSQL, pgUUID(id), pgTimestamptz(at)); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

const deleteSessionSQL = `
DELETE FROM sessions
WHERE id = $1`

// DeleteSessionRow removes the session row itself, not its messages.
func (q *PGQuerier) DeleteSessionRow(ctx context.Context, id uuid.UUID) error {
	if _, err := q.pool.Exec(ctx, deleteSessionSQL, pgUUID(id)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

const insertMessageSQL = `
INSERT INTO messages (id, session_id, role, content, memory_refs, token_count, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// InsertMessage writes a new message row.
func (q *PGQuerier) InsertMessage(ctx context.Context, m Message) error {
	_, err := q.pool.Exec(ctx, insertMessageSQL,
		pgUUID(m.ID), pgUUID(m.SessionID), string(m.Role), m.Content,
		m.MemoryRefs, m.TokenCount, pgTimestamptz(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

const selectRecentMessagesSQL = `
SELECT id, session_id, role, content, memory_refs, token_count, created_at
FROM messages
WHERE session_id = $1
ORDER BY created_at DESC
LIMIT $2`

// SelectRecentMessages returns the newest messages of a session, newest first.
func (q *PGQuerier) SelectRecentMessages(ctx context.Context, sessionID uuid.UUID, limit int32) ([]Message, error) {
	rows, err := q.pool.Query(ctx, selectRecentMessagesSQL, pgUUID(sessionID), limit)
	if err != nil {
		return nil, fmt.Errorf("select recent messages: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

const selectMessagesBeforeSQL = `
SELECT id, session_id, role, content, memory_refs, token_count, created_at
FROM messages
WHERE session_id = $1 AND created_at < $2
ORDER BY created_at DESC
LIMIT $3`

// SelectMessagesBefore returns up to limit messages created strictly before
// the cursor timestamp, newest first.
func (q *PGQuerier) SelectMessagesBefore(ctx context.Context, sessionID uuid.UUID, before time.Time, limit int32) ([]Message, error) {
	rows, err := q.pool.Query(ctx, selectMessagesBeforeSQL, pgUUID(sessionID), pgTimestamptz(before), limit)
	if err != nil {
		return nil, fmt.Errorf("select messages before: %w", err)
	}
	defer rows.Close()
	return collectMessages(rows)
}

const deleteMessagesSQL = `
DELETE FROM messages
WHERE session_id = $1`

// DeleteMessages removes all messages of a session and reports the count.
func (q *PGQuerier) DeleteMessages(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	tag, err := q.pool.Exec(ctx, deleteMessagesSQL, pgUUID(sessionID))
	if err != nil {
		return 0, fmt.Errorf("delete messages: %w", err)
	}
	return tag.RowsAffected(), nil
}

const deleteMessageSQL = `
DELETE FROM messages
WHERE id = $1`

// DeleteMessage removes a single message by id.
func (q *PGQuerier) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	if _, err := q.pool.Exec(ctx, deleteMessageSQL, pgUUID(id)); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

func scanSummary(row pgx.Row) (Summary, error) {
	var (
		s         Summary
		id        pgtype.UUID
		status    string
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &s.Title, &status, &createdAt, &updatedAt); err != nil {
		return Summary{}, err
	}
	s.ID = uuid.UUID(id.Bytes)
	s.Status = Status(status)
	s.CreatedAt = createdAt.Time
	s.UpdatedAt = updatedAt.Time
	return s, nil
}

func collectMessages(rows pgx.Rows) ([]Message, error) {
	var out []Message
	for rows.Next() {
		var (
			m         Message
			id        pgtype.UUID
			sessionID pgtype.UUID
			role      string
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &sessionID, &role, &m.Content, &m.MemoryRefs, &m.TokenCount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.ID = uuid.UUID(id.Bytes)
		m.SessionID = uuid.UUID(sessionID.Bytes)
		m.Role = Role(role)
		m.CreatedAt = createdAt.Time
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

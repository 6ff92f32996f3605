package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

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

const selectProfileSQL = `
SELECT username, bio, preferences, updated_at
FROM user_profile
WHERE id = TRUE`

// SelectProfile fetches the singleton profile row. A missing row maps to
// ErrProfileNotFound.
func (q *PGQuerier) SelectProfile(ctx context.Context) (UserProfile, error) {
	var (
		p         UserProfile
		updatedAt pgtype.Timestamptz
	)
	err := q.pool.QueryRow(ctx, selectProfileSQL).
		Scan(&p.Username, &p.Bio, &p.Preferences, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserProfile{}, ErrProfileNotFound
		}
		return UserProfile{}, fmt.Errorf("select profile: %w", err)
	}
	p.UpdatedAt = updatedAt.Time
	return p, nil
}

const upsertProfileSQL = `
INSERT INTO user_profile (id, username, bio, preferences, updated_at)
VALUES (TRUE, $1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
SET username = EXCLUDED.username,
    bio = EXCLUDED.bio,
    preferences = EXCLUDED.preferences,
    updated_at = EXCLUDED.updated_at`

// UpsertProfile writes the singleton profile row, creating it if absent.
func (q *PGQuerier) UpsertProfile(ctx context.Context, p UserProfile) error {
	_, err := q.pool.Exec(ctx, upsertProfileSQL,
		p.Username, p.Bio, p.Preferences,
		pgtype.Timestamptz{Time: p.UpdatedAt, Valid: true})
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

const selectPersonaSQL = `
SELECT name, system_instruction, traits, language, updated_at
FROM persona
WHERE id = TRUE`

// SelectPersona fetches the singleton persona row. A missing row maps to
// ErrPersonaNotFound.
func (q *PGQuerier) SelectPersona(ctx context.Context) (Persona, error) {
	var (
		p         Persona
		traits    []byte
		updatedAt pgtype.Timestamptz
	)
	err := q.pool.QueryRow(ctx, selectPersonaSQL).
		Scan(&p.Name, &p.SystemInstruction, &traits, &p.Language, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Persona{}, ErrPersonaNotFound
		}
		return Persona{}, fmt.Errorf("select persona: %w", err)
	}
	if len(traits) > 0 {
		if err := json.Unmarshal(traits, &p.Traits); err != nil {
			return Persona{}, fmt.Errorf("decode persona traits: %w", err)
		}
	}
	p.UpdatedAt = updatedAt.Time
	return p, nil
}

const insertPersonaSQL = `
INSERT INTO persona (id, name, system_instruction, traits, language, updated_at)
VALUES (TRUE, $1, $2, $3, $4, $5)`

// InsertPersona writes the singleton persona row.
func (q *PGQuerier) InsertPersona(ctx context.Context, p Persona) error {
	traits, err := json.Marshal(p.Traits)
	if err != nil {
		return fmt.Errorf("encode persona traits: %w", err)
	}
	_, err = q.pool.Exec(ctx, insertPersonaSQL,
		p.Name, p.SystemInstruction, traits, p.Language,
		pgtype.Timestamptz{Time: p.UpdatedAt, Valid: true})
	if err != nil {
		return fmt.Errorf("insert persona: %w", err)
	}
	return nil
}

const updatePersonaSQL = `
UPDATE persona
SET name = $1, system_instruction = $2, traits = $3, language = $4, updated_at = $5
WHERE id = TRUE`

// UpdatePersonaRow updates the singleton persona row and reports how many
// rows matched.
func (q *PGQuerier) UpdatePersonaRow(ctx context.Context, p Persona) (int64, error) {
	traits, err := json.Marshal(p.Traits)
	if err != nil {
		return 0, fmt.Errorf("encode persona traits: %w", err)
	}
	tag, err := q.pool.Exec(ctx, updatePersonaSQL,
		p.Name, p.SystemInstruction, traits, p.Language,
		pgtype.Timestamptz{Time: p.UpdatedAt, Valid: true})
	if err != nil {
		return 0, fmt.Errorf("update persona: %w", err)
	}
	return tag.RowsAffected(), nil
}

// isNotFound reports whether err is one of the package's absence sentinels.
func isNotFound(err error) bool {
	return errors.Is(err, ErrProfileNotFound) || errors.Is(err, ErrPersonaNotFound)
}

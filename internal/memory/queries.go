package memory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PGQuerier is the production Querier backed by a pgx connection pool.
type PGQuerier struct {
	pool *pgxpool.Pool
}

// NewPGQuerier creates a PGQuerier.
func NewPGQuerier(pool *pgxpool.Pool) *PGQuerier {
	return &PGQuerier{pool: pool}
}

const insertFragmentSQL = `
INSERT INTO memories (id, content, embedding, importance, tags, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

// InsertFragment writes a fragment with its embedding.
func (q *PGQuerier) InsertFragment(ctx context.Context, f Fragment, vec pgvector.Vector) error {
	_, err := q.pool.Exec(ctx, insertFragmentSQL,
		f.ID, f.Content, vec, f.Importance, f.Tags,
		pgtype.Timestamptz{Time: f.CreatedAt, Valid: true})
	if err != nil {
		return fmt.Errorf("insert fragment: %w", err)
	}
	return nil
}

const searchFragmentsSQL = `
SELECT id, content, importance, tags, created_at, 1 - (embedding <=> $1) AS similarity
FROM memories
WHERE 1 - (embedding <=> $1) >= $2
ORDER BY embedding <=> $1
LIMIT $3`

// SearchFragments runs a cosine similarity search above the threshold.
func (q *PGQuerier) SearchFragments(ctx context.Context, vec pgvector.Vector, topK int32, threshold float64) ([]Fragment, error) {
	rows, err := q.pool.Query(ctx, searchFragmentsSQL, vec, threshold, topK)
	if err != nil {
		return nil, fmt.Errorf("search fragments: %w", err)
	}
	defer rows.Close()
	return collectFragments(rows, true)
}

const listFragmentsSQL = `
SELECT id, content, importance, tags, created_at
FROM memories
ORDER BY created_at DESC
LIMIT $1`

// ListFragments returns the newest fragments first.
func (q *PGQuerier) ListFragments(ctx context.Context, limit int32) ([]Fragment, error) {
	rows, err := q.pool.Query(ctx, listFragmentsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list fragments: %w", err)
	}
	defer rows.Close()
	return collectFragments(rows, false)
}

const deleteFragmentSQL = `
DELETE FROM memories
WHERE id = $1`

// DeleteFragment removes a fragment by id.
func (q *PGQuerier) DeleteFragment(ctx context.Context, id string) error {
	if _, err := q.pool.Exec(ctx, deleteFragmentSQL, id); err != nil {
		return fmt.Errorf("delete fragment: %w", err)
	}
	return nil
}

func collectFragments(rows pgx.Rows, withScore bool) ([]Fragment, error) {
	var out []Fragment
	for rows.Next() {
		var (
			f         Fragment
			createdAt pgtype.Timestamptz
		)
		dest := []any{&f.ID, &f.Content, &f.Importance, &f.Tags, &createdAt}
		if withScore {
			dest = append(dest, &f.Score)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan fragment: %w", err)
		}
		f.CreatedAt = createdAt.Time
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fragments: %w", err)
	}
	return out, nil
}

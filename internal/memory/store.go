package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// MaxQueryLen caps the text sent to the embedder for a search query.
const MaxQueryLen = 1000

// Embedder turns text into a vector. The production implementation is
// embedding.GenAI; tests substitute a stub.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Querier defines the row-level operations Store depends on.
type Querier interface {
	InsertFragment(ctx context.Context, f Fragment, vec pgvector.Vector) error
	SearchFragments(ctx context.Context, vec pgvector.Vector, topK int32, threshold float64) ([]Fragment, error)
	ListFragments(ctx context.Context, limit int32) ([]Fragment, error)
	DeleteFragment(ctx context.Context, id string) error
}

// Store manages persistent memory fragments.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	querier  Querier
	embedder Embedder
	logger   *slog.Logger
}

// New creates a memory Store.
func New(querier Querier, embedder Embedder, logger *slog.Logger) (*Store, error) {
	if querier == nil {
		return nil, fmt.Errorf("querier is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{querier: querier, embedder: embedder, logger: logger}, nil
}

// Add embeds and stores a new fragment, returning its id. Importance is
// clamped into [0, 1].
func (s *Store) Add(ctx context.Context, content string, importance float64, tags []string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyContent
	}
	if importance < 0 {
		importance = 0
	}
	if importance > 1 {
		importance = 1
	}

	vec, err := s.embed(ctx, content)
	if err != nil {
		return "", err
	}

	f := Fragment{
		ID:         uuid.NewString(),
		Content:    content,
		Importance: importance,
		Tags:       tags,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.querier.InsertFragment(ctx, f, vec); err != nil {
		return "", fmt.Errorf("inserting memory: %w", err)
	}
	s.logger.Debug("stored memory", "id", f.ID, "importance", f.Importance)
	return f.ID, nil
}

// Search returns up to topK fragments whose cosine similarity to the query
// meets the threshold, most similar first. An empty query returns nothing.
func (s *Store) Search(ctx context.Context, query string, topK int, threshold float64) ([]Fragment, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if len(query) > MaxQueryLen {
		query = query[:MaxQueryLen]
	}
	if topK < 1 {
		topK = 3
	}

	vec, err := s.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	frags, err := s.querier.SearchFragments(ctx, vec, int32(topK), threshold)
	if err != nil {
		return nil, fmt.Errorf("searching memories: %w", err)
	}
	s.logger.Debug("memory search", "results", len(frags), "top_k", topK, "threshold", threshold)
	return frags, nil
}

// List returns the most recent fragments, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Fragment, error) {
	if limit < 1 {
		limit = 10
	}
	frags, err := s.querier.ListFragments(ctx, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("listing memories: %w", err)
	}
	return frags, nil
}

// Delete removes a fragment. Deleting an unknown id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.querier.DeleteFragment(ctx, id); err != nil {
		return fmt.Errorf("deleting memory %s: %w", id, err)
	}
	s.logger.Debug("deleted memory", "id", id)
	return nil
}

func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	values, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("embedding text: %w", err)
	}
	if len(values) == 0 {
		return pgvector.Vector{}, fmt.Errorf("empty embedding response")
	}
	return pgvector.NewVector(values), nil
}

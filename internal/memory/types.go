// Package memory stores long-lived facts about the user as embedded text
// fragments in PostgreSQL + pgvector, retrieved by cosine similarity.
package memory

import (
	"errors"
	"time"
)

// VectorDimension is the embedding width stored in the memories table. It
// matches the embedder's output dimensionality; changing it requires a
// migration.
const VectorDimension = 768

// ErrEmptyContent indicates a fragment with no text was submitted.
var ErrEmptyContent = errors.New("memory content is empty")

// Fragment is one stored memory.
type Fragment struct {
	ID         string
	Content    string
	Importance float64 // [0, 1], caller-asserted weight
	Tags       []string
	CreatedAt  time.Time

	// Score is the cosine similarity to the search query. Populated only by
	// Search; zero elsewhere.
	Score float64
}

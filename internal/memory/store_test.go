package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/pgvector/pgvector-go"
)

type mockQuerier struct {
	insertFn func(ctx context.Context, f Fragment, vec pgvector.Vector) error
	searchFn func(ctx context.Context, vec pgvector.Vector, topK int32, threshold float64) ([]Fragment, error)
	listFn   func(ctx context.Context, limit int32) ([]Fragment, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockQuerier) InsertFragment(ctx context.Context, f Fragment, vec pgvector.Vector) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, f, vec)
	}
	return nil
}

func (m *mockQuerier) SearchFragments(ctx context.Context, vec pgvector.Vector, topK int32, threshold float64) ([]Fragment, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, vec, topK, threshold)
	}
	return nil, nil
}

func (m *mockQuerier) ListFragments(ctx context.Context, limit int32) ([]Fragment, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockQuerier) DeleteFragment(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type stubEmbedder struct {
	vec []float32
	err error

	lastText string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.lastText = text
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

func newStore(t *testing.T, q Querier, e Embedder) *Store {
	t.Helper()
	store, err := New(q, e, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return store
}

func TestAdd(t *testing.T) {
	t.Run("embeds and inserts with clamped importance", func(t *testing.T) {
		var inserted Fragment
		q := &mockQuerier{insertFn: func(_ context.Context, f Fragment, _ pgvector.Vector) error {
			inserted = f
			return nil
		}}
		store := newStore(t, q, &stubEmbedder{vec: []float32{0.1, 0.2}})

		id, err := store.Add(context.Background(), "likes matcha", 1.7, []string{"user_command"})
		if err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		if id == "" || inserted.ID != id {
			t.Errorf("id = %q, inserted %q", id, inserted.ID)
		}
		if inserted.Importance != 1 {
			t.Errorf("Importance = %v, want clamped to 1", inserted.Importance)
		}
		if inserted.CreatedAt.IsZero() {
			t.Error("CreatedAt should be set")
		}
	})

	t.Run("rejects empty content", func(t *testing.T) {
		store := newStore(t, &mockQuerier{}, &stubEmbedder{vec: []float32{1}})
		if _, err := store.Add(context.Background(), "   ", 0.5, nil); !errors.Is(err, ErrEmptyContent) {
			t.Errorf("error = %v, want ErrEmptyContent", err)
		}
	})

	t.Run("propagates embedder failure", func(t *testing.T) {
		boom := errors.New("quota exceeded")
		store := newStore(t, &mockQuerier{}, &stubEmbedder{err: boom})
		if _, err := store.Add(context.Background(), "x", 0.5, nil); !errors.Is(err, boom) {
			t.Errorf("error = %v, want %v", err, boom)
		}
	})
}

func TestSearch(t *testing.T) {
	t.Run("passes topK and threshold through", func(t *testing.T) {
		var gotTopK int32
		var gotThreshold float64
		q := &mockQuerier{searchFn: func(_ context.Context, _ pgvector.Vector, topK int32, threshold float64) ([]Fragment, error) {
			gotTopK, gotThreshold = topK, threshold
			return []Fragment{{ID: "a", Score: 0.91}}, nil
		}}
		store := newStore(t, q, &stubEmbedder{vec: []float32{0.5}})

		frags, err := store.Search(context.Background(), "what tea does the user like", 3, 0.7)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if gotTopK != 3 || gotThreshold != 0.7 {
			t.Errorf("topK=%d threshold=%v, want 3 and 0.7", gotTopK, gotThreshold)
		}
		if len(frags) != 1 || frags[0].Score != 0.91 {
			t.Errorf("frags = %+v", frags)
		}
	})

	t.Run("empty query short-circuits", func(t *testing.T) {
		e := &stubEmbedder{vec: []float32{1}}
		store := newStore(t, &mockQuerier{}, e)
		frags, err := store.Search(context.Background(), "  ", 3, 0.7)
		if err != nil || frags != nil {
			t.Errorf("Search() = %v, %v, want nil, nil", frags, err)
		}
		if e.lastText != "" {
			t.Error("embedder should not be called for empty query")
		}
	})

	t.Run("long query truncated before embedding", func(t *testing.T) {
		e := &stubEmbedder{vec: []float32{1}}
		store := newStore(t, &mockQuerier{}, e)
		long := make([]byte, MaxQueryLen+500)
		for i := range long {
			long[i] = 'q'
		}
		if _, err := store.Search(context.Background(), string(long), 3, 0.7); err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(e.lastText) != MaxQueryLen {
			t.Errorf("embedded %d chars, want %d", len(e.lastText), MaxQueryLen)
		}
	})
}

func TestDelete(t *testing.T) {
	var deleted string
	q := &mockQuerier{deleteFn: func(_ context.Context, id string) error {
		deleted = id
		return nil
	}}
	store := newStore(t, q, &stubEmbedder{vec: []float32{1}})
	if err := store.Delete(context.Background(), "frag-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deleted != "frag-1" {
		t.Errorf("deleted = %q", deleted)
	}
}

func TestList(t *testing.T) {
	q := &mockQuerier{listFn: func(_ context.Context, limit int32) ([]Fragment, error) {
		if limit != 10 {
			t.Errorf("limit = %d, want default 10", limit)
		}
		return []Fragment{{ID: "a"}, {ID: "b"}}, nil
	}}
	store := newStore(t, q, &stubEmbedder{vec: []float32{1}})
	frags, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(frags) != 2 {
		t.Errorf("len = %d, want 2", len(frags))
	}
}

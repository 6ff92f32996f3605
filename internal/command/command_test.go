package command

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/airi-ai/airi/internal/memory"
)

type mockMemories struct {
	addFn    func(ctx context.Context, content string, importance float64, tags []string) (string, error)
	listFn   func(ctx context.Context, limit int) ([]memory.Fragment, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockMemories) Add(ctx context.Context, content string, importance float64, tags []string) (string, error) {
	if m.addFn != nil {
		return m.addFn(ctx, content, importance, tags)
	}
	return "frag-1", nil
}

func (m *mockMemories) List(ctx context.Context, limit int) ([]memory.Fragment, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockMemories) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func newTestRegistry(mem Memories) *Registry {
	help := NewHelp()
	r := NewRegistry(nil, NewRemember(mem), NewMemoryList(mem), NewForget(mem), help)
	help.Bind(r)
	return r
}

func TestDispatchDetection(t *testing.T) {
	r := newTestRegistry(&mockMemories{})
	sid := uuid.New()

	t.Run("plain text not handled", func(t *testing.T) {
		out, handled, err := r.Dispatch(context.Background(), "tell me about go", sid)
		if err != nil || handled || out != "" {
			t.Errorf("Dispatch() = (%q, %v, %v), want unhandled", out, handled, err)
		}
	})

	t.Run("unknown command", func(t *testing.T) {
		out, handled, err := r.Dispatch(context.Background(), "/frobnicate now", sid)
		if err != nil || !handled {
			t.Fatalf("Dispatch() handled=%v err=%v", handled, err)
		}
		if out != "Command frobnicate was not found" {
			t.Errorf("out = %q", out)
		}
	})

	t.Run("name lowercased", func(t *testing.T) {
		out, handled, _ := r.Dispatch(context.Background(), "/HELP", sid)
		if !handled || !strings.Contains(out, "Available commands:") {
			t.Errorf("out = %q handled=%v", out, handled)
		}
	})
}

func TestDispatchRemember(t *testing.T) {
	sid := uuid.New()

	t.Run("quoted key=value args", func(t *testing.T) {
		var gotContent string
		var gotImportance float64
		var gotTags []string
		mem := &mockMemories{addFn: func(_ context.Context, content string, importance float64, tags []string) (string, error) {
			gotContent, gotImportance, gotTags = content, importance, tags
			return "frag-1", nil
		}}
		r := newTestRegistry(mem)

		out, handled, err := r.Dispatch(context.Background(),
			`/remember content="Hitagi Senjougahara" importance=0.8`, sid)
		if err != nil || !handled {
			t.Fatalf("Dispatch() handled=%v err=%v", handled, err)
		}
		if gotContent != "Hitagi Senjougahara" {
			t.Errorf("content = %q", gotContent)
		}
		if gotImportance != 0.8 {
			t.Errorf("importance = %v", gotImportance)
		}
		if len(gotTags) != 1 || gotTags[0] != UserCommandTag {
			t.Errorf("tags = %v", gotTags)
		}
		if out != "Saved: 'Hitagi Senjougahara' (Imp: 0.8)" {
			t.Errorf("out = %q", out)
		}
	})

	t.Run("free text goes to first field", func(t *testing.T) {
		var gotContent string
		var gotImportance float64
		mem := &mockMemories{addFn: func(_ context.Context, content string, importance float64, _ []string) (string, error) {
			gotContent, gotImportance = content, importance
			return "frag-1", nil
		}}
		r := newTestRegistry(mem)

		_, _, err := r.Dispatch(context.Background(), "/remember buy milk tomorrow", sid)
		if err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
		if gotContent != "buy milk tomorrow" {
			t.Errorf("content = %q, want whole payload", gotContent)
		}
		if gotImportance != 0.5 {
			t.Errorf("importance = %v, want default 0.5", gotImportance)
		}
	})

	t.Run("missing required field", func(t *testing.T) {
		r := newTestRegistry(&mockMemories{})
		out, handled, err := r.Dispatch(context.Background(), "/remember", sid)
		if err != nil || !handled {
			t.Fatalf("Dispatch() handled=%v err=%v", handled, err)
		}
		if !strings.Contains(out, "Error in parameter 'content': is required") {
			t.Errorf("out = %q", out)
		}
	})

	t.Run("non-numeric importance", func(t *testing.T) {
		r := newTestRegistry(&mockMemories{})
		out, _, _ := r.Dispatch(context.Background(), "/remember content=x importance=high", sid)
		if !strings.Contains(out, "Error in parameter 'importance': must be a number") {
			t.Errorf("out = %q", out)
		}
	})

	t.Run("importance out of range", func(t *testing.T) {
		r := newTestRegistry(&mockMemories{})
		out, _, _ := r.Dispatch(context.Background(), "/remember content=x importance=1.5", sid)
		if !strings.Contains(out, "Error in parameter 'importance': must be at most 1") {
			t.Errorf("out = %q", out)
		}
	})

	t.Run("unbalanced quotes fall back to field splitting", func(t *testing.T) {
		var gotContent string
		mem := &mockMemories{addFn: func(_ context.Context, content string, _ float64, _ []string) (string, error) {
			gotContent = content
			return "frag-1", nil
		}}
		r := newTestRegistry(mem)

		_, handled, err := r.Dispatch(context.Background(), `/remember content="broken importance=0.5`, sid)
		if err != nil || !handled {
			t.Fatalf("Dispatch() handled=%v err=%v", handled, err)
		}
		if gotContent != `"broken` {
			t.Errorf("content = %q, want raw token from fallback split", gotContent)
		}
	})

	t.Run("execute failure becomes text", func(t *testing.T) {
		mem := &mockMemories{addFn: func(context.Context, string, float64, []string) (string, error) {
			return "", errors.New("store unavailable")
		}}
		r := newTestRegistry(mem)

		out, handled, err := r.Dispatch(context.Background(), "/remember content=x", sid)
		if err != nil || !handled {
			t.Fatalf("Dispatch() handled=%v err=%v", handled, err)
		}
		if !strings.HasPrefix(out, "Error: ") {
			t.Errorf("out = %q, want Error: prefix", out)
		}
	})
}

func TestMemoryListCommand(t *testing.T) {
	sid := uuid.New()

	t.Run("lists fragments", func(t *testing.T) {
		mem := &mockMemories{listFn: func(_ context.Context, limit int) ([]memory.Fragment, error) {
			if limit != 10 {
				t.Errorf("limit = %d, want default 10", limit)
			}
			return []memory.Fragment{
				{ID: "a", Content: "likes matcha", Importance: 0.5},
				{ID: "b", Content: "lives in Kyoto", Importance: 0.8},
			}, nil
		}}
		r := newTestRegistry(mem)

		out, _, err := r.Dispatch(context.Background(), "/memories", sid)
		if err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
		if !strings.Contains(out, "[a] likes matcha (Imp: 0.5)") || !strings.Contains(out, "[b] lives in Kyoto (Imp: 0.8)") {
			t.Errorf("out = %q", out)
		}
	})

	t.Run("empty store", func(t *testing.T) {
		r := newTestRegistry(&mockMemories{})
		out, _, _ := r.Dispatch(context.Background(), "/memories", sid)
		if out != "No memories stored yet." {
			t.Errorf("out = %q", out)
		}
	})
}

func TestForgetCommand(t *testing.T) {
	var deleted string
	mem := &mockMemories{deleteFn: func(_ context.Context, id string) error {
		deleted = id
		return nil
	}}
	r := newTestRegistry(mem)

	out, _, err := r.Dispatch(context.Background(), "/forget id=frag-9", uuid.New())
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if deleted != "frag-9" {
		t.Errorf("deleted = %q", deleted)
	}
	if out != "Forgot memory frag-9" {
		t.Errorf("out = %q", out)
	}
}

func TestHelpCommand(t *testing.T) {
	r := newTestRegistry(&mockMemories{})
	out, _, err := r.Dispatch(context.Background(), "/help", uuid.New())
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	for _, name := range []string{"/remember", "/memories", "/forget", "/help"} {
		if !strings.Contains(out, name) {
			t.Errorf("help output missing %s: %q", name, out)
		}
	}
}

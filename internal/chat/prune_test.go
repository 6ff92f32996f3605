package chat

import (
	"strings"
	"testing"

	"github.com/airi-ai/airi/internal/session"
)

func msgs(contents ...string) []session.Message {
	out := make([]session.Message, len(contents))
	for i, c := range contents {
		out[i] = session.Message{Role: session.RoleUser, Content: c}
	}
	return out
}

func contents(history []session.Message) []string {
	out := make([]string, len(history))
	for i, m := range history {
		out[i] = m.Content
	}
	return out
}

func TestPruneHistory(t *testing.T) {
	tests := []struct {
		name    string
		history []session.Message
		system  string
		newMsg  string
		budget  int
		want    []string
	}{
		{
			name:    "everything fits",
			history: msgs("aa", "bb", "cc"),
			system:  "sys",
			newMsg:  "new",
			budget:  100,
			want:    []string{"aa", "bb", "cc"},
		},
		{
			name:    "oldest dropped first",
			history: msgs("aaaa", "bbbb", "cccc"),
			system:  "ss",
			newMsg:  "nn",
			// 2+2 fixed, each message is 4: only two fit under 14
			budget: 14,
			want:   []string{"bbbb", "cccc"},
		},
		{
			name:    "greedy stop even if older fits",
			history: msgs("x", "wide-message", "y"),
			system:  "",
			newMsg:  "",
			// "y" fits (1), "wide-message" (12) overflows at 10, and the
			// walk stops: "x" is dropped despite fitting
			budget: 10,
			want:   []string{"y"},
		},
		{
			name:    "fixed costs alone exhaust budget",
			history: msgs("a", "b"),
			system:  strings.Repeat("s", 50),
			newMsg:  "n",
			budget:  40,
			want:    []string{},
		},
		{
			name:    "empty history",
			history: nil,
			system:  "sys",
			newMsg:  "new",
			budget:  100,
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := contents(pruneHistory(tt.history, tt.system, tt.newMsg, tt.budget))
			if len(got) != len(tt.want) {
				t.Fatalf("pruneHistory() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("pruneHistory()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPruneHistoryIsSuffix(t *testing.T) {
	history := msgs("one", "two", "three", "four", "five")
	for budget := 0; budget < 40; budget++ {
		got := pruneHistory(history, "", "", budget)
		// Result must always be a contiguous suffix of the input.
		offset := len(history) - len(got)
		for i, m := range got {
			if m.Content != history[offset+i].Content {
				t.Fatalf("budget %d: result %v is not a suffix", budget, contents(got))
			}
		}
		total := 0
		for _, m := range got {
			total += len(m.Content)
		}
		if len(got) > 0 && total >= budget {
			t.Fatalf("budget %d: included %d chars", budget, total)
		}
	}
}

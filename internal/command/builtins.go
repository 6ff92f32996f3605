package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/airi-ai/airi/internal/memory"
)

// Memories is the slice of the memory store the built-in commands use.
type Memories interface {
	Add(ctx context.Context, content string, importance float64, tags []string) (string, error)
	List(ctx context.Context, limit int) ([]memory.Fragment, error)
	Delete(ctx context.Context, id string) error
}

// UserCommandTag marks fragments stored explicitly via /remember.
const UserCommandTag = "user_command"

// Remember saves a fact to long-term memory.
type Remember struct {
	memories Memories
}

// NewRemember creates the /remember command.
func NewRemember(memories Memories) *Remember {
	return &Remember{memories: memories}
}

func (c *Remember) Name() string { return "remember" }

func (c *Remember) Description() string {
	return "Remembers certain facts.\n" +
		"Params:\n" +
		"content - what to remember\n" +
		"importance - scale from 0 to 1"
}

func (c *Remember) Schema() []Field {
	return []Field{
		{Name: "content", Kind: KindString, Required: true, Help: "The information to save."},
		{Name: "importance", Kind: KindFloat, Default: 0.5, Min: floatPtr(0), Max: floatPtr(1),
			Help: "Importance weight (0.0 to 1.0)."},
	}
}

func (c *Remember) Execute(ctx context.Context, args Args, _ uuid.UUID) (string, error) {
	content := args.String("content")
	importance := args.Float("importance")
	if _, err := c.memories.Add(ctx, content, importance, []string{UserCommandTag}); err != nil {
		return "", fmt.Errorf("saving memory: %w", err)
	}
	return fmt.Sprintf("Saved: '%s' (Imp: %g)", content, importance), nil
}

// MemoryList shows recently stored fragments.
type MemoryList struct {
	memories Memories
}

// NewMemoryList creates the /memories command.
func NewMemoryList(memories Memories) *MemoryList {
	return &MemoryList{memories: memories}
}

func (c *MemoryList) Name() string { return "memories" }

func (c *MemoryList) Description() string {
	return "Lists stored memory fragments.\n" +
		"Params:\n" +
		"limit - how many to show (default 10)"
}

func (c *MemoryList) Schema() []Field {
	return []Field{
		{Name: "limit", Kind: KindInt, Default: 10, Min: floatPtr(1), Max: floatPtr(50),
			Help: "How many fragments to list."},
	}
}

func (c *MemoryList) Execute(ctx context.Context, args Args, _ uuid.UUID) (string, error) {
	frags, err := c.memories.List(ctx, args.Int("limit"))
	if err != nil {
		return "", fmt.Errorf("listing memories: %w", err)
	}
	if len(frags) == 0 {
		return "No memories stored yet.", nil
	}

	var sb strings.Builder
	for _, f := range frags {
		fmt.Fprintf(&sb, "[%s] %s (Imp: %g)\n", f.ID, f.Content, f.Importance)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// Forget deletes a fragment by id.
type Forget struct {
	memories Memories
}

// NewForget creates the /forget command.
func NewForget(memories Memories) *Forget {
	return &Forget{memories: memories}
}

func (c *Forget) Name() string { return "forget" }

func (c *Forget) Description() string {
	return "Deletes a memory fragment.\n" +
		"Params:\n" +
		"id - the fragment id shown by /memories"
}

func (c *Forget) Schema() []Field {
	return []Field{
		{Name: "id", Kind: KindString, Required: true, Help: "The fragment id to delete."},
	}
}

func (c *Forget) Execute(ctx context.Context, args Args, _ uuid.UUID) (string, error) {
	id := args.String("id")
	if err := c.memories.Delete(ctx, id); err != nil {
		return "", fmt.Errorf("deleting memory: %w", err)
	}
	return fmt.Sprintf("Forgot memory %s", id), nil
}

// Help lists the available commands.
type Help struct {
	registry *Registry
}

// NewHelp creates the /help command. Bind it to the registry after
// construction since the registry needs the full command list first.
func NewHelp() *Help { return &Help{} }

// Bind attaches the registry Help reads from.
func (c *Help) Bind(r *Registry) { c.registry = r }

func (c *Help) Name() string { return "help" }

func (c *Help) Description() string {
	return "Lists available commands."
}

func (c *Help) Schema() []Field { return nil }

func (c *Help) Execute(_ context.Context, _ Args, _ uuid.UUID) (string, error) {
	if c.registry == nil {
		return "No commands available.", nil
	}
	var sb strings.Builder
	sb.WriteString("Available commands:\n")
	for _, cmd := range c.registry.Commands() {
		summary, _, _ := strings.Cut(cmd.Description(), "\n")
		fmt.Fprintf(&sb, "/%s - %s\n", cmd.Name(), summary)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

package command

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Registry routes slash command input to registered commands.
type Registry struct {
	commands map[string]Command
	logger   *slog.Logger
}

// NewRegistry creates a Registry over the given commands. Later commands with
// a duplicate name replace earlier ones.
func NewRegistry(logger *slog.Logger, commands ...Command) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	m := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		m[cmd.Name()] = cmd
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	logger.Debug("command registry created", "commands", names)
	return &Registry{commands: m, logger: logger}
}

// Commands returns the registered commands sorted by name.
func (r *Registry) Commands() []Command {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Command, 0, len(names))
	for _, name := range names {
		out = append(out, r.commands[name])
	}
	return out
}

// Dispatch inspects input and, when it is a slash command, runs it. The
// second return value reports whether the input was handled; when false, the
// input is ordinary conversation and the returned text is empty.
//
// Command failures of every sort (unknown name, bad arguments, execution
// errors) come back as reply text with handled=true. The error return is
// reserved for context cancellation.
func (r *Registry) Dispatch(ctx context.Context, input string, sessionID uuid.UUID) (string, bool, error) {
	if !strings.HasPrefix(input, "/") {
		return "", false, nil
	}

	name, payload, _ := strings.Cut(input, " ")
	name = strings.ToLower(strings.TrimPrefix(name, "/"))

	cmd, ok := r.commands[name]
	if !ok {
		return fmt.Sprintf("Command %s was not found", name), true, nil
	}

	args, err := parseArgs(cmd.Schema(), payload)
	if err != nil {
		return fmt.Sprintf("Arguments error: %s", err), true, nil
	}

	out, err := cmd.Execute(ctx, args, sessionID)
	if err != nil {
		if ctx.Err() != nil {
			return "", true, fmt.Errorf("command %s: %w", name, ctx.Err())
		}
		r.logger.Warn("command failed", "command", name, "error", err)
		return fmt.Sprintf("Error: %s", err), true, nil
	}
	return out, true, nil
}

// Package command implements slash commands intercepted before the
// conversation pipeline.
//
// An input starting with "/" is a command invocation: the word after the
// slash names the command, the rest is its argument payload. Commands fail
// soft: parse and execution problems become reply text, never errors that
// abort the turn.
package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/google/uuid"
)

// Kind is the value type of a command argument.
type Kind int

// Argument kinds.
const (
	KindString Kind = iota
	KindFloat
	KindInt
)

// Field describes one argument in a command's schema. The first field also
// receives the whole payload when the user types free text without key=value
// pairs.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Default  any      // string, float64 or int matching Kind; nil = zero value
	Min, Max *float64 // numeric range, nil = unbounded
	Help     string
}

// Args holds parsed, validated argument values keyed by field name.
type Args struct {
	values map[string]any
}

// String returns a string argument, or "" when absent.
func (a Args) String(name string) string {
	s, _ := a.values[name].(string)
	return s
}

// Float returns a float argument, or 0 when absent.
func (a Args) Float(name string) float64 {
	f, _ := a.values[name].(float64)
	return f
}

// Int returns an int argument, or 0 when absent.
func (a Args) Int(name string) int {
	i, _ := a.values[name].(int)
	return i
}

// Command is a single slash command.
type Command interface {
	Name() string
	Description() string
	Schema() []Field
	Execute(ctx context.Context, args Args, sessionID uuid.UUID) (string, error)
}

// parseArgs tokenizes a payload against a schema and validates it. Validation
// failures are returned as a single error whose message is the user-facing
// text, one "Error in parameter ..." line per problem.
func parseArgs(schema []Field, payload string) (Args, error) {
	payload = strings.TrimSpace(payload)

	tokens, err := shlex.Split(payload)
	if err != nil {
		// Unbalanced quotes: degrade to whitespace splitting.
		tokens = strings.Fields(payload)
	}

	raw := make(map[string]string)
	var unnamed []string
	for _, tok := range tokens {
		if key, value, ok := strings.Cut(tok, "="); ok {
			raw[key] = value
		} else {
			unnamed = append(unnamed, tok)
		}
	}

	// Free text without any key=value pairs goes whole into the first field,
	// so "/remember buy milk" just works.
	if len(unnamed) > 0 && len(raw) == 0 && len(schema) > 0 {
		raw[schema[0].Name] = payload
	}

	values := make(map[string]any, len(schema))
	var problems []string
	fail := func(field, msg string) {
		problems = append(problems, fmt.Sprintf("Error in parameter '%s': %s", field, msg))
	}

	for _, f := range schema {
		text, ok := raw[f.Name]
		if !ok {
			if f.Required {
				fail(f.Name, "is required")
				continue
			}
			values[f.Name] = defaultValue(f)
			continue
		}

		switch f.Kind {
		case KindString:
			values[f.Name] = text
		case KindFloat:
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				fail(f.Name, "must be a number")
				continue
			}
			if msg := checkRange(v, f.Min, f.Max); msg != "" {
				fail(f.Name, msg)
				continue
			}
			values[f.Name] = v
		case KindInt:
			v, err := strconv.Atoi(text)
			if err != nil {
				fail(f.Name, "must be an integer")
				continue
			}
			if msg := checkRange(float64(v), f.Min, f.Max); msg != "" {
				fail(f.Name, msg)
				continue
			}
			values[f.Name] = v
		}
	}

	if len(problems) > 0 {
		return Args{}, fmt.Errorf("%s", strings.Join(problems, "\n"))
	}
	return Args{values: values}, nil
}

func defaultValue(f Field) any {
	if f.Default != nil {
		return f.Default
	}
	switch f.Kind {
	case KindFloat:
		return float64(0)
	case KindInt:
		return 0
	default:
		return ""
	}
}

func checkRange(v float64, lo, hi *float64) string {
	if lo != nil && v < *lo {
		return fmt.Sprintf("must be at least %g", *lo)
	}
	if hi != nil && v > *hi {
		return fmt.Sprintf("must be at most %g", *hi)
	}
	return ""
}

func floatPtr(v float64) *float64 { return &v }

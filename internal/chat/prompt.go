package chat

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/airi-ai/airi/internal/memory"
	"github.com/airi-ai/airi/internal/profile"
)

// buildSystemPrompt composes the generation system instruction from persona,
// user profile and retrieved memories.
func buildSystemPrompt(p profile.Persona, u profile.UserProfile, memes []memory.Fragment) string {
	language := p.Language
	if language == "" {
		language = profile.DefaultLanguage
	}

	var sb strings.Builder
	sb.WriteString("Roleplay Instructions:\n")
	fmt.Fprintf(&sb, "You are %s. %s\n", p.Name, p.SystemInstruction)
	if len(p.Traits) > 0 {
		fmt.Fprintf(&sb, "Your personality traits (scale 0.0-1.0): %s.\n", formatTraits(p.Traits))
		sb.WriteString("Note: 0.0 means the trait is absent, 1.0 means it is extremely dominant.\n")
	}
	fmt.Fprintf(&sb, "IMPORTANT: Always respond in %s.\n\n", language)

	sb.WriteString("User Profile:\n")
	fmt.Fprintf(&sb, "Name: %s\n", u.Username)
	fmt.Fprintf(&sb, "Bio: %s\n", u.Bio)
	fmt.Fprintf(&sb, "Preferences: %s\n\n", strings.Join(u.Preferences, ", "))

	sb.WriteString("Context / Memories:\n")
	if len(memes) == 0 {
		sb.WriteString("No relevant memories.\n")
	} else {
		for _, m := range memes {
			fmt.Fprintf(&sb, "- %s\n", m.Content)
		}
	}

	fmt.Fprintf(&sb, "\nCurrent Time: %s\n", time.Now().Format("15:04"))
	sb.WriteString("Reply to the user naturally based on the history.")
	return sb.String()
}

// formatTraits renders traits deterministically, sorted by name.
func formatTraits(traits map[string]float64) string {
	names := make([]string, 0, len(traits))
	for name := range traits {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %.2f", name, traits[name]))
	}
	return strings.Join(parts, ", ")
}

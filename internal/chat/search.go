package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/airi-ai/airi/internal/llm"
	"github.com/airi-ai/airi/internal/session"
)

// augmentWithSearch runs the optional search sub-flow: rewrite the user text
// into a standalone query, search the web, and wrap the summary into a
// synthetic system message for the working history. Status chunks keep the
// consumer informed across the extra round trips.
//
// Every failure degrades to proceeding without augmentation; search is an
// enhancement, not a dependency.
func (o *Orchestrator) augmentWithSearch(ctx context.Context, stream *Stream, text string, asm assembled) (session.Message, bool) {
	stream.send(ctx, Chunk{Kind: KindStatus, Text: "Searching the web..."})

	query := o.rewriteQuery(ctx, text, asm)
	stream.send(ctx, Chunk{Kind: KindStatus, Text: fmt.Sprintf("Searching for: %s", query)})

	summary, err := o.web.Search(ctx, query)
	if err != nil {
		o.logger.Warn("web search failed, proceeding without results", "error", err)
		return session.Message{}, false
	}

	content := fmt.Sprintf(
		"Web search results for %q:\n%s\nUse them to answer the user's original message.",
		query, summary)
	return session.Message{Role: session.RoleSystem, Content: content}, true
}

// rewriteQuery turns conversational text into a search query via a
// non-streamed model call. The second-to-last history message and the user's
// preference tags disambiguate follow-up questions. Falls back to the raw
// text when the rewrite fails or comes back empty.
func (o *Orchestrator) rewriteQuery(ctx context.Context, text string, asm assembled) string {
	var sb strings.Builder
	sb.WriteString("Rewrite the user's message as a standalone web search query.\n")
	sb.WriteString("Strip conversational filler. Preserve the user's language.\n")
	if len(asm.profile.Preferences) > 0 {
		fmt.Fprintf(&sb,
			"If the phrasing is ambiguous, bias toward the user's interests: %s.\n",
			strings.Join(asm.profile.Preferences, ", "))
	}
	if prev := secondToLast(asm.history); prev != "" {
		fmt.Fprintf(&sb, "Previous message for context: %s\n", prev)
	}
	sb.WriteString("Answer with the query only.")

	rewritten, err := o.gen.Complete(ctx, llm.ChatRequest{
		System:      sb.String(),
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: text}},
		Temperature: 0,
	})
	if err != nil {
		o.logger.Warn("query rewrite failed, using raw text", "error", err)
		return text
	}

	rewritten = strings.Trim(strings.TrimSpace(rewritten), `"'`)
	if rewritten == "" {
		return text
	}
	return rewritten
}

func secondToLast(history []session.Message) string {
	if len(history) < 2 {
		return ""
	}
	return history[len(history)-2].Content
}

package chat

import "github.com/airi-ai/airi/internal/session"

// pruneHistory selects the maximal recency suffix of history that keeps the
// prompt under budget: len(system) + len(newMessage) + included history must
// stay below budget chars. The walk is newest to oldest and stops at the
// first message that would overflow, even if an older one would fit, so the
// result is always a contiguous suffix in chronological order.
func pruneHistory(history []session.Message, system, newMessage string, budget int) []session.Message {
	used := len(system) + len(newMessage)

	cut := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		n := len(history[i].Content)
		if used+n >= budget {
			break
		}
		used += n
		cut = i
	}
	return history[cut:]
}

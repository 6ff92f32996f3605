// Package session owns persistence of conversation sessions and their messages.
//
// A session is split into two shapes: Summary (metadata only, used by list
// views) and Session (summary plus a bounded chronological window of recent
// messages). Messages are immutable once written; they disappear only through
// a session cascade delete or DeleteLastMessage during regeneration.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

// Valid message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Status is the lifecycle state of a session.
type Status string

// Valid session statuses.
const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// DefaultTitle is assigned to newly created sessions.
const DefaultTitle = "New Conversation"

// Message is a single conversation turn entry.
type Message struct {
	ID         uuid.UUID
	SessionID  uuid.UUID
	Role       Role
	Content    string
	MemoryRefs []string // ids of memory fragments referenced while generating
	TokenCount *int     // nil when the provider did not report usage
	CreatedAt  time.Time
}

// NewMessage mints a message with a fresh id and UTC timestamp.
func NewMessage(sessionID uuid.UUID, role Role, content string) Message {
	return Message{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// Summary is the lightweight, message-free projection of a session used by
// listings. Its size is O(1) regardless of conversation length.
type Summary struct {
	ID        uuid.UUID
	Title     string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session is the full aggregate: summary metadata plus the most recent
// messages in chronological order (oldest first). Hydration is bounded by the
// store's InitialLoadSize, never the entire history.
type Session struct {
	Summary
	Messages []Message
}

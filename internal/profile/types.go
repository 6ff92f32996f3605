// Package profile stores the user profile and the assistant persona.
//
// Both are singletons: one row per table, keyed by a constant TRUE primary
// key. Updates are partial, expressed as patch structs whose nil pointer
// fields mean "leave unchanged".
package profile

import (
	"errors"
	"time"
)

// Sentinel errors for profile operations.
var (
	// ErrProfileNotFound indicates no user profile has been saved yet.
	ErrProfileNotFound = errors.New("user profile not found")

	// ErrPersonaNotFound indicates no persona has been created yet.
	ErrPersonaNotFound = errors.New("persona not found")

	// ErrPersonaExists indicates a persona already exists and cannot be
	// created again.
	ErrPersonaExists = errors.New("persona already exists")
)

// DefaultLanguage is used when a persona is created without one.
const DefaultLanguage = "English"

// UserProfile describes the person the assistant talks to.
type UserProfile struct {
	Username    string
	Bio         string
	Preferences []string
	UpdatedAt   time.Time
}

// DefaultProfile is what the conversation pipeline falls back to when no
// profile has been saved.
func DefaultProfile() UserProfile {
	return UserProfile{Username: "User"}
}

// Persona describes the assistant's identity and speaking style.
type Persona struct {
	Name              string
	SystemInstruction string
	Traits            map[string]float64 // trait name -> weight in [0, 1]
	Language          string
	UpdatedAt         time.Time
}

// ProfilePatch is a partial update to the user profile. Nil fields are left
// unchanged.
type ProfilePatch struct {
	Username    *string
	Bio         *string
	Preferences *[]string
}

// PersonaPatch is a partial update to the persona. Nil fields are left
// unchanged.
type PersonaPatch struct {
	Name              *string
	SystemInstruction *string
	Traits            *map[string]float64
	Language          *string
}

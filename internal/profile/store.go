package profile

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Querier defines the row-level operations Store depends on. The production
// implementation is PGQuerier; tests substitute a mock.
type Querier interface {
	SelectProfile(ctx context.Context) (UserProfile, error)
	UpsertProfile(ctx context.Context, p UserProfile) error
	SelectPersona(ctx context.Context) (Persona, error)
	InsertPersona(ctx context.Context, p Persona) error
	UpdatePersonaRow(ctx context.Context, p Persona) (int64, error)
}

// Store manages the singleton user profile and persona.
type Store struct {
	querier Querier
	logger  *slog.Logger
}

// New creates a Store.
func New(querier Querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{querier: querier, logger: logger}
}

// GetProfile returns the saved user profile, or ErrProfileNotFound if none
// has been written yet. Callers decide whether absence is fatal; the
// conversation pipeline substitutes DefaultProfile.
func (s *Store) GetProfile(ctx context.Context) (UserProfile, error) {
	p, err := s.querier.SelectProfile(ctx)
	if err != nil {
		return UserProfile{}, fmt.Errorf("getting profile: %w", err)
	}
	return p, nil
}

// UpdateProfile applies a partial update. When no profile exists yet, the
// patch is applied on top of DefaultProfile, so the first update also creates
// the row.
func (s *Store) UpdateProfile(ctx context.Context, patch ProfilePatch) (UserProfile, error) {
	current, err := s.querier.SelectProfile(ctx)
	if err != nil {
		if !isNotFound(err) {
			return UserProfile{}, fmt.Errorf("loading profile for update: %w", err)
		}
		current = DefaultProfile()
	}

	if patch.Username != nil {
		current.Username = *patch.Username
	}
	if patch.Bio != nil {
		current.Bio = *patch.Bio
	}
	if patch.Preferences != nil {
		current.Preferences = *patch.Preferences
	}
	current.UpdatedAt = time.Now().UTC()

	if err := s.querier.UpsertProfile(ctx, current); err != nil {
		return UserProfile{}, fmt.Errorf("saving profile: %w", err)
	}
	s.logger.Debug("updated profile", "username", current.Username)
	return current, nil
}

// GetPersona returns the persona, or ErrPersonaNotFound.
func (s *Store) GetPersona(ctx context.Context) (Persona, error) {
	p, err := s.querier.SelectPersona(ctx)
	if err != nil {
		return Persona{}, fmt.Errorf("getting persona: %w", err)
	}
	return p, nil
}

// CreatePersona writes the persona. Only one may exist; a second create
// returns ErrPersonaExists.
func (s *Store) CreatePersona(ctx context.Context, p Persona) (Persona, error) {
	if _, err := s.querier.SelectPersona(ctx); err == nil {
		return Persona{}, ErrPersonaExists
	} else if !isNotFound(err) {
		return Persona{}, fmt.Errorf("checking existing persona: %w", err)
	}

	if p.Language == "" {
		p.Language = DefaultLanguage
	}
	p.UpdatedAt = time.Now().UTC()

	if err := s.querier.InsertPersona(ctx, p); err != nil {
		return Persona{}, fmt.Errorf("creating persona: %w", err)
	}
	s.logger.Debug("created persona", "name", p.Name)
	return p, nil
}

// UpdatePersona applies a partial update to the existing persona. Returns
// ErrPersonaNotFound when none exists.
func (s *Store) UpdatePersona(ctx context.Context, patch PersonaPatch) (Persona, error) {
	current, err := s.querier.SelectPersona(ctx)
	if err != nil {
		return Persona{}, fmt.Errorf("loading persona for update: %w", err)
	}

	if patch.Name != nil {
		current.Name = *patch.Name
	}
	if patch.SystemInstruction != nil {
		current.SystemInstruction = *patch.SystemInstruction
	}
	if patch.Traits != nil {
		current.Traits = *patch.Traits
	}
	if patch.Language != nil {
		current.Language = *patch.Language
	}
	current.UpdatedAt = time.Now().UTC()

	affected, err := s.querier.UpdatePersonaRow(ctx, current)
	if err != nil {
		return Persona{}, fmt.Errorf("saving persona: %w", err)
	}
	if affected == 0 {
		return Persona{}, ErrPersonaNotFound
	}
	s.logger.Debug("updated persona", "name", current.Name)
	return current, nil
}

package profile

import (
	"context"
	"errors"
	"testing"
)

type mockQuerier struct {
	selectProfileFn    func(ctx context.Context) (UserProfile, error)
	upsertProfileFn    func(ctx context.Context, p UserProfile) error
	selectPersonaFn    func(ctx context.Context) (Persona, error)
	insertPersonaFn    func(ctx context.Context, p Persona) error
	updatePersonaRowFn func(ctx context.Context, p Persona) (int64, error)
}

func (m *mockQuerier) SelectProfile(ctx context.Context) (UserProfile, error) {
	if m.selectProfileFn != nil {
		return m.selectProfileFn(ctx)
	}
	return UserProfile{}, ErrProfileNotFound
}

func (m *mockQuerier) UpsertProfile(ctx context.Context, p UserProfile) error {
	if m.upsertProfileFn != nil {
		return m.upsertProfileFn(ctx, p)
	}
	return nil
}

func (m *mockQuerier) SelectPersona(ctx context.Context) (Persona, error) {
	if m.selectPersonaFn != nil {
		return m.selectPersonaFn(ctx)
	}
	return Persona{}, ErrPersonaNotFound
}

func (m *mockQuerier) InsertPersona(ctx context.Context, p Persona) error {
	if m.insertPersonaFn != nil {
		return m.insertPersonaFn(ctx, p)
	}
	return nil
}

func (m *mockQuerier) UpdatePersonaRow(ctx context.Context, p Persona) (int64, error) {
	if m.updatePersonaRowFn != nil {
		return m.updatePersonaRowFn(ctx, p)
	}
	return 1, nil
}

func strPtr(s string) *string { return &s }

func TestUpdateProfile(t *testing.T) {
	t.Run("nil fields unchanged", func(t *testing.T) {
		existing := UserProfile{Username: "Koyomi", Bio: "college student", Preferences: []string{"books"}}
		var saved UserProfile
		q := &mockQuerier{
			selectProfileFn: func(context.Context) (UserProfile, error) { return existing, nil },
			upsertProfileFn: func(_ context.Context, p UserProfile) error {
				saved = p
				return nil
			},
		}
		store := New(q, nil)

		got, err := store.UpdateProfile(context.Background(), ProfilePatch{Bio: strPtr("graduate")})
		if err != nil {
			t.Fatalf("UpdateProfile() error = %v", err)
		}
		if got.Username != "Koyomi" {
			t.Errorf("Username = %q, want unchanged %q", got.Username, "Koyomi")
		}
		if got.Bio != "graduate" {
			t.Errorf("Bio = %q, want %q", got.Bio, "graduate")
		}
		if len(saved.Preferences) != 1 || saved.Preferences[0] != "books" {
			t.Errorf("Preferences = %v, want unchanged [books]", saved.Preferences)
		}
		if saved.UpdatedAt.IsZero() {
			t.Error("UpdatedAt should be set")
		}
	})

	t.Run("first update creates from defaults", func(t *testing.T) {
		var saved UserProfile
		q := &mockQuerier{upsertProfileFn: func(_ context.Context, p UserProfile) error {
			saved = p
			return nil
		}}
		store := New(q, nil)

		got, err := store.UpdateProfile(context.Background(), ProfilePatch{Bio: strPtr("hello")})
		if err != nil {
			t.Fatalf("UpdateProfile() error = %v", err)
		}
		if got.Username != "User" {
			t.Errorf("Username = %q, want default %q", got.Username, "User")
		}
		if saved.Bio != "hello" {
			t.Errorf("saved Bio = %q, want %q", saved.Bio, "hello")
		}
	})

	t.Run("propagates load error", func(t *testing.T) {
		boom := errors.New("connection refused")
		q := &mockQuerier{selectProfileFn: func(context.Context) (UserProfile, error) {
			return UserProfile{}, boom
		}}
		store := New(q, nil)
		if _, err := store.UpdateProfile(context.Background(), ProfilePatch{}); !errors.Is(err, boom) {
			t.Errorf("error = %v, want %v", err, boom)
		}
	})
}

func TestCreatePersona(t *testing.T) {
	t.Run("duplicate create rejected", func(t *testing.T) {
		q := &mockQuerier{selectPersonaFn: func(context.Context) (Persona, error) {
			return Persona{Name: "Airi"}, nil
		}}
		store := New(q, nil)
		if _, err := store.CreatePersona(context.Background(), Persona{Name: "Second"}); !errors.Is(err, ErrPersonaExists) {
			t.Errorf("error = %v, want ErrPersonaExists", err)
		}
	})

	t.Run("defaults language", func(t *testing.T) {
		var saved Persona
		q := &mockQuerier{insertPersonaFn: func(_ context.Context, p Persona) error {
			saved = p
			return nil
		}}
		store := New(q, nil)

		got, err := store.CreatePersona(context.Background(), Persona{Name: "Airi"})
		if err != nil {
			t.Fatalf("CreatePersona() error = %v", err)
		}
		if got.Language != DefaultLanguage {
			t.Errorf("Language = %q, want %q", got.Language, DefaultLanguage)
		}
		if saved.Name != "Airi" {
			t.Errorf("saved Name = %q", saved.Name)
		}
	})
}

func TestUpdatePersona(t *testing.T) {
	t.Run("patch merges over existing", func(t *testing.T) {
		existing := Persona{
			Name:              "Airi",
			SystemInstruction: "Be helpful.",
			Traits:            map[string]float64{"curiosity": 0.9},
			Language:          "English",
		}
		var saved Persona
		q := &mockQuerier{
			selectPersonaFn: func(context.Context) (Persona, error) { return existing, nil },
			updatePersonaRowFn: func(_ context.Context, p Persona) (int64, error) {
				saved = p
				return 1, nil
			},
		}
		store := New(q, nil)

		newTraits := map[string]float64{"curiosity": 0.9, "sarcasm": 0.3}
		got, err := store.UpdatePersona(context.Background(), PersonaPatch{Traits: &newTraits})
		if err != nil {
			t.Fatalf("UpdatePersona() error = %v", err)
		}
		if got.Name != "Airi" || got.SystemInstruction != "Be helpful." {
			t.Errorf("unchanged fields mutated: %+v", got)
		}
		if len(saved.Traits) != 2 {
			t.Errorf("Traits = %v, want 2 entries", saved.Traits)
		}
	})

	t.Run("missing persona", func(t *testing.T) {
		q := &mockQuerier{}
		store := New(q, nil)
		if _, err := store.UpdatePersona(context.Background(), PersonaPatch{Name: strPtr("X")}); !errors.Is(err, ErrPersonaNotFound) {
			t.Errorf("error = %v, want ErrPersonaNotFound", err)
		}
	})

	t.Run("zero rows affected maps to ErrPersonaNotFound", func(t *testing.T) {
		q := &mockQuerier{
			selectPersonaFn:    func(context.Context) (Persona, error) { return Persona{Name: "Airi"}, nil },
			updatePersonaRowFn: func(context.Context, Persona) (int64, error) { return 0, nil },
		}
		store := New(q, nil)
		if _, err := store.UpdatePersona(context.Background(), PersonaPatch{Name: strPtr("X")}); !errors.Is(err, ErrPersonaNotFound) {
			t.Errorf("error = %v, want ErrPersonaNotFound", err)
		}
	})
}

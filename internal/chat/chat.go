// Package chat orchestrates a conversation turn: command interception,
// concurrent context assembly, pruning, optional search augmentation,
// streaming generation and persistence.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/airi-ai/airi/internal/llm"
	"github.com/airi-ai/airi/internal/memory"
	"github.com/airi-ai/airi/internal/profile"
	"github.com/airi-ai/airi/internal/session"
)

// ChunkKind distinguishes generated text from pipeline telemetry.
type ChunkKind int

// Chunk kinds.
const (
	KindContent ChunkKind = iota // model output
	KindStatus                   // progress notices (search sub-flow)
	KindError                    // in-stream diagnostics
)

// Chunk is one unit of streamed turn output.
type Chunk struct {
	Kind ChunkKind
	Text string
}

// Stream delivers a turn's output incrementally. The channel is closed when
// the turn completes; cancel the context to abandon a stream early.
type Stream struct {
	ch chan Chunk
}

// Chunks returns the receive side of the stream.
func (s *Stream) Chunks() <-chan Chunk { return s.ch }

// Sessions is the slice of the session store the orchestrator uses.
type Sessions interface {
	AddMessage(ctx context.Context, m session.Message) error
	GetLastMessages(ctx context.Context, id uuid.UUID, limit int) ([]session.Message, error)
	DeleteLastMessage(ctx context.Context, id uuid.UUID) error
}

// Profiles reads the user profile and persona.
type Profiles interface {
	GetProfile(ctx context.Context) (profile.UserProfile, error)
	GetPersona(ctx context.Context) (profile.Persona, error)
}

// MemorySearcher retrieves relevant long-term memory fragments.
type MemorySearcher interface {
	Search(ctx context.Context, query string, topK int, threshold float64) ([]memory.Fragment, error)
}

// Generator is the language model surface the orchestrator needs.
type Generator interface {
	StreamChat(ctx context.Context, req llm.ChatRequest, fn llm.ChunkFunc) (*llm.Usage, error)
	Complete(ctx context.Context, req llm.ChatRequest) (string, error)
}

// WebSearcher runs an external search and returns a text summary.
type WebSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Dispatcher intercepts slash commands before the pipeline runs.
type Dispatcher interface {
	Dispatch(ctx context.Context, input string, sessionID uuid.UUID) (string, bool, error)
}

// Config carries the turn-shaping knobs.
type Config struct {
	HistoryDepth   int     // messages fetched as pruning candidates
	MemoryTopK     int     // memory fragments retrieved per turn
	ScoreThreshold float64 // minimum similarity for retrieved fragments
	CharBudget     int     // prompt character budget for pruning
	Temperature    float64
	MaxTokens      int
}

// Options select per-turn behavior.
type Options struct {
	UseSearch bool
}

// Orchestrator drives conversation turns.
type Orchestrator struct {
	sessions Sessions
	profiles Profiles
	memories MemorySearcher
	gen      Generator
	web      WebSearcher
	commands Dispatcher
	cfg      Config
	logger   *slog.Logger
}

// New creates an Orchestrator.
func New(sessions Sessions, profiles Profiles, memories MemorySearcher,
	gen Generator, web WebSearcher, commands Dispatcher,
	cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		sessions: sessions,
		profiles: profiles,
		memories: memories,
		gen:      gen,
		web:      web,
		commands: commands,
		cfg:      cfg,
		logger:   logger.With("component", "chat"),
	}
}

// assembled is the joined result of the concurrent context fetch.
type assembled struct {
	profile profile.UserProfile
	persona profile.Persona
	memes   []memory.Fragment
	history []session.Message
}

// Process runs one conversation turn and returns its output stream. The
// returned error covers the synchronous phase only (command dispatch,
// context assembly, user-message persistence); generation-phase failures are
// reported in-stream as a diagnostic chunk.
func (o *Orchestrator) Process(ctx context.Context, sessionID uuid.UUID, text string, opts Options) (*Stream, error) {
	return o.process(ctx, sessionID, text, opts.UseSearch, false)
}

func (o *Orchestrator) process(ctx context.Context, sessionID uuid.UUID, text string, useSearch, replay bool) (*Stream, error) {
	if reply, handled, err := o.commands.Dispatch(ctx, text, sessionID); err != nil {
		return nil, fmt.Errorf("dispatching command: %w", err)
	} else if handled {
		return singleChunk(KindContent, reply), nil
	}

	asm, err := o.assemble(ctx, sessionID, text)
	if err != nil {
		return nil, err
	}

	// On a regeneration replay the user message is already persisted, so the
	// history fetch returns it as the newest entry. Drop it here; the prompt
	// gets exactly one copy via the explicit append below.
	if replay {
		asm.history = dropReplayedInput(asm.history, text)
	}

	system := buildSystemPrompt(asm.persona, asm.profile, asm.memes)
	history := pruneHistory(asm.history, system, text, o.cfg.CharBudget)

	// The user message goes in before generation starts; a regeneration
	// replay already has it persisted.
	userMsg := session.NewMessage(sessionID, session.RoleUser, text)
	if !replay {
		if err := o.sessions.AddMessage(ctx, userMsg); err != nil {
			return nil, fmt.Errorf("persisting user message: %w", err)
		}
	}

	stream := &Stream{ch: make(chan Chunk, 32)}
	go o.generate(ctx, stream, sessionID, text, system, history, asm, useSearch)
	return stream, nil
}

// assemble fans out the four independent context fetches and joins them. Any
// failure aborts the turn, except a missing user profile which falls back to
// the default.
func (o *Orchestrator) assemble(ctx context.Context, sessionID uuid.UUID, text string) (assembled, error) {
	var asm assembled

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := o.profiles.GetProfile(gctx)
		if err != nil {
			if errors.Is(err, profile.ErrProfileNotFound) {
				asm.profile = profile.DefaultProfile()
				return nil
			}
			return fmt.Errorf("fetching profile: %w", err)
		}
		asm.profile = p
		return nil
	})
	g.Go(func() error {
		p, err := o.profiles.GetPersona(gctx)
		if err != nil {
			return fmt.Errorf("fetching persona: %w", err)
		}
		asm.persona = p
		return nil
	})
	g.Go(func() error {
		frags, err := o.memories.Search(gctx, text, o.cfg.MemoryTopK, o.cfg.ScoreThreshold)
		if err != nil {
			return fmt.Errorf("searching memories: %w", err)
		}
		asm.memes = frags
		return nil
	})
	g.Go(func() error {
		history, err := o.sessions.GetLastMessages(gctx, sessionID, o.cfg.HistoryDepth)
		if err != nil {
			return fmt.Errorf("fetching history: %w", err)
		}
		asm.history = history
		return nil
	})

	if err := g.Wait(); err != nil {
		return assembled{}, err
	}
	return asm, nil
}

// generate runs the asynchronous tail of the turn: optional search
// augmentation, streaming generation, assistant persistence. It owns the
// stream channel and always closes it.
func (o *Orchestrator) generate(ctx context.Context, stream *Stream, sessionID uuid.UUID,
	text, system string, history []session.Message, asm assembled, useSearch bool) {
	defer close(stream.ch)

	working := history
	if useSearch {
		if injected, ok := o.augmentWithSearch(ctx, stream, text, asm); ok {
			working = append(working, injected)
		}
	}

	messages := make([]llm.Message, 0, len(working)+1)
	for _, m := range working {
		messages = append(messages, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: text})

	var full []byte
	usage, err := o.gen.StreamChat(ctx, llm.ChatRequest{
		System:      system,
		Messages:    messages,
		Temperature: o.cfg.Temperature,
		MaxTokens:   o.cfg.MaxTokens,
	}, func(chunk string) {
		full = append(full, chunk...)
		stream.send(ctx, Chunk{Kind: KindContent, Text: chunk})
	})
	if err != nil {
		o.logger.Error("generation failed", "session_id", sessionID, "error", err)
		stream.send(ctx, Chunk{Kind: KindError, Text: diagnostic(err)})
		return
	}
	if ctx.Err() != nil || len(full) == 0 {
		return
	}

	asstMsg := session.NewMessage(sessionID, session.RoleAssistant, string(full))
	for _, f := range asm.memes {
		asstMsg.MemoryRefs = append(asstMsg.MemoryRefs, f.ID)
	}
	if usage != nil {
		tokens := usage.CompletionTokens
		asstMsg.TokenCount = &tokens
	}
	if err := o.sessions.AddMessage(ctx, asstMsg); err != nil {
		o.logger.Error("persisting assistant message failed", "session_id", sessionID, "error", err)
		stream.send(ctx, Chunk{Kind: KindError, Text: "[System Error: the reply could not be saved]"})
	}
}

// Regenerate retries the most recent exchange of a session.
func (o *Orchestrator) Regenerate(ctx context.Context, sessionID uuid.UUID, opts Options) (*Stream, error) {
	last, err := o.sessions.GetLastMessages(ctx, sessionID, 1)
	if err != nil {
		return nil, fmt.Errorf("fetching last message: %w", err)
	}
	if len(last) == 0 {
		return singleChunk(KindContent, "There is nothing to regenerate yet."), nil
	}

	switch last[0].Role {
	case session.RoleAssistant:
		if err := o.sessions.DeleteLastMessage(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("removing previous reply: %w", err)
		}
		prior, err := o.sessions.GetLastMessages(ctx, sessionID, 1)
		if err != nil {
			return nil, fmt.Errorf("fetching original message: %w", err)
		}
		if len(prior) == 0 || prior[0].Role != session.RoleUser {
			return singleChunk(KindContent, "I can't find your original message to retry."), nil
		}
		return o.process(ctx, sessionID, prior[0].Content, opts.UseSearch, true)
	case session.RoleUser:
		return o.process(ctx, sessionID, last[0].Content, opts.UseSearch, true)
	default:
		return singleChunk(KindContent, "I can't regenerate system messages."), nil
	}
}

// dropReplayedInput removes the trailing user message when it matches the
// replayed input text.
func dropReplayedInput(history []session.Message, text string) []session.Message {
	if n := len(history); n > 0 && history[n-1].Role == session.RoleUser && history[n-1].Content == text {
		return history[:n-1]
	}
	return history
}

// send delivers a chunk unless the consumer has gone away.
func (s *Stream) send(ctx context.Context, c Chunk) {
	select {
	case s.ch <- c:
	case <-ctx.Done():
	}
}

// singleChunk returns an already-complete stream holding one chunk.
func singleChunk(kind ChunkKind, text string) *Stream {
	s := &Stream{ch: make(chan Chunk, 1)}
	s.ch <- Chunk{Kind: kind, Text: text}
	close(s.ch)
	return s
}

// diagnostic renders a provider failure as an in-stream error chunk.
func diagnostic(err error) string {
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("[System Error: %s]", apiErr.Reason())
	}
	return fmt.Sprintf("[System Error: %s]", err)
}

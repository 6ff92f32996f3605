package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/airi-ai/airi/internal/app"
	"github.com/airi-ai/airi/internal/chat"
)

var (
	chatSessionID string
	chatUseSearch bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE:  runChat,
}

func init() {
	for _, cmd := range []*cobra.Command{chatCmd, rootCmd} {
		cmd.Flags().StringVar(&chatSessionID, "session", "", "resume an existing session by id")
		cmd.Flags().BoolVar(&chatUseSearch, "search", false, "augment every turn with web search")
	}
	rootCmd.AddCommand(chatCmd)
}

func runChat(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, a *app.App) error {
		sessionID, err := resolveSession(ctx, a)
		if err != nil {
			return err
		}
		fmt.Printf("Session %s. Type /help for commands, /regenerate to retry, exit to quit.\n\n", sessionID)

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("you> ")
			if !scanner.Scan() {
				break
			}
			input := strings.TrimSpace(scanner.Text())
			if input == "" {
				continue
			}
			if input == "exit" || input == "quit" {
				break
			}

			var stream *chat.Stream
			opts := chat.Options{UseSearch: chatUseSearch}
			if input == "/regenerate" {
				stream, err = a.Chat.Regenerate(ctx, sessionID, opts)
			} else {
				stream, err = a.Chat.Process(ctx, sessionID, input, opts)
			}
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			render(stream)
		}
		return scanner.Err()
	})
}

// render prints a turn's stream, keeping status lines apart from content.
func render(stream *chat.Stream) {
	inContent := false
	for c := range stream.Chunks() {
		switch c.Kind {
		case chat.KindStatus:
			fmt.Printf("... %s\n", c.Text)
		case chat.KindError:
			if inContent {
				fmt.Println()
			}
			fmt.Println(c.Text)
			inContent = false
		default:
			if !inContent {
				fmt.Print("airi> ")
				inContent = true
			}
			fmt.Print(c.Text)
		}
	}
	if inContent {
		fmt.Println()
	}
	fmt.Println()
}

// resolveSession resumes the flagged session or creates a fresh one.
func resolveSession(ctx context.Context, a *app.App) (uuid.UUID, error) {
	if chatSessionID != "" {
		id, err := uuid.Parse(chatSessionID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid session id %q: %w", chatSessionID, err)
		}
		if _, err := a.Sessions.GetSession(ctx, id); err != nil {
			return uuid.Nil, err
		}
		return id, nil
	}

	summary, err := a.Sessions.CreateSession(ctx, "")
	if err != nil {
		return uuid.Nil, err
	}
	return summary.ID, nil
}

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/airi-ai/airi/internal/app"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage chat sessions",
}

func init() {
	sessionsCmd.AddCommand(
		newSessionsListCmd(),
		newSessionsShowCmd(),
		newSessionsRenameCmd(),
		newSessionsDeleteCmd(),
	)
	rootCmd.AddCommand(sessionsCmd)
}

func newSessionsListCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, most recently active first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				summaries, err := a.Sessions.ListSessions(ctx, limit, offset)
				if err != nil {
					return err
				}
				if len(summaries) == 0 {
					fmt.Println("No sessions yet.")
					return nil
				}
				for _, s := range summaries {
					fmt.Printf("%s  %-30s  %-8s  %s\n",
						s.ID, s.Title, s.Status, formatTime(s.UpdatedAt))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum sessions to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "offset into the listing")
	return cmd
}

func newSessionsShowCmd() *cobra.Command {
	var limit int
	var before string
	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid session id %q: %w", args[0], err)
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				var cursor time.Time
				if before != "" {
					cursor, err = time.Parse(time.RFC3339, before)
					if err != nil {
						return fmt.Errorf("invalid --before timestamp: %w", err)
					}
				}

				sess, err := a.Sessions.GetSession(ctx, id)
				if err != nil {
					return err
				}
				fmt.Printf("Session: %s\nTitle: %s\nStatus: %s\nCreated: %s\n\n",
					sess.ID, sess.Title, sess.Status, formatTime(sess.CreatedAt))

				messages := sess.Messages
				if before != "" || limit != 0 {
					messages, err = a.Sessions.GetHistory(ctx, id, limit, cursor)
					if err != nil {
						return err
					}
				}
				for _, m := range messages {
					fmt.Printf("[%s] %s: %s\n", formatTime(m.CreatedAt), m.Role, m.Content)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "page size when paging with --before")
	cmd.Flags().StringVar(&before, "before", "", "show messages older than this RFC3339 timestamp")
	return cmd
}

func newSessionsRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <session-id> <title>",
		Short: "Rename a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid session id %q: %w", args[0], err)
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				sess, err := a.Sessions.GetSession(ctx, id)
				if err != nil {
					return err
				}
				summary := sess.Summary
				summary.Title = args[1]
				summary.UpdatedAt = time.Now().UTC()
				if err := a.Sessions.UpdateSession(ctx, summary); err != nil {
					return err
				}
				fmt.Printf("Renamed %s to %q\n", id, args[1])
				return nil
			})
		},
	}
}

func newSessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session and all its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid session id %q: %w", args[0], err)
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				if err := a.Sessions.DeleteSession(ctx, id); err != nil {
					return err
				}
				fmt.Printf("Deleted session %s\n", id)
				return nil
			})
		},
	}
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

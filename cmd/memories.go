package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/airi-ai/airi/internal/app"
	"github.com/airi-ai/airi/internal/command"
)

var memoriesCmd = &cobra.Command{
	Use:   "memories",
	Short: "Manage long-term memory fragments",
}

func init() {
	memoriesCmd.AddCommand(
		newMemoriesListCmd(),
		newMemoriesAddCmd(),
		newMemoriesForgetCmd(),
	)
	rootCmd.AddCommand(memoriesCmd)
}

func newMemoriesListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored memories, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				frags, err := a.Memories.List(ctx, limit)
				if err != nil {
					return err
				}
				if len(frags) == 0 {
					fmt.Println("No memories stored yet.")
					return nil
				}
				for _, f := range frags {
					tags := ""
					if len(f.Tags) > 0 {
						tags = " #" + strings.Join(f.Tags, " #")
					}
					fmt.Printf("%s  (%.1f)  %s%s\n", f.ID, f.Importance, f.Content, tags)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum fragments to list")
	return cmd
}

func newMemoriesAddCmd() *cobra.Command {
	var importance float64
	cmd := &cobra.Command{
		Use:   "add <content>",
		Short: "Store a memory fragment",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				content := strings.Join(args, " ")
				id, err := a.Memories.Add(ctx, content, importance, []string{command.UserCommandTag})
				if err != nil {
					return err
				}
				fmt.Printf("Stored %s\n", id)
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&importance, "importance", 0.5, "importance weight in [0, 1]")
	return cmd
}

func newMemoriesForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <id>",
		Short: "Delete a memory fragment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				if err := a.Memories.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("Forgot %s\n", args[0])
				return nil
			})
		},
	}
}

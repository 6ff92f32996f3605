package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/airi-ai/airi/internal/app"
	"github.com/airi-ai/airi/internal/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect and update your user profile",
}

func init() {
	profileCmd.AddCommand(newProfileShowCmd(), newProfileSetCmd())
	rootCmd.AddCommand(profileCmd)
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the stored profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				p, err := a.Profiles.GetProfile(ctx)
				if err != nil {
					if errors.Is(err, profile.ErrProfileNotFound) {
						fmt.Println("No profile saved yet. Use 'airi profile set' to create one.")
						return nil
					}
					return err
				}
				fmt.Printf("Name: %s\nBio: %s\nPreferences: %s\n",
					p.Username, p.Bio, strings.Join(p.Preferences, ", "))
				return nil
			})
		},
	}
}

func newProfileSetCmd() *cobra.Command {
	var (
		name        string
		bio         string
		preferences []string
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update profile fields; unset flags are left unchanged",
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := profile.ProfilePatch{}
			if cmd.Flags().Changed("name") {
				patch.Username = &name
			}
			if cmd.Flags().Changed("bio") {
				patch.Bio = &bio
			}
			if cmd.Flags().Changed("preference") {
				patch.Preferences = &preferences
			}

			return withApp(func(ctx context.Context, a *app.App) error {
				p, err := a.Profiles.UpdateProfile(ctx, patch)
				if err != nil {
					return err
				}
				fmt.Printf("Profile updated: %s\n", p.Username)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "your name")
	cmd.Flags().StringVar(&bio, "bio", "", "a short bio")
	cmd.Flags().StringArrayVar(&preferences, "preference", nil, "a preference tag, repeatable (replaces all)")
	return cmd
}

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/airi-ai/airi/internal/app"
	"github.com/airi-ai/airi/internal/profile"
)

var personaCmd = &cobra.Command{
	Use:   "persona",
	Short: "Inspect and adjust the assistant persona",
}

func init() {
	personaCmd.AddCommand(newPersonaShowCmd(), newPersonaSetCmd())
	rootCmd.AddCommand(personaCmd)
}

func newPersonaShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current persona",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				p, err := a.Profiles.GetPersona(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Name: %s\nLanguage: %s\nInstruction: %s\n", p.Name, p.Language, p.SystemInstruction)
				if len(p.Traits) > 0 {
					fmt.Println("Traits:")
					for name, weight := range p.Traits {
						fmt.Printf("  %s: %.2f\n", name, weight)
					}
				}
				return nil
			})
		},
	}
}

func newPersonaSetCmd() *cobra.Command {
	var (
		name        string
		instruction string
		language    string
		traits      []string
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update persona fields; unset flags are left unchanged",
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := profile.PersonaPatch{}
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("instruction") {
				patch.SystemInstruction = &instruction
			}
			if cmd.Flags().Changed("language") {
				patch.Language = &language
			}
			if len(traits) > 0 {
				parsed, err := parseTraits(traits)
				if err != nil {
					return err
				}
				patch.Traits = &parsed
			}

			return withApp(func(ctx context.Context, a *app.App) error {
				p, err := a.Profiles.UpdatePersona(ctx, patch)
				if err != nil {
					return err
				}
				fmt.Printf("Persona updated: %s\n", p.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "persona name")
	cmd.Flags().StringVar(&instruction, "instruction", "", "system instruction")
	cmd.Flags().StringVar(&language, "language", "", "reply language")
	cmd.Flags().StringArrayVar(&traits, "trait", nil, "trait as name=weight, repeatable (replaces all traits)")
	return cmd
}

func parseTraits(pairs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid trait %q, expected name=weight", pair)
		}
		weight, err := strconv.ParseFloat(raw, 64)
		if err != nil || weight < 0 || weight > 1 {
			return nil, fmt.Errorf("invalid trait weight %q, expected a number in [0, 1]", raw)
		}
		out[name] = weight
	}
	return out, nil
}

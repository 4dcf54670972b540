package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipkeeper/internal/profile"
)

func newProfileCommand(ctx *commandContext) *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the respondent profile attached to new clips",
	}

	profileCmd.AddCommand(newProfileShowCommand(ctx))
	profileCmd.AddCommand(newProfileSetCommand(ctx))
	profileCmd.AddCommand(newProfileResetCommand(ctx))

	return profileCmd
}

func newProfileShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the saved profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(cmd.Context(), func(device *deviceStores) error {
				p, ok, err := device.profiles.Load(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					if !ok {
						return writeJSON(cmd, nil)
					}
					return writeJSON(cmd, p)
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "No profile saved; run `clipkeeper profile set`")
					return nil
				}
				printTable(cmd.OutOrStdout(), []column{{header: "Field"}, {header: "Value"}}, [][]string{
					{"Name", p.Name},
					{"Age", p.Age},
					{"Gender", string(p.Gender)},
				})
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newProfileSetCommand(ctx *commandContext) *cobra.Command {
	var name, age, gender string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Save the respondent profile",
		Long:  "Save the respondent profile. Omitted flags keep their saved values.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(cmd.Context(), func(device *deviceStores) error {
				current, _, err := device.profiles.Load(cmd.Context())
				if err != nil {
					return err
				}
				next, err := mergeProfile(current, name, age, gender)
				if err != nil {
					return err
				}
				if err := device.profiles.Save(cmd.Context(), next); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved profile for %s\n", next.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Respondent name")
	cmd.Flags().StringVar(&age, "age", "", "Respondent age in years")
	cmd.Flags().StringVar(&gender, "gender", "", "Respondent gender (male or female)")
	return cmd
}

// mergeProfile overlays non-empty flag values onto the saved profile.
func mergeProfile(current profile.Profile, name, age, gender string) (profile.Profile, error) {
	next := current
	if v := strings.TrimSpace(name); v != "" {
		next.Name = v
	}
	if v := strings.TrimSpace(age); v != "" {
		next.Age = v
	}
	if strings.TrimSpace(gender) != "" {
		g, err := profile.ParseGender(gender)
		if err != nil {
			return profile.Profile{}, err
		}
		next.Gender = g
	}
	if next == (profile.Profile{}) {
		return profile.Profile{}, errors.New("nothing to save: pass --name, --age, or --gender")
	}
	return next, nil
}

func newProfileResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Remove the saved profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(cmd.Context(), func(device *deviceStores) error {
				if err := device.profiles.Reset(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Profile removed")
				return nil
			})
		},
	}
}

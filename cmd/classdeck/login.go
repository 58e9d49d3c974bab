package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/classdeck/classdeck/internal/auth"
	"github.com/classdeck/classdeck/internal/config"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and enable cloud sync",
	Long: `Sign in to the sync server.

The session is written to session.json in the config directory. A running
daemon picks the change up immediately and opens a subscription; no
restart is needed. Without a session, classdeck works offline against the
local cache only.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		token, _ := cmd.Flags().GetString("token")
		name, _ := cmd.Flags().GetString("name")

		if email == "" || token == "" {
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("Email").
						Placeholder("teacher@example.org").
						Value(&email).
						Validate(func(s string) error {
							if !strings.Contains(s, "@") {
								return fmt.Errorf("not an email address")
							}
							return nil
						}),
					huh.NewInput().
						Title("Sync token").
						Description("The shared token configured on your sync server").
						EchoMode(huh.EchoModePassword).
						Value(&token),
					huh.NewInput().
						Title("Display name (optional)").
						Value(&name),
				),
			)
			if err := form.Run(); err != nil {
				return fmt.Errorf("login cancelled: %w", err)
			}
		}

		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			return fmt.Errorf("email is required")
		}

		sess := &auth.Session{
			// The email is the stable identity the remote document is
			// addressed by, so signing in again from any device reaches
			// the same document.
			UserID:      email,
			Email:       email,
			DisplayName: strings.TrimSpace(name),
			Token:       strings.TrimSpace(token),
		}
		if err := auth.Save(configDir(), sess); err != nil {
			return err
		}

		fmt.Printf("Signed in as %s\n", email)
		fmt.Printf("Sync server: %s\n", config.RemoteURL())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and pause cloud sync",
	Long: `Remove the persisted session.

Local data is untouched; the daemon keeps persisting edits to the local
cache. Signing in again resumes cloud sync with a fresh reconciliation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := auth.Clear(configDir()); err != nil {
			return err
		}
		fmt.Println("Signed out. Changes are kept locally until you sign in again.")
		return nil
	},
}

func init() {
	loginCmd.Flags().String("email", "", "Email address (skips the form)")
	loginCmd.Flags().String("token", "", "Sync token (skips the form)")
	loginCmd.Flags().String("name", "", "Display name")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

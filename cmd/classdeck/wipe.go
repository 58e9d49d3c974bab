package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/classdeck/classdeck/internal/auth"
	"github.com/classdeck/classdeck/internal/config"
	"github.com/classdeck/classdeck/internal/document"
	"github.com/classdeck/classdeck/internal/remote"
)

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Hard-reset all data on every device",
	Long: `Replace the remote document with an empty one carrying the wipe marker.

Every connected device adopts the empty state unconditionally and clears
its local cache; the usual merge and data-protection logic is bypassed.
This is the only supported way to start over. There is no undo.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")

		sess, err := auth.Load(configDir())
		if err != nil {
			return err
		}
		if sess == nil {
			return fmt.Errorf("not signed in; wipe requires an active session")
		}

		if !yes {
			confirmed := false
			err := huh.NewConfirm().
				Title(fmt.Sprintf("Erase ALL planner data for %s on every device?", sess.UserID)).
				Description("This cannot be undone.").
				Affirmative("Erase everything").
				Negative("Cancel").
				Value(&confirmed).
				Run()
			if err != nil || !confirmed {
				fmt.Println("Aborted.")
				return nil
			}
		}

		var payload map[string]any
		if err := json.Unmarshal(document.Encode(document.New()), &payload); err != nil {
			return fmt.Errorf("failed to build wipe payload: %w", err)
		}
		payload[document.EnvelopeWiped] = true
		payload[document.EnvelopeWipedAt] = remote.ServerTimestamp()
		payload[document.EnvelopeUpdatedAt] = remote.ServerTimestamp()

		store := remote.NewWSStore(config.RemoteURL(), sess.Token,
			log.New(os.Stderr, "[remote] ", log.LstdFlags))

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := store.Put(ctx, sess.UserID, payload); err != nil {
			return fmt.Errorf("failed to publish wipe: %w", err)
		}

		// Clear this device's cache too; devices without a running daemon
		// pick the wipe up the next time they subscribe.
		c, err := openCache()
		if err == nil {
			defer c.Close()
			if err := c.Clear(cacheKey); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to clear local cache: %v\n", err)
			}
		}

		fmt.Println("Wipe published. All devices will reset to an empty planner.")
		return nil
	},
}

func init() {
	wipeCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(wipeCmd)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/classdeck/classdeck/internal/auth"
	"github.com/classdeck/classdeck/internal/theme"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync state and recent activity",
	Long: `Show the current session, local cache state, and the tail of the sync
journal (the daemon's record of merges, uploads, and errors).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tail, _ := cmd.Flags().GetInt("tail")

		c, err := openCache()
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer c.Close()

		doc, err := loadCached(c)
		if err != nil {
			return err
		}
		look := theme.Derive(doc.Settings)

		fmt.Println(look.Title.Render("classdeck status"))

		sess, err := auth.Load(configDir())
		if err != nil {
			return err
		}
		if sess == nil {
			fmt.Printf("%s %s\n", look.Label.Render("Session:"),
				look.Muted.Render("signed out (local-only mode)"))
		} else {
			fmt.Printf("%s %s\n", look.Label.Render("Session:"), sess.UserID)
		}

		updated, err := c.UpdatedAt(cacheKey)
		if err != nil {
			return err
		}
		if updated.IsZero() {
			fmt.Printf("%s %s\n", look.Label.Render("Cache:"),
				look.Muted.Render("empty"))
		} else {
			fmt.Printf("%s saved %s\n", look.Label.Render("Cache:"),
				updated.Local().Format("2006-01-02 15:04:05"))
		}

		fmt.Printf("%s %d schools, %d classes, %d students, %d lesson logs, %d reminders\n",
			look.Label.Render("Data:"),
			len(doc.Schools), len(doc.Rosters), len(doc.Students),
			len(doc.LessonLogs), len(doc.Reminders))

		j := journal()
		if j == nil {
			return nil
		}
		entries, err := j.Tail(tail)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		fmt.Println()
		fmt.Println(look.Title.Render("Recent sync activity"))
		for _, e := range entries {
			line := fmt.Sprintf("%s  %-12s %s",
				e.At.Local().Format("15:04:05"), e.Event, e.Detail)
			if e.Event == "sync-error" {
				fmt.Println(look.Error.Render(line))
			} else {
				fmt.Println(look.Muted.Render(line))
			}
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().Int("tail", 10, "Number of journal entries to show")
	rootCmd.AddCommand(statusCmd)
}

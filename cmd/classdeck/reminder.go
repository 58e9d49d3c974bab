package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/classdeck/classdeck/internal/document"
	"github.com/classdeck/classdeck/internal/theme"
)

var reminderCmd = &cobra.Command{
	Use:   "reminder",
	Short: "Quick-add and list reminders",
}

var reminderAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a reminder with a natural-language due time",
	Long: `Add a reminder. The due time is parsed out of the text itself.

Examples:
  classdeck reminder add "collect permission slips tomorrow at 8am"
  classdeck reminder add "grade 7b tests on friday"
  classdeck reminder add "order lab supplies"     # no due time

The reminder is written to the local cache immediately; a running daemon
folds it into the synced document on its next reconciliation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")

		w := when.New(nil)
		w.Add(en.All...)
		w.Add(common.All...)

		title := text
		dueAt := ""
		result, err := w.Parse(text, time.Now())
		if err == nil && result != nil {
			dueAt = result.Time.UTC().Format(time.RFC3339)
			// Drop the parsed time phrase from the title.
			title = strings.TrimSpace(text[:result.Index] + text[result.Index+len(result.Text):])
			if title == "" {
				title = text
			}
		}

		c, err := openCache()
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer c.Close()

		doc, err := loadCached(c)
		if err != nil {
			return err
		}
		doc.Reminders = append(doc.Reminders, document.Reminder{
			ID:    document.NewID(),
			Title: title,
			DueAt: dueAt,
		})
		if err := c.Store(cacheKey, doc); err != nil {
			return err
		}

		if dueAt != "" {
			fmt.Printf("Added %q due %s\n", title, result.Time.Local().Format("Mon Jan 2 15:04"))
		} else {
			fmt.Printf("Added %q\n", title)
		}
		return nil
	},
}

var reminderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List open reminders",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		open := 0
		for _, r := range doc.Reminders {
			if r.IsDeleted() || r.Done {
				continue
			}
			open++
			due := ""
			if r.DueAt != "" {
				if t, err := time.Parse(time.RFC3339, r.DueAt); err == nil {
					due = look.Muted.Render("  (due " + t.Local().Format("Mon Jan 2 15:04") + ")")
				}
			}
			fmt.Printf("%s %s%s\n", look.Label.Render("•"), r.Title, due)
		}
		if open == 0 {
			fmt.Println(look.Muted.Render("No open reminders."))
		}
		return nil
	},
}

func init() {
	reminderCmd.AddCommand(reminderAddCmd)
	reminderCmd.AddCommand(reminderListCmd)
	rootCmd.AddCommand(reminderCmd)
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/classdeck/classdeck/internal/document"
	"github.com/classdeck/classdeck/internal/schedule"
	"github.com/classdeck/classdeck/internal/theme"
)

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's timetable",
	Long: `Show the lesson slots for today (or --date) from the schedule version in
effect on that date, together with any calendar events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dateFlag, _ := cmd.Flags().GetString("date")

		date := time.Now()
		if dateFlag != "" {
			parsed, err := time.ParseInLocation("2006-01-02", dateFlag, time.Local)
			if err != nil {
				return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", dateFlag)
			}
			date = parsed
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
		look := theme.Derive(doc.Settings)

		fmt.Println(look.Title.Render(date.Format("Monday, January 2")))

		rosters := make(map[string]document.Roster, len(doc.Rosters))
		for _, r := range doc.Rosters {
			rosters[r.ID] = r
		}

		entries := schedule.EntriesFor(doc, date)
		if len(entries) == 0 {
			fmt.Println(look.Muted.Render("No lessons scheduled."))
		}
		for _, e := range entries {
			name := e.RosterID
			if r, ok := rosters[e.RosterID]; ok {
				name = r.Name
				if r.Subject != "" {
					name += " · " + r.Subject
				}
			}
			room := ""
			if e.Room != "" {
				room = look.Muted.Render("  " + e.Room)
			}
			fmt.Printf("%s  %s%s\n",
				look.Label.Render(e.Start+"–"+e.End), name, room)
		}

		day := date.Format("2006-01-02")
		for _, ev := range doc.CalendarEvents {
			if ev.IsDeleted() {
				continue
			}
			if ev.Date == day || (ev.Date <= day && ev.EndDate >= day) {
				fmt.Printf("%s  %s\n", look.Label.Render("event"), ev.Title)
			}
		}
		return nil
	},
}

func init() {
	todayCmd.Flags().String("date", "", "Date to show (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(todayCmd)
}

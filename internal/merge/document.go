package merge

import "github.com/classdeck/classdeck/internal/document"

// Documents reconciles a sanitized remote document with the local one,
// applying Collections to every named collection independently.
//
// Settings and profile are not record collections; the remote copies win,
// consistent with the remote-is-authoritative-for-live-content policy.
// The inputs are not modified.
func Documents(remote, local *document.AppDocument) *document.AppDocument {
	out := remote.Clone()
	out.Schools = Collections(remote.Schools, local.Schools)
	out.Students = Collections(remote.Students, local.Students)
	out.Rosters = Collections(remote.Rosters, local.Rosters)
	out.ScheduleEntries = Collections(remote.ScheduleEntries, local.ScheduleEntries)
	out.ScheduleVersions = Collections(remote.ScheduleVersions, local.ScheduleVersions)
	out.LessonLogs = Collections(remote.LessonLogs, local.LessonLogs)
	out.CalendarEvents = Collections(remote.CalendarEvents, local.CalendarEvents)
	out.Calendars = Collections(remote.Calendars, local.Calendars)
	out.Reminders = Collections(remote.Reminders, local.Reminders)
	out.Grades = Collections(remote.Grades, local.Grades)
	out.Assessments = Collections(remote.Assessments, local.Assessments)
	out.GradingConfigs = Collections(remote.GradingConfigs, local.GradingConfigs)
	out.Normalize()
	return out
}

package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/ticket-activity/internal/domain"
)

// Entry is one identity's line in a report.
type Entry struct {
	Identity int64                 `json:"identity"`
	Name     string                `json:"name"`
	Counts   domain.ActivityCounts `json:"counts"`
}

// Report is an aggregated activity summary for one window.
type Report struct {
	Window      domain.Window `json:"window"`
	Title       string        `json:"title"`
	GeneratedAt time.Time     `json:"generated_at"`
	Entries     []Entry       `json:"entries"`
}

// Build assembles a report from window aggregates, dropping identities with
// no activity and sorting by display name.
func Build(window domain.Window, aggregates map[int64]domain.ActivityCounts, names map[int64]string, now time.Time) Report {
	entries := make([]Entry, 0, len(aggregates))
	for identity, counts := range aggregates {
		if counts.Zero() {
			continue
		}
		name := names[identity]
		if name == "" {
			name = fmt.Sprintf("Unknown User (%d)", identity)
		}
		entries = append(entries, Entry{Identity: identity, Name: name, Counts: counts})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name == entries[j].Name {
			return entries[i].Identity < entries[j].Identity
		}
		return entries[i].Name < entries[j].Name
	})

	return Report{
		Window:      window,
		Title:       Title(window, now),
		GeneratedAt: now.UTC(),
		Entries:     entries,
	}
}

// Title renders the window's report heading. The weekly heading names the
// current sub-period; the fourth one runs from day 22 to the month's last
// day, of variable length.
func Title(window domain.Window, now time.Time) string {
	now = now.UTC()
	switch window {
	case domain.WindowDaily:
		return fmt.Sprintf("Daily Report (%s)", now.Format("2006-01-02"))
	case domain.WindowWeekly:
		var period string
		switch day := now.Day(); {
		case day <= 7:
			period = "1-7"
		case day <= 14:
			period = "8-14"
		case day <= 21:
			period = "15-21"
		default:
			period = fmt.Sprintf("22-%d", LastDayOfMonth(now.Year(), now.Month()))
		}
		return fmt.Sprintf("Weekly Report (%s %s)", period, now.Format("January"))
	case domain.WindowMonthly:
		return fmt.Sprintf("Monthly Report (%s)", now.Format("January 2006"))
	}
	return string(window)
}

// BiweeklyTitle renders the heading for the bi-weekly variant, covering
// either days 1-14 or day 15 to the end of the month.
func BiweeklyTitle(now time.Time) string {
	now = now.UTC()
	period := "1-14"
	if now.Day() > 14 {
		period = fmt.Sprintf("15-%d", LastDayOfMonth(now.Year(), now.Month()))
	}
	return fmt.Sprintf("Bi-Weekly Report (%s %s)", period, now.Format("January"))
}

// LastDayOfMonth returns the number of days in the given month.
func LastDayOfMonth(year int, month time.Month) int {
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.AddDate(0, 0, -1).Day()
}

// Render formats a report as a plain-text message for the reports channel.
func Render(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", r.Title)
	if len(r.Entries) == 0 {
		b.WriteString("No activity recorded for this period.\n")
	}
	for _, entry := range r.Entries {
		fmt.Fprintf(&b, "%s (ID: %d)\n", entry.Name, entry.Identity)
		fmt.Fprintf(&b, "  Tickets Addressed: %d\n", entry.Counts.Addressed)
		fmt.Fprintf(&b, "  Tickets Closed: %d\n", entry.Counts.Closed)
		fmt.Fprintf(&b, "  Tickets Deleted: %d\n", entry.Counts.Deleted)
	}
	fmt.Fprintf(&b, "Generated at %s UTC", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	return b.String()
}

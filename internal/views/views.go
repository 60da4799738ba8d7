// Package views derives display models from a post list. Every function here
// is pure: same input, same output, no network, no shared state.
package views

import (
	"strings"
	"time"

	"xcreator/pkg/domain"
)

// StatusCounts is the dashboard's per-status tally.
type StatusCounts struct {
	Published int `json:"published"`
	Scheduled int `json:"scheduled"`
	Draft     int `json:"draft"`
}

// CountByStatus tallies posts per status. Unknown statuses count nowhere.
func CountByStatus(posts []domain.Post) StatusCounts {
	var c StatusCounts
	for _, p := range posts {
		switch p.Status {
		case domain.StatusPublished:
			c.Published++
		case domain.StatusScheduled:
			c.Scheduled++
		case domain.StatusDraft:
			c.Draft++
		}
	}
	return c
}

// CalendarEvent is one entry on the scheduling calendar.
type CalendarEvent struct {
	ID    int64     `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	Color string    `json:"color"`
}

const defaultEventColor = "#9333EA"

var platformColors = map[domain.Platform]string{
	domain.PlatformGeneral:   "#6B7280",
	domain.PlatformX:         "#3B82F6",
	domain.PlatformFacebook:  "#2563EB",
	domain.PlatformInstagram: "#EC4899",
	domain.PlatformLinkedIn:  "#1D4ED8",
}

// CalendarEvents maps scheduled posts onto calendar entries. Posts without a
// schedule time are skipped. Titles are the uppercased platform followed by
// the first 20 runes of content, always ellipsized.
func CalendarEvents(posts []domain.Post) []CalendarEvent {
	events := make([]CalendarEvent, 0, len(posts))
	for _, p := range posts {
		if p.ScheduledAt == nil || p.ScheduledAt.IsZero() {
			continue
		}
		color, ok := platformColors[p.Platform]
		if !ok {
			color = defaultEventColor
		}
		events = append(events, CalendarEvent{
			ID:    p.ID,
			Title: eventTitle(p.Platform, p.Content),
			Start: p.ScheduledAt.Time,
			Color: color,
		})
	}
	return events
}

func eventTitle(platform domain.Platform, content string) string {
	runes := []rune(content)
	if len(runes) > 20 {
		runes = runes[:20]
	}
	return strings.ToUpper(string(platform)) + ": " + string(runes) + "..."
}

// Summary is the dashboard's headline figures. EstimatedEngagement is a
// placeholder metric of 100 per post.
type Summary struct {
	Total               int `json:"total"`
	Scheduled           int `json:"scheduled"`
	EstimatedEngagement int `json:"estimated_engagement"`
}

func Summarize(posts []domain.Post) Summary {
	s := Summary{Total: len(posts)}
	for _, p := range posts {
		if p.Status == domain.StatusScheduled {
			s.Scheduled++
		}
	}
	s.EstimatedEngagement = s.Total * 100
	return s
}

// Package timebucket classifies exit times into class sessions and dates into school days.
package timebucket

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Session is a half-open [Start, End) interval of zero-padded HH:MM times.
type Session struct {
	Label string
	Start string
	End   string
}

// DefaultSessions is the school timetable used when none is configured.
var DefaultSessions = []Session{
	{Label: "1ª", Start: "08:00", End: "09:25"},
	{Label: "2ª", Start: "09:25", End: "10:20"},
	{Label: "3ª", Start: "10:20", End: "11:15"},
	{Label: "Recreo", Start: "11:15", End: "11:45"},
	{Label: "4ª", Start: "11:45", End: "12:40"},
	{Label: "5ª", Start: "12:40", End: "13:35"},
	{Label: "6ª", Start: "13:35", End: "14:30"},
}

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Classifier maps times onto an ordered session table.
type Classifier struct {
	sessions []Session
}

// New validates the table: bounds must be HH:MM, each interval non-empty, and intervals
// ordered without overlap.
func New(sessions []Session) (*Classifier, error) {
	if len(sessions) == 0 {
		return nil, fmt.Errorf("session table is empty")
	}
	for i, s := range sessions {
		if s.Label == "" {
			return nil, fmt.Errorf("session %d has no label", i+1)
		}
		if !clockPattern.MatchString(s.Start) || !clockPattern.MatchString(s.End) {
			return nil, fmt.Errorf("session %s: bounds must be HH:MM", s.Label)
		}
		if s.Start >= s.End {
			return nil, fmt.Errorf("session %s: start must be before end", s.Label)
		}
		if i > 0 && s.Start < sessions[i-1].End {
			return nil, fmt.Errorf("session %s overlaps %s", s.Label, sessions[i-1].Label)
		}
	}
	return &Classifier{sessions: append([]Session(nil), sessions...)}, nil
}

// Default returns the classifier for DefaultSessions.
func Default() *Classifier {
	c, _ := New(DefaultSessions)
	return c
}

// Parse reads entries of the form "label=HH:MM-HH:MM".
func Parse(entries []string) ([]Session, error) {
	sessions := make([]Session, 0, len(entries))
	for _, entry := range entries {
		label, span, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("session %q: expected label=HH:MM-HH:MM", entry)
		}
		start, end, ok := strings.Cut(span, "-")
		if !ok {
			return nil, fmt.Errorf("session %q: expected label=HH:MM-HH:MM", entry)
		}
		sessions = append(sessions, Session{
			Label: strings.TrimSpace(label),
			Start: strings.TrimSpace(start),
			End:   strings.TrimSpace(end),
		})
	}
	return sessions, nil
}

// Session returns the label of the session containing hora. Comparison is lexical, so
// "HH:MM:SS" values classify like their "HH:MM" prefix.
func (c *Classifier) Session(hora string) (string, bool) {
	if hora == "" {
		return "", false
	}
	for _, s := range c.sessions {
		if hora >= s.Start && hora < s.End {
			return s.Label, true
		}
	}
	return "", false
}

// Labels returns the session labels in timetable order.
func (c *Classifier) Labels() []string {
	labels := make([]string, 0, len(c.sessions))
	for _, s := range c.sessions {
		labels = append(labels, s.Label)
	}
	return labels
}

// Sessions returns a copy of the table.
func (c *Classifier) Sessions() []Session {
	return append([]Session(nil), c.sessions...)
}

var weekdayLabels = [...]string{"Dom", "Lun", "Mar", "Mié", "Jue", "Vie", "Sáb"}

// WeekdayLabels are the tracked school days in order.
var WeekdayLabels = []string{"Lun", "Mar", "Mié", "Jue", "Vie"}

// Label returns the short Spanish name of a weekday.
func Label(d time.Weekday) string {
	return weekdayLabels[d]
}

// Weekday labels a date; ok is false for weekends, which have no tracked bucket.
func Weekday(date time.Time) (string, bool) {
	d := date.Weekday()
	return Label(d), d != time.Saturday && d != time.Sunday
}

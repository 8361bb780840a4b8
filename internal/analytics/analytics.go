// Package analytics reduces history rows into the counters and trend charts of the history view.
package analytics

import (
	"time"

	"github.com/noah-isme/exit-kiosk/internal/models"
	"github.com/noah-isme/exit-kiosk/internal/timebucket"
)

const dateLayout = "2006-01-02"

// Bucket is one labelled histogram entry.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Histogram is an ordered list of buckets; every tracked label is present, zero or not.
type Histogram []Bucket

// Summary holds the counters and trend histograms of a row collection.
type Summary struct {
	Today         int       `json:"today"`
	Week          int       `json:"week"`
	Month         int       `json:"month"`
	Total         int       `json:"total"`
	Days          Histogram `json:"days"`
	Sessions      Histogram `json:"sessions"`
	ChartsVisible bool      `json:"chartsVisible"`
}

// Aggregator summarises rows against a session table.
type Aggregator struct {
	classifier *timebucket.Classifier
}

// New builds an aggregator. A nil classifier uses the default timetable.
func New(classifier *timebucket.Classifier) *Aggregator {
	if classifier == nil {
		classifier = timebucket.Default()
	}
	return &Aggregator{classifier: classifier}
}

// Summarize counts rows for today, the current Monday-based week, the current month and
// overall, and fills the weekday and session histograms. Rows without a parseable Fecha
// are skipped.
func (a *Aggregator) Summarize(rows []models.HistoryRow, now time.Time) Summary {
	loc := now.Location()
	today := StartOfDay(now)
	weekStart := StartOfWeek(now)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	todayStr := today.Format(dateLayout)

	summary := Summary{
		Days:          zeroed(timebucket.WeekdayLabels),
		Sessions:      zeroed(a.classifier.Labels()),
		ChartsVisible: len(rows) > 0,
	}

	for _, row := range rows {
		if row.Fecha == "" {
			continue
		}
		date, err := time.ParseInLocation(dateLayout, row.Fecha, loc)
		if err != nil {
			continue
		}

		summary.Total++
		if row.Fecha == todayStr {
			summary.Today++
		}
		if !date.Before(weekStart) {
			summary.Week++
		}
		if !date.Before(monthStart) {
			summary.Month++
		}

		if label, ok := timebucket.Weekday(date); ok {
			summary.Days.add(label)
		}
		if label, ok := a.classifier.Session(row.Hora); ok {
			summary.Sessions.add(label)
		}
	}

	return summary
}

// Summarize uses the default timetable.
func Summarize(rows []models.HistoryRow, now time.Time) Summary {
	return New(nil).Summarize(rows, now)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns midnight of the Monday on or before t.
func StartOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return StartOfDay(t).AddDate(0, 0, -offset)
}

// Count returns the count of label, or 0 when it is not tracked.
func (h Histogram) Count(label string) int {
	for _, b := range h {
		if b.Label == label {
			return b.Count
		}
	}
	return 0
}

func (h Histogram) add(label string) {
	for i := range h {
		if h[i].Label == label {
			h[i].Count++
			return
		}
	}
}

func zeroed(labels []string) Histogram {
	h := make(Histogram, 0, len(labels))
	for _, l := range labels {
		h = append(h, Bucket{Label: l})
	}
	return h
}

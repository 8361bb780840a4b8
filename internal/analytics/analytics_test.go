package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exit-kiosk/internal/models"
	"github.com/noah-isme/exit-kiosk/internal/timebucket"
)

func TestSummarizeTuesdaySecondSession(t *testing.T) {
	now := time.Date(2024, 5, 14, 12, 0, 0, 0, time.UTC)
	rows := []models.HistoryRow{{Fecha: "2024-05-14", Hora: "09:30"}}

	s := Summarize(rows, now)

	assert.Equal(t, 1, s.Days.Count("Mar"))
	assert.Equal(t, 1, s.Sessions.Count("2ª"))
	assert.Equal(t, 1, s.Today)
	assert.Equal(t, 1, s.Week)
	assert.Equal(t, 1, s.Month)
	assert.Equal(t, 1, s.Total)
	assert.True(t, s.ChartsVisible)
}

func TestSummarizeCounters(t *testing.T) {
	// Wednesday 2024-05-15
	now := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	rows := []models.HistoryRow{
		{Fecha: "2024-05-15", Hora: "08:10"}, // today, week, month
		{Fecha: "2024-05-13", Hora: "14:29"}, // monday: week, month
		{Fecha: "2024-05-12", Hora: "15:00"}, // sunday before: month only, no session
		{Fecha: "2024-05-01", Hora: "11:20"}, // month
		{Fecha: "2024-04-30", Hora: "10:20"}, // previous month
		{Fecha: "", Hora: "09:00"},           // skipped
		{Fecha: "14/05/2024", Hora: "09:00"}, // skipped
	}

	s := Summarize(rows, now)

	assert.Equal(t, 1, s.Today)
	assert.Equal(t, 2, s.Week)
	assert.Equal(t, 4, s.Month)
	assert.Equal(t, 5, s.Total)

	assert.Equal(t, timebucket.WeekdayLabels, labels(s.Days))
	assert.Equal(t, 2, s.Days.Count("Mié"))
	assert.Equal(t, 1, s.Days.Count("Lun"))
	assert.Equal(t, 1, s.Days.Count("Mar"))
	assert.Equal(t, 0, s.Days.Count("Jue"))
	assert.Equal(t, 0, s.Days.Count("Dom"))

	assert.Equal(t, 1, s.Sessions.Count("1ª"))
	assert.Equal(t, 1, s.Sessions.Count("6ª"))
	assert.Equal(t, 1, s.Sessions.Count("Recreo"))
	assert.Equal(t, 1, s.Sessions.Count("3ª"))
	assert.Equal(t, 0, s.Sessions.Count("2ª"))
}

func TestSummarizeEmptyHidesCharts(t *testing.T) {
	s := Summarize(nil, time.Now())
	assert.False(t, s.ChartsVisible)
	require.Len(t, s.Days, 5)
	require.Len(t, s.Sessions, 7)
	for _, b := range append(s.Days, s.Sessions...) {
		assert.Zero(t, b.Count)
	}
}

func TestStartOfWeekIsMonday(t *testing.T) {
	sunday := time.Date(2024, 5, 19, 18, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), StartOfWeek(sunday))

	monday := time.Date(2024, 5, 13, 7, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), StartOfWeek(monday))
}

func TestCustomTimetable(t *testing.T) {
	c, err := timebucket.New([]timebucket.Session{{Label: "Mañana", Start: "08:00", End: "14:00"}})
	require.NoError(t, err)

	s := New(c).Summarize([]models.HistoryRow{{Fecha: "2024-05-14", Hora: "13:59"}}, time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, Histogram{{Label: "Mañana", Count: 1}}, s.Sessions)
}

func TestBarChart(t *testing.T) {
	bars := BarChart(Histogram{{"Lun", 2}, {"Mar", 4}, {"Mié", 0}})
	assert.Equal(t, []Bar{{"Lun", 2, 50}, {"Mar", 4, 100}, {"Mié", 0, 0}}, bars)

	flat := BarChart(Histogram{{"Lun", 0}})
	assert.Equal(t, 0.0, flat[0].Height)
}

func labels(h Histogram) []string {
	out := make([]string, 0, len(h))
	for _, b := range h {
		out = append(out, b.Label)
	}
	return out
}

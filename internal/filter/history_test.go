package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/exit-kiosk/internal/models"
)

func sampleHistory() []models.HistoryRow {
	return []models.HistoryRow{
		{Fecha: "2024-05-13", Nombre: "Ana Ruiz", Grupo: "3A", DNI: "111", StudentID: "1", Motivo: "Médico", PDF: "a.pdf"},
		{Fecha: "2024-05-14", Nombre: "Bruno Sanz", Grupo: "3B", DNI: "444", StudentID: "2", Motivo: "Personal"},
		{Fecha: "2024-05-20", Nombre: "Ana Gil", Grupo: "1C", DNI: "555", StudentID: "3", Motivo: "Médico", PDF: "c.pdf"},
		{Fecha: "2024-06-01", Nombre: "Carla Ruiz", Grupo: "2A", DNI: "777", StudentID: "17", Motivo: "Familiar"},
	}
}

func names(rows []models.HistoryRow) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Nombre)
	}
	return out
}

func TestHistoryCompositeFilter(t *testing.T) {
	rows := sampleHistory()

	tests := []struct {
		name     string
		criteria HistoryCriteria
		want     []string
	}{
		{"no criteria", ClearedCriteria(), []string{"Ana Ruiz", "Bruno Sanz", "Ana Gil", "Carla Ruiz"}},
		{"term matches name", HistoryCriteria{Term: "ruiz", Motive: AllMotives}, []string{"Ana Ruiz", "Carla Ruiz"}},
		{"term matches student id", HistoryCriteria{Term: "17"}, []string{"Carla Ruiz"}},
		{"motive", HistoryCriteria{Motive: "Médico"}, []string{"Ana Ruiz", "Ana Gil"}},
		{"date range inclusive", HistoryCriteria{From: "2024-05-14", To: "2024-05-20"}, []string{"Bruno Sanz", "Ana Gil"}},
		{"everything", HistoryCriteria{Term: "ana", Motive: "Médico", From: "2024-05-14"}, []string{"Ana Gil"}},
		{"nothing", HistoryCriteria{Term: "zzz"}, []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, names(History(rows, tc.criteria)))
		})
	}
}

func TestHistoryPredicatesAreOrderIndependent(t *testing.T) {
	rows := sampleHistory()
	c := HistoryCriteria{Term: "a", Motive: "Médico", From: "2024-05-01", To: "2024-05-31"}
	p := c.Predicates()

	want := names(Where(rows, p...))
	orders := [][]int{
		{0, 1, 2, 3}, {3, 2, 1, 0}, {1, 3, 0, 2}, {2, 0, 3, 1},
	}
	for _, order := range orders {
		// applying predicates one at a time in a different order
		view := rows
		for _, i := range order {
			view = Where(view, p[i])
		}
		assert.Equal(t, want, names(view), "order %v", order)
	}
}

func TestClearedCriteria(t *testing.T) {
	c := ClearedCriteria()
	assert.Equal(t, AllMotives, c.Motive)
	assert.True(t, c.IsZero())
	assert.False(t, HistoryCriteria{From: "2024-01-01"}.IsZero())
}

func TestExportSubsetIgnoresMotiveAndDates(t *testing.T) {
	rows := sampleHistory()

	assert.Len(t, ExportSubset(rows, ""), 4)
	assert.Equal(t, []string{"Ana Ruiz", "Bruno Sanz"}, names(ExportSubset(rows, "3")))
	assert.Equal(t, []string{"Carla Ruiz"}, names(ExportSubset(rows, "777")))
	// the export match does not look at the student id
	assert.Empty(t, ExportSubset(rows, "17"))
}

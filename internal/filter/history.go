package filter

import (
	"strings"

	"github.com/noah-isme/exit-kiosk/internal/models"
)

// HistoryCriteria is the state of the four history filter controls.
// From and To are YYYY-MM-DD bounds, inclusive; empty means unbounded.
type HistoryCriteria struct {
	Term   string `form:"term" json:"term"`
	Motive string `form:"motive" json:"motive"`
	From   string `form:"from" json:"from" binding:"omitempty,datetime=2006-01-02"`
	To     string `form:"to" json:"to" binding:"omitempty,datetime=2006-01-02"`
}

// ClearedCriteria is the criteria after the filters are reset.
func ClearedCriteria() HistoryCriteria {
	return HistoryCriteria{Motive: AllMotives}
}

// IsZero reports whether no predicate restricts the view.
func (c HistoryCriteria) IsZero() bool {
	return strings.TrimSpace(c.Term) == "" && (c.Motive == "" || c.Motive == AllMotives) && c.From == "" && c.To == ""
}

// RowPredicate decides whether a history row belongs to the view.
type RowPredicate func(models.HistoryRow) bool

// MatchTerm matches the free-text term against name, group, DNI and student id.
func MatchTerm(term string) RowPredicate {
	term = strings.ToLower(strings.TrimSpace(term))
	return func(r models.HistoryRow) bool {
		if term == "" {
			return true
		}
		text := strings.ToLower(r.Nombre + " " + r.Grupo + " " + r.DNI + " " + r.StudentID)
		return strings.Contains(text, term)
	}
}

// MatchMotive matches rows with the selected motive; "" and AllMotives match everything.
func MatchMotive(motive string) RowPredicate {
	return func(r models.HistoryRow) bool {
		return motive == "" || motive == AllMotives || r.Motivo == motive
	}
}

// OnOrAfter matches rows dated on or after from. Dates compare lexically.
func OnOrAfter(from string) RowPredicate {
	return func(r models.HistoryRow) bool {
		return from == "" || r.Fecha >= from
	}
}

// OnOrBefore matches rows dated on or before to.
func OnOrBefore(to string) RowPredicate {
	return func(r models.HistoryRow) bool {
		return to == "" || r.Fecha <= to
	}
}

// Predicates returns the four predicates of the criteria.
func (c HistoryCriteria) Predicates() []RowPredicate {
	return []RowPredicate{MatchTerm(c.Term), MatchMotive(c.Motive), OnOrAfter(c.From), OnOrBefore(c.To)}
}

// Where keeps the rows satisfying every predicate.
func Where(rows []models.HistoryRow, predicates ...RowPredicate) []models.HistoryRow {
	out := make([]models.HistoryRow, 0, len(rows))
	for _, r := range rows {
		keep := true
		for _, p := range predicates {
			if !p(r) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, r)
		}
	}
	return out
}

// History applies the composite filter of the criteria.
func History(rows []models.HistoryRow, c HistoryCriteria) []models.HistoryRow {
	return Where(rows, c.Predicates()...)
}

// ExportSubset selects the rows exported to CSV: only the free-text term applies,
// matched against name, group or DNI.
func ExportSubset(rows []models.HistoryRow, term string) []models.HistoryRow {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return rows
	}
	return Where(rows, func(r models.HistoryRow) bool {
		return strings.Contains(strings.ToLower(r.Nombre), term) ||
			strings.Contains(strings.ToLower(r.Grupo), term) ||
			strings.Contains(strings.ToLower(r.DNI), term)
	})
}

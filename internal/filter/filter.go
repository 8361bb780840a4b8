// Package filter derives view collections from the roster and the exit history.
// Every function is pure: inputs are never mutated and input order is preserved.
package filter

import (
	"strings"

	"github.com/noah-isme/exit-kiosk/internal/models"
)

// Display caps for the roster grid. Statistics always use the uncapped length.
const (
	DefaultViewCap = 50
	DisplayCap     = 100
)

// AllMotives is the wildcard value of the history motive selector.
const AllMotives = "all"

// Terms normalises a query into lower-case whitespace separated terms.
func Terms(query string) []string {
	return strings.Fields(strings.ToLower(strings.TrimSpace(query)))
}

// Roster returns the students whose search text contains every term of query.
// An empty query returns the roster unchanged.
func Roster(students []models.Student, query string) []models.Student {
	terms := Terms(query)
	if len(terms) == 0 {
		return students
	}

	matched := make([]models.Student, 0, len(students))
	for _, s := range students {
		if containsAll(s.SearchText(), terms) {
			matched = append(matched, s)
		}
	}
	return matched
}

// Visible caps a filtered roster for display: DefaultViewCap when no query is typed,
// DisplayCap otherwise.
func Visible(filtered []models.Student, query string) []models.Student {
	limit := DisplayCap
	if len(Terms(query)) == 0 {
		limit = DefaultViewCap
	}
	if len(filtered) <= limit {
		return filtered
	}
	return filtered[:limit]
}

func containsAll(text string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(text, term) {
			return false
		}
	}
	return true
}

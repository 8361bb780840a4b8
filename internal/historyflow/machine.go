// Package historyflow is the exit history browser as a pure state machine. The history
// service performs the fetch and delete calls and feeds their outcomes back as events.
package historyflow

import (
	"fmt"

	"github.com/noah-isme/exit-kiosk/internal/filter"
	"github.com/noah-isme/exit-kiosk/internal/models"
	appErrors "github.com/noah-isme/exit-kiosk/pkg/errors"
)

// State names the stage of the history browser.
type State int

const (
	Closed State = iota
	Loading
	Loaded
	Filtered
	ConfirmDelete
	Deleting
	Failed
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Filtered:
		return "filtered"
	case ConfirmDelete:
		return "confirm_delete"
	case Deleting:
		return "deleting"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// LoadErrorMessage is shown inline when the history cannot be fetched.
const LoadErrorMessage = "Error de conexión"

// Event is an input to the machine.
type Event interface{ event() }

// OpenEvent starts a fresh load. Filters are reset unless KeepCriteria is set.
type OpenEvent struct{ KeepCriteria bool }

// LoadedEvent delivers the rows fetched for generation Gen.
type LoadedEvent struct {
	Gen  uint64
	Rows []models.HistoryRow
}

// LoadFailedEvent reports a failed fetch for generation Gen.
type LoadFailedEvent struct {
	Gen     uint64
	Message string
}

// FilterEvent replaces the filter criteria.
type FilterEvent struct{ Criteria filter.HistoryCriteria }

// ClearFiltersEvent resets the four filter controls.
type ClearFiltersEvent struct{}

// RequestDeleteEvent asks for confirmation before deleting the row keyed by PDF.
type RequestDeleteEvent struct{ PDF string }

// CancelDeleteEvent dismisses the confirmation.
type CancelDeleteEvent struct{}

// ConfirmDeleteEvent lets the delete request go out.
type ConfirmDeleteEvent struct{}

// DeletedEvent reports a successful delete; the whole history is reloaded.
type DeletedEvent struct{}

// DeleteFailedEvent reports a rejected delete; the previous view is restored.
type DeleteFailedEvent struct{ Message string }

// CloseEvent hides the browser. Loads still in flight become stale.
type CloseEvent struct{}

func (OpenEvent) event()          {}
func (LoadedEvent) event()        {}
func (LoadFailedEvent) event()    {}
func (FilterEvent) event()        {}
func (ClearFiltersEvent) event()  {}
func (RequestDeleteEvent) event() {}
func (CancelDeleteEvent) event()  {}
func (ConfirmDeleteEvent) event() {}
func (DeletedEvent) event()       {}
func (DeleteFailedEvent) event()  {}
func (CloseEvent) event()         {}

// Machine is the history browser state. Rows is the authoritative collection and View the
// filtered projection every table, counter and chart is computed from.
type Machine struct {
	State    State
	Gen      uint64
	Rows     []models.HistoryRow
	View     []models.HistoryRow
	Criteria filter.HistoryCriteria
	// Target is the PDF key of the row being confirmed or deleted.
	Target string
	Error  string

	resume State
}

// New returns a closed browser.
func New() Machine {
	return Machine{State: Closed, Criteria: filter.ClearedCriteria()}
}

// Apply computes the next state. Load results for another generation are ignored without
// error; other invalid transitions leave m unchanged and return an error.
func (m Machine) Apply(ev Event) (Machine, error) {
	switch e := ev.(type) {
	case OpenEvent:
		if m.State == Deleting {
			return m, invalid(m.State, ev)
		}
		return m.reload(e.KeepCriteria), nil

	case LoadedEvent:
		if e.Gen != m.Gen || m.State != Loading {
			return m, nil
		}
		m.Rows = e.Rows
		m.Error = ""
		return m.refilter(), nil

	case LoadFailedEvent:
		if e.Gen != m.Gen || m.State != Loading {
			return m, nil
		}
		m.State = Failed
		m.Error = e.Message
		if m.Error == "" {
			m.Error = LoadErrorMessage
		}
		return m, nil

	case FilterEvent:
		if !m.browsing() {
			return m, invalid(m.State, ev)
		}
		m.Criteria = e.Criteria
		if m.Criteria.Motive == "" {
			m.Criteria.Motive = filter.AllMotives
		}
		return m.refilter(), nil

	case ClearFiltersEvent:
		if !m.browsing() {
			return m, invalid(m.State, ev)
		}
		m.Criteria = filter.ClearedCriteria()
		return m.refilter(), nil

	case RequestDeleteEvent:
		if !m.browsing() {
			return m, invalid(m.State, ev)
		}
		if !m.deletable(e.PDF) {
			return m, appErrors.ErrNotDeletable
		}
		m.resume = m.State
		m.State = ConfirmDelete
		m.Target = e.PDF
		return m, nil

	case CancelDeleteEvent:
		if m.State != ConfirmDelete {
			return m, invalid(m.State, ev)
		}
		m.State = m.resume
		m.Target = ""
		return m, nil

	case ConfirmDeleteEvent:
		if m.State != ConfirmDelete {
			return m, invalid(m.State, ev)
		}
		m.State = Deleting
		return m, nil

	case DeletedEvent:
		if m.State != Deleting {
			return m, invalid(m.State, ev)
		}
		return m.reload(true), nil

	case DeleteFailedEvent:
		if m.State != Deleting {
			return m, invalid(m.State, ev)
		}
		m.State = m.resume
		m.Target = ""
		return m, nil

	case CloseEvent:
		next := New()
		next.Gen = m.Gen + 1
		return next, nil
	}
	return m, invalid(m.State, ev)
}

// Loading reports whether the loading placeholder is shown.
func (m Machine) Loading() bool { return m.State == Loading }

// Empty reports whether the table shows its "no records" row.
func (m Machine) Empty() bool { return m.browsing() && len(m.View) == 0 }

// Visible reports whether the browser is shown at all.
func (m Machine) Visible() bool { return m.State != Closed }

// TargetRow returns the row pending deletion.
func (m Machine) TargetRow() (models.HistoryRow, bool) {
	if m.Target == "" {
		return models.HistoryRow{}, false
	}
	for _, r := range m.Rows {
		if r.PDF == m.Target {
			return r, true
		}
	}
	return models.HistoryRow{}, false
}

func (m Machine) reload(keepCriteria bool) Machine {
	next := New()
	next.State = Loading
	next.Gen = m.Gen + 1
	if keepCriteria {
		next.Criteria = m.Criteria
	}
	return next
}

func (m Machine) refilter() Machine {
	m.View = filter.History(m.Rows, m.Criteria)
	if m.Criteria.IsZero() {
		m.State = Loaded
	} else {
		m.State = Filtered
	}
	return m
}

func (m Machine) browsing() bool {
	return m.State == Loaded || m.State == Filtered
}

func (m Machine) deletable(pdf string) bool {
	if pdf == "" {
		return false
	}
	for _, r := range m.Rows {
		if r.PDF == pdf && r.Deletable() {
			return true
		}
	}
	return false
}

func invalid(s State, ev Event) error {
	return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("history: %T not allowed while %s", ev, s))
}

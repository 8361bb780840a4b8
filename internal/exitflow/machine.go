// Package exitflow is the sign-out form workflow as a pure state machine. Transitions
// never perform I/O; the exit service drives the backend call between Submit and its
// outcome.
package exitflow

import (
	"fmt"
	"time"

	"github.com/noah-isme/exit-kiosk/internal/models"
	appErrors "github.com/noah-isme/exit-kiosk/pkg/errors"
)

// State names the stage of the sign-out form.
type State int

const (
	Closed State = iota
	Open
	Submitting
	Receipt
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case Submitting:
		return "submitting"
	case Receipt:
		return "receipt"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Event is an input to the machine.
type Event interface{ event() }

// OpenEvent shows the form for a student, starting from a fresh form.
type OpenEvent struct{ Student models.Student }

// EditEvent replaces the form values.
type EditEvent struct{ Form Form }

// SubmitEvent freezes the payload and waits for the backend.
type SubmitEvent struct{}

// SucceededEvent records the backend acceptance time.
type SucceededEvent struct{ At time.Time }

// FailedEvent returns to the editable form with a message.
type FailedEvent struct{ Message string }

// CloseEvent hides the form.
type CloseEvent struct{}

func (OpenEvent) event()      {}
func (EditEvent) event()      {}
func (SubmitEvent) event()    {}
func (SucceededEvent) event() {}
func (FailedEvent) event()    {}
func (CloseEvent) event()     {}

// Options are the closed sets offered by the form.
type Options struct {
	Motives       []models.Motive
	DefaultMotive models.Motive
	Periods       []string
}

// DefaultOptions uses the built-in motive and period lists.
func DefaultOptions() Options {
	return Options{Motives: models.DefaultMotives, DefaultMotive: models.MotivePersonal, Periods: DefaultPeriods}
}

// Machine is the whole workflow state. It is a value; Apply returns the next one.
type Machine struct {
	State   State
	Student models.Student
	Form    Form
	// Pending is the payload in flight while Submitting, and the accepted one in Receipt.
	Pending *models.ExitRecord
	Receipt *ReceiptView
	Error   string

	opts Options
}

// New returns a closed machine.
func New(opts Options) Machine {
	if len(opts.Motives) == 0 {
		opts.Motives = models.DefaultMotives
	}
	if opts.DefaultMotive == "" {
		opts.DefaultMotive = opts.Motives[0]
	}
	if len(opts.Periods) == 0 {
		opts.Periods = DefaultPeriods
	}
	return Machine{State: Closed, opts: opts}
}

// Options returns the choices offered by the form.
func (m Machine) Options() Options { return m.opts }

// SaveEnabled is false only while a submission is in flight.
func (m Machine) SaveEnabled() bool { return m.State != Submitting }

// PrimaryAction is "print" once a receipt exists, "save" otherwise.
func (m Machine) PrimaryAction() string {
	if m.State == Receipt {
		return "print"
	}
	return "save"
}

// TutorLabels returns the shortened names of the student's tutors, empty when absent.
func (m Machine) TutorLabels() (string, string) {
	var t1, t2 string
	if m.Student.Tutor1 != nil && m.Student.Tutor1.Name != "" {
		t1 = TutorLabel(m.Student.Tutor1.Name)
	}
	if m.Student.Tutor2 != nil && m.Student.Tutor2.Name != "" {
		t2 = TutorLabel(m.Student.Tutor2.Name)
	}
	return t1, t2
}

// Apply computes the next state. Invalid transitions leave m unchanged and return an error.
func (m Machine) Apply(ev Event) (Machine, error) {
	switch e := ev.(type) {
	case OpenEvent:
		if m.State == Submitting {
			return m, invalid(m.State, ev)
		}
		next := New(m.opts)
		next.State = Open
		next.Student = e.Student
		next.Form = NewForm(m.opts.DefaultMotive)
		return next, nil

	case EditEvent:
		if m.State != Open {
			return m, invalid(m.State, ev)
		}
		form, err := m.normalise(e.Form)
		if err != nil {
			return m, err
		}
		m.Form = form
		return m, nil

	case SubmitEvent:
		if m.State != Open {
			return m, invalid(m.State, ev)
		}
		payload := Payload(m.Student, m.Form)
		m.State = Submitting
		m.Pending = &payload
		m.Error = ""
		return m, nil

	case SucceededEvent:
		if m.State != Submitting || m.Pending == nil {
			return m, invalid(m.State, ev)
		}
		receipt := NewReceipt(*m.Pending, e.At)
		m.State = Receipt
		m.Receipt = &receipt
		return m, nil

	case FailedEvent:
		if m.State != Submitting {
			return m, invalid(m.State, ev)
		}
		m.State = Open
		m.Pending = nil
		m.Error = e.Message
		return m, nil

	case CloseEvent:
		if m.State == Submitting {
			return m, invalid(m.State, ev)
		}
		return New(m.opts), nil
	}
	return m, invalid(m.State, ev)
}

func (m Machine) normalise(f Form) (Form, error) {
	if !m.validMotive(f.Motive) {
		return f, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("motivo no válido: %s", f.Motive))
	}
	if !f.Companion.Valid() {
		return f, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("acompañante no válido: %s", f.Companion))
	}

	// keep only known periods, in timetable order
	ordered := make([]string, 0, len(f.Periods))
	for _, p := range m.opts.Periods {
		if f.Checked(p) {
			ordered = append(ordered, p)
		}
	}
	f.Periods = ordered
	return f, nil
}

func (m Machine) validMotive(motive models.Motive) bool {
	for _, known := range m.opts.Motives {
		if motive == known {
			return true
		}
	}
	return false
}

func invalid(s State, ev Event) error {
	return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("exit form: %T not allowed while %s", ev, s))
}

package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/exit-kiosk/internal/backend"
	"github.com/noah-isme/exit-kiosk/internal/dto"
	"github.com/noah-isme/exit-kiosk/internal/exitflow"
	"github.com/noah-isme/exit-kiosk/internal/kiosk"
	"github.com/noah-isme/exit-kiosk/internal/models"
	appErrors "github.com/noah-isme/exit-kiosk/pkg/errors"
	"github.com/noah-isme/exit-kiosk/pkg/export"
)

// Exit workflow notifications.
const (
	ExitSavedMessage = "Salida registrada correctamente. Ya puedes imprimir el ticket."
	ExitSavePrefix   = "Error al guardar: "
)

type rosterLookup interface {
	Student(k *kiosk.Kiosk, id string) (models.Student, error)
	Publish(k *kiosk.Kiosk) dto.RosterView
}

type badgeInvalidator interface {
	Invalidate(ctx context.Context, id models.StudentID)
}

type receiptRenderer interface {
	Render(r export.Receipt) ([]byte, error)
}

type exitRecorder interface {
	RecordExit(result string)
}

// ExitService drives the sign-out form of a kiosk.
type ExitService struct {
	roster   rosterLookup
	badges   badgeInvalidator
	receipts receiptRenderer
	metrics  exitRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewExitService constructs the exit driver.
func NewExitService(roster rosterLookup, badges badgeInvalidator, receipts receiptRenderer, metrics exitRecorder, logger *zap.Logger) *ExitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if receipts == nil {
		receipts = export.NewReceiptExporter()
	}
	return &ExitService{
		roster:   roster,
		badges:   badges,
		receipts: receipts,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the receipt clock.
func (s *ExitService) WithClock(now func() time.Time) *ExitService {
	if now != nil {
		s.now = now
	}
	return s
}

// Open shows a fresh form for the student with the given roster id.
func (s *ExitService) Open(k *kiosk.Kiosk, studentID string) error {
	student, err := s.roster.Student(k, studentID)
	if err != nil {
		return err
	}
	return s.apply(k, exitflow.OpenEvent{Student: student})
}

// Update replaces the form values.
func (s *ExitService) Update(k *kiosk.Kiosk, form exitflow.Form) error {
	return s.apply(k, exitflow.EditEvent{Form: form})
}

// Close hides the form or receipt.
func (s *ExitService) Close(k *kiosk.Kiosk) error {
	return s.apply(k, exitflow.CloseEvent{})
}

// Submit persists the exit with the values already on the form. Only a sign-in failure is
// returned once the request was sent; rejections and transport errors end up on the form and
// as a toast.
func (s *ExitService) Submit(ctx context.Context, k *kiosk.Kiosk) error {
	return s.submit(ctx, k, nil)
}

// SubmitForm stores form on the open sign-out form and persists the exit in one step.
func (s *ExitService) SubmitForm(ctx context.Context, k *kiosk.Kiosk, form exitflow.Form) error {
	return s.submit(ctx, k, &form)
}

func (s *ExitService) submit(ctx context.Context, k *kiosk.Kiosk, form *exitflow.Form) error {
	var record models.ExitRecord
	err := k.Do(func(st *kiosk.State) error {
		if st.Exit.State == exitflow.Closed {
			return appErrors.ErrNoStudentSelected
		}
		machine := st.Exit
		if form != nil {
			edited, err := machine.Apply(exitflow.EditEvent{Form: *form})
			if err != nil {
				return err
			}
			machine = edited
		}
		next, err := machine.Apply(exitflow.SubmitEvent{})
		if err != nil {
			return err
		}
		st.Exit = next
		record = *next.Pending
		return nil
	})
	if err != nil {
		return err
	}

	err = k.Session.SubmitExit(ctx, record)
	if err == nil {
		s.succeeded(ctx, k, record)
		return nil
	}

	var message string
	if !backend.IsSignInRequired(err) {
		message = failureMessage(err)
	}
	_ = k.Do(func(st *kiosk.State) error {
		next, applyErr := st.Exit.Apply(exitflow.FailedEvent{Message: message})
		if applyErr == nil {
			st.Exit = next
		}
		return nil
	})

	switch {
	case backend.IsSignInRequired(err):
		return err
	case backend.IsUnavailable(err):
		s.recordExit("unavailable")
	default:
		s.recordExit("rejected")
	}
	k.Notify(kiosk.ToastError, message)
	s.logger.Warn("exit submission failed",
		zap.String("kiosk_id", k.ID),
		zap.String("student_id", record.StudentID.String()),
		zap.Error(err),
	)
	return nil
}

func (s *ExitService) succeeded(ctx context.Context, k *kiosk.Kiosk, record models.ExitRecord) {
	at := s.now()
	_ = k.Do(func(st *kiosk.State) error {
		next, err := st.Exit.Apply(exitflow.SucceededEvent{At: at})
		if err == nil {
			st.Exit = next
		}
		return nil
	})
	k.Notify(kiosk.ToastSuccess, ExitSavedMessage)
	s.recordExit("saved")
	s.logger.Info("exit registered",
		zap.String("kiosk_id", k.ID),
		zap.String("student_id", record.StudentID.String()),
		zap.String("motive", string(record.Motive)),
	)

	if s.badges != nil {
		s.badges.Invalidate(ctx, record.StudentID)
	}
	if s.roster != nil {
		s.roster.Publish(k)
	}
}

// ReceiptPDF renders the receipt of the last accepted exit.
func (s *ExitService) ReceiptPDF(k *kiosk.Kiosk) ([]byte, error) {
	var receipt *exitflow.ReceiptView
	_ = k.Do(func(st *kiosk.State) error {
		if st.Exit.State == exitflow.Receipt {
			receipt = st.Exit.Receipt
		}
		return nil
	})
	if receipt == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "no hay ticket para imprimir")
	}
	return s.receipts.Render(receipt.Document())
}

// View renders the form state.
func (s *ExitService) View(k *kiosk.Kiosk) dto.ExitView {
	var m exitflow.Machine
	_ = k.Do(func(st *kiosk.State) error {
		m = st.Exit
		return nil
	})
	return ExitView(m)
}

// ExitView builds the render model of the exit machine.
func ExitView(m exitflow.Machine) dto.ExitView {
	t1, t2 := m.TutorLabels()
	opts := m.Options()
	return dto.ExitView{
		Visible:        m.State != exitflow.Closed,
		State:          m.State.String(),
		Student:        StudentCard(m.Student),
		Form:           m.Form,
		Motives:        opts.Motives,
		Periods:        opts.Periods,
		PeriodsVisible: m.Form.PeriodsVisible(),
		Tutor1Label:    t1,
		Tutor2Label:    t2,
		SaveEnabled:    m.SaveEnabled(),
		PrimaryAction:  m.PrimaryAction(),
		Error:          m.Error,
		Receipt:        m.Receipt,
	}
}

func (s *ExitService) apply(k *kiosk.Kiosk, ev exitflow.Event) error {
	return k.Do(func(st *kiosk.State) error {
		next, err := st.Exit.Apply(ev)
		if err != nil {
			return err
		}
		st.Exit = next
		return nil
	})
}

func (s *ExitService) recordExit(result string) {
	if s.metrics != nil {
		s.metrics.RecordExit(result)
	}
}

func failureMessage(err error) string {
	if backend.IsUnavailable(err) {
		return appErrors.ErrUpstreamUnavailable.Message
	}
	return ExitSavePrefix + backend.Reason(err, func(status int) string {
		return fmt.Sprintf("Error del servidor (%d)", status)
	})
}

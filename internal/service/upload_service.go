package service

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/exit-kiosk/internal/backend"
	"github.com/noah-isme/exit-kiosk/internal/dto"
	"github.com/noah-isme/exit-kiosk/internal/kiosk"
	appErrors "github.com/noah-isme/exit-kiosk/pkg/errors"
)

// Upload notifications.
const (
	UploadFailPrefix    = "Error: "
	UploadFailFallback  = "No se pudo procesar el archivo"
	UploadConnError     = "Error de conexión al subir el archivo."
	uploadSuccessFormat = "Se han actualizado %d alumnos correctamente."
	uploadPromptFormat  = "¿Estás seguro de que quieres actualizar la base de datos con el archivo \"%s\"? Esto sobrescribirá los datos actuales."
)

type rosterReloader interface {
	Load(ctx context.Context, k *kiosk.Kiosk) error
	Publish(k *kiosk.Kiosk) dto.RosterView
}

// UploadService stages roster spreadsheets and sends them once confirmed.
type UploadService struct {
	roster   rosterReloader
	maxBytes int64
	logger   *zap.Logger
	now      func() time.Time
}

// NewUploadService constructs the upload driver.
func NewUploadService(roster rosterReloader, maxBytes int64, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}
	return &UploadService{roster: roster, maxBytes: maxBytes, logger: logger, now: time.Now}
}

// Stage keeps the file on the kiosk until the user confirms. Nothing is sent yet.
func (s *UploadService) Stage(k *kiosk.Kiosk, filename string, data []byte) (dto.UploadPreview, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." {
		return dto.UploadPreview{}, appErrors.Clone(appErrors.ErrValidation, "file required")
	}
	if len(data) == 0 {
		return dto.UploadPreview{}, appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	if int64(len(data)) > s.maxBytes {
		return dto.UploadPreview{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", s.maxBytes))
	}

	rows, known := PreviewRows(data)
	stage := &kiosk.UploadStage{
		Filename:  filename,
		Data:      data,
		Rows:      rows,
		RowsKnown: known,
		StagedAt:  s.now(),
	}
	_ = k.Do(func(st *kiosk.State) error {
		st.Upload = stage
		return nil
	})
	return uploadPreview(stage), nil
}

// Pending returns the staged upload, if any.
func (s *UploadService) Pending(k *kiosk.Kiosk) (dto.UploadPreview, bool) {
	var stage *kiosk.UploadStage
	_ = k.Do(func(st *kiosk.State) error {
		stage = st.Upload
		return nil
	})
	if stage == nil {
		return dto.UploadPreview{}, false
	}
	return uploadPreview(stage), true
}

// Cancel drops the staged file.
func (s *UploadService) Cancel(k *kiosk.Kiosk) {
	_ = k.Do(func(st *kiosk.State) error {
		st.Upload = nil
		return nil
	})
}

// Confirm sends the staged file. On success the roster is fetched again.
func (s *UploadService) Confirm(ctx context.Context, k *kiosk.Kiosk) error {
	var stage *kiosk.UploadStage
	_ = k.Do(func(st *kiosk.State) error {
		stage = st.Upload
		st.Upload = nil
		return nil
	})
	if stage == nil {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "no file staged")
	}

	count, err := k.Session.UploadRoster(ctx, stage.Filename, bytes.NewReader(stage.Data))
	if err != nil {
		switch {
		case backend.IsSignInRequired(err):
			return err
		case backend.IsUnavailable(err):
			k.Notify(kiosk.ToastError, UploadConnError)
		default:
			k.Notify(kiosk.ToastError, UploadFailPrefix+backend.Reason(err, func(int) string { return UploadFailFallback }))
		}
		s.logger.Warn("roster upload failed", zap.String("kiosk_id", k.ID), zap.String("file", stage.Filename), zap.Error(err))
		return nil
	}

	k.Notify(kiosk.ToastSuccess, fmt.Sprintf(uploadSuccessFormat, count))
	s.logger.Info("roster uploaded", zap.String("kiosk_id", k.ID), zap.String("file", stage.Filename), zap.Int("count", count))

	if err := s.roster.Load(ctx, k); err != nil {
		return err
	}
	s.roster.Publish(k)
	return nil
}

// PreviewRows counts the data rows of the first sheet, header excluded. Files excelize
// cannot open are reported as unknown.
func PreviewRows(data []byte) (int, bool) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return 0, false
	}
	defer func() { _ = file.Close() }()

	sheet := file.GetSheetName(0)
	if sheet == "" {
		return 0, false
	}
	rows, err := file.GetRows(sheet)
	if err != nil {
		return 0, false
	}

	count := 0
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if strings.TrimSpace(strings.Join(row, "")) != "" {
			count++
		}
	}
	return count, true
}

func uploadPreview(stage *kiosk.UploadStage) dto.UploadPreview {
	return dto.UploadPreview{
		Filename:  stage.Filename,
		Rows:      stage.Rows,
		RowsKnown: stage.RowsKnown,
		Prompt:    fmt.Sprintf(uploadPromptFormat, stage.Filename),
	}
}

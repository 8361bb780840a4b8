package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exit-kiosk/internal/backend"
	"github.com/noah-isme/exit-kiosk/internal/filter"
	"github.com/noah-isme/exit-kiosk/internal/historyflow"
	"github.com/noah-isme/exit-kiosk/internal/kiosk"
	"github.com/noah-isme/exit-kiosk/internal/models"
	appErrors "github.com/noah-isme/exit-kiosk/pkg/errors"
	"github.com/noah-isme/exit-kiosk/pkg/storage"
)

var historyNow = time.Date(2024, 5, 14, 12, 0, 0, 0, time.UTC)

func sampleLog() []models.HistoryRow {
	returning := historyRow("2024-05-14", "09:30:00", "Ana Ruiz", "Médico", "a.pdf")
	returning.Set(models.ColVuelve, models.VuelveYes)
	returning.Set(models.ColHoras, "3ª, 4ª")
	return []models.HistoryRow{
		returning,
		historyRow("2024-05-13", "12:00:00", "Juan Pérez", "Personal", "b.pdf"),
		historyRow("2024-04-02", "08:10:00", "Ana Gil", "Personal", ""),
	}
}

func newHistoryService(t *testing.T) *HistoryService {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	return NewHistoryService(nil, files, signer, HistoryConfig{Location: time.UTC}, nil).
		WithClock(func() time.Time { return historyNow })
}

func TestHistoryOpenAndView(t *testing.T) {
	fb := &fakeBackend{history: sampleLog()}
	k := newTestKiosk(fb)
	svc := newHistoryService(t)

	require.NoError(t, svc.Open(context.Background(), k))
	view := svc.View(k)
	assert.True(t, view.Visible)
	assert.False(t, view.Loading)
	require.Len(t, view.Rows, 3)

	assert.Equal(t, "Sí (3ª, 4ª)", view.Rows[0].Vuelve)
	assert.Equal(t, "/pdfs/a.pdf", view.Rows[0].PDFURL)
	assert.Equal(t, "No", view.Rows[1].Vuelve)
	assert.False(t, view.Rows[2].Deletable)
	assert.Empty(t, view.Rows[2].PDFURL)

	assert.Equal(t, 1, view.Summary.Today)
	assert.Equal(t, 2, view.Summary.Week)
	assert.Equal(t, 2, view.Summary.Month)
	assert.Equal(t, 3, view.Summary.Total)
	assert.Equal(t, 2, view.Summary.Days.Count("Mar"))
	assert.Equal(t, 1, view.Summary.Days.Count("Lun"))
	assert.Equal(t, 1, view.Summary.Sessions.Count("2ª"))
	assert.Len(t, view.DayBars, 5)
}

func TestHistoryFilterDrivesSummary(t *testing.T) {
	k := newTestKiosk(&fakeBackend{history: sampleLog()})
	svc := newHistoryService(t)
	require.NoError(t, svc.Open(context.Background(), k))

	require.NoError(t, svc.Filter(k, filter.HistoryCriteria{Motive: "Personal"}))
	view := svc.View(k)
	assert.Len(t, view.Rows, 2)
	assert.Equal(t, 2, view.Summary.Total)
	assert.Equal(t, 0, view.Summary.Today)

	require.NoError(t, svc.Filter(k, filter.HistoryCriteria{Term: "nadie"}))
	view = svc.View(k)
	assert.True(t, view.Empty)
	assert.False(t, view.Summary.ChartsVisible)

	require.NoError(t, svc.Clear(k))
	assert.Len(t, svc.View(k).Rows, 3)
}

func TestHistoryLoadFailure(t *testing.T) {
	k := newTestKiosk(&fakeBackend{histErr: appErrors.ErrUpstreamUnavailable})
	svc := newHistoryService(t)

	require.NoError(t, svc.Open(context.Background(), k))
	view := svc.View(k)
	assert.Equal(t, historyflow.LoadErrorMessage, view.Error)
	assert.Empty(t, view.Rows)
}

func TestHistoryDeleteFlow(t *testing.T) {
	fb := &fakeBackend{history: sampleLog()}
	k := newTestKiosk(fb)
	svc := newHistoryService(t)
	require.NoError(t, svc.Open(context.Background(), k))
	require.NoError(t, svc.Filter(k, filter.HistoryCriteria{Term: "ruiz"}))

	err := svc.RequestDelete(k, "")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotDeletable))

	require.NoError(t, svc.RequestDelete(k, "a.pdf"))
	view := svc.View(k)
	require.NotNil(t, view.Confirm)
	assert.Equal(t, "Ana Ruiz", view.Confirm.Nombre)

	require.NoError(t, svc.ConfirmDelete(context.Background(), k))
	assert.Equal(t, []string{"a.pdf"}, fb.deleted)
	assert.Equal(t, 2, fb.historyCalls)

	view = svc.View(k)
	assert.Equal(t, "ruiz", view.Criteria.Term)
	assert.True(t, view.Empty)
	toasts := k.DrainToasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, kiosk.Toast{Kind: kiosk.ToastSuccess, Message: HistoryDeletedMessage}, toasts[0])
}

func TestHistoryDeleteFailureRestoresState(t *testing.T) {
	fb := &fakeBackend{history: sampleLog(), deleteErr: &backend.RejectedError{Status: 404}}
	k := newTestKiosk(fb)
	svc := newHistoryService(t)
	require.NoError(t, svc.Open(context.Background(), k))

	require.NoError(t, svc.RequestDelete(k, "b.pdf"))
	require.NoError(t, svc.ConfirmDelete(context.Background(), k))

	view := svc.View(k)
	assert.Nil(t, view.Confirm)
	assert.Len(t, view.Rows, 3)
	toasts := k.DrainToasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, "No se pudo eliminar: Error 404", toasts[0].Message)

	fb.deleteErr = appErrors.ErrUpstreamUnavailable
	require.NoError(t, svc.RequestDelete(k, "b.pdf"))
	require.NoError(t, svc.ConfirmDelete(context.Background(), k))
	assert.Equal(t, HistoryDeleteConnError, k.DrainToasts()[0].Message)
}

func TestHistoryCancelDelete(t *testing.T) {
	k := newTestKiosk(&fakeBackend{history: sampleLog()})
	svc := newHistoryService(t)
	require.NoError(t, svc.Open(context.Background(), k))

	require.NoError(t, svc.RequestDelete(k, "a.pdf"))
	require.NoError(t, svc.CancelDelete(k))
	assert.Nil(t, svc.View(k).Confirm)
	assert.Error(t, svc.CancelDelete(k))
}

func TestHistoryRenderCSV(t *testing.T) {
	svc := newHistoryService(t)

	payload, filename, n, err := svc.Render(sampleLog(), "ana", FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "historial_salidas_2024-05-14.csv", filename)
	assert.Equal(t, 2, n)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Fecha,Hora,Nombre,Grupo,Motivo,PDF"))
	assert.Contains(t, lines[1], ",Ana Ruiz,")

	_, _, _, err = svc.Render(sampleLog(), "nadie", FormatCSV)
	assert.True(t, appErrors.Is(err, appErrors.ErrNothingToExport))

	_, _, _, err = svc.Render(sampleLog(), "", "xls")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestHistoryExportSignedDownload(t *testing.T) {
	k := newTestKiosk(&fakeBackend{history: sampleLog()})
	svc := newHistoryService(t)

	_, err := svc.Export(k, FormatCSV)
	assert.True(t, appErrors.Is(err, appErrors.ErrNothingToExport))

	require.NoError(t, svc.Open(context.Background(), k))
	link, err := svc.Export(k, FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, 3, link.Rows)
	assert.True(t, strings.HasPrefix(link.URL, "/exports/"))

	token := strings.TrimPrefix(link.URL, "/exports/")
	f, name, err := svc.OpenExport(token)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "historial_salidas_2024-05-14.pdf", name)
	head := make([]byte, 4)
	_, err = io.ReadFull(f, head)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(head))

	_, _, err = svc.OpenExport(token + "x")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestHistoryCloseDiscardsLateLoad(t *testing.T) {
	k := newTestKiosk(&fakeBackend{history: sampleLog()})
	svc := newHistoryService(t)
	require.NoError(t, svc.Open(context.Background(), k))
	require.NoError(t, svc.Close(k))

	assert.False(t, svc.View(k).Visible)
}

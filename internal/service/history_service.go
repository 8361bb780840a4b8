package service

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/exit-kiosk/internal/analytics"
	"github.com/noah-isme/exit-kiosk/internal/backend"
	"github.com/noah-isme/exit-kiosk/internal/dto"
	"github.com/noah-isme/exit-kiosk/internal/filter"
	"github.com/noah-isme/exit-kiosk/internal/historyflow"
	"github.com/noah-isme/exit-kiosk/internal/kiosk"
	"github.com/noah-isme/exit-kiosk/internal/models"
	appErrors "github.com/noah-isme/exit-kiosk/pkg/errors"
	"github.com/noah-isme/exit-kiosk/pkg/export"
	"github.com/noah-isme/exit-kiosk/pkg/storage"
)

// History notifications.
const (
	HistoryDeletedMessage   = "Registro eliminado."
	HistoryDeleteFailPrefix = "No se pudo eliminar: "
	HistoryDeleteConnError  = "Error al conectar con el servidor."
	historyExportTitle      = "Historial de salidas"
	historyExportPrefix     = "historial_salidas_"
	placeholderCell         = "-"
)

// Export formats.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// HistoryConfig tunes the history browser.
type HistoryConfig struct {
	Motives   []models.Motive
	Location  *time.Location
	ResultTTL time.Duration
}

// HistoryService drives the history browser of a kiosk and its exports.
type HistoryService struct {
	aggregator *analytics.Aggregator
	storage    fileStorage
	signer     *storage.SignedURLSigner
	csv        csvRenderer
	pdf        pdfRenderer
	cfg        HistoryConfig
	logger     *zap.Logger
	now        func() time.Time
}

// NewHistoryService constructs the history driver. storage and signer may be nil when
// exports are only rendered in memory.
func NewHistoryService(aggregator *analytics.Aggregator, files fileStorage, signer *storage.SignedURLSigner, cfg HistoryConfig, logger *zap.Logger) *HistoryService {
	if aggregator == nil {
		aggregator = analytics.New(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Motives) == 0 {
		cfg.Motives = models.DefaultMotives
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &HistoryService{
		aggregator: aggregator,
		storage:    files,
		signer:     signer,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter().Landscape(),
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the clock used for summaries and file names.
func (s *HistoryService) WithClock(now func() time.Time) *HistoryService {
	if now != nil {
		s.now = now
	}
	return s
}

// Open shows the browser and loads the log. A user-initiated open starts from cleared
// criteria.
func (s *HistoryService) Open(ctx context.Context, k *kiosk.Kiosk) error {
	var gen uint64
	err := k.Do(func(st *kiosk.State) error {
		next, err := st.History.Apply(historyflow.OpenEvent{})
		if err != nil {
			return err
		}
		st.History = next
		gen = next.Gen
		return nil
	})
	if err != nil {
		return err
	}
	return s.load(ctx, k, gen)
}

func (s *HistoryService) load(ctx context.Context, k *kiosk.Kiosk, gen uint64) error {
	rows, err := k.Session.History(ctx)

	var ev historyflow.Event = historyflow.LoadedEvent{Gen: gen, Rows: rows}
	if err != nil {
		ev = historyflow.LoadFailedEvent{Gen: gen, Message: historyflow.LoadErrorMessage}
		if !backend.IsSignInRequired(err) {
			s.logger.Warn("history load failed", zap.String("kiosk_id", k.ID), zap.Error(err))
		}
	}
	_ = k.Do(func(st *kiosk.State) error {
		next, applyErr := st.History.Apply(ev)
		if applyErr == nil {
			st.History = next
		}
		return nil
	})

	if backend.IsSignInRequired(err) {
		return err
	}
	return nil
}

// Filter applies the criteria to the loaded rows.
func (s *HistoryService) Filter(k *kiosk.Kiosk, criteria filter.HistoryCriteria) error {
	return s.apply(k, historyflow.FilterEvent{Criteria: criteria})
}

// Clear resets the criteria.
func (s *HistoryService) Clear(k *kiosk.Kiosk) error {
	return s.apply(k, historyflow.ClearFiltersEvent{})
}

// RequestDelete asks for confirmation before deleting the row keyed by pdf.
func (s *HistoryService) RequestDelete(k *kiosk.Kiosk, pdf string) error {
	return s.apply(k, historyflow.RequestDeleteEvent{PDF: pdf})
}

// CancelDelete drops the pending deletion.
func (s *HistoryService) CancelDelete(k *kiosk.Kiosk) error {
	return s.apply(k, historyflow.CancelDeleteEvent{})
}

// ConfirmDelete deletes the pending row and reloads the log with the current criteria.
func (s *HistoryService) ConfirmDelete(ctx context.Context, k *kiosk.Kiosk) error {
	var target string
	err := k.Do(func(st *kiosk.State) error {
		next, err := st.History.Apply(historyflow.ConfirmDeleteEvent{})
		if err != nil {
			return err
		}
		st.History = next
		target = next.Target
		return nil
	})
	if err != nil {
		return err
	}

	err = k.Session.DeleteHistory(ctx, target)
	if err != nil {
		_ = s.apply(k, historyflow.DeleteFailedEvent{Message: err.Error()})
		if backend.IsSignInRequired(err) {
			return err
		}
		k.Notify(kiosk.ToastError, deleteFailure(err))
		s.logger.Warn("history delete failed", zap.String("kiosk_id", k.ID), zap.String("pdf", target), zap.Error(err))
		return nil
	}

	var gen uint64
	_ = k.Do(func(st *kiosk.State) error {
		next, applyErr := st.History.Apply(historyflow.DeletedEvent{})
		if applyErr == nil {
			st.History = next
		}
		gen = st.History.Gen
		return nil
	})
	k.Notify(kiosk.ToastSuccess, HistoryDeletedMessage)
	s.logger.Info("history record deleted", zap.String("kiosk_id", k.ID), zap.String("pdf", target))
	return s.load(ctx, k, gen)
}

// Close hides the browser; loads still in flight are discarded.
func (s *HistoryService) Close(k *kiosk.Kiosk) error {
	return s.apply(k, historyflow.CloseEvent{})
}

// View renders the browser: table, counters and charts all come from the filtered view.
func (s *HistoryService) View(k *kiosk.Kiosk) dto.HistoryView {
	var m historyflow.Machine
	_ = k.Do(func(st *kiosk.State) error {
		m = st.History
		return nil
	})

	view := dto.HistoryView{
		Visible:  m.Visible(),
		Loading:  m.Loading(),
		Criteria: m.Criteria,
		Motives:  s.cfg.Motives,
		Deleting: m.State == historyflow.Deleting,
	}
	if m.State == historyflow.Failed {
		view.Error = m.Error
		return view
	}

	view.Empty = m.Empty()
	view.Rows = make([]dto.HistoryRowView, 0, len(m.View))
	for _, row := range m.View {
		view.Rows = append(view.Rows, HistoryRowView(row))
	}
	view.Summary = s.aggregator.Summarize(m.View, s.now().In(s.cfg.Location))
	view.DayBars = analytics.BarChart(view.Summary.Days)
	view.SessionBars = analytics.BarChart(view.Summary.Sessions)

	if row, ok := m.TargetRow(); ok {
		cell := HistoryRowView(row)
		view.Confirm = &cell
	}
	return view
}

// ReceiptFile fetches the official receipt of a listed row.
func (s *HistoryService) ReceiptFile(ctx context.Context, k *kiosk.Kiosk, pdf string) ([]byte, error) {
	return k.Session.ReceiptFile(ctx, pdf)
}

// Render builds an export of the rows matching term. Only the free-text filter applies.
func (s *HistoryService) Render(rows []models.HistoryRow, term, format string) ([]byte, string, int, error) {
	subset := filter.ExportSubset(rows, term)
	if len(subset) == 0 {
		return nil, "", 0, appErrors.ErrNothingToExport
	}

	dataset := HistoryDataset(subset)
	var (
		payload []byte
		err     error
	)
	switch format {
	case FormatCSV:
		payload, err = s.csv.Render(dataset)
	case FormatPDF:
		payload, err = s.pdf.Render(dataset, historyExportTitle)
	default:
		return nil, "", 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", format))
	}
	if err != nil {
		return nil, "", 0, err
	}

	filename := historyExportPrefix + s.now().In(s.cfg.Location).Format("2006-01-02") + "." + format
	return payload, filename, len(subset), nil
}

// Export renders the kiosk's loaded log and stores it behind a signed download link.
func (s *HistoryService) Export(k *kiosk.Kiosk, format string) (dto.ExportLink, error) {
	if s.storage == nil || s.signer == nil {
		return dto.ExportLink{}, appErrors.Clone(appErrors.ErrInternal, "export storage not configured")
	}

	var (
		rows []models.HistoryRow
		term string
	)
	_ = k.Do(func(st *kiosk.State) error {
		rows = st.History.Rows
		term = st.History.Criteria.Term
		return nil
	})

	payload, filename, count, err := s.Render(rows, term, format)
	if err != nil {
		return dto.ExportLink{}, err
	}

	exportID := uuid.NewString()
	relPath, err := s.storage.Save(path.Join("history", exportID, filename), payload)
	if err != nil {
		return dto.ExportLink{}, err
	}
	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return dto.ExportLink{}, err
	}

	s.logger.Info("history exported",
		zap.String("kiosk_id", k.ID),
		zap.String("format", format),
		zap.Int("rows", count),
	)
	return dto.ExportLink{
		URL:       "/exports/" + url.PathEscape(token),
		Filename:  filename,
		Format:    format,
		Rows:      count,
		ExpiresAt: expiresAt,
	}, nil
}

// OpenExport resolves a signed download token to the stored file.
func (s *HistoryService) OpenExport(token string) (*os.File, string, error) {
	if s.storage == nil || s.signer == nil {
		return nil, "", appErrors.ErrNotFound
	}
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export link expired or invalid")
	}
	f, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	return f, path.Base(relPath), nil
}

// RunCleanup removes stale exports every interval until ctx is done.
func (s *HistoryService) RunCleanup(ctx context.Context, interval time.Duration) {
	if s.storage == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
			if err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				s.logger.Info("export cleanup", zap.Int("removed", len(removed)))
			}
		}
	}
}

func (s *HistoryService) apply(k *kiosk.Kiosk, ev historyflow.Event) error {
	return k.Do(func(st *kiosk.State) error {
		next, err := st.History.Apply(ev)
		if err != nil {
			return err
		}
		st.History = next
		return nil
	})
}

// HistoryDataset lays rows out for the exporters. Headers are the keys of the first row.
func HistoryDataset(rows []models.HistoryRow) export.Dataset {
	data := export.Dataset{Rows: make([]map[string]string, 0, len(rows))}
	if len(rows) == 0 {
		return data
	}
	data.Headers = rows[0].Keys()
	for _, row := range rows {
		data.Rows = append(data.Rows, row.Values())
	}
	return data
}

// HistoryRowView applies the table placeholders to a row.
func HistoryRowView(row models.HistoryRow) dto.HistoryRowView {
	companion := row.DetalleAcompanante
	if companion == "" {
		companion = row.Acompanante
	}
	vuelve := "No"
	if row.Returns() {
		vuelve = fmt.Sprintf("Sí (%s)", orPlaceholder(row.Horas))
	}
	view := dto.HistoryRowView{
		Fecha:       orPlaceholder(row.Fecha),
		Hora:        orPlaceholder(row.Hora),
		Nombre:      orPlaceholder(row.Nombre),
		Grupo:       orPlaceholder(row.Grupo),
		Motivo:      orPlaceholder(row.Motivo),
		Acompanante: orPlaceholder(companion),
		Vuelve:      vuelve,
		PDF:         row.PDF,
		Deletable:   row.Deletable(),
	}
	if row.PDF != "" {
		view.PDFURL = backend.PathReceipts + url.PathEscape(row.PDF)
	}
	return view
}

func orPlaceholder(v string) string {
	if v == "" {
		return placeholderCell
	}
	return v
}

func deleteFailure(err error) string {
	if backend.IsUnavailable(err) {
		return HistoryDeleteConnError
	}
	return HistoryDeleteFailPrefix + backend.Reason(err, func(status int) string {
		return fmt.Sprintf("Error %d", status)
	})
}

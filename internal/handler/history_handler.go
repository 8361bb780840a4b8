package handler

import (
	"context"
	"net/http"
	"os"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exit-kiosk/internal/backend"
	"github.com/noah-isme/exit-kiosk/internal/dto"
	"github.com/noah-isme/exit-kiosk/internal/filter"
	"github.com/noah-isme/exit-kiosk/internal/kiosk"
	"github.com/noah-isme/exit-kiosk/internal/service"
	"github.com/noah-isme/exit-kiosk/internal/web"
	appErrors "github.com/noah-isme/exit-kiosk/pkg/errors"
	"github.com/noah-isme/exit-kiosk/pkg/response"
)

// NothingToExportMessage is shown when an export matches no rows.
const NothingToExportMessage = "No hay registros para exportar."

type historyDriver interface {
	Open(ctx context.Context, k *kiosk.Kiosk) error
	Filter(k *kiosk.Kiosk, criteria filter.HistoryCriteria) error
	Clear(k *kiosk.Kiosk) error
	RequestDelete(k *kiosk.Kiosk, pdf string) error
	CancelDelete(k *kiosk.Kiosk) error
	ConfirmDelete(ctx context.Context, k *kiosk.Kiosk) error
	Close(k *kiosk.Kiosk) error
	View(k *kiosk.Kiosk) dto.HistoryView
	ReceiptFile(ctx context.Context, k *kiosk.Kiosk, pdf string) ([]byte, error)
	Export(k *kiosk.Kiosk, format string) (dto.ExportLink, error)
	OpenExport(token string) (*os.File, string, error)
}

// HistoryHandler serves the history browser and its exports.
type HistoryHandler struct {
	service historyDriver
	cfg     PageConfig
}

// NewHistoryHandler constructs the history handler.
func NewHistoryHandler(svc historyDriver, cfg PageConfig) *HistoryHandler {
	return &HistoryHandler{service: svc, cfg: cfg}
}

// Page opens the browser when it is closed and renders it. Revisiting an open browser keeps
// its filters.
func (h *HistoryHandler) Page(c *gin.Context) {
	k, ok := kioskFromContext(c)
	if !ok {
		return
	}
	view := h.service.View(k)
	if !view.Visible {
		if err := h.service.Open(c.Request.Context(), k); err != nil {
			if backend.IsSignInRequired(err) {
				signIn(c, h.cfg.SignInPath)
				return
			}
			response.Error(c, err)
			return
		}
		view = h.service.View(k)
	}

	if wantsJSON(c) {
		response.JSON(c, http.StatusOK, view)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, web.HistoryPage, web.Page{
		Title:   pageTitle,
		History: view,
		Toasts:  k.DrainToasts(),
	})
}

// Filter godoc
// @Summary Filter history
// @Description Apply term, motive and date bounds to the loaded history
// @Tags History
// @Accept x-www-form-urlencoded
// @Produce json
// @Param payload body filter.HistoryCriteria true "Criteria"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /history/filter [post]
func (h *HistoryHandler) Filter(c *gin.Context) {
	k, ok := kioskFromContext(c)
	if !ok {
		return
	}
	var criteria filter.HistoryCriteria
	if err := c.ShouldBind(&criteria); err != nil {
		fail(c, k, h.cfg.SignInPath, "/history", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid history filter"))
		return
	}
	h.act(c, k, h.service.Filter(k, criteria))
}

// Clear resets the filters.
func (h *HistoryHandler) Clear(c *gin.Context) {
	k, ok := kioskFromContext(c)
	if !ok {
		return
	}
	h.act(c, k, h.service.Clear(k))
}

// RequestDelete godoc
// @Summary Stage history deletion
// @Description Ask for confirmation before deleting the record of a receipt
// @Tags History
// @Accept x-www-form-urlencoded
// @Produce json
// @Param pdf formData string true "Receipt file name"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /history/delete [post]
func (h *HistoryHandler) RequestDelete(c *gin.Context) {
	k, ok := kioskFromContext(c)
	if !ok {
		return
	}
	h.act(c, k, h.service.RequestDelete(k, c.PostForm("pdf")))
}

// ConfirmDelete godoc
// @Summary Delete history record
// @Description Delete the staged record on the backend and reload the history
// @Tags History
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /history/delete/confirm [post]
func (h *HistoryHandler) ConfirmDelete(c *gin.Context) {
	k, ok := kioskFromContext(c)
	if !ok {
		return
	}
	h.act(c, k, h.service.ConfirmDelete(c.Request.Context(), k))
}

// CancelDelete drops the staged deletion.
func (h *HistoryHandler) CancelDelete(c *gin.Context) {
	k, ok := kioskFromContext(c)
	if !ok {
		return
	}
	h.act(c, k, h.service.CancelDelete(k))
}

// Close hides the browser and returns to the roster.
func (h *HistoryHandler) Close(c *gin.Context) {
	k, ok := kioskFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Close(k); err != nil {
		fail(c, k, h.cfg.SignInPath, "/", err)
		return
	}
	finish(c, "/", nil)
}

// ExportCSV godoc
// @Summary Export history as CSV
// @Description Rows matching the free-text filter, as a signed download
// @Tags History
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /history/export.csv [get]
func (h *HistoryHandler) ExportCSV(c *gin.Context) {
	h.export(c, service.FormatCSV)
}

// ExportPDF godoc
// @Summary Export history as PDF
// @Description Rows matching the free-text filter, as a signed download
// @Tags History
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /history/export.pdf [get]
func (h *HistoryHandler) ExportPDF(c *gin.Context) {
	h.export(c, service.FormatPDF)
}

func (h *HistoryHandler) export(c *gin.Context, format string) {
	k, ok := kioskFromContext(c)
	if !ok {
		return
	}
	link, err := h.service.Export(k, format)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNothingToExport) && !wantsJSON(c) {
			k.Notify(kiosk.ToastWarning, NothingToExportMessage)
			c.Redirect(http.StatusSeeOther, "/history")
			return
		}
		fail(c, k, h.cfg.SignInPath, "/history", err)
		return
	}
	if wantsJSON(c) {
		response.JSON(c, http.StatusOK, link)
		return
	}
	c.Redirect(http.StatusSeeOther, link.URL)
}

// Download serves a stored export behind its signed token.
func (h *HistoryHandler) Download(c *gin.Context) {
	file, name, err := h.service.OpenExport(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), contentType(name), file, map[string]string{
		"Content-Disposition": "attachment; filename=\"" + name + "\"",
	})
}

// Receipt proxies the official receipt of a history row.
func (h *HistoryHandler) Receipt(c *gin.Context) {
	k, ok := kioskFromContext(c)
	if !ok {
		return
	}
	pdf, err := h.service.ReceiptFile(c.Request.Context(), k, c.Param("file"))
	if err != nil {
		if backend.IsSignInRequired(err) {
			signIn(c, h.cfg.SignInPath)
			return
		}
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *HistoryHandler) act(c *gin.Context, k *kiosk.Kiosk, err error) {
	if err != nil {
		fail(c, k, h.cfg.SignInPath, "/history", err)
		return
	}
	finish(c, "/history", h.service.View(k))
}

func contentType(name string) string {
	switch path.Ext(name) {
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".pdf":
		return "application/pdf"
	}
	return "application/octet-stream"
}

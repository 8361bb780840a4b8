package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exit-kiosk/internal/dto"
	"github.com/noah-isme/exit-kiosk/internal/kiosk"
	"github.com/noah-isme/exit-kiosk/internal/models"
	"github.com/noah-isme/exit-kiosk/internal/web"
	appErrors "github.com/noah-isme/exit-kiosk/pkg/errors"
	"github.com/noah-isme/exit-kiosk/pkg/response"
)

const pageTitle = "Registro de salidas"

type rosterDriver interface {
	EnsureLoaded(ctx context.Context, k *kiosk.Kiosk) error
	Load(ctx context.Context, k *kiosk.Kiosk) error
	View(k *kiosk.Kiosk) dto.RosterView
	Categories(k *kiosk.Kiosk) []string
	Publish(k *kiosk.Kiosk) dto.RosterView
}

type badgeLookup interface {
	Lookup(ctx context.Context, session kiosk.Backend, id models.StudentID) dto.Badge
}

type exitViewer interface {
	View(k *kiosk.Kiosk) dto.ExitView
}

type uploadDriver interface {
	Stage(k *kiosk.Kiosk, filename string, data []byte) (dto.UploadPreview, error)
	Pending(k *kiosk.Kiosk) (dto.UploadPreview, bool)
	Cancel(k *kiosk.Kiosk)
	Confirm(ctx context.Context, k *kiosk.Kiosk) error
}

// PageConfig holds what every page handler needs to know about navigation.
type PageConfig struct {
	SignInPath     string
	SearchDebounce time.Duration
	MaxUploadBytes int64
}

// RosterHandler serves the roster page and its maintenance actions.
type RosterHandler struct {
	roster rosterDriver
	badges badgeLookup
	exit   exitViewer
	upload uploadDriver
	cfg    PageConfig
}

// NewRosterHandler constructs the roster handler.
func NewRosterHandler(roster rosterDriver, badges badgeLookup, exit exitViewer, upload uploadDriver, cfg PageConfig) *RosterHandler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 * 1024 * 1024
	}
	return &RosterHandler{roster: roster, badges: badges, exit: exit, upload: upload, cfg: cfg}
}

// Index renders the roster with the exit form or receipt when one is open.
func (h *RosterHandler) Index(c *gin.Context) {
	k, ok := kioskFromContext(c)
	if !ok {
		return
	}
	if err := h.roster.EnsureLoaded(c.Request.Context(), k); err != nil {
		signIn(c, h.cfg.SignInPath)
		return
	}

	page := web.Page{
		Title:      pageTitle,
		Roster:     h.roster.View(k),
		Categories: h.roster.Categories(k),
		DebounceMS: h.cfg.SearchDebounce.Milliseconds(),
		Exit:       h.exit.View(k),
	}
	if preview, staged := h.upload.Pending(k); staged {
		page.Upload = &preview
	}
	page.Toasts = k.DrainToasts()
	c.Header("Cache-Control", "no-store")
	c.HTML(http.StatusOK, web.RosterPage, page)
}

// Reload godoc
// @Summary Reload roster
// @Description Fetch the roster again from the backend and refresh live subscribers
// @Tags Roster
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /roster/reload [post]
func (h *RosterHandler) Reload(c *gin.Context) {
	k, ok := kioskFromContext(c)
	if !ok {
		return
	}
	if err := h.roster.Load(c.Request.Context(), k); err != nil {
		fail(c, k, h.cfg.SignInPath, "/", err)
		return
	}
	finish(c, "/", h.roster.Publish(k))
}

// Badge godoc
// @Summary Student exit badge
// @Description Exit counters of one student; lookup failures yield an empty badge
// @Tags Roster
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/badge [get]
func (h *RosterHandler) Badge(c *gin.Context) {
	k, ok := kioskFromContext(c)
	if !ok {
		return
	}
	badge := h.badges.Lookup(c.Request.Context(), k.Session, models.StudentID(c.Param("id")))
	response.JSON(c, http.StatusOK, badge)
}

// Upload godoc
// @Summary Stage roster upload
// @Description Keep a roster spreadsheet until the user confirms it. Nothing is sent yet.
// @Tags Roster
// @Accept mpfd
// @Produce json
// @Param file formData file true "Roster spreadsheet"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /roster/upload [post]
func (h *RosterHandler) Upload(c *gin.Context) {
	k, ok := kioskFromContext(c)
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		fail(c, k, h.cfg.SignInPath, "/", appErrors.Clone(appErrors.ErrValidation, "file required"))
		return
	}
	if header.Size > h.cfg.MaxUploadBytes {
		fail(c, k, h.cfg.SignInPath, "/", appErrors.Clone(appErrors.ErrValidation, "file too large"))
		return
	}
	file, err := header.Open()
	if err != nil {
		fail(c, k, h.cfg.SignInPath, "/", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "cannot read file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.cfg.MaxUploadBytes+1))
	if err != nil {
		fail(c, k, h.cfg.SignInPath, "/", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "cannot read file"))
		return
	}

	preview, err := h.upload.Stage(k, header.Filename, data)
	if err != nil {
		fail(c, k, h.cfg.SignInPath, "/", err)
		return
	}
	finish(c, "/", preview)
}

// ConfirmUpload godoc
// @Summary Confirm roster upload
// @Description Send the staged spreadsheet to the backend and refetch the roster
// @Tags Roster
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /roster/upload/confirm [post]
func (h *RosterHandler) ConfirmUpload(c *gin.Context) {
	k, ok := kioskFromContext(c)
	if !ok {
		return
	}
	if err := h.upload.Confirm(c.Request.Context(), k); err != nil {
		fail(c, k, h.cfg.SignInPath, "/", err)
		return
	}
	finish(c, "/", h.roster.View(k))
}

// CancelUpload drops the staged spreadsheet.
func (h *RosterHandler) CancelUpload(c *gin.Context) {
	k, ok := kioskFromContext(c)
	if !ok {
		return
	}
	h.upload.Cancel(k)
	finish(c, "/", nil)
}

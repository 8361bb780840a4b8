package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/exit-kiosk/internal/dto"
	"github.com/noah-isme/exit-kiosk/internal/exitflow"
	"github.com/noah-isme/exit-kiosk/internal/kiosk"
	"github.com/noah-isme/exit-kiosk/internal/models"
	appErrors "github.com/noah-isme/exit-kiosk/pkg/errors"
)

const receiptFilename = "parte_salida.pdf"

var registerOnce sync.Once

// RegisterValidators adds the kiosk's form tags to gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("companion", func(fl validator.FieldLevel) bool {
			return models.Companion(fl.Field().String()).Valid()
		})
	})
}

type exitDriver interface {
	Open(k *kiosk.Kiosk, studentID string) error
	Update(k *kiosk.Kiosk, form exitflow.Form) error
	Submit(ctx context.Context, k *kiosk.Kiosk) error
	SubmitForm(ctx context.Context, k *kiosk.Kiosk, form exitflow.Form) error
	Close(k *kiosk.Kiosk) error
	ReceiptPDF(k *kiosk.Kiosk) ([]byte, error)
	View(k *kiosk.Kiosk) dto.ExitView
}

// ExitHandler drives the sign-out form.
type ExitHandler struct {
	service exitDriver
	cfg     PageConfig
}

// NewExitHandler constructs the exit handler.
func NewExitHandler(svc exitDriver, cfg PageConfig) *ExitHandler {
	RegisterValidators()
	return &ExitHandler{service: svc, cfg: cfg}
}

// Open godoc
// @Summary Open exit form
// @Description Open a fresh sign-out form for a roster student
// @Tags Exit
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /exit/{studentId} [post]
func (h *ExitHandler) Open(c *gin.Context) {
	k, ok := kioskFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Open(k, c.Param("studentId")); err != nil {
		fail(c, k, h.cfg.SignInPath, "/", err)
		return
	}
	finish(c, "/", h.service.View(k))
}

// Update godoc
// @Summary Edit exit form
// @Description Replace motive, companion and return periods of the open form
// @Tags Exit
// @Accept x-www-form-urlencoded
// @Produce json
// @Param payload body exitflow.Form true "Form values"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /exit/form [post]
func (h *ExitHandler) Update(c *gin.Context) {
	k, ok := kioskFromContext(c)
	if !ok {
		return
	}
	var form exitflow.Form
	if err := c.ShouldBind(&form); err != nil {
		fail(c, k, h.cfg.SignInPath, "/", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exit form"))
		return
	}
	if err := h.service.Update(k, form); err != nil {
		fail(c, k, h.cfg.SignInPath, "/", err)
		return
	}
	finish(c, "/", h.service.View(k))
}

// Submit godoc
// @Summary Save exit
// @Description Post the exit record to the backend; the receipt is shown on success. Form values
// @Description sent with the request replace those of the open form first.
// @Tags Exit
// @Accept x-www-form-urlencoded
// @Produce json
// @Param payload body exitflow.Form false "Form values"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /exit/submit [post]
func (h *ExitHandler) Submit(c *gin.Context) {
	k, ok := kioskFromContext(c)
	if !ok {
		return
	}

	var err error
	if carriesForm(c) {
		var form exitflow.Form
		if bindErr := c.ShouldBind(&form); bindErr != nil {
			fail(c, k, h.cfg.SignInPath, "/", appErrors.Wrap(bindErr, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exit form"))
			return
		}
		err = h.service.SubmitForm(c.Request.Context(), k, form)
	} else {
		err = h.service.Submit(c.Request.Context(), k)
	}
	if err != nil {
		fail(c, k, h.cfg.SignInPath, "/", err)
		return
	}
	finish(c, "/", h.service.View(k))
}

// Close hides the form or the receipt.
func (h *ExitHandler) Close(c *gin.Context) {
	k, ok := kioskFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Close(k); err != nil {
		fail(c, k, h.cfg.SignInPath, "/", err)
		return
	}
	finish(c, "/", h.service.View(k))
}

// Receipt godoc
// @Summary Receipt PDF
// @Description Printable copy of the last saved exit
// @Tags Exit
// @Produce application/pdf
// @Success 200 {file} binary
// @Failure 409 {object} response.Envelope
// @Router /exit/receipt.pdf [get]
func (h *ExitHandler) Receipt(c *gin.Context) {
	k, ok := kioskFromContext(c)
	if !ok {
		return
	}
	pdf, err := h.service.ReceiptPDF(k)
	if err != nil {
		fail(c, k, h.cfg.SignInPath, "/", err)
		return
	}
	c.Header("Content-Disposition", "inline; filename=\""+receiptFilename+"\"")
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// carriesForm reports whether the request brings form values along.
func carriesForm(c *gin.Context) bool {
	if c.ContentType() == binding.MIMEJSON {
		return c.Request.ContentLength > 0
	}
	if err := c.Request.ParseForm(); err != nil {
		return false
	}
	return len(c.Request.PostForm) > 0
}

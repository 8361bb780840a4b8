package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exit-kiosk/internal/kiosk"
	"github.com/noah-isme/exit-kiosk/internal/middleware"
	"github.com/noah-isme/exit-kiosk/internal/models"
	"github.com/noah-isme/exit-kiosk/internal/web"
	appErrors "github.com/noah-isme/exit-kiosk/pkg/errors"
	"github.com/noah-isme/exit-kiosk/pkg/response"
)

type authDriver interface {
	Login(ctx context.Context, k *kiosk.Kiosk, req models.LoginRequest) error
	Logout(ctx context.Context, k *kiosk.Kiosk)
}

type kioskRemover interface {
	Delete(id string)
}

// AuthHandler forwards sign-in and sign-out to the backend.
type AuthHandler struct {
	service authDriver
	store   kioskRemover
	cookie  middleware.CookieConfig
	cfg     PageConfig
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authDriver, store kioskRemover, cookie middleware.CookieConfig, cfg PageConfig) *AuthHandler {
	return &AuthHandler{service: svc, store: store, cookie: cookie, cfg: cfg}
}

// LoginPage renders the sign-in form.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, web.LoginPage, web.Page{
		Title: pageTitle,
		Next:  safeNext(c.Query("next")),
	})
}

// Login godoc
// @Summary Sign in
// @Description Forward the staff password to the backend; the backend session stays on the kiosk
// @Tags Authentication
// @Accept x-www-form-urlencoded
// @Produce json
// @Param password formData string true "Password"
// @Param next formData string false "Page to return to"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	k, ok := kioskFromContext(c)
	if !ok {
		return
	}
	var req models.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload"))
		return
	}

	next := safeNext(req.Next)
	if err := h.service.Login(c.Request.Context(), k, req); err != nil {
		if wantsJSON(c) {
			response.Error(c, err)
			return
		}
		appErr := appErrors.FromError(err)
		c.HTML(appErr.Status, web.LoginPage, web.Page{
			Title:      pageTitle,
			LoginError: appErr.Message,
			Next:       next,
		})
		return
	}

	if wantsJSON(c) {
		response.JSON(c, http.StatusOK, gin.H{"next": next})
		return
	}
	c.Redirect(http.StatusSeeOther, next)
}

// Logout ends the backend session, forgets the kiosk and always lands on the sign-in page.
func (h *AuthHandler) Logout(c *gin.Context) {
	if k := middleware.Kiosk(c); k != nil {
		h.service.Logout(c.Request.Context(), k)
		h.store.Delete(k.ID)
	}
	name := h.cookie.Name
	if name == "" {
		name = "kiosk_session"
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", h.cookie.Secure, true)

	signInPath := h.cfg.SignInPath
	if signInPath == "" {
		signInPath = defaultSignInPath
	}
	c.Redirect(http.StatusSeeOther, signInPath)
}

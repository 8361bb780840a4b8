package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exit-kiosk/internal/backend"
	"github.com/noah-isme/exit-kiosk/internal/kiosk"
	"github.com/noah-isme/exit-kiosk/internal/middleware"
	appErrors "github.com/noah-isme/exit-kiosk/pkg/errors"
	"github.com/noah-isme/exit-kiosk/pkg/response"
)

const defaultSignInPath = "/login"

func kioskFromContext(c *gin.Context) (*kiosk.Kiosk, bool) {
	k := middleware.Kiosk(c)
	if k == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "kiosk session missing"))
		return nil, false
	}
	return k, true
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// signIn sends the browser to the sign-in page, remembering the page it came from.
func signIn(c *gin.Context, signInPath string) {
	if wantsJSON(c) {
		response.Error(c, appErrors.ErrSignInRequired)
		return
	}
	if signInPath == "" {
		signInPath = defaultSignInPath
	}
	next := "/"
	if c.Request.Method == http.MethodGet {
		next = c.Request.URL.RequestURI()
	}
	c.Redirect(http.StatusSeeOther, signInPath+"?next="+url.QueryEscape(next))
}

// finish ends a state-changing action. Browsers follow Post/Redirect/Get back to the page;
// JSON callers get the new view.
func finish(c *gin.Context, redirect string, data interface{}) {
	if wantsJSON(c) {
		response.JSON(c, http.StatusOK, data)
		return
	}
	c.Redirect(http.StatusSeeOther, redirect)
}

// fail reports an action error: sign-in challenges redirect, anything else becomes a toast.
func fail(c *gin.Context, k *kiosk.Kiosk, signInPath, redirect string, err error) {
	if backend.IsSignInRequired(err) {
		signIn(c, signInPath)
		return
	}
	if wantsJSON(c) {
		response.Error(c, err)
		return
	}
	if k != nil {
		k.Notify(kiosk.ToastError, appErrors.FromError(err).Message)
	}
	c.Redirect(http.StatusSeeOther, redirect)
}

// safeNext keeps post-login redirects on this host.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return "/"
	}
	return next
}

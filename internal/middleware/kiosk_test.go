package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exit-kiosk/internal/backend"
	"github.com/noah-isme/exit-kiosk/internal/exitflow"
	"github.com/noah-isme/exit-kiosk/internal/kiosk"
	"github.com/noah-isme/exit-kiosk/internal/service"
)

func newRouter(store *kiosk.Store, auth *service.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(KioskSession(store, auth, CookieConfig{Name: "ks"}, nil))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, Kiosk(c).ID)
	})
	return r
}

func TestKioskSessionIssuesAndReusesCookie(t *testing.T) {
	store := kiosk.NewStore(backend.New("http://backend.invalid", time.Second), exitflow.DefaultOptions(), time.Hour, nil)
	auth := service.NewAuthService(nil, nil, service.AuthConfig{Secret: "s", TTL: time.Hour})
	r := newRouter(store, auth)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "ks", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	first := rec.Body.String()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, first, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, 1, store.Count())
}

func TestKioskSessionReplacesForgedCookie(t *testing.T) {
	store := kiosk.NewStore(backend.New("http://backend.invalid", time.Second), exitflow.DefaultOptions(), time.Hour, nil)
	auth := service.NewAuthService(nil, nil, service.AuthConfig{Secret: "s", TTL: time.Hour})
	r := newRouter(store, auth)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "ks", Value: "forged"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, 1, store.Count())
}

type recordingObserver struct{ paths []string }

func (o *recordingObserver) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	o.paths = append(o.paths, method+" "+path)
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	obs := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(obs))
	r.GET("/students/:id/badge", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/students/7/badge", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, []string{"GET /students/:id/badge", "GET unmatched"}, obs.paths)
}

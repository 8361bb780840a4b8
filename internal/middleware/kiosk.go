package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/exit-kiosk/internal/kiosk"
	"github.com/noah-isme/exit-kiosk/internal/models"
	"github.com/noah-isme/exit-kiosk/pkg/logger"
)

// ContextKioskKey is the gin context key storing the current *kiosk.Kiosk.
const ContextKioskKey = "kiosk"

type sessionSigner interface {
	IssueSessionToken(kioskID string) (string, time.Time, error)
	ValidateToken(token string) (*models.KioskClaims, error)
}

type kioskStore interface {
	Get(id string) (*kiosk.Kiosk, bool)
	Create() *kiosk.Kiosk
}

// CookieConfig describes the kiosk session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// KioskSession binds every request to the kiosk of its browser. A missing, forged or expired
// cookie, or one naming a kiosk that no longer exists, starts a new kiosk.
func KioskSession(store kioskStore, signer sessionSigner, cookie CookieConfig, log *zap.Logger) gin.HandlerFunc {
	if cookie.Name == "" {
		cookie.Name = "kiosk_session"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		var k *kiosk.Kiosk
		if raw, err := c.Cookie(cookie.Name); err == nil && raw != "" {
			if claims, err := signer.ValidateToken(raw); err == nil {
				k, _ = store.Get(claims.KioskID)
			}
		}

		if k == nil {
			k = store.Create()
			token, expiresAt, err := signer.IssueSessionToken(k.ID)
			if err != nil {
				log.Error("issue kiosk session", zap.Error(err))
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cookie.Name, token, int(time.Until(expiresAt).Seconds()), "/", "", cookie.Secure, true)
		}

		c.Set(ContextKioskKey, k)
		c.Set(logger.KioskIDKey, k.ID)
		c.Next()
	}
}

// Kiosk returns the kiosk bound by KioskSession.
func Kiosk(c *gin.Context) *kiosk.Kiosk {
	value, exists := c.Get(ContextKioskKey)
	if !exists {
		return nil
	}
	k, _ := value.(*kiosk.Kiosk)
	return k
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/exit-kiosk/internal/backend"
	"github.com/noah-isme/exit-kiosk/internal/kiosk"
	"github.com/noah-isme/exit-kiosk/internal/models"
	appErrors "github.com/noah-isme/exit-kiosk/pkg/errors"
)

// AuthConfig configures the kiosk session cookie.
type AuthConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// AuthService signs kiosk session cookies and forwards sign-in and sign-out to the backend.
// The kiosk never checks the password itself.
type AuthService struct {
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs the auth service.
func NewAuthService(validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.TTL <= 0 {
		config.TTL = 12 * time.Hour
	}
	if config.Issuer == "" {
		config.Issuer = "exit-kiosk"
	}
	return &AuthService{validator: validate, logger: logger, config: config, now: time.Now}
}

// IssueSessionToken signs a cookie value binding the browser to kioskID.
func (s *AuthService) IssueSessionToken(kioskID string) (string, time.Time, error) {
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.config.TTL)
	claims := &models.KioskClaims{
		KioskID: kioskID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   kioskID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken parses a session cookie value.
func (s *AuthService) ValidateToken(tokenString string) (*models.KioskClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.KioskClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(s.config.Issuer))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid session")
	}

	claims, ok := token.Claims.(*models.KioskClaims)
	if !ok || !token.Valid || claims.KioskID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session claims")
	}
	return claims, nil
}

// Login forwards the password. A wrong password comes back as a validation error carrying
// the message to show on the form.
func (s *AuthService) Login(ctx context.Context, k *kiosk.Kiosk, req models.LoginRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "Introduce la contraseña")
	}
	if err := k.Session.Login(ctx, req.Password); err != nil {
		if backend.IsUnavailable(err) {
			return err
		}
		s.logger.Info("sign in rejected", zap.String("kiosk_id", k.ID))
		return appErrors.Clone(appErrors.ErrValidation, backend.Reason(err, func(status int) string {
			return fmt.Sprintf("Error %d", status)
		}))
	}
	s.logger.Info("kiosk signed in", zap.String("kiosk_id", k.ID))
	return nil
}

// Logout ends the backend session. The browser goes to the sign-in page whatever happens.
func (s *AuthService) Logout(ctx context.Context, k *kiosk.Kiosk) {
	if err := k.Session.Logout(ctx); err != nil {
		s.logger.Warn("logout failed", zap.String("kiosk_id", k.ID), zap.Error(err))
	}
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exit-kiosk/internal/backend"
	"github.com/noah-isme/exit-kiosk/internal/models"
	appErrors "github.com/noah-isme/exit-kiosk/pkg/errors"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	svc := NewAuthService(nil, nil, AuthConfig{Secret: "secret", TTL: time.Hour})

	token, expiresAt, err := svc.IssueSessionToken("kiosk-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "kiosk-1", claims.KioskID)
}

func TestSessionTokenRejectsForeignSecretAndExpiry(t *testing.T) {
	svc := NewAuthService(nil, nil, AuthConfig{Secret: "secret", TTL: time.Hour})
	other := NewAuthService(nil, nil, AuthConfig{Secret: "other", TTL: time.Hour})

	token, _, err := other.IssueSessionToken("kiosk-1")
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	past := NewAuthService(nil, nil, AuthConfig{Secret: "secret", TTL: time.Minute})
	past.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err = past.IssueSessionToken("kiosk-1")
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestLoginForwardsPassword(t *testing.T) {
	svc := NewAuthService(nil, nil, AuthConfig{Secret: "secret"})

	k := newTestKiosk(&fakeBackend{})
	require.NoError(t, svc.Login(context.Background(), k, models.LoginRequest{Password: "1234"}))

	err := svc.Login(context.Background(), k, models.LoginRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	k = newTestKiosk(&fakeBackend{loginErr: &backend.RejectedError{Status: 401, Message: "Contraseña incorrecta"}})
	err = svc.Login(context.Background(), k, models.LoginRequest{Password: "bad"})
	require.Error(t, err)
	assert.Equal(t, "Contraseña incorrecta", appErrors.FromError(err).Message)
}

func TestLogoutAlwaysSucceeds(t *testing.T) {
	fb := &fakeBackend{}
	svc := NewAuthService(nil, nil, AuthConfig{Secret: "secret"})
	svc.Logout(context.Background(), newTestKiosk(fb))
	assert.True(t, fb.loggedOut)
}

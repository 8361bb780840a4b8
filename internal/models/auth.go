package models

import "github.com/golang-jwt/jwt/v5"

// LoginRequest is the sign-in form. The password is forwarded to the backend untouched.
type LoginRequest struct {
	Password string `form:"password" json:"password" validate:"required"`
	Next     string `form:"next" json:"-"`
}

// KioskClaims is the payload of the signed kiosk session cookie.
type KioskClaims struct {
	KioskID string `json:"kid"`
	jwt.RegisteredClaims
}

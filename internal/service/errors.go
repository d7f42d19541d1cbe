package service

import (
	"errors"
	"fmt"
)

// Categorías de error expuestas por el servicio. Los errores concretos las
// envuelven para que los handlers puedan usar errors.Is sobre la categoría.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
	ErrRateLimited  = errors.New("rate limited")
)

var (
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrCodeNotFound       = fmt.Errorf("verification code %w", ErrNotFound)
	ErrCodeExpired        = fmt.Errorf("verification code expired: %w", ErrNotFound)
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	ErrEmailNotVerified   = fmt.Errorf("email not verified: %w", ErrUnauthorized)
	ErrEmailTaken         = fmt.Errorf("email already registered: %w", ErrConflict)
	ErrAlreadyVerified    = fmt.Errorf("email already verified: %w", ErrConflict)
	ErrInvalidEmail       = fmt.Errorf("invalid email: %w", ErrInvalidInput)
	ErrInvalidPassword    = fmt.Errorf("invalid password: %w", ErrInvalidInput)
)

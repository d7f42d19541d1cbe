package domain

import (
	"errors"
	"time"
)

// CodePurpose indica el flujo al que pertenece un código de un solo uso.
type CodePurpose string

const (
	PurposeEmailVerification CodePurpose = "email_verification"
	PurposePasswordReset     CodePurpose = "password_reset"
)

// ErrUnknownPurpose lo devuelven los stores al recibir un propósito no soportado.
var ErrUnknownPurpose = errors.New("unknown code purpose")

func (p CodePurpose) Valid() bool {
	switch p {
	case PurposeEmailVerification, PurposePasswordReset:
		return true
	default:
		return false
	}
}

// VerificationCode representa un código pendiente de consumo.
// Code guarda el digest del valor enviado por email, nunca el valor en claro.
type VerificationCode struct {
	Code      string      `json:"code"`
	UserID    string      `json:"user_id"`
	Purpose   CodePurpose `json:"purpose"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Expired indica si el código venció respecto de now. Un ExpiresAt cero no vence.
func (c VerificationCode) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}

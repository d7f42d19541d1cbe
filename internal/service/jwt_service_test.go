package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"account-lifecycle/internal/domain"
)

func TestJWTService_IssueParse(t *testing.T) {
	svc := NewJWTService("secret", 0)
	user := domain.User{
		ID:           "u1",
		Email:        "user@example.com",
		FirstName:    "Ana",
		PasswordHash: "hash",
		Verified:     true,
		CreatedAt:    time.Now().UTC(),
	}

	token, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if token.AccessToken == "" || token.TokenType != "Bearer" {
		t.Fatalf("unexpected token: %+v", token)
	}
	if token.ExpiresIn != int64((24 * time.Hour).Seconds()) {
		t.Fatalf("expected default 24h ttl, got %d", token.ExpiresIn)
	}

	claims, err := svc.Parse(token.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "user@example.com" || !claims.Verified {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestJWTService_PayloadHasNoPasswordField(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	token, err := svc.Issue(domain.User{ID: "u1", Email: "user@example.com", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token.AccessToken, jwt.MapClaims{})
	if err != nil {
		t.Fatalf("parse unverified: %v", err)
	}
	for key := range parsed.Claims.(jwt.MapClaims) {
		if strings.Contains(strings.ToLower(key), "password") {
			t.Fatalf("unexpected claim %q", key)
		}
	}
}

func TestJWTService_Expired(t *testing.T) {
	svc := NewJWTService("secret", time.Minute)
	token, err := svc.Issue(domain.User{ID: "u1", Email: "user@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	svc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Minute) }
	if _, err := svc.Parse(token.AccessToken); !errors.Is(err, ErrJWTExpired) {
		t.Fatalf("expected ErrJWTExpired, got %v", err)
	}
}

func TestJWTService_RejectsEmptySecret(t *testing.T) {
	svc := NewJWTService("", time.Hour)
	user := domain.User{ID: "u1", Email: "user@example.com"}

	if _, err := svc.Issue(user); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid on empty secret, got %v", err)
	}
	if _, err := svc.Parse("anything"); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid on empty secret, got %v", err)
	}
}

func TestJWTService_RejectsOtherSecret(t *testing.T) {
	issuer := NewJWTService("secret", time.Hour)
	token, err := issuer.Issue(domain.User{ID: "u1", Email: "user@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := NewJWTService("other", time.Hour).Parse(token.AccessToken); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid for foreign signature, got %v", err)
	}
}

func TestJWTService_RejectsWrongIssuer(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	now := time.Now().UTC()
	claims := Claims{
		UserID: "u1",
		Email:  "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "other-issuer",
			Subject:   "u1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := svc.Parse(signed); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid for wrong issuer, got %v", err)
	}
}

func TestJWTService_RejectsNoneAlgorithm(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	now := time.Now().UTC()
	claims := Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := svc.Parse(signed); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid for alg none, got %v", err)
	}
}

func TestJWTService_RequiresUserID(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	if _, err := svc.Issue(domain.User{Email: "user@example.com"}); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid without user id, got %v", err)
	}
}

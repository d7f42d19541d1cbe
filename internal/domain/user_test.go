package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestUserPublicStripsPassword(t *testing.T) {
	u := User{ID: "u1", Email: "a@x.com", PasswordHash: "hash"}
	if u.Public().PasswordHash != "" {
		t.Fatalf("expected password hash stripped")
	}
	if u.PasswordHash != "hash" {
		t.Fatalf("expected original user untouched")
	}
}

func TestUserJSONOmitsPassword(t *testing.T) {
	raw, err := json.Marshal(User{ID: "u1", Email: "a@x.com", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "hash") {
		t.Fatalf("expected password hash excluded, got %s", raw)
	}
}

func TestVerificationCodeExpired(t *testing.T) {
	now := time.Now().UTC()
	if (VerificationCode{}).Expired(now) {
		t.Fatalf("expected zero expiry to never expire")
	}
	if !(VerificationCode{ExpiresAt: now}).Expired(now) {
		t.Fatalf("expected code to expire at ExpiresAt")
	}
	if (VerificationCode{ExpiresAt: now.Add(time.Second)}).Expired(now) {
		t.Fatalf("expected future expiry to be valid")
	}
}

func TestCodePurposeValid(t *testing.T) {
	if !PurposeEmailVerification.Valid() || !PurposePasswordReset.Valid() {
		t.Fatalf("expected known purposes to be valid")
	}
	if CodePurpose("other").Valid() {
		t.Fatalf("expected unknown purpose to be invalid")
	}
}

package auth

import (
	"strings"
	"testing"
	"time"
)

func TestSignAndVerifyHS256(t *testing.T) {
	secret := "test-secret"
	claims := Claims{
		Sub:        "user-1",
		BusinessID: "biz-1",
		Role:       "owner",
		Iat:        time.Now().Unix(),
		Exp:        time.Now().Add(time.Hour).Unix(),
	}

	token, err := SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}

	parsed, err := ParseAndVerifyHS256(token, secret)
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256 failed: %v", err)
	}
	if parsed.Sub != claims.Sub || parsed.BusinessID != claims.BusinessID || parsed.Role != claims.Role {
		t.Fatalf("claims mismatch: %+v", parsed)
	}
}

func TestVerifyHS256_WrongSecret(t *testing.T) {
	token, err := SignHS256(Claims{Sub: "user-1", Role: "customer", Exp: time.Now().Add(time.Hour).Unix()}, "secret-a")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "secret-b"); err == nil {
		t.Fatal("expected verification failure with wrong secret")
	}
}

func TestVerifyHS256_ExpiredToken(t *testing.T) {
	token, err := SignHS256(Claims{Sub: "user-1", Role: "customer", Exp: time.Now().Add(-time.Minute).Unix()}, "secret")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "secret"); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestVerifyHS256_Malformed(t *testing.T) {
	for _, token := range []string{"", "a.b", "a.b.c.d", strings.Repeat("x", 64)} {
		if _, err := ParseAndVerifyHS256(token, "secret"); err == nil {
			t.Fatalf("expected malformed token %q to be rejected", token)
		}
	}
}

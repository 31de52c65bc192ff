package auth

import (
	"errors"
	"testing"
	"time"
)

func makeToken(t *testing.T, secret string, userID int64, expires time.Time) string {
	t.Helper()
	token, err := SignToken(secret, Claims{
		UserID:    userID,
		Username:  "alice",
		Avatar:    "/avatars/alice.png",
		ExpiresAt: expires,
		IssuedAt:  expires.Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	return token
}

func TestHMACTokenVerifierValidToken(t *testing.T) {
	verifier, err := NewHMACTokenVerifier("secret", time.Second)
	if err != nil {
		t.Fatalf("NewHMACTokenVerifier: %v", err)
	}
	fixedNow := time.Unix(1700000000, 0)
	verifier.WithClock(func() time.Time { return fixedNow })
	token := makeToken(t, "secret", 7, fixedNow.Add(30*time.Second))

	claims, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if claims.UserID != 7 {
		t.Fatalf("unexpected user id: %d", claims.UserID)
	}
	if claims.Username != "alice" || claims.Avatar != "/avatars/alice.png" {
		t.Fatalf("identity claims lost: %+v", claims)
	}
	if claims.ExpiresAt.Before(fixedNow) {
		t.Fatal("expected expiry in the future")
	}
}

func TestHMACTokenVerifierRejectsExpiredToken(t *testing.T) {
	verifier, err := NewHMACTokenVerifier("secret", 0)
	if err != nil {
		t.Fatalf("NewHMACTokenVerifier: %v", err)
	}
	now := time.Unix(1700000000, 0)
	verifier.WithClock(func() time.Time { return now })
	token := makeToken(t, "secret", 7, now.Add(-time.Second))

	if _, err := verifier.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestHMACTokenVerifierRejectsInvalidSignature(t *testing.T) {
	verifier, err := NewHMACTokenVerifier("secret", time.Second)
	if err != nil {
		t.Fatalf("NewHMACTokenVerifier: %v", err)
	}
	now := time.Unix(1700000000, 0)
	verifier.WithClock(func() time.Time { return now })
	token := makeToken(t, "other-secret", 7, now.Add(time.Minute))

	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestSignTokenRejectsBadInput(t *testing.T) {
	if _, err := SignToken("", Claims{UserID: 1}); err == nil {
		t.Fatal("empty secret accepted")
	}
	if _, err := SignToken("secret", Claims{}); err == nil {
		t.Fatal("missing user id accepted")
	}
}

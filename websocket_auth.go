package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pongarena/server/internal/auth"
)

type websocketAuthenticator interface {
	Authenticate(r *http.Request) (*auth.Claims, error)
}

// queryAuthenticator trusts identity query parameters outright. Development
// fallback when no auth secret is configured.
type queryAuthenticator struct{}

func (queryAuthenticator) Authenticate(r *http.Request) (*auth.Claims, error) {
	userID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("user_id")), 10, 64)
	if err != nil || userID <= 0 {
		return nil, errors.New("missing or invalid user_id")
	}
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		username = fmt.Sprintf("player-%d", userID)
	}
	return &auth.Claims{
		UserID:   userID,
		Username: username,
		Avatar:   strings.TrimSpace(r.URL.Query().Get("avatar")),
	}, nil
}

type hmacWebsocketAuthenticator struct {
	verifier *auth.HMACTokenVerifier
}

func newHMACWebsocketAuthenticator(secret string) (websocketAuthenticator, error) {
	verifier, err := auth.NewHMACTokenVerifier(secret, 2*time.Second)
	if err != nil {
		return nil, err
	}
	return &hmacWebsocketAuthenticator{verifier: verifier}, nil
}

// Authenticate validates the session token and returns the player identity.
func (a *hmacWebsocketAuthenticator) Authenticate(r *http.Request) (*auth.Claims, error) {
	if a == nil || a.verifier == nil {
		return nil, errors.New("verifier not configured")
	}
	token := strings.TrimSpace(r.URL.Query().Get("auth_token"))
	if token == "" {
		token = strings.TrimSpace(r.Header.Get("X-Auth-Token"))
	}
	if token == "" {
		return nil, errors.New("missing auth token")
	}
	return a.verifier.Verify(token)
}

// Package session owns the single authenticated Spotify session of the
// process: acquiring it, caching it between runs and refreshing it.
package session

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Session is the credential bundle used to authorize upstream calls.
type Session struct {
	AccessToken   string
	RefreshToken  string
	ExpiresAt     time.Time
	GrantedScopes []string
}

// IsStale reports whether the access token must be refreshed before use at now.
func (s *Session) IsStale(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// HasScopes reports whether every scope in required was granted.
func (s *Session) HasScopes(required []string) bool {
	return len(MissingScopes(s.GrantedScopes, required)) == 0
}

// MissingScopes returns the entries of required that are absent from granted,
// in the order of required.
func MissingScopes(granted, required []string) []string {
	var missing []string
	for _, r := range required {
		if !slices.Contains(granted, r) {
			missing = append(missing, r)
		}
	}
	return missing
}

// ScopesEqual compares two scope lists as sets.
func ScopesEqual(a, b []string) bool {
	return len(MissingScopes(a, b)) == 0 && len(MissingScopes(b, a)) == 0
}

// defaultTokenLifetime is used when the token endpoint omits expires_in.
const defaultTokenLifetime = time.Hour

// fromToken builds a Session from an oauth2 token. Spotify reports the granted
// scopes space separated in the "scope" field; fallbackScopes are used when it
// is absent.
func fromToken(tok *oauth2.Token, fallbackScopes []string) *Session {
	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = NowTimeFunc().Add(defaultTokenLifetime)
	}

	scopes := fallbackScopes
	if raw, ok := tok.Extra("scope").(string); ok && strings.TrimSpace(raw) != "" {
		scopes = strings.Fields(raw)
	}

	return &Session{
		AccessToken:   tok.AccessToken,
		RefreshToken:  tok.RefreshToken,
		ExpiresAt:     expiry,
		GrantedScopes: slices.Clone(scopes),
	}
}

// Package session models the dashboard login as one read-only value built
// from the auth cookies. Screens receive it already guarded; the form core
// never checks it.
package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Cookie names written by the login screen.
const (
	CookieToken   = "token"
	CookieRole    = "role"
	CookieStoreID = "store_id"
)

// Roles known to the dashboard.
const (
	RoleAdmin = "admin"
	RoleStore = "store"
)

var (
	// ErrMissing is returned when no token is present.
	ErrMissing = errors.New("session: not logged in")
	// ErrExpired is returned once the token's exp claim has passed.
	ErrExpired = errors.New("session: token expired")
	// ErrRoleMismatch is returned when the session role differs from the screen's.
	ErrRoleMismatch = errors.New("session: role mismatch")
	// ErrMalformedToken is returned when the token is not a decodable JWT.
	ErrMalformedToken = errors.New("session: malformed token")
)

// Session is the logged-in identity.
type Session struct {
	Token   string    `json:"token"`
	Role    string    `json:"role"`
	StoreID string    `json:"storeId,omitempty"`
	Expiry  time.Time `json:"expiry,omitempty"`
}

// FromCookies reads the session cookies. The expiry comes from the JWT exp
// claim; a token that is not a JWT is reported as ErrMalformedToken.
func FromCookies(cookies []*http.Cookie) (Session, error) {
	var s Session
	for _, c := range cookies {
		if c == nil {
			continue
		}
		switch c.Name {
		case CookieToken:
			s.Token = strings.TrimSpace(c.Value)
		case CookieRole:
			s.Role = strings.TrimSpace(c.Value)
		case CookieStoreID:
			s.StoreID = strings.TrimSpace(c.Value)
		}
	}
	if s.Token == "" {
		return s, ErrMissing
	}
	expiry, err := TokenExpiry(s.Token)
	if err != nil {
		return s, err
	}
	s.Expiry = expiry
	return s, nil
}

// New builds a session from a raw token, decoding its expiry.
func New(token, role, storeID string) (Session, error) {
	cookies := []*http.Cookie{
		{Name: CookieToken, Value: token},
		{Name: CookieRole, Value: role},
		{Name: CookieStoreID, Value: storeID},
	}
	return FromCookies(cookies)
}

// TokenExpiry decodes the exp claim of a JWT without verifying the
// signature. A token without exp never expires.
func TokenExpiry(token string) (time.Time, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return time.Time{}, ErrMalformedToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
	var claims struct {
		Exp json.Number `json:"exp"`
	}
	if err := json.Unmarshal(raw, &claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
	if claims.Exp == "" {
		return time.Time{}, nil
	}
	exp, err := claims.Exp.Float64()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: exp: %w", ErrMalformedToken, err)
	}
	return time.Unix(int64(exp), 0).UTC(), nil
}

// Guard reports why the session cannot open a screen for role. An empty
// role accepts any logged-in user.
func (s Session) Guard(role string, now time.Time) error {
	if s.Token == "" {
		return ErrMissing
	}
	if !s.Expiry.IsZero() && !now.Before(s.Expiry) {
		return ErrExpired
	}
	if role != "" && !strings.EqualFold(s.Role, role) {
		return fmt.Errorf("%w: have %q, need %q", ErrRoleMismatch, s.Role, role)
	}
	return nil
}

// TokenSource exposes the bearer token to the API client.
func (s Session) TokenSource() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: s.Token,
		TokenType:   "Bearer",
		Expiry:      s.Expiry,
	})
}

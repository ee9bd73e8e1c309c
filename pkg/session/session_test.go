package session_test

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/goliatone/go-storeform/pkg/session"
)

func jwt(claims string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`)) + "." +
		enc.EncodeToString([]byte(claims)) + ".sig"
}

func TestFromCookies(t *testing.T) {
	exp := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	token := jwt(fmt.Sprintf(`{"sub":"1","exp":%d}`, exp.Unix()))

	s, err := session.FromCookies([]*http.Cookie{
		{Name: "token", Value: token},
		{Name: "role", Value: "store"},
		{Name: "store_id", Value: "42"},
	})
	require.NoError(t, err)
	want := session.Session{Token: token, Role: "store", StoreID: "42", Expiry: exp}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Fatalf("session mismatch (-want +got):\n%s", diff)
	}
}

func TestFromCookies_Errors(t *testing.T) {
	_, err := session.FromCookies(nil)
	require.ErrorIs(t, err, session.ErrMissing)

	_, err = session.FromCookies([]*http.Cookie{{Name: "token", Value: "opaque"}})
	require.ErrorIs(t, err, session.ErrMalformedToken)
}

func TestGuard(t *testing.T) {
	exp := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	s, err := session.New(jwt(fmt.Sprintf(`{"exp":%d}`, exp.Unix())), "admin", "")
	require.NoError(t, err)

	require.NoError(t, s.Guard("admin", exp.Add(-time.Minute)))
	require.NoError(t, s.Guard("", exp.Add(-time.Minute)))
	require.ErrorIs(t, s.Guard("store", exp.Add(-time.Minute)), session.ErrRoleMismatch)
	require.ErrorIs(t, s.Guard("admin", exp), session.ErrExpired)
	require.ErrorIs(t, session.Session{}.Guard("admin", exp), session.ErrMissing)
}

func TestTokenWithoutExpiryNeverExpires(t *testing.T) {
	s, err := session.New(jwt(`{"sub":"1"}`), "admin", "")
	require.NoError(t, err)
	require.True(t, s.Expiry.IsZero())
	require.NoError(t, s.Guard("admin", time.Now().Add(100*365*24*time.Hour)))
}

func TestTokenSource(t *testing.T) {
	s, err := session.New(jwt(`{"sub":"1"}`), "admin", "")
	require.NoError(t, err)
	tok, err := s.TokenSource().Token()
	require.NoError(t, err)
	require.Equal(t, s.Token, tok.AccessToken)
}

func TestKeychainStore(t *testing.T) {
	keyring.MockInit()
	store := session.NewKeychainStore("storeform-test")

	_, err := store.Load()
	require.ErrorIs(t, err, session.ErrNotFound)

	s := session.Session{Token: "t", Role: "admin", StoreID: "9"}
	require.NoError(t, store.Save(s))
	got, err := store.Load()
	require.NoError(t, err)
	if diff := cmp.Diff(s, got); diff != "" {
		t.Fatalf("session mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, store.Delete())
	require.ErrorIs(t, store.Delete(), session.ErrNotFound)
}

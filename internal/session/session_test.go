package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/glovo-scheduler/internal/credentials"
	"github.com/example/glovo-scheduler/internal/glovo"
	"github.com/example/glovo-scheduler/internal/internaltypes"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)

func token(t *testing.T, exp time.Time) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
		Subject:   "courier-1",
	}).SignedString([]byte("issuer-secret-we-never-see"))
	require.NoError(t, err)
	return s
}

type memStore struct {
	saved []credentials.Credential
	err   error
}

func (s *memStore) Load(ctx context.Context) (credentials.Credential, error) {
	if len(s.saved) == 0 {
		return credentials.Credential{}, internaltypes.ErrNotFound
	}
	return s.saved[len(s.saved)-1], nil
}

func (s *memStore) Save(ctx context.Context, c credentials.Credential) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, c)
	return nil
}

type fakeRefresher struct {
	calls   []string
	tokens  glovo.Tokens
	err     error
	current credentials.Credential
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (glovo.Tokens, error) {
	f.calls = append(f.calls, refreshToken)
	return f.tokens, f.err
}

func (f *fakeRefresher) SetCredential(c credentials.Credential) { f.current = c }

func newManager(r Refresher, s credentials.Store, access string) *Manager {
	m := New(r, s, credentials.Credential{
		AccessToken:  access,
		RefreshToken: "refresh-1",
		Headers:      map[string]string{"app-version": "1"},
	})
	m.Now = func() time.Time { return now }
	return m
}

func TestValidTokenIsNotRefreshed(t *testing.T) {
	r := &fakeRefresher{}
	s := &memStore{}
	m := newManager(r, s, token(t, now.Add(time.Hour)))

	require.NoError(t, m.EnsureFresh(context.Background()))
	assert.Empty(t, r.calls)
	assert.Empty(t, s.saved)

	exp, err := m.Expiry()
	require.NoError(t, err)
	assert.True(t, exp.Equal(now.Add(time.Hour)), "exp = %s", exp)
}

func TestExpiredTokenIsRefreshedAndPersisted(t *testing.T) {
	fresh := token(t, now.Add(2*time.Hour))
	r := &fakeRefresher{tokens: glovo.Tokens{AccessToken: fresh, RefreshToken: "refresh-2"}}
	s := &memStore{}
	m := newManager(r, s, token(t, now.Add(-time.Minute)))

	require.NoError(t, m.EnsureFresh(context.Background()))
	assert.Equal(t, []string{"refresh-1"}, r.calls)

	want := credentials.Credential{AccessToken: fresh, RefreshToken: "refresh-2", Headers: map[string]string{"app-version": "1"}}
	assert.Equal(t, want, m.Credential())
	assert.Equal(t, want, r.current)
	require.Len(t, s.saved, 1)
	assert.Equal(t, want, s.saved[0])

	require.NoError(t, m.EnsureFresh(context.Background()))
	assert.Len(t, r.calls, 1, "fresh token must not trigger another refresh")
}

func TestExpiryEqualToNowCountsAsExpired(t *testing.T) {
	r := &fakeRefresher{tokens: glovo.Tokens{AccessToken: token(t, now.Add(time.Hour)), RefreshToken: "r"}}
	m := newManager(r, &memStore{}, token(t, now))

	require.NoError(t, m.EnsureFresh(context.Background()))
	assert.Len(t, r.calls, 1)
}

func TestUndecodableTokenIsRefreshed(t *testing.T) {
	r := &fakeRefresher{tokens: glovo.Tokens{AccessToken: token(t, now.Add(time.Hour)), RefreshToken: "r"}}
	m := newManager(r, &memStore{}, "not-a-jwt")

	require.NoError(t, m.EnsureFresh(context.Background()))
	assert.Len(t, r.calls, 1)
}

func TestRefreshFailureIsFatal(t *testing.T) {
	r := &fakeRefresher{err: errors.New("connection reset")}
	s := &memStore{}
	old := token(t, now.Add(-time.Hour))
	m := newManager(r, s, old)

	err := m.EnsureFresh(context.Background())
	assert.ErrorIs(t, err, internaltypes.ErrAuthRefresh)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, old, m.Credential().AccessToken)
	assert.Empty(t, s.saved)
}

func TestRefresh500ThroughClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := glovo.New(credentials.Credential{}, glovo.WithBaseURL(srv.URL))
	m := newManager(c, &memStore{}, token(t, now.Add(-time.Hour)))

	err := m.EnsureFresh(context.Background())
	require.ErrorIs(t, err, internaltypes.ErrAuthRefresh)
	var he *glovo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusInternalServerError, he.StatusCode)
}

func TestMalformedRefreshResponseIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"accessToken":"only-access"}`)
	}))
	defer srv.Close()

	c := glovo.New(credentials.Credential{}, glovo.WithBaseURL(srv.URL))
	m := newManager(c, &memStore{}, token(t, now.Add(-time.Hour)))

	err := m.EnsureFresh(context.Background())
	assert.ErrorIs(t, err, internaltypes.ErrAuthRefresh)
	assert.ErrorIs(t, err, internaltypes.ErrInvalidRefreshResponse)
}

func TestPersistFailureKeepsNewSession(t *testing.T) {
	fresh := token(t, now.Add(time.Hour))
	r := &fakeRefresher{tokens: glovo.Tokens{AccessToken: fresh, RefreshToken: "refresh-2"}}
	m := newManager(r, &memStore{err: errors.New("disk full")}, token(t, now.Add(-time.Hour)))

	err := m.EnsureFresh(context.Background())
	assert.ErrorIs(t, err, internaltypes.ErrPersist)
	assert.NotErrorIs(t, err, internaltypes.ErrAuthRefresh)
	assert.Equal(t, fresh, m.Credential().AccessToken)
}

func TestTokenExpiryWithoutExp(t *testing.T) {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = TokenExpiry(s)
	assert.Error(t, err)
}

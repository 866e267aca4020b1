// Package session keeps the account's access token fresh.
//
// The access token is a JWT whose exp claim is read WITHOUT verifying the
// signature. The issuer is the upstream API itself and we hold no key for it;
// the claim is only used to decide when to refresh, never to grant access.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/example/glovo-scheduler/internal/credentials"
	"github.com/example/glovo-scheduler/internal/glovo"
	"github.com/example/glovo-scheduler/internal/internaltypes"
	"github.com/golang-jwt/jwt/v5"
)

// Refresher is the part of the upstream client the manager drives.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (glovo.Tokens, error)
	SetCredential(cred credentials.Credential)
}

type Manager struct {
	client Refresher
	store  credentials.Store
	cred   credentials.Credential

	Now func() time.Time
}

func New(client Refresher, store credentials.Store, cred credentials.Credential) *Manager {
	client.SetCredential(cred)
	return &Manager{client: client, store: store, cred: cred, Now: time.Now}
}

func (m *Manager) Credential() credentials.Credential { return m.cred }

// Expiry returns the exp claim of the current access token.
func (m *Manager) Expiry() (time.Time, error) {
	return TokenExpiry(m.cred.AccessToken)
}

// EnsureFresh refreshes the token pair when the access token has expired
// (exp <= now) or its expiry cannot be read. Refresh failures wrap
// internaltypes.ErrAuthRefresh; a failure to persist the new pair wraps
// internaltypes.ErrPersist and leaves the in-memory session usable.
func (m *Manager) EnsureFresh(ctx context.Context) error {
	exp, err := m.Expiry()
	switch {
	case err != nil:
		log.Printf("session: cannot read token expiry (%v), refreshing", err)
	case exp.After(m.Now()):
		return nil
	default:
		log.Printf("session: token expired at %s, refreshing", exp.Format(time.RFC3339))
	}

	tok, err := m.client.Refresh(ctx, m.cred.RefreshToken)
	if err != nil {
		return fmt.Errorf("%w: %w", internaltypes.ErrAuthRefresh, err)
	}

	m.cred = m.cred.WithTokens(tok.AccessToken, tok.RefreshToken)
	m.client.SetCredential(m.cred)

	if err := m.store.Save(ctx, m.cred); err != nil {
		return fmt.Errorf("%w: %w", internaltypes.ErrPersist, err)
	}
	return nil
}

// TokenExpiry decodes the exp claim of a JWT without verifying it.
func TokenExpiry(token string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("decode access token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("access token has no exp claim")
	}
	return claims.ExpiresAt.Time.UTC(), nil
}

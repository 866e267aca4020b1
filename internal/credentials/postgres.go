package credentials

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/glovo-scheduler/internal/crypto"
	"github.com/example/glovo-scheduler/internal/db"
)

const defaultAccount = "default"

// PostgresStore keeps the credential in the credentials table. When an AEAD is
// set both tokens are encrypted at rest; headers are stored in clear.
type PostgresStore struct {
	db      *db.DB
	aead    *crypto.AEAD
	account string
}

func NewPostgresStore(d *db.DB, aead *crypto.AEAD) *PostgresStore {
	return &PostgresStore{db: d, aead: aead, account: defaultAccount}
}

func (s *PostgresStore) Load(ctx context.Context) (Credential, error) {
	var c Credential
	var headers []byte
	err := s.db.QueryRow(ctx, `
SELECT access_token, refresh_token, headers
FROM credentials
WHERE account=$1`, s.account).Scan(&c.AccessToken, &c.RefreshToken, &headers)
	if err != nil {
		return Credential{}, db.WrapNotFound(err)
	}
	if len(headers) > 0 {
		if err := json.Unmarshal(headers, &c.Headers); err != nil {
			return Credential{}, fmt.Errorf("decode headers: %w", err)
		}
	}
	if s.aead != nil {
		if c.AccessToken, err = s.aead.DecryptString(c.AccessToken); err != nil {
			return Credential{}, fmt.Errorf("decrypt access token: %w", err)
		}
		if c.RefreshToken, err = s.aead.DecryptString(c.RefreshToken); err != nil {
			return Credential{}, fmt.Errorf("decrypt refresh token: %w", err)
		}
	}
	return c, c.Validate()
}

func (s *PostgresStore) Save(ctx context.Context, c Credential) error {
	if c.Headers == nil {
		c.Headers = map[string]string{}
	}
	headers, err := json.Marshal(c.Headers)
	if err != nil {
		return err
	}
	access, refresh := c.AccessToken, c.RefreshToken
	if s.aead != nil {
		if access, err = s.aead.EncryptToString(access); err != nil {
			return err
		}
		if refresh, err = s.aead.EncryptToString(refresh); err != nil {
			return err
		}
	}
	return s.db.Exec(ctx, `
INSERT INTO credentials (account, access_token, refresh_token, headers, updated_at)
VALUES ($1,$2,$3,$4::jsonb,now())
ON CONFLICT (account) DO UPDATE
SET access_token=EXCLUDED.access_token, refresh_token=EXCLUDED.refresh_token, headers=EXCLUDED.headers, updated_at=now()`,
		s.account, access, refresh, string(headers))
}

package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Credential is the single live token pair of the account plus the static
// request headers captured from the device the tokens were issued to.
type Credential struct {
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
	Headers      map[string]string `json:"headers"`
}

func (c Credential) Validate() error {
	if c.AccessToken == "" {
		return errors.New("accessToken is empty")
	}
	if c.RefreshToken == "" {
		return errors.New("refreshToken is empty")
	}
	return nil
}

// WithTokens returns a copy of c carrying the new token pair. Headers are shared.
func (c Credential) WithTokens(access, refresh string) Credential {
	c.AccessToken = access
	c.RefreshToken = refresh
	return c
}

// Store loads the credential at startup and persists it after every refresh.
type Store interface {
	Load(ctx context.Context) (Credential, error)
	Save(ctx context.Context, c Credential) error
}

// Marshal encodes c in the device file layout: indented, header keys sorted,
// non-ASCII and HTML characters left as-is.
func Marshal(c Credential) ([]byte, error) {
	if c.Headers == nil {
		c.Headers = map[string]string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Unmarshal(b []byte) (Credential, error) {
	var c Credential
	if err := json.Unmarshal(b, &c); err != nil {
		return Credential{}, fmt.Errorf("decode credentials: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Credential{}, err
	}
	return c, nil
}

package glovo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/example/glovo-scheduler/internal/credentials"
	"github.com/example/glovo-scheduler/internal/internaltypes"
	"github.com/google/uuid"
)

const (
	DefaultBaseURL    = "https://api.glovoapp.com"
	DefaultAPIVersion = 4
	DefaultTimeout    = 20 * time.Second

	// RFC 1123 with a literal GMT zone, which is what the API expects.
	dateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"
)

// Client talks to the courier scheduling API on behalf of one account.
// Every request carries a fresh date and glovo-request-id header; the API
// rejects requests without them.
type Client struct {
	hc      *http.Client
	base    string
	version int
	cred    credentials.Credential
	now     func() time.Time
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.base = strings.TrimRight(u, "/") }
}

func WithAPIVersion(v int) Option {
	return func(c *Client) { c.version = v }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.hc.Timeout = d }
}

func New(cred credentials.Credential, opts ...Option) *Client {
	c := &Client{
		hc:      &http.Client{Timeout: DefaultTimeout},
		base:    DefaultBaseURL,
		version: DefaultAPIVersion,
		cred:    cred,
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetCredential swaps the credential used by subsequent requests.
func (c *Client) SetCredential(cred credentials.Credential) {
	c.cred = cred
}

// maxErrorBody caps the response body kept in an HTTPError. Error pages from
// the CDN in front of the API run to several KB of HTML.
const maxErrorBody = 256

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: http %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: http %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Refresh exchanges the refresh token for a new token pair. The call is not
// authenticated.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	body, err := c.do(ctx, http.MethodPost, "/oauth/refresh", false, map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return Tokens{}, err
	}
	var t Tokens
	if len(body) > 0 {
		if err := json.Unmarshal(body, &t); err != nil {
			return Tokens{}, fmt.Errorf("decode refresh response: %w", err)
		}
	}
	if t.AccessToken == "" || t.RefreshToken == "" {
		return Tokens{}, internaltypes.ErrInvalidRefreshResponse
	}
	return t, nil
}

func (c *Client) Calendar(ctx context.Context) (Calendar, error) {
	path := fmt.Sprintf("/v%d/scheduling/calendar", c.version)
	body, err := c.do(ctx, http.MethodGet, path, true, nil)
	if err != nil {
		return Calendar{}, err
	}
	if len(body) == 0 {
		return Calendar{}, fmt.Errorf("calendar: %w", internaltypes.ErrEmptyResponse)
	}
	var cal Calendar
	if err := json.Unmarshal(body, &cal); err != nil {
		return Calendar{}, fmt.Errorf("decode calendar: %w", err)
	}
	return cal, nil
}

type bookRequest struct {
	StoreAddressID *int64 `json:"storeAddressId"`
	Booked         bool   `json:"booked"`
}

// BookSlot reserves one slot. The confirmation body is ignored.
func (c *Client) BookSlot(ctx context.Context, slotID int64) error {
	path := fmt.Sprintf("/v%d/scheduling/slots/%d", c.version, slotID)
	_, err := c.do(ctx, http.MethodPut, path, true, bookRequest{Booked: true})
	return err
}

// Me returns the courier profile; useful to check that the credential works.
func (c *Client) Me(ctx context.Context) (map[string]any, error) {
	body, err := c.do(ctx, http.MethodGet, "/v3/couriers/me", true, nil)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	var me map[string]any
	if err := json.Unmarshal(body, &me); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return me, nil
}

func (c *Client) do(ctx context.Context, method, path string, auth bool, payload any) ([]byte, error) {
	var rd io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return nil, err
	}
	for k, v := range c.cred.Headers {
		req.Header.Set(k, v)
	}
	if payload != nil {
		req.Header.Set("content-type", "application/json")
	}
	if auth {
		req.Header.Set("authorization", c.cred.AccessToken)
	}
	req.Header.Set("date", c.now().UTC().Format(dateFormat))
	req.Header.Set("glovo-request-id", strings.ToUpper(uuid.NewString()))

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPError{Method: method, Path: path, StatusCode: res.StatusCode, Body: errorBody(b)}
	}
	return b, nil
}

func errorBody(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= maxErrorBody {
		return s
	}
	return strings.ToValidUTF8(s[:maxErrorBody], "") + "…"
}

package internaltypes

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrEmptyResponse = errors.New("empty response body")

	// ErrAuthRefresh is the only error the poll loop treats as fatal.
	ErrAuthRefresh            = errors.New("auth refresh failed")
	ErrInvalidRefreshResponse = errors.New("access token or refresh token not found in the response")
	ErrPersist                = errors.New("persist credentials")
)

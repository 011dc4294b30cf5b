package kiwoom

import "fmt"

// AuthError is returned when token issuance fails. Authentication is part
// of startup; the caller treats this as fatal and does not retry.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("kiwoom: authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RateLimitError is returned after 429 retries are exhausted. The failed
// operation is skipped for the current cycle only.
type RateLimitError struct {
	APIID    string
	Attempts int
	Body     []byte
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("kiwoom: rate limit exceeded for %s after %d attempts: %s", e.APIID, e.Attempts, e.Body)
}

// APIError is returned for any non-success, non-429 response, carrying the
// decoded payload from the broker.
type APIError struct {
	APIID      string
	StatusCode int
	Code       string
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Code != "" || e.Message != "" {
		return fmt.Sprintf("kiwoom: API error %s (status %d): %s - %s", e.APIID, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("kiwoom: API error %s (status %d): %s", e.APIID, e.StatusCode, e.Body)
}

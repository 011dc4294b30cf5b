package kiwoom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/joonholab/argos/pkg/backoff"
	"github.com/joonholab/argos/pkg/config"
	"github.com/joonholab/argos/pkg/logger"
)

// Token refresh safety margin: reissue when less than this remains.
const tokenRefreshMargin = 5 * time.Minute

// expires_dt format in the token response, e.g. "20241107083713"
const expiresLayout = "20060102150405"

// Client is the authenticated, rate-limited REST gateway to the broker.
// ⭐ SSOT: 키움 REST 호출은 이 클라이언트에서만
type Client struct {
	cfg        config.KiwoomConfig
	httpClient *http.Client
	logger     *logger.Logger

	// Per api-id minimum-interval limiters. The broker enforces its quota
	// per operation id, not globally.
	limiters  map[string]*rate.Limiter
	limiterMu sync.Mutex

	transientRetry backoff.Policy // transport errors: fixed delay
	rateRetry      backoff.Policy // HTTP 429: linearly growing delay

	// Token management
	token       string
	tokenExpiry time.Time
	tokenMu     sync.RWMutex
	refreshMu   sync.Mutex // serializes reissues

	now func() time.Time
}

// NewClient creates a new gateway client. Authenticate must be called
// before any business request.
func NewClient(cfg config.KiwoomConfig, log *logger.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:   log,
		limiters: make(map[string]*rate.Limiter),
		transientRetry: backoff.Policy{
			Base:        cfg.RetryDelay,
			Growth:      backoff.Fixed,
			MaxAttempts: cfg.MaxRetries,
		},
		rateRetry: backoff.Policy{
			Base:        cfg.RetryDelay,
			Growth:      backoff.Linear,
			MaxAttempts: cfg.MaxRetries,
		},
		now: time.Now,
	}
}

type tokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresDt string `json:"expires_dt"`
}

// Authenticate exchanges credentials for an access token (au10001).
// Failure is fatal to startup and is not retried.
func (c *Client) Authenticate(ctx context.Context) error {
	body := map[string]string{
		"grant_type": "client_credentials",
		"appkey":     c.cfg.AppKey,
		"secretkey":  c.cfg.SecretKey,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return &AuthError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/oauth2/token", bytes.NewReader(payload))
	if err != nil {
		return &AuthError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("api-id", "au10001")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &AuthError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &AuthError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return &AuthError{Err: fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, respBody)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return &AuthError{Err: fmt.Errorf("decode token response: %w", err)}
	}
	if tr.Token == "" {
		return &AuthError{Err: fmt.Errorf("token response missing token: %s", respBody)}
	}

	expiry := c.now().Add(24 * time.Hour)
	if tr.ExpiresDt != "" {
		if t, err := time.ParseInLocation(expiresLayout, tr.ExpiresDt, time.Local); err == nil {
			expiry = t
		}
	}

	c.tokenMu.Lock()
	c.token = tr.Token
	c.tokenExpiry = expiry
	c.tokenMu.Unlock()

	c.logger.WithField("expires_at", expiry).Info("Access token issued")
	return nil
}

// Token returns the current access token. Used by the realtime feed login.
func (c *Client) Token() string {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token
}

// ensureToken reissues the token when absent or inside the safety margin.
// 이중 확인: 락 획득 후 재검사해서 동시 호출이 토큰을 중복 발급하지 않게 한다.
func (c *Client) ensureToken(ctx context.Context) error {
	if c.tokenValid() {
		return nil
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if c.tokenValid() {
		return nil
	}

	c.logger.Info("Reissuing access token")
	return c.Authenticate(ctx)
}

func (c *Client) tokenValid() bool {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token != "" && c.now().Before(c.tokenExpiry.Add(-tokenRefreshMargin))
}

// limiter returns the per-apiID limiter, creating it on first use.
func (c *Client) limiter(apiID string) *rate.Limiter {
	c.limiterMu.Lock()
	defer c.limiterMu.Unlock()

	lim, ok := c.limiters[apiID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(c.cfg.RequestInterval), 1)
		c.limiters[apiID] = lim
	}
	return lim
}

// Request executes an authenticated request: token check, per-apiID rate
// limiting, retry with backoff, and error classification.
func (c *Client) Request(ctx context.Context, apiID, method, path string, data interface{}) ([]byte, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	if apiID != "" {
		if err := c.limiter(apiID).Wait(ctx); err != nil {
			return nil, err
		}
	}

	var payload []byte
	if data != nil {
		var err error
		payload, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	url := c.cfg.BaseURL + path

	var lastBody []byte
	for attempt := 1; ; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		c.tokenMu.RLock()
		token := c.token
		c.tokenMu.RUnlock()

		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json;charset=UTF-8")
		if apiID != "" {
			req.Header.Set("api-id", apiID)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Transport error: fixed-delay retry up to the ceiling.
			if c.transientRetry.Exhausted(attempt) {
				return nil, fmt.Errorf("request %s %s failed after %d attempts: %w", method, path, attempt, err)
			}
			c.logger.WithFields(map[string]interface{}{
				"api_id":  apiID,
				"attempt": attempt,
				"error":   err.Error(),
			}).Warn("Request failed, retrying")
			if sleepErr := c.transientRetry.Sleep(ctx, 1); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			if c.transientRetry.Exhausted(attempt) {
				return nil, fmt.Errorf("read response for %s: %w", path, readErr)
			}
			if sleepErr := c.transientRetry.Sleep(ctx, 1); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		lastBody = respBody

		if resp.StatusCode == http.StatusTooManyRequests {
			// 429: linearly growing delay up to the ceiling.
			if c.rateRetry.Exhausted(attempt) {
				return nil, &RateLimitError{APIID: apiID, Attempts: attempt, Body: lastBody}
			}
			delay := c.rateRetry.Delay(attempt)
			c.logger.WithFields(map[string]interface{}{
				"api_id":  apiID,
				"attempt": attempt,
				"delay":   delay,
			}).Warn("Rate limit exceeded (429), retrying")
			if sleepErr := c.rateRetry.Sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := &APIError{APIID: apiID, StatusCode: resp.StatusCode, Body: respBody}
			var decoded struct {
				ReturnCode json.Number `json:"return_code"`
				ReturnMsg  string      `json:"return_msg"`
			}
			if json.Unmarshal(respBody, &decoded) == nil {
				apiErr.Code = decoded.ReturnCode.String()
				apiErr.Message = decoded.ReturnMsg
			}
			return nil, apiErr
		}

		return respBody, nil
	}
}

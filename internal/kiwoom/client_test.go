package kiwoom

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/joonholab/argos/pkg/config"
	"github.com/joonholab/argos/pkg/logger"
)

func testConfig(baseURL string) config.KiwoomConfig {
	return config.KiwoomConfig{
		AppKey:          "app",
		SecretKey:       "secret",
		AccountNo:       "12345678-01",
		BaseURL:         baseURL,
		RequestInterval: 40 * time.Millisecond,
		MaxRetries:      3,
		RetryDelay:      10 * time.Millisecond,
	}
}

// authHandler answers the token endpoint; other paths go to next.
func authHandler(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth2/token" {
			json.NewEncoder(w).Encode(map[string]string{
				"token":      "test-token",
				"token_type": "Bearer",
				"expires_dt": time.Now().Add(24 * time.Hour).Format("20060102150405"),
			})
			return
		}
		next(w, r)
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(authHandler(handler))
	t.Cleanup(srv.Close)

	c := NewClient(testConfig(srv.URL), logger.NewNop())
	if err := c.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	return c, srv
}

func TestAuthenticateFailureIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), logger.NewNop())
	err := c.Authenticate(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Errorf("expected AuthError, got %T: %v", err, err)
	}
}

func TestRequestMinIntervalPerAPIID(t *testing.T) {
	var mu sync.Mutex
	timestamps := make(map[string][]time.Time)

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		apiID := r.Header.Get("api-id")
		timestamps[apiID] = append(timestamps[apiID], time.Now())
		mu.Unlock()
		w.Write([]byte(`{}`))
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := c.Request(ctx, "ka10001", http.MethodPost, "/api/dostk/stkinfo", nil); err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()

	ts := timestamps["ka10001"]
	if len(ts) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(ts))
	}
	// Allow small scheduling slack; the limiter interval is 40ms.
	minGap := 35 * time.Millisecond
	for i := 1; i < len(ts); i++ {
		if gap := ts[i].Sub(ts[i-1]); gap < minGap {
			t.Errorf("requests %d and %d only %s apart, want >= %s", i-1, i, gap, minGap)
		}
	}
}

func TestRequestDifferentAPIIDsNotSerialized(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	ctx := context.Background()
	start := time.Now()
	apiIDs := []string{"ka10023", "ka10030", "ka10032", "ka10027"}
	for _, id := range apiIDs {
		if _, err := c.Request(ctx, id, http.MethodPost, "/api/dostk/rkinfo", nil); err != nil {
			t.Fatalf("request %s failed: %v", id, err)
		}
	}

	// Each limiter grants its first token immediately, so four distinct
	// api-ids must not be spaced out by the per-id interval.
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("4 requests on distinct api-ids took %s, limiter must be per api-id", elapsed)
	}
}

func TestRequestRetriesOn429ThenSucceeds(t *testing.T) {
	var mu sync.Mutex
	calls := 0

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":"1"}`))
	})

	body, err := c.Request(context.Background(), "ka10001", http.MethodPost, "/x", nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if string(body) != `{"ok":"1"}` {
		t.Errorf("unexpected body: %s", body)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestRequest429Exhausted(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Request(context.Background(), "ka10001", http.MethodPost, "/x", nil)
	if err == nil {
		t.Fatal("expected error")
	}

	var rlErr *RateLimitError
	if !errors.As(err, &rlErr) {
		t.Fatalf("expected RateLimitError, got %T: %v", err, err)
	}
	if rlErr.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", rlErr.Attempts)
	}
}

func TestRequestAPIErrorNotRetried(t *testing.T) {
	var mu sync.Mutex
	calls := 0

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"return_code":400,"return_msg":"잘못된 요청"}`))
	})

	_, err := c.Request(context.Background(), "ka10001", http.MethodPost, "/x", nil)
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "잘못된 요청" {
		t.Errorf("expected decoded message, got %q", apiErr.Message)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("API errors must fail immediately, got %d attempts", calls)
	}
}

func TestTokenProactiveRefresh(t *testing.T) {
	var mu sync.Mutex
	tokenIssues := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth2/token" {
			mu.Lock()
			tokenIssues++
			mu.Unlock()
			json.NewEncoder(w).Encode(map[string]string{
				"token":      "tok",
				"expires_dt": time.Now().Add(24 * time.Hour).Format("20060102150405"),
			})
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), logger.NewNop())
	if err := c.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	// Move the clock to inside the 5-minute safety margin.
	c.now = func() time.Time { return time.Now().Add(24*time.Hour - 2*time.Minute) }

	if _, err := c.Request(context.Background(), "ka10001", http.MethodPost, "/x", nil); err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if tokenIssues != 2 {
		t.Errorf("expected proactive reissue inside safety margin, got %d issues", tokenIssues)
	}
}

func TestEnsureTokenSingleIssueUnderConcurrency(t *testing.T) {
	var mu sync.Mutex
	tokenIssues := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth2/token" {
			mu.Lock()
			tokenIssues++
			mu.Unlock()
			// 발급이 걸리는 동안 다른 고루틴이 몰리게 한다
			time.Sleep(20 * time.Millisecond)
			json.NewEncoder(w).Encode(map[string]string{
				"token":      "tok",
				"expires_dt": time.Now().Add(24 * time.Hour).Format("20060102150405"),
			})
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), logger.NewNop())

	// 서로 다른 api-id라 리미터 직렬화 없이 동시에 달린다.
	apiIDs := []string{"ka10001", "ka10004", "ka10023", "ka10027", "ka10030"}
	errs := make(chan error, len(apiIDs))

	var wg sync.WaitGroup
	for _, apiID := range apiIDs {
		wg.Add(1)
		go func(apiID string) {
			defer wg.Done()
			_, err := c.Request(context.Background(), apiID, http.MethodPost, "/x", nil)
			errs <- err
		}(apiID)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if tokenIssues != 1 {
		t.Errorf("token issued %d times under concurrency, want 1", tokenIssues)
	}
}

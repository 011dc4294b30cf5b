package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/joonholab/argos/internal/scanner"
	"github.com/joonholab/argos/pkg/logger"
)

// Status is the live trading snapshot served at /api/status.
type Status struct {
	Env              string    `json:"env"`
	RiskMode         string    `json:"risk_mode"`
	FeedState        string    `json:"feed_state"`
	CapitalRatio     float64   `json:"capital_ratio"`
	TotalAsset       int64     `json:"total_asset"`
	DailyRealizedPnL int64     `json:"daily_realized_pnl"`
	OpenPositions    int       `json:"open_positions"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// PositionView is one open position with its live valuation.
type PositionView struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	Quantity      int64   `json:"quantity"`
	EntryPrice    int64   `json:"entry_price"`
	CurrentPrice  int64   `json:"current_price"`
	UnrealizedPnL int64   `json:"unrealized_pnl"`
	PnLPct        float64 `json:"pnl_pct"`
}

// StatusProvider is the trading state the API reads from.
type StatusProvider interface {
	Status() Status
	Positions() []PositionView
	LastScan() []scanner.Candidate
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(provider StatusProvider, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", statusHandler(provider)).Methods("GET")
	api.HandleFunc("/positions", positionsHandler(provider)).Methods("GET")
	api.HandleFunc("/scan", scanHandler(provider)).Methods("GET")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "argos-api",
	})
}

func statusHandler(provider StatusProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, provider.Status())
	}
}

func positionsHandler(provider StatusProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		positions := provider.Positions()
		if positions == nil {
			positions = []PositionView{}
		}
		writeJSON(w, http.StatusOK, positions)
	}
}

func scanHandler(provider StatusProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		candidates := provider.LastScan()
		if candidates == nil {
			candidates = []scanner.Candidate{}
		}
		writeJSON(w, http.StatusOK, candidates)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					writeJSON(w, http.StatusInternalServerError, map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

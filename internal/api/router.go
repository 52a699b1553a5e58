package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Dependencies holds shared state injected into all HTTP handlers.
type Dependencies struct {
	Advisor  Advisor
	KeyHash  string // bcrypt hash of the gateway ask_ key
	Logger   *zap.Logger
	CacheTTL time.Duration
}

// NewRouter builds the HTTP mux with all routes wired up.
func NewRouter(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	// Advisory endpoint (auth required via Bearer ask_ token)
	mux.HandleFunc("POST /v1/ask", deps.authMiddleware(deps.handleAsk))

	// Health check
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return corsMiddleware(requestLogging(mux, deps.Logger))
}

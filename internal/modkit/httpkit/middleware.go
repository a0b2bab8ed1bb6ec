// Package httpkit provides tiny HTTP helpers and adapters
package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	"agentpulse/internal/platform/net/middleware"
)

// CommonStack returns the baseline middleware for the versioned api scope.
// The request timeout is generous because POST /activity/aggregate runs inline.
func CommonStack() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		// tracing / correlation
		middleware.RequestID(),
		middleware.RealIP(),

		// safety
		middleware.RecoverJSON,

		// cache / freshness
		middleware.NoCache(),

		// observability
		middleware.AccessLogZerolog(middleware.AccessLogOptions{Slow: 2 * time.Second}),

		middleware.CORS(middleware.CORSOptions{}),
		middleware.Compress(flate.BestSpeed),
		middleware.Heartbeat("/health"),
		middleware.RedirectSlashes(),
		middleware.StripSlashes(),
		middleware.Timeout(10 * time.Minute),
	}
}

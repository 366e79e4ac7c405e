package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with conservative defaults. Per-request
// deadlines are enforced by the timeout middleware rather than server-wide
// read/write timeouts, which would cut off large uploads.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

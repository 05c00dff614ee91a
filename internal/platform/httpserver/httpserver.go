package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. Vault operations are small JSON exchanges, so
// the timeouts are tight; anything slower indicates a stuck client.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

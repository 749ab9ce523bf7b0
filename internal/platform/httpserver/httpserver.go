package httpserver

import (
	"net/http"
	"time"
)

// New builds the HTTP server. Write timeout stays above the router's 30s
// request timeout so the timeout middleware, not the server, cuts replies.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

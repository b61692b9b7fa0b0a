package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with sane defaults. Evaluation and sealing are
// CPU-bound and fast; generous write timeouts are unnecessary, but slow
// header reads should not pin connections.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

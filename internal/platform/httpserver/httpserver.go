// Package httpserver builds the API server and owns its lifecycle timeouts.
package httpserver

import (
	"context"
	"net/http"
	"time"
)

const (
	readHeaderTimeout = 5 * time.Second
	// shutdownTimeout bounds how long in-flight registrations may drain
	// on exit before the process gives up on them.
	shutdownTimeout = 10 * time.Second
)

// New builds the HTTP server for the API surface.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// Shutdown drains in-flight requests, giving up after shutdownTimeout.
func Shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

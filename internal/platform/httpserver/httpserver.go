// Package httpserver builds the process's HTTP listener.
package httpserver

import (
	"net/http"
	"time"
)

// New returns a server with bounded read and idle windows so a stalled
// client cannot pin a connection. Per-request deadlines live in the router's
// timeout middleware; shutdown is driven by the caller.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

// Package wirehttptest provides testing utilities for wirehttp clients.
//
// The package includes an in-memory fixture server built on
// net/http/httptest, useful for exercising a Client against real network
// round trips without relying on the stub engine or an external host.
//
// Example:
//
//	func TestMyCode(t *testing.T) {
//	    server := wirehttptest.NewServer()
//	    defer server.Close()
//
//	    server.Handle("GET", "/widgets/1", wirehttptest.JSONResponse(200, `{"id":1}`))
//
//	    client := wirehttp.NewClient(
//	        wirehttp.WithBaseURL(server.URL()),
//	        wirehttp.WithHTTPClient(server.HTTPClient()),
//	    )
//	    // ...
//	}
package wirehttptest

import (
	"net/http"
	"net/http/httptest"
	"sync"
)

// Handler answers one fixture request.
type Handler func(w http.ResponseWriter, r *http.Request)

// Server is an in-memory HTTP fixture server keyed by method+path, for
// tests that want real network round trips (TLS, redirects, HTTP/2)
// instead of the stub engine.
type Server struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]Handler
	requests []*http.Request
}

// NewServer starts a fixture server with no routes registered; unmatched
// requests answer 404.
func NewServer() *Server {
	s := &Server{handlers: make(map[string]Handler)}
	s.server = httptest.NewServer(http.HandlerFunc(s.route))
	return s
}

// NewTLSServer starts a fixture server using httptest.NewTLSServer,
// useful for exercising a Client's SecurityPolicy against a self-signed
// certificate.
func NewTLSServer() *Server {
	s := &Server{handlers: make(map[string]Handler)}
	s.server = httptest.NewUnstartedServer(http.HandlerFunc(s.route))
	s.server.StartTLS()
	return s
}

// URL returns the fixture server's base URL.
func (s *Server) URL() string {
	return s.server.URL
}

// HTTPClient returns an *http.Client preconfigured to trust this server's
// TLS certificate (relevant for NewTLSServer) and reuse its connection
// pool.
func (s *Server) HTTPClient() *http.Client {
	return s.server.Client()
}

// Certificate returns the server's TLS certificate, for tests exercising
// SecurityPolicy's pinning modes. Returns nil for a plain NewServer.
func (s *Server) Certificate() []byte {
	if s.server.Certificate() == nil {
		return nil
	}
	return s.server.Certificate().Raw
}

// Close shuts down the fixture server.
func (s *Server) Close() {
	s.server.Close()
}

// Handle registers h to answer method+path. A later call for the same
// method+path replaces the earlier handler.
func (s *Server) Handle(method, path string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[routeKey(method, path)] = h
}

// Requests returns every request the server has received so far, in
// arrival order, for assertions about what a Client actually sent.
func (s *Server) Requests() []*http.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*http.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Reset clears registered routes and recorded requests.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = make(map[string]Handler)
	s.requests = nil
}

func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r)
	h, ok := s.handlers[routeKey(r.Method, r.URL.Path)]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func routeKey(method, path string) string {
	return method + " " + path
}

/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package authtest

import (
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/acronis/go-appkit/testutil"
)

// IntrospectionEndpointPath is the path of the mock introspection endpoint.
const IntrospectionEndpointPath = "/oauth/introspection"

const localhostWithDynamicPortAddr = "127.0.0.1:0"

// HTTPServerOption is an option for HTTPServer.
type HTTPServerOption func(s *HTTPServer)

// WithHTTPAddress is an option to set HTTP server address.
func WithHTTPAddress(addr string) HTTPServerOption {
	return func(s *HTTPServer) {
		s.addr.Store(addr)
	}
}

// WithIntrospectionHandler is an option to set a custom handler for
// POST /oauth/introspection. Otherwise, an AuthorityMock is used.
func WithIntrospectionHandler(handler http.Handler) HTTPServerOption {
	return func(s *HTTPServer) {
		s.IntrospectionHandler = handler
	}
}

// WithAuthorityMock is an option to serve POST /oauth/introspection with the
// given pre-configured mock.
func WithAuthorityMock(mock *AuthorityMock) HTTPServerOption {
	return func(s *HTTPServer) {
		s.IntrospectionHandler = mock
	}
}

// HTTPServer is a mock introspection authority server for testing purposes.
type HTTPServer struct {
	*http.Server
	addr                 atomic.Value
	Router               *http.ServeMux
	IntrospectionHandler http.Handler
}

// NewHTTPServer creates a new HTTPServer with provided options.
func NewHTTPServer(options ...HTTPServerOption) *HTTPServer {
	s := &HTTPServer{}
	for _, opt := range options {
		opt(s)
	}

	if s.IntrospectionHandler == nil {
		s.IntrospectionHandler = NewAuthorityMock()
	}

	s.Router = http.NewServeMux()
	s.Router.Handle(IntrospectionEndpointPath, s.IntrospectionHandler)

	// nolint:gosec // This server is used for testing purposes only.
	s.Server = &http.Server{Handler: s.Router}

	return s
}

// URL method returns the URL of the server.
func (s *HTTPServer) URL() string {
	if srvURL := s.addr.Load(); srvURL != nil {
		return "http://" + srvURL.(string)
	}
	return ""
}

// IntrospectionEndpointURL returns the full URL of the introspection endpoint.
func (s *HTTPServer) IntrospectionEndpointURL() string {
	return s.URL() + IntrospectionEndpointPath
}

// Start starts the HTTPServer.
func (s *HTTPServer) Start() error {
	addr, ok := s.addr.Load().(string)
	if !ok {
		addr = localhostWithDynamicPortAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen tcp: %w", err)
	}
	s.addr.Store(ln.Addr().String())

	go func() { _ = s.Server.Serve(ln) }()

	return nil
}

// StartAndWaitForReady starts the server waits for the server to start listening.
func (s *HTTPServer) StartAndWaitForReady(timeout time.Duration) error {
	if err := s.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	return testutil.WaitListeningServer(s.addr.Load().(string), timeout)
}

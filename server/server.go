// Package server is the receiving side of the RFC bridge: it authenticates
// each request against the shared secret, resolves the target against the
// startup-built operation registry, executes it through the sync/async
// bridge, and answers with an in-band result or error.
//
// Request processing per round trip, in order:
//
//	RequestReceived → {Authenticated | Rejected(AuthorizationError)}
//	                → {Resolved | Rejected(UnknownFunction)}
//	                → Invoking → Completed(success) | Completed(error)
//
// Rejected and Completed are terminal; the server never retries. Application
// failures travel in-band over HTTP 200 so the client can tell "function
// raised" from "peer unreachable".
package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/GaryOcean428/gary-zero-sub006/bridge"
	"github.com/GaryOcean428/gary-zero-sub006/codec"
	"github.com/GaryOcean428/gary-zero-sub006/config"
	"github.com/GaryOcean428/gary-zero-sub006/dispatch"
	"github.com/GaryOcean428/gary-zero-sub006/middleware"
	"github.com/GaryOcean428/gary-zero-sub006/registry"
	"github.com/GaryOcean428/gary-zero-sub006/rfc"
)

// ServiceName is the name runtime instances announce under in discovery.
const ServiceName = "runtime"

// registrationTTL is the discovery lease in seconds; KeepAlive renews it
// until shutdown.
const registrationTTL = 10

// Server serves the RFC endpoint for one runtime process.
type Server struct {
	secret string
	ops    *dispatch.Registry
	bridge *bridge.Bridge
	codec  codec.Codec
	log    *zap.Logger

	middlewares []middleware.Middleware
	buildOnce   sync.Once
	handler     middleware.HandlerFunc

	httpServer    *http.Server
	shutdown      atomic.Bool // Suppresses the listener-closed error during Shutdown
	reg           registry.Registry
	advertiseAddr string
}

// Option customizes a Server.
type Option func(*Server)

func WithLogger(log *zap.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithBridge shares an existing sync/async bridge instead of owning one.
func WithBridge(b *bridge.Bridge) Option {
	return func(s *Server) { s.bridge = b }
}

// New builds a Server for the given configuration and operation registry.
// The registry must be fully built before serving starts; it is treated as
// immutable afterward. A configuration without a secret is rejected here;
// an unauthenticated RFC server is never started.
func New(cfg *config.Config, ops *dispatch.Registry, opts ...Option) (*Server, error) {
	secret, err := cfg.RFCSecret()
	if err != nil {
		return nil, err
	}
	s := &Server{
		secret: secret,
		ops:    ops,
		bridge: bridge.New(),
		codec:  codec.Default(),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Use appends a middleware. Middlewares apply in registration order and must
// all be added before the first request is served.
func (s *Server) Use(mw middleware.Middleware) {
	s.middlewares = append(s.middlewares, mw)
}

// Handler returns the HTTP handler serving the RFC endpoint and a health
// probe. Useful for mounting into a larger router or an httptest server.
func (s *Server) Handler() http.Handler {
	// Build the middleware chain once, not per request.
	s.buildOnce.Do(func() {
		s.handler = middleware.Chain(s.middlewares...)(s.process)
	})

	r := chi.NewRouter()
	r.Post(rfc.DefaultPath, s.handleCall)
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Serve listens on listenAddr and blocks until Shutdown. When reg is
// non-nil the server announces advertiseAddr in discovery first;
// advertiseAddr differs from listenAddr because ":8880" is not routable for
// peers.
func (s *Server) Serve(listenAddr, advertiseAddr string, reg registry.Registry) error {
	if reg != nil {
		s.reg = reg
		s.advertiseAddr = advertiseAddr
		err := reg.Register(context.Background(), ServiceName,
			registry.Instance{Addr: advertiseAddr}, registrationTTL)
		if err != nil {
			return fmt.Errorf("server: announce instance: %w", err)
		}
	}

	s.httpServer = &http.Server{
		Addr:    listenAddr,
		Handler: s.Handler(),
	}
	s.log.Info("rfc server listening",
		zap.String("addr", listenAddr),
		zap.Int("operations", s.ops.Len()),
	)

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed || s.shutdown.Load() {
		return nil
	}
	return err
}

// Shutdown performs graceful shutdown:
//  1. Withdraw from discovery, so peers stop routing new calls here
//  2. Set the shutdown flag, so Serve treats the closed listener as intended
//  3. Stop accepting and wait for in-flight requests, bounded by timeout
func (s *Server) Shutdown(timeout time.Duration) error {
	if s.reg != nil {
		if err := s.reg.Deregister(context.Background(), ServiceName, s.advertiseAddr); err != nil {
			s.log.Warn("discovery deregister failed", zap.Error(err))
		}
	}

	s.shutdown.Store(true)
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: timeout waiting for in-flight requests: %w", err)
	}
	return nil
}

// handleCall is the HTTP shim around the middleware chain: decode the
// envelope, run the pipeline, write the in-band response. Only an
// undecodable body produces a non-200 answer.
func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeResponse(w, http.StatusBadRequest,
			rfc.NewError(rfc.ErrorKindApplication, "unreadable request body"))
		return
	}

	var req rfc.CallRequest
	if err := s.codec.Decode(body, &req); err != nil {
		s.writeResponse(w, http.StatusBadRequest,
			rfc.NewError(rfc.ErrorKindApplication, "malformed request body"))
		return
	}

	resp := s.handler(r.Context(), &req)
	s.writeResponse(w, http.StatusOK, resp)
}

// process is the core handler wrapped by the middleware chain: authenticate,
// resolve, invoke.
func (s *Server) process(ctx context.Context, req *rfc.CallRequest) *rfc.CallResponse {
	// Authentication first; a mismatch stops all further processing and
	// causes no side effects. Constant-time compare keeps the check free of
	// timing leaks even though the secret is a sandbox credential.
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(s.secret)) != 1 {
		return rfc.NewError(rfc.ErrorKindAuthorization, "secret mismatch")
	}

	if err := req.Validate(); err != nil {
		return rfc.NewError(rfc.ErrorKindUnknownFunction, err.Error())
	}

	// Resolution consults only the closed startup-built registry. A
	// same-named function anywhere else in this process is not callable.
	op, ok := s.ops.Resolve(req.Module, req.Function)
	if !ok {
		return rfc.NewError(rfc.ErrorKindUnknownFunction,
			fmt.Sprintf("no registered operation %s.%s", req.Module, req.Function))
	}

	result, err := s.bridge.Run(ctx, op.Bind(req.Args, req.Kwargs))
	if err != nil {
		// The operation executed and raised; the error travels in-band.
		return rfc.NewError(rfc.ErrorKindApplication, err.Error())
	}
	return rfc.NewResult(result)
}

func (s *Server) writeResponse(w http.ResponseWriter, status int, resp *rfc.CallResponse) {
	data, err := s.codec.Encode(resp)
	if err != nil {
		// An unserializable result is an operation bug; report it in-band
		// rather than dropping the connection.
		data, _ = s.codec.Encode(rfc.NewError(rfc.ErrorKindApplication,
			fmt.Sprintf("unserializable result: %v", err)))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		// The caller may have timed out and gone away; its call already
		// completed here and the result is simply discarded.
		s.log.Debug("response write failed, result discarded", zap.Error(err))
	}
}

package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/gatehouse/internal/event"
	"github.com/mattjoyce/gatehouse/internal/log"
	"github.com/mattjoyce/gatehouse/internal/signature"
)

// Server serves the provider webhook endpoints.
type Server struct {
	config     Config
	dispatcher Dispatcher
	store      Pinger
	logger     *slog.Logger
	server     *http.Server

	// Nil when the provider secret is not configured.
	clerk  *signature.SvixVerifier
	stripe *signature.StripeVerifier

	now func() time.Time
}

// New creates a webhook server. Verifiers are built once here; a secret that
// is present but unusable is a startup error.
func New(config Config, dispatcher Dispatcher, store Pinger, logger *slog.Logger) (*Server, error) {
	applyDefaults(&config)
	if logger == nil {
		logger = log.WithComponent("webhook")
	}

	s := &Server{
		config:     config,
		dispatcher: dispatcher,
		store:      store,
		logger:     logger,
		now:        time.Now,
	}

	if config.Clerk.Secret != "" {
		v, err := signature.NewSvixVerifier(config.Clerk.Secret, signature.WithTolerance(config.Clerk.Tolerance))
		if err != nil {
			return nil, fmt.Errorf("clerk webhook secret: %w", err)
		}
		s.clerk = v
	}
	if config.Stripe.Secret != "" {
		v, err := signature.NewStripeVerifier(config.Stripe.Secret, signature.WithTolerance(config.Stripe.Tolerance))
		if err != nil {
			return nil, fmt.Errorf("stripe webhook secret: %w", err)
		}
		s.stripe = v
	}
	return s, nil
}

func applyDefaults(c *Config) {
	if c.Clerk.Path == "" {
		c.Clerk.Path = "/clerk-users-webhook"
	}
	if c.Stripe.Path == "" {
		c.Stripe.Path = "/stripe-webhook"
	}
	for _, ep := range []*EndpointConfig{&c.Clerk, &c.Stripe} {
		if ep.MaxBodySize == 0 {
			ep.MaxBodySize = DefaultMaxBodySize
		}
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting",
		"listen", s.config.Listen,
		"clerk_path", s.config.Clerk.Path,
		"clerk_configured", s.clerk != nil,
		"stripe_path", s.config.Stripe.Path,
		"stripe_configured", s.stripe != nil,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// Handler returns the router with all middleware and routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Post(s.config.Clerk.Path, s.handleClerk)
	r.Post(s.config.Stripe.Path, s.handleStripe)
	r.Get("/healthz", s.handleHealth)

	return r
}

// loggingMiddleware logs HTTP requests (excludes sensitive payloads).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// readRequest enforces the body limit. ok is false when a response has
// already been written.
func (s *Server) readRequest(w http.ResponseWriter, r *http.Request, maxBodySize int64) (*Request, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusInternalServerError)
		return nil, false
	}
	if int64(len(body)) > maxBodySize {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return nil, false
	}
	return &Request{Body: body, Header: r.Header, ReceivedAt: s.now()}, true
}

func firstHeader(h http.Header, names ...string) string {
	for _, name := range names {
		if v := h.Get(name); v != "" {
			return v
		}
	}
	return ""
}

func (s *Server) handleClerk(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.With("provider", "clerk", "request_id", middleware.GetReqID(r.Context()))

	if s.clerk == nil {
		logger.Error("rejecting delivery", "error", ErrSecretNotConfigured)
		http.Error(w, ErrSecretNotConfigured.Error(), http.StatusInternalServerError)
		return
	}

	msgID := firstHeader(r.Header, headerSvixID, headerWebhookID)
	timestamp := firstHeader(r.Header, headerSvixTimestamp, headerWebhookTimestamp)
	sigHeader := firstHeader(r.Header, headerSvixSignature, headerWebhookSignature)
	if msgID == "" || timestamp == "" || sigHeader == "" {
		logger.Warn("rejecting delivery", "error", errMissingHeaders)
		http.Error(w, "missing svix headers", http.StatusBadRequest)
		return
	}

	req, ok := s.readRequest(w, r, s.config.Clerk.MaxBodySize)
	if !ok {
		return
	}

	res := s.clerk.Verify(msgID, timestamp, sigHeader, req.Body)
	if !res.Authentic {
		logger.Warn("webhook signature verification failed",
			"svix_id", msgID,
			"reason", res.Reason,
			"expected", signature.Redact(res.Expected),
			"candidates", len(res.Candidates),
		)
		http.Error(w, signature.ErrInvalidSignature.Error(), http.StatusBadRequest)
		return
	}

	ev, err := event.ParseClerk(req.Body)
	if err != nil {
		logger.Warn("invalid payload", "svix_id", msgID, "error", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if !s.project(r.Context(), w, logger.With("svix_id", msgID), ev) {
		return
	}
	s.respondJSON(w, http.StatusOK, clerkResponse{Success: true})
}

func (s *Server) handleStripe(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.With("provider", "stripe", "request_id", middleware.GetReqID(r.Context()))

	if s.stripe == nil {
		logger.Error("rejecting delivery", "error", ErrSecretNotConfigured)
		http.Error(w, ErrSecretNotConfigured.Error(), http.StatusInternalServerError)
		return
	}

	sigHeader := r.Header.Get(headerStripeSignature)
	if sigHeader == "" {
		logger.Warn("rejecting delivery", "error", errMissingHeaders)
		http.Error(w, "missing stripe-signature header", http.StatusBadRequest)
		return
	}

	req, ok := s.readRequest(w, r, s.config.Stripe.MaxBodySize)
	if !ok {
		return
	}

	res := s.stripe.Verify(sigHeader, req.Body)
	if !res.Authentic {
		logger.Warn("webhook signature verification failed",
			"reason", res.Reason,
			"expected", signature.Redact(res.Expected),
			"candidates", len(res.Candidates),
		)
		http.Error(w, signature.ErrInvalidSignature.Error(), http.StatusBadRequest)
		return
	}

	ev, err := event.ParseStripe(req.Body)
	if err != nil {
		logger.Warn("invalid payload", "error", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if !s.project(r.Context(), w, logger, ev) {
		return
	}
	s.respondJSON(w, http.StatusOK, stripeResponse{Received: true})
}

// project dispatches ev and writes a 500 on failure.
func (s *Server) project(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, ev event.Event) bool {
	outcome, err := s.dispatcher.Dispatch(ctx, ev)
	if err != nil {
		logger.Error("failed to project event", "kind", string(ev.Kind()), "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return false
	}
	logger.Info("webhook event processed", "kind", string(ev.Kind()), "outcome", string(outcome))
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.respondJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", "error", err)
		s.respondJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	s.respondJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Package server wires the HTTP API together: routing, middleware and the
// request handlers.
package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ptts/sonuby-api/internal/auth"
	"github.com/ptts/sonuby-api/internal/config"
	"github.com/ptts/sonuby-api/internal/errors"
	"github.com/ptts/sonuby-api/internal/feedback"
	"github.com/ptts/sonuby-api/internal/httputil"
	"github.com/ptts/sonuby-api/internal/logging"
	"github.com/ptts/sonuby-api/internal/metrics"
	"github.com/ptts/sonuby-api/internal/middleware"
	"github.com/ptts/sonuby-api/internal/offers"
)

const serviceName = "sonuby-api"

// Server holds the handler dependencies.
type Server struct {
	cfg      *config.Config
	logger   *logging.Logger
	verifier *auth.Verifier
	notifier *feedback.Notifier
	offers   []offers.Offer

	// meteoblueBaseURL is the partner API origin; overridden in tests.
	meteoblueBaseURL string
}

// New creates a server.
func New(cfg *config.Config, logger *logging.Logger, verifier *auth.Verifier, notifier *feedback.Notifier, availableOffers []offers.Offer) *Server {
	return &Server{
		cfg:              cfg,
		logger:           logger,
		verifier:         verifier,
		notifier:         notifier,
		offers:           availableOffers,
		meteoblueBaseURL: "",
	}
}

// Router builds the HTTP router with all routes and middleware.
func (s *Server) Router() *mux.Router {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	tracing := middleware.NewTracingMiddleware(s.logger)
	cors := middleware.NewCORSMiddleware([]string{"*"})
	authn := middleware.NewAuthMiddleware(s.verifier, s.cfg.Environment, s.logger)

	// The sign endpoints carry no auth, so they get a per-address rate
	// limit instead.
	signLimiter := middleware.NewRateLimiter(20, 40, s.logger)
	signLimiter.StartCleanup(10 * time.Minute)

	r := mux.NewRouter()
	r.Use(mux.MiddlewareFunc(tracing.Handler))
	r.Use(middleware.MetricsMiddleware(serviceName, m))
	r.Use(mux.MiddlewareFunc(cors.Handler))

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusNotFound, "")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "")
	})

	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)

	r.Handle("/", s.handle(s.handleIndex)).Methods(http.MethodGet)

	// The sign endpoints are called before the app user is signed in, so
	// they carry no auth middleware.
	r.Handle("/v1/sign", signLimiter.Handler(s.handle(s.handleSignV1))).Methods(http.MethodPost)
	r.Handle("/v1.3/sign", signLimiter.Handler(s.handle(s.handleSignV13))).Methods(http.MethodPost)

	authed := func(h http.Handler) http.Handler { return authn.Handler(h) }
	r.Handle("/v1/store/coupon/{coupon}", authed(s.handle(s.handleCouponV1))).Methods(http.MethodGet)
	r.Handle("/v1.5/store/coupon/{coupon}", authed(s.handle(s.handleCouponV15))).Methods(http.MethodGet)
	r.Handle("/v1/feedback", authed(s.handle(s.handleFeedback))).Methods(http.MethodPost)
	r.Handle("/v1/offers", authed(s.handle(s.handleOffers))).Methods(http.MethodGet)
	r.Handle("/v1/system_notifications", authed(s.handle(s.handleSystemNotifications))).Methods(http.MethodGet)
	r.Handle("/v1/credentials/{id}", authed(s.handle(s.handleCredentials))).Methods(http.MethodGet)
	r.Handle("/v1/in_app_events/{eventId}", authed(s.handle(s.handleInAppEvents))).Methods(http.MethodGet)

	return r
}

// handlerFunc is a request handler that reports failures as errors instead
// of writing them itself.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle adapts a handlerFunc into an http.Handler. Service errors map to
// the standard envelope; anything else collapses to a generic 500 so no
// raw error ever reaches the caller. Errors carrying a log event are
// forwarded to the operational channel best-effort.
func (s *Server) handle(h handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}

		serviceErr := errors.GetServiceError(err)
		if serviceErr == nil {
			serviceErr = errors.Internal("", err)
		}

		s.logger.WithContext(r.Context()).WithError(err).WithFields(map[string]interface{}{
			"path":   r.URL.Path,
			"method": r.Method,
			"status": serviceErr.HTTPStatus,
		}).Error("request failed")

		if serviceErr.LogEvent != nil && s.notifier != nil {
			s.notifier.NotifyError(r.Context(), *serviceErr.LogEvent)
		}

		httputil.WriteError(w, serviceErr.HTTPStatus, serviceErr.Message)
	})
}

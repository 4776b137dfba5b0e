package api

import (
	"context"
	"net/http"

	"finance-agreements/internal/common/config"
	"finance-agreements/internal/common/errors"
	"finance-agreements/internal/common/logger"
	"finance-agreements/internal/common/middleware"
	"finance-agreements/internal/common/ratelimit"
	"finance-agreements/internal/common/salesforce"
	"finance-agreements/internal/finance"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const CalculateFinanceAgreementPath = "/api/calculateFinanceAgreement"

// ReadinessChecker is a dependency probed by /ready.
type ReadinessChecker interface {
	Name() string
	Ping(ctx context.Context) error
}

type RouterOptions struct {
	AppConfig   config.AppConfig
	Logger      logger.Logger
	Service     *finance.Service
	Connections *salesforce.ConnectionFactory
	// RateLimiter is optional; nil disables rate limiting.
	RateLimiter *ratelimit.Limiter
	Readiness   []ReadinessChecker
	// MetricsHandler defaults to promhttp.Handler().
	MetricsHandler http.Handler

	// TrustForwardedFor keys the rate limiter by X-Forwarded-For.
	TrustForwardedFor bool
}

// NewRouter builds the HTTP surface of the service.
func NewRouter(opts RouterOptions) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	connections := opts.Connections
	if connections == nil {
		connections = salesforce.NewConnectionFactory(nil, "", nil, log)
	}
	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	h := &Handler{
		app:       opts.AppConfig,
		service:   opts.Service,
		logger:    log,
		errors:    errors.NewErrorHandler(log),
		readiness: opts.Readiness,
	}

	router := mux.NewRouter()
	router.Use(middleware.Metrics)

	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.Ready).Methods(http.MethodGet)
	router.HandleFunc("/api-docs", h.APIDocs).Methods(http.MethodGet)
	router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)

	apiRouter := router.PathPrefix("/api").Subrouter()
	if opts.RateLimiter != nil {
		apiRouter.Use(ratelimit.Middleware(opts.RateLimiter, log, opts.TrustForwardedFor, h.writeError))
	}
	apiRouter.Use(salesforce.ConnectionMiddleware(connections, h.rejectClientContext))
	apiRouter.HandleFunc("/calculateFinanceAgreement", h.CalculateFinanceAgreement).Methods(http.MethodPost)

	router.NotFoundHandler = http.HandlerFunc(h.notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(h.methodNotAllowed)

	var handler http.Handler = router
	handler = middleware.Recovery(log, h.writeError)(handler)
	handler = middleware.Logging(log)(handler)
	handler = middleware.RequestID(handler)
	return handler
}

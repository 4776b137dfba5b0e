package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finance-agreements/internal/api"
	"finance-agreements/internal/common/camunda"
	"finance-agreements/internal/common/config"
	"finance-agreements/internal/common/database"
	"finance-agreements/internal/common/logger"
	"finance-agreements/internal/common/observability"
	"finance-agreements/internal/common/ratelimit"
	"finance-agreements/internal/common/salesforce"
	"finance-agreements/internal/finance"
	cfa "finance-agreements/internal/workers/finance/calculate-finance-agreement"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"
)

type application struct {
	cfg       *config.Config
	log       logger.Logger
	obs       *observability.Observability
	redis     *database.RedisClient
	zeebe     *camunda.Client
	jobWorker worker.JobWorker
	handler   http.Handler
}

func newApplication(ctx context.Context, cfg *config.Config, log logger.Logger, obsOpts observability.Options) (*application, error) {
	app := &application{cfg: cfg, log: log}

	obsOpts.JaegerEndpoint = cfg.Observability.JaegerEndpoint
	obs, err := observability.New(cfg.Observability.ServiceName, obsOpts)
	if err != nil {
		return nil, fmt.Errorf("observability init failed: %w", err)
	}
	app.obs = obs

	service := finance.NewService(finance.ServiceDependencies{
		Logger:    log,
		Telemetry: obs,
	})

	httpClient := &http.Client{Timeout: config.GetDuration(cfg.Salesforce.Timeout)}

	var fallback salesforce.Connection
	if user, ok := salesforce.IntegrationUserFromConfig(cfg.Salesforce); ok {
		fallback = salesforce.NewIntegrationUserClient(user, httpClient)
		log.Info("Salesforce integration user configured", map[string]interface{}{
			"instanceUrl": user.InstanceURL,
			"apiVersion":  user.APIVersion,
		})
	} else {
		log.Warn("No Salesforce integration user configured, requests need a client context", nil)
	}
	connections := salesforce.NewConnectionFactory(httpClient, cfg.Salesforce.APIVersion, fallback, log)

	var readiness []api.ReadinessChecker
	var limiter *ratelimit.Limiter
	if cfg.Redis.Address != "" {
		app.redis = database.NewRedis(cfg.Redis)
		readiness = append(readiness, app.redis)
		if cfg.RateLimit.Enabled {
			limiter = ratelimit.NewLimiter(app.redis.Client, cfg.RateLimit.Requests, config.GetDuration(cfg.RateLimit.Window))
			log.Info("Rate limiting enabled", map[string]interface{}{
				"requests":  cfg.RateLimit.Requests,
				"window_ms": cfg.RateLimit.Window,
			})
		}
	}

	if cfg.Camunda.Enabled {
		if err := app.startWorker(ctx, service, fallback); err != nil {
			app.close(context.Background())
			return nil, err
		}
		readiness = append(readiness, app.zeebe)
	}

	app.handler = api.NewRouter(api.RouterOptions{
		AppConfig:         cfg.App,
		Logger:            log,
		Service:           service,
		Connections:       connections,
		RateLimiter:       limiter,
		TrustForwardedFor: cfg.RateLimit.TrustForwardedFor,
		Readiness:         readiness,
	})

	return app, nil
}

func (a *application) startWorker(ctx context.Context, service *finance.Service, conn salesforce.Connection) error {
	zeebe, err := camunda.ConnectWithRetry(ctx, camunda.ConfigFromApp(a.cfg.Camunda), a.log)
	if err != nil {
		return fmt.Errorf("zeebe client failed after retries: %w", err)
	}
	a.zeebe = zeebe
	a.log.Info("Zeebe client connected successfully", map[string]interface{}{
		"broker": a.cfg.Camunda.BrokerAddress,
	})

	handler, err := cfa.NewHandler(cfa.HandlerOptions{
		AppConfig:  a.cfg,
		Service:    service,
		Connection: conn,
		Logger:     a.log,
	})
	if err != nil {
		return fmt.Errorf("failed to create %s handler: %w", cfa.WorkerName, err)
	}

	a.jobWorker = camunda.StartWorker(zeebe.GetClient(), cfa.TaskType, handler.WorkerConfig(), handler.Handle, a.log)
	return nil
}

// serve runs the HTTP server on ln until ctx is cancelled, then shuts it down.
func (a *application) serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:      a.handler,
		ReadTimeout:  config.GetDuration(a.cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(a.cfg.Server.WriteTimeout),
		IdleTimeout:  config.GetDuration(a.cfg.Server.IdleTimeout),
	}

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info("HTTP server listening", map[string]interface{}{"addr": ln.Addr().String()})
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		a.log.Info("Shutting down server...", nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(a.cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error during server shutdown: %w", err)
	}
	<-serverErr
	return nil
}

func (a *application) close(ctx context.Context) {
	if a.jobWorker != nil {
		a.jobWorker.Close()
		a.jobWorker.AwaitClose()
	}
	if a.zeebe != nil {
		if err := a.zeebe.Close(); err != nil {
			a.log.Error("Error closing Zeebe client", map[string]interface{}{"error": err.Error()})
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("Error closing Redis client", map[string]interface{}{"error": err.Error()})
		}
	}
	if a.obs != nil {
		if err := a.obs.Shutdown(ctx); err != nil {
			a.log.Error("Error shutting down observability", map[string]interface{}{"error": err.Error()})
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting finance agreements service",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, log, observability.Options{SetGlobal: true})
	if err != nil {
		zapLog.Fatal("startup failed", zap.Error(err))
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		app.close(context.Background())
		zapLog.Fatal("listen failed", zap.Error(err), zap.String("addr", cfg.Server.Addr()))
	}

	if err := app.serve(ctx, ln); err != nil {
		zapLog.Error("server stopped with error", zap.Error(err))
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	app.close(closeCtx)

	zapLog.Info("Server exited")
}

// Command riak-devnode serves an in-memory Riak node over HTTP for local
// development and integration tests.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/riak/internal/config"
	logpkg "github.com/kailas-cloud/riak/internal/logger"
	"github.com/kailas-cloud/riak/internal/metrics"
	"github.com/kailas-cloud/riak/internal/version"
	"github.com/kailas-cloud/riak/riaktest"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting riak dev node",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.DevNode.Port),
		zap.Bool("auth", cfg.DevNode.Username != ""),
	)

	handler, err := newHandler(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build handler", zap.Error(err))
	}

	addr := fmt.Sprintf(":%d", cfg.DevNode.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.DevNode.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.DevNode.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.DevNode.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// newHandler wires the node behind recovery, request logging and, when
// enabled, prometheus metrics.
func newHandler(cfg config.Config, logger *zap.Logger) (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(logpkg.RequestLog(logger))

	opts := []riaktest.Option{
		riaktest.WithLogger(logger),
		riaktest.WithBasicAuth(cfg.DevNode.Username, cfg.DevNode.Password),
	}

	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		httpMetrics, err := metrics.NewHTTP(reg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, riaktest.WithMiddleware(httpMetrics.Middleware()))
	}

	node := riaktest.NewNode(opts...)
	if reg != nil {
		if err := metrics.RegisterNode(reg, node); err != nil {
			return nil, err
		}
		r.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}
	r.Mount("/", node)
	return r, nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

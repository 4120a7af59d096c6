package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"storefront-service/internal/api"
	"storefront-service/internal/auth"
	"storefront-service/internal/config"
	"storefront-service/internal/metrics"
	"storefront-service/internal/notify"
	"storefront-service/internal/service"
	"storefront-service/internal/store"
)

const (
	defaultAppName  = "StorefrontService"
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 30 * time.Second
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found or failed to load, relying on system environment")
	}
	logger := log.New(os.Stdout, fmt.Sprintf("[%s] ", defaultAppName), log.LstdFlags|log.Lshortfile|log.Lmicroseconds)
	logger.Println("INFO: Starting storefront...")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("FATAL: Invalid configuration: %v", err)
	}
	logger.Printf("INFO: Running with APP_ENV=%s LOG_LEVEL=%s", cfg.AppEnv, cfg.LogLevel)

	// --- Database ---
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := store.Open(startupCtx, cfg.Postgres)
	if err != nil {
		cancelStartup()
		logger.Fatalf("FATAL: Database unavailable: %v", err)
	}
	dbStore := store.NewPostgresStore(db, clock.WallClock)
	if err := dbStore.Migrate(startupCtx); err != nil {
		cancelStartup()
		dbStore.Close()
		logger.Fatalf("FATAL: Failed to apply migrations: %v", err)
	}
	cancelStartup()
	logger.Println("INFO: Database connection established and schema is up to date.")

	// --- Mail ---
	var sender notify.Sender = notify.NewSMTPMailer(cfg.SMTP)
	if cfg.SMTP.User == "" {
		logger.Println("WARN: SMTP_USER is not set, emails will only be logged.")
		sender = notify.LogSender{}
	}
	dispatcher := notify.NewDispatcher(sender, notify.Links{ClientURL: cfg.ClientURL, BackendURL: cfg.BackendURL}, cfg.SMTP.Timeout)

	// --- Metrics ---
	collector := metrics.NewCollector()
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collector,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// --- Services ---
	tokens := auth.NewTokenManager(cfg.JWT, clock.WallClock)
	google := auth.NewGoogleProvider(cfg.Google, cfg.BackendURL)
	if google == nil {
		logger.Println("INFO: GOOGLE_CLIENT_ID is not set, Google sign-in is disabled.")
	}

	orders := service.NewOrderService(dbStore, dispatcher, collector, service.OrderOptions{
		TrackingIDAttempts: cfg.Orders.TrackingIDAttempts,
		TrackingIDDelay:    cfg.Orders.TrackingIDDelay,
		Clock:              clock.WallClock,
	})
	accounts := service.NewAccountService(dbStore, tokens, dispatcher, google)
	dashboard := service.NewAdminService(dbStore, cfg.Orders.LowStockThreshold)

	httpAPIHandler := api.NewHTTPHandler(api.Dependencies{
		Categories:    dbStore,
		Products:      dbStore,
		Carts:         dbStore,
		Users:         dbStore,
		Orders:        orders,
		Accounts:      accounts,
		Dashboard:     dashboard,
		Tokens:        tokens,
		ClientURL:     cfg.ClientURL,
		SecureCookies: cfg.AppEnv == "production",
	})
	grpcAPIHandler := api.NewGRPCHandler(orders, dbStore)

	// --- HTTP server ---
	httpRouter := chi.NewRouter()
	setupBaseMiddleware(httpRouter, logger, collector)
	registerHealthCheck(httpRouter, logger, dbStore)
	httpRouter.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	httpAPIHandler.RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      httpRouter,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	go func() {
		logger.Printf("INFO: HTTP listening on :%s", cfg.HttpServer.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("FATAL: HTTP server failed: %v", err)
		}
		logger.Println("INFO: HTTP server stopped.")
	}()

	// --- gRPC server ---
	grpcServer := setupGRPCServer(logger, grpcAPIHandler)
	grpcListener, err := net.Listen("tcp", ":"+cfg.GrpcServer.Port)
	if err != nil {
		logger.Fatalf("FATAL: Cannot bind gRPC port %s: %v", cfg.GrpcServer.Port, err)
	}

	go func() {
		logger.Printf("INFO: gRPC listening on :%s", cfg.GrpcServer.Port)
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Fatalf("FATAL: gRPC server failed: %v", err)
		}
		logger.Println("INFO: gRPC server stopped.")
	}()

	done := make(chan struct{})
	go waitForShutdown(logger, httpServer, grpcServer, dispatcher, dbStore, done)

	<-done
	logger.Println("INFO: Bye.")
}

func setupBaseMiddleware(router *chi.Mux, logger *log.Logger, collector *metrics.Collector) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(requestTimeout))
	router.Use(collector.Middleware)
	logger.Println("INFO: HTTP middleware installed.")
}

func registerHealthCheck(router *chi.Mux, logger *log.Logger, dbStore *store.PostgresStore) {
	healthPath := "/api/healthz"
	router.Get(healthPath, func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		dbStatus := "healthy"
		code := http.StatusOK
		if err := dbStore.Ping(ctx); err != nil {
			dbStatus = "unhealthy"
			code = http.StatusServiceUnavailable
			logger.Printf("WARN: Readiness ping failed: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"serviceName": defaultAppName,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"database":    dbStatus,
		})
	})
	logger.Printf("INFO: Readiness check at %s", healthPath)
}

func setupGRPCServer(logger *log.Logger, grpcAPIHandler *api.GRPCHandler) *grpc.Server {
	s := grpc.NewServer(grpc.UnaryInterceptor(api.LoggingInterceptor))

	api.RegisterStorefrontServer(s, grpcAPIHandler)
	logger.Printf("INFO: %s gRPC service registered.", api.StorefrontServiceName)

	grpc_health_v1.RegisterHealthServer(s, health.NewServer())
	logger.Println("INFO: gRPC health service registered.")

	// Reflection lets grpcurl discover the service.
	reflection.Register(s)
	logger.Println("INFO: gRPC reflection enabled.")

	return s
}

func waitForShutdown(
	logger *log.Logger,
	httpServer *http.Server,
	grpcServer *grpc.Server,
	dispatcher *notify.Dispatcher,
	dbStore *store.PostgresStore,
	done chan struct{},
) {
	defer close(done)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	receivedSignal := <-signals
	logger.Printf("INFO: Got %s, shutting down", receivedSignal)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	grpcDone := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(grpcDone)
	}()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("WARN: HTTP drain failed: %v", err)
	} else {
		logger.Println("INFO: HTTP drained.")
	}

	select {
	case <-grpcDone:
		logger.Println("INFO: gRPC drained.")
	case <-shutdownCtx.Done():
		logger.Printf("WARN: gRPC drain timed out: %v", shutdownCtx.Err())
		grpcServer.Stop()
		logger.Println("INFO: gRPC stopped forcefully.")
	}

	// Emails queued by finished requests may still be in flight.
	mailDone := make(chan struct{})
	go func() {
		dispatcher.Wait()
		close(mailDone)
	}()
	select {
	case <-mailDone:
		logger.Println("INFO: Pending emails flushed.")
	case <-shutdownCtx.Done():
		logger.Println("WARN: Gave up waiting for pending emails.")
	}

	if err := dbStore.Close(); err != nil {
		logger.Printf("WARN: Failed to close database pool: %v", err)
	}

	logger.Println("INFO: Shutdown complete.")
}

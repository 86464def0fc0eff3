package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/stuartshay/walkroute/internal/config"
	"github.com/stuartshay/walkroute/internal/database"
	grpcserver "github.com/stuartshay/walkroute/internal/grpc"
	"github.com/stuartshay/walkroute/internal/heading"
	"github.com/stuartshay/walkroute/internal/logging"
	"github.com/stuartshay/walkroute/internal/ors"
	"github.com/stuartshay/walkroute/internal/route"
	"github.com/stuartshay/walkroute/internal/session"
	"github.com/stuartshay/walkroute/internal/tracing"
	"github.com/stuartshay/walkroute/internal/ws"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("info", "")
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize structured logging
	logCloser := logging.Setup(cfg.LogLevel, cfg.LogFile)
	defer logCloser.Close()

	log.Info().
		Str("service_name", cfg.ServiceName).
		Str("version", version).
		Str("environment", cfg.Environment).
		Str("grpc_port", cfg.GRPCPort).
		Str("http_port", cfg.HTTPPort).
		Bool("database_enabled", cfg.DatabaseEnabled).
		Str("ors_profile", cfg.ORSProfile).
		Int("route_workers", cfg.RouteWorkers).
		Str("heading_mode", cfg.HeadingMode).
		Msg("Configuration loaded")

	shutdownTracer, err := tracing.InitTracer(tracing.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRatio:    cfg.TraceSampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracing")
	}

	// Initialize database client
	var (
		dbClient  *database.Client
		store     route.Store
		locations grpcserver.LocationSource
	)
	if cfg.DatabaseEnabled {
		dbClient, err = connectDatabase(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer dbClient.Close()
		store = dbClient
		locations = dbClient
	} else {
		log.Warn().Msg("Database disabled: route cache is in-memory only and track replay is unavailable")
	}

	// Routing provider
	orsClient, err := ors.NewClient(ors.Config{
		APIKey:  cfg.ORSAPIKey,
		BaseURL: cfg.ORSBaseURL,
		Profile: cfg.ORSProfile,
		Timeout: cfg.ORSTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize routing provider")
	}
	provider := route.NewCachedProvider(orsClient, store, cfg.RouteCacheSize, cfg.RouteCacheTTL)
	generator := route.NewGenerator(provider, route.NewLockedSource(newRandomSource(cfg.RouteRandomSeed)))

	sessions := session.NewManager(heading.Options{
		Size:      cfg.HeadingBufferSize,
		Threshold: cfg.HeadingThreshold,
		Mode:      heading.Mode(cfg.HeadingMode),
	})

	// Initialize gRPC server
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))

	// Register session service
	sessionServer := grpcserver.NewServer(cfg, sessions, generator, locations)
	grpcserver.RegisterSessionServiceServer(grpcServer, sessionServer)

	// Register health check service
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcserver.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	// Enable server reflection for debugging
	reflection.Register(grpcServer)

	var ready readinessFunc
	if dbClient != nil {
		ready = dbClient.HealthCheck
	}
	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           newHTTPHandler(cfg.ServiceName, ready, ws.NewHandler(sessions)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create TCP listener")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.GRPCPort).Msg("gRPC server listening")
		return grpcServer.Serve(listener)
	})

	g.Go(func() error {
		log.Info().Str("port", cfg.HTTPPort).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutdown signal received, gracefully stopping...")

		healthServer.Shutdown()
		shutdownServers(grpcServer, httpServer, 30*time.Second)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server failed")
	}

	// Shutdown route workers
	if err := sessionServer.Shutdown(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown route workers")
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracer(flushCtx); err != nil {
		log.Error().Err(err).Msg("Failed to flush traces")
	}

	log.Info().Msg("Service shutdown complete")
}

func connectDatabase(cfg *config.Config) (*database.Client, error) {
	dbClient, err := database.NewClient(cfg.DatabaseDSN(), database.WithRouteTTL(cfg.RouteCacheTTL))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := dbClient.HealthCheck(ctx); err != nil {
		dbClient.Close()
		return nil, fmt.Errorf("database health check failed: %w", err)
	}
	if err := dbClient.EnsureSchema(ctx); err != nil {
		dbClient.Close()
		return nil, err
	}

	log.Info().
		Str("db_host", cfg.PostgresHost).
		Str("db_port", cfg.PostgresPort).
		Msg("Database connection established")
	return dbClient, nil
}

// newRandomSource seeds the bearing generator. A zero seed picks one from
// the clock.
func newRandomSource(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func shutdownServers(grpcServer *grpc.Server, httpServer *http.Server, timeout time.Duration) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown incomplete")
	}

	// Stop gRPC server
	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-shutdownCtx.Done():
		log.Warn().Msg("Shutdown timeout exceeded, forcing stop")
		grpcServer.Stop()
	case <-stopped:
		log.Info().Msg("gRPC server stopped")
	}
}

// readinessFunc reports whether a dependency is usable
type readinessFunc func(context.Context) error

// newHTTPHandler builds the probe and WebSocket routes. ready may be nil.
func newHTTPHandler(serviceName string, ready readinessFunc, events http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": serviceName})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				log.Warn().Err(err).Msg("Readiness check failed")
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "service": serviceName})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "service": serviceName})
	})

	mux.Handle("GET /ws/sessions/{id}", events)

	return mux
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body) //nolint:errcheck
}

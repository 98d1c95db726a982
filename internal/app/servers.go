package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	healthcheck "github.com/vladislavdragonenkov/fastfood/internal/health"
	"github.com/vladislavdragonenkov/fastfood/internal/version"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	readHeaderTimeout      = 5 * time.Second
	grpcHealthInterval     = 5 * time.Second
)

// opsServers поднимает служебные эндпоинты (HTTP и gRPC health).
type opsServers struct {
	logger *log.Entry
	health *healthcheck.Handler
	http   *http.Server
	grpc   *grpc.Server
	grpcHC *health.Server
	every  time.Duration
}

func newOpsServers(checks *healthcheck.Handler, registerer prometheus.Registerer, gatherer prometheus.Gatherer, logger *log.Entry) *opsServers {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := registerer.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(grpcMetrics.StreamServerInterceptor()),
	)
	grpcHC := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, grpcHC)
	reflection.Register(grpcServer)
	grpcMetrics.InitializeMetrics(grpcServer)

	return &opsServers{
		logger: logger,
		health: checks,
		http: &http.Server{
			Handler:           opsMux(checks, gatherer),
			ReadHeaderTimeout: readHeaderTimeout,
		},
		grpc:   grpcServer,
		grpcHC: grpcHC,
		every:  grpcHealthInterval,
	}
}

// opsMux отдаёт /metrics, /healthz, /livez, /readyz и /version.
func opsMux(checks *healthcheck.Handler, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", checks)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", checks.ReadinessHandler)
	mux.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(version.Fields())
	})
	return mux
}

func (o *opsServers) start(ctx context.Context, g *errgroup.Group, httpLn, grpcLn net.Listener) {
	g.Go(func() error {
		o.logger.Infof("метрики доступны по адресу %s/metrics", httpLn.Addr())
		if err := o.http.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		o.logger.Infof("gRPC health слушает %s", grpcLn.Addr())
		if err := o.grpc.Serve(grpcLn); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		o.syncHealth(ctx)
		return nil
	})
}

// syncHealth переносит результат readiness в статус gRPC health.
func (o *opsServers) syncHealth(ctx context.Context) {
	ticker := time.NewTicker(o.every)
	defer ticker.Stop()

	for {
		o.grpcHC.SetServingStatus("", o.servingStatus(ctx))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (o *opsServers) servingStatus(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	if o.health.Ready(ctx) {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

func (o *opsServers) shutdown(ctx context.Context) {
	o.grpcHC.Shutdown()
	shutdownHTTP(ctx, o.http, "ops http", o.logger)

	stopped := make(chan struct{})
	go func() {
		o.grpc.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		o.logger.Warn("graceful stop превысил таймаут, принудительно останавливаем gRPC")
		o.grpc.Stop()
	}
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(ctx context.Context, srv *http.Server, name string, logger *log.Entry) {
	if srv == nil {
		return
	}
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warnf("%s shutdown with error", name)
	}
}

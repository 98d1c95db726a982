// Package app собирает сервис из конфигурации и управляет его жизненным циклом.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/fastfood/internal/config"
	"github.com/vladislavdragonenkov/fastfood/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/fastfood/internal/health"
	"github.com/vladislavdragonenkov/fastfood/internal/metrics"
	"github.com/vladislavdragonenkov/fastfood/internal/service/catalog"
	"github.com/vladislavdragonenkov/fastfood/internal/service/checkout"
	"github.com/vladislavdragonenkov/fastfood/internal/service/customer"
	"github.com/vladislavdragonenkov/fastfood/internal/service/journal"
	"github.com/vladislavdragonenkov/fastfood/internal/service/order"
	"github.com/vladislavdragonenkov/fastfood/internal/service/outbox"
	"github.com/vladislavdragonenkov/fastfood/internal/service/payment"
	"github.com/vladislavdragonenkov/fastfood/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/fastfood/internal/version"
)

// Options задаёт логгер и реестр метрик; пустые поля заменяются глобальными.
type Options struct {
	Logger     *log.Entry
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// App — собранный сервис: хранилище, сервисы, HTTP API и ops-эндпоинты.
type App struct {
	cfg      config.Config
	logger   *log.Entry
	storage  *Storage
	brokers  *publishers
	health   *healthcheck.Handler
	router   *gin.Engine
	worker   *outbox.Worker
	ops      *opsServers
	services Services
}

// Services — прикладные сервисы, доступные транспорту.
type Services struct {
	Customers *customer.Service
	Catalog   *catalog.Service
	Checkout  *checkout.Service
	Orders    *order.Service
	Payments  *payment.Service
}

// New собирает приложение. При ошибке уже открытые ресурсы закрываются.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "app")
	}
	registerer := opts.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	storage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	orderMetrics := metrics.NewOrderMetrics(registerer)
	recorder := journal.NewRecorder(storage.Outbox, storage.Timeline, orderMetrics)

	orders := order.NewService(storage.Orders, storage.Timeline, storage.UoW, recorder,
		logger.WithField("component", "order-service"))
	services := Services{
		Customers: customer.NewService(storage.Customers, logger.WithField("component", "customer-service")),
		Catalog:   catalog.NewService(storage.Products, logger.WithField("component", "catalog-service")),
		Checkout: checkout.NewService(checkout.Dependencies{
			Customers: storage.Customers,
			Products:  storage.Products,
			Orders:    storage.Orders,
			Payments:  storage.Payments,
			UoW:       storage.UoW,
			Gateway:   newGateway(cfg.Payment, logger),
			Journal:   recorder,
			Metrics:   orderMetrics,
			Logger:    logger.WithField("component", "checkout-service"),
		}),
		Orders: orders,
		Payments: payment.NewService(storage.Payments, orders, storage.UoW, recorder, orderMetrics,
			logger.WithField("component", "payment-service")),
	}

	httpLogger := logger.WithField("component", "http")
	router := httpapi.NewRouter(httpapi.RouterOptions{
		Config:  cfg,
		Logger:  httpLogger,
		Metrics: metrics.NewHTTPMetrics(registerer),
		Controllers: []httpapi.Controller{
			httpapi.NewCustomerController(services.Customers, httpLogger),
			httpapi.NewProductController(services.Catalog, httpLogger),
			httpapi.NewOrderController(services.Checkout, services.Orders, httpLogger),
			httpapi.NewPaymentController(services.Payments, httpLogger),
		},
	})

	health := healthcheck.NewHandler(version.GetVersion())
	if storage.checker != nil {
		health.RegisterChecker("storage", storage.checker)
	}
	health.RegisterChecker("outbox", healthcheck.NewOutboxChecker(storage.Outbox, cfg.Outbox.MaxPending))

	brokers := buildPublishers(cfg, logger)
	var worker *outbox.Worker
	switch {
	case !cfg.Outbox.Enabled:
		logger.Info("outbox worker is disabled by config")
	case brokers.events == nil:
		logger.Warn("no message brokers configured, events stay in outbox")
	default:
		worker = outbox.NewWorker(storage.Outbox, brokers.events,
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithDeadLetters(brokers.deadLetters),
			outbox.WithMetrics(metrics.NewOutboxMetrics(registerer)),
			outbox.WithPollInterval(cfg.Outbox.PollInterval),
			outbox.WithBatchSize(cfg.Outbox.BatchSize),
			outbox.WithMaxAttempts(cfg.Outbox.MaxAttempts),
			outbox.WithRetryBaseDelay(cfg.Outbox.RetryDelay),
		)
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		storage:  storage,
		brokers:  brokers,
		health:   health,
		router:   router,
		worker:   worker,
		ops:      newOpsServers(health, registerer, gatherer, logger),
		services: services,
	}, nil
}

func newGateway(cfg config.PaymentConfig, logger *log.Entry) domain.PaymentGateway {
	if cfg.Gateway == "mock" {
		logger.Warn("using mock payment gateway")
		return payment.NewMockGateway()
	}
	return payment.NewMercadoPagoGateway(cfg.NotificationURL)
}

// Handler возвращает HTTP API без запуска сервера.
func (a *App) Handler() http.Handler { return a.router }

// Services возвращает прикладные сервисы приложения.
func (a *App) Services() Services { return a.services }

// Run слушает адреса из конфигурации до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	var lc net.ListenConfig
	listeners := make([]net.Listener, 0, 3)
	closeAll := func() {
		for _, l := range listeners {
			_ = l.Close()
		}
	}
	for _, addr := range []string{a.cfg.HTTP.Addr, a.cfg.Ops.MetricsAddr, a.cfg.Ops.GRPCAddr} {
		l, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			closeAll()
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		listeners = append(listeners, l)
	}
	return a.serve(ctx, listeners[0], listeners[1], listeners[2])
}

func (a *App) serve(ctx context.Context, apiLn, opsLn, grpcLn net.Listener) error {
	apiSrv := &http.Server{
		Handler:           a.router,
		ReadTimeout:       a.cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      a.cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Infof("HTTP API слушает %s", apiLn.Addr())
		if err := apiSrv.Serve(apiLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http api: %w", err)
		}
		return nil
	})
	a.ops.start(gctx, g, opsLn, grpcLn)
	if a.worker != nil {
		g.Go(func() error {
			a.worker.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("получен сигнал остановки, останавливаем серверы")

		timeout := a.cfg.HTTP.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		shutdownHTTP(shutdownCtx, apiSrv, "http api", a.logger)
		a.ops.shutdown(shutdownCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Close освобождает брокеры и хранилище.
func (a *App) Close() {
	a.brokers.close(a.logger)
	if err := a.storage.Close(); err != nil {
		a.logger.WithError(err).Warn("failed to close storage")
	}
}

// Run собирает приложение, обслуживает запросы до отмены ctx и освобождает ресурсы.
func Run(ctx context.Context, cfg config.Config, logger *log.Entry) error {
	application, err := New(ctx, cfg, Options{Logger: logger})
	if err != nil {
		return err
	}
	defer application.Close()
	return application.Run(ctx)
}

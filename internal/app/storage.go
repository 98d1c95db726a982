package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/fastfood/internal/config"
	"github.com/vladislavdragonenkov/fastfood/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/fastfood/internal/health"
	"github.com/vladislavdragonenkov/fastfood/internal/storage/memory"
	"github.com/vladislavdragonenkov/fastfood/internal/storage/postgres"
)

// Storage — репозитории выбранного драйвера с общей границей транзакций.
type Storage struct {
	Customers domain.CustomerRepository
	Products  domain.ProductRepository
	Orders    domain.OrderRepository
	Payments  domain.PaymentRepository
	Outbox    domain.OutboxRepository
	Timeline  domain.TimelineRepository
	UoW       domain.UnitOfWork

	// checker есть только у внешнего хранилища.
	checker healthcheck.Checker
	closeFn func() error
}

// Close освобождает подключение к БД, если оно есть.
func (s *Storage) Close() error {
	if s == nil || s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

func openStorage(ctx context.Context, cfg config.Config, logger *log.Entry) (*Storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		logger.Info("using in-memory storage")
		return newMemoryStorage(), nil
	case config.StorageDriverPostgres:
		return openPostgresStorage(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

func newMemoryStorage() *Storage {
	store := memory.NewStore()
	return &Storage{
		Customers: store.Customers(),
		Products:  store.Products(),
		Orders:    store.Orders(),
		Payments:  store.Payments(),
		Outbox:    store.Outbox(),
		Timeline:  store.Timeline(),
		UoW:       store.UnitOfWork(),
	}
}

func openPostgresStorage(ctx context.Context, cfg config.Config, logger *log.Entry) (*Storage, error) {
	store, err := postgres.Open(ctx, cfg.PostgresDSN())
	if err != nil {
		return nil, err
	}

	db := store.DB()
	if cfg.Postgres.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	}
	if cfg.Postgres.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	}
	if cfg.Postgres.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
	}

	if cfg.Postgres.AutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("postgres migrations applied")
	}

	logger.WithFields(log.Fields{
		"host":     cfg.Postgres.Host,
		"database": cfg.Postgres.Name,
	}).Info("using postgres storage")

	return &Storage{
		Customers: postgres.NewCustomerRepository(store),
		Products:  postgres.NewProductRepository(store),
		Orders:    postgres.NewOrderRepository(store),
		Payments:  postgres.NewPaymentRepository(store),
		Outbox:    postgres.NewOutboxRepository(store),
		Timeline:  postgres.NewTimelineRepository(store),
		UoW:       store.UnitOfWork(),
		checker:   healthcheck.NewPingChecker("postgres", store.Ping),
		closeFn:   store.Close,
	}, nil
}

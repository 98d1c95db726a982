package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/fastfood/internal/app"
	"github.com/vladislavdragonenkov/fastfood/internal/config"
	"github.com/vladislavdragonenkov/fastfood/internal/logging"
	"github.com/vladislavdragonenkov/fastfood/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (default: ./config.yaml or ./config/config.yaml)")
	flag.Parse()

	os.Exit(run(*configPath))
}

// run возвращает код выхода, чтобы отложенные Close успели выполниться.
func run(configPath string) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.WithError(err).Error("не удалось загрузить конфигурацию")
		return 1
	}

	closer, err := logging.Setup(log.StandardLogger(), cfg.Log)
	if err != nil {
		log.WithError(err).Error("не удалось настроить логирование")
		return 1
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.WithFields(version.Fields())
	logger.WithFields(log.Fields{
		"environment":  cfg.Environment,
		"http_addr":    cfg.HTTP.Addr,
		"metrics_addr": cfg.Ops.MetricsAddr,
		"grpc_addr":    cfg.Ops.GRPCAddr,
		"storage":      cfg.Storage.Driver,
	}).Info("запускаем fastfood")

	if err := app.Run(ctx, cfg, logger.WithField("component", "app")); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("приложение завершилось с ошибкой")
		return 1
	}

	logger.Info("fastfood остановлен")
	return 0
}

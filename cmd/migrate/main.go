package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/fastfood/internal/config"
	"github.com/vladislavdragonenkov/fastfood/internal/storage/postgres"
)

const migrateTimeout = 30 * time.Second

type command string

const (
	commandUp     command = "up"
	commandDown   command = "down"
	commandStatus command = "status"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run возвращает 2 при ошибке в аргументах и 1 при ошибке миграции.
func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	direction := fs.String("direction", string(commandUp), "up|down|status")
	steps := fs.Int("steps", 0, "migrations to apply (0 = all) or roll back (0 = 1)")
	dsn := fs.String("dsn", "", "PostgreSQL DSN (fallback: FASTFOOD_POSTGRES_* or the postgres section of -config)")
	configPath := fs.String("config", "", "path to YAML config")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cmd, err := parseCommand(*direction)
	if err != nil {
		log.WithError(err).Error("bad arguments")
		return 2
	}
	resolved, err := resolveDSN(*dsn, *configPath)
	if err != nil {
		log.WithError(err).Error("bad arguments")
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()

	if err := execute(ctx, cmd, *steps, resolved, out); err != nil {
		log.WithError(err).WithField("command", cmd).Error("migration failed")
		return 1
	}
	return 0
}

func parseCommand(raw string) (command, error) {
	switch c := command(strings.ToLower(strings.TrimSpace(raw))); c {
	case commandUp, commandDown, commandStatus:
		return c, nil
	default:
		return "", fmt.Errorf("unsupported direction %q (use up|down|status)", raw)
	}
}

func execute(ctx context.Context, cmd command, steps int, dsn string, out io.Writer) error {
	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	switch cmd {
	case commandUp:
		err = store.MigrateUp(ctx, steps)
	case commandDown:
		err = store.MigrateDown(ctx, steps)
	}
	if err != nil {
		return err
	}

	state, err := store.MigrationStatus(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s: version=%d applied=%d pending=%d\n", cmd, state.Version, state.Applied, state.Pending)
	return err
}

// resolveDSN: флаг, затем конфигурация (FASTFOOD_POSTGRES_*, DB_*, YAML).
func resolveDSN(flagDSN, configPath string) (string, error) {
	if dsn := strings.TrimSpace(flagDSN); dsn != "" {
		return dsn, nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	if dsn := strings.TrimSpace(cfg.PostgresDSN()); dsn != "" {
		return dsn, nil
	}
	return "", errors.New("postgres DSN is required (-dsn or FASTFOOD_POSTGRES_DSN)")
}

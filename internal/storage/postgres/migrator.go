package postgres

import (
	"cmp"
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Миграции лежат в sql/migrations как NNNN_name.up.sql и NNNN_name.down.sql.
// История хранится в schema_migrations, изменения идут под pg_advisory_lock.

const (
	migrationsPattern = "sql/migrations/*.sql"
	// migrationLockID: ключ advisory lock, общий для всех экземпляров сервиса.
	migrationLockID = int64(0x66617374666f6f64)

	schemaMigrationsDDL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`
)

//go:embed sql/migrations/*.sql
var embeddedMigrations embed.FS

var migrationFileRe = regexp.MustCompile(`^(\d+)_(\w+)\.(up|down)\.sql$`)

var errStoreNotInitialized = errors.New("postgres store is not initialized")

type migrationDirection string

const (
	migrationUp   migrationDirection = "up"
	migrationDown migrationDirection = "down"
)

type migration struct {
	Version int64
	Name    string
	Up      string
	Down    string
}

func (m migration) String() string { return fmt.Sprintf("%04d_%s", m.Version, m.Name) }

// MigrationState описывает схему относительно встроенных миграций.
type MigrationState struct {
	Version int64
	Applied int
	Pending int
}

// MigrateUp применяет ожидающие миграции; steps=0 применяет все.
func (s *Store) MigrateUp(ctx context.Context, steps int) error {
	return s.migrate(ctx, migrationUp, steps)
}

// MigrateDown откатывает последние steps миграций, не меньше одной.
func (s *Store) MigrateDown(ctx context.Context, steps int) error {
	return s.migrate(ctx, migrationDown, max(steps, 1))
}

// MigrationStatus возвращает текущую версию и число применённых и ожидающих миграций.
func (s *Store) MigrationStatus(ctx context.Context) (MigrationState, error) {
	if s == nil || s.db == nil {
		return MigrationState{}, errStoreNotInitialized
	}
	migrations, err := parseMigrations(embeddedMigrations)
	if err != nil {
		return MigrationState{}, err
	}

	var state MigrationState
	err = s.withMigrationConn(ctx, false, func(conn *sql.Conn) error {
		applied, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}
		state = migrationState(migrations, applied)
		return nil
	})
	return state, err
}

func (s *Store) migrate(ctx context.Context, direction migrationDirection, steps int) error {
	if s == nil || s.db == nil {
		return errStoreNotInitialized
	}
	migrations, err := parseMigrations(embeddedMigrations)
	if err != nil {
		return err
	}

	return s.withMigrationConn(ctx, true, func(conn *sql.Conn) error {
		applied, err := appliedVersions(ctx, conn)
		if err != nil {
			return err
		}
		plan, err := planMigrations(migrations, applied, direction, steps)
		if err != nil {
			return err
		}
		for _, m := range plan {
			if err := runMigration(ctx, conn, m, direction); err != nil {
				return err
			}
		}
		return nil
	})
}

// withMigrationConn держит одно соединение: advisory lock привязан к сессии.
func (s *Store) withMigrationConn(ctx context.Context, lock bool, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	defer conn.Close()

	if lock {
		lockCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
		_, err := conn.ExecContext(lockCtx, `SELECT pg_advisory_lock($1)`, migrationLockID)
		cancel()
		if err != nil {
			return fmt.Errorf("acquire migration lock: %w", err)
		}
		defer func() {
			_, _ = conn.ExecContext(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, migrationLockID)
		}()
	}

	if _, err := conn.ExecContext(ctx, schemaMigrationsDDL); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return fn(conn)
}

// planMigrations выбирает миграции для запуска. applied отсортирован по возрастанию.
func planMigrations(all []migration, applied []int64, direction migrationDirection, steps int) ([]migration, error) {
	switch direction {
	case migrationUp:
		var plan []migration
		for _, m := range all {
			if slices.Contains(applied, m.Version) {
				continue
			}
			plan = append(plan, m)
			if steps > 0 && len(plan) == steps {
				break
			}
		}
		return plan, nil

	case migrationDown:
		byVersion := make(map[int64]migration, len(all))
		for _, m := range all {
			byVersion[m.Version] = m
		}
		var plan []migration
		for i := len(applied) - 1; i >= 0 && len(plan) < steps; i-- {
			m, ok := byVersion[applied[i]]
			if !ok {
				return nil, fmt.Errorf("cannot roll back unknown migration version %d", applied[i])
			}
			plan = append(plan, m)
		}
		return plan, nil

	default:
		return nil, fmt.Errorf("unsupported migration direction %q", direction)
	}
}

func runMigration(ctx context.Context, conn *sql.Conn, m migration, direction migrationDirection) error {
	script, record, args := m.Up, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, []any{m.Version, m.Name}
	if direction == migrationDown {
		script, record, args = m.Down, `DELETE FROM schema_migrations WHERE version = $1`, []any{m.Version}
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s %s: begin: %w", direction, m, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("%s %s: %w", direction, m, err)
	}
	if _, err := tx.ExecContext(ctx, record, args...); err != nil {
		return fmt.Errorf("%s %s: record history: %w", direction, m, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s %s: commit: %w", direction, m, err)
	}
	return nil
}

func appliedVersions(ctx context.Context, conn *sql.Conn) ([]int64, error) {
	rows, err := conn.QueryContext(ctx, `SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	var versions []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func migrationState(all []migration, applied []int64) MigrationState {
	state := MigrationState{Applied: len(applied)}
	if len(applied) > 0 {
		state.Version = slices.Max(applied)
	}
	for _, m := range all {
		if !slices.Contains(applied, m.Version) {
			state.Pending++
		}
	}
	return state
}

// parseMigrations собирает пары up/down и сортирует их по версии.
func parseMigrations(fsys fs.FS) ([]migration, error) {
	files, err := fs.Glob(fsys, migrationsPattern)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no migration files found")
	}

	byVersion := make(map[int64]*migration)
	for _, file := range files {
		base := path.Base(file)
		parts := migrationFileRe.FindStringSubmatch(base)
		if parts == nil {
			return nil, fmt.Errorf("invalid migration file name %s", base)
		}
		version, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("migration version in %s: %w", base, err)
		}

		raw, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		body := strings.TrimSpace(string(raw))
		if body == "" {
			return nil, fmt.Errorf("migration %s is empty", base)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &migration{Version: version, Name: parts[2]}
			byVersion[version] = m
		}
		if m.Name != parts[2] {
			return nil, fmt.Errorf("version %d has two names: %s and %s", version, m.Name, parts[2])
		}

		target := &m.Up
		if parts[3] == string(migrationDown) {
			target = &m.Down
		}
		if *target != "" {
			return nil, fmt.Errorf("duplicate %s migration for version %d", parts[3], version)
		}
		*target = body
	}

	migrations := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" || m.Down == "" {
			return nil, fmt.Errorf("migration %s needs both up and down files", m)
		}
		migrations = append(migrations, *m)
	}
	slices.SortFunc(migrations, func(a, b migration) int { return cmp.Compare(a.Version, b.Version) })
	return migrations, nil
}

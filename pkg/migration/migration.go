package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// Config содержит источник миграций.
type Config struct {
	MigrationsFS   fs.FS
	MigrationsPath string
	LockTimeout    time.Duration
}

// Migrator применяет SQL миграции через пул pgx.
type Migrator struct {
	config Config
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewMigrator(config Config, pool *pgxpool.Pool, logger *zap.Logger) *Migrator {
	if config.MigrationsPath == "" {
		config.MigrationsPath = "."
	}
	if config.LockTimeout <= 0 {
		config.LockTimeout = 30 * time.Second
	}
	return &Migrator{
		config: config,
		pool:   pool,
		logger: logger.Named("Migrator"),
	}
}

// Up применяет все доступные миграции. Отсутствие изменений не ошибка.
func (m *Migrator) Up() error {
	migrator, err := m.createMigrator()
	if err != nil {
		return err
	}
	defer m.close(migrator)

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	m.logger.Info("Database migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Down откатывает все миграции.
func (m *Migrator) Down() error {
	migrator, err := m.createMigrator()
	if err != nil {
		return err
	}
	defer m.close(migrator)

	if err := migrator.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to rollback migrations: %w", err)
	}
	m.logger.Info("Database migrations rolled back")
	return nil
}

func (m *Migrator) createMigrator() (*migrate.Migrate, error) {
	db := stdlib.OpenDBFromPool(m.pool)

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "schema_migrations"})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	source, err := iofs.New(m.config.MigrationsFS, m.config.MigrationsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	migrator.LockTimeout = m.config.LockTimeout
	return migrator, nil
}

func (m *Migrator) close(migrator *migrate.Migrate) {
	srcErr, dbErr := migrator.Close()
	if srcErr != nil || dbErr != nil {
		m.logger.Warn("Failed to close migrator", zap.NamedError("source_error", srcErr), zap.NamedError("db_error", dbErr))
	}
}

package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"

	"github.com/hsarchitect/folio/config"
)

//go:embed migrations
var migrationsFS embed.FS

// MigrationSource returns the embedded migrations for a dialect.
func MigrationSource(driver string) (fs.FS, error) {
	switch driver {
	case "mysql", "postgres":
		return fs.Sub(migrationsFS, "migrations/"+driver)
	default:
		return nil, fmt.Errorf("no migrations for driver %q", driver)
	}
}

// Migrate runs a migration command on a dedicated connection: up, down,
// version or force N.
func Migrate(cfg config.Database, logger zerolog.Logger, command string, args ...string) error {
	switch command {
	case "up", "down", "version", "force":
	default:
		return fmt.Errorf("unknown migrate command: %s (use: up, down, version, force)", command)
	}
	if command == "force" && len(args) == 0 {
		return fmt.Errorf("force requires a version number argument")
	}

	d, err := Open(cfg)
	if err != nil {
		return err
	}

	src, err := MigrationSource(d.driver)
	if err != nil {
		_ = d.Close()
		return err
	}

	sourceDriver, err := iofs.New(src, ".")
	if err != nil {
		_ = d.Close()
		return fmt.Errorf("migration source: %w", err)
	}

	var dbDriver database.Driver
	if d.postgres() {
		dbDriver, err = migratepgx.WithInstance(d.db, &migratepgx.Config{})
	} else {
		dbDriver, err = migratemysql.WithInstance(d.db, &migratemysql.Config{})
	}
	if err != nil {
		_ = d.Close()
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, d.driver, dbDriver)
	if err != nil {
		_ = dbDriver.Close()
		return fmt.Errorf("migrate init: %w", err)
	}
	defer m.Close()

	m.Log = &migrateLogger{logger: logger}

	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up: %w", err)
		}
		ver, dirty, _ := m.Version()
		logger.Info().Uint("version", ver).Bool("dirty", dirty).Msg("migration complete")

	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down: %w", err)
		}
		logger.Info().Msg("all migrations rolled back")

	case "version":
		ver, dirty, err := m.Version()
		if err != nil {
			return fmt.Errorf("migrate version: %w", err)
		}
		logger.Info().Uint("version", ver).Bool("dirty", dirty).Msg("current version")

	case "force":
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version: %w", err)
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("migrate force: %w", err)
		}
		logger.Info().Int("version", version).Msg("forced version")
	}

	return nil
}

type migrateLogger struct {
	logger zerolog.Logger
}

func (l *migrateLogger) Printf(format string, v ...any) {
	l.logger.Debug().Msgf(format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}

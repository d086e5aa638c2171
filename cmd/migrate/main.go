package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/liamcoop/ilrvalidation/internal/logger"
)

// databaseURLFromEnv returns the first non-empty of ILRV_DATABASE_URL and DATABASE_URL
func databaseURLFromEnv() string {
	if url := os.Getenv("ILRV_DATABASE_URL"); url != "" {
		return url
	}
	return os.Getenv("DATABASE_URL")
}

func main() {
	var databaseURL string
	var migrationsPath string
	var command string

	flag.StringVar(&databaseURL, "database", "", "Database URL (defaults to ILRV_DATABASE_URL or DATABASE_URL)")
	flag.StringVar(&migrationsPath, "path", "migrations", "Path to migrations directory")
	flag.StringVar(&command, "command", "up", "Migration command: up, down, steps, version, force")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = databaseURLFromEnv()
	}
	if databaseURL == "" {
		logger.Fatal("database URL is required: use -database or set ILRV_DATABASE_URL")
	}

	logger.Logger.Info("connecting to database", "migrations_path", migrationsPath, "command", command)

	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), databaseURL)
	if err != nil {
		logger.Fatal("failed to create migration instance", "error", err)
	}
	defer m.Close()

	switch command {
	case "up":
		err = m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Logger.Info("no migrations to run, database is up to date")
			return
		}
		if err != nil {
			logger.Fatal("failed to run migrations", "error", err)
		}
		logger.Logger.Info("migrations completed")

	case "down":
		err = m.Down()
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal("failed to roll back migrations", "error", err)
		}
		logger.Logger.Info("rollback completed")

	case "steps":
		n, err := versionArg()
		if err != nil {
			logger.Fatal("steps requires a signed count: -command steps <n>", "error", err)
		}
		if err := m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal("failed to apply migration steps", "steps", n, "error", err)
		}
		logger.Logger.Info("migration steps applied", "steps", n)

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Logger.Info("no migration applied yet")
			return
		}
		if err != nil {
			logger.Fatal("failed to get version", "error", err)
		}
		logger.Logger.Info("current version", "version", version, "dirty", dirty)

	case "force":
		version, err := versionArg()
		if err != nil {
			logger.Fatal("force requires a version number: -command force <version>", "error", err)
		}
		if err := m.Force(version); err != nil {
			logger.Fatal("failed to force version", "error", err)
		}
		logger.Logger.Info("forced version", "version", version)

	default:
		logger.Fatal("unknown command (use: up, down, steps, version, force)", "command", command)
	}
}

func versionArg() (int, error) {
	if flag.NArg() < 1 {
		return 0, errors.New("missing argument")
	}
	return strconv.Atoi(flag.Arg(0))
}

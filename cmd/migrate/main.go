package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/af-corp/reqbridge/internal/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/afero"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	configPath := flag.String("config", "", "reqbridge.yaml to read database settings from")
	dbURL := flag.String("db-url", "", "database URL (overrides config and DATABASE_URL)")
	migrationsPath := flag.String("path", "migrations", "path to migrations directory")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	dsn, err := resolveDSN(*dbURL, *configPath)
	if err != nil {
		logger.Error("failed to resolve database URL", "error", err)
		os.Exit(1)
	}

	m, err := migrate.New("file://"+*migrationsPath, dsn)
	if err != nil {
		logger.Error("failed to create migrator", "error", err)
		os.Exit(1)
	}
	defer m.Close()

	switch *direction {
	case "up":
		if *steps > 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	default:
		logger.Error("invalid direction, use 'up' or 'down'", "direction", *direction)
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}

	v, dirty, _ := m.Version()
	logger.Info("migration complete", "direction", *direction, "version", v, "dirty", dirty)
}

// resolveDSN picks the explicit flag, then DATABASE_URL, then the database
// section of the config file (or the built-in defaults).
func resolveDSN(flagURL, configPath string) (string, error) {
	if flagURL != "" {
		return flagURL, nil
	}
	if env := os.Getenv("DATABASE_URL"); env != "" {
		return env, nil
	}
	cfg := config.DefaultConfig()
	if configPath != "" {
		if err := config.LoadFile(afero.NewOsFs(), configPath, cfg); err != nil {
			return "", fmt.Errorf("read database config: %w", err)
		}
	}
	return cfg.Database.DSN(), nil
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/cinerate/internal/logging"
	"github.com/Clark-Hu/cinerate/internal/store"
)

type options struct {
	direction string
	steps     int
	dbURL     string
}

func main() {
	var opts options
	flag.StringVar(&opts.direction, "direction", "up", "migration direction: up, down or version")
	flag.IntVar(&opts.steps, "steps", 0, "number of migrations to roll back with -direction=down (0 = all)")
	flag.StringVar(&opts.dbURL, "db", "", "database URL (defaults to DB_URL)")
	verbose := flag.Bool("v", false, "log each applied migration")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("could not load .env")
	}
	if opts.dbURL == "" {
		opts.dbURL = os.Getenv("DB_URL")
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	logger := logging.New(level, os.Getenv("LOG_FORMAT"))

	if err := run(opts, logger); err != nil {
		logger.WithError(err).Fatal("migrate")
	}
}

// run applies the requested migration and logs the resulting version. The
// migrator is closed before run returns on every path.
func run(opts options, logger *logrus.Logger) error {
	switch opts.direction {
	case "up", "down", "version":
	default:
		return fmt.Errorf("unknown direction %q", opts.direction)
	}
	if opts.steps < 0 {
		return fmt.Errorf("steps must not be negative")
	}
	if opts.dbURL == "" {
		return errors.New("DB_URL is required")
	}

	mg, err := store.NewMigrator(opts.dbURL, logger)
	if err != nil {
		return fmt.Errorf("open migrator: %w", err)
	}
	defer mg.Close()

	switch opts.direction {
	case "up":
		err = mg.Up()
	case "down":
		err = mg.Down(opts.steps)
	}
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := mg.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logger.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("schema version")
	return nil
}

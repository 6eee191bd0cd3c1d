package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"

	"github.com/urbanthread/loyalty/internal/config"
)

const defaultMigrationsPath = "migrations"

func main() {
	var migrationsPath string
	flag.StringVar(&migrationsPath, "path", defaultMigrationsPath, "Path to migrations directory")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: migrate [-path dir] up|down|version")
		os.Exit(1)
	}
	command := args[0]

	cfg, err := config.Load(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	m, err := migrate.New("file://"+migrationsPath, migrateURL(&cfg.Database))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open migrations")
	}
	defer m.Close()

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "version":
		var version uint
		var dirty bool
		version, dirty, err = m.Version()
		if err == nil {
			log.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema version")
		}
	default:
		log.Fatal().Str("command", command).Msg("unknown command")
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal().Err(err).Str("command", command).Msg("migration failed")
	}
	log.Info().Str("command", command).Msg("done")
}

// migrateURL builds the postgres:// URL form golang-migrate expects
func migrateURL(db *config.DatabaseConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(db.User), url.QueryEscape(db.Password),
		db.Host, db.Port, db.Name, db.SSLMode)
}

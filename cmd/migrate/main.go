package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	"digital-wallet/config"
	"digital-wallet/pkg/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config file")
		command    = flag.String("command", "up", "goose command: up, down, status")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatal().Err(err).Msg("Failed to set migration dialect")
	}

	db, err := sql.Open("pgx", cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database connection")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("Failed to reach database")
	}

	dir := cfg.Database.MigrationsDir

	switch *command {
	case "up":
		err = goose.Up(db, dir)
	case "down":
		err = goose.Down(db, dir)
	case "status":
		err = goose.Status(db, dir)
	default:
		log.Fatal().Str("command", *command).Msg("Unknown migration command")
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", *command).Msg("Migration failed")
	}

	log.Info().Str("command", *command).Str("dir", dir).Msg("Migrations applied")
}

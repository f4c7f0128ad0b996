package main

import (
	"github.com/joho/godotenv"

	"github.com/wfunc/nightfall/config"
	"github.com/wfunc/nightfall/logger"
	"github.com/wfunc/nightfall/persistence"
	"github.com/wfunc/nightfall/server"
)

func main() {
	// Initialize logger
	logger.Init()

	// Optional .env for local development
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize the archive database, if configured
	var db persistence.Database
	switch cfg.Database.Driver {
	case "gorm":
		db, err = persistence.NewGormPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
	case "postgres":
		db, err = persistence.NewPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
	case "":
		logger.Log.Info("No database driver configured, games will not be archived.")
	default:
		logger.Log.Fatalf("Unknown database driver: %s", cfg.Database.Driver)
	}
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	if db != nil {
		logger.Log.Info("Database connection successful.")
	}

	// Initialize Game Server
	gameServer := server.NewGameServer(cfg, db)

	// Start Server
	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}

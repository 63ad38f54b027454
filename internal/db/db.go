package db

import (
	"fmt"
	"log"

	"rebase/internal/config"
	"rebase/internal/session"
	"rebase/internal/user"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open connects with the configured driver without migrating.
func Open(cfg *config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	switch cfg.Database.Driver {
	case "", "postgres":
		return gorm.Open(postgres.Open(cfg.Database.DSN), gcfg)
	case "sqlite":
		return gorm.Open(sqlite.Open(cfg.Database.DSN), gcfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// Migrate creates or updates every table the server uses.
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(&user.User{}); err != nil {
		return err
	}
	return conn.AutoMigrate(session.Models()...)
}

func Init(cfg *config.Config) error {
	conn, err := Open(cfg)
	if err != nil {
		return err
	}
	if err := Migrate(conn); err != nil {
		return err
	}
	DB = conn
	log.Printf("Database connected and migrated (%s)", driverName(cfg))
	return nil
}

func driverName(cfg *config.Config) string {
	if cfg.Database.Driver == "" {
		return "postgres"
	}
	return cfg.Database.Driver
}

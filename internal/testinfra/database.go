package testinfra

import (
	"log"
	"strings"
	"time"

	"banco/internal/app"
	"banco/internal/config"
	"banco/internal/database"
	"banco/internal/logging"
	"banco/internal/security"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// StartTestDatabase opens a private in-memory SQLite database with the schema migrated
func StartTestDatabase() *gorm.DB {
	name := "test_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	dsn := "file:" + name + "?mode=memory&cache=shared&_foreign_keys=on"

	db, err := database.Open(sqlite.Open(dsn), true)
	if err != nil {
		log.Fatalf("failed to open test database %v\n", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to open test database %v\n", err)
	}
	// one connection keeps the in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate test database %v\n", err)
	}
	return db
}

func StopTestDatabase(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func TestConfig() *config.Config {
	return &config.Config{
		Server:             config.Server{Port: "0", Mode: "test"},
		Database:           config.Database{Driver: config.DriverSQLite},
		JWT:                config.JWT{Secret: "test-secret", ExpiresIn: time.Hour},
		Bootstrap:          config.Bootstrap{Username: "admin", Password: "Admin123!"},
		PermissionCacheTTL: time.Minute,
		LogLevel:           "error",
	}
}

// StartTestApp wires the whole service on a fresh database with a fast hasher
func StartTestApp() (*app.App, *gorm.DB) {
	cfg := TestConfig()
	logging.Configure(false, cfg.LogLevel)
	db := StartTestDatabase()
	return app.New(db, cfg, security.NewBcryptHasher(bcrypt.MinCost)), db
}

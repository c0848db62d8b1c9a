// Command createsuperuser provisions the reserved administrator account.
// It takes no arguments; the credentials come from BOOTSTRAP_ADMIN_USERNAME / BOOTSTRAP_ADMIN_PASSWORD.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"banco/internal/app"
	"banco/internal/bizerror"
	"banco/internal/config"
	"banco/internal/database"
	"banco/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		logging.Log.WithError(err).Error("invalid configuration")
		return 1
	}
	logging.Configure(cfg.IsRelease(), cfg.LogLevel)

	db, err := database.NewConnection(cfg)
	if err != nil {
		logging.Log.WithError(err).Error("database connection failed")
		return 1
	}

	a := app.New(db, cfg, nil)
	result, err := a.Provisioning.BootstrapAdministrator(context.Background())
	if errors.Is(err, bizerror.ErrBootstrapConflict) {
		fmt.Fprintf(os.Stderr, "El usuario %s ya existe, no se realizaron cambios.\n", cfg.Bootstrap.Username)
		return 2
	}
	if err != nil {
		logging.Log.WithError(err).Error("bootstrap failed")
		return 1
	}

	if result.RoleCreated {
		fmt.Println("Rol administrador creado.")
	}
	fmt.Printf("Superusuario %s creado exitosamente.\n", result.User.Username)
	return 0
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "banco/api/swagger" // swagger docs
	"banco/internal/app"
	"banco/internal/config"
	"banco/internal/database"
	"banco/internal/logging"

	"github.com/gin-gonic/gin"
)

// @title           Banco Users API
// @version         1.0
// @description     System users, roles, permissions and lockout authentication for the banking simulator.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Log.WithError(err).Fatal("invalid configuration")
	}
	logging.Configure(cfg.IsRelease(), cfg.LogLevel)
	gin.SetMode(cfg.Server.Mode)

	db, err := database.NewConnection(cfg)
	if err != nil {
		logging.Log.WithError(err).Fatal("database connection failed")
	}
	logging.Log.WithField("driver", cfg.Database.Driver).Info("database connected")

	a := app.New(db, cfg, nil)
	if err := a.Seed(context.Background()); err != nil {
		logging.Log.WithError(err).Fatal("rbac catalog seeding failed")
	}

	go a.Hub.Run()
	defer a.Hub.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Log.WithField("port", cfg.Server.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Log.WithError(err).Error("server shutdown failed")
	}
	logging.Log.Info("server stopped")
}

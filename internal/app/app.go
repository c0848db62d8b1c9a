// Package app wires repositories, services and handlers into the HTTP service.
package app

import (
	"context"
	"net/http"

	"banco/internal/bizerror"
	"banco/internal/config"
	"banco/internal/handler"
	"banco/internal/logging"
	"banco/internal/middleware"
	"banco/internal/model"
	"banco/internal/repository"
	"banco/internal/security"
	"banco/internal/seed"
	"banco/internal/service"
	"banco/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Hub    *websocket.Hub
	Auth   *middleware.Auth

	Catalog      service.CatalogService
	Resolver     service.PermissionResolver
	Users        service.SystemUserService
	AuthN        service.AuthService
	Provisioning service.ProvisioningService
	Clients      service.ClientService
	Customers    service.CustomerService
	Audit        service.AuditService
}

// New builds every dependency (Repository -> Service -> Handler) on top of db
func New(db *gorm.DB, cfg *config.Config, hasher security.PasswordHasher) *App {
	if hasher == nil {
		hasher = security.NewBcryptHasher(0)
	}
	tm := repository.NewTransactionManager(db)
	roleRepo := repository.NewRoleRepository(db)
	permRepo := repository.NewPermissionRepository(db)
	userRepo := repository.NewSystemUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	tokens := security.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	hub := websocket.NewHub(cfg.Server.CORSOrigins)

	a := &App{Config: cfg, Hub: hub}
	a.Audit = service.NewAuditService(auditRepo)
	a.Resolver = service.NewPermissionResolver(permRepo)
	// the middleware cache is created below; the listener resolves it lazily
	a.Catalog = service.NewCatalogService(tm, roleRepo, permRepo, a.Audit, func(role model.RoleName) {
		if a.Auth != nil {
			a.Auth.InvalidateRole(role)
		}
	})
	a.Users = service.NewSystemUserService(tm, userRepo, roleRepo, clientRepo, a.Catalog, hasher, a.Audit, hub)
	a.AuthN = service.NewAuthService(userRepo, hasher, tokens, a.Audit, hub)
	a.Provisioning = service.NewProvisioningService(tm, userRepo, a.Users, a.Catalog, a.Audit, service.BootstrapCredentials{
		Username: cfg.Bootstrap.Username,
		Password: cfg.Bootstrap.Password,
	})
	a.Clients = service.NewClientService(tm, clientRepo, userRepo, a.Audit)
	a.Customers = service.NewCustomerService(tm, customerRepo, hasher, tokens)
	a.Auth = middleware.NewAuth(tokens, a.Users, a.Customers, a.Resolver, cfg.PermissionCacheTTL, cfg.IsRelease())
	return a
}

// Seed applies the RBAC catalog from configuration
func (a *App) Seed(ctx context.Context) error {
	catalog, err := seed.Load(a.Config.RBACSeedFile)
	if err != nil {
		return err
	}
	_, err = a.Provisioning.SeedCatalog(ctx, catalog)
	return err
}

// Router returns the gin engine with every route mounted
func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(logging.RequestLogger(), bizerror.ErrorHandling())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = a.Config.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	if len(corsConfig.AllowOrigins) > 0 {
		router.Use(cors.New(corsConfig))
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	handler.NewSecurityEventsHandler(a.Hub, a.Auth).RegisterRoutes(router.Group("/ws"))

	api := router.Group("/api")
	handler.NewAuthHandler(a.AuthN, a.Users, a.Auth).RegisterRoutes(api)
	handler.NewRoleHandler(a.Catalog, a.Auth).RegisterRoutes(api)
	handler.NewUserHandler(a.Users, a.Auth).RegisterRoutes(api)
	handler.NewClientHandler(a.Clients, a.Auth).RegisterRoutes(api)
	handler.NewCustomerHandler(a.Customers, a.Auth).RegisterRoutes(api)
	handler.NewAuditHandler(a.Audit, a.Auth).RegisterRoutes(api)

	return router
}

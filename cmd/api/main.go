package main

import (
	"context"
	"log"
	"time"

	"backoffice/internal/config"
	"backoffice/internal/database"
	"backoffice/internal/handler"
	"backoffice/internal/logger"
	"backoffice/internal/metrics"
	"backoffice/internal/middleware"
	"backoffice/internal/repository"
	"backoffice/internal/service"
	"backoffice/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// @title           Back Office API
// @version         1.0
// @description     Multi-tenant distributor back office: role-based access, branch assignments and invoicing.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zap.L().Sync() //nolint:errcheck

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		zap.L().Fatal("database connection failed", zap.Error(err))
	}
	zap.L().Info("connected to PostgreSQL")

	if err := database.SeedPermissions(db); err != nil {
		zap.L().Fatal("failed to seed permission catalog", zap.Error(err))
	}

	// Set up WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Repositories
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	distributorRepo := repository.NewDistributorRepository(db)
	branchRepo := repository.NewBranchRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	productRepo := repository.NewProductRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)

	// Services (Repository -> Service -> Handler)
	auditService := service.NewAuditService(db)
	accessService := service.NewAccessService(roleRepo, assignmentRepo, branchRepo, userRepo, txManager, auditService)
	tokenService := service.NewTokenService(cfg.JWT, userRepo, refreshTokenRepo, accessService)
	userService := service.NewUserService(userRepo, distributorRepo, branchRepo, assignmentRepo, tokenService, auditService)
	roleService := service.NewRoleService(roleRepo)
	tenantService := service.NewTenantService(distributorRepo, branchRepo, roleRepo, userRepo, assignmentRepo, txManager)
	branchService := service.NewBranchService(branchRepo, distributorRepo)
	productService := service.NewProductService(productRepo)
	invoiceService := service.NewInvoiceService(invoiceRepo, txManager, auditService, wsHub, service.NopCharger{}, service.NopNotifier{})

	middleware.InitAuth(tokenService, accessService, userRepo, cfg.JWT)

	// Handlers
	authHandler := handler.NewAuthHandler(userService)
	userHandler := handler.NewUserHandler(userService, accessService)
	roleHandler := handler.NewRoleHandler(roleService, accessService)
	tenantHandler := handler.NewTenantHandler(tenantService)
	branchHandler := handler.NewBranchHandler(branchService, accessService)
	productHandler := handler.NewProductHandler(productService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	auditHandler := handler.NewAuditHandler(auditService)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), logger.Middleware(), metrics.Middleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Distributor-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})
	router.GET("/metrics", metrics.Handler())

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, tokenService)
	})

	// API routing
	root := router.Group("")
	authHandler.RegisterRoutes(root)
	userHandler.RegisterRoutes(root)
	roleHandler.RegisterRoutes(root)
	tenantHandler.RegisterRoutes(root)
	branchHandler.RegisterRoutes(root)
	productHandler.RegisterRoutes(root)
	invoiceHandler.RegisterRoutes(root)
	auditHandler.RegisterRoutes(root)

	// Sweep expired refresh tokens hourly
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if err := refreshTokenRepo.DeleteExpired(context.Background()); err != nil {
				zap.L().Warn("refresh token sweep failed", zap.Error(err))
			}
		}
	}()

	zap.L().Info("server listening", zap.String("port", cfg.Server.Port))
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		zap.L().Fatal("server failed", zap.Error(err))
	}
}

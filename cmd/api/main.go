package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "zyllen/api/swagger" // swagger docs
	"zyllen/internal/auth"
	"zyllen/internal/cache"
	"zyllen/internal/config"
	"zyllen/internal/database"
	"zyllen/internal/handler"
	"zyllen/internal/logger"
	"zyllen/internal/middleware"
	"zyllen/internal/model"
	"zyllen/internal/repository"
	"zyllen/internal/seed"
	"zyllen/internal/service"
	"zyllen/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Zyllen Systems API
// @version         1.0
// @description     Inventory, assets, purchases, tickets, maintenance and portals.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "zyllen-api")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.DSN(), log, !cfg.IsRelease())
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	log.Info("connected to PostgreSQL")

	permCache := newPermissionCache(ctx, cfg, log)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run(ctx)

	// Repositories
	txManager := repository.NewTransactionManager(db)
	roleRepo := repository.NewRoleRepository(db)
	userRepo := repository.NewUserRepository(db)
	externalRepo := repository.NewExternalUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	locationRepo := repository.NewReferenceRepository[model.Location](db)
	categoryRepo := repository.NewReferenceRepository[model.Category](db)
	supplierRepo := repository.NewReferenceRepository[model.Supplier](db)
	typeRepo := repository.NewReferenceRepository[model.MovementType](db)
	companyRepo := repository.NewReferenceRepository[model.Company](db)
	contractorRepo := repository.NewReferenceRepository[model.Contractor](db)
	skuRepo := repository.NewSKURepository(db)
	stockRepo := repository.NewStockRepository(db)
	assetRepo := repository.NewAssetRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	orderRepo := repository.NewMaintenanceRepository(db)

	if cfg.SeedOnStart {
		runSeed(ctx, cfg, log, permCache, roleRepo, userRepo, locationRepo, typeRepo, categoryRepo, txManager)
	}

	// Services
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	accessService := service.NewAccessService(roleRepo, auditRepo, txManager, permCache, log)
	authService := service.NewAuthService(userRepo, externalRepo, tokenRepo, auditRepo, txManager, accessService, tokens)
	userService := service.NewUserService(userRepo, roleRepo, auditRepo, txManager)
	locationService := service.NewLocationService(locationRepo, auditRepo, txManager)
	categoryService := service.NewCategoryService(categoryRepo, auditRepo, txManager)
	supplierService := service.NewSupplierService(supplierRepo, auditRepo, txManager)
	typeService := service.NewMovementTypeService(typeRepo, auditRepo, txManager)
	companyService := service.NewCompanyService(companyRepo, externalRepo, auditRepo, txManager)
	contractorService := service.NewContractorService(contractorRepo, externalRepo, auditRepo, txManager)
	catalogService := service.NewCatalogService(skuRepo, categoryRepo, auditRepo, txManager)
	inventoryService := service.NewInventoryService(stockRepo, skuRepo, typeRepo, locationRepo, auditRepo, txManager, wsHub, log)
	exportService := service.NewExportService(stockRepo, assetRepo)
	assetService := service.NewAssetService(assetRepo, skuRepo, locationRepo, companyRepo, auditRepo, txManager)
	purchaseService := service.NewPurchaseService(purchaseRepo, supplierRepo, skuRepo, locationRepo, typeRepo, stockRepo, auditRepo, txManager, wsHub, log)
	ticketService := service.NewTicketService(ticketRepo, userRepo, assetRepo, companyRepo, auditRepo, txManager, wsHub, log)
	maintenanceService := service.NewMaintenanceService(orderRepo, assetRepo, ticketRepo, contractorRepo, auditRepo, txManager, wsHub, log)
	externalUserService := service.NewExternalUserService(externalRepo, companyRepo, contractorRepo, tokenRepo, auditRepo, txManager)
	clientPortal := service.NewClientPortalService(externalRepo, ticketRepo, assetRepo, auditRepo, txManager, wsHub, log)
	contractorPortal := service.NewContractorPortalService(externalRepo, orderRepo, assetRepo, auditRepo, txManager, wsHub, log)
	auditService := service.NewAuditService(auditRepo)
	statisticsService := service.NewStatisticsService(db)

	gate := middleware.NewGate(tokens, accessService, cfg.IsRelease(), log)

	// Set up Gin Router
	router := gin.New()
	router.Use(middleware.RequestLogger(log), middleware.Recovery(log))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": wsHub.ClientCount()})
	})

	// WebSocket endpoint
	router.GET("/ws", websocket.ServeWs(wsHub, tokens))

	// API Routing
	api := router.Group("")
	routes := []interface{ RegisterRoutes(*gin.RouterGroup) }{
		handler.NewUserHandler(authService, userService, gate),
		handler.NewRoleHandler(accessService, gate),
		handler.NewReferenceHandler(locationService, gate, "/locations", handler.ScreenPermissions("locations")),
		handler.NewReferenceHandler(supplierService, gate, "/suppliers", handler.ScreenPermissions("suppliers")),
		handler.NewReferenceHandler(categoryService, gate, "/catalog/categories", handler.ScreenPermissions("catalog")),
		handler.NewReferenceHandler(typeService, gate, "/inventory/movement-types", handler.CRUDPermissions{
			View:   "inventory.view",
			Create: "inventory.configure",
			Edit:   "inventory.configure",
			Delete: "inventory.configure",
		}),
		handler.NewReferenceHandler(companyService, gate, "/clients/companies", handler.ScreenPermissions("clients")),
		handler.NewReferenceHandler(contractorService, gate, "/contractors", handler.ScreenPermissions("contractors")),
		handler.NewCatalogHandler(catalogService, gate),
		handler.NewInventoryHandler(inventoryService, exportService, gate),
		handler.NewAssetHandler(assetService, exportService, gate),
		handler.NewPurchaseHandler(purchaseService, gate),
		handler.NewTicketHandler(ticketService, gate),
		handler.NewMaintenanceHandler(maintenanceService, gate),
		handler.NewClientHandler(externalUserService, gate),
		handler.NewPortalHandler(clientPortal, contractorPortal, gate),
		handler.NewAuditHandler(auditService, gate),
		handler.NewStatisticsHandler(statisticsService, gate),
	}
	for _, r := range routes {
		r.RegisterRoutes(api)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newPermissionCache uses Redis when REDIS_ADDR is set and reachable, memory otherwise
func newPermissionCache(ctx context.Context, cfg *config.Config, log *zap.Logger) cache.PermissionCache {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryCache(cfg.PermissionCacheTTL)
	}
	client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Warn("redis unavailable, using in-memory permission cache", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		return cache.NewMemoryCache(cfg.PermissionCacheTTL)
	}
	log.Info("permission cache backed by redis", zap.String("addr", cfg.RedisAddr))
	return cache.NewRedisCache(client, cfg.PermissionCacheTTL)
}

func runSeed(
	ctx context.Context,
	cfg *config.Config,
	log *zap.Logger,
	permCache cache.PermissionCache,
	roleRepo repository.RoleRepository,
	userRepo repository.UserRepository,
	locationRepo repository.ReferenceRepository[model.Location],
	typeRepo repository.ReferenceRepository[model.MovementType],
	categoryRepo repository.ReferenceRepository[model.Category],
	txManager repository.TransactionManager,
) {
	catalog, err := seed.LoadCatalog(nil)
	if err != nil {
		log.Fatal("invalid seed catalog", zap.Error(err))
	}
	seeder := seed.NewSeeder(catalog, roleRepo, userRepo, locationRepo, typeRepo, categoryRepo, txManager, log).
		WithCache(permCache)
	if _, err := seeder.Run(ctx, seed.Admin{
		Email:    cfg.SeedAdminEmail,
		Password: cfg.SeedAdminPassword,
		Name:     cfg.SeedAdminName,
	}); err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}
}

package router

import (
	"time"

	"github.com/tea-tech/simple-inventory/internal/config"
	"github.com/tea-tech/simple-inventory/internal/handler"
	"github.com/tea-tech/simple-inventory/internal/infra"
	"github.com/tea-tech/simple-inventory/internal/middleware"
	"github.com/tea-tech/simple-inventory/internal/model"
	"github.com/tea-tech/simple-inventory/internal/repository"
	"github.com/tea-tech/simple-inventory/internal/service"
	"github.com/tea-tech/simple-inventory/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services are the shared singletons behind the HTTP surface. The worker pool
// and startup seeding run on this same graph, so the process has exactly one
// composition root.
type Services struct {
	Registry   service.TypeRegistry
	Entities   service.EntityService
	Lookup     service.LookupService
	Exports    service.ExportService
	Settings   service.SettingService
	Dispatcher *worker.Dispatcher
}

// New wires all dependencies and returns a configured Gin engine plus the
// service graph behind it.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*gin.Engine, *Services) {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigin))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.Metrics())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Infrastructure ───────────────────────────────────────────────────────
	var catalog service.CatalogClient
	if cfg.CatalogLookupEnabled {
		catalog = infra.NewCatalogClient(cfg)
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	entityRepo := repository.NewEntityRepository(db)
	typeRepo := repository.NewEntityTypeRepository(db)
	warehouseRepo := repository.NewWarehouseRepository(db)
	userRepo := repository.NewUserRepository(db)
	patternRepo := repository.NewSupplierPatternRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	registry := service.NewTypeRegistry(typeRepo, entityRepo)
	entitySvc := service.NewEntityService(entityRepo, warehouseRepo, registry)
	chainSvc := service.NewChainService(entityRepo, entitySvc, registry, dispatcher)
	authSvc := service.NewAuthService(userRepo, cfg)
	warehouseSvc := service.NewWarehouseService(warehouseRepo)
	lookupSvc := service.NewLookupService(patternRepo, settingRepo, catalog, rdb)
	settingSvc := service.NewSettingService(settingRepo)
	exportSvc := service.NewExportService(entityRepo, entitySvc, dispatcher)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usersH := handler.NewUserHandler(authSvc)
	entitiesH := handler.NewEntityHandler(entitySvc)
	chainH := handler.NewChainHandler(chainSvc)
	typesH := handler.NewEntityTypeHandler(registry)
	warehousesH := handler.NewWarehouseHandler(warehouseSvc)
	lookupH := handler.NewLookupHandler(lookupSvc)
	patternsH := handler.NewSupplierPatternHandler(lookupSvc)
	settingsH := handler.NewSettingHandler(settingSvc)
	csvH := handler.NewCSVHandler(exportSvc)
	packingH := handler.NewPackingHandler(entitySvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	viewer := middleware.RequireRole(model.RoleViewer, model.RoleManager)
	manager := middleware.RequireRole(model.RoleManager)
	admin := middleware.RequireRole(model.RoleAdministrator)

	v1 := r.Group("/v1", jwtMW)
	{
		v1.GET("/auth/me", authH.Me)

		// Entities — reads for every role, mutations for managers
		v1.GET("/entities", viewer, entitiesH.List)
		v1.GET("/entities/:id", viewer, entitiesH.Get)
		v1.GET("/barcode/:barcode", viewer, entitiesH.GetByBarcode)
		v1.GET("/entities/:id/children", viewer, entitiesH.ListChildren)
		v1.GET("/entities/:id/relations", viewer, entitiesH.ListRelations)
		v1.GET("/entities/:id/history", viewer, entitiesH.History)
		v1.GET("/entities/:id/packing-slip", viewer, packingH.Slip)

		ent := v1.Group("/entities", manager)
		{
			ent.POST("", entitiesH.Create)
			ent.PATCH("/:id", entitiesH.Update)
			ent.DELETE("/:id", entitiesH.Delete)
			ent.POST("/:id/move", entitiesH.Move)
			ent.POST("/:id/convert", entitiesH.Convert)
			ent.POST("/:id/split", entitiesH.Split)
			ent.POST("/:id/merge", entitiesH.Merge)
			ent.POST("/:id/quantity", entitiesH.AdjustQuantity)
			ent.POST("/:id/children", entitiesH.AddChild)
			ent.DELETE("/:id/children/:child_id", entitiesH.RemoveChild)
		}
		v1.PATCH("/relations/:relation_id", manager, entitiesH.UpdateRelation)

		// Chain engine — scanning is a manager activity
		chain := v1.Group("/chain", manager)
		{
			chain.POST("/token", chainH.Submit)
			chain.GET("/state", chainH.State)
			chain.POST("/reset", chainH.Reset)
		}

		// Type registry — reads open, writes admin
		v1.GET("/entity-types", viewer, typesH.List)
		v1.GET("/entity-types/:code", viewer, typesH.Get)
		types := v1.Group("/entity-types", admin)
		{
			types.POST("", typesH.Create)
			types.PATCH("/:code", typesH.Update)
			types.DELETE("/:code", typesH.Delete)
		}

		// Warehouses
		v1.GET("/warehouses", viewer, warehousesH.List)
		v1.GET("/warehouses/:id", viewer, warehousesH.Get)
		wh := v1.Group("/warehouses", admin)
		{
			wh.POST("", warehousesH.Create)
			wh.PATCH("/:id", warehousesH.Update)
			wh.DELETE("/:id", warehousesH.Delete)
		}

		// Barcode lookup and supplier patterns
		v1.GET("/lookup/:barcode", viewer, lookupH.Lookup)
		v1.GET("/supplier-patterns", viewer, patternsH.List)
		patterns := v1.Group("/supplier-patterns", admin)
		{
			patterns.POST("", patternsH.Create)
			patterns.PATCH("/:id", patternsH.Update)
			patterns.DELETE("/:id", patternsH.Delete)
		}

		// Settings — admin only
		settings := v1.Group("/settings", admin)
		{
			settings.GET("", settingsH.List)
			settings.GET("/:key", settingsH.Get)
			settings.PUT("/:key", settingsH.Update)
		}

		// CSV import/export
		v1.GET("/csv/export", manager, csvH.Export)
		v1.POST("/csv/import", admin, csvH.Import)
		v1.POST("/csv/email-export", manager, csvH.EmailExport)

		// Users — admin only
		users := v1.Group("/users", admin)
		{
			users.GET("", usersH.List)
			users.POST("", usersH.Create)
			users.PUT("/:id", usersH.Update)
			users.DELETE("/:id", usersH.Deactivate)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r, &Services{
		Registry:   registry,
		Entities:   entitySvc,
		Lookup:     lookupSvc,
		Exports:    exportSvc,
		Settings:   settingSvc,
		Dispatcher: dispatcher,
	}
}

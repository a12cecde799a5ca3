package router

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/custodia-systems/welfare-canteen-api/internal/handler"
	"github.com/custodia-systems/welfare-canteen-api/internal/middleware"
	"github.com/custodia-systems/welfare-canteen-api/internal/models"
	"github.com/custodia-systems/welfare-canteen-api/internal/repository"
	"github.com/custodia-systems/welfare-canteen-api/internal/service"
	"github.com/custodia-systems/welfare-canteen-api/pkg/config"
	"github.com/custodia-systems/welfare-canteen-api/pkg/logger"
	corsmiddleware "github.com/custodia-systems/welfare-canteen-api/pkg/middleware/cors"
	reqidmiddleware "github.com/custodia-systems/welfare-canteen-api/pkg/middleware/requestid"
	"github.com/custodia-systems/welfare-canteen-api/pkg/storage"
)

// Server bundles the engine with everything the routes need. Construction
// wires repositories into services into handlers, then mounts the route
// groups with their role guards.
type Server struct {
	Config *config.Config
	Router *gin.Engine
	Backup *service.BackupService

	logger   *zap.Logger
	validate *validator.Validate
}

// NewServer builds the fully wired HTTP server.
func NewServer(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) *Server {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		Config:   cfg,
		Router:   gin.New(),
		logger:   logr,
		validate: validator.New(),
	}

	// Repositories.
	cache := repository.NewCacheRepository(redisClient, logr)
	scopes := repository.NewScopeRepository(redisClient)
	users := repository.NewUserRepository(db)
	inmates := repository.NewInmateRepository(db)
	inventory := repository.NewInventoryRepository(db)
	transactions := repository.NewTransactionRepository(db)
	locations := repository.NewLocationRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Services.
	auditSvc := service.NewAuditService(auditRepo, logr)
	metricsSvc := service.NewMetricsService()
	navSvc := service.NewNavigationService(logr)
	authSvc := service.NewAuthService(users, scopes, auditSvc, navSvc, s.validate, logr, service.AuthConfig{
		TokenSecret:    cfg.JWT.Secret,
		TokenExpiry:    cfg.JWT.Expiration,
		Issuer:         cfg.JWT.Issuer,
		MatchThreshold: cfg.Biometric.MatchThreshold,
	})
	userSvc := service.NewUserService(users, cache, auditSvc, s.validate, logr)
	inmateSvc := service.NewInmateService(inmates, cache, auditSvc, s.validate, logr, cfg.Cache.ListTTL, cfg.Biometric.MatchThreshold)
	inventorySvc := service.NewInventoryService(inventory, cache, auditSvc, s.validate, logr, cfg.Cache.ListTTL)
	transactionSvc := service.NewTransactionService(transactions, inmates, locations, cache, auditSvc, s.validate, logr)
	cartSvc := service.NewCartService(inmates, inventory, transactions, locations, cache, auditSvc, logr)
	locationSvc := service.NewLocationService(locations, scopes, cache, auditSvc, s.validate, logr)
	dashboardSvc := service.NewDashboardService(transactions, cache, logr, cfg.Cache.DashboardTTL)
	reportSvc := service.NewReportService(inmates, transactions, inventory, logr)
	bulkSvc := service.NewBulkService(inmates, cache, auditSvc, logr, cfg.Bulk.MaxRows)

	if store, err := storage.NewLocalStorage(cfg.Backup.DefaultDir); err != nil {
		logr.Warn("backup storage unavailable", zap.Error(err))
	} else {
		s.Backup = service.NewBackupService(inmates, transactions, inventory, store, logr, service.BackupConfig{
			Enabled:  cfg.Backup.Enabled,
			Schedule: cfg.Backup.Schedule,
		})
	}

	s.mountMiddlewares(metricsSvc)
	s.mountHandlers(
		handler.NewAuthHandler(authSvc),
		handler.NewNavigationHandler(navSvc),
		handler.NewUserHandler(userSvc),
		handler.NewInmateHandler(inmateSvc, transactionSvc),
		handler.NewBulkHandler(bulkSvc),
		handler.NewInventoryHandler(inventorySvc),
		handler.NewPOSHandler(cartSvc, inventorySvc, metricsSvc),
		handler.NewTransactionHandler(transactionSvc, metricsSvc),
		handler.NewLocationHandler(locationSvc, s.Backup),
		handler.NewDashboardHandler(dashboardSvc, metricsSvc),
		handler.NewReportHandler(reportSvc),
		handler.NewAuditHandler(auditSvc),
		authSvc,
		metricsSvc,
	)

	return s
}

func (s *Server) mountMiddlewares(metricsSvc *service.MetricsService) {
	s.Router.Use(gin.Recovery())
	s.Router.Use(reqidmiddleware.Middleware())
	s.Router.Use(logger.GinMiddleware(s.logger))
	s.Router.Use(corsmiddleware.New(s.Config.CORS.AllowedOrigins))
	s.Router.Use(middleware.Metrics(metricsSvc))
}

func (s *Server) mountHandlers(
	auth *handler.AuthHandler,
	navigation *handler.NavigationHandler,
	users *handler.UserHandler,
	inmates *handler.InmateHandler,
	bulk *handler.BulkHandler,
	inventory *handler.InventoryHandler,
	pos *handler.POSHandler,
	transactions *handler.TransactionHandler,
	locations *handler.LocationHandler,
	dashboard *handler.DashboardHandler,
	reports *handler.ReportHandler,
	audit *handler.AuditHandler,
	authSvc *service.AuthService,
	metricsSvc *service.MetricsService,
) {
	base := s.Config.APIPrefix

	s.Router.GET("/health", func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if s.Backup != nil {
			body["backupQueueDepth"] = s.Backup.QueueDepth()
		}
		c.JSON(200, body)
	})
	s.Router.GET("/metrics", gin.WrapH(metricsSvc.Handler()))
	if s.Config.Env != config.EnvProduction {
		s.Router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	public := s.Router.Group(base)
	{
		public.POST("/auth/login", auth.Login)
		public.POST("/auth/face-login", auth.FaceLogin)
	}

	authed := s.Router.Group(base, middleware.JWT(authSvc))
	{
		authed.POST("/auth/logout", auth.Logout)
		authed.POST("/auth/change-password", auth.ChangePassword)
		authed.GET("/auth/me", auth.Me)
		authed.GET("/navigation/screens", navigation.Screens)
		authed.GET("/navigation/resolve", navigation.Resolve)
		authed.GET("/scope", locations.Scope)
		authed.PUT("/scope/location", locations.SelectLocation)
		authed.PUT("/scope/backup-path", locations.SetBackupPath)
	}

	// Inmate self-service: an inmate may only read their own profile data.
	profile := s.Router.Group(base, middleware.JWT(authSvc),
		middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleInmate),
		middleware.InmateSelf("inmateId"))
	{
		profile.GET("/inmates/lookup/:inmateId", inmates.Lookup)
		profile.GET("/inmates/:inmateId/history", inmates.History)
	}

	// POS floor: sales operators plus admins.
	posGroup := s.Router.Group(base+"/pos", middleware.JWT(authSvc),
		middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RolePOS))
	{
		posGroup.GET("/catalog", pos.Catalog)
		posGroup.GET("/cart", pos.Cart)
		posGroup.DELETE("/cart", pos.ClearCart)
		posGroup.POST("/cart/lookup", pos.Lookup)
		posGroup.POST("/cart/items", pos.AddItem)
		posGroup.DELETE("/cart/items/:productId", pos.RemoveItem)
		posGroup.POST("/cart/checkout", pos.Checkout)
		posGroup.GET("/recent-purchases", transactions.Recent)
	}

	// Back office: admin roles only.
	admin := s.Router.Group(base, middleware.JWT(authSvc),
		middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin))
	{
		admin.GET("/inmates", inmates.List)
		admin.GET("/inmates/:inmateId", inmates.Get)
		admin.POST("/inmates", inmates.Create)
		admin.PUT("/inmates/:inmateId", inmates.Update)
		admin.DELETE("/inmates/:inmateId", inmates.Delete)
		admin.POST("/inmates/:inmateId/biometrics", inmates.Enroll)
		admin.DELETE("/inmates/:inmateId/biometrics", inmates.ClearBiometric)
		admin.POST("/inmates/identify", inmates.Identify)
		admin.POST("/inmates/import", bulk.ImportInmates)
		admin.GET("/inmates/import/template", bulk.Template)

		admin.GET("/inventory/canteen", inventory.ListCanteen)
		admin.GET("/inventory/canteen/:id", inventory.GetCanteen)
		admin.POST("/inventory/canteen", inventory.CreateCanteen)
		admin.PUT("/inventory/canteen/:id", inventory.UpdateCanteen)
		admin.DELETE("/inventory/canteen/:id", inventory.DeleteCanteen)
		admin.GET("/inventory/receipts", inventory.ListReceipts)
		admin.GET("/inventory/receipts/:id", inventory.GetReceipt)
		admin.POST("/inventory/receipts", inventory.CreateReceipt)
		admin.PUT("/inventory/receipts/:id", inventory.UpdateReceipt)
		admin.DELETE("/inventory/receipts/:id", inventory.DeleteReceipt)
		admin.POST("/inventory/transfer", inventory.Transfer)

		admin.GET("/transactions", transactions.List)
		admin.GET("/transactions/:id", transactions.Get)
		admin.POST("/transactions/deposits", transactions.Deposit)
		admin.POST("/transactions/withdrawals", transactions.Withdraw)
		admin.POST("/transactions/:id/reverse", transactions.Reverse)

		admin.GET("/dashboard/stats", dashboard.Stats)
		admin.GET("/dashboard/system", dashboard.System)

		admin.GET("/reports/quick-statistics", dashboard.Stats)
		admin.GET("/reports/inmate-balances", reports.InmateBalances)
		admin.GET("/reports/transaction-summary", reports.TransactionSummary)
		admin.GET("/reports/tuckshop-sales", reports.TuckshopSales)
		admin.GET("/reports/inventory", reports.Inventory)
	}

	// Super admin only.
	super := s.Router.Group(base, middleware.JWT(authSvc),
		middleware.RequireRoles(models.RoleSuperAdmin))
	{
		super.GET("/users", users.List)
		super.GET("/users/:id", users.Get)
		super.POST("/users", users.Create)
		super.PUT("/users/:id", users.Update)
		super.POST("/users/:id/reset-password", users.ResetPassword)
		super.DELETE("/users/:id/biometrics", users.ClearBiometric)
		super.DELETE("/users/:id", users.Delete)

		super.GET("/locations", locations.List)
		super.GET("/locations/:id", locations.Get)
		super.POST("/locations", locations.Create)
		super.PUT("/locations/:id", locations.Update)
		super.DELETE("/locations/:id", locations.Delete)

		super.GET("/audit-logs", audit.List)
	}
}

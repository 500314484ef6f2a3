package router

import (
	"time"

	"github.com/7666638403/rajgarande/internal/config"
	"github.com/7666638403/rajgarande/internal/handler"
	"github.com/7666638403/rajgarande/internal/middleware"
	"github.com/7666638403/rajgarande/internal/repository"
	"github.com/7666638403/rajgarande/internal/service"
	"github.com/7666638403/rajgarande/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:   []string{"X-Request-ID"},
		MaxAge:          12 * time.Hour,
	}))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	billRepo := repository.NewBillRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg)
	catalogSvc := service.NewCatalogService(productRepo)

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	billingSvc := service.NewBillingService(billRepo, productRepo, dispatcher)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usersH := handler.NewUsersHandler(authSvc)
	productsH := handler.NewProductsHandler(catalogSvc)
	billsH := handler.NewBillsHandler(billingSvc)
	invoiceH := handler.NewInvoiceHandler(billRepo, cfg.StoreName)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		anyRole := middleware.RequireRole(middleware.RoleCashier, middleware.RoleStaff, middleware.RoleAdmin)

		// Checkout — every authenticated role can register a sale
		v1.POST("/bills", anyRole, billsH.Create)
		// Bill history — staff and admin only
		v1.GET("/bills", middleware.RequireRole(middleware.RoleStaff, middleware.RoleAdmin), billsH.List)
		v1.GET("/bills/:bill_no", middleware.RequireRole(middleware.RoleStaff, middleware.RoleAdmin), billsH.Get)
		// Cancellation — admin only
		v1.DELETE("/bills/:bill_no", middleware.RequireRole(middleware.RoleAdmin), billsH.Cancel)
		// Invoice PDF — any role (the register prints it right after checkout)
		v1.GET("/bills/:bill_no/pdf", anyRole, invoiceH.Download)

		// Catalog reads — cashiers need the product list to build carts
		v1.GET("/products", anyRole, productsH.List)
		v1.GET("/products/:id", anyRole, productsH.GetByID)
		// Catalog writes — admin only
		products := v1.Group("/products", middleware.RequireRole(middleware.RoleAdmin))
		{
			products.POST("", productsH.Create)
			products.PUT("/:id", productsH.Update)
		}

		users := v1.Group("/users", middleware.RequireRole(middleware.RoleAdmin))
		{
			users.POST("", usersH.Create)
			users.GET("", usersH.List)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

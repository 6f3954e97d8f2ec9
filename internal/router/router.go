package router

import (
	"time"

	"junyue/config"
	"junyue/internal/domain"
	"junyue/internal/handler"
	"junyue/internal/middleware"
	"junyue/internal/repository"
	"junyue/internal/service"
	"junyue/pkg/gateway"
	"junyue/pkg/privacy"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.SetupCORS())
	r.Use(middleware.Metrics())
	// IP-keyed at this point; the deposit route adds a per-user limit below.
	r.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.Server.RateLimitPerMin, time.Minute)))

	// Repositories
	userRepo := repository.NewUserRepository(db)
	techRepo := repository.NewTechnicianRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)

	// Collaborators
	cipher := privacy.NewCipher(cfg.Privacy.EncryptionKey)
	gw := gateway.NewClient(cfg.Gateway.MchID, cfg.Gateway.Key, cfg.Gateway.BaseURL, cfg.Gateway.NotifyURL, cfg.Gateway.Timeout)

	// Services
	authSvc := service.NewAuthService(cfg, userRepo, techRepo)
	orderSvc := service.NewOrderService(db, orderRepo, techRepo, cipher)
	commissionSvc := service.NewCommissionService(userRepo, commissionRepo, nil)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	techHandler := handler.NewTechnicianHandler(techRepo, cipher)
	orderHandler := handler.NewOrderHandler(orderSvc, orderRepo)
	paymentHandler := handler.NewPaymentHandler(cfg, gw, orderRepo, paymentRepo)
	callbackHandler := handler.NewCallbackHandler(db, gw, paymentRepo, orderRepo, orderSvc, commissionSvc)
	commissionHandler := handler.NewCommissionHandler(commissionRepo, userRepo)

	authMw := middleware.AuthRequired(&cfg.JWT)
	depositLimiter := middleware.RateLimit(middleware.NewRateLimiter(cfg.Server.DepositRateLimitPerMin, time.Minute))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		api.GET("/technicians", authMw, techHandler.List)
		api.GET("/technicians/:id", authMw, techHandler.Get)
		api.PUT("/technicians/profile", authMw, middleware.RequireRole(domain.RoleTechnician), techHandler.UpdateProfile)
		api.PATCH("/technicians/availability", authMw, middleware.RequireRole(domain.RoleTechnician), techHandler.SetAvailability)

		api.POST("/orders", authMw, middleware.RequireRole(domain.RoleCustomer), orderHandler.Create)
		api.GET("/orders/my", authMw, orderHandler.ListMine)
		api.POST("/orders/:id/cancel", authMw, middleware.RequireRole(domain.RoleCustomer), orderHandler.Cancel)
		api.POST("/orders/:id/confirm-final", authMw, middleware.RequireRole(domain.RoleTechnician), orderHandler.ConfirmFinal)

		api.POST("/payments/deposit", authMw, middleware.RequireRole(domain.RoleCustomer), depositLimiter, paymentHandler.CreateDeposit)
		// Gateway callback: no auth middleware, gated by signature verification.
		api.POST("/payments/callback/yungou", callbackHandler.Handle)

		api.GET("/commissions/my", authMw, commissionHandler.ListMine)
	}

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

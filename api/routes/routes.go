package routes

import (
	"net/http"

	"github.com/ArowuTest/recyclehub-backend/internal/config"
	"github.com/ArowuTest/recyclehub-backend/internal/handlers"
	"github.com/ArowuTest/recyclehub-backend/internal/metrics"
	"github.com/ArowuTest/recyclehub-backend/internal/middleware"
	"github.com/ArowuTest/recyclehub-backend/internal/models"
	"github.com/gin-gonic/gin"
)

// HandlerDependencies holds all handler instances needed by the router
type HandlerDependencies struct {
	AuthHandler       *handlers.AuthHandler
	CollectionHandler *handlers.CollectionHandler
	LedgerHandler     *handlers.LedgerHandler
	Authenticator     middleware.Authenticator
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedHosts))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(metrics.Middleware())

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		public.GET("/vouchers/catalog", deps.LedgerHandler.Catalog)

		auth := public.Group("/auth")
		auth.Use(middleware.NewRateLimiter(cfg.RateLimit.AuthPerMinute).Handler())
		{
			auth.POST("/register", deps.AuthHandler.Register)
			auth.POST("/login", deps.AuthHandler.Login)
		}
	}

	protected := router.Group("/api/v1")
	protected.Use(middleware.JWTAuthMiddleware(deps.Authenticator))
	{
		protected.POST("/auth/logout", deps.AuthHandler.Logout)

		users := protected.Group("/users/me")
		{
			users.GET("", deps.AuthHandler.Me)
			users.PATCH("", deps.AuthHandler.UpdateProfile)
			users.PUT("/password", deps.AuthHandler.ChangePassword)
		}

		collections := protected.Group("/collections")
		{
			collections.POST("", deps.CollectionHandler.CreateCollection)
			collections.GET("", deps.CollectionHandler.ListCollections)
			collections.GET("/:id", deps.CollectionHandler.GetCollection)
			collections.GET("/:id/history", deps.CollectionHandler.CollectionHistory)
			collections.PATCH("/:id", deps.CollectionHandler.UpdateCollection)
			collections.DELETE("/:id", deps.CollectionHandler.DeleteCollection)
			collections.PUT("/:id/status", middleware.RequireRole(models.RoleCollector), deps.CollectionHandler.UpdateStatus)
		}

		vouchers := protected.Group("/vouchers")
		{
			vouchers.GET("", deps.LedgerHandler.ListVouchers)
			vouchers.POST("", deps.LedgerHandler.Redeem)
			vouchers.POST("/:id/use", deps.LedgerHandler.UseVoucher)
		}

		points := protected.Group("/points")
		{
			points.GET("", deps.LedgerHandler.PointsSummary)
			points.GET("/history", deps.LedgerHandler.PointsHistory)
		}
	}

	return router
}

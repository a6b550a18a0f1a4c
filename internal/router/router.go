package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-cart/config"
	"github.com/ikkim/storefront-cart/internal/app/controller"
	"github.com/ikkim/storefront-cart/internal/app/model"
	"github.com/ikkim/storefront-cart/internal/middleware"
)

// PendingReporter reports whether a cart snapshot is still waiting to be
// written to storage.
type PendingReporter interface {
	Pending() bool
}

type Router struct {
	cartController    *controller.CartController
	uiController      *controller.UIController
	sessionController *controller.SessionController
	wsController      *controller.WSController
	authMiddleware    *middleware.AuthMiddleware
	owners            middleware.OwnerClaimer
	persistence       PendingReporter
	config            *config.Config
}

func NewRouter(
	cartController *controller.CartController,
	uiController *controller.UIController,
	sessionController *controller.SessionController,
	wsController *controller.WSController,
	authMiddleware *middleware.AuthMiddleware,
	owners middleware.OwnerClaimer,
	persistence PendingReporter,
	cfg *config.Config,
) *Router {
	return &Router{
		cartController:    cartController,
		uiController:      uiController,
		sessionController: sessionController,
		wsController:      wsController,
		authMiddleware:    authMiddleware,
		owners:            owners,
		persistence:       persistence,
		config:            cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", r.health)

	requireOwner := middleware.RequireOwner(r.owners)

	v1 := router.Group("/api/v1")
	{
		cart := v1.Group("/cart")
		cart.Use(r.authMiddleware.Authenticate(), r.authMiddleware.RequireRole(model.RoleCustomer), requireOwner)
		{
			cart.GET("", r.cartController.GetCart)
			cart.DELETE("", r.cartController.ClearCart)
			cart.POST("/items", r.cartController.AddItem)
			cart.PUT("/items/:productId", r.cartController.UpdateQuantity)
			cart.DELETE("/items/:productId", r.cartController.RemoveItem)
			cart.GET("/export", r.cartController.ExportCart)
			cart.GET("/ws", r.wsController.Connect)
		}

		ui := v1.Group("/ui")
		ui.Use(r.authMiddleware.Authenticate(), requireOwner)
		{
			ui.GET("", r.uiController.GetUI)
			ui.PUT("/dark-mode", r.uiController.SetDarkMode)
			ui.POST("/dark-mode/toggle", r.uiController.ToggleDarkMode)
			ui.POST("/sidebar/toggle", r.uiController.ToggleSidebar)
		}

		session := v1.Group("/session")
		session.Use(r.authMiddleware.Authenticate(), r.authMiddleware.RequireRole(model.RoleCustomer), requireOwner)
		{
			session.POST("/logout", r.sessionController.Logout)
		}
	}

	return router
}

func (r *Router) health(c *gin.Context) {
	pending := r.persistence != nil && r.persistence.Pending()

	status := "healthy"
	if pending {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          status,
		"message":         "Storefront cart API is running",
		"storage_backend": r.config.Storage.Backend,
		"persist_pending": pending,
	})
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

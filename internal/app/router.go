// internal/app/router.go
package app

import (
	"net/http"

	"pillflow-service/internal/domain/event"
	authHandler "pillflow-service/internal/handlers/auth"
	customerHandler "pillflow-service/internal/handlers/customer"
	eventHandler "pillflow-service/internal/handlers/event"
	packHandler "pillflow-service/internal/handlers/pack"
	reportHandler "pillflow-service/internal/handlers/report"
	wsHandler "pillflow-service/internal/handlers/websocket"
	"pillflow-service/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	AuthHandler     *authHandler.AuthHandler
	CustomerHandler *customerHandler.CustomerHandler
	PackHandler     *packHandler.PackHandler
	EventHandler    *eventHandler.EventHandler
	ReportHandler   *reportHandler.ReportHandler
	WSHandler       *wsHandler.WebSocketHandler
	AuthMiddleware  *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Public Auth Routes ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/register", h.AuthHandler.Register)
		authPublic.POST("/login", h.AuthHandler.Login)
	}

	// ==================== Authenticated Auth Routes ====================
	authProtected := api.Group("/auth")
	authProtected.Use(h.AuthMiddleware.Auth())
	{
		authProtected.POST("/logout", h.AuthHandler.Logout)
		authProtected.POST("/logout-all", h.AuthHandler.LogoutAll)
		authProtected.GET("/me", h.AuthHandler.GetMe)
	}

	// ==================== Customers ====================
	customers := api.Group("/customers")
	customers.Use(h.AuthMiddleware.Auth())
	{
		customers.POST("", h.CustomerHandler.CreateCustomer)
		customers.GET("", h.CustomerHandler.ListCustomers)
		customers.GET("/stats", h.CustomerHandler.GetCustomerStats)
		customers.GET("/:id", h.CustomerHandler.GetCustomer)
		customers.PUT("/:id", h.CustomerHandler.UpdateCustomer)
		customers.PATCH("/:id/activate", h.CustomerHandler.ActivateCustomer)
		customers.PATCH("/:id/deactivate", h.CustomerHandler.DeactivateCustomer)
		customers.GET("/:id/packs", h.CustomerHandler.ListCustomerPacks)
	}

	// ==================== Packs ====================
	packs := api.Group("/packs")
	packs.Use(h.AuthMiddleware.Auth())
	{
		packs.POST("", h.PackHandler.CreatePack)
		packs.GET("", h.PackHandler.ListPacks)
		packs.GET("/:id", h.PackHandler.GetPack)
		packs.PUT("/:id", h.PackHandler.UpdatePack)
		packs.GET("/:id/schedule", h.PackHandler.GetSchedule)
	}

	// ==================== Collections & Checks ====================
	for path, kind := range map[string]event.Kind{
		"/collections": event.KindCollection,
		"/checks":      event.KindCheck,
	} {
		group := api.Group(path)
		group.Use(h.AuthMiddleware.Auth())
		{
			group.POST("", h.EventHandler.Record(kind))
			group.GET("", h.EventHandler.List(kind))
			group.GET("/:id", h.EventHandler.Get(kind))
			group.PATCH("/:id/status", h.EventHandler.CorrectStatus(kind))
		}
	}

	// ==================== Reports ====================
	reports := api.Group("/reports")
	reports.Use(h.AuthMiddleware.Auth())
	{
		reports.GET("/aggregate", h.ReportHandler.Aggregate)
		reports.GET("/dashboard", h.ReportHandler.Dashboard)
		reports.GET("/upcoming", h.ReportHandler.Upcoming)
		reports.GET("/customer-activity", h.ReportHandler.CustomerActivity)
		reports.GET("/checks", h.ReportHandler.CheckStats)
		reports.GET("/recent", h.ReportHandler.RecentActivity)
	}

	// ==================== WebSocket Stats ====================
	ws := api.Group("/ws")
	ws.Use(h.AuthMiddleware.Auth())
	{
		ws.GET("/stats", h.WSHandler.GetStats)
	}
}

// Package api wires HTTP routes onto the service layer.
package api

import (
	"net/http"
	"time"

	"github.com/Marga-Ghale/ora-family-backend/internal/api/handlers"
	"github.com/Marga-Ghale/ora-family-backend/internal/api/middleware"
	"github.com/Marga-Ghale/ora-family-backend/internal/config"
	"github.com/Marga-Ghale/ora-family-backend/internal/logger"
	"github.com/Marga-Ghale/ora-family-backend/internal/metrics"
	"github.com/Marga-Ghale/ora-family-backend/internal/service"
	"github.com/Marga-Ghale/ora-family-backend/internal/types"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterDeps holds what the router needs. WebSocket and Health are optional.
type RouterDeps struct {
	Config    *config.Config
	Services  *service.Services
	Logger    *logger.Logger
	Metrics   *metrics.Metrics
	WebSocket gin.HandlerFunc
	Health    func() map[string]interface{}
}

func NewRouter(deps RouterDeps) *gin.Engine {
	log := deps.Logger.Component("HTTP")
	if err := handlers.RegisterValidators(); err != nil {
		log.WithError(err).Error("custom validators not registered")
	}

	r := gin.New()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.Config.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		body := gin.H{"status": "healthy", "timestamp": time.Now()}
		if deps.Health != nil {
			for k, v := range deps.Health() {
				body[k] = v
			}
		}
		c.JSON(http.StatusOK, body)
	})
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	h := handlers.NewHandlers(deps.Services, log)
	parentOnly := middleware.RequireParent()

	api := r.Group("/api")
	{
		// ============================================
		// Public routes
		// ============================================
		auth := api.Group("/auth")
		{
			auth.POST("/signup", h.Auth.SignUp)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
			auth.POST("/logout", h.Auth.Logout)
			auth.POST("/forgot-password", h.Auth.ForgotPassword)
			auth.PATCH("/reset-password/:token", h.Auth.ResetPassword)
		}

		if deps.WebSocket != nil {
			api.GET("/ws", deps.WebSocket)
		}

		// ============================================
		// Protected routes
		// ============================================
		protected := api.Group("")
		protected.Use(middleware.Auth(deps.Services.Auth, deps.Logger.Component("Auth")))
		{
			family := protected.Group("/family")
			{
				family.GET("", h.Family.Get)
				family.PATCH("/deactivate", parentOnly, h.Family.Deactivate)
			}

			members := protected.Group("/members")
			{
				members.GET("", h.Member.List)
				members.POST("", parentOnly, h.Member.Create)
				members.GET("/me", h.Member.Me)
				members.PATCH("/me/password", h.Member.SetPassword)
				members.GET("/:id", h.Member.Get)
				members.DELETE("/:id", parentOnly, h.Member.Delete)
			}

			memberTypes := protected.Group("/member-types")
			{
				memberTypes.GET("", h.Member.ListTypes)
				memberTypes.POST("", parentOnly, h.Member.CreateType)
				memberTypes.PUT("/:id/permissions", parentOnly, h.Member.SetPermissions)
			}

			for path, kind := range map[string]types.CategoryKind{
				"/task-categories":     types.CategoryTask,
				"/wishlist-categories": types.CategoryWishlist,
			} {
				categories := protected.Group(path)
				categories.GET("", h.Category.List(kind))
				categories.POST("", parentOnly, h.Category.Create(kind))
				categories.PUT("/:id", parentOnly, h.Category.Update(kind))
				categories.DELETE("/:id", parentOnly, h.Category.Delete(kind))
			}

			tasks := protected.Group("/tasks")
			{
				tasks.GET("", h.Task.List)
				tasks.POST("", h.Task.Create)
				tasks.GET("/:id", h.Task.Get)
				tasks.PUT("/:id", h.Task.Update)
				tasks.DELETE("/:id", h.Task.Delete)
			}

			assignments := protected.Group("/assignments")
			{
				assignments.POST("", h.Task.Assign)
				assignments.GET("/pending", parentOnly, h.Task.Pending())
				assignments.GET("/mine", h.Task.Mine())
				assignments.GET("/approved", h.Task.Approved())
				assignments.GET("/awaiting-review", parentOnly, h.Task.AwaitingReview())
				assignments.PATCH("/:id/review", parentOnly, h.Task.ReviewAssignment)
				assignments.PATCH("/:id/complete", h.Task.Complete)
				assignments.PATCH("/:id/approve", parentOnly, h.Task.ApproveCompletion)
				assignments.PATCH("/:id/penalty", parentOnly, h.Task.Penalty)
			}

			wallet := protected.Group("/wallet")
			{
				wallet.GET("/me", h.Wallet.Me)
				wallet.GET("/members/:email", h.Wallet.Member)
				wallet.POST("/adjust", parentOnly, h.Wallet.Adjust)
				wallet.POST("/initialize", parentOnly, h.Wallet.Initialize)
				wallet.GET("/ranking", h.Wallet.Ranking)
				wallet.GET("/reconcile", parentOnly, h.Wallet.Reconcile)
			}

			history := protected.Group("/history")
			{
				history.GET("/me", h.Wallet.MyHistory())
				history.GET("/members/:email", h.Wallet.MemberHistory())
				history.GET("/family", parentOnly, h.Wallet.FamilyHistory())
			}

			wishlist := protected.Group("/wishlist")
			{
				wishlist.GET("/me", h.Wishlist.Mine)
				wishlist.GET("/members/:email", h.Wishlist.Member)
				wishlist.POST("/items", h.Wishlist.AddItem)
				wishlist.POST("/members/:email/items", parentOnly, h.Wishlist.AddItemForMember)
				wishlist.PUT("/items/:id", h.Wishlist.UpdateItem)
				wishlist.DELETE("/items/:id", h.Wishlist.RemoveItem)
				wishlist.PATCH("/prioritize", h.Wishlist.Prioritize)
				wishlist.GET("/items/:id/progress", h.Wishlist.Progress)
			}

			redeem := protected.Group("/redeem")
			{
				redeem.POST("", h.Redeem.Request)
				redeem.GET("/mine", h.Redeem.Mine())
				redeem.GET("/pending", parentOnly, h.Redeem.Pending())
				redeem.GET("/all", parentOnly, h.Redeem.All())
				redeem.GET("/awaiting", h.Redeem.Awaiting())
				redeem.PATCH("/:id/review", parentOnly, h.Redeem.Review)
				redeem.PATCH("/:id/respond", h.Redeem.Respond)
				redeem.PATCH("/:id/cancel", h.Redeem.Cancel)
			}
		}
	}

	return r
}

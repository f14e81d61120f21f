package routes

import (
	"storybook-order-service/common/auth"
	"storybook-order-service/controllers"
	"storybook-order-service/middleware"

	"github.com/gin-gonic/gin"
)

type Controllers struct {
	Orders   *controllers.OrderController
	Comments *controllers.CommentController
	Admin    *controllers.AdminController
	Webhooks *controllers.WebhookController
}

// RegisterRoutes sets up every order, review and finance route.
func RegisterRoutes(r *gin.Engine, tokens *auth.TokenParser, c Controllers) {
	// Stripe signs the payload itself, no caller identity.
	r.POST("/stripe/webhook", c.Webhooks.StripeWebhook)

	authed := middleware.AuthMiddleware(tokens)

	orderRoutes := r.Group("/orders")
	orderRoutes.Use(authed)
	orderRoutes.GET("", c.Orders.GetOrders)
	orderRoutes.POST("/checkout", c.Orders.Checkout)
	orderRoutes.GET("/:id", c.Orders.GetOrderByID)
	orderRoutes.POST("/:id/status", middleware.RequireModerator(), c.Orders.UpdateStatus)
	orderRoutes.POST("/:id/request-changes", c.Orders.RequestChanges)
	orderRoutes.POST("/:id/approve", c.Orders.Approve)
	orderRoutes.GET("/:id/comments", c.Comments.ListComments)
	orderRoutes.POST("/:id/comments", c.Comments.CreateComment)

	commentRoutes := r.Group("/comments")
	commentRoutes.Use(authed)
	commentRoutes.POST("/:commentId/replies", c.Comments.Reply)
	commentRoutes.POST("/:commentId/resolve", c.Comments.Resolve)
	commentRoutes.POST("/:commentId/reopen", c.Comments.Reopen)

	adminRoutes := r.Group("/admin")
	adminRoutes.Use(authed, middleware.RequireModerator())
	adminRoutes.GET("/orders", c.Orders.GetAllOrders)

	finance := adminRoutes.Group("/orders/:id", middleware.RequireFinance())
	finance.POST("/discount", c.Admin.ApplyDiscount)
	finance.POST("/refund", c.Admin.IssueRefund)
	finance.GET("/ledger", c.Admin.GetLedger)
}

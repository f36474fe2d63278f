package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"skillswap-server/internal/config"
	"skillswap-server/internal/handlers"
	"skillswap-server/internal/middleware"
	"skillswap-server/internal/models"
	"skillswap-server/internal/services"
)

// SetupRoutes wires the services together and registers the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, logger *slog.Logger) {
	listings := services.NewListingStore(db)
	users := services.NewUserDirectory(db)
	notifications := services.NewNotificationService(db, users, cfg.Notifications, logger)
	conversations := services.NewConversationService(db, listings, notifications, logger)
	messages := services.NewMessageService(db, conversations, cfg.Messages, logger)
	responses := services.NewResponseService(db, listings, users, notifications, conversations, *cfg, logger)

	listingHandler := handlers.NewListingHandler(listings, notifications, responses, logger)
	responseHandler := handlers.NewResponseHandler(responses, conversations, logger)
	messageHandler := handlers.NewMessageHandler(conversations, messages, logger)
	notificationHandler := handlers.NewNotificationHandler(notifications, logger)

	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		for _, kind := range []models.ListingKind{models.ListingOffer, models.ListingRequest} {
			listingRoutes := private.Group("/" + string(kind) + "s")
			{
				listingRoutes.POST("", listingHandler.Create(kind))
				listingRoutes.DELETE("/:id", listingHandler.Delete(kind))
				listingRoutes.POST("/:id/responses", listingHandler.Apply(kind))
				listingRoutes.GET("/:id/responses", listingHandler.ListResponses(kind))
			}
		}

		responseRoutes := private.Group("/responses")
		{
			responseRoutes.GET("", responseHandler.GetMine)
			responseRoutes.GET("/:id", responseHandler.GetByID)
			responseRoutes.PATCH("/:id/status", responseHandler.UpdateStatus)
			responseRoutes.POST("/:id/withdraw", responseHandler.Withdraw)
			responseRoutes.POST("/:id/complete", responseHandler.Complete)
			responseRoutes.DELETE("/:id/complete", responseHandler.UndoComplete)
			responseRoutes.POST("/:id/email-exchanged", responseHandler.MarkEmailExchanged)
			responseRoutes.POST("/:id/conversation", responseHandler.StartConversation)
		}

		conversationRoutes := private.Group("/conversations")
		{
			conversationRoutes.GET("", messageHandler.GetConversations)
			conversationRoutes.GET("/:id/messages", messageHandler.GetMessages)
			conversationRoutes.POST("/:id/messages", messageHandler.SendMessage)
		}

		notificationRoutes := private.Group("/notifications")
		{
			notificationRoutes.GET("", notificationHandler.List)
			notificationRoutes.GET("/unread-count", notificationHandler.UnreadCount)
			notificationRoutes.PATCH("/read-all", notificationHandler.MarkAllRead)
			notificationRoutes.PATCH("/:id/read", notificationHandler.MarkRead)
			notificationRoutes.DELETE("/:id", notificationHandler.Delete)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}

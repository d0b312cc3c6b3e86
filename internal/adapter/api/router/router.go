package router

import (
	"github.com/labstack/echo/v4"

	"plantia/internal/adapter/api/handler"
	"plantia/internal/adapter/api/middleware"
)

func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware) {
	chats := e.Group("/v1/chats")
	chats.Use(authMiddleware.Authenticate)

	chats.GET("", chatHandler.GetUserChats)
	chats.POST("", chatHandler.CreateChat)
	chats.GET("/:id", chatHandler.GetChatByID)
	chats.GET("/:id/messages", chatHandler.GetChatMessages)
	chats.POST("/:id/messages", chatHandler.SendMessage)
	chats.POST("/:id/read", chatHandler.MarkChatAsRead)
	chats.POST("/:id/leave", chatHandler.LeaveChat)
}

func SetupNotificationRouter(e *echo.Echo, notificationHandler *handler.NotificationHandler, authMiddleware *middleware.AuthMiddleware) {
	notifications := e.Group("/v1/notifications")
	notifications.Use(authMiddleware.Authenticate)

	notifications.POST("/token", notificationHandler.RegisterToken)
	notifications.PUT("/settings", notificationHandler.UpdateSetting)
}

func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/v1/ws", wsHandler.HandleConnection)
}

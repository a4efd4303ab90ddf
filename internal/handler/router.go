package handler

import (
	"support-chat-go/internal/middleware"
	"support-chat-go/internal/service"
	"support-chat-go/pkg/events"
	"support-chat-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// RouterDeps 汇总注册路由所需的依赖。
type RouterDeps struct {
	Store       service.ConversationStore
	Tickets     service.TicketService
	Theme       service.ThemeService
	Broadcaster *events.Broadcaster
	JWTManager  *token.JWTManager
	// RequireAuth 为 true 时 /api/v1 需要 UI 令牌
	RequireAuth bool
}

// NewRouter 创建 UI 网关的路由引擎。
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	sessionHandler := NewSessionHandler(deps.Store)
	ticketHandler := NewTicketHandler(deps.Tickets)
	themeHandler := NewThemeHandler(deps.Theme)
	eventsHandler := NewEventsHandler(deps.Store, deps.Broadcaster, deps.JWTManager)

	apiV1 := r.Group("/api/v1")
	if deps.RequireAuth {
		apiV1.Use(middleware.AuthMiddleware(deps.JWTManager))
	}
	{
		session := apiV1.Group("/session")
		{
			session.GET("", sessionHandler.GetSession)
			session.POST("/messages", sessionHandler.SendMessage)
			session.POST("/load", sessionHandler.LoadConversation)
			session.DELETE("", sessionHandler.ClearSession)
		}

		tickets := apiV1.Group("/tickets")
		{
			tickets.POST("", ticketHandler.CreateTicket)
			tickets.GET("", ticketHandler.ListTickets)
			tickets.GET("/:ticketId", ticketHandler.GetTicketStatus)
		}

		theme := apiV1.Group("/theme")
		{
			theme.GET("", themeHandler.GetTheme)
			theme.POST("/toggle", themeHandler.ToggleTheme)
		}

		apiV1.GET("/events/token", eventsHandler.GetStreamToken)
	}
	// WebSocket 无法携带 Authorization 头，使用路径中的短期令牌
	r.GET("/events/:token", eventsHandler.Handle)

	return r
}

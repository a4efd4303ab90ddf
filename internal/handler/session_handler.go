// Package handler 包含了本地 UI 网关的 HTTP 控制器逻辑。
package handler

import (
	"context"
	"net/http"

	"support-chat-go/internal/service"
	"support-chat-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// SessionHandler 将会话状态协调器暴露给 UI。
type SessionHandler struct {
	store service.ConversationStore
}

// NewSessionHandler 创建一个新的 SessionHandler。
func NewSessionHandler(store service.ConversationStore) *SessionHandler {
	return &SessionHandler{store: store}
}

// SendMessageRequest 是发送消息的请求体。content 为空白时不会发起请求。
type SendMessageRequest struct {
	Content string `json:"content"`
}

// LoadConversationRequest 是加载历史会话的请求体。
type LoadConversationRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// GetSession 返回当前会话状态。
func (h *SessionHandler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": h.store.State()})
}

// SendMessage 发送一条消息，并在发送结束后返回最新状态。
// 后端失败不会体现为 HTTP 错误，而是会话中的一条兜底消息。
func (h *SessionHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("SendMessage: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载", "data": nil})
		return
	}

	// UI 断开后仍等待后端回复
	h.store.SendMessage(context.WithoutCancel(c.Request.Context()), req.Content)
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": h.store.State()})
}

// LoadConversation 加载一个历史会话。加载失败时状态保持不变，接口仍返回 200。
func (h *SessionHandler) LoadConversation(c *gin.Context) {
	var req LoadConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("LoadConversation: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "session_id 不能为空", "data": nil})
		return
	}

	h.store.LoadConversation(context.WithoutCancel(c.Request.Context()), req.SessionID)
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": h.store.State()})
}

// ClearSession 清空消息与会话 ID。
func (h *SessionHandler) ClearSession(c *gin.Context) {
	h.store.ClearMessages()
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": h.store.State()})
}

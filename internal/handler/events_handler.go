package handler

import (
	"context"
	"net/http"
	"time"

	"support-chat-go/internal/model"
	"support-chat-go/internal/service"
	"support-chat-go/pkg/events"
	"support-chat-go/pkg/log"
	"support-chat-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 网关只监听本机，允许所有来源
		},
	}
)

// StateEvent 是推送给 UI 的一条状态消息。
type StateEvent struct {
	Type      string                  `json:"type"`
	Data      model.ConversationState `json:"data"`
	Timestamp int64                   `json:"timestamp"`
}

// EventsHandler 通过 WebSocket 向 UI 推送会话状态快照。
type EventsHandler struct {
	store       service.ConversationStore
	broadcaster *events.Broadcaster
	jwtManager  *token.JWTManager
}

// NewEventsHandler 创建一个新的 EventsHandler。
func NewEventsHandler(store service.ConversationStore, broadcaster *events.Broadcaster, jwtManager *token.JWTManager) *EventsHandler {
	return &EventsHandler{store: store, broadcaster: broadcaster, jwtManager: jwtManager}
}

// GetStreamToken 签发建立 WebSocket 所需的短期令牌。
func (h *EventsHandler) GetStreamToken(c *gin.Context) {
	tok, err := h.jwtManager.GenerateStreamToken(c.ClientIP())
	if err != nil {
		log.Error("签发 stream token 失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "无法签发令牌", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{"streamToken": tok}})
}

// Handle 处理一个传入的 WebSocket 连接：先推送当前状态，之后每次状态变更推送一次。
func (h *EventsHandler) Handle(c *gin.Context) {
	if _, err := h.jwtManager.ConsumeStreamToken(c.Param("token"), c.ClientIP()); err != nil {
		log.Warnf("stream token 校验失败: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的 token", "data": nil})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// 订阅要在推送初始快照之前完成，避免漏掉中间的变更
	updates, subID := h.broadcaster.Subscribe(ctx)
	log.Infow("WebSocket 连接已建立", "sub_id", subID)

	// 读循环只用于感知对端关闭
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeState(conn, h.store.State()); err != nil {
		log.Warnf("推送初始状态失败: %v", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			log.Infow("WebSocket 连接已关闭", "sub_id", subID)
			return
		case state, ok := <-updates:
			if !ok {
				return
			}
			if err := writeState(conn, state); err != nil {
				log.Warnf("推送状态失败: %v", err)
				return
			}
		}
	}
}

func writeState(conn *websocket.Conn, state model.ConversationState) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(StateEvent{Type: "state", Data: state, Timestamp: time.Now().UnixMilli()})
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"support-chat-go/internal/service"
	"support-chat-go/pkg/chatapi"

	"github.com/gin-gonic/gin"
)

// TicketHandler 处理工单相关的 UI 请求。
type TicketHandler struct {
	tickets service.TicketService
}

// NewTicketHandler 创建一个新的 TicketHandler。
func NewTicketHandler(tickets service.TicketService) *TicketHandler {
	return &TicketHandler{tickets: tickets}
}

// CreateTicketRequest 是创建工单的请求体。
type CreateTicketRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

// CreateTicket 创建工单并原样返回后端的工单对象。
// 失败时返回 502，data 中带上后端的状态码和响应体，由 UI 决定如何提示与重试。
func (h *TicketHandler) CreateTicket(c *gin.Context) {
	var req CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载", "data": nil})
		return
	}

	ticket, err := h.tickets.Create(c.Request.Context(), req.Subject, req.Description)
	if err != nil {
		upstreamError(c, "创建工单失败", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": http.StatusCreated, "message": "success", "data": ticket.Raw})
}

// ListTickets 返回本地工单台账。
func (h *TicketHandler) ListTickets(c *gin.Context) {
	records, err := h.tickets.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "读取工单台账失败", "data": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": records})
}

// GetTicketStatus 查询后端的工单状态。
func (h *TicketHandler) GetTicketStatus(c *gin.Context) {
	ticket, err := h.tickets.Status(c.Request.Context(), c.Param("ticketId"))
	if err != nil {
		upstreamError(c, "查询工单失败", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": ticket.Raw})
}

func upstreamError(c *gin.Context, message string, err error) {
	data := gin.H{"kind": chatapi.Classify(err).String(), "error": err.Error()}
	var respErr *chatapi.ResponseError
	if errors.As(err, &respErr) {
		data["upstream_status"] = respErr.StatusCode
		if json.Valid(respErr.Body) {
			data["upstream_body"] = json.RawMessage(respErr.Body)
		} else {
			data["upstream_body"] = string(respErr.Body)
		}
	}
	c.JSON(http.StatusBadGateway, gin.H{"code": http.StatusBadGateway, "message": message, "data": data})
}

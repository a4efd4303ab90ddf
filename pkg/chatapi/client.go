// Package chatapi provides a client for the customer-support chat backend.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"support-chat-go/internal/config"
	"support-chat-go/internal/model"

	"github.com/google/uuid"
)

// 错误响应体最多保留这么多字节用于日志
const maxErrorBody = 64 << 10

// Client defines the operations the conversation store needs from the backend.
type Client interface {
	SendMessage(ctx context.Context, req ChatRequest) (*ChatReply, error)
	GetConversation(ctx context.Context, sessionID string) (*model.Conversation, error)
	CreateTicket(ctx context.Context, req TicketRequest) (*model.SupportTicket, error)
	GetTicket(ctx context.Context, ticketID string) (*model.SupportTicket, error)
}

// ChatRequest 是 POST /chat/ 的请求体。SessionID 为 nil 时序列化为 null。
type ChatRequest struct {
	Message   string  `json:"message"`
	SessionID *string `json:"session_id"`
}

// ChatReply 是校验后的聊天响应。SessionID 为空表示后端没有返回会话 ID。
type ChatReply struct {
	SessionID     string
	Response      string
	MessageID     *int64
	RequiresHuman bool
}

// TicketRequest 是 POST /ticket/create/ 的请求体。
type TicketRequest struct {
	SessionID   *string `json:"session_id"`
	Subject     string  `json:"subject"`
	Description string  `json:"description"`
}

type chatReplyPayload struct {
	SessionID     *string `json:"session_id"`
	Response      *string `json:"response"`
	MessageID     *int64  `json:"message_id"`
	RequiresHuman bool    `json:"requires_human"`
}

type messagePayload struct {
	ID        *int64             `json:"id"`
	Content   string             `json:"content"`
	Sender    string             `json:"sender"`
	Timestamp *model.BackendTime `json:"timestamp"`
}

type conversationPayload struct {
	ID        flexibleID        `json:"id"`
	SessionID string            `json:"session_id"`
	Messages  *[]messagePayload `json:"messages"`
	CreatedAt model.BackendTime `json:"created_at"`
	UpdatedAt model.BackendTime `json:"updated_at"`
}

type ticketPayload struct {
	ID          int64             `json:"id"`
	TicketID    string            `json:"ticket_id"`
	Subject     string            `json:"subject"`
	Description string            `json:"description"`
	Status      string            `json:"status"`
	Priority    string            `json:"priority"`
	CreatedAt   model.BackendTime `json:"created_at"`
	UpdatedAt   model.BackendTime `json:"updated_at"`
}

// flexibleID 接受字符串或数字形式的 id。
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = flexibleID(n.String())
	return nil
}

type httpClient struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a backend client from the backend config.
// Timeout 为 0 表示不设置超时。
func NewClient(cfg config.BackendConfig) Client {
	return &httpClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// SendMessage posts one chat turn and validates the reply.
func (c *httpClient) SendMessage(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	const op = "send message"
	body, err := c.do(ctx, op, http.MethodPost, "/chat/", req)
	if err != nil {
		return nil, err
	}

	var payload chatReplyPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &MalformedResponseError{Op: op, Reason: "invalid JSON", Err: err}
	}
	if payload.Response == nil {
		return nil, &MalformedResponseError{Op: op, Reason: "missing response field"}
	}

	reply := &ChatReply{
		Response:      *payload.Response,
		MessageID:     payload.MessageID,
		RequiresHuman: payload.RequiresHuman,
	}
	if payload.SessionID != nil {
		reply.SessionID = *payload.SessionID
	}
	return reply, nil
}

// GetConversation fetches a stored conversation by session identifier.
func (c *httpClient) GetConversation(ctx context.Context, sessionID string) (*model.Conversation, error) {
	const op = "load conversation"
	body, err := c.do(ctx, op, http.MethodGet, "/conversation/"+url.PathEscape(sessionID)+"/", nil)
	if err != nil {
		return nil, err
	}

	var payload conversationPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &MalformedResponseError{Op: op, Reason: "invalid JSON", Err: err}
	}
	if payload.Messages == nil {
		return nil, &MalformedResponseError{Op: op, Reason: "missing messages field"}
	}

	conv := &model.Conversation{
		ID:        string(payload.ID),
		SessionID: payload.SessionID,
		Messages:  make([]model.Message, 0, len(*payload.Messages)),
		CreatedAt: payload.CreatedAt.Time(),
		UpdatedAt: payload.UpdatedAt.Time(),
	}
	for i, m := range *payload.Messages {
		sender, err := model.ParseSender(m.Sender)
		if err != nil {
			return nil, &MalformedResponseError{Op: op, Reason: fmt.Sprintf("message %d", i), Err: err}
		}
		if m.Timestamp == nil {
			return nil, &MalformedResponseError{Op: op, Reason: fmt.Sprintf("message %d: missing timestamp", i)}
		}
		conv.Messages = append(conv.Messages, model.Message{
			ID:        m.ID,
			Content:   m.Content,
			Sender:    sender,
			Timestamp: m.Timestamp.Time(),
		})
	}
	return conv, nil
}

// CreateTicket opens a support ticket. The raw response body is kept on the result.
func (c *httpClient) CreateTicket(ctx context.Context, req TicketRequest) (*model.SupportTicket, error) {
	const op = "create ticket"
	body, err := c.do(ctx, op, http.MethodPost, "/ticket/create/", req)
	if err != nil {
		return nil, err
	}
	return decodeTicket(op, body)
}

// GetTicket fetches the current state of a ticket.
func (c *httpClient) GetTicket(ctx context.Context, ticketID string) (*model.SupportTicket, error) {
	const op = "get ticket"
	body, err := c.do(ctx, op, http.MethodGet, "/ticket/"+url.PathEscape(ticketID)+"/", nil)
	if err != nil {
		return nil, err
	}
	return decodeTicket(op, body)
}

func decodeTicket(op string, body []byte) (*model.SupportTicket, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &MalformedResponseError{Op: op, Reason: "ticket is not a JSON object"}
	}
	var payload ticketPayload
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, &MalformedResponseError{Op: op, Reason: "invalid JSON", Err: err}
	}
	return &model.SupportTicket{
		ID:          payload.ID,
		TicketID:    payload.TicketID,
		Subject:     payload.Subject,
		Description: payload.Description,
		Status:      payload.Status,
		Priority:    payload.Priority,
		CreatedAt:   payload.CreatedAt.Time(),
		UpdatedAt:   payload.UpdatedAt.Time(),
		Raw:         json.RawMessage(append([]byte(nil), trimmed...)),
	}, nil
}

// do 发送一次 JSON 请求并返回 2xx 响应体；失败时返回 ResponseError 或 TransportError。
func (c *httpClient) do(ctx context.Context, op, method, path string, in interface{}) ([]byte, error) {
	endpoint := c.baseURL + path

	var reqBody io.Reader
	if in != nil {
		reqBytes, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		reqBody = bytes.NewReader(reqBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Method: method, URL: endpoint, RequestID: requestID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &ResponseError{Op: op, Method: method, URL: endpoint, StatusCode: resp.StatusCode, Body: bodyBytes}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &MalformedResponseError{Op: op, Reason: "failed to read body", Err: err}
	}
	return body, nil
}

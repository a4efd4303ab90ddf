package model

import (
	"encoding/json"
	"time"
)

// SupportTicket 是后端返回的工单。Raw 保存后端原始响应体，按原样交还给调用方。
type SupportTicket struct {
	ID          int64           `json:"id"`
	TicketID    string          `json:"ticket_id"`
	Subject     string          `json:"subject"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	Priority    string          `json:"priority"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Raw         json.RawMessage `json:"-"`
}

// TicketRecord 是本地工单台账中的一条记录。
type TicketRecord struct {
	TicketID  string          `json:"ticket_id"`
	SessionID *string         `json:"session_id"`
	Subject   string          `json:"subject"`
	Status    string          `json:"status"`
	Priority  string          `json:"priority"`
	CreatedAt time.Time       `json:"created_at"`
	CheckedAt time.Time       `json:"checked_at"`
	Payload   json.RawMessage `json:"payload"`
}

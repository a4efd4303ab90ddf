// Package model 包含了客户端会话的数据模型定义。
package model

import (
	"fmt"
	"time"
)

// Sender 表示消息的发送方，只能是 user 或 bot。
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Valid 判断发送方是否为合法取值。
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderBot
}

// ParseSender 将后端返回的字符串解析为 Sender。
func ParseSender(v string) (Sender, error) {
	s := Sender(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown sender %q", v)
	}
	return s, nil
}

// Message 代表会话中的单条消息。本地乐观追加的消息没有 ID。
type Message struct {
	ID        *int64    `json:"id,omitempty"`
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	// Seq 是产生该消息的那次发送的序号，非发送产生的消息为 0
	Seq uint64 `json:"seq,omitempty"`
}

// Conversation 代表后端保存的一次完整会话，客户端只使用其中的 Messages。
type Conversation struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationState 是会话状态的一份快照。
type ConversationState struct {
	Messages  []Message `json:"messages"`
	SessionID *string   `json:"session_id"`
	IsLoading bool      `json:"is_loading"`
	IsTyping  bool      `json:"is_typing"`
}

// Clone 返回深拷贝，调用方修改快照不会影响原状态。
func (s ConversationState) Clone() ConversationState {
	out := ConversationState{
		Messages:  make([]Message, len(s.Messages)),
		IsLoading: s.IsLoading,
		IsTyping:  s.IsTyping,
	}
	for i, m := range s.Messages {
		if m.ID != nil {
			id := *m.ID
			m.ID = &id
		}
		out.Messages[i] = m
	}
	if s.SessionID != nil {
		id := *s.SessionID
		out.SessionID = &id
	}
	return out
}

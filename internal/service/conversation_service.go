// Package service 包含了客户端的业务逻辑层。
package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"support-chat-go/internal/model"
	"support-chat-go/pkg/chatapi"
	"support-chat-go/pkg/log"
)

// FallbackMessage 是发送失败时追加到会话中的机器人消息。
const FallbackMessage = "Sorry, I encountered an error. Please try again. Make sure the backend server is running on http://127.0.0.1:8000/"

// Notifier 接收每次状态变更后的快照。实现不得阻塞。
type Notifier interface {
	Publish(state model.ConversationState)
}

// ConversationStore 定义了会话状态协调器的接口。
type ConversationStore interface {
	// State 返回当前状态的深拷贝。
	State() model.ConversationState
	// LastMessage 返回最后一条消息，会话为空时 ok 为 false。
	LastMessage() (model.Message, bool)
	SessionID() (string, bool)
	// AddMessage 追加一条消息，时间戳总是被覆盖为当前时间。发送方不是 user/bot 的消息会被丢弃。
	AddMessage(message model.Message)
	// SendMessage 发送一条用户消息。它从不返回错误：失败会变成会话中的一条兜底消息。
	SendMessage(ctx context.Context, content string)
	// LoadConversation 用后端保存的会话整体替换本地消息，失败时保持原状。
	LoadConversation(ctx context.Context, sessionID string)
	// ClearMessages 清空消息并忘记会话 ID。
	ClearMessages()
	// CreateSupportTicket 创建工单，失败时原样返回后端客户端的错误。
	CreateSupportTicket(ctx context.Context, subject, description string) (*model.SupportTicket, error)
}

type conversationStore struct {
	client   chatapi.Client
	notifier Notifier

	// sendMu 是单槽发送队列：同一时刻只有一次发送在进行，保证 user/bot 成对相邻
	sendMu sync.Mutex
	seq    atomic.Uint64

	mu    sync.RWMutex
	state model.ConversationState
}

// NewConversationStore 创建一个新的 ConversationStore。notifier 可以为 nil。
func NewConversationStore(client chatapi.Client, notifier Notifier) ConversationStore {
	return &conversationStore{
		client:   client,
		notifier: notifier,
		state:    model.ConversationState{Messages: []model.Message{}},
	}
}

func (s *conversationStore) State() model.ConversationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

func (s *conversationStore) LastMessage() (model.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.state.Messages) == 0 {
		return model.Message{}, false
	}
	return s.state.Clone().Messages[len(s.state.Messages)-1], true
}

func (s *conversationStore) SessionID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.SessionID == nil {
		return "", false
	}
	return *s.state.SessionID, true
}

func (s *conversationStore) AddMessage(message model.Message) {
	if !message.Sender.Valid() {
		log.Warnw("丢弃发送方非法的消息", "sender", string(message.Sender))
		return
	}
	s.mutate(func(st *model.ConversationState) {
		appendMessage(st, message)
	})
}

func (s *conversationStore) SendMessage(ctx context.Context, content string) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	seq := s.seq.Add(1)

	var sessionID *string
	s.mutate(func(st *model.ConversationState) {
		// 乐观追加：在后端确认之前先展示用户消息
		appendMessage(st, model.Message{Content: trimmed, Sender: model.SenderUser, Seq: seq})
		st.IsLoading = true
		st.IsTyping = true
		if st.SessionID != nil {
			id := *st.SessionID
			sessionID = &id
		}
	})

	log.Debugw("发送消息", "seq", seq, "session_id", sessionID, "length", len(trimmed))
	reply, err := s.client.SendMessage(ctx, chatapi.ChatRequest{Message: trimmed, SessionID: sessionID})

	bot := model.Message{Sender: model.SenderBot, Seq: seq}
	if err != nil {
		logFailure("发送消息失败", seq, err)
		bot.Content = FallbackMessage
	} else {
		bot.Content = reply.Response
	}

	s.mutate(func(st *model.ConversationState) {
		if err == nil && reply.SessionID != "" && st.SessionID == nil {
			id := reply.SessionID
			st.SessionID = &id
			log.Infow("采用后端返回的会话 ID", "seq", seq, "session_id", id)
		}
		appendMessage(st, bot)
		st.IsLoading = false
		st.IsTyping = false
	})
}

func (s *conversationStore) LoadConversation(ctx context.Context, sessionID string) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		log.Warnw("加载会话被跳过：会话 ID 为空")
		return
	}

	conv, err := s.client.GetConversation(ctx, sessionID)
	if err != nil {
		logFailure("加载会话失败", 0, err, "session_id", sessionID)
		return
	}

	messages := make([]model.Message, len(conv.Messages))
	copy(messages, conv.Messages)
	s.mutate(func(st *model.ConversationState) {
		st.Messages = messages
	})
	log.Infow("会话已加载", "session_id", sessionID, "messages", len(messages))
}

func (s *conversationStore) ClearMessages() {
	s.mutate(func(st *model.ConversationState) {
		st.Messages = []model.Message{}
		st.SessionID = nil
	})
}

func (s *conversationStore) CreateSupportTicket(ctx context.Context, subject, description string) (*model.SupportTicket, error) {
	sessionID, ok := s.SessionID()
	req := chatapi.TicketRequest{Subject: subject, Description: description}
	if ok {
		req.SessionID = &sessionID
	}

	ticket, err := s.client.CreateTicket(ctx, req)
	if err != nil {
		logFailure("创建工单失败", 0, err, "subject", subject)
		return nil, err
	}
	log.Infow("工单已创建", "ticket_id", ticket.TicketID, "session_id", req.SessionID)
	return ticket, nil
}

// mutate 在写锁内修改状态，并在锁内发布快照以保持通知顺序与修改顺序一致。
func (s *conversationStore) mutate(fn func(st *model.ConversationState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	if s.notifier != nil {
		s.notifier.Publish(s.state.Clone())
	}
}

func appendMessage(st *model.ConversationState, message model.Message) {
	message.Timestamp = time.Now()
	st.Messages = append(st.Messages, message)
}

// logFailure 按失败类别记录诊断日志，分类不影响控制流。
func logFailure(msg string, seq uint64, err error, keysAndValues ...interface{}) {
	fields := append([]interface{}{"kind", chatapi.Classify(err).String()}, keysAndValues...)
	if seq != 0 {
		fields = append(fields, "seq", seq)
	}

	var respErr *chatapi.ResponseError
	var transportErr *chatapi.TransportError
	switch {
	case errors.As(err, &respErr):
		fields = append(fields, "status", respErr.StatusCode, "body", string(respErr.Body))
	case errors.As(err, &transportErr):
		fields = append(fields, "method", transportErr.Method, "url", transportErr.URL, "request_id", transportErr.RequestID)
	}
	fields = append(fields, "error", err)
	log.Errorw(msg, fields...)
}

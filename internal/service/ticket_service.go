package service

import (
	"context"
	"strings"
	"time"

	"support-chat-go/internal/model"
	"support-chat-go/internal/repository"
	"support-chat-go/pkg/chatapi"
	"support-chat-go/pkg/log"
)

// DefaultTicketSubject 与后端缺省主题保持一致。
const DefaultTicketSubject = "Support Request"

// TicketService 在会话工单之上维护本地工单台账。
type TicketService interface {
	// Create 通过会话创建工单并记入台账。错误原样返回。
	Create(ctx context.Context, subject, description string) (*model.SupportTicket, error)
	List(ctx context.Context) ([]model.TicketRecord, error)
	// Status 查询后端的工单状态，并刷新台账中的对应记录。
	Status(ctx context.Context, ticketID string) (*model.SupportTicket, error)
}

type ticketService struct {
	store  ConversationStore
	client chatapi.Client
	repo   repository.TicketRepository
}

// NewTicketService 创建一个新的 TicketService。
func NewTicketService(store ConversationStore, client chatapi.Client, repo repository.TicketRepository) TicketService {
	return &ticketService{store: store, client: client, repo: repo}
}

func (s *ticketService) Create(ctx context.Context, subject, description string) (*model.SupportTicket, error) {
	if strings.TrimSpace(subject) == "" {
		subject = DefaultTicketSubject
	}

	ticket, err := s.store.CreateSupportTicket(ctx, subject, description)
	if err != nil {
		return nil, err
	}

	if ticket.TicketID == "" {
		log.Warnw("工单响应缺少 ticket_id，未记入台账")
		return ticket, nil
	}

	now := time.Now()
	record := model.TicketRecord{
		TicketID:  ticket.TicketID,
		Subject:   ticket.Subject,
		Status:    ticket.Status,
		Priority:  ticket.Priority,
		CreatedAt: ticket.CreatedAt,
		CheckedAt: now,
		Payload:   ticket.Raw,
	}
	if record.Subject == "" {
		record.Subject = subject
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if sessionID, ok := s.store.SessionID(); ok {
		record.SessionID = &sessionID
	}
	// 台账写入失败不影响工单已创建的结果
	if err := s.repo.Save(ctx, record); err != nil {
		log.Errorw("保存工单台账失败", "ticket_id", ticket.TicketID, "error", err)
	}
	return ticket, nil
}

func (s *ticketService) List(ctx context.Context) ([]model.TicketRecord, error) {
	return s.repo.List(ctx)
}

func (s *ticketService) Status(ctx context.Context, ticketID string) (*model.SupportTicket, error) {
	ticket, err := s.client.GetTicket(ctx, ticketID)
	if err != nil {
		logFailure("查询工单失败", 0, err, "ticket_id", ticketID)
		return nil, err
	}

	record, err := s.repo.Get(ctx, ticketID)
	if err != nil {
		log.Errorw("读取工单台账失败", "ticket_id", ticketID, "error", err)
		return ticket, nil
	}
	if record == nil {
		return ticket, nil
	}
	record.Status = ticket.Status
	record.Priority = ticket.Priority
	record.CheckedAt = time.Now()
	record.Payload = ticket.Raw
	if err := s.repo.Save(ctx, *record); err != nil {
		log.Errorw("刷新工单台账失败", "ticket_id", ticketID, "error", err)
	}
	return ticket, nil
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"support-chat-go/internal/model"

	"github.com/go-redis/redis/v8"
)

// TicketRepository 是本客户端创建过的工单的本地台账。
type TicketRepository interface {
	Save(ctx context.Context, record model.TicketRecord) error
	Get(ctx context.Context, ticketID string) (*model.TicketRecord, error)
	// List 按创建时间倒序返回所有记录。
	List(ctx context.Context) ([]model.TicketRecord, error)
}

type redisTicketRepository struct {
	redisClient *redis.Client
	key         string
}

// NewTicketRepository 创建一个基于 Redis hash 的 TicketRepository，field 为 ticket_id。
func NewTicketRepository(redisClient *redis.Client, key string) TicketRepository {
	return &redisTicketRepository{redisClient: redisClient, key: key}
}

func (r *redisTicketRepository) Save(ctx context.Context, record model.TicketRecord) error {
	jsonData, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket record: %w", err)
	}
	if err := r.redisClient.HSet(ctx, r.key, record.TicketID, jsonData).Err(); err != nil {
		return fmt.Errorf("failed to save ticket record: %w", err)
	}
	return nil
}

// Get 查询单条记录，不存在时返回 (nil, nil)。
func (r *redisTicketRepository) Get(ctx context.Context, ticketID string) (*model.TicketRecord, error) {
	jsonData, err := r.redisClient.HGet(ctx, r.key, ticketID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket record: %w", err)
	}
	var record model.TicketRecord
	if err := json.Unmarshal([]byte(jsonData), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ticket record: %w", err)
	}
	return &record, nil
}

func (r *redisTicketRepository) List(ctx context.Context) ([]model.TicketRecord, error) {
	all, err := r.redisClient.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket records: %w", err)
	}
	records := make([]model.TicketRecord, 0, len(all))
	for ticketID, jsonData := range all {
		var record model.TicketRecord
		if err := json.Unmarshal([]byte(jsonData), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ticket record %s: %w", ticketID, err)
		}
		records = append(records, record)
	}
	sortNewestFirst(records)
	return records, nil
}

type memoryTicketRepository struct {
	mu      sync.RWMutex
	records map[string]model.TicketRecord
}

// NewMemoryTicketRepository 创建一个进程内的 TicketRepository。
func NewMemoryTicketRepository() TicketRepository {
	return &memoryTicketRepository{records: make(map[string]model.TicketRecord)}
}

func (r *memoryTicketRepository) Save(_ context.Context, record model.TicketRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.TicketID] = record
	return nil
}

func (r *memoryTicketRepository) Get(_ context.Context, ticketID string) (*model.TicketRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[ticketID]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (r *memoryTicketRepository) List(context.Context) ([]model.TicketRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := make([]model.TicketRecord, 0, len(r.records))
	for _, record := range r.records {
		records = append(records, record)
	}
	sortNewestFirst(records)
	return records, nil
}

func sortNewestFirst(records []model.TicketRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].TicketID < records[j].TicketID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

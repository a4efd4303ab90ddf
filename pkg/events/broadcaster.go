// Package events 提供会话状态快照的进程内发布订阅。
package events

import (
	"context"
	"sync"

	"support-chat-go/internal/model"
	"support-chat-go/pkg/log"

	"github.com/google/uuid"
)

// 每个订阅者的缓冲区大小，满了就丢弃
const subscriberBufferSize = 64

// Broadcaster 将状态快照分发给所有订阅者（UI websocket 连接等）。
// Publish 不会阻塞：订阅者处理过慢时该次快照被丢弃，下一次快照仍是完整状态。
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan model.ConversationState
}

// NewBroadcaster 创建一个新的 Broadcaster。
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[string]chan model.ConversationState)}
}

// Subscribe 注册一个订阅者，ctx 取消时自动注销并关闭通道。
func (b *Broadcaster) Subscribe(ctx context.Context) (<-chan model.ConversationState, string) {
	subID := uuid.NewString()
	ch := make(chan model.ConversationState, subscriberBufferSize)

	b.mu.Lock()
	b.subscribers[subID] = ch
	b.mu.Unlock()

	log.Debugw("subscriber added", "sub_id", subID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(subID)
	}()

	return ch, subID
}

// Publish 向所有订阅者发送一份快照。
func (b *Broadcaster) Publish(state model.ConversationState) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- state.Clone():
		default:
			log.Debugw("dropped snapshot for slow subscriber", "sub_id", id)
		}
	}
}

// Unsubscribe 注销订阅者并关闭其通道，重复调用无副作用。
func (b *Broadcaster) Unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subscribers[subID]
	if !ok {
		return
	}
	delete(b.subscribers, subID)
	close(ch)
	log.Debugw("subscriber removed", "sub_id", subID)
}

// Count 返回当前订阅者数量。
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

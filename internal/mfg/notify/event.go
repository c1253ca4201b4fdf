package notify

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"
)

// 事件类型
const (
	EventOrderUpdate    = "order_update"
	EventDispatchUpdate = "dispatch_update"
)

// Event 领域事件，事务提交后发布
type Event struct {
	Type       string    `json:"type"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	OrderID    string    `json:"order_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Key 分区键，按订单聚合
func (e Event) Key() string {
	if e.OrderID != "" {
		return e.OrderID
	}
	return e.EntityID
}

// Publisher 事件发布者
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Bus 把事件扇出到所有发布者，失败只记日志
type Bus struct {
	publishers []Publisher
	logger     *zap.Logger
}

func NewBus(logger *zap.Logger, publishers ...Publisher) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bus{logger: logger}
	for _, p := range publishers {
		if p != nil {
			b.publishers = append(b.publishers, p)
		}
	}
	return b
}

// Publish nil Bus 视为不发布
func (b *Bus) Publish(ctx context.Context, event Event) {
	if b == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	for _, p := range b.publishers {
		if err := p.Publish(ctx, event); err != nil {
			b.logger.Warn("publish event failed",
				zap.String("type", event.Type),
				zap.String("action", event.Action),
				zap.String("entity_id", event.EntityID),
				zap.Error(err))
		}
	}
}

// Close 关闭实现了 io.Closer 的发布者
func (b *Bus) Close() {
	if b == nil {
		return
	}
	for _, p := range b.publishers {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				b.logger.Warn("close publisher failed", zap.Error(err))
			}
		}
	}
}

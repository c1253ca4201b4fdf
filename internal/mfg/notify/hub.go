package notify

import (
	"context"
	"encoding/json"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/sse"
)

// HubPublisher 推送到进程内 SSE Hub
type HubPublisher struct {
	hub *sse.Hub
}

func NewHubPublisher(hub *sse.Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	p.hub.Broadcast(sse.Event{EventType: event.Type, Data: string(data)})
	return nil
}

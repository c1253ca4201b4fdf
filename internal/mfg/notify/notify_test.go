package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/AjAjish/manufacturing-erp/internal/mfg/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event Event) error {
	p.events = append(p.events, event)
	return p.err
}

func TestBus_FailureDoesNotStopFanOut(t *testing.T) {
	failing := &recordingPublisher{err: errors.New("broker down")}
	ok := &recordingPublisher{}
	bus := NewBus(zap.NewNop(), failing, nil, ok)

	bus.Publish(context.Background(), Event{Type: EventOrderUpdate, EntityID: "o1"})

	require.Len(t, failing.events, 1)
	require.Len(t, ok.events, 1)
	assert.False(t, ok.events[0].OccurredAt.IsZero())
}

func TestBus_NilIsNoop(t *testing.T) {
	var bus *Bus
	bus.Publish(context.Background(), Event{Type: EventOrderUpdate})
	bus.Close()
}

func TestEvent_Key(t *testing.T) {
	assert.Equal(t, "o1", Event{OrderID: "o1", EntityID: "d1"}.Key())
	assert.Equal(t, "d1", Event{EntityID: "d1"}.Key())
}

func TestHubPublisher(t *testing.T) {
	hub := sse.NewHub(zap.NewNop())
	client := &sse.Client{ID: "c1", UserID: "u1", Events: make(chan sse.Event, 1)}
	hub.Register(client)

	p := NewHubPublisher(hub)
	require.NoError(t, p.Publish(context.Background(), Event{
		Type: EventDispatchUpdate, Action: "dispatch", EntityID: "d1", OrderID: "o1", Status: "dispatched",
	}))

	got := <-client.Events
	assert.Equal(t, EventDispatchUpdate, got.EventType)
	var decoded Event
	require.NoError(t, json.Unmarshal([]byte(got.Data), &decoded))
	assert.Equal(t, "o1", decoded.OrderID)
	assert.Equal(t, "dispatched", decoded.Status)
}

func TestDispatchNotice_Body(t *testing.T) {
	n := DispatchNotice{
		To:             "buyer@example.com",
		CustomerName:   "Acme Fabrication",
		QuoteNumber:    "QT-2026-0001",
		ProjectName:    "Conveyor frame",
		TransportMode:  "road",
		VehicleNumber:  "MH12AB1234",
		DispatchDate:   "2026-10-15",
		TrackingNumber: "",
	}
	body, err := n.Body()
	require.NoError(t, err)
	assert.Contains(t, body, "QT-2026-0001 (Conveyor frame)")
	assert.Contains(t, body, "Vehicle: MH12AB1234")
	assert.NotContains(t, body, "Tracking number")
	assert.Equal(t, "Order QT-2026-0001 dispatched", n.Subject())
}

func TestMailer_SkipsEmptyRecipient(t *testing.T) {
	m := &Mailer{logger: zap.NewNop()}
	assert.NoError(t, m.SendDispatchNotice(DispatchNotice{QuoteNumber: "QT-1"}))
}

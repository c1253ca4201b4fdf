package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestHub_BroadcastAndUnregister(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a := &Client{ID: "a", UserID: "u1", Events: make(chan Event, 1)}
	b := &Client{ID: "b", UserID: "u2", Events: make(chan Event, 1)}
	hub.Register(a)
	hub.Register(b)
	assert.Equal(t, 2, hub.ClientCount())

	hub.Broadcast(Event{EventType: "order_update", Data: `{"id":"1"}`})
	assert.Equal(t, "order_update", (<-a.Events).EventType)
	assert.Equal(t, "order_update", (<-b.Events).EventType)

	hub.Unregister("a")
	assert.Equal(t, 1, hub.ClientCount())
	_, open := <-a.Events
	assert.False(t, open)

	// 重复注销无影响
	hub.Unregister("a")
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_SendToUser(t *testing.T) {
	hub := NewHub(nil)
	a := &Client{ID: "a", UserID: "u1", Events: make(chan Event, 1)}
	b := &Client{ID: "b", UserID: "u2", Events: make(chan Event, 1)}
	hub.Register(a)
	hub.Register(b)

	hub.SendToUser("u2", Event{EventType: "dispatch_update"})
	assert.Len(t, a.Events, 0)
	assert.Len(t, b.Events, 1)
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := &Client{ID: "c", UserID: "u", Events: make(chan Event, 1)}
	hub.Register(c)

	hub.Broadcast(Event{EventType: "first"})
	hub.Broadcast(Event{EventType: "second"})

	assert.Len(t, c.Events, 1)
	assert.Equal(t, "first", (<-c.Events).EventType)
}

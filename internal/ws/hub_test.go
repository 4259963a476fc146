package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, userID uuid.UUID) *Client {
	return &Client{hub: hub, userID: userID, send: make(chan []byte, 4)}
}

func TestHub_BroadcastToUser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(ctx)
	go hub.Run()

	userID := uuid.New()
	client := newTestClient(hub, userID)
	other := newTestClient(hub, uuid.New())
	hub.Register(client)
	hub.Register(other)

	require.NoError(t, hub.BroadcastToUser(userID, "payment.held", map[string]string{"offer_id": "42"}))

	select {
	case raw := <-client.send:
		var msg struct {
			Type string            `json:"type"`
			Data map[string]string `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "payment.held", msg.Type)
		assert.Equal(t, "42", msg.Data["offer_id"])
	case <-time.After(time.Second):
		t.Fatal("сообщение не доставлено")
	}

	assert.Empty(t, other.send)
}

func TestHub_Unregister(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(ctx)
	go hub.Run()

	userID := uuid.New()
	client := newTestClient(hub, userID)
	hub.Register(client)
	assert.Eventually(t, func() bool { return hub.Connections(userID) == 1 }, time.Second, 10*time.Millisecond)

	client.Close()
	assert.Eventually(t, func() bool { return hub.Connections(userID) == 0 }, time.Second, 10*time.Millisecond)

	_, open := <-client.send
	assert.False(t, open)
}

func TestHub_StoppedContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(ctx)
	cancel()

	for i := 0; i < cap(hub.broadcast); i++ {
		hub.broadcast <- message{}
	}
	assert.Error(t, hub.BroadcastToUser(uuid.New(), "offer.submitted", nil))
}

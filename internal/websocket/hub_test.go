package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ikkim/storefront-backend/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func registered(t *testing.T, hub *Hub, clients ...*Client) {
	t.Helper()
	for _, c := range clients {
		hub.Register(c)
	}
	require.Eventually(t, func() bool { return hub.ClientCount() == len(clients) }, time.Second, 5*time.Millisecond)
}

func receive(t *testing.T, c *Client) events.Event {
	t.Helper()
	select {
	case raw := <-c.Send:
		var ev events.Event
		require.NoError(t, json.Unmarshal(raw, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return events.Event{}
	}
}

func TestHub_BroadcastToAllByDefault(t *testing.T) {
	hub := startHub(t)
	a := NewClient(hub, nil, 1)
	b := NewClient(hub, nil, 2)
	registered(t, hub, a, b)

	hub.Broadcast(events.TopicOrderPlaced, events.OrderPlaced{OrderID: 7})

	for _, c := range []*Client{a, b} {
		ev := receive(t, c)
		assert.Equal(t, events.TopicOrderPlaced, ev.Type)
		assert.False(t, ev.Timestamp.IsZero())
	}
}

func TestHub_TopicSubscription(t *testing.T) {
	hub := startHub(t)
	c := NewClient(hub, nil, 1)
	registered(t, hub, c)

	hub.HandleClientMessage(c, []byte(`{"type":"subscribe","topic":"low_stock"}`))
	hub.HandleClientMessage(c, []byte(`{"type":"subscribe","topic":"bogus"}`))
	assert.True(t, c.Wants(events.TopicLowStock))
	assert.False(t, c.Wants(events.TopicProductViewed))

	hub.Broadcast(events.TopicProductViewed, events.ProductViewed{ProductID: 1})
	hub.Broadcast(events.TopicLowStock, events.LowStock{SkuID: 3, Quantity: 2})

	ev := receive(t, c)
	assert.Equal(t, events.TopicLowStock, ev.Type)

	// dropping the last topic does not fall back to every topic
	hub.HandleClientMessage(c, []byte(`{"type":"unsubscribe","topic":"low_stock"}`))
	for _, topic := range events.Topics {
		assert.False(t, c.Wants(topic), topic)
	}
	hub.Broadcast(events.TopicLowStock, events.LowStock{SkuID: 3, Quantity: 1})
	hub.Broadcast(events.TopicOrderPlaced, events.OrderPlaced{OrderID: 9})
	assert.Never(t, func() bool { return len(c.Send) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestHub_UnsubscribeBeforeSubscribe(t *testing.T) {
	hub := startHub(t)
	c := NewClient(hub, nil, 1)
	assert.True(t, c.Wants(events.TopicProductViewed))

	c.Unsubscribe(events.TopicProductViewed)
	assert.False(t, c.Wants(events.TopicProductViewed))
	assert.True(t, c.Wants(events.TopicOrderPlaced))
	assert.True(t, c.Wants(events.TopicLowStock))
	assert.True(t, c.Wants(events.TopicPaymentStatus))

	c.Subscribe(events.TopicProductViewed)
	assert.True(t, c.Wants(events.TopicProductViewed))
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := startHub(t)
	slow := NewClient(hub, nil, 1)
	registered(t, hub, slow)

	for i := 0; i < SendBufferSize+1; i++ {
		hub.Broadcast(events.TopicProductViewed, events.ProductViewed{ProductID: uint(i)})
	}

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	// unregistering an already dropped client is a no-op
	hub.Unregister(slow)
}

func TestServe_DeliversOverWebSocket(t *testing.T) {
	hub := startHub(t)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		Serve(hub, conn, 9)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(events.TopicOrderPlaced, events.OrderPlaced{OrderID: 42})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev struct {
		Type string             `json:"type"`
		Data events.OrderPlaced `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &ev))
	assert.Equal(t, events.TopicOrderPlaced, ev.Type)
	assert.Equal(t, uint(42), ev.Data.OrderID)
}

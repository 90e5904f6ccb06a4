package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/ikkim/storefront-backend/pkg/events"
	"github.com/ikkim/storefront-backend/pkg/logger"
)

const (
	maxMessagesPerSecond = 10

	// SendBufferSize is how many events may queue for a slow client before it is dropped.
	SendBufferSize = 256
)

// ClientMessage is a control message sent by an admin client.
type ClientMessage struct {
	Type  string `json:"type"` // subscribe, unsubscribe
	Topic string `json:"topic"`
}

// Client is one admin live feed session.
type Client struct {
	Hub    *Hub
	Conn   *Conn
	UserID uint
	Send   chan []byte

	mu        sync.RWMutex
	filtering bool // false until the first subscribe or unsubscribe
	topics    map[string]bool

	rateMu        sync.Mutex
	messageCount  int
	lastResetTime time.Time
}

func NewClient(hub *Hub, conn *Conn, userID uint) *Client {
	return &Client{
		Hub:           hub,
		Conn:          conn,
		UserID:        userID,
		Send:          make(chan []byte, SendBufferSize),
		topics:        make(map[string]bool),
		lastResetTime: time.Now(),
	}
}

// Wants reports whether the client receives events of topic.
func (c *Client) Wants(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.filtering || c.topics[topic]
}

// Subscribe narrows a new session to the topics it asks for.
func (c *Client) Subscribe(topic string) {
	c.mu.Lock()
	c.filtering = true
	c.topics[topic] = true
	c.mu.Unlock()
}

// Unsubscribe stops topic. On a session that never filtered it keeps every
// other topic. Dropping the last topic leaves the session receiving nothing.
func (c *Client) Unsubscribe(topic string) {
	c.mu.Lock()
	if !c.filtering {
		c.filtering = true
		for _, t := range events.Topics {
			c.topics[t] = true
		}
	}
	delete(c.topics, topic)
	c.mu.Unlock()
}

type outbound struct {
	topic   string
	payload []byte
}

// Hub fans live feed events out to every connected admin session.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound
	quit       chan struct{}

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan outbound, 1024),
		quit:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			logger.Info("Live feed client registered", map[string]interface{}{
				"user_id":        client.UserID,
				"total_sessions": total,
			})

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.Wants(msg.topic) {
					continue
				}
				select {
				case client.Send <- msg.payload:
				default:
					delete(h.clients, client)
					close(client.Send)
					logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
						"user_id": client.UserID,
					})
				}
			}
			h.mu.Unlock()

		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	logger.Info("Live feed client unregistered", map[string]interface{}{
		"user_id":            client.UserID,
		"remaining_sessions": len(h.clients),
	})
}

// Stop ends Run and closes every client.
func (h *Hub) Stop() {
	close(h.quit)
}

// Broadcast queues an event for every subscribed client. Events are dropped
// when the hub is backed up.
func (h *Hub) Broadcast(topic string, data interface{}) {
	payload, err := json.Marshal(events.Event{
		Type:      topic,
		Timestamp: time.Now(),
		Data:      data,
	})
	if err != nil {
		logger.Error("Failed to marshal live feed event", err, map[string]interface{}{
			"topic": topic,
		})
		return
	}

	select {
	case h.broadcast <- outbound{topic: topic, payload: payload}:
	default:
		logger.Warn("Broadcast channel full, event dropped", map[string]interface{}{
			"topic": topic,
		})
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// ClientCount returns the number of connected sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleClientMessage applies a subscribe or unsubscribe request.
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	client.rateMu.Lock()
	now := time.Now()
	if now.Sub(client.lastResetTime) >= time.Second {
		client.messageCount = 0
		client.lastResetTime = now
	}
	client.messageCount++
	count := client.messageCount
	client.rateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"user_id": client.UserID,
			"count":   count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"user_id": client.UserID,
			"error":   err.Error(),
		})
		return
	}

	if !events.ValidTopic(msg.Topic) {
		logger.Warn("Unknown live feed topic", map[string]interface{}{
			"user_id": client.UserID,
			"topic":   msg.Topic,
		})
		return
	}

	switch msg.Type {
	case "subscribe":
		client.Subscribe(msg.Topic)
	case "unsubscribe":
		client.Unsubscribe(msg.Topic)
	}
}

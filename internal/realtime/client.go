package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Pings are sent with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	writeWait = 10 * time.Second

	// Maximum frame size accepted from a client.
	maxMessageSize = 64 * 1024

	sendBufferSize = 256

	joinTimeout = 5 * time.Second
)

// Client is one WebSocket connection. UserID is empty for anonymous sockets,
// which may only follow the listings room.
type Client struct {
	ID     uuid.UUID
	UserID string

	conn      *websocket.Conn
	send      chan []byte
	hub       *Hub
	closeChan chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	joined map[string]struct{}
}

// NewClient creates a client for conn. conn may be nil in tests.
func NewClient(userID string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		ID:        uuid.New(),
		UserID:    userID,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		hub:       hub,
		closeChan: make(chan struct{}),
		joined:    make(map[string]struct{}),
	}
}

// Start registers the client and runs its read and write pumps.
func (c *Client) Start() {
	c.hub.AddClient(c)

	go c.readPump()
	go c.writePump()
}

func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.closeChan:
		return true
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.closeChan)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *Client) addTopic(topic string) {
	c.mu.Lock()
	c.joined[topic] = struct{}{}
	c.mu.Unlock()
}

func (c *Client) removeTopic(topic string) {
	c.mu.Lock()
	delete(c.joined, topic)
	c.mu.Unlock()
}

func (c *Client) topics() map[string]struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]struct{}, len(c.joined))
	for t := range c.joined {
		out[t] = struct{}{}
	}
	return out
}

// InTopic reports whether the client joined topic.
func (c *Client) InTopic(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.joined[topic]
	return ok
}

// readPump handles frames from the peer until the connection fails.
func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c.ID)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Unexpected close error on client %s: %v", c.ID, err)
			}
			return
		}
		c.handleFrame(message)
	}
}

// writePump sends queued events and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Error writing to client %s: %v", c.ID, err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closeChan:
			_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
			return
		}
	}
}

// handleFrame applies one client frame.
func (c *Client) handleFrame(message []byte) {
	var frame ClientFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		c.reply(EventError, frame.Topic, "malformed frame")
		return
	}

	ctx, cancel := context.WithTimeout(c.hub.ctx, joinTimeout)
	defer cancel()

	switch frame.Type {
	case FrameSubscribe:
		if err := c.hub.Join(ctx, c, frame.Topic); err != nil {
			if !errors.Is(err, ErrNotAllowed) && !errors.Is(err, ErrUnknownTopic) && !errors.Is(err, ErrClientGone) {
				log.Printf("Join %s failed for client %s: %v", frame.Topic, c.ID, err)
			}
			c.reply(EventError, frame.Topic, err.Error())
			return
		}
		c.reply(EventSubscribed, frame.Topic, nil)
	case FrameUnsubscribe:
		c.hub.Leave(c, frame.Topic)
		c.reply(EventUnsubscribed, frame.Topic, nil)
	case FrameSendMessage:
		if !c.InTopic(frame.Topic) {
			c.reply(EventError, frame.Topic, ErrNotJoined.Error())
			return
		}
		if err := c.hub.relay(ctx, c, frame.Topic, frame.Payload); err != nil {
			log.Printf("Relay on %s failed for client %s: %v", frame.Topic, c.ID, err)
		}
	default:
		c.reply(EventError, frame.Topic, "unknown frame type")
	}
}

func (c *Client) reply(eventType, topic string, payload interface{}) {
	if msg, ok := payload.(string); ok {
		payload = map[string]string{"message": msg}
	}
	event, err := NewEvent(topic, eventType, payload)
	if err != nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	c.enqueue(data)
}

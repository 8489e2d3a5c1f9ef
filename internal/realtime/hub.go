package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/SaadNasir-Drago/Zolo/internal/observability/metrics"
)

var (
	ErrUnknownTopic = errors.New("unknown topic")
	ErrNotAllowed   = errors.New("not allowed to join topic")
	ErrNotJoined    = errors.New("not subscribed to topic")
	ErrClientGone   = errors.New("client is no longer connected")
)

// DealAccessFunc reports whether userID may follow the deal thread dealID.
type DealAccessFunc func(ctx context.Context, dealID, userID string) (bool, error)

// Fanout carries events to the hubs of every API instance.
type Fanout interface {
	Forward(ctx context.Context, event *Event, origin string) error
}

// Hub keeps the open connections and the topic rooms they joined.
// Without a Fanout events are delivered to local clients only.
type Hub struct {
	clients      map[uuid.UUID]*Client
	clientsMutex sync.RWMutex
	rooms        map[string]map[uuid.UUID]*Client
	roomsMutex   sync.RWMutex
	canJoinDeal  DealAccessFunc
	fanout       Fanout
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewHub creates a hub. canJoinDeal guards deal rooms; nil denies every deal room.
func NewHub(canJoinDeal DealAccessFunc) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[uuid.UUID]*Client),
		rooms:       make(map[string]map[uuid.UUID]*Client),
		canJoinDeal: canJoinDeal,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetFanout routes published events through f, which must hand them back via Deliver.
func (h *Hub) SetFanout(f Fanout) {
	h.fanout = f
}

// AddClient registers a client and joins it to the listings room.
func (h *Hub) AddClient(client *Client) {
	h.clientsMutex.Lock()
	h.clients[client.ID] = client
	h.clientsMutex.Unlock()

	h.join(client, ListingsTopic)
	metrics.IncrementConnections()
	log.Printf("Realtime client %s connected (user %q)", client.ID, client.UserID)
}

// RemoveClient forgets a client and every room it joined. Safe to call twice.
func (h *Hub) RemoveClient(clientID uuid.UUID) {
	h.clientsMutex.Lock()
	client, exists := h.clients[clientID]
	delete(h.clients, clientID)
	h.clientsMutex.Unlock()

	if !exists {
		return
	}

	h.roomsMutex.Lock()
	for topic := range client.topics() {
		if members, ok := h.rooms[topic]; ok {
			delete(members, clientID)
			if len(members) == 0 {
				delete(h.rooms, topic)
			}
		}
	}
	h.roomsMutex.Unlock()

	metrics.DecrementConnections()
	log.Printf("Realtime client %s disconnected", clientID)
}

// Join subscribes client to topic after checking it may follow it.
func (h *Hub) Join(ctx context.Context, client *Client, topic string) error {
	if topic == ListingsTopic {
		if !h.join(client, topic) {
			return ErrClientGone
		}
		return nil
	}

	dealID, ok := ParseDealTopic(topic)
	if !ok {
		return ErrUnknownTopic
	}
	if client.UserID == "" || h.canJoinDeal == nil {
		return ErrNotAllowed
	}
	allowed, err := h.canJoinDeal(ctx, dealID, client.UserID)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrNotAllowed
	}

	if !h.join(client, topic) {
		return ErrClientGone
	}
	return nil
}

// join adds a registered client to topic. It holds clientsMutex so a
// concurrent RemoveClient either sees the new topic or runs first.
func (h *Hub) join(client *Client, topic string) bool {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	if _, ok := h.clients[client.ID]; !ok {
		return false
	}

	h.roomsMutex.Lock()
	members, ok := h.rooms[topic]
	if !ok {
		members = make(map[uuid.UUID]*Client)
		h.rooms[topic] = members
	}
	members[client.ID] = client
	h.roomsMutex.Unlock()

	client.addTopic(topic)
	return true
}

// Leave unsubscribes client from topic.
func (h *Hub) Leave(client *Client, topic string) {
	h.roomsMutex.Lock()
	if members, ok := h.rooms[topic]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, topic)
		}
	}
	h.roomsMutex.Unlock()

	client.removeTopic(topic)
}

// RoomSize returns the number of local clients in topic.
func (h *Hub) RoomSize(topic string) int {
	h.roomsMutex.RLock()
	defer h.roomsMutex.RUnlock()
	return len(h.rooms[topic])
}

// Publish sends an event to every subscriber of topic on every instance.
func (h *Hub) Publish(ctx context.Context, topic, eventType string, payload interface{}) error {
	event, err := NewEvent(topic, eventType, payload)
	if err != nil {
		return err
	}
	return h.dispatch(ctx, event, "")
}

// relay forwards a client's frame to the rest of the room.
func (h *Hub) relay(ctx context.Context, from *Client, topic string, payload json.RawMessage) error {
	event, err := NewEvent(topic, EventReceiveMessage, payload)
	if err != nil {
		return err
	}
	return h.dispatch(ctx, event, from.ID.String())
}

func (h *Hub) dispatch(ctx context.Context, event *Event, origin string) error {
	if h.fanout != nil {
		return h.fanout.Forward(ctx, event, origin)
	}
	h.Deliver(event, origin)
	return nil
}

// Deliver writes event to the local members of its topic, skipping the client
// whose id is origin. Clients whose send buffer is full are dropped.
func (h *Hub) Deliver(event *Event, origin string) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling %s event: %v", event.Type, err)
		return
	}

	h.roomsMutex.RLock()
	members := make([]*Client, 0, len(h.rooms[event.Topic]))
	for _, c := range h.rooms[event.Topic] {
		if c.ID.String() != origin {
			members = append(members, c)
		}
	}
	h.roomsMutex.RUnlock()

	metrics.ObserveEvent(event.Type)
	for _, c := range members {
		if !c.enqueue(data) {
			log.Printf("Send buffer full for client %s, closing connection", c.ID)
			c.close()
			h.RemoveClient(c.ID)
		}
	}
}

// Shutdown closes every connection.
func (h *Hub) Shutdown() {
	h.cancel()

	h.clientsMutex.Lock()
	clients := h.clients
	h.clients = make(map[uuid.UUID]*Client)
	h.clientsMutex.Unlock()

	for _, c := range clients {
		c.close()
	}

	h.roomsMutex.Lock()
	h.rooms = make(map[string]map[uuid.UUID]*Client)
	h.roomsMutex.Unlock()
}

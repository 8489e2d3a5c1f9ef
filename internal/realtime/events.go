package realtime

import (
	"encoding/json"
	"strings"
	"time"
)

// Server-pushed event types.
const (
	EventNewMessage        = "newMessage"
	EventNewProperty       = "newProperty"
	EventDealStatusChanged = "dealStatusChanged"
	EventReceiveMessage    = "receiveMessage"
	EventSubscribed        = "subscribed"
	EventUnsubscribed      = "unsubscribed"
	EventError             = "error"
)

// Client frame types.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FrameSendMessage = "sendMessage"
)

// ListingsTopic carries newProperty to every client that joined it.
const ListingsTopic = "listings"

const dealTopicPrefix = "deal:"

// DealTopic is the room for one deal thread.
func DealTopic(dealID string) string {
	return dealTopicPrefix + dealID
}

// ParseDealTopic returns the deal id of a deal room.
func ParseDealTopic(topic string) (string, bool) {
	if !strings.HasPrefix(topic, dealTopicPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(topic, dealTopicPrefix)
	return id, id != ""
}

// Event is a frame sent to clients.
type Event struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// ClientFrame is a frame received from a client.
type ClientFrame struct {
	Type    string          `json:"type"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent marshals payload into an Event for topic.
func NewEvent(topic, eventType string, payload interface{}) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Topic:     topic,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// DealStatusPayload is the body of dealStatusChanged.
type DealStatusPayload struct {
	DealID     string `json:"dealId"`
	PropertyID string `json:"propertyId"`
	Status     string `json:"status"`
}

package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allowParticipants(participants map[string][]string) DealAccessFunc {
	return func(_ context.Context, dealID, userID string) (bool, error) {
		for _, u := range participants[dealID] {
			if u == userID {
				return true, nil
			}
		}
		return false, nil
	}
}

func readEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data := <-c.send:
		var event Event
		require.NoError(t, json.Unmarshal(data, &event))
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected event: %s", data)
	default:
	}
}

func TestHub_ListingsJoinedOnConnect(t *testing.T) {
	hub := NewHub(nil)
	anon := NewClient("", nil, hub)
	hub.AddClient(anon)

	require.NoError(t, hub.Publish(context.Background(), ListingsTopic, EventNewProperty, map[string]string{"address": "1 Main St"}))

	event := readEvent(t, anon)
	assert.Equal(t, EventNewProperty, event.Type)
	assert.Equal(t, ListingsTopic, event.Topic)
	assert.JSONEq(t, `{"address":"1 Main St"}`, string(event.Payload))
}

func TestHub_DealRoomsAreIsolated(t *testing.T) {
	hub := NewHub(allowParticipants(map[string][]string{
		"d1": {"buyer1", "seller"},
		"d2": {"buyer2", "seller"},
	}))
	ctx := context.Background()

	buyer1 := NewClient("buyer1", nil, hub)
	buyer2 := NewClient("buyer2", nil, hub)
	hub.AddClient(buyer1)
	hub.AddClient(buyer2)
	require.NoError(t, hub.Join(ctx, buyer1, DealTopic("d1")))
	require.NoError(t, hub.Join(ctx, buyer2, DealTopic("d2")))

	require.NoError(t, hub.Publish(ctx, DealTopic("d1"), EventNewMessage, map[string]string{"content": "hi"}))

	event := readEvent(t, buyer1)
	assert.Equal(t, EventNewMessage, event.Type)
	assert.Equal(t, DealTopic("d1"), event.Topic)
	assertNoEvent(t, buyer2)
}

func TestHub_JoinRequiresParticipant(t *testing.T) {
	hub := NewHub(allowParticipants(map[string][]string{"d1": {"buyer1"}}))
	ctx := context.Background()

	stranger := NewClient("stranger", nil, hub)
	anon := NewClient("", nil, hub)
	hub.AddClient(stranger)
	hub.AddClient(anon)

	assert.ErrorIs(t, hub.Join(ctx, stranger, DealTopic("d1")), ErrNotAllowed)
	assert.ErrorIs(t, hub.Join(ctx, anon, DealTopic("d1")), ErrNotAllowed)
	assert.ErrorIs(t, hub.Join(ctx, stranger, "chat:lobby"), ErrUnknownTopic)
	assert.Equal(t, 0, hub.RoomSize(DealTopic("d1")))
}

func TestHub_LeaveAndRemove(t *testing.T) {
	hub := NewHub(allowParticipants(map[string][]string{"d1": {"u"}}))
	ctx := context.Background()
	c := NewClient("u", nil, hub)
	hub.AddClient(c)
	require.NoError(t, hub.Join(ctx, c, DealTopic("d1")))
	assert.Equal(t, 1, hub.RoomSize(DealTopic("d1")))

	hub.Leave(c, DealTopic("d1"))
	assert.Equal(t, 0, hub.RoomSize(DealTopic("d1")))
	assert.False(t, c.InTopic(DealTopic("d1")))

	hub.RemoveClient(c.ID)
	hub.RemoveClient(c.ID)
	assert.Equal(t, 0, hub.RoomSize(ListingsTopic))
}

func TestHub_RelaySkipsSender(t *testing.T) {
	hub := NewHub(allowParticipants(map[string][]string{"d1": {"buyer", "seller"}}))
	ctx := context.Background()
	buyer := NewClient("buyer", nil, hub)
	seller := NewClient("seller", nil, hub)
	hub.AddClient(buyer)
	hub.AddClient(seller)
	require.NoError(t, hub.Join(ctx, buyer, DealTopic("d1")))
	require.NoError(t, hub.Join(ctx, seller, DealTopic("d1")))

	buyer.handleFrame([]byte(`{"type":"sendMessage","topic":"deal:d1","payload":{"content":"typing..."}}`))

	event := readEvent(t, seller)
	assert.Equal(t, EventReceiveMessage, event.Type)
	assert.JSONEq(t, `{"content":"typing..."}`, string(event.Payload))
	assertNoEvent(t, buyer)
}

func TestClient_FramesReplyWithAcks(t *testing.T) {
	hub := NewHub(allowParticipants(map[string][]string{"d1": {"buyer"}}))
	c := NewClient("buyer", nil, hub)
	hub.AddClient(c)

	c.handleFrame([]byte(`{"type":"subscribe","topic":"deal:d1"}`))
	assert.Equal(t, EventSubscribed, readEvent(t, c).Type)
	assert.True(t, c.InTopic(DealTopic("d1")))

	c.handleFrame([]byte(`{"type":"subscribe","topic":"deal:d2"}`))
	assert.Equal(t, EventError, readEvent(t, c).Type)

	c.handleFrame([]byte(`{"type":"sendMessage","topic":"deal:d2","payload":{}}`))
	assert.Equal(t, EventError, readEvent(t, c).Type)

	c.handleFrame([]byte(`{"type":"unsubscribe","topic":"deal:d1"}`))
	assert.Equal(t, EventUnsubscribed, readEvent(t, c).Type)
	assert.False(t, c.InTopic(DealTopic("d1")))

	c.handleFrame([]byte(`not json`))
	assert.Equal(t, EventError, readEvent(t, c).Type)
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub := NewHub(nil)
	slow := NewClient("", nil, hub)
	hub.AddClient(slow)

	for i := 0; i < sendBufferSize+1; i++ {
		hub.Deliver(&Event{Type: EventNewProperty, Topic: ListingsTopic}, "")
	}

	assert.Equal(t, 0, hub.RoomSize(ListingsTopic))
	select {
	case <-slow.closeChan:
	default:
		t.Fatal("slow client was not closed")
	}
}

func TestHub_JoinAfterRemoveKeepsRoomEmpty(t *testing.T) {
	hub := NewHub(allowParticipants(map[string][]string{"d1": {"u"}}))
	ctx := context.Background()
	c := NewClient("u", nil, hub)
	hub.AddClient(c)

	// A slow-client drop can land while the read pump is still joining.
	hub.RemoveClient(c.ID)
	err := hub.Join(ctx, c, DealTopic("d1"))
	hub.RemoveClient(c.ID)

	assert.ErrorIs(t, err, ErrClientGone)
	assert.Equal(t, 0, hub.RoomSize(DealTopic("d1")))
	assert.False(t, c.InTopic(DealTopic("d1")))
	assert.ErrorIs(t, hub.Join(ctx, c, ListingsTopic), ErrClientGone)
	assert.Equal(t, 0, hub.RoomSize(ListingsTopic))
}

func TestParseDealTopic(t *testing.T) {
	id, ok := ParseDealTopic("deal:abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", id)

	_, ok = ParseDealTopic("deal:")
	assert.False(t, ok)
	_, ok = ParseDealTopic(ListingsTopic)
	assert.False(t, ok)
}

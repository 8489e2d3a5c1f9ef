package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/SaadNasir-Drago/Zolo/internal/db"
	"github.com/SaadNasir-Drago/Zolo/internal/models"
	"github.com/SaadNasir-Drago/Zolo/internal/realtime"
)

func insertTestDeal(t *testing.T, database *mongo.Database, buyerID, sellerID, propertyID primitive.ObjectID, status models.DealStatus) *models.Deal {
	deal := &models.Deal{
		Base:         models.NewBase(),
		BuyerID:      buyerID,
		SellerID:     sellerID,
		PropertyID:   propertyID,
		InitialPrice: 500000,
		Status:       status,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	_, err := database.Collection(db.DealsCollection).InsertOne(context.Background(), deal)
	require.NoError(t, err)
	return deal
}

func TestMessageService_SendMessagePushesToDealTopic(t *testing.T) {
	database := setupServiceDB(t, "testdb_message_send")
	pub := &recordingPublisher{}
	svc := NewMessageService(database, testConfig(), pub)
	ctx := context.Background()
	buyer, seller, property := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	deal := insertTestDeal(t, database, buyer, seller, property, models.DealStatusOngoing)

	msg, err := svc.SendMessage(ctx, deal.ID, "Hi", false, models.Sender{Role: models.SenderBuyer})
	require.NoError(t, err)
	assert.False(t, msg.ID.IsZero())
	require.NotNil(t, msg.BuyerID)
	assert.Equal(t, buyer, *msg.BuyerID)
	assert.Nil(t, msg.SellerID)
	assert.Equal(t, property, msg.PropertyID)

	events := pub.OfType(realtime.EventNewMessage)
	require.Len(t, events, 1)
	assert.Equal(t, realtime.DealTopic(deal.ID.Hex()), events[0].Topic)
	assert.Equal(t, msg.ID, events[0].Payload.(*models.Message).ID)
}

func TestMessageService_SendMessageUnknownDeal(t *testing.T) {
	database := setupServiceDB(t, "testdb_message_unknown")
	pub := &recordingPublisher{}
	svc := NewMessageService(database, testConfig(), pub)

	_, err := svc.SendMessage(context.Background(), primitive.NewObjectID(), "Hi", false, models.Sender{Role: models.SenderSeller})
	assert.ErrorIs(t, err, ErrDealNotFound)
	assert.Empty(t, pub.Events())

	count, err := database.Collection(db.MessagesCollection).CountDocuments(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMessageService_OfferUpdatesDeal(t *testing.T) {
	database := setupServiceDB(t, "testdb_message_offer")
	svc := NewMessageService(database, testConfig(), &recordingPublisher{})
	ctx := context.Background()
	deal := insertTestDeal(t, database, primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), models.DealStatusOngoing)

	msg, err := svc.SendMessage(ctx, deal.ID, "$480,000", true, models.Sender{Role: models.SenderBuyer})
	require.NoError(t, err)
	amount, ok := msg.OfferAmount()
	assert.True(t, ok)
	assert.Equal(t, int64(480000), amount)

	updated, err := findDeal(ctx, database, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, 480000.0, updated.OfferPrice)

	_, err = svc.SendMessage(ctx, deal.ID, "about half a million", true, models.Sender{Role: models.SenderBuyer})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMessageService_ClosedDealStillTakesMessages(t *testing.T) {
	database := setupServiceDB(t, "testdb_message_closed")
	pub := &recordingPublisher{}
	svc := NewMessageService(database, testConfig(), pub)
	ctx := context.Background()
	deal := insertTestDeal(t, database, primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), models.DealStatusAccepted)

	msg, err := svc.SendMessage(ctx, deal.ID, "This Offer has been accepted. This chat is now closed", false, models.Sender{Role: models.SenderSeller})
	require.NoError(t, err)
	assert.Equal(t, deal.ID, msg.DealID)

	messages, err := svc.ListMessages(ctx, deal.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, msg.ID, messages[0].ID)
	require.Len(t, pub.Events(), 1)

	// An offer on a closed deal is stored but leaves offerPrice alone.
	_, err = svc.SendMessage(ctx, deal.ID, "$1", true, models.Sender{Role: models.SenderBuyer})
	require.NoError(t, err)
	unchanged, err := findDeal(ctx, database, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, deal.OfferPrice, unchanged.OfferPrice)
}

func TestMessageService_ListMessagesInOrder(t *testing.T) {
	database := setupServiceDB(t, "testdb_message_list")
	svc := NewMessageService(database, testConfig(), nil)
	ctx := context.Background()
	deal := insertTestDeal(t, database, primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), models.DealStatusOngoing)

	for _, content := range []string{"one", "two", "three"} {
		_, err := svc.SendMessage(ctx, deal.ID, content, false, models.Sender{Role: models.SenderSeller})
		require.NoError(t, err)
	}

	messages, err := svc.ListMessages(ctx, deal.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "one", messages[0].Content)
	assert.Equal(t, "three", messages[2].Content)

	empty, err := svc.ListMessages(ctx, primitive.NewObjectID())
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMessageService_ListMessagesOrdersByCreatedAt(t *testing.T) {
	database := setupServiceDB(t, "testdb_message_order")
	svc := NewMessageService(database, testConfig(), nil)
	ctx := context.Background()
	deal := insertTestDeal(t, database, primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), models.DealStatusOngoing)

	// The later message carries the smaller id, as when another instance minted it first.
	now := time.Now().UTC().Truncate(time.Millisecond)
	later := models.Message{Base: models.NewBase(), DealID: deal.ID, Content: "second", CreatedAt: now.Add(time.Millisecond)}
	earlier := models.Message{Base: models.NewBase(), DealID: deal.ID, Content: "first", CreatedAt: now}
	_, err := database.Collection(db.MessagesCollection).InsertMany(ctx, []interface{}{later, earlier})
	require.NoError(t, err)

	messages, err := svc.ListMessages(ctx, deal.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "second", messages[1].Content)
}

func TestMessageService_BroadcastToAllBuyers(t *testing.T) {
	database := setupServiceDB(t, "testdb_message_broadcast")
	pub := &recordingPublisher{}
	svc := NewMessageService(database, testConfig(), pub)
	ctx := context.Background()
	seller, property := primitive.NewObjectID(), primitive.NewObjectID()
	d1 := insertTestDeal(t, database, primitive.NewObjectID(), seller, property, models.DealStatusOngoing)
	d2 := insertTestDeal(t, database, primitive.NewObjectID(), seller, property, models.DealStatusOngoing)
	d3 := insertTestDeal(t, database, primitive.NewObjectID(), seller, property, models.DealStatusOngoing)

	messages, err := svc.BroadcastToAllBuyers(ctx, property, seller, "Price drop", false, d1.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	dealIDs := []primitive.ObjectID{messages[0].DealID, messages[1].DealID}
	assert.ElementsMatch(t, []primitive.ObjectID{d2.ID, d3.ID}, dealIDs)
	assert.Empty(t, pub.Events())

	_, err = svc.BroadcastToAllBuyers(ctx, primitive.NewObjectID(), seller, "x", false, primitive.NilObjectID)
	assert.ErrorIs(t, err, ErrNoMatchingDeals)
}

func TestAppendNotice_IsIdempotent(t *testing.T) {
	database := setupServiceDB(t, "testdb_message_notice")
	svc := NewMessageService(database, testConfig(), nil)
	ctx := context.Background()
	deal := insertTestDeal(t, database, primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), models.DealStatusOngoing)
	messages := database.Collection(db.MessagesCollection)

	first, created, err := appendNotice(ctx, messages, deal, models.Sender{Role: models.SenderSeller}, models.NoticeOfferDeclined, models.NoticeTextOfferDeclined, db.IsRetryableError)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := appendNotice(ctx, messages, deal, models.Sender{Role: models.SenderSeller}, models.NoticeOfferDeclined, models.NoticeTextOfferDeclined, db.IsRetryableError)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	thread, err := svc.ListMessages(ctx, deal.ID)
	require.NoError(t, err)
	assert.Len(t, thread, 1)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/SaadNasir-Drago/Zolo/internal/config"
	"github.com/SaadNasir-Drago/Zolo/internal/db"
	"github.com/SaadNasir-Drago/Zolo/internal/models"
	"github.com/SaadNasir-Drago/Zolo/internal/observability/metrics"
	"github.com/SaadNasir-Drago/Zolo/internal/realtime"
)

// IMessageService defines the deal chat operations.
type IMessageService interface {
	SendMessage(ctx context.Context, dealID primitive.ObjectID, content string, offer bool, sender models.Sender) (*models.Message, error)
	ListMessages(ctx context.Context, dealID primitive.ObjectID) ([]models.Message, error)
	BroadcastToAllBuyers(ctx context.Context, propertyID, sellerID primitive.ObjectID, content string, offer bool, excludeDealID primitive.ObjectID) ([]models.Message, error)
}

// messageService implements IMessageService.
type messageService struct {
	db        *mongo.Database
	cfg       *config.Config
	publisher IEventPublisher
}

// NewMessageService creates a new MessageService.
func NewMessageService(db *mongo.Database, cfg *config.Config, publisher IEventPublisher) IMessageService {
	return &messageService{db: db, cfg: cfg, publisher: publisher}
}

func (s *messageService) messages() *mongo.Collection {
	return s.db.Collection(db.MessagesCollection)
}

// SendMessage appends a user message to a deal thread and pushes it to the
// deal's room. A valid offer also moves the offerPrice of an ongoing deal.
func (s *messageService) SendMessage(ctx context.Context, dealID primitive.ObjectID, content string, offer bool, sender models.Sender) (*models.Message, error) {
	if !sender.Valid() {
		return nil, NewValidationError("sender", "Sender must be buyer or seller")
	}
	if strings.TrimSpace(content) == "" {
		return nil, NewValidationError("content", "Content is required")
	}
	msg := &models.Message{Content: content, Offer: offer}
	amount, validOffer := msg.OfferAmount()
	if offer && !validOffer {
		return nil, NewValidationError("content", "Offer must be a whole dollar amount such as $480000")
	}

	// Closed deals still take messages; only the offerPrice update is gated on status.
	deal, err := findDeal(ctx, s.db, dealID)
	if err != nil {
		return nil, err
	}

	msg.Base = models.NewBase()
	msg.PropertyID = deal.PropertyID
	msg.DealID = deal.ID
	msg.CreatedAt = time.Now().UTC()
	sender.ResolveFor(deal).Stamp(msg)

	if _, err := s.messages().InsertOne(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save message for deal %s: %w", dealID.Hex(), err)
	}

	kind := "chat"
	if offer {
		kind = "offer"
	}
	if offer && !deal.Status.IsTerminal() {
		_, err := s.db.Collection(db.DealsCollection).UpdateOne(ctx,
			bson.M{"_id": deal.ID, "status": models.DealStatusOngoing},
			bson.M{"$set": bson.M{"offerPrice": float64(amount), "updatedAt": time.Now().UTC()}},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to record offer on deal %s: %w", dealID.Hex(), err)
		}
	}
	metrics.ObserveMessages(kind, 1)

	publish(ctx, s.publisher, realtime.DealTopic(deal.ID.Hex()), realtime.EventNewMessage, msg)
	return msg, nil
}

// ListMessages returns the thread of a deal oldest first. Never nil.
func (s *messageService) ListMessages(ctx context.Context, dealID primitive.ObjectID) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.messages().Find(ctx, bson.M{"dealId": dealID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for deal %s: %w", dealID.Hex(), err)
	}
	defer cursor.Close(ctx)

	messages := []models.Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return messages, nil
}

// BroadcastToAllBuyers writes the same seller message into every other deal
// on the property. The messages are persisted only; clients see them on their
// next ListMessages.
func (s *messageService) BroadcastToAllBuyers(ctx context.Context, propertyID, sellerID primitive.ObjectID, content string, offer bool, excludeDealID primitive.ObjectID) ([]models.Message, error) {
	deals, err := siblingDeals(ctx, s.db, propertyID, sellerID)
	if err != nil {
		return nil, err
	}
	if len(deals) == 0 {
		return nil, ErrNoMatchingDeals
	}

	now := time.Now().UTC()
	messages := []models.Message{}
	docs := []interface{}{}
	for i := range deals {
		if deals[i].ID == excludeDealID {
			continue
		}
		msg := models.Message{
			Base:       models.NewBase(),
			PropertyID: propertyID,
			DealID:     deals[i].ID,
			Content:    content,
			Offer:      offer,
			CreatedAt:  now,
		}
		models.SellerSender(sellerID).Stamp(&msg)
		messages = append(messages, msg)
		docs = append(docs, msg)
	}
	if len(docs) == 0 {
		return messages, nil
	}

	if _, err := s.messages().InsertMany(ctx, docs); err != nil {
		return nil, fmt.Errorf("failed to broadcast to buyers of property %s: %w", propertyID.Hex(), err)
	}
	metrics.ObserveMessages("broadcast", len(docs))
	return messages, nil
}

// appendNotice writes a system notice to a deal thread at most once per notice key.
// created is false when the notice already existed. Nothing is published; the
// caller decides when the notice becomes visible. Inside a transaction only
// duplicate-key races may be retried, so the caller picks isRetryable.
func appendNotice(ctx context.Context, coll *mongo.Collection, deal *models.Deal, sender models.Sender, notice, content string, isRetryable db.IsRetryable) (*models.Message, bool, error) {
	msg := models.Message{}
	sender.ResolveFor(deal).Stamp(&msg)

	onInsert := bson.M{
		"_id":        primitive.NewObjectID(),
		"propertyId": deal.PropertyID,
		"content":    content,
		"offer":      false,
		"createdAt":  time.Now().UTC(),
	}
	if msg.BuyerID != nil {
		onInsert["buyerId"] = *msg.BuyerID
	}
	if msg.SellerID != nil {
		onInsert["sellerId"] = *msg.SellerID
	}

	filter := bson.M{"dealId": deal.ID, "notice": notice}
	var result *mongo.UpdateResult
	err := db.WithRetries(func() error {
		var upsertErr error
		result, upsertErr = coll.UpdateOne(ctx, filter, bson.M{"$setOnInsert": onInsert}, options.Update().SetUpsert(true))
		return upsertErr
	}, db.DefaultMaxRetries, isRetryable)
	if err != nil {
		return nil, false, fmt.Errorf("failed to write %s notice on deal %s: %w", notice, deal.ID.Hex(), err)
	}

	var saved models.Message
	if err := coll.FindOne(ctx, filter).Decode(&saved); err != nil {
		return nil, false, fmt.Errorf("failed to read %s notice on deal %s: %w", notice, deal.ID.Hex(), err)
	}

	created := result.UpsertedCount > 0
	if created {
		metrics.ObserveMessages("notice", 1)
	}
	return &saved, created, nil
}

func findDeal(ctx context.Context, database *mongo.Database, dealID primitive.ObjectID) (*models.Deal, error) {
	var deal models.Deal
	err := database.Collection(db.DealsCollection).FindOne(ctx, bson.M{"_id": dealID}).Decode(&deal)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrDealNotFound
		}
		return nil, fmt.Errorf("error finding deal %s: %w", dealID.Hex(), err)
	}
	return &deal, nil
}

// siblingDeals returns every deal on the property with the given seller.
func siblingDeals(ctx context.Context, database *mongo.Database, propertyID, sellerID primitive.ObjectID) ([]models.Deal, error) {
	return findDeals(ctx, database, bson.M{"propertyId": propertyID, "sellerId": sellerID})
}

func findDeals(ctx context.Context, database *mongo.Database, filter bson.M) ([]models.Deal, error) {
	cursor, err := database.Collection(db.DealsCollection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find deals: %w", err)
	}
	defer cursor.Close(ctx)

	deals := []models.Deal{}
	if err := cursor.All(ctx, &deals); err != nil {
		return nil, fmt.Errorf("failed to decode deals: %w", err)
	}
	return deals, nil
}

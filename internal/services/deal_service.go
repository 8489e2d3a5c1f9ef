package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"

	"github.com/SaadNasir-Drago/Zolo/internal/config"
	"github.com/SaadNasir-Drago/Zolo/internal/db"
	"github.com/SaadNasir-Drago/Zolo/internal/models"
	"github.com/SaadNasir-Drago/Zolo/internal/observability/metrics"
	"github.com/SaadNasir-Drago/Zolo/internal/observability/tracing"
	"github.com/SaadNasir-Drago/Zolo/internal/realtime"
)

// IDealService defines the negotiation lifecycle operations.
type IDealService interface {
	CreateDeal(ctx context.Context, input DealInput) (*models.Deal, error)
	FindDealByID(ctx context.Context, dealID primitive.ObjectID) (*models.Deal, error)
	AcceptDeal(ctx context.Context, dealID primitive.ObjectID, sender models.Sender) (*models.Deal, error)
	DeclineDeal(ctx context.Context, dealID primitive.ObjectID, sender models.Sender) (*models.Deal, error)
	GetDealsForUser(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]models.DealSummary, error)
	GetUserDeals(ctx context.Context, userID primitive.ObjectID, page, limit int) (*DealPage, error)
	GetDealProperty(ctx context.Context, dealID primitive.ObjectID) (*models.Property, error)
	IsParticipant(ctx context.Context, dealID, userID primitive.ObjectID) (bool, error)
}

// DealInput holds the fields of a new deal. Ids are hex strings as received.
type DealInput struct {
	BuyerID      string
	SellerID     string
	PropertyID   string
	InitialPrice float64
	OfferPrice   float64
	FinalPrice   float64
}

// DealPage is a page of a user's deals with totals.
type DealPage struct {
	Deals       []models.Deal `json:"deals"`
	TotalDeals  int64         `json:"totalDeals"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
}

const defaultDealPageLimit = 10

// dealService implements IDealService.
type dealService struct {
	client    *mongo.Client
	db        *mongo.Database
	cfg       *config.Config
	publisher IEventPublisher
}

// NewDealService creates a new DealService. The client is used to start
// transactions for AcceptDeal.
func NewDealService(client *mongo.Client, db *mongo.Database, cfg *config.Config, publisher IEventPublisher) IDealService {
	return &dealService{client: client, db: db, cfg: cfg, publisher: publisher}
}

func (s *dealService) deals() *mongo.Collection {
	return s.db.Collection(db.DealsCollection)
}

// CreateDeal opens a negotiation in the ongoing state.
func (s *dealService) CreateDeal(ctx context.Context, input DealInput) (*models.Deal, error) {
	verr := &ValidationError{}
	buyerID := parseRequiredID(verr, "buyerId", input.BuyerID)
	sellerID := parseRequiredID(verr, "sellerId", input.SellerID)
	propertyID := parseRequiredID(verr, "propertyId", input.PropertyID)
	if input.InitialPrice < 0 {
		verr.Fields = append(verr.Fields, FieldError{Field: "initialPrice", Message: "Initial price must not be negative"})
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	now := time.Now().UTC()
	deal := &models.Deal{
		Base:         models.NewBase(),
		BuyerID:      buyerID,
		SellerID:     sellerID,
		PropertyID:   propertyID,
		InitialPrice: input.InitialPrice,
		OfferPrice:   input.OfferPrice,
		FinalPrice:   input.FinalPrice,
		Status:       models.DealStatusOngoing,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.deals().InsertOne(ctx, deal); err != nil {
		return nil, fmt.Errorf("failed to create deal: %w", err)
	}
	return deal, nil
}

func parseRequiredID(verr *ValidationError, field, value string) primitive.ObjectID {
	if value == "" {
		verr.Fields = append(verr.Fields, FieldError{Field: field, Message: field + " is required"})
		return primitive.NilObjectID
	}
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		verr.Fields = append(verr.Fields, FieldError{Field: field, Message: "Invalid " + field})
		return primitive.NilObjectID
	}
	return id
}

func (s *dealService) FindDealByID(ctx context.Context, dealID primitive.ObjectID) (*models.Deal, error) {
	return findDeal(ctx, s.db, dealID)
}

// acceptResult collects what a committed accept must announce.
type acceptResult struct {
	deal         *models.Deal
	closing      *models.Message
	closingIsNew bool
	rejected     []primitive.ObjectID
}

// AcceptDeal closes the negotiation in favour of dealID. Sibling deals are
// rejected, the property is delisted and the closing notices are written,
// all in one transaction. Without transaction support the same idempotent
// steps run in sequence and are retried on transient errors.
func (s *dealService) AcceptDeal(ctx context.Context, dealID primitive.ObjectID, sender models.Sender) (*models.Deal, error) {
	if !sender.Valid() {
		return nil, NewValidationError("sender", "Sender must be buyer or seller")
	}

	ctx, span := tracing.StartSpan(ctx, "deal.accept", attribute.String("deal.id", dealID.Hex()))
	defer span.End()

	retries := db.DefaultMaxRetries
	if s.cfg != nil && s.cfg.AcceptDealRetries > 0 {
		retries = s.cfg.AcceptDealRetries
	}

	var res *acceptResult
	err := db.WithRetries(func() error {
		return db.RunInTransaction(ctx, s.client, func(txCtx context.Context) error {
			var txErr error
			res, txErr = s.acceptSteps(txCtx, dealID, sender)
			return txErr
		})
	}, retries, db.IsTransientError)
	if err != nil {
		metrics.ObserveDealTransition(string(models.DealStatusAccepted), "error")
		return nil, err
	}
	metrics.ObserveDealTransition(string(models.DealStatusAccepted), "ok")

	if res.closingIsNew {
		publish(ctx, s.publisher, realtime.DealTopic(res.deal.ID.Hex()), realtime.EventNewMessage, res.closing)
		s.publishStatus(ctx, res.deal.ID, res.deal.PropertyID, models.DealStatusAccepted)
	}
	for _, id := range res.rejected {
		s.publishStatus(ctx, id, res.deal.PropertyID, models.DealStatusRejected)
	}
	return res.deal, nil
}

// acceptSteps runs inside the transaction. Every write is keyed so that a
// repeated run after a partial failure converges on the same state.
func (s *dealService) acceptSteps(ctx context.Context, dealID primitive.ObjectID, sender models.Sender) (*acceptResult, error) {
	deal, err := findDeal(ctx, s.db, dealID)
	if err != nil {
		return nil, err
	}
	if deal.Status == models.DealStatusRejected {
		return nil, ErrDealClosed
	}

	siblings, err := findDeals(ctx, s.db, bson.M{"propertyId": deal.PropertyID})
	if err != nil {
		return nil, err
	}
	for _, sibling := range siblings {
		if sibling.ID != deal.ID && sibling.Status == models.DealStatusAccepted {
			return nil, fmt.Errorf("property %s already sold through deal %s: %w", deal.PropertyID.Hex(), sibling.ID.Hex(), ErrConflict)
		}
	}

	now := time.Now().UTC()
	res := &acceptResult{}

	if _, err := s.deals().UpdateMany(ctx,
		bson.M{"propertyId": deal.PropertyID, "_id": bson.M{"$ne": deal.ID}, "status": models.DealStatusOngoing},
		bson.M{"$set": bson.M{"status": models.DealStatusRejected, "updatedAt": now}},
	); err != nil {
		return nil, fmt.Errorf("failed to reject sibling deals of %s: %w", deal.ID.Hex(), err)
	}

	if deal.Status == models.DealStatusOngoing {
		finalPrice := deal.OfferPrice
		if finalPrice == 0 {
			finalPrice = deal.InitialPrice
		}
		result, err := s.deals().UpdateOne(ctx,
			bson.M{"_id": deal.ID, "status": models.DealStatusOngoing},
			bson.M{"$set": bson.M{"status": models.DealStatusAccepted, "finalPrice": finalPrice, "updatedAt": now}},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to accept deal %s: %w", deal.ID.Hex(), err)
		}
		if result.MatchedCount == 0 {
			// Lost a race with a decline or another accept.
			return nil, ErrDealClosed
		}
		deal.Status = models.DealStatusAccepted
		deal.FinalPrice = finalPrice
		deal.UpdatedAt = now
	}

	if err := delistProperty(ctx, s.db.Collection(db.PropertiesCollection), deal.PropertyID); err != nil && !errors.Is(err, ErrPropertyNotFound) {
		return nil, err
	}

	messages := s.db.Collection(db.MessagesCollection)
	seller := models.SellerSender(deal.SellerID)
	for i := range siblings {
		if siblings[i].ID == deal.ID {
			continue
		}
		if _, _, err := appendNotice(ctx, messages, &siblings[i], seller, models.NoticePropertySold, models.NoticeTextPropertySold, db.IsMongoDuplicateKeyError); err != nil {
			return nil, err
		}
		if siblings[i].Status == models.DealStatusOngoing {
			res.rejected = append(res.rejected, siblings[i].ID)
		}
	}

	closing, created, err := appendNotice(ctx, messages, deal, sender, models.NoticeOfferAccepted, models.NoticeTextOfferAccepted, db.IsMongoDuplicateKeyError)
	if err != nil {
		return nil, err
	}

	res.deal = deal
	res.closing = closing
	res.closingIsNew = created
	return res, nil
}

// DeclineDeal rejects an ongoing deal and posts the decline notice to its room.
// Siblings and the property are left untouched.
func (s *dealService) DeclineDeal(ctx context.Context, dealID primitive.ObjectID, sender models.Sender) (*models.Deal, error) {
	if !sender.Valid() {
		return nil, NewValidationError("sender", "Sender must be buyer or seller")
	}

	ctx, span := tracing.StartSpan(ctx, "deal.decline", attribute.String("deal.id", dealID.Hex()))
	defer span.End()

	deal, err := findDeal(ctx, s.db, dealID)
	if err != nil {
		return nil, err
	}
	switch deal.Status {
	case models.DealStatusAccepted:
		return nil, ErrDealClosed
	case models.DealStatusRejected:
		return deal, nil
	}

	now := time.Now().UTC()
	result, err := s.deals().UpdateOne(ctx,
		bson.M{"_id": deal.ID, "status": models.DealStatusOngoing},
		bson.M{"$set": bson.M{"status": models.DealStatusRejected, "updatedAt": now}},
	)
	if err != nil {
		metrics.ObserveDealTransition(string(models.DealStatusRejected), "error")
		return nil, fmt.Errorf("failed to decline deal %s: %w", deal.ID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		// Someone else closed it first; report the state they left.
		return s.resolveLostTransition(ctx, deal.ID)
	}
	deal.Status = models.DealStatusRejected
	deal.UpdatedAt = now
	metrics.ObserveDealTransition(string(models.DealStatusRejected), "ok")

	notice, created, err := appendNotice(ctx, s.db.Collection(db.MessagesCollection), deal, sender, models.NoticeOfferDeclined, models.NoticeTextOfferDeclined, db.IsRetryableError)
	if err != nil {
		return nil, err
	}
	if created {
		publish(ctx, s.publisher, realtime.DealTopic(deal.ID.Hex()), realtime.EventNewMessage, notice)
	}
	s.publishStatus(ctx, deal.ID, deal.PropertyID, models.DealStatusRejected)
	return deal, nil
}

func (s *dealService) resolveLostTransition(ctx context.Context, dealID primitive.ObjectID) (*models.Deal, error) {
	current, err := findDeal(ctx, s.db, dealID)
	if err != nil {
		return nil, err
	}
	if current.Status == models.DealStatusAccepted {
		return nil, ErrDealClosed
	}
	return current, nil
}

func (s *dealService) publishStatus(ctx context.Context, dealID, propertyID primitive.ObjectID, status models.DealStatus) {
	publish(ctx, s.publisher, realtime.DealTopic(dealID.Hex()), realtime.EventDealStatusChanged, realtime.DealStatusPayload{
		DealID:     dealID.Hex(),
		PropertyID: propertyID.Hex(),
		Status:     string(status),
	})
}

// GetDealsForUser lists the user's deals, newest first, with the property
// address and the other party's contact details.
func (s *dealService) GetDealsForUser(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]models.DealSummary, error) {
	page, limit = normalizePage(page, limit, defaultDealPageLimit, s.maxLimit())

	cursor, err := s.deals().Aggregate(ctx, dealSummaryPipeline(userID, page, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate deals for user %s: %w", userID.Hex(), err)
	}
	defer cursor.Close(ctx)

	summaries := []models.DealSummary{}
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("failed to decode deal summaries: %w", err)
	}
	return summaries, nil
}

func dealSummaryPipeline(userID primitive.ObjectID, page, limit int) mongo.Pipeline {
	isBuyer := bson.M{"$eq": bson.A{"$buyerId", userID}}
	counterpart := func(field string) bson.M {
		return bson.M{"$cond": bson.A{isBuyer, "$seller." + field, "$buyer." + field}}
	}

	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{bson.M{"buyerId": userID}, bson.M{"sellerId": userID}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$skip", Value: int64((page - 1) * limit)}},
		{{Key: "$limit", Value: int64(limit)}},
		{{Key: "$lookup", Value: bson.M{"from": db.PropertiesCollection, "localField": "propertyId", "foreignField": "_id", "as": "property"}}},
		{{Key: "$lookup", Value: bson.M{"from": db.UsersCollection, "localField": "buyerId", "foreignField": "_id", "as": "buyer"}}},
		{{Key: "$lookup", Value: bson.M{"from": db.UsersCollection, "localField": "sellerId", "foreignField": "_id", "as": "seller"}}},
		{{Key: "$unwind", Value: bson.M{"path": "$property", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$unwind", Value: bson.M{"path": "$buyer", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$unwind", Value: bson.M{"path": "$seller", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$project", Value: bson.M{
			"_id":             bson.M{"$toString": "$_id"},
			"buyerId":         bson.M{"$toString": "$buyerId"},
			"sellerId":        bson.M{"$toString": "$sellerId"},
			"propertyId":      bson.M{"$toString": "$propertyId"},
			"initialPrice":    1,
			"offerPrice":      1,
			"finalPrice":      1,
			"status":          1,
			"createdAt":       1,
			"propertyAddress": bson.M{"$ifNull": bson.A{"$property.address", ""}},
			"otherUser": bson.M{
				"firstname": bson.M{"$ifNull": bson.A{counterpart("firstname"), ""}},
				"lastname":  bson.M{"$ifNull": bson.A{counterpart("lastname"), ""}},
				"email":     bson.M{"$ifNull": bson.A{counterpart("email"), ""}},
			},
		}}},
	}
}

// GetUserDeals lists the user's deals, newest first, with totals.
func (s *dealService) GetUserDeals(ctx context.Context, userID primitive.ObjectID, page, limit int) (*DealPage, error) {
	page, limit = normalizePage(page, limit, defaultDealPageLimit, s.maxLimit())
	filter := bson.M{"$or": bson.A{bson.M{"buyerId": userID}, bson.M{"sellerId": userID}}}

	total, err := s.deals().CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count deals for user %s: %w", userID.Hex(), err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cursor, err := s.deals().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find deals for user %s: %w", userID.Hex(), err)
	}
	defer cursor.Close(ctx)

	deals := []models.Deal{}
	if err := cursor.All(ctx, &deals); err != nil {
		return nil, fmt.Errorf("failed to decode deals: %w", err)
	}

	return &DealPage{
		Deals:       deals,
		TotalDeals:  total,
		TotalPages:  int((total + int64(limit) - 1) / int64(limit)),
		CurrentPage: page,
	}, nil
}

// GetDealProperty returns the property a deal negotiates over.
func (s *dealService) GetDealProperty(ctx context.Context, dealID primitive.ObjectID) (*models.Property, error) {
	deal, err := findDeal(ctx, s.db, dealID)
	if err != nil {
		return nil, err
	}

	var property models.Property
	err = s.db.Collection(db.PropertiesCollection).FindOne(ctx, bson.M{"_id": deal.PropertyID}).Decode(&property)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPropertyNotFound
		}
		return nil, fmt.Errorf("error finding property of deal %s: %w", dealID.Hex(), err)
	}
	return &property, nil
}

// IsParticipant reports whether userID is the buyer or the seller of dealID.
func (s *dealService) IsParticipant(ctx context.Context, dealID, userID primitive.ObjectID) (bool, error) {
	deal, err := findDeal(ctx, s.db, dealID)
	if err != nil {
		if errors.Is(err, ErrDealNotFound) {
			return false, nil
		}
		log.Printf("Participant check failed for deal %s: %v", dealID.Hex(), err)
		return false, err
	}
	return deal.HasParticipant(userID), nil
}

func (s *dealService) maxLimit() int {
	if s.cfg == nil {
		return 0
	}
	return s.cfg.MaxPageLimit
}

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

	"github.com/SaadNasir-Drago/Zolo/internal/config"
	"github.com/SaadNasir-Drago/Zolo/internal/db"
	"github.com/SaadNasir-Drago/Zolo/internal/models"
	"github.com/SaadNasir-Drago/Zolo/internal/realtime"
)

// IPropertyService defines the interface for property-related operations.
type IPropertyService interface {
	CreateProperty(ctx context.Context, ownerID primitive.ObjectID, draft models.Property) (*models.Property, error)
	FindPropertyByID(ctx context.Context, propertyID primitive.ObjectID) (*models.Property, error)
	ListActiveProperties(ctx context.Context, page, limit int) ([]models.Property, error)
	ListRentProperties(ctx context.Context, page, limit int) (*PropertyListPage, error)
	ListPropertiesByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Property, error)
	UpdateProperty(ctx context.Context, propertyID primitive.ObjectID, update models.PropertyUpdate) (*models.Property, error)
	DeleteProperty(ctx context.Context, propertyID, ownerID primitive.ObjectID) error
	AddImageToProperty(ctx context.Context, propertyID primitive.ObjectID, imageURL string) error
	SearchProperties(ctx context.Context, params PropertySearchParams) (*PropertySearchPage, error)
}

// PropertyListPage is a page of listings with totals.
type PropertyListPage struct {
	Properties      []models.Property `json:"properties"`
	CurrentPage     int               `json:"currentPage"`
	TotalPages      int               `json:"totalPages"`
	TotalProperties int64             `json:"totalProperties"`
}

// propertyService implements IPropertyService.
type propertyService struct {
	db        *mongo.Database
	cfg       *config.Config
	publisher IEventPublisher
}

// NewPropertyService creates a new PropertyService. New listings are announced through publisher.
func NewPropertyService(db *mongo.Database, cfg *config.Config, publisher IEventPublisher) IPropertyService {
	return &propertyService{db: db, cfg: cfg, publisher: publisher}
}

func (s *propertyService) properties() *mongo.Collection {
	return s.db.Collection(db.PropertiesCollection)
}

// CreateProperty stores an active listing owned by ownerID and publishes newProperty.
func (s *propertyService) CreateProperty(ctx context.Context, ownerID primitive.ObjectID, draft models.Property) (*models.Property, error) {
	if ownerID.IsZero() {
		return nil, NewValidationError("userId", "Owner is required")
	}
	if draft.Address == "" {
		return nil, NewValidationError("address", "Address is required")
	}
	if draft.Price < 0 {
		return nil, NewValidationError("price", "Price must not be negative")
	}

	now := time.Now().UTC()
	property := draft
	property.Base = models.NewBase()
	property.UserID = ownerID
	property.ListingStatus = true
	property.CreatedAt = now
	property.UpdatedAt = now
	if property.Images == nil {
		property.Images = []string{}
	}
	if property.Amenities == nil {
		property.Amenities = []string{}
	}

	if _, err := s.properties().InsertOne(ctx, &property); err != nil {
		return nil, fmt.Errorf("failed to insert property for user %s: %w", ownerID.Hex(), err)
	}

	publish(ctx, s.publisher, realtime.ListingsTopic, realtime.EventNewProperty, &property)
	return &property, nil
}

// FindPropertyByID finds a property by its ID regardless of listing status.
func (s *propertyService) FindPropertyByID(ctx context.Context, propertyID primitive.ObjectID) (*models.Property, error) {
	var property models.Property
	err := s.properties().FindOne(ctx, bson.M{"_id": propertyID}).Decode(&property)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPropertyNotFound
		}
		return nil, fmt.Errorf("error finding property by ID %s: %w", propertyID.Hex(), err)
	}
	return &property, nil
}

// ListActiveProperties returns listed properties, newest first.
func (s *propertyService) ListActiveProperties(ctx context.Context, page, limit int) ([]models.Property, error) {
	page, limit = normalizePage(page, limit, s.cfg.DefaultPageLimit, s.cfg.MaxPageLimit)
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	return s.find(ctx, bson.M{"listingStatus": true}, opts)
}

// ListRentProperties returns listed rentals with page totals.
func (s *propertyService) ListRentProperties(ctx context.Context, page, limit int) (*PropertyListPage, error) {
	page, limit = normalizePage(page, limit, s.cfg.DefaultRentLimit, s.cfg.MaxPageLimit)
	filter := bson.M{"isForRent": true, "listingStatus": true}

	total, err := s.properties().CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count rent properties: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	properties, err := s.find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	return &PropertyListPage{
		Properties:      properties,
		CurrentPage:     page,
		TotalPages:      int((total + int64(limit) - 1) / int64(limit)),
		TotalProperties: total,
	}, nil
}

// ListPropertiesByOwner returns every property of ownerID, newest first. Never nil.
func (s *propertyService) ListPropertiesByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Property, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	return s.find(ctx, bson.M{"userId": ownerID}, opts)
}

// UpdateProperty merges the provided fields into the stored property.
func (s *propertyService) UpdateProperty(ctx context.Context, propertyID primitive.ObjectID, update models.PropertyUpdate) (*models.Property, error) {
	set := propertyUpdateFields(update)
	set["updatedAt"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Property
	err := s.properties().FindOneAndUpdate(ctx, bson.M{"_id": propertyID}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPropertyNotFound
		}
		return nil, fmt.Errorf("failed to update property %s: %w", propertyID.Hex(), err)
	}
	return &updated, nil
}

func propertyUpdateFields(u models.PropertyUpdate) bson.M {
	set := bson.M{}
	if u.Address != nil {
		set["address"] = *u.Address
	}
	if u.Price != nil {
		set["price"] = *u.Price
	}
	if u.Bath != nil {
		set["bath"] = *u.Bath
	}
	if u.Bed != nil {
		set["bed"] = *u.Bed
	}
	if u.Size != nil {
		set["size"] = *u.Size
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.PropertyType != nil {
		set["propertyType"] = *u.PropertyType
	}
	if u.Lat != nil {
		set["lat"] = *u.Lat
	}
	if u.Long != nil {
		set["long"] = *u.Long
	}
	if u.IsForRent != nil {
		set["isForRent"] = *u.IsForRent
	}
	if u.IsForSale != nil {
		set["isForSale"] = *u.IsForSale
	}
	if u.Amenities != nil {
		set["amenities"] = u.Amenities
	}
	if u.Images != nil {
		set["images"] = u.Images
	}
	return set
}

// DeleteProperty removes a property owned by ownerID.
// Returns ErrForbidden when the property belongs to someone else.
func (s *propertyService) DeleteProperty(ctx context.Context, propertyID, ownerID primitive.ObjectID) error {
	property, err := s.FindPropertyByID(ctx, propertyID)
	if err != nil {
		return err
	}
	if property.UserID != ownerID {
		return ErrForbidden
	}

	result, err := s.properties().DeleteOne(ctx, bson.M{"_id": propertyID, "userId": ownerID})
	if err != nil {
		return fmt.Errorf("failed to delete property %s: %w", propertyID.Hex(), err)
	}
	if result.DeletedCount == 0 {
		return ErrPropertyNotFound
	}
	return nil
}

// delistProperty sets listingStatus to false. Delisting twice is a no-op.
func delistProperty(ctx context.Context, coll *mongo.Collection, propertyID primitive.ObjectID) error {
	result, err := coll.UpdateOne(ctx,
		bson.M{"_id": propertyID},
		bson.M{"$set": bson.M{"listingStatus": false, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to delist property %s: %w", propertyID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return ErrPropertyNotFound
	}
	return nil
}

// AddImageToProperty appends a processed image URL to the property.
// It should only be called after the image processing task is complete.
func (s *propertyService) AddImageToProperty(ctx context.Context, propertyID primitive.ObjectID, imageURL string) error {
	update := bson.M{
		"$addToSet": bson.M{"images": imageURL},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}

	result, err := s.properties().UpdateOne(ctx, bson.M{"_id": propertyID}, update)
	if err != nil {
		return fmt.Errorf("db error adding image %s to property %s: %w", imageURL, propertyID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return ErrPropertyNotFound
	}
	if result.ModifiedCount == 0 {
		log.Printf("Image %s already attached to property %s", imageURL, propertyID.Hex())
	}
	return nil
}

// SearchProperties runs a filtered, sorted and paginated property query.
func (s *propertyService) SearchProperties(ctx context.Context, params PropertySearchParams) (*PropertySearchPage, error) {
	params.Page, params.Limit = normalizePage(params.Page, params.Limit, s.cfg.DefaultSearchLimit, s.cfg.MaxPageLimit)
	filter := buildSearchFilter(params)
	opts := buildSearchOptions(params)

	total, err := s.properties().CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count search results: %w", err)
	}

	cursor, err := s.properties().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search properties: %w", err)
	}
	defer cursor.Close(ctx)

	page := &PropertySearchPage{Total: total, CurrentPage: params.Page}
	var returned int
	if params.PinsOnly {
		page.Pins = []models.PropertyPin{}
		if err := cursor.All(ctx, &page.Pins); err != nil {
			return nil, fmt.Errorf("failed to decode property pins: %w", err)
		}
		returned = len(page.Pins)
	} else {
		page.Properties = []models.Property{}
		if err := cursor.All(ctx, &page.Properties); err != nil {
			return nil, fmt.Errorf("failed to decode properties: %w", err)
		}
		returned = len(page.Properties)
	}

	skip := int64((params.Page - 1) * params.Limit)
	page.HasMore = skip+int64(returned) < total
	return page, nil
}

func (s *propertyService) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Property, error) {
	cursor, err := s.properties().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find properties: %w", err)
	}
	defer cursor.Close(ctx)

	properties := []models.Property{}
	if err := cursor.All(ctx, &properties); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}
	return properties, nil
}

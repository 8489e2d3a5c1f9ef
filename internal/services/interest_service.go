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

	"github.com/SaadNasir-Drago/Zolo/internal/config"
	"github.com/SaadNasir-Drago/Zolo/internal/db"
	"github.com/SaadNasir-Drago/Zolo/internal/models"
)

// IInterestService records buyers contacting sellers about a property.
type IInterestService interface {
	CreateInterest(ctx context.Context, property *models.Property, name, email, phone, message string) (*models.PropertyInterest, error)
	FindInterestByID(ctx context.Context, interestID primitive.ObjectID) (*models.PropertyInterest, error)
	MarkInterestSent(ctx context.Context, interestID primitive.ObjectID) error
}

// interestService implements IInterestService.
type interestService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewInterestService creates a new InterestService.
func NewInterestService(db *mongo.Database, cfg *config.Config) IInterestService {
	return &interestService{db: db, cfg: cfg}
}

func (s *interestService) interests() *mongo.Collection {
	return s.db.Collection(db.InterestsCollection)
}

// CreateInterest stores the buyer's note. The email to the seller is sent by a background task.
func (s *interestService) CreateInterest(ctx context.Context, property *models.Property, name, email, phone, message string) (*models.PropertyInterest, error) {
	if property == nil {
		return nil, ErrPropertyNotFound
	}
	if strings.TrimSpace(email) == "" {
		return nil, NewValidationError("email", "Invalid email")
	}
	if strings.TrimSpace(message) == "" {
		return nil, NewValidationError("message", "Message is required")
	}

	interest := &models.PropertyInterest{
		Base:       models.NewBase(),
		PropertyID: property.ID,
		SellerID:   property.UserID,
		Name:       strings.TrimSpace(name),
		Email:      strings.TrimSpace(email),
		Phone:      strings.TrimSpace(phone),
		Message:    message,
		Sent:       false,
		CreatedAt:  time.Now().UTC(),
	}

	if _, err := s.interests().InsertOne(ctx, interest); err != nil {
		return nil, fmt.Errorf("failed to save interest in property %s: %w", property.ID.Hex(), err)
	}
	return interest, nil
}

func (s *interestService) FindInterestByID(ctx context.Context, interestID primitive.ObjectID) (*models.PropertyInterest, error) {
	var interest models.PropertyInterest
	err := s.interests().FindOne(ctx, bson.M{"_id": interestID}).Decode(&interest)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("interest %s not found: %w", interestID.Hex(), ErrNotFound)
		}
		return nil, fmt.Errorf("error finding interest %s: %w", interestID.Hex(), err)
	}
	return &interest, nil
}

// MarkInterestSent flags the interest once the email went out. Marking twice is a no-op.
func (s *interestService) MarkInterestSent(ctx context.Context, interestID primitive.ObjectID) error {
	result, err := s.interests().UpdateOne(ctx, bson.M{"_id": interestID}, bson.M{"$set": bson.M{"sent": true}})
	if err != nil {
		return fmt.Errorf("failed to mark interest %s as sent: %w", interestID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("interest %s not found: %w", interestID.Hex(), ErrNotFound)
	}
	return nil
}

package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/SaadNasir-Drago/Zolo/internal/config"
	"github.com/SaadNasir-Drago/Zolo/internal/db"
	"github.com/SaadNasir-Drago/Zolo/internal/models"
	"github.com/SaadNasir-Drago/Zolo/internal/utils"
)

func testConfig() *config.Config {
	return &config.Config{
		AcceptDealRetries:  3,
		PasswordMinLength:  6,
		DefaultPageLimit:   20,
		DefaultSearchLimit: 20,
		DefaultRentLimit:   10,
		MaxPageLimit:       200,
	}
}

func setupServiceDB(t *testing.T, dbName string) *mongo.Database {
	database := utils.SetupTestDB(t, dbName,
		db.UsersCollection, db.PropertiesCollection, db.DealsCollection,
		db.MessagesCollection, db.InterestsCollection, db.EmailTemplatesCollection)
	require.NoError(t, db.EnsureIndexes(context.Background(), database))
	return database
}

type publishedEvent struct {
	Topic   string
	Type    string
	Payload interface{}
}

// recordingPublisher keeps every published event for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, topic, eventType string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Topic: topic, Type: eventType, Payload: payload})
	return nil
}

func (p *recordingPublisher) Events() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

func (p *recordingPublisher) OfType(eventType string) []publishedEvent {
	var out []publishedEvent
	for _, e := range p.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func insertTestUser(t *testing.T, database *mongo.Database, firstname, email string) *models.User {
	user := &models.User{
		Base:      models.NewBase(),
		Firstname: firstname,
		Lastname:  "Tester",
		Email:     email,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	_, err := database.Collection(db.UsersCollection).InsertOne(context.Background(), user)
	require.NoError(t, err)
	return user
}

func insertTestProperty(t *testing.T, database *mongo.Database, ownerID primitive.ObjectID, address string, price float64) *models.Property {
	property := &models.Property{
		Base:          models.NewBase(),
		UserID:        ownerID,
		Address:       address,
		Price:         price,
		Images:        []string{},
		Amenities:     []string{},
		ListingStatus: true,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	_, err := database.Collection(db.PropertiesCollection).InsertOne(context.Background(), property)
	require.NoError(t, err)
	return property
}

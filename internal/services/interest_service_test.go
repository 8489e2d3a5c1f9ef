package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestInterestService_CreateAndMarkSent(t *testing.T) {
	database := setupServiceDB(t, "testdb_interest")
	svc := NewInterestService(database, testConfig())
	ctx := context.Background()
	seller := primitive.NewObjectID()
	property := insertTestProperty(t, database, seller, "4 Quay St", 10)

	interest, err := svc.CreateInterest(ctx, property, "Bea", "bea@example.com", "555", "Still available?")
	require.NoError(t, err)
	assert.Equal(t, seller, interest.SellerID)
	assert.False(t, interest.Sent)

	require.NoError(t, svc.MarkInterestSent(ctx, interest.ID))
	found, err := svc.FindInterestByID(ctx, interest.ID)
	require.NoError(t, err)
	assert.True(t, found.Sent)

	assert.ErrorIs(t, svc.MarkInterestSent(ctx, primitive.NewObjectID()), ErrNotFound)
}

func TestInterestService_Validation(t *testing.T) {
	database := setupServiceDB(t, "testdb_interest_validation")
	svc := NewInterestService(database, testConfig())
	property := insertTestProperty(t, database, primitive.NewObjectID(), "x", 1)

	_, err := svc.CreateInterest(context.Background(), property, "Bea", "", "", "hi")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateInterest(context.Background(), nil, "Bea", "b@x.com", "", "hi")
	assert.ErrorIs(t, err, ErrPropertyNotFound)
}

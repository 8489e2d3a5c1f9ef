package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

// mockMongoDuplicateKeyError creates an error that IsMongoDuplicateKeyError will recognize.
func mockMongoDuplicateKeyError(key string) error {
	mongoErr := mongo.WriteError{
		Code:    11000,
		Message: fmt.Sprintf("E11000 duplicate key error collection: zolo.messages index: dealId_1_notice_1 dup key: { : \"%s\" }", key),
	}
	return mongo.WriteException{WriteErrors: []mongo.WriteError{mongoErr}}
}

func mockTransientError() error {
	return mongo.CommandError{
		Code:    112,
		Name:    "WriteConflict",
		Message: "write conflict",
		Labels:  []string{"TransientTransactionError"},
	}
}

func TestWithRetries_SuccessfulFirstAttempt(t *testing.T) {
	var opCalled int
	operation := func() error {
		opCalled++
		return nil
	}

	err := WithRetries(operation, 3, IsRetryableError)
	assert.NoError(t, err)
	assert.Equal(t, 1, opCalled)
}

func TestWithRetries_FailureNotRetryable(t *testing.T) {
	var opCalled int
	expectedErr := errors.New("some other error")
	operation := func() error {
		opCalled++
		return expectedErr
	}

	err := WithRetries(operation, 3, IsRetryableError)
	assert.ErrorIs(t, err, expectedErr)
	assert.Equal(t, 1, opCalled)
}

func TestWithRetries_ExhaustRetries(t *testing.T) {
	var opCalled int
	operation := func() error {
		opCalled++
		return mockMongoDuplicateKeyError("deal-closed")
	}

	maxRetries := 3
	err := WithRetries(operation, maxRetries, IsRetryableError)

	assert.Error(t, err)
	assert.True(t, IsMongoDuplicateKeyError(err))
	assert.Equal(t, maxRetries+1, opCalled)
}

func TestWithRetries_TransientResolves(t *testing.T) {
	var opCalled int
	operation := func() error {
		opCalled++
		if opCalled < 3 {
			return mockTransientError()
		}
		return nil
	}

	err := WithRetries(operation, 3, IsRetryableError)
	assert.NoError(t, err)
	assert.Equal(t, 3, opCalled)
}

func TestIsTransientError(t *testing.T) {
	assert.True(t, IsTransientError(mockTransientError()))
	assert.False(t, IsTransientError(errors.New("boom")))
	assert.False(t, IsTransientError(nil))
	assert.False(t, IsTransientError(mongo.CommandError{Code: 2, Name: "BadValue"}))
}

func TestIsTransactionUnsupportedError(t *testing.T) {
	standalone := mongo.CommandError{
		Code:    20,
		Name:    "IllegalOperation",
		Message: "Transaction numbers are only allowed on a replica set member or mongos",
	}
	assert.True(t, IsTransactionUnsupportedError(standalone))
	assert.True(t, IsTransactionUnsupportedError(fmt.Errorf("wrapped: %w", standalone)))
	assert.False(t, IsTransactionUnsupportedError(errors.New("connection refused")))
}

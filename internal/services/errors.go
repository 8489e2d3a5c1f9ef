package services

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// Sentinel errors shared by the services. Handlers map them onto status codes.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrAuth       = errors.New("invalid credentials")
)

// ErrNotFound is mongo.ErrNoDocuments. The specific not-found errors wrap it
// so callers may test either.
var ErrNotFound = mongo.ErrNoDocuments

var (
	ErrUserNotFound     = fmt.Errorf("user not found: %w", mongo.ErrNoDocuments)
	ErrPropertyNotFound = fmt.Errorf("property not found: %w", mongo.ErrNoDocuments)
	ErrDealNotFound     = fmt.Errorf("deal not found: %w", mongo.ErrNoDocuments)
	ErrNoMatchingDeals  = fmt.Errorf("no deals found for this property and seller: %w", mongo.ErrNoDocuments)
)

var (
	ErrEmailExists = fmt.Errorf("user already exists: %w", ErrConflict)
	ErrDealClosed  = fmt.Errorf("deal is closed: %w", ErrConflict)
)

// FieldError names one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every invalid field of a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Fields[0].Field, e.Fields[0].Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/SaadNasir-Drago/Zolo/internal/db"
	"github.com/SaadNasir-Drago/Zolo/internal/models"
)

// TemplatePropertyInterest is sent to a seller when a buyer uses the contact form.
const TemplatePropertyInterest = "property_interest"

// Default email templates used as fallback when not found in database
var defaultEmailTemplates = map[string]models.EmailTemplate{
	TemplatePropertyInterest: {
		TemplateID: TemplatePropertyInterest,
		Locale:     "en-US",
		Subject:    "Interest in Property at {{.address}}",
		Body: "Hello {{.seller_name}},\n\n" +
			"{{.name}} is interested in your property at {{.address}}.\n\n" +
			"Email: {{.email}}\nPhone: {{.phone}}\n\n" +
			"Message:\n{{.message}}\n",
	},
}

// IEmailTemplateService defines the interface for email template operations.
type IEmailTemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
	SaveTemplate(ctx context.Context, template *models.EmailTemplate) error
	DeleteTemplate(ctx context.Context, templateID, locale string) error
}

// EmailTemplateService handles operations related to email templates
type EmailTemplateService struct {
	db *mongo.Database
}

// NewEmailTemplateService creates a new instance of EmailTemplateService
func NewEmailTemplateService(db *mongo.Database) *EmailTemplateService {
	return &EmailTemplateService{
		db: db,
	}
}

func (s *EmailTemplateService) templates() *mongo.Collection {
	return s.db.Collection(db.EmailTemplatesCollection)
}

// GetTemplate retrieves an email template by ID and locale
func (s *EmailTemplateService) GetTemplate(ctx context.Context, templateID string, locale string) (*models.EmailTemplate, error) {
	filter := bson.M{
		"templateId": templateID,
		"locale":     locale,
	}

	var template models.EmailTemplate
	err := s.templates().FindOne(ctx, filter).Decode(&template)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// If template not found in DB, try to get from defaults
			if defaultTemplate, ok := defaultEmailTemplates[templateID]; ok {
				return &defaultTemplate, nil
			}
			return nil, fmt.Errorf("template not found: %s (locale: %s): %w", templateID, locale, ErrNotFound)
		}
		return nil, fmt.Errorf("error retrieving template: %w", err)
	}

	return &template, nil
}

// SaveTemplate saves an email template to the database
func (s *EmailTemplateService) SaveTemplate(ctx context.Context, template *models.EmailTemplate) error {
	filter := bson.M{
		"templateId": template.TemplateID,
		"locale":     template.Locale,
	}

	update := bson.M{"$set": bson.M{
		"templateId": template.TemplateID,
		"locale":     template.Locale,
		"subject":    template.Subject,
		"body":       template.Body,
	}}
	opts := options.Update().SetUpsert(true)

	_, err := s.templates().UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("error saving template: %w", err)
	}

	return nil
}

// DeleteTemplate deletes an email template from the database
func (s *EmailTemplateService) DeleteTemplate(ctx context.Context, templateID string, locale string) error {
	filter := bson.M{
		"templateId": templateID,
		"locale":     locale,
	}

	_, err := s.templates().DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("error deleting template: %w", err)
	}

	return nil
}

package models

// EmailTemplate defines the structure for email templates stored in the DB.
type EmailTemplate struct {
	Base       `bson:",inline"`
	TemplateID string `bson:"templateId" json:"templateId"` // e.g., "property_interest"
	Locale     string `bson:"locale" json:"locale"`         // e.g., "en-US"
	Subject    string `bson:"subject" json:"subject"`       // Subject template
	Body       string `bson:"body" json:"body"`             // Plain text body template
}

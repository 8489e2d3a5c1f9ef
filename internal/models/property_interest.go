package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PropertyInterest records a prospective buyer contacting a seller about a listing.
type PropertyInterest struct {
	Base       `bson:",inline"`
	PropertyID primitive.ObjectID `bson:"propertyId" json:"propertyId"`
	SellerID   primitive.ObjectID `bson:"sellerId" json:"sellerId"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"` // Reply-to address provided by the buyer
	Phone      string             `bson:"phone" json:"phone"`
	Message    string             `bson:"message" json:"message"`
	Sent       bool               `bson:"sent" json:"sent"` // False initially, true after the background task sends the email
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

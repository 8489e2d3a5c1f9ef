package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DealStatus is the negotiation state of a Deal.
type DealStatus string

const (
	DealStatusOngoing  DealStatus = "ongoing"
	DealStatusAccepted DealStatus = "accepted"
	DealStatusRejected DealStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s DealStatus) IsTerminal() bool {
	return s == DealStatusAccepted || s == DealStatusRejected
}

// Deal is a negotiation between one buyer and one seller over one Property.
type Deal struct {
	Base         `bson:",inline"`
	BuyerID      primitive.ObjectID `bson:"buyerId" json:"buyerId"`
	SellerID     primitive.ObjectID `bson:"sellerId" json:"sellerId"`
	PropertyID   primitive.ObjectID `bson:"propertyId" json:"propertyId"`
	InitialPrice float64            `bson:"initialPrice" json:"initialPrice"`
	OfferPrice   float64            `bson:"offerPrice" json:"offerPrice"`
	FinalPrice   float64            `bson:"finalPrice" json:"finalPrice"`
	Status       DealStatus         `bson:"status" json:"status"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// HasParticipant reports whether userID is the buyer or the seller of the deal.
func (d *Deal) HasParticipant(userID primitive.ObjectID) bool {
	return !userID.IsZero() && (d.BuyerID == userID || d.SellerID == userID)
}

// DealSummary is a Deal as listed to one of its participants.
type DealSummary struct {
	ID              string       `bson:"_id" json:"_id"`
	BuyerID         string       `bson:"buyerId" json:"buyerId"`
	SellerID        string       `bson:"sellerId" json:"sellerId"`
	PropertyID      string       `bson:"propertyId" json:"propertyId"`
	InitialPrice    float64      `bson:"initialPrice" json:"initialPrice"`
	OfferPrice      float64      `bson:"offerPrice" json:"offerPrice"`
	FinalPrice      float64      `bson:"finalPrice" json:"finalPrice"`
	Status          DealStatus   `bson:"status" json:"status"`
	CreatedAt       time.Time    `bson:"createdAt" json:"createdAt"`
	PropertyAddress string       `bson:"propertyAddress" json:"propertyAddress"`
	OtherUser       *Counterpart `bson:"otherUser" json:"otherUser"`
}

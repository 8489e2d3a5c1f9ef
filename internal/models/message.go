package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// System notices appended to deal threads by the negotiation lifecycle.
const (
	NoticeTextPropertySold  = "This property has been sold to another buyer. This chat is now closed."
	NoticeTextOfferAccepted = "This Offer has been accepted. This chat is now closed"
	NoticeTextOfferDeclined = "The offer has been declined."
)

// Notice keys. A thread holds at most one message per key.
const (
	NoticePropertySold  = "property_sold"
	NoticeOfferAccepted = "offer_accepted"
	NoticeOfferDeclined = "offer_declined"
)

// Message is a chat line in a Deal thread. Exactly one of BuyerID/SellerID names the author.
// Notice is set on system lines; a thread holds at most one line per notice key.
type Message struct {
	Base       `bson:",inline"`
	BuyerID    *primitive.ObjectID `bson:"buyerId,omitempty" json:"buyerId,omitempty"`
	SellerID   *primitive.ObjectID `bson:"sellerId,omitempty" json:"sellerId,omitempty"`
	PropertyID primitive.ObjectID  `bson:"propertyId" json:"propertyId"`
	DealID     primitive.ObjectID  `bson:"dealId" json:"dealId"`
	Content    string              `bson:"content" json:"content"`
	Offer      bool                `bson:"offer" json:"offer"`
	Notice     string              `bson:"notice,omitempty" json:"-"`
	CreatedAt  time.Time           `bson:"createdAt" json:"createdAt"`
}

// OfferAmount returns the amount of an offer message. ok is false for plain
// chat lines and for offers whose content does not hold a price.
func (m *Message) OfferAmount() (amount int64, ok bool) {
	if !m.Offer {
		return 0, false
	}
	amount, err := ParseOfferAmount(m.Content)
	if err != nil {
		return 0, false
	}
	return amount, true
}

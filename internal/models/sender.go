package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SenderRole names which side of a deal authored a message.
type SenderRole string

const (
	SenderBuyer  SenderRole = "buyer"
	SenderSeller SenderRole = "seller"
)

// Sender is the author of a message, resolved once at the API boundary.
// An empty ID means "the deal's party for this role".
type Sender struct {
	Role SenderRole
	ID   primitive.ObjectID
}

func BuyerSender(id primitive.ObjectID) Sender {
	return Sender{Role: SenderBuyer, ID: id}
}

func SellerSender(id primitive.ObjectID) Sender {
	return Sender{Role: SenderSeller, ID: id}
}

func (s Sender) Valid() bool {
	return s.Role == SenderBuyer || s.Role == SenderSeller
}

// ResolveFor fills a missing ID from the deal.
func (s Sender) ResolveFor(d *Deal) Sender {
	if !s.ID.IsZero() {
		return s
	}
	switch s.Role {
	case SenderBuyer:
		s.ID = d.BuyerID
	case SenderSeller:
		s.ID = d.SellerID
	}
	return s
}

// Stamp sets the author field of m.
func (s Sender) Stamp(m *Message) {
	id := s.ID
	switch s.Role {
	case SenderBuyer:
		m.BuyerID, m.SellerID = &id, nil
	case SenderSeller:
		m.SellerID, m.BuyerID = &id, nil
	}
}

// SenderForUser maps a participant of d onto their role. ok is false when the user is not on the deal.
func SenderForUser(d *Deal, userID primitive.ObjectID) (Sender, bool) {
	switch {
	case userID.IsZero():
		return Sender{}, false
	case userID == d.BuyerID:
		return BuyerSender(userID), true
	case userID == d.SellerID:
		return SellerSender(userID), true
	}
	return Sender{}, false
}

package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Base carries the document id. It is rendered as "_id" so existing clients keep working.
type Base struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
}

func NewBase() Base {
	return Base{
		ID: primitive.NewObjectID(),
	}
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Property is a listing. ListingStatus true means it is active and searchable.
type Property struct {
	Base          `bson:",inline"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	Address       string             `bson:"address" json:"address"`
	Price         float64            `bson:"price" json:"price"`
	Bath          int                `bson:"bath" json:"bath"`
	Bed           int                `bson:"bed" json:"bed"`
	Size          float64            `bson:"size" json:"size"`
	Description   string             `bson:"description" json:"description"`
	Images        []string           `bson:"images" json:"images"`
	PropertyType  string             `bson:"propertyType" json:"propertyType"`
	Lat           float64            `bson:"lat" json:"lat"`
	Long          float64            `bson:"long" json:"long"`
	IsForRent     bool               `bson:"isForRent" json:"isForRent"`
	IsForSale     bool               `bson:"isForSale" json:"isForSale"`
	Amenities     []string           `bson:"amenities" json:"amenities"`
	ListingStatus bool               `bson:"listingStatus" json:"listingStatus"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// PropertyPin is the reduced projection used by map views (fieldsOnly=id,lat,long,price).
type PropertyPin struct {
	ID    primitive.ObjectID `bson:"_id" json:"_id"`
	Lat   float64            `bson:"lat" json:"lat"`
	Long  float64            `bson:"long" json:"long"`
	Price float64            `bson:"price" json:"price"`
}

// PropertyUpdate holds the fields a caller wants to replace. Nil fields keep the stored value.
type PropertyUpdate struct {
	Address      *string  `json:"address"`
	Price        *float64 `json:"price"`
	Bath         *int     `json:"bath"`
	Bed          *int     `json:"bed"`
	Size         *float64 `json:"size"`
	Description  *string  `json:"description"`
	PropertyType *string  `json:"propertyType"`
	Lat          *float64 `json:"lat"`
	Long         *float64 `json:"long"`
	IsForRent    *bool    `json:"isForRent"`
	IsForSale    *bool    `json:"isForSale"`
	Amenities    []string `json:"amenities"`
	Images       []string `json:"images"`
}

package services

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/SaadNasir-Drago/Zolo/internal/models"
)

// GeoBounds is the visible map rectangle.
type GeoBounds struct {
	MinLat  float64
	MaxLat  float64
	MinLong float64
	MaxLong float64
}

// PropertySearchParams holds the parsed search query. Nil pointers are
// filters the caller did not supply.
type PropertySearchParams struct {
	Page          int
	Limit         int
	Bounds        *GeoBounds
	IsForRent     *bool
	IsForSale     *bool
	ListingStatus *bool
	PropertyType  string
	MinPrice      *float64
	MaxPrice      *float64
	Beds          *int
	Baths         *int
	SearchTerm    string
	SortBy        string
	SortOrder     string
	PinsOnly      bool
}

// PropertySearchPage is one page of search results.
// Exactly one of Properties and Pins is filled, depending on PinsOnly.
type PropertySearchPage struct {
	Properties  []models.Property    `json:"properties,omitempty"`
	Pins        []models.PropertyPin `json:"pins,omitempty"`
	Total       int64                `json:"total"`
	HasMore     bool                 `json:"hasMore"`
	CurrentPage int                  `json:"currentPage"`
}

var sortableFields = map[string]string{
	"price":     "price",
	"createdAt": "createdAt",
}

// buildSearchFilter turns search params into a MongoDB filter.
func buildSearchFilter(p PropertySearchParams) bson.M {
	filter := bson.M{}

	if p.Bounds != nil {
		filter["lat"] = bson.M{"$gte": p.Bounds.MinLat, "$lte": p.Bounds.MaxLat}
		filter["long"] = bson.M{"$gte": p.Bounds.MinLong, "$lte": p.Bounds.MaxLong}
	}
	if p.IsForRent != nil {
		filter["isForRent"] = *p.IsForRent
	}
	if p.IsForSale != nil {
		filter["isForSale"] = *p.IsForSale
	}
	if p.ListingStatus != nil {
		filter["listingStatus"] = *p.ListingStatus
	}
	if p.PropertyType != "" && p.PropertyType != "all" {
		filter["propertyType"] = p.PropertyType
	}

	price := bson.M{}
	if p.MinPrice != nil {
		price["$gte"] = *p.MinPrice
	}
	if p.MaxPrice != nil {
		price["$lte"] = *p.MaxPrice
	}
	if len(price) > 0 {
		filter["price"] = price
	}

	if p.Beds != nil {
		filter["bed"] = bson.M{"$gte": *p.Beds}
	}
	if p.Baths != nil {
		filter["bath"] = bson.M{"$gte": *p.Baths}
	}

	if p.SearchTerm != "" {
		pattern := regexp.QuoteMeta(p.SearchTerm)
		filter["$or"] = bson.A{
			bson.M{"address": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"description": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}

	return filter
}

// buildSearchOptions applies paging, sort and the pin projection.
// Unknown sort fields fall back to price ascending.
func buildSearchOptions(p PropertySearchParams) *options.FindOptions {
	opts := options.Find().
		SetSkip(int64((p.Page - 1) * p.Limit)).
		SetLimit(int64(p.Limit))

	field, ok := sortableFields[p.SortBy]
	if !ok {
		field = "price"
	}
	order := 1
	if p.SortOrder == "desc" {
		order = -1
	}
	opts.SetSort(bson.D{{Key: field, Value: order}, {Key: "_id", Value: order}})

	if p.PinsOnly {
		opts.SetProjection(bson.M{"_id": 1, "lat": 1, "long": 1, "price": 1})
	}
	return opts
}

// normalizePage clamps page and limit into usable values.
func normalizePage(page, limit, defaultLimit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

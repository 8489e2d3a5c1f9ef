package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func boolPtr(b bool) *bool        { return &b }
func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

func TestBuildSearchFilter_Empty(t *testing.T) {
	assert.Empty(t, buildSearchFilter(PropertySearchParams{}))
}

func TestBuildSearchFilter_AllFilters(t *testing.T) {
	filter := buildSearchFilter(PropertySearchParams{
		Bounds:        &GeoBounds{MinLat: 1, MaxLat: 2, MinLong: 3, MaxLong: 4},
		IsForSale:     boolPtr(true),
		ListingStatus: boolPtr(true),
		PropertyType:  "house",
		MinPrice:      floatPtr(100),
		MaxPrice:      floatPtr(500),
		Beds:          intPtr(3),
		Baths:         intPtr(2),
		SearchTerm:    "ocean",
	})

	assert.Equal(t, bson.M{"$gte": 1.0, "$lte": 2.0}, filter["lat"])
	assert.Equal(t, bson.M{"$gte": 3.0, "$lte": 4.0}, filter["long"])
	assert.Equal(t, true, filter["isForSale"])
	assert.NotContains(t, filter, "isForRent")
	assert.Equal(t, true, filter["listingStatus"])
	assert.Equal(t, "house", filter["propertyType"])
	assert.Equal(t, bson.M{"$gte": 100.0, "$lte": 500.0}, filter["price"])
	assert.Equal(t, bson.M{"$gte": 3}, filter["bed"])
	assert.Equal(t, bson.M{"$gte": 2}, filter["bath"])
	assert.Len(t, filter["$or"], 2)
}

func TestBuildSearchFilter_PropertyTypeAll(t *testing.T) {
	filter := buildSearchFilter(PropertySearchParams{PropertyType: "all"})
	assert.NotContains(t, filter, "propertyType")
}

func TestBuildSearchFilter_OnlyMinPrice(t *testing.T) {
	filter := buildSearchFilter(PropertySearchParams{MinPrice: floatPtr(250)})
	assert.Equal(t, bson.M{"$gte": 250.0}, filter["price"])
}

func TestBuildSearchFilter_EscapesSearchTerm(t *testing.T) {
	filter := buildSearchFilter(PropertySearchParams{SearchTerm: "a+b(c"})
	or := filter["$or"].(bson.A)
	address := or[0].(bson.M)["address"].(bson.M)
	assert.Equal(t, `a\+b\(c`, address["$regex"])
	assert.Equal(t, "i", address["$options"])
}

func TestBuildSearchOptions(t *testing.T) {
	opts := buildSearchOptions(PropertySearchParams{Page: 3, Limit: 10, SortBy: "price", SortOrder: "desc", PinsOnly: true})
	assert.Equal(t, int64(20), *opts.Skip)
	assert.Equal(t, int64(10), *opts.Limit)
	assert.Equal(t, bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: -1}}, opts.Sort)
	assert.Equal(t, bson.M{"_id": 1, "lat": 1, "long": 1, "price": 1}, opts.Projection)
}

func TestBuildSearchOptions_UnknownSortFallsBack(t *testing.T) {
	opts := buildSearchOptions(PropertySearchParams{Page: 1, Limit: 5, SortBy: "password"})
	assert.Equal(t, bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: 1}}, opts.Sort)
	assert.Nil(t, opts.Projection)
}

func TestNormalizePage(t *testing.T) {
	page, limit := normalizePage(0, 0, 20, 200)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)

	page, limit = normalizePage(4, 1000, 20, 200)
	assert.Equal(t, 4, page)
	assert.Equal(t, 200, limit)
}

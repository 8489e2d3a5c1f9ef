package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/SaadNasir-Drago/Zolo/internal/api/middleware"
	"github.com/SaadNasir-Drago/Zolo/internal/models"
	"github.com/SaadNasir-Drago/Zolo/internal/services"
)

// RestPropertyHandler handles REST requests for property listings.
type RestPropertyHandler struct {
	propertyService services.IPropertyService
}

func NewRestPropertyHandler(propertyService services.IPropertyService) *RestPropertyHandler {
	return &RestPropertyHandler{propertyService: propertyService}
}

type propertyRequest struct {
	Address      string   `json:"address" binding:"required"`
	Price        float64  `json:"price" binding:"gte=0"`
	Bath         int      `json:"bath" binding:"gte=0"`
	Bed          int      `json:"bed" binding:"gte=0"`
	Size         float64  `json:"size" binding:"gte=0"`
	Description  string   `json:"description"`
	Images       []string `json:"images"`
	PropertyType string   `json:"propertyType"`
	Lat          float64  `json:"lat" binding:"gte=-90,lte=90"`
	Long         float64  `json:"long" binding:"gte=-180,lte=180"`
	IsForRent    bool     `json:"isForRent"`
	IsForSale    bool     `json:"isForSale"`
	Amenities    []string `json:"amenities"`
}

func (r propertyRequest) draft() models.Property {
	return models.Property{
		Address:      r.Address,
		Price:        r.Price,
		Bath:         r.Bath,
		Bed:          r.Bed,
		Size:         r.Size,
		Description:  r.Description,
		Images:       r.Images,
		PropertyType: r.PropertyType,
		Lat:          r.Lat,
		Long:         r.Long,
		IsForRent:    r.IsForRent,
		IsForSale:    r.IsForSale,
		Amenities:    r.Amenities,
	}
}

// callerID returns the authenticated user's id. AuthMiddleware guarantees a
// value; a malformed one is treated as an invalid token.
func callerID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Token is not valid"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// queryInt returns the integer query parameter, or 0 when absent or malformed.
func queryInt(c *gin.Context, key string) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return v
}

func queryFloatPtr(c *gin.Context, key string) *float64 {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func queryIntPtr(c *gin.Context, key string) *int {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}

// queryBoolPtr treats "true" as true and any other supplied value as false.
func queryBoolPtr(c *gin.Context, key string) *bool {
	raw, ok := c.GetQuery(key)
	if !ok {
		return nil
	}
	v := raw == "true"
	return &v
}

// parseSearchParams reads the search query string. Bounds apply only when all four edges are present.
func parseSearchParams(c *gin.Context) services.PropertySearchParams {
	params := services.PropertySearchParams{
		Page:          queryInt(c, "page"),
		Limit:         queryInt(c, "limit"),
		IsForRent:     queryBoolPtr(c, "isForRent"),
		IsForSale:     queryBoolPtr(c, "isForSale"),
		ListingStatus: queryBoolPtr(c, "listingStatus"),
		PropertyType:  c.Query("propertyType"),
		MinPrice:      queryFloatPtr(c, "minPrice"),
		MaxPrice:      queryFloatPtr(c, "maxPrice"),
		Beds:          queryIntPtr(c, "beds"),
		Baths:         queryIntPtr(c, "baths"),
		SearchTerm:    c.Query("searchTerm"),
		SortBy:        c.Query("sortBy"),
		SortOrder:     c.Query("sortOrder"),
		PinsOnly:      c.Query("fieldsOnly") == "id,lat,long,price",
	}

	minLat, maxLat := queryFloatPtr(c, "minLat"), queryFloatPtr(c, "maxLat")
	minLng, maxLng := queryFloatPtr(c, "minLng"), queryFloatPtr(c, "maxLng")
	if minLat != nil && maxLat != nil && minLng != nil && maxLng != nil {
		params.Bounds = &services.GeoBounds{MinLat: *minLat, MaxLat: *maxLat, MinLong: *minLng, MaxLong: *maxLng}
	}
	return params
}

// CreateProperty handles POST /api/property
func (h *RestPropertyHandler) CreateProperty(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	var req propertyRequest
	if !bindJSON(c, &req) {
		return
	}

	property, err := h.propertyService.CreateProperty(c.Request.Context(), ownerID, req.draft())
	if err != nil {
		respondError(c, err, "Error creating property")
		return
	}
	c.JSON(http.StatusCreated, property)
}

// ListProperties handles GET /api/property
func (h *RestPropertyHandler) ListProperties(c *gin.Context) {
	properties, err := h.propertyService.ListActiveProperties(c.Request.Context(), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		respondError(c, err, "Error fetching properties")
		return
	}
	c.JSON(http.StatusOK, properties)
}

// SearchProperties handles GET /api/properties/search
func (h *RestPropertyHandler) SearchProperties(c *gin.Context) {
	params := parseSearchParams(c)
	page, err := h.propertyService.SearchProperties(c.Request.Context(), params)
	if err != nil {
		respondError(c, err, "Internal server error")
		return
	}

	var properties interface{} = page.Properties
	if params.PinsOnly {
		properties = page.Pins
		if page.Pins == nil {
			properties = []models.PropertyPin{}
		}
	} else if page.Properties == nil {
		properties = []models.Property{}
	}

	c.JSON(http.StatusOK, gin.H{
		"properties":  properties,
		"total":       page.Total,
		"hasMore":     page.HasMore,
		"currentPage": page.CurrentPage,
	})
}

// ListRentProperties handles GET /api/properties/rent
func (h *RestPropertyHandler) ListRentProperties(c *gin.Context) {
	page, err := h.propertyService.ListRentProperties(c.Request.Context(), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		respondError(c, err, "Server error")
		return
	}
	if len(page.Properties) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "No properties available for rent."})
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetProperty handles GET /api/properties/:id and GET /api/getProperty/:id
func (h *RestPropertyHandler) GetProperty(c *gin.Context) {
	propertyID, ok := parseID(c, "id", c.Param("id"))
	if !ok {
		return
	}
	property, err := h.propertyService.FindPropertyByID(c.Request.Context(), propertyID)
	if err != nil {
		respondError(c, err, "Error fetching property")
		return
	}
	c.JSON(http.StatusOK, property)
}

// UpdateProperty handles PUT /api/updateProperty/:id. Only supplied fields change.
func (h *RestPropertyHandler) UpdateProperty(c *gin.Context) {
	propertyID, ok := parseID(c, "id", c.Param("id"))
	if !ok {
		return
	}
	var update models.PropertyUpdate
	if !bindJSON(c, &update) {
		return
	}

	property, err := h.propertyService.UpdateProperty(c.Request.Context(), propertyID, update)
	if err != nil {
		respondError(c, err, "Error updating property")
		return
	}
	c.JSON(http.StatusOK, property)
}

// DeleteProperty handles DELETE /api/properties/:id
func (h *RestPropertyHandler) DeleteProperty(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	propertyID, ok := parseID(c, "id", c.Param("id"))
	if !ok {
		return
	}

	if err := h.propertyService.DeleteProperty(c.Request.Context(), propertyID, ownerID); err != nil {
		respondError(c, err, "Error deleting property")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Property deleted successfully"})
}

// ListUserProperties handles GET /api/user-properties
func (h *RestPropertyHandler) ListUserProperties(c *gin.Context) {
	ownerID, ok := callerID(c)
	if !ok {
		return
	}
	properties, err := h.propertyService.ListPropertiesByOwner(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err, "Server error while fetching properties")
		return
	}
	c.JSON(http.StatusOK, properties)
}

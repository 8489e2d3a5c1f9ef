package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/SaadNasir-Drago/Zolo/internal/api/middleware"
	"github.com/SaadNasir-Drago/Zolo/internal/models"
	"github.com/SaadNasir-Drago/Zolo/internal/services"
)

// RestDealHandler handles the negotiation endpoints.
type RestDealHandler struct {
	dealService services.IDealService
}

func NewRestDealHandler(dealService services.IDealService) *RestDealHandler {
	return &RestDealHandler{dealService: dealService}
}

type createDealRequest struct {
	BuyerID      string  `json:"buyerId" binding:"required"`
	SellerID     string  `json:"sellerId" binding:"required"`
	PropertyID   string  `json:"propertyId" binding:"required"`
	InitialPrice float64 `json:"initialPrice" binding:"gte=0"`
	OfferPrice   float64 `json:"offerPrice" binding:"gte=0"`
	FinalPrice   float64 `json:"finalPrice" binding:"gte=0"`
}

// optionalCaller returns the caller's id when OptionalAuth resolved one.
func optionalCaller(c *gin.Context) primitive.ObjectID {
	id, err := primitive.ObjectIDFromHex(middleware.UserID(c))
	if err != nil {
		return primitive.NilObjectID
	}
	return id
}

// CreateDeal handles POST /api/deal
func (h *RestDealHandler) CreateDeal(c *gin.Context) {
	var req createDealRequest
	if !bindJSON(c, &req) {
		return
	}

	deal, err := h.dealService.CreateDeal(c.Request.Context(), services.DealInput{
		BuyerID:      req.BuyerID,
		SellerID:     req.SellerID,
		PropertyID:   req.PropertyID,
		InitialPrice: req.InitialPrice,
		OfferPrice:   req.OfferPrice,
		FinalPrice:   req.FinalPrice,
	})
	if err != nil {
		respondError(c, err, "Server error")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Deal created successfully", "newDeal": deal})
}

// ListDeals handles GET /api/deals
func (h *RestDealHandler) ListDeals(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	deals, err := h.dealService.GetDealsForUser(c.Request.Context(), userID, queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		respondError(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deals": deals})
}

// ListUserDeals handles GET /api/user-deals
func (h *RestDealHandler) ListUserDeals(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	page, err := h.dealService.GetUserDeals(c.Request.Context(), userID, queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		respondError(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetDealProperty handles GET /api/dealProperty?dealId=
func (h *RestDealHandler) GetDealProperty(c *gin.Context) {
	dealID, ok := parseID(c, "dealId", c.Query("dealId"))
	if !ok {
		return
	}
	property, err := h.dealService.GetDealProperty(c.Request.Context(), dealID)
	if err != nil {
		respondError(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"property": property})
}

// actingSender resolves who closes the deal. A participant's token decides the
// role; anonymous callers act as the seller.
func (h *RestDealHandler) actingSender(c *gin.Context, dealID primitive.ObjectID) (models.Sender, bool) {
	deal, err := h.dealService.FindDealByID(c.Request.Context(), dealID)
	if err != nil {
		respondError(c, err, "Server error")
		return models.Sender{}, false
	}
	if sender, ok := models.SenderForUser(deal, optionalCaller(c)); ok {
		return sender, true
	}
	return models.SellerSender(deal.SellerID), true
}

// AcceptDeal handles PUT /api/acceptDeal?dealId=
func (h *RestDealHandler) AcceptDeal(c *gin.Context) {
	dealID, ok := parseID(c, "dealId", c.Query("dealId"))
	if !ok {
		return
	}
	sender, ok := h.actingSender(c, dealID)
	if !ok {
		return
	}

	deal, err := h.dealService.AcceptDeal(c.Request.Context(), dealID, sender)
	if err != nil {
		respondError(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deal status updated to accepted", "updatedDeal": deal})
}

// DeclineDeal handles PUT /api/declineDeal?dealId=
func (h *RestDealHandler) DeclineDeal(c *gin.Context) {
	dealID, ok := parseID(c, "dealId", c.Query("dealId"))
	if !ok {
		return
	}
	sender, ok := h.actingSender(c, dealID)
	if !ok {
		return
	}

	deal, err := h.dealService.DeclineDeal(c.Request.Context(), dealID, sender)
	if err != nil {
		respondError(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deal status updated to rejected", "updatedDeal": deal})
}

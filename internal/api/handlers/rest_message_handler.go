package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/SaadNasir-Drago/Zolo/internal/models"
	"github.com/SaadNasir-Drago/Zolo/internal/services"
)

// RestMessageHandler handles deal chat endpoints.
type RestMessageHandler struct {
	messageService services.IMessageService
	dealService    services.IDealService
}

func NewRestMessageHandler(messageService services.IMessageService, dealService services.IDealService) *RestMessageHandler {
	return &RestMessageHandler{messageService: messageService, dealService: dealService}
}

type sendMessageRequest struct {
	DealID   string `json:"dealId" binding:"required"`
	Content  string `json:"content" binding:"required"`
	Offer    bool   `json:"offer"`
	BuyerID  string `json:"buyerId"`
	SellerID string `json:"sellerId"`
}

type broadcastRequest struct {
	PropertyID string `json:"propertyId" binding:"required"`
	SellerID   string `json:"sellerId" binding:"required"`
	Content    string `json:"content" binding:"required"`
	Offer      bool   `json:"offer"`
	DealID     string `json:"dealId"` // Excluded from the broadcast
}

// messageSender resolves the author of a chat line: an explicit buyerId or
// sellerId first, then the caller's token. The id must belong to the deal.
func messageSender(deal *models.Deal, req sendMessageRequest, caller primitive.ObjectID) (models.Sender, error) {
	if req.BuyerID != "" && req.SellerID != "" {
		return models.Sender{}, services.NewValidationError("sender", "Only one of buyerId or sellerId may be set")
	}

	var role models.SenderRole
	var raw string
	switch {
	case req.BuyerID != "":
		role, raw = models.SenderBuyer, req.BuyerID
	case req.SellerID != "":
		role, raw = models.SenderSeller, req.SellerID
	default:
		if sender, ok := models.SenderForUser(deal, caller); ok {
			return sender, nil
		}
		return models.Sender{}, services.NewValidationError("sender", "buyerId or sellerId is required")
	}

	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return models.Sender{}, services.NewValidationError(string(role)+"Id", "Invalid id")
	}
	sender, ok := models.SenderForUser(deal, id)
	if !ok || sender.Role != role {
		return models.Sender{}, services.NewValidationError(string(role)+"Id", "Not a party to this deal")
	}
	return sender, nil
}

// SendMessage handles POST /api/message
func (h *RestMessageHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	dealID, ok := parseID(c, "dealId", req.DealID)
	if !ok {
		return
	}

	deal, err := h.dealService.FindDealByID(c.Request.Context(), dealID)
	if err != nil {
		respondError(c, err, "Server error")
		return
	}
	sender, err := messageSender(deal, req, optionalCaller(c))
	if err != nil {
		respondError(c, err, "Server error")
		return
	}

	msg, err := h.messageService.SendMessage(c.Request.Context(), dealID, req.Content, req.Offer, sender)
	if err != nil {
		respondError(c, err, "Server error")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Message sent successfully", "savedMessage": msg})
}

// ListMessages handles GET /api/message?dealId=
func (h *RestMessageHandler) ListMessages(c *gin.Context) {
	dealID, ok := parseID(c, "dealId", c.Query("dealId"))
	if !ok {
		return
	}
	messages, err := h.messageService.ListMessages(c.Request.Context(), dealID)
	if err != nil {
		respondError(c, err, "Server error")
		return
	}
	if len(messages) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "No messages found for this deal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// BroadcastToBuyers handles POST /api/messageAll
func (h *RestMessageHandler) BroadcastToBuyers(c *gin.Context) {
	var req broadcastRequest
	if !bindJSON(c, &req) {
		return
	}
	propertyID, ok := parseID(c, "propertyId", req.PropertyID)
	if !ok {
		return
	}
	sellerID, ok := parseID(c, "sellerId", req.SellerID)
	if !ok {
		return
	}
	excludeID := primitive.NilObjectID
	if req.DealID != "" {
		if excludeID, ok = parseID(c, "dealId", req.DealID); !ok {
			return
		}
	}

	messages, err := h.messageService.BroadcastToAllBuyers(c.Request.Context(), propertyID, sellerID, req.Content, req.Offer, excludeID)
	if err != nil {
		respondError(c, err, "Server error")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Messages sent successfully", "messages": messages})
}

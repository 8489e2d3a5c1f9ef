package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SaadNasir-Drago/Zolo/internal/config"
	"github.com/SaadNasir-Drago/Zolo/internal/services"
	"github.com/SaadNasir-Drago/Zolo/internal/tasks"
)

// RestInterestHandler handles the contact-the-seller form.
type RestInterestHandler struct {
	cfg             *config.Config
	taskClient      IAsynqClient
	propertyService services.IPropertyService
	userService     services.IUserService
	interestService services.IInterestService
}

func NewRestInterestHandler(
	cfg *config.Config,
	taskClient IAsynqClient,
	propertyService services.IPropertyService,
	userService services.IUserService,
	interestService services.IInterestService,
) *RestInterestHandler {
	return &RestInterestHandler{
		cfg:             cfg,
		taskClient:      taskClient,
		propertyService: propertyService,
		userService:     userService,
		interestService: interestService,
	}
}

type interestRequest struct {
	PropertyID string `json:"propertyId" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Phone      string `json:"phone"`
	Message    string `json:"message" binding:"required"`
}

// SendInterest handles POST /api/email. The mail itself is sent by the email:deliver task.
func (h *RestInterestHandler) SendInterest(c *gin.Context) {
	var req interestRequest
	if !bindJSON(c, &req) {
		return
	}
	propertyID, ok := parseID(c, "propertyId", req.PropertyID)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	property, err := h.propertyService.FindPropertyByID(ctx, propertyID)
	if err != nil {
		respondError(c, err, "Something went wrong")
		return
	}
	seller, err := h.userService.FindByID(ctx, property.UserID)
	if err != nil {
		respondError(c, err, "Something went wrong")
		return
	}

	interest, err := h.interestService.CreateInterest(ctx, property, req.Name, req.Email, req.Phone, req.Message)
	if err != nil {
		respondError(c, err, "Something went wrong")
		return
	}

	task, err := tasks.NewEmailDeliveryTask(tasks.EmailTaskPayload{
		To:         seller.Email,
		ReplyTo:    interest.Email,
		TemplateID: services.TemplatePropertyInterest,
		Locale:     h.cfg.DefaultLocale,
		Data: map[string]interface{}{
			"seller_name": seller.FullName(),
			"name":        interest.Name,
			"address":     property.Address,
			"email":       interest.Email,
			"phone":       interest.Phone,
			"message":     interest.Message,
		},
		InterestID: interest.ID.Hex(),
	})
	if err != nil {
		respondError(c, err, "Failed to send email")
		return
	}
	if _, err := h.taskClient.EnqueueContext(ctx, task); err != nil {
		respondError(c, err, "Failed to send email")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email sent successfully"})
}

package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/SaadNasir-Drago/Zolo/internal/models"
	"github.com/SaadNasir-Drago/Zolo/internal/services"
	"github.com/SaadNasir-Drago/Zolo/internal/storage"
	"github.com/SaadNasir-Drago/Zolo/internal/tasks"
)

// RestImageHandler issues upload URLs and queues uploaded images for processing.
type RestImageHandler struct {
	storage         storage.IS3Storage
	taskClient      IAsynqClient
	propertyService services.IPropertyService
}

func NewRestImageHandler(storageService storage.IS3Storage, taskClient IAsynqClient, propertyService services.IPropertyService) *RestImageHandler {
	return &RestImageHandler{storage: storageService, taskClient: taskClient, propertyService: propertyService}
}

type uploadURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
}

type attachImageRequest struct {
	Key string `json:"key" binding:"required"`
}

// ownedProperty loads the :id property and checks the caller owns it.
func (h *RestImageHandler) ownedProperty(c *gin.Context) (*models.Property, primitive.ObjectID, bool) {
	ownerID, ok := callerID(c)
	if !ok {
		return nil, ownerID, false
	}
	propertyID, ok := parseID(c, "id", c.Param("id"))
	if !ok {
		return nil, ownerID, false
	}
	property, err := h.propertyService.FindPropertyByID(c.Request.Context(), propertyID)
	if err != nil {
		respondError(c, err, "Error fetching property")
		return nil, ownerID, false
	}
	if property.UserID != ownerID {
		respondError(c, services.ErrForbidden, "")
		return nil, ownerID, false
	}
	return property, ownerID, true
}

// CreateUploadURL handles POST /api/property/:id/images/upload-url
func (h *RestImageHandler) CreateUploadURL(c *gin.Context) {
	property, ownerID, ok := h.ownedProperty(c)
	if !ok {
		return
	}
	var req uploadURLRequest
	if !bindJSON(c, &req) {
		return
	}
	if !strings.HasPrefix(req.ContentType, "image/") {
		respondError(c, services.NewValidationError("contentType", "Must be an image type"), "")
		return
	}

	url, key, err := h.storage.GeneratePresignedPutURL(c.Request.Context(), ownerID.Hex(), property.ID.Hex(), req.Filename, req.ContentType)
	if err != nil {
		respondError(c, err, "Failed to create upload URL")
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploadUrl": url, "key": key})
}

// AttachImage handles POST /api/property/:id/images
func (h *RestImageHandler) AttachImage(c *gin.Context) {
	property, ownerID, ok := h.ownedProperty(c)
	if !ok {
		return
	}
	var req attachImageRequest
	if !bindJSON(c, &req) {
		return
	}
	prefix := fmt.Sprintf("uploads/%s/%s/", ownerID.Hex(), property.ID.Hex())
	if !strings.HasPrefix(req.Key, prefix) || strings.Contains(req.Key, "..") {
		respondError(c, services.NewValidationError("key", "Key does not belong to this property"), "")
		return
	}

	task, err := tasks.NewImageProcessTask(tasks.ImageTaskPayload{S3Key: req.Key, PropertyID: property.ID.Hex()})
	if err != nil {
		respondError(c, err, "Failed to queue image")
		return
	}
	if _, err := h.taskClient.EnqueueContext(c.Request.Context(), task); err != nil {
		respondError(c, err, "Failed to queue image")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Image queued for processing", "key": req.Key})
}

// server/internal/api/handlers/pickup_handler.go
package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"waste-pickup-api-server/internal/models"
	"waste-pickup-api-server/internal/pickup"

	"github.com/gin-gonic/gin"
)

// Max accepted image upload size.
const maxImageSizeBytes = 5 * 1000 * 1000

var allowedImageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

type PickupHandler struct {
	Service *pickup.Service
}

type CreatePickupRequest struct {
	WasteType string `form:"wasteType" binding:"required"`
	// Pointer so a submitted weight of 0 still satisfies required.
	EstimatedWeightKg *float64 `form:"estimatedWeightKg" binding:"required,min=0"`
	Description       string   `form:"description"`
	Address           string   `form:"address"`
	Lat               *float64 `form:"lat"`
	Lng               *float64 `form:"lng"`
}

// CreatePickup handles the multipart create request: image + metadata in,
// fully scored pending pickup out.
func (h *PickupHandler) CreatePickup(c *gin.Context) {
	requesterID := c.GetString("user_id")

	var req CreatePickupRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image file is required"})
		return
	}
	if fileHeader.Size > maxImageSizeBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image exceeds the 5MB size limit"})
		return
	}
	if !allowedImageExts[strings.ToLower(filepath.Ext(fileHeader.Filename))] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image must be png, jpeg, jpg or gif"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read image file"})
		return
	}
	defer file.Close()

	imageBytes, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read image file"})
		return
	}

	input := pickup.CreateInput{
		WasteType:         req.WasteType,
		EstimatedWeightKg: *req.EstimatedWeightKg,
		Description:       req.Description,
		Address:           req.Address,
		Lat:               req.Lat,
		Lng:               req.Lng,
	}

	created, err := h.Service.Create(c.Request.Context(), input, imageBytes, fileHeader.Filename, requesterID)
	if err != nil {
		respondPickupError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "message": "Pickup created", "data": created})
}

// GetAvailablePickups serves the driver claim queue, optionally restricted
// to a radius around the caller's position.
func (h *PickupHandler) GetAvailablePickups(c *gin.Context) {
	lat, err := optionalFloatQuery(c, "lat")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat must be a number"})
		return
	}
	lng, err := optionalFloatQuery(c, "lng")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lng must be a number"})
		return
	}

	radiusMeters := 5000.0
	if raw := c.Query("radiusMeters"); raw != "" {
		radiusMeters, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "radiusMeters must be a number"})
			return
		}
	}

	limit := int64(pickup.DefaultQueueLimit)
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
	}

	pickups, err := h.Service.ListAvailable(c.Request.Context(), lat, lng, radiusMeters, limit)
	if err != nil {
		respondPickupError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": pickups})
}

// ClaimPickup atomically assigns a pending pickup to the calling driver.
func (h *PickupHandler) ClaimPickup(c *gin.Context) {
	driverID := c.GetString("user_id")

	claimed, err := h.Service.Claim(c.Request.Context(), c.Param("id"), driverID)
	if err != nil {
		respondPickupError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Pickup claimed", "data": claimed})
}

// ConfirmPickedUp moves an assigned pickup to picked_up.
func (h *PickupHandler) ConfirmPickedUp(c *gin.Context) {
	h.transition(c, models.StatusPickedUp)
}

// CompletePickup moves a picked_up pickup to completed.
func (h *PickupHandler) CompletePickup(c *gin.Context) {
	h.transition(c, models.StatusCompleted)
}

// CancelPickup cancels a pending or assigned pickup. The assignee recorded
// at cancellation time stays on the document.
func (h *PickupHandler) CancelPickup(c *gin.Context) {
	h.transition(c, models.StatusCancelled)
}

func (h *PickupHandler) transition(c *gin.Context, to string) {
	actorID := c.GetString("user_id")
	actorRole := c.GetString("user_role")

	updated, err := h.Service.Transition(c.Request.Context(), c.Param("id"), to, actorID, actorRole)
	if err != nil {
		respondPickupError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": updated})
}

func (h *PickupHandler) GetAllPickups(c *gin.Context) {
	pickups, err := h.Service.List(c.Request.Context())
	if err != nil {
		respondPickupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": pickups})
}

func (h *PickupHandler) GetPickupByID(c *gin.Context) {
	p, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondPickupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": p})
}

// respondPickupError maps the pickup error taxonomy onto HTTP status codes.
func respondPickupError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pickup.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, pickup.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, pickup.ErrAlreadyClaimed):
		status = http.StatusConflict
	case errors.Is(err, pickup.ErrInvalidTransition):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, pickup.ErrUpload), errors.Is(err, pickup.ErrScoring):
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func optionalFloatQuery(c *gin.Context, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

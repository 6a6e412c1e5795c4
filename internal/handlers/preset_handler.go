package handlers

import (
	"net/http"

	apierrors "github.com/dfwgrid/parcelsearch/api/internal/errors"
	"github.com/dfwgrid/parcelsearch/api/internal/middleware"
	"github.com/dfwgrid/parcelsearch/api/internal/models"
	"github.com/dfwgrid/parcelsearch/api/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// PresetHandler handles saved filter preference HTTP requests.
// All routes sit behind RequireAuth, so a verified user ID is always present
// and callers only ever see their own presets.
type PresetHandler struct {
	store store.PresetStore
}

// NewPresetHandler creates a new PresetHandler instance.
func NewPresetHandler(store store.PresetStore) *PresetHandler {
	return &PresetHandler{
		store: store,
	}
}

// CreatePresetRequest represents the JSON body for creating a preference.
type CreatePresetRequest struct {
	Name      string             `json:"name" binding:"required,min=1,max=100"`
	Filters   *models.FilterSpec `json:"filters"`
	IsDefault bool               `json:"isDefault"`
}

// List handles GET /api/v1/preferences.
func (h *PresetHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)

	c.JSON(http.StatusOK, gin.H{"data": h.store.List(userID)})
}

// Create handles POST /api/v1/preferences.
// Creating a new default unmarks any existing default.
func (h *PresetHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req CreatePresetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	filters := models.FilterSpec{}
	if req.Filters != nil {
		filters = *req.Filters
	}

	preset, err := h.store.Create(userID, req.Name, filters, req.IsDefault)
	if err != nil {
		apierrors.InternalServerError(c, "Failed to create preference", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": preset})
}

// GetDefault handles GET /api/v1/preferences/default.
// Registered before the :id route so "default" is never read as an ID.
func (h *PresetHandler) GetDefault(c *gin.Context) {
	userID := middleware.GetUserID(c)

	preset := h.store.GetDefault(userID)
	if preset == nil {
		apierrors.NotFound(c, "No default preference set")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": preset})
}

// Get handles GET /api/v1/preferences/:id.
func (h *PresetHandler) Get(c *gin.Context) {
	userID := middleware.GetUserID(c)

	preset := h.store.Get(userID, c.Param("id"))
	if preset == nil {
		apierrors.NotFound(c, "Preference not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": preset})
}

// Update handles PUT /api/v1/preferences/:id.
// Only fields present in the body are changed.
func (h *PresetHandler) Update(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var patch models.PresetPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	preset, err := h.store.Update(userID, c.Param("id"), patch)
	if err != nil {
		apierrors.InternalServerError(c, "Failed to update preference", err)
		return
	}
	if preset == nil {
		apierrors.NotFound(c, "Preference not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": preset})
}

// Delete handles DELETE /api/v1/preferences/:id.
func (h *PresetHandler) Delete(c *gin.Context) {
	userID := middleware.GetUserID(c)

	deleted, err := h.store.Delete(userID, c.Param("id"))
	if err != nil {
		apierrors.InternalServerError(c, "Failed to delete preference", err)
		return
	}
	if !deleted {
		apierrors.NotFound(c, "Preference not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Preference deleted successfully"})
}

package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	apierrors "github.com/dfwgrid/parcelsearch/api/internal/errors"
	"github.com/dfwgrid/parcelsearch/api/internal/middleware"
	"github.com/dfwgrid/parcelsearch/api/internal/models"
	"github.com/dfwgrid/parcelsearch/api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ExportHandler handles CSV export HTTP requests.
type ExportHandler struct {
	service services.ExportService
}

// NewExportHandler creates a new ExportHandler instance.
func NewExportHandler(service services.ExportService) *ExportHandler {
	return &ExportHandler{
		service: service,
	}
}

// ExportCSVRequest represents the JSON body for the CSV export endpoint.
// CenterPoint and MaxDistance must be supplied together to activate distance
// filtering; MaxDistance is capped at 50 miles.
type ExportCSVRequest struct {
	Filters     *models.FilterSpec  `json:"filters"`
	CenterPoint *models.CenterPoint `json:"centerPoint"`
	MaxDistance *float64            `json:"maxDistance" binding:"omitempty,gt=0,lte=50"`
	SortBy      string              `json:"sortBy"`
}

// ExportCSV handles POST /api/v1/export/csv.
// The route sits behind RequireAuth, so a verified user ID is always present.
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	log := middleware.GetLogger(c)

	var req ExportCSVRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	userID := middleware.GetUserID(c)

	if log != nil {
		log.Info("Processing CSV export request", map[string]interface{}{
			"user_id":      userID,
			"has_filters":  !req.Filters.IsEmpty(),
			"has_center":   req.CenterPoint != nil,
			"max_distance": req.MaxDistance,
		})
	}

	params := services.ExportParams{
		Filters:     req.Filters,
		Center:      req.CenterPoint,
		MaxDistance: req.MaxDistance,
		SortBy:      req.SortBy,
	}

	result, err := h.service.ExportCSV(c.Request.Context(), userID, params)
	if err != nil {
		apierrors.InternalServerError(c, "Failed to export data", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("X-Total-Rows", strconv.Itoa(result.RowCount))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", result.Data)
}

package handlers

import (
	"errors"
	"net/http"

	apierrors "github.com/dfwgrid/parcelsearch/api/internal/errors"
	"github.com/dfwgrid/parcelsearch/api/internal/middleware"
	"github.com/dfwgrid/parcelsearch/api/internal/models"
	"github.com/dfwgrid/parcelsearch/api/internal/query"
	"github.com/dfwgrid/parcelsearch/api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ParcelHandler handles parcel-related HTTP requests.
type ParcelHandler struct {
	service services.ParcelService
}

// NewParcelHandler creates a new ParcelHandler instance.
func NewParcelHandler(service services.ParcelService) *ParcelHandler {
	return &ParcelHandler{
		service: service,
	}
}

// ListParcelsRequest represents the query parameters for the list endpoint.
// Filters arrive flattened as individual query parameters.
type ListParcelsRequest struct {
	Limit    int      `form:"limit" binding:"omitempty,min=1,max=10000"`
	Offset   int      `form:"offset" binding:"omitempty,min=0"`
	MinPrice *float64 `form:"min_price" binding:"omitempty,gte=0"`
	MaxPrice *float64 `form:"max_price" binding:"omitempty,gte=0"`
	MinSize  *float64 `form:"min_size" binding:"omitempty,gte=0"`
	MaxSize  *float64 `form:"max_size" binding:"omitempty,gte=0"`
	Counties []string `form:"counties"`
	Sort     string   `form:"sort"`
}

// SearchParcelsRequest represents the JSON body for the search endpoint.
type SearchParcelsRequest struct {
	Filters *models.FilterSpec `json:"filters"`
	Limit   int                `json:"limit" binding:"omitempty,min=1,max=10000"`
	Offset  int                `json:"offset" binding:"omitempty,min=0"`
	Sort    string             `json:"sort"`
}

// List handles GET /api/v1/parcels.
// It runs a filtered search with the filters flattened into query parameters.
func (h *ParcelHandler) List(c *gin.Context) {
	log := middleware.GetLogger(c)

	var req ListParcelsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid query parameters", nil)
		return
	}

	level := middleware.GetAccessLevel(c)

	if log != nil {
		log.Info("Processing parcel list request", map[string]interface{}{
			"limit":        req.Limit,
			"offset":       req.Offset,
			"access_level": level,
		})
	}

	params := services.SearchParams{
		Filters: filtersFromList(&req),
		Limit:   req.Limit,
		Offset:  req.Offset,
		Sort:    query.ParseSortKey(req.Sort),
	}

	collection, err := h.service.SearchParcels(c.Request.Context(), level, params)
	if err != nil {
		if errors.Is(err, services.ErrInvalidLimit) || errors.Is(err, services.ErrInvalidOffset) {
			apierrors.BadRequest(c, err.Error(), nil)
			return
		}
		apierrors.InternalServerError(c, "Failed to search parcels", err)
		return
	}

	c.JSON(http.StatusOK, collection)
}

// Search handles POST /api/v1/parcels/search.
// It accepts the structured filter spec as a JSON body.
func (h *ParcelHandler) Search(c *gin.Context) {
	log := middleware.GetLogger(c)

	var req SearchParcelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid request body", nil)
		return
	}

	level := middleware.GetAccessLevel(c)

	if log != nil {
		log.Info("Processing parcel search request", map[string]interface{}{
			"limit":        req.Limit,
			"offset":       req.Offset,
			"access_level": level,
			"has_filters":  !req.Filters.IsEmpty(),
		})
	}

	params := services.SearchParams{
		Filters: req.Filters,
		Limit:   req.Limit,
		Offset:  req.Offset,
		Sort:    query.ParseSortKey(req.Sort),
	}

	collection, err := h.service.SearchParcels(c.Request.Context(), level, params)
	if err != nil {
		if errors.Is(err, services.ErrInvalidLimit) || errors.Is(err, services.ErrInvalidOffset) {
			apierrors.BadRequest(c, err.Error(), nil)
			return
		}
		apierrors.InternalServerError(c, "Failed to search parcels", err)
		return
	}

	c.JSON(http.StatusOK, collection)
}

// Get handles GET /api/v1/parcels/:id.
// Parcels outside the caller's tier read as absent.
func (h *ParcelHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		apierrors.BadRequest(c, "Parcel ID is required", nil)
		return
	}

	level := middleware.GetAccessLevel(c)

	feature, err := h.service.GetParcel(c.Request.Context(), id, level)
	if err != nil {
		if errors.Is(err, services.ErrParcelNotFound) {
			apierrors.NotFound(c, "Parcel not found")
			return
		}
		apierrors.InternalServerError(c, "Failed to fetch parcel", err)
		return
	}

	c.JSON(http.StatusOK, feature)
}

// filtersFromList assembles a filter spec from the flattened query
// parameters. Returns nil when no filter parameter was supplied.
func filtersFromList(req *ListParcelsRequest) *models.FilterSpec {
	spec := &models.FilterSpec{}

	if req.MinPrice != nil || req.MaxPrice != nil {
		spec.PriceRange = &models.Range{Min: req.MinPrice, Max: req.MaxPrice}
	}
	if req.MinSize != nil || req.MaxSize != nil {
		spec.SizeRange = &models.Range{Min: req.MinSize, Max: req.MaxSize}
	}
	spec.Counties = req.Counties

	if spec.IsEmpty() {
		return nil
	}
	return spec
}

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dfwgrid/parcelsearch/api/internal/auth"
	"github.com/dfwgrid/parcelsearch/api/internal/config"
	"github.com/dfwgrid/parcelsearch/api/internal/logger"
	"github.com/dfwgrid/parcelsearch/api/internal/models"
	"github.com/dfwgrid/parcelsearch/api/internal/query"
	"github.com/dfwgrid/parcelsearch/api/internal/repository"
)

// Service-level errors
var (
	ErrParcelNotFound = errors.New("parcel not found")
	ErrInvalidLimit   = errors.New("invalid limit")
	ErrInvalidOffset  = errors.New("offset must be non-negative")
)

// Feature is the GeoJSON representation of one parcel.
type Feature struct {
	Type       string            `json:"type"`
	Properties FeatureProperties `json:"properties"`
	Geometry   *models.Point     `json:"geometry"`
}

// FeatureProperties carries the public parcel attributes.
type FeatureProperties struct {
	ParcelID string   `json:"parcel_id"`
	Address  *string  `json:"address"`
	Price    *float64 `json:"price"`
	SizeSqft *float64 `json:"size_sqft"`
	County   *string  `json:"county"`
}

// Metadata describes a paginated feature collection.
// Returned may be lower than a full page even away from the last page:
// rows whose geometry cannot be decoded still count toward Total but are
// omitted from Features. That is expected, not a bug.
type Metadata struct {
	Total       int              `json:"total"`
	Returned    int              `json:"returned"`
	HasMore     bool             `json:"hasMore"`
	AccessLevel auth.AccessLevel `json:"accessLevel"`
}

// FeatureCollection is the paginated search response.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
	Metadata Metadata  `json:"metadata"`
}

// SearchParams bundles the inputs of a parcel search.
// A zero Limit selects the configured default page size.
type SearchParams struct {
	Filters *models.FilterSpec
	Limit   int
	Offset  int
	Sort    query.SortKey
}

// ParcelService defines the interface for parcel business logic operations.
type ParcelService interface {
	// SearchParcels runs a filtered, paginated search under the given access
	// level and projects the rows into a GeoJSON feature collection.
	// Returns ErrInvalidLimit or ErrInvalidOffset for out-of-range paging.
	SearchParcels(ctx context.Context, level auth.AccessLevel, params SearchParams) (*FeatureCollection, error)

	// GetParcel retrieves a single parcel by ID under the given access level.
	// Returns ErrParcelNotFound when the parcel is absent or hidden from the
	// caller's tier.
	GetParcel(ctx context.Context, id string, level auth.AccessLevel) (*Feature, error)
}

// parcelService is the concrete implementation of ParcelService.
type parcelService struct {
	repo            repository.ParcelRepository
	log             *logger.Logger
	defaultPageSize int
	maxPageSize     int
}

// NewParcelService creates a new instance of ParcelService.
func NewParcelService(repo repository.ParcelRepository, log *logger.Logger, cfg config.SearchConfig) ParcelService {
	return &parcelService{
		repo:            repo,
		log:             log,
		defaultPageSize: cfg.DefaultPageSize,
		maxPageSize:     cfg.MaxPageSize,
	}
}

// SearchParcels validates pagination, runs the agreeing count and data
// queries, and projects rows into features. Rows with undecodable geometry
// are dropped from the output but still counted in the total.
func (s *parcelService) SearchParcels(ctx context.Context, level auth.AccessLevel, params SearchParams) (*FeatureCollection, error) {
	limit := params.Limit
	if limit == 0 {
		limit = s.defaultPageSize
	}
	if limit < 1 || limit > s.maxPageSize {
		return nil, fmt.Errorf("%w: must be between 1 and %d, got %d",
			ErrInvalidLimit, s.maxPageSize, limit)
	}
	if params.Offset < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOffset, params.Offset)
	}

	s.log.Info("Searching parcels", map[string]interface{}{
		"access_level": level,
		"limit":        limit,
		"offset":       params.Offset,
		"sort":         params.Sort,
		"has_filters":  !params.Filters.IsEmpty(),
	})

	total, err := s.repo.Count(ctx, params.Filters, level)
	if err != nil {
		s.log.Error("Failed to count parcels", err, map[string]interface{}{
			"access_level": level,
		})
		return nil, fmt.Errorf("failed to count parcels: %w", err)
	}

	parcels, err := s.repo.Search(ctx, params.Filters, level, limit, params.Offset, params.Sort)
	if err != nil {
		s.log.Error("Failed to search parcels", err, map[string]interface{}{
			"access_level": level,
		})
		return nil, fmt.Errorf("failed to search parcels: %w", err)
	}

	features := make([]Feature, 0, len(parcels))
	for i := range parcels {
		point, ok := parcels[i].CentroidPoint()
		if !ok {
			// Undecodable geometry: omit the row from spatial output.
			continue
		}
		feature := projectFeature(&parcels[i])
		feature.Geometry = &point
		features = append(features, feature)
	}

	returned := len(features)
	collection := &FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
		Metadata: Metadata{
			Total:       total,
			Returned:    returned,
			HasMore:     params.Offset+returned < total,
			AccessLevel: level,
		},
	}

	s.log.Info("Parcel search completed", map[string]interface{}{
		"total":    total,
		"returned": returned,
		"has_more": collection.Metadata.HasMore,
	})

	return collection, nil
}

// GetParcel retrieves one parcel as a feature. Unlike search, a single
// lookup with undecodable geometry is still returned, with a null geometry.
func (s *parcelService) GetParcel(ctx context.Context, id string, level auth.AccessLevel) (*Feature, error) {
	parcel, err := s.repo.FindByID(ctx, id, level)
	if err != nil {
		s.log.Error("Failed to fetch parcel", err, map[string]interface{}{
			"parcel_id":    id,
			"access_level": level,
		})
		return nil, fmt.Errorf("failed to fetch parcel: %w", err)
	}

	// Repository returns nil, nil when nothing is visible - transform to
	// domain error. Guests asking for a non-Dallas parcel land here too.
	if parcel == nil {
		s.log.Debug("Parcel not found", map[string]interface{}{
			"parcel_id":    id,
			"access_level": level,
		})
		return nil, ErrParcelNotFound
	}

	feature := projectFeature(parcel)
	if point, ok := parcel.CentroidPoint(); ok {
		feature.Geometry = &point
	}

	return &feature, nil
}

// projectFeature maps a parcel row onto its public feature representation.
// The geometry is left nil for the caller to fill in.
func projectFeature(parcel *models.Parcel) Feature {
	return Feature{
		Type: "Feature",
		Properties: FeatureProperties{
			ParcelID: parcel.ID,
			Address:  parcel.Address,
			Price:    parcel.Price,
			SizeSqft: parcel.SizeSqft,
			County:   parcel.County,
		},
	}
}

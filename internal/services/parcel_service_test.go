package services

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"testing"

	"github.com/dfwgrid/parcelsearch/api/internal/auth"
	"github.com/dfwgrid/parcelsearch/api/internal/config"
	"github.com/dfwgrid/parcelsearch/api/internal/logger"
	"github.com/dfwgrid/parcelsearch/api/internal/models"
	"github.com/dfwgrid/parcelsearch/api/internal/query"
	"github.com/dfwgrid/parcelsearch/api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockParcelRepository is a mock implementation of ParcelRepository for testing
type MockParcelRepository struct {
	mock.Mock
}

func (m *MockParcelRepository) Search(ctx context.Context, spec *models.FilterSpec, level auth.AccessLevel, limit, offset int, sort query.SortKey) ([]models.Parcel, error) {
	args := m.Called(ctx, spec, level, limit, offset, sort)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Parcel), args.Error(1)
}

func (m *MockParcelRepository) Count(ctx context.Context, spec *models.FilterSpec, level auth.AccessLevel) (int, error) {
	args := m.Called(ctx, spec, level)
	return args.Int(0), args.Error(1)
}

func (m *MockParcelRepository) FindByID(ctx context.Context, id string, level auth.AccessLevel) (*models.Parcel, error) {
	args := m.Called(ctx, id, level)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Parcel), args.Error(1)
}

func (m *MockParcelRepository) Export(ctx context.Context, spec query.ExportSpec) ([]repository.ExportRow, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.ExportRow), args.Error(1)
}

func testSearchConfig() config.SearchConfig {
	return config.SearchConfig{DefaultPageSize: 1000, MaxPageSize: 10000}
}

func strPtr(s string) *string { return &s }
func fPtr(v float64) *float64 { return &v }

// wkbHex renders a little-endian WKB point as hex.
func wkbHex(lng, lat float64) *string {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], math.Float64bits(lng))
	binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(lat))
	s := "0101000000" + hex.EncodeToString(buf)
	return &s
}

func testParcel(id string) models.Parcel {
	return models.Parcel{
		ID:       id,
		Address:  strPtr("123 Main St"),
		Price:    fPtr(250000),
		SizeSqft: fPtr(1800),
		County:   strPtr("dallas"),
		GeomHex:  wkbHex(-96.8, 32.78),
	}
}

func TestSearchParcels_Success(t *testing.T) {
	// Arrange
	mockRepo := new(MockParcelRepository)
	service := NewParcelService(mockRepo, logger.New("test"), testSearchConfig())

	ctx := context.Background()
	parcels := []models.Parcel{testParcel("p1"), testParcel("p2")}

	mockRepo.On("Count", ctx, (*models.FilterSpec)(nil), auth.AccessRegistered).Return(42, nil)
	mockRepo.On("Search", ctx, (*models.FilterSpec)(nil), auth.AccessRegistered, 10, 0, query.SortPriceDesc).Return(parcels, nil)

	// Act
	collection, err := service.SearchParcels(ctx, auth.AccessRegistered, SearchParams{
		Limit: 10,
		Sort:  query.SortPriceDesc,
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "FeatureCollection", collection.Type)
	require.Len(t, collection.Features, 2)
	assert.Equal(t, "Feature", collection.Features[0].Type)
	assert.Equal(t, "p1", collection.Features[0].Properties.ParcelID)
	require.NotNil(t, collection.Features[0].Geometry)
	assert.InDelta(t, -96.8, collection.Features[0].Geometry.Lng, 1e-9)

	assert.Equal(t, 42, collection.Metadata.Total)
	assert.Equal(t, 2, collection.Metadata.Returned)
	assert.True(t, collection.Metadata.HasMore)
	assert.Equal(t, auth.AccessRegistered, collection.Metadata.AccessLevel)
	mockRepo.AssertExpectations(t)
}

func TestSearchParcels_DropsUndecodableGeometry(t *testing.T) {
	// Arrange
	mockRepo := new(MockParcelRepository)
	service := NewParcelService(mockRepo, logger.New("test"), testSearchConfig())

	ctx := context.Background()
	broken := testParcel("broken")
	broken.GeomHex = strPtr("deadbeef")
	parcels := []models.Parcel{testParcel("ok"), broken}

	mockRepo.On("Count", ctx, (*models.FilterSpec)(nil), auth.AccessGuest).Return(2, nil)
	mockRepo.On("Search", ctx, (*models.FilterSpec)(nil), auth.AccessGuest, 1000, 0, query.SortPriceDesc).Return(parcels, nil)

	// Act
	collection, err := service.SearchParcels(ctx, auth.AccessGuest, SearchParams{})

	// Assert: the broken row is dropped from features but counted in total
	require.NoError(t, err)
	require.Len(t, collection.Features, 1)
	assert.Equal(t, "ok", collection.Features[0].Properties.ParcelID)
	assert.Equal(t, 2, collection.Metadata.Total)
	assert.Equal(t, 1, collection.Metadata.Returned)
	mockRepo.AssertExpectations(t)
}

func TestSearchParcels_ZeroLimitUsesDefault(t *testing.T) {
	// Arrange
	mockRepo := new(MockParcelRepository)
	service := NewParcelService(mockRepo, logger.New("test"), testSearchConfig())

	ctx := context.Background()
	mockRepo.On("Count", ctx, (*models.FilterSpec)(nil), auth.AccessGuest).Return(0, nil)
	mockRepo.On("Search", ctx, (*models.FilterSpec)(nil), auth.AccessGuest, 1000, 0, query.SortPriceDesc).Return([]models.Parcel{}, nil)

	// Act
	collection, err := service.SearchParcels(ctx, auth.AccessGuest, SearchParams{})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 0, collection.Metadata.Total)
	assert.False(t, collection.Metadata.HasMore)
	mockRepo.AssertExpectations(t)
}

func TestSearchParcels_LimitTooLarge(t *testing.T) {
	// Arrange
	mockRepo := new(MockParcelRepository)
	service := NewParcelService(mockRepo, logger.New("test"), testSearchConfig())

	// Act
	collection, err := service.SearchParcels(context.Background(), auth.AccessGuest, SearchParams{Limit: 10001})

	// Assert
	assert.Nil(t, collection)
	assert.ErrorIs(t, err, ErrInvalidLimit)
	mockRepo.AssertNotCalled(t, "Search")
	mockRepo.AssertNotCalled(t, "Count")
}

func TestSearchParcels_NegativeOffset(t *testing.T) {
	// Arrange
	mockRepo := new(MockParcelRepository)
	service := NewParcelService(mockRepo, logger.New("test"), testSearchConfig())

	// Act
	collection, err := service.SearchParcels(context.Background(), auth.AccessGuest, SearchParams{Offset: -1})

	// Assert
	assert.Nil(t, collection)
	assert.ErrorIs(t, err, ErrInvalidOffset)
	mockRepo.AssertNotCalled(t, "Search")
}

func TestSearchParcels_HasMoreOnLastPage(t *testing.T) {
	// Arrange
	mockRepo := new(MockParcelRepository)
	service := NewParcelService(mockRepo, logger.New("test"), testSearchConfig())

	ctx := context.Background()
	mockRepo.On("Count", ctx, (*models.FilterSpec)(nil), auth.AccessGuest).Return(12, nil)
	mockRepo.On("Search", ctx, (*models.FilterSpec)(nil), auth.AccessGuest, 10, 10, query.SortPriceDesc).Return([]models.Parcel{testParcel("p11"), testParcel("p12")}, nil)

	// Act
	collection, err := service.SearchParcels(ctx, auth.AccessGuest, SearchParams{Limit: 10, Offset: 10})

	// Assert: offset 10 + returned 2 == total 12, nothing more to fetch
	require.NoError(t, err)
	assert.False(t, collection.Metadata.HasMore)
	mockRepo.AssertExpectations(t)
}

func TestSearchParcels_CountError(t *testing.T) {
	// Arrange
	mockRepo := new(MockParcelRepository)
	service := NewParcelService(mockRepo, logger.New("test"), testSearchConfig())

	ctx := context.Background()
	mockRepo.On("Count", ctx, (*models.FilterSpec)(nil), auth.AccessGuest).Return(0, errors.New("connection refused"))

	// Act
	collection, err := service.SearchParcels(ctx, auth.AccessGuest, SearchParams{})

	// Assert
	assert.Nil(t, collection)
	assert.Error(t, err)
	mockRepo.AssertNotCalled(t, "Search")
}

func TestGetParcel_Success(t *testing.T) {
	// Arrange
	mockRepo := new(MockParcelRepository)
	service := NewParcelService(mockRepo, logger.New("test"), testSearchConfig())

	ctx := context.Background()
	parcel := testParcel("p1")
	mockRepo.On("FindByID", ctx, "p1", auth.AccessRegistered).Return(&parcel, nil)

	// Act
	feature, err := service.GetParcel(ctx, "p1", auth.AccessRegistered)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "p1", feature.Properties.ParcelID)
	require.NotNil(t, feature.Geometry)
	mockRepo.AssertExpectations(t)
}

func TestGetParcel_NotFound(t *testing.T) {
	// Arrange
	mockRepo := new(MockParcelRepository)
	service := NewParcelService(mockRepo, logger.New("test"), testSearchConfig())

	ctx := context.Background()
	mockRepo.On("FindByID", ctx, "missing", auth.AccessGuest).Return(nil, nil)

	// Act
	feature, err := service.GetParcel(ctx, "missing", auth.AccessGuest)

	// Assert
	assert.Nil(t, feature)
	assert.ErrorIs(t, err, ErrParcelNotFound)
	mockRepo.AssertExpectations(t)
}

func TestGetParcel_UndecodableGeometryStillReturned(t *testing.T) {
	// Arrange
	mockRepo := new(MockParcelRepository)
	service := NewParcelService(mockRepo, logger.New("test"), testSearchConfig())

	ctx := context.Background()
	parcel := testParcel("p1")
	parcel.GeomHex = strPtr("deadbeef")
	mockRepo.On("FindByID", ctx, "p1", auth.AccessRegistered).Return(&parcel, nil)

	// Act
	feature, err := service.GetParcel(ctx, "p1", auth.AccessRegistered)

	// Assert: single lookups keep the row and null out the geometry
	require.NoError(t, err)
	assert.Equal(t, "p1", feature.Properties.ParcelID)
	assert.Nil(t, feature.Geometry)
	mockRepo.AssertExpectations(t)
}

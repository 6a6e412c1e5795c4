package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/dfwgrid/parcelsearch/api/internal/auth"
	"github.com/dfwgrid/parcelsearch/api/internal/database"
	"github.com/dfwgrid/parcelsearch/api/internal/models"
	"github.com/dfwgrid/parcelsearch/api/internal/query"
	"github.com/jackc/pgx/v5"
)

// ExportRow is a parcel row with the optional derived distance column.
type ExportRow struct {
	Parcel   models.Parcel
	Distance *float64 // Distance in miles; nil when distance filtering is off
}

// ParcelRepository defines the interface for parcel data access operations.
type ParcelRepository interface {
	// Search returns one page of parcels matching the filter spec under the
	// given access level. Returns an empty slice if nothing matches.
	Search(ctx context.Context, spec *models.FilterSpec, level auth.AccessLevel, limit, offset int, sort query.SortKey) ([]models.Parcel, error)

	// Count returns the total number of rows matching the same conditions
	// as Search, ignoring pagination.
	Count(ctx context.Context, spec *models.FilterSpec, level auth.AccessLevel) (int, error)

	// FindByID finds a single parcel by identifier, subject to the access
	// level's visibility restriction.
	// Returns nil, nil if no parcel is visible (not an error).
	FindByID(ctx context.Context, id string, level auth.AccessLevel) (*models.Parcel, error)

	// Export returns the rows for a CSV export, capped at the spec's MaxRows.
	// The Distance field is populated only when distance filtering is active.
	Export(ctx context.Context, spec query.ExportSpec) ([]ExportRow, error)
}

// parcelRepository is the concrete implementation of ParcelRepository.
type parcelRepository struct {
	db *database.Database
}

// NewParcelRepository creates a new instance of ParcelRepository.
func NewParcelRepository(db *database.Database) ParcelRepository {
	return &parcelRepository{
		db: db,
	}
}

// Search executes the data query produced by the query builder and scans the
// resulting page of parcels.
func (r *parcelRepository) Search(ctx context.Context, spec *models.FilterSpec, level auth.AccessLevel, limit, offset int, sort query.SortKey) ([]models.Parcel, error) {
	sql, args := query.Search(spec, level, limit, offset, sort)

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query parcels: %w", err)
	}
	defer rows.Close()

	var results []models.Parcel

	for rows.Next() {
		var parcel models.Parcel
		if err := scanParcel(rows, &parcel); err != nil {
			return nil, fmt.Errorf("failed to scan parcel row: %w", err)
		}
		results = append(results, parcel)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating parcel rows: %w", err)
	}

	// Return empty slice if no parcels found (not an error)
	if results == nil {
		results = []models.Parcel{}
	}

	return results, nil
}

// Count executes the count query. Its conditions always agree with Search's.
func (r *parcelRepository) Count(ctx context.Context, spec *models.FilterSpec, level auth.AccessLevel) (int, error) {
	sql, args := query.Count(spec, level)

	var total int
	if err := r.db.Pool.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count parcels: %w", err)
	}

	return total, nil
}

// FindByID looks up a single parcel. Guest callers only see Dallas County
// rows; the restriction is part of the query, so a hidden parcel reads as
// absent.
func (r *parcelRepository) FindByID(ctx context.Context, id string, level auth.AccessLevel) (*models.Parcel, error) {
	sql, args := query.ByID(id, level)

	var parcel models.Parcel
	err := scanParcel(r.db.Pool.QueryRow(ctx, sql, args...), &parcel)

	// Handle no rows found - this is not an error at the repository level
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query parcel %s: %w", id, err)
	}

	return &parcel, nil
}

// Export executes the export query and scans rows, including the derived
// distance column when distance filtering is active.
func (r *parcelRepository) Export(ctx context.Context, spec query.ExportSpec) ([]ExportRow, error) {
	sql, args, hasDistance := query.Export(spec)

	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query export rows: %w", err)
	}
	defer rows.Close()

	var results []ExportRow

	for rows.Next() {
		var row ExportRow
		if hasDistance {
			err = rows.Scan(
				&row.Parcel.ID,
				&row.Parcel.Address,
				&row.Parcel.Price,
				&row.Parcel.SizeSqft,
				&row.Parcel.County,
				&row.Parcel.GeomHex,
				&row.Distance,
			)
		} else {
			err = scanParcel(rows, &row.Parcel)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan export row: %w", err)
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating export rows: %w", err)
	}

	if results == nil {
		results = []ExportRow{}
	}

	return results, nil
}

// scanParcel scans the shared parcel column projection from a row.
func scanParcel(row pgx.Row, parcel *models.Parcel) error {
	return row.Scan(
		&parcel.ID,
		&parcel.Address,
		&parcel.Price,
		&parcel.SizeSqft,
		&parcel.County,
		&parcel.GeomHex,
	)
}

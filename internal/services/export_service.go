package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dfwgrid/parcelsearch/api/internal/auth"
	"github.com/dfwgrid/parcelsearch/api/internal/config"
	"github.com/dfwgrid/parcelsearch/api/internal/logger"
	"github.com/dfwgrid/parcelsearch/api/internal/models"
	"github.com/dfwgrid/parcelsearch/api/internal/query"
	"github.com/dfwgrid/parcelsearch/api/internal/repository"
)

// utf8BOM prefixes exports so Excel detects UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSV column headers for property export.
var (
	csvColumns             = []string{"Parcel ID", "Address", "Price (USD)", "Size (sq ft)", "County"}
	csvColumnsWithDistance = []string{"Parcel ID", "Address", "Distance (miles)", "Price (USD)", "Size (sq ft)", "County"}
)

// ExportParams bundles the inputs of a CSV export.
type ExportParams struct {
	Filters *models.FilterSpec
	// Center and MaxDistance activate distance filtering together.
	Center      *models.CenterPoint
	MaxDistance *float64
	SortBy      string
}

// ExportResult is a rendered CSV export ready to be sent as a download.
type ExportResult struct {
	Data     []byte
	Filename string
	RowCount int
}

// ExportService defines the interface for CSV export operations.
type ExportService interface {
	// ExportCSV renders the filtered parcels as a CSV document with a
	// commented header block describing the applied filters.
	ExportCSV(ctx context.Context, userID string, params ExportParams) (*ExportResult, error)
}

// exportService is the concrete implementation of ExportService.
type exportService struct {
	repo    repository.ParcelRepository
	log     *logger.Logger
	maxRows int
}

// NewExportService creates a new instance of ExportService.
func NewExportService(repo repository.ParcelRepository, log *logger.Logger, cfg config.ExportConfig) ExportService {
	return &exportService{
		repo:    repo,
		log:     log,
		maxRows: cfg.MaxRows,
	}
}

// ExportCSV fetches the filtered rows and renders them into a CSV document.
// Exports are only reachable through authenticated routes, so rows are read
// at the registered tier.
func (s *exportService) ExportCSV(ctx context.Context, userID string, params ExportParams) (*ExportResult, error) {
	sort := query.ParseSortKey(params.SortBy)

	spec := query.ExportSpec{
		Filters: params.Filters,
		Level:   auth.AccessRegistered,
		Center:  params.Center,
		Sort:    sort,
		MaxRows: s.maxRows,
	}
	if params.MaxDistance != nil {
		spec.MaxDistance = *params.MaxDistance
	}

	s.log.Info("CSV export requested", map[string]interface{}{
		"user_id":     userID,
		"has_filters": !params.Filters.IsEmpty(),
		"distance":    spec.DistanceActive(),
		"sort":        sort,
	})

	rows, err := s.repo.Export(ctx, spec)
	if err != nil {
		s.log.Error("Failed to fetch export rows", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, fmt.Errorf("failed to fetch export rows: %w", err)
	}

	now := time.Now()
	data, err := renderCSV(rows, spec, now)
	if err != nil {
		return nil, fmt.Errorf("failed to render csv: %w", err)
	}

	result := &ExportResult{
		Data:     data,
		Filename: fmt.Sprintf("properties_export_%s.csv", now.Format("20060102_150405")),
		RowCount: len(rows),
	}

	s.log.Info("CSV export completed", map[string]interface{}{
		"user_id":   userID,
		"row_count": result.RowCount,
		"distance":  spec.DistanceActive(),
	})

	return result, nil
}

// renderCSV writes the comment block, headers, and data rows, and returns the
// BOM-prefixed document bytes.
func renderCSV(rows []repository.ExportRow, spec query.ExportSpec, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)

	if err := writeCommentBlock(w, spec, now); err != nil {
		return nil, err
	}

	headers := csvColumns
	if spec.DistanceActive() {
		headers = csvColumnsWithDistance
	}
	if err := w.Write(headers); err != nil {
		return nil, err
	}

	for _, row := range rows {
		if err := w.Write(renderRow(row, spec.DistanceActive())); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeCommentBlock emits the #-prefixed export description: timestamp,
// location filter, property filters, and sort order. Each comment is a
// single-field record so the block survives CSV parsing.
func writeCommentBlock(w *csv.Writer, spec query.ExportSpec, now time.Time) error {
	lines := []string{
		"# DFW Property Search Export",
		fmt.Sprintf("# Export Date: %s", now.Format("2006-01-02 15:04:05")),
		"#",
	}

	if spec.DistanceActive() {
		lines = append(lines, "# Location Filter:")
		if spec.Center.Address != nil && *spec.Center.Address != "" {
			lines = append(lines, fmt.Sprintf("#   Center: %s", *spec.Center.Address))
		}
		lines = append(lines,
			fmt.Sprintf("#   Coordinates: (%.6f, %.6f)", *spec.Center.Latitude, *spec.Center.Longitude),
			fmt.Sprintf("#   Max Distance: %s miles", strconv.FormatFloat(spec.MaxDistance, 'f', -1, 64)),
			"#",
		)
	}

	lines = append(lines, "# Property Filters:")
	lines = append(lines, filterLines(spec.Filters)...)
	lines = append(lines,
		fmt.Sprintf("#   Sorted By: %s", spec.Sort),
		"#",
	)

	for _, line := range lines {
		if err := w.Write([]string{line}); err != nil {
			return err
		}
	}

	// Blank separator line between comments and the header row.
	return w.Write([]string{""})
}

// filterLines renders the applied property filters in human-readable form.
func filterLines(filters *models.FilterSpec) []string {
	var lines []string

	if filters != nil {
		if pr := filters.PriceRange; !pr.IsEmpty() {
			min := "No minimum"
			max := "No maximum"
			if pr.Min != nil {
				min = "$" + formatThousands(*pr.Min)
			}
			if pr.Max != nil {
				max = "$" + formatThousands(*pr.Max)
			}
			lines = append(lines, fmt.Sprintf("#   Price Range: %s - %s", min, max))
		}

		if sr := filters.SizeRange; !sr.IsEmpty() {
			min := "No minimum"
			max := "No maximum"
			if sr.Min != nil {
				min = formatThousands(*sr.Min) + " sq ft"
			}
			if sr.Max != nil {
				max = formatThousands(*sr.Max) + " sq ft"
			}
			lines = append(lines, fmt.Sprintf("#   Size Range: %s - %s", min, max))
		}

		if len(filters.Counties) > 0 {
			lines = append(lines, fmt.Sprintf("#   Counties: %s", strings.Join(filters.Counties, ", ")))
		}
	}

	if len(lines) == 0 {
		lines = append(lines, "#   No property filters applied")
	}
	return lines
}

// renderRow formats one data row. Missing values render as empty cells.
func renderRow(row repository.ExportRow, hasDistance bool) []string {
	parcel := row.Parcel

	var address, price, size, county, distance string
	if parcel.Address != nil {
		address = *parcel.Address
	}
	if parcel.Price != nil {
		price = "$" + formatThousands(*parcel.Price)
	}
	if parcel.SizeSqft != nil {
		size = formatThousands(*parcel.SizeSqft)
	}
	if parcel.County != nil {
		county = strings.ToUpper(*parcel.County)
	}

	if hasDistance {
		if row.Distance != nil {
			distance = fmt.Sprintf("%.2f", *row.Distance)
		}
		return []string{parcel.ID, address, distance, price, size, county}
	}
	return []string{parcel.ID, address, price, size, county}
}

// formatThousands renders a number with comma thousands separators and no
// decimal places, e.g. 1234567.8 -> "1,234,567".
func formatThousands(v float64) string {
	s := strconv.FormatFloat(v, 'f', 0, 64)

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	if neg {
		return "-" + b.String()
	}
	return b.String()
}

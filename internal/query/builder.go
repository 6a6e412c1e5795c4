// Package query builds the parameterized SQL used for parcel search, count,
// lookup, and export. Builders are pure: the same inputs always produce the
// same query text and argument list, and every user-influenced value is a
// bound parameter, never interpolated into the text.
package query

import (
	"fmt"
	"strings"

	"github.com/dfwgrid/parcelsearch/api/internal/auth"
	"github.com/dfwgrid/parcelsearch/api/internal/models"
)

// parcelsTable is the read-only source table. County values in it are stored
// lowercase (e.g. "dallas", not "Dallas").
const parcelsTable = "takehome.dallas_parcels"

// guestCounty is the single county visible to the guest tier.
const guestCounty = "dallas"

// selectColumns is the projection shared by search, lookup, and export.
const selectColumns = `sl_uuid AS parcel_id,
			address,
			total_value AS price,
			sqft AS size_sqft,
			county,
			encode(geom, 'hex') AS geom_hex`

// builder accumulates WHERE conditions together with their bound arguments.
type builder struct {
	conds []string
	args  []any
}

// bind registers a value as the next positional argument and returns its
// placeholder.
func (b *builder) bind(value any) string {
	b.args = append(b.args, value)
	return fmt.Sprintf("$%d", len(b.args))
}

// where appends a condition to the predicate list.
func (b *builder) where(cond string) {
	b.conds = append(b.conds, cond)
}

// and joins the accumulated conditions onto a base WHERE clause.
func (b *builder) and(base string) string {
	if len(b.conds) == 0 {
		return base
	}
	return base + " AND " + strings.Join(b.conds, " AND ")
}

// applyTierAndFilters appends the tier and filter predicates in fixed order:
// guest county override, price range, size range, county membership. The
// spec is normalized first so crossed ranges become single-value intervals,
// and the county list is only honored for registered callers.
func applyTierAndFilters(b *builder, spec *models.FilterSpec, level auth.AccessLevel) {
	// Guest restriction overrides any client-supplied county list.
	if level == auth.AccessGuest {
		b.where("LOWER(county) = " + b.bind(guestCounty))
	}

	spec = spec.Normalized()
	if spec == nil {
		return
	}

	if pr := spec.PriceRange; pr != nil {
		if pr.Min != nil {
			b.where("total_value >= " + b.bind(*pr.Min))
		}
		if pr.Max != nil {
			b.where("total_value <= " + b.bind(*pr.Max))
		}
	}

	if sr := spec.SizeRange; sr != nil {
		if sr.Min != nil {
			b.where("sqft >= " + b.bind(*sr.Min))
		}
		if sr.Max != nil {
			b.where("sqft <= " + b.bind(*sr.Max))
		}
	}

	if len(spec.Counties) > 0 && level == auth.AccessRegistered {
		lower := make([]string, len(spec.Counties))
		for i, c := range spec.Counties {
			lower[i] = strings.ToLower(c)
		}
		b.where("LOWER(county) = ANY(" + b.bind(lower) + ")")
	}
}

// Search returns the parameterized data query for one page of filtered
// parcels. Limit and offset are always applied and always bound.
func Search(spec *models.FilterSpec, level auth.AccessLevel, limit, offset int, sort SortKey) (string, []any) {
	b := &builder{}

	sql := "SELECT " + selectColumns + "\n\t\tFROM " + parcelsTable + "\n\t\tWHERE geom IS NOT NULL"
	applyTierAndFilters(b, spec, level)
	sql = b.and(sql)

	sql += " ORDER BY " + orderBy(sort, false)
	sql += " LIMIT " + b.bind(limit) + " OFFSET " + b.bind(offset)

	return sql, b.args
}

// Count returns the row-count query matching Search's filter conditions.
// Given identical inputs, its row set always agrees with Search's modulo
// pagination.
func Count(spec *models.FilterSpec, level auth.AccessLevel) (string, []any) {
	b := &builder{}

	sql := "SELECT COUNT(*) FROM " + parcelsTable + " WHERE geom IS NOT NULL"
	applyTierAndFilters(b, spec, level)
	return b.and(sql), b.args
}

// ByID returns the single-parcel lookup query. Guest callers get the Dallas
// restriction folded into the predicate, so a hidden parcel is
// indistinguishable from an absent one.
func ByID(id string, level auth.AccessLevel) (string, []any) {
	b := &builder{}

	sql := "SELECT " + selectColumns + "\n\t\tFROM " + parcelsTable +
		"\n\t\tWHERE sl_uuid = " + b.bind(id)
	if level == auth.AccessGuest {
		sql += " AND LOWER(county) = " + b.bind(guestCounty)
	}

	return sql, b.args
}

// ExportSpec describes an export query.
type ExportSpec struct {
	Filters *models.FilterSpec
	Level   auth.AccessLevel
	// Center and MaxDistance activate distance filtering together;
	// MaxDistance <= 0 or a nil Center disables it.
	Center      *models.CenterPoint
	MaxDistance float64
	Sort        SortKey
	MaxRows     int
}

// DistanceActive reports whether the spec enables distance filtering.
func (es ExportSpec) DistanceActive() bool {
	return es.Center != nil && es.Center.Longitude != nil && es.Center.Latitude != nil &&
		es.MaxDistance > 0
}

// Export returns the export query, its arguments, and whether the result set
// carries a distance_miles column. Export rows additionally require usable
// address and price values, and the result is capped at MaxRows.
func Export(es ExportSpec) (string, []any, bool) {
	b := &builder{}
	hasDistance := es.DistanceActive()

	cols := selectColumns
	if hasDistance {
		latP := b.bind(*es.Center.Latitude)
		lngP := b.bind(*es.Center.Longitude)
		expr := distanceExpr(latP, lngP)
		cols += ",\n\t\t\t" + expr + " AS distance_miles"
		b.where(expr + " <= " + b.bind(es.MaxDistance))
	}

	sql := "SELECT " + cols + "\n\t\tFROM " + parcelsTable + `
		WHERE geom IS NOT NULL
		AND address IS NOT NULL
		AND address != ''
		AND total_value IS NOT NULL
		AND total_value > 1000`

	applyTierAndFilters(b, es.Filters, es.Level)
	sql = b.and(sql)

	sql += " ORDER BY " + orderBy(es.Sort, hasDistance)
	sql += " LIMIT " + b.bind(es.MaxRows)

	return sql, b.args, hasDistance
}

// distanceExpr renders the spherical law-of-cosines great-circle distance in
// miles between the bound center point and the parcel centroid. Earth radius
// 3959 miles. The placeholders are builder-generated, never user text.
func distanceExpr(latParam, lngParam string) string {
	return fmt.Sprintf(`3959 * acos(
				cos(radians(%[1]s)) * cos(radians(public.ST_Y(public.ST_Centroid(geom)))) *
				cos(radians(public.ST_X(public.ST_Centroid(geom))) - radians(%[2]s)) +
				sin(radians(%[1]s)) * sin(radians(public.ST_Y(public.ST_Centroid(geom))))
			)`, latParam, lngParam)
}

package query

// SortKey identifies a whitelisted result ordering. Only these fixed keys
// ever reach query text; anything else falls back to price descending.
type SortKey string

const (
	SortDistance  SortKey = "distance"
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
	SortSizeAsc   SortKey = "size_asc"
	SortSizeDesc  SortKey = "size_desc"
)

// ParseSortKey maps a client-supplied sort value onto a known key.
// Unrecognized or empty values fall back to price_desc.
func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortDistance, SortPriceAsc, SortPriceDesc, SortSizeAsc, SortSizeDesc:
		return SortKey(s)
	default:
		return SortPriceDesc
	}
}

// orderBy returns the ORDER BY expression for a sort key. Size-based sorts
// place null sizes last regardless of direction, and every ordering ends in
// a parcel_id tie-break so pagination stays deterministic across pages.
// The distance key is only honored when the query selects a distance column;
// otherwise it degrades to the default ordering.
func orderBy(sort SortKey, hasDistance bool) string {
	switch sort {
	case SortDistance:
		if hasDistance {
			return "distance_miles ASC, parcel_id ASC"
		}
		return "price DESC, parcel_id ASC"
	case SortPriceAsc:
		return "price ASC, parcel_id ASC"
	case SortSizeAsc:
		return "size_sqft ASC NULLS LAST, parcel_id ASC"
	case SortSizeDesc:
		return "size_sqft DESC NULLS LAST, parcel_id ASC"
	default:
		return "price DESC, parcel_id ASC"
	}
}

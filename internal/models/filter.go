package models

// Range is an optional numeric interval. A nil bound leaves that side
// unconstrained; min == max is a valid single-value interval.
type Range struct {
	Min *float64 `json:"min,omitempty" binding:"omitempty,gte=0"`
	Max *float64 `json:"max,omitempty" binding:"omitempty,gte=0"`
}

// Normalized returns a copy of the range with max raised to min when the
// bounds cross. A crossed range is a client mistake that is corrected, not
// rejected: the result is a single-value interval, never an empty one.
func (r *Range) Normalized() *Range {
	if r == nil {
		return nil
	}

	out := Range{Min: r.Min, Max: r.Max}
	if out.Min != nil && out.Max != nil && *out.Max < *out.Min {
		out.Max = out.Min
	}
	return &out
}

// IsEmpty reports whether neither bound is set.
func (r *Range) IsEmpty() bool {
	return r == nil || (r.Min == nil && r.Max == nil)
}

// FilterSpec holds the client-supplied search constraints.
// County matching is case-insensitive and only honored for registered users;
// the guest tier overrides any county list with the fixed Dallas restriction.
type FilterSpec struct {
	PriceRange *Range   `json:"priceRange,omitempty"`
	SizeRange  *Range   `json:"sizeRange,omitempty"`
	Counties   []string `json:"counties,omitempty"`
}

// Normalized returns a copy of the spec with both ranges normalized.
// Safe to call on a nil spec.
func (f *FilterSpec) Normalized() *FilterSpec {
	if f == nil {
		return nil
	}

	return &FilterSpec{
		PriceRange: f.PriceRange.Normalized(),
		SizeRange:  f.SizeRange.Normalized(),
		Counties:   f.Counties,
	}
}

// IsEmpty reports whether the spec carries no constraints at all.
func (f *FilterSpec) IsEmpty() bool {
	if f == nil {
		return true
	}
	return f.PriceRange.IsEmpty() && f.SizeRange.IsEmpty() && len(f.Counties) == 0
}

// CenterPoint is the reference location for distance-filtered exports.
// Coordinates are pointers so presence is checked separately from value;
// (0, 0) is a valid center point.
type CenterPoint struct {
	Longitude *float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
	Latitude  *float64 `json:"latitude" binding:"required,gte=-90,lte=90"`
	Address   *string  `json:"address,omitempty"`
}

package models

// Parcel represents a property parcel row from the read-only data source.
// All nullable columns use pointers to distinguish between zero values and NULL.
// The geometry is carried as the raw hex-encoded WKB returned by the database;
// decoding happens lazily via DecodePointWKB so that undecodable rows can be
// skipped instead of failing a whole result set.
type Parcel struct {
	ID       string
	Address  *string
	Price    *float64
	SizeSqft *float64
	County   *string
	GeomHex  *string
}

// CentroidPoint decodes the parcel's geometry into its centroid point.
// The boolean result follows the DecodePointWKB silent-skip contract.
func (p *Parcel) CentroidPoint() (Point, bool) {
	if p.GeomHex == nil {
		return Point{}, false
	}
	return DecodePointWKB(*p.GeomHex)
}

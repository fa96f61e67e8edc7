package domain

// GeoInfo describes where a source address appears to live. Lat/Lon are
// pointers because private-range lookups carry no coordinates.
type GeoInfo struct {
	Country     string   `json:"country"`
	CountryCode string   `json:"country_code"`
	City        string   `json:"city"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	ISP         string   `json:"isp"`
	Org         string   `json:"org"`
}

// LocalGeoInfo is the synthetic record returned for private, loopback and
// link-local addresses, which no remote provider can resolve.
func LocalGeoInfo() *GeoInfo {
	return &GeoInfo{
		Country:     "Local",
		CountryCode: "LOCAL",
		City:        "Private Network",
		ISP:         "Local Network",
		Org:         "Private IP Range",
	}
}

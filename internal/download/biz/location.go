package biz

import (
	"encoding/json"

	"github.com/lk2023060901/file-portal-backend/internal/identity"
	"github.com/tidwall/gjson"
)

const unknownLocation = "Unknown"

// LocationData is the geo snapshot stored with every log entry
type LocationData struct {
	Country        string `json:"country,omitempty"`
	City           string `json:"city,omitempty"`
	Region         string `json:"region,omitempty"`
	LocationString string `json:"location_string"`
}

// NewLocationData captures loc for storage
func NewLocationData(loc identity.Location) LocationData {
	return LocationData{
		Country:        loc.Country,
		City:           loc.City,
		Region:         loc.Region,
		LocationString: loc.String(),
	}
}

// Encode renders the stored JSON document
func (l LocationData) Encode() string {
	b, err := json.Marshal(l)
	if err != nil {
		return `{"location_string":"Unknown"}`
	}
	return string(b)
}

// DecodeLocation parses a stored document. Unreadable input yields an empty value.
func DecodeLocation(raw string) LocationData {
	if raw == "" || !gjson.Valid(raw) {
		return LocationData{}
	}
	r := gjson.Parse(raw)
	ld := LocationData{
		Country:        r.Get("country").String(),
		City:           r.Get("city").String(),
		Region:         r.Get("region").String(),
		LocationString: r.Get("location_string").String(),
	}
	if ld.LocationString == "" {
		ld.LocationString = r.Get("location").String()
	}
	return ld
}

// FormatLocation turns a stored location document into a readable place.
// Both the current location_string key and the older location key are understood.
func FormatLocation(raw string) string {
	if raw == "" || !gjson.Valid(raw) {
		return unknownLocation
	}
	f := gjson.GetMany(raw, "city", "region", "country", "location", "location_string")
	city, region, country := f[0].String(), f[1].String(), f[2].String()

	switch {
	case city != "" && region != "" && country != "":
		return city + ", " + region + ", " + country
	case city != "" && region != "":
		return city + ", " + region
	case city != "" && country != "":
		return city + ", " + country
	case region != "" && country != "":
		return region + ", " + country
	case f[3].String() != "":
		return f[3].String()
	case f[4].String() != "" && f[4].String() != unknownLocation:
		return f[4].String()
	case city != "":
		return city
	case region != "":
		return region
	case country != "":
		return identity.CountryName(country)
	default:
		return unknownLocation
	}
}

package identity

import (
	"net/http"
	"strings"
	"sync"

	"github.com/lk2023060901/file-portal-backend/internal/pkg/validator"
	"github.com/pariz/gountries"
	"github.com/sebest/xff"
)

// UnknownIP is recorded when no client address can be determined
const UnknownIP = "unknown"

// Location is the client address and geo data reported by the edge proxy
type Location struct {
	IP         string
	Country    string // ISO 3166-1 alpha-2
	City       string
	Region     string
	RegionCode string
	PostalCode string
	Latitude   string
	Longitude  string
	Timezone   string
}

var geoHeaders = struct {
	ConnectingIP, Country, City, Region, RegionCode, PostalCode, Latitude, Longitude, Timezone string
}{
	ConnectingIP: "Cf-Connecting-Ip",
	Country:      "Cf-Ipcountry",
	City:         "Cf-Ipcity",
	Region:       "Cf-Region",
	RegionCode:   "Cf-Region-Code",
	PostalCode:   "Cf-Postal-Code",
	Latitude:     "Cf-Latitude",
	Longitude:    "Cf-Longitude",
	Timezone:     "Cf-Timezone",
}

// ExtractLocation reads client address and geo headers from r
func ExtractLocation(r *http.Request) Location {
	h := r.Header
	country := strings.ToUpper(strings.TrimSpace(h.Get(geoHeaders.Country)))
	// XX and T1 are the proxy's markers for "no country" and Tor
	if country == "XX" || country == "T1" {
		country = ""
	}

	return Location{
		IP:         ClientIP(r),
		Country:    country,
		City:       strings.TrimSpace(h.Get(geoHeaders.City)),
		Region:     strings.TrimSpace(h.Get(geoHeaders.Region)),
		RegionCode: strings.TrimSpace(h.Get(geoHeaders.RegionCode)),
		PostalCode: strings.TrimSpace(h.Get(geoHeaders.PostalCode)),
		Latitude:   strings.TrimSpace(h.Get(geoHeaders.Latitude)),
		Longitude:  strings.TrimSpace(h.Get(geoHeaders.Longitude)),
		Timezone:   strings.TrimSpace(h.Get(geoHeaders.Timezone)),
	}
}

// ClientIP resolves the caller address: the proxy's connecting-IP header,
// then X-Forwarded-For, then the socket address
func ClientIP(r *http.Request) string {
	if ip := validator.GetIPOrDefault(r.Header.Get(geoHeaders.ConnectingIP), ""); ip != "" {
		return ip
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip := xff.Parse(fwd); ip != "" {
			return ip
		}
		// only private hops; keep the original client entry
		first, _, _ := strings.Cut(fwd, ",")
		if ip := validator.GetIPOrDefault(first, ""); ip != "" {
			return ip
		}
	}

	return validator.GetIPOrDefault(r.RemoteAddr, UnknownIP)
}

// String renders the most specific readable location available:
// "City, Region, CC", "City, RegionCode, CC", "City, CC", "Region, CC",
// the full country name, or "Unknown".
func (l Location) String() string {
	switch {
	case l.City != "" && l.Region != "" && l.Country != "":
		return l.City + ", " + l.Region + ", " + l.Country
	case l.City != "" && l.RegionCode != "" && l.Country != "":
		return l.City + ", " + l.RegionCode + ", " + l.Country
	case l.City != "" && l.Country != "":
		return l.City + ", " + l.Country
	case l.Region != "" && l.Country != "":
		return l.Region + ", " + l.Country
	case l.Country != "":
		return CountryName(l.Country)
	default:
		return "Unknown"
	}
}

var countries = sync.OnceValue(gountries.New)

// CountryName maps an ISO alpha-2 code to its common English name, returning the code when unknown
func CountryName(code string) string {
	c, err := countries().FindCountryByAlpha(code)
	if err != nil || c.Name.Common == "" {
		return code
	}
	return c.Name.Common
}

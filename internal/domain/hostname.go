package domain

import (
	"net"
	"net/url"
	"strings"
)

// ParseDomain derives the comparison domain of a saved link.
// Examples:
//   - "https://www.HotelSite.com/rooms/12" -> "hotelsite.com"
//   - "shop.example.org:8443/p?id=1"       -> "shop.example.org"
//   - "not a url"                          -> ""
//
// An empty result means the link takes no part in grouping.
func ParseDomain(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	host := u.Hostname()
	if host == "" || strings.ContainsAny(host, " \t") {
		return ""
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	host = strings.TrimPrefix(host, "www.")

	// IP literals are kept as-is, bare labels are not a site
	if net.ParseIP(host) != nil || host == "localhost" {
		return host
	}
	if !strings.Contains(host, ".") {
		return ""
	}
	for _, label := range HostnameFragments(host) {
		if label == "" {
			return ""
		}
	}
	return host
}

// DomainOf returns the stored domain, falling back to the URL.
func DomainOf(it *SavedItem) string {
	if d := strings.TrimSpace(strings.ToLower(it.Domain)); d != "" {
		return strings.TrimPrefix(d, "www.")
	}
	return ParseDomain(it.URL)
}

// HostnameFragments splits a hostname into its DNS labels.
// Example: "rooms.hotelsite.com" -> ["rooms", "hotelsite", "com"]
func HostnameFragments(hostname string) []string {
	return strings.Split(strings.ToLower(hostname), ".")
}

package naming

import (
	"strings"
	"unicode"
)

const keySep = "|"

// NormalizeKey folds a country or city name into the form used for grouping
// and lookups: trimmed, lower-cased, inner whitespace collapsed.
func NormalizeKey(raw string) string {
	fields := strings.FieldsFunc(strings.ToLower(raw), unicode.IsSpace)
	return strings.Join(fields, " ")
}

func SameName(a, b string) bool {
	return NormalizeKey(a) == NormalizeKey(b)
}

// CityKey identifies a city within a country. Two clubs share a key only when
// both their city and country match after normalization.
func CityKey(city, country string) string {
	c := NormalizeKey(city)
	if c == "" {
		return ""
	}
	return c + keySep + NormalizeKey(country)
}

// SplitCityKey is the inverse of CityKey.
func SplitCityKey(key string) (city string, country string, ok bool) {
	city, country, ok = strings.Cut(key, keySep)
	if !ok || city == "" {
		return "", "", false
	}
	return city, country, true
}

// DisplayLabel picks the label rendered on a marker.
func DisplayLabel(name, fallback string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return strings.TrimSpace(fallback)
	}
	return name
}

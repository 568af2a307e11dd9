// Package geotime resolves loosely specified timezone input into canonical
// IANA zone names. Schedule authoring accepts whatever the user typed
// ("new york", "PST", "europe/berlin") and normalizes it here before the
// value is stored alongside a cron expression.
package geotime

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/heraldai/herald/errors"
)

// zoneByPlace maps place keywords to zones, matched as substrings of
// free-text input. Keys are lowercase; the longest match wins.
var zoneByPlace = map[string]string{
	// Western Europe
	"amsterdam":      "Europe/Amsterdam",
	"netherlands":    "Europe/Amsterdam",
	"rotterdam":      "Europe/Amsterdam",
	"eindhoven":      "Europe/Amsterdam",
	"dutch":          "Europe/Amsterdam",
	"berlin":         "Europe/Berlin",
	"germany":        "Europe/Berlin",
	"munich":         "Europe/Berlin",
	"hamburg":        "Europe/Berlin",
	"frankfurt":      "Europe/Berlin",
	"cologne":        "Europe/Berlin",
	"london":         "Europe/London",
	"united kingdom": "Europe/London",
	"great britain":  "Europe/London",
	"england":        "Europe/London",
	"manchester":     "Europe/London",
	"edinburgh":      "Europe/London",
	"belfast":        "Europe/London",
	"dublin":         "Europe/Dublin",
	"ireland":        "Europe/Dublin",
	"paris":          "Europe/Paris",
	"france":         "Europe/Paris",
	"madrid":         "Europe/Madrid",
	"spain":          "Europe/Madrid",
	"rome":           "Europe/Rome",
	"italy":          "Europe/Rome",
	"lisbon":         "Europe/Lisbon",
	"portugal":       "Europe/Lisbon",
	"zurich":         "Europe/Zurich",
	"switzerland":    "Europe/Zurich",
	"vienna":         "Europe/Vienna",
	"austria":        "Europe/Vienna",
	"brussels":       "Europe/Brussels",
	"belgium":        "Europe/Brussels",

	// Nordics
	"stockholm":  "Europe/Stockholm",
	"sweden":     "Europe/Stockholm",
	"oslo":       "Europe/Oslo",
	"norway":     "Europe/Oslo",
	"copenhagen": "Europe/Copenhagen",
	"denmark":    "Europe/Copenhagen",
	"helsinki":   "Europe/Helsinki",
	"finland":    "Europe/Helsinki",

	// Central and Eastern Europe
	"warsaw":   "Europe/Warsaw",
	"poland":   "Europe/Warsaw",
	"prague":   "Europe/Prague",
	"athens":   "Europe/Athens",
	"greece":   "Europe/Athens",
	"istanbul": "Europe/Istanbul",
	"turkey":   "Europe/Istanbul",
	"moscow":   "Europe/Moscow",
	"russia":   "Europe/Moscow",

	// Americas
	"new york":       "America/New_York",
	"boston":         "America/New_York",
	"washington":     "America/New_York",
	"new jersey":     "America/New_York",
	"usa":            "America/New_York",
	"united states":  "America/New_York",
	"chicago":        "America/Chicago",
	"texas":          "America/Chicago",
	"austin":         "America/Chicago",
	"houston":        "America/Chicago",
	"denver":         "America/Denver",
	"phoenix":        "America/Phoenix",
	"san francisco":  "America/Los_Angeles",
	"los angeles":    "America/Los_Angeles",
	"seattle":        "America/Los_Angeles",
	"california":     "America/Los_Angeles",
	"bay area":       "America/Los_Angeles",
	"silicon valley": "America/Los_Angeles",
	"vancouver":      "America/Vancouver",
	"canada":         "America/Toronto",
	"toronto":        "America/Toronto",
	"montreal":       "America/Toronto",
	"quebec":         "America/Toronto",
	"mexico":         "America/Mexico_City",
	"mexico city":    "America/Mexico_City",
	"brazil":         "America/Sao_Paulo",
	"sao paulo":      "America/Sao_Paulo",
	"argentina":      "America/Argentina/Buenos_Aires",
	"buenos aires":   "America/Argentina/Buenos_Aires",

	// Asia-Pacific
	"sydney":      "Australia/Sydney",
	"melbourne":   "Australia/Sydney",
	"australia":   "Australia/Sydney",
	"brisbane":    "Australia/Brisbane",
	"auckland":    "Pacific/Auckland",
	"new zealand": "Pacific/Auckland",
	"singapore":   "Asia/Singapore",
	"hong kong":   "Asia/Hong_Kong",
	"tokyo":       "Asia/Tokyo",
	"japan":       "Asia/Tokyo",
	"seoul":       "Asia/Seoul",
	"korea":       "Asia/Seoul",
	"beijing":     "Asia/Shanghai",
	"shanghai":    "Asia/Shanghai",
	"china":       "Asia/Shanghai",
	"bangkok":     "Asia/Bangkok",
	"thailand":    "Asia/Bangkok",
	"jakarta":     "Asia/Jakarta",
	"indonesia":   "Asia/Jakarta",
	"manila":      "Asia/Manila",
	"philippines": "Asia/Manila",
	"india":       "Asia/Kolkata",
	"delhi":       "Asia/Kolkata",
	"mumbai":      "Asia/Kolkata",
	"bangalore":   "Asia/Kolkata",

	// Middle East and Africa
	"israel":       "Asia/Jerusalem",
	"tel aviv":     "Asia/Jerusalem",
	"jerusalem":    "Asia/Jerusalem",
	"uae":          "Asia/Dubai",
	"dubai":        "Asia/Dubai",
	"cairo":        "Africa/Cairo",
	"egypt":        "Africa/Cairo",
	"johannesburg": "Africa/Johannesburg",
	"south africa": "Africa/Johannesburg",
	"lagos":        "Africa/Lagos",
	"nigeria":      "Africa/Lagos",
	"nairobi":      "Africa/Nairobi",
	"kenya":        "Africa/Nairobi",
}

// zoneByCountry maps two-letter country codes to a representative zone.
// Countries spanning several zones get their most populous one.
var zoneByCountry = map[string]string{
	"nl": "Europe/Amsterdam",
	"de": "Europe/Berlin",
	"be": "Europe/Brussels",
	"fr": "Europe/Paris",
	"it": "Europe/Rome",
	"es": "Europe/Madrid",
	"pt": "Europe/Lisbon",
	"ch": "Europe/Zurich",
	"at": "Europe/Vienna",
	"pl": "Europe/Warsaw",
	"cz": "Europe/Prague",
	"gr": "Europe/Athens",
	"tr": "Europe/Istanbul",
	"ru": "Europe/Moscow",
	"gb": "Europe/London",
	"uk": "Europe/London",
	"ie": "Europe/Dublin",
	"ca": "America/Toronto",
	"us": "America/New_York",
	"mx": "America/Mexico_City",
	"br": "America/Sao_Paulo",
	"ar": "America/Argentina/Buenos_Aires",
	"au": "Australia/Sydney",
	"nz": "Pacific/Auckland",
	"sg": "Asia/Singapore",
	"hk": "Asia/Hong_Kong",
	"jp": "Asia/Tokyo",
	"kr": "Asia/Seoul",
	"cn": "Asia/Shanghai",
	"th": "Asia/Bangkok",
	"id": "Asia/Jakarta",
	"ph": "Asia/Manila",
	"in": "Asia/Kolkata",
	"il": "Asia/Jerusalem",
	"ae": "Asia/Dubai",
	"eg": "Africa/Cairo",
	"za": "Africa/Johannesburg",
	"ng": "Africa/Lagos",
	"ke": "Africa/Nairobi",
	"se": "Europe/Stockholm",
	"no": "Europe/Oslo",
	"dk": "Europe/Copenhagen",
	"fi": "Europe/Helsinki",
}

// zoneByAbbrev resolves common abbreviations. These are ambiguous by
// nature (IST is India, Israel, and Ireland), so each maps to the
// reading a personal assistant is most likely to mean.
var zoneByAbbrev = map[string]string{
	"utc":  "UTC",
	"gmt":  "Etc/GMT",
	"pst":  "America/Los_Angeles",
	"pdt":  "America/Los_Angeles",
	"est":  "America/New_York",
	"edt":  "America/New_York",
	"cst":  "America/Chicago",
	"cdt":  "America/Chicago",
	"mst":  "America/Denver",
	"mdt":  "America/Denver",
	"bst":  "Europe/London",
	"cet":  "Europe/Berlin",
	"cest": "Europe/Berlin",
	"ist":  "Asia/Kolkata",
	"sgt":  "Asia/Singapore",
	"hkt":  "Asia/Hong_Kong",
	"jst":  "Asia/Tokyo",
	"kst":  "Asia/Seoul",
	"aest": "Australia/Sydney",
	"aedt": "Australia/Sydney",
	"awst": "Australia/Perth",
	"nzst": "Pacific/Auckland",
	"nzdt": "Pacific/Auckland",
}

// NormalizeTimezone resolves loose user input to a canonical IANA zone
// name. Resolution order: exact IANA name (case-corrected when miscased),
// sanitized IANA name, abbreviation, place keyword, country code.
func NormalizeTimezone(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", errors.New("timezone cannot be empty")
	}

	if isValidTimezone(trimmed) {
		// Loadable already. On case-insensitive filesystems that still
		// includes miscased input like "america/New_york", so correct
		// the case where it looks off, but keep well-formed names
		// exactly as typed (America/Port_of_Spain must not be retitled).
		if fixed := fixZoneCase(trimmed); fixed != "" {
			return fixed, nil
		}
		return trimmed, nil
	}

	if candidate := sanitizeTimezone(trimmed); isValidTimezone(candidate) {
		return candidate, nil
	}

	lower := strings.ToLower(trimmed)
	if tz, ok := zoneByAbbrev[lower]; ok {
		return tz, nil
	}
	if tz := GuessTimezoneFromLocation(lower); tz != "" {
		return tz, nil
	}
	if tz, ok := zoneByCountry[lower]; ok {
		return tz, nil
	}

	return "", errors.Newf("unknown timezone: %s", input)
}

// GuessTimezoneFromLocation scans free text for a known place name and
// returns its zone. The longest keyword wins, so "indonesia" is never
// shadowed by "india".
func GuessTimezoneFromLocation(location string) string {
	lower := strings.ToLower(strings.TrimSpace(location))

	best, bestLen := "", 0
	for place, zone := range zoneByPlace {
		if len(place) > bestLen && strings.Contains(lower, place) {
			best, bestLen = zone, len(place)
		}
	}
	return best
}

// GuessTimezoneFromCountryCode maps an ISO 3166 style code ("jp", "NL")
// to a zone, or "" when the code is unknown.
func GuessTimezoneFromCountryCode(code string) string {
	return zoneByCountry[strings.ToLower(strings.TrimSpace(code))]
}

// DetectLocalTimezone finds the host timezone, used to default schedules
// authored without an explicit one. Probes in order: the TZ variable,
// the runtime's location name, /etc/timezone, then the localtime
// symlinks Linux and macOS maintain.
func DetectLocalTimezone() (string, error) {
	if tz := os.Getenv("TZ"); tz != "" && isValidTimezone(tz) {
		return tz, nil
	}

	if name := time.Now().Location().String(); name != "" && name != "Local" && isValidTimezone(name) {
		return name, nil
	}

	if data, err := os.ReadFile("/etc/timezone"); err == nil {
		tz := strings.TrimSpace(string(data))
		if isValidTimezone(tz) {
			return tz, nil
		}
		if tz = sanitizeTimezone(tz); isValidTimezone(tz) {
			return tz, nil
		}
	}

	for _, link := range []string{"/etc/localtime", "/var/db/timezone/zoneinfo/localtime"} {
		if tz, err := zoneFromSymlink(link); err == nil {
			return tz, nil
		}
	}

	return "", errors.New("could not detect local timezone from TZ, runtime location, /etc/timezone, or localtime symlinks")
}

// zoneFromSymlink resolves a localtime symlink and takes the zone name
// from the path after the zoneinfo directory. The filesystem already
// carries canonical case, so the name is validated as-is.
func zoneFromSymlink(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", err
	}

	_, after, found := strings.Cut(resolved, "zoneinfo")
	if !found {
		return "", errors.Newf("no zoneinfo segment in %s", resolved)
	}

	tz := strings.TrimPrefix(after, string(filepath.Separator))
	tz = strings.ReplaceAll(tz, string(os.PathSeparator), "/")
	if !isValidTimezone(tz) {
		return "", errors.Newf("invalid timezone %q from %s", tz, path)
	}
	return tz, nil
}

// sanitizeTimezone rewrites free-form input toward IANA shape: quotes
// and padding stripped, spaces to underscores, each slash segment
// title-cased ("europe/berlin" to "Europe/Berlin").
func sanitizeTimezone(tz string) string {
	trimmed := strings.Trim(strings.TrimSpace(tz), "\"'")
	trimmed = strings.ReplaceAll(trimmed, " ", "_")

	parts := strings.Split(trimmed, "/")
	for i, part := range parts {
		parts[i] = title(part)
	}
	return strings.Join(parts, "/")
}

func title(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

func isValidTimezone(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// fixZoneCase returns the case-corrected form of a loadable zone whose
// segments are miscased, or "" when the input should be kept as typed.
func fixZoneCase(tz string) string {
	needsFix := false
	for _, part := range strings.Split(tz, "/") {
		if part != "" && part[0] >= 'a' && part[0] <= 'z' {
			needsFix = true
			break
		}
	}
	if !needsFix {
		return ""
	}

	if candidate := sanitizeTimezone(tz); candidate != tz && isValidTimezone(candidate) {
		return candidate
	}
	return ""
}

// ValidateTimezone ensures the timezone string maps to a valid IANA entry.
func ValidateTimezone(tz string) error {
	if !isValidTimezone(tz) {
		return errors.Newf("invalid timezone: %s", tz)
	}
	return nil
}

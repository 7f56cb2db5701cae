// Package dateshift maps a provider air date to the calendar day a viewer in
// another timezone sees it on.
//
// The provider publishes dates in the origin country's local time without a
// broadcast time. Every release is assumed to air at 20:00 origin-local, and
// the offsets in effect right now are used for both zones, so results can be
// off by a day around DST transitions or for shows airing at other hours.
package dateshift

import (
	"strings"
	"time"

	"golang.org/x/text/language"
)

// BroadcastMinutes is the assumed origin-local broadcast time (20:00)
const BroadcastMinutes = 20 * 60

const dayMinutes = 24 * 60

const dateLayout = "2006-01-02"

// countryTimezones maps ISO 3166-1 alpha-2 codes to a representative zone
var countryTimezones = map[string]string{
	"US": "America/New_York",
	"CA": "America/Toronto",
	"GB": "Europe/London",
	"IE": "Europe/Dublin",
	"FR": "Europe/Paris",
	"DE": "Europe/Berlin",
	"ES": "Europe/Madrid",
	"IT": "Europe/Rome",
	"NL": "Europe/Amsterdam",
	"SE": "Europe/Stockholm",
	"NO": "Europe/Oslo",
	"DK": "Europe/Copenhagen",
	"PL": "Europe/Warsaw",
	"JP": "Asia/Tokyo",
	"KR": "Asia/Seoul",
	"CN": "Asia/Shanghai",
	"IN": "Asia/Kolkata",
	"AU": "Australia/Sydney",
	"NZ": "Pacific/Auckland",
	"BR": "America/Sao_Paulo",
	"MX": "America/Mexico_City",
}

// TimezoneForCountry returns the representative zone for a country code.
// Alpha-2 and alpha-3 codes are accepted in any case.
func TimezoneForCountry(country string) (string, bool) {
	country = strings.TrimSpace(country)
	if country == "" {
		return "", false
	}
	region, err := language.ParseRegion(country)
	if err != nil {
		return "", false
	}
	tz, ok := countryTimezones[region.String()]
	return tz, ok
}

// Shift returns the bucket date for rawDate. It returns rawDate unchanged when
// shifting is disabled, the origin is unknown, or any input fails to parse.
func Shift(rawDate, originCountry, userTimezone string, enabled bool, now time.Time) string {
	if !enabled {
		return rawDate
	}
	originTZ, ok := TimezoneForCountry(originCountry)
	if !ok {
		return rawDate
	}
	originLoc, err := time.LoadLocation(originTZ)
	if err != nil {
		return rawDate
	}
	userLoc, err := time.LoadLocation(userTimezone)
	if err != nil {
		return rawDate
	}
	date, err := time.Parse(dateLayout, rawDate)
	if err != nil {
		return rawDate
	}

	diff := utcOffsetMinutes(userLoc, now) - utcOffsetMinutes(originLoc, now)
	adjusted := BroadcastMinutes + diff

	switch {
	case adjusted >= dayMinutes:
		return date.AddDate(0, 0, 1).Format(dateLayout)
	case adjusted < 0:
		return date.AddDate(0, 0, -1).Format(dateLayout)
	default:
		return rawDate
	}
}

func utcOffsetMinutes(loc *time.Location, at time.Time) int {
	_, offset := at.In(loc).Zone()
	return offset / 60
}

// Shifter applies Shift with fixed user settings and a clock
type Shifter struct {
	Timezone string
	Enabled  bool
	Now      func() time.Time
}

// NewShifter creates a shifter using the wall clock
func NewShifter(timezone string, enabled bool) *Shifter {
	return &Shifter{Timezone: timezone, Enabled: enabled, Now: time.Now}
}

// Bucket returns the bucket date for a raw date and origin country
func (s *Shifter) Bucket(rawDate, originCountry string) string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return Shift(rawDate, originCountry, s.Timezone, s.Enabled, now())
}

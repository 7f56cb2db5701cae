package dateshift

import (
	"testing"
	"time"
)

// Northern zones are on standard time in January
var winter = time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC)

func TestShiftDisabledIsNoOp(t *testing.T) {
	inputs := []struct{ date, country, tz string }{
		{"2024-05-01", "US", "Asia/Tokyo"},
		{"2024-05-01", "JP", "America/Los_Angeles"},
		{"not-a-date", "US", "Europe/Paris"},
		{"2024-05-01", "", "Nowhere/Invalid"},
	}
	for _, in := range inputs {
		if got := Shift(in.date, in.country, in.tz, false, winter); got != in.date {
			t.Errorf("Shift(%q, %q, %q, false) = %q, want unchanged", in.date, in.country, in.tz, got)
		}
	}
}

func TestShiftSameOffsetIsNoOp(t *testing.T) {
	// America/Toronto shares New York's offset
	if got := Shift("2024-05-01", "US", "America/Toronto", true, winter); got != "2024-05-01" {
		t.Errorf("Expected unchanged date, got %s", got)
	}
	if got := Shift("2024-05-01", "GB", "Europe/London", true, winter); got != "2024-05-01" {
		t.Errorf("Expected unchanged date, got %s", got)
	}
}

func TestShiftForward(t *testing.T) {
	// 20:00 New York (UTC-5) is 10:00 next day in Tokyo (UTC+9)
	if got := Shift("2024-05-01", "US", "Asia/Tokyo", true, winter); got != "2024-05-02" {
		t.Errorf("Expected 2024-05-02, got %s", got)
	}
	// 20:00 London is 21:00 Paris: same day
	if got := Shift("2024-05-01", "GB", "Europe/Paris", true, winter); got != "2024-05-01" {
		t.Errorf("Expected 2024-05-01, got %s", got)
	}
	// Month boundary
	if got := Shift("2024-01-31", "GB", "Asia/Tokyo", true, winter); got != "2024-02-01" {
		t.Errorf("Expected 2024-02-01, got %s", got)
	}
}

func TestShiftBackward(t *testing.T) {
	// 20:00 Seoul (UTC+9) is 01:00 in Honolulu (UTC-10)
	if got := Shift("2024-05-01", "KR", "Pacific/Honolulu", true, winter); got != "2024-05-01" {
		t.Errorf("Expected 2024-05-01, got %s", got)
	}
	// Auckland is UTC+13 in January; Honolulu UTC-10: 20:00 - 23h = -03:00
	if got := Shift("2024-03-01", "NZ", "Pacific/Honolulu", true, winter); got != "2024-02-29" {
		t.Errorf("Expected 2024-02-29, got %s", got)
	}
}

func TestShiftUnknownOrigin(t *testing.T) {
	for _, country := range []string{"", "ZZ", "XX", "nonsense"} {
		if got := Shift("2024-05-01", country, "Asia/Tokyo", true, winter); got != "2024-05-01" {
			t.Errorf("Country %q: expected unchanged date, got %s", country, got)
		}
	}
}

func TestTimezoneForCountryNormalizes(t *testing.T) {
	for _, code := range []string{"US", "us", "USA", " us "} {
		tz, ok := TimezoneForCountry(code)
		if !ok || tz != "America/New_York" {
			t.Errorf("TimezoneForCountry(%q) = %q, %v", code, tz, ok)
		}
	}
}

func TestShifterUsesClock(t *testing.T) {
	s := NewShifter("Asia/Tokyo", true)
	s.Now = func() time.Time { return winter }
	if got := s.Bucket("2024-05-01", "US"); got != "2024-05-02" {
		t.Errorf("Expected 2024-05-02, got %s", got)
	}
}

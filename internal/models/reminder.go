package models

import "time"

// ReminderRule asks for a notification offsetMinutes before matching releases
type ReminderRule struct {
	ID            string        `boltholdKey:"ID" json:"id"`
	TMDBID        int64         `boltholdIndex:"TMDBID" json:"tmdb_id"`
	MediaType     MediaType     `json:"media_type"`
	Scope         ReminderScope `json:"scope"`
	EpisodeSeason *int          `json:"episode_season,omitempty"`
	EpisodeNumber *int          `json:"episode_number,omitempty"`
	OffsetMinutes int           `json:"offset_minutes"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ReminderFired records a delivered notification so it is not sent twice a day
type ReminderFired struct {
	Key     string `boltholdKey:"Key"` // ruleId|eventId|YYYY-MM-DD
	FiredAt time.Time
}

// Settings are the per-user preferences the engine and its consumers read
type Settings struct {
	Timezone       string `json:"timezone"`
	TimeShift      bool   `json:"time_shift"`
	HideTheatrical bool   `json:"hide_theatrical"`
	IgnoreSpecials bool   `json:"ignore_specials"`
}

// DefaultSettings returns settings with UTC and shifting disabled
func DefaultSettings() Settings {
	return Settings{Timezone: "UTC"}
}

// SameBucketing reports whether two settings produce identical bucket keys
func (s Settings) SameBucketing(o Settings) bool {
	if !s.TimeShift && !o.TimeShift {
		return true
	}
	return s.TimeShift == o.TimeShift && s.Timezone == o.Timezone
}

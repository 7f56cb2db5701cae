package models

// MediaType represents the type of media (movie or tv show)
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// Valid reports whether the media type is one of the known values
func (m MediaType) Valid() bool {
	return m == MediaTypeMovie || m == MediaTypeTV
}

// ReleaseType distinguishes movie release variants
type ReleaseType string

const (
	ReleaseTheatrical ReleaseType = "theatrical"
	ReleaseDigital    ReleaseType = "digital"
)

// ReminderScope selects which events a reminder rule applies to
type ReminderScope string

const (
	ScopeAll             ReminderScope = "all"
	ScopeEpisode         ReminderScope = "episode"
	ScopeMovieTheatrical ReminderScope = "movie_theatrical"
	ScopeMovieDigital    ReminderScope = "movie_digital"
)

// Valid reports whether the scope is one of the known values
func (s ReminderScope) Valid() bool {
	switch s {
	case ScopeAll, ScopeEpisode, ScopeMovieTheatrical, ScopeMovieDigital:
		return true
	}
	return false
}

// DateLayout is the layout of raw air dates and bucket keys
const DateLayout = "2006-01-02"

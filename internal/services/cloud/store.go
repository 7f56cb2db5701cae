// Package cloud persists release rows in an account-scoped SQL store so a
// second device can load the index without hitting the metadata provider.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/amaumene/airdate/internal/models"
)

// Row is one release as stored upstream
type Row struct {
	ID            uint   `gorm:"primaryKey"`
	Account       string `gorm:"uniqueIndex:idx_account_event;index:idx_account_air;not null"`
	EventID       string `gorm:"uniqueIndex:idx_account_event;not null"`
	TMDBID        int64  `gorm:"column:tmdb_id;index"`
	Title         string
	EpisodeName   string
	AirDate       string `gorm:"index:idx_account_air;not null"`
	SeasonNumber  int
	EpisodeNumber int
	MediaType     string
	ReleaseType   string
	PosterPath    string
	BackdropPath  string
	StillPath     string
	Overview      string
	VoteAverage   float64
	OriginCountry string
	UpdatedAt     time.Time
}

// Coverage records which date range and tracked set an account's rows cover
type Coverage struct {
	Account     string `gorm:"primaryKey"`
	CoveredFrom string // earliest air date the rows are complete from
	CoveredAt   time.Time
	TrackedIDs  string // comma separated item keys
}

// TrackedSet returns the covered item keys
func (c *Coverage) TrackedSet() map[string]bool {
	set := make(map[string]bool)
	for _, k := range strings.Split(c.TrackedIDs, ",") {
		if k != "" {
			set[k] = true
		}
	}
	return set
}

// Store wraps the gorm connection
type Store struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// Open connects to the store and migrates its schema
func Open(dsn string, logger *logrus.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open cloud store: %w", err)
	}
	if err := db.AutoMigrate(&Row{}, &Coverage{}); err != nil {
		return nil, fmt.Errorf("failed to migrate cloud store: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RowsSince returns the account's rows airing on or after from
func (s *Store) RowsSince(ctx context.Context, account, from string) ([]Row, error) {
	var rows []Row
	err := s.db.WithContext(ctx).
		Where("account = ? AND air_date >= ?", account, from).
		Order("air_date, event_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	return rows, nil
}

// RowsBefore returns the account's rows airing strictly before before
func (s *Store) RowsBefore(ctx context.Context, account, before string) ([]Row, error) {
	var rows []Row
	err := s.db.WithContext(ctx).
		Where("account = ? AND air_date < ?", account, before).
		Order("air_date, event_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query archive rows: %w", err)
	}
	return rows, nil
}

// UpsertRows inserts rows or replaces existing ones with the same event id
func (s *Store) UpsertRows(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account"}, {Name: "event_id"}},
			UpdateAll: true,
		}).
		CreateInBatches(rows, 200).Error
	if err != nil {
		return fmt.Errorf("failed to upsert %d rows: %w", len(rows), err)
	}
	return nil
}

// GetCoverage returns the account's coverage marker, or nil when none exists
func (s *Store) GetCoverage(ctx context.Context, account string) (*Coverage, error) {
	var cov Coverage
	err := s.db.WithContext(ctx).First(&cov, "account = ?", account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read coverage: %w", err)
	}
	return &cov, nil
}

// SaveCoverage creates or replaces the account's coverage marker
func (s *Store) SaveCoverage(ctx context.Context, cov *Coverage) error {
	if err := s.db.WithContext(ctx).Save(cov).Error; err != nil {
		return fmt.Errorf("failed to save coverage: %w", err)
	}
	return nil
}

// RowFromEvent converts an event to a row for account
func RowFromEvent(account string, e models.ReleaseEvent, backdropPath string) Row {
	return Row{
		Account:       account,
		EventID:       e.ID,
		TMDBID:        e.ShowID,
		Title:         e.ShowName,
		EpisodeName:   e.Name,
		AirDate:       e.AirDate,
		SeasonNumber:  e.SeasonNumber,
		EpisodeNumber: e.EpisodeNumber,
		MediaType:     string(e.MediaType),
		ReleaseType:   string(e.ReleaseType),
		PosterPath:    e.PosterPath,
		BackdropPath:  backdropPath,
		StillPath:     e.StillPath,
		Overview:      e.Overview,
		VoteAverage:   e.VoteAverage,
		OriginCountry: e.OriginCountry,
	}
}

// Event converts a row back to a release event
func (r Row) Event() models.ReleaseEvent {
	mediaType := models.MediaType(r.MediaType)
	return models.ReleaseEvent{
		ID:            r.EventID,
		ShowID:        r.TMDBID,
		ShowName:      r.Title,
		MediaType:     mediaType,
		Name:          r.EpisodeName,
		Overview:      r.Overview,
		AirDate:       r.AirDate,
		SeasonNumber:  r.SeasonNumber,
		EpisodeNumber: r.EpisodeNumber,
		IsMovie:       mediaType == models.MediaTypeMovie,
		ReleaseType:   models.ReleaseType(r.ReleaseType),
		PosterPath:    r.PosterPath,
		StillPath:     r.StillPath,
		VoteAverage:   r.VoteAverage,
		OriginCountry: r.OriginCountry,
	}
}

// Package sqlite implements storage.Store on an embedded SQLite file through gorm.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/m3rciful/seatwatch/internal/model"
	"github.com/m3rciful/seatwatch/internal/storage"
)

type subscription struct {
	ID              int64 `gorm:"primaryKey"`
	UserID          int64 `gorm:"index;not null"`
	OriginCode      string
	OriginName      string
	DestinationCode string
	DestinationName string
	DepartureDate   time.Time
	TrainNumbers    string
	CarTypes        string
	MinSeats        int
	Adults          int
	Children        int
	IntervalMinutes int
	Active          bool `gorm:"index"`
	CreatedAt       time.Time
}

type subscriptionState struct {
	SubscriptionID int64 `gorm:"primaryKey;autoIncrement:false"`
	Fingerprint    string
	CheckedAt      time.Time
}

type searchState struct {
	UserID            int64 `gorm:"primaryKey;autoIncrement:false"`
	OriginCode        string
	OriginName        string
	DestinationCode   string
	DestinationName   string
	DepartureDate     *time.Time
	Adults            int
	Children          int
	MinSeats          int
	TrainNumbers      string
	CarTypes          string
	ProgressMessageID int
	SelectedTrain     *string
	SelectedTrainInfo string
	Step              string
	PendingDeletions  []int `gorm:"serializer:json"`
	UpdatedAt         time.Time
}

// Store is the SQLite backend.
type Store struct {
	db *gorm.DB
}

var _ storage.Store = (*Store)(nil)

// Open creates the parent directory if needed, opens path and migrates the schema.
// ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite: create data dir: %w", err)
			}
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	// One writer at a time; also keeps ":memory:" on a single connection.
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&subscription{}, &subscriptionState{}, &searchState{}); err != nil {
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	row := subscription(*sub)
	row.ID = 0
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	sub.ID, sub.CreatedAt = row.ID, row.CreatedAt
	return nil
}

func (s *Store) ActiveSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	return s.findSubscriptions(s.db.WithContext(ctx).Where("active = ?", true))
}

func (s *Store) UserSubscriptions(ctx context.Context, userID int64) ([]model.Subscription, error) {
	return s.findSubscriptions(s.db.WithContext(ctx).Where("user_id = ?", userID))
}

func (s *Store) findSubscriptions(tx *gorm.DB) ([]model.Subscription, error) {
	var rows []subscription
	if err := tx.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select subscriptions: %w", err)
	}
	out := make([]model.Subscription, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Subscription(r))
	}
	return out, nil
}

func (s *Store) SetActive(ctx context.Context, id, userID int64, active bool) (bool, error) {
	tx := s.db.WithContext(ctx).Model(&subscription{}).
		Where("id = ? AND user_id = ? AND active <> ?", id, userID, active).
		Update("active", active)
	if tx.Error != nil {
		return false, fmt.Errorf("update subscription %d: %w", id, tx.Error)
	}
	return tx.RowsAffected > 0, nil
}

func (s *Store) Fingerprint(ctx context.Context, subscriptionID int64) (string, bool, error) {
	var row subscriptionState
	err := s.db.WithContext(ctx).Take(&row, "subscription_id = ?", subscriptionID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("select fingerprint %d: %w", subscriptionID, err)
	}
	return row.Fingerprint, true, nil
}

func (s *Store) SaveFingerprint(ctx context.Context, subscriptionID int64, fp string) error {
	row := subscriptionState{SubscriptionID: subscriptionID, Fingerprint: fp, CheckedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subscription_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"fingerprint", "checked_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert fingerprint %d: %w", subscriptionID, err)
	}
	return nil
}

func (s *Store) SearchState(ctx context.Context, userID int64) (*model.SearchState, error) {
	var row searchState
	err := s.db.WithContext(ctx).Take(&row, "user_id = ?", userID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, storage.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("select search state %d: %w", userID, err)
	}
	st := &model.SearchState{
		UserID:            row.UserID,
		OriginCode:        row.OriginCode,
		OriginName:        row.OriginName,
		DestinationCode:   row.DestinationCode,
		DestinationName:   row.DestinationName,
		DepartureDate:     row.DepartureDate,
		Adults:            row.Adults,
		Children:          row.Children,
		MinSeats:          row.MinSeats,
		TrainNumbers:      row.TrainNumbers,
		CarTypes:          row.CarTypes,
		ProgressMessageID: row.ProgressMessageID,
		Step:              model.Step(row.Step),
		PendingDeletions:  row.PendingDeletions,
		UpdatedAt:         row.UpdatedAt,
	}
	if row.SelectedTrain != nil {
		st.SelectedTrain = &model.SelectedTrain{Number: *row.SelectedTrain, Info: row.SelectedTrainInfo}
	}
	if len(st.PendingDeletions) == 0 {
		st.PendingDeletions = nil
	}
	if !st.Step.Valid() {
		st.Step = model.StepOrigin
	}
	return st, nil
}

func (s *Store) SaveSearchState(ctx context.Context, st *model.SearchState) error {
	row := searchState{
		UserID:            st.UserID,
		OriginCode:        st.OriginCode,
		OriginName:        st.OriginName,
		DestinationCode:   st.DestinationCode,
		DestinationName:   st.DestinationName,
		DepartureDate:     st.DepartureDate,
		Adults:            st.Adults,
		Children:          st.Children,
		MinSeats:          st.MinSeats,
		TrainNumbers:      st.TrainNumbers,
		CarTypes:          st.CarTypes,
		ProgressMessageID: st.ProgressMessageID,
		Step:              string(st.Step),
		PendingDeletions:  st.PendingDeletions,
	}
	if row.PendingDeletions == nil {
		row.PendingDeletions = []int{}
	}
	if st.SelectedTrain != nil {
		row.SelectedTrain = &st.SelectedTrain.Number
		row.SelectedTrainInfo = st.SelectedTrain.Info
	}
	// Save upserts on the primary key and writes zero values too.
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("upsert search state %d: %w", st.UserID, err)
	}
	return nil
}

func (s *Store) ClearSearchState(ctx context.Context, userID int64) error {
	if err := s.db.WithContext(ctx).Delete(&searchState{}, "user_id = ?", userID).Error; err != nil {
		return fmt.Errorf("delete search state %d: %w", userID, err)
	}
	return nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Package postgres implements storage.Store on PostgreSQL through sqlx.
// The schema lives in the migrations directory and is applied at startup.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/seatwatch/internal/model"
	"github.com/m3rciful/seatwatch/internal/storage"
)

// Store is the PostgreSQL backend.
type Store struct {
	db *sqlx.DB
}

var _ storage.Store = (*Store)(nil)

// New wraps an open connection pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type subscriptionRow struct {
	ID              int64     `db:"id"`
	UserID          int64     `db:"user_id"`
	OriginCode      string    `db:"origin_code"`
	OriginName      string    `db:"origin_name"`
	DestinationCode string    `db:"destination_code"`
	DestinationName string    `db:"destination_name"`
	DepartureDate   time.Time `db:"departure_date"`
	TrainNumbers    string    `db:"train_numbers"`
	CarTypes        string    `db:"car_types"`
	MinSeats        int       `db:"min_seats"`
	Adults          int       `db:"adults"`
	Children        int       `db:"children"`
	IntervalMinutes int       `db:"interval_minutes"`
	Active          bool      `db:"is_active"`
	CreatedAt       time.Time `db:"created_at"`
}

func (r subscriptionRow) model() model.Subscription {
	return model.Subscription(r)
}

const subscriptionColumns = `id, user_id, origin_code, origin_name, destination_code, destination_name,
	departure_date, train_numbers, car_types, min_seats, adults, children, interval_minutes, is_active, created_at`

func (s *Store) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	row := subscriptionRow(*sub)
	rows, err := s.db.NamedQueryContext(ctx, `
		INSERT INTO subscriptions (user_id, origin_code, origin_name, destination_code, destination_name,
			departure_date, train_numbers, car_types, min_seats, adults, children, interval_minutes, is_active)
		VALUES (:user_id, :origin_code, :origin_name, :destination_code, :destination_name,
			:departure_date, :train_numbers, :car_types, :min_seats, :adults, :children, :interval_minutes, :is_active)
		RETURNING id, created_at`, row)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return fmt.Errorf("insert subscription: no id returned: %w", rows.Err())
	}
	if err := rows.Scan(&sub.ID, &sub.CreatedAt); err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func (s *Store) ActiveSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	return s.selectSubscriptions(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE is_active ORDER BY id`)
}

func (s *Store) UserSubscriptions(ctx context.Context, userID int64) ([]model.Subscription, error) {
	return s.selectSubscriptions(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1 ORDER BY id`, userID)
}

func (s *Store) selectSubscriptions(ctx context.Context, query string, args ...any) ([]model.Subscription, error) {
	var rows []subscriptionRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select subscriptions: %w", err)
	}
	out := make([]model.Subscription, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

func (s *Store) SetActive(ctx context.Context, id, userID int64, active bool) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions SET is_active = $3 WHERE id = $1 AND user_id = $2 AND is_active <> $3`,
		id, userID, active)
	if err != nil {
		return false, fmt.Errorf("update subscription %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update subscription %d: %w", id, err)
	}
	return n > 0, nil
}

func (s *Store) Fingerprint(ctx context.Context, subscriptionID int64) (string, bool, error) {
	var fp string
	err := s.db.GetContext(ctx, &fp,
		`SELECT fingerprint FROM subscription_states WHERE subscription_id = $1`, subscriptionID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("select fingerprint %d: %w", subscriptionID, err)
	}
	return fp, true, nil
}

func (s *Store) SaveFingerprint(ctx context.Context, subscriptionID int64, fp string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscription_states (subscription_id, fingerprint, checked_at)
		VALUES ($1, $2, now())
		ON CONFLICT (subscription_id) DO UPDATE SET fingerprint = EXCLUDED.fingerprint, checked_at = EXCLUDED.checked_at`,
		subscriptionID, fp)
	if err != nil {
		return fmt.Errorf("upsert fingerprint %d: %w", subscriptionID, err)
	}
	return nil
}

type searchStateRow struct {
	UserID            int64          `db:"user_id"`
	OriginCode        string         `db:"origin_code"`
	OriginName        string         `db:"origin_name"`
	DestinationCode   string         `db:"destination_code"`
	DestinationName   string         `db:"destination_name"`
	DepartureDate     sql.NullTime   `db:"departure_date"`
	Adults            int            `db:"adults"`
	Children          int            `db:"children"`
	MinSeats          int            `db:"min_seats"`
	TrainNumbers      string         `db:"train_numbers"`
	CarTypes          string         `db:"car_types"`
	ProgressMessageID int            `db:"progress_message_id"`
	SelectedTrain     sql.NullString `db:"selected_train"`
	SelectedTrainInfo string         `db:"selected_train_info"`
	Step              string         `db:"step"`
	PendingDeletions  pq.Int64Array  `db:"pending_deletions"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func toSearchStateRow(st *model.SearchState) searchStateRow {
	r := searchStateRow{
		UserID:            st.UserID,
		OriginCode:        st.OriginCode,
		OriginName:        st.OriginName,
		DestinationCode:   st.DestinationCode,
		DestinationName:   st.DestinationName,
		Adults:            st.Adults,
		Children:          st.Children,
		MinSeats:          st.MinSeats,
		TrainNumbers:      st.TrainNumbers,
		CarTypes:          st.CarTypes,
		ProgressMessageID: st.ProgressMessageID,
		Step:              string(st.Step),
		PendingDeletions:  make(pq.Int64Array, 0, len(st.PendingDeletions)),
	}
	if st.DepartureDate != nil {
		r.DepartureDate = sql.NullTime{Time: *st.DepartureDate, Valid: true}
	}
	if st.SelectedTrain != nil {
		r.SelectedTrain = sql.NullString{String: st.SelectedTrain.Number, Valid: true}
		r.SelectedTrainInfo = st.SelectedTrain.Info
	}
	for _, id := range st.PendingDeletions {
		r.PendingDeletions = append(r.PendingDeletions, int64(id))
	}
	return r
}

func (r searchStateRow) model() *model.SearchState {
	st := &model.SearchState{
		UserID:            r.UserID,
		OriginCode:        r.OriginCode,
		OriginName:        r.OriginName,
		DestinationCode:   r.DestinationCode,
		DestinationName:   r.DestinationName,
		Adults:            r.Adults,
		Children:          r.Children,
		MinSeats:          r.MinSeats,
		TrainNumbers:      r.TrainNumbers,
		CarTypes:          r.CarTypes,
		ProgressMessageID: r.ProgressMessageID,
		Step:              model.Step(r.Step),
		UpdatedAt:         r.UpdatedAt,
	}
	if r.DepartureDate.Valid {
		d := r.DepartureDate.Time
		st.DepartureDate = &d
	}
	if r.SelectedTrain.Valid {
		st.SelectedTrain = &model.SelectedTrain{Number: r.SelectedTrain.String, Info: r.SelectedTrainInfo}
	}
	for _, id := range r.PendingDeletions {
		st.PendingDeletions = append(st.PendingDeletions, int(id))
	}
	if !st.Step.Valid() {
		st.Step = model.StepOrigin
	}
	return st
}

func (s *Store) SearchState(ctx context.Context, userID int64) (*model.SearchState, error) {
	var row searchStateRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM search_states WHERE user_id = $1`, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, storage.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("select search state %d: %w", userID, err)
	}
	return row.model(), nil
}

func (s *Store) SaveSearchState(ctx context.Context, st *model.SearchState) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO search_states (user_id, origin_code, origin_name, destination_code, destination_name,
			departure_date, adults, children, min_seats, train_numbers, car_types, progress_message_id,
			selected_train, selected_train_info, step, pending_deletions, updated_at)
		VALUES (:user_id, :origin_code, :origin_name, :destination_code, :destination_name,
			:departure_date, :adults, :children, :min_seats, :train_numbers, :car_types, :progress_message_id,
			:selected_train, :selected_train_info, :step, :pending_deletions, now())
		ON CONFLICT (user_id) DO UPDATE SET
			origin_code = EXCLUDED.origin_code,
			origin_name = EXCLUDED.origin_name,
			destination_code = EXCLUDED.destination_code,
			destination_name = EXCLUDED.destination_name,
			departure_date = EXCLUDED.departure_date,
			adults = EXCLUDED.adults,
			children = EXCLUDED.children,
			min_seats = EXCLUDED.min_seats,
			train_numbers = EXCLUDED.train_numbers,
			car_types = EXCLUDED.car_types,
			progress_message_id = EXCLUDED.progress_message_id,
			selected_train = EXCLUDED.selected_train,
			selected_train_info = EXCLUDED.selected_train_info,
			step = EXCLUDED.step,
			pending_deletions = EXCLUDED.pending_deletions,
			updated_at = EXCLUDED.updated_at`,
		toSearchStateRow(st))
	if err != nil {
		return fmt.Errorf("upsert search state %d: %w", st.UserID, err)
	}
	return nil
}

func (s *Store) ClearSearchState(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM search_states WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete search state %d: %w", userID, err)
	}
	return nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Package memory is a process-local storage.Store for tests and throwaway runs.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/m3rciful/seatwatch/internal/model"
	"github.com/m3rciful/seatwatch/internal/storage"
)

// Store keeps everything in maps guarded by one mutex.
type Store struct {
	mu           sync.Mutex
	nextID       int64
	subs         map[int64]model.Subscription
	fingerprints map[int64]string
	states       map[int64]model.SearchState
	now          func() time.Time
}

var _ storage.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		subs:         make(map[int64]model.Subscription),
		fingerprints: make(map[int64]string),
		states:       make(map[int64]model.SearchState),
		now:          time.Now,
	}
}

func (s *Store) CreateSubscription(_ context.Context, sub *model.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sub.ID = s.nextID
	sub.CreatedAt = s.now()
	s.subs[sub.ID] = *sub
	return nil
}

func (s *Store) ActiveSubscriptions(_ context.Context) ([]model.Subscription, error) {
	return s.filter(func(sub model.Subscription) bool { return sub.Active }), nil
}

func (s *Store) UserSubscriptions(_ context.Context, userID int64) ([]model.Subscription, error) {
	return s.filter(func(sub model.Subscription) bool { return sub.UserID == userID }), nil
}

func (s *Store) filter(keep func(model.Subscription) bool) []model.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Subscription
	for _, sub := range s.subs {
		if keep(sub) {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) SetActive(_ context.Context, id, userID int64, active bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok || sub.UserID != userID || sub.Active == active {
		return false, nil
	}
	sub.Active = active
	s.subs[id] = sub
	return true, nil
}

func (s *Store) Fingerprint(_ context.Context, subscriptionID int64) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fp, ok := s.fingerprints[subscriptionID]
	return fp, ok, nil
}

func (s *Store) SaveFingerprint(_ context.Context, subscriptionID int64, fp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fingerprints[subscriptionID] = fp
	return nil
}

func (s *Store) SearchState(_ context.Context, userID int64) (*model.SearchState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneState(st), nil
}

func (s *Store) SaveSearchState(_ context.Context, st *model.SearchState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := cloneState(*st)
	c.UpdatedAt = s.now()
	s.states[st.UserID] = *c
	return nil
}

func (s *Store) ClearSearchState(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// cloneState copies the pointer and slice fields so callers never share them with the store.
func cloneState(st model.SearchState) *model.SearchState {
	st.PendingDeletions = slices.Clone(st.PendingDeletions)
	if st.DepartureDate != nil {
		d := *st.DepartureDate
		st.DepartureDate = &d
	}
	if st.SelectedTrain != nil {
		t := *st.SelectedTrain
		st.SelectedTrain = &t
	}
	return &st
}

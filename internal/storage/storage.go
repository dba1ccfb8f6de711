// Package storage defines the persistence contract for subscriptions,
// availability fingerprints and search states.
package storage

import (
	"context"
	"errors"

	"github.com/m3rciful/seatwatch/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// Store persists the bot state. Every method is a single atomic operation.
type Store interface {
	// CreateSubscription inserts sub and fills its ID and CreatedAt.
	CreateSubscription(ctx context.Context, sub *model.Subscription) error
	ActiveSubscriptions(ctx context.Context) ([]model.Subscription, error)
	// UserSubscriptions lists every subscription of the user, active or not, by id.
	UserSubscriptions(ctx context.Context, userID int64) ([]model.Subscription, error)
	// SetActive flips the active flag of a subscription owned by userID.
	// It reports false when no such subscription is in the opposite state.
	SetActive(ctx context.Context, id, userID int64, active bool) (bool, error)

	// Fingerprint returns the last stored availability fingerprint; ok is false if none yet.
	Fingerprint(ctx context.Context, subscriptionID int64) (fp string, ok bool, err error)
	SaveFingerprint(ctx context.Context, subscriptionID int64, fp string) error

	// SearchState returns ErrNotFound when the user has no saved state.
	SearchState(ctx context.Context, userID int64) (*model.SearchState, error)
	SaveSearchState(ctx context.Context, st *model.SearchState) error
	ClearSearchState(ctx context.Context, userID int64) error

	Close() error
}

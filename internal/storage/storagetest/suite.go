// Package storagetest holds the behaviour suite every storage.Store backend must pass.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/seatwatch/internal/model"
	"github.com/m3rciful/seatwatch/internal/storage"
)

// Run exercises a fresh store returned by newStore for each subtest.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("subscriptions", func(t *testing.T) { testSubscriptions(t, newStore(t)) })
	t.Run("fingerprints", func(t *testing.T) { testFingerprints(t, newStore(t)) })
	t.Run("search state", func(t *testing.T) { testSearchState(t, newStore(t)) })
}

func sampleSubscription(userID int64, trains string) *model.Subscription {
	return &model.Subscription{
		UserID:          userID,
		OriginCode:      "2000000",
		OriginName:      "Москва",
		DestinationCode: "2004000",
		DestinationName: "Санкт-Петербург",
		DepartureDate:   time.Date(2030, 1, 15, 0, 0, 0, 0, time.UTC),
		TrainNumbers:    trains,
		MinSeats:        2,
		Adults:          1,
		IntervalMinutes: 5,
		Active:          true,
	}
}

func testSubscriptions(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := sampleSubscription(1, "001А")
	b := sampleSubscription(1, "")
	c := sampleSubscription(2, "002Б")
	for _, sub := range []*model.Subscription{a, b, c} {
		require.NoError(t, s.CreateSubscription(ctx, sub))
		assert.NotZero(t, sub.ID)
		assert.False(t, sub.CreatedAt.IsZero())
	}
	assert.NotEqual(t, a.ID, b.ID)

	mine, err := s.UserSubscriptions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, a.ID, mine[0].ID)
	assert.Equal(t, "001А", mine[0].TrainNumbers)
	assert.Equal(t, "Санкт-Петербург", mine[0].DestinationName)
	assert.True(t, mine[0].DepartureDate.Equal(a.DepartureDate))
	assert.Equal(t, 2, mine[0].MinSeats)

	changed, err := s.SetActive(ctx, b.ID, 2, false)
	require.NoError(t, err)
	assert.False(t, changed, "other users cannot disable")

	changed, err = s.SetActive(ctx, b.ID, 1, false)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = s.SetActive(ctx, b.ID, 1, false)
	require.NoError(t, err)
	assert.False(t, changed, "already disabled")

	active, err := s.ActiveSubscriptions(ctx)
	require.NoError(t, err)
	ids := make([]int64, 0, len(active))
	for _, sub := range active {
		ids = append(ids, sub.ID)
	}
	assert.ElementsMatch(t, []int64{a.ID, c.ID}, ids)

	mine, err = s.UserSubscriptions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, mine, 2, "disabled rows are kept")

	changed, err = s.SetActive(ctx, b.ID, 1, true)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.SetActive(ctx, 99999, 1, false)
	require.NoError(t, err)
	assert.False(t, changed)
}

func testFingerprints(t *testing.T, s storage.Store) {
	ctx := context.Background()
	sub := sampleSubscription(1, "")
	require.NoError(t, s.CreateSubscription(ctx, sub))

	_, ok, err := s.Fingerprint(ctx, sub.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveFingerprint(ctx, sub.ID, "001:0"))
	require.NoError(t, s.SaveFingerprint(ctx, sub.ID, "001:3"))
	fp, ok, err := s.Fingerprint(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "001:3", fp)

	require.NoError(t, s.SaveFingerprint(ctx, sub.ID, ""))
	fp, ok, err = s.Fingerprint(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, ok, "an empty fingerprint is still a stored one")
	assert.Empty(t, fp)
}

func testSearchState(t *testing.T, s storage.Store) {
	ctx := context.Background()
	_, err := s.SearchState(ctx, 5)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	date := time.Date(2030, 1, 15, 0, 0, 0, 0, time.UTC)
	st := model.NewSearchState(5)
	st.OriginCode, st.OriginName = "2000000", "Москва"
	st.DepartureDate = &date
	st.Step = model.StepDone
	st.SetProgressMessage(40)
	st.QueueDeletion(41)
	st.QueueDeletion(42)
	st.SelectedTrain = &model.SelectedTrain{Number: "001А", Info: "МОСКВА 23:55->08:25"}
	require.NoError(t, s.SaveSearchState(ctx, st))

	got, err := s.SearchState(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, model.StepDone, got.Step)
	assert.Equal(t, "Москва", got.OriginName)
	assert.Equal(t, 40, got.ProgressMessageID)
	assert.Equal(t, []int{41, 42}, got.PendingDeletions)
	require.NotNil(t, got.DepartureDate)
	assert.True(t, got.DepartureDate.Equal(date))
	require.NotNil(t, got.SelectedTrain)
	assert.Equal(t, "001А", got.SelectedTrain.Number)
	assert.Equal(t, 1, got.Adults)

	got.TakePending()
	got.SelectedTrain = nil
	got.DepartureDate = nil
	got.Step = model.StepDate
	require.NoError(t, s.SaveSearchState(ctx, got))
	got, err = s.SearchState(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, got.PendingDeletions)
	assert.Nil(t, got.SelectedTrain)
	assert.Nil(t, got.DepartureDate)
	assert.Equal(t, model.StepDate, got.Step)

	require.NoError(t, s.ClearSearchState(ctx, 5))
	_, err = s.SearchState(ctx, 5)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, s.ClearSearchState(ctx, 5), "clearing twice is fine")
}

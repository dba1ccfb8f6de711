package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueueDeletionInvariants(t *testing.T) {
	s := NewSearchState(7)
	s.SetProgressMessage(10)

	assert.False(t, s.QueueDeletion(10), "progress message must never be queued")
	assert.False(t, s.QueueDeletion(0))
	assert.True(t, s.QueueDeletion(11))
	assert.False(t, s.QueueDeletion(11))
	assert.True(t, s.QueueDeletion(12))
	assert.Equal(t, []int{11, 12}, s.PendingDeletions)

	s.SetProgressMessage(12)
	assert.Equal(t, []int{11}, s.PendingDeletions)

	assert.Equal(t, []int{11}, s.TakePending())
	assert.Empty(t, s.PendingDeletions)
}

func TestResetKeepsPassengersAndQueue(t *testing.T) {
	d := time.Date(2030, 1, 15, 0, 0, 0, 0, time.UTC)
	s := &SearchState{
		UserID: 1, OriginCode: "2000000", DestinationCode: "2004000", DepartureDate: &d,
		Adults: 2, ProgressMessageID: 5, SelectedTrain: &SelectedTrain{Number: "001А"},
		Step: StepDone, PendingDeletions: []int{6},
	}
	s.Reset()
	assert.Equal(t, StepOrigin, s.Step)
	assert.Empty(t, s.OriginCode)
	assert.Nil(t, s.DepartureDate)
	assert.Nil(t, s.SelectedTrain)
	assert.Zero(t, s.ProgressMessageID)
	assert.Equal(t, 2, s.Adults)
	assert.Equal(t, 1, s.MinSeats)
	assert.Equal(t, []int{6}, s.PendingDeletions)
}

func TestSubscriptionFilters(t *testing.T) {
	sub := Subscription{TrainNumbers: " 001А, ,002Б", CarTypes: ""}
	assert.Equal(t, []string{"001А", "002Б"}, sub.TrainFilter())
	assert.Nil(t, sub.CarTypeFilter())
	assert.False(t, sub.IsRouteWide())
	assert.True(t, Subscription{}.IsRouteWide())
	assert.Equal(t, 1, Subscription{MinSeats: 0}.Threshold())
	assert.Equal(t, 3, Subscription{MinSeats: 3}.Threshold())
}

func TestTrainAvailableSeats(t *testing.T) {
	tr := Train{CarGroups: []CarGroup{
		{CarType: "Compartment", Available: true, Seats: 4},
		{CarType: "ReservedSeat", Available: true, Seats: 10},
		{CarType: "Luxury", Available: false, Seats: 2},
	}}
	assert.Equal(t, 14, tr.AvailableSeats(nil))
	assert.Equal(t, 4, tr.AvailableSeats([]string{"Compartment", "Luxury"}))
}

func TestStationLabelAndDepartureParam(t *testing.T) {
	assert.Equal(t, "Москва (2000000)", Station{Code: "2000000", Name: "Москва"}.Label())
	assert.Equal(t, "2000000", Station{Code: "2000000"}.Label())

	q := TrainQuery{Date: time.Date(2030, 3, 9, 17, 45, 0, 0, time.Local)}
	assert.Equal(t, "2030-03-09T00:00:00", q.DepartureParam())
}

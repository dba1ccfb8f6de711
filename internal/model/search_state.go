// Package model holds the train-search domain records shared by the
// provider, storage, search and monitor packages.
package model

import (
	"slices"
	"time"
)

// Step is the position of a user inside the search flow.
type Step string

const (
	StepOrigin      Step = "origin"
	StepDestination Step = "destination"
	StepDate        Step = "date"
	StepTrain       Step = "train"
	StepDone        Step = "done"
)

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	switch s {
	case StepOrigin, StepDestination, StepDate, StepTrain, StepDone:
		return true
	}
	return false
}

// SelectedTrain is the train the user picked in the train step.
type SelectedTrain struct {
	Number string
	Info   string
}

// SearchState is the per-user progress through the search flow.
type SearchState struct {
	UserID int64

	OriginCode      string
	OriginName      string
	DestinationCode string
	DestinationName string
	DepartureDate   *time.Time

	Adults       int
	Children     int
	MinSeats     int
	TrainNumbers string
	CarTypes     string

	ProgressMessageID int
	SelectedTrain     *SelectedTrain
	Step              Step
	// PendingDeletions never contains ProgressMessageID.
	PendingDeletions []int

	UpdatedAt time.Time
}

// NewSearchState returns a fresh state at the origin step with default passengers.
func NewSearchState(userID int64) *SearchState {
	return &SearchState{UserID: userID, Adults: 1, MinSeats: 1, Step: StepOrigin}
}

// Reset clears the route, date, selection and progress message and
// returns to the origin step. Passenger settings and the deletion queue survive.
func (s *SearchState) Reset() {
	s.OriginCode, s.OriginName = "", ""
	s.DestinationCode, s.DestinationName = "", ""
	s.DepartureDate = nil
	s.SelectedTrain = nil
	s.ProgressMessageID = 0
	s.Step = StepOrigin
	if s.Adults <= 0 {
		s.Adults = 1
	}
	if s.MinSeats <= 0 {
		s.MinSeats = 1
	}
}

// QueueDeletion schedules a message for removal. Zero ids, duplicates and
// the progress message are ignored; it reports whether id was queued.
func (s *SearchState) QueueDeletion(id int) bool {
	if id == 0 || id == s.ProgressMessageID || slices.Contains(s.PendingDeletions, id) {
		return false
	}
	s.PendingDeletions = append(s.PendingDeletions, id)
	return true
}

// SetProgressMessage records the live progress message and drops it from the deletion queue.
func (s *SearchState) SetProgressMessage(id int) {
	s.ProgressMessageID = id
	s.PendingDeletions = slices.DeleteFunc(s.PendingDeletions, func(v int) bool { return v == id })
}

// TakePending returns the queued ids and empties the queue.
func (s *SearchState) TakePending() []int {
	ids := s.PendingDeletions
	s.PendingDeletions = nil
	return ids
}

// RouteComplete reports whether origin, destination and date are all chosen.
func (s *SearchState) RouteComplete() bool {
	return s.OriginCode != "" && s.DestinationCode != "" && s.DepartureDate != nil
}

package model

import (
	"fmt"
	"slices"
	"time"
)

// ProviderDateLayout is the departure date form the ticket provider expects.
const ProviderDateLayout = "2006-01-02T15:04:05"

// Station is a directory entry returned by the suggest endpoint.
type Station struct {
	Code string
	Name string
}

// Label renders "Name (code)", falling back to whichever part is present.
func (s Station) Label() string {
	switch {
	case s.Name != "" && s.Code != "":
		return fmt.Sprintf("%s (%s)", s.Name, s.Code)
	case s.Name != "":
		return s.Name
	}
	return s.Code
}

// CarGroup is one class of cars in a train with its free seats.
type CarGroup struct {
	CarType   string
	Available bool
	Seats     int
}

// Train is one departure on the requested route and date.
type Train struct {
	Number    string
	Route     string
	Departure string
	Arrival   string
	CarGroups []CarGroup
}

// AvailableSeats sums seats over available car groups, limited to carTypes when non-empty.
func (t Train) AvailableSeats(carTypes []string) int {
	total := 0
	for _, g := range t.CarGroups {
		if !g.Available {
			continue
		}
		if len(carTypes) > 0 && !slices.Contains(carTypes, g.CarType) {
			continue
		}
		total += g.Seats
	}
	return total
}

// TrainQuery is a provider request for trains between two stations.
type TrainQuery struct {
	OriginCode      string
	DestinationCode string
	Date            time.Time
	Adults          int
	Children        int
}

// DepartureParam renders Date at local midnight in the provider wire form.
func (q TrainQuery) DepartureParam() string {
	y, m, d := q.Date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, q.Date.Location()).Format(ProviderDateLayout)
}

// TrainList is a provider response. TotalCount counts all trains even when
// Trains was cut to a display limit.
type TrainList struct {
	Trains     []Train
	TotalCount int
}

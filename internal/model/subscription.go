package model

import (
	"strings"
	"time"
)

// Subscription asks the monitor to watch a route and date, optionally
// narrowed to specific trains and car types.
type Subscription struct {
	ID     int64
	UserID int64

	OriginCode      string
	OriginName      string
	DestinationCode string
	DestinationName string
	DepartureDate   time.Time

	// TrainNumbers and CarTypes are comma-separated; empty means any.
	TrainNumbers string
	CarTypes     string

	MinSeats        int
	Adults          int
	Children        int
	IntervalMinutes int
	Active          bool
	CreatedAt       time.Time
}

// TrainFilter returns the parsed train number filter, nil for any train.
func (s Subscription) TrainFilter() []string {
	return splitList(s.TrainNumbers)
}

// CarTypeFilter returns the parsed car type filter, nil for any car type.
func (s Subscription) CarTypeFilter() []string {
	return splitList(s.CarTypes)
}

// IsRouteWide reports whether every train on the route is watched.
func (s Subscription) IsRouteWide() bool {
	return len(s.TrainFilter()) == 0
}

// Threshold is the minimum per-train seat count that counts as availability.
func (s Subscription) Threshold() int {
	return max(1, s.MinSeats)
}

// Query builds the provider request for the subscription.
func (s Subscription) Query() TrainQuery {
	return TrainQuery{
		OriginCode:      s.OriginCode,
		DestinationCode: s.DestinationCode,
		Date:            s.DepartureDate,
		Adults:          s.Adults,
		Children:        s.Children,
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

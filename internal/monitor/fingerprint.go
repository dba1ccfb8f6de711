package monitor

import (
	"slices"
	"strconv"
	"strings"

	"github.com/m3rciful/seatwatch/internal/model"
)

// trainSeats is one watched train with the seats counted for a subscription.
type trainSeats struct {
	train model.Train
	seats int
}

// evaluation is the outcome of applying a subscription's filters to a poll.
type evaluation struct {
	trains      []trainSeats
	qualifying  []trainSeats
	fingerprint string
}

// Available reports whether at least one train meets the seat threshold.
func (e evaluation) Available() bool {
	return len(e.qualifying) > 0
}

// evaluate keeps the trains the subscription watches, counts their seats
// and derives the order-independent fingerprint.
func evaluate(sub model.Subscription, trains []model.Train) evaluation {
	numbers := sub.TrainFilter()
	carTypes := sub.CarTypeFilter()
	threshold := sub.Threshold()

	var ev evaluation
	for _, tr := range trains {
		if len(numbers) > 0 && !slices.Contains(numbers, tr.Number) {
			continue
		}
		ts := trainSeats{train: tr, seats: tr.AvailableSeats(carTypes)}
		ev.trains = append(ev.trains, ts)
		if ts.seats >= threshold {
			ev.qualifying = append(ev.qualifying, ts)
		}
	}
	ev.fingerprint = fingerprintOf(ev.trains)
	return ev
}

// fingerprintOf renders sorted, comma-joined "number:seats" pairs.
func fingerprintOf(trains []trainSeats) string {
	parts := make([]string, 0, len(trains))
	for _, ts := range trains {
		parts = append(parts, ts.train.Number+":"+strconv.Itoa(ts.seats))
	}
	slices.Sort(parts)
	return strings.Join(parts, ",")
}

package rzd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/seatwatch/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{
		SuggestURL: srv.URL + "/suggests",
		TrainsURL:  srv.URL + "/train-pricing",
		UserAgent:  "seatwatch-test",
		HTTPClient: srv.Client(),
	})
}

func TestFindStationsMergesGroups(t *testing.T) {
	var gotQuery, gotUA string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("Query")
		gotUA = r.UserAgent()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"train": [{"name": "МОСКВА", "expressCode": "2000000"}, {"name": "НОНАМЕ", "expressCode": ""}],
			"city":  [{"name": "Москва", "expressCode": "2000000"}, {"name": "Мытищи", "expressCode": "2000601"}],
			"avia":  [{"name": "Шереметьево", "expressCode": "2000100"}]
		}`))
	})

	stations, err := c.FindStations(context.Background(), "Москва")
	require.NoError(t, err)
	assert.Equal(t, "Москва", gotQuery)
	assert.Equal(t, "seatwatch-test", gotUA)
	assert.Equal(t, []model.Station{
		{Code: "2000000", Name: "МОСКВА"},
		{Code: "2000601", Name: "Мытищи"},
		{Code: "2000100", Name: "Шереметьево"},
	}, stations)
}

func TestFindTrainsParsesCarGroups(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2000000", q.Get("origin"))
		assert.Equal(t, "2004000", q.Get("destination"))
		assert.Equal(t, "2030-01-15T00:00:00", q.Get("departureDate"))
		assert.Equal(t, "2", q.Get("adultPassengersQuantity"))
		assert.Equal(t, "0", q.Get("childrenPassengersQuantity"))
		_, _ = w.Write([]byte(`{"Trains": [{
			"TrainNumber": "001А", "RouteName": "МОСКВА — С-ПЕТЕРБУРГ",
			"DepartureTime": "23:55", "ArrivalTime": "08:25",
			"CarGroups": [
				{"CarType": "Compartment", "AvailabilityIndication": "Available", "PlaceQuantity": 4},
				{"CarType": "Luxury", "AvailabilityIndication": "NoPlaces", "PlaceQuantity": 0}
			]
		}]}`))
	})

	list, err := c.FindTrains(context.Background(), model.TrainQuery{
		OriginCode: "2000000", DestinationCode: "2004000",
		Date:   time.Date(2030, 1, 15, 0, 0, 0, 0, time.UTC),
		Adults: 2,
	})
	require.NoError(t, err)
	require.Len(t, list.Trains, 1)
	assert.Equal(t, 1, list.TotalCount)
	tr := list.Trains[0]
	assert.Equal(t, "001А", tr.Number)
	assert.Equal(t, "23:55", tr.Departure)
	assert.Equal(t, []model.CarGroup{
		{CarType: "Compartment", Available: true, Seats: 4},
		{CarType: "Luxury", Available: false, Seats: 0},
	}, tr.CarGroups)
	assert.Equal(t, 4, tr.AvailableSeats(nil))
}

func TestUpstreamFailuresWrapSentinel(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status":   func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) },
		"bad json": func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"Trains": [`)) },
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, h)
			_, err := c.FindTrains(context.Background(), model.TrainQuery{Date: time.Now()})
			assert.ErrorIs(t, err, ErrUpstream)
			_, err = c.FindStations(context.Background(), "Москва")
			assert.ErrorIs(t, err, ErrUpstream)
		})
	}
}

func TestCancelledContextFails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{}`)) })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FindStations(ctx, "Москва")
	assert.ErrorIs(t, err, ErrUpstream)
}

// Package rzd is the client for the RZD ticket site's station suggest and
// train pricing endpoints.
package rzd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"
	"golang.org/x/time/rate"

	"github.com/m3rciful/seatwatch/core/logger"
	"github.com/m3rciful/seatwatch/core/netutil"
	"github.com/m3rciful/seatwatch/internal/model"
)

// ErrUpstream wraps every transport, status or decoding failure of the provider.
var ErrUpstream = errors.New("rzd: upstream failure")

const acceptLanguage = "ru-RU,ru;q=0.9"

// Options configures Client.
type Options struct {
	SuggestURL string
	TrainsURL  string
	UserAgent  string
	Timeout    time.Duration
	// RatePerSecond <= 0 disables client-side throttling.
	RatePerSecond float64
	Burst         int
	// HTTPClient overrides the retrying client; used by tests.
	HTTPClient *http.Client
}

// Client queries the provider. It is safe for concurrent use.
type Client struct {
	opts    Options
	http    *http.Client
	limiter *rate.Limiter
}

// New builds a Client with a retrying HTTP client and an optional rate limiter.
func New(opts Options) *Client {
	cl := opts.HTTPClient
	if cl == nil {
		cl = netutil.BuildHTTPClient(netutil.ClientOptions{Timeout: opts.Timeout, ResponseTimeout: opts.Timeout})
	}
	lim := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSecond > 0 {
		lim = rate.NewLimiter(rate.Limit(opts.RatePerSecond), max(1, opts.Burst))
	}
	return &Client{opts: opts, http: cl, limiter: lim}
}

type suggestResponse struct {
	Train []suggestItem `json:"train"`
	City  []suggestItem `json:"city"`
	Avia  []suggestItem `json:"avia"`
}

type suggestItem struct {
	Name        string `json:"name"`
	ExpressCode string `json:"expressCode"`
}

// FindStations resolves free text to stations. Train, city and avia groups
// are merged in that order; entries without an express code are dropped and
// duplicates collapse to the first occurrence.
func (c *Client) FindStations(ctx context.Context, query string) ([]model.Station, error) {
	var resp suggestResponse
	err := c.fetch(ctx, "suggest", c.opts.SuggestURL, &resp, map[string]string{
		"Query":               query,
		"TransportType":       "bus,avia,rail,aeroexpress,suburban,boat",
		"GroupResults":        "true",
		"RailwaySortPriority": "true",
		"SynonymOn":           "1",
		"Language":            "ru",
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []model.Station
	for _, group := range [][]suggestItem{resp.Train, resp.City, resp.Avia} {
		for _, it := range group {
			code := strings.TrimSpace(it.ExpressCode)
			if code == "" {
				continue
			}
			if _, dup := seen[code]; dup {
				continue
			}
			seen[code] = struct{}{}
			out = append(out, model.Station{Code: code, Name: strings.TrimSpace(it.Name)})
		}
	}
	return out, nil
}

type trainsResponse struct {
	Trains []trainItem `json:"Trains"`
}

type trainItem struct {
	TrainNumber   string         `json:"TrainNumber"`
	RouteName     string         `json:"RouteName"`
	DepartureTime string         `json:"DepartureTime"`
	ArrivalTime   string         `json:"ArrivalTime"`
	CarGroups     []carGroupItem `json:"CarGroups"`
}

type carGroupItem struct {
	CarType                string `json:"CarType"`
	AvailabilityIndication string `json:"AvailabilityIndication"`
	PlaceQuantity          int    `json:"PlaceQuantity"`
}

// FindTrains lists departures for q with per-car-group seat counts.
func (c *Client) FindTrains(ctx context.Context, q model.TrainQuery) (model.TrainList, error) {
	var resp trainsResponse
	err := c.fetch(ctx, "trains", c.opts.TrainsURL, &resp, map[string]string{
		"service_provider":           "B2B_RZD",
		"getByLocalTime":             "true",
		"carGrouping":                "DontGroup",
		"origin":                     q.OriginCode,
		"destination":                q.DestinationCode,
		"departureDate":              q.DepartureParam(),
		"specialPlacesDemand":        "StandardPlacesAndForDisabledPersons",
		"carIssuingType":             "Passenger",
		"getTrainsFromSchedule":      "true",
		"adultPassengersQuantity":    strconv.Itoa(max(1, q.Adults)),
		"childrenPassengersQuantity": strconv.Itoa(max(0, q.Children)),
		"hasPlacesForLargeFamily":    "false",
	})
	if err != nil {
		return model.TrainList{}, err
	}

	list := model.TrainList{Trains: make([]model.Train, 0, len(resp.Trains)), TotalCount: len(resp.Trains)}
	for _, it := range resp.Trains {
		tr := model.Train{
			Number:    strings.TrimSpace(it.TrainNumber),
			Route:     strings.TrimSpace(it.RouteName),
			Departure: it.DepartureTime,
			Arrival:   it.ArrivalTime,
		}
		for _, g := range it.CarGroups {
			tr.CarGroups = append(tr.CarGroups, model.CarGroup{
				CarType:   g.CarType,
				Available: g.AvailabilityIndication == "Available",
				Seats:     g.PlaceQuantity,
			})
		}
		list.Trains = append(list.Trains, tr)
	}
	return list, nil
}

func (c *Client) fetch(ctx context.Context, op, endpoint string, dst any, params map[string]string) error {
	start := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s: rate limit wait: %w", ErrUpstream, op, err)
	}

	b := requests.URL(endpoint).
		Client(c.http).
		Accept("application/json, text/plain, */*").
		Header("Accept-Language", acceptLanguage).
		ToJSON(dst)
	if c.opts.UserAgent != "" {
		b = b.UserAgent(c.opts.UserAgent)
	}
	for k, v := range params {
		b = b.Param(k, v)
	}
	err := b.Fetch(ctx)
	observe(op, err, time.Since(start))
	if err != nil {
		logger.Warn(ctx, logger.CompProvider, "provider.fetch",
			slog.String("status", "fail"),
			slog.String("endpoint", op),
			slog.Duration("duration", logger.Took(start)),
			logger.Err(err),
		)
		return fmt.Errorf("%w: %s: %w", ErrUpstream, op, err)
	}
	logger.Debug(ctx, logger.CompProvider, "provider.fetch",
		slog.String("status", "ok"),
		slog.String("endpoint", op),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

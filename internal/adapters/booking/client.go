// Package booking is the destination-based rental provider reached through a
// RapidAPI host: destination text -> dest_id/search_type -> property search.
package booking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"trip_planner/internal/adapters/httpclient"
	"trip_planner/internal/adapters/observability"
	"trip_planner/internal/adapters/payload"
	"trip_planner/internal/domain"
)

const (
	DefaultHost       = "booking-com15.p.rapidapi.com"
	DefaultCategories = "class::2,class::4,free_cancellation::1"
)

const source = domain.SourceRentalSearch

// DefaultAliases rewrites region shorthands into queries the destination
// search resolves well.
func DefaultAliases() map[string]string {
	return map[string]string{
		"nc": "Wilmington",
		"sc": "Myrtle Beach",
	}
}

type Config struct {
	APIKey     string
	Host       string
	BaseURL    string // defaults to https://{Host}
	Categories string
	Aliases    map[string]string
}

type Client struct {
	cfg Config
	hc  *httpclient.Client
}

// Suggestion is one destination-search match, as served by the places autocomplete.
type Suggestion struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Type       string  `json:"type"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	SearchType string  `json:"searchType"`
}

func New(cfg Config, hc *httpclient.Client) *Client {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://" + cfg.Host
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Categories == "" {
		cfg.Categories = DefaultCategories
	}
	if cfg.Aliases == nil {
		cfg.Aliases = DefaultAliases()
	}
	if hc == nil {
		hc = httpclient.New("booking")
	}
	return &Client{cfg: cfg, hc: hc}
}

func (c *Client) Name() domain.Source { return source }

func (c *Client) Configured() bool { return strings.TrimSpace(c.cfg.APIKey) != "" }

func (c *Client) headers() http.Header {
	return http.Header{
		"x-rapidapi-key":  {c.cfg.APIKey},
		"x-rapidapi-host": {c.cfg.Host},
	}
}

func (c *Client) query(destination string) string {
	d := strings.TrimSpace(destination)
	if q, ok := c.cfg.Aliases[strings.ToLower(d)]; ok {
		return q
	}
	return d
}

// SearchRentals never fails; errors are logged and yield an empty slice.
func (c *Client) SearchRentals(ctx context.Context, destination, checkIn, checkOut string, adults, kids int, budget float64) []domain.Listing {
	out, err := c.Search(ctx, domain.SearchRequest{
		Destination: destination, CheckIn: checkIn, CheckOut: checkOut,
		Adults: adults, Kids: kids, Budget: budget,
	})
	if err != nil {
		log.Warn().Str("provider", string(source)).Err(err).Msg("rental search failed")
		return []domain.Listing{}
	}
	return out
}

func (c *Client) Search(ctx context.Context, req domain.SearchRequest) ([]domain.Listing, error) {
	if !c.Configured() {
		return nil, domain.NewProviderError(source, "config", domain.ErrConfigAbsent)
	}

	matches, err := c.destinations(ctx, c.query(req.Destination))
	if err != nil {
		return nil, domain.NewProviderError(source, "search destination", err)
	}
	if len(matches) == 0 {
		return nil, domain.NewProviderError(source, "search destination",
			fmt.Errorf("%w: no destination for %q", domain.ErrNoMatch, req.Destination))
	}
	// first match wins
	dest := matches[0]

	u := c.cfg.BaseURL + "/api/v1/hotels/searchHotels?" + url.Values{
		"dest_id":               {dest.ID},
		"search_type":           {dest.SearchType},
		"arrival_date":          {req.CheckIn},
		"departure_date":        {req.CheckOut},
		"adults_number":         {strconv.Itoa(req.Adults)},
		"room_qty":              {"1"},
		"sort_by":               {"price"},
		"categories_filter_ids": {c.cfg.Categories},
	}.Encode()

	var body payload.Object
	if err := c.hc.GetJSON(ctx, "search-hotels", u, c.headers(), &body); err != nil {
		return nil, domain.NewProviderError(source, "search hotels", upstream(err))
	}

	hotels := payload.Objects(body, "data.hotels")
	listings := make([]domain.Listing, 0, len(hotels))
	for _, h := range hotels {
		listings = append(listings, normalize(h, req))
	}
	return domain.FilterByBudget(listings, req.Budget, func(l domain.Listing) {
		observability.ObserveBudgetDrop(string(source))
		log.Debug().Str("provider", string(source)).Str("id", l.ID).Str("title", l.Title).
			Float64("price", l.Price).Float64("budget", req.Budget).Msg("rental above budget dropped")
	}), nil
}

// SearchDestinations resolves a free-text term into destination matches in
// provider order. An unconfigured client returns domain.ErrConfigAbsent.
func (c *Client) SearchDestinations(ctx context.Context, term string) ([]Suggestion, error) {
	if !c.Configured() {
		return nil, domain.ErrConfigAbsent
	}
	if strings.TrimSpace(term) == "" {
		return []Suggestion{}, nil
	}
	return c.destinations(ctx, term)
}

func (c *Client) destinations(ctx context.Context, q string) ([]Suggestion, error) {
	u := c.cfg.BaseURL + "/api/v1/hotels/searchDestination?" + url.Values{"query": {q}}.Encode()

	var body payload.Object
	if err := c.hc.GetJSON(ctx, "search-destination", u, c.headers(), &body); err != nil {
		return nil, upstream(err)
	}
	items := payload.Objects(body, "data")
	out := make([]Suggestion, 0, len(items))
	for _, it := range items {
		out = append(out, Suggestion{
			ID:         payload.Str(it, "dest_id"),
			Label:      payload.Str(it, "label", "name"),
			Type:       payload.Str(it, "dest_type"),
			Lat:        payload.FloatOr(it, 0, "latitude"),
			Lon:        payload.FloatOr(it, 0, "longitude"),
			SearchType: payload.Str(it, "search_type"),
		})
	}
	return out, nil
}

func normalize(h payload.Object, req domain.SearchRequest) domain.Listing {
	id := payload.Str(h, "property.id", "hotel_id")
	if id == "" {
		id = "booking-" + uuid.NewString()
	}
	currency := payload.Str(h, "property.priceBreakdown.grossPrice.currency", "property.currency")
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	rating := domain.Rating{}
	if r, ok := payload.Float(h, "property.reviewScore"); ok && r > 0 {
		rating = domain.RatingOf(r)
	}
	// missing price reads as 0 and passes any budget
	price := payload.FloatOr(h, 0, "property.priceBreakdown.grossPrice.value")
	return domain.Listing{
		ID:       id,
		Title:    payload.Str(h, "property.name"),
		Type:     domain.TypeVacationRental,
		Price:    price,
		Currency: currency,
		Rating:   rating,
		Image:    payload.FirstURL(h, "property.photoUrls"),
		Location: req.Destination,
		Specs:    domain.Specs{Beds: domain.BedsVaries, Guests: req.Guests()},
		Source:   source,
		Link:     domain.PlaceholderLink,
	}
}

func upstream(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
}

// Package vrbo is the coordinate-based rental provider: place -> coordinates
// (unless the caller already has them) -> radius search.
package vrbo

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

const DefaultHost = "vrbo1.p.rapidapi.com"

const (
	// wider radii pull in the next town over
	DefaultRadiusMiles = 1.0
	defaultTitle       = "VRBO Stay"
)

const source = domain.SourceCoordinateRental

type Config struct {
	APIKey      string
	Host        string
	BaseURL     string
	RadiusMiles float64
}

type Client struct {
	cfg Config
	geo domain.Geocoder
	hc  *httpclient.Client
}

func New(cfg Config, geo domain.Geocoder, hc *httpclient.Client) *Client {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://" + cfg.Host
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RadiusMiles <= 0 {
		cfg.RadiusMiles = DefaultRadiusMiles
	}
	if hc == nil {
		hc = httpclient.New("vrbo")
	}
	return &Client{cfg: cfg, geo: geo, hc: hc}
}

func (c *Client) Name() domain.Source { return source }

func (c *Client) Configured() bool { return strings.TrimSpace(c.cfg.APIKey) != "" }

// SearchVrbo returns unfiltered listings priced per night. Failures are logged
// and yield an empty slice.
func (c *Client) SearchVrbo(ctx context.Context, location string, coords *domain.Coords, checkIn, checkOut string, guests int) []domain.Listing {
	out, err := c.search(ctx, location, coords, checkIn, checkOut, guests)
	if err != nil {
		log.Warn().Str("provider", string(source)).Str("location", location).Err(err).Msg("vrbo search failed")
		return []domain.Listing{}
	}
	return out
}

// Search is the aggregator entry point; it applies the budget rule so every
// provider honours price <= budget.
func (c *Client) Search(ctx context.Context, req domain.SearchRequest) ([]domain.Listing, error) {
	out, err := c.search(ctx, req.Destination, req.Coords, req.CheckIn, req.CheckOut, req.Guests())
	if err != nil {
		return nil, err
	}
	return domain.FilterByBudget(out, req.Budget, func(l domain.Listing) {
		observability.ObserveBudgetDrop(string(source))
		log.Debug().Str("provider", string(source)).Str("id", l.ID).Float64("price", l.Price).
			Float64("budget", req.Budget).Msg("rental above budget dropped")
	}), nil
}

func (c *Client) search(ctx context.Context, location string, coords *domain.Coords, checkIn, checkOut string, guests int) ([]domain.Listing, error) {
	if !c.Configured() {
		return nil, domain.NewProviderError(source, "config", domain.ErrConfigAbsent)
	}
	if coords == nil {
		if c.geo == nil {
			return nil, domain.NewProviderError(source, "geocode",
				fmt.Errorf("%w: no geocoder and no coordinates", domain.ErrConfigAbsent))
		}
		var err error
		coords, err = c.geo.Geocode(ctx, location)
		if err != nil {
			if !errors.Is(err, domain.ErrNoMatch) {
				err = upstream(err)
			}
			return nil, domain.NewProviderError(source, "geocode", err)
		}
	}
	if guests <= 0 {
		guests = 1
	}

	u := c.cfg.BaseURL + "/vacation-rental-data/vrbo/search?" + url.Values{
		"latitude":    {strconv.FormatFloat(coords.Lat, 'f', -1, 64)},
		"longitude":   {strconv.FormatFloat(coords.Lon, 'f', -1, 64)},
		"radiusMiles": {strconv.FormatFloat(c.cfg.RadiusMiles, 'f', -1, 64)},
		"checkIn":     {checkIn},
		"checkOut":    {checkOut},
		"adultsCount": {strconv.Itoa(guests)},
	}.Encode()

	var body payload.Object
	err := c.hc.GetJSON(ctx, "search", u, http.Header{
		"x-rapidapi-key":  {c.cfg.APIKey},
		"x-rapidapi-host": {c.cfg.Host},
	}, &body)
	if err != nil {
		return nil, domain.NewProviderError(source, "search", upstream(err))
	}

	items := payload.Objects(body, "listings")
	out := make([]domain.Listing, 0, len(items))
	for _, it := range items {
		out = append(out, normalize(it, location))
	}
	return out, nil
}

func normalize(it payload.Object, location string) domain.Listing {
	id := payload.Str(it, "listingId")
	if id == "" {
		id = "vrbo-" + uuid.NewString()
	}
	title := payload.Str(it, "propertyMetadata.headline", "headline")
	if title == "" {
		title = defaultTitle
	}
	currency := payload.Str(it, "prices.perNight.currency")
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	link := payload.Str(it, "detailPageUrl")
	if link == "" {
		link = domain.PlaceholderLink
	}
	return domain.Listing{
		ID:       id,
		Title:    title,
		Type:     domain.TypeVacationRental,
		Price:    payload.FloatOr(it, 0, "prices.perNight.amount"),
		Currency: currency,
		Rating:   domain.RatingOf(payload.FloatOr(it, 0, "averageRating")),
		Image:    payload.FirstURL(it, "images"),
		Location: location,
		Specs: domain.Specs{
			Beds:   strconv.Itoa(payload.IntOr(it, 0, "bedrooms")),
			Guests: payload.IntOr(it, 0, "sleeps"),
		},
		Source: source,
		Link:   link,
	}
}

func upstream(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
}

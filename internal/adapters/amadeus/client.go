// Package amadeus is the hotel aggregator provider: client-credentials auth,
// city-code hotel lookup, then priced offers for the first candidates.
package amadeus

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

	"trip_planner/internal/adapters/credentials"
	"trip_planner/internal/adapters/httpclient"
	"trip_planner/internal/adapters/observability"
	"trip_planner/internal/adapters/payload"
	"trip_planner/internal/domain"
)

const (
	DefaultBaseURL = "https://test.api.amadeus.com"
	// offers are priced per hotel id; cap the candidate set to bound that call
	maxCandidates  = 10
	defaultRadius  = 20
)

const source = domain.SourceHotelAggregator

// DefaultLocationCodes maps the destinations the trip planner knows about to
// IATA city codes. Extend via LOCATION_CODES_JSON or the location_codes table.
func DefaultLocationCodes() map[string]string {
	return map[string]string{
		"nc":                 "ILM",
		"north carolina":     "ILM",
		"wilmington":         "ILM",
		"wrightsville beach": "ILM",
		"sc":                 "MYR",
		"south carolina":     "MYR",
		"myrtle beach":       "MYR",
		"charlotte":          "CLT",
		"charleston":         "CHS",
		"hilton head":        "HHH",
		"outer banks":        "ORF",
		"nags head":          "ORF",
	}
}

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RadiusKM     int
}

type Client struct {
	cfg   Config
	creds *credentials.Store
	codes *domain.LocationTable
	hc    *httpclient.Client
}

func New(cfg Config, store *credentials.Store, codes *domain.LocationTable, hc *httpclient.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RadiusKM <= 0 {
		cfg.RadiusKM = defaultRadius
	}
	if codes == nil {
		codes = domain.NewLocationTable(DefaultLocationCodes())
	}
	if hc == nil {
		hc = httpclient.New("amadeus")
	}
	if store == nil {
		store = credentials.NewStore(hc)
	}
	return &Client{cfg: cfg, creds: store, codes: codes, hc: hc}
}

func (c *Client) Name() domain.Source { return source }

func (c *Client) credentials() credentials.ClientCredentials {
	return credentials.ClientCredentials{
		Provider:     string(source),
		TokenURL:     c.cfg.BaseURL + "/v1/security/oauth2/token",
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
	}
}

// SearchHotels is the boundary contract: any failure is an empty result.
func (c *Client) SearchHotels(ctx context.Context, destination, checkIn, checkOut string, adults int, budget float64) []domain.Listing {
	out, err := c.Search(ctx, domain.SearchRequest{
		Destination: destination, CheckIn: checkIn, CheckOut: checkOut, Adults: adults, Budget: budget,
	})
	if err != nil {
		log.Warn().Str("provider", string(source)).Err(err).Msg("hotel search failed")
		return []domain.Listing{}
	}
	return out
}

// Search returns budget-filtered listings or a *domain.ProviderError.
func (c *Client) Search(ctx context.Context, req domain.SearchRequest) ([]domain.Listing, error) {
	token, err := c.creds.Token(ctx, c.credentials())
	if err != nil {
		return nil, domain.NewProviderError(source, "token", err)
	}

	code, ok := c.codes.Resolve(req.Destination)
	if !ok {
		return nil, domain.NewProviderError(source, "resolve location",
			fmt.Errorf("%w: no city code for %q", domain.ErrNoMatch, req.Destination))
	}

	ids, err := c.hotelIDs(ctx, token, code)
	if err != nil {
		return nil, domain.NewProviderError(source, "hotels by city", err)
	}

	offers, err := c.offers(ctx, token, ids, req)
	if err != nil {
		return nil, domain.NewProviderError(source, "hotel offers", err)
	}

	listings := make([]domain.Listing, 0, len(offers))
	for _, o := range offers {
		l, err := normalizeOffer(o, req.Destination, req.Adults)
		if err != nil {
			return nil, domain.NewProviderError(source, "normalize offer", err)
		}
		listings = append(listings, l)
	}
	return domain.FilterByBudget(listings, req.Budget, func(l domain.Listing) {
		observability.ObserveBudgetDrop(string(source))
		log.Debug().Str("provider", string(source)).Str("id", l.ID).Float64("price", l.Price).
			Float64("budget", req.Budget).Msg("offer above budget dropped")
	}), nil
}

func (c *Client) auth(token string) http.Header {
	return http.Header{"Authorization": {"Bearer " + token}}
}

func (c *Client) hotelIDs(ctx context.Context, token, cityCode string) ([]string, error) {
	u := c.cfg.BaseURL + "/v1/reference-data/locations/hotels/by-city?" + url.Values{
		"cityCode":   {cityCode},
		"radius":     {strconv.Itoa(c.cfg.RadiusKM)},
		"radiusUnit": {"KM"},
	}.Encode()

	var body payload.Object
	if err := c.hc.GetJSON(ctx, "hotels-by-city", u, c.auth(token), &body); err != nil {
		return nil, upstream(err)
	}
	ids := make([]string, 0, maxCandidates)
	for _, h := range payload.Objects(body, "data") {
		if id := payload.Str(h, "hotelId"); id != "" {
			ids = append(ids, id)
		}
		if len(ids) == maxCandidates {
			break
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no hotels for city %s", domain.ErrNoMatch, cityCode)
	}
	return ids, nil
}

func (c *Client) offers(ctx context.Context, token string, ids []string, req domain.SearchRequest) ([]payload.Object, error) {
	u := c.cfg.BaseURL + "/v2/shopping/hotel-offers?" + url.Values{
		"hotelIds":     {strings.Join(ids, ",")},
		"adults":       {strconv.Itoa(req.Adults)},
		"checkInDate":  {req.CheckIn},
		"checkOutDate": {req.CheckOut},
	}.Encode()

	var body payload.Object
	if err := c.hc.GetJSON(ctx, "hotel-offers", u, c.auth(token), &body); err != nil {
		return nil, upstream(err)
	}
	return payload.Objects(body, "data"), nil
}

func normalizeOffer(o payload.Object, destination string, adults int) (domain.Listing, error) {
	price, ok := payload.Float(o, "offers.0.price.total")
	if !ok || price < 0 {
		return domain.Listing{}, fmt.Errorf("%w: offer without a usable price", domain.ErrUpstream)
	}
	id := payload.Str(o, "hotel.hotelId")
	if id == "" {
		id = "amadeus-" + uuid.NewString()
	}
	currency := payload.Str(o, "offers.0.price.currency")
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	rating := domain.Rating{}
	if r, ok := payload.Float(o, "hotel.rating"); ok {
		rating = domain.RatingOf(r)
	}
	return domain.Listing{
		ID:       id,
		Title:    payload.Str(o, "hotel.name"),
		Type:     domain.TypeHotel,
		Price:    price,
		Currency: currency,
		Rating:   rating,
		Image:    payload.FirstURL(o, "hotel.media"),
		Location: destination,
		Specs: domain.Specs{
			Beds:   strconv.Itoa(payload.IntOr(o, 1, "offers.0.room.typeEstimated.beds")),
			Guests: adults,
		},
		Source: source,
		Link:   domain.PlaceholderLink,
	}, nil
}

// upstream keeps context errors recognizable (timeouts) and tags the rest.
func upstream(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
}

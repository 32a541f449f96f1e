// Package nominatim resolves place names to coordinates through an
// OpenStreetMap Nominatim-compatible search endpoint.
package nominatim

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"trip_planner/internal/adapters/httpclient"
	"trip_planner/internal/domain"
)

const DefaultBaseURL = "https://nominatim.openstreetmap.org"

type Geocoder struct {
	base      string
	userAgent string
	hc        *httpclient.Client
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// New requires a descriptive User-Agent; the service's usage policy rejects anonymous clients.
func New(base, userAgent string, hc *httpclient.Client) (*Geocoder, error) {
	if strings.TrimSpace(userAgent) == "" {
		return nil, errors.New("nominatim: user agent is required")
	}
	if base == "" {
		base = DefaultBaseURL
	}
	if hc == nil {
		hc = httpclient.New("nominatim", httpclient.WithRateLimit(1, 1))
	}
	return &Geocoder{base: strings.TrimRight(base, "/"), userAgent: userAgent, hc: hc}, nil
}

// Geocode makes exactly one call; no retries and no caching here.
func (g *Geocoder) Geocode(ctx context.Context, placeName string) (*domain.Coords, error) {
	q := strings.TrimSpace(placeName)
	if q == "" {
		return nil, domain.ErrNoMatch
	}
	u := g.base + "/search?" + url.Values{
		"q":      {q},
		"format": {"json"},
		"limit":  {"1"},
	}.Encode()

	var out []place
	if err := g.hc.GetJSON(ctx, "search", u, http.Header{"User-Agent": {g.userAgent}}, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, domain.ErrNoMatch
	}
	lat, err1 := strconv.ParseFloat(out[0].Lat, 64)
	lon, err2 := strconv.ParseFloat(out[0].Lon, 64)
	if err := errors.Join(err1, err2); err != nil {
		return nil, fmt.Errorf("nominatim: bad coordinates for %q: %w", q, err)
	}
	return &domain.Coords{Lat: lat, Lon: lon}, nil
}

// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"trip_planner/internal/adapters/booking"
	"trip_planner/internal/app"
	"trip_planner/internal/domain"
)

// PlaceFinder backs the destination autocomplete.
type PlaceFinder interface {
	SearchDestinations(ctx context.Context, term string) ([]booking.Suggestion, error)
}

type Handlers struct {
	Search *app.SearchService
	Places PlaceFinder
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type searchResponse struct {
	RunID    string               `json:"runId"`
	Query    domain.SearchRequest `json:"query"`
	Listings []domain.Listing     `json:"listings"`
	Count    int                  `json:"count"`
	Outcomes []app.Outcome        `json:"outcomes"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/search", h.search)
	s.mux.Get("/v1/places", h.places)
	s.mux.Get("/v1/searches/recent", h.recentSearches)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// parseSearch reads the search form from the query string. Missing guest
// counts stay zero so the service defaults apply; a missing budget becomes defaultBudget.
func parseSearch(q url.Values, defaultBudget float64) (domain.SearchRequest, error) {
	req := domain.SearchRequest{
		Destination: strings.TrimSpace(q.Get("destination")),
		CheckIn:     strings.TrimSpace(q.Get("checkIn")),
		CheckOut:    strings.TrimSpace(q.Get("checkOut")),
	}
	var err error
	if req.Adults, err = intParam(q, "adults"); err != nil {
		return req, err
	}
	if req.Kids, err = intParam(q, "kids"); err != nil {
		return req, err
	}
	req.Budget = defaultBudget
	if v := q.Get("budget"); v != "" {
		if req.Budget, err = strconv.ParseFloat(v, 64); err != nil {
			return req, fmt.Errorf("budget must be a number")
		}
	}

	lat, lon := q.Get("lat"), q.Get("lon")
	if lat == "" && lon == "" {
		return req, nil
	}
	la, err1 := strconv.ParseFloat(lat, 64)
	lo, err2 := strconv.ParseFloat(lon, 64)
	if err1 != nil || err2 != nil || la < -90 || la > 90 || lo < -180 || lo > 180 {
		return req, fmt.Errorf("lat and lon must be given together as valid coordinates")
	}
	req.Coords = &domain.Coords{Lat: la, Lon: lo}
	return req, nil
}

func intParam(q url.Values, k string) (int, error) {
	v := q.Get(k)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", k)
	}
	return n, nil
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
		return strings.Join(parts, "; ")
	}
	return err.Error()
}

func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	req, err := parseSearch(r.URL.Query(), h.Search.DefaultBudget())
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid search", err.Error())
		return
	}

	req, rep, err := h.Search.Search(r.Context(), req)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid search", validationDetail(err))
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		RunID:    rep.RunID,
		Query:    req,
		Listings: rep.Listings,
		Count:    len(rep.Listings),
		Outcomes: rep.Outcomes,
	})
}

func (h *Handlers) places(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("term"))
	if term == "" || h.Places == nil {
		writeJSON(w, http.StatusOK, map[string]any{"suggestions": []booking.Suggestion{}})
		return
	}

	out, err := h.Places.SearchDestinations(r.Context(), term)
	switch {
	case errors.Is(err, domain.ErrConfigAbsent):
		writeProblem(w, http.StatusServiceUnavailable, "Unavailable", "destination search is not configured")
		return
	case err != nil:
		log.Warn().Err(err).Str("term", term).Msg("destination autocomplete failed")
		out = nil
	}
	if out == nil {
		out = []booking.Suggestion{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": out})
}

func (h *Handlers) recentSearches(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		limit = l
	}

	runs, err := h.Search.Recent(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("recent searches failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "search log unavailable")
		return
	}

	etag, body := calcETagAndBody(map[string]any{"searches": runs})
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write recentSearches body")
	}
}

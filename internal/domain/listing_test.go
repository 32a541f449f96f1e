package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"trip_planner/internal/domain"
)

func TestFilterByBudget_ExcludesAboveBudget(t *testing.T) {
	in := []domain.Listing{
		{ID: "a", Price: 250},
		{ID: "b", Price: 450},
		{ID: "c", Price: 300},
		{ID: "free", Price: 0}, // missing price passes through
	}
	var dropped []string
	out := domain.FilterByBudget(in, 300, func(l domain.Listing) { dropped = append(dropped, l.ID) })

	if len(out) != 3 || out[0].ID != "a" || out[1].ID != "c" || out[2].ID != "free" {
		t.Fatalf("unexpected kept listings: %+v", out)
	}
	if len(dropped) != 1 || dropped[0] != "b" {
		t.Fatalf("unexpected dropped: %v", dropped)
	}
	for _, l := range out {
		if l.Price > 300 {
			t.Fatalf("listing %s above budget: %v", l.ID, l.Price)
		}
	}
}

func TestFilterByBudget_EmptyInputNotNil(t *testing.T) {
	out := domain.FilterByBudget(nil, 100, nil)
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", out)
	}
}

func TestRating_JSON(t *testing.T) {
	b, err := json.Marshal(domain.Listing{Rating: domain.Rating{}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	_ = json.Unmarshal(b, &raw)
	if raw["rating"] != "N/A" {
		t.Fatalf("expected N/A rating, got %v", raw["rating"])
	}

	b, _ = json.Marshal(domain.RatingOf(8.7))
	if string(b) != "8.7" {
		t.Fatalf("expected 8.7, got %s", b)
	}

	var r domain.Rating
	if err := json.Unmarshal([]byte(`"4"`), &r); err != nil || !r.Valid || r.Value != 4 {
		t.Fatalf("string rating not parsed: %+v err=%v", r, err)
	}
	if err := json.Unmarshal([]byte(`"N/A"`), &r); err != nil || r.Valid {
		t.Fatalf("N/A should be invalid rating: %+v err=%v", r, err)
	}
}

func TestSearchRequest_Validate(t *testing.T) {
	ok := domain.SearchRequest{Destination: "Wilmington", CheckIn: "2026-01-04", CheckOut: "2026-01-09", Adults: 2, Budget: 300}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ok.Nights() != 5 {
		t.Fatalf("expected 5 nights, got %d", ok.Nights())
	}

	bad := ok
	bad.CheckOut = "2026-01-01"
	if err := bad.Validate(); !errors.Is(err, domain.ErrInvalidDates) {
		t.Fatalf("expected ErrInvalidDates, got %v", err)
	}

	bad = ok
	bad.CheckIn = "04/01/2026"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected date format error")
	}

	bad = ok
	bad.Adults = 0
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected adults error")
	}
}

func TestProviderError_Kinds(t *testing.T) {
	err := domain.NewProviderError(domain.SourceRentalSearch, "token", domain.ErrConfigAbsent)
	if !errors.Is(err, domain.ErrConfigAbsent) || domain.KindOf(err) != domain.KindConfigAbsent {
		t.Fatalf("config kind not detected: %v", err)
	}
	err = domain.NewProviderError(domain.SourceRentalSearch, "search", errors.New("boom"))
	if domain.KindOf(err) != domain.KindUpstream || !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("unknown errors must be upstream: %v", err)
	}
}

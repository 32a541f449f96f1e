package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
)

type ListingType string

const (
	TypeHotel          ListingType = "Hotel"
	TypeVacationRental ListingType = "Vacation Rental"
)

// Source identifies which provider produced a listing. Debugging/telemetry only.
type Source string

const (
	SourceHotelAggregator  Source = "hotel-aggregator"
	SourceRentalSearch     Source = "rental-search"
	SourceCoordinateRental Source = "coordinate-rental"
)

const (
	DefaultCurrency = "USD"
	PlaceholderLink = "#"
	BedsVaries      = "Varies"
)

// Listing is the unified record every provider is normalized into.
type Listing struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Type     ListingType `json:"type"`
	Price    float64     `json:"price"` // total for the stay, request currency
	Currency string      `json:"currency"`
	Rating   Rating      `json:"rating"`
	Image    string      `json:"image"`
	Location string      `json:"location"` // echoed query label, not provider-verified
	Specs    Specs       `json:"specs"`
	Source   Source      `json:"source"`
	Link     string      `json:"link"`
}

type Specs struct {
	Beds   string `json:"beds"`
	Guests int    `json:"guests"`
}

// Rating is reported on the provider's own scale (0-5 or 0-10); scales are not reconciled.
type Rating struct {
	Value float64
	Valid bool
}

const ratingNA = "N/A"

func RatingOf(v float64) Rating { return Rating{Value: v, Valid: true} }

func (r Rating) String() string {
	if !r.Valid {
		return ratingNA
	}
	return strconv.FormatFloat(r.Value, 'f', -1, 64)
}

func (r Rating) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return json.Marshal(ratingNA)
	}
	return json.Marshal(r.Value)
}

func (r *Rating) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = Rating{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*r = RatingOf(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*r = RatingOf(f)
		return nil
	}
	*r = Rating{}
	return nil
}

type Coords struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// FilterByBudget keeps listings with price <= budget, preserving order.
// Anything above budget is excluded, never clamped; onDrop (optional) sees each exclusion.
func FilterByBudget(in []Listing, budget float64, onDrop func(Listing)) []Listing {
	out := make([]Listing, 0, len(in))
	for _, l := range in {
		if l.Price <= budget {
			out = append(out, l)
			continue
		}
		if onDrop != nil {
			onDrop(l)
		}
	}
	return out
}

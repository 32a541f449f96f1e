package domain

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const DateLayout = "2006-01-02"

// SearchRequest is the input of one aggregation run. Dates are calendar dates;
// defaulting them is the caller's job (see app.SearchService).
type SearchRequest struct {
	Destination string  `json:"destination" validate:"required,max=200"`
	CheckIn     string  `json:"checkIn" validate:"required,datetime=2006-01-02"`
	CheckOut    string  `json:"checkOut" validate:"required,datetime=2006-01-02"`
	Adults      int     `json:"adults" validate:"gte=1,lte=30"`
	Kids        int     `json:"kids" validate:"gte=0,lte=30"`
	Budget      float64 `json:"budget" validate:"gte=0"`
	// Coords, when known (e.g. picked from the places autocomplete), spare a geocoding call.
	Coords *Coords `json:"coords,omitempty"`
}

func (r SearchRequest) Guests() int { return r.Adults + r.Kids }

// Nights is the stay length, 0 when dates don't parse or are inverted.
func (r SearchRequest) Nights() int {
	in, err1 := time.Parse(DateLayout, r.CheckIn)
	out, err2 := time.Parse(DateLayout, r.CheckOut)
	if err1 != nil || err2 != nil || !out.After(in) {
		return 0
	}
	return int(out.Sub(in).Hours() / 24)
}

var validate = validator.New()

// Validate checks field constraints and that check-out follows check-in.
func (r SearchRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.Nights() == 0 {
		return ErrInvalidDates
	}
	return nil
}

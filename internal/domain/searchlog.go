package domain

import "time"

// SearchRun is the persisted diagnostic of one aggregation: what was asked
// and what each provider did with it.
type SearchRun struct {
	ID          string       `json:"id"`
	Destination string       `json:"destination"`
	CheckIn     string       `json:"checkIn"`
	CheckOut    string       `json:"checkOut"`
	Adults      int          `json:"adults"`
	Kids        int          `json:"kids"`
	Budget      float64      `json:"budget"`
	Listings    int          `json:"listings"`
	Outcomes    []RunOutcome `json:"outcomes"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type RunOutcome struct {
	Provider  Source    `json:"provider"`
	Outcome   ErrorKind `json:"outcome"`
	Listings  int       `json:"listings"`
	ElapsedMS int64     `json:"elapsedMs"`
}

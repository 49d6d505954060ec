package models

import "time"

type Court struct {
	ID       int    `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Location string `json:"location" db:"location"`
}

// Booking — бронь корта. Интервал [StartsAt, EndsAt) не должен пересекаться с
// другими бронями того же корта.
type Booking struct {
	ID        int       `json:"id" db:"id"`
	CourtID   int       `json:"court_id" db:"court_id"`
	MatchID   *int      `json:"match_id,omitempty" db:"match_id"`
	BookedBy  int       `json:"booked_by" db:"booked_by"`
	StartsAt  time.Time `json:"starts_at" db:"starts_at"`
	EndsAt    time.Time `json:"ends_at" db:"ends_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

package models

import "time"

type Team struct {
	ID            int       `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	RootContestID int       `json:"root_contest_id" db:"root_contest_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`

	LogoKey *string `json:"-" db:"logo_key"`
	LogoURL *string `json:"logo_url,omitempty" db:"-"`
}

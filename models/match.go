package models

import "time"

type MatchType string

const (
	MatchTypeRegular    MatchType = "regular"
	MatchTypeSemiFinal  MatchType = "semi_final"
	MatchTypeFinal      MatchType = "final"
	MatchTypeThirdPlace MatchType = "third_place"
)

// Match — одна встреча двух команд. Team1ID/Team2ID равны nil, пока слот не
// заполнен (плейсхолдер для победителя предыдущего раунда). NextMatchID и
// WinnerToSlot связывают матч со слотом следующего раунда сетки.
type Match struct {
	ID           int       `json:"id" db:"id"`
	ContestID    int       `json:"contest_id" db:"contest_id"`
	Team1ID      *int      `json:"team1_id,omitempty" db:"team1_id"`
	Team2ID      *int      `json:"team2_id,omitempty" db:"team2_id"`
	WinnerID     *int      `json:"winner_id,omitempty" db:"winner_id"`
	Round        int       `json:"round" db:"round"`
	OrderInRound int       `json:"order_in_round" db:"order_in_round"`
	MatchType    MatchType `json:"match_type" db:"match_type"`
	NextMatchID  *int      `json:"next_match_id,omitempty" db:"next_match_id"`
	WinnerToSlot *int      `json:"winner_to_slot,omitempty" db:"winner_to_slot"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	Details []MatchDetail `json:"details,omitempty" db:"-"`
}

func (m *Match) HasBothTeams() bool {
	return m.Team1ID != nil && m.Team2ID != nil
}

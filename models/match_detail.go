package models

// MatchDetail — одна сыгранная партия (гейм) внутри матча. Победитель матча —
// команда со строгим большинством выигранных партий.
type MatchDetail struct {
	ID       int `json:"id" db:"id"`
	MatchID  int `json:"match_id" db:"match_id"`
	Sequence int `json:"sequence" db:"sequence"`
	WinnerID int `json:"winner_id" db:"winner_id"`
}

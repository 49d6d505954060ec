package models

// TeamStanding — строка таблицы кругового турнира. Не хранится в БД: Wins и
// GamesWon всегда выводятся из матчей и партий заново.
type TeamStanding struct {
	Team     Team `json:"team"`
	Wins     int  `json:"wins"`
	GamesWon int  `json:"games_won"`
	Rank     int  `json:"rank"`
}

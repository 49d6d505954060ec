package models

type AssignmentStatus string

const (
	AssignmentActive     AssignmentStatus = "active"
	AssignmentEliminated AssignmentStatus = "eliminated"
)

// GroupAssignment — членство команды в пуле под-этапа. Команда состоит не более
// чем в одном незавершённом под-этапе корневого турнира одновременно.
type GroupAssignment struct {
	ID             int              `json:"id" db:"id"`
	GroupContestID int              `json:"group_contest_id" db:"group_contest_id"`
	TeamID         int              `json:"team_id" db:"team_id"`
	Status         AssignmentStatus `json:"status" db:"status"`
}

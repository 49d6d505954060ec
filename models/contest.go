package models

import "time"

// ContestMode определяет, как считается итоговый рейтинг соревнования.
type ContestMode string

const (
	ModeRoundRobin  ContestMode = "round_robin"
	ModeElimination ContestMode = "elimination"
)

// ContestStatus представляет статусы соревнования, соответствующие ENUM в БД.
type ContestStatus string

const (
	StatusRecruiting      ContestStatus = "recruiting"
	StatusWaitingSchedule ContestStatus = "waiting_schedule"
	StatusLineupPending   ContestStatus = "lineup_pending"
	StatusOngoing         ContestStatus = "ongoing"
	StatusFinished        ContestStatus = "finished"
)

// Contest представляет соревнование. Contest с ParentID — под-этап (sub-stage)
// смешанного турнира; без ParentID — корневой или одиночный турнир.
type Contest struct {
	ID               int           `json:"id" db:"id"`
	Name             string        `json:"name" db:"name"`
	Mode             ContestMode   `json:"mode" db:"mode"`
	Status           ContestStatus `json:"status" db:"status"`
	ParentID         *int          `json:"parent_id,omitempty" db:"parent_id"`
	StageOrder       *int          `json:"stage_order,omitempty" db:"stage_order"`
	ParallelGroup    *string       `json:"parallel_group,omitempty" db:"parallel_group"`
	AdvancementCount int           `json:"advancement_count" db:"advancement_count"`
	DetailCount      int           `json:"detail_count" db:"detail_count"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	QualifiedTeams []Team    `json:"qualified_teams,omitempty" db:"-"`
	SubStages      []Contest `json:"sub_stages,omitempty" db:"-"`
	Teams          []Team    `json:"teams,omitempty" db:"-"`
	Matches        []Match   `json:"matches,omitempty" db:"-"`
}

func (c *Contest) IsSubStage() bool {
	return c.ParentID != nil
}

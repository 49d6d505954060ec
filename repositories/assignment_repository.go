package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/courtclub/competition-system/models"
	"github.com/lib/pq"
)

var (
	ErrAssignmentNotFound     = errors.New("group assignment not found")
	ErrAssignmentTeamInvalid  = errors.New("assignment team conflict or invalid")
	ErrAssignmentGroupInvalid = errors.New("assignment group contest conflict or invalid")
	ErrAssignmentDuplicate    = errors.New("team is already assigned to this sub-stage")
)

type AssignmentRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, groupContestID int, teamIDs []int, status models.AssignmentStatus) error
	ListBySubStage(ctx context.Context, subStageID int) ([]*models.GroupAssignment, error)
	ListActiveTeamIDsByRoot(ctx context.Context, rootID int) ([]int, error)
	DeleteBySubStage(ctx context.Context, exec SQLExecutor, subStageID int) error
}

type postgresAssignmentRepository struct {
	db *sql.DB
}

func NewPostgresAssignmentRepository(db *sql.DB) AssignmentRepository {
	return &postgresAssignmentRepository{db: db}
}

func (r *postgresAssignmentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresAssignmentRepository) CreateBatch(ctx context.Context, exec SQLExecutor, groupContestID int, teamIDs []int, status models.AssignmentStatus) error {
	e := r.getExecutor(exec)
	query := `INSERT INTO group_assignments (group_contest_id, team_id, status) VALUES ($1, $2, $3)`
	for _, teamID := range teamIDs {
		if _, err := e.ExecContext(ctx, query, groupContestID, teamID, status); err != nil {
			return r.handleAssignmentError(err)
		}
	}
	return nil
}

func (r *postgresAssignmentRepository) ListBySubStage(ctx context.Context, subStageID int) ([]*models.GroupAssignment, error) {
	query := `SELECT id, group_contest_id, team_id, status
		FROM group_assignments
		WHERE group_contest_id = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, subStageID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments of sub-stage %d: %w", subStageID, err)
	}
	defer rows.Close()

	assignments := make([]*models.GroupAssignment, 0)
	for rows.Next() {
		var a models.GroupAssignment
		if scanErr := rows.Scan(&a.ID, &a.GroupContestID, &a.TeamID, &a.Status); scanErr != nil {
			return nil, fmt.Errorf("failed to scan assignment row: %w", scanErr)
		}
		assignments = append(assignments, &a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during assignment rows iteration: %w", err)
	}
	return assignments, nil
}

// ListActiveTeamIDsByRoot — id команд, не состоящих в pending pool корня:
// участники незавершённых под-этапов плюс выбывшие. Строки eliminated
// считаются всегда — после handoff под-этап уже finished, но выбывшие
// команды в пул не возвращаются. Разность с полным списком команд корня
// даёт pending pool.
func (r *postgresAssignmentRepository) ListActiveTeamIDsByRoot(ctx context.Context, rootID int) ([]int, error) {
	query := `SELECT DISTINCT ga.team_id
		FROM group_assignments ga
		JOIN contests c ON c.id = ga.group_contest_id
		WHERE c.parent_id = $1 AND (c.status <> $2 OR ga.status = $3)`

	rows, err := r.db.QueryContext(ctx, query, rootID, models.StatusFinished, models.AssignmentEliminated)
	if err != nil {
		return nil, fmt.Errorf("failed to query active assignments of root %d: %w", rootID, err)
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, fmt.Errorf("failed to scan active assignment row: %w", scanErr)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during active assignment rows iteration: %w", err)
	}
	return ids, nil
}

func (r *postgresAssignmentRepository) DeleteBySubStage(ctx context.Context, exec SQLExecutor, subStageID int) error {
	_, err := r.getExecutor(exec).ExecContext(ctx, `DELETE FROM group_assignments WHERE group_contest_id = $1`, subStageID)
	if err != nil {
		return fmt.Errorf("failed to delete assignments of sub-stage %d: %w", subStageID, err)
	}
	return nil
}

func (r *postgresAssignmentRepository) handleAssignmentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "group_assignments_team_id_fkey":
			return ErrAssignmentTeamInvalid
		case "group_assignments_group_contest_id_fkey":
			return ErrAssignmentGroupInvalid
		case "group_assignments_group_contest_id_team_id_key":
			return ErrAssignmentDuplicate
		}
	}
	return err
}

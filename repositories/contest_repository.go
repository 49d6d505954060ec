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
	ErrContestNotFound      = errors.New("contest not found")
	ErrContestParentInvalid = errors.New("contest parent conflict or invalid")
)

type ContestRepository interface {
	Create(ctx context.Context, exec SQLExecutor, contest *models.Contest) error
	GetByID(ctx context.Context, id int) (*models.Contest, error)
	ListSubStages(ctx context.Context, rootID int) ([]*models.Contest, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.ContestStatus) error
	SaveQualifiedTeams(ctx context.Context, exec SQLExecutor, contestID int, teamIDs []int) error
	GetQualifiedTeamIDs(ctx context.Context, contestID int) ([]int, error)
}

type postgresContestRepository struct {
	db *sql.DB
}

func NewPostgresContestRepository(db *sql.DB) ContestRepository {
	return &postgresContestRepository{db: db}
}

func (r *postgresContestRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const contestColumns = `id, name, mode, status, parent_id, stage_order, parallel_group, advancement_count, detail_count, created_at`

func scanContest(row interface{ Scan(...interface{}) error }) (*models.Contest, error) {
	c := &models.Contest{}
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Mode,
		&c.Status,
		&c.ParentID,
		&c.StageOrder,
		&c.ParallelGroup,
		&c.AdvancementCount,
		&c.DetailCount,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *postgresContestRepository) Create(ctx context.Context, exec SQLExecutor, contest *models.Contest) error {
	query := `
		INSERT INTO contests
			(name, mode, status, parent_id, stage_order, parallel_group, advancement_count, detail_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		contest.Name,
		contest.Mode,
		contest.Status,
		contest.ParentID,
		contest.StageOrder,
		contest.ParallelGroup,
		contest.AdvancementCount,
		contest.DetailCount,
	).Scan(&contest.ID, &contest.CreatedAt)

	return r.handleContestError(err)
}

func (r *postgresContestRepository) GetByID(ctx context.Context, id int) (*models.Contest, error) {
	query := `SELECT ` + contestColumns + ` FROM contests WHERE id = $1`

	contest, err := scanContest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContestNotFound
		}
		return nil, fmt.Errorf("failed to scan contest by id %d: %w", id, err)
	}
	return contest, nil
}

func (r *postgresContestRepository) ListSubStages(ctx context.Context, rootID int) ([]*models.Contest, error) {
	query := `SELECT ` + contestColumns + `
		FROM contests
		WHERE parent_id = $1
		ORDER BY stage_order ASC NULLS LAST, id ASC`

	rows, err := r.db.QueryContext(ctx, query, rootID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sub-stages of contest %d: %w", rootID, err)
	}
	defer rows.Close()

	contests := make([]*models.Contest, 0)
	for rows.Next() {
		contest, scanErr := scanContest(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan sub-stage row: %w", scanErr)
		}
		contests = append(contests, contest)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during sub-stage rows iteration: %w", err)
	}
	return contests, nil
}

func (r *postgresContestRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.ContestStatus) error {
	query := `UPDATE contests SET status = $1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, status, id)
	if err != nil {
		return r.handleContestError(err)
	}
	return checkAffectedRows(result, ErrContestNotFound)
}

// SaveQualifiedTeams перезаписывает итоговый список прошедших команд.
// Delete+insert, чтобы повторный вызов при ретрае был идемпотентным.
func (r *postgresContestRepository) SaveQualifiedTeams(ctx context.Context, exec SQLExecutor, contestID int, teamIDs []int) error {
	e := r.getExecutor(exec)
	if _, err := e.ExecContext(ctx, `DELETE FROM qualified_teams WHERE contest_id = $1`, contestID); err != nil {
		return fmt.Errorf("failed to clear qualified teams of contest %d: %w", contestID, err)
	}
	query := `INSERT INTO qualified_teams (contest_id, team_id, rank) VALUES ($1, $2, $3)`
	for i, teamID := range teamIDs {
		if _, err := e.ExecContext(ctx, query, contestID, teamID, i+1); err != nil {
			return fmt.Errorf("failed to insert qualified team %d for contest %d: %w", teamID, contestID, err)
		}
	}
	return nil
}

func (r *postgresContestRepository) GetQualifiedTeamIDs(ctx context.Context, contestID int) ([]int, error) {
	query := `SELECT team_id FROM qualified_teams WHERE contest_id = $1 ORDER BY rank ASC`

	rows, err := r.db.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query qualified teams of contest %d: %w", contestID, err)
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, fmt.Errorf("failed to scan qualified team row: %w", scanErr)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during qualified team rows iteration: %w", err)
	}
	return ids, nil
}

func (r *postgresContestRepository) handleContestError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "contests_parent_id_fkey":
			return ErrContestParentInvalid
		}
	}
	return err
}

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
	ErrTeamNotFound     = errors.New("team not found")
	ErrTeamNameConflict = errors.New("team name is already in use in this contest")
	ErrTeamRootInvalid  = errors.New("team root contest conflict or invalid")
)

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, id int) (*models.Team, error)
	ListByRootContest(ctx context.Context, rootContestID int) ([]*models.Team, error)
	ListByIDs(ctx context.Context, ids []int) ([]*models.Team, error)
	UpdateLogoKey(ctx context.Context, id int, logoKey *string) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	query := `
		INSERT INTO teams (name, root_contest_id, logo_key)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		team.Name,
		team.RootContestID,
		team.LogoKey,
	).Scan(&team.ID, &team.CreatedAt)

	return r.handleTeamError(err)
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `SELECT id, name, root_contest_id, logo_key, created_at FROM teams WHERE id = $1`

	team := &models.Team{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&team.ID,
		&team.Name,
		&team.RootContestID,
		&team.LogoKey,
		&team.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to scan team by id %d: %w", id, err)
	}
	return team, nil
}

func (r *postgresTeamRepository) ListByRootContest(ctx context.Context, rootContestID int) ([]*models.Team, error) {
	query := `SELECT id, name, root_contest_id, logo_key, created_at
		FROM teams
		WHERE root_contest_id = $1
		ORDER BY id ASC`

	return r.queryTeams(ctx, query, rootContestID)
}

func (r *postgresTeamRepository) ListByIDs(ctx context.Context, ids []int) ([]*models.Team, error) {
	if len(ids) == 0 {
		return []*models.Team{}, nil
	}
	query := `SELECT id, name, root_contest_id, logo_key, created_at
		FROM teams
		WHERE id = ANY($1)
		ORDER BY id ASC`

	return r.queryTeams(ctx, query, pq.Array(ids))
}

func (r *postgresTeamRepository) queryTeams(ctx context.Context, query string, args ...interface{}) ([]*models.Team, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		var team models.Team
		if scanErr := rows.Scan(&team.ID, &team.Name, &team.RootContestID, &team.LogoKey, &team.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", scanErr)
		}
		teams = append(teams, &team)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during team rows iteration: %w", err)
	}
	return teams, nil
}

func (r *postgresTeamRepository) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	query := `UPDATE teams SET logo_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, logoKey, id)
	if err != nil {
		return r.handleTeamError(err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) handleTeamError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "teams_root_contest_id_name_key":
			return ErrTeamNameConflict
		case "teams_root_contest_id_fkey":
			return ErrTeamRootInvalid
		}
	}
	return err
}

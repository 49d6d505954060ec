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
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchTeamInvalid   = errors.New("match team conflict or invalid")
	ErrMatchWinnerInvalid = errors.New("match winner conflict or invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByContest(ctx context.Context, contestID int) ([]*models.Match, error)
	UpdateWinner(ctx context.Context, exec SQLExecutor, id int, winnerID *int) error
	UpdateTeams(ctx context.Context, exec SQLExecutor, id int, team1ID, team2ID *int) error
	UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, id int, nextMatchID, winnerToSlot *int) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `id, contest_id, team1_id, team2_id, winner_id, round, order_in_round, match_type, next_match_id, winner_to_slot, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches
			(contest_id, team1_id, team2_id, winner_id, round, order_in_round, match_type, next_match_id, winner_to_slot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		match.ContestID,
		match.Team1ID,
		match.Team2ID,
		match.WinnerID,
		match.Round,
		match.OrderInRound,
		match.MatchType,
		match.NextMatchID,
		match.WinnerToSlot,
	).Scan(&match.ID, &match.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	match := &models.Match{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&match.ID,
		&match.ContestID,
		&match.Team1ID,
		&match.Team2ID,
		&match.WinnerID,
		&match.Round,
		&match.OrderInRound,
		&match.MatchType,
		&match.NextMatchID,
		&match.WinnerToSlot,
		&match.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByContest(ctx context.Context, contestID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + `
		FROM matches
		WHERE contest_id = $1
		ORDER BY round ASC, order_in_round ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for contest %d: %w", contestID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		var match models.Match
		if scanErr := rows.Scan(
			&match.ID,
			&match.ContestID,
			&match.Team1ID,
			&match.Team2ID,
			&match.WinnerID,
			&match.Round,
			&match.OrderInRound,
			&match.MatchType,
			&match.NextMatchID,
			&match.WinnerToSlot,
			&match.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, &match)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateWinner(ctx context.Context, exec SQLExecutor, id int, winnerID *int) error {
	query := `UPDATE matches SET winner_id = $1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, winnerID, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateTeams(ctx context.Context, exec SQLExecutor, id int, team1ID, team2ID *int) error {
	query := `UPDATE matches SET team1_id = $1, team2_id = $2 WHERE id = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, team1ID, team2ID, id)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateNextMatchInfo(ctx context.Context, exec SQLExecutor, id int, nextMatchID, winnerToSlot *int) error {
	query := `UPDATE matches SET next_match_id = $1, winner_to_slot = $2 WHERE id = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, nextMatchID, winnerToSlot, id)
	if err != nil {
		return fmt.Errorf("UpdateNextMatchInfo: failed to execute query for match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	query := `DELETE FROM matches WHERE id = $1`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "matches_team1_id_fkey", "matches_team2_id_fkey":
			return ErrMatchTeamInvalid
		case "matches_winner_id_fkey":
			return ErrMatchWinnerInvalid
		}
	}
	return err
}

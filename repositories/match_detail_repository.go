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
	ErrMatchDetailNotFound      = errors.New("match detail not found")
	ErrMatchDetailMatchInvalid  = errors.New("match detail match conflict or invalid")
	ErrMatchDetailSeqConflict   = errors.New("match detail sequence already recorded")
	ErrMatchDetailTeamInvalid   = errors.New("match detail winner conflict or invalid")
)

type MatchDetailRepository interface {
	Create(ctx context.Context, exec SQLExecutor, detail *models.MatchDetail) error
	ListByMatchIDs(ctx context.Context, matchIDs []int) ([]*models.MatchDetail, error)
	CountByMatch(ctx context.Context, matchID int) (int, error)
}

type postgresMatchDetailRepository struct {
	db *sql.DB
}

func NewPostgresMatchDetailRepository(db *sql.DB) MatchDetailRepository {
	return &postgresMatchDetailRepository{db: db}
}

func (r *postgresMatchDetailRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchDetailRepository) Create(ctx context.Context, exec SQLExecutor, detail *models.MatchDetail) error {
	query := `
		INSERT INTO match_details (match_id, sequence, winner_id)
		VALUES ($1, $2, $3)
		RETURNING id`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		detail.MatchID,
		detail.Sequence,
		detail.WinnerID,
	).Scan(&detail.ID)

	return r.handleDetailError(err)
}

func (r *postgresMatchDetailRepository) ListByMatchIDs(ctx context.Context, matchIDs []int) ([]*models.MatchDetail, error) {
	if len(matchIDs) == 0 {
		return []*models.MatchDetail{}, nil
	}
	query := `SELECT id, match_id, sequence, winner_id
		FROM match_details
		WHERE match_id = ANY($1)
		ORDER BY match_id ASC, sequence ASC`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(matchIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query match details: %w", err)
	}
	defer rows.Close()

	details := make([]*models.MatchDetail, 0)
	for rows.Next() {
		var d models.MatchDetail
		if scanErr := rows.Scan(&d.ID, &d.MatchID, &d.Sequence, &d.WinnerID); scanErr != nil {
			return nil, fmt.Errorf("failed to scan match detail row: %w", scanErr)
		}
		details = append(details, &d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match detail rows iteration: %w", err)
	}
	return details, nil
}

func (r *postgresMatchDetailRepository) CountByMatch(ctx context.Context, matchID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM match_details WHERE match_id = $1`, matchID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count details of match %d: %w", matchID, err)
	}
	return count, nil
}

func (r *postgresMatchDetailRepository) handleDetailError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "match_details_match_id_fkey":
			return ErrMatchDetailMatchInvalid
		case "match_details_match_id_sequence_key":
			return ErrMatchDetailSeqConflict
		case "match_details_winner_id_fkey":
			return ErrMatchDetailTeamInvalid
		}
	}
	return err
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/courtclub/competition-system/models"
	"github.com/lib/pq"
)

var (
	ErrCourtNotFound       = errors.New("court not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrBookingCourtInvalid = errors.New("booking court conflict or invalid")
)

type BookingRepository interface {
	CreateCourt(ctx context.Context, court *models.Court) error
	GetCourt(ctx context.Context, id int) (*models.Court, error)
	ListCourts(ctx context.Context) ([]*models.Court, error)
	CreateBooking(ctx context.Context, exec SQLExecutor, booking *models.Booking) error
	ListBookingsByCourt(ctx context.Context, courtID int, from, to time.Time) ([]*models.Booking, error)
	CountOverlapping(ctx context.Context, exec SQLExecutor, courtID int, startsAt, endsAt time.Time) (int, error)
	DeleteBooking(ctx context.Context, id int) error
}

type postgresBookingRepository struct {
	db *sql.DB
}

func NewPostgresBookingRepository(db *sql.DB) BookingRepository {
	return &postgresBookingRepository{db: db}
}

func (r *postgresBookingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresBookingRepository) CreateCourt(ctx context.Context, court *models.Court) error {
	query := `INSERT INTO courts (name, location) VALUES ($1, $2) RETURNING id`
	return r.db.QueryRowContext(ctx, query, court.Name, court.Location).Scan(&court.ID)
}

func (r *postgresBookingRepository) GetCourt(ctx context.Context, id int) (*models.Court, error) {
	court := &models.Court{}
	err := r.db.QueryRowContext(ctx, `SELECT id, name, location FROM courts WHERE id = $1`, id).
		Scan(&court.ID, &court.Name, &court.Location)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCourtNotFound
		}
		return nil, fmt.Errorf("failed to scan court by id %d: %w", id, err)
	}
	return court, nil
}

func (r *postgresBookingRepository) ListCourts(ctx context.Context) ([]*models.Court, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, location FROM courts ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query courts: %w", err)
	}
	defer rows.Close()

	courts := make([]*models.Court, 0)
	for rows.Next() {
		var c models.Court
		if scanErr := rows.Scan(&c.ID, &c.Name, &c.Location); scanErr != nil {
			return nil, fmt.Errorf("failed to scan court row: %w", scanErr)
		}
		courts = append(courts, &c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during court rows iteration: %w", err)
	}
	return courts, nil
}

func (r *postgresBookingRepository) CreateBooking(ctx context.Context, exec SQLExecutor, booking *models.Booking) error {
	query := `
		INSERT INTO bookings (court_id, match_id, booked_by, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		booking.CourtID,
		booking.MatchID,
		booking.BookedBy,
		booking.StartsAt,
		booking.EndsAt,
	).Scan(&booking.ID, &booking.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Constraint == "bookings_court_id_fkey" {
			return ErrBookingCourtInvalid
		}
		return err
	}
	return nil
}

func (r *postgresBookingRepository) ListBookingsByCourt(ctx context.Context, courtID int, from, to time.Time) ([]*models.Booking, error) {
	query := `SELECT id, court_id, match_id, booked_by, starts_at, ends_at, created_at
		FROM bookings
		WHERE court_id = $1 AND starts_at < $3 AND ends_at > $2
		ORDER BY starts_at ASC`

	rows, err := r.db.QueryContext(ctx, query, courtID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings for court %d: %w", courtID, err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		var b models.Booking
		if scanErr := rows.Scan(&b.ID, &b.CourtID, &b.MatchID, &b.BookedBy, &b.StartsAt, &b.EndsAt, &b.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan booking row: %w", scanErr)
		}
		bookings = append(bookings, &b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during booking rows iteration: %w", err)
	}
	return bookings, nil
}

func (r *postgresBookingRepository) CountOverlapping(ctx context.Context, exec SQLExecutor, courtID int, startsAt, endsAt time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE court_id = $1 AND starts_at < $3 AND ends_at > $2`
	var count int
	err := r.getExecutor(exec).QueryRowContext(ctx, query, courtID, startsAt, endsAt).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count overlapping bookings for court %d: %w", courtID, err)
	}
	return count, nil
}

func (r *postgresBookingRepository) DeleteBooking(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrBookingNotFound)
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/courtclub/competition-system/models"
	"github.com/courtclub/competition-system/repositories"
)

// BookingService бронирует корты под матчи. Проверка пересечения и вставка
// идут одной транзакцией, чтобы два параллельных запроса не заняли один слот.
type BookingService interface {
	CreateCourt(ctx context.Context, name, location string) (*models.Court, error)
	ListCourts(ctx context.Context) ([]models.Court, error)
	Book(ctx context.Context, input BookCourtInput) (*models.Booking, error)
	ListByCourt(ctx context.Context, courtID int, from, to time.Time) ([]models.Booking, error)
	Cancel(ctx context.Context, bookingID int) error
}

type BookCourtInput struct {
	CourtID  int       `json:"court_id"`
	MatchID  *int      `json:"match_id,omitempty"`
	BookedBy int       `json:"-"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

type bookingService struct {
	db          *sql.DB
	bookingRepo repositories.BookingRepository
	logger      *slog.Logger
}

func NewBookingService(db *sql.DB, bookingRepo repositories.BookingRepository, logger *slog.Logger) BookingService {
	return &bookingService{db: db, bookingRepo: bookingRepo, logger: logger}
}

func (s *bookingService) CreateCourt(ctx context.Context, name, location string) (*models.Court, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: court name is required", ErrValidationFailed)
	}
	court := &models.Court{Name: name, Location: location}
	if err := s.bookingRepo.CreateCourt(ctx, court); err != nil {
		return nil, err
	}
	return court, nil
}

func (s *bookingService) ListCourts(ctx context.Context) ([]models.Court, error) {
	courts, err := s.bookingRepo.ListCourts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Court, 0, len(courts))
	for _, c := range courts {
		out = append(out, *c)
	}
	return out, nil
}

func (s *bookingService) Book(ctx context.Context, input BookCourtInput) (*models.Booking, error) {
	if !input.EndsAt.After(input.StartsAt) {
		return nil, ErrBookingInvalidInterval
	}
	if _, err := s.bookingRepo.GetCourt(ctx, input.CourtID); err != nil {
		if errors.Is(err, repositories.ErrCourtNotFound) {
			return nil, ErrCourtNotFound
		}
		return nil, err
	}

	booking := &models.Booking{
		CourtID:  input.CourtID,
		MatchID:  input.MatchID,
		BookedBy: input.BookedBy,
		StartsAt: input.StartsAt,
		EndsAt:   input.EndsAt,
	}

	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		overlapping, err := s.bookingRepo.CountOverlapping(ctx, tx, input.CourtID, input.StartsAt, input.EndsAt)
		if err != nil {
			return err
		}
		if overlapping > 0 {
			return ErrCourtBusy
		}
		return s.bookingRepo.CreateBooking(ctx, tx, booking)
	})
	if err != nil {
		if errors.Is(err, ErrCourtBusy) {
			return nil, ErrCourtBusy
		}
		return nil, fmt.Errorf("failed to book court %d: %w", input.CourtID, err)
	}

	s.logger.Info("court booked",
		slog.Int("court_id", input.CourtID),
		slog.Int("booking_id", booking.ID),
		slog.Time("starts_at", booking.StartsAt))
	return booking, nil
}

func (s *bookingService) ListByCourt(ctx context.Context, courtID int, from, to time.Time) ([]models.Booking, error) {
	bookings, err := s.bookingRepo.ListBookingsByCourt(ctx, courtID, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]models.Booking, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, *b)
	}
	return out, nil
}

func (s *bookingService) Cancel(ctx context.Context, bookingID int) error {
	err := s.bookingRepo.DeleteBooking(ctx, bookingID)
	if errors.Is(err, repositories.ErrBookingNotFound) {
		return ErrNotFound
	}
	return err
}

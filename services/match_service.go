package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/courtclub/competition-system/brackets"
	"github.com/courtclub/competition-system/models"
	"github.com/courtclub/competition-system/repositories"
)

// MatchService принимает результаты партий, выводит победителей матчей и
// двигает сетку одиночного выбывания.
type MatchService interface {
	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
	RecordDetail(ctx context.Context, matchID, winnerTeamID int) (*models.MatchDetail, error)
	AdvanceBracket(ctx context.Context, matchID, winnerTeamID int) error
	DeleteMatch(ctx context.Context, matchID int) error
}

type matchService struct {
	db          *sql.DB
	contestRepo repositories.ContestRepository
	matchRepo   repositories.MatchRepository
	detailRepo  repositories.MatchDetailRepository
	hub         *brackets.Hub
	logger      *slog.Logger
}

func NewMatchService(
	db *sql.DB,
	contestRepo repositories.ContestRepository,
	matchRepo repositories.MatchRepository,
	detailRepo repositories.MatchDetailRepository,
	hub *brackets.Hub,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		db:          db,
		contestRepo: contestRepo,
		matchRepo:   matchRepo,
		detailRepo:  detailRepo,
		hub:         hub,
		logger:      logger,
	}
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	details, err := s.detailRepo.ListByMatchIDs(ctx, []int{matchID})
	if err != nil {
		return nil, err
	}
	match.Details = detailsToValues(details)
	return match, nil
}

// RecordDetail записывает результат очередной партии. Когда сыграно detail_count
// партий, победитель матча выводится строгим большинством; при равенстве партий
// победитель не ставится — матч остаётся недоигранным с точки зрения завершения.
func (s *matchService) RecordDetail(ctx context.Context, matchID, winnerTeamID int) (*models.MatchDetail, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if match.WinnerID != nil {
		return nil, ErrMatchLocked
	}
	if !match.HasBothTeams() {
		return nil, ErrMatchMissingTeams
	}
	if *match.Team1ID != winnerTeamID && *match.Team2ID != winnerTeamID {
		return nil, fmt.Errorf("%w: team %d in match %d", ErrValidationFailed, winnerTeamID, matchID)
	}

	contest, err := s.contestRepo.GetByID(ctx, match.ContestID)
	if err != nil {
		return nil, mapContestRepoError(err)
	}

	existing, err := s.detailRepo.ListByMatchIDs(ctx, []int{matchID})
	if err != nil {
		return nil, err
	}
	if len(existing) >= contest.DetailCount {
		return nil, fmt.Errorf("%w: match %d already has %d of %d details",
			ErrDetailOverflow, matchID, len(existing), contest.DetailCount)
	}

	detail := &models.MatchDetail{
		MatchID:  matchID,
		Sequence: len(existing) + 1,
		WinnerID: winnerTeamID,
	}
	if err := s.detailRepo.Create(ctx, nil, detail); err != nil {
		return nil, err
	}

	// После последней партии выводим победителя матча.
	if len(existing)+1 == contest.DetailCount {
		gamesWon := map[int]int{winnerTeamID: 1}
		for _, d := range existing {
			gamesWon[d.WinnerID]++
		}
		matchWinner := deriveWinner(*match.Team1ID, *match.Team2ID, gamesWon)
		if matchWinner != 0 {
			if contest.Mode == models.ModeElimination {
				if err := s.AdvanceBracket(ctx, matchID, matchWinner); err != nil {
					return nil, err
				}
			} else {
				if err := s.matchRepo.UpdateWinner(ctx, nil, matchID, &matchWinner); err != nil {
					return nil, err
				}
			}
		} else {
			s.logger.Warn("match details are tied, winner left unset",
				slog.Int("match_id", matchID),
				slog.Int("contest_id", contest.ID))
		}
	}

	s.hub.BroadcastToRoom(ContestRoom(match.ContestID), brackets.WebSocketMessage{
		Type: "MATCH_UPDATED",
		Payload: map[string]interface{}{
			"match_id": matchID,
			"detail":   detail,
		},
	})
	return detail, nil
}

// deriveWinner возвращает команду со строгим большинством партий, 0 при равенстве.
func deriveWinner(team1ID, team2ID int, gamesWon map[int]int) int {
	switch {
	case gamesWon[team1ID] > gamesWon[team2ID]:
		return team1ID
	case gamesWon[team2ID] > gamesWon[team1ID]:
		return team2ID
	default:
		return 0
	}
}

// AdvanceBracket фиксирует победителя матча сетки и продвигает его ровно на
// один переход. Запись победителя и заполнение слота следующего матча идут
// одной транзакцией; там же при необходимости создаётся матч за третье место.
func (s *matchService) AdvanceBracket(ctx context.Context, matchID, winnerTeamID int) error {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return err
	}
	contest, err := s.contestRepo.GetByID(ctx, match.ContestID)
	if err != nil {
		return mapContestRepoError(err)
	}

	matchPtrs, err := s.matchRepo.ListByContest(ctx, contest.ID)
	if err != nil {
		return err
	}
	bracket := brackets.NewBracket(matchesToValues(matchPtrs))

	updated, next, err := bracket.RecordResult(matchID, winnerTeamID)
	if err != nil {
		return mapBracketError(err)
	}

	var thirdPlace *models.Match
	if bracket.NeedsThirdPlaceMatch(contest.AdvancementCount) {
		losers := bracket.SemifinalLosers()
		if len(losers) == 2 {
			finalRound := 0
			for _, m := range bracket.Matches() {
				if m.Round > finalRound {
					finalRound = m.Round
				}
			}
			thirdPlace = &models.Match{
				ContestID:    contest.ID,
				Team1ID:      &losers[0],
				Team2ID:      &losers[1],
				Round:        finalRound,
				OrderInRound: 2,
				MatchType:    models.MatchTypeThirdPlace,
			}
		}
	}

	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.matchRepo.UpdateWinner(ctx, tx, updated.ID, updated.WinnerID); err != nil {
			return err
		}
		if next != nil {
			if err := s.matchRepo.UpdateTeams(ctx, tx, next.ID, next.Team1ID, next.Team2ID); err != nil {
				return err
			}
		}
		if thirdPlace != nil {
			return s.matchRepo.Create(ctx, tx, thirdPlace)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to persist bracket advance of match %d: %w", matchID, err)
	}

	payload := map[string]interface{}{
		"match_id":  updated.ID,
		"winner_id": winnerTeamID,
	}
	if next != nil {
		payload["next_match"] = next
	}
	if thirdPlace != nil {
		payload["third_place_match"] = thirdPlace
		s.logger.Info("third place match created",
			slog.Int("contest_id", contest.ID),
			slog.Int("match_id", thirdPlace.ID))
	}
	s.hub.BroadcastToRoom(ContestRoom(contest.ID), brackets.WebSocketMessage{
		Type:    "BRACKET_UPDATED",
		Payload: payload,
	})
	return nil
}

// DeleteMatch удаляет матч без результата; матч с победителем заблокирован.
func (s *matchService) DeleteMatch(ctx context.Context, matchID int) error {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return err
	}
	if match.WinnerID != nil {
		return ErrMatchLocked
	}
	return s.matchRepo.Delete(ctx, nil, matchID)
}

// mapBracketError переводит ошибки пакета brackets в сервисные сигналы.
func mapBracketError(err error) error {
	switch {
	case errors.Is(err, brackets.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, brackets.ErrMatchLocked):
		return ErrMatchLocked
	case errors.Is(err, brackets.ErrMatchMissingTeams):
		return ErrMatchMissingTeams
	case errors.Is(err, brackets.ErrWinnerNotInMatch),
		errors.Is(err, brackets.ErrSlotOccupied),
		errors.Is(err, brackets.ErrTeamAlreadyInRound),
		errors.Is(err, brackets.ErrSelfPairing),
		errors.Is(err, brackets.ErrInvalidSlot):
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	default:
		return err
	}
}

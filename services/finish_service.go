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

// FinishService завершает соревнование: проверяет, что все матчи доиграны,
// считает итоговый рейтинг по режиму, фиксирует прошедших и, если это
// под-этап, возвращает команды в пул корня.
type FinishService interface {
	Finish(ctx context.Context, contestID int) ([]int, error)
	RefreshRanking(ctx context.Context, contestID int) (*RankingView, error)
}

// RankingView — расчётный рейтинг без записи в БД.
type RankingView struct {
	ContestID        int                   `json:"contest_id"`
	Mode             models.ContestMode    `json:"mode"`
	Standings        []models.TeamStanding `json:"standings"`
	QualifiedTeamIDs []int                 `json:"qualified_team_ids"`
	AmbiguousGroups  [][]int               `json:"ambiguous_groups,omitempty"`
}

type finishService struct {
	db             *sql.DB
	contestRepo    repositories.ContestRepository
	matchRepo      repositories.MatchRepository
	detailRepo     repositories.MatchDetailRepository
	assignmentRepo repositories.AssignmentRepository
	teamRepo       repositories.TeamRepository
	teams          *TeamCache
	stage          StageService
	ranker         *brackets.RoundRobinRanker
	hub            *brackets.Hub
	fourthPlace    brackets.FourthPlacePolicy
	logger         *slog.Logger

	// runTx подменяется в тестах, чтобы наблюдать транзакционные шаги
	// через фейки без живой БД.
	runTx func(ctx context.Context, fn func(tx *sql.Tx) error) error
}

func NewFinishService(
	db *sql.DB,
	contestRepo repositories.ContestRepository,
	matchRepo repositories.MatchRepository,
	detailRepo repositories.MatchDetailRepository,
	assignmentRepo repositories.AssignmentRepository,
	teamRepo repositories.TeamRepository,
	teams *TeamCache,
	stage StageService,
	hub *brackets.Hub,
	fourthPlace brackets.FourthPlacePolicy,
	logger *slog.Logger,
) FinishService {
	s := &finishService{
		db:             db,
		contestRepo:    contestRepo,
		matchRepo:      matchRepo,
		detailRepo:     detailRepo,
		assignmentRepo: assignmentRepo,
		teamRepo:       teamRepo,
		teams:          teams,
		stage:          stage,
		ranker:         brackets.NewRoundRobinRanker(),
		hub:            hub,
		fourthPlace:    fourthPlace,
		logger:         logger,
	}
	s.runTx = func(ctx context.Context, fn func(tx *sql.Tx) error) error {
		return runInTx(ctx, s.db, fn)
	}
	return s
}

// Finish идемпотентен по ошибке: повторный вызов на завершённом соревновании
// возвращает ErrAlreadyFinished и ничего не меняет.
func (s *finishService) Finish(ctx context.Context, contestID int) ([]int, error) {
	contest, err := s.contestRepo.GetByID(ctx, contestID)
	if err != nil {
		return nil, mapContestRepoError(err)
	}
	if contest.Status == models.StatusFinished {
		return nil, ErrAlreadyFinished
	}
	// Завершается только идущее соревнование: у recruiting матчей ещё нет,
	// и "рейтинг" по пустому списку был бы фиктивным.
	if contest.Status != models.StatusOngoing {
		return nil, fmt.Errorf("%w: %s -> %s", ErrContestStatusTransition, contest.Status, models.StatusFinished)
	}

	view, err := s.computeRanking(ctx, contest)
	if err != nil {
		return nil, err
	}
	qualified := view.QualifiedTeamIDs

	// Фиксация и handoff под-этапа идут одной транзакцией: упавший handoff
	// откатывает и статус, так что повторный Finish доведёт дело до конца.
	err = s.runTx(ctx, func(tx *sql.Tx) error {
		if err := s.contestRepo.SaveQualifiedTeams(ctx, tx, contestID, qualified); err != nil {
			return err
		}
		if err := s.contestRepo.UpdateStatus(ctx, tx, contestID, models.StatusFinished); err != nil {
			return err
		}
		if contest.IsSubStage() {
			return s.stage.Handoff(ctx, tx, contestID, qualified)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist finish of contest %d: %w", contestID, err)
	}

	s.hub.BroadcastToRoom(ContestRoom(contestID), brackets.WebSocketMessage{
		Type: "CONTEST_FINISHED",
		Payload: map[string]interface{}{
			"contest_id":         contestID,
			"qualified_team_ids": qualified,
		},
	})

	s.logger.Info("contest finished",
		slog.Int("contest_id", contestID),
		slog.String("mode", string(contest.Mode)),
		slog.Any("qualified_team_ids", qualified))
	return qualified, nil
}

// RefreshRanking пересчитывает рейтинг без записи. Требование доигранности
// матчей сохраняется: промежуточная таблица с недоигранными личными встречами
// врала бы про места в спорных группах.
func (s *finishService) RefreshRanking(ctx context.Context, contestID int) (*RankingView, error) {
	contest, err := s.contestRepo.GetByID(ctx, contestID)
	if err != nil {
		return nil, mapContestRepoError(err)
	}
	return s.computeRanking(ctx, contest)
}

func (s *finishService) computeRanking(ctx context.Context, contest *models.Contest) (*RankingView, error) {
	matchPtrs, err := s.matchRepo.ListByContest(ctx, contest.ID)
	if err != nil {
		return nil, err
	}

	incomplete := make([]int, 0)
	for _, m := range matchPtrs {
		if m.WinnerID == nil {
			incomplete = append(incomplete, m.ID)
		}
	}
	if len(incomplete) > 0 {
		return nil, &IncompleteMatchesError{MatchIDs: incomplete}
	}

	matches := matchesToValues(matchPtrs)
	view := &RankingView{ContestID: contest.ID, Mode: contest.Mode}

	switch contest.Mode {
	case models.ModeRoundRobin:
		teams, err := s.contestTeams(ctx, contest)
		if err != nil {
			return nil, err
		}
		detailPtrs, err := s.detailRepo.ListByMatchIDs(ctx, matchIDs(matchPtrs))
		if err != nil {
			return nil, err
		}
		result := s.ranker.Rank(teams, matches, detailsToValues(detailPtrs))
		for _, group := range result.AmbiguousGroups {
			s.logger.Warn("circular head-to-head results, ranking by games won",
				slog.Int("contest_id", contest.ID),
				slog.Any("team_ids", group))
		}
		view.Standings = result.Standings
		view.AmbiguousGroups = result.AmbiguousGroups
		for i, st := range result.Standings {
			if i >= contest.AdvancementCount {
				break
			}
			view.QualifiedTeamIDs = append(view.QualifiedTeamIDs, st.Team.ID)
		}

	case models.ModeElimination:
		bracket := brackets.NewBracket(matches)
		ranking, err := bracket.FinalRanking(contest.AdvancementCount, s.fourthPlace)
		if err != nil {
			if errors.Is(err, brackets.ErrFinalNotCompleted) {
				return nil, &IncompleteMatchesError{MatchIDs: []int{}}
			}
			return nil, err
		}
		wins := make(map[int]int)
		for i := range matches {
			if matches[i].WinnerID != nil {
				wins[*matches[i].WinnerID]++
			}
		}
		ranked, err := s.teams.GetMany(ctx, ranking)
		if err != nil {
			return nil, err
		}
		for i, team := range ranked {
			view.Standings = append(view.Standings, models.TeamStanding{
				Team: team,
				Wins: wins[team.ID],
				Rank: i + 1,
			})
		}
		if len(ranking) > contest.AdvancementCount {
			ranking = ranking[:contest.AdvancementCount]
		}
		view.QualifiedTeamIDs = ranking

	default:
		return nil, fmt.Errorf("%w: %q", ErrContestInvalidMode, contest.Mode)
	}

	return view, nil
}

// contestTeams собирает состав соревнования: для под-этапа — из назначений,
// для одиночного турнира — все команды корня.
func (s *finishService) contestTeams(ctx context.Context, contest *models.Contest) ([]models.Team, error) {
	if contest.IsSubStage() {
		assignments, err := s.assignmentRepo.ListBySubStage(ctx, contest.ID)
		if err != nil {
			return nil, err
		}
		ids := make([]int, 0, len(assignments))
		for _, a := range assignments {
			ids = append(ids, a.TeamID)
		}
		return s.teams.GetMany(ctx, ids)
	}

	teamPtrs, err := s.teamRepo.ListByRootContest(ctx, contest.ID)
	if err != nil {
		return nil, err
	}
	s.teams.Prime(teamPtrs)
	return teamsToValues(teamPtrs), nil
}

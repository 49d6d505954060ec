package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/courtclub/competition-system/brackets"
	"github.com/courtclub/competition-system/models"
	"github.com/courtclub/competition-system/repositories"
)

// ScheduleService генерирует расписание матчей соревнования по его режиму.
type ScheduleService interface {
	GenerateSchedule(ctx context.Context, contestID int) ([]*models.Match, error)
}

type scheduleService struct {
	db             *sql.DB
	contestRepo    repositories.ContestRepository
	matchRepo      repositories.MatchRepository
	teamRepo       repositories.TeamRepository
	assignmentRepo repositories.AssignmentRepository
	teams          *TeamCache
	logger         *slog.Logger
}

func NewScheduleService(
	db *sql.DB,
	contestRepo repositories.ContestRepository,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	assignmentRepo repositories.AssignmentRepository,
	teams *TeamCache,
	logger *slog.Logger,
) ScheduleService {
	return &scheduleService{
		db:             db,
		contestRepo:    contestRepo,
		matchRepo:      matchRepo,
		teamRepo:       teamRepo,
		assignmentRepo: assignmentRepo,
		teams:          teams,
		logger:         logger,
	}
}

// GenerateSchedule строит и сохраняет матчи, затем переводит соревнование в
// ongoing. Сохранение двухпроходное: сначала вставляются матчи и строится
// карта UID -> id, потом ссылки SourceMatch*UID разрешаются в
// next_match_id/winner_to_slot у матчей-источников. Bye-матчи в БД не пишутся:
// их обладатели уже стоят в слотах следующего раунда.
func (s *scheduleService) GenerateSchedule(ctx context.Context, contestID int) ([]*models.Match, error) {
	contest, err := s.contestRepo.GetByID(ctx, contestID)
	if err != nil {
		return nil, mapContestRepoError(err)
	}
	if contest.Status == models.StatusFinished {
		return nil, ErrAlreadyFinished
	}

	existing, err := s.matchRepo.ListByContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrScheduleAlreadyExists
	}

	teams, err := s.contestTeams(ctx, contest)
	if err != nil {
		return nil, err
	}

	generator, err := brackets.ForMode(contest.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContestInvalidMode, err)
	}
	planned, err := generator.Generate(brackets.GenerateParams{Contest: contest, Teams: teams})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	created := make([]*models.Match, 0, len(planned))
	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		idByUID := make(map[string]int, len(planned))

		for _, pm := range planned {
			if pm.IsBye {
				continue
			}
			match := &models.Match{
				ContestID:    contestID,
				Team1ID:      pm.Team1ID,
				Team2ID:      pm.Team2ID,
				Round:        pm.Round,
				OrderInRound: pm.OrderInRound,
				MatchType:    pm.MatchType,
			}
			if err := s.matchRepo.Create(ctx, tx, match); err != nil {
				return fmt.Errorf("failed to create match %s: %w", pm.UID, err)
			}
			idByUID[pm.UID] = match.ID
			created = append(created, match)
		}

		for _, pm := range planned {
			if pm.IsBye {
				continue
			}
			targetID := idByUID[pm.UID]
			for slot, srcUID := range map[int]*string{1: pm.SourceMatch1UID, 2: pm.SourceMatch2UID} {
				if srcUID == nil {
					continue
				}
				sourceID, ok := idByUID[*srcUID]
				if !ok {
					return fmt.Errorf("planned match %s references unknown source %s", pm.UID, *srcUID)
				}
				slotCopy := slot
				if err := s.matchRepo.UpdateNextMatchInfo(ctx, tx, sourceID, &targetID, &slotCopy); err != nil {
					return err
				}
			}
		}

		return s.contestRepo.UpdateStatus(ctx, tx, contestID, models.StatusOngoing)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist schedule of contest %d: %w", contestID, err)
	}

	s.logger.Info("schedule generated",
		slog.Int("contest_id", contestID),
		slog.String("generator", generator.GetName()),
		slog.Int("match_count", len(created)))
	return created, nil
}

func (s *scheduleService) contestTeams(ctx context.Context, contest *models.Contest) ([]models.Team, error) {
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

package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/courtclub/competition-system/brackets"
	"github.com/courtclub/competition-system/models"
	"github.com/courtclub/competition-system/repositories"
)

// ContestService — CRUD и агрегированные представления соревнований.
type ContestService interface {
	Create(ctx context.Context, input CreateContestInput) (*models.Contest, error)
	GetByID(ctx context.Context, id int) (*models.Contest, error)
	GetSnapshot(ctx context.Context, id int) (*models.Contest, error)
	GetBracket(ctx context.Context, id int) (*BracketView, error)
	UpdateStatus(ctx context.Context, id int, status models.ContestStatus) error
	FinishRoot(ctx context.Context, rootID int) error
}

type CreateContestInput struct {
	Name             string             `json:"name"`
	Mode             models.ContestMode `json:"mode"`
	AdvancementCount int                `json:"advancement_count"`
	DetailCount      int                `json:"detail_count"`
}

// BracketView — сетка/таблица матчей, сгруппированная по раундам.
type BracketView struct {
	ContestID int                `json:"contest_id"`
	Mode      models.ContestMode `json:"mode"`
	Rounds    [][]models.Match   `json:"rounds"`
}

type contestService struct {
	db          *sql.DB
	contestRepo repositories.ContestRepository
	teamRepo    repositories.TeamRepository
	matchRepo   repositories.MatchRepository
	detailRepo  repositories.MatchDetailRepository
	stage       StageService
	teams       *TeamCache
	logger      *slog.Logger
}

func NewContestService(
	db *sql.DB,
	contestRepo repositories.ContestRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	detailRepo repositories.MatchDetailRepository,
	stage StageService,
	teams *TeamCache,
	logger *slog.Logger,
) ContestService {
	return &contestService{
		db:          db,
		contestRepo: contestRepo,
		teamRepo:    teamRepo,
		matchRepo:   matchRepo,
		detailRepo:  detailRepo,
		stage:       stage,
		teams:       teams,
		logger:      logger,
	}
}

func (s *contestService) Create(ctx context.Context, input CreateContestInput) (*models.Contest, error) {
	if input.Name == "" {
		return nil, ErrContestNameRequired
	}
	if !isValidMode(input.Mode) {
		return nil, fmt.Errorf("%w: %q", ErrContestInvalidMode, input.Mode)
	}
	if input.AdvancementCount < 1 {
		return nil, ErrContestInvalidQuota
	}
	detailCount := input.DetailCount
	if detailCount < 1 {
		detailCount = 1
	}

	contest := &models.Contest{
		Name:             input.Name,
		Mode:             input.Mode,
		Status:           models.StatusRecruiting,
		AdvancementCount: input.AdvancementCount,
		DetailCount:      detailCount,
	}
	if err := s.contestRepo.Create(ctx, nil, contest); err != nil {
		return nil, err
	}

	s.logger.Info("contest created",
		slog.Int("contest_id", contest.ID),
		slog.String("mode", string(contest.Mode)))
	return contest, nil
}

func (s *contestService) GetByID(ctx context.Context, id int) (*models.Contest, error) {
	contest, err := s.contestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapContestRepoError(err)
	}
	return contest, nil
}

// GetSnapshot собирает соревнование со связанными сущностями. Загрузки
// независимы и идут параллельно через errgroup; первая ошибка отменяет
// остальные через контекст группы.
func (s *contestService) GetSnapshot(ctx context.Context, id int) (*models.Contest, error) {
	contest, err := s.contestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapContestRepoError(err)
	}

	rootID := id
	if contest.ParentID != nil {
		rootID = *contest.ParentID
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		teams, err := s.teamRepo.ListByRootContest(gCtx, rootID)
		if err != nil {
			return fmt.Errorf("failed to load teams of contest %d: %w", id, err)
		}
		s.teams.Prime(teams)
		contest.Teams = teamsToValues(teams)
		return nil
	})

	g.Go(func() error {
		matches, err := s.matchRepo.ListByContest(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load matches of contest %d: %w", id, err)
		}
		details, err := s.detailRepo.ListByMatchIDs(gCtx, matchIDs(matches))
		if err != nil {
			return fmt.Errorf("failed to load match details of contest %d: %w", id, err)
		}
		byMatch := make(map[int][]models.MatchDetail)
		for _, d := range details {
			byMatch[d.MatchID] = append(byMatch[d.MatchID], *d)
		}
		contest.Matches = make([]models.Match, 0, len(matches))
		for _, m := range matches {
			mv := *m
			mv.Details = byMatch[m.ID]
			contest.Matches = append(contest.Matches, mv)
		}
		return nil
	})

	g.Go(func() error {
		subStages, err := s.contestRepo.ListSubStages(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load sub-stages of contest %d: %w", id, err)
		}
		contest.SubStages = make([]models.Contest, 0, len(subStages))
		for _, sub := range subStages {
			contest.SubStages = append(contest.SubStages, *sub)
		}
		return nil
	})

	g.Go(func() error {
		qualifiedIDs, err := s.contestRepo.GetQualifiedTeamIDs(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load qualified teams of contest %d: %w", id, err)
		}
		if len(qualifiedIDs) == 0 {
			return nil
		}
		qualified, err := s.teams.GetMany(gCtx, qualifiedIDs)
		if err != nil {
			return err
		}
		contest.QualifiedTeams = qualified
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return contest, nil
}

func (s *contestService) GetBracket(ctx context.Context, id int) (*BracketView, error) {
	contest, err := s.contestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapContestRepoError(err)
	}
	matchPtrs, err := s.matchRepo.ListByContest(ctx, id)
	if err != nil {
		return nil, err
	}

	bracket := brackets.NewBracket(matchesToValues(matchPtrs))
	view := &BracketView{ContestID: id, Mode: contest.Mode}
	for _, round := range bracket.Rounds() {
		row := make([]models.Match, 0, len(round))
		for _, m := range round {
			row = append(row, *m)
		}
		view.Rounds = append(view.Rounds, row)
	}
	return view, nil
}

func (s *contestService) UpdateStatus(ctx context.Context, id int, status models.ContestStatus) error {
	switch status {
	case models.StatusRecruiting, models.StatusWaitingSchedule, models.StatusLineupPending,
		models.StatusOngoing, models.StatusFinished:
	default:
		return fmt.Errorf("%w: %q", ErrContestInvalidStatus, status)
	}

	contest, err := s.contestRepo.GetByID(ctx, id)
	if err != nil {
		return mapContestRepoError(err)
	}
	if !isValidStatusTransition(contest.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrContestStatusTransition, contest.Status, status)
	}
	return s.contestRepo.UpdateStatus(ctx, nil, id, status)
}

// FinishRoot закрывает корневое соревнование смешанного турнира. Допустимо,
// только когда все под-этапы завершены, а в пуле осталось не больше одной
// команды — она и записывается итоговым победителем.
func (s *contestService) FinishRoot(ctx context.Context, rootID int) error {
	contest, err := s.contestRepo.GetByID(ctx, rootID)
	if err != nil {
		return mapContestRepoError(err)
	}
	if contest.IsSubStage() {
		return fmt.Errorf("%w: contest %d", ErrContestNotRoot, rootID)
	}
	if contest.Status == models.StatusFinished {
		return ErrAlreadyFinished
	}

	ok, err := s.stage.CanFinishRoot(ctx, rootID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRootNotFinishable
	}

	pool, err := s.stage.PendingPool(ctx, rootID)
	if err != nil {
		return err
	}
	winners := make([]int, 0, len(pool))
	for _, t := range pool {
		winners = append(winners, t.ID)
	}

	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.contestRepo.SaveQualifiedTeams(ctx, tx, rootID, winners); err != nil {
			return err
		}
		return s.contestRepo.UpdateStatus(ctx, tx, rootID, models.StatusFinished)
	})
	if err != nil {
		return fmt.Errorf("failed to finish root contest %d: %w", rootID, err)
	}

	s.logger.Info("root contest finished",
		slog.Int("contest_id", rootID),
		slog.Any("winner_team_ids", winners))
	return nil
}

package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"github.com/courtclub/competition-system/models"
	"github.com/courtclub/competition-system/repositories"
)

// StageService управляет жизненным циклом под-этапов смешанного турнира и
// пулом ожидающих команд (pending pool). Пул нигде не хранится: это всегда
// разность всех команд корня и команд, занятых в незавершённых под-этапах.
type StageService interface {
	CreateSubStage(ctx context.Context, rootID int, input CreateSubStageInput) (*models.Contest, error)
	AssignTeams(ctx context.Context, subStageID int, teamIDs []int) error
	Handoff(ctx context.Context, exec repositories.SQLExecutor, subStageID int, qualifiedTeamIDs []int) error
	PendingPool(ctx context.Context, rootID int) ([]models.Team, error)
	CanFinishRoot(ctx context.Context, rootID int) (bool, error)
}

type CreateSubStageInput struct {
	Name             string             `json:"name"`
	Mode             models.ContestMode `json:"mode"`
	AdvancementCount int                `json:"advancement_count"`
	DetailCount      int                `json:"detail_count"`
	StageOrder       *int               `json:"stage_order,omitempty"`
	ParallelGroup    *string            `json:"parallel_group,omitempty"`
}

type stageService struct {
	db             *sql.DB
	contestRepo    repositories.ContestRepository
	teamRepo       repositories.TeamRepository
	assignmentRepo repositories.AssignmentRepository
	teams          *TeamCache
	logger         *slog.Logger
}

func NewStageService(
	db *sql.DB,
	contestRepo repositories.ContestRepository,
	teamRepo repositories.TeamRepository,
	assignmentRepo repositories.AssignmentRepository,
	teams *TeamCache,
	logger *slog.Logger,
) StageService {
	return &stageService{
		db:             db,
		contestRepo:    contestRepo,
		teamRepo:       teamRepo,
		assignmentRepo: assignmentRepo,
		teams:          teams,
		logger:         logger,
	}
}

func (s *stageService) CreateSubStage(ctx context.Context, rootID int, input CreateSubStageInput) (*models.Contest, error) {
	root, err := s.contestRepo.GetByID(ctx, rootID)
	if err != nil {
		return nil, mapContestRepoError(err)
	}
	if root.IsSubStage() {
		return nil, fmt.Errorf("%w: contest %d has a parent", ErrContestNotRoot, rootID)
	}
	if root.Status == models.StatusFinished {
		return nil, ErrAlreadyFinished
	}
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

	subStage := &models.Contest{
		Name:             input.Name,
		Mode:             input.Mode,
		Status:           models.StatusWaitingSchedule,
		ParentID:         &rootID,
		StageOrder:       input.StageOrder,
		ParallelGroup:    input.ParallelGroup,
		AdvancementCount: input.AdvancementCount,
		DetailCount:      detailCount,
	}
	if err := s.contestRepo.Create(ctx, nil, subStage); err != nil {
		return nil, fmt.Errorf("failed to create sub-stage under contest %d: %w", rootID, err)
	}

	s.logger.Info("sub-stage created",
		slog.Int("root_id", rootID),
		slog.Int("sub_stage_id", subStage.ID),
		slog.String("mode", string(subStage.Mode)))
	return subStage, nil
}

// AssignTeams набирает команды в под-этап. Каждая команда обязана находиться
// в pending pool корня; нарушение — ErrTeamAlreadyAssigned, без автокоррекции.
func (s *stageService) AssignTeams(ctx context.Context, subStageID int, teamIDs []int) error {
	subStage, err := s.contestRepo.GetByID(ctx, subStageID)
	if err != nil {
		return mapContestRepoError(err)
	}
	if !subStage.IsSubStage() {
		return fmt.Errorf("%w: contest %d", ErrContestNotSubStage, subStageID)
	}
	if subStage.Status == models.StatusFinished {
		return ErrAlreadyFinished
	}

	pool, err := s.PendingPool(ctx, *subStage.ParentID)
	if err != nil {
		return err
	}
	inPool := make(map[int]bool, len(pool))
	for _, t := range pool {
		inPool[t.ID] = true
	}
	for _, id := range teamIDs {
		if !inPool[id] {
			return fmt.Errorf("%w: team %d", ErrTeamAlreadyAssigned, id)
		}
	}

	if err := s.assignmentRepo.CreateBatch(ctx, nil, subStageID, teamIDs, models.AssignmentActive); err != nil {
		return fmt.Errorf("failed to assign teams to sub-stage %d: %w", subStageID, err)
	}

	s.logger.Info("teams assigned to sub-stage",
		slog.Int("sub_stage_id", subStageID),
		slog.Int("team_count", len(teamIDs)))
	return nil
}

// Handoff возвращает прошедшие команды в пул корня после завершения
// под-этапа. Все строки назначений под-этапа удаляются, и заново вставляются
// только выбывшие со статусом eliminated: отсутствие строки и есть членство
// в пуле, поэтому прошедших вставлять нельзя. При exec != nil шаги идут в
// транзакции вызывающего (Finish фиксирует статус и handoff атомарно),
// иначе открывается собственная.
func (s *stageService) Handoff(ctx context.Context, exec repositories.SQLExecutor, subStageID int, qualifiedTeamIDs []int) error {
	assignments, err := s.assignmentRepo.ListBySubStage(ctx, subStageID)
	if err != nil {
		return err
	}

	qualified := make(map[int]bool, len(qualifiedTeamIDs))
	for _, id := range qualifiedTeamIDs {
		qualified[id] = true
	}
	eliminated := make([]int, 0, len(assignments))
	for _, a := range assignments {
		if !qualified[a.TeamID] {
			eliminated = append(eliminated, a.TeamID)
		}
	}

	apply := func(e repositories.SQLExecutor) error {
		if err := s.assignmentRepo.DeleteBySubStage(ctx, e, subStageID); err != nil {
			return err
		}
		return s.assignmentRepo.CreateBatch(ctx, e, subStageID, eliminated, models.AssignmentEliminated)
	}
	if exec != nil {
		err = apply(exec)
	} else {
		err = runInTx(ctx, s.db, func(tx *sql.Tx) error { return apply(tx) })
	}
	if err != nil {
		return fmt.Errorf("handoff of sub-stage %d failed: %w", subStageID, err)
	}

	s.logger.Info("sub-stage handoff completed",
		slog.Int("sub_stage_id", subStageID),
		slog.Int("qualified", len(qualifiedTeamIDs)),
		slog.Int("eliminated", len(eliminated)))
	return nil
}

func (s *stageService) PendingPool(ctx context.Context, rootID int) ([]models.Team, error) {
	allTeams, err := s.teamRepo.ListByRootContest(ctx, rootID)
	if err != nil {
		return nil, err
	}
	s.teams.Prime(allTeams)

	busyIDs, err := s.assignmentRepo.ListActiveTeamIDsByRoot(ctx, rootID)
	if err != nil {
		return nil, err
	}
	busy := make(map[int]bool, len(busyIDs))
	for _, id := range busyIDs {
		busy[id] = true
	}

	pool := make([]models.Team, 0, len(allTeams))
	for _, t := range allTeams {
		if !busy[t.ID] {
			pool = append(pool, *t)
		}
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })
	return pool, nil
}

// CanFinishRoot: корень можно закрывать, когда в пуле осталось не больше
// одной команды и все под-этапы завершены.
func (s *stageService) CanFinishRoot(ctx context.Context, rootID int) (bool, error) {
	pool, err := s.PendingPool(ctx, rootID)
	if err != nil {
		return false, err
	}
	if len(pool) > 1 {
		return false, nil
	}

	subStages, err := s.contestRepo.ListSubStages(ctx, rootID)
	if err != nil {
		return false, err
	}
	for _, sub := range subStages {
		if sub.Status != models.StatusFinished {
			return false, nil
		}
	}
	return true, nil
}

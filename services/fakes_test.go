package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/courtclub/competition-system/models"
	"github.com/courtclub/competition-system/repositories"
)

// Фейки репозиториев с подменяемыми функциями-полями. Непереопределённый
// метод возвращает errNotStubbed, чтобы тест сразу показал лишний вызов.
var errNotStubbed = errors.New("fake: method not stubbed")

// fakeExecutor передаётся в методы, принимающие SQLExecutor вызывающего.
// Фейки репозиториев его игнорируют, поэтому методы-заглушки пустые.
type fakeExecutor struct{}

func (fakeExecutor) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, nil
}

func (fakeExecutor) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, nil
}

func (fakeExecutor) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

type fakeContestRepo struct {
	CreateFunc              func(ctx context.Context, exec repositories.SQLExecutor, contest *models.Contest) error
	GetByIDFunc             func(ctx context.Context, id int) (*models.Contest, error)
	ListSubStagesFunc       func(ctx context.Context, rootID int) ([]*models.Contest, error)
	UpdateStatusFunc        func(ctx context.Context, exec repositories.SQLExecutor, id int, status models.ContestStatus) error
	SaveQualifiedTeamsFunc  func(ctx context.Context, exec repositories.SQLExecutor, contestID int, teamIDs []int) error
	GetQualifiedTeamIDsFunc func(ctx context.Context, contestID int) ([]int, error)
}

func (f *fakeContestRepo) Create(ctx context.Context, exec repositories.SQLExecutor, contest *models.Contest) error {
	if f.CreateFunc == nil {
		return errNotStubbed
	}
	return f.CreateFunc(ctx, exec, contest)
}

func (f *fakeContestRepo) GetByID(ctx context.Context, id int) (*models.Contest, error) {
	if f.GetByIDFunc == nil {
		return nil, errNotStubbed
	}
	return f.GetByIDFunc(ctx, id)
}

func (f *fakeContestRepo) ListSubStages(ctx context.Context, rootID int) ([]*models.Contest, error) {
	if f.ListSubStagesFunc == nil {
		return nil, errNotStubbed
	}
	return f.ListSubStagesFunc(ctx, rootID)
}

func (f *fakeContestRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.ContestStatus) error {
	if f.UpdateStatusFunc == nil {
		return errNotStubbed
	}
	return f.UpdateStatusFunc(ctx, exec, id, status)
}

func (f *fakeContestRepo) SaveQualifiedTeams(ctx context.Context, exec repositories.SQLExecutor, contestID int, teamIDs []int) error {
	if f.SaveQualifiedTeamsFunc == nil {
		return errNotStubbed
	}
	return f.SaveQualifiedTeamsFunc(ctx, exec, contestID, teamIDs)
}

func (f *fakeContestRepo) GetQualifiedTeamIDs(ctx context.Context, contestID int) ([]int, error) {
	if f.GetQualifiedTeamIDsFunc == nil {
		return nil, errNotStubbed
	}
	return f.GetQualifiedTeamIDsFunc(ctx, contestID)
}

type fakeTeamRepo struct {
	CreateFunc            func(ctx context.Context, exec repositories.SQLExecutor, team *models.Team) error
	GetByIDFunc           func(ctx context.Context, id int) (*models.Team, error)
	ListByRootContestFunc func(ctx context.Context, rootContestID int) ([]*models.Team, error)
	ListByIDsFunc         func(ctx context.Context, ids []int) ([]*models.Team, error)
	UpdateLogoKeyFunc     func(ctx context.Context, id int, logoKey *string) error
}

func (f *fakeTeamRepo) Create(ctx context.Context, exec repositories.SQLExecutor, team *models.Team) error {
	if f.CreateFunc == nil {
		return errNotStubbed
	}
	return f.CreateFunc(ctx, exec, team)
}

func (f *fakeTeamRepo) GetByID(ctx context.Context, id int) (*models.Team, error) {
	if f.GetByIDFunc == nil {
		return nil, errNotStubbed
	}
	return f.GetByIDFunc(ctx, id)
}

func (f *fakeTeamRepo) ListByRootContest(ctx context.Context, rootContestID int) ([]*models.Team, error) {
	if f.ListByRootContestFunc == nil {
		return nil, errNotStubbed
	}
	return f.ListByRootContestFunc(ctx, rootContestID)
}

func (f *fakeTeamRepo) ListByIDs(ctx context.Context, ids []int) ([]*models.Team, error) {
	if f.ListByIDsFunc == nil {
		return nil, errNotStubbed
	}
	return f.ListByIDsFunc(ctx, ids)
}

func (f *fakeTeamRepo) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	if f.UpdateLogoKeyFunc == nil {
		return errNotStubbed
	}
	return f.UpdateLogoKeyFunc(ctx, id, logoKey)
}

type fakeMatchRepo struct {
	CreateFunc              func(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error
	GetByIDFunc             func(ctx context.Context, id int) (*models.Match, error)
	ListByContestFunc       func(ctx context.Context, contestID int) ([]*models.Match, error)
	UpdateWinnerFunc        func(ctx context.Context, exec repositories.SQLExecutor, id int, winnerID *int) error
	UpdateTeamsFunc         func(ctx context.Context, exec repositories.SQLExecutor, id int, team1ID, team2ID *int) error
	UpdateNextMatchInfoFunc func(ctx context.Context, exec repositories.SQLExecutor, id int, nextMatchID, winnerToSlot *int) error
	DeleteFunc              func(ctx context.Context, exec repositories.SQLExecutor, id int) error
}

func (f *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	if f.CreateFunc == nil {
		return errNotStubbed
	}
	return f.CreateFunc(ctx, exec, match)
}

func (f *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	if f.GetByIDFunc == nil {
		return nil, errNotStubbed
	}
	return f.GetByIDFunc(ctx, id)
}

func (f *fakeMatchRepo) ListByContest(ctx context.Context, contestID int) ([]*models.Match, error) {
	if f.ListByContestFunc == nil {
		return nil, errNotStubbed
	}
	return f.ListByContestFunc(ctx, contestID)
}

func (f *fakeMatchRepo) UpdateWinner(ctx context.Context, exec repositories.SQLExecutor, id int, winnerID *int) error {
	if f.UpdateWinnerFunc == nil {
		return errNotStubbed
	}
	return f.UpdateWinnerFunc(ctx, exec, id, winnerID)
}

func (f *fakeMatchRepo) UpdateTeams(ctx context.Context, exec repositories.SQLExecutor, id int, team1ID, team2ID *int) error {
	if f.UpdateTeamsFunc == nil {
		return errNotStubbed
	}
	return f.UpdateTeamsFunc(ctx, exec, id, team1ID, team2ID)
}

func (f *fakeMatchRepo) UpdateNextMatchInfo(ctx context.Context, exec repositories.SQLExecutor, id int, nextMatchID, winnerToSlot *int) error {
	if f.UpdateNextMatchInfoFunc == nil {
		return errNotStubbed
	}
	return f.UpdateNextMatchInfoFunc(ctx, exec, id, nextMatchID, winnerToSlot)
}

func (f *fakeMatchRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	if f.DeleteFunc == nil {
		return errNotStubbed
	}
	return f.DeleteFunc(ctx, exec, id)
}

type fakeDetailRepo struct {
	CreateFunc         func(ctx context.Context, exec repositories.SQLExecutor, detail *models.MatchDetail) error
	ListByMatchIDsFunc func(ctx context.Context, matchIDs []int) ([]*models.MatchDetail, error)
	CountByMatchFunc   func(ctx context.Context, matchID int) (int, error)
}

func (f *fakeDetailRepo) Create(ctx context.Context, exec repositories.SQLExecutor, detail *models.MatchDetail) error {
	if f.CreateFunc == nil {
		return errNotStubbed
	}
	return f.CreateFunc(ctx, exec, detail)
}

func (f *fakeDetailRepo) ListByMatchIDs(ctx context.Context, matchIDs []int) ([]*models.MatchDetail, error) {
	if f.ListByMatchIDsFunc == nil {
		return nil, errNotStubbed
	}
	return f.ListByMatchIDsFunc(ctx, matchIDs)
}

func (f *fakeDetailRepo) CountByMatch(ctx context.Context, matchID int) (int, error) {
	if f.CountByMatchFunc == nil {
		return 0, errNotStubbed
	}
	return f.CountByMatchFunc(ctx, matchID)
}

type fakeAssignmentRepo struct {
	CreateBatchFunc             func(ctx context.Context, exec repositories.SQLExecutor, groupContestID int, teamIDs []int, status models.AssignmentStatus) error
	ListBySubStageFunc          func(ctx context.Context, subStageID int) ([]*models.GroupAssignment, error)
	ListActiveTeamIDsByRootFunc func(ctx context.Context, rootID int) ([]int, error)
	DeleteBySubStageFunc        func(ctx context.Context, exec repositories.SQLExecutor, subStageID int) error
}

func (f *fakeAssignmentRepo) CreateBatch(ctx context.Context, exec repositories.SQLExecutor, groupContestID int, teamIDs []int, status models.AssignmentStatus) error {
	if f.CreateBatchFunc == nil {
		return errNotStubbed
	}
	return f.CreateBatchFunc(ctx, exec, groupContestID, teamIDs, status)
}

func (f *fakeAssignmentRepo) ListBySubStage(ctx context.Context, subStageID int) ([]*models.GroupAssignment, error) {
	if f.ListBySubStageFunc == nil {
		return nil, errNotStubbed
	}
	return f.ListBySubStageFunc(ctx, subStageID)
}

func (f *fakeAssignmentRepo) ListActiveTeamIDsByRoot(ctx context.Context, rootID int) ([]int, error) {
	if f.ListActiveTeamIDsByRootFunc == nil {
		return nil, errNotStubbed
	}
	return f.ListActiveTeamIDsByRootFunc(ctx, rootID)
}

func (f *fakeAssignmentRepo) DeleteBySubStage(ctx context.Context, exec repositories.SQLExecutor, subStageID int) error {
	if f.DeleteBySubStageFunc == nil {
		return errNotStubbed
	}
	return f.DeleteBySubStageFunc(ctx, exec, subStageID)
}

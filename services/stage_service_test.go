package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/courtclub/competition-system/models"
	"github.com/courtclub/competition-system/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func teamPtrs(ids ...int) []*models.Team {
	teams := make([]*models.Team, 0, len(ids))
	for _, id := range ids {
		teams = append(teams, &models.Team{ID: id, Name: "team"})
	}
	return teams
}

func newStageFixture(contestRepo *fakeContestRepo, teamRepo *fakeTeamRepo, assignmentRepo *fakeAssignmentRepo) StageService {
	return NewStageService(nil, contestRepo, teamRepo, assignmentRepo, NewTeamCache(teamRepo), testLogger())
}

func TestPendingPool(t *testing.T) {
	teamRepo := &fakeTeamRepo{
		ListByRootContestFunc: func(ctx context.Context, rootID int) ([]*models.Team, error) {
			assert.Equal(t, 1, rootID)
			return teamPtrs(3, 1, 4, 2), nil
		},
	}
	assignmentRepo := &fakeAssignmentRepo{
		ListActiveTeamIDsByRootFunc: func(ctx context.Context, rootID int) ([]int, error) {
			return []int{2}, nil
		},
	}
	svc := newStageFixture(&fakeContestRepo{}, teamRepo, assignmentRepo)

	pool, err := svc.PendingPool(context.Background(), 1)
	assert.NoError(t, err)

	ids := make([]int, 0, len(pool))
	for _, team := range pool {
		ids = append(ids, team.ID)
	}
	// занятая команда 2 исключена, остальные по возрастанию id
	assert.Equal(t, []int{1, 3, 4}, ids)
}

// Состояние после handoff завершённого под-этапа: остались только строки
// eliminated, у прошедшей команды строк нет. Фейк повторяет выборку
// репозитория — активные строки незавершённых под-этапов плюс eliminated вне
// зависимости от статуса под-этапа — поэтому выбывшие остаются вне пула, а в
// пул возвращается только прошедшая команда.
func TestPendingPool_AfterHandoff(t *testing.T) {
	subStageStatus := map[int]models.ContestStatus{5: models.StatusFinished}
	rows := []models.GroupAssignment{
		{GroupContestID: 5, TeamID: 2, Status: models.AssignmentEliminated},
		{GroupContestID: 5, TeamID: 3, Status: models.AssignmentEliminated},
		{GroupContestID: 5, TeamID: 4, Status: models.AssignmentEliminated},
	}

	teamRepo := &fakeTeamRepo{
		ListByRootContestFunc: func(ctx context.Context, rootID int) ([]*models.Team, error) {
			return teamPtrs(1, 2, 3, 4), nil
		},
	}
	assignmentRepo := &fakeAssignmentRepo{
		ListActiveTeamIDsByRootFunc: func(ctx context.Context, rootID int) ([]int, error) {
			ids := make([]int, 0, len(rows))
			for _, row := range rows {
				if subStageStatus[row.GroupContestID] != models.StatusFinished || row.Status == models.AssignmentEliminated {
					ids = append(ids, row.TeamID)
				}
			}
			return ids, nil
		},
	}
	svc := newStageFixture(&fakeContestRepo{}, teamRepo, assignmentRepo)

	pool, err := svc.PendingPool(context.Background(), 1)
	assert.NoError(t, err)
	if assert.Len(t, pool, 1) {
		assert.Equal(t, 1, pool[0].ID)
	}
}

func TestHandoff(t *testing.T) {
	var calls []string
	var deletedSubStage int
	var reinserted []int
	var reinsertedStatus models.AssignmentStatus

	assignmentRepo := &fakeAssignmentRepo{
		ListBySubStageFunc: func(ctx context.Context, subStageID int) ([]*models.GroupAssignment, error) {
			assert.Equal(t, 5, subStageID)
			return []*models.GroupAssignment{
				{GroupContestID: 5, TeamID: 1, Status: models.AssignmentActive},
				{GroupContestID: 5, TeamID: 2, Status: models.AssignmentActive},
				{GroupContestID: 5, TeamID: 3, Status: models.AssignmentActive},
				{GroupContestID: 5, TeamID: 4, Status: models.AssignmentActive},
			}, nil
		},
		DeleteBySubStageFunc: func(ctx context.Context, exec repositories.SQLExecutor, subStageID int) error {
			calls = append(calls, "delete")
			deletedSubStage = subStageID
			return nil
		},
		CreateBatchFunc: func(ctx context.Context, exec repositories.SQLExecutor, groupContestID int, teamIDs []int, st models.AssignmentStatus) error {
			calls = append(calls, "insert")
			reinserted = teamIDs
			reinsertedStatus = st
			return nil
		},
	}
	svc := newStageFixture(&fakeContestRepo{}, &fakeTeamRepo{}, assignmentRepo)

	err := svc.Handoff(context.Background(), fakeExecutor{}, 5, []int{1})
	assert.NoError(t, err)
	assert.Equal(t, []string{"delete", "insert"}, calls)
	assert.Equal(t, 5, deletedSubStage)
	// прошедшая команда заново не вставляется — её место в пуле корня
	assert.Equal(t, []int{2, 3, 4}, reinserted)
	assert.Equal(t, models.AssignmentEliminated, reinsertedStatus)
}

func TestAssignTeams(t *testing.T) {
	rootID := 1
	subStage := &models.Contest{ID: 5, ParentID: &rootID, Status: models.StatusWaitingSchedule}

	newFixture := func(created *[]int, status *models.AssignmentStatus) StageService {
		contestRepo := &fakeContestRepo{
			GetByIDFunc: func(ctx context.Context, id int) (*models.Contest, error) {
				return subStage, nil
			},
		}
		teamRepo := &fakeTeamRepo{
			ListByRootContestFunc: func(ctx context.Context, id int) ([]*models.Team, error) {
				return teamPtrs(1, 2, 3, 4), nil
			},
		}
		assignmentRepo := &fakeAssignmentRepo{
			ListActiveTeamIDsByRootFunc: func(ctx context.Context, id int) ([]int, error) {
				return []int{4}, nil
			},
			CreateBatchFunc: func(ctx context.Context, exec repositories.SQLExecutor, groupContestID int, teamIDs []int, st models.AssignmentStatus) error {
				if created != nil {
					*created = teamIDs
				}
				if status != nil {
					*status = st
				}
				return nil
			},
		}
		return newStageFixture(contestRepo, teamRepo, assignmentRepo)
	}

	t.Run("assigns pool teams as active", func(t *testing.T) {
		var created []int
		var status models.AssignmentStatus
		svc := newFixture(&created, &status)

		err := svc.AssignTeams(context.Background(), 5, []int{1, 3})
		assert.NoError(t, err)
		assert.Equal(t, []int{1, 3}, created)
		assert.Equal(t, models.AssignmentActive, status)
	})

	t.Run("rejects team busy in another sub-stage", func(t *testing.T) {
		var created []int
		svc := newFixture(&created, nil)

		err := svc.AssignTeams(context.Background(), 5, []int{1, 4})
		assert.ErrorIs(t, err, ErrTeamAlreadyAssigned)
		assert.Empty(t, created)
	})
}

func TestAssignTeams_Guards(t *testing.T) {
	rootID := 1
	tests := []struct {
		name    string
		contest *models.Contest
		wantErr error
	}{
		{
			name:    "root contest is not a sub-stage",
			contest: &models.Contest{ID: 5, Status: models.StatusOngoing},
			wantErr: ErrContestNotSubStage,
		},
		{
			name:    "finished sub-stage",
			contest: &models.Contest{ID: 5, ParentID: &rootID, Status: models.StatusFinished},
			wantErr: ErrAlreadyFinished,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contestRepo := &fakeContestRepo{
				GetByIDFunc: func(ctx context.Context, id int) (*models.Contest, error) {
					return tt.contest, nil
				},
			}
			svc := newStageFixture(contestRepo, &fakeTeamRepo{}, &fakeAssignmentRepo{})

			err := svc.AssignTeams(context.Background(), 5, []int{1})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateSubStage(t *testing.T) {
	root := &models.Contest{ID: 1, Status: models.StatusOngoing}

	t.Run("validation", func(t *testing.T) {
		rootID := 1
		tests := []struct {
			name    string
			root    *models.Contest
			input   CreateSubStageInput
			wantErr error
		}{
			{
				name:    "parent is itself a sub-stage",
				root:    &models.Contest{ID: 2, ParentID: &rootID},
				input:   CreateSubStageInput{Name: "group A", Mode: models.ModeRoundRobin, AdvancementCount: 2},
				wantErr: ErrContestNotRoot,
			},
			{
				name:    "finished root",
				root:    &models.Contest{ID: 1, Status: models.StatusFinished},
				input:   CreateSubStageInput{Name: "group A", Mode: models.ModeRoundRobin, AdvancementCount: 2},
				wantErr: ErrAlreadyFinished,
			},
			{
				name:    "missing name",
				root:    root,
				input:   CreateSubStageInput{Mode: models.ModeRoundRobin, AdvancementCount: 2},
				wantErr: ErrContestNameRequired,
			},
			{
				name:    "unknown mode",
				root:    root,
				input:   CreateSubStageInput{Name: "group A", Mode: "swiss", AdvancementCount: 2},
				wantErr: ErrContestInvalidMode,
			},
			{
				name:    "non-positive quota",
				root:    root,
				input:   CreateSubStageInput{Name: "group A", Mode: models.ModeRoundRobin},
				wantErr: ErrContestInvalidQuota,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				contestRepo := &fakeContestRepo{
					GetByIDFunc: func(ctx context.Context, id int) (*models.Contest, error) {
						return tt.root, nil
					},
				}
				svc := newStageFixture(contestRepo, &fakeTeamRepo{}, &fakeAssignmentRepo{})

				_, err := svc.CreateSubStage(context.Background(), tt.root.ID, tt.input)
				assert.ErrorIs(t, err, tt.wantErr)
			})
		}
	})

	t.Run("creates waiting sub-stage with default detail count", func(t *testing.T) {
		var created *models.Contest
		contestRepo := &fakeContestRepo{
			GetByIDFunc: func(ctx context.Context, id int) (*models.Contest, error) {
				return root, nil
			},
			CreateFunc: func(ctx context.Context, exec repositories.SQLExecutor, contest *models.Contest) error {
				contest.ID = 42
				created = contest
				return nil
			},
		}
		svc := newStageFixture(contestRepo, &fakeTeamRepo{}, &fakeAssignmentRepo{})

		subStage, err := svc.CreateSubStage(context.Background(), 1, CreateSubStageInput{
			Name:             "play-off",
			Mode:             models.ModeElimination,
			AdvancementCount: 1,
		})
		assert.NoError(t, err)
		assert.Equal(t, created, subStage)
		assert.Equal(t, 42, subStage.ID)
		assert.Equal(t, models.StatusWaitingSchedule, subStage.Status)
		assert.Equal(t, 1, *subStage.ParentID)
		assert.Equal(t, 1, subStage.DetailCount)
	})
}

func TestCanFinishRoot(t *testing.T) {
	newFixture := func(poolIDs, busyIDs []int, subStages []*models.Contest) StageService {
		contestRepo := &fakeContestRepo{
			ListSubStagesFunc: func(ctx context.Context, rootID int) ([]*models.Contest, error) {
				return subStages, nil
			},
		}
		teamRepo := &fakeTeamRepo{
			ListByRootContestFunc: func(ctx context.Context, rootID int) ([]*models.Team, error) {
				return teamPtrs(poolIDs...), nil
			},
		}
		assignmentRepo := &fakeAssignmentRepo{
			ListActiveTeamIDsByRootFunc: func(ctx context.Context, rootID int) ([]int, error) {
				return busyIDs, nil
			},
		}
		return newStageFixture(contestRepo, teamRepo, assignmentRepo)
	}

	t.Run("pool still holds several teams", func(t *testing.T) {
		svc := newFixture([]int{1, 2, 3}, nil, nil)
		ok, err := svc.CanFinishRoot(context.Background(), 1)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unfinished sub-stage blocks the root", func(t *testing.T) {
		svc := newFixture([]int{1, 2, 3}, []int{2, 3}, []*models.Contest{
			{ID: 5, Status: models.StatusFinished},
			{ID: 6, Status: models.StatusOngoing},
		})
		ok, err := svc.CanFinishRoot(context.Background(), 1)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("single champion left and all sub-stages finished", func(t *testing.T) {
		svc := newFixture([]int{1, 2, 3}, []int{2, 3}, []*models.Contest{
			{ID: 5, Status: models.StatusFinished},
			{ID: 6, Status: models.StatusFinished},
		})
		ok, err := svc.CanFinishRoot(context.Background(), 1)
		assert.NoError(t, err)
		assert.True(t, ok)
	})
}

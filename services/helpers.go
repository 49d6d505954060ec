package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/courtclub/competition-system/models"
	"github.com/courtclub/competition-system/repositories"
)

func isValidStatusTransition(current, next models.ContestStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.ContestStatus][]models.ContestStatus{
		models.StatusRecruiting:      {models.StatusWaitingSchedule},
		models.StatusWaitingSchedule: {models.StatusLineupPending, models.StatusOngoing},
		models.StatusLineupPending:   {models.StatusOngoing},
		models.StatusOngoing:         {models.StatusFinished},
		models.StatusFinished:        {},
	}
	for _, allowed := range allowedTransitions[current] {
		if next == allowed {
			return true
		}
	}
	return false
}

// ContestRoom — имя WebSocket-комнаты соревнования; им же пользуется
// обработчик подключения.
func ContestRoom(contestID int) string {
	return "contest_" + strconv.Itoa(contestID)
}

func isValidMode(mode models.ContestMode) bool {
	return mode == models.ModeRoundRobin || mode == models.ModeElimination
}

// mapContestRepoError переводит ошибку репозитория в сервисную.
func mapContestRepoError(err error) error {
	if errors.Is(err, repositories.ErrContestNotFound) {
		return ErrContestNotFound
	}
	return err
}

// runInTx выполняет fn внутри транзакции с откатом при ошибке или панике.
// Судьбу транзакции решает defer по итоговому txErr.
func runInTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (txErr error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("Error during rollback: %v. Original error: %v", rbErr, txErr)
				txErr = fmt.Errorf("transaction processing error: %w (rollback also failed: %v)", txErr, rbErr)
			}
		} else {
			if cErr := tx.Commit(); cErr != nil {
				txErr = fmt.Errorf("failed to commit transaction: %w", cErr)
			}
		}
	}()

	txErr = fn(tx)
	return txErr
}

func matchesToValues(slice []*models.Match) []models.Match {
	if slice == nil {
		return []models.Match{}
	}
	result := make([]models.Match, len(slice))
	for i, ptr := range slice {
		if ptr != nil {
			result[i] = *ptr
		}
	}
	return result
}

func detailsToValues(slice []*models.MatchDetail) []models.MatchDetail {
	if slice == nil {
		return []models.MatchDetail{}
	}
	result := make([]models.MatchDetail, len(slice))
	for i, ptr := range slice {
		if ptr != nil {
			result[i] = *ptr
		}
	}
	return result
}

func teamsToValues(slice []*models.Team) []models.Team {
	if slice == nil {
		return []models.Team{}
	}
	result := make([]models.Team, len(slice))
	for i, ptr := range slice {
		if ptr != nil {
			result[i] = *ptr
		}
	}
	return result
}

func matchIDs(matches []*models.Match) []int {
	ids := make([]int, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	return ids
}

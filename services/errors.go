package services

import (
	"errors"
	"fmt"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed        = errors.New("validation failed")
	ErrContestNameRequired     = errors.New("contest name is required")
	ErrContestInvalidMode      = errors.New("invalid contest mode")
	ErrContestInvalidStatus    = errors.New("invalid contest status provided")
	ErrContestStatusTransition = errors.New("invalid contest status transition")
	ErrContestInvalidQuota     = errors.New("advancement count must be positive")
	ErrContestNotSubStage      = errors.New("contest is not a sub-stage")
	ErrContestNotRoot          = errors.New("contest is not a root contest")
	ErrScheduleAlreadyExists   = errors.New("contest already has a schedule")
	ErrRootNotFinishable       = errors.New("root contest cannot be finished yet")
	ErrCourtBusy               = errors.New("court is already booked for this time")
	ErrBookingInvalidInterval  = errors.New("booking end must be after start")
	ErrPasswordTooShort        = errors.New("password is too short")

	// Идемпотентность и целостность турнирной логики
	ErrAlreadyFinished     = errors.New("contest is already finished")
	ErrTeamAlreadyAssigned = errors.New("team is already assigned to an unfinished sub-stage")
	ErrMatchLocked         = errors.New("match already has a winner and is locked")
	ErrMatchMissingTeams   = errors.New("match does not have both teams assigned")
	ErrDetailOverflow      = errors.New("match already has all details recorded")

	// Ошибки, специфичные для сущностей
	ErrContestNotFound = errors.New("contest not found")
	ErrTeamNotFound    = errors.New("team not found")
	ErrMatchNotFound   = errors.New("match not found")
	ErrCourtNotFound   = errors.New("court not found")
	ErrUserNotFound    = errors.New("user not found")

	// Конфликты
	ErrTeamNameConflict = errors.New("team name is already in use")

	// Аутентификация
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")
)

// IncompleteMatchesError возвращается при попытке завершить соревнование с
// недоигранными матчами. Список id отдаётся вызывающему, чтобы UI показал,
// что именно осталось доиграть.
type IncompleteMatchesError struct {
	MatchIDs []int
}

func (e *IncompleteMatchesError) Error() string {
	return fmt.Sprintf("contest has %d matches without a result: %v", len(e.MatchIDs), e.MatchIDs)
}

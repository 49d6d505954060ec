package brackets

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/courtclub/competition-system/models"
)

// PlannedMatch — заготовка матча, которую генератор отдаёт сервису расписания.
// Матчи связаны между собой строковыми UID до сохранения; сервис при записи в
// БД разрешает SourceMatch*UID в реальные next_match_id/winner_to_slot.
type PlannedMatch struct {
	UID          string
	Round        int
	OrderInRound int
	MatchType    models.MatchType

	Team1ID *int
	Team2ID *int

	SourceMatch1UID *string
	SourceMatch2UID *string

	IsBye     bool
	ByeTeamID *int
}

type GenerateParams struct {
	Contest *models.Contest
	Teams   []models.Team
}

type ScheduleGenerator interface {
	Generate(params GenerateParams) ([]*PlannedMatch, error)

	GetName() string
}

var ErrNotEnoughTeams = errors.New("not enough teams to generate a schedule (minimum 2)")

// ForMode возвращает генератор для режима соревнования.
func ForMode(mode models.ContestMode) (ScheduleGenerator, error) {
	switch mode {
	case models.ModeRoundRobin:
		return NewRoundRobinGenerator(), nil
	case models.ModeElimination:
		return NewSingleEliminationGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported contest mode %q", mode)
	}
}

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() ScheduleGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// Generate создаёт матчи «каждый с каждым» в один круг. Все пары лежат в
// одном концептуальном раунде; порядок фиксирован порядком команд.
func (g *RoundRobinGenerator) Generate(params GenerateParams) ([]*PlannedMatch, error) {
	teams := params.Teams
	if len(teams) < 2 {
		return nil, fmt.Errorf("RoundRobinGenerator: %w (found %d)", ErrNotEnoughTeams, len(teams))
	}

	matches := make([]*PlannedMatch, 0, len(teams)*(len(teams)-1)/2)
	matchOrder := 0

	for i := 0; i < len(teams); i++ {
		for j := i + 1; j < len(teams); j++ {
			t1 := teams[i].ID
			t2 := teams[j].ID
			matchOrder++
			matches = append(matches, &PlannedMatch{
				UID:          fmt.Sprintf("C%d_RRM%d", params.Contest.ID, matchOrder),
				Round:        1,
				OrderInRound: matchOrder,
				MatchType:    models.MatchTypeRegular,
				Team1ID:      &t1,
				Team2ID:      &t2,
			})
		}
	}

	return matches, nil
}

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() ScheduleGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

type seedNode struct {
	teamID           *int
	sourceMatchUID   *string
	isByePlaceholder bool
}

// Generate строит полную сетку одиночного выбывания. Размер сетки — ближайшая
// сверху степень двойки; недостающие места заполняются bye, и их обладатели
// проходят в следующий раунд без матча в БД. Матчи последнего раунда и
// предпоследнего помечаются типами final/semi_final — на них опирается логика
// матча за третье место.
func (g *SingleEliminationGenerator) Generate(params GenerateParams) ([]*PlannedMatch, error) {
	teams := params.Teams
	n := len(teams)
	if n < 2 {
		return nil, fmt.Errorf("SingleEliminationGenerator: %w (found %d)", ErrNotEnoughTeams, n)
	}

	numRounds := int(math.Ceil(math.Log2(float64(n))))
	bracketSize := 1 << uint(numRounds)

	seeds := make([]*seedNode, bracketSize)
	for i := 0; i < n; i++ {
		id := teams[i].ID
		seeds[i] = &seedNode{teamID: &id}
	}
	for i := n; i < bracketSize; i++ {
		seeds[i] = &seedNode{isByePlaceholder: true}
	}

	// Зеркальная рассадка: j-я пара — seeds[j] против seeds[bracketSize-1-j].
	// Все bye достаются верхним номерам и никогда не встречаются между собой.
	current := make([]*seedNode, 0, bracketSize)
	for j := 0; j < bracketSize/2; j++ {
		current = append(current, seeds[j], seeds[bracketSize-1-j])
	}

	all := make([]*PlannedMatch, 0, bracketSize-1)

	for r := 1; r <= numRounds; r++ {
		next := make([]*seedNode, 0, len(current)/2)
		matchesInRound := 0

		for i := 0; i < len(current); i += 2 {
			n1 := current[i]
			n2 := current[i+1]

			uid := fmt.Sprintf("R%dM%d", r, matchesInRound+1)
			pm := &PlannedMatch{
				UID:          uid,
				Round:        r,
				OrderInRound: matchesInRound + 1,
				MatchType:    matchTypeForRound(r, numRounds),
			}

			if n1.teamID != nil {
				pm.Team1ID = n1.teamID
			} else if n1.sourceMatchUID != nil {
				pm.SourceMatch1UID = n1.sourceMatchUID
			}
			if n2.teamID != nil {
				pm.Team2ID = n2.teamID
			} else if n2.sourceMatchUID != nil {
				pm.SourceMatch2UID = n2.sourceMatchUID
			}

			switch {
			case n1.teamID != nil && n2.isByePlaceholder:
				pm.IsBye = true
				pm.ByeTeamID = n1.teamID
				pm.Team2ID = nil
				next = append(next, &seedNode{teamID: n1.teamID})
			case n2.teamID != nil && n1.isByePlaceholder:
				pm.IsBye = true
				pm.ByeTeamID = n2.teamID
				pm.Team1ID = n2.teamID
				pm.Team2ID = nil
				next = append(next, &seedNode{teamID: n2.teamID})
			case n1.isByePlaceholder && n2.isByePlaceholder:
				return nil, fmt.Errorf("internal error: two byes paired in round %d", r)
			default:
				uidCopy := uid
				next = append(next, &seedNode{sourceMatchUID: &uidCopy})
			}

			all = append(all, pm)
			matchesInRound++
		}
		current = next

		if len(current) == 0 && r < numRounds {
			return nil, fmt.Errorf("internal error: no nodes left for round %d of %d", r+1, numRounds)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Round != all[j].Round {
			return all[i].Round < all[j].Round
		}
		return all[i].OrderInRound < all[j].OrderInRound
	})

	return all, nil
}

func matchTypeForRound(round, numRounds int) models.MatchType {
	switch round {
	case numRounds:
		return models.MatchTypeFinal
	case numRounds - 1:
		return models.MatchTypeSemiFinal
	default:
		return models.MatchTypeRegular
	}
}

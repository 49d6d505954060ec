package brackets

import (
	"sort"

	"github.com/courtclub/competition-system/models"
)

// RoundRobinRanker строит итоговую таблицу кругового турнира. Все показатели
// (победы, выигранные партии) выводятся из матчей и партий заново при каждом
// вызове — ничего не хранится и не кэшируется.
type RoundRobinRanker struct{}

func NewRoundRobinRanker() *RoundRobinRanker {
	return &RoundRobinRanker{}
}

// RoundRobinResult — результат ранжирования. AmbiguousGroups перечисляет группы
// команд, в которых круговая зависимость побед (A>B, B>C, C>A) заставила
// отступить к подсчёту выигранных партий; вызывающая сторона логирует их.
type RoundRobinResult struct {
	Standings       []models.TeamStanding
	AmbiguousGroups [][]int
}

// Rank возвращает команды от первого места к последнему.
//
// Порядок разрешения равенства по победам:
//   - группа из одной команды остаётся как есть;
//   - из двух: личная встреча, при её отсутствии (или ничьей по партиям) —
//     выигранные партии;
//   - из трёх и более: если граф личных встреч внутри группы ацикличен —
//     победы внутри группы, затем выигранные партии; если найден цикл —
//     только выигранные партии (личные встречи в цикле ничего не значат).
//
// Последний разделитель всегда — меньший id команды, чтобы результат был
// детерминированным при повторных вызовах.
func (r *RoundRobinRanker) Rank(teams []models.Team, matches []models.Match, details []models.MatchDetail) RoundRobinResult {
	wins := make(map[int]int, len(teams))
	gamesWon := make(map[int]int, len(teams))
	for _, t := range teams {
		wins[t.ID] = 0
		gamesWon[t.ID] = 0
	}

	matchByID := make(map[int]*models.Match, len(matches))
	for i := range matches {
		matchByID[matches[i].ID] = &matches[i]
	}

	for _, d := range details {
		if _, ok := gamesWon[d.WinnerID]; ok {
			gamesWon[d.WinnerID]++
		}
	}
	for i := range matches {
		m := &matches[i]
		if m.WinnerID != nil {
			if _, ok := wins[*m.WinnerID]; ok {
				wins[*m.WinnerID]++
			}
		}
	}

	// beats[a][b] == true, если a выиграл личную встречу у b. Матч без
	// победителя (не доигран или равенство партий) ребра не даёт.
	beats := make(map[int]map[int]bool, len(teams))
	for _, t := range teams {
		beats[t.ID] = make(map[int]bool)
	}
	for i := range matches {
		m := &matches[i]
		if m.WinnerID == nil || !m.HasBothTeams() {
			continue
		}
		loserID := *m.Team1ID
		if loserID == *m.WinnerID {
			loserID = *m.Team2ID
		}
		if _, ok := beats[*m.WinnerID]; ok {
			beats[*m.WinnerID][loserID] = true
		}
	}

	// Группируем по числу побед, по убыванию.
	byWins := make(map[int][]models.Team)
	winValues := make([]int, 0)
	for _, t := range teams {
		w := wins[t.ID]
		if _, seen := byWins[w]; !seen {
			winValues = append(winValues, w)
		}
		byWins[w] = append(byWins[w], t)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(winValues)))

	result := RoundRobinResult{
		Standings: make([]models.TeamStanding, 0, len(teams)),
	}

	for _, w := range winValues {
		group := byWins[w]
		switch {
		case len(group) == 1:
			// ничего не решаем
		case len(group) == 2:
			r.sortPair(group, beats, gamesWon)
		default:
			if hasCycle(group, beats) {
				ids := make([]int, len(group))
				for i, t := range group {
					ids[i] = t.ID
				}
				sort.Ints(ids)
				result.AmbiguousGroups = append(result.AmbiguousGroups, ids)
				sortByGamesWon(group, gamesWon)
			} else {
				r.sortAcyclicGroup(group, beats, gamesWon)
			}
		}
		for _, t := range group {
			result.Standings = append(result.Standings, models.TeamStanding{
				Team:     t,
				Wins:     wins[t.ID],
				GamesWon: gamesWon[t.ID],
			})
		}
	}

	for i := range result.Standings {
		result.Standings[i].Rank = i + 1
	}
	return result
}

// sortPair решает равенство двух команд: личная встреча, иначе партии.
func (r *RoundRobinRanker) sortPair(group []models.Team, beats map[int]map[int]bool, gamesWon map[int]int) {
	a, b := group[0], group[1]
	switch {
	case beats[a.ID][b.ID]:
		// уже в нужном порядке
	case beats[b.ID][a.ID]:
		group[0], group[1] = b, a
	default:
		sortByGamesWon(group, gamesWon)
	}
}

// sortAcyclicGroup упорядочивает группу из трёх и более команд без цикла:
// победы внутри группы, затем выигранные партии, затем id.
func (r *RoundRobinRanker) sortAcyclicGroup(group []models.Team, beats map[int]map[int]bool, gamesWon map[int]int) {
	innerWins := make(map[int]int, len(group))
	for _, t := range group {
		for _, other := range group {
			if t.ID != other.ID && beats[t.ID][other.ID] {
				innerWins[t.ID]++
			}
		}
	}
	sort.SliceStable(group, func(i, j int) bool {
		if innerWins[group[i].ID] != innerWins[group[j].ID] {
			return innerWins[group[i].ID] > innerWins[group[j].ID]
		}
		if gamesWon[group[i].ID] != gamesWon[group[j].ID] {
			return gamesWon[group[i].ID] > gamesWon[group[j].ID]
		}
		return group[i].ID < group[j].ID
	})
}

func sortByGamesWon(group []models.Team, gamesWon map[int]int) {
	sort.SliceStable(group, func(i, j int) bool {
		if gamesWon[group[i].ID] != gamesWon[group[j].ID] {
			return gamesWon[group[i].ID] > gamesWon[group[j].ID]
		}
		return group[i].ID < group[j].ID
	})
}

// hasCycle ищет цикл в подграфе личных встреч, наведённом на команды группы.
// Классический DFS с рекурсивным стеком; граф конечный и маленький, глубины
// рекурсии хватает всегда.
func hasCycle(group []models.Team, beats map[int]map[int]bool) bool {
	inGroup := make(map[int]bool, len(group))
	for _, t := range group {
		inGroup[t.ID] = true
	}

	const (
		white = 0 // не посещена
		gray  = 1 // в стеке рекурсии
		black = 2 // обработана
	)
	color := make(map[int]int, len(group))

	var visit func(id int) bool
	visit = func(id int) bool {
		color[id] = gray
		for next := range beats[id] {
			if !inGroup[next] {
				continue
			}
			switch color[next] {
			case gray:
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}

	for _, t := range group {
		if color[t.ID] == white && visit(t.ID) {
			return true
		}
	}
	return false
}

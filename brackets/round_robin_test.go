package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/courtclub/competition-system/models"
)

func rrTeams(ids ...int) []models.Team {
	teams := make([]models.Team, 0, len(ids))
	for _, id := range ids {
		teams = append(teams, models.Team{ID: id, Name: "team"})
	}
	return teams
}

func rrMatch(id, team1, team2, winner int) models.Match {
	m := models.Match{ID: id, Team1ID: &team1, Team2ID: &team2}
	if winner != 0 {
		m.WinnerID = &winner
	}
	return m
}

func rrDetails(matchID int, winners ...int) []models.MatchDetail {
	details := make([]models.MatchDetail, 0, len(winners))
	for i, w := range winners {
		details = append(details, models.MatchDetail{MatchID: matchID, Sequence: i + 1, WinnerID: w})
	}
	return details
}

func standingOrder(result RoundRobinResult) []int {
	order := make([]int, 0, len(result.Standings))
	for _, st := range result.Standings {
		order = append(order, st.Team.ID)
	}
	return order
}

func TestRank_DistinctWins(t *testing.T) {
	teams := rrTeams(1, 2, 3, 4)
	matches := []models.Match{
		rrMatch(10, 1, 2, 1),
		rrMatch(11, 1, 3, 1),
		rrMatch(12, 1, 4, 1),
		rrMatch(13, 2, 3, 2),
		rrMatch(14, 2, 4, 2),
		rrMatch(15, 3, 4, 3),
	}

	result := NewRoundRobinRanker().Rank(teams, matches, nil)

	assert.Equal(t, []int{1, 2, 3, 4}, standingOrder(result))
	assert.Empty(t, result.AmbiguousGroups)
	assert.Equal(t, 3, result.Standings[0].Wins)
	assert.Equal(t, 1, result.Standings[0].Rank)
	assert.Equal(t, 4, result.Standings[3].Rank)
}

func TestRank_CircularTieFallsBackToGamesWon(t *testing.T) {
	teams := rrTeams(1, 2, 3)
	matches := []models.Match{
		rrMatch(10, 1, 2, 1),
		rrMatch(11, 2, 3, 2),
		rrMatch(12, 3, 1, 3),
	}
	// партии: 1 выиграла 5, 2 — 4, 3 — 3
	details := append(rrDetails(10, 1, 1, 2), rrDetails(11, 2, 2, 2, 3)...)
	details = append(details, rrDetails(12, 3, 1, 3, 1, 1)...)

	result := NewRoundRobinRanker().Rank(teams, matches, details)

	assert.Equal(t, []int{1, 2, 3}, standingOrder(result))
	assert.Equal(t, [][]int{{1, 2, 3}}, result.AmbiguousGroups)
	assert.Equal(t, 5, result.Standings[0].GamesWon)
	assert.Equal(t, 4, result.Standings[1].GamesWon)
	assert.Equal(t, 3, result.Standings[2].GamesWon)
}

func TestRank_PairTieResolvedByHeadToHead(t *testing.T) {
	teams := rrTeams(1, 2, 3)
	// 1 и 2 по одной победе, личная встреча за 2
	matches := []models.Match{
		rrMatch(10, 1, 3, 1),
		rrMatch(11, 2, 1, 2),
	}

	result := NewRoundRobinRanker().Rank(teams, matches, nil)

	assert.Equal(t, []int{2, 1, 3}, standingOrder(result))
	assert.Empty(t, result.AmbiguousGroups)
}

func TestRank_PairTieWithoutHeadToHeadUsesGamesWon(t *testing.T) {
	teams := rrTeams(1, 2, 3, 4)
	// 1 и 2 по одной победе, между собой не играли (матч не доигран)
	matches := []models.Match{
		rrMatch(10, 1, 3, 1),
		rrMatch(11, 2, 4, 2),
		rrMatch(12, 1, 2, 0),
	}
	details := append(rrDetails(10, 1, 1), rrDetails(11, 2, 2, 2)...)

	result := NewRoundRobinRanker().Rank(teams, matches, details)

	// у 2 больше выигранных партий
	assert.Equal(t, []int{2, 1}, standingOrder(result)[:2])
}

func TestRank_AcyclicGroupUsesInnerWins(t *testing.T) {
	teams := rrTeams(1, 2, 3, 4, 5)
	matches := []models.Match{
		rrMatch(10, 1, 2, 1),
		rrMatch(11, 1, 3, 1),
		rrMatch(12, 2, 3, 2),
		rrMatch(13, 2, 4, 2),
		rrMatch(14, 3, 4, 3),
		rrMatch(15, 3, 5, 3),
		rrMatch(16, 4, 5, 4),
		rrMatch(17, 5, 1, 5),
	}

	result := NewRoundRobinRanker().Rank(teams, matches, nil)

	// группа {1,2,3} по две победы, внутри ацикличная: 1 > 2 > 3
	assert.Equal(t, []int{1, 2, 3, 4, 5}, standingOrder(result))
	assert.Empty(t, result.AmbiguousGroups)
}

func TestRank_DeterministicForIdenticalRecords(t *testing.T) {
	teams := rrTeams(3, 1, 2)
	// ни одного сыгранного матча: все показатели нулевые
	matches := []models.Match{
		rrMatch(10, 1, 2, 0),
		rrMatch(11, 2, 3, 0),
		rrMatch(12, 3, 1, 0),
	}

	ranker := NewRoundRobinRanker()
	first := NewRoundRobinRanker().Rank(teams, matches, nil)
	for i := 0; i < 5; i++ {
		again := ranker.Rank(teams, matches, nil)
		assert.Equal(t, standingOrder(first), standingOrder(again))
	}
	// последний разделитель — меньший id
	assert.Equal(t, []int{1, 2, 3}, standingOrder(first))
}

func TestRank_TeamWithoutMatches(t *testing.T) {
	teams := rrTeams(1, 2, 3)
	matches := []models.Match{rrMatch(10, 1, 2, 1)}

	result := NewRoundRobinRanker().Rank(teams, matches, nil)

	assert.Len(t, result.Standings, 3)
	assert.Equal(t, 1, standingOrder(result)[0])
	// 2 и 3 без побед и партий — по id
	assert.Equal(t, []int{2, 3}, standingOrder(result)[1:])
}

func TestHasCycle(t *testing.T) {
	group := rrTeams(1, 2, 3)

	cyclic := map[int]map[int]bool{
		1: {2: true},
		2: {3: true},
		3: {1: true},
	}
	assert.True(t, hasCycle(group, cyclic))

	acyclic := map[int]map[int]bool{
		1: {2: true, 3: true},
		2: {3: true},
		3: {},
	}
	assert.False(t, hasCycle(group, acyclic))

	// ребро к команде вне группы цикла не образует
	outside := map[int]map[int]bool{
		1: {2: true},
		2: {9: true},
		9: {1: true},
	}
	assert.False(t, hasCycle(group, outside))
}

package brackets

import (
	"errors"
	"fmt"
	"sort"

	"github.com/courtclub/competition-system/models"
)

var (
	ErrMatchNotFound      = errors.New("bracket match not found")
	ErrMatchLocked        = errors.New("match already has a winner and is locked")
	ErrMatchMissingTeams  = errors.New("match does not have both teams assigned")
	ErrWinnerNotInMatch   = errors.New("winner is not one of the match teams")
	ErrSlotOccupied       = errors.New("match slot is already occupied")
	ErrTeamAlreadyInRound = errors.New("team is already assigned to another match in this round")
	ErrSelfPairing        = errors.New("team cannot play against itself")
	ErrInvalidSlot        = errors.New("slot must be 1 or 2")
	ErrFinalNotCompleted  = errors.New("final match is not completed")
)

// MatchState — состояние матча сетки.
type MatchState string

const (
	StatePending   MatchState = "pending"   // слоты не заполнены
	StateOngoing   MatchState = "ongoing"   // обе команды на месте, победителя нет
	StateCompleted MatchState = "completed" // победитель установлен
)

func StateOf(m *models.Match) MatchState {
	switch {
	case m.WinnerID != nil:
		return StateCompleted
	case m.HasBothTeams():
		return StateOngoing
	default:
		return StatePending
	}
}

// FourthPlacePolicy определяет, как делить третье и четвёртое место, когда
// матча за третье место нет. Исходная система считала это по-разному в разных
// местах, поэтому правило сделано явным и настраиваемым.
type FourthPlacePolicy string

const (
	FourthByHeadToHead FourthPlacePolicy = "head_to_head"
	FourthByMatchWins  FourthPlacePolicy = "match_wins"
)

// Bracket — сетка одиночного выбывания поверх уже загруженных матчей.
// Все операции чисто вычислительные; персистентность — забота сервисов.
// Матчи, добавленные через AddMatch до сохранения, получают отрицательные
// синтетические id, чтобы их можно было адресовать до вставки в БД.
type Bracket struct {
	matches []*models.Match
	byID    map[int]*models.Match
	localID int
}

func NewBracket(matches []models.Match) *Bracket {
	b := &Bracket{
		matches: make([]*models.Match, 0, len(matches)),
		byID:    make(map[int]*models.Match, len(matches)),
	}
	for i := range matches {
		m := matches[i]
		b.matches = append(b.matches, &m)
		b.byID[m.ID] = &m
	}
	b.sortMatches()
	return b
}

func (b *Bracket) sortMatches() {
	sort.SliceStable(b.matches, func(i, j int) bool {
		if b.matches[i].Round != b.matches[j].Round {
			return b.matches[i].Round < b.matches[j].Round
		}
		return b.matches[i].OrderInRound < b.matches[j].OrderInRound
	})
}

// Rounds возвращает матчи, сгруппированные по раундам в порядке сетки.
func (b *Bracket) Rounds() [][]*models.Match {
	rounds := make([][]*models.Match, 0)
	byRound := make(map[int][]*models.Match)
	order := make([]int, 0)
	for _, m := range b.matches {
		if _, ok := byRound[m.Round]; !ok {
			order = append(order, m.Round)
		}
		byRound[m.Round] = append(byRound[m.Round], m)
	}
	sort.Ints(order)
	for _, r := range order {
		rounds = append(rounds, byRound[r])
	}
	return rounds
}

func (b *Bracket) Matches() []*models.Match { return b.matches }

func (b *Bracket) Match(id int) (*models.Match, bool) {
	m, ok := b.byID[id]
	return m, ok
}

func (b *Bracket) roundMatches(round int) []*models.Match {
	out := make([]*models.Match, 0)
	for _, m := range b.matches {
		if m.Round == round {
			out = append(out, m)
		}
	}
	return out
}

// AddMatch добавляет пустой матч в конец раунда. Используется интерактивно
// при ручной сборке сетки до сохранения.
func (b *Bracket) AddMatch(round int, matchType models.MatchType) *models.Match {
	b.localID--
	m := &models.Match{
		ID:           b.localID,
		Round:        round,
		OrderInRound: len(b.roundMatches(round)) + 1,
		MatchType:    matchType,
	}
	b.matches = append(b.matches, m)
	b.byID[m.ID] = m
	b.sortMatches()
	return m
}

// AssignTeam ставит команду в слот матча раунда. Отклоняет дубль команды в
// раунде и пару команды с самой собой.
func (b *Bracket) AssignTeam(round, matchIndex, slot, teamID int) error {
	if slot != 1 && slot != 2 {
		return ErrInvalidSlot
	}
	roundMatches := b.roundMatches(round)
	if matchIndex < 0 || matchIndex >= len(roundMatches) {
		return fmt.Errorf("%w: round %d has %d matches, index %d", ErrMatchNotFound, round, len(roundMatches), matchIndex)
	}
	m := roundMatches[matchIndex]
	if m.WinnerID != nil {
		return ErrMatchLocked
	}

	for _, other := range roundMatches {
		if other == m {
			continue
		}
		if (other.Team1ID != nil && *other.Team1ID == teamID) || (other.Team2ID != nil && *other.Team2ID == teamID) {
			return fmt.Errorf("%w: team %d", ErrTeamAlreadyInRound, teamID)
		}
	}

	switch slot {
	case 1:
		if m.Team2ID != nil && *m.Team2ID == teamID {
			return ErrSelfPairing
		}
		if m.Team1ID != nil {
			return ErrSlotOccupied
		}
		m.Team1ID = &teamID
	case 2:
		if m.Team1ID != nil && *m.Team1ID == teamID {
			return ErrSelfPairing
		}
		if m.Team2ID != nil {
			return ErrSlotOccupied
		}
		m.Team2ID = &teamID
	}
	return nil
}

// RecordResult устанавливает победителя матча и продвигает его ровно на один
// переход вперёд — в слот следующего матча, указанный NextMatchID/WinnerToSlot.
// Возвращает сам матч и следующий матч, если слот был заполнен.
func (b *Bracket) RecordResult(matchID, winnerID int) (*models.Match, *models.Match, error) {
	m, ok := b.byID[matchID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: id %d", ErrMatchNotFound, matchID)
	}
	if m.WinnerID != nil {
		return nil, nil, ErrMatchLocked
	}
	if !m.HasBothTeams() {
		return nil, nil, ErrMatchMissingTeams
	}
	if *m.Team1ID != winnerID && *m.Team2ID != winnerID {
		return nil, nil, fmt.Errorf("%w: team %d in match %d", ErrWinnerNotInMatch, winnerID, matchID)
	}

	m.WinnerID = &winnerID

	if m.NextMatchID == nil || m.WinnerToSlot == nil {
		return m, nil, nil
	}
	next, ok := b.byID[*m.NextMatchID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: next match %d of match %d", ErrMatchNotFound, *m.NextMatchID, matchID)
	}
	if next.WinnerID != nil {
		return nil, nil, fmt.Errorf("cannot advance into match %d: %w", next.ID, ErrMatchLocked)
	}
	w := winnerID
	switch *m.WinnerToSlot {
	case 1:
		next.Team1ID = &w
	case 2:
		next.Team2ID = &w
	default:
		return nil, nil, fmt.Errorf("%w: match %d advances to slot %d", ErrInvalidSlot, matchID, *m.WinnerToSlot)
	}
	return m, next, nil
}

// RemoveMatch удаляет матч без победителя из сетки.
func (b *Bracket) RemoveMatch(matchID int) error {
	m, ok := b.byID[matchID]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrMatchNotFound, matchID)
	}
	if m.WinnerID != nil {
		return ErrMatchLocked
	}
	delete(b.byID, matchID)
	for i, cur := range b.matches {
		if cur == m {
			b.matches = append(b.matches[:i], b.matches[i+1:]...)
			break
		}
	}
	return nil
}

func (b *Bracket) finalMatch() *models.Match {
	for _, m := range b.matches {
		if m.MatchType == models.MatchTypeFinal {
			return m
		}
	}
	// Запасной вариант для сеток без размеченных типов: единственный матч
	// последнего раунда.
	rounds := b.Rounds()
	if len(rounds) == 0 {
		return nil
	}
	last := rounds[len(rounds)-1]
	if len(last) == 1 && last[0].MatchType != models.MatchTypeThirdPlace {
		return last[0]
	}
	return nil
}

func (b *Bracket) thirdPlaceMatch() *models.Match {
	for _, m := range b.matches {
		if m.MatchType == models.MatchTypeThirdPlace {
			return m
		}
	}
	return nil
}

func (b *Bracket) semifinalMatches() []*models.Match {
	typed := make([]*models.Match, 0, 2)
	for _, m := range b.matches {
		if m.MatchType == models.MatchTypeSemiFinal {
			typed = append(typed, m)
		}
	}
	if len(typed) > 0 {
		return typed
	}
	final := b.finalMatch()
	if final == nil {
		return nil
	}
	out := make([]*models.Match, 0, 2)
	for _, m := range b.roundMatches(final.Round - 1) {
		if m.MatchType != models.MatchTypeThirdPlace {
			out = append(out, m)
		}
	}
	return out
}

// SemifinalLosers возвращает проигравших в полуфиналах (только завершённых).
func (b *Bracket) SemifinalLosers() []int {
	losers := make([]int, 0, 2)
	for _, m := range b.semifinalMatches() {
		if m.WinnerID == nil || !m.HasBothTeams() {
			continue
		}
		loser := *m.Team1ID
		if loser == *m.WinnerID {
			loser = *m.Team2ID
		}
		losers = append(losers, loser)
	}
	return losers
}

// NeedsThirdPlaceMatch сообщает, что сетке пора создать матч за третье место:
// квота прохождения покрывает третье место, финал один, оба полуфинала
// завершены, а матча за третье место ещё нет.
func (b *Bracket) NeedsThirdPlaceMatch(advancementCount int) bool {
	if advancementCount < 3 {
		return false
	}
	final := b.finalMatch()
	if final == nil {
		return false
	}
	if len(b.roundMatches(final.Round)) != 1 {
		return false
	}
	semis := b.semifinalMatches()
	if len(semis) != 2 {
		return false
	}
	for _, sm := range semis {
		if StateOf(sm) != StateCompleted {
			return false
		}
	}
	return b.thirdPlaceMatch() == nil
}

// winsByTeam — победы каждой команды в матчах этой сетки.
func (b *Bracket) winsByTeam() map[int]int {
	wins := make(map[int]int)
	for _, m := range b.matches {
		if m.WinnerID != nil {
			wins[*m.WinnerID]++
		}
	}
	return wins
}

func (b *Bracket) teamIDs() []int {
	seen := make(map[int]bool)
	ids := make([]int, 0)
	for _, m := range b.matches {
		for _, t := range []*int{m.Team1ID, m.Team2ID} {
			if t != nil && !seen[*t] {
				seen[*t] = true
				ids = append(ids, *t)
			}
		}
	}
	return ids
}

// FinalRanking строит итоговое распределение мест: чемпион, финалист, третье
// и четвёртое места, затем остальные команды по победам в сетке. Политика
// четвёртого места применяется, только когда матча за третье место не было.
func (b *Bracket) FinalRanking(advancementCount int, policy FourthPlacePolicy) ([]int, error) {
	final := b.finalMatch()
	if final == nil || final.WinnerID == nil || !final.HasBothTeams() {
		return nil, ErrFinalNotCompleted
	}

	champion := *final.WinnerID
	runnerUp := *final.Team1ID
	if runnerUp == champion {
		runnerUp = *final.Team2ID
	}

	ranking := []int{champion, runnerUp}
	placed := map[int]bool{champion: true, runnerUp: true}

	third, fourth := b.thirdAndFourth(policy)
	if third != 0 && !placed[third] {
		ranking = append(ranking, third)
		placed[third] = true
	}
	if fourth != 0 && !placed[fourth] && advancementCount >= 4 {
		ranking = append(ranking, fourth)
		placed[fourth] = true
	}

	// Остальные — по победам в сетке, затем по id, чтобы усечение и добивка
	// до advancementCount были детерминированными.
	wins := b.winsByTeam()
	rest := make([]int, 0)
	for _, id := range b.teamIDs() {
		if !placed[id] {
			rest = append(rest, id)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		if wins[rest[i]] != wins[rest[j]] {
			return wins[rest[i]] > wins[rest[j]]
		}
		return rest[i] < rest[j]
	})
	ranking = append(ranking, rest...)
	return ranking, nil
}

// thirdAndFourth возвращает команды третьего и четвёртого места (0 — места
// нет). Приоритет у сыгранного матча за третье место; без него полуфинальные
// неудачники делятся по настроенной политике.
func (b *Bracket) thirdAndFourth(policy FourthPlacePolicy) (int, int) {
	if tp := b.thirdPlaceMatch(); tp != nil && tp.WinnerID != nil && tp.HasBothTeams() {
		loser := *tp.Team1ID
		if loser == *tp.WinnerID {
			loser = *tp.Team2ID
		}
		return *tp.WinnerID, loser
	}

	losers := b.SemifinalLosers()
	switch len(losers) {
	case 0:
		return 0, 0
	case 1:
		return losers[0], 0
	}

	a, c := losers[0], losers[1]
	if policy == FourthByHeadToHead {
		if winner, ok := b.headToHead(a, c); ok {
			if winner == a {
				return a, c
			}
			return c, a
		}
		// личной встречи не было — решают победы
	}
	wins := b.winsByTeam()
	if wins[a] != wins[c] {
		if wins[a] > wins[c] {
			return a, c
		}
		return c, a
	}
	if a < c {
		return a, c
	}
	return c, a
}

// headToHead ищет завершённую встречу двух команд внутри сетки.
func (b *Bracket) headToHead(teamA, teamB int) (int, bool) {
	for _, m := range b.matches {
		if m.WinnerID == nil || !m.HasBothTeams() {
			continue
		}
		if (*m.Team1ID == teamA && *m.Team2ID == teamB) || (*m.Team1ID == teamB && *m.Team2ID == teamA) {
			return *m.WinnerID, true
		}
	}
	return 0, false
}

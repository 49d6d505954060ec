package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/courtclub/competition-system/models"
)

func intPtr(v int) *int { return &v }

// fourTeamBracket: два полуфинала и финал, слоты финала пустые.
func fourTeamBracket() []models.Match {
	return []models.Match{
		{ID: 1, Team1ID: intPtr(101), Team2ID: intPtr(102), Round: 1, OrderInRound: 1,
			MatchType: models.MatchTypeSemiFinal, NextMatchID: intPtr(3), WinnerToSlot: intPtr(1)},
		{ID: 2, Team1ID: intPtr(103), Team2ID: intPtr(104), Round: 1, OrderInRound: 2,
			MatchType: models.MatchTypeSemiFinal, NextMatchID: intPtr(3), WinnerToSlot: intPtr(2)},
		{ID: 3, Round: 2, OrderInRound: 1, MatchType: models.MatchTypeFinal},
	}
}

func TestRecordResult_PropagatesWinnerOneHop(t *testing.T) {
	b := NewBracket(fourTeamBracket())

	updated, next, err := b.RecordResult(1, 101)
	assert.NoError(t, err)
	assert.Equal(t, 101, *updated.WinnerID)
	assert.Equal(t, 3, next.ID)
	assert.Equal(t, 101, *next.Team1ID)
	assert.Nil(t, next.Team2ID)

	// второй полуфинал заполняет второй слот
	_, next, err = b.RecordResult(2, 104)
	assert.NoError(t, err)
	assert.Equal(t, 104, *next.Team2ID)

	final, _ := b.Match(3)
	assert.Equal(t, StateOngoing, StateOf(final))
}

func TestRecordResult_Validation(t *testing.T) {
	tests := []struct {
		name     string
		matchID  int
		winnerID int
		prepare  func(b *Bracket)
		wantErr  error
	}{
		{
			name:    "match not found",
			matchID: 99, winnerID: 101,
			wantErr: ErrMatchNotFound,
		},
		{
			name:    "winner not in match",
			matchID: 1, winnerID: 104,
			wantErr: ErrWinnerNotInMatch,
		},
		{
			name:    "final without both teams",
			matchID: 3, winnerID: 101,
			wantErr: ErrMatchMissingTeams,
		},
		{
			name:    "locked after first result",
			matchID: 1, winnerID: 102,
			prepare: func(b *Bracket) {
				_, _, err := b.RecordResult(1, 101)
				assert.NoError(t, err)
			},
			wantErr: ErrMatchLocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBracket(fourTeamBracket())
			if tt.prepare != nil {
				tt.prepare(b)
			}
			_, _, err := b.RecordResult(tt.matchID, tt.winnerID)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAssignTeam(t *testing.T) {
	b := NewBracket([]models.Match{
		{ID: 1, Round: 1, OrderInRound: 1, Team1ID: intPtr(101)},
		{ID: 2, Round: 1, OrderInRound: 2},
	})

	assert.ErrorIs(t, b.AssignTeam(1, 0, 3, 102), ErrInvalidSlot)
	assert.ErrorIs(t, b.AssignTeam(1, 0, 1, 102), ErrSlotOccupied)
	assert.ErrorIs(t, b.AssignTeam(1, 0, 2, 101), ErrSelfPairing)
	assert.ErrorIs(t, b.AssignTeam(1, 1, 1, 101), ErrTeamAlreadyInRound)

	assert.NoError(t, b.AssignTeam(1, 0, 2, 102))
	m, _ := b.Match(1)
	assert.Equal(t, 102, *m.Team2ID)
}

func TestRemoveMatch_RejectsLocked(t *testing.T) {
	b := NewBracket(fourTeamBracket())
	_, _, err := b.RecordResult(1, 101)
	assert.NoError(t, err)

	assert.ErrorIs(t, b.RemoveMatch(1), ErrMatchLocked)
	assert.NoError(t, b.RemoveMatch(3))
	_, ok := b.Match(3)
	assert.False(t, ok)
}

func TestNeedsThirdPlaceMatch(t *testing.T) {
	completeSemis := func() *Bracket {
		b := NewBracket(fourTeamBracket())
		_, _, err := b.RecordResult(1, 101)
		assert.NoError(t, err)
		_, _, err = b.RecordResult(2, 103)
		assert.NoError(t, err)
		return b
	}

	t.Run("quota below third place", func(t *testing.T) {
		assert.False(t, completeSemis().NeedsThirdPlaceMatch(2))
	})

	t.Run("semis incomplete", func(t *testing.T) {
		b := NewBracket(fourTeamBracket())
		_, _, err := b.RecordResult(1, 101)
		assert.NoError(t, err)
		assert.False(t, b.NeedsThirdPlaceMatch(3))
	})

	t.Run("needed once both semis completed", func(t *testing.T) {
		assert.True(t, completeSemis().NeedsThirdPlaceMatch(3))
	})

	t.Run("already has third place match", func(t *testing.T) {
		b := completeSemis()
		m := b.AddMatch(2, models.MatchTypeThirdPlace)
		assert.NoError(t, b.AssignTeam(2, 1, 1, 102))
		assert.NoError(t, b.AssignTeam(2, 1, 2, 104))
		assert.False(t, b.NeedsThirdPlaceMatch(3))
		assert.Equal(t, StateOngoing, StateOf(m))
	})
}

func TestSemifinalLosers(t *testing.T) {
	b := NewBracket(fourTeamBracket())
	_, _, err := b.RecordResult(1, 101)
	assert.NoError(t, err)
	_, _, err = b.RecordResult(2, 103)
	assert.NoError(t, err)

	assert.ElementsMatch(t, []int{102, 104}, b.SemifinalLosers())
}

func TestFinalRanking_WithThirdPlaceMatch(t *testing.T) {
	matches := fourTeamBracket()
	matches = append(matches, models.Match{
		ID: 4, Round: 2, OrderInRound: 2, MatchType: models.MatchTypeThirdPlace,
	})
	b := NewBracket(matches)

	_, _, err := b.RecordResult(1, 101)
	assert.NoError(t, err)
	_, _, err = b.RecordResult(2, 103)
	assert.NoError(t, err)
	assert.NoError(t, b.AssignTeam(2, 1, 1, 102))
	assert.NoError(t, b.AssignTeam(2, 1, 2, 104))
	_, _, err = b.RecordResult(4, 104)
	assert.NoError(t, err)
	_, _, err = b.RecordResult(3, 101)
	assert.NoError(t, err)

	ranking, err := b.FinalRanking(4, FourthByHeadToHead)
	assert.NoError(t, err)
	assert.Equal(t, []int{101, 103, 104, 102}, ranking)
}

func TestFinalRanking_FourthPlacePolicies(t *testing.T) {
	// 102 выиграла личную встречу у 104, но у 104 больше побед в сетке
	build := func() *Bracket {
		matches := fourTeamBracket()
		matches = append(matches,
			models.Match{ID: 10, Team1ID: intPtr(102), Team2ID: intPtr(104), WinnerID: intPtr(102),
				Round: 1, OrderInRound: 3, MatchType: models.MatchTypeRegular},
			models.Match{ID: 11, Team1ID: intPtr(104), Team2ID: intPtr(105), WinnerID: intPtr(104),
				Round: 1, OrderInRound: 4, MatchType: models.MatchTypeRegular},
			models.Match{ID: 12, Team1ID: intPtr(104), Team2ID: intPtr(106), WinnerID: intPtr(104),
				Round: 1, OrderInRound: 5, MatchType: models.MatchTypeRegular},
		)
		b := NewBracket(matches)
		_, _, err := b.RecordResult(1, 101)
		assert.NoError(t, err)
		_, _, err = b.RecordResult(2, 103)
		assert.NoError(t, err)
		_, _, err = b.RecordResult(3, 101)
		assert.NoError(t, err)
		return b
	}

	headToHead, err := build().FinalRanking(4, FourthByHeadToHead)
	assert.NoError(t, err)
	assert.Equal(t, []int{101, 103, 102, 104}, headToHead[:4])

	matchWins, err := build().FinalRanking(4, FourthByMatchWins)
	assert.NoError(t, err)
	assert.Equal(t, []int{101, 103, 104, 102}, matchWins[:4])
}

func TestFinalRanking_RequiresCompletedFinal(t *testing.T) {
	b := NewBracket(fourTeamBracket())
	_, err := b.FinalRanking(2, FourthByHeadToHead)
	assert.ErrorIs(t, err, ErrFinalNotCompleted)
}

func TestFinalRanking_QuotaBelowFourSkipsFourth(t *testing.T) {
	b := NewBracket(fourTeamBracket())
	_, _, err := b.RecordResult(1, 101)
	assert.NoError(t, err)
	_, _, err = b.RecordResult(2, 103)
	assert.NoError(t, err)
	_, _, err = b.RecordResult(3, 103)
	assert.NoError(t, err)

	ranking, err := b.FinalRanking(3, FourthByMatchWins)
	assert.NoError(t, err)
	// третье место есть, четвёртое идёт в «остальных» по победам
	assert.Equal(t, 103, ranking[0])
	assert.Equal(t, 101, ranking[1])
	assert.Len(t, ranking, 4)
}

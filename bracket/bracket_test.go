package bracket

import (
	"fmt"
	"testing"

	"gaming-lobby-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeParticipants(n int) []models.Participant {
	out := make([]models.Participant, n)
	for i := range out {
		out[i] = models.Participant{
			ID:             uuid.NewString(),
			TournamentID:   "t1",
			ExternalUserID: fmt.Sprintf("user-%d", i),
			Status:         models.ParticipantStatusCheckedIn,
		}
	}
	return out
}

func TestGenerate_BracketShape(t *testing.T) {
	for _, size := range []int{8, 16} {
		t.Run(fmt.Sprintf("size_%d", size), func(t *testing.T) {
			participants := makeParticipants(size)
			matches, err := Generate("t1", participants)
			require.NoError(t, err)

			totalRounds := NumRounds(size)
			require.Equal(t, size-1, len(matches))

			byRound := make(map[int][]models.Match)
			for _, m := range matches {
				byRound[m.RoundNumber] = append(byRound[m.RoundNumber], m)
			}
			require.Len(t, byRound, totalRounds)

			for r := 1; r <= totalRounds; r++ {
				roundMatches := byRound[r]
				expected := size >> r
				require.Len(t, roundMatches, expected, "round %d", r)

				// Match numbering is contiguous 1..count per round
				seen := make(map[int]bool)
				for _, m := range roundMatches {
					assert.False(t, seen[m.MatchNumber], "duplicate match number %d in round %d", m.MatchNumber, r)
					seen[m.MatchNumber] = true
					assert.GreaterOrEqual(t, m.MatchNumber, 1)
					assert.LessOrEqual(t, m.MatchNumber, expected)
					assert.Equal(t, models.MatchStatusPending, m.Status)

					if r == 1 {
						require.NotNil(t, m.Participant1ID)
						require.NotNil(t, m.Participant2ID)
					} else {
						assert.Nil(t, m.Participant1ID)
						assert.Nil(t, m.Participant2ID)
					}
				}
			}
		})
	}
}

func TestGenerate_PairsInRegistrationOrder(t *testing.T) {
	participants := makeParticipants(8)
	matches, err := Generate("t1", participants)
	require.NoError(t, err)

	for _, m := range matches {
		if m.RoundNumber != 1 {
			continue
		}
		wantP1 := participants[(m.MatchNumber-1)*2].ID
		wantP2 := participants[(m.MatchNumber-1)*2+1].ID
		assert.Equal(t, wantP1, *m.Participant1ID, "match %d slot 1", m.MatchNumber)
		assert.Equal(t, wantP2, *m.Participant2ID, "match %d slot 2", m.MatchNumber)
	}
}

func TestGenerate_RejectsInvalidSizes(t *testing.T) {
	for _, size := range []int{0, 1, 2, 4, 7, 9, 15, 17, 32} {
		matches, err := Generate("t1", makeParticipants(size))
		assert.ErrorIs(t, err, ErrInvalidBracketSize, "size %d", size)
		assert.Nil(t, matches, "size %d must not produce a partial bracket", size)
	}
}

func TestNextMatchNumber(t *testing.T) {
	cases := map[int]int{1: 1, 2: 1, 3: 2, 4: 2, 5: 3, 6: 3, 7: 4, 8: 4}
	for from, want := range cases {
		assert.Equal(t, want, NextMatchNumber(from), "from match %d", from)
	}
}

func TestSlotForMatch(t *testing.T) {
	assert.Equal(t, 1, SlotForMatch(1))
	assert.Equal(t, 2, SlotForMatch(2))
	assert.Equal(t, 1, SlotForMatch(3))
	assert.Equal(t, 2, SlotForMatch(4))
}

func TestNumRounds(t *testing.T) {
	assert.Equal(t, 3, NumRounds(8))
	assert.Equal(t, 4, NumRounds(16))
}

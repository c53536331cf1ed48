// Package bracket builds single-elimination bracket skeletons and owns
// the (round, match) index math used when winners propagate forward.
package bracket

import (
	"errors"
	"math"

	"gaming-lobby-system/models"

	"github.com/google/uuid"
)

// ErrInvalidBracketSize is returned for any participant count other than 8 or 16.
var ErrInvalidBracketSize = errors.New("bracket requires exactly 8 or 16 participants")

// NumRounds returns log2(size) for a valid bracket size (3 for 8, 4 for 16).
func NumRounds(size int) int {
	return int(math.Log2(float64(size)))
}

// NextMatchNumber returns the match number in the following round that
// receives the winner of matchNumber. Matches 2k-1 and 2k feed match k.
func NextMatchNumber(matchNumber int) int {
	return (matchNumber + 1) / 2
}

// SlotForMatch returns which participant slot (1 or 2) of the next match
// the winner of matchNumber lands in: odd source match → slot 1, even → slot 2.
func SlotForMatch(matchNumber int) int {
	if matchNumber%2 != 0 {
		return 1
	}
	return 2
}

// Generate builds the full match skeleton for a single-elimination bracket.
// Participants must already be filtered to checked-in and ordered by
// registration time; round 1 pairs them in that order, (p0,p1)(p2,p3)…
// Later rounds are created with empty participant slots.
//
// No side effects: the caller persists the returned matches and flips the
// tournament to in_progress in one transaction.
func Generate(tournamentID string, participants []models.Participant) ([]models.Match, error) {
	n := len(participants)
	if n != 8 && n != 16 {
		return nil, ErrInvalidBracketSize
	}

	totalRounds := NumRounds(n)
	matches := make([]models.Match, 0, n-1)

	for r := 1; r <= totalRounds; r++ {
		matchesInRound := n >> r // n / 2^r
		for k := 1; k <= matchesInRound; k++ {
			m := models.Match{
				ID:           uuid.NewString(),
				TournamentID: tournamentID,
				RoundNumber:  r,
				MatchNumber:  k,
				Status:       models.MatchStatusPending,
			}
			if r == 1 {
				p1 := participants[(k-1)*2].ID
				p2 := participants[(k-1)*2+1].ID
				m.Participant1ID = &p1
				m.Participant2ID = &p2
			}
			matches = append(matches, m)
		}
	}

	return matches, nil
}

// Package rating computes ELO rating changes.
package rating

import "math"

// Expected is the probability that a player rated a beats a player rated b.
func Expected(a, b int) float64 {
	return 1 / (1 + math.Pow(10, float64(b-a)/400))
}

// EloDelta returns the rating change for the winner (positive) and loser (negative).
// Deltas round half away from zero, so winnerDelta == -loserDelta for every input.
// A win always moves ratings by at least one point.
func EloDelta(winnerRating, loserRating, k int) (winnerDelta, loserDelta int) {
	if k <= 0 {
		return 0, 0
	}
	expectedWinner := Expected(winnerRating, loserRating)
	expectedLoser := 1 - expectedWinner

	winnerDelta = int(math.Round(float64(k) * (1 - expectedWinner)))
	loserDelta = int(math.Round(float64(k) * (0 - expectedLoser)))
	if winnerDelta < 1 {
		winnerDelta = 1
	}
	if loserDelta > -1 {
		loserDelta = -1
	}
	return winnerDelta, loserDelta
}

// Package scoring turns answers into points and accuracy figures.
package scoring

import (
	"quiz-battle-arena/internal/domain"

	"github.com/shopspring/decimal"
)

// AnswerPoints returns 0 for a wrong answer, otherwise base points plus the first
// speed tier the answer fits into. Negative times count as instant.
func AnswerPoints(correct bool, timeTaken float64, rules domain.Rules) int {
	if !correct {
		return 0
	}
	if timeTaken < 0 {
		timeTaken = 0
	}
	bonus := 0
	for _, tier := range rules.SpeedTiers() {
		if timeTaken <= tier.MaxSeconds {
			bonus = tier.Bonus
			break
		}
	}
	if rules.SpeedBonusMax >= 0 && bonus > rules.SpeedBonusMax {
		bonus = rules.SpeedBonusMax
	}
	return rules.BasePoints + bonus
}

// Accuracy is correct/total as a percentage rounded to one decimal place.
func Accuracy(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(int64(correct)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(1)
	f, _ := pct.Float64()
	return f
}

// Tally sums score and counts correct answers over a player's entries.
func Tally(entries []domain.ProgressEntry) (score, correct int) {
	for _, e := range entries {
		score += e.Points
		if e.Correct {
			correct++
		}
	}
	return score, correct
}

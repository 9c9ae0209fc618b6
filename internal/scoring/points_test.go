package scoring

import (
	"testing"

	"quiz-battle-arena/internal/domain"
)

func TestAnswerPoints(t *testing.T) {
	rules := domain.DefaultRules()
	tests := []struct {
		name    string
		correct bool
		seconds float64
		want    int
	}{
		{"fast correct", true, 1.5, 15},
		{"exactly two seconds", true, 2, 15},
		{"under five", true, 4.9, 13},
		{"under ten", true, 10, 11},
		{"slow correct", true, 42, 10},
		{"negative time clamps", true, -3, 15},
		{"wrong answer", false, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AnswerPoints(tt.correct, tt.seconds, rules); got != tt.want {
				t.Fatalf("AnswerPoints(%v, %v) = %d, want %d", tt.correct, tt.seconds, got, tt.want)
			}
		})
	}
}

func TestAnswerPointsSortsTiersAndCapsBonus(t *testing.T) {
	rules := domain.DefaultRules().WithSpeedTiers([]domain.SpeedTier{
		{MaxSeconds: 10, Bonus: 1},
		{MaxSeconds: 1, Bonus: 9},
	})
	rules.SpeedBonusMax = 4

	if got := AnswerPoints(true, 0.5, rules); got != 14 {
		t.Fatalf("expected capped bonus to give 14, got %d", got)
	}
	if got := AnswerPoints(true, 3, rules); got != 11 {
		t.Fatalf("expected second tier to give 11, got %d", got)
	}
}

func TestAccuracy(t *testing.T) {
	if got := Accuracy(0, 0); got != 0 {
		t.Fatalf("expected 0 for no answers, got %v", got)
	}
	if got := Accuracy(2, 3); got != 66.7 {
		t.Fatalf("expected 66.7, got %v", got)
	}
	if got := Accuracy(1, 8); got != 12.5 {
		t.Fatalf("expected 12.5, got %v", got)
	}
	if got := Accuracy(10, 10); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
}

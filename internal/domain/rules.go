package domain

import (
	"sort"
	"time"
)

// SpeedTier grants Bonus when an answer arrives within MaxSeconds.
type SpeedTier struct {
	MaxSeconds float64
	Bonus      int
}

// Rules is the immutable game configuration handed to the engine and matcher.
// Build it once at startup; nothing reads configuration mid-operation.
type Rules struct {
	BattleTimeout    time.Duration
	ChallengeExpiry  time.Duration
	QueueMatchExpiry time.Duration
	QueueTimeout     time.Duration

	MaxQuestions  int
	KFactor       int
	DefaultRating int

	BasePoints    int
	SpeedBonusMax int
	speedTiers    []SpeedTier
	badgePoints   map[BadgeKind]int
}

// DefaultRules returns the stock game configuration.
func DefaultRules() Rules {
	return Rules{
		BattleTimeout:    900 * time.Second,
		ChallengeExpiry:  300 * time.Second,
		QueueMatchExpiry: 30 * time.Second,
		QueueTimeout:     300 * time.Second,
		MaxQuestions:     10,
		KFactor:          32,
		DefaultRating:    1000,
		BasePoints:       10,
		SpeedBonusMax:    5,
		speedTiers: []SpeedTier{
			{MaxSeconds: 2, Bonus: 5},
			{MaxSeconds: 5, Bonus: 3},
			{MaxSeconds: 10, Bonus: 1},
		},
		badgePoints: map[BadgeKind]int{
			BadgeFirstWin:        10,
			BadgeTenWins:         50,
			BadgeSpeedDemon:      30,
			BadgePerfectScore:    40,
			BadgeWinStreak:       25,
			BadgeQuizMaster:      75,
			BadgeHighRoller:      60,
			BadgeSocialButterfly: 35,
		},
	}
}

// WithSpeedTiers returns a copy using tiers sorted by ascending threshold.
func (r Rules) WithSpeedTiers(tiers []SpeedTier) Rules {
	sorted := make([]SpeedTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MaxSeconds < sorted[j].MaxSeconds })
	r.speedTiers = sorted
	return r
}

// WithBadgePoints returns a copy with the given point values layered over the current ones.
func (r Rules) WithBadgePoints(points map[BadgeKind]int) Rules {
	merged := make(map[BadgeKind]int, len(r.badgePoints)+len(points))
	for k, v := range r.badgePoints {
		merged[k] = v
	}
	for k, v := range points {
		merged[k] = v
	}
	r.badgePoints = merged
	return r
}

// SpeedTiers returns a copy of the tiers in ascending threshold order.
func (r Rules) SpeedTiers() []SpeedTier {
	out := make([]SpeedTier, len(r.speedTiers))
	copy(out, r.speedTiers)
	return out
}

// BadgePoints is the value credited when kind is earned.
func (r Rules) BadgePoints(kind BadgeKind) int {
	return r.badgePoints[kind]
}

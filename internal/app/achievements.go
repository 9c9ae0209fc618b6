package app

import (
	"time"

	"quiz-battle-arena/internal/domain"
)

// AchievementEvaluator decides which badges a player earns after a battle.
type AchievementEvaluator struct {
	rules domain.Rules
}

func NewAchievementEvaluator(rules domain.Rules) *AchievementEvaluator {
	return &AchievementEvaluator{rules: rules}
}

// Evaluate returns the newly earned badges and credits their points to stats.
// Badges already in held are skipped.
func (e *AchievementEvaluator) Evaluate(stats *domain.UserStats, snap domain.BattleSnapshot, held map[domain.BadgeKind]bool, at time.Time) []domain.BadgeAward {
	var awards []domain.BadgeAward
	for _, kind := range domain.AllBadges {
		if held[kind] {
			continue
		}
		if !kind.Evaluate(*stats, snap) {
			continue
		}
		awards = append(awards, domain.BadgeAward{UserID: stats.UserID, Badge: kind, EarnedAt: at})
		stats.AddPoints(e.rules.BadgePoints(kind))
	}
	return awards
}

// BadgeProgress is one row of a player's achievement overview.
type BadgeProgress struct {
	Badge    domain.BadgeKind `json:"badge"`
	Earned   bool             `json:"earned"`
	Points   int              `json:"points"`
	Progress float64          `json:"progress"`
}

// Progress reports every badge with how close the player is.
func (e *AchievementEvaluator) Progress(stats domain.UserStats, directOpponents int, held map[domain.BadgeKind]bool) []BadgeProgress {
	out := make([]BadgeProgress, 0, len(domain.AllBadges))
	for _, kind := range domain.AllBadges {
		out = append(out, BadgeProgress{
			Badge:    kind,
			Earned:   held[kind],
			Points:   e.rules.BadgePoints(kind),
			Progress: kind.Progress(stats, directOpponents, held[kind]),
		})
	}
	return out
}

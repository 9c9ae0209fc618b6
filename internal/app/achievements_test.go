package app_test

import (
	"testing"
	"time"

	"quiz-battle-arena/internal/app"
	"quiz-battle-arena/internal/domain"
)

func TestAchievementEvaluatorSkipsHeldBadges(t *testing.T) {
	at := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	eval := app.NewAchievementEvaluator(domain.DefaultRules())

	stats := domain.NewUserStats("u1", 1000)
	stats.RecordWin(at)
	snap := domain.BattleSnapshot{
		BattleID: "b1",
		Answers: []domain.ProgressEntry{
			{QuestionID: "q1", Correct: true, TimeTaken: 3},
			{QuestionID: "q2", Correct: true, TimeTaken: 8},
		},
	}

	awards := eval.Evaluate(&stats, snap, map[domain.BadgeKind]bool{domain.BadgeSpeedDemon: true}, at)
	if len(awards) != 2 || awards[0].Badge != domain.BadgeFirstWin || awards[1].Badge != domain.BadgePerfectScore {
		t.Fatalf("expected first_win and perfect_score, got %+v", awards)
	}
	if stats.TotalPoints != 50 {
		t.Fatalf("expected badge points credited, got %d", stats.TotalPoints)
	}
}

func TestAchievementEvaluatorCustomPoints(t *testing.T) {
	rules := domain.DefaultRules().WithBadgePoints(map[domain.BadgeKind]int{domain.BadgeFirstWin: 100})
	eval := app.NewAchievementEvaluator(rules)
	stats := domain.NewUserStats("u1", 1000)
	stats.RecordWin(time.Now())

	eval.Evaluate(&stats, domain.BattleSnapshot{}, nil, time.Now())
	if stats.TotalPoints != 100 {
		t.Fatalf("expected overridden first_win points, got %d", stats.TotalPoints)
	}
}

func TestBadgeProgress(t *testing.T) {
	eval := app.NewAchievementEvaluator(domain.DefaultRules())
	stats := domain.NewUserStats("u1", 1200)
	stats.Wins, stats.WinStreak, stats.TotalBattles = 3, 2, 25

	rows := eval.Progress(stats, 4, map[domain.BadgeKind]bool{domain.BadgeFirstWin: true})
	got := make(map[domain.BadgeKind]app.BadgeProgress, len(rows))
	for _, r := range rows {
		got[r.Badge] = r
	}
	want := map[domain.BadgeKind]float64{
		domain.BadgeFirstWin:        100,
		domain.BadgeTenWins:         30,
		domain.BadgeWinStreak:       40,
		domain.BadgeQuizMaster:      50,
		domain.BadgeHighRoller:      80,
		domain.BadgeSocialButterfly: 40,
		domain.BadgeSpeedDemon:      0,
	}
	for kind, pct := range want {
		if got[kind].Progress != pct {
			t.Errorf("%s progress = %v, want %v", kind, got[kind].Progress, pct)
		}
	}
	if !got[domain.BadgeFirstWin].Earned || got[domain.BadgeTenWins].Earned {
		t.Fatalf("earned flags wrong: %+v", rows)
	}
}

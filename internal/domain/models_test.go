package domain

import (
	"errors"
	"testing"
	"time"
)

func TestBattleTransitions(t *testing.T) {
	allowed := map[BattleStatus][]BattleStatus{
		BattlePending: {BattleActive, BattleCancelled, BattleExpired},
		BattleActive:  {BattleCompleted},
	}
	all := []BattleStatus{BattlePending, BattleActive, BattleCompleted, BattleCancelled, BattleExpired}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			if got := from.CanTransition(to); got != want {
				t.Errorf("%s -> %s = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestNewBattleValidation(t *testing.T) {
	now := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	if _, err := NewBattle("b1", "q", "u1", "u1", ChallengeDirect, now, time.Minute); !errors.Is(err, ErrSelfChallenge) {
		t.Fatalf("expected self challenge, got %v", err)
	}
	if _, err := NewBattle("b1", "", "u1", "u2", ChallengeDirect, now, time.Minute); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	b, err := NewBattle("b1", "q", "u1", "u2", ChallengeQueue, now, 30*time.Second)
	if err != nil {
		t.Fatalf("new battle: %v", err)
	}
	if b.Status != BattlePending || !b.ExpiresAt.Equal(now.Add(30*time.Second)) {
		t.Fatalf("unexpected battle %+v", b)
	}
	if b.OtherPlayer("u1") != "u2" || b.LoserID() != "" || b.IsParticipant("u3") {
		t.Fatalf("participant helpers wrong")
	}
}

func TestUserStatsAccumulates(t *testing.T) {
	at := time.Now()
	s := NewUserStats("u1", 1000)
	s.RecordWin(at)
	s.RecordWin(at)
	s.RecordLoss(at)
	s.RecordWin(at)
	if s.WinStreak != 1 || s.BestWinStreak != 2 || s.TotalBattles != 4 {
		t.Fatalf("unexpected streaks %+v", s)
	}
	if s.WinRate() != 75 {
		t.Fatalf("expected 75%% win rate, got %v", s.WinRate())
	}

	s.RecordAnswers([]ProgressEntry{{Correct: true, TimeTaken: 2}, {TimeTaken: 4}})
	s.RecordAnswers([]ProgressEntry{{Correct: true, TimeTaken: -3}, {Correct: true, TimeTaken: 6}})
	if s.QuestionsAnswered != 4 || s.CorrectAnswers != 3 || s.AvgAnswerTime != 3 {
		t.Fatalf("unexpected answer totals %+v", s)
	}

	s.AddPoints(10)
	s.AddPoints(-25)
	if s.TotalPoints != 0 {
		t.Fatalf("points must floor at zero, got %d", s.TotalPoints)
	}
}

func TestQuestionIsCorrect(t *testing.T) {
	q := Question{ID: "q1", Answers: []string{"Paris", " lyon "}}
	cases := map[string]bool{"paris": true, "  PARIS ": true, "Lyon": true, "": false, "   ": false, "Nice": false}
	for answer, want := range cases {
		if got := q.IsCorrect(answer); got != want {
			t.Errorf("IsCorrect(%q) = %v, want %v", answer, got, want)
		}
	}
}

package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-battle-arena/internal/domain"
)

func TestQueuePairsTwoPlayers(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	first, err := h.matcher.JoinQueue(ctx, "alice", "quiz-1", domain.QueueRandom)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if res, _ := h.matcher.CheckMatch(ctx, "alice"); res.Matched {
		t.Fatalf("a lone player must not be matched")
	}

	h.clock.Advance(10 * time.Second)
	if _, err := h.matcher.JoinQueue(ctx, "bob", "quiz-1", domain.QueueRandom); err != nil {
		t.Fatalf("join: %v", err)
	}

	aliceMatch, err := h.matcher.CheckMatch(ctx, "alice")
	if err != nil || !aliceMatch.Matched {
		t.Fatalf("expected alice matched, got %+v err=%v", aliceMatch, err)
	}
	bobMatch, _ := h.matcher.CheckMatch(ctx, "bob")
	if !bobMatch.Matched || bobMatch.Battle.ID != aliceMatch.Battle.ID {
		t.Fatalf("expected both players in the same battle")
	}

	battle := aliceMatch.Battle
	if battle.ChallengeType != domain.ChallengeQueue || battle.Status != domain.BattlePending {
		t.Fatalf("expected a pending queue battle, got %+v", battle)
	}
	if battle.ChallengerID != first.UserID || battle.OpponentID != "bob" {
		t.Fatalf("expected earlier joiner to challenge, got %s vs %s", battle.ChallengerID, battle.OpponentID)
	}
	if got := battle.ExpiresAt.Sub(battle.CreatedAt); got != 30*time.Second {
		t.Fatalf("expected 30s queue expiry, got %v", got)
	}

	waiting, _ := h.store.ListWaiting(ctx)
	if len(waiting) != 0 {
		t.Fatalf("expected no waiting entries, got %d", len(waiting))
	}
	if n := len(h.events.ofKind(domain.EventQueueMatched)); n != 1 {
		t.Fatalf("expected one match event, got %d", n)
	}

	if _, err := h.engine.AcceptChallenge(ctx, battle.ID, "bob"); err != nil {
		t.Fatalf("accept queue battle: %v", err)
	}
}

func TestJoinQueueTwiceFails(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	if _, err := h.matcher.JoinQueue(ctx, "alice", "quiz-1", domain.QueueSkill); err != nil {
		t.Fatalf("join: %v", err)
	}
	_, err := h.matcher.JoinQueue(ctx, "alice", "quiz-1", domain.QueueSkill)
	if !errors.Is(err, domain.ErrAlreadyQueued) {
		t.Fatalf("expected already queued, got %v", err)
	}
	waiting, _ := h.store.ListWaiting(ctx)
	if len(waiting) != 1 {
		t.Fatalf("expected no duplicate waiting row, got %d", len(waiting))
	}

	status, err := h.matcher.QueueStatus(ctx, "alice")
	if err != nil || !status.InQueue {
		t.Fatalf("expected alice in queue, got %+v err=%v", status, err)
	}
}

func TestJoinQueuePreconditions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	if _, err := h.matcher.JoinQueue(ctx, "alice", "quiz-1", "ranked"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected invalid queue type, got %v", err)
	}
	if _, err := h.matcher.JoinQueue(ctx, "bob", "members", domain.QueueRandom); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
	h.startBattle(t, "alice", "bob")
	if _, err := h.matcher.JoinQueue(ctx, "alice", "quiz-1", domain.QueueRandom); !errors.Is(err, domain.ErrStateConflict) {
		t.Fatalf("expected in-battle conflict, got %v", err)
	}
}

func TestQueueOnlyPairsSameQuiz(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, _ = h.matcher.JoinQueue(ctx, "bob", "quiz-1", domain.QueueRandom)
	_, _ = h.matcher.JoinQueue(ctx, "alice", "members", domain.QueueRandom)
	_, _ = h.matcher.JoinQueue(ctx, "carol", "quiz-1", domain.QueueRandom)

	res, _ := h.matcher.CheckMatch(ctx, "bob")
	if !res.Matched || res.Battle.OpponentID != "carol" {
		t.Fatalf("expected bob paired with carol, got %+v", res)
	}
	if res, _ := h.matcher.CheckMatch(ctx, "alice"); res.Matched {
		t.Fatalf("nobody else queued for members")
	}
}

func TestLeaveQueueIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	if left, err := h.matcher.LeaveQueue(ctx, "alice"); err != nil || left {
		t.Fatalf("leaving without an entry should be a no-op, left=%v err=%v", left, err)
	}
	_, _ = h.matcher.JoinQueue(ctx, "alice", "quiz-1", domain.QueueRandom)
	if left, err := h.matcher.LeaveQueue(ctx, "alice"); err != nil || !left {
		t.Fatalf("expected leave to cancel, left=%v err=%v", left, err)
	}
	if status, _ := h.matcher.QueueStatus(ctx, "alice"); status.InQueue {
		t.Fatalf("expected alice out of the queue")
	}
}

func TestCleanupExpiredEntries(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, _ = h.matcher.JoinQueue(ctx, "alice", "quiz-1", domain.QueueRandom)
	h.clock.Advance(301 * time.Second)

	n, err := h.matcher.CleanupExpired(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one expired entry, n=%d err=%v", n, err)
	}
	stats, _ := h.matcher.QueueStats(ctx)
	if stats.Waiting != 0 {
		t.Fatalf("expected an empty queue, got %+v", stats)
	}
}

func TestBusyPartnerFallsBackToNextCandidate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	// enqueue directly so no pass runs until all three are waiting
	for i, user := range []string{"alice", "carol", "bob"} {
		entry, err := domain.NewQueueEntry("entry-"+user, user, "quiz-1", domain.QueueRandom, h.clock.Now().Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("entry: %v", err)
		}
		if err := h.store.Enqueue(ctx, entry); err != nil {
			t.Fatalf("enqueue %s: %v", user, err)
		}
	}
	h.clock.Advance(3 * time.Minute)

	// carol is alice's best partner but gets pulled into a direct challenge
	if _, err := h.engine.CreateChallenge(ctx, "quiz-1", "dave", "carol"); err != nil {
		t.Fatalf("challenge: %v", err)
	}

	created, err := h.matcher.ProcessQueue(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(created) != 1 || created[0].ChallengerID != "alice" || created[0].OpponentID != "bob" {
		t.Fatalf("expected alice paired with bob, got %+v", created)
	}
	if status, _ := h.matcher.QueueStatus(ctx, "carol"); !status.InQueue {
		t.Fatalf("expected carol to keep waiting")
	}
}

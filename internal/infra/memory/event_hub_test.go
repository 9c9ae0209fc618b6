package memory

import (
	"context"
	"testing"

	"quiz-battle-arena/internal/domain"
)

func TestEventHubFiltersByParticipant(t *testing.T) {
	hub := NewEventHub()
	mine, cancelMine := hub.Subscribe("u1")
	defer cancelMine()
	all, cancelAll := hub.Subscribe("")
	defer cancelAll()

	_ = hub.Publish(context.Background(), domain.BattleStarted{BattleID: "b1", ChallengerID: "u2", OpponentID: "u3"})
	_ = hub.Publish(context.Background(), domain.BattleStarted{BattleID: "b2", ChallengerID: "u1", OpponentID: "u2"})

	got := <-mine
	if started, ok := got.(domain.BattleStarted); !ok || started.BattleID != "b2" {
		t.Fatalf("expected only b2 for u1, got %#v", got)
	}
	if len(all) != 2 {
		t.Fatalf("expected firehose to see both events, got %d", len(all))
	}
}

func TestEventHubDropsOldestWhenFull(t *testing.T) {
	hub := NewEventHub()
	ch, cancel := hub.Subscribe("u1")
	defer cancel()

	for i := 0; i < subscriberBuffer+3; i++ {
		_ = hub.Publish(context.Background(), domain.BadgeEarned{UserID: "u1", Points: i})
	}
	first := (<-ch).(domain.BadgeEarned)
	if first.Points != 3 {
		t.Fatalf("expected the three oldest events dropped, first points=%d", first.Points)
	}
}

func TestEventHubCancelClosesChannel(t *testing.T) {
	hub := NewEventHub()
	ch, cancel := hub.Subscribe("u1")
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	if hub.Subscribers() != 0 {
		t.Fatalf("expected no subscribers")
	}
}

package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"quiz-battle-arena/internal/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCountsEvents(t *testing.T) {
	c := NewCollector()
	ctx := context.Background()

	_ = c.Publish(ctx, domain.BattleStarted{BattleID: "b1"})
	_ = c.Publish(ctx, domain.BattleCompletedEvent{BattleID: "b1", WinnerDelta: 16})
	_ = c.Publish(ctx, domain.BattleCompletedEvent{BattleID: "b2", WinnerDelta: 8, TimedOut: true})
	_ = c.Publish(ctx, domain.BadgeEarned{UserID: "u1", Badge: domain.BadgeFirstWin})

	if got := testutil.ToFloat64(c.events.WithLabelValues("battle_completed")); got != 2 {
		t.Fatalf("expected 2 completion events, got %v", got)
	}
	if got := testutil.ToFloat64(c.completions.WithLabelValues("true")); got != 1 {
		t.Fatalf("expected 1 timed out completion, got %v", got)
	}
	if got := testutil.ToFloat64(c.badges.WithLabelValues("first_win")); got != 1 {
		t.Fatalf("expected first_win counted, got %v", got)
	}
}

func TestCollectorHandlerExposesQueueGauge(t *testing.T) {
	c := NewCollector()
	c.WatchQueue(func(context.Context) (domain.QueueStats, error) {
		return domain.QueueStats{Waiting: 3}, nil
	})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "queue_waiting_players 3") {
		t.Fatalf("expected queue gauge in output, got:\n%s", body)
	}
}

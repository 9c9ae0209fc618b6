package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quiz-battle-arena/internal/domain"
)

func TestLoadExpandsEnvAndBuildsRules(t *testing.T) {
	t.Setenv("QUIZ_PG_URL", "postgres://quiz:secret@db/quizdb")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: "9090"
postgres:
  url: ${QUIZ_PG_URL}
kafka:
  brokers: ["k1:9092", "k2:9092"]
  topic: battle-events
battle:
  timeout: 10m
  sweep_interval: 5s
  k_factor: 24
  speed_tiers:
    - {max_seconds: 10, bonus: 1}
    - {max_seconds: 3, bonus: 4}
  badge_points:
    first_win: 20
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Postgres.URL != "postgres://quiz:secret@db/quizdb" {
		t.Fatalf("expected env expansion, got %q", cfg.Postgres.URL)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.SweepInterval() != 5*time.Second {
		t.Fatalf("unexpected config %+v", cfg)
	}

	rules, err := cfg.Rules()
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	if rules.BattleTimeout != 10*time.Minute || rules.KFactor != 24 {
		t.Fatalf("overrides not applied: %+v", rules)
	}
	if rules.ChallengeExpiry != 300*time.Second || rules.MaxQuestions != 10 {
		t.Fatalf("defaults lost: %+v", rules)
	}
	tiers := rules.SpeedTiers()
	if len(tiers) != 2 || tiers[0].MaxSeconds != 3 {
		t.Fatalf("expected tiers sorted by threshold, got %+v", tiers)
	}
	if rules.BadgePoints(domain.BadgeFirstWin) != 20 || rules.BadgePoints(domain.BadgeTenWins) != 50 {
		t.Fatalf("badge points not merged")
	}
}

func TestRulesRejectsUnknownBadge(t *testing.T) {
	var cfg Config
	cfg.Battle.BadgePoints = map[string]int{"golden_goose": 5}
	if _, err := cfg.Rules(); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := TTLDuration("nonsense", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback on bad input, got %v", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected parsed value, got %v", got)
	}
}

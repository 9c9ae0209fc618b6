package config

import (
	"fmt"
	"os"
	"time"

	"quiz-battle-arena/internal/domain"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port       string `yaml:"port"`
		InstanceID string `yaml:"instance_id"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Battle BattleConfig `yaml:"battle"`
}

// BattleConfig holds the game rules. Empty values keep the defaults.
type BattleConfig struct {
	Timeout          string         `yaml:"timeout"`
	ChallengeExpiry  string         `yaml:"challenge_expiry"`
	QueueMatchExpiry string         `yaml:"queue_match_expiry"`
	QueueTimeout     string         `yaml:"queue_timeout"`
	SweepInterval    string         `yaml:"sweep_interval"`
	MaxQuestions     int            `yaml:"max_questions"`
	KFactor          int            `yaml:"k_factor"`
	DefaultRating    int            `yaml:"default_rating"`
	BasePoints       int            `yaml:"base_points"`
	SpeedBonusMax    int            `yaml:"speed_bonus_max"`
	SpeedTiers       []SpeedTier    `yaml:"speed_tiers"`
	BadgePoints      map[string]int `yaml:"badge_points"`
}

type SpeedTier struct {
	MaxSeconds float64 `yaml:"max_seconds"`
	Bonus      int     `yaml:"bonus"`
}

// Load reads YAML config from path, expanding ${VAR} references from the environment.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	data = []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// SweepInterval is how often the background sweeper runs.
func (c Config) SweepInterval() time.Duration {
	return TTLDuration(c.Battle.SweepInterval, 30*time.Second)
}

// Rules builds the immutable game rules, layering configured values over the defaults.
func (c Config) Rules() (domain.Rules, error) {
	b := c.Battle
	rules := domain.DefaultRules()
	rules.BattleTimeout = TTLDuration(b.Timeout, rules.BattleTimeout)
	rules.ChallengeExpiry = TTLDuration(b.ChallengeExpiry, rules.ChallengeExpiry)
	rules.QueueMatchExpiry = TTLDuration(b.QueueMatchExpiry, rules.QueueMatchExpiry)
	rules.QueueTimeout = TTLDuration(b.QueueTimeout, rules.QueueTimeout)
	overrideInt(&rules.MaxQuestions, b.MaxQuestions)
	overrideInt(&rules.KFactor, b.KFactor)
	overrideInt(&rules.DefaultRating, b.DefaultRating)
	overrideInt(&rules.BasePoints, b.BasePoints)
	overrideInt(&rules.SpeedBonusMax, b.SpeedBonusMax)

	if len(b.SpeedTiers) > 0 {
		tiers := make([]domain.SpeedTier, len(b.SpeedTiers))
		for i, t := range b.SpeedTiers {
			if t.MaxSeconds <= 0 || t.Bonus < 0 {
				return domain.Rules{}, fmt.Errorf("%w: speed tier %d must have max_seconds > 0 and bonus >= 0", domain.ErrValidation, i)
			}
			tiers[i] = domain.SpeedTier{MaxSeconds: t.MaxSeconds, Bonus: t.Bonus}
		}
		rules = rules.WithSpeedTiers(tiers)
	}
	if len(b.BadgePoints) > 0 {
		points := make(map[domain.BadgeKind]int, len(b.BadgePoints))
		for code, v := range b.BadgePoints {
			kind, err := domain.ParseBadgeKind(code)
			if err != nil {
				return domain.Rules{}, err
			}
			points[kind] = v
		}
		rules = rules.WithBadgePoints(points)
	}
	return rules, nil
}

func overrideInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

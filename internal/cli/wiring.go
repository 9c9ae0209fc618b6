package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"quiz-battle-arena/internal/app"
	"quiz-battle-arena/internal/config"
	"quiz-battle-arena/internal/domain"
	"quiz-battle-arena/internal/infra/kafka"
	"quiz-battle-arena/internal/infra/memory"
	"quiz-battle-arena/internal/infra/postgres"
	redisinfra "quiz-battle-arena/internal/infra/redis"
	"quiz-battle-arena/internal/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// stack is everything a command needs, built from config.
type stack struct {
	instanceID string
	logger     *slog.Logger

	engine    *app.BattleEngine
	matcher   *app.QueueMatcher
	hub       *memory.EventHub
	collector *metrics.Collector
	redis     *redis.Client

	closers []func() error
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// buildStack picks Postgres, Redis and Kafka when configured and falls back to
// in-process implementations otherwise.
func buildStack(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stack, error) {
	rules, err := cfg.Rules()
	if err != nil {
		return nil, err
	}

	s := &stack{
		instanceID: cfg.Server.InstanceID,
		logger:     logger,
		hub:        memory.NewEventHub(),
		collector:  metrics.NewCollector(),
	}
	if s.instanceID == "" {
		s.instanceID = uuid.NewString()
	}
	ok := false
	defer func() {
		if !ok {
			_ = s.Close()
		}
	}()

	var (
		battles app.BattleStore
		queue   app.QueueStore
		loader  memory.QuizLoader
		users   app.IdentityProvider
	)
	if cfg.Postgres.URL != "" {
		db, err := openBun(cfg)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db.Close)
		if err := runMigrations(ctx, db, logger); err != nil {
			return nil, err
		}
		store := postgres.NewStore(db, rules.DefaultRating)
		battles, queue = store, store

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.closers = append(s.closers, func() error { pool.Close(); return nil })
		loader = postgres.NewQuizLoader(pool)
		users = postgres.NewDirectory(pool)
	} else {
		logger.Warn("postgres not configured, battles are kept in memory")
		store := memory.NewStore(rules.DefaultRating)
		battles, queue = store, store
		loader = memory.NewStaticQuizLoader(sampleQuizzes())
		users = memory.NewDirectory(sampleUsers()...)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizzes app.QuestionSource = memory.NewQuizRepository(loader, quizTTL)
	sinks := []app.EventPublisher{s.hub, s.collector}
	var matcherOpts []app.MatcherOption

	if cfg.Redis.Addr != "" {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s.closers = append(s.closers, s.redis.Close)
		if err := s.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		quizzes = redisinfra.NewQuizRepository(s.redis, loader, quizTTL, logger)
		sinks = append(sinks, redisinfra.NewEventPublisher(s.redis, s.instanceID))
		matcherOpts = append(matcherOpts, app.WithLocker(redisinfra.NewLocker(s.redis)))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		topic := cfg.Kafka.Topic
		if topic == "" {
			topic = "battle-events"
		}
		publisher := kafka.NewPublisher(producer, topic, s.instanceID)
		s.closers = append(s.closers, publisher.Close)
		sinks = append(sinks, publisher)
	}

	s.engine = app.NewBattleEngine(battles, quizzes, users, rules,
		app.WithPublisher(app.NewPublishers(logger, sinks...)),
		app.WithLogger(logger),
	)
	matcherOpts = append(matcherOpts, app.WithMatcherLogger(logger))
	s.matcher = app.NewQueueMatcher(queue, battles, quizzes, s.engine, matcherOpts...)
	s.collector.WatchQueue(s.matcher.QueueStats)

	ok = true
	return s, nil
}

// Close releases connections in reverse order of acquisition.
func (s *stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// sampleQuizzes seeds the in-memory mode so the server is playable without a database.
func sampleQuizzes() map[string]domain.Quiz {
	prompts := []struct{ q, a, b, c string }{
		{"2 + 2", "4", "3", "5"},
		{"7 * 6", "42", "36", "48"},
		{"Capital of France", "Paris", "Lyon", "Nice"},
		{"H2O is", "water", "salt", "sugar"},
		{"Largest planet", "Jupiter", "Mars", "Venus"},
		{"Square root of 81", "9", "8", "7"},
		{"Opposite of hot", "cold", "warm", "dry"},
		{"Days in a leap year", "366", "365", "364"},
		{"First letter of the alphabet", "a", "b", "z"},
		{"10 / 4", "2.5", "2", "3"},
	}
	questions := make([]domain.Question, len(prompts))
	for i, p := range prompts {
		questions[i] = domain.Question{
			ID:      fmt.Sprintf("q%d", i+1),
			Prompt:  p.q,
			Options: []string{p.b, p.a, p.c},
			Answers: []string{p.a},
		}
	}
	return map[string]domain.Quiz{
		"quiz-1": {ID: "quiz-1", Title: "General knowledge", Published: true, Questions: questions},
	}
}

func sampleUsers() []domain.User {
	return []domain.User{
		{ID: "alice", DisplayName: "Alice"},
		{ID: "bob", DisplayName: "Bob"},
		{ID: "carol", DisplayName: "Carol"},
	}
}

package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"quiz-battle-arena/internal/app"
	"quiz-battle-arena/internal/domain"
	"quiz-battle-arena/internal/infra/postgres"
	pgmigrations "quiz-battle-arena/internal/infra/postgres/migrations"
	infraredis "quiz-battle-arena/internal/infra/redis"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

type env struct {
	store   *postgres.Store
	engine  *app.BattleEngine
	matcher *app.QueueMatcher
}

func TestBattleEndToEnd(t *testing.T) {
	ctx := context.Background()
	e := setup(t, ctx)

	battle, err := e.engine.CreateChallenge(ctx, "quiz-1", "u1", "u2")
	if err != nil {
		t.Fatalf("challenge: %v", err)
	}
	if _, err := e.engine.CreateChallenge(ctx, "quiz-1", "u3", "u2"); !errors.Is(err, domain.ErrOpponentBusy) {
		t.Fatalf("expected busy opponent, got %v", err)
	}
	if _, err := e.engine.AcceptChallenge(ctx, battle.ID, "u2"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	for i := 1; i <= 10; i++ {
		qid := fmt.Sprintf("q%d", i)
		if _, err := e.engine.SubmitAnswer(ctx, app.Submission{BattleID: battle.ID, UserID: "u1", QuestionID: qid, Answer: "4", TimeTaken: 1}); err != nil {
			t.Fatalf("u1 answer %s: %v", qid, err)
		}
		answer := "4"
		if i > 5 {
			answer = "3"
		}
		if _, err := e.engine.SubmitAnswer(ctx, app.Submission{BattleID: battle.ID, UserID: "u2", QuestionID: qid, Answer: answer, TimeTaken: 8}); err != nil {
			t.Fatalf("u2 answer %s: %v", qid, err)
		}
		if i == 1 {
			_, err := e.engine.SubmitAnswer(ctx, app.Submission{BattleID: battle.ID, UserID: "u1", QuestionID: qid, Answer: "4"})
			if !errors.Is(err, domain.ErrAlreadyAnswered) {
				t.Fatalf("expected duplicate answer rejected, got %v", err)
			}
		}
	}

	got, err := e.store.GetBattle(ctx, battle.ID)
	if err != nil {
		t.Fatalf("get battle: %v", err)
	}
	if got.Status != domain.BattleCompleted || got.WinnerID != "u1" {
		t.Fatalf("expected u1 to win a completed battle, got %+v", got)
	}
	if got.ChallengerScore != 150 || got.OpponentScore != 55 {
		t.Fatalf("expected 150-55, got %d-%d", got.ChallengerScore, got.OpponentScore)
	}

	late := domain.ProgressEntry{BattleID: battle.ID, UserID: "u2", QuestionID: "q11", Correct: true, Points: 15, AnsweredAt: time.Now()}
	if _, err := e.store.RecordAnswer(ctx, late); !errors.Is(err, domain.ErrBattleNotActive) {
		t.Fatalf("expected completed battle to refuse answers, got %v", err)
	}
	if progress, _ := e.store.ListProgress(ctx, battle.ID); len(progress) != 20 {
		t.Fatalf("expected 20 progress rows, got %d", len(progress))
	}

	winner, err := e.engine.UserStats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if winner.TotalBattles != 1 || winner.Wins != 1 || winner.Rating != 1016 {
		t.Fatalf("unexpected winner stats %+v", winner)
	}
	badges, err := e.engine.UserBadges(ctx, "u1")
	if err != nil {
		t.Fatalf("badges: %v", err)
	}
	// first_win, perfect_score and speed_demon
	if len(badges) != 3 {
		t.Fatalf("expected three badges, got %+v", badges)
	}

	board, err := e.engine.Leaderboard(ctx, 10)
	if err != nil || len(board) < 2 || board[0].UserID != "u1" {
		t.Fatalf("expected u1 on top of the leaderboard, got %+v err=%v", board, err)
	}
}

func TestQueueMatchEndToEnd(t *testing.T) {
	ctx := context.Background()
	e := setup(t, ctx)

	if _, err := e.matcher.JoinQueue(ctx, "u1", "quiz-1", domain.QueueSkill); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := e.matcher.JoinQueue(ctx, "u1", "quiz-1", domain.QueueSkill); !errors.Is(err, domain.ErrAlreadyQueued) {
		t.Fatalf("expected already queued, got %v", err)
	}
	if _, err := e.matcher.JoinQueue(ctx, "u3", "quiz-1", domain.QueueSkill); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := e.matcher.ProcessQueue(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}

	res, err := e.matcher.CheckMatch(ctx, "u3")
	if err != nil || !res.Matched {
		t.Fatalf("expected u3 matched, got %+v err=%v", res, err)
	}
	if res.Battle.ChallengerID != "u1" || res.Battle.ChallengeType != domain.ChallengeQueue {
		t.Fatalf("unexpected queue battle %+v", res.Battle)
	}
	stats, err := e.matcher.QueueStats(ctx)
	if err != nil || stats.Waiting != 0 || stats.MatchedLastHour != 2 {
		t.Fatalf("unexpected queue stats %+v err=%v", stats, err)
	}
}

func setup(t *testing.T, ctx context.Context) env {
	t.Helper()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	t.Cleanup(pgCleanup)
	redisURL, redisCleanup := startRedis(t, ctx)
	t.Cleanup(redisCleanup)

	db := migrateDB(t, ctx, pgURL)
	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	t.Cleanup(pool.Close)

	loader := postgres.NewQuizLoader(pool)
	if err := loader.SaveQuiz(ctx, sampleQuiz()); err != nil {
		t.Fatalf("save quiz: %v", err)
	}
	users := postgres.NewDirectory(pool)
	for _, id := range []string{"u1", "u2", "u3"} {
		if err := users.PutUser(ctx, domain.User{ID: id, DisplayName: strings.ToUpper(id)}); err != nil {
			t.Fatalf("put user: %v", err)
		}
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	t.Cleanup(func() { _ = redisClient.Close() })

	rules := domain.DefaultRules()
	store := postgres.NewStore(db, rules.DefaultRating)
	quizzes := infraredis.NewQuizRepository(redisClient, loader, 5*time.Minute, slog.Default())
	engine := app.NewBattleEngine(store, quizzes, users, rules,
		app.WithPublisher(infraredis.NewEventPublisher(redisClient, "it")))
	matcher := app.NewQueueMatcher(store, store, quizzes, engine,
		app.WithLocker(infraredis.NewLocker(redisClient)),
		app.WithJitter(func() int { return 0 }))
	return env{store: store, engine: engine, matcher: matcher}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

// sampleQuiz has ten questions that all accept "4".
func sampleQuiz() domain.Quiz {
	questions := make([]domain.Question, 10)
	for i := range questions {
		questions[i] = domain.Question{
			ID:      fmt.Sprintf("q%d", i+1),
			Prompt:  "What is 2 + 2?",
			Options: []string{"3", "4", "5"},
			Answers: []string{"4"},
		}
	}
	return domain.Quiz{ID: "quiz-1", Title: "Arithmetic", Published: true, Questions: questions}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-battle-arena/internal/app"
	"quiz-battle-arena/internal/domain"
	"quiz-battle-arena/internal/infra/memory"
)

type testEnv struct {
	engine  *app.BattleEngine
	matcher *app.QueueMatcher
	hub     *memory.EventHub
	api     http.Handler
	ws      *WSHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	rules := domain.DefaultRules()
	store := memory.NewStore(rules.DefaultRating)
	questions := make([]domain.Question, 10)
	for i := range questions {
		questions[i] = domain.Question{ID: fmt.Sprintf("q%d", i+1), Prompt: "?", Options: []string{"a", "b"}, Answers: []string{"a"}}
	}
	loader := memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"quiz-1": {ID: "quiz-1", Title: "Basics", Published: true, Questions: questions},
	})
	users := memory.NewDirectory(
		domain.User{ID: "alice", DisplayName: "Alice"},
		domain.User{ID: "bob", DisplayName: "Bob"},
		domain.User{ID: "carol", DisplayName: "Carol"},
	)
	hub := memory.NewEventHub()
	logger := slog.Default()
	engine := app.NewBattleEngine(store, memory.NewQuizRepository(loader, time.Minute), users, rules,
		app.WithPublisher(app.NewPublishers(logger, hub)), app.WithLogger(logger))
	matcher := app.NewQueueMatcher(store, store, memory.NewQuizRepository(loader, time.Minute), engine,
		app.WithJitter(func() int { return 0 }))
	return &testEnv{
		engine:  engine,
		matcher: matcher,
		hub:     hub,
		api:     NewAPI(engine, matcher, logger).Routes(),
		ws:      NewWSHandler(engine, matcher, hub, logger),
	}
}

func TestAPIChallengeLifecycle(t *testing.T) {
	env := newTestEnv(t)

	var battle domain.Battle
	resp := call(t, env.api, "POST", "/battles", "alice", map[string]any{"quizId": "quiz-1", "opponentId": "bob"}, &battle)
	if resp.Code != http.StatusCreated || battle.Status != domain.BattlePending {
		t.Fatalf("expected created pending battle, got %d %+v", resp.Code, battle)
	}

	resp = call(t, env.api, "POST", "/battles/"+battle.ID+"/accept", "alice", nil, nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("challenger must not accept, got %d", resp.Code)
	}
	resp = call(t, env.api, "POST", "/battles/"+battle.ID+"/accept", "bob", nil, &battle)
	if resp.Code != http.StatusOK || battle.Status != domain.BattleActive {
		t.Fatalf("expected active battle, got %d %+v", resp.Code, battle)
	}

	var result app.AnswerResult
	resp = call(t, env.api, "POST", "/battles/"+battle.ID+"/answers", "bob", map[string]any{"questionId": "q1", "answer": "A", "timeTaken": 4}, &result)
	if resp.Code != http.StatusOK || result.Entry.Points != 13 {
		t.Fatalf("expected 13 points, got %d %+v", resp.Code, result)
	}
	resp = call(t, env.api, "POST", "/battles/"+battle.ID+"/answers", "bob", map[string]any{"questionId": "q1", "answer": "A"}, nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate, got %d", resp.Code)
	}

	var view app.BattleView
	call(t, env.api, "GET", "/battles/"+battle.ID, "alice", nil, &view)
	if view.Opponent.Score != 13 || len(view.Questions) != 10 {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestAPIQueueAndErrors(t *testing.T) {
	env := newTestEnv(t)

	resp := call(t, env.api, "POST", "/queue", "alice", map[string]any{"quizId": "quiz-1"}, nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("join: %d %s", resp.Code, resp.Body.String())
	}
	resp = call(t, env.api, "POST", "/queue", "alice", map[string]any{"quizId": "quiz-1"}, nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second join, got %d", resp.Code)
	}
	call(t, env.api, "POST", "/queue", "bob", map[string]any{"quizId": "quiz-1", "queueType": "skill"}, nil)

	var match app.MatchResult
	call(t, env.api, "GET", "/queue/match", "alice", nil, &match)
	if !match.Matched || match.Battle.ChallengeType != domain.ChallengeQueue {
		t.Fatalf("expected queue match, got %+v", match)
	}

	if resp := call(t, env.api, "GET", "/battles/missing", "alice", nil, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if resp := call(t, env.api, "GET", "/leaderboard?limit=zero", "", nil, nil); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", resp.Code)
	}
	if resp := call(t, env.api, "POST", "/queue", "alice", map[string]any{"quizId": "quiz-1", "queueType": "ranked"}, nil); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad queue type, got %d", resp.Code)
	}
}

func call(t *testing.T, h http.Handler, method, path, userID string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if out != nil {
		var envelope struct {
			Success bool            `json:"success"`
			Data    json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
		}
		if envelope.Success {
			if err := json.Unmarshal(envelope.Data, out); err != nil {
				t.Fatalf("decode data: %v", err)
			}
		}
	}
	return rec
}

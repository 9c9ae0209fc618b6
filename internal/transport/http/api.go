package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"quiz-battle-arena/internal/app"
	"quiz-battle-arena/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const defaultLeaderboardLimit = 50

// API is the request/response surface over the engine and matcher.
// The caller is identified by the X-User-ID header or the userId query parameter.
type API struct {
	engine  *app.BattleEngine
	matcher *app.QueueMatcher
	logger  *slog.Logger
}

func NewAPI(engine *app.BattleEngine, matcher *app.QueueMatcher, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{engine: engine, matcher: matcher, logger: logger}
}

type apiResponse struct {
	Success bool          `json:"success"`
	Data    any           `json:"data,omitempty"`
	Error   *errorPayload `json:"error,omitempty"`
}

// Routes mounts the API on a chi router.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/battles", func(r chi.Router) {
		r.Post("/", a.createChallenge)
		r.Route("/{battleID}", func(r chi.Router) {
			r.Get("/", a.battleStatus)
			r.Get("/result", a.battleResult)
			r.Post("/accept", a.acceptChallenge)
			r.Post("/decline", a.declineChallenge)
			r.Post("/answers", a.submitAnswer)
		})
	})
	r.Route("/queue", func(r chi.Router) {
		r.Get("/", a.queueStatus)
		r.Post("/", a.joinQueue)
		r.Delete("/", a.leaveQueue)
		r.Get("/match", a.checkMatch)
		r.Get("/stats", a.queueStats)
	})
	r.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/stats", a.userStats)
		r.Get("/badges", a.userBadges)
		r.Get("/badges/progress", a.badgeProgress)
		r.Post("/points", a.addPoints)
	})
	r.Get("/leaderboard", a.leaderboard)
	return r
}

func (a *API) createChallenge(w http.ResponseWriter, r *http.Request) {
	var body struct {
		QuizID     string `json:"quizId"`
		OpponentID string `json:"opponentId"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	battle, err := a.engine.CreateChallenge(r.Context(), body.QuizID, callerID(r), body.OpponentID)
	a.reply(w, http.StatusCreated, battle, err)
}

func (a *API) acceptChallenge(w http.ResponseWriter, r *http.Request) {
	battle, err := a.engine.AcceptChallenge(r.Context(), chi.URLParam(r, "battleID"), callerID(r))
	a.reply(w, http.StatusOK, battle, err)
}

func (a *API) declineChallenge(w http.ResponseWriter, r *http.Request) {
	err := a.engine.DeclineChallenge(r.Context(), chi.URLParam(r, "battleID"), callerID(r))
	a.reply(w, http.StatusOK, map[string]bool{"declined": err == nil}, err)
}

func (a *API) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var sub app.Submission
	if !a.decode(w, r, &sub) {
		return
	}
	sub.BattleID, sub.UserID = chi.URLParam(r, "battleID"), callerID(r)
	res, err := a.engine.SubmitAnswer(r.Context(), sub)
	a.reply(w, http.StatusOK, res, err)
}

func (a *API) battleStatus(w http.ResponseWriter, r *http.Request) {
	view, err := a.engine.BattleStatus(r.Context(), chi.URLParam(r, "battleID"), callerID(r))
	a.reply(w, http.StatusOK, view, err)
}

func (a *API) battleResult(w http.ResponseWriter, r *http.Request) {
	battle, progress, err := a.engine.BattleResult(r.Context(), chi.URLParam(r, "battleID"), callerID(r))
	a.reply(w, http.StatusOK, map[string]any{"battle": battle, "progress": progress}, err)
}

func (a *API) joinQueue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		QuizID    string           `json:"quizId"`
		QueueType domain.QueueType `json:"queueType"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	if body.QueueType == "" {
		body.QueueType = domain.QueueRandom
	}
	entry, err := a.matcher.JoinQueue(r.Context(), callerID(r), body.QuizID, body.QueueType)
	a.reply(w, http.StatusCreated, entry, err)
}

func (a *API) leaveQueue(w http.ResponseWriter, r *http.Request) {
	left, err := a.matcher.LeaveQueue(r.Context(), callerID(r))
	a.reply(w, http.StatusOK, map[string]bool{"left": left}, err)
}

func (a *API) queueStatus(w http.ResponseWriter, r *http.Request) {
	status, err := a.matcher.QueueStatus(r.Context(), callerID(r))
	a.reply(w, http.StatusOK, status, err)
}

func (a *API) checkMatch(w http.ResponseWriter, r *http.Request) {
	match, err := a.matcher.CheckMatch(r.Context(), callerID(r))
	a.reply(w, http.StatusOK, match, err)
}

func (a *API) queueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.matcher.QueueStats(r.Context())
	a.reply(w, http.StatusOK, stats, err)
}

func (a *API) userStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.engine.UserStats(r.Context(), chi.URLParam(r, "userID"))
	a.reply(w, http.StatusOK, stats, err)
}

func (a *API) userBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := a.engine.UserBadges(r.Context(), chi.URLParam(r, "userID"))
	a.reply(w, http.StatusOK, badges, err)
}

func (a *API) badgeProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := a.engine.BadgeProgress(r.Context(), chi.URLParam(r, "userID"))
	a.reply(w, http.StatusOK, progress, err)
}

func (a *API) addPoints(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Points int `json:"points"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	stats, err := a.engine.AddUserPoints(r.Context(), chi.URLParam(r, "userID"), body.Points)
	a.reply(w, http.StatusOK, stats, err)
}

func (a *API) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			a.reply(w, 0, nil, errors.Join(domain.ErrValidation, errors.New("limit must be a positive integer")))
			return
		}
		limit = n
	}
	board, err := a.engine.Leaderboard(r.Context(), limit)
	a.reply(w, http.StatusOK, board, err)
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		a.reply(w, 0, nil, errors.Join(domain.ErrValidation, err))
		return false
	}
	return true
}

func (a *API) reply(w http.ResponseWriter, status int, data any, err error) {
	resp := apiResponse{Success: err == nil, Data: data}
	if err != nil {
		payload := newErrorPayload(err)
		resp.Data, resp.Error = nil, &payload
		status, _ = classify(err)
		if status >= http.StatusInternalServerError {
			a.logger.Error("request failed", "error", err)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func callerID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return r.URL.Query().Get("userId")
}

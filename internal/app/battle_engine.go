package app

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"quiz-battle-arena/internal/domain"
	"quiz-battle-arena/internal/rating"
	"quiz-battle-arena/internal/scoring"

	"github.com/google/uuid"
)

const sweepBatchSize = 500

// BattleEngine runs the battle lifecycle: challenges, answers, completion.
type BattleEngine struct {
	battles BattleStore
	quizzes QuestionSource
	users   IdentityProvider
	events  EventPublisher
	badges  *AchievementEvaluator
	rules   domain.Rules
	now     func() time.Time
	newID   func() string
	logger  *slog.Logger
}

// EngineOption customizes a BattleEngine.
type EngineOption func(*BattleEngine)

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *BattleEngine) { e.now = now }
}

func WithPublisher(p EventPublisher) EngineOption {
	return func(e *BattleEngine) { e.events = p }
}

func WithLogger(l *slog.Logger) EngineOption {
	return func(e *BattleEngine) { e.logger = l }
}

func WithIDGenerator(next func() string) EngineOption {
	return func(e *BattleEngine) { e.newID = next }
}

func NewBattleEngine(battles BattleStore, quizzes QuestionSource, users IdentityProvider, rules domain.Rules, opts ...EngineOption) *BattleEngine {
	e := &BattleEngine{
		battles: battles,
		quizzes: quizzes,
		users:   users,
		events:  NewPublishers(nil),
		badges:  NewAchievementEvaluator(rules),
		rules:   rules,
		now:     time.Now,
		newID:   uuid.NewString,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules exposes the configuration the engine was built with.
func (e *BattleEngine) Rules() domain.Rules {
	return e.rules
}

// CreateChallenge issues a direct challenge from challengerID to opponentID.
func (e *BattleEngine) CreateChallenge(ctx context.Context, quizID, challengerID, opponentID string) (domain.Battle, error) {
	if quizID == "" || challengerID == "" || opponentID == "" {
		return domain.Battle{}, domain.ErrMissingID
	}
	if challengerID == opponentID {
		return domain.Battle{}, domain.ErrSelfChallenge
	}
	for _, id := range []string{challengerID, opponentID} {
		if _, err := e.users.GetUser(ctx, id); err != nil {
			return domain.Battle{}, err
		}
	}
	if _, err := e.quizzes.GetQuiz(ctx, quizID); err != nil {
		return domain.Battle{}, err
	}
	if err := e.requireAccess(ctx, quizID, challengerID, opponentID); err != nil {
		return domain.Battle{}, err
	}

	busy, err := e.battles.HasOpenBattle(ctx, challengerID)
	if err != nil {
		return domain.Battle{}, err
	}
	if busy {
		return domain.Battle{}, domain.ErrInBattle
	}
	busy, err = e.battles.HasOpenBattle(ctx, opponentID)
	if err != nil {
		return domain.Battle{}, err
	}
	if busy {
		return domain.Battle{}, domain.ErrOpponentBusy
	}

	battle, err := domain.NewBattle(e.newID(), quizID, challengerID, opponentID, domain.ChallengeDirect, e.now(), e.rules.ChallengeExpiry)
	if err != nil {
		return domain.Battle{}, err
	}
	if err := e.battles.CreateBattle(ctx, battle); err != nil {
		return domain.Battle{}, err
	}
	e.publishChallenge(ctx, battle)
	return battle, nil
}

// openQueueBattle turns two waiting entries into a pending queue battle. The earlier
// joiner challenges. It reports false when either player is no longer matchable.
func (e *BattleEngine) openQueueBattle(ctx context.Context, queue QueueStore, first, second domain.QueueEntry) (domain.Battle, bool, error) {
	for _, id := range []string{first.UserID, second.UserID} {
		busy, err := e.battles.HasOpenBattle(ctx, id)
		if err != nil {
			return domain.Battle{}, false, err
		}
		if busy {
			return domain.Battle{}, false, nil
		}
	}
	battle, err := domain.NewBattle(e.newID(), first.QuizID, first.UserID, second.UserID, domain.ChallengeQueue, e.now(), e.rules.QueueMatchExpiry)
	if err != nil {
		return domain.Battle{}, false, err
	}
	ok, err := queue.MatchPair(ctx, first.ID, second.ID, battle)
	if err != nil || !ok {
		return domain.Battle{}, false, err
	}
	e.publishChallenge(ctx, battle)
	return battle, true, nil
}

// AcceptChallenge starts a pending battle. Only the opponent may accept.
func (e *BattleEngine) AcceptChallenge(ctx context.Context, battleID, userID string) (domain.Battle, error) {
	battle, err := e.pendingForOpponent(ctx, battleID, userID)
	if err != nil {
		return domain.Battle{}, err
	}

	now := e.now()
	ok, err := e.battles.TransitionBattle(ctx, battleID, domain.BattlePending, domain.BattleActive, now)
	if err != nil {
		return domain.Battle{}, err
	}
	if !ok {
		return domain.Battle{}, e.pendingConflict(ctx, battleID)
	}
	battle.Status = domain.BattleActive
	battle.StartedAt = &now

	e.publish(ctx, domain.BattleStarted{
		BattleID:     battle.ID,
		ChallengerID: battle.ChallengerID,
		OpponentID:   battle.OpponentID,
		At:           now,
	})
	return battle, nil
}

// DeclineChallenge cancels a pending battle. Only the opponent may decline.
func (e *BattleEngine) DeclineChallenge(ctx context.Context, battleID, userID string) error {
	battle, err := e.pendingForOpponent(ctx, battleID, userID)
	if err != nil {
		return err
	}
	now := e.now()
	ok, err := e.battles.TransitionBattle(ctx, battleID, domain.BattlePending, domain.BattleCancelled, now)
	if err != nil {
		return err
	}
	if !ok {
		return e.pendingConflict(ctx, battleID)
	}
	e.publish(ctx, domain.ChallengeDeclined{
		BattleID:     battle.ID,
		ChallengerID: battle.ChallengerID,
		OpponentID:   battle.OpponentID,
		At:           now,
	})
	return nil
}

func (e *BattleEngine) pendingForOpponent(ctx context.Context, battleID, userID string) (domain.Battle, error) {
	if battleID == "" || userID == "" {
		return domain.Battle{}, domain.ErrMissingID
	}
	battle, err := e.battles.GetBattle(ctx, battleID)
	if err != nil {
		return domain.Battle{}, err
	}
	if battle.OpponentID != userID {
		return domain.Battle{}, domain.ErrNotOpponent
	}
	if battle.Status != domain.BattlePending {
		if battle.Status == domain.BattleExpired {
			return domain.Battle{}, domain.ErrChallengeExpired
		}
		return domain.Battle{}, domain.ErrBattleNotPending
	}
	if !e.now().Before(battle.ExpiresAt) {
		if _, err := e.expire(ctx, battle); err != nil {
			return domain.Battle{}, err
		}
		return domain.Battle{}, domain.ErrChallengeExpired
	}
	return battle, nil
}

// pendingConflict explains a lost pending CAS by rereading the battle.
func (e *BattleEngine) pendingConflict(ctx context.Context, battleID string) error {
	current, err := e.battles.GetBattle(ctx, battleID)
	if err != nil {
		return err
	}
	if current.Status == domain.BattleExpired {
		return domain.ErrChallengeExpired
	}
	return domain.ErrBattleNotPending
}

func (e *BattleEngine) expire(ctx context.Context, battle domain.Battle) (bool, error) {
	now := e.now()
	ok, err := e.battles.TransitionBattle(ctx, battle.ID, domain.BattlePending, domain.BattleExpired, now)
	if err != nil || !ok {
		return false, err
	}
	e.publish(ctx, domain.ChallengeExpired{
		BattleID:     battle.ID,
		ChallengerID: battle.ChallengerID,
		OpponentID:   battle.OpponentID,
		At:           now,
	})
	return true, nil
}

// Submission is one answer sent by a player.
type Submission struct {
	BattleID   string  `json:"battleId"`
	UserID     string  `json:"userId"`
	QuestionID string  `json:"questionId"`
	Answer     string  `json:"answer"`
	TimeTaken  float64 `json:"timeTaken"`
}

// AnswerResult is what the player learns after answering.
type AnswerResult struct {
	Entry         domain.ProgressEntry `json:"entry"`
	CorrectAnswer string               `json:"correctAnswer"`
	TotalScore    int                  `json:"totalScore"`
	Answered      int                  `json:"answered"`
	Remaining     int                  `json:"remaining"`
	// Battle is set once this answer completed the battle.
	Battle *domain.Battle `json:"battle,omitempty"`
}

// SubmitAnswer records an answer and completes the battle once both players are done.
func (e *BattleEngine) SubmitAnswer(ctx context.Context, sub Submission) (AnswerResult, error) {
	if sub.BattleID == "" || sub.UserID == "" || sub.QuestionID == "" {
		return AnswerResult{}, domain.ErrMissingID
	}
	if math.IsNaN(sub.TimeTaken) || math.IsInf(sub.TimeTaken, 0) {
		return AnswerResult{}, domain.ErrInvalidAnswer
	}
	battle, err := e.battles.GetBattle(ctx, sub.BattleID)
	if err != nil {
		return AnswerResult{}, err
	}
	if !battle.IsParticipant(sub.UserID) {
		return AnswerResult{}, domain.ErrNotParticipant
	}
	if battle.Status != domain.BattleActive {
		return AnswerResult{}, domain.ErrBattleNotActive
	}
	if e.timedOut(battle) {
		if _, err := e.complete(ctx, battle.ID, true); err != nil && !errors.Is(err, domain.ErrBattleNotActive) {
			return AnswerResult{}, err
		}
		return AnswerResult{}, domain.ErrBattleTimedOut
	}

	quiz, err := e.quizzes.GetQuiz(ctx, battle.QuizID)
	if err != nil {
		return AnswerResult{}, err
	}
	questions := quiz.BattleQuestions(e.rules.MaxQuestions)
	question, ok := findQuestion(questions, sub.QuestionID)
	if !ok {
		return AnswerResult{}, domain.ErrQuestionNotInQuiz
	}

	timeTaken := sub.TimeTaken
	if timeTaken < 0 {
		timeTaken = 0
	}
	correct := question.IsCorrect(sub.Answer)
	entry, err := e.battles.RecordAnswer(ctx, domain.ProgressEntry{
		BattleID:   battle.ID,
		UserID:     sub.UserID,
		QuestionID: question.ID,
		Answer:     sub.Answer,
		Correct:    correct,
		Points:     scoring.AnswerPoints(correct, timeTaken, e.rules),
		TimeTaken:  timeTaken,
		AnsweredAt: e.now(),
	})
	if err != nil {
		return AnswerResult{}, err
	}

	progress, err := e.battles.ListProgress(ctx, battle.ID)
	if err != nil {
		return AnswerResult{}, err
	}
	counts := make(map[string]int, 2)
	score := 0
	for _, p := range progress {
		counts[p.UserID]++
		if p.UserID == sub.UserID {
			score += p.Points
		}
	}

	result := AnswerResult{
		Entry:      entry,
		TotalScore: score,
		Answered:   counts[sub.UserID],
		Remaining:  max(0, len(questions)-counts[sub.UserID]),
	}
	if len(question.Answers) > 0 {
		result.CorrectAnswer = question.Answers[0]
	}

	if counts[battle.ChallengerID] >= len(questions) && counts[battle.OpponentID] >= len(questions) {
		completed, err := e.complete(ctx, battle.ID, false)
		switch {
		case err == nil:
			result.Battle = &completed
		case errors.Is(err, domain.ErrBattleNotActive):
			// the other player's final answer completed it
			if current, err := e.battles.GetBattle(ctx, battle.ID); err == nil && current.Status == domain.BattleCompleted {
				result.Battle = &current
			}
		default:
			return AnswerResult{}, err
		}
	}
	return result, nil
}

// CompleteBattle scores an active battle, applies ratings, stats and badges atomically.
func (e *BattleEngine) CompleteBattle(ctx context.Context, battleID string) (domain.Battle, error) {
	if battleID == "" {
		return domain.Battle{}, domain.ErrMissingID
	}
	return e.complete(ctx, battleID, false)
}

func (e *BattleEngine) complete(ctx context.Context, battleID string, timedOut bool) (domain.Battle, error) {
	now := e.now()
	settlement, err := e.battles.CompleteBattle(ctx, battleID, func(in domain.SettlementInput) (domain.Settlement, error) {
		return e.settle(in, now), nil
	})
	if err != nil {
		return domain.Battle{}, err
	}

	b := settlement.Battle
	event := domain.BattleCompletedEvent{
		BattleID: b.ID,
		QuizID:   b.QuizID,
		WinnerID: b.WinnerID,
		LoserID:  b.LoserID(),
		TimedOut: timedOut,
		At:       now,
	}
	if b.WinnerID == b.ChallengerID {
		event.WinnerScore, event.LoserScore = b.ChallengerScore, b.OpponentScore
		event.WinnerDelta, event.LoserDelta = b.ChallengerRatingChange, b.OpponentRatingChange
	} else {
		event.WinnerScore, event.LoserScore = b.OpponentScore, b.ChallengerScore
		event.WinnerDelta, event.LoserDelta = b.OpponentRatingChange, b.ChallengerRatingChange
	}
	for _, s := range settlement.Stats {
		switch s.UserID {
		case event.WinnerID:
			event.WinnerRating = s.Rating
		case event.LoserID:
			event.LoserRating = s.Rating
		}
	}
	event.WinnerName = e.displayName(ctx, event.WinnerID)
	event.LoserName = e.displayName(ctx, event.LoserID)

	e.logger.Info("battle completed",
		"battle_id", b.ID, "winner", b.WinnerID,
		"challenger_score", b.ChallengerScore, "opponent_score", b.OpponentScore,
		"timed_out", timedOut)
	e.publish(ctx, event)
	for _, award := range settlement.Awards {
		e.publish(ctx, domain.BadgeEarned{
			UserID:   award.UserID,
			Badge:    award.Badge,
			Points:   e.rules.BadgePoints(award.Badge),
			BattleID: b.ID,
			At:       award.EarnedAt,
		})
	}
	return b, nil
}

// settle is the pure completion step. Ties go to the challenger.
func (e *BattleEngine) settle(in domain.SettlementInput, now time.Time) domain.Settlement {
	b := in.Battle
	challengerAnswers := in.PlayerProgress(b.ChallengerID)
	opponentAnswers := in.PlayerProgress(b.OpponentID)

	var challengerCorrect, opponentCorrect int
	b.ChallengerScore, challengerCorrect = scoring.Tally(challengerAnswers)
	b.OpponentScore, opponentCorrect = scoring.Tally(opponentAnswers)
	b.ChallengerAccuracy = scoring.Accuracy(challengerCorrect, len(challengerAnswers))
	b.OpponentAccuracy = scoring.Accuracy(opponentCorrect, len(opponentAnswers))

	winnerID, loserID := b.ChallengerID, b.OpponentID
	winnerAnswers, loserAnswers := challengerAnswers, opponentAnswers
	winnerScore, loserScore := b.ChallengerScore, b.OpponentScore
	if b.OpponentScore > b.ChallengerScore {
		winnerID, loserID = loserID, winnerID
		winnerAnswers, loserAnswers = loserAnswers, winnerAnswers
		winnerScore, loserScore = loserScore, winnerScore
	}

	winner := e.statsFor(in, winnerID)
	loser := e.statsFor(in, loserID)
	winnerDelta, loserDelta := rating.EloDelta(winner.Rating, loser.Rating, e.rules.KFactor)
	winner.Rating += winnerDelta
	loser.Rating += loserDelta

	winner.RecordWin(now)
	loser.RecordLoss(now)
	winner.RecordAnswers(winnerAnswers)
	loser.RecordAnswers(loserAnswers)
	winner.AddPoints(winnerScore)
	loser.AddPoints(loserScore)

	winnerBase, loserBase := winner.TotalPoints, loser.TotalPoints
	awards := e.badges.Evaluate(&winner, domain.BattleSnapshot{
		BattleID:        b.ID,
		Answers:         winnerAnswers,
		DirectOpponents: in.DirectOpponents[winnerID],
	}, in.Held[winnerID], now)
	awards = append(awards, e.badges.Evaluate(&loser, domain.BattleSnapshot{
		BattleID:        b.ID,
		Answers:         loserAnswers,
		DirectOpponents: in.DirectOpponents[loserID],
	}, in.Held[loserID], now)...)
	winnerPoints := winnerScore + winner.TotalPoints - winnerBase
	loserPoints := loserScore + loser.TotalPoints - loserBase

	b.Status = domain.BattleCompleted
	b.CompletedAt = &now
	b.WinnerID = winnerID
	if winnerID == b.ChallengerID {
		b.ChallengerResult, b.OpponentResult = domain.ResultWon, domain.ResultLost
		b.ChallengerPoints, b.OpponentPoints = winnerPoints, loserPoints
		b.ChallengerRatingChange, b.OpponentRatingChange = winnerDelta, loserDelta
	} else {
		b.ChallengerResult, b.OpponentResult = domain.ResultLost, domain.ResultWon
		b.ChallengerPoints, b.OpponentPoints = loserPoints, winnerPoints
		b.ChallengerRatingChange, b.OpponentRatingChange = loserDelta, winnerDelta
	}

	return domain.Settlement{
		Battle: b,
		Stats:  []domain.UserStats{winner, loser},
		Awards: awards,
	}
}

func (e *BattleEngine) statsFor(in domain.SettlementInput, userID string) domain.UserStats {
	if s, ok := in.Stats[userID]; ok {
		return s
	}
	return domain.NewUserStats(userID, e.rules.DefaultRating)
}

// ExpireChallenges moves every overdue pending battle to expired.
func (e *BattleEngine) ExpireChallenges(ctx context.Context) (int, error) {
	pending, err := e.battles.ListBattlesByStatus(ctx, domain.BattlePending, sweepBatchSize)
	if err != nil {
		return 0, err
	}
	now := e.now()
	expired := 0
	for _, b := range pending {
		if now.Before(b.ExpiresAt) {
			continue
		}
		ok, err := e.expire(ctx, b)
		if err != nil {
			return expired, err
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

// ForceCompleteStale completes active battles older than the battle timeout using
// whatever answers exist.
func (e *BattleEngine) ForceCompleteStale(ctx context.Context) (int, error) {
	active, err := e.battles.ListBattlesByStatus(ctx, domain.BattleActive, sweepBatchSize)
	if err != nil {
		return 0, err
	}
	completed := 0
	for _, b := range active {
		if !e.timedOut(b) {
			continue
		}
		if _, err := e.complete(ctx, b.ID, true); err != nil {
			if errors.Is(err, domain.ErrBattleNotActive) {
				continue
			}
			return completed, err
		}
		completed++
	}
	return completed, nil
}

func (e *BattleEngine) timedOut(b domain.Battle) bool {
	if b.Status != domain.BattleActive || b.StartedAt == nil || e.rules.BattleTimeout <= 0 {
		return false
	}
	return !e.now().Before(b.StartedAt.Add(e.rules.BattleTimeout))
}

// PlayerProgress is one side of the battle sync view.
type PlayerProgress struct {
	UserID   string `json:"userId"`
	Answered int    `json:"answered"`
	Correct  int    `json:"correct"`
	Score    int    `json:"score"`
}

// BattleView is what a polling client sees.
type BattleView struct {
	Battle          domain.Battle         `json:"battle"`
	Questions       []domain.QuestionView `json:"questions"`
	Challenger      PlayerProgress        `json:"challenger"`
	Opponent        PlayerProgress        `json:"opponent"`
	CurrentQuestion int                   `json:"currentQuestion"`
	TimeRemaining   float64               `json:"timeRemaining"`
}

// BattleStatus returns the sync view for a participant, applying any overdue
// expiry or timeout first.
func (e *BattleEngine) BattleStatus(ctx context.Context, battleID, userID string) (BattleView, error) {
	if battleID == "" || userID == "" {
		return BattleView{}, domain.ErrMissingID
	}
	battle, err := e.battles.GetBattle(ctx, battleID)
	if err != nil {
		return BattleView{}, err
	}
	if !battle.IsParticipant(userID) {
		return BattleView{}, domain.ErrNotParticipant
	}

	switch {
	case battle.Status == domain.BattlePending && !e.now().Before(battle.ExpiresAt):
		if _, err := e.expire(ctx, battle); err != nil {
			return BattleView{}, err
		}
	case e.timedOut(battle):
		if _, err := e.complete(ctx, battle.ID, true); err != nil && !errors.Is(err, domain.ErrBattleNotActive) {
			return BattleView{}, err
		}
	}
	if battle, err = e.battles.GetBattle(ctx, battleID); err != nil {
		return BattleView{}, err
	}

	quiz, err := e.quizzes.GetQuiz(ctx, battle.QuizID)
	if err != nil {
		return BattleView{}, err
	}
	questions := quiz.BattleQuestions(e.rules.MaxQuestions)
	progress, err := e.battles.ListProgress(ctx, battle.ID)
	if err != nil {
		return BattleView{}, err
	}

	view := BattleView{
		Battle:     battle,
		Questions:  make([]domain.QuestionView, 0, len(questions)),
		Challenger: PlayerProgress{UserID: battle.ChallengerID},
		Opponent:   PlayerProgress{UserID: battle.OpponentID},
	}
	for _, q := range questions {
		view.Questions = append(view.Questions, q.View())
	}
	for _, p := range progress {
		side := &view.Challenger
		if p.UserID == battle.OpponentID {
			side = &view.Opponent
		}
		side.Answered++
		side.Score += p.Points
		if p.Correct {
			side.Correct++
		}
	}
	mine := view.Challenger
	if userID == battle.OpponentID {
		mine = view.Opponent
	}
	view.CurrentQuestion = min(mine.Answered+1, len(questions))

	now := e.now()
	switch battle.Status {
	case domain.BattlePending:
		view.TimeRemaining = math.Max(0, battle.ExpiresAt.Sub(now).Seconds())
	case domain.BattleActive:
		if battle.StartedAt != nil {
			view.TimeRemaining = math.Max(0, battle.StartedAt.Add(e.rules.BattleTimeout).Sub(now).Seconds())
		}
	}
	return view, nil
}

// BattleResult returns a battle and every answer given in it.
func (e *BattleEngine) BattleResult(ctx context.Context, battleID, userID string) (domain.Battle, []domain.ProgressEntry, error) {
	battle, err := e.battles.GetBattle(ctx, battleID)
	if err != nil {
		return domain.Battle{}, nil, err
	}
	if !battle.IsParticipant(userID) {
		return domain.Battle{}, nil, domain.ErrNotParticipant
	}
	progress, err := e.battles.ListProgress(ctx, battleID)
	if err != nil {
		return domain.Battle{}, nil, err
	}
	return battle, progress, nil
}

func (e *BattleEngine) UserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	if userID == "" {
		return domain.UserStats{}, domain.ErrMissingID
	}
	return e.battles.GetStats(ctx, userID)
}

func (e *BattleEngine) UserBadges(ctx context.Context, userID string) ([]domain.BadgeAward, error) {
	if userID == "" {
		return nil, domain.ErrMissingID
	}
	return e.battles.ListBadges(ctx, userID)
}

// BadgeProgress lists every badge with the player's progress toward it.
func (e *BattleEngine) BadgeProgress(ctx context.Context, userID string) ([]BadgeProgress, error) {
	stats, err := e.UserStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	awards, err := e.battles.ListBadges(ctx, userID)
	if err != nil {
		return nil, err
	}
	opponents, err := e.battles.CountDirectOpponents(ctx, userID)
	if err != nil {
		return nil, err
	}
	held := make(map[domain.BadgeKind]bool, len(awards))
	for _, a := range awards {
		held[a.Badge] = true
	}
	return e.badges.Progress(stats, opponents, held), nil
}

// AddUserPoints applies an administrative point adjustment.
func (e *BattleEngine) AddUserPoints(ctx context.Context, userID string, points int) (domain.UserStats, error) {
	if userID == "" {
		return domain.UserStats{}, domain.ErrMissingID
	}
	return e.battles.AddPoints(ctx, userID, points)
}

// LeaderboardEntry is one ranked row of the rating leaderboard.
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"userId"`
	DisplayName string  `json:"displayName"`
	Rating      int     `json:"rating"`
	TotalPoints int     `json:"totalPoints"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Battles     int     `json:"battles"`
	WinRate     float64 `json:"winRate"`
}

// Leaderboard ranks players by rating, then total points.
func (e *BattleEngine) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := e.battles.TopStats(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]LeaderboardEntry, 0, len(rows))
	for i, s := range rows {
		out = append(out, LeaderboardEntry{
			Rank:        i + 1,
			UserID:      s.UserID,
			DisplayName: e.displayName(ctx, s.UserID),
			Rating:      s.Rating,
			TotalPoints: s.TotalPoints,
			Wins:        s.Wins,
			Losses:      s.Losses,
			Battles:     s.TotalBattles,
			WinRate:     scoring.Accuracy(s.Wins, s.TotalBattles),
		})
	}
	return out, nil
}

func (e *BattleEngine) requireAccess(ctx context.Context, quizID string, userIDs ...string) error {
	for _, id := range userIDs {
		ok, err := e.quizzes.UserHasQuizAccess(ctx, id, quizID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNoQuizAccess
		}
	}
	return nil
}

func (e *BattleEngine) displayName(ctx context.Context, userID string) string {
	if userID == "" {
		return ""
	}
	user, err := e.users.GetUser(ctx, userID)
	if err != nil {
		return ""
	}
	return user.DisplayName
}

func (e *BattleEngine) publishChallenge(ctx context.Context, b domain.Battle) {
	e.publish(ctx, domain.ChallengeCreated{
		BattleID:      b.ID,
		ChallengerID:  b.ChallengerID,
		OpponentID:    b.OpponentID,
		QuizID:        b.QuizID,
		ChallengeType: b.ChallengeType,
		ExpiresAt:     b.ExpiresAt,
		At:            b.CreatedAt,
	})
}

func (e *BattleEngine) publish(ctx context.Context, event domain.Event) {
	if e.events == nil {
		return
	}
	if err := e.events.Publish(ctx, event); err != nil {
		e.logger.Warn("event publish failed", "event", event.Kind(), "error", err)
	}
}

func findQuestion(questions []domain.Question, id string) (domain.Question, bool) {
	for _, q := range questions {
		if q.ID == id {
			return q, true
		}
	}
	return domain.Question{}, false
}

package domain

import (
	"strings"
	"time"
)

// BattleStatus is the lifecycle state of a battle.
type BattleStatus string

const (
	BattlePending   BattleStatus = "pending"
	BattleActive    BattleStatus = "active"
	BattleCompleted BattleStatus = "completed"
	BattleCancelled BattleStatus = "cancelled"
	BattleExpired   BattleStatus = "expired"
)

// CanTransition reports whether a battle in status s may move to next.
func (s BattleStatus) CanTransition(next BattleStatus) bool {
	switch s {
	case BattlePending:
		return next == BattleActive || next == BattleCancelled || next == BattleExpired
	case BattleActive:
		return next == BattleCompleted
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible.
func (s BattleStatus) Terminal() bool {
	return s == BattleCompleted || s == BattleCancelled || s == BattleExpired
}

// ChallengeType records how a battle came to be.
type ChallengeType string

const (
	ChallengeDirect ChallengeType = "direct"
	ChallengeQueue  ChallengeType = "queue"
)

// Result is a player's outcome in a completed battle.
type Result string

const (
	ResultWon  Result = "won"
	ResultLost Result = "lost"
	ResultDraw Result = "draw"
)

// Battle is one 1v1 contest.
type Battle struct {
	ID            string        `json:"id"`
	QuizID        string        `json:"quizId"`
	ChallengerID  string        `json:"challengerId"`
	OpponentID    string        `json:"opponentId"`
	Status        BattleStatus  `json:"status"`
	ChallengeType ChallengeType `json:"challengeType"`

	ChallengerScore        int     `json:"challengerScore"`
	OpponentScore          int     `json:"opponentScore"`
	ChallengerAccuracy     float64 `json:"challengerAccuracy"`
	OpponentAccuracy       float64 `json:"opponentAccuracy"`
	ChallengerResult       Result  `json:"challengerResult,omitempty"`
	OpponentResult         Result  `json:"opponentResult,omitempty"`
	ChallengerPoints       int     `json:"challengerPoints"`
	OpponentPoints         int     `json:"opponentPoints"`
	ChallengerRatingChange int     `json:"challengerRatingChange"`
	OpponentRatingChange   int     `json:"opponentRatingChange"`
	WinnerID               string  `json:"winnerId,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	ExpiresAt   time.Time  `json:"expiresAt"`
}

// NewBattle builds a pending battle that expires after ttl.
func NewBattle(id, quizID, challengerID, opponentID string, kind ChallengeType, now time.Time, ttl time.Duration) (Battle, error) {
	if id == "" || quizID == "" || challengerID == "" || opponentID == "" {
		return Battle{}, ErrMissingID
	}
	if challengerID == opponentID {
		return Battle{}, ErrSelfChallenge
	}
	if kind != ChallengeDirect && kind != ChallengeQueue {
		return Battle{}, ErrInvalidQueue
	}
	return Battle{
		ID:            id,
		QuizID:        quizID,
		ChallengerID:  challengerID,
		OpponentID:    opponentID,
		Status:        BattlePending,
		ChallengeType: kind,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
	}, nil
}

// IsParticipant reports whether userID plays in the battle.
func (b Battle) IsParticipant(userID string) bool {
	return userID != "" && (userID == b.ChallengerID || userID == b.OpponentID)
}

// OtherPlayer returns the participant that is not userID.
func (b Battle) OtherPlayer(userID string) string {
	if userID == b.ChallengerID {
		return b.OpponentID
	}
	return b.ChallengerID
}

// LoserID is empty until the battle is completed.
func (b Battle) LoserID() string {
	if b.WinnerID == "" {
		return ""
	}
	return b.OtherPlayer(b.WinnerID)
}

// ProgressEntry is one player's answer to one question within one battle.
type ProgressEntry struct {
	BattleID      string    `json:"battleId"`
	UserID        string    `json:"userId"`
	QuestionID    string    `json:"questionId"`
	QuestionOrder int       `json:"questionOrder"`
	Answer        string    `json:"answer"`
	Correct       bool      `json:"correct"`
	Points        int       `json:"points"`
	TimeTaken     float64   `json:"timeTaken"`
	AnsweredAt    time.Time `json:"answeredAt"`
}

// UserStats is the cumulative per-player aggregate.
type UserStats struct {
	UserID            string     `json:"userId"`
	TotalBattles      int        `json:"totalBattles"`
	Wins              int        `json:"wins"`
	Losses            int        `json:"losses"`
	Draws             int        `json:"draws"`
	TotalPoints       int        `json:"totalPoints"`
	Rating            int        `json:"rating"`
	WinStreak         int        `json:"winStreak"`
	BestWinStreak     int        `json:"bestWinStreak"`
	QuestionsAnswered int        `json:"questionsAnswered"`
	CorrectAnswers    int        `json:"correctAnswers"`
	AvgAnswerTime     float64    `json:"avgAnswerTime"`
	LastBattleAt      *time.Time `json:"lastBattleAt,omitempty"`
}

// NewUserStats returns the row a user has before their first battle.
func NewUserStats(userID string, rating int) UserStats {
	return UserStats{UserID: userID, Rating: rating}
}

// RecordWin counts a won battle and extends the streak.
func (s *UserStats) RecordWin(at time.Time) {
	s.TotalBattles++
	s.Wins++
	s.WinStreak++
	if s.WinStreak > s.BestWinStreak {
		s.BestWinStreak = s.WinStreak
	}
	s.LastBattleAt = &at
}

// RecordLoss counts a lost battle and resets the streak.
func (s *UserStats) RecordLoss(at time.Time) {
	s.TotalBattles++
	s.Losses++
	s.WinStreak = 0
	s.LastBattleAt = &at
}

// RecordAnswers folds one battle's answers into the running totals.
func (s *UserStats) RecordAnswers(entries []ProgressEntry) {
	if len(entries) == 0 {
		return
	}
	var correct int
	var elapsed float64
	for _, e := range entries {
		if e.Correct {
			correct++
		}
		elapsed += clampTime(e.TimeTaken)
	}
	total := s.AvgAnswerTime*float64(s.QuestionsAnswered) + elapsed
	s.QuestionsAnswered += len(entries)
	s.CorrectAnswers += correct
	s.AvgAnswerTime = total / float64(s.QuestionsAnswered)
}

// AddPoints adjusts the point total, never below zero.
func (s *UserStats) AddPoints(points int) {
	s.TotalPoints += points
	if s.TotalPoints < 0 {
		s.TotalPoints = 0
	}
}

// WinRate is the won share of all battles as a percentage.
func (s UserStats) WinRate() float64 {
	if s.TotalBattles == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.TotalBattles) * 100
}

func clampTime(t float64) float64 {
	if t < 0 {
		return 0
	}
	return t
}

// QueueType selects how a waiting player wants to be paired.
type QueueType string

const (
	QueueRandom QueueType = "random"
	QueueSkill  QueueType = "skill"
)

// Valid reports whether t is a known queue type.
func (t QueueType) Valid() bool {
	return t == QueueRandom || t == QueueSkill
}

// QueueStatus is the lifecycle state of a queue entry.
type QueueStatus string

const (
	QueueWaiting   QueueStatus = "waiting"
	QueueMatched   QueueStatus = "matched"
	QueueCancelled QueueStatus = "cancelled"
	QueueExpired   QueueStatus = "expired"
)

// QueueEntry is one player's pending matchmaking request.
type QueueEntry struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	QuizID    string      `json:"quizId"`
	QueueType QueueType   `json:"queueType"`
	Status    QueueStatus `json:"status"`
	JoinedAt  time.Time   `json:"joinedAt"`
	MatchedAt *time.Time  `json:"matchedAt,omitempty"`
	BattleID  string      `json:"battleId,omitempty"`
}

// NewQueueEntry builds a waiting entry.
func NewQueueEntry(id, userID, quizID string, kind QueueType, now time.Time) (QueueEntry, error) {
	if id == "" || userID == "" || quizID == "" {
		return QueueEntry{}, ErrMissingID
	}
	if !kind.Valid() {
		return QueueEntry{}, ErrInvalidQueue
	}
	return QueueEntry{
		ID:        id,
		UserID:    userID,
		QuizID:    quizID,
		QueueType: kind,
		Status:    QueueWaiting,
		JoinedAt:  now,
	}, nil
}

// QueueStats summarizes the matchmaking pool.
type QueueStats struct {
	Waiting         int            `json:"waiting"`
	WaitingByQuiz   map[string]int `json:"waitingByQuiz"`
	WaitingByType   map[string]int `json:"waitingByType"`
	MatchedLastHour int            `json:"matchedLastHour"`
	AvgWaitSeconds  float64        `json:"avgWaitSeconds"`
}

// BadgeAward records that a user has earned a badge.
type BadgeAward struct {
	UserID   string    `json:"userId"`
	Badge    BadgeKind `json:"badge"`
	EarnedAt time.Time `json:"earnedAt"`
}

// User is the identity view used to enrich events.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Question is one quiz question with its accepted answers.
type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Answers []string `json:"answers"`
}

// IsCorrect compares case-insensitively after trimming whitespace.
func (q Question) IsCorrect(answer string) bool {
	given := strings.TrimSpace(answer)
	if given == "" {
		return false
	}
	for _, accepted := range q.Answers {
		if strings.EqualFold(strings.TrimSpace(accepted), given) {
			return true
		}
	}
	return false
}

// Quiz is an ordered collection of questions.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Published bool       `json:"published"`
	Questions []Question `json:"questions"`
}

// BattleQuestions returns the questions played in a battle, at most limit of them.
func (q Quiz) BattleQuestions(limit int) []Question {
	if limit > 0 && len(q.Questions) > limit {
		return q.Questions[:limit]
	}
	return q.Questions
}

// QuestionView is a question without its answer key.
type QuestionView struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// View strips the answer key.
func (q Question) View() QuestionView {
	return QuestionView{ID: q.ID, Prompt: q.Prompt, Options: q.Options}
}

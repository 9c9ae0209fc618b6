package postgres

import (
	"time"

	"quiz-battle-arena/internal/domain"

	"github.com/uptrace/bun"
)

type battleRow struct {
	bun.BaseModel `bun:"table:battles"`

	ID            string `bun:"id,pk"`
	QuizID        string `bun:"quiz_id"`
	ChallengerID  string `bun:"challenger_id"`
	OpponentID    string `bun:"opponent_id"`
	Status        string `bun:"status"`
	ChallengeType string `bun:"challenge_type"`

	ChallengerScore        int     `bun:"challenger_score"`
	OpponentScore          int     `bun:"opponent_score"`
	ChallengerAccuracy     float64 `bun:"challenger_accuracy"`
	OpponentAccuracy       float64 `bun:"opponent_accuracy"`
	ChallengerResult       string  `bun:"challenger_result"`
	OpponentResult         string  `bun:"opponent_result"`
	ChallengerPoints       int     `bun:"challenger_points"`
	OpponentPoints         int     `bun:"opponent_points"`
	ChallengerRatingChange int     `bun:"challenger_rating_change"`
	OpponentRatingChange   int     `bun:"opponent_rating_change"`
	WinnerID               string  `bun:"winner_id"`

	CreatedAt   time.Time  `bun:"created_at"`
	StartedAt   *time.Time `bun:"started_at"`
	CompletedAt *time.Time `bun:"completed_at"`
	ExpiresAt   time.Time  `bun:"expires_at"`
}

func battleFromDomain(b domain.Battle) *battleRow {
	return &battleRow{
		ID:                     b.ID,
		QuizID:                 b.QuizID,
		ChallengerID:           b.ChallengerID,
		OpponentID:             b.OpponentID,
		Status:                 string(b.Status),
		ChallengeType:          string(b.ChallengeType),
		ChallengerScore:        b.ChallengerScore,
		OpponentScore:          b.OpponentScore,
		ChallengerAccuracy:     b.ChallengerAccuracy,
		OpponentAccuracy:       b.OpponentAccuracy,
		ChallengerResult:       string(b.ChallengerResult),
		OpponentResult:         string(b.OpponentResult),
		ChallengerPoints:       b.ChallengerPoints,
		OpponentPoints:         b.OpponentPoints,
		ChallengerRatingChange: b.ChallengerRatingChange,
		OpponentRatingChange:   b.OpponentRatingChange,
		WinnerID:               b.WinnerID,
		CreatedAt:              b.CreatedAt,
		StartedAt:              b.StartedAt,
		CompletedAt:            b.CompletedAt,
		ExpiresAt:              b.ExpiresAt,
	}
}

func (r *battleRow) toDomain() domain.Battle {
	return domain.Battle{
		ID:                     r.ID,
		QuizID:                 r.QuizID,
		ChallengerID:           r.ChallengerID,
		OpponentID:             r.OpponentID,
		Status:                 domain.BattleStatus(r.Status),
		ChallengeType:          domain.ChallengeType(r.ChallengeType),
		ChallengerScore:        r.ChallengerScore,
		OpponentScore:          r.OpponentScore,
		ChallengerAccuracy:     r.ChallengerAccuracy,
		OpponentAccuracy:       r.OpponentAccuracy,
		ChallengerResult:       domain.Result(r.ChallengerResult),
		OpponentResult:         domain.Result(r.OpponentResult),
		ChallengerPoints:       r.ChallengerPoints,
		OpponentPoints:         r.OpponentPoints,
		ChallengerRatingChange: r.ChallengerRatingChange,
		OpponentRatingChange:   r.OpponentRatingChange,
		WinnerID:               r.WinnerID,
		CreatedAt:              r.CreatedAt,
		StartedAt:              r.StartedAt,
		CompletedAt:            r.CompletedAt,
		ExpiresAt:              r.ExpiresAt,
	}
}

type progressRow struct {
	bun.BaseModel `bun:"table:battle_progress"`

	BattleID      string    `bun:"battle_id,pk"`
	UserID        string    `bun:"user_id,pk"`
	QuestionID    string    `bun:"question_id,pk"`
	QuestionOrder int       `bun:"question_order"`
	Answer        string    `bun:"answer"`
	Correct       bool      `bun:"correct"`
	Points        int       `bun:"points"`
	TimeTaken     float64   `bun:"time_taken"`
	AnsweredAt    time.Time `bun:"answered_at"`
}

func (r *progressRow) toDomain() domain.ProgressEntry {
	return domain.ProgressEntry{
		BattleID:      r.BattleID,
		UserID:        r.UserID,
		QuestionID:    r.QuestionID,
		QuestionOrder: r.QuestionOrder,
		Answer:        r.Answer,
		Correct:       r.Correct,
		Points:        r.Points,
		TimeTaken:     r.TimeTaken,
		AnsweredAt:    r.AnsweredAt,
	}
}

type statsRow struct {
	bun.BaseModel `bun:"table:user_stats"`

	UserID            string     `bun:"user_id,pk"`
	TotalBattles      int        `bun:"total_battles"`
	Wins              int        `bun:"wins"`
	Losses            int        `bun:"losses"`
	Draws             int        `bun:"draws"`
	TotalPoints       int        `bun:"total_points"`
	Rating            int        `bun:"rating"`
	WinStreak         int        `bun:"win_streak"`
	BestWinStreak     int        `bun:"best_win_streak"`
	QuestionsAnswered int        `bun:"questions_answered"`
	CorrectAnswers    int        `bun:"correct_answers"`
	AvgAnswerTime     float64    `bun:"avg_answer_time"`
	LastBattleAt      *time.Time `bun:"last_battle_at"`
}

func statsFromDomain(s domain.UserStats) statsRow {
	return statsRow{
		UserID:            s.UserID,
		TotalBattles:      s.TotalBattles,
		Wins:              s.Wins,
		Losses:            s.Losses,
		Draws:             s.Draws,
		TotalPoints:       s.TotalPoints,
		Rating:            s.Rating,
		WinStreak:         s.WinStreak,
		BestWinStreak:     s.BestWinStreak,
		QuestionsAnswered: s.QuestionsAnswered,
		CorrectAnswers:    s.CorrectAnswers,
		AvgAnswerTime:     s.AvgAnswerTime,
		LastBattleAt:      s.LastBattleAt,
	}
}

func (r *statsRow) toDomain() domain.UserStats {
	return domain.UserStats{
		UserID:            r.UserID,
		TotalBattles:      r.TotalBattles,
		Wins:              r.Wins,
		Losses:            r.Losses,
		Draws:             r.Draws,
		TotalPoints:       r.TotalPoints,
		Rating:            r.Rating,
		WinStreak:         r.WinStreak,
		BestWinStreak:     r.BestWinStreak,
		QuestionsAnswered: r.QuestionsAnswered,
		CorrectAnswers:    r.CorrectAnswers,
		AvgAnswerTime:     r.AvgAnswerTime,
		LastBattleAt:      r.LastBattleAt,
	}
}

type badgeRow struct {
	bun.BaseModel `bun:"table:badge_awards"`

	UserID   string    `bun:"user_id,pk"`
	Badge    string    `bun:"badge,pk"`
	EarnedAt time.Time `bun:"earned_at"`
}

type queueRow struct {
	bun.BaseModel `bun:"table:queue_entries"`

	ID        string     `bun:"id,pk"`
	UserID    string     `bun:"user_id"`
	QuizID    string     `bun:"quiz_id"`
	QueueType string     `bun:"queue_type"`
	Status    string     `bun:"status"`
	JoinedAt  time.Time  `bun:"joined_at"`
	MatchedAt *time.Time `bun:"matched_at"`
	BattleID  string     `bun:"battle_id"`
}

func (r *queueRow) toDomain() domain.QueueEntry {
	return domain.QueueEntry{
		ID:        r.ID,
		UserID:    r.UserID,
		QuizID:    r.QuizID,
		QueueType: domain.QueueType(r.QueueType),
		Status:    domain.QueueStatus(r.Status),
		JoinedAt:  r.JoinedAt,
		MatchedAt: r.MatchedAt,
		BattleID:  r.BattleID,
	}
}

package domain

import "time"

// EventKind names an event on the wire. Dispatch happens on the Go type, never on this string.
type EventKind string

const (
	EventChallengeCreated  EventKind = "challenge_created"
	EventChallengeDeclined EventKind = "challenge_declined"
	EventChallengeExpired  EventKind = "challenge_expired"
	EventBattleStarted     EventKind = "battle_started"
	EventBattleCompleted   EventKind = "battle_completed"
	EventBadgeEarned       EventKind = "badge_earned"
	EventQueueJoined       EventKind = "queue_joined"
	EventQueueMatched      EventKind = "queue_matched"
)

// Event is a battle lifecycle notification.
type Event interface {
	Kind() EventKind
	// Participants lists the users the event concerns.
	Participants() []string
	OccurredAt() time.Time
}

type ChallengeCreated struct {
	BattleID      string        `json:"battleId"`
	ChallengerID  string        `json:"challengerId"`
	OpponentID    string        `json:"opponentId"`
	QuizID        string        `json:"quizId"`
	ChallengeType ChallengeType `json:"challengeType"`
	ExpiresAt     time.Time     `json:"expiresAt"`
	At            time.Time     `json:"at"`
}

func (e ChallengeCreated) Kind() EventKind        { return EventChallengeCreated }
func (e ChallengeCreated) Participants() []string { return []string{e.ChallengerID, e.OpponentID} }
func (e ChallengeCreated) OccurredAt() time.Time  { return e.At }

type ChallengeDeclined struct {
	BattleID     string    `json:"battleId"`
	ChallengerID string    `json:"challengerId"`
	OpponentID   string    `json:"opponentId"`
	At           time.Time `json:"at"`
}

func (e ChallengeDeclined) Kind() EventKind        { return EventChallengeDeclined }
func (e ChallengeDeclined) Participants() []string { return []string{e.ChallengerID, e.OpponentID} }
func (e ChallengeDeclined) OccurredAt() time.Time  { return e.At }

type ChallengeExpired struct {
	BattleID     string    `json:"battleId"`
	ChallengerID string    `json:"challengerId"`
	OpponentID   string    `json:"opponentId"`
	At           time.Time `json:"at"`
}

func (e ChallengeExpired) Kind() EventKind        { return EventChallengeExpired }
func (e ChallengeExpired) Participants() []string { return []string{e.ChallengerID, e.OpponentID} }
func (e ChallengeExpired) OccurredAt() time.Time  { return e.At }

type BattleStarted struct {
	BattleID     string    `json:"battleId"`
	ChallengerID string    `json:"challengerId"`
	OpponentID   string    `json:"opponentId"`
	At           time.Time `json:"at"`
}

func (e BattleStarted) Kind() EventKind        { return EventBattleStarted }
func (e BattleStarted) Participants() []string { return []string{e.ChallengerID, e.OpponentID} }
func (e BattleStarted) OccurredAt() time.Time  { return e.At }

// BattleCompletedEvent carries the full result for downstream consumers.
type BattleCompletedEvent struct {
	BattleID     string    `json:"battleId"`
	QuizID       string    `json:"quizId"`
	WinnerID     string    `json:"winnerId"`
	LoserID      string    `json:"loserId"`
	WinnerName   string    `json:"winnerName,omitempty"`
	LoserName    string    `json:"loserName,omitempty"`
	WinnerScore  int       `json:"winnerScore"`
	LoserScore   int       `json:"loserScore"`
	WinnerRating int       `json:"winnerRating"`
	LoserRating  int       `json:"loserRating"`
	WinnerDelta  int       `json:"winnerDelta"`
	LoserDelta   int       `json:"loserDelta"`
	TimedOut     bool      `json:"timedOut"`
	At           time.Time `json:"at"`
}

func (e BattleCompletedEvent) Kind() EventKind   { return EventBattleCompleted }
func (e BattleCompletedEvent) Participants() []string { return []string{e.WinnerID, e.LoserID} }
func (e BattleCompletedEvent) OccurredAt() time.Time  { return e.At }

type BadgeEarned struct {
	UserID   string    `json:"userId"`
	Badge    BadgeKind `json:"badgeId"`
	Points   int       `json:"points"`
	BattleID string    `json:"battleId"`
	At       time.Time `json:"at"`
}

func (e BadgeEarned) Kind() EventKind        { return EventBadgeEarned }
func (e BadgeEarned) Participants() []string { return []string{e.UserID} }
func (e BadgeEarned) OccurredAt() time.Time  { return e.At }

type QueueJoined struct {
	EntryID   string    `json:"entryId"`
	UserID    string    `json:"userId"`
	QuizID    string    `json:"quizId"`
	QueueType QueueType `json:"queueType"`
	At        time.Time `json:"at"`
}

func (e QueueJoined) Kind() EventKind        { return EventQueueJoined }
func (e QueueJoined) Participants() []string { return []string{e.UserID} }
func (e QueueJoined) OccurredAt() time.Time  { return e.At }

type QueueMatchedEvent struct {
	BattleID string    `json:"battleId"`
	QuizID   string    `json:"quizId"`
	Players  []string  `json:"players"`
	Score    int       `json:"matchScore"`
	At       time.Time `json:"at"`
}

func (e QueueMatchedEvent) Kind() EventKind   { return EventQueueMatched }
func (e QueueMatchedEvent) Participants() []string { return e.Players }
func (e QueueMatchedEvent) OccurredAt() time.Time  { return e.At }

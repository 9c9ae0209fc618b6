package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the wire form of an event on every transport.
type Envelope struct {
	Type EventKind `json:"type"`
	// Source identifies the publishing instance so relays can skip their own events.
	Source  string          `json:"source,omitempty"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeEvent wraps e in an Envelope and marshals it.
func EncodeEvent(e Event, source string) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Kind(), err)
	}
	return json.Marshal(Envelope{Type: e.Kind(), Source: source, At: e.OccurredAt(), Payload: payload})
}

// DecodeEvent reverses EncodeEvent.
func DecodeEvent(data []byte) (Event, Envelope, error) {
	var env Envelope
	err := json.Unmarshal(data, &env)
	if err != nil {
		return nil, env, fmt.Errorf("decode envelope: %w", err)
	}
	var event Event
	switch env.Type {
	case EventChallengeCreated:
		event = decodeAs[ChallengeCreated](env.Payload, &err)
	case EventChallengeDeclined:
		event = decodeAs[ChallengeDeclined](env.Payload, &err)
	case EventChallengeExpired:
		event = decodeAs[ChallengeExpired](env.Payload, &err)
	case EventBattleStarted:
		event = decodeAs[BattleStarted](env.Payload, &err)
	case EventBattleCompleted:
		event = decodeAs[BattleCompletedEvent](env.Payload, &err)
	case EventBadgeEarned:
		event = decodeAs[BadgeEarned](env.Payload, &err)
	case EventQueueJoined:
		event = decodeAs[QueueJoined](env.Payload, &err)
	case EventQueueMatched:
		event = decodeAs[QueueMatchedEvent](env.Payload, &err)
	default:
		return nil, env, fmt.Errorf("%w: unknown event type %q", ErrValidation, env.Type)
	}
	if err != nil {
		return nil, env, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return event, env, nil
}

func decodeAs[T Event](raw json.RawMessage, errp *error) Event {
	var v T
	*errp = json.Unmarshal(raw, &v)
	return v
}

package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"quiz-battle-arena/internal/app"
	"quiz-battle-arena/internal/domain"

	"github.com/gorilla/websocket"
)

// EventSource hands out per-user event streams.
type EventSource interface {
	Subscribe(userID string) (<-chan domain.Event, func())
}

type WSHandler struct {
	engine   *app.BattleEngine
	matcher  *app.QueueMatcher
	events   EventSource
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *app.BattleEngine, matcher *app.QueueMatcher, events EventSource, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		engine:  engine,
		matcher: matcher,
		events:  events,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type commandPayload struct {
	BattleID   string           `json:"battleId"`
	QuizID     string           `json:"quizId"`
	OpponentID string           `json:"opponentId"`
	QuestionID string           `json:"questionId"`
	Answer     string           `json:"answer"`
	TimeTaken  float64          `json:"timeTaken"`
	QueueType  domain.QueueType `json:"queueType"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ServeWS upgrades the request and relays the user's battle events while accepting battle commands.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.events.Subscribe(userID)
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer; gorilla connections do not allow concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write failed", "user_id", userID, "error", err)
				// unblock the read loop too
				_ = conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case event, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: string(event.Kind()), Payload: event}:
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	if enqueue(send, writerDone, outboundMessage{Type: "connected", Payload: map[string]string{"userId": userID}}) {
		for {
			var inbound inboundMessage
			if err := conn.ReadJSON(&inbound); err != nil {
				break
			}
			var cmd commandPayload
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &cmd); err != nil {
					if !enqueue(send, writerDone, errorMessage(domain.ErrValidation)) {
						break
					}
					continue
				}
			}
			if !enqueue(send, writerDone, h.dispatch(r.Context(), userID, inbound.Type, cmd)) {
				break
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// enqueue hands msg to the writer and reports false once the writer has stopped.
func enqueue(send chan<- outboundMessage, writerDone <-chan struct{}, msg outboundMessage) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

func (h *WSHandler) dispatch(ctx context.Context, userID, kind string, cmd commandPayload) outboundMessage {
	var (
		result any
		err    error
	)
	switch kind {
	case "challenge":
		result, err = h.engine.CreateChallenge(ctx, cmd.QuizID, userID, cmd.OpponentID)
	case "accept":
		result, err = h.engine.AcceptChallenge(ctx, cmd.BattleID, userID)
	case "decline":
		err = h.engine.DeclineChallenge(ctx, cmd.BattleID, userID)
		result = map[string]string{"battleId": cmd.BattleID}
	case "answer":
		result, err = h.engine.SubmitAnswer(ctx, app.Submission{
			BattleID:   cmd.BattleID,
			UserID:     userID,
			QuestionID: cmd.QuestionID,
			Answer:     cmd.Answer,
			TimeTaken:  cmd.TimeTaken,
		})
	case "status":
		result, err = h.engine.BattleStatus(ctx, cmd.BattleID, userID)
	case "joinQueue":
		queueType := cmd.QueueType
		if queueType == "" {
			queueType = domain.QueueRandom
		}
		result, err = h.matcher.JoinQueue(ctx, userID, cmd.QuizID, queueType)
	case "leaveQueue":
		var left bool
		left, err = h.matcher.LeaveQueue(ctx, userID)
		result = map[string]bool{"left": left}
	default:
		return outboundMessage{Type: "error", Payload: errorPayload{Code: "validation", Message: "unsupported message type"}}
	}
	if err != nil {
		return errorMessage(err)
	}
	return outboundMessage{Type: kind + "Result", Payload: result}
}

func errorMessage(err error) outboundMessage {
	return outboundMessage{Type: "error", Payload: newErrorPayload(err)}
}

package redis

import (
	"context"
	"fmt"
	"log/slog"

	"quiz-battle-arena/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	EventsChannel  = "battle:events"
	RatingBoardKey = "leaderboard:rating"
)

// EventPublisher fans events out to other instances over pub/sub and keeps a
// rating sorted set current for cheap leaderboard reads.
type EventPublisher struct {
	client *redis.Client
	source string
}

// NewEventPublisher tags every message with source, the publishing instance id.
func NewEventPublisher(client *redis.Client, source string) *EventPublisher {
	return &EventPublisher{client: client, source: source}
}

func (p *EventPublisher) Publish(ctx context.Context, event domain.Event) error {
	raw, err := domain.EncodeEvent(event, p.source)
	if err != nil {
		return err
	}
	pipe := p.client.TxPipeline()
	pipe.Publish(ctx, EventsChannel, raw)
	if done, ok := event.(domain.BattleCompletedEvent); ok {
		pipe.ZAdd(ctx, RatingBoardKey,
			redis.Z{Score: float64(done.WinnerRating), Member: done.WinnerID},
			redis.Z{Score: float64(done.LoserRating), Member: done.LoserID},
		)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish %s: %w", event.Kind(), err)
	}
	return nil
}

// Relay subscribes to the events channel and hands events from other instances to sink.
// It returns when ctx is done.
func Relay(ctx context.Context, client *redis.Client, self string, sink func(context.Context, domain.Event) error, logger *slog.Logger) error {
	sub := client.Subscribe(ctx, EventsChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", EventsChannel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			event, env, err := domain.DecodeEvent([]byte(msg.Payload))
			if err != nil {
				logger.Warn("dropping undecodable event", "error", err)
				continue
			}
			if env.Source == self {
				continue
			}
			if err := sink(ctx, event); err != nil {
				logger.Warn("relay sink failed", "event", event.Kind(), "error", err)
			}
		}
	}
}

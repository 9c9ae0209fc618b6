package kafka

import (
	"context"
	"fmt"
	"time"

	"quiz-battle-arena/internal/domain"

	"github.com/IBM/sarama"
)

// Publisher writes every event to a Kafka topic, keyed by battle or user
// so one battle's events stay ordered within a partition.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	source   string
}

// NewProducer builds the synchronous producer used in production.
func NewProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.Timeout = 5 * time.Second
	return sarama.NewSyncProducer(brokers, cfg)
}

func NewPublisher(producer sarama.SyncProducer, topic, source string) *Publisher {
	return &Publisher{producer: producer, topic: topic, source: source}
}

func (p *Publisher) Publish(_ context.Context, event domain.Event) error {
	raw, err := domain.EncodeEvent(event, p.source)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(partitionKey(event)),
		Value:     sarama.ByteEncoder(raw),
		Timestamp: event.OccurredAt(),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Kind())},
		},
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("kafka send %s: %w", event.Kind(), err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}

func partitionKey(event domain.Event) string {
	switch e := event.(type) {
	case domain.ChallengeCreated:
		return e.BattleID
	case domain.ChallengeDeclined:
		return e.BattleID
	case domain.ChallengeExpired:
		return e.BattleID
	case domain.BattleStarted:
		return e.BattleID
	case domain.BattleCompletedEvent:
		return e.BattleID
	case domain.QueueMatchedEvent:
		return e.BattleID
	case domain.BadgeEarned:
		return e.UserID
	case domain.QueueJoined:
		return e.UserID
	}
	return string(event.Kind())
}

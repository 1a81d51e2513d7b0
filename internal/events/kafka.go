package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaPublisher forwards local mutations to a topic so that other instances
// can invalidate their caches.
type KafkaPublisher struct {
	writer messageWriter
	origin string
	logger *zerolog.Logger
}

// NewKafkaPublisher creates an asynchronous writer for topic.
func NewKafkaPublisher(brokers []string, topic, origin string, logger *zerolog.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		Async:        true,
		BatchTimeout: 50 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warn().Err(err).Int("messages", len(messages)).Msg("kafka publish failed")
			}
		},
	}
	return &KafkaPublisher{writer: w, origin: origin, logger: logger}
}

// Handle is a bus Handler. Mutations that arrived from other instances are
// not re-published.
func (p *KafkaPublisher) Handle(ctx context.Context, m Mutation) error {
	if m.Origin != p.origin {
		return nil
	}
	msg, err := encodeMutation(m)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish mutation: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// KafkaConsumer applies mutations published by other instances to the local bus.
type KafkaConsumer struct {
	reader messageReader
	logger *zerolog.Logger
}

// ConsumerGroup returns the group an instance joins. Group members split the
// partitions between them, so each instance gets a group of its own.
func ConsumerGroup(prefix, origin string) string {
	if prefix == "" {
		return origin
	}
	return prefix + "-" + origin
}

// NewKafkaConsumer joins groupID on topic. A new group starts at the end of the
// topic; older mutations concern cache entries this instance never held.
func NewKafkaConsumer(brokers []string, groupID, topic string, logger *zerolog.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			GroupID:     groupID,
			Topic:       topic,
			StartOffset: kafka.LastOffset,
		}),
		logger: logger,
	}
}

// Run consumes until ctx is cancelled.
func (c *KafkaConsumer) Run(ctx context.Context, bus *Bus) error {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Warn().Err(err).Msg("kafka read error")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		mut, err := decodeMutation(m)
		if err != nil {
			c.logger.Warn().Err(err).Str("topic", m.Topic).Int64("offset", m.Offset).Msg("skipping malformed mutation")
			continue
		}
		if mut.Origin == bus.Origin() {
			continue
		}
		c.logger.Debug().
			Str("entity", mut.Entity).
			Str("action", mut.Action).
			Str("origin", mut.Origin).
			Msg("remote mutation received")
		bus.Deliver(ctx, mut)
	}
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

func encodeMutation(m Mutation) (kafka.Message, error) {
	value, err := json.Marshal(m)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode mutation: %w", err)
	}
	key := "all"
	if m.RestaurantID != nil {
		key = strconv.FormatInt(*m.RestaurantID, 10)
	}
	return kafka.Message{Key: []byte(key), Value: value}, nil
}

func decodeMutation(msg kafka.Message) (Mutation, error) {
	var m Mutation
	if err := json.Unmarshal(msg.Value, &m); err != nil {
		return Mutation{}, fmt.Errorf("decode mutation: %w", err)
	}
	if m.Entity == "" {
		return Mutation{}, errors.New("decode mutation: missing entity")
	}
	return m, nil
}

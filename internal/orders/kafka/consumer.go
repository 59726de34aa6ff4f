// Package kafka consumes order events from a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bissquit/sellerdesk/internal/notifications"
	"github.com/bissquit/sellerdesk/internal/orders"
	"github.com/bissquit/sellerdesk/internal/pkg/ctxlog"
	"github.com/segmentio/kafka-go"
)

const handleTimeout = 30 * time.Second

// Config holds consumer configuration.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Message is an order event published to the order-events topic.
type Message struct {
	UserID string          `json:"user_id"`
	Topic  string          `json:"topic"`
	Order  json.RawMessage `json:"order"`
}

// EventHandler handles a decoded order event.
type EventHandler interface {
	HandleEvent(ctx context.Context, userID, topic string, body []byte) (*orders.Result, error)
}

// MessageReader is the subset of *kafka.Reader used by the consumer.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer feeds order events from Kafka into the orders service.
type Consumer struct {
	reader  MessageReader
	handler EventHandler
}

// NewReader creates a kafka-go reader for the order-events topic.
func NewReader(config Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        config.Brokers,
		Topic:          config.Topic,
		GroupID:        config.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		ErrorLogger:    kafka.LoggerFunc(func(msg string, args ...interface{}) { slog.Error(fmt.Sprintf(msg, args...), "component", "kafka") }),
	})
}

// NewConsumer creates a new consumer.
func NewConsumer(reader MessageReader, handler EventHandler) *Consumer {
	return &Consumer{
		reader:  reader,
		handler: handler,
	}
}

// Run consumes messages until ctx is cancelled. Events that cannot be decoded
// or are rejected by the handler are committed and dropped. When the job store
// is unavailable Run returns without committing, so the event is fetched again
// after restart.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		if err := c.handle(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, notifications.ErrStoreUnavailable) {
				return fmt.Errorf("handle order event at offset %d: %w", m.Offset, err)
			}
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("failed to commit order event",
				"partition", m.Partition,
				"offset", m.Offset,
				"error", err,
			)
		}
	}
}

// handle returns only handler errors; undecodable events are logged and
// reported as handled.
func (c *Consumer) handle(ctx context.Context, m kafka.Message) error {
	log := slog.With("partition", m.Partition, "offset", m.Offset)

	var msg Message
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		log.Warn("malformed order event, dropping", "error", err)
		return nil
	}
	if msg.UserID == "" || len(msg.Order) == 0 {
		log.Warn("incomplete order event, dropping", "user_id", msg.UserID, "topic", msg.Topic)
		return nil
	}

	log = log.With("topic", msg.Topic)
	hctx, cancel := context.WithTimeout(ctxlog.WithLogger(ctx, log), handleTimeout)
	defer cancel()

	result, err := c.handler.HandleEvent(hctx, msg.UserID, msg.Topic, msg.Order)
	if err != nil {
		log.Error("failed to handle order event", "user_id", msg.UserID, "error", err)
		return err
	}
	log.Debug("order event handled", "user_id", msg.UserID, "status", result.Status, "job_id", result.JobID)
	return nil
}

// Close stops the reader. A running Run returns once its fetch is interrupted.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

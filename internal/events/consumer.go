package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/GlebRadaev/payee-ledger/internal/config"
	"github.com/GlebRadaev/payee-ledger/internal/domain"
	"github.com/GlebRadaev/payee-ledger/internal/dto"
	"github.com/GlebRadaev/payee-ledger/internal/metrics"
)

//go:generate mockgen -source=consumer.go -destination=mock_consumer.go -package=events

const (
	retryInterval    = time.Second
	maxRetryInterval = 30 * time.Second
)

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Orders interface {
	HandleOrderEvent(ctx context.Context, order *domain.Order) error
}

// Consumer applies order events from Kafka with at-least-once delivery. An
// offset is committed only after the event was handled or rejected for good.
type Consumer struct {
	reader        Reader
	orders        Orders
	retryInterval time.Duration
}

func NewReader(cfg *config.Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaOrdersTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
	})
}

func New(reader Reader, orders Orders) *Consumer {
	return &Consumer{reader: reader, orders: orders, retryInterval: retryInterval}
}

func (c *Consumer) Start(ctx context.Context) {
	zap.L().Info("order event consumer started")
	go func() {
		if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zap.L().Error("order event consumer stopped", zap.Error(err))
		}
	}()
}

// Run consumes until ctx is done and closes the reader on return.
func (c *Consumer) Run(ctx context.Context) error {
	defer func() {
		if err := c.reader.Close(); err != nil {
			zap.L().Warn("failed to close kafka reader", zap.Error(err))
		}
	}()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		if err := c.handle(ctx, msg); err != nil {
			return err
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

// handle retries infrastructure failures until they succeed or ctx is done.
// Business rejections are logged and treated as handled.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	var event dto.OrderEventDTO
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		metrics.OrderEvents.WithLabelValues("kafka", "malformed").Inc()
		zap.L().Error("malformed order event",
			zap.Int64("offset", msg.Offset),
			zap.ByteString("key", msg.Key),
			zap.Error(err),
		)
		return nil
	}
	order := event.ToDomain()

	wait := c.retryInterval
	for {
		err := c.orders.HandleOrderEvent(ctx, order)
		switch {
		case err == nil:
			metrics.OrderEvents.WithLabelValues("kafka", "applied").Inc()
			return nil
		case domain.IsBusinessError(err):
			metrics.OrderEvents.WithLabelValues("kafka", "rejected").Inc()
			zap.L().Warn("order event rejected", zap.String("order_id", order.OrderID), zap.Int64("offset", msg.Offset), zap.Error(err))
			return nil
		}

		metrics.OrderEvents.WithLabelValues("kafka", "retry").Inc()
		zap.L().Error("failed to apply order event, retrying",
			zap.String("order_id", order.OrderID),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		if wait *= 2; wait > maxRetryInterval {
			wait = maxRetryInterval
		}
	}
}

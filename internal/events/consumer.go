package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"recyclehub/server/internal/models"
	"recyclehub/server/internal/queue"
)

const reconnectDelay = 5 * time.Second

// Sink accepts events for local processing, normally the EventQueue.
type Sink interface {
	Push(event models.PickupEvent) error
}

// Consumer feeds pickup events published by other instances into the local
// event queue.
type Consumer struct {
	conn      *RabbitMQConnection
	queueName string
	sink      Sink
	logger    *logrus.Logger
	processed atomic.Int64
	failed    atomic.Int64
}

func NewConsumer(conn *RabbitMQConnection, queueName string, sink Sink, logger *logrus.Logger) *Consumer {
	return &Consumer{
		conn:      conn,
		queueName: queueName,
		sink:      sink,
		logger:    logger,
	}
}

// Start consumes in the background until ctx is cancelled, re-opening the
// channel after failures.
func (c *Consumer) Start(ctx context.Context) {
	c.logger.WithField("queue", c.queueName).Info("Starting pickup event consumer")

	go func() {
		for {
			err := c.consume(ctx)
			if ctx.Err() != nil {
				c.logger.Info("Pickup event consumer stopped")
				return
			}
			c.logger.WithError(err).Error("Pickup event consumer failed, reconnecting")

			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
			c.reopenChannel()
		}
	}()
}

func (c *Consumer) reopenChannel() {
	if c.conn.Connection == nil || c.conn.Connection.IsClosed() {
		c.logger.Error("RabbitMQ connection is closed, cannot reopen channel")
		return
	}
	ch, err := c.conn.Connection.Channel()
	if err != nil {
		c.logger.WithError(err).Error("Failed to recreate RabbitMQ channel")
		return
	}
	if c.conn.Channel != nil {
		c.conn.Channel.Close()
	}
	c.conn.Channel = ch
	c.logger.Info("RabbitMQ channel recreated")
}

func (c *Consumer) consume(ctx context.Context) error {
	ch := c.conn.Channel
	if err := ch.Qos(10, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	if err := declareQueue(ch, c.queueName); err != nil {
		return err
	}

	msgs, err := ch.Consume(
		c.queueName,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.handleDelivery(msg)
		}
	}
}

// handleDelivery acks events accepted by the sink, requeues them when the
// sink is full and drops malformed messages.
func (c *Consumer) handleDelivery(msg amqp.Delivery) {
	var event models.PickupEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil || event.PickupID == "" {
		c.failed.Add(1)
		c.logger.WithError(err).WithField("message_id", msg.MessageId).Error("Dropping malformed pickup event")
		if nackErr := msg.Nack(false, false); nackErr != nil {
			c.logger.WithError(nackErr).Error("Failed to nack message")
		}
		return
	}

	logger := c.logger.WithFields(logrus.Fields{
		"pickup_id":  event.PickupID,
		"event_type": event.Type,
	})

	if err := c.sink.Push(event); err != nil {
		c.failed.Add(1)
		requeue := errors.Is(err, queue.ErrQueueFull)
		logger.WithError(err).WithField("requeue", requeue).Warn("Local queue rejected pickup event")
		if nackErr := msg.Nack(false, requeue); nackErr != nil {
			logger.WithError(nackErr).Error("Failed to nack message")
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		logger.WithError(err).Error("Failed to ack message")
		return
	}
	c.processed.Add(1)
}

func (c *Consumer) Stats() (processed, failed int64) {
	return c.processed.Load(), c.failed.Load()
}

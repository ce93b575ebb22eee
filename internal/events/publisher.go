package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"recyclehub/server/internal/models"
)

// Publisher sends pickup events to the shared queue so that every instance
// consuming it reprices the affected materials.
type Publisher struct {
	ch        *amqp.Channel
	queueName string
	logger    *logrus.Logger
	mu        sync.Mutex
}

// NewPublisher opens a dedicated channel on conn and declares the queue.
func NewPublisher(conn *RabbitMQConnection, queueName string, logger *logrus.Logger) (*Publisher, error) {
	ch, err := conn.Connection.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open publisher channel: %w", err)
	}
	if err := declareQueue(ch, queueName); err != nil {
		ch.Close()
		return nil, err
	}
	return &Publisher{ch: ch, queueName: queueName, logger: logger}, nil
}

func (p *Publisher) Emit(ctx context.Context, event models.PickupEvent) error {
	body, err := encodeEvent(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(
		ctx,
		"",          // exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    event.ID,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish pickup event: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"pickup_id":  event.PickupID,
		"event_type": event.Type,
	}).Debug("Published pickup event")
	return nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func encodeEvent(event models.PickupEvent) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pickup event: %w", err)
	}
	return body, nil
}

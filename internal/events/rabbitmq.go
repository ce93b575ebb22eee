package events

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// RabbitMQConnection holds the RabbitMQ connection and the consumer channel
type RabbitMQConnection struct {
	Connection *amqp.Connection
	Channel    *amqp.Channel
	logger     *logrus.Logger
}

// ConnectRabbitMQ dials the broker at url
func ConnectRabbitMQ(url string, logger *logrus.Logger) (*RabbitMQConnection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	logger.Info("Connected to RabbitMQ")
	return &RabbitMQConnection{Connection: conn, Channel: ch, logger: logger}, nil
}

// Close closes the RabbitMQ channel and connection
func (r *RabbitMQConnection) Close() error {
	if r.Channel != nil {
		if err := r.Channel.Close(); err != nil {
			r.logger.WithError(err).Error("Failed to close RabbitMQ channel")
		}
	}
	if r.Connection != nil {
		if err := r.Connection.Close(); err != nil {
			r.logger.WithError(err).Error("Failed to close RabbitMQ connection")
			return err
		}
	}
	r.logger.Info("RabbitMQ connection closed")
	return nil
}

func declareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}
	return nil
}

package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ReindexJob asks the worker to rebuild one document's chunk set.
type ReindexJob struct {
	DocumentID uint `json:"document_id"`
}

type ReindexPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewReindexPublisher(conn *amqp.Connection, queueName string) *ReindexPublisher {
	return &ReindexPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *ReindexPublisher) Publish(ctx context.Context, job ReindexJob) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal reindex job failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish reindex job failed: %w", err)
	}
	return nil
}

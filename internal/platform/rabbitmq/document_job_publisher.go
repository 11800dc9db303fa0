package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DocumentJob is the payload queued after a document row has been persisted
// with status pending. The worker picks it up, chunks and embeds the content
// and flips the processing status.
type DocumentJob struct {
	DocumentID     string `json:"document_id"`
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Filename       string `json:"filename"`
	FileType       string `json:"file_type"`
	Content        string `json:"content"`
	ChunkSize      string `json:"chunk_size,omitempty"`
}

type DocumentJobPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewDocumentJobPublisher(conn *amqp.Connection, queueName string) *DocumentJobPublisher {
	return &DocumentJobPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *DocumentJobPublisher) Publish(ctx context.Context, job DocumentJob) error {
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
		return fmt.Errorf("marshal document job failed: %w", err)
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
		return fmt.Errorf("publish document job failed: %w", err)
	}
	return nil
}

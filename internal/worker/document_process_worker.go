package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"pharmgpt/internal/app"
	"pharmgpt/internal/model"
	"pharmgpt/internal/pkg/textsplit"
	"pharmgpt/internal/platform/rabbitmq"
)

// DocumentProcessWorker drains the document queue, chunking and embedding
// uploaded files off the request path.
type DocumentProcessWorker struct {
	conn      *amqp.Connection
	rag       *app.RAGService
	queueName string
	log       *logrus.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDocumentProcessWorker(conn *amqp.Connection, rag *app.RAGService, queueName string, log *logrus.Logger) *DocumentProcessWorker {
	return &DocumentProcessWorker{
		conn:      conn,
		rag:       rag,
		queueName: queueName,
		log:       log,
	}
}

func (w *DocumentProcessWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var job rabbitmq.DocumentJob
				if err := json.Unmarshal(d.Body, &job); err != nil {
					w.log.WithError(err).Error("decode document job failed")
					_ = d.Nack(false, false)
					continue
				}

				if err := w.process(workerCtx, job); err != nil {
					w.log.WithError(err).WithField("document_id", job.DocumentID).Error("process document failed")
					_ = d.Nack(false, false)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *DocumentProcessWorker) process(ctx context.Context, job rabbitmq.DocumentJob) error {
	doc := &model.Document{
		ID:             job.DocumentID,
		ConversationID: job.ConversationID,
		UserID:         job.UserID,
		Filename:       job.Filename,
		FileType:       job.FileType,
	}
	_, err := w.rag.ProcessDocument(ctx, doc, job.Content, textsplit.SizeClass(job.ChunkSize))
	return err
}

func (w *DocumentProcessWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

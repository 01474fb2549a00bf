package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"kbretrieval/internal/app"
	"kbretrieval/internal/platform/rabbitmq"
)

// Reindexer rebuilds a document's chunks; the swap is transactional so a
// failed job never leaves a half-indexed document.
type Reindexer interface {
	Reindex(ctx context.Context, documentID uint) (*app.UploadResult, error)
}

type ReindexWorker struct {
	conn      *amqp.Connection
	reindexer Reindexer
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewReindexWorker(conn *amqp.Connection, reindexer Reindexer, queueName string) *ReindexWorker {
	return &ReindexWorker{
		conn:      conn,
		reindexer: reindexer,
		queueName: queueName,
	}
}

func (w *ReindexWorker) Start(ctx context.Context) error {
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
				w.handle(workerCtx, d)
			}
		}
	}()

	return nil
}

func (w *ReindexWorker) handle(ctx context.Context, d amqp.Delivery) {
	var job rabbitmq.ReindexJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		log.Printf("worker decode reindex job failed: %v", err)
		_ = d.Nack(false, false)
		return
	}

	if _, err := w.reindexer.Reindex(ctx, job.DocumentID); err != nil {
		// A document deleted after enqueue is not worth a redelivery.
		if errors.Is(err, app.ErrDocumentNotFound) {
			log.Printf("worker skip reindex: document %d no longer exists", job.DocumentID)
			_ = d.Ack(false)
			return
		}
		log.Printf("worker reindex document %d failed: %v", job.DocumentID, err)
		_ = d.Nack(false, false)
		return
	}

	_ = d.Ack(false)
}

func (w *ReindexWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

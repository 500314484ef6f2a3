package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueInvoice = "jobs:invoice"
	QueueEmail   = "jobs:email"

	// maxAttempts bounds re-queues before a job lands in the DLQ.
	maxAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// InvoiceJobPayload asks the invoice worker to render (and optionally mail)
// the PDF for a finalized bill.
type InvoiceJobPayload struct {
	BillNo        string `json:"bill_no"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ToEmail string `json:"to_email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	PDFPath string `json:"pdf_path"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueInvoice pushes an invoice rendering job to Redis.
func (d *Dispatcher) EnqueueInvoice(ctx context.Context, payload InvoiceJobPayload) error {
	return d.enqueue(ctx, QueueInvoice, "invoice", payload, 0)
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, "email", payload, 0)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}, attempts int) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data, Attempts: attempts}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// WorkerHandlers bundles the per-queue processors wired at the composition root.
type WorkerHandlers struct {
	Invoice *InvoiceWorker
	Email   *EmailWorker
}

// StartWorkerPool launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP — zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, id int) {
	queues := []string{QueueInvoice, QueueEmail}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop — waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}

	var procErr error
	switch queue {
	case QueueInvoice:
		procErr = handlers.Invoice.Process(ctx, job.Payload)
	case QueueEmail:
		procErr = handlers.Email.Process(ctx, job.Payload)
	default:
		log.Warn().Str("queue", queue).Msg("job from unknown queue dropped")
		return
	}
	if procErr == nil {
		return
	}

	job.Attempts++
	if job.Attempts >= maxAttempts {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, procErr.Error(), job.Attempts)
		return
	}

	log.Warn().
		Str("queue", queue).
		Str("type", job.Type).
		Int("attempts", job.Attempts).
		Err(procErr).
		Msg("job failed, re-queueing")
	if encoded, err := json.Marshal(job); err == nil {
		_ = rdb.LPush(ctx, queue, encoded).Err()
	}
}

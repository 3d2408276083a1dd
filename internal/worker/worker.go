// Package worker consumes background jobs from the Redis queue.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crowdstack/backend/internal/models"
	"github.com/crowdstack/backend/pkg/email"
	"github.com/crowdstack/backend/pkg/queue"
)

// JobQueue is the queue the processor drains.
type JobQueue interface {
	Dequeue(ctx context.Context, lists ...string) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// LogStore records delivery attempts.
type LogStore interface {
	Create(ctx context.Context, el *models.EmailLog) error
}

// EmailProcessor delivers email jobs and writes the delivery log.
type EmailProcessor struct {
	sender  email.Sender
	logs    LogStore
	queue   JobQueue
	logger  *zap.Logger
	backoff time.Duration
}

// NewEmailProcessor creates an email job processor.
func NewEmailProcessor(sender email.Sender, logs LogStore, q JobQueue, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{sender: sender, logs: logs, queue: q, logger: logger, backoff: queue.RetryBackoff}
}

func optionalID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

// Process sends one email job and logs the outcome. A send failure is logged
// as failed and returned so the job is retried.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	entry := &models.EmailLog{
		EventID:        optionalID(payload.EventID),
		RegistrationID: optionalID(payload.RegistrationID),
		EmailType:      payload.EmailType,
		RecipientEmail: payload.RecipientEmail,
		Subject:        payload.Subject,
		Status:         models.EmailLogStatusSent,
		Attempt:        job.Attempt + 1,
	}
	sendErr := p.sender.Send(ctx, email.Message{To: payload.RecipientEmail, Subject: payload.Subject, Body: payload.Body})
	if sendErr != nil {
		entry.Status = models.EmailLogStatusFailed
		entry.ErrorMessage = sendErr.Error()
	}
	if err := p.logs.Create(ctx, entry); err != nil {
		p.logger.Error("write email log failed", zap.Error(err), zap.String("job_id", job.ID))
	}
	if sendErr != nil {
		return fmt.Errorf("send: %w", sendErr)
	}
	p.logger.Info("email sent",
		zap.String("job_id", job.ID),
		zap.String("email_type", payload.EmailType),
		zap.String("registration_id", payload.RegistrationID.String()))
	return nil
}

func (p *EmailProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx, queue.QueueEmails)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

// RunPool runs n Run loops and returns once every loop has stopped.
func (p *EmailProcessor) RunPool(ctx context.Context, n int) {
	if n < 1 {
		n = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Run(ctx)
		}()
	}
	p.logger.Info("email workers running", zap.Int("concurrency", n))
	wg.Wait()
}

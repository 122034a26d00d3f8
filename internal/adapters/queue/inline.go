package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"techcafe/internal/domain"
)

// Inline runs each job in its own goroutine. Enqueue never blocks on delivery.
type Inline struct {
	handle  func(context.Context, domain.SMSJob) error
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

var _ domain.TaskQueue = (*Inline)(nil)

// NewInline returns an in-process queue that hands jobs to handle.
func NewInline(handle func(context.Context, domain.SMSJob) error, timeout time.Duration, logger *slog.Logger) *Inline {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Inline{handle: handle, timeout: timeout, logger: logger}
}

func (q *Inline) Enqueue(ctx context.Context, job domain.SMSJob) error {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.timeout)
		defer cancel()
		if err := q.handle(jobCtx, job); err != nil {
			q.logger.ErrorContext(jobCtx, "sms job failed", "template_id", job.TemplateID, "err", err)
		}
	}()
	return nil
}

// Wait blocks until every enqueued job has finished.
func (q *Inline) Wait() {
	q.wg.Wait()
}

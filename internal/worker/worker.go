package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"aws-sqs-message-relay/internal/logger"
	"aws-sqs-message-relay/internal/message"
	"aws-sqs-message-relay/internal/metrics"
)

// DefaultBatchSize is the number of messages polled per cycle.
const DefaultBatchSize = 5

// MessageService is the read side of service.MessageService.
type MessageService interface {
	GetMessages(ctx context.Context, count int) ([]message.Handle, error)
	DeleteMessages(ctx context.Context, handles []message.Handle) error
}

// ContinuousReader polls the queue on every timer tick, logs what it
// received and deletes it.
type ContinuousReader struct {
	Timer        *Timer
	Service      MessageService
	BatchSize    int
	CycleTimeout time.Duration // zero disables the bound
}

// NewContinuousReader wires the reader as the timer callback.
func NewContinuousReader(timer *Timer, svc MessageService, batchSize int, cycleTimeout time.Duration) *ContinuousReader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	r := &ContinuousReader{
		Timer:        timer,
		Service:      svc,
		BatchSize:    batchSize,
		CycleTimeout: cycleTimeout,
	}
	timer.Callback = r.Read
	return r
}

// Start arms the timer. Cancelling ctx stops further ticks only.
func (r *ContinuousReader) Start(ctx context.Context) {
	logger.Info("Starting continuous queue reader, interval %s, batch size %d", r.Timer.Interval, r.BatchSize)
	r.Timer.Start(ctx)
}

// Stop disarms the timer. Use Timer.Wait to wait for an in-flight cycle.
func (r *ContinuousReader) Stop() {
	logger.Info("Stopping continuous queue reader")
	r.Timer.Stop()
}

// Read runs one poll/log/delete cycle.
func (r *ContinuousReader) Read(ctx context.Context) error {
	if r.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.CycleTimeout)
		defer cancel()
	}
	ctx = logger.WithTraceID(ctx, uuid.NewString())

	handles, err := r.Service.GetMessages(ctx, r.BatchSize)
	if err != nil {
		return fmt.Errorf("poll messages: %w", err)
	}

	if len(handles) == 0 {
		metrics.EmptyPolls.Inc()
		logger.InfoCtx(ctx, "No messages received.")
		return nil
	}

	for _, h := range handles {
		logger.InfoCtx(ctx, "Message: %s", h.Message.Body)
	}

	if err := r.Service.DeleteMessages(ctx, handles); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return nil
}

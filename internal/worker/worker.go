// Package worker drains the analysis job stream: each message carries a
// job ID, and processing runs the job end to end through the analysis
// service. Failed messages are requeued with a bounded attempt count
// before landing in the DLQ.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"themochi.app/analytics/common/logger"
	"themochi.app/analytics/internal/queue"
	"themochi.app/analytics/internal/service"
)

type Config struct {
	MaxAttempts int
}

type Worker struct {
	consumer *queue.RedisConsumer
	analysis service.AnalysisService
	cfg      Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer *queue.RedisConsumer, analysis service.AnalysisService, cfg Config) *Worker {
	return &Worker{
		consumer:  consumer,
		analysis:  analysis,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "analytics.worker",
	})

	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.processMessageSafe(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "message processing failed",
				"error", err,
				"message_id", msg.ID,
				"job_id", msg.JobID)
			w.handleFailedMessage(ctx, msg, err)
		}
	}

	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"job_id", msg.JobID)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// Exported so it can be reused by the reclaimer.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	sc := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.process_job")
	defer sc.End()
	ctx = sc.Context()

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		JobID:     logger.Ptr(msg.JobID),
		MessageID: logger.Ptr(msg.ID),
	})

	slog.InfoContext(ctx, "processing analysis job", "attempt", msg.Attempt)

	start := time.Now()
	if err := w.analysis.Process(ctx, msg.JobID); err != nil {
		sc.RecordError(err)
		return err
	}

	if err := w.consumer.Ack(ctx, msg); err != nil {
		// Message will be reclaimed, and reprocessing a completed job is safe.
		slog.WarnContext(ctx, "failed to ACK message", "error", err)
	}

	slog.InfoContext(ctx, "analysis job processed",
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"job_id", msg.JobID,
			"attempts", msg.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"job_id", msg.JobID,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}

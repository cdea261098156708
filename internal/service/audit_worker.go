package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/auditrail/internal/capture"
	"github.com/persistorai/auditrail/internal/domain"
	"github.com/persistorai/auditrail/internal/metrics"
	"github.com/persistorai/auditrail/internal/models"
)

var _ capture.Enqueuer = (*AuditWorker)(nil)

const (
	defaultQueueSize = 1000
	defaultBackoff   = 200 * time.Millisecond
	maxBackoff       = 10 * time.Second
	flushTimeout     = 30 * time.Second
)

// AuditWorker persists captured batches on a single goroutine, retrying
// failed inserts with exponential backoff.
type AuditWorker struct {
	sink    domain.AuditSink
	log     *logrus.Logger
	jobs    chan []models.AuditEntry
	retries int
	backoff time.Duration
}

// WorkerOption configures an AuditWorker.
type WorkerOption func(*AuditWorker)

// WithBackoff sets the initial retry delay.
func WithBackoff(d time.Duration) WorkerOption {
	return func(w *AuditWorker) { w.backoff = d }
}

// NewAuditWorker creates an AuditWorker with the given queue capacity. Each
// batch is attempted once plus up to retries more times.
func NewAuditWorker(sink domain.AuditSink, log *logrus.Logger, queueSize, retries int, opts ...WorkerOption) *AuditWorker {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	w := &AuditWorker{
		sink:    sink,
		log:     log,
		jobs:    make(chan []models.AuditEntry, queueSize),
		retries: max(retries, 0),
		backoff: defaultBackoff,
	}

	for _, o := range opts {
		o(w)
	}

	return w
}

// Enqueue adds a batch. Non-blocking; returns false when the queue is full.
func (w *AuditWorker) Enqueue(entries []models.AuditEntry) bool {
	if len(entries) == 0 {
		return true
	}

	select {
	case w.jobs <- entries:
		metrics.QueueDepth.Set(float64(len(w.jobs)))
		return true
	default:
		w.log.WithField("entries", len(entries)).Warn("audit queue full, rejecting batch")
		return false
	}
}

// Run processes batches until the context is cancelled, then drains remaining batches.
func (w *AuditWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain(ctx)
			return
		case batch := <-w.jobs:
			w.process(ctx, batch)
		}
	}
}

// drain flushes what is left in the queue. ctx is already done, so retries
// skip the backoff sleep; inserts run on their own context in insert.
func (w *AuditWorker) drain(ctx context.Context) {
	for {
		select {
		case batch := <-w.jobs:
			w.process(ctx, batch)
		default:
			return
		}
	}
}

func (w *AuditWorker) process(ctx context.Context, batch []models.AuditEntry) {
	metrics.QueueDepth.Set(float64(len(w.jobs)))

	delay := w.backoff

	for attempt := 0; ; attempt++ {
		err := w.insert(batch)
		if err == nil {
			metrics.BatchesTotal.WithLabelValues(capture.BatchPersisted.String()).Inc()
			return
		}

		// A lost acknowledgement of an earlier attempt shows up as a duplicate.
		if errors.Is(err, models.ErrDuplicateEntry) && attempt > 0 {
			return
		}

		metrics.FlushFailures.Inc()

		fields := logrus.Fields{"entries": len(batch), "attempt": attempt + 1, "error": err}
		if attempt >= w.retries {
			w.log.WithFields(fields).Error("audit.flush_dropped")
			return
		}

		w.log.WithFields(fields).Warn("audit.flush_retry")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			// Shutting down: retry without waiting.
		}

		delay = min(delay*2, maxBackoff)
	}
}

func (w *AuditWorker) insert(batch []models.AuditEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	start := time.Now()
	err := w.sink.InsertBatch(ctx, batch)
	metrics.FlushDuration.Observe(time.Since(start).Seconds())

	return err
}

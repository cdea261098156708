package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/auditrail/internal/domain"
	"github.com/persistorai/auditrail/internal/metrics"
	"github.com/persistorai/auditrail/internal/models"
)

// ErrPersist wraps a sink failure while flushing a batch.
var ErrPersist = errors.New("persisting audit entries")

// ErrQueueFull is returned by FlushAsync when the flusher refused the batch.
var ErrQueueFull = errors.New("audit flush queue is full")

// BatchState is the lifecycle position of a Batch.
type BatchState int

// Batch lifecycle: Idle (nothing to do), Pending (computed, awaiting commit
// outcome), then Persisted, Queued or Discarded.
const (
	BatchIdle BatchState = iota
	BatchPending
	BatchPersisted
	BatchQueued
	BatchDiscarded
)

func (s BatchState) String() string {
	switch s {
	case BatchIdle:
		return "idle"
	case BatchPending:
		return "pending"
	case BatchPersisted:
		return "persisted"
	case BatchQueued:
		return "queued"
	case BatchDiscarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Enqueuer accepts a computed batch for asynchronous persistence.
type Enqueuer interface {
	Enqueue(entries []models.AuditEntry) bool
}

// Capturer computes audit entries before a business commit and persists them
// after it. A Capturer holds no per-save state and is safe for concurrent use.
type Capturer struct {
	reg  *Registry
	sink domain.AuditSink
	opts Options
	ex   Exclusions
	log  *logrus.Logger
	now  func() time.Time
}

// Option configures a Capturer.
type Option func(*Capturer)

// WithClock overrides the finalize timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Capturer) { c.now = now }
}

// NewCapturer creates a Capturer. Options are copied and their exclusion
// lists resolved once.
func NewCapturer(reg *Registry, sink domain.AuditSink, opts Options, log *logrus.Logger, options ...Option) *Capturer {
	if log == nil {
		log = logrus.StandardLogger()
	}

	opts.ExcludedEntityTypes = append([]string(nil), opts.ExcludedEntityTypes...)
	opts.ExcludedProperties = append([]string(nil), opts.ExcludedProperties...)

	c := &Capturer{
		reg:  reg,
		sink: sink,
		opts: opts,
		ex:   NewExclusions(opts),
		log:  log,
		now:  time.Now,
	}

	for _, o := range options {
		o(c)
	}

	return c
}

// Options returns a copy of the capture options.
func (c *Capturer) Options() Options { return c.opts }

// Registry returns the entity registry.
func (c *Capturer) Registry() *Registry { return c.reg }

// Exclusions returns the resolved exclusion sets.
func (c *Capturer) Exclusions() Exclusions { return c.ex }

// Prepare runs before the business commit. It snapshots, classifies and
// serializes every tracked change of src into a Batch. When automatic logging
// is disabled the returned Batch is Idle and empty.
func (c *Capturer) Prepare(ctx context.Context, src ChangeSource) (*Batch, error) {
	b := &Batch{sink: c.sink, log: c.log}
	if !c.opts.EnableAutomaticLogging {
		return b, nil
	}

	mutations := ReadSnapshot(src, c.reg, c.ex)
	if len(mutations) == 0 {
		return b, nil
	}

	actor := c.opts.actor(ctx)
	tenant := c.opts.tenant(ctx)
	changedAt := c.now().UTC()

	entries := make([]models.AuditEntry, 0, len(mutations))

	for _, m := range mutations {
		action, ok := Classify(m, c.opts)
		if !ok {
			continue
		}

		oldValues, newValues, err := SerializeDiff(m, action, c.ex)
		if err != nil {
			return nil, fmt.Errorf("capturing %s: %w", m.Type.Name(), err)
		}

		entries = append(entries, models.AuditEntry{
			ID:         uuid.NewString(),
			EntityName: m.Type.Name(),
			EntityID:   m.Type.EntityID(m.Entity),
			Action:     action,
			ChangedBy:  actor,
			ChangedAt:  changedAt,
			OldValues:  oldValues,
			NewValues:  newValues,
			TenantID:   tenant,
		})

		metrics.EntriesCaptured.WithLabelValues(string(action)).Inc()
	}

	if len(entries) > 0 {
		b.entries = entries
		b.state = BatchPending
	}

	return b, nil
}

// Batch carries the entries computed for one save operation from the
// pre-commit phase to the post-commit phase. It is not safe for concurrent use.
type Batch struct {
	state   BatchState
	entries []models.AuditEntry
	sink    domain.AuditSink
	log     *logrus.Logger
}

// State returns the batch lifecycle state.
func (b *Batch) State() BatchState { return b.state }

// Entries returns the pending entries. The slice is empty once the batch
// has been persisted, queued or discarded.
func (b *Batch) Entries() []models.AuditEntry { return b.entries }

// Len returns the number of pending entries.
func (b *Batch) Len() int { return len(b.entries) }

// Flush persists a Pending batch in one sink call. On failure the batch stays
// Pending so the caller may retry.
func (b *Batch) Flush(ctx context.Context) error {
	if b.state != BatchPending || len(b.entries) == 0 {
		return nil
	}

	start := time.Now()
	err := b.sink.InsertBatch(ctx, b.entries)
	metrics.FlushDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.FlushFailures.Inc()
		b.log.WithFields(logrus.Fields{
			"entries": len(b.entries),
			"error":   err,
		}).Warn("audit.flush_failed")

		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	b.log.WithField("entries", len(b.entries)).Debug("audit.flush")
	b.entries = nil
	b.state = BatchPersisted
	metrics.BatchesTotal.WithLabelValues(BatchPersisted.String()).Inc()

	return nil
}

// FlushAsync hands a Pending batch to enq. The batch moves to Queued, or
// stays Pending and returns ErrQueueFull when enq refuses it.
func (b *Batch) FlushAsync(enq Enqueuer) error {
	if b.state != BatchPending || len(b.entries) == 0 {
		return nil
	}

	if !enq.Enqueue(b.entries) {
		return ErrQueueFull
	}

	b.entries = nil
	b.state = BatchQueued
	metrics.BatchesTotal.WithLabelValues(BatchQueued.String()).Inc()

	return nil
}

// Discard drops a Pending batch after the business commit failed.
func (b *Batch) Discard() {
	if b.state != BatchPending {
		return
	}

	b.log.WithField("entries", len(b.entries)).Debug("audit.discard")
	b.entries = nil
	b.state = BatchDiscarded
	metrics.BatchesTotal.WithLabelValues(BatchDiscarded.String()).Inc()
}

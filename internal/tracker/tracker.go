// Package tracker is a minimal unit-of-work change tracker. It records the
// lifecycle state of entities between saves and drives the capture engine
// around the caller's commit.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/auditrail/internal/capture"
	"github.com/persistorai/auditrail/internal/models"
)

// AuditError reports that the business commit succeeded but its audit batch
// could not be persisted. The business change is not rolled back.
type AuditError struct {
	Batch *capture.Batch
	Err   error
}

func (e *AuditError) Error() string {
	return fmt.Sprintf("changes saved but audit failed: %v", e.Err)
}

func (e *AuditError) Unwrap() error { return e.Err }

// CommitFunc applies the tracked changes to the business store.
type CommitFunc func(ctx context.Context, changes []capture.TrackedEntry) error

type tracked struct {
	entity   any
	state    models.EntityState
	original map[string]any
}

// Tracker records entities for one unit of work. It is safe for concurrent
// use, but a single save is serialized with other tracker calls.
type Tracker struct {
	mu       sync.Mutex
	capturer *capture.Capturer
	enqueuer capture.Enqueuer
	log      *logrus.Logger
	entries  []*tracked
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithEnqueuer hands flushed batches to an async flusher. Batches the flusher
// refuses are persisted synchronously.
func WithEnqueuer(enq capture.Enqueuer) Option {
	return func(t *Tracker) { t.enqueuer = enq }
}

// New creates a Tracker that captures through c.
func New(c *capture.Capturer, log *logrus.Logger, opts ...Option) *Tracker {
	if log == nil {
		log = logrus.StandardLogger()
	}

	t := &Tracker{capturer: c, log: log}
	for _, o := range opts {
		o(t)
	}

	return t
}

// Add tracks a new entity that will be created on save.
func (t *Tracker) Add(entity any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e := t.find(entity); e != nil {
		if e.state == models.StateDeleted {
			e.state = models.StateModified
		}

		return
	}

	t.entries = append(t.entries, &tracked{entity: entity, state: models.StateAdded})
}

// Attach tracks an existing entity in its current, persisted form. Later
// changes to it are detected on save. Pass a pointer so changes are visible.
func (t *Tracker) Attach(entity any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.find(entity) != nil {
		return
	}

	t.entries = append(t.entries, &tracked{
		entity:   entity,
		state:    models.StateUnchanged,
		original: t.snapshot(entity),
	})
}

// Remove marks an entity for deletion. Removing an entity that was only
// added in this unit of work stops tracking it.
func (t *Tracker) Remove(entity any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.find(entity)
	if e == nil {
		t.entries = append(t.entries, &tracked{entity: entity, state: models.StateDeleted, original: t.snapshot(entity)})
		return
	}

	if e.state == models.StateAdded {
		t.drop(e)
		return
	}

	e.state = models.StateDeleted
}

// Detach stops tracking an entity.
func (t *Tracker) Detach(entity any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e := t.find(entity); e != nil {
		t.drop(e)
	}
}

// State returns the current lifecycle state of entity.
func (t *Tracker) State(entity any) models.EntityState {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.find(entity)
	if e == nil {
		return models.StateDetached
	}

	return t.detect(e).State
}

// Entries implements capture.ChangeSource. Attached entities whose properties
// changed since they were attached are reported as Modified.
func (t *Tracker) Entries() []capture.TrackedEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.entriesLocked()
}

// SaveChanges runs the two-phase save: capture, commit, then flush the audit
// batch. A commit error discards the batch and is returned as is. A flush
// error after a successful commit is returned as *AuditError.
func (t *Tracker) SaveChanges(ctx context.Context, commit CommitFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	changes := t.entriesLocked()

	batch, err := t.capturer.Prepare(ctx, capture.EntriesSource(changes))
	if err != nil {
		return fmt.Errorf("preparing audit batch: %w", err)
	}

	if err := commit(ctx, changes); err != nil {
		batch.Discard()
		return err
	}

	t.acceptChanges()

	if err := t.flush(ctx, batch); err != nil {
		t.log.WithFields(logrus.Fields{
			"entries": batch.Len(),
			"error":   err,
		}).Error("audit.save_unaudited")

		return &AuditError{Batch: batch, Err: err}
	}

	return nil
}

func (t *Tracker) flush(ctx context.Context, batch *capture.Batch) error {
	if t.enqueuer != nil {
		err := batch.FlushAsync(t.enqueuer)
		if !errors.Is(err, capture.ErrQueueFull) {
			return err
		}

		t.log.WithField("entries", batch.Len()).Warn("audit.queue_full_sync_flush")
	}

	return batch.Flush(ctx)
}

func (t *Tracker) entriesLocked() []capture.TrackedEntry {
	out := make([]capture.TrackedEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, t.detect(e))
	}

	return out
}

func (t *Tracker) detect(e *tracked) capture.TrackedEntry {
	te := capture.TrackedEntry{Entity: e.entity, State: e.state, Original: e.original}
	if e.state != models.StateUnchanged && e.state != models.StateModified {
		return te
	}

	modified := capture.ModifiedProperties(e.original, t.snapshot(e.entity))
	if len(modified) == 0 {
		te.State = models.StateUnchanged
		return te
	}

	te.State = models.StateModified
	te.Modified = modified

	return te
}

// acceptChanges makes the committed state the new baseline.
func (t *Tracker) acceptChanges() {
	kept := t.entries[:0]

	for _, e := range t.entries {
		if e.state == models.StateDeleted {
			continue
		}

		e.state = models.StateUnchanged
		e.original = t.snapshot(e.entity)
		kept = append(kept, e)
	}

	clear(t.entries[len(kept):])
	t.entries = kept
}

func (t *Tracker) snapshot(entity any) map[string]any {
	props := t.capturer.Registry().Resolve(entity).Properties(entity)

	cp := make(map[string]any, len(props))
	for k, v := range props {
		cp[k] = v
	}

	return cp
}

func (t *Tracker) find(entity any) *tracked {
	for _, e := range t.entries {
		if same(e.entity, entity) {
			return e
		}
	}

	return nil
}

func (t *Tracker) drop(target *tracked) {
	for i, e := range t.entries {
		if e == target {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return
		}
	}
}

func same(a, b any) (eq bool) {
	// Uncomparable values such as maps never match.
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()

	return a == b
}

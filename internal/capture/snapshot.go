package capture

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/auditrail/internal/models"
)

// TrackedEntry is one entity reported by the host's change tracker.
type TrackedEntry struct {
	Entity any
	State  models.EntityState

	// Original holds the property values loaded before this save. Ignored for
	// Added entities. When nil for a Deleted entity the current values are used.
	Original map[string]any

	// Modified names the properties the host flagged as changed. When nil for
	// a Modified entity it is derived by comparing Original with the current values.
	Modified []string
}

// ChangeSource yields the tracked entries of one save operation in the host's
// native order.
type ChangeSource interface {
	Entries() []TrackedEntry
}

// EntriesSource adapts a plain slice to ChangeSource.
type EntriesSource []TrackedEntry

// Entries implements ChangeSource.
func (s EntriesSource) Entries() []TrackedEntry { return s }

// PendingMutation is the before/after snapshot of one tracked entity.
type PendingMutation struct {
	Entity   any
	Type     *Descriptor
	State    models.EntityState
	Original map[string]any
	Current  map[string]any
	Modified []string
}

// ReadSnapshot collects the entities of src that may produce an audit entry.
// Unchanged and Detached entries, audit entries themselves, excluded entity
// types and unregistered types are skipped. Source order is preserved.
func ReadSnapshot(src ChangeSource, reg *Registry, ex Exclusions) []PendingMutation {
	entries := src.Entries()
	out := make([]PendingMutation, 0, len(entries))

	for _, e := range entries {
		if e.State == models.StateUnchanged || e.State == models.StateDetached {
			continue
		}

		switch e.Entity.(type) {
		case models.AuditEntry, *models.AuditEntry:
			continue
		}

		desc, ok := reg.Lookup(e.Entity)
		if !ok {
			reg.log.WithFields(logrus.Fields{
				"type":  fmt.Sprintf("%T", e.Entity),
				"state": e.State.String(),
			}).Debug("audit.skip_unregistered")

			continue
		}

		if ex.EntityExcluded(desc.Name()) {
			continue
		}

		out = append(out, snapshotOf(e, desc))
	}

	return out
}

func snapshotOf(e TrackedEntry, desc *Descriptor) PendingMutation {
	m := PendingMutation{
		Entity:  e.Entity,
		Type:    desc,
		State:   e.State,
		Current: desc.Properties(e.Entity),
	}

	switch e.State {
	case models.StateAdded:
		m.Original = map[string]any{}
	case models.StateDeleted:
		m.Original = e.Original
		if m.Original == nil {
			m.Original = m.Current
		}
	default:
		m.Original = e.Original
		if m.Original == nil {
			m.Original = map[string]any{}
		}

		m.Modified = e.Modified
		if m.Modified == nil {
			m.Modified = ModifiedProperties(m.Original, m.Current)
		}
	}

	return m
}

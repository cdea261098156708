package capture

import (
	"slices"

	"github.com/persistorai/auditrail/internal/models"
)

// Classify maps a pending mutation to its audit action. A Modified entity
// whose soft-delete flag was flipped to true in this save is a SoftDelete
// when soft-delete tracking is on. Any state other than Added, Modified or
// Deleted yields no action.
func Classify(m PendingMutation, opts Options) (models.Action, bool) {
	switch m.State {
	case models.StateAdded:
		return models.ActionCreate, true
	case models.StateDeleted:
		return models.ActionDelete, true
	case models.StateModified:
		if opts.TrackSoftDeletes && isSoftDelete(m, opts.softDeleteProperty()) {
			return models.ActionSoftDelete, true
		}

		return models.ActionUpdate, true
	default:
		return "", false
	}
}

func isSoftDelete(m PendingMutation, prop string) bool {
	v, ok := m.Current[prop]
	if !ok || !slices.Contains(m.Modified, prop) {
		return false
	}

	switch b := v.(type) {
	case bool:
		return b
	case *bool:
		return b != nil && *b
	default:
		return false
	}
}

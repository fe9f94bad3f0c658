// Package ledger enforces the comparison event log rules: monotonic id
// assignment, in-place verdict revision, and the soft-delete lifecycle.
//
// An event is in exactly one of three states: active, disabled, or purged
// (absent). Allowed transitions are active->disabled (Disable),
// disabled->active (Restore) and disabled->purged (Purge). Everything else
// is a no-op reported as false.
package ledger

import (
	"github.com/horyu/NiconiCompare-sub000/internal/domain/model"
)

// firstID is the id assigned when the cursor has never advanced.
const firstID = 1

// Append records a new event with the next ledger id and advances the
// cursor. The returned event is the stored value.
func Append(log *model.EventLog, current, opponent string, verdict model.Verdict, categoryID string, now int64) model.CompareEvent {
	if log.NextID < firstID {
		log.NextID = firstID
	}
	e := model.CompareEvent{
		ID:              log.NextID,
		Timestamp:       now,
		CurrentVideoID:  current,
		OpponentVideoID: opponent,
		Verdict:         verdict,
		CategoryID:      categoryID,
	}
	log.NextID++
	log.Items = append(log.Items, e)
	return e
}

// index locates an event by id. Returns -1 when absent (purged or never
// recorded).
func index(log *model.EventLog, id int64) int {
	for i := range log.Items {
		if log.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns the event with the given id.
func Get(log *model.EventLog, id int64) (model.CompareEvent, bool) {
	i := index(log, id)
	if i < 0 {
		return model.CompareEvent{}, false
	}
	return log.Items[i], true
}

// MatchesActivePair reports whether id refers to a non-disabled event whose
// unordered video pair equals {current, opponent}. This is the in-place
// revision gate: a matching record-event call rewrites the verdict instead
// of appending.
func MatchesActivePair(log *model.EventLog, id int64, current, opponent string) bool {
	i := index(log, id)
	if i < 0 || log.Items[i].Disabled {
		return false
	}
	e := log.Items[i]
	return (e.CurrentVideoID == current && e.OpponentVideoID == opponent) ||
		(e.CurrentVideoID == opponent && e.OpponentVideoID == current)
}

// Reverdict rewrites an event's verdict and timestamp in place. Identity
// (id) and therefore rebuild position stay fixed; only the verdict's effect
// changes. Returns false when the id is absent or the event is disabled.
func Reverdict(log *model.EventLog, id int64, verdict model.Verdict, now int64) bool {
	i := index(log, id)
	if i < 0 || log.Items[i].Disabled {
		return false
	}
	log.Items[i].Verdict = verdict
	log.Items[i].Timestamp = now
	return true
}

// Disable soft-deletes an active event. Returns false when the id is absent
// or the event is already disabled.
func Disable(log *model.EventLog, id int64) bool {
	i := index(log, id)
	if i < 0 || log.Items[i].Disabled {
		return false
	}
	log.Items[i].Disabled = true
	return true
}

// Restore re-activates a disabled event. Returns false when the id is
// absent or the event is active.
func Restore(log *model.EventLog, id int64) bool {
	i := index(log, id)
	if i < 0 || !log.Items[i].Disabled {
		return false
	}
	log.Items[i].Disabled = false
	return true
}

// Purge removes a disabled event from the ledger entirely. Only the
// disabled state allows purging; purging an active event is rejected.
func Purge(log *model.EventLog, id int64) bool {
	i := index(log, id)
	if i < 0 || !log.Items[i].Disabled {
		return false
	}
	log.Items = append(log.Items[:i], log.Items[i+1:]...)
	return true
}

// ActiveEvents returns the non-disabled events.
func ActiveEvents(log *model.EventLog) []model.CompareEvent {
	out := make([]model.CompareEvent, 0, len(log.Items))
	for _, e := range log.Items {
		if !e.Disabled {
			out = append(out, e)
		}
	}
	return out
}

// ReassignCategory moves the events with the given ids to the target
// category and reports how many were moved. Unknown ids are skipped.
func ReassignCategory(log *model.EventLog, ids []int64, to string) int {
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	moved := 0
	for i := range log.Items {
		if want[log.Items[i].ID] && log.Items[i].CategoryID != to {
			log.Items[i].CategoryID = to
			moved++
		}
	}
	return moved
}

// MoveCategory reassigns every event of one category to another. Events
// keep their ids, so their order relative to the target category's
// pre-existing events is preserved on rebuild.
func MoveCategory(log *model.EventLog, from, to string) int {
	moved := 0
	for i := range log.Items {
		if log.Items[i].CategoryID == from {
			log.Items[i].CategoryID = to
			moved++
		}
	}
	return moved
}

// DropCategory removes every event of the category from the ledger and
// reports how many were dropped.
func DropCategory(log *model.EventLog, from string) int {
	kept := log.Items[:0]
	dropped := 0
	for _, e := range log.Items {
		if e.CategoryID == from {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	log.Items = kept
	return dropped
}

// ReferencedVideoIDs returns the set of video ids any event (disabled
// included) still references. Used by the maintenance sweep.
func ReferencedVideoIDs(log *model.EventLog) map[string]bool {
	refs := make(map[string]bool, len(log.Items)*2)
	for _, e := range log.Items {
		refs[e.CurrentVideoID] = true
		refs[e.OpponentVideoID] = true
	}
	return refs
}

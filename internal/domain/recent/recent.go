// Package recent derives the bounded recency list of comparison candidates.
package recent

import (
	"sort"

	"github.com/horyu/NiconiCompare-sub000/internal/domain/model"
)

// ScanBudget caps how many ledger entries a rebuild inspects, newest first,
// regardless of how few ids have been collected.
const ScanBudget = 100

// Update prepends candidates (in given order) ahead of the existing window,
// dropping unknown videos and duplicates, truncated to max(1, size).
func Update(current []string, size int, candidates []string, exists func(string) bool) []string {
	if size < 1 {
		size = 1
	}

	out := make([]string, 0, size)
	seen := make(map[string]bool, size)
	push := func(id string) {
		if len(out) >= size || id == "" || seen[id] || !exists(id) {
			return
		}
		seen[id] = true
		out = append(out, id)
	}

	for _, id := range candidates {
		push(id)
	}
	for _, id := range current {
		push(id)
	}
	return out
}

// RebuildFromEvents derives the window from the ledger alone: it walks the
// most recent ScanBudget events in descending id order, skips disabled ones,
// and collects each event's two video ids (unknown or already-collected ids
// are skipped) until size distinct ids are gathered or the budget runs out.
// A non-positive size yields an empty window.
func RebuildFromEvents(events []model.CompareEvent, size int, exists func(string) bool) []string {
	if size <= 0 {
		return nil
	}

	ordered := make([]model.CompareEvent, len(events))
	copy(ordered, events)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID > ordered[j].ID })
	if len(ordered) > ScanBudget {
		ordered = ordered[:ScanBudget]
	}

	out := make([]string, 0, size)
	seen := make(map[string]bool, size)
	push := func(id string) {
		if len(out) >= size || id == "" || seen[id] || !exists(id) {
			return
		}
		seen[id] = true
		out = append(out, id)
	}

	for _, e := range ordered {
		if e.Disabled {
			continue
		}
		push(e.CurrentVideoID)
		push(e.OpponentVideoID)
		if len(out) >= size {
			break
		}
	}
	return out
}

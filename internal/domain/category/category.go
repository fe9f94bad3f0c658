// Package category maintains the categories collection invariants.
//
// Any categories value sourced from outside (storage read, import,
// migration) must pass through Normalize before use.
package category

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/horyu/NiconiCompare-sub000/internal/domain/model"
)

// DefaultName is the display name of the reserved default category.
const DefaultName = "Default"

// maxNameLength bounds category names in runes.
const maxNameLength = 50

// New creates a category with a fresh UUID id. The name must already be
// validated.
func New(name string, now int64) model.Category {
	return model.Category{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
	}
}

// ValidateName checks a user-supplied category name: 1-50 runes after
// trimming, no control characters.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if utf8.RuneCountInString(trimmed) > maxNameLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidName, maxNameLength)
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character", ErrInvalidName)
		}
	}
	return nil
}

// Normalize repairs a categories collection so the invariants hold:
// the default entry exists in items, order contains only known ids with the
// default present, overlayVisibleIds is a non-empty subset of items, and
// defaultId is set. Total (nil input yields the canonical collection) and
// idempotent.
func Normalize(raw *model.Categories) model.Categories {
	out := model.Categories{
		Items:             make(map[string]model.Category),
		Order:             nil,
		OverlayVisibleIDs: nil,
		DefaultID:         model.DefaultCategoryID,
	}

	if raw != nil {
		if raw.DefaultID != "" {
			out.DefaultID = raw.DefaultID
		}
		for id, item := range raw.Items {
			if id == "" {
				continue
			}
			item.ID = id
			out.Items[id] = item
		}
	}

	if _, ok := out.Items[out.DefaultID]; !ok {
		out.Items[out.DefaultID] = model.Category{
			ID:   out.DefaultID,
			Name: DefaultName,
		}
	}

	seen := make(map[string]bool, len(out.Items))
	if raw != nil {
		for _, id := range raw.Order {
			if _, ok := out.Items[id]; !ok || seen[id] {
				continue
			}
			seen[id] = true
			out.Order = append(out.Order, id)
		}
	}
	if !seen[out.DefaultID] {
		out.Order = append([]string{out.DefaultID}, out.Order...)
	}

	visibleSeen := make(map[string]bool, len(out.Items))
	if raw != nil {
		for _, id := range raw.OverlayVisibleIDs {
			if _, ok := out.Items[id]; !ok || visibleSeen[id] {
				continue
			}
			visibleSeen[id] = true
			out.OverlayVisibleIDs = append(out.OverlayVisibleIDs, id)
		}
	}
	if len(out.OverlayVisibleIDs) == 0 {
		out.OverlayVisibleIDs = []string{out.DefaultID}
	}

	return out
}

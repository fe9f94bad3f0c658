// Package repository defines the persisted snapshot store interface and errors.
//
// The store is the sole authority over persisted entities. It exposes the
// snapshot as logical keys with whole-entity read and atomic multi-key
// write; the rating core depends only on this narrow interface so tests can
// substitute the in-memory implementation.
package repository

import (
	"context"

	"github.com/horyu/NiconiCompare-sub000/internal/domain/model"
)

// Key names one logical entity of the persisted snapshot.
type Key string

// The persisted snapshot keys.
const (
	KeySettings   Key = "settings"
	KeyState      Key = "state"
	KeyEvents     Key = "events"
	KeyRatings    Key = "ratings"
	KeyMeta       Key = "meta"
	KeyVideos     Key = "videos"
	KeyAuthors    Key = "authors"
	KeyCategories Key = "categories"
)

// AllKeys lists every snapshot key.
func AllKeys() []Key {
	return []Key{
		KeySettings, KeyState, KeyEvents, KeyRatings,
		KeyMeta, KeyVideos, KeyAuthors, KeyCategories,
	}
}

// Snapshot carries the decoded entities for the requested keys. A nil field
// means the key was not requested or has never been written; callers
// normalize before use.
type Snapshot struct {
	Settings   *model.Settings
	State      *model.SessionState
	Events     *model.EventLog
	Ratings    model.Ratings
	Meta       *model.Meta
	Videos     map[string]model.Video
	Authors    map[string]model.Author
	Categories *model.Categories
}

// Changes is a partial snapshot write. Non-nil fields are persisted
// together in one atomic commit; nil fields are left untouched.
type Changes struct {
	Settings   *model.Settings
	State      *model.SessionState
	Events     *model.EventLog
	Ratings    model.Ratings
	Meta       *model.Meta
	Videos     map[string]model.Video
	Authors    map[string]model.Author
	Categories *model.Categories
}

// Empty reports whether the changeset writes nothing.
func (c Changes) Empty() bool {
	return c.Settings == nil && c.State == nil && c.Events == nil &&
		c.Ratings == nil && c.Meta == nil && c.Videos == nil &&
		c.Authors == nil && c.Categories == nil
}

// Store provides read/write access to the persisted snapshot.
type Store interface {
	// Get reads the requested keys. Missing keys come back as nil fields,
	// not errors.
	Get(ctx context.Context, keys ...Key) (Snapshot, error)

	// Set persists every non-nil field of changes in one atomic commit.
	Set(ctx context.Context, changes Changes) error

	// Close releases the underlying resources.
	Close() error
}

// Package model contains domain models passed between layers.
package model

// DefaultCategoryID is the reserved id of the non-deletable default category.
const DefaultCategoryID = "default"

// SchemaVersion is the current persisted snapshot schema version.
const SchemaVersion = 3

// Verdict is the three-way outcome of a comparison, interpreted as the
// current video relative to the opponent.
type Verdict string

// Supported verdicts.
const (
	VerdictBetter Verdict = "better"
	VerdictSame   Verdict = "same"
	VerdictWorse  Verdict = "worse"
)

// Valid reports whether v is one of the supported verdicts.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictBetter, VerdictSame, VerdictWorse:
		return true
	default:
		return false
	}
}

// CompareEvent is one recorded pairwise verdict. Events are soft-deleted via
// Disabled and hard-removed only from the disabled state.
type CompareEvent struct {
	ID              int64   `json:"id"`
	Timestamp       int64   `json:"timestamp"` // ms epoch
	CurrentVideoID  string  `json:"currentVideoId"`
	OpponentVideoID string  `json:"opponentVideoId"`
	Verdict         Verdict `json:"verdict"`
	Disabled        bool    `json:"disabled"`
	CategoryID      string  `json:"categoryId"`
}

// EventLog is the ledger: every event plus the monotonic id cursor.
type EventLog struct {
	Items  []CompareEvent `json:"items"`
	NextID int64          `json:"nextId"`
}

// RatingSnapshot is a per-video, per-category skill estimate with the id of
// the last event that produced it.
type RatingSnapshot struct {
	VideoID            string  `json:"videoId"`
	Rating             float64 `json:"rating"`
	RD                 float64 `json:"rd"`
	Volatility         float64 `json:"volatility"`
	UpdatedFromEventID int64   `json:"updatedFromEventId"`
}

// CategoryRatings maps videoId to its snapshot within one category.
type CategoryRatings map[string]RatingSnapshot

// Ratings maps categoryId to that category's rating table. It is a
// materialized cache: exactly reproducible by replaying the category's
// non-disabled events in ascending id order.
type Ratings map[string]CategoryRatings

// GlickoParams holds the Glicko base parameters used to seed new snapshots.
type GlickoParams struct {
	Rating     float64 `json:"rating"`
	RD         float64 `json:"rd"`
	Volatility float64 `json:"volatility"`
}

// Category is a user-defined partition of comparison history.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
}

// Categories is the categories collection with display order and overlay
// visibility. Normalize before use whenever it comes from outside.
type Categories struct {
	Items             map[string]Category `json:"items"`
	Order             []string            `json:"order"`
	OverlayVisibleIDs []string            `json:"overlayVisibleIds"`
	DefaultID         string              `json:"defaultId"`
}

// Settings are the user-tunable parameters. Boolean toggles are pointers so
// an absent field is distinguishable from an explicit false; the normalizer
// fills absences from defaults.
type Settings struct {
	RecentWindowSize int          `json:"recentWindowSize"`
	PopupRecentCount int          `json:"popupRecentCount"`
	OverlayEnabled   *bool        `json:"overlayEnabled,omitempty"`
	ShowThumbnails   *bool        `json:"showThumbnails,omitempty"`
	AutoCloseDelayMS int          `json:"autoCloseDelayMs"`
	ActiveCategoryID string       `json:"activeCategoryId"`
	Glicko           GlickoParams `json:"glicko"`
}

// SessionState is transient, derived session data.
type SessionState struct {
	CurrentVideoID   string   `json:"currentVideoId"`
	PinnedOpponentID string   `json:"pinnedOpponentId"`
	RecentWindow     []string `json:"recentWindow"`
}

// Video is a host-page video known to the system.
type Video struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	AuthorID     string `json:"authorId"`
	ThumbnailURL string `json:"thumbnailUrl"`
	RegisteredAt int64  `json:"registeredAt"`
}

// Author is a host-page video author.
type Author struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IconURL string `json:"iconUrl"`
}

// Meta carries schema and maintenance bookkeeping.
type Meta struct {
	SchemaVersion  int     `json:"schemaVersion"`
	LastCleanupAt  int64   `json:"lastCleanupAt"`
	FailedWriteIDs []int64 `json:"failedWriteIds"`
}

// Bool returns a pointer to b, for filling Settings toggles.
func Bool(b bool) *bool { return &b }

// Package settings clamps and fills the user-tunable parameters.
package settings

import (
	"math"

	"github.com/horyu/NiconiCompare-sub000/internal/domain/model"
)

// Bounds and defaults applied on every normalization.
const (
	DefaultRecentWindowSize = 10
	DefaultPopupRecentCount = 5
	MaxRecentWindowSize     = 50
	MaxPopupRecentCount     = 50

	MinAutoCloseDelayMS     = 500
	MaxAutoCloseDelayMS     = 60000
	DefaultAutoCloseDelayMS = 3000
)

// DefaultGlicko returns the seed parameters for new rating snapshots.
func DefaultGlicko() model.GlickoParams {
	return model.GlickoParams{Rating: 1500, RD: 350, Volatility: 0.06}
}

// Default returns fully-populated default settings.
func Default() model.Settings {
	return Normalize(nil)
}

// Normalize clamps every numeric field, fills missing toggles and glicko
// seeds, and defaults the active category. Total (nil yields defaults) and
// idempotent.
func Normalize(s *model.Settings) model.Settings {
	var out model.Settings
	if s != nil {
		out = *s
	}

	out.RecentWindowSize = clampCount(out.RecentWindowSize, DefaultRecentWindowSize, MaxRecentWindowSize)
	out.PopupRecentCount = clampCount(out.PopupRecentCount, DefaultPopupRecentCount, MaxPopupRecentCount)

	if out.AutoCloseDelayMS == 0 {
		out.AutoCloseDelayMS = DefaultAutoCloseDelayMS
	}
	if out.AutoCloseDelayMS < MinAutoCloseDelayMS {
		out.AutoCloseDelayMS = MinAutoCloseDelayMS
	}
	if out.AutoCloseDelayMS > MaxAutoCloseDelayMS {
		out.AutoCloseDelayMS = MaxAutoCloseDelayMS
	}

	if out.OverlayEnabled == nil {
		out.OverlayEnabled = model.Bool(true)
	}
	if out.ShowThumbnails == nil {
		out.ShowThumbnails = model.Bool(true)
	}

	out.Glicko = fillGlicko(out.Glicko)

	if out.ActiveCategoryID == "" {
		out.ActiveCategoryID = model.DefaultCategoryID
	}

	return out
}

// clampCount floors to an integer count in [1, max], falling back to def on
// zero or negative input.
func clampCount(v, def, max int) int {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

// fillGlicko replaces absent or nonsensical seed fields with the defaults.
func fillGlicko(g model.GlickoParams) model.GlickoParams {
	def := DefaultGlicko()
	if !(g.Rating > 0) || math.IsInf(g.Rating, 0) {
		g.Rating = def.Rating
	}
	if !(g.RD > 0) || math.IsInf(g.RD, 0) {
		g.RD = def.RD
	}
	if !(g.Volatility > 0) || math.IsInf(g.Volatility, 0) {
		g.Volatility = def.Volatility
	}
	return g
}

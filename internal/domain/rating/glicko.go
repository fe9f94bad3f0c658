// Package rating implements the pairwise skill-update algorithm and the
// full-history rating rebuild.
//
// The update is a Glicko-2 rating-period computation with a single game per
// period, run independently for each side of a comparison against the other
// side's pre-update values. Variable naming follows Professor Mark E.
// Glickman's paper (mu, phi, sigma, tau, g, E, v, delta).
// See https://www.glicko.net/glicko/glicko2.pdf.
package rating

import (
	"math"

	"github.com/horyu/NiconiCompare-sub000/internal/domain/model"
)

const (
	// tau constrains volatility change per period.
	tau = 0.5
	// scale converts between the display scale and the Glicko-2 scale.
	scale = 173.7178
	// epsilon is the volatility iteration convergence tolerance.
	epsilon = 0.000001

	// RD bounds on the display scale. The floor keeps long-established
	// videos from becoming immovable; the ceiling matches the seed RD.
	minRD = 30.0
	maxRD = 350.0
)

// toMuPhi converts display-scale rating/deviation to the Glicko-2 scale.
// base is the configured rating anchor (settings glicko rating).
func toMuPhi(rating, rd, base float64) (mu, phi float64) {
	return (rating - base) / scale, rd / scale
}

// fromMuPhi converts Glicko-2 scale values back to the display scale.
func fromMuPhi(mu, phi, base float64) (rating, rd float64) {
	return mu*scale + base, phi * scale
}

func g(phi float64) float64 {
	return 1 / math.Sqrt(1+(3*phi*phi)/(math.Pi*math.Pi))
}

func expectedScore(mu, muJ, phiJ float64) float64 {
	return 1 / (1 + math.Exp(-g(phiJ)*(mu-muJ)))
}

// updateOne applies the single-game Glicko-2 update to player against the
// opponent's pre-update values, with score in {0, 0.5, 1}.
func updateOne(params model.GlickoParams, player, opponent model.RatingSnapshot, score float64) (rating, rd, volatility float64) {
	base := params.Rating

	mu, phi := toMuPhi(player.Rating, player.RD, base)
	muJ, phiJ := toMuPhi(opponent.Rating, opponent.RD, base)

	gJ := g(phiJ)
	e := expectedScore(mu, muJ, phiJ)

	v := 1 / (gJ * gJ * e * (1 - e))
	delta := v * gJ * (score - e)

	sigma := volatilityPrime(player.Volatility, delta, phi, v)

	phiStar := math.Sqrt(phi*phi + sigma*sigma)
	phiNew := 1 / math.Sqrt(1/(phiStar*phiStar)+1/v)
	muNew := mu + phiNew*phiNew*gJ*(score-e)

	rating, rd = fromMuPhi(muNew, phiNew, base)
	rd = math.Max(minRD, math.Min(maxRD, rd))
	return rating, rd, sigma
}

// volatilityPrime solves for the new volatility via the iterative
// root-finding algorithm from the Glicko-2 paper (step 5).
func volatilityPrime(sigma, delta, phi, v float64) float64 {
	a := math.Log(sigma * sigma)
	delta2 := delta * delta
	phi2 := phi * phi

	f := func(x float64) float64 {
		ex := math.Exp(x)
		tmp := phi2 + v + ex
		return (ex*(delta2-phi2-v-ex))/(2*tmp*tmp) - (x-a)/(tau*tau)
	}

	upper := a
	var lower float64
	if delta2 > phi2+v {
		lower = math.Log(delta2 - phi2 - v)
	} else {
		k := 1.0
		for f(a-k*tau) < 0 {
			k++
		}
		lower = a - k*tau
	}

	fUpper := f(upper)
	fLower := f(lower)
	for math.Abs(lower-upper) > epsilon {
		c := upper + (upper-lower)*fUpper/(fLower-fUpper)
		fC := f(c)
		if fC*fLower <= 0 {
			upper = lower
			fUpper = fLower
		} else {
			fUpper /= 2
		}
		lower = c
		fLower = fC
	}

	return math.Exp(upper / 2)
}

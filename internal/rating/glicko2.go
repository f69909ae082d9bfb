// internal/rating/glicko2.go
package rating

import (
	"math"
)

const (
	// GlickoScale is the multiplier used for converting between the rating scale and Glicko2's mu.
	GlickoScale = 173.7178
	// DefaultValue is the baseline rating (1500).
	DefaultValue = 1500.0
	// DefaultRD is the baseline rating deviation (350).
	DefaultRD = 350.0
	// DefaultVolatility is the starting volatility.
	DefaultVolatility = 0.06
	// Tau is the constraint on volatility changes.
	Tau = 0.5
	// Epsilon is the tolerance used in iteration stopping conditions.
	Epsilon = 0.000001
)

// glicko2 holds the transformed rating (mu), rating deviation (phi),
// and volatility (sigma) in Glicko2 space.
type glicko2 struct {
	mu    float64
	phi   float64
	sigma float64
}

func (r Rating) toGlicko2() glicko2 {
	return glicko2{
		mu:    (r.Value - DefaultValue) / GlickoScale,
		phi:   r.RD / GlickoScale,
		sigma: r.Volatility,
	}
}

func (r glicko2) toRating() Rating {
	return Rating{
		Value:      r.mu*GlickoScale + DefaultValue,
		RD:         r.phi * GlickoScale,
		Volatility: r.sigma,
	}
}

// updateGlicko performs a single-match Glicko2 update with volatility for r
// against an opponent rOpp, given the final score in [0..1].
func updateGlicko(r, rOpp glicko2, score float64) glicko2 {
	gVal := g(rOpp.phi)
	EVal := E(r.mu, rOpp.mu, rOpp.phi)

	v := 1.0 / (gVal * gVal * EVal * (1 - EVal))
	delta := v * gVal * (score - EVal)

	a := math.Log(r.sigma * r.sigma)
	fx := func(x float64) float64 {
		return f(x, r.phi, v, delta, a)
	}

	A := a
	var B float64
	if delta*delta > r.phi*r.phi+v {
		B = math.Log(delta*delta - r.phi*r.phi - v)
	} else {
		k := 1.0
		for fx(a-k*Tau) < 0 {
			k++
		}
		B = a - k*Tau
	}

	// Illinois variant of regula falsi
	fA, fB := fx(A), fx(B)
	for i := 0; i < 100 && math.Abs(B-A) > Epsilon; i++ {
		C := A + (A-B)*fA/(fB-fA)
		fC := fx(C)
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}

	newSigma := math.Exp(A / 2)
	phiStar := math.Sqrt(r.phi*r.phi + newSigma*newSigma)
	phiPrime := 1.0 / math.Sqrt(1.0/(phiStar*phiStar)+1.0/v)
	muPrime := r.mu + phiPrime*phiPrime*gVal*(score-EVal)

	return glicko2{
		mu:    muPrime,
		phi:   phiPrime,
		sigma: newSigma,
	}
}

// g is the G(phi) factor from Glicko2, applying the standard formula 1/sqrt(1+3phi^2/pi^2).
func g(phi float64) float64 {
	return 1.0 / math.Sqrt(1.0+3.0*phi*phi/math.Pi/math.Pi)
}

// E is the expected score formula in Glicko2 space, E(mu,mu2,phi2)=1/(1+exp[-g(phi2)*(mu-mu2)])
func E(mu, mu2, phi2 float64) float64 {
	return 1.0 / (1.0 + math.Exp(-g(phi2)*(mu-mu2)))
}

// f is the Glicko2 volatility root-finding function used in the iterative volatility update.
func f(x, phi, v, delta, a float64) float64 {
	ex := math.Exp(x)
	num := ex * (delta*delta - phi*phi - v - ex)
	den := 2.0 * (phi*phi + v + ex) * (phi*phi + v + ex)
	return (num / den) - ((x - a) / (Tau * Tau))
}

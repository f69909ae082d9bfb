package rating

import "math"

// Rating is a player's Glicko-2 rating on the familiar 1500-based scale.
type Rating struct {
	Value      float64 `json:"value"`
	RD         float64 `json:"rd"`
	Volatility float64 `json:"volatility"`
}

// Default is the rating every new account starts with.
func Default() Rating {
	return Rating{Value: DefaultValue, RD: DefaultRD, Volatility: DefaultVolatility}
}

// houseRatings are fixed ratings for the opponent strategies. Their small RD makes a
// result against them count like a result against an established player.
var houseRatings = map[string]float64{
	"first":  1200,
	"random": 1400,
	"greedy": 1700,
}

// House returns the fixed rating of an opponent strategy. Unknown names rate as average.
func House(strategy string) Rating {
	v, ok := houseRatings[strategy]
	if !ok {
		v = DefaultValue
	}
	return Rating{Value: v, RD: 50, Volatility: DefaultVolatility}
}

// Score maps a battle outcome to a Glicko score. ok is false for outcomes that are not final.
func Score(outcome string) (score float64, ok bool) {
	switch outcome {
	case "win":
		return 1, true
	case "draw":
		return 0.5, true
	case "lose":
		return 0, true
	}
	return 0, false
}

// Update applies one rated battle of player against opponent.
func Update(player, opponent Rating, score float64) Rating {
	if player.RD <= 0 {
		player = Default()
	}
	next := updateGlicko(player.toGlicko2(), opponent.toGlicko2(), score).toRating()
	next.Value = math.Round(next.Value*100) / 100
	return next
}

// internal/battle/rules.go
package battle

import (
	"fmt"
	"math"
)

// TiePolicy decides who takes a round when both table cards have equal power.
type TiePolicy string

const (
	TieDraw     TiePolicy = "draw"     // nobody scores
	TieOpponent TiePolicy = "opponent" // the house takes ties
	TiePlayer   TiePolicy = "player"
)

// EndPolicy decides the outcome when both hands empty on the same round.
type EndPolicy string

const (
	EndByScore EndPolicy = "score" // more rounds won wins, equal scores draw
	EndDraw    EndPolicy = "draw"
)

const (
	DefaultHandSize = 4
	DefaultMaxPower = 10
	maxHandSize     = 16
)

// Rules configures a battle. Zero values are replaced by defaults in NewEngine.
type Rules struct {
	HandSize  int       `json:"handSize"`  // cards dealt to each side
	TiePolicy TiePolicy `json:"tiePolicy"` // resolution of equal power rounds
	EndPolicy EndPolicy `json:"endPolicy"` // resolution when both hands empty together
	MaxPower  int       `json:"maxPower"`  // upper bound for dealt card power
}

// DefaultRules returns the standard rule set.
func DefaultRules() Rules {
	return Rules{
		HandSize:  DefaultHandSize,
		TiePolicy: TieDraw,
		EndPolicy: EndByScore,
		MaxPower:  DefaultMaxPower,
	}
}

// normalize fills zero values with defaults.
func (rules Rules) normalize() Rules {
	def := DefaultRules()
	if rules.HandSize <= 0 {
		rules.HandSize = def.HandSize
	}
	if rules.TiePolicy == "" {
		rules.TiePolicy = def.TiePolicy
	}
	if rules.EndPolicy == "" {
		rules.EndPolicy = def.EndPolicy
	}
	if rules.MaxPower <= 0 {
		rules.MaxPower = def.MaxPower
	}
	return rules
}

// Update will update the rules with the new values provided.
// Keys that are missing or nil are ignored and the old value persists.
// On error the rules are left unchanged.
func (rules *Rules) Update(newRules map[string]interface{}) error {
	next := *rules

	assignInt := func(field *int, key string, minVal, maxVal int) error {
		val, exists := newRules[key]
		if !exists || val == nil {
			return nil
		}
		var n int
		switch v := val.(type) {
		case float64: // JSON numbers decode as float64
			if v != math.Trunc(v) {
				return fmt.Errorf("%s must be a whole number", key)
			}
			n = int(v)
		case int:
			n = v
		default:
			return fmt.Errorf("invalid type for %s", key)
		}
		if n < minVal || (maxVal > 0 && n > maxVal) {
			return fmt.Errorf("%s out of range: %d", key, n)
		}
		*field = n
		return nil
	}

	assignString := func(key string, allowed ...string) (string, bool, error) {
		val, exists := newRules[key]
		if !exists || val == nil {
			return "", false, nil
		}
		s, ok := val.(string)
		if !ok {
			return "", false, fmt.Errorf("invalid type for %s", key)
		}
		for _, a := range allowed {
			if s == a {
				return s, true, nil
			}
		}
		return "", false, fmt.Errorf("unknown %s %q", key, s)
	}

	if err := assignInt(&next.HandSize, "handSize", 1, maxHandSize); err != nil {
		return err
	}
	if err := assignInt(&next.MaxPower, "maxPower", 1, 0); err != nil {
		return err
	}

	tie, ok, err := assignString("tiePolicy", string(TieDraw), string(TieOpponent), string(TiePlayer))
	if err != nil {
		return err
	}
	if ok {
		next.TiePolicy = TiePolicy(tie)
	}

	end, ok, err := assignString("endPolicy", string(EndByScore), string(EndDraw))
	if err != nil {
		return err
	}
	if ok {
		next.EndPolicy = EndPolicy(end)
	}
	*rules = next
	return nil
}

// ParseRules applies a map of rules on top of current and validates the types.
// On error current is returned unchanged.
func ParseRules(newRules map[string]interface{}, current Rules) (Rules, error) {
	rules := current
	err := rules.Update(newRules)
	return rules, err
}

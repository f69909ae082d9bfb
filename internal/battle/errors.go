package battle

import (
	"errors"
	"fmt"
)

// ErrInvalidSelection is returned when a card cannot be played: it is not in the acting hand, or the game is over.
var ErrInvalidSelection = errors.New("invalid selection")

// ErrCardNotInHand indicates the chosen card is not a current member of the player's hand.
var ErrCardNotInHand = fmt.Errorf("%w: card is not in the player's hand", ErrInvalidSelection)

// ErrGameOver indicates a card was chosen after the game ended.
var ErrGameOver = fmt.Errorf("%w: game has ended", ErrInvalidSelection)

package models

import "github.com/google/uuid"

type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"password,omitempty"`
	Username string    `json:"username"`

	IsEphemeral bool `json:"is_ephemeral"`
	IsAdmin     bool `json:"is_admin"`

	// battle record
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Draws  int `json:"draws"`

	// Glicko-2 rating against the house strategies
	Rating           float64 `json:"rating"`
	RatingRD         float64 `json:"rating_rd"`
	RatingVolatility float64 `json:"-"`
}

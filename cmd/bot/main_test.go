package main

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/battlecards/internal/battle"
	"github.com/jason-s-yu/battlecards/internal/session"
	"github.com/stretchr/testify/assert"
)

func TestPick(t *testing.T) {
	hand := []session.ViewCard{
		{ID: uuid.New(), Known: true, Power: 7},
		{ID: uuid.New(), Known: true, Power: 2},
		{ID: uuid.New(), Known: true, Power: 5},
	}
	assert.Equal(t, hand[0].ID, pick(battle.FirstStrategy{}, hand))
	// greedy plays its weakest card when the opponent card is unknown
	assert.Equal(t, hand[1].ID, pick(battle.GreedyStrategy{}, hand))
}

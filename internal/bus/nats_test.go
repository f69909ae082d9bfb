package bus

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPublishWithoutConnection(t *testing.T) {
	Conn = nil
	id := uuid.MustParse("4cee3894-db10-41d5-a6f6-3aada74ea167")
	assert.Equal(t, "battlecards.actions.4cee3894-db10-41d5-a6f6-3aada74ea167", Subject(id))
	assert.NoError(t, Publish(id, []byte("{}")))

	_, err := Subscribe(func(string, []byte) {})
	assert.Error(t, err)
	Close()
}

// internal/bus/nats.go
package bus

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// SubjectPrefix is prepended to every battle subject.
const SubjectPrefix = "battlecards.actions"

// Conn is the global NATS connection. nil disables live event fan-out.
var Conn *nats.Conn

// Connect dials the NATS server with reconnects enabled.
func Connect(url string) error {
	nc, err := nats.Connect(url,
		nats.Name("battlecards"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	Conn = nc
	return nil
}

// Subject returns the subject a battle's actions are published on.
func Subject(battleID uuid.UUID) string {
	return SubjectPrefix + "." + battleID.String()
}

// Publish sends data on the battle's subject. It is a no-op without a connection.
func Publish(battleID uuid.UUID, data []byte) error {
	if Conn == nil {
		return nil
	}
	if err := Conn.Publish(Subject(battleID), data); err != nil {
		return fmt.Errorf("nats publish %s: %w", Subject(battleID), err)
	}
	return nil
}

// Subscribe registers a handler for every battle's actions.
func Subscribe(handler func(subject string, data []byte)) (*nats.Subscription, error) {
	if Conn == nil {
		return nil, fmt.Errorf("nats is not connected")
	}
	return Conn.Subscribe(SubjectPrefix+".>", func(m *nats.Msg) {
		handler(m.Subject, m.Data)
	})
}

// Close drains and closes the global connection.
func Close() {
	if Conn == nil {
		return
	}
	if err := Conn.Drain(); err != nil {
		Conn.Close()
	}
	Conn = nil
}

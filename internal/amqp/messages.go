package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// EventMessage is the wire form of a ledger event. MessageID lets consumers
// drop redeliveries they have already applied.
type EventMessage struct {
	MessageID   string           `json:"messageId"`
	Kind        core.EventKind   `json:"kind"`
	Transaction core.Transaction `json:"transaction"`
	Timestamp   time.Time        `json:"timestamp"`
}

func NewEventMessage(ev core.LedgerEvent) *EventMessage {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return &EventMessage{
		MessageID:   uuid.NewString(),
		Kind:        ev.Kind,
		Transaction: ev.Transaction,
		Timestamp:   ts,
	}
}

func (m *EventMessage) Event() core.LedgerEvent {
	return core.NewLedgerEvent(m.Kind, m.Transaction, m.Timestamp)
}

func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventMessageFromJSON decodes and sanity checks a message body.
func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case core.EventTransactionCreated, core.EventTransactionUpdated, core.EventTransactionDeleted:
	default:
		return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
	if msg.Transaction.ID == "" {
		return nil, fmt.Errorf("event without transaction id")
	}
	return &msg, nil
}

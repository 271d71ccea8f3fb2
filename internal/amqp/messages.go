package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"tracker/internal/ledger"
)

// LedgerEventMessage announces one ledger mutation. It carries no record
// data: consumers reload the ledger they mirror.
type LedgerEventMessage struct {
	Kind      string    `json:"kind"`
	ID        int64     `json:"id"`
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEventMessage stamps a new event with the current time.
func NewLedgerEventMessage(kind string, id int64, index int) *LedgerEventMessage {
	return &LedgerEventMessage{
		Kind:      kind,
		ID:        id,
		Index:     index,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON decodes and checks a message body.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case ledger.EventAppended, ledger.EventRemoved, ledger.EventChanged:
		return &msg, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
}

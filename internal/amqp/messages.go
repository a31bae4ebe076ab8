package amqp

import (
	"encoding/json"
	"time"
)

// LedgerSyncMessage asks the worker to back up one transaction to the
// ledger sheet. It carries only the id and version; the worker fetches
// the row itself so stale messages can be detected.
type LedgerSyncMessage struct {
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerSyncMessage(id, version int64) *LedgerSyncMessage {
	return &LedgerSyncMessage{
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *LedgerSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerSyncMessageFromJSON(data []byte) (*LedgerSyncMessage, error) {
	var msg LedgerSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

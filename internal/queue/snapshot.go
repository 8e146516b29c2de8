package queue

import (
	"encoding/json"
	"fmt"
)

// Snapshot is the serialized payload carried by a queue entry. It captures
// everything the remote adapter needs to replay the mutation later:
// identity fields plus the domain payload as it was at enqueue time.
//
// Creates carry owner, stable key, date, and the domain payload; updates
// carry the remote id plus the replacement payload; deletes carry only the
// remote id.
type Snapshot struct {
	RemoteID  string          `json:"remote_id,omitempty"`
	OwnerID   string          `json:"owner_id,omitempty"`
	StableKey string          `json:"stable_key,omitempty"`
	Date      string          `json:"date,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Encode serializes the snapshot for storage in the queue.
func (s Snapshot) Encode() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mutation snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot deserializes a queue entry payload.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode mutation snapshot: %w", err)
	}
	return s, nil
}

// Package deadletter provides sinks for items that fail terminally during an
// execution. A sink receives the failed item together with its error and
// provenance; implementations range from an in-memory ring for tests to
// JetStream, blob storage and Postgres for durable capture. Sink failures are
// logged by the engine and never abort the execution.
package deadletter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wehubfusion/Daedalus/pkg/engine"
)

// Sink is the contract the engine routes dead letters through.
type Sink = engine.DeadLetterSink

// Record is the JSON envelope shared by the NATS, blob and Postgres sinks.
// Consumers of a dead-letter subject or archive decode this shape.
type Record struct {
	NodeID      string          `json:"nodeId"`
	ExecutionID string          `json:"executionId"`
	Item        json.RawMessage `json:"item"`
	Error       string          `json:"error,omitempty"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// NewRecord builds the envelope for a dead letter.
func NewRecord(letter engine.DeadLetter) Record {
	msg := ""
	if letter.Err != nil {
		msg = letter.Err.Error()
	}
	return Record{
		NodeID:      letter.NodeID,
		ExecutionID: letter.ExecutionID,
		Item:        marshalItem(letter.Item),
		Error:       msg,
		OccurredAt:  letter.Time,
	}
}

// Encode renders the record as JSON.
func (r Record) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// marshalItem renders an item as JSON, degrading to its printed form when the
// value cannot be marshaled (channels, functions, cycles).
func marshalItem(item any) json.RawMessage {
	data, err := json.Marshal(item)
	if err != nil {
		data, _ = json.Marshal(fmt.Sprintf("%+v", item))
	}
	return data
}

package audit

import (
	"encoding/json"
	"time"
)

// Record is one consumed domain event as stored by the audit consumer.
type Record struct {
	EventID       string
	EventName     string
	AggregateType string
	AggregateID   string
	Payload       json.RawMessage
	OccurredAt    time.Time
	ReceivedAt    time.Time
}

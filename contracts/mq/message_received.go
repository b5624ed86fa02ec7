package mq

import "time"

// MessageReceivedPayload is the payload of the `message.received` event,
// published by mail connectors when a new raw email lands.
type MessageReceivedPayload struct {
	SourceID   string    `json:"source_id"`
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
	TraceID    string    `json:"trace_id,omitempty"`
}

package model

import "time"

// Message is the canonical immutable record of one inbound email. It is
// created by the normalizer and never mutated afterwards.
type Message struct {
	ID         string    `json:"id"`
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

// Package normalizer converts raw inbound payloads into canonical Messages.
// Normalization is a pure transformation: it rejects malformed input before
// any processing case exists, and derives a deterministic message id so that
// re-normalizing the same raw payload always yields the same Message.
package normalizer

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"smartmailr/internal/model"
)

// ErrMalformedInput is returned when the raw payload has no usable content.
// No processing case is created for such input.
var ErrMalformedInput = errors.New("malformed input: empty subject and body")

// RawMessage is an inbound payload as delivered by a mail connector.
type RawMessage struct {
	SourceID   string    `json:"source_id"`
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

// Normalize validates raw and produces the canonical Message.
func Normalize(raw RawMessage) (model.Message, error) {
	subject := strings.TrimSpace(raw.Subject)
	body := strings.TrimSpace(raw.Body)

	if subject == "" && body == "" {
		return model.Message{}, ErrMalformedInput
	}

	receivedAt := raw.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	return model.Message{
		ID:         deriveID(raw),
		Sender:     strings.TrimSpace(raw.Sender),
		Subject:    subject,
		Body:       body,
		ReceivedAt: receivedAt,
	}, nil
}

// deriveID hashes the stable source identifier when the connector provides
// one, otherwise the message envelope. Either way the id is stable across
// re-ingestion of the same raw message.
func deriveID(raw RawMessage) string {
	var seed string
	if raw.SourceID != "" {
		seed = "src:" + raw.SourceID
	} else {
		seed = fmt.Sprintf("env:%s|%s|%d",
			strings.TrimSpace(raw.Sender),
			strings.TrimSpace(raw.Subject),
			raw.ReceivedAt.UnixNano(),
		)
	}

	sum := sha256.Sum256([]byte(seed))
	return "msg_" + hex.EncodeToString(sum[:])[:24]
}

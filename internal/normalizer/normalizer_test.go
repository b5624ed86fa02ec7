package normalizer

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNormalizeDerivesStableID(t *testing.T) {
	raw := RawMessage{
		SourceID: "imap-uid-42",
		Sender:   "alice@example.com",
		Subject:  "Weekly sync",
		Body:     "Can we meet tomorrow?",
	}

	first, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Normalize(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("same raw message produced different ids: %q vs %q", first.ID, second.ID)
	}
	if !strings.HasPrefix(first.ID, "msg_") {
		t.Errorf("unexpected id format: %q", first.ID)
	}
}

func TestNormalizeEnvelopeFallbackID(t *testing.T) {
	receivedAt := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	raw := RawMessage{
		Sender:     "bob@example.com",
		Subject:    "Status",
		Body:       "Thanks for the update",
		ReceivedAt: receivedAt,
	}

	first, _ := Normalize(raw)
	second, _ := Normalize(raw)
	if first.ID != second.ID {
		t.Errorf("envelope-derived id not stable: %q vs %q", first.ID, second.ID)
	}

	other := raw
	other.Subject = "Status update"
	third, _ := Normalize(other)
	if third.ID == first.ID {
		t.Error("different envelope produced the same id")
	}
}

func TestNormalizeRejectsEmptyContent(t *testing.T) {
	_, err := Normalize(RawMessage{
		Sender:  "alice@example.com",
		Subject: "   ",
		Body:    "\n\t",
	})
	if !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}
}

func TestNormalizeDefaultsReceivedAt(t *testing.T) {
	before := time.Now()
	msg, err := Normalize(RawMessage{
		Sender:  "alice@example.com",
		Subject: "Hello",
		Body:    "World",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.ReceivedAt.Before(before) {
		t.Errorf("ReceivedAt not defaulted: %v", msg.ReceivedAt)
	}
}

func TestNormalizeTrimsFields(t *testing.T) {
	msg, err := Normalize(RawMessage{
		Sender:  "  alice@example.com ",
		Subject: " Weekly sync ",
		Body:    " body text ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.Sender != "alice@example.com" {
		t.Errorf("sender not trimmed: %q", msg.Sender)
	}
	if msg.Subject != "Weekly sync" {
		t.Errorf("subject not trimmed: %q", msg.Subject)
	}
	if msg.Body != "body text" {
		t.Errorf("body not trimmed: %q", msg.Body)
	}
}

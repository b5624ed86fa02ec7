package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	mqcontracts "smartmailr/contracts/mq"
	"smartmailr/internal/normalizer"
)

// ---- mocks --------------------------------------------------------------

type mockSubmitter struct {
	mu     sync.Mutex
	calls  int
	caseID string
	err    error
}

func (m *mockSubmitter) Submit(_ context.Context, _ normalizer.RawMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.caseID, m.err
}

func (m *mockSubmitter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockDeduper struct {
	duplicate bool
}

func (m *mockDeduper) AcquireOnce(_ context.Context, _ string, _ string) bool {
	return !m.duplicate
}

type mockRetryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	resets int
}

func newMockRetryCounter() *mockRetryCounter {
	return &mockRetryCounter{counts: make(map[string]int64)}
}

func (m *mockRetryCounter) IncrementAndGet(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

func (m *mockRetryCounter) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counts, key)
	m.resets++
	return nil
}

type mockDLQ struct {
	mu       sync.Mutex
	messages [][]byte
	errs     []string
}

func (m *mockDLQ) PublishToDLQ(_ string, payload []byte, originalError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, payload)
	m.errs = append(m.errs, originalError)
	return nil
}

func (m *mockDLQ) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// ---- helpers ------------------------------------------------------------

func newTestHandler(sub *mockSubmitter, dedup *mockDeduper, rc *mockRetryCounter, dlq *mockDLQ) *MessageReceivedHandler {
	return NewMessageReceivedHandler(sub, dedup, rc, dlq, zap.NewNop())
}

func validPayload(t *testing.T) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(mqcontracts.MessageReceivedPayload{
		SourceID:   "imap-1",
		Sender:     "alice@example.com",
		Subject:    "Sync",
		Body:       "can we meet tomorrow?",
		ReceivedAt: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		TraceID:    "trace-123",
	})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return raw
}

// ---- tests --------------------------------------------------------------

func TestHandleSubmitsMessage(t *testing.T) {
	sub := &mockSubmitter{caseID: "msg_abc"}
	rc := newMockRetryCounter()
	dlq := &mockDLQ{}
	h := newTestHandler(sub, &mockDeduper{}, rc, dlq)

	if err := h.Handle(context.Background(), validPayload(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sub.callCount() != 1 {
		t.Errorf("expected 1 submit, got %d", sub.callCount())
	}
	if dlq.count() != 0 {
		t.Errorf("nothing should reach the DLQ, got %d", dlq.count())
	}
	if rc.resets != 1 {
		t.Errorf("retry counter should be reset after success, got %d resets", rc.resets)
	}
}

func TestHandleBadPayloadGoesToDLQ(t *testing.T) {
	sub := &mockSubmitter{caseID: "msg_abc"}
	dlq := &mockDLQ{}
	h := newTestHandler(sub, &mockDeduper{}, newMockRetryCounter(), dlq)

	if err := h.Handle(context.Background(), json.RawMessage(`{not json`)); err != nil {
		t.Fatalf("bad payload must be acked, got %v", err)
	}

	if sub.callCount() != 0 {
		t.Error("bad payload must not reach the pipeline")
	}
	if dlq.count() != 1 {
		t.Fatalf("expected 1 DLQ message, got %d", dlq.count())
	}
}

func TestHandleSkipsDuplicates(t *testing.T) {
	sub := &mockSubmitter{caseID: "msg_abc"}
	h := newTestHandler(sub, &mockDeduper{duplicate: true}, newMockRetryCounter(), &mockDLQ{})

	if err := h.Handle(context.Background(), validPayload(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.callCount() != 0 {
		t.Error("duplicate must not be submitted")
	}
}

func TestHandleRejectedMessageGoesToDLQ(t *testing.T) {
	sub := &mockSubmitter{err: normalizer.ErrMalformedInput}
	rc := newMockRetryCounter()
	dlq := &mockDLQ{}
	h := newTestHandler(sub, &mockDeduper{}, rc, dlq)

	if err := h.Handle(context.Background(), validPayload(t)); err != nil {
		t.Fatalf("rejected message must be acked, got %v", err)
	}

	if dlq.count() != 1 {
		t.Fatalf("expected 1 DLQ message, got %d", dlq.count())
	}
	if rc.resets != 1 {
		t.Errorf("retry counter should be reset, got %d resets", rc.resets)
	}
}

func TestHandleMaxRetriesGoesToDLQ(t *testing.T) {
	sub := &mockSubmitter{err: errors.New("transient")}
	rc := newMockRetryCounter()
	rc.counts["retry:pipeline:imap-1"] = maxRetries // next increment exceeds the cap
	dlq := &mockDLQ{}
	h := newTestHandler(sub, &mockDeduper{}, rc, dlq)

	if err := h.Handle(context.Background(), validPayload(t)); err != nil {
		t.Fatalf("poison message must be acked, got %v", err)
	}

	if sub.callCount() != 0 {
		t.Error("poison message must not be submitted again")
	}
	if dlq.count() != 1 {
		t.Fatalf("expected 1 DLQ message, got %d", dlq.count())
	}
}

// Package mqhandler consumes pipeline entry events from MQ. It guards the
// entry with Redis dedup and a retry counter, routing poison messages to
// the DLQ instead of looping forever.
package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "smartmailr/contracts/mq"
	"smartmailr/internal/normalizer"
	"smartmailr/pkg/logger"
	"smartmailr/pkg/trace"
	"smartmailr/pkg/util"
)

const (
	maxRetries = 5

	handlerName = "pipeline"
	routingKey  = "message.received"
)

// Submitter is the pipeline entry point.
type Submitter interface {
	Submit(ctx context.Context, raw normalizer.RawMessage) (string, error)
}

// DLQPublisher routes poison messages off the main queue.
type DLQPublisher interface {
	PublishToDLQ(routingKey string, payload []byte, originalError string) error
}

// EntryDeduper filters duplicate deliveries.
type EntryDeduper interface {
	AcquireOnce(ctx context.Context, handler string, messageID string) bool
}

// EntryRetryCounter tracks redelivery counts per message.
type EntryRetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

type MessageReceivedHandler struct {
	submitter    Submitter
	deduper      EntryDeduper
	retryCounter EntryRetryCounter
	dlqPublisher DLQPublisher
	logger       *zap.Logger
}

func NewMessageReceivedHandler(
	submitter Submitter,
	deduper EntryDeduper,
	retryCounter EntryRetryCounter,
	dlqPublisher DLQPublisher,
	log *zap.Logger,
) *MessageReceivedHandler {
	return &MessageReceivedHandler{
		submitter:    submitter,
		deduper:      deduper,
		retryCounter: retryCounter,
		dlqPublisher: dlqPublisher,
		logger:       log,
	}
}

func (h *MessageReceivedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	defer h.recoverPanic()

	// --------------------------
	// Step 1: decode payload
	// --------------------------
	var payload mqcontracts.MessageReceivedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.logger.Error("Invalid MessageReceivedPayload, sending to DLQ",
			zap.String("raw", string(raw)),
			zap.Error(err),
		)
		h.toDLQ(raw, err)
		return nil // ack, the payload will never decode
	}

	if payload.TraceID != "" {
		ctx = trace.WithContext(ctx, payload.TraceID)
	}
	traceLogger := logger.WithTrace(ctx, h.logger)

	rawMsg := normalizer.RawMessage{
		SourceID:   payload.SourceID,
		Sender:     payload.Sender,
		Subject:    payload.Subject,
		Body:       payload.Body,
		ReceivedAt: payload.ReceivedAt,
	}

	dedupID := dedupID(payload)

	// Redis dedup across instances; the case store still guarantees one
	// case per message id if this lets a duplicate through.
	if !h.deduper.AcquireOnce(ctx, handlerName, dedupID) {
		traceLogger.Info("Duplicated event, skip",
			zap.String("source_id", payload.SourceID),
		)
		return nil
	}

	// --------------------------
	// Step 2: retry count
	// --------------------------
	retryKey := util.FormatRetryKey(handlerName, dedupID)
	retryCount, _ := h.retryCounter.IncrementAndGet(ctx, retryKey)

	if retryCount > maxRetries {
		traceLogger.Warn("Max retries exceeded, sending to DLQ",
			zap.String("source_id", payload.SourceID),
			zap.Int64("retry", retryCount),
		)
		h.toDLQ(raw, fmt.Errorf("max retries exceeded (%d)", retryCount))
		h.retryCounter.Reset(ctx, retryKey)
		return nil // ack
	}

	// --------------------------
	// Step 3: submit to pipeline
	// --------------------------
	caseID, err := h.submitter.Submit(ctx, rawMsg)
	if err != nil {
		// Malformed input never becomes valid on redelivery.
		traceLogger.Warn("Message rejected, sending to DLQ",
			zap.String("source_id", payload.SourceID),
			zap.Error(err),
		)
		h.toDLQ(raw, err)
		h.retryCounter.Reset(ctx, retryKey)
		return nil // ack
	}

	// --------------------------
	// Step 4: cleanup & finish
	// --------------------------
	h.retryCounter.Reset(ctx, retryKey)

	traceLogger.Info("Message submitted to pipeline",
		zap.String("case_id", caseID),
		zap.String("sender", payload.Sender),
	)
	return nil
}

func (h *MessageReceivedHandler) toDLQ(raw json.RawMessage, cause error) {
	if h.dlqPublisher == nil {
		return
	}
	if err := h.dlqPublisher.PublishToDLQ(routingKey, raw, cause.Error()); err != nil {
		h.logger.Error("Failed to publish to DLQ", zap.Error(err))
	}
}

// dedupID prefers the connector's stable source id; without one it falls
// back to the envelope so identical redeliveries still collapse.
func dedupID(p mqcontracts.MessageReceivedPayload) string {
	if p.SourceID != "" {
		return p.SourceID
	}
	return fmt.Sprintf("%s|%s|%d", p.Sender, p.Subject, p.ReceivedAt.UnixNano())
}

func (h *MessageReceivedHandler) recoverPanic() {
	if r := recover(); r != nil {
		h.logger.Error("panic recovered in handler", zap.Any("panic", r))
	}
}

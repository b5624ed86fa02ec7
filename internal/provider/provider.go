// Package provider defines the capability contracts the pipeline drives:
// classification, reply generation, correction and action execution. The
// engines behind these contracts are opaque; the pipeline only depends on
// the narrow interfaces and error kinds below.
package provider

import (
	"context"
	"errors"
	"fmt"

	"smartmailr/internal/model"
)

// ErrorKind tags a transient provider failure. All kinds below are
// retryable; anything else a provider returns propagates as-is.
type ErrorKind string

const (
	ClassificationUnavailable ErrorKind = "classification_unavailable"
	GenerationUnavailable     ErrorKind = "generation_unavailable"
	CorrectionUnavailable     ErrorKind = "correction_unavailable"
	ActionUnavailable         ErrorKind = "action_unavailable"
)

// Error wraps a provider failure with its kind.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unavailable wraps err as a transient provider failure of the given kind.
func Unavailable(kind ErrorKind, err error) error {
	return &Error{Kind: kind, Err: err}
}

// UnavailableKind extracts the provider error kind, if err carries one.
func UnavailableKind(err error) (ErrorKind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}

// Classifier determines the intent of a message. Implementations must never
// return an unrecognized intent tag; unknown labels map to IntentQuestion.
type Classifier interface {
	Classify(ctx context.Context, msg model.Message) (model.Intent, error)
}

// Generator produces a reply draft for a message and intent. On success the
// draft text is non-empty.
type Generator interface {
	Generate(ctx context.Context, msg model.Message, intent model.Intent, style model.Style) (model.Draft, error)
}

// Corrector polishes a draft, returning a new Draft. The output preserves
// the input's meaning and is non-empty.
type Corrector interface {
	Correct(ctx context.Context, draft model.Draft) (model.Draft, error)
}

// Actor executes the intent-implied action. A business rejection (calendar
// conflict, recipient refused) is a successful call returning
// ActionResult{Success: false}; only transport failures are errors.
type Actor interface {
	Act(ctx context.Context, intent model.Intent, draft model.Draft, msg model.Message) (model.ActionResult, error)
}

// Providers bundles the four capabilities the pipeline needs.
type Providers struct {
	Classifier Classifier
	Generator  Generator
	Corrector  Corrector
	Actor      Actor
}

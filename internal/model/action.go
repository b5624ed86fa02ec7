package model

// ActionKind is the kind of outcome an action attempt produced.
type ActionKind string

const (
	ActionEmailSent    ActionKind = "email_sent"
	ActionEventCreated ActionKind = "event_created"
	ActionReminderSet  ActionKind = "reminder_set"
	ActionNoOp         ActionKind = "noop"
)

// StagedPayload is the prepared-but-not-executed action kept for manual
// approval when auto_send is off.
type StagedPayload struct {
	Kind      ActionKind `json:"kind"`
	Recipient string     `json:"recipient"`
	Subject   string     `json:"subject"`
	Body      string     `json:"body"`
}

// ActionResult is the outcome of an action attempt. Success=false with a
// Detail is a business rejection (e.g. calendar conflict) and is a valid
// terminal outcome, not an error.
type ActionResult struct {
	Kind    ActionKind     `json:"kind"`
	Success bool           `json:"success"`
	Detail  string         `json:"detail,omitempty"`
	Staged  *StagedPayload `json:"staged,omitempty"`
}

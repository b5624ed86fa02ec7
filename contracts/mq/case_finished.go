package mq

import "time"

// CaseFinishedPayload is the payload of the `case.finished` event, emitted
// once per processing case when it reaches a terminal state.
type CaseFinishedPayload struct {
	CaseID     string    `json:"case_id"`
	MessageID  string    `json:"message_id"`
	State      string    `json:"state"` // completed | failed
	Intent     string    `json:"intent,omitempty"`
	ActionKind string    `json:"action_kind,omitempty"`
	Success    bool      `json:"success"`
	FailReason string    `json:"fail_reason,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
	TraceID    string    `json:"trace_id,omitempty"`
}

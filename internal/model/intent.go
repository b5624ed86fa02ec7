package model

// Intent is the classified purpose of a message.
type Intent string

const (
	IntentMeetingRequest   Intent = "meeting_request"
	IntentDocumentRequest  Intent = "document_request"
	IntentQuestion         Intent = "question"
	IntentStatusAck        Intent = "status_ack"
	IntentSummarizeRequest Intent = "summarize_request"
	IntentNoActionNeeded   Intent = "no_action_needed"
)

// IsValid checks if the intent is a recognized tag.
func (i Intent) IsValid() bool {
	switch i {
	case IntentMeetingRequest, IntentDocumentRequest, IntentQuestion,
		IntentStatusAck, IntentSummarizeRequest, IntentNoActionNeeded:
		return true
	}
	return false
}

// ParseIntent maps a provider label to an Intent. Unrecognized labels fall
// back to IntentQuestion so the pipeline never sees an unknown tag.
func ParseIntent(label string) Intent {
	i := Intent(label)
	if i.IsValid() {
		return i
	}
	return IntentQuestion
}

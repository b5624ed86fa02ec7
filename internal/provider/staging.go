package provider

import (
	"context"
	"fmt"

	"smartmailr/internal/model"
)

// StagingActor wraps a real Actor when auto_send is off. It never invokes
// the wrapped actor's side-effecting path; instead it prepares the action
// as a staged payload on a NoOp result, for manual approval.
type StagingActor struct {
	wrapped Actor
}

func NewStagingActor(wrapped Actor) *StagingActor {
	return &StagingActor{wrapped: wrapped}
}

func (a *StagingActor) Act(_ context.Context, intent model.Intent, draft model.Draft, msg model.Message) (model.ActionResult, error) {
	staged := &model.StagedPayload{
		Kind:      plannedKind(intent),
		Recipient: msg.Sender,
		Subject:   "Re: " + msg.Subject,
		Body:      draft.Text,
	}

	return model.ActionResult{
		Kind:    model.ActionNoOp,
		Success: true,
		Detail:  fmt.Sprintf("staged %s for approval", staged.Kind),
		Staged:  staged,
	}, nil
}

// plannedKind is the action the staged payload would execute on approval.
func plannedKind(intent model.Intent) model.ActionKind {
	switch intent {
	case model.IntentMeetingRequest:
		return model.ActionEventCreated
	case model.IntentStatusAck:
		return model.ActionReminderSet
	default:
		return model.ActionEmailSent
	}
}

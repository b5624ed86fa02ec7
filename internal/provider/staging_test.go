package provider

import (
	"context"
	"testing"

	"smartmailr/internal/model"
)

type countingActor struct {
	calls int
}

func (a *countingActor) Act(_ context.Context, _ model.Intent, _ model.Draft, _ model.Message) (model.ActionResult, error) {
	a.calls++
	return model.ActionResult{Kind: model.ActionEmailSent, Success: true}, nil
}

func TestStagingActorNeverExecutes(t *testing.T) {
	wrapped := &countingActor{}
	staging := NewStagingActor(wrapped)

	msg := model.Message{Sender: "alice@example.com", Subject: "Sync", Body: "can we meet?"}
	draft := model.Draft{Text: "Hi alice,\n\nsure.\n\nBest,\nSmartMailr"}

	res, err := staging.Act(context.Background(), model.IntentMeetingRequest, draft, msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if wrapped.calls != 0 {
		t.Errorf("wrapped actor executed %d times while staging", wrapped.calls)
	}
	if res.Kind != model.ActionNoOp || !res.Success {
		t.Errorf("expected successful noop, got %+v", res)
	}

	staged := res.Staged
	if staged == nil {
		t.Fatal("expected a staged payload")
	}
	if staged.Kind != model.ActionEventCreated {
		t.Errorf("meeting request should stage event_created, got %s", staged.Kind)
	}
	if staged.Recipient != msg.Sender {
		t.Errorf("unexpected recipient: %q", staged.Recipient)
	}
	if staged.Subject != "Re: Sync" {
		t.Errorf("unexpected subject: %q", staged.Subject)
	}
	if staged.Body != draft.Text {
		t.Errorf("staged body should carry the corrected draft")
	}
}

func TestStagingActorPlannedKinds(t *testing.T) {
	staging := NewStagingActor(&countingActor{})
	msg := model.Message{Sender: "alice@example.com", Subject: "x"}
	draft := model.Draft{Text: "t"}

	tests := []struct {
		intent model.Intent
		want   model.ActionKind
	}{
		{model.IntentMeetingRequest, model.ActionEventCreated},
		{model.IntentDocumentRequest, model.ActionEmailSent},
		{model.IntentQuestion, model.ActionEmailSent},
		{model.IntentStatusAck, model.ActionReminderSet},
		{model.IntentSummarizeRequest, model.ActionEmailSent},
	}
	for _, tt := range tests {
		res, err := staging.Act(context.Background(), tt.intent, draft, msg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Staged.Kind != tt.want {
			t.Errorf("%s: staged %s, want %s", tt.intent, res.Staged.Kind, tt.want)
		}
	}
}

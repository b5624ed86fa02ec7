package model

import (
	"testing"
)

func TestAdvanceIsMonotonic(t *testing.T) {
	c := NewProcessingCase(Message{ID: "msg_a"})

	if !c.Advance(StateClassifying) {
		t.Fatal("received -> classifying should advance")
	}
	if c.Advance(StateReceived) {
		t.Error("moving backwards must be rejected")
	}
	if c.Advance(StateClassifying) {
		t.Error("re-entering the same state must be rejected")
	}
	if !c.Advance(StateDrafting) {
		t.Fatal("classifying -> drafting should advance")
	}
	if !c.Advance(StateCorrecting) {
		t.Fatal("drafting -> correcting should advance")
	}
	if !c.Advance(StateActing) {
		t.Fatal("correcting -> acting should advance")
	}
	if !c.Advance(StateCompleted) {
		t.Fatal("acting -> completed should advance")
	}

	// Terminal states are final.
	if c.Advance(StateFailed) {
		t.Error("completed is terminal, no further transitions")
	}

	want := []State{StateReceived, StateClassifying, StateDrafting, StateCorrecting, StateActing, StateCompleted}
	if len(c.History) != len(want) {
		t.Fatalf("unexpected history length: %v", c.History)
	}
	for i := range want {
		if c.History[i] != want[i] {
			t.Errorf("history[%d] = %s, want %s", i, c.History[i], want[i])
		}
	}
}

func TestSkippedPathOrdering(t *testing.T) {
	c := NewProcessingCase(Message{ID: "msg_b"})

	c.Advance(StateClassifying)
	if !c.Advance(StateSkipped) {
		t.Fatal("classifying -> skipped should advance")
	}
	if !c.Advance(StateCompleted) {
		t.Fatal("skipped -> completed should advance")
	}
}

func TestTerminal(t *testing.T) {
	if !StateCompleted.Terminal() || !StateFailed.Terminal() {
		t.Error("completed and failed are terminal")
	}
	if StateReceived.Terminal() || StateActing.Terminal() || StateSkipped.Terminal() {
		t.Error("non-terminal state reported terminal")
	}
}

func TestCloneIsDeep(t *testing.T) {
	c := NewProcessingCase(Message{ID: "msg_c"})
	intent := IntentQuestion
	c.Intent = &intent
	c.Draft = &Draft{Text: "hello", Style: StyleSimple}
	c.ActionResult = &ActionResult{
		Kind:    ActionNoOp,
		Success: true,
		Staged:  &StagedPayload{Kind: ActionEmailSent, Recipient: "a@b.c"},
	}
	c.StatsFor(StageClassify).Attempts = 2

	cp := c.Clone()

	*cp.Intent = IntentStatusAck
	cp.Draft.Text = "changed"
	cp.ActionResult.Staged.Recipient = "x@y.z"
	cp.Stages[StageClassify].Attempts = 99
	cp.History = append(cp.History, StateFailed)

	if *c.Intent != IntentQuestion {
		t.Error("clone shares intent pointer")
	}
	if c.Draft.Text != "hello" {
		t.Error("clone shares draft pointer")
	}
	if c.ActionResult.Staged.Recipient != "a@b.c" {
		t.Error("clone shares staged payload pointer")
	}
	if c.StatsFor(StageClassify).Attempts != 2 {
		t.Error("clone shares stage stats")
	}
	if len(c.History) != 1 {
		t.Error("clone shares history slice")
	}
}

func TestParseIntentFallback(t *testing.T) {
	if ParseIntent("meeting_request") != IntentMeetingRequest {
		t.Error("valid intent must parse")
	}
	if ParseIntent("weird_label") != IntentQuestion {
		t.Error("unknown labels must fall back to question")
	}
	if ParseIntent("") != IntentQuestion {
		t.Error("empty label must fall back to question")
	}
}

func TestParseStyleFallback(t *testing.T) {
	if ParseStyle("friendly") != StyleFriendly {
		t.Error("valid style must parse")
	}
	if ParseStyle("sarcastic") != StyleFormal {
		t.Error("unknown style must fall back to formal")
	}
}

package model

import "time"

// Stage is one pipeline phase.
type Stage string

const (
	StageClassify Stage = "classify"
	StageDraft    Stage = "draft"
	StageCorrect  Stage = "correct"
	StageAct      Stage = "act"
)

// State of a processing case. The numeric order is the only legal
// progression: a case never moves to a lower-valued state.
type State int

const (
	StateReceived State = iota
	StateClassifying
	StateDrafting
	StateSkipped
	StateCorrecting
	StateActing
	StateCompleted
	StateFailed
)

var stateNames = map[State]string{
	StateReceived:    "received",
	StateClassifying: "classifying",
	StateDrafting:    "drafting",
	StateSkipped:     "skipped",
	StateCorrecting:  "correcting",
	StateActing:      "acting",
	StateCompleted:   "completed",
	StateFailed:      "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Fail reasons recorded on a failed case.
const (
	FailReasonCancelled = "cancelled"
)

// StageStats records executor observability data for one stage.
type StageStats struct {
	Attempts  int           `json:"attempts"`
	Duration  time.Duration `json:"duration"`
	EnteredAt time.Time     `json:"entered_at"`
	ExitedAt  time.Time     `json:"exited_at"`
}

// ProcessingCase is the unit of work: one per message, mutated exclusively
// by the orchestrator through the case store.
type ProcessingCase struct {
	ID           string                `json:"id"`
	Message      Message               `json:"message"`
	State        State                 `json:"state"`
	Intent       *Intent               `json:"intent,omitempty"`
	Draft        *Draft                `json:"draft,omitempty"`
	ActionResult *ActionResult         `json:"action_result,omitempty"`
	FailStage    Stage                 `json:"fail_stage,omitempty"`
	FailReason   string                `json:"fail_reason,omitempty"`
	Stages       map[Stage]*StageStats `json:"stages"`
	History      []State               `json:"history"`
	Cancelled    bool                  `json:"-"`
	CreatedAt    time.Time             `json:"created_at"`
	FinishedAt   *time.Time            `json:"finished_at,omitempty"`
}

// NewProcessingCase creates a case in the Received state. The case id is
// the message id: one case per message.
func NewProcessingCase(msg Message) *ProcessingCase {
	return &ProcessingCase{
		ID:        msg.ID,
		Message:   msg,
		State:     StateReceived,
		Stages:    make(map[Stage]*StageStats),
		History:   []State{StateReceived},
		CreatedAt: time.Now(),
	}
}

// Advance moves the case to a later state. Moving backwards or out of a
// terminal state is a programming error and is ignored.
func (c *ProcessingCase) Advance(next State) bool {
	if c.State.Terminal() || next <= c.State {
		return false
	}
	c.State = next
	c.History = append(c.History, next)
	return true
}

// StatsFor returns the (lazily created) stats record for a stage.
func (c *ProcessingCase) StatsFor(stage Stage) *StageStats {
	if c.Stages == nil {
		c.Stages = make(map[Stage]*StageStats)
	}
	st, ok := c.Stages[stage]
	if !ok {
		st = &StageStats{}
		c.Stages[stage] = st
	}
	return st
}

// Clone returns a deep copy, safe to hand outside the store's locks.
func (c *ProcessingCase) Clone() *ProcessingCase {
	cp := *c

	if c.Intent != nil {
		intent := *c.Intent
		cp.Intent = &intent
	}
	if c.Draft != nil {
		draft := *c.Draft
		cp.Draft = &draft
	}
	if c.ActionResult != nil {
		res := *c.ActionResult
		if c.ActionResult.Staged != nil {
			staged := *c.ActionResult.Staged
			res.Staged = &staged
		}
		cp.ActionResult = &res
	}
	if c.FinishedAt != nil {
		t := *c.FinishedAt
		cp.FinishedAt = &t
	}

	cp.Stages = make(map[Stage]*StageStats, len(c.Stages))
	for k, v := range c.Stages {
		st := *v
		cp.Stages[k] = &st
	}

	cp.History = make([]State, len(c.History))
	copy(cp.History, c.History)

	return &cp
}

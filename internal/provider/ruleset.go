package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smartmailr/internal/model"
)

// Local rule-based providers. They implement the capability contracts with
// keyword rules and reply templates, need no network, and are the default
// backend (providers.mode: local).

const signature = "SmartMailr"

// LocalClassifier classifies by keyword rules over subject and body.
type LocalClassifier struct{}

func NewLocalClassifier() *LocalClassifier {
	return &LocalClassifier{}
}

func (c *LocalClassifier) Classify(_ context.Context, msg model.Message) (model.Intent, error) {
	text := strings.ToLower(msg.Subject + " " + msg.Body)

	switch {
	case containsAny(text, "no-reply", "noreply", "unsubscribe", "newsletter"):
		return model.IntentNoActionNeeded, nil
	case containsAny(text, "meet", "meeting", "schedule", "call"):
		return model.IntentMeetingRequest, nil
	case containsAny(text, "summary", "summarize", "recap"):
		return model.IntentSummarizeRequest, nil
	case containsAny(text, "send", "report", "document", "docs", "attach"):
		return model.IntentDocumentRequest, nil
	case containsAny(text, "thanks", "thank you", "acknowledge", "noted"):
		return model.IntentStatusAck, nil
	case strings.Contains(text, "?") || containsAny(text, "could you", "can you", "please"):
		return model.IntentQuestion, nil
	default:
		return model.IntentQuestion, nil
	}
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// LocalGenerator renders a reply template for the intent and style.
type LocalGenerator struct {
	now func() time.Time
}

func NewLocalGenerator() *LocalGenerator {
	return &LocalGenerator{now: time.Now}
}

func (g *LocalGenerator) Generate(_ context.Context, msg model.Message, intent model.Intent, style model.Style) (model.Draft, error) {
	greeting := greetingFor(msg.Sender, style)
	closing := closingFor(style)

	var lines string
	switch intent {
	case model.IntentMeetingRequest:
		when := ExtractMeetingTime(msg.Body, g.now())
		lines = fmt.Sprintf("Thanks — that works for me. I've scheduled the meeting for %s.",
			when.Format("2006-01-02 03:04 PM"))
	case model.IntentDocumentRequest:
		lines = "Thanks for reaching out. I will gather the documents and send them shortly."
	case model.IntentQuestion:
		lines = "Thanks for your message. I'll look into this and get back to you soon."
	case model.IntentStatusAck:
		lines = "Thanks for the update — noted."
	case model.IntentSummarizeRequest:
		lines = "Thanks for your message. I'll put together a summary and share it with you."
	default:
		lines = "Thanks for your message. I'll get back to you soon."
	}

	text := fmt.Sprintf("%s\n\n%s\n\n%s", greeting, lines, closing)
	return model.Draft{Text: text, Style: style}, nil
}

func greetingFor(sender string, style model.Style) string {
	name := sender
	if at := strings.Index(sender, "@"); at > 0 {
		name = sender[:at]
	}
	if name == "" {
		name = "there"
	}

	switch style {
	case model.StyleFormal:
		return fmt.Sprintf("Dear %s,", name)
	case model.StyleFriendly:
		return fmt.Sprintf("Hey %s,", name)
	default:
		return fmt.Sprintf("Hi %s,", name)
	}
}

func closingFor(style model.Style) string {
	switch style {
	case model.StyleFormal:
		return "Best regards,\n" + signature
	default:
		return "Best,\n" + signature
	}
}

// ExtractMeetingTime finds a naive meeting time in body text. "tomorrow",
// "today" and "4 pm" resolve to 16:00 on the implied day, matching what the
// meeting templates promise.
func ExtractMeetingTime(body string, now time.Time) time.Time {
	text := strings.ToLower(body)

	day := now.AddDate(0, 0, 1)
	if strings.Contains(text, "today") {
		day = now
	}

	return time.Date(day.Year(), day.Month(), day.Day(), 16, 0, 0, 0, day.Location())
}

// LocalCorrector tidies whitespace and guarantees the closing signature.
type LocalCorrector struct{}

func NewLocalCorrector() *LocalCorrector {
	return &LocalCorrector{}
}

func (c *LocalCorrector) Correct(_ context.Context, draft model.Draft) (model.Draft, error) {
	var kept []string
	for _, line := range strings.Split(draft.Text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	text := strings.Join(kept, "\n")

	if !strings.Contains(text, signature) {
		text += "\n\nBest,\n" + signature
	}

	return model.Draft{Text: text, Style: draft.Style}, nil
}

// LocalActor executes actions against mock backends: calendar events get a
// generated id, replies and reminders are acknowledged immediately.
type LocalActor struct {
	now func() time.Time

	// Conflicts reports a calendar conflict for the proposed slot. A
	// conflict is a business rejection, not an error.
	Conflicts func(when time.Time) bool
}

func NewLocalActor() *LocalActor {
	return &LocalActor{now: time.Now}
}

func (a *LocalActor) Act(_ context.Context, intent model.Intent, draft model.Draft, msg model.Message) (model.ActionResult, error) {
	switch intent {
	case model.IntentMeetingRequest:
		when := ExtractMeetingTime(msg.Body, a.now())
		if a.Conflicts != nil && a.Conflicts(when) {
			return model.ActionResult{
				Kind:    model.ActionEventCreated,
				Success: false,
				Detail:  fmt.Sprintf("calendar conflict at %s", when.Format(time.RFC3339)),
			}, nil
		}
		return model.ActionResult{
			Kind:    model.ActionEventCreated,
			Success: true,
			Detail:  fmt.Sprintf("evt_%d", a.now().Unix()),
		}, nil

	case model.IntentStatusAck:
		return model.ActionResult{
			Kind:    model.ActionReminderSet,
			Success: true,
			Detail:  fmt.Sprintf("follow-up reminder for %s", msg.Sender),
		}, nil

	default:
		return model.ActionResult{
			Kind:    model.ActionEmailSent,
			Success: true,
			Detail:  fmt.Sprintf("reply sent to %s", msg.Sender),
		}, nil
	}
}

// NewLocalProviders bundles the local rule-based backend.
func NewLocalProviders() Providers {
	return Providers{
		Classifier: NewLocalClassifier(),
		Generator:  NewLocalGenerator(),
		Corrector:  NewLocalCorrector(),
		Actor:      NewLocalActor(),
	}
}
